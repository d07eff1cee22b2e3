package observability

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type moduleMetrics struct {
	storedSessions      prometheus.Gauge
	sessionLoadDuration prometheus.Histogram
	sessionSaveDuration prometheus.Histogram
	mutationsTotal      *prometheus.CounterVec
	storageErrorsTotal  *prometheus.CounterVec

	indexReloadsTotal    prometheus.Counter
	indexReloadDuration  prometheus.Histogram
	corruptRecordsTotal  prometheus.Counter
	exportsTotal         *prometheus.CounterVec
	exportedSessionTotal *prometheus.CounterVec
	prunedSessionsTotal  prometheus.Counter
}

var (
	metricsOnce sync.Once
	metricsInst *moduleMetrics
)

func getMetrics() *moduleMetrics {
	metricsOnce.Do(func() {
		m := &moduleMetrics{
			storedSessions: prometheus.NewGauge(
				prometheus.GaugeOpts{
					Name: "history_stored_sessions",
					Help: "Number of sessions currently in the summary index.",
				},
			),
			sessionLoadDuration: prometheus.NewHistogram(
				prometheus.HistogramOpts{
					Name:    "history_session_load_duration_seconds",
					Help:    "Full session record load duration in seconds.",
					Buckets: prometheus.DefBuckets,
				},
			),
			sessionSaveDuration: prometheus.NewHistogram(
				prometheus.HistogramOpts{
					Name:    "history_session_save_duration_seconds",
					Help:    "Session record write duration in seconds.",
					Buckets: prometheus.DefBuckets,
				},
			),
			mutationsTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "history_mutations_total",
					Help: "Total mutating operations by operation and status.",
				},
				[]string{"op", "status"},
			),
			storageErrorsTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "history_storage_errors_total",
					Help: "Total durable storage failures by operation.",
				},
				[]string{"op"},
			),
			indexReloadsTotal: prometheus.NewCounter(
				prometheus.CounterOpts{
					Name: "history_index_reloads_total",
					Help: "Total summary index rebuilds from durable storage.",
				},
			),
			indexReloadDuration: prometheus.NewHistogram(
				prometheus.HistogramOpts{
					Name:    "history_index_reload_duration_seconds",
					Help:    "Summary index rebuild duration in seconds.",
					Buckets: prometheus.DefBuckets,
				},
			),
			corruptRecordsTotal: prometheus.NewCounter(
				prometheus.CounterOpts{
					Name: "history_corrupt_records_total",
					Help: "Total unparseable records skipped during scans.",
				},
			),
			exportsTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "history_exports_total",
					Help: "Total export requests by format.",
				},
				[]string{"format"},
			),
			exportedSessionTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "history_exported_sessions_total",
					Help: "Total sessions rendered by the export codec by format.",
				},
				[]string{"format"},
			),
			prunedSessionsTotal: prometheus.NewCounter(
				prometheus.CounterOpts{
					Name: "history_pruned_sessions_total",
					Help: "Total sessions deleted by the retention policy.",
				},
			),
		}

		prometheus.MustRegister(
			m.storedSessions,
			m.sessionLoadDuration,
			m.sessionSaveDuration,
			m.mutationsTotal,
			m.storageErrorsTotal,
			m.indexReloadsTotal,
			m.indexReloadDuration,
			m.corruptRecordsTotal,
			m.exportsTotal,
			m.exportedSessionTotal,
			m.prunedSessionsTotal,
		)

		metricsInst = m
	})

	return metricsInst
}

// EnsureRegistered initializes and registers metrics the first time it is called.
func EnsureRegistered() {
	_ = getMetrics()
}

func MetricsHandler() http.Handler {
	EnsureRegistered()
	return promhttp.Handler()
}

func SetStoredSessions(count int) {
	getMetrics().storedSessions.Set(float64(count))
}

func RecordSessionLoad(duration time.Duration) {
	getMetrics().sessionLoadDuration.Observe(duration.Seconds())
}

func RecordSessionSave(duration time.Duration) {
	getMetrics().sessionSaveDuration.Observe(duration.Seconds())
}

func RecordMutation(op string, success bool) {
	status := "error"
	if success {
		status = "success"
	}
	getMetrics().mutationsTotal.WithLabelValues(op, status).Inc()
}

func RecordStorageError(op string) {
	getMetrics().storageErrorsTotal.WithLabelValues(op).Inc()
}

func RecordIndexReload(duration time.Duration) {
	m := getMetrics()
	m.indexReloadsTotal.Inc()
	m.indexReloadDuration.Observe(duration.Seconds())
}

func RecordCorruptRecord() {
	getMetrics().corruptRecordsTotal.Inc()
}

func RecordExport(format string, sessions int) {
	m := getMetrics()
	m.exportsTotal.WithLabelValues(format).Inc()
	m.exportedSessionTotal.WithLabelValues(format).Add(float64(sessions))
}

func RecordPrune(sessions int) {
	getMetrics().prunedSessionsTotal.Add(float64(sessions))
}
