package daemon

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/harun/chronicle/internal/config"
	"github.com/harun/chronicle/internal/logger"
	"github.com/harun/chronicle/internal/observability"
	"github.com/harun/chronicle/internal/tracing"
	"github.com/harun/chronicle/pkg/history"
	"github.com/harun/chronicle/pkg/maintenance"
)

const shutdownTimeout = 10 * time.Second

// Daemon keeps the session index in sync with the store while the desktop application is
// running: it owns the resync scheduler, the metrics endpoint and the PID file.
type Daemon struct {
	config  *config.Config
	logger  *logger.Logger
	history *history.Manager

	scheduler     *maintenance.Scheduler
	metricsServer *http.Server
	metricsAddr   string
	lifecycle     *LifecycleManager

	startTime time.Time
	running   bool
	mu        sync.RWMutex

	tracingEnabled bool
}

// Status represents the daemon status
type Status struct {
	Running   bool
	Uptime    time.Duration
	StartTime time.Time
	Sessions  int
	NextSync  time.Time
}

// New creates a new daemon instance over an opened history manager
func New(cfg *config.Config, log *logger.Logger, manager *history.Manager) (*Daemon, error) {
	observability.EnsureRegistered()
	if err := tracing.InitOpenTelemetry("chronicle-daemon"); err != nil {
		log.Warn().Err(err).Msg("Failed to initialize tracing, continuing without distributed tracing")
	}

	d := &Daemon{
		config:         cfg,
		logger:         log,
		history:        manager,
		tracingEnabled: true,
	}

	if cfg.Storage.ResyncSchedule != "" {
		scheduler, err := maintenance.NewScheduler(manager.Engine(), cfg.Storage.ResyncSchedule)
		if err != nil {
			return nil, err
		}
		scheduler.SetLogger(log.Component("maintenance"))

		if days := cfg.Storage.RetentionDays; days > 0 {
			retention, err := maintenance.NewRetention(manager.Engine(), maintenance.RetentionDays(days))
			if err != nil {
				return nil, err
			}
			retention.SetLogger(log.Component("retention"))
			scheduler.SetRetention(retention)
		}

		d.scheduler = scheduler
	} else if cfg.Storage.RetentionDays > 0 {
		log.Warn().Msg("storage.retention_days is set but no resync schedule is configured, sessions will not be pruned")
	}

	d.lifecycle = NewLifecycleManager(d)

	return d, nil
}

// Start starts the daemon service
func (d *Daemon) Start() error {
	d.mu.Lock()
	if d.running {
		d.mu.Unlock()
		return fmt.Errorf("daemon is already running")
	}
	d.running = true
	d.startTime = time.Now()
	d.mu.Unlock()

	logger := d.logger.GetZerolog().With().Str("trace_id", tracing.NewTraceID()).Logger()
	logger.Info().Msg("Starting Chronicle daemon")

	if err := d.lifecycle.Start(); err != nil {
		d.setStopped()
		return fmt.Errorf("failed to start lifecycle manager: %w", err)
	}

	if d.scheduler != nil {
		if err := d.scheduler.Start(); err != nil {
			d.lifecycle.Stop()
			d.setStopped()
			return fmt.Errorf("failed to start resync scheduler: %w", err)
		}
	}

	if addr := d.config.Daemon.MetricsAddr; addr != "" {
		if err := d.startMetricsServer(addr); err != nil {
			if d.scheduler != nil {
				d.scheduler.Stop()
			}
			d.lifecycle.Stop()
			d.setStopped()
			return fmt.Errorf("failed to start metrics server: %w", err)
		}
		logger.Info().Str("addr", d.metricsAddr).Msg("Metrics endpoint listening")
	}

	logger.Info().
		Int("sessions", d.history.Count(context.Background())).
		Msg("Daemon started")

	return nil
}

func (d *Daemon) startMetricsServer(addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", observability.MetricsHandler())

	server := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	d.metricsServer = server
	d.metricsAddr = listener.Addr().String()

	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			d.logger.Error().Err(err).Msg("Metrics server stopped unexpectedly")
		}
	}()

	return nil
}

func (d *Daemon) setStopped() {
	d.mu.Lock()
	d.running = false
	d.mu.Unlock()
}

// Stop stops the daemon service gracefully
func (d *Daemon) Stop() error {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return fmt.Errorf("daemon is not running")
	}
	d.running = false
	d.mu.Unlock()

	logger := d.logger.GetZerolog().With().Str("trace_id", tracing.NewTraceID()).Logger()
	logger.Info().Msg("Stopping Chronicle daemon")

	if d.metricsServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		if err := d.metricsServer.Shutdown(ctx); err != nil {
			logger.Error().Err(err).Msg("Failed to stop metrics server")
		}
		cancel()
		d.metricsServer = nil
	}

	if d.scheduler != nil {
		if err := d.scheduler.Stop(); err != nil {
			logger.Error().Err(err).Msg("Failed to stop resync scheduler")
		}
	}

	if err := d.lifecycle.Stop(); err != nil {
		logger.Error().Err(err).Msg("Failed to stop lifecycle manager")
	}

	if d.tracingEnabled {
		if err := tracing.ShutdownOpenTelemetry(context.Background()); err != nil {
			logger.Error().Err(err).Msg("Failed to shutdown tracing")
		}
	}

	logger.Info().Msg("Daemon stopped")
	return nil
}

// Status returns the current daemon status
func (d *Daemon) Status() Status {
	d.mu.RLock()
	defer d.mu.RUnlock()

	status := Status{
		Running:  d.running,
		Sessions: d.history.Count(context.Background()),
	}
	if d.running {
		status.Uptime = time.Since(d.startTime)
		status.StartTime = d.startTime
		if d.scheduler != nil {
			status.NextSync = d.scheduler.NextRun()
		}
	}

	return status
}

// MetricsAddr returns the address the metrics endpoint is bound to, or "" if disabled.
func (d *Daemon) MetricsAddr() string {
	return d.metricsAddr
}

// Wait blocks until SIGINT or SIGTERM and then stops the daemon
func (d *Daemon) Wait() {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	sig := <-sigChan
	d.logger.Info().Str("signal", sig.String()).Msg("Received signal")

	if err := d.Stop(); err != nil {
		d.logger.Error().Err(err).Msg("Failed to stop daemon")
	}
}
