package storage

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/harun/chronicle/internal/observability"
	"github.com/harun/chronicle/internal/tracing"
	"github.com/harun/chronicle/pkg/model"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "chronicle.storage"

// Config configures an Engine.
type Config struct {
	Backend Backend
	// Clock stamps createdAt/updatedAt. Defaults to model.SystemClock.
	Clock model.Clock
	// Logger defaults to the global zerolog logger.
	Logger *zerolog.Logger
}

// ReloadReport describes the outcome of rebuilding the index.
type ReloadReport struct {
	Loaded     int      `json:"loaded"`
	Skipped    int      `json:"skipped"`
	SkippedIDs []string `json:"skipped_ids,omitempty"`
}

// Engine owns the durable store and the summary index built from it.
type Engine struct {
	backend Backend
	clock   model.Clock
	logger  zerolog.Logger

	// writeMu serializes mutations and reloads so each one sees the result of the last.
	writeMu sync.Mutex
	index   atomic.Pointer[summaryIndex]

	watchMu sync.Mutex
	watcher *Watcher
}

// New opens an engine over cfg.Backend and builds the index from it.
func New(ctx context.Context, cfg Config) (*Engine, error) {
	observability.EnsureRegistered()

	if cfg.Backend == nil {
		return nil, errors.New("storage backend is required")
	}
	if cfg.Clock == nil {
		cfg.Clock = model.SystemClock{}
	}
	logger := log.Logger
	if cfg.Logger != nil {
		logger = *cfg.Logger
	}

	e := &Engine{
		backend: cfg.Backend,
		clock:   cfg.Clock,
		logger:  logger.With().Str("component", "storage").Logger(),
	}
	e.index.Store(newSummaryIndex(nil))

	report, err := e.Reload(ctx)
	if err != nil {
		return nil, err
	}

	e.logger.Info().
		Int("sessions", report.Loaded).
		Int("skipped", report.Skipped).
		Msg("Session store opened")

	return e, nil
}

func (e *Engine) now() time.Time {
	return e.clock.Now().UTC()
}

func (e *Engine) snapshot() *summaryIndex {
	return e.index.Load()
}

func (e *Engine) publish(ix *summaryIndex) {
	e.index.Store(ix)
	observability.SetStoredSessions(ix.len())
}

func (e *Engine) startOp(ctx context.Context, op, id string) (context.Context, func(), zerolog.Logger) {
	if ctx == nil {
		ctx = context.Background()
	}
	attrs := []attribute.KeyValue{attribute.String("op", op)}
	if id != "" {
		ctx = tracing.WithSessionID(ctx, id)
		attrs = append(attrs, attribute.String("session_id", id))
	}
	ctx, span := tracing.StartSpan(ctx, tracerName, "storage."+op, attrs...)
	return ctx, func() { span.End() }, tracing.LoggerFromContext(ctx, e.logger)
}

// SaveSession converts s into its persisted form and stores it. Saving an existing id updates
// the record in place: createdAt, pinned, tags and a non-empty title are kept, the transcript
// is replaced and the total cost never decreases.
func (e *Engine) SaveSession(ctx context.Context, s model.Session) (model.PersistedSession, error) {
	ctx, end, logger := e.startOp(ctx, "save", s.ID)
	defer end()
	start := time.Now()
	defer func() {
		observability.RecordSessionSave(time.Since(start))
	}()

	if err := model.ValidateID(s.ID); err != nil {
		return model.PersistedSession{}, e.fail(ctx, "save", s.ID, err)
	}
	if s.TotalCostUSD < 0 || math.IsNaN(s.TotalCostUSD) || math.IsInf(s.TotalCostUSD, 0) {
		return model.PersistedSession{}, e.fail(ctx, "save", s.ID,
			fmt.Errorf("%w: total cost must be a non-negative number", model.ErrValidation))
	}

	e.writeMu.Lock()
	defer e.writeMu.Unlock()

	now := e.now()
	existing, found, err := e.load(ctx, s.ID)
	if err != nil && !errors.Is(err, model.ErrCorruptRecord) {
		return model.PersistedSession{}, e.fail(ctx, "save", s.ID, err)
	}
	if err != nil {
		logger.Warn().Err(err).Msg("Existing record is corrupt, saving session as new")
		observability.RecordCorruptRecord()
		found = false
	}

	p := model.PersistedSession{
		ID:           s.ID,
		Title:        strings.TrimSpace(s.Title),
		ProjectPath:  s.ProjectPath,
		Model:        s.Model,
		Tags:         []string{},
		Messages:     append([]model.Message{}, s.Messages...),
		TotalCostUSD: s.TotalCostUSD,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if found {
		p.CreatedAt = existing.CreatedAt
		p.Pinned = existing.Pinned
		p.Tags = existing.Tags
		if existing.Title != "" {
			p.Title = existing.Title
		}
		p.TotalCostUSD = math.Max(existing.TotalCostUSD, s.TotalCostUSD)
		if existing.ProjectPath != s.ProjectPath {
			logger.Warn().
				Str("old_project", existing.ProjectPath).
				Str("new_project", s.ProjectPath).
				Msg("Session moved to a different project")
		}
	}
	if p.Title == "" {
		p.Title = model.InferTitle(p.Messages)
	}
	p.Normalize()

	if err := e.write(ctx, "save", p); err != nil {
		return model.PersistedSession{}, err
	}

	observability.RecordMutation("save", true)
	observability.RecordSessionAudit(ctx, "save", p.ID, "success", map[string]interface{}{
		"messages": len(p.Messages),
		"created":  !found,
	})
	logger.Debug().Int("messages", len(p.Messages)).Bool("created", !found).Msg("Session saved")

	return p.Clone(), nil
}

// GetSession returns the full record for id, or nil if no such session exists.
func (e *Engine) GetSession(ctx context.Context, id string) (*model.PersistedSession, error) {
	ctx, end, _ := e.startOp(ctx, "get", id)
	defer end()
	start := time.Now()
	defer func() {
		observability.RecordSessionLoad(time.Since(start))
	}()

	if err := model.ValidateID(id); err != nil {
		return nil, e.fail(ctx, "get", id, err)
	}

	p, found, err := e.load(ctx, id)
	if err != nil {
		return nil, e.fail(ctx, "get", id, err)
	}
	if !found {
		return nil, nil
	}
	return &p, nil
}

// GetAllSummaries returns the indexed summaries matching opts, most recently updated first.
// It never reads full records.
func (e *Engine) GetAllSummaries(ctx context.Context, opts model.SearchOptions) []model.SessionSummary {
	return e.snapshot().search(opts)
}

// GetSessionsByProject groups every summary by project path. Each group keeps the ordering
// of GetAllSummaries.
func (e *Engine) GetSessionsByProject(ctx context.Context) map[string][]model.SessionSummary {
	groups := make(map[string][]model.SessionSummary)
	for _, s := range e.snapshot().search(model.SearchOptions{}) {
		groups[s.ProjectPath] = append(groups[s.ProjectPath], s)
	}
	return groups
}

// UpdateTitle replaces the title of id. found is false if the session does not exist.
func (e *Engine) UpdateTitle(ctx context.Context, id, title string) (bool, error) {
	title = strings.TrimSpace(title)
	if strings.ContainsAny(title, "\r\n") {
		return false, fmt.Errorf("%w: title cannot contain line breaks", model.ErrValidation)
	}
	p, err := e.mutate(ctx, "update_title", id, func(p *model.PersistedSession) (bool, error) {
		p.Title = title
		return true, nil
	})
	return p != nil, err
}

// TogglePin flips the pinned flag of id and returns the new state.
func (e *Engine) TogglePin(ctx context.Context, id string) (pinned bool, found bool, err error) {
	p, err := e.mutate(ctx, "toggle_pin", id, func(p *model.PersistedSession) (bool, error) {
		p.Pinned = !p.Pinned
		return true, nil
	})
	if p == nil {
		return false, false, err
	}
	return p.Pinned, true, err
}

// AddTag adds tag to id. Adding a tag the session already carries, in any letter case,
// succeeds without rewriting the record.
func (e *Engine) AddTag(ctx context.Context, id, tag string) (bool, error) {
	tag, err := model.NormalizeTag(tag)
	if err != nil {
		return false, err
	}
	p, err := e.mutate(ctx, "add_tag", id, func(p *model.PersistedSession) (bool, error) {
		if model.HasTag(p.Tags, tag) {
			return false, nil
		}
		p.Tags = model.NormalizeTags(append(p.Tags, tag))
		return true, nil
	})
	return p != nil, err
}

// RemoveTag removes tag from id, ignoring case. Removing an absent tag succeeds without
// rewriting the record.
func (e *Engine) RemoveTag(ctx context.Context, id, tag string) (bool, error) {
	tag, err := model.NormalizeTag(tag)
	if err != nil {
		return false, err
	}
	p, err := e.mutate(ctx, "remove_tag", id, func(p *model.PersistedSession) (bool, error) {
		kept := make([]string, 0, len(p.Tags))
		for _, t := range p.Tags {
			if !strings.EqualFold(t, tag) {
				kept = append(kept, t)
			}
		}
		if len(kept) == len(p.Tags) {
			return false, nil
		}
		p.Tags = kept
		return true, nil
	})
	return p != nil, err
}

// DeleteSession removes the record and its summary. It reports whether a record existed.
func (e *Engine) DeleteSession(ctx context.Context, id string) (bool, error) {
	ctx, end, logger := e.startOp(ctx, "delete", id)
	defer end()

	if err := model.ValidateID(id); err != nil {
		return false, e.fail(ctx, "delete", id, err)
	}

	e.writeMu.Lock()
	defer e.writeMu.Unlock()

	return e.deleteLocked(ctx, logger, id)
}

// DeleteIdleSession removes id only if it is unpinned and was last updated before cutoff.
// The check and the delete happen under the write lock, so a concurrent pin or update
// keeps the session. It reports whether a record was deleted.
func (e *Engine) DeleteIdleSession(ctx context.Context, id string, cutoff time.Time) (bool, error) {
	ctx, end, logger := e.startOp(ctx, "delete", id)
	defer end()

	if err := model.ValidateID(id); err != nil {
		return false, e.fail(ctx, "delete", id, err)
	}

	e.writeMu.Lock()
	defer e.writeMu.Unlock()

	s, ok := e.snapshot().get(id)
	if !ok || s.Pinned || !s.UpdatedAt.Before(cutoff) {
		logger.Debug().Bool("found", ok).Msg("Session no longer idle, keeping it")
		return false, nil
	}

	return e.deleteLocked(ctx, logger, id)
}

// deleteLocked must be called with writeMu held.
func (e *Engine) deleteLocked(ctx context.Context, logger zerolog.Logger, id string) (bool, error) {
	existed, err := e.backend.Delete(ctx, id)
	if err != nil {
		observability.RecordStorageError("delete")
		return false, e.fail(ctx, "delete", id, model.StorageError("delete", err))
	}
	e.publish(e.snapshot().without(id))

	status := "success"
	if !existed {
		status = "noop"
	}
	observability.RecordMutation("delete", true)
	observability.RecordSessionAudit(ctx, "delete", id, status, nil)
	logger.Debug().Bool("existed", existed).Msg("Session deleted")

	return existed, nil
}

// GetAllTags returns every distinct tag in use, sorted.
func (e *Engine) GetAllTags(ctx context.Context) []string {
	var all []string
	for _, s := range e.snapshot().byID {
		all = append(all, s.Tags...)
	}
	// sort first so the spelling kept for case-insensitive duplicates does not depend on
	// map iteration order
	sort.Strings(all)
	return model.NormalizeTags(all)
}

// Count returns the number of stored sessions.
func (e *Engine) Count(ctx context.Context) int {
	return e.snapshot().len()
}

// Reload discards the index and rebuilds it from the backend. Records that fail to decode
// are logged and skipped. If the backend cannot be scanned the current index is kept.
func (e *Engine) Reload(ctx context.Context) (ReloadReport, error) {
	ctx, end, logger := e.startOp(ctx, "reload", "")
	defer end()
	start := time.Now()

	e.writeMu.Lock()
	defer e.writeMu.Unlock()

	var report ReloadReport
	summaries := make(map[string]model.SessionSummary)

	err := e.backend.Scan(ctx, func(entry ScanEntry) error {
		if entry.Err != nil {
			e.skip(logger, &report, entry.ID, entry.Err)
			return nil
		}
		p, err := DecodeRecord(entry.ID, entry.Data)
		if err != nil {
			e.skip(logger, &report, entry.ID, err)
			return nil
		}
		summaries[p.ID] = p.Summary()
		report.Loaded++
		return nil
	})
	if err != nil {
		observability.RecordStorageError("reload")
		observability.RecordIndexAudit(ctx, "reload", "failure", nil)
		return report, e.fail(ctx, "reload", "", model.StorageError("scan", err))
	}

	e.publish(newSummaryIndex(summaries))
	observability.RecordIndexReload(time.Since(start))
	observability.RecordIndexAudit(ctx, "reload", "success", map[string]interface{}{
		"loaded":  report.Loaded,
		"skipped": report.Skipped,
	})
	logger.Debug().
		Int("loaded", report.Loaded).
		Int("skipped", report.Skipped).
		Dur("duration", time.Since(start)).
		Msg("Index rebuilt")

	return report, nil
}

// Close stops the watcher, if any, and closes the backend.
func (e *Engine) Close() error {
	e.watchMu.Lock()
	w := e.watcher
	e.watcher = nil
	e.watchMu.Unlock()

	if w != nil {
		w.Stop()
	}
	return e.backend.Close()
}

func (e *Engine) skip(logger zerolog.Logger, report *ReloadReport, id string, err error) {
	report.Skipped++
	report.SkippedIDs = append(report.SkippedIDs, id)
	observability.RecordCorruptRecord()
	logger.Warn().Err(err).Str("record", id).Msg("Skipping unreadable session record")
}

// load reads and decodes the record for id from the backend.
func (e *Engine) load(ctx context.Context, id string) (model.PersistedSession, bool, error) {
	data, found, err := e.backend.Get(ctx, id)
	if err != nil {
		observability.RecordStorageError("read")
		return model.PersistedSession{}, false, model.StorageError("read", err)
	}
	if !found {
		return model.PersistedSession{}, false, nil
	}
	p, err := DecodeRecord(id, data)
	if err != nil {
		return model.PersistedSession{}, true, err
	}
	return p, true, nil
}

// write stores p durably and then publishes its summary. The index is untouched if the
// write fails.
func (e *Engine) write(ctx context.Context, op string, p model.PersistedSession) error {
	data, err := EncodeRecord(p)
	if err != nil {
		return e.fail(ctx, op, p.ID, model.StorageError("encode", err))
	}
	if err := e.backend.Put(ctx, p.ID, data); err != nil {
		observability.RecordStorageError("write")
		return e.fail(ctx, op, p.ID, model.StorageError("write", err))
	}
	p.Normalize()
	e.publish(e.snapshot().with(p.Summary()))
	return nil
}

// mutate applies fn to the stored record for id. fn reports whether it changed anything;
// unchanged records are not rewritten. It returns nil if the session does not exist.
func (e *Engine) mutate(ctx context.Context, op, id string, fn func(*model.PersistedSession) (bool, error)) (*model.PersistedSession, error) {
	ctx, end, logger := e.startOp(ctx, op, id)
	defer end()

	if err := model.ValidateID(id); err != nil {
		return nil, e.fail(ctx, op, id, err)
	}

	e.writeMu.Lock()
	defer e.writeMu.Unlock()

	p, found, err := e.load(ctx, id)
	if err != nil {
		return nil, e.fail(ctx, op, id, err)
	}
	if !found {
		logger.Debug().Str("op", op).Msg("Session not found")
		return nil, nil
	}

	changed, err := fn(&p)
	if err != nil {
		return nil, e.fail(ctx, op, id, err)
	}
	if !changed {
		observability.RecordSessionAudit(ctx, op, id, "noop", nil)
		return &p, nil
	}

	p.UpdatedAt = e.now()
	if err := e.write(ctx, op, p); err != nil {
		return nil, err
	}

	observability.RecordMutation(op, true)
	observability.RecordSessionAudit(ctx, op, id, "success", nil)
	logger.Debug().Str("op", op).Msg("Session updated")

	return &p, nil
}

// fail records err on the current span and in metrics and logs, then returns it.
func (e *Engine) fail(ctx context.Context, op, id string, err error) error {
	tracing.Fail(trace.SpanFromContext(ctx), err)
	if errors.Is(err, model.ErrValidation) {
		return err
	}
	if op != "get" && op != "reload" {
		observability.RecordMutation(op, false)
		observability.RecordSessionAudit(ctx, op, id, "failure", map[string]interface{}{
			"error": err.Error(),
		})
	}
	logger := tracing.LoggerFromContext(ctx, e.logger)
	logger.Error().Err(err).Str("op", op).Msg("Storage operation failed")
	return err
}
