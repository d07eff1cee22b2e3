package history

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/harun/chronicle/internal/config"
	"github.com/harun/chronicle/pkg/model"
	"github.com/harun/chronicle/pkg/storage"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Manager is the session history façade. Apart from exports and aggregates every method
// delegates to the storage engine unchanged.
type Manager struct {
	engine *storage.Engine
	logger zerolog.Logger
	clock  model.Clock
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the manager logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithClock sets the clock used to date multi-session export filenames.
func WithClock(clock model.Clock) Option {
	return func(m *Manager) {
		m.clock = clock
	}
}

// New builds a Manager over an already opened engine.
func New(engine *storage.Engine, opts ...Option) *Manager {
	m := &Manager{
		engine: engine,
		logger: log.Logger,
		clock:  model.SystemClock{},
	}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = m.logger.With().Str("component", "history").Logger()
	return m
}

// Open opens the store described by cfg and returns a Manager over it.
func Open(ctx context.Context, cfg *config.Config, opts ...Option) (*Manager, error) {
	backend, err := storage.OpenBackend(cfg.Storage.Backend, cfg.Storage.Dir, cfg.Storage.DBPath)
	if err != nil {
		return nil, err
	}

	engine, err := storage.New(ctx, storage.Config{Backend: backend})
	if err != nil {
		backend.Close()
		return nil, fmt.Errorf("failed to open session store: %w", err)
	}

	if cfg.Storage.Watch {
		if err := engine.Watch(0); err != nil {
			engine.Close()
			return nil, fmt.Errorf("failed to watch session store: %w", err)
		}
	}

	return New(engine, opts...), nil
}

var (
	sharedOnce sync.Once
	shared     *Manager
	sharedErr  error
)

// Shared returns the process-wide Manager, opening it from cfg on first use. Later calls
// return the same instance and ignore cfg.
func Shared(ctx context.Context, cfg *config.Config) (*Manager, error) {
	sharedOnce.Do(func() {
		if cfg == nil {
			sharedErr = errors.New("config is required to open the session history")
			return
		}
		shared, sharedErr = Open(ctx, cfg)
	})
	return shared, sharedErr
}

// Engine returns the underlying storage engine.
func (m *Manager) Engine() *storage.Engine {
	return m.engine
}

// Close closes the underlying store.
func (m *Manager) Close() error {
	return m.engine.Close()
}

// SaveSession stores s, keeping the createdAt, pin and tags of an existing record.
func (m *Manager) SaveSession(ctx context.Context, s model.Session) (model.PersistedSession, error) {
	return m.engine.SaveSession(ctx, s)
}

// GetSession returns the full record for id, or nil if it does not exist.
func (m *Manager) GetSession(ctx context.Context, id string) (*model.PersistedSession, error) {
	return m.engine.GetSession(ctx, id)
}

// GetAllSummaries returns the summaries matching opts, most recently updated first.
func (m *Manager) GetAllSummaries(ctx context.Context, opts model.SearchOptions) []model.SessionSummary {
	return m.engine.GetAllSummaries(ctx, opts)
}

// GetSessionsByProject groups every summary by project path.
func (m *Manager) GetSessionsByProject(ctx context.Context) map[string][]model.SessionSummary {
	return m.engine.GetSessionsByProject(ctx)
}

// UpdateTitle renames id. It reports false if the session does not exist.
func (m *Manager) UpdateTitle(ctx context.Context, id, title string) (bool, error) {
	return m.engine.UpdateTitle(ctx, id, title)
}

// TogglePin flips the pin of id and returns the new state.
func (m *Manager) TogglePin(ctx context.Context, id string) (pinned bool, found bool, err error) {
	return m.engine.TogglePin(ctx, id)
}

// AddTag adds tag to id. It reports false if the session does not exist.
func (m *Manager) AddTag(ctx context.Context, id, tag string) (bool, error) {
	return m.engine.AddTag(ctx, id, tag)
}

// RemoveTag removes tag from id, ignoring letter case.
func (m *Manager) RemoveTag(ctx context.Context, id, tag string) (bool, error) {
	return m.engine.RemoveTag(ctx, id, tag)
}

// DeleteSession removes id. It reports whether the session existed.
func (m *Manager) DeleteSession(ctx context.Context, id string) (bool, error) {
	return m.engine.DeleteSession(ctx, id)
}

// GetAllTags returns every distinct tag in use, sorted.
func (m *Manager) GetAllTags(ctx context.Context) []string {
	return m.engine.GetAllTags(ctx)
}

// Count returns the number of stored sessions.
func (m *Manager) Count(ctx context.Context) int {
	return m.engine.Count(ctx)
}

// Reload rebuilds the index from the durable store.
func (m *Manager) Reload(ctx context.Context) (storage.ReloadReport, error) {
	return m.engine.Reload(ctx)
}

// GetTotalCost sums the cost of every stored session.
func (m *Manager) GetTotalCost(ctx context.Context) float64 {
	return sumCost(m.engine.GetAllSummaries(ctx, model.SearchOptions{}))
}

// GetCostForPeriod sums the cost of sessions created within [start, end].
func (m *Manager) GetCostForPeriod(ctx context.Context, start, end time.Time) float64 {
	return sumCost(m.engine.GetAllSummaries(ctx, model.SearchOptions{
		StartDate: &start,
		EndDate:   &end,
	}))
}

func sumCost(summaries []model.SessionSummary) float64 {
	var total float64
	for _, s := range summaries {
		total += s.TotalCostUSD
	}
	return total
}
