package maintenance

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/harun/chronicle/pkg/model"
	"github.com/harun/chronicle/pkg/storage"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedClock struct{ now time.Time }

func (c *fixedClock) Now() time.Time { return c.now }

// failingStore fails deletes for the listed ids and succeeds for the rest.
type failingStore struct {
	summaries []model.SessionSummary
	failIDs   map[string]bool
	deleted   []string
}

func (s *failingStore) GetAllSummaries(ctx context.Context, opts model.SearchOptions) []model.SessionSummary {
	return s.summaries
}

func (s *failingStore) DeleteIdleSession(ctx context.Context, id string, cutoff time.Time) (bool, error) {
	if s.failIDs[id] {
		return false, errors.New("disk full")
	}
	s.deleted = append(s.deleted, id)
	return true, nil
}

// pinningStore pins the named session after listing it, as a concurrent client would.
type pinningStore struct {
	*storage.Engine
	pinAfterList string
}

func (s *pinningStore) GetAllSummaries(ctx context.Context, opts model.SearchOptions) []model.SessionSummary {
	summaries := s.Engine.GetAllSummaries(ctx, opts)
	if s.pinAfterList != "" {
		_, _, _ = s.Engine.TogglePin(ctx, s.pinAfterList)
		s.pinAfterList = ""
	}
	return summaries
}

func setupRetentionEngine(t *testing.T, clock *fixedClock) *storage.Engine {
	t.Helper()
	backend, err := storage.NewFileBackend(t.TempDir())
	require.NoError(t, err)
	logger := zerolog.Nop()
	engine, err := storage.New(context.Background(), storage.Config{Backend: backend, Clock: clock, Logger: &logger})
	require.NoError(t, err)
	t.Cleanup(func() { engine.Close() })
	return engine
}

func TestNewRetention(t *testing.T) {
	_, err := NewRetention(&failingStore{}, 0)
	assert.Error(t, err)

	r, err := NewRetention(&failingStore{}, RetentionDays(30))
	require.NoError(t, err)
	assert.Equal(t, 30*24*time.Hour, r.MaxAge())
}

func TestRetentionPrune(t *testing.T) {
	ctx := context.Background()
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := &fixedClock{now: start}
	engine := setupRetentionEngine(t, clock)

	for _, id := range []string{"old", "old-pinned"} {
		_, err := engine.SaveSession(ctx, model.Session{ID: id, ProjectPath: "/p"})
		require.NoError(t, err)
	}
	_, _, err := engine.TogglePin(ctx, "old-pinned")
	require.NoError(t, err)

	clock.now = start.Add(45 * 24 * time.Hour)
	_, err = engine.SaveSession(ctx, model.Session{ID: "recent", ProjectPath: "/p"})
	require.NoError(t, err)

	r, err := NewRetention(engine, RetentionDays(30))
	require.NoError(t, err)
	r.SetLogger(zerolog.Nop())
	r.SetClock(clock)

	candidates := r.Candidates(ctx)
	require.Len(t, candidates, 1)
	assert.Equal(t, "old", candidates[0].ID)

	report, err := r.Prune(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Deleted)
	assert.Equal(t, []string{"old"}, report.DeletedIDs)
	assert.Equal(t, 2, engine.Count(ctx))

	got, err := engine.GetSession(ctx, "old-pinned")
	require.NoError(t, err)
	assert.NotNil(t, got, "pinned sessions are kept")

	report, err = r.Prune(ctx)
	require.NoError(t, err)
	assert.Zero(t, report.Deleted)
}

func TestRetentionPruneContinuesAfterFailure(t *testing.T) {
	old := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	store := &failingStore{
		summaries: []model.SessionSummary{
			{ID: "a", UpdatedAt: old},
			{ID: "b", UpdatedAt: old},
			{ID: "c", UpdatedAt: old},
		},
		failIDs: map[string]bool{"b": true},
	}

	r, err := NewRetention(store, time.Hour)
	require.NoError(t, err)
	r.SetLogger(zerolog.Nop())

	report, err := r.Prune(context.Background())
	require.Error(t, err)
	assert.Equal(t, 2, report.Deleted)
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, []string{"a", "c"}, store.deleted)
}

func TestRetentionPruneKeepsSessionsPinnedMeanwhile(t *testing.T) {
	ctx := context.Background()
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := &fixedClock{now: start}
	engine := setupRetentionEngine(t, clock)

	for _, id := range []string{"idle", "pinned-late"} {
		_, err := engine.SaveSession(ctx, model.Session{ID: id, ProjectPath: "/p"})
		require.NoError(t, err)
	}
	clock.now = start.Add(60 * 24 * time.Hour)

	store := &pinningStore{Engine: engine, pinAfterList: "pinned-late"}
	r, err := NewRetention(store, RetentionDays(30))
	require.NoError(t, err)
	r.SetLogger(zerolog.Nop())
	r.SetClock(clock)

	report, err := r.Prune(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"idle"}, report.DeletedIDs)

	got, err := engine.GetSession(ctx, "pinned-late")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.Pinned)
}

func TestSchedulerRunsRetention(t *testing.T) {
	ctx := context.Background()
	clock := &fixedClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	engine := setupRetentionEngine(t, clock)

	_, err := engine.SaveSession(ctx, model.Session{ID: "stale", ProjectPath: "/p"})
	require.NoError(t, err)
	clock.now = clock.now.Add(10 * 24 * time.Hour)

	r, err := NewRetention(engine, RetentionDays(7))
	require.NoError(t, err)
	r.SetLogger(zerolog.Nop())
	r.SetClock(clock)

	s, err := NewScheduler(engine, "@every 1s")
	require.NoError(t, err)
	s.SetLogger(zerolog.Nop())
	s.SetRetention(r)

	require.NoError(t, s.Start())
	defer s.Stop()

	assert.Eventually(t, func() bool {
		return engine.Count(ctx) == 0
	}, 5*time.Second, 50*time.Millisecond)
}
