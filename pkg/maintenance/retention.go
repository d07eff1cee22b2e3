package maintenance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/harun/chronicle/internal/observability"
	"github.com/harun/chronicle/pkg/model"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Store is the part of the session store the retention policy needs.
type Store interface {
	GetAllSummaries(ctx context.Context, opts model.SearchOptions) []model.SessionSummary
	// DeleteIdleSession deletes id only if it is still unpinned and older than cutoff.
	DeleteIdleSession(ctx context.Context, id string, cutoff time.Time) (bool, error)
}

// PruneReport describes the outcome of a retention pass.
type PruneReport struct {
	Deleted    int      `json:"deleted"`
	DeletedIDs []string `json:"deleted_ids,omitempty"`
	Failed     int      `json:"failed"`
}

// Retention deletes unpinned sessions that have not been updated within maxAge.
// Pinned sessions are never pruned.
type Retention struct {
	store  Store
	maxAge time.Duration
	clock  model.Clock
	logger zerolog.Logger
}

// NewRetention creates a retention policy. maxAge must be positive.
func NewRetention(store Store, maxAge time.Duration) (*Retention, error) {
	if maxAge <= 0 {
		return nil, fmt.Errorf("retention age must be positive, got %s", maxAge)
	}

	return &Retention{
		store:  store,
		maxAge: maxAge,
		clock:  model.SystemClock{},
		logger: log.Logger.With().Str("component", "retention").Logger(),
	}, nil
}

// RetentionDays converts a day count into a retention age.
func RetentionDays(days int) time.Duration {
	return time.Duration(days) * 24 * time.Hour
}

// SetLogger replaces the retention logger.
func (r *Retention) SetLogger(logger zerolog.Logger) {
	r.logger = logger
}

// SetClock replaces the clock used to compute the cutoff.
func (r *Retention) SetClock(clock model.Clock) {
	r.clock = clock
}

// MaxAge returns the retention age
func (r *Retention) MaxAge() time.Duration {
	return r.maxAge
}

// Candidates returns the sessions the next prune would delete.
func (r *Retention) Candidates(ctx context.Context) []model.SessionSummary {
	return r.candidates(ctx, r.cutoff())
}

func (r *Retention) cutoff() time.Time {
	return r.clock.Now().Add(-r.maxAge)
}

func (r *Retention) candidates(ctx context.Context, cutoff time.Time) []model.SessionSummary {
	var expired []model.SessionSummary
	for _, s := range r.store.GetAllSummaries(ctx, model.SearchOptions{}) {
		if s.Pinned || !s.UpdatedAt.Before(cutoff) {
			continue
		}
		expired = append(expired, s)
	}
	return expired
}

// Prune deletes every candidate. A candidate pinned or updated after it was listed is kept.
// A failed delete is logged and counted, and the pass continues with the remaining sessions.
func (r *Retention) Prune(ctx context.Context) (PruneReport, error) {
	var (
		report PruneReport
		errs   []error
	)

	cutoff := r.cutoff()
	for _, s := range r.candidates(ctx, cutoff) {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}

		deleted, err := r.store.DeleteIdleSession(ctx, s.ID, cutoff)
		if err != nil {
			r.logger.Error().
				Err(err).
				Str("session_id", s.ID).
				Msg("Failed to prune session")
			report.Failed++
			errs = append(errs, err)
			continue
		}
		if !deleted {
			continue
		}

		report.Deleted++
		report.DeletedIDs = append(report.DeletedIDs, s.ID)

		r.logger.Debug().
			Str("session_id", s.ID).
			Time("updated_at", s.UpdatedAt).
			Msg("Session pruned")
	}

	if report.Deleted > 0 {
		observability.RecordPrune(report.Deleted)
		r.logger.Info().
			Int("deleted", report.Deleted).
			Dur("max_age", r.maxAge).
			Msg("Pruned idle sessions")
	}

	return report, errors.Join(errs...)
}
