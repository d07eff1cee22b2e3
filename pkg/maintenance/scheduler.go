// Package maintenance runs periodic upkeep against the session store.
package maintenance

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/harun/chronicle/pkg/storage"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// DefaultTimeout bounds a single resync run.
const DefaultTimeout = 5 * time.Minute

// Reloader rebuilds an index from durable storage.
type Reloader interface {
	Reload(ctx context.Context) (storage.ReloadReport, error)
}

// Scheduler resyncs the summary index on a cron schedule, picking up records that were
// changed outside the running process.
type Scheduler struct {
	reloader Reloader
	schedule string
	timeout  time.Duration
	logger   zerolog.Logger

	mu      sync.Mutex
	cron    *cron.Cron
	entryID cron.EntryID
	running bool
	last    *storage.ReloadReport

	retention *Retention
}

// NewScheduler creates a scheduler. schedule accepts standard five-field cron expressions
// and descriptors such as "@hourly" or "@every 15m".
func NewScheduler(reloader Reloader, schedule string) (*Scheduler, error) {
	if _, err := cron.ParseStandard(schedule); err != nil {
		return nil, fmt.Errorf("invalid resync schedule %q: %w", schedule, err)
	}

	return &Scheduler{
		reloader: reloader,
		schedule: schedule,
		timeout:  DefaultTimeout,
		logger:   log.Logger.With().Str("component", "maintenance").Logger(),
	}, nil
}

// SetLogger replaces the scheduler logger.
func (s *Scheduler) SetLogger(logger zerolog.Logger) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logger = logger
}

// SetRetention makes every scheduled run prune idle sessions after the resync.
func (s *Scheduler) SetRetention(r *Retention) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.retention = r
}

// Retention returns the attached retention policy, or nil.
func (s *Scheduler) Retention() *Retention {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.retention
}

// Start starts the scheduler
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("scheduler is already running")
	}

	c := cron.New()
	id, err := c.AddFunc(s.schedule, s.resync)
	if err != nil {
		return fmt.Errorf("failed to schedule resync: %w", err)
	}
	c.Start()

	s.cron = c
	s.entryID = id
	s.running = true

	s.logger.Info().
		Str("schedule", s.schedule).
		Time("next_run", c.Entry(id).Next).
		Msg("Index resync scheduled")

	return nil
}

// Stop stops the scheduler and waits for a running resync to finish.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return fmt.Errorf("scheduler is not running")
	}
	c := s.cron
	s.cron = nil
	s.running = false
	s.mu.Unlock()

	<-c.Stop().Done()

	s.logger.Info().Msg("Index resync stopped")
	return nil
}

// IsRunning returns whether the scheduler is running
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// NextRun returns when the next resync is due. It is zero while stopped.
func (s *Scheduler) NextRun() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return time.Time{}
	}
	return s.cron.Entry(s.entryID).Next
}

// LastReport returns the report of the most recent successful resync, if any.
func (s *Scheduler) LastReport() (storage.ReloadReport, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last == nil {
		return storage.ReloadReport{}, false
	}
	return *s.last, true
}

// RunNow performs a resync immediately.
func (s *Scheduler) RunNow(ctx context.Context) (storage.ReloadReport, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	report, err := s.reloader.Reload(ctx)
	if err != nil {
		return report, err
	}

	s.mu.Lock()
	s.last = &report
	logger := s.logger
	s.mu.Unlock()

	if report.Skipped > 0 {
		logger.Warn().
			Int("loaded", report.Loaded).
			Int("skipped", report.Skipped).
			Strs("skipped_ids", report.SkippedIDs).
			Msg("Index resync skipped unreadable records")
	} else {
		logger.Debug().Int("loaded", report.Loaded).Msg("Index resynced")
	}

	return report, nil
}

func (s *Scheduler) resync() {
	s.mu.Lock()
	logger := s.logger
	retention := s.retention
	s.mu.Unlock()

	if _, err := s.RunNow(context.Background()); err != nil {
		logger.Error().Err(err).Msg("Index resync failed")
		return
	}

	if retention == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	if _, err := retention.Prune(ctx); err != nil {
		logger.Error().Err(err).Msg("Retention pass finished with errors")
	}
}
