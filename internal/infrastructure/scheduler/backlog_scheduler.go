package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/afrinict/nbcportal-sub001/internal/infrastructure/telemetry"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// BacklogSnapshotter writes the backlog metric of every active department and
// returns how many departments it covered
type BacklogSnapshotter interface {
	SnapshotBacklog(ctx context.Context) (int, error)
}

// BacklogSchedulerConfig configures the backlog snapshot job
type BacklogSchedulerConfig struct {
	// Schedule is a standard five-field cron expression evaluated in UTC
	Schedule       string
	JobTimeout     time.Duration
	RetryAttempts  int
	RetryDelay     time.Duration
	RunImmediately bool
}

// DefaultBacklogSchedulerConfig runs daily at 01:00 UTC
func DefaultBacklogSchedulerConfig() BacklogSchedulerConfig {
	return BacklogSchedulerConfig{
		Schedule:      "0 1 * * *",
		JobTimeout:    5 * time.Minute,
		RetryAttempts: 3,
		RetryDelay:    time.Minute,
	}
}

// BacklogScheduler triggers backlog snapshots on a cron schedule. Runs never
// overlap; a tick that fires during a run is skipped.
type BacklogScheduler struct {
	cron        *cron.Cron
	schedule    cron.Schedule
	snapshotter BacklogSnapshotter
	config      BacklogSchedulerConfig
	logger      *zap.Logger

	runMu   sync.Mutex // held for the duration of a run
	mu      sync.Mutex
	last    Run
	started bool
	entry   cron.EntryID
}

// NewBacklogScheduler validates the schedule and creates a stopped scheduler
func NewBacklogScheduler(cfg BacklogSchedulerConfig, snapshotter BacklogSnapshotter, logger *zap.Logger) (*BacklogScheduler, error) {
	defaults := DefaultBacklogSchedulerConfig()
	if cfg.Schedule == "" {
		cfg.Schedule = defaults.Schedule
	}
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = defaults.JobTimeout
	}
	if cfg.RetryAttempts < 0 {
		cfg.RetryAttempts = 0
	}

	schedule, err := cron.ParseStandard(cfg.Schedule)
	if err != nil {
		return nil, fmt.Errorf("%w %q: %v", ErrInvalidSchedule, cfg.Schedule, err)
	}

	c := cron.New(
		cron.WithLocation(time.UTC),
		cron.WithLogger(cronLogger{logger: logger.Sugar()}),
		cron.WithChain(cron.Recover(cronLogger{logger: logger.Sugar()})),
	)
	return &BacklogScheduler{
		cron:        c,
		schedule:    schedule,
		snapshotter: snapshotter,
		config:      cfg,
		logger:      logger,
		last:        Run{Status: JobStatusPending},
	}, nil
}

// Start registers the job and starts the cron loop
func (s *BacklogScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return nil
	}

	// Ticks run detached from the caller's context, which is usually the startup context
	runCtx := context.WithoutCancel(ctx)
	s.entry = s.cron.Schedule(s.schedule, cron.FuncJob(func() {
		if _, err := s.RunNow(runCtx); err != nil && !errors.Is(err, ErrRunInProgress) {
			s.logger.Error("Backlog snapshot failed", zap.Error(err))
		}
	}))
	s.cron.Start()
	s.started = true

	s.logger.Info("Backlog scheduler started",
		zap.String("schedule", s.config.Schedule),
		zap.Time("next_run", s.NextRun(time.Now())),
	)

	if s.config.RunImmediately {
		go func() {
			if _, err := s.RunNow(runCtx); err != nil && !errors.Is(err, ErrRunInProgress) {
				s.logger.Error("Initial backlog snapshot failed", zap.Error(err))
			}
		}()
	}
	return nil
}

// Stop stops scheduling and waits for a running snapshot to finish or ctx to expire
func (s *BacklogScheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return ErrSchedulerNotRunning
	}
	s.started = false
	s.cron.Remove(s.entry)
	s.mu.Unlock()

	select {
	case <-s.cron.Stop().Done():
		s.logger.Info("Backlog scheduler stopped")
		return nil
	case <-ctx.Done():
		s.logger.Warn("Backlog scheduler stop timed out")
		return ctx.Err()
	}
}

// RunNow takes a snapshot immediately, retrying failed attempts after
// RetryDelay. It returns ErrRunInProgress when a run is already executing.
func (s *BacklogScheduler) RunNow(ctx context.Context) (Run, error) {
	if !s.runMu.TryLock() {
		return s.LastRun(), ErrRunInProgress
	}
	defer s.runMu.Unlock()

	ctx, span := telemetry.StartSpan(ctx, "backlog.snapshot",
		telemetry.WithAttribute("schedule", s.config.Schedule))
	defer span.End()

	s.mu.Lock()
	s.last.start(time.Now().UTC())
	s.mu.Unlock()

	var (
		processed int
		err       error
	)
	for attempt := 0; attempt <= s.config.RetryAttempts; attempt++ {
		if attempt > 0 {
			if waitErr := sleep(ctx, s.config.RetryDelay); waitErr != nil {
				err = waitErr
				break
			}
		}
		s.mu.Lock()
		s.last.Attempts = attempt + 1
		s.mu.Unlock()

		processed, err = s.attempt(ctx)
		if err == nil || ctx.Err() != nil {
			break
		}
		s.logger.Warn("Backlog snapshot attempt failed",
			zap.Int("attempt", attempt+1),
			zap.Int("max_attempts", s.config.RetryAttempts+1),
			zap.Error(err),
		)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		telemetry.RecordError(span, err)
		s.last.fail(time.Now().UTC(), err)
		return s.last, err
	}
	telemetry.SetAttributes(span, telemetry.SpanAttrDepartments, processed)
	s.last.complete(time.Now().UTC(), processed)
	s.logger.Info("Backlog snapshot completed",
		zap.Int("departments", processed),
		zap.Int("attempts", s.last.Attempts),
	)
	return s.last, nil
}

func (s *BacklogScheduler) attempt(ctx context.Context) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, s.config.JobTimeout)
	defer cancel()
	return s.snapshotter.SnapshotBacklog(ctx)
}

// LastRun returns the state of the most recent run
func (s *BacklogScheduler) LastRun() Run {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

// NextRun returns when the job fires next after from
func (s *BacklogScheduler) NextRun(from time.Time) time.Time {
	return s.schedule.Next(from.UTC())
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
