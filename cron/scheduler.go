package cron

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	cronlib "github.com/robfig/cron/v3"

	"github.com/xraph/dropout"
	"github.com/xraph/dropout/id"
)

// RunFunc executes one run. The engine provides the implementation.
type RunFunc func(ctx context.Context, runID id.RunID) error

// Emitter emits cron lifecycle events.
// ext.Registry satisfies this interface via EmitCronFired.
type Emitter interface {
	EmitCronFired(ctx context.Context, schedule string, runID id.RunID)
}

// SchedulerOption configures a Scheduler.
type SchedulerOption func(*Scheduler)

// WithTickInterval sets how often the scheduler checks whether a run is due.
func WithTickInterval(d time.Duration) SchedulerOption {
	return func(s *Scheduler) { s.tickInterval = d }
}

// WithEmitter sets the receiver of CronFired events.
func WithEmitter(e Emitter) SchedulerOption {
	return func(s *Scheduler) { s.emitter = e }
}

// WithClock sets the time source used to evaluate the schedule.
func WithClock(c dropout.Clock) SchedulerOption {
	return func(s *Scheduler) { s.clock = c }
}

// WithLogger sets the logger for the scheduler.
func WithLogger(l *slog.Logger) SchedulerOption {
	return func(s *Scheduler) { s.logger = l }
}

// cronParser supports standard 5-field cron and descriptors like "@every 30s".
var cronParser = cronlib.NewParser(
	cronlib.Minute | cronlib.Hour | cronlib.Dom | cronlib.Month | cronlib.Dow | cronlib.Descriptor,
)

// ParseSchedule parses a cron expression and returns the schedule.
func ParseSchedule(expr string) (cronlib.Schedule, error) {
	sched, err := cronParser.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("%w: schedule %q: %v", dropout.ErrConfiguration, expr, err)
	}
	return sched, nil
}

// Status is a snapshot of the scheduler.
type Status struct {
	Schedule  string     `json:"schedule"`
	NextRunAt time.Time  `json:"next_run_at"`
	LastRunAt *time.Time `json:"last_run_at,omitempty"`
	LastRunID string     `json:"last_run_id,omitempty"`
	LastError string     `json:"last_error,omitempty"`
	Runs      int        `json:"runs"`
	Skipped   int        `json:"skipped"`
}

// Scheduler fires a RunFunc on a cron schedule.
type Scheduler struct {
	expr    string
	sched   cronlib.Schedule
	run     RunFunc
	emitter Emitter
	clock   dropout.Clock
	logger  *slog.Logger

	tickInterval time.Duration

	mu     sync.Mutex
	status Status

	cancel   context.CancelFunc
	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewScheduler creates a Scheduler. It returns an error wrapping
// dropout.ErrConfiguration when expr cannot be parsed.
func NewScheduler(expr string, run RunFunc, opts ...SchedulerOption) (*Scheduler, error) {
	sched, err := ParseSchedule(expr)
	if err != nil {
		return nil, err
	}
	s := &Scheduler{
		expr:         expr,
		sched:        sched,
		run:          run,
		clock:        dropout.SystemClock,
		logger:       slog.Default(),
		tickInterval: time.Second,
		stopCh:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.status = Status{Schedule: expr, NextRunAt: sched.Next(s.clock.Now())}
	return s, nil
}

// Start launches the tick goroutine. Runs receive a context derived from
// ctx that is cancelled by Stop.
func (s *Scheduler) Start(ctx context.Context) error {
	ctx, s.cancel = context.WithCancel(ctx)
	s.wg.Add(1)
	go s.tickLoop(ctx)
	s.logger.Info("cron scheduler started",
		slog.String("schedule", s.expr),
		slog.Time("next_run_at", s.Status().NextRunAt),
		slog.Duration("tick_interval", s.tickInterval),
	)
	return nil
}

// Stop cancels an in-flight run and waits for the tick goroutine to exit.
// Calls after the first are no-ops.
func (s *Scheduler) Stop(_ context.Context) error {
	s.stopOnce.Do(func() {
		close(s.stopCh)
		if s.cancel != nil {
			s.cancel()
		}
		s.wg.Wait()
		s.logger.Info("cron scheduler stopped")
	})
	return nil
}

// Status returns a snapshot of the schedule and the last run.
func (s *Scheduler) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.status
	if st.LastRunAt != nil {
		t := *st.LastRunAt
		st.LastRunAt = &t
	}
	return st
}

// tickLoop fires on each tick interval and runs the job when due.
func (s *Scheduler) tickLoop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(ctx, s.clock.Now())
		}
	}
}

// tick runs the job if now has reached the next fire time. It reports
// whether a run was started.
func (s *Scheduler) tick(ctx context.Context, now time.Time) bool {
	s.mu.Lock()
	due := !now.Before(s.status.NextRunAt)
	if due {
		s.status.NextRunAt = s.sched.Next(now)
	}
	s.mu.Unlock()
	if !due {
		return false
	}

	runID := id.NewRunID()
	if s.emitter != nil {
		s.emitter.EmitCronFired(ctx, s.expr, runID)
	}
	s.logger.Info("cron fired",
		slog.String("schedule", s.expr),
		slog.String("run_id", runID.String()),
	)

	err := s.run(ctx, runID)
	finished := s.clock.Now()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.status.Runs++
	s.status.LastRunAt = &now
	s.status.LastRunID = runID.String()
	s.status.LastError = ""
	if err != nil {
		s.status.LastError = err.Error()
		level := slog.LevelError
		if errors.Is(err, context.Canceled) {
			level = slog.LevelWarn
		}
		s.logger.Log(ctx, level, "scheduled run failed",
			slog.String("run_id", runID.String()),
			slog.String("error", err.Error()),
		)
	}

	// Fire times that passed during the run are dropped.
	if s.status.NextRunAt.Before(finished) {
		next := s.sched.Next(finished)
		s.logger.Warn("run outlasted schedule, skipping missed fires",
			slog.Time("missed", s.status.NextRunAt),
			slog.Time("next_run_at", next),
		)
		s.status.NextRunAt = next
		s.status.Skipped++
	}
	return true
}
