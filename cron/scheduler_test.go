package cron

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/xraph/dropout"
	"github.com/xraph/dropout/id"
)

// manualClock is advanced by hand, including from inside a run.
type manualClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

// stubEmitter records EmitCronFired calls.
type stubEmitter struct {
	mu    sync.Mutex
	calls []id.RunID
}

func (e *stubEmitter) EmitCronFired(_ context.Context, _ string, runID id.RunID) {
	e.mu.Lock()
	e.calls = append(e.calls, runID)
	e.mu.Unlock()
}

var t0 = time.Date(2024, 2, 1, 1, 30, 0, 0, time.UTC)

func TestParseSchedule(t *testing.T) {
	for _, expr := range []string{"0 2 * * *", "@daily", "@every 30s", "*/5 * * * 1-5"} {
		if _, err := ParseSchedule(expr); err != nil {
			t.Errorf("ParseSchedule(%q): %v", expr, err)
		}
	}
	_, err := ParseSchedule("not a schedule")
	if !errors.Is(err, dropout.ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}
}

func TestNewSchedulerRejectsBadExpression(t *testing.T) {
	if _, err := NewScheduler("61 * * * *", nil); err == nil {
		t.Fatal("expected error for invalid minute")
	}
}

func TestTickFiresWhenDue(t *testing.T) {
	clock := &manualClock{now: t0}
	emitter := &stubEmitter{}
	var got []id.RunID

	s, err := NewScheduler("0 2 * * *", func(_ context.Context, runID id.RunID) error {
		got = append(got, runID)
		return nil
	}, WithClock(clock), WithEmitter(emitter))
	if err != nil {
		t.Fatalf("NewScheduler: %v", err)
	}

	wantNext := time.Date(2024, 2, 1, 2, 0, 0, 0, time.UTC)
	if next := s.Status().NextRunAt; !next.Equal(wantNext) {
		t.Fatalf("NextRunAt = %v, want %v", next, wantNext)
	}

	ctx := context.Background()
	if s.tick(ctx, t0.Add(10*time.Minute)) {
		t.Fatal("fired before the schedule was due")
	}

	clock.Set(wantNext)
	if !s.tick(ctx, wantNext) {
		t.Fatal("did not fire at the scheduled time")
	}
	if len(got) != 1 || len(emitter.calls) != 1 || emitter.calls[0] != got[0] {
		t.Fatalf("run ids: runs %v, emitted %v", got, emitter.calls)
	}

	st := s.Status()
	if st.Runs != 1 || st.LastRunID != got[0].String() || st.LastError != "" {
		t.Errorf("unexpected status %+v", st)
	}
	if !st.NextRunAt.Equal(wantNext.AddDate(0, 0, 1)) {
		t.Errorf("NextRunAt = %v, want next day", st.NextRunAt)
	}

	// Same instant again is not due.
	if s.tick(ctx, wantNext) {
		t.Error("fired twice for one schedule slot")
	}
}

func TestTickRecordsRunError(t *testing.T) {
	clock := &manualClock{now: t0}
	s, err := NewScheduler("@every 1m", func(context.Context, id.RunID) error {
		return errors.New("db down")
	}, WithClock(clock))
	if err != nil {
		t.Fatalf("NewScheduler: %v", err)
	}

	due := t0.Add(time.Minute)
	clock.Set(due)
	s.tick(context.Background(), due)

	if st := s.Status(); st.LastError != "db down" || st.Runs != 1 {
		t.Fatalf("unexpected status %+v", st)
	}
}

func TestTickSkipsFiresMissedDuringLongRun(t *testing.T) {
	clock := &manualClock{now: t0}
	s, err := NewScheduler("@every 1m", func(context.Context, id.RunID) error {
		// The run takes five minutes.
		clock.Set(t0.Add(6 * time.Minute))
		return nil
	}, WithClock(clock))
	if err != nil {
		t.Fatalf("NewScheduler: %v", err)
	}

	s.tick(context.Background(), t0.Add(time.Minute))

	st := s.Status()
	if st.Skipped != 1 {
		t.Errorf("Skipped = %d, want 1", st.Skipped)
	}
	if want := t0.Add(7 * time.Minute); !st.NextRunAt.Equal(want) {
		t.Errorf("NextRunAt = %v, want %v", st.NextRunAt, want)
	}
}

func TestStartStopNeverOverlaps(t *testing.T) {
	var running, maxRunning, runs atomic.Int32
	var calls atomic.Int64
	s, err := NewScheduler("@every 1s", func(ctx context.Context, _ id.RunID) error {
		n := running.Add(1)
		defer running.Add(-1)
		if n > maxRunning.Load() {
			maxRunning.Store(n)
		}
		runs.Add(1)
		select {
		case <-time.After(30 * time.Millisecond):
		case <-ctx.Done():
		}
		return nil
	}, WithTickInterval(5*time.Millisecond), WithClock(dropout.ClockFunc(func() time.Time {
		// Each reading is a minute later, so every tick is due.
		return t0.Add(time.Duration(calls.Add(1)) * time.Minute)
	})))
	if err != nil {
		t.Fatalf("NewScheduler: %v", err)
	}

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	time.Sleep(150 * time.Millisecond)
	if err := s.Stop(context.Background()); err != nil {
		t.Fatalf("Stop: %v", err)
	}

	if runs.Load() == 0 {
		t.Fatal("scheduler never ran")
	}
	if maxRunning.Load() != 1 {
		t.Fatalf("max concurrent runs = %d, want 1", maxRunning.Load())
	}
}

func TestStopIsIdempotent(t *testing.T) {
	var runs atomic.Int32
	s, err := NewScheduler("@every 1s", func(context.Context, id.RunID) error {
		runs.Add(1)
		return nil
	}, WithTickInterval(time.Hour))
	if err != nil {
		t.Fatalf("NewScheduler: %v", err)
	}
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	// Concurrent and repeated Stop calls must not panic.
	var wg sync.WaitGroup
	for range 3 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.Stop(context.Background()); err != nil {
				t.Errorf("Stop: %v", err)
			}
		}()
	}
	wg.Wait()

	if err := s.Stop(context.Background()); err != nil {
		t.Fatalf("Stop after stop: %v", err)
	}
	if runs.Load() != 0 {
		t.Fatalf("runs = %d, want 0", runs.Load())
	}
}

func TestStopWithoutStart(t *testing.T) {
	s, err := NewScheduler("@daily", func(context.Context, id.RunID) error { return nil })
	if err != nil {
		t.Fatalf("NewScheduler: %v", err)
	}
	for range 2 {
		if err := s.Stop(context.Background()); err != nil {
			t.Fatalf("Stop: %v", err)
		}
	}
}
