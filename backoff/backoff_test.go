package backoff

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestConstant_ReturnsFixedDelay(t *testing.T) {
	c := Constant{Interval: 5 * time.Second}
	for attempt := 1; attempt <= 5; attempt++ {
		if d := c.Delay(attempt); d != 5*time.Second {
			t.Errorf("attempt %d: got %v, want 5s", attempt, d)
		}
	}
}

func TestExponential_DoublesAndCaps(t *testing.T) {
	e := Exponential{Initial: time.Second, Max: 10 * time.Second}
	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{0, 1 * time.Second},
		{1, 1 * time.Second},
		{2, 2 * time.Second},
		{3, 4 * time.Second},
		{4, 8 * time.Second},
		{5, 10 * time.Second},
		{20, 10 * time.Second},
	}
	for _, tt := range tests {
		if d := e.Delay(tt.attempt); d != tt.want {
			t.Errorf("attempt %d: got %v, want %v", tt.attempt, d, tt.want)
		}
	}
}

func TestExponential_JitterWithinBounds(t *testing.T) {
	e := Exponential{Initial: time.Second, Max: 30 * time.Second, Jitter: true}
	for attempt := 1; attempt <= 10; attempt++ {
		upper := min(time.Second*time.Duration(1<<(attempt-1)), 30*time.Second)
		for range 50 {
			if d := e.Delay(attempt); d < 0 || d > upper {
				t.Fatalf("attempt %d: %v outside [0, %v]", attempt, d, upper)
			}
		}
	}
}

func TestRetry_SucceedsAfterTransientFailures(t *testing.T) {
	calls := 0
	var retries []int
	err := Retry(context.Background(), Constant{Interval: time.Millisecond}, 5,
		func(context.Context) error {
			calls++
			if calls < 3 {
				return errors.New("connection refused")
			}
			return nil
		},
		func(attempt int, _ time.Duration, _ error) { retries = append(retries, attempt) },
	)
	if err != nil {
		t.Fatalf("Retry: %v", err)
	}
	if calls != 3 || len(retries) != 2 {
		t.Fatalf("calls = %d, retries = %v", calls, retries)
	}
}

func TestRetry_GivesUpAfterMaxAttempts(t *testing.T) {
	boom := errors.New("boom")
	calls := 0
	err := Retry(context.Background(), Constant{}, 3, func(context.Context) error {
		calls++
		return boom
	}, nil)
	if !errors.Is(err, boom) || calls != 3 {
		t.Fatalf("err = %v, calls = %d", err, calls)
	}
}

func TestRetry_PermanentStopsImmediately(t *testing.T) {
	bad := errors.New("bad password")
	calls := 0
	err := Retry(context.Background(), Constant{}, 10, func(context.Context) error {
		calls++
		return Permanent(bad)
	}, nil)
	if err != bad || calls != 1 {
		t.Fatalf("err = %v, calls = %d", err, calls)
	}
	if Permanent(nil) != nil {
		t.Error("Permanent(nil) should be nil")
	}
}

func TestRetry_StopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	boom := errors.New("boom")
	err := Retry(ctx, Constant{Interval: time.Hour}, 10, func(context.Context) error {
		cancel()
		return boom
	}, nil)
	if !errors.Is(err, context.Canceled) || !errors.Is(err, boom) {
		t.Fatalf("err = %v, want canceled and boom", err)
	}
}
