package cutoff_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/xraph/dropout"
	"github.com/xraph/dropout/cutoff"
	"github.com/xraph/dropout/enrollment"
	"github.com/xraph/dropout/store/memory"
)

// failingStore fails every read.
type failingStore struct{ enrollment.Store }

func (failingStore) LatestDeadline(context.Context) (time.Time, error) {
	return time.Time{}, errors.New("connection reset")
}

func TestResolve(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := memory.New()
	want := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	s.AddEnrollment(&enrollment.Enrollment{ID: 1, StudentID: 1, CourseID: 1, Status: enrollment.StatusActive, DeadlineAt: want.AddDate(0, 1, 0)})
	s.AddEnrollment(&enrollment.Enrollment{ID: 2, StudentID: 2, CourseID: 1, Status: enrollment.StatusActive, DeadlineAt: want})

	tx, err := s.Begin(ctx)
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	got, err := cutoff.NewResolver().Resolve(ctx, tx)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !got.Equal(want) {
		t.Errorf("cutoff = %v, want %v", got, want)
	}
}

func TestResolveEmptyTable(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	tx, _ := memory.New().Begin(ctx)
	defer func() { _ = tx.Rollback(ctx) }()

	_, err := cutoff.NewResolver().Resolve(ctx, tx)
	if !errors.Is(err, dropout.ErrNoCutoff) {
		t.Fatalf("expected ErrNoCutoff, got %v", err)
	}
	if !errors.Is(err, dropout.ErrConfiguration) {
		t.Fatalf("ErrNoCutoff should be a configuration error, got %v", err)
	}
}

func TestResolveRepositoryError(t *testing.T) {
	t.Parallel()
	_, err := cutoff.NewResolver().Resolve(context.Background(), failingStore{})
	if !errors.Is(err, dropout.ErrRepository) {
		t.Fatalf("expected repository error, got %v", err)
	}
	var re *dropout.RepositoryError
	if !errors.As(err, &re) || re.Op != "latest deadline" {
		t.Fatalf("unexpected error shape: %#v", err)
	}
}
