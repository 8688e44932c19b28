package enrollment

import (
	"context"
	"errors"
	"time"
)

// ErrNoEnrollments is returned by LatestDeadline on an empty table.
var ErrNoEnrollments = errors.New("enrollment: no enrollments")

// Store defines the persistence contract for enrollments.
type Store interface {
	// LatestDeadline returns the deadline of the enrollment with the
	// highest ID, or ErrNoEnrollments.
	LatestDeadline(ctx context.Context) (time.Time, error)

	// CountEligible counts enrollments with DeadlineAt <= cutoff that are
	// not already DROPOUT.
	CountEligible(ctx context.Context, cutoff time.Time) (int64, error)

	// PageEligible returns up to limit eligible enrollments with
	// ID > afterID, ordered by ID ascending.
	PageEligible(ctx context.Context, cutoff time.Time, afterID int64, limit int) ([]Ref, error)

	// BulkSetDropout sets Status to DROPOUT and UpdatedAt to now for
	// exactly the given ids and returns the number of rows changed.
	// An empty ids slice is a no-op returning 0.
	BulkSetDropout(ctx context.Context, ids []int64, now time.Time) (int64, error)
}
