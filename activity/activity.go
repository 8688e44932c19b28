// Package activity records the audit trail of the dropout run: one
// Activity per enrollment moved to DROPOUT, written in the same unit of
// work as the status change.
package activity

import (
	"context"
	"time"

	"github.com/xraph/dropout"
	"github.com/xraph/dropout/id"
)

// DescriptionCourseDropout tags activities created by the dropout run.
const DescriptionCourseDropout = "COURSE_DROPOUT"

// Activity is an immutable audit record.
type Activity struct {
	dropout.Entity

	ID          id.ActivityID `json:"id"`
	ResourceID  int64         `json:"resource_id"`
	UserID      int64         `json:"user_id"`
	Description string        `json:"description"`
}

// Store defines the persistence contract for activities. There is no
// update or delete: activities are append-only.
type Store interface {
	// InsertActivities persists all activities in one bulk write.
	InsertActivities(ctx context.Context, activities []*Activity) error
}

// Entry is the input of RecordBatch.
type Entry struct {
	// ResourceID is the enrollment id.
	ResourceID int64
	// UserID is the student id.
	UserID int64
	// Description defaults to DescriptionCourseDropout when empty.
	Description string
	// At stamps both CreatedAt and UpdatedAt.
	At time.Time
}
