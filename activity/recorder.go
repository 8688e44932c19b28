package activity

import (
	"context"
	"log/slog"

	"github.com/xraph/dropout/id"
)

// Recorder turns entries into activities and bulk-inserts them.
type Recorder struct {
	store  Store
	logger *slog.Logger
}

// RecorderOption configures a Recorder.
type RecorderOption func(*Recorder)

// WithLogger sets the logger for the recorder.
func WithLogger(l *slog.Logger) RecorderOption {
	return func(r *Recorder) { r.logger = l }
}

// NewRecorder returns a Recorder writing through store. The store must be
// bound to the same transaction as the enrollment update it audits.
func NewRecorder(store Store, opts ...RecorderOption) *Recorder {
	r := &Recorder{
		store:  store,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RecordBatch persists one activity per entry and returns how many were
// written. An empty batch does not touch the store.
func (r *Recorder) RecordBatch(ctx context.Context, entries []Entry) (int, error) {
	if len(entries) == 0 {
		return 0, nil
	}

	activities := make([]*Activity, len(entries))
	for i, e := range entries {
		desc := e.Description
		if desc == "" {
			desc = DescriptionCourseDropout
		}
		a := &Activity{
			ID:          id.NewActivityID(),
			ResourceID:  e.ResourceID,
			UserID:      e.UserID,
			Description: desc,
		}
		a.CreatedAt = e.At
		a.UpdatedAt = e.At
		activities[i] = a
	}

	if err := r.store.InsertActivities(ctx, activities); err != nil {
		return 0, err
	}
	r.logger.Debug("activities recorded", slog.Int("count", len(activities)))
	return len(activities), nil
}
