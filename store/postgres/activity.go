package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/xraph/dropout/activity"
)

// ErrDuplicateActivity is returned when an activity id already exists.
var ErrDuplicateActivity = errors.New("dropout/postgres: duplicate activity")

var activityColumns = []string{"id", "resource_id", "user_id", "description", "created_at", "updated_at"}

// InsertActivities writes all activities with a single COPY.
func (t *Tx) InsertActivities(ctx context.Context, activities []*activity.Activity) error {
	if len(activities) == 0 {
		return nil
	}

	_, err := t.tx.CopyFrom(ctx,
		pgx.Identifier{"activities"},
		activityColumns,
		pgx.CopyFromSlice(len(activities), func(i int) ([]any, error) {
			a := activities[i]
			return []any{
				a.ID.String(), a.ResourceID, a.UserID, a.Description,
				a.CreatedAt.UTC(), a.UpdatedAt.UTC(),
			}, nil
		}),
	)
	if err != nil {
		if isDuplicateKey(err) {
			return fmt.Errorf("%w: %w", ErrDuplicateActivity, err)
		}
		return fmt.Errorf("dropout/postgres: insert activities: %w", txDone(err))
	}
	return nil
}
