package bunstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/xraph/dropout/activity"
)

// ErrDuplicateActivity is returned when an activity id already exists.
var ErrDuplicateActivity = errors.New("dropout/bun: duplicate activity")

// InsertActivities writes all activities with one multi-row INSERT.
func (t *Tx) InsertActivities(ctx context.Context, activities []*activity.Activity) error {
	if len(activities) == 0 {
		return nil
	}
	models := make([]activityModel, len(activities))
	for i, a := range activities {
		models[i] = toActivityModel(a)
	}

	_, err := t.tx.NewInsert().Model(&models).Exec(ctx)
	if err != nil {
		if isDuplicateKey(err) {
			return fmt.Errorf("%w: %w", ErrDuplicateActivity, err)
		}
		return fmt.Errorf("dropout/bun: insert activities: %w", txDone(err))
	}
	return nil
}
