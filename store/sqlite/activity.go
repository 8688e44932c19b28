package sqlite

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/xraph/dropout/activity"
)

// ErrDuplicateActivity is returned when an activity id already exists.
var ErrDuplicateActivity = errors.New("dropout/sqlite: duplicate activity")

// activityColumns is the column count of one inserted activity row.
const activityColumns = 6

// InsertActivities writes the activities as multi-row INSERT statements,
// each kept under maxParams bind parameters.
func (t *Tx) InsertActivities(ctx context.Context, activities []*activity.Activity) error {
	step := maxParams / activityColumns
	row := "(" + placeholders(activityColumns) + ")"

	for start := 0; start < len(activities); start += step {
		chunk := activities[start:min(start+step, len(activities))]

		rows := make([]string, len(chunk))
		args := make([]any, 0, len(chunk)*activityColumns)
		for i, a := range chunk {
			rows[i] = row
			args = append(args,
				a.ID.String(), a.ResourceID, a.UserID, a.Description,
				formatTime(a.CreatedAt), formatTime(a.UpdatedAt),
			)
		}

		_, err := t.tx.NewRaw(`
			INSERT INTO activities (id, resource_id, user_id, description, created_at, updated_at)
			VALUES `+strings.Join(rows, ", "), args...,
		).Exec(ctx)
		if err != nil {
			if isDuplicateKey(err) {
				return fmt.Errorf("%w: %w", ErrDuplicateActivity, err)
			}
			return fmt.Errorf("dropout/sqlite: insert activities: %w", txDone(err))
		}
	}
	return nil
}

// Activities returns every committed activity ordered by creation.
func (s *Store) Activities(ctx context.Context) ([]*activity.Activity, error) {
	var models []activityModel
	err := s.sdb.NewSelect(&models).
		OrderExpr("created_at ASC, id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("dropout/sqlite: list activities: %w", err)
	}

	out := make([]*activity.Activity, 0, len(models))
	for i := range models {
		a, err := fromActivityModel(&models[i])
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}
