package sqlite

import (
	"fmt"

	"github.com/xraph/grove"

	"github.com/xraph/dropout"
	"github.com/xraph/dropout/activity"
	"github.com/xraph/dropout/enrollment"
	"github.com/xraph/dropout/exclusion"
	"github.com/xraph/dropout/id"
)

// Timestamps are scanned as TEXT and parsed here; the driver only yields
// time.Time for DATETIME-declared columns.

type refRow struct {
	ID        int64 `grove:"id"`
	StudentID int64 `grove:"student_id"`
	CourseID  int64 `grove:"course_id"`
}

func (r refRow) toRef() enrollment.Ref {
	return enrollment.Ref{ID: r.ID, StudentID: r.StudentID, CourseID: r.CourseID}
}

type pairRow struct {
	StudentID int64 `grove:"student_id"`
	CourseID  int64 `grove:"course_id"`
}

func (r pairRow) toPair() exclusion.Pair {
	return exclusion.Pair{StudentID: r.StudentID, CourseID: r.CourseID}
}

type activityModel struct {
	grove.BaseModel `grove:"table:activities"`

	ID          string `grove:"id,pk"`
	ResourceID  int64  `grove:"resource_id,notnull"`
	UserID      int64  `grove:"user_id,notnull"`
	Description string `grove:"description,notnull"`
	CreatedAt   string `grove:"created_at,notnull"`
	UpdatedAt   string `grove:"updated_at,notnull"`
}

func fromActivityModel(m *activityModel) (*activity.Activity, error) {
	actID, err := id.ParseActivityID(m.ID)
	if err != nil {
		return nil, fmt.Errorf("dropout/sqlite: activity id: %w", err)
	}
	created, err := parseTime(m.CreatedAt)
	if err != nil {
		return nil, err
	}
	updated, err := parseTime(m.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &activity.Activity{
		ID:          actID,
		ResourceID:  m.ResourceID,
		UserID:      m.UserID,
		Description: m.Description,
		Entity:      dropout.Entity{CreatedAt: created, UpdatedAt: updated},
	}, nil
}
