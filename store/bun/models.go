package bunstore

import (
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"github.com/xraph/dropout"
	"github.com/xraph/dropout/activity"
	"github.com/xraph/dropout/enrollment"
	"github.com/xraph/dropout/exclusion"
	"github.com/xraph/dropout/id"
)

// ── Enrollment model ──────────────────────────────────────────────

type enrollmentModel struct {
	bun.BaseModel `bun:"table:enrollments"`

	ID         int64     `bun:"id,pk"`
	StudentID  int64     `bun:"student_id,notnull"`
	CourseID   int64     `bun:"course_id,notnull"`
	Status     string    `bun:"status,notnull"`
	DeadlineAt time.Time `bun:"deadline_at,notnull"`
	CreatedAt  time.Time `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt  time.Time `bun:"updated_at,notnull,default:current_timestamp"`
}

func (m *enrollmentModel) ref() enrollment.Ref {
	return enrollment.Ref{ID: m.ID, StudentID: m.StudentID, CourseID: m.CourseID}
}

// ── Pair row ──────────────────────────────────────────────────────

type pairRow struct {
	StudentID int64 `bun:"student_id"`
	CourseID  int64 `bun:"course_id"`
}

func fromPairRows(rows []pairRow) []exclusion.Pair {
	out := make([]exclusion.Pair, len(rows))
	for i, r := range rows {
		out[i] = exclusion.Pair{StudentID: r.StudentID, CourseID: r.CourseID}
	}
	return out
}

// ── Activity model ────────────────────────────────────────────────

type activityModel struct {
	bun.BaseModel `bun:"table:activities"`

	ID          string    `bun:"id,pk"`
	ResourceID  int64     `bun:"resource_id,notnull"`
	UserID      int64     `bun:"user_id,notnull"`
	Description string    `bun:"description,notnull"`
	CreatedAt   time.Time `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt   time.Time `bun:"updated_at,notnull,default:current_timestamp"`
}

func toActivityModel(a *activity.Activity) activityModel {
	return activityModel{
		ID:          a.ID.String(),
		ResourceID:  a.ResourceID,
		UserID:      a.UserID,
		Description: a.Description,
		CreatedAt:   a.CreatedAt.UTC(),
		UpdatedAt:   a.UpdatedAt.UTC(),
	}
}

func fromActivityModel(m *activityModel) (*activity.Activity, error) {
	actID, err := id.ParseActivityID(m.ID)
	if err != nil {
		return nil, fmt.Errorf("parse activity id: %w", err)
	}
	return &activity.Activity{
		Entity: dropout.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ID:          actID,
		ResourceID:  m.ResourceID,
		UserID:      m.UserID,
		Description: m.Description,
	}, nil
}
