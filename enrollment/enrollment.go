package enrollment

import (
	"fmt"
	"time"

	"github.com/xraph/dropout"
)

// Status represents the lifecycle state of an enrollment.
type Status string

const (
	// StatusActive means the student is following the course.
	StatusActive Status = "ACTIVE"
	// StatusDropout means the deadline passed without completion. Terminal.
	StatusDropout Status = "DROPOUT"
	// StatusCompleted means the student finished the course.
	StatusCompleted Status = "COMPLETED"
	// StatusCancelled means the enrollment was withdrawn.
	StatusCancelled Status = "CANCELLED"
)

// IsValid reports whether s is a known status.
func (s Status) IsValid() bool {
	switch s {
	case StatusActive, StatusDropout, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// ParseStatus converts a stored value into a Status.
func ParseStatus(s string) (Status, error) {
	st := Status(s)
	if !st.IsValid() {
		return "", fmt.Errorf("enrollment: unknown status %q", s)
	}
	return st, nil
}

// Enrollment is a student's registration in a course.
type Enrollment struct {
	dropout.Entity

	ID         int64     `json:"id"`
	StudentID  int64     `json:"student_id"`
	CourseID   int64     `json:"course_id"`
	Status     Status    `json:"status"`
	DeadlineAt time.Time `json:"deadline_at"`
}

// EligibleAt reports whether e is a dropout candidate for cutoff.
func (e *Enrollment) EligibleAt(cutoff time.Time) bool {
	return e.Status != StatusDropout && !e.DeadlineAt.After(cutoff)
}

// Ref is the projection read per page: just enough to decide and audit a
// transition.
type Ref struct {
	ID        int64 `json:"id"`
	StudentID int64 `json:"student_id"`
	CourseID  int64 `json:"course_id"`
}
