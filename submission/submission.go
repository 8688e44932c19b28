// Package submission defines a student's submitted work within a course.
// A submission WAITING_REVIEW protects the student's enrollment in that
// course from being dropped out.
package submission

import (
	"fmt"

	"github.com/xraph/dropout"
)

// Status represents the review state of a submission.
type Status string

const (
	// StatusDraft means the work has not been handed in.
	StatusDraft Status = "DRAFT"
	// StatusWaitingReview means the work awaits a reviewer.
	StatusWaitingReview Status = "WAITING_REVIEW"
	// StatusReviewed means a reviewer has graded the work.
	StatusReviewed Status = "REVIEWED"
)

// IsValid reports whether s is a known status.
func (s Status) IsValid() bool {
	switch s {
	case StatusDraft, StatusWaitingReview, StatusReviewed:
		return true
	}
	return false
}

// ParseStatus converts a stored value into a Status.
func ParseStatus(s string) (Status, error) {
	st := Status(s)
	if !st.IsValid() {
		return "", fmt.Errorf("submission: unknown status %q", s)
	}
	return st, nil
}

// Submission is a student's submitted work within a course.
type Submission struct {
	dropout.Entity

	ID        int64  `json:"id"`
	StudentID int64  `json:"student_id"`
	CourseID  int64  `json:"course_id"`
	Status    Status `json:"status"`
}
