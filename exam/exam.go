// Package exam defines a student's exam attempt within a course. The
// dropout run only reads exams: an attempt IN_PROGRESS protects the
// student's enrollment in that course.
package exam

import (
	"fmt"

	"github.com/xraph/dropout"
)

// Status represents the state of an exam attempt.
type Status string

const (
	// StatusScheduled means the attempt has not started.
	StatusScheduled Status = "SCHEDULED"
	// StatusInProgress means the student is sitting the exam.
	StatusInProgress Status = "IN_PROGRESS"
	// StatusFinished means the attempt is over.
	StatusFinished Status = "FINISHED"
)

// IsValid reports whether s is a known status.
func (s Status) IsValid() bool {
	switch s {
	case StatusScheduled, StatusInProgress, StatusFinished:
		return true
	}
	return false
}

// ParseStatus converts a stored value into a Status.
func ParseStatus(s string) (Status, error) {
	st := Status(s)
	if !st.IsValid() {
		return "", fmt.Errorf("exam: unknown status %q", s)
	}
	return st, nil
}

// Exam is a student's exam attempt within a course.
type Exam struct {
	dropout.Entity

	ID        int64  `json:"id"`
	StudentID int64  `json:"student_id"`
	CourseID  int64  `json:"course_id"`
	Status    Status `json:"status"`
}
