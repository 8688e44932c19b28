package exclusion

import (
	"context"
	"sort"
)

// Pair identifies a student within a course.
type Pair struct {
	StudentID int64 `json:"student_id"`
	CourseID  int64 `json:"course_id"`
}

// Store defines the read-only lookups behind the exclusion set.
type Store interface {
	// InProgressExams returns the pairs, among the given ones, that have at
	// least one exam IN_PROGRESS.
	InProgressExams(ctx context.Context, pairs []Pair) ([]Pair, error)

	// WaitingReviewSubmissions returns the pairs, among the given ones,
	// that have at least one submission WAITING_REVIEW.
	WaitingReviewSubmissions(ctx context.Context, pairs []Pair) ([]Pair, error)
}

// Set is the exclusion set of a page: student ids scoped to a course.
type Set map[Pair]struct{}

// Has reports whether studentID is excluded in courseID.
func (s Set) Has(studentID, courseID int64) bool {
	_, ok := s[Pair{StudentID: studentID, CourseID: courseID}]
	return ok
}

// Add inserts the given pairs.
func (s Set) Add(pairs ...Pair) {
	for _, p := range pairs {
		s[p] = struct{}{}
	}
}

// Students returns the distinct excluded student ids in ascending order.
func (s Set) Students() []int64 {
	seen := make(map[int64]struct{}, len(s))
	out := make([]int64, 0, len(s))
	for p := range s {
		if _, ok := seen[p.StudentID]; ok {
			continue
		}
		seen[p.StudentID] = struct{}{}
		out = append(out, p.StudentID)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Dedupe returns pairs without duplicates, keeping first-seen order.
func Dedupe(pairs []Pair) []Pair {
	seen := make(map[Pair]struct{}, len(pairs))
	out := make([]Pair, 0, len(pairs))
	for _, p := range pairs {
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}

// Split returns the student and course ids of pairs as parallel slices,
// the shape SQL backends bind to unnest or VALUES lists.
func Split(pairs []Pair) (studentIDs, courseIDs []int64) {
	studentIDs = make([]int64, len(pairs))
	courseIDs = make([]int64, len(pairs))
	for i, p := range pairs {
		studentIDs[i] = p.StudentID
		courseIDs[i] = p.CourseID
	}
	return studentIDs, courseIDs
}
