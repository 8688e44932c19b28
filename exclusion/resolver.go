package exclusion

import (
	"context"
	"fmt"
)

// Resolver builds the exclusion set of a page.
type Resolver struct {
	store Store
}

// NewResolver returns a Resolver reading through store.
func NewResolver(store Store) *Resolver {
	return &Resolver{store: store}
}

// ExcludedStudents returns the students, scoped to their course, that have
// an exam in progress or a submission waiting for review. The result only
// ever contains pairs present in the input.
func (r *Resolver) ExcludedStudents(ctx context.Context, pairs []Pair) (Set, error) {
	set := make(Set)
	if len(pairs) == 0 {
		return set, nil
	}
	pairs = Dedupe(pairs)

	exams, err := r.store.InProgressExams(ctx, pairs)
	if err != nil {
		return nil, fmt.Errorf("in-progress exams: %w", err)
	}
	subs, err := r.store.WaitingReviewSubmissions(ctx, pairs)
	if err != nil {
		return nil, fmt.Errorf("waiting-review submissions: %w", err)
	}

	requested := make(Set, len(pairs))
	requested.Add(pairs...)
	for _, group := range [][]Pair{exams, subs} {
		for _, p := range group {
			if requested.Has(p.StudentID, p.CourseID) {
				set.Add(p)
			}
		}
	}
	return set, nil
}
