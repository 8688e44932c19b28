package exclusion_test

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/xraph/dropout/exclusion"
)

// pairStore answers lookups from fixed pair lists.
type pairStore struct {
	exams   []exclusion.Pair
	subs    []exclusion.Pair
	examErr error
	subErr  error
	calls   [][]exclusion.Pair
}

func (s *pairStore) InProgressExams(_ context.Context, pairs []exclusion.Pair) ([]exclusion.Pair, error) {
	s.calls = append(s.calls, pairs)
	if s.examErr != nil {
		return nil, s.examErr
	}
	return intersect(s.exams, pairs), nil
}

func (s *pairStore) WaitingReviewSubmissions(_ context.Context, pairs []exclusion.Pair) ([]exclusion.Pair, error) {
	if s.subErr != nil {
		return nil, s.subErr
	}
	return intersect(s.subs, pairs), nil
}

func intersect(have, want []exclusion.Pair) []exclusion.Pair {
	set := make(exclusion.Set)
	set.Add(want...)
	var out []exclusion.Pair
	for _, p := range have {
		if set.Has(p.StudentID, p.CourseID) {
			out = append(out, p)
		}
	}
	return out
}

func TestExcludedStudents(t *testing.T) {
	t.Parallel()

	page := []exclusion.Pair{
		{StudentID: 10, CourseID: 5},
		{StudentID: 10, CourseID: 6},
		{StudentID: 11, CourseID: 5},
		{StudentID: 12, CourseID: 7},
	}

	tests := []struct {
		name  string
		store *pairStore
		want  []exclusion.Pair
	}{
		{
			name:  "nothing in progress",
			store: &pairStore{},
			want:  nil,
		},
		{
			name:  "exam protects only its course",
			store: &pairStore{exams: []exclusion.Pair{{StudentID: 10, CourseID: 5}}},
			want:  []exclusion.Pair{{StudentID: 10, CourseID: 5}},
		},
		{
			name:  "submission waiting review",
			store: &pairStore{subs: []exclusion.Pair{{StudentID: 12, CourseID: 7}}},
			want:  []exclusion.Pair{{StudentID: 12, CourseID: 7}},
		},
		{
			name: "union of exams and submissions",
			store: &pairStore{
				exams: []exclusion.Pair{{StudentID: 11, CourseID: 5}},
				subs:  []exclusion.Pair{{StudentID: 10, CourseID: 6}, {StudentID: 11, CourseID: 5}},
			},
			want: []exclusion.Pair{{StudentID: 10, CourseID: 6}, {StudentID: 11, CourseID: 5}},
		},
		{
			// Student 11 and course 6 are both in the page but never together.
			name:  "no cross product",
			store: &pairStore{exams: []exclusion.Pair{{StudentID: 11, CourseID: 6}}},
			want:  nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			set, err := exclusion.NewResolver(tt.store).ExcludedStudents(context.Background(), page)
			if err != nil {
				t.Fatalf("ExcludedStudents: %v", err)
			}
			if len(set) != len(tt.want) {
				t.Fatalf("set size = %d, want %d (%v)", len(set), len(tt.want), set)
			}
			for _, p := range tt.want {
				if !set.Has(p.StudentID, p.CourseID) {
					t.Errorf("expected %+v to be excluded", p)
				}
			}
		})
	}
}

func TestExcludedStudentsIgnoresPairsOutsidePage(t *testing.T) {
	t.Parallel()
	// A misbehaving store returning extra pairs must not widen the set.
	s := &leakyStore{}
	set, err := exclusion.NewResolver(s).ExcludedStudents(context.Background(),
		[]exclusion.Pair{{StudentID: 1, CourseID: 1}})
	if err != nil {
		t.Fatalf("ExcludedStudents: %v", err)
	}
	if set.Has(2, 2) {
		t.Error("pair outside the page leaked into the set")
	}
	if !set.Has(1, 1) {
		t.Error("expected (1,1) to be excluded")
	}
}

type leakyStore struct{}

func (leakyStore) InProgressExams(context.Context, []exclusion.Pair) ([]exclusion.Pair, error) {
	return []exclusion.Pair{{StudentID: 1, CourseID: 1}, {StudentID: 2, CourseID: 2}}, nil
}

func (leakyStore) WaitingReviewSubmissions(context.Context, []exclusion.Pair) ([]exclusion.Pair, error) {
	return nil, nil
}

func TestExcludedStudentsEmptyPage(t *testing.T) {
	t.Parallel()
	s := &pairStore{}
	set, err := exclusion.NewResolver(s).ExcludedStudents(context.Background(), nil)
	if err != nil {
		t.Fatalf("ExcludedStudents: %v", err)
	}
	if len(set) != 0 {
		t.Errorf("expected empty set, got %v", set)
	}
	if len(s.calls) != 0 {
		t.Error("empty page should not query the store")
	}
}

func TestExcludedStudentsDedupesInput(t *testing.T) {
	t.Parallel()
	s := &pairStore{}
	pairs := []exclusion.Pair{{StudentID: 1, CourseID: 1}, {StudentID: 1, CourseID: 1}, {StudentID: 2, CourseID: 1}}
	if _, err := exclusion.NewResolver(s).ExcludedStudents(context.Background(), pairs); err != nil {
		t.Fatalf("ExcludedStudents: %v", err)
	}
	if len(s.calls) != 1 || len(s.calls[0]) != 2 {
		t.Fatalf("expected one call with 2 distinct pairs, got %v", s.calls)
	}
}

func TestExcludedStudentsErrors(t *testing.T) {
	t.Parallel()
	boom := errors.New("boom")
	pairs := []exclusion.Pair{{StudentID: 1, CourseID: 1}}

	for name, s := range map[string]*pairStore{
		"exam lookup":       {examErr: boom},
		"submission lookup": {subErr: boom},
	} {
		t.Run(name, func(t *testing.T) {
			if _, err := exclusion.NewResolver(s).ExcludedStudents(context.Background(), pairs); !errors.Is(err, boom) {
				t.Fatalf("expected boom, got %v", err)
			}
		})
	}
}

func TestSetStudentsAndSplit(t *testing.T) {
	t.Parallel()
	set := make(exclusion.Set)
	set.Add(
		exclusion.Pair{StudentID: 3, CourseID: 1},
		exclusion.Pair{StudentID: 1, CourseID: 1},
		exclusion.Pair{StudentID: 3, CourseID: 2},
	)
	if got, want := set.Students(), []int64{1, 3}; !reflect.DeepEqual(got, want) {
		t.Errorf("Students() = %v, want %v", got, want)
	}

	students, courses := exclusion.Split([]exclusion.Pair{{StudentID: 1, CourseID: 9}, {StudentID: 2, CourseID: 8}})
	if !reflect.DeepEqual(students, []int64{1, 2}) || !reflect.DeepEqual(courses, []int64{9, 8}) {
		t.Errorf("Split = %v %v", students, courses)
	}
}
