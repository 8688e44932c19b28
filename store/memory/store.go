// Package memory is a fully in-memory implementation of store.Store.
// Safe for concurrent access. Intended for unit testing and development.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/xraph/dropout"
	"github.com/xraph/dropout/activity"
	"github.com/xraph/dropout/enrollment"
	"github.com/xraph/dropout/exam"
	"github.com/xraph/dropout/exclusion"
	"github.com/xraph/dropout/store"
	"github.com/xraph/dropout/submission"
)

// Ensure Store and Tx implement the store interfaces at compile time.
var (
	_ store.Store = (*Store)(nil)
	_ store.Tx    = (*Tx)(nil)
)

// state is the set of tables. Transactions work on a private copy and
// publish it on commit.
type state struct {
	enrollments map[int64]*enrollment.Enrollment
	exams       map[int64]*exam.Exam
	submissions map[int64]*submission.Submission
	activities  []*activity.Activity
}

func newState() *state {
	return &state{
		enrollments: make(map[int64]*enrollment.Enrollment),
		exams:       make(map[int64]*exam.Exam),
		submissions: make(map[int64]*submission.Submission),
	}
}

func (s *state) clone() *state {
	cp := &state{
		enrollments: make(map[int64]*enrollment.Enrollment, len(s.enrollments)),
		exams:       make(map[int64]*exam.Exam, len(s.exams)),
		submissions: make(map[int64]*submission.Submission, len(s.submissions)),
		activities:  make([]*activity.Activity, len(s.activities)),
	}
	for k, v := range s.enrollments {
		e := *v
		cp.enrollments[k] = &e
	}
	for k, v := range s.exams {
		e := *v
		cp.exams[k] = &e
	}
	for k, v := range s.submissions {
		e := *v
		cp.submissions[k] = &e
	}
	for i, a := range s.activities {
		c := *a
		cp.activities[i] = &c
	}
	return cp
}

// Store is a fully in-memory implementation of store.Store. Concurrent
// transactions are not isolated from each other: the last commit wins.
type Store struct {
	mu     sync.RWMutex
	data   *state
	closed bool
}

// New returns a new empty Store.
func New() *Store {
	return &Store{data: newState()}
}

// ──────────────────────────────────────────────────
// Lifecycle: Migrate / Ping / Close
// ──────────────────────────────────────────────────

// Migrate is a no-op for the memory store.
func (m *Store) Migrate(_ context.Context) error { return nil }

// Ping fails once the store is closed.
func (m *Store) Ping(_ context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return dropout.ErrStoreClosed
	}
	return nil
}

// Close marks the store closed. Data is kept for inspection.
func (m *Store) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	return nil
}

// Begin starts a transaction on a snapshot of the current tables.
func (m *Store) Begin(_ context.Context) (store.Tx, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, dropout.ErrStoreClosed
	}
	return &Tx{parent: m, data: m.data.clone()}, nil
}

// ──────────────────────────────────────────────────
// Seeding and inspection
// ──────────────────────────────────────────────────

// AddEnrollment inserts or replaces an enrollment.
func (m *Store) AddEnrollment(e *enrollment.Enrollment) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *e
	m.data.enrollments[e.ID] = &cp
}

// AddExam inserts or replaces an exam.
func (m *Store) AddExam(e *exam.Exam) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *e
	m.data.exams[e.ID] = &cp
}

// AddSubmission inserts or replaces a submission.
func (m *Store) AddSubmission(s *submission.Submission) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *s
	m.data.submissions[s.ID] = &cp
}

// Enrollment returns a copy of the committed enrollment, or nil.
func (m *Store) Enrollment(id int64) *enrollment.Enrollment {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.data.enrollments[id]
	if !ok {
		return nil
	}
	cp := *e
	return &cp
}

// Activities returns copies of the committed activities in insert order.
func (m *Store) Activities() []*activity.Activity {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*activity.Activity, len(m.data.activities))
	for i, a := range m.data.activities {
		cp := *a
		out[i] = &cp
	}
	return out
}

// ──────────────────────────────────────────────────
// Tx
// ──────────────────────────────────────────────────

// Tx is a memory transaction. It is not safe for concurrent use, which
// matches how a run drives it.
type Tx struct {
	parent *Store
	data   *state
	done   bool
}

// Commit publishes the transaction's tables.
func (t *Tx) Commit(_ context.Context) error {
	if t.done {
		return dropout.ErrTxDone
	}
	t.done = true
	t.parent.mu.Lock()
	defer t.parent.mu.Unlock()
	if t.parent.closed {
		return dropout.ErrStoreClosed
	}
	t.parent.data = t.data
	return nil
}

// Rollback discards the transaction's tables.
func (t *Tx) Rollback(_ context.Context) error {
	if t.done {
		return dropout.ErrTxDone
	}
	t.done = true
	t.data = nil
	return nil
}

// LatestDeadline returns the deadline of the highest enrollment id.
func (t *Tx) LatestDeadline(_ context.Context) (time.Time, error) {
	if t.done {
		return time.Time{}, dropout.ErrTxDone
	}
	var latest *enrollment.Enrollment
	for _, e := range t.data.enrollments {
		if latest == nil || e.ID > latest.ID {
			latest = e
		}
	}
	if latest == nil {
		return time.Time{}, enrollment.ErrNoEnrollments
	}
	return latest.DeadlineAt, nil
}

// CountEligible counts enrollments eligible at cutoff.
func (t *Tx) CountEligible(_ context.Context, cutoff time.Time) (int64, error) {
	if t.done {
		return 0, dropout.ErrTxDone
	}
	var n int64
	for _, e := range t.data.enrollments {
		if e.EligibleAt(cutoff) {
			n++
		}
	}
	return n, nil
}

// PageEligible returns the next keyset page after afterID.
func (t *Tx) PageEligible(_ context.Context, cutoff time.Time, afterID int64, limit int) ([]enrollment.Ref, error) {
	if t.done {
		return nil, dropout.ErrTxDone
	}
	candidates := make([]*enrollment.Enrollment, 0)
	for _, e := range t.data.enrollments {
		if e.ID > afterID && e.EligibleAt(cutoff) {
			candidates = append(candidates, e)
		}
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].ID < candidates[j].ID })
	if limit > 0 && len(candidates) > limit {
		candidates = candidates[:limit]
	}

	refs := make([]enrollment.Ref, len(candidates))
	for i, e := range candidates {
		refs[i] = enrollment.Ref{ID: e.ID, StudentID: e.StudentID, CourseID: e.CourseID}
	}
	return refs, nil
}

// BulkSetDropout flips the given enrollments to DROPOUT.
func (t *Tx) BulkSetDropout(_ context.Context, ids []int64, now time.Time) (int64, error) {
	if t.done {
		return 0, dropout.ErrTxDone
	}
	var n int64
	for _, id := range ids {
		e, ok := t.data.enrollments[id]
		if !ok || e.Status == enrollment.StatusDropout {
			continue
		}
		e.Status = enrollment.StatusDropout
		e.UpdatedAt = now
		n++
	}
	return n, nil
}

// InProgressExams returns the pairs with an exam IN_PROGRESS.
func (t *Tx) InProgressExams(_ context.Context, pairs []exclusion.Pair) ([]exclusion.Pair, error) {
	if t.done {
		return nil, dropout.ErrTxDone
	}
	hits := make(exclusion.Set)
	for _, e := range t.data.exams {
		if e.Status == exam.StatusInProgress {
			hits.Add(exclusion.Pair{StudentID: e.StudentID, CourseID: e.CourseID})
		}
	}
	return matching(hits, pairs), nil
}

// WaitingReviewSubmissions returns the pairs with a submission WAITING_REVIEW.
func (t *Tx) WaitingReviewSubmissions(_ context.Context, pairs []exclusion.Pair) ([]exclusion.Pair, error) {
	if t.done {
		return nil, dropout.ErrTxDone
	}
	hits := make(exclusion.Set)
	for _, s := range t.data.submissions {
		if s.Status == submission.StatusWaitingReview {
			hits.Add(exclusion.Pair{StudentID: s.StudentID, CourseID: s.CourseID})
		}
	}
	return matching(hits, pairs), nil
}

// InsertActivities appends the activities.
func (t *Tx) InsertActivities(_ context.Context, acts []*activity.Activity) error {
	if t.done {
		return dropout.ErrTxDone
	}
	for _, a := range acts {
		cp := *a
		t.data.activities = append(t.data.activities, &cp)
	}
	return nil
}

func matching(hits exclusion.Set, pairs []exclusion.Pair) []exclusion.Pair {
	var out []exclusion.Pair
	for _, p := range exclusion.Dedupe(pairs) {
		if hits.Has(p.StudentID, p.CourseID) {
			out = append(out, p)
		}
	}
	return out
}
