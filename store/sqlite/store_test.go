package sqlite

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/xraph/dropout"
	"github.com/xraph/dropout/activity"
	"github.com/xraph/dropout/enrollment"
	"github.com/xraph/dropout/exclusion"
	"github.com/xraph/dropout/id"
)

var cutoff = time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)

func day(d int) time.Time { return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC) }

// newTestStore returns a migrated in-memory store.
func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), ":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	if err := s.Migrate(context.Background()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return s
}

// exec runs a statement outside any transaction.
func exec(t *testing.T, s *Store, query string, args ...any) {
	t.Helper()
	if _, err := s.sdb.NewRaw(query, args...).Exec(context.Background()); err != nil {
		t.Fatalf("exec %q: %v", query, err)
	}
}

// queryString reads a single TEXT value outside any transaction.
func queryString(t *testing.T, s *Store, query string, args ...any) string {
	t.Helper()
	var out string
	if err := s.sdb.NewRaw(query, args...).Scan(context.Background(), &out); err != nil {
		t.Fatalf("query %q: %v", query, err)
	}
	return out
}

func addEnrollment(t *testing.T, s *Store, id, student, course int64, status enrollment.Status, deadline time.Time) {
	t.Helper()
	addEnrollmentRaw(t, s, id, student, course, status, formatTime(deadline))
}

// addEnrollmentRaw stores deadline as given: a string in some layout, or
// a time.Time the driver formats itself.
func addEnrollmentRaw(t *testing.T, s *Store, id, student, course int64, status enrollment.Status, deadline any) {
	t.Helper()
	exec(t, s,
		`INSERT INTO enrollments (id, student_id, course_id, status, deadline_at) VALUES (?, ?, ?, ?, ?)`,
		id, student, course, string(status), deadline,
	)
}

func addRow(t *testing.T, s *Store, table string, id, student, course int64, status string) {
	t.Helper()
	exec(t, s,
		`INSERT INTO `+table+` (id, student_id, course_id, status) VALUES (?, ?, ?, ?)`,
		id, student, course, status,
	)
}

func statusOf(t *testing.T, s *Store, enrollmentID int64) enrollment.Status {
	t.Helper()
	raw := queryString(t, s, `SELECT status FROM enrollments WHERE id = ?`, enrollmentID)
	st, err := enrollment.ParseStatus(raw)
	if err != nil {
		t.Fatalf("status of %d: %v", enrollmentID, err)
	}
	return st
}

func seed(t *testing.T, s *Store) {
	t.Helper()
	addEnrollment(t, s, 3, 30, 1, enrollment.StatusActive, day(2))
	addEnrollment(t, s, 1, 10, 1, enrollment.StatusActive, day(1))
	addEnrollment(t, s, 2, 20, 1, enrollment.StatusDropout, day(1))
	addEnrollment(t, s, 4, 40, 2, enrollment.StatusActive, day(20))
	addEnrollment(t, s, 5, 50, 2, enrollment.StatusActive, day(10))
}

// ──────────────────────────────────────────────────
// Lifecycle tests
// ──────────────────────────────────────────────────

func TestLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.Migrate(ctx); err != nil {
		t.Fatalf("second migrate: %v", err)
	}
	if err := s.Ping(ctx); err != nil {
		t.Fatalf("ping: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := s.Ping(ctx); !errors.Is(err, dropout.ErrStoreClosed) {
		t.Fatalf("Ping after Close = %v, want ErrStoreClosed", err)
	}
	if _, err := s.Begin(ctx); !errors.Is(err, dropout.ErrStoreClosed) {
		t.Fatalf("Begin after Close = %v, want ErrStoreClosed", err)
	}
}

func TestTimeFormat(t *testing.T) {
	a := time.Date(2024, 1, 9, 23, 59, 59, 999_000_000, time.FixedZone("CET", 3600))
	if got := formatTime(a); got != "2024-01-09T22:59:59.999Z" {
		t.Fatalf("formatTime = %q", got)
	}
	got, err := parseTime(formatTime(a))
	if err != nil || !got.Equal(a) {
		t.Fatalf("parseTime = %v, %v; want %v", got, err, a)
	}
	if _, err := parseTime("yesterday"); err == nil {
		t.Fatal("parseTime accepted garbage")
	}
}

func TestWithTimeFormat(t *testing.T) {
	tests := []struct{ in, want string }{
		{":memory:", ":memory:?_time_format=sqlite"},
		{"file:school.db?mode=rwc", "file:school.db?mode=rwc&_time_format=sqlite"},
		{"file:school.db?_time_format=sqlite", "file:school.db?_time_format=sqlite"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := withTimeFormat(tt.in); got != tt.want {
			t.Errorf("withTimeFormat(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

// ──────────────────────────────────────────────────
// Enrollment tests
// ──────────────────────────────────────────────────

func TestLatestDeadline(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	tx, _ := s.Begin(ctx)
	if _, err := tx.LatestDeadline(ctx); !errors.Is(err, enrollment.ErrNoEnrollments) {
		t.Fatalf("LatestDeadline on empty table = %v", err)
	}
	_ = tx.Rollback(ctx)

	seed(t, s)
	tx, _ = s.Begin(ctx)
	defer func() { _ = tx.Rollback(ctx) }()

	// Highest id (5), not the latest deadline (id 4).
	got, err := tx.LatestDeadline(ctx)
	if err != nil || !got.Equal(cutoff) {
		t.Fatalf("LatestDeadline = %v, %v; want %v", got, err, cutoff)
	}
}

func TestCountAndPageEligible(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seed(t, s)

	tx, _ := s.Begin(ctx)
	defer func() { _ = tx.Rollback(ctx) }()

	n, err := tx.CountEligible(ctx, cutoff)
	if err != nil || n != 3 {
		t.Fatalf("CountEligible = %d, %v; want 3 (ids 1, 3, 5)", n, err)
	}

	page, err := tx.PageEligible(ctx, cutoff, 0, 2)
	if err != nil {
		t.Fatalf("PageEligible: %v", err)
	}
	if len(page) != 2 || page[0].ID != 1 || page[1].ID != 3 || page[1].StudentID != 30 {
		t.Fatalf("first page = %+v", page)
	}
	page, _ = tx.PageEligible(ctx, cutoff, 3, 2)
	if len(page) != 1 || page[0].ID != 5 {
		t.Fatalf("second page = %+v", page)
	}
}

// Deadlines written by other tools arrive in other layouts and offsets;
// eligibility must compare instants, not strings.
func TestEligibilityAcrossDeadlineLayouts(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	noon := time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC)
	addEnrollmentRaw(t, s, 1, 10, 1, enrollment.StatusActive, noon)                            // driver-bound, after cutoff
	addEnrollmentRaw(t, s, 2, 20, 1, enrollment.StatusActive, "2024-01-10T00:00:00Z")          // equal, no fraction
	addEnrollmentRaw(t, s, 3, 30, 1, enrollment.StatusActive, "2024-01-10T01:00:00+02:00")     // 2024-01-09T23:00Z
	addEnrollmentRaw(t, s, 4, 40, 1, enrollment.StatusActive, "2024-01-10 00:00:00.001+00:00") // 1ms after cutoff
	addEnrollmentRaw(t, s, 5, 50, 1, enrollment.StatusActive, "2024-01-09 20:00:00-05:00")     // 2024-01-10T01:00Z
	addEnrollmentRaw(t, s, 6, 60, 1, enrollment.StatusActive, cutoff)                          // driver-bound, latest id

	if stored := queryString(t, s, `SELECT deadline_at FROM enrollments WHERE id = 1`); stored != "2024-01-10 12:00:00+00:00" {
		t.Fatalf("driver stored %q", stored)
	}

	tx, _ := s.Begin(ctx)
	got, err := tx.LatestDeadline(ctx)
	if err != nil || !got.Equal(cutoff) {
		t.Fatalf("LatestDeadline = %v, %v; want %v", got, err, cutoff)
	}

	n, err := tx.CountEligible(ctx, got)
	if err != nil || n != 3 {
		t.Fatalf("CountEligible = %d, %v; want 3 (ids 2, 3, 6)", n, err)
	}
	page, err := tx.PageEligible(ctx, got, 0, 10)
	if err != nil {
		t.Fatalf("PageEligible: %v", err)
	}
	var ids []int64
	for _, r := range page {
		ids = append(ids, r.ID)
	}
	if fmt.Sprint(ids) != "[2 3 6]" {
		t.Fatalf("eligible ids = %v, want [2 3 6]", ids)
	}

	if _, err := tx.BulkSetDropout(ctx, ids, cutoff.Add(time.Hour)); err != nil {
		t.Fatalf("BulkSetDropout: %v", err)
	}
	if err := tx.Commit(ctx); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	for _, id := range []int64{1, 4, 5} {
		if st := statusOf(t, s, id); st != enrollment.StatusActive {
			t.Errorf("enrollment %d = %s, deadline has not passed", id, st)
		}
	}
}

func TestBulkSetDropout(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seed(t, s)
	now := cutoff.Add(time.Hour)

	tx, _ := s.Begin(ctx)
	if n, err := tx.BulkSetDropout(ctx, nil, now); err != nil || n != 0 {
		t.Fatalf("BulkSetDropout(nil) = %d, %v", n, err)
	}
	// id 2 is already DROPOUT and id 99 does not exist.
	n, err := tx.BulkSetDropout(ctx, []int64{1, 2, 99}, now)
	if err != nil || n != 1 {
		t.Fatalf("BulkSetDropout = %d, %v; want 1", n, err)
	}
	if err := tx.Commit(ctx); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	updated := queryString(t, s, `SELECT updated_at FROM enrollments WHERE id = 1`)
	if statusOf(t, s, 1) != enrollment.StatusDropout || updated != formatTime(now) {
		t.Fatalf("enrollment 1 status = %s, updated_at = %s", statusOf(t, s, 1), updated)
	}
}

func TestBulkSetDropoutChunks(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	const n = maxParams*2 + 7
	ids := make([]int64, n)
	for i := range ids {
		ids[i] = int64(i + 1)
		addEnrollment(t, s, ids[i], ids[i], 1, enrollment.StatusActive, day(1))
	}

	tx, _ := s.Begin(ctx)
	defer func() { _ = tx.Rollback(ctx) }()
	changed, err := tx.BulkSetDropout(ctx, ids, cutoff)
	if err != nil || changed != n {
		t.Fatalf("BulkSetDropout = %d, %v; want %d", changed, err, n)
	}
}

// ──────────────────────────────────────────────────
// Exclusion tests
// ──────────────────────────────────────────────────

func TestExclusionLookups(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	addRow(t, s, "exams", 1, 10, 5, "IN_PROGRESS")
	addRow(t, s, "exams", 2, 10, 5, "IN_PROGRESS")
	addRow(t, s, "exams", 3, 11, 5, "FINISHED")
	addRow(t, s, "submissions", 1, 12, 6, "WAITING_REVIEW")
	addRow(t, s, "submissions", 2, 10, 6, "REVIEWED")

	tx, _ := s.Begin(ctx)
	defer func() { _ = tx.Rollback(ctx) }()

	pairs := []exclusion.Pair{
		{StudentID: 10, CourseID: 5},
		{StudentID: 10, CourseID: 6},
		{StudentID: 11, CourseID: 5},
		{StudentID: 12, CourseID: 6},
		{StudentID: 12, CourseID: 5},
	}

	exams, err := tx.InProgressExams(ctx, pairs)
	if err != nil {
		t.Fatalf("InProgressExams: %v", err)
	}
	if len(exams) != 1 || exams[0] != (exclusion.Pair{StudentID: 10, CourseID: 5}) {
		t.Errorf("InProgressExams = %+v", exams)
	}

	subs, err := tx.WaitingReviewSubmissions(ctx, pairs)
	if err != nil {
		t.Fatalf("WaitingReviewSubmissions: %v", err)
	}
	if len(subs) != 1 || subs[0] != (exclusion.Pair{StudentID: 12, CourseID: 6}) {
		t.Errorf("WaitingReviewSubmissions = %+v", subs)
	}

	if none, err := tx.InProgressExams(ctx, nil); err != nil || len(none) != 0 {
		t.Errorf("InProgressExams(nil) = %v, %v", none, err)
	}
}

// ──────────────────────────────────────────────────
// Activity and transaction tests
// ──────────────────────────────────────────────────

func newActivity(resourceID, userID int64) *activity.Activity {
	return &activity.Activity{
		Entity:      dropout.NewEntityAt(cutoff),
		ID:          id.NewActivityID(),
		ResourceID:  resourceID,
		UserID:      userID,
		Description: activity.DescriptionCourseDropout,
	}
}

func TestInsertActivities(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	act := newActivity(1, 10)

	tx, _ := s.Begin(ctx)
	if err := tx.InsertActivities(ctx, nil); err != nil {
		t.Fatalf("InsertActivities(nil): %v", err)
	}
	if err := tx.InsertActivities(ctx, []*activity.Activity{act, newActivity(2, 20)}); err != nil {
		t.Fatalf("InsertActivities: %v", err)
	}
	if err := tx.Commit(ctx); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if err := tx.Rollback(ctx); !errors.Is(err, dropout.ErrTxDone) {
		t.Errorf("Rollback after Commit = %v, want ErrTxDone", err)
	}

	got, err := s.Activities(ctx)
	if err != nil {
		t.Fatalf("Activities: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Activities = %d rows, want 2", len(got))
	}
	if !got[0].CreatedAt.Equal(cutoff) || got[0].Description != activity.DescriptionCourseDropout {
		t.Errorf("activity = %+v", got[0])
	}

	tx, _ = s.Begin(ctx)
	defer func() { _ = tx.Rollback(ctx) }()
	if err := tx.InsertActivities(ctx, []*activity.Activity{act}); !errors.Is(err, ErrDuplicateActivity) {
		t.Fatalf("duplicate insert = %v, want ErrDuplicateActivity", err)
	}
}

func TestInsertActivitiesChunks(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	const n = maxParams/activityColumns*2 + 3
	acts := make([]*activity.Activity, n)
	for i := range acts {
		acts[i] = newActivity(int64(i+1), int64(i+1))
	}

	tx, _ := s.Begin(ctx)
	if err := tx.InsertActivities(ctx, acts); err != nil {
		t.Fatalf("InsertActivities: %v", err)
	}
	if err := tx.Commit(ctx); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	got, err := s.Activities(ctx)
	if err != nil || len(got) != n {
		t.Fatalf("Activities = %d rows, %v; want %d", len(got), err, n)
	}
}

func TestRollbackDiscardsWrites(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seed(t, s)

	tx, _ := s.Begin(ctx)
	if _, err := tx.BulkSetDropout(ctx, []int64{1}, cutoff); err != nil {
		t.Fatalf("BulkSetDropout: %v", err)
	}
	if err := tx.InsertActivities(ctx, []*activity.Activity{newActivity(1, 10)}); err != nil {
		t.Fatalf("InsertActivities: %v", err)
	}
	if err := tx.Rollback(ctx); err != nil {
		t.Fatalf("Rollback: %v", err)
	}

	if statusOf(t, s, 1) != enrollment.StatusActive {
		t.Error("rolled back status change is visible")
	}
	if got, _ := s.Activities(ctx); len(got) != 0 {
		t.Error("rolled back activity is visible")
	}
	if err := tx.Commit(ctx); !errors.Is(err, dropout.ErrTxDone) {
		t.Errorf("Commit after Rollback = %v, want ErrTxDone", err)
	}
}

func TestPageEligibleSizes(t *testing.T) {
	const size = 4
	for _, n := range []int{0, 3, size, size + 1, 10 * size} {
		t.Run(fmt.Sprintf("n=%d", n), func(t *testing.T) {
			s := newTestStore(t)
			ctx := context.Background()
			for i := 1; i <= n; i++ {
				addEnrollment(t, s, int64(i), int64(i), 1, enrollment.StatusActive, day(1))
			}

			tx, _ := s.Begin(ctx)
			defer func() { _ = tx.Rollback(ctx) }()

			p := enrollment.NewPager(tx, cutoff, size)
			seen := 0
			for {
				page, ok, err := p.Next(ctx)
				if err != nil {
					t.Fatalf("Next: %v", err)
				}
				if !ok {
					break
				}
				seen += page.Len()
			}
			if seen != n {
				t.Fatalf("visited %d rows, want %d", seen, n)
			}
		})
	}
}
