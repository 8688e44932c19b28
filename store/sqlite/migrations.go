package sqlite

import (
	"context"

	"github.com/xraph/grove/migrate"
)

// Migrations is the grove migration group for the dropout sqlite store.
var Migrations = migrate.NewGroup("dropout")

// execAll runs statements in order and stops at the first failure.
func execAll(ctx context.Context, exec migrate.Executor, statements ...string) error {
	for _, stmt := range statements {
		if _, err := exec.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func init() {
	Migrations.MustRegister(
		// 001: Enrollments, scanned by normalized deadline then id.
		&migrate.Migration{
			Name:    "create_enrollments_table",
			Version: "20240101000001",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				return execAll(ctx, exec, `
					CREATE TABLE IF NOT EXISTS enrollments (
						id          INTEGER PRIMARY KEY,
						student_id  INTEGER NOT NULL,
						course_id   INTEGER NOT NULL,
						status      TEXT NOT NULL CHECK (status IN ('ACTIVE', 'DROPOUT', 'COMPLETED', 'CANCELLED')),
						deadline_at TEXT NOT NULL,
						created_at  TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ', 'now')),
						updated_at  TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ', 'now'))
					)`, `
					CREATE INDEX IF NOT EXISTS idx_enrollments_deadline
						ON enrollments (`+deadlineUTC+`, id)`)
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				return execAll(ctx, exec, `DROP TABLE IF EXISTS enrollments`)
			},
		},

		// 002: Exams, looked up by (student, course) while IN_PROGRESS.
		&migrate.Migration{
			Name:    "create_exams_table",
			Version: "20240101000002",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				return execAll(ctx, exec, `
					CREATE TABLE IF NOT EXISTS exams (
						id         INTEGER PRIMARY KEY,
						student_id INTEGER NOT NULL,
						course_id  INTEGER NOT NULL,
						status     TEXT NOT NULL CHECK (status IN ('SCHEDULED', 'IN_PROGRESS', 'FINISHED')),
						created_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ', 'now')),
						updated_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ', 'now'))
					)`, `
					CREATE INDEX IF NOT EXISTS idx_exams_in_progress
						ON exams (student_id, course_id) WHERE status = 'IN_PROGRESS'`)
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				return execAll(ctx, exec, `DROP TABLE IF EXISTS exams`)
			},
		},

		// 003: Submissions, looked up by (student, course) while WAITING_REVIEW.
		&migrate.Migration{
			Name:    "create_submissions_table",
			Version: "20240101000003",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				return execAll(ctx, exec, `
					CREATE TABLE IF NOT EXISTS submissions (
						id         INTEGER PRIMARY KEY,
						student_id INTEGER NOT NULL,
						course_id  INTEGER NOT NULL,
						status     TEXT NOT NULL CHECK (status IN ('DRAFT', 'WAITING_REVIEW', 'REVIEWED')),
						created_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ', 'now')),
						updated_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ', 'now'))
					)`, `
					CREATE INDEX IF NOT EXISTS idx_submissions_waiting_review
						ON submissions (student_id, course_id) WHERE status = 'WAITING_REVIEW'`)
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				return execAll(ctx, exec, `DROP TABLE IF EXISTS submissions`)
			},
		},

		// 004: Activities, append-only audit rows.
		&migrate.Migration{
			Name:    "create_activities_table",
			Version: "20240101000004",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				return execAll(ctx, exec, `
					CREATE TABLE IF NOT EXISTS activities (
						id          TEXT PRIMARY KEY,
						resource_id INTEGER NOT NULL,
						user_id     INTEGER NOT NULL,
						description TEXT NOT NULL,
						created_at  TEXT NOT NULL,
						updated_at  TEXT NOT NULL
					)`, `
					CREATE INDEX IF NOT EXISTS idx_activities_resource
						ON activities (resource_id)`)
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				return execAll(ctx, exec, `DROP TABLE IF EXISTS activities`)
			},
		},
	)
}
