// Package postgres implements the store using pgx/v5 with raw SQL.
// Features: keyset pagination over eligible enrollments, pair lookups
// through unnest, COPY-based activity inserts, embedded SQL migrations.
package postgres
