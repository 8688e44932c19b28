package bunstore

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"sort"
	"strings"

	"github.com/uptrace/bun"

	"github.com/xraph/dropout"
	"github.com/xraph/dropout/activity"
	"github.com/xraph/dropout/store"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Ensure Store and Tx implement the store interfaces at compile time.
var (
	_ store.Store = (*Store)(nil)
	_ store.Tx    = (*Tx)(nil)
)

// Store is a Bun ORM implementation of store.Store using PostgreSQL dialect.
// The caller owns the *bun.DB lifecycle; Store never closes it.
type Store struct {
	db        *bun.DB
	logger    *slog.Logger
	isolation sql.IsolationLevel
}

// Option configures the Store.
type Option func(*Store)

// WithLogger sets the logger for the store.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// WithIsolation sets the isolation level of transactions opened by Begin.
func WithIsolation(level sql.IsolationLevel) Option {
	return func(s *Store) {
		s.isolation = level
	}
}

// New creates a new Bun store. The caller owns the db lifecycle; the Store
// will not close it on Close().
func New(db *bun.DB, opts ...Option) *Store {
	s := &Store{
		db:     db,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// DB returns the underlying *bun.DB for advanced usage.
func (s *Store) DB() *bun.DB {
	return s.db
}

// Migrate runs all embedded SQL migration files in order.
func (s *Store) Migrate(ctx context.Context) error {
	// Create migrations tracking table.
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS dropout_migrations (
			filename TEXT PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`)
	if err != nil {
		return fmt.Errorf("dropout/bun: create migrations table: %w: %w", dropout.ErrMigrationFailed, err)
	}

	// Read embedded migration files.
	entries, err := fs.ReadDir(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("dropout/bun: read migrations: %w: %w", dropout.ErrMigrationFailed, err)
	}

	// Sort by filename for deterministic order.
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}

		// Check if already applied.
		var applied bool
		err = s.db.QueryRowContext(ctx,
			`SELECT EXISTS(SELECT 1 FROM dropout_migrations WHERE filename = ?)`,
			entry.Name(),
		).Scan(&applied)
		if err != nil {
			return fmt.Errorf("dropout/bun: check migration %s: %w: %w", entry.Name(), dropout.ErrMigrationFailed, err)
		}
		if applied {
			continue
		}

		// Read and execute migration.
		data, readErr := fs.ReadFile(migrationsFS, "migrations/"+entry.Name())
		if readErr != nil {
			return fmt.Errorf("dropout/bun: read migration %s: %w: %w", entry.Name(), dropout.ErrMigrationFailed, readErr)
		}

		_, execErr := s.db.ExecContext(ctx, string(data))
		if execErr != nil {
			return fmt.Errorf("dropout/bun: execute migration %s: %w: %w", entry.Name(), dropout.ErrMigrationFailed, execErr)
		}

		// Record migration.
		_, recErr := s.db.ExecContext(ctx,
			`INSERT INTO dropout_migrations (filename) VALUES (?)`,
			entry.Name(),
		)
		if recErr != nil {
			return fmt.Errorf("dropout/bun: record migration %s: %w: %w", entry.Name(), dropout.ErrMigrationFailed, recErr)
		}

		s.logger.Info("applied migration", slog.String("file", entry.Name()))
	}

	return nil
}

// Begin opens a database transaction.
func (s *Store) Begin(ctx context.Context) (store.Tx, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: s.isolation})
	if err != nil {
		return nil, fmt.Errorf("dropout/bun: begin: %w", err)
	}
	return &Tx{tx: tx}, nil
}

// ActivitiesFor returns the committed activities of an enrollment, oldest
// first.
func (s *Store) ActivitiesFor(ctx context.Context, resourceID int64) ([]*activity.Activity, error) {
	var models []activityModel
	err := s.db.NewSelect().Model(&models).
		Where("resource_id = ?", resourceID).
		Order("created_at ASC", "id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("dropout/bun: list activities: %w", err)
	}
	out := make([]*activity.Activity, 0, len(models))
	for i := range models {
		a, convErr := fromActivityModel(&models[i])
		if convErr != nil {
			return nil, fmt.Errorf("dropout/bun: list activities: %w", convErr)
		}
		out = append(out, a)
	}
	return out, nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close is a no-op because the caller owns the *bun.DB lifecycle.
func (s *Store) Close() error {
	return nil
}
