package sqlite

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"

	"github.com/xraph/grove"
	"github.com/xraph/grove/driver"
	"github.com/xraph/grove/drivers/sqlitedriver"
	_ "github.com/xraph/grove/drivers/sqlitedriver/sqlitemigrate" // register sqlite migration executor
	"github.com/xraph/grove/migrate"

	"github.com/xraph/dropout"
	"github.com/xraph/dropout/store"
)

// Ensure Store and Tx implement the store interfaces at compile time.
var (
	_ store.Store = (*Store)(nil)
	_ store.Tx    = (*Tx)(nil)
)

// Store is a grove implementation of store.Store using the SQLite driver.
type Store struct {
	db     *grove.DB
	sdb    *sqlitedriver.SqliteDB
	logger *slog.Logger
	owned  bool
	closed atomic.Bool
}

// Option configures the Store.
type Option func(*Store)

// WithLogger sets the logger for the store.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// New wraps an existing grove handle. The caller owns the db lifecycle;
// the Store will not close it on Close().
func New(db *grove.DB, opts ...Option) *Store {
	s := &Store{
		db:     db,
		sdb:    sqlitedriver.Unwrap(db),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Open connects dsn and returns a Store that owns the handle. SQLite
// serializes writers, so the pool holds one connection; this also keeps
// ":memory:" databases alive across calls.
func Open(ctx context.Context, dsn string, opts ...Option) (*Store, error) {
	sdb := sqlitedriver.New()
	if err := sdb.Open(ctx, withTimeFormat(dsn), driver.WithPoolSize(1)); err != nil {
		return nil, fmt.Errorf("dropout/sqlite: open: %w", err)
	}
	db, err := grove.Open(sdb)
	if err != nil {
		_ = sdb.Close()
		return nil, fmt.Errorf("dropout/sqlite: open: %w", err)
	}

	s := New(db, opts...)
	s.owned = true
	return s, nil
}

// withTimeFormat asks the driver to write bound time.Time values in a
// layout SQLite's date functions understand. Its default is
// time.Time.String, which they reject.
func withTimeFormat(dsn string) string {
	if dsn == "" || strings.Contains(dsn, "_time_format=") {
		return dsn
	}
	if strings.Contains(dsn, "?") {
		return dsn + "&_time_format=sqlite"
	}
	return dsn + "?_time_format=sqlite"
}

// DB returns the underlying *grove.DB for advanced usage.
func (s *Store) DB() *grove.DB {
	return s.db
}

// Begin opens a database transaction.
func (s *Store) Begin(ctx context.Context) (store.Tx, error) {
	if s.closed.Load() {
		return nil, dropout.ErrStoreClosed
	}
	tx, err := s.sdb.BeginTxQuery(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("dropout/sqlite: begin: %w", err)
	}
	return &Tx{tx: tx}, nil
}

// Migrate runs the programmatic migrations via the grove orchestrator.
func (s *Store) Migrate(ctx context.Context) error {
	if s.closed.Load() {
		return dropout.ErrStoreClosed
	}
	executor, err := migrate.NewExecutorFor(s.sdb)
	if err != nil {
		return fmt.Errorf("dropout/sqlite: create migration executor: %w: %w", dropout.ErrMigrationFailed, err)
	}
	res, err := migrate.NewOrchestrator(executor, Migrations).Migrate(ctx)
	if err != nil {
		return fmt.Errorf("dropout/sqlite: %w: %w", dropout.ErrMigrationFailed, err)
	}
	for _, m := range res.Applied {
		s.logger.Info("applied migration",
			slog.String("name", m.Name),
			slog.String("version", m.Version),
		)
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	if s.closed.Load() {
		return dropout.ErrStoreClosed
	}
	return s.db.Ping(ctx)
}

// Close closes the handle when the Store opened it. Either way the Store
// rejects further use.
func (s *Store) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	if s.owned {
		return s.db.Close()
	}
	return nil
}
