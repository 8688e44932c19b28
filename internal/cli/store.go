package cli

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	"github.com/xraph/dropout/store"
	bunstore "github.com/xraph/dropout/store/bun"
	"github.com/xraph/dropout/store/postgres"
	"github.com/xraph/dropout/store/sqlite"
)

// openStore connects the configured backend. The returned close func
// releases everything openStore acquired.
func openStore(ctx context.Context, cfg *Config, logger *slog.Logger) (store.Store, func() error, error) {
	switch cfg.Database.Driver {
	case DriverPostgres:
		s, err := postgres.New(ctx, cfg.Database.DSN, postgres.WithLogger(logger))
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil

	case DriverBun:
		sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(cfg.Database.DSN)))
		db := bun.NewDB(sqldb, pgdialect.New())
		return bunstore.New(db, bunstore.WithLogger(logger)), db.Close, nil

	case DriverSQLite:
		s, err := sqlite.Open(ctx, cfg.Database.DSN, sqlite.WithLogger(logger))
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	}
	return nil, nil, fmt.Errorf("unknown driver %q", cfg.Database.Driver)
}
