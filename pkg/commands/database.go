package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/iota-uz/configitems/pkg/configuration"
)

// OpenDB connects to the configured database and verifies the connection.
func OpenDB(ctx context.Context, opts configuration.DatabaseOptions) (*sqlx.DB, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	dsn := opts.Opts
	if dsn == "" {
		dsn = opts.ConnectionString()
	}
	if opts.Driver == configuration.DriverSQLite {
		if dir := filepath.Dir(opts.SQLitePath); dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create sqlite directory: %w", err)
			}
		}
	}

	db, err := sqlx.Open(opts.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", opts.Driver, err)
	}
	if opts.Driver == configuration.DriverSQLite {
		// SQLite allows one writer at a time.
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(8)
		db.SetConnMaxIdleTime(30 * time.Second)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("connect to %s database: %w", opts.Driver, err)
	}
	return db, nil
}
