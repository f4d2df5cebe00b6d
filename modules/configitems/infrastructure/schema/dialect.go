package schema

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// Dialect answers catalog questions for one database engine.
type Dialect interface {
	Name() string
	ColumnExists(ctx context.Context, q sqlx.QueryerContext, table, column string) (bool, error)
}

// DialectFor returns the dialect matching a database/sql driver name.
func DialectFor(driverName string) (Dialect, error) {
	switch driverName {
	case "pgx", "postgres":
		return Postgres{}, nil
	case "sqlite", "sqlite3":
		return SQLite{}, nil
	default:
		return nil, fmt.Errorf("no schema dialect for driver %q", driverName)
	}
}

type Postgres struct{}

func (Postgres) Name() string { return "postgres" }

func (Postgres) ColumnExists(ctx context.Context, q sqlx.QueryerContext, table, column string) (bool, error) {
	const query = `
SELECT EXISTS (
	SELECT 1
	FROM information_schema.columns
	WHERE table_schema = current_schema()
	  AND table_name = $1
	  AND column_name = $2
)`
	var exists bool
	if err := sqlx.GetContext(ctx, q, &exists, query, table, column); err != nil {
		return false, err
	}
	return exists, nil
}

type SQLite struct{}

func (SQLite) Name() string { return "sqlite" }

func (SQLite) ColumnExists(ctx context.Context, q sqlx.QueryerContext, table, column string) (bool, error) {
	var n int
	if err := sqlx.GetContext(ctx, q, &n, `SELECT COUNT(*) FROM pragma_table_info(?) WHERE name = ?`, table, column); err != nil {
		return false, err
	}
	return n > 0, nil
}
