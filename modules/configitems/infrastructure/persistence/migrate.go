package persistence

import (
	"context"
	"fmt"
	"io/fs"

	"github.com/go-faster/errors"
	"github.com/jmoiron/sqlx"
	"github.com/pressly/goose/v3"
	"github.com/sirupsen/logrus"

	"github.com/iota-uz/configitems/modules/configitems/infrastructure/schema"
	"github.com/iota-uz/configitems/pkg/composables"
)

// MigrationDir is the directory, relative to a migrations root, holding the files of a layout.
func MigrationDir(layout schema.Layout) (string, error) {
	switch layout {
	case schema.LayoutLegacy, schema.LayoutModern:
		return layout.String(), nil
	default:
		return "", fmt.Errorf("no migrations for schema layout %s", layout)
	}
}

func gooseDialect(driverName string) (goose.Dialect, error) {
	switch driverName {
	case "pgx", "postgres":
		return goose.DialectPostgres, nil
	case "sqlite", "sqlite3":
		return goose.DialectSQLite3, nil
	default:
		return "", fmt.Errorf("no goose dialect for driver %q", driverName)
	}
}

// Migrate applies the pending migrations of one layout found under root.
func Migrate(ctx context.Context, db *sqlx.DB, layout schema.Layout, root fs.FS) ([]*goose.MigrationResult, error) {
	dir, err := MigrationDir(layout)
	if err != nil {
		return nil, err
	}
	dialect, err := gooseDialect(db.DriverName())
	if err != nil {
		return nil, err
	}
	fsys, err := fs.Sub(root, dir)
	if err != nil {
		return nil, err
	}
	provider, err := goose.NewProvider(dialect, db.DB, fsys)
	if err != nil {
		return nil, errors.Wrap(err, "create migration provider")
	}
	results, err := provider.Up(ctx)
	if err != nil {
		return results, errors.Wrapf(err, "apply %s migrations", layout)
	}

	logger := composables.UseLogger(ctx)
	for _, r := range results {
		logger.WithFields(logrus.Fields{
			"layout":   layout.String(),
			"version":  r.Source.Version,
			"duration": r.Duration.String(),
		}).Info("migration applied")
	}
	return results, nil
}
