package itf

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"

	"github.com/iota-uz/configitems/modules/configitems"
	"github.com/iota-uz/configitems/modules/configitems/infrastructure/schema"
	"github.com/iota-uz/configitems/pkg/commands"
	"github.com/iota-uz/configitems/pkg/composables"
	"github.com/iota-uz/configitems/pkg/configuration"
)

// TestContext provides a fluent API for building test contexts
type TestContext struct {
	ctx      context.Context
	layout   schema.Layout
	dbName   string
	logLevel logrus.Level
	options  configitems.Options
}

// NewTestContext creates a new TestContext builder. The modern layout is used unless
// another one is requested.
func NewTestContext() *TestContext {
	return &TestContext{
		ctx:      context.Background(),
		layout:   schema.LayoutModern,
		logLevel: logrus.PanicLevel,
	}
}

// WithLayout selects the schema layout the database is migrated to
func (tc *TestContext) WithLayout(layout schema.Layout) *TestContext {
	tc.layout = layout
	return tc
}

// WithDBName sets a custom database file name
func (tc *TestContext) WithDBName(tb testing.TB, name string) *TestContext {
	tb.Helper()
	if tc.dbName == "" {
		tc.dbName = name
	}
	return tc
}

// WithOptions sets the options the module is built with
func (tc *TestContext) WithOptions(opts configitems.Options) *TestContext {
	tc.options = opts
	return tc
}

// WithLogLevel makes the test logger write at the given level
func (tc *TestContext) WithLogLevel(level logrus.Level) *TestContext {
	tc.logLevel = level
	return tc
}

// Build creates a migrated SQLite database and the module on top of it
func (tc *TestContext) Build(tb testing.TB) *TestEnvironment {
	tb.Helper()

	if tc.dbName == "" {
		tc.dbName = tb.Name()
	}

	db := OpenTestDB(tb, filepath.Join(tb.TempDir(), sanitizeDBName(tc.dbName)+".db"))

	logger := logrus.New()
	logger.SetLevel(tc.logLevel)
	ctx := composables.WithDB(tc.ctx, db)
	ctx = composables.WithLogger(ctx, logrus.NewEntry(logger))

	if err := configitems.Migrate(ctx, db, tc.layout); err != nil {
		tb.Fatal(err)
	}

	mod, err := configitems.NewModule(ctx, db, tc.options)
	if err != nil {
		tb.Fatal(err)
	}
	if mod.Layout != tc.layout {
		tb.Fatalf("detected layout %s, migrated %s", mod.Layout, tc.layout)
	}

	return &TestEnvironment{
		Ctx:    ctx,
		DB:     db,
		Layout: tc.layout,
		Module: mod,
	}
}

// TestEnvironment contains all test dependencies
type TestEnvironment struct {
	Ctx    context.Context
	DB     *sqlx.DB
	Layout schema.Layout
	Module *configitems.Module
}

// AssertNoError fails the test if err is not nil
func (te *TestEnvironment) AssertNoError(tb testing.TB, err error) {
	tb.Helper()
	if err != nil {
		tb.Fatal(err)
	}
}

// Count returns the number of rows of a table
func (te *TestEnvironment) Count(tb testing.TB, table string) int {
	tb.Helper()
	var n int
	if err := te.DB.GetContext(te.Ctx, &n, "SELECT COUNT(*) FROM "+table); err != nil {
		tb.Fatal(err)
	}
	return n
}

// OpenTestDB opens a SQLite database file with foreign keys enforced
func OpenTestDB(tb testing.TB, path string) *sqlx.DB {
	tb.Helper()
	opts := configuration.DatabaseOptions{Driver: configuration.DriverSQLite, SQLitePath: path}
	db, err := commands.OpenDB(context.Background(), opts)
	if err != nil {
		tb.Fatal(err)
	}
	tb.Cleanup(func() {
		if err := db.Close(); err != nil {
			tb.Logf("Warning: failed to close database: %v", err)
		}
	})
	return db
}
