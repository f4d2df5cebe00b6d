package configitems

import (
	"context"
	"embed"
	"io/fs"
	"time"

	"github.com/go-faster/errors"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"

	"github.com/iota-uz/configitems/modules/configitems/domain/referencelist"
	"github.com/iota-uz/configitems/modules/configitems/infrastructure/locking"
	"github.com/iota-uz/configitems/modules/configitems/infrastructure/persistence"
	"github.com/iota-uz/configitems/modules/configitems/infrastructure/schema"
	"github.com/iota-uz/configitems/modules/configitems/services"
	"github.com/iota-uz/configitems/pkg/composables"
)

//go:embed infrastructure/persistence/schema/legacy/*.sql infrastructure/persistence/schema/modern/*.sql
var migrationFiles embed.FS

const migrationRoot = "infrastructure/persistence/schema"

// Migrate brings db to the latest schema of the given layout.
func Migrate(ctx context.Context, db *sqlx.DB, layout schema.Layout) error {
	root, err := fs.Sub(migrationFiles, migrationRoot)
	if err != nil {
		return err
	}
	_, err = persistence.Migrate(ctx, db, layout, root)
	return err
}

type Options struct {
	// CreateModules lets imports create a missing owning module.
	CreateModules bool
	// MaxItemDepth bounds the nesting of imported items; 0 leaves it unbounded.
	MaxItemDepth int
	// Locker serializes imports of one lineage. An in-process locker is used when nil.
	Locker  locking.Locker
	LockTTL time.Duration
}

// Module wires the services for one database. The storage layout is detected once,
// when the module is built.
type Module struct {
	Layout         schema.Layout
	Gateway        *persistence.Gateway
	Modules        *persistence.ModuleRepository
	Versions       *services.VersionManager[*referencelist.ReferenceList]
	Importer       *services.ReferenceListImporter
	ReferenceLists *services.ReferenceListService
	Imports        *services.ImportService
}

func NewModule(ctx context.Context, db *sqlx.DB, opts Options) (*Module, error) {
	dialect, err := schema.DialectFor(db.DriverName())
	if err != nil {
		return nil, err
	}
	layout, err := schema.NewDetector(dialect).Detect(composables.WithDB(ctx, db))
	if err != nil {
		return nil, errors.Wrap(err, "detect schema layout")
	}
	gateway, err := persistence.NewGateway(layout)
	if err != nil {
		return nil, err
	}
	composables.UseLogger(ctx).WithFields(logrus.Fields{
		"layout": layout.String(),
		"driver": db.DriverName(),
	}).Debug("schema layout detected")

	locker := opts.Locker
	if locker == nil {
		locker = locking.NewMemoryLocker()
	}
	modules := persistence.NewModuleRepository()
	versions := services.NewVersionManager[*referencelist.ReferenceList](gateway)
	importer := services.NewReferenceListImporter(
		gateway,
		modules,
		versions,
		services.NewItemTreeImporter(gateway, opts.MaxItemDepth),
	)
	return &Module{
		Layout:         layout,
		Gateway:        gateway,
		Modules:        modules,
		Versions:       versions,
		Importer:       importer,
		ReferenceLists: services.NewReferenceListService(gateway, versions),
		Imports: services.NewImportService(importer, locker, services.ImportServiceOptions{
			CreateModules: opts.CreateModules,
			LockTTL:       opts.LockTTL,
		}),
	}, nil
}
