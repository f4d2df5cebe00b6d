package services

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/sirupsen/logrus"

	"github.com/iota-uz/configitems/modules/configitems/domain/configitem"
	"github.com/iota-uz/configitems/modules/configitems/domain/distribution"
	"github.com/iota-uz/configitems/modules/configitems/domain/module"
	"github.com/iota-uz/configitems/modules/configitems/domain/referencelist"
)

// ReferenceListStore is the persistence surface used by the reference list services.
type ReferenceListStore interface {
	VersionStore[*referencelist.ReferenceList]
	ItemWriter
	FindLast(ctx context.Context, key configitem.Key) (*referencelist.ReferenceList, bool, error)
	ListLive(ctx context.Context, key configitem.Key) ([]*referencelist.ReferenceList, error)
	ListItems(ctx context.Context, listID uuid.UUID) ([]referencelist.Item, error)
	DeleteLineage(ctx context.Context, key configitem.Key) error
	Flush(ctx context.Context) error
}

type ModuleStore interface {
	FindByName(ctx context.Context, name string) (*module.Module, bool, error)
	Insert(ctx context.Context, m *module.Module) error
	List(ctx context.Context) ([]*module.Module, error)
}

// ImportContext carries the per-import choices of the caller.
type ImportContext struct {
	// ImportStatusAs overrides the status carried by the payload.
	ImportStatusAs *configitem.VersionStatus
	// CreateModules creates a missing owning module instead of failing.
	CreateModules bool
	// ImportResult tags every version created by this import.
	ImportResult *uuid.UUID
}

type ImportPath string

const (
	PathCreated   ImportPath = "created"
	PathVersioned ImportPath = "versioned"
)

// Reconciliation describes what an import did to the destination lineage.
type Reconciliation struct {
	List *referencelist.ReferenceList
	Path ImportPath
	// Previous is the last version before the import, with its items. Nil when the
	// lineage did not exist.
	Previous      *referencelist.ReferenceList
	Cancelled     int
	Retired       int
	ItemsImported int
	ModuleCreated bool
}

// ReferenceListImporter reconciles a distributed reference list with the lineage
// stored in the destination.
type ReferenceListImporter struct {
	lists    ReferenceListStore
	modules  ModuleStore
	versions *VersionManager[*referencelist.ReferenceList]
	items    *ItemTreeImporter
}

func NewReferenceListImporter(
	lists ReferenceListStore,
	modules ModuleStore,
	versions *VersionManager[*referencelist.ReferenceList],
	items *ItemTreeImporter,
) *ReferenceListImporter {
	return &ReferenceListImporter{lists: lists, modules: modules, versions: versions, items: items}
}

func (i *ReferenceListImporter) ItemType() string {
	return referencelist.ItemType
}

// ImportItem stores item as the new last version of its lineage.
func (i *ReferenceListImporter) ImportItem(ctx context.Context, item distribution.Item, ictx ImportContext) (*referencelist.ReferenceList, error) {
	rec, err := i.Reconcile(ctx, item, ictx)
	if err != nil {
		return nil, err
	}
	return rec.List, nil
}

// Reconcile runs an import and reports the path it took. It expects a transaction in
// ctx; without one every statement commits on its own.
func (i *ReferenceListImporter) Reconcile(ctx context.Context, item distribution.Item, ictx ImportContext) (*Reconciliation, error) {
	src, err := i.source(item)
	if err != nil {
		return nil, err
	}
	status := src.VersionStatus
	if ictx.ImportStatusAs != nil {
		status = *ictx.ImportStatusAs
	}
	if !status.IsValid() {
		return nil, validationError("CI_STATUS_REQUIRED",
			fmt.Sprintf("reference list %q has no version status and none was requested", src.Name), nil)
	}
	if err := i.items.Validate(src.Items); err != nil {
		return nil, err
	}

	rec := &Reconciliation{}
	mod, created, err := i.resolveModule(ctx, src.ModuleName, ictx.CreateModules)
	if err != nil {
		return nil, err
	}
	rec.ModuleCreated = created

	key := configitem.Key{ItemType: referencelist.ItemType, Name: src.Name}
	if mod != nil {
		key.Module = mod.Name
	}

	last, found, err := i.lists.FindLast(ctx, key)
	if err != nil {
		return nil, mapDBError(err)
	}
	if found {
		if rec.Previous, err = i.withItems(ctx, last); err != nil {
			return nil, err
		}
	}

	if found && last.VersionStatus.IsUnpublished() {
		if err := i.versions.CancelVersion(ctx, last); err != nil {
			return nil, err
		}
		rec.Cancelled++
		if last, found, err = i.lists.FindLast(ctx, key); err != nil {
			return nil, mapDBError(err)
		}
	}

	if status == configitem.StatusLive {
		retired, err := i.retireLive(ctx, key)
		if err != nil {
			return nil, err
		}
		rec.Retired = retired
	}

	var list *referencelist.ReferenceList
	if found {
		rec.Path = PathVersioned
		list, err = i.versions.CreateNewVersion(ctx, last, func(next *referencelist.ReferenceList) error {
			mapList(src, next, status, ictx.ImportResult)
			return nil
		})
		if err != nil {
			return nil, err
		}
	} else {
		rec.Path = PathCreated
		list = referencelist.New(src.Name)
		mapList(src, list, status, ictx.ImportResult)
		if mod != nil {
			id := mod.ID
			list.ModuleID = &id
			list.ModuleName = mod.Name
		}
		if err := i.lists.InsertVersion(ctx, list); err != nil {
			return nil, mapDBError(err)
		}
		logWithFields(ctx, logrus.InfoLevel, "version created", itemFields(list.Config()))
	}

	n, err := i.items.ImportChildren(ctx, list, src.Items)
	if err != nil {
		return nil, err
	}
	rec.ItemsImported = n
	rec.List = list
	return rec, nil
}

func (i *ReferenceListImporter) source(item distribution.Item) (*distribution.DistributedReferenceList, error) {
	if item == nil {
		return nil, validationError("CI_ITEM_REQUIRED", "nothing to import", nil)
	}
	src, ok := item.(*distribution.DistributedReferenceList)
	if !ok {
		return nil, validationError("CI_UNSUPPORTED_ITEM",
			fmt.Sprintf("%s items cannot be imported as reference lists", item.ConfigItemType()), nil)
	}
	if src == nil {
		return nil, validationError("CI_ITEM_REQUIRED", "nothing to import", nil)
	}
	if err := distribution.Validate(src); err != nil {
		return nil, validationError("CI_INVALID_ITEM", "reference list is invalid", err)
	}
	return src, nil
}

// resolveModule finds the owning module. It runs before anything else is written so
// that a missing module leaves the destination untouched.
func (i *ReferenceListImporter) resolveModule(ctx context.Context, name string, create bool) (*module.Module, bool, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, false, nil
	}
	mod, ok, err := i.modules.FindByName(ctx, name)
	if err != nil {
		return nil, false, mapDBError(err)
	}
	if ok {
		return mod, false, nil
	}
	if !create {
		msg := fmt.Sprintf("module %q is missing in the destination", name)
		if similar := i.similarModules(ctx, name); len(similar) > 0 {
			msg += fmt.Sprintf(" (did you mean %q?)", similar[0])
		}
		return nil, false, newServiceError(ErrMissingDependency, "CI_MODULE_MISSING", msg, module.ErrNotFound)
	}
	mod = module.New(name)
	if err := i.modules.Insert(ctx, mod); err != nil {
		return nil, false, mapDBError(err)
	}
	logWithFields(ctx, logrus.InfoLevel, "module created by import", logrus.Fields{"module": name})
	return mod, true, nil
}

// maxModuleDistance bounds the edit distance of a module name suggestion.
const maxModuleDistance = 2

// similarModules returns existing module names close to name, closest first. Lookup
// failures only cost the suggestion.
func (i *ReferenceListImporter) similarModules(ctx context.Context, name string) []string {
	mods, err := i.modules.List(ctx)
	if err != nil {
		logWithFields(ctx, logrus.DebugLevel, "module suggestions unavailable", logrus.Fields{"error": err.Error()})
		return nil
	}
	type candidate struct {
		name     string
		distance int
	}
	var candidates []candidate
	for _, m := range mods {
		d := fuzzy.LevenshteinDistance(strings.ToLower(name), strings.ToLower(m.Name))
		if d <= maxModuleDistance || fuzzy.MatchFold(name, m.Name) {
			candidates = append(candidates, candidate{name: m.Name, distance: d})
		}
	}
	sort.SliceStable(candidates, func(a, b int) bool { return candidates[a].distance < candidates[b].distance })
	out := make([]string, len(candidates))
	for k, c := range candidates {
		out[k] = c.name
	}
	return out
}

// retireLive retires every Live version of the lineage and flushes, so the retirements
// reach the server before a new Live version is inserted.
func (i *ReferenceListImporter) retireLive(ctx context.Context, key configitem.Key) (int, error) {
	live, err := i.lists.ListLive(ctx, key)
	if err != nil {
		return 0, mapDBError(err)
	}
	if len(live) == 0 {
		return 0, nil
	}
	for _, v := range live {
		if err := i.versions.UpdateStatus(ctx, v, configitem.StatusRetired); err != nil {
			return 0, err
		}
	}
	if err := i.lists.Flush(ctx); err != nil {
		return 0, mapDBError(err)
	}
	return len(live), nil
}

func (i *ReferenceListImporter) withItems(ctx context.Context, list *referencelist.ReferenceList) (*referencelist.ReferenceList, error) {
	items, err := i.lists.ListItems(ctx, list.ID)
	if err != nil {
		return nil, mapDBError(err)
	}
	snapshot := *list
	snapshot.Items = items
	return &snapshot, nil
}

func mapList(src *distribution.DistributedReferenceList, dst *referencelist.ReferenceList, status configitem.VersionStatus, importResult *uuid.UUID) {
	dst.Name = src.Name
	dst.Label = src.Label
	dst.ItemType = src.ConfigItemType()
	dst.Description = src.Description
	dst.VersionStatus = status
	dst.Suppress = src.Suppress
	dst.CreatedByImport = importResult
	dst.NoSelectionValue = nil
	if src.NoSelectionValue != nil {
		v := *src.NoSelectionValue
		dst.NoSelectionValue = &v
	}
}
