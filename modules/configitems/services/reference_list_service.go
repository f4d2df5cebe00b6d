package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/iota-uz/configitems/modules/configitems/domain/configitem"
	"github.com/iota-uz/configitems/modules/configitems/domain/distribution"
	"github.com/iota-uz/configitems/modules/configitems/domain/referencelist"
	"github.com/iota-uz/configitems/pkg/composables"
)

// RawListStore edits the stored lists directly, addressed by module and list name.
// It bypasses versioning and is meant for seeding and data fixes.
type RawListStore interface {
	InsertList(ctx context.Context, moduleName, name, description string) (uuid.UUID, error)
	FindListID(ctx context.Context, moduleName, name string) (uuid.UUID, bool, error)
	UpdateListDescription(ctx context.Context, id uuid.UUID, description string) error
	UpdateListNoSelectionValue(ctx context.Context, id uuid.UUID, value *int64) error
	DeleteList(ctx context.Context, moduleName, name string) error
	FindItemID(ctx context.Context, listID uuid.UUID, itemValue int64) (uuid.UUID, bool, error)
	UpdateItemText(ctx context.Context, id uuid.UUID, text string) error
	UpdateItemDescription(ctx context.Context, id uuid.UUID, description string) error
	UpdateItemOrderIndex(ctx context.Context, id uuid.UUID, orderIndex int64) error
	DeleteItem(ctx context.Context, listID uuid.UUID, itemValue int64) error
	DeleteItems(ctx context.Context, listID uuid.UUID) error
}

type ListGateway interface {
	ReferenceListStore
	RawListStore
}

// ItemPatch lists the item fields to change; nil fields stay as they are.
type ItemPatch struct {
	Item        *string
	Description *string
	OrderIndex  *int64
}

type ReferenceListService struct {
	lists    ListGateway
	versions *VersionManager[*referencelist.ReferenceList]
	dataFix  bool
}

func NewReferenceListService(lists ListGateway, versions *VersionManager[*referencelist.ReferenceList]) *ReferenceListService {
	return &ReferenceListService{lists: lists, versions: versions}
}

// DataFix returns a copy of s whose in-place edits also reach Live and Retired versions.
// Regular edits go through CreateDraftVersion instead.
func (s *ReferenceListService) DataFix() *ReferenceListService {
	fix := *s
	fix.dataFix = true
	return &fix
}

func listKey(moduleName, name string) configitem.Key {
	return configitem.Key{
		ItemType: referencelist.ItemType,
		Module:   strings.TrimSpace(moduleName),
		Name:     name,
	}
}

// FindLast returns the last version of a list with its items.
func (s *ReferenceListService) FindLast(ctx context.Context, moduleName, name string) (*referencelist.ReferenceList, error) {
	key := listKey(moduleName, name)
	list, ok, err := s.lists.FindLast(ctx, key)
	if err != nil {
		return nil, mapDBError(err)
	}
	if !ok {
		return nil, newServiceError(ErrNotFound, "CI_LIST_NOT_FOUND", fmt.Sprintf("reference list %s not found", key), nil)
	}
	if err := s.loadItems(ctx, list); err != nil {
		return nil, err
	}
	return list, nil
}

func (s *ReferenceListService) FindVersion(ctx context.Context, id uuid.UUID) (*referencelist.ReferenceList, error) {
	list, err := s.versions.FindVersion(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.loadItems(ctx, list); err != nil {
		return nil, err
	}
	return list, nil
}

func (s *ReferenceListService) loadItems(ctx context.Context, list *referencelist.ReferenceList) error {
	items, err := s.lists.ListItems(ctx, list.ID)
	if err != nil {
		return mapDBError(err)
	}
	list.Items = items
	return nil
}

func (s *ReferenceListService) ListVersions(ctx context.Context, moduleName, name string) ([]*referencelist.ReferenceList, error) {
	versions, err := s.lists.ListVersions(ctx, listKey(moduleName, name))
	if err != nil {
		return nil, mapDBError(err)
	}
	return versions, nil
}

// Export returns the last version of a list in its distributed form.
func (s *ReferenceListService) Export(ctx context.Context, moduleName, name string) (*distribution.DistributedReferenceList, error) {
	list, err := s.FindLast(ctx, moduleName, name)
	if err != nil {
		return nil, err
	}
	return ExportList(list)
}

// ExportList converts a stored version into its distributed form. Items are nested
// under their parents and ordered by OrderIndex.
func ExportList(list *referencelist.ReferenceList) (*distribution.DistributedReferenceList, error) {
	tree, err := referencelist.BuildTree(list.ID, list.Items)
	if err != nil {
		return nil, validationError("CI_ITEM_TREE", fmt.Sprintf("items of %s are inconsistent", list.Key()), err)
	}
	out := &distribution.DistributedReferenceList{
		Name:          list.Name,
		Label:         list.Label,
		ItemType:      list.ItemType,
		Description:   list.Description,
		VersionStatus: list.VersionStatus,
		Suppress:      list.Suppress,
		ModuleName:    list.ModuleName,
		Items:         exportLevel(tree, tree.Roots()),
	}
	if list.NoSelectionValue != nil {
		v := *list.NoSelectionValue
		out.NoSelectionValue = &v
	}
	return out, nil
}

func exportLevel(tree *referencelist.Tree, ids []uuid.UUID) []distribution.DistributedReferenceListItem {
	if len(ids) == 0 {
		return nil
	}
	out := make([]distribution.DistributedReferenceListItem, 0, len(ids))
	for _, id := range ids {
		it, _ := tree.Node(id)
		orderIndex := it.OrderIndex
		out = append(out, distribution.DistributedReferenceListItem{
			Item:        it.Item,
			ItemValue:   it.ItemValue,
			OrderIndex:  &orderIndex,
			Description: it.Description,
			Color:       it.Color,
			Icon:        it.Icon,
			ShortAlias:  it.ShortAlias,
			ChildItems:  exportLevel(tree, tree.Children(id)),
		})
	}
	return out
}

// CreateDraftVersion starts a Draft on top of the last version and copies its items.
func (s *ReferenceListService) CreateDraftVersion(ctx context.Context, id uuid.UUID) (*referencelist.ReferenceList, error) {
	return composables.InTxResult(ctx, func(txCtx context.Context) (*referencelist.ReferenceList, error) {
		current, err := s.FindVersion(txCtx, id)
		if err != nil {
			return nil, err
		}
		if !current.IsLast {
			return nil, policyError("CI_NOT_LAST",
				fmt.Sprintf("version %d of %s is not the last version", current.VersionNo, current.Key()))
		}
		if current.VersionStatus.IsUnpublished() {
			return nil, policyError("CI_DRAFT_EXISTS",
				fmt.Sprintf("version %d of %s is still %s", current.VersionNo, current.Key(), current.VersionStatus))
		}
		tree, err := referencelist.BuildTree(current.ID, current.Items)
		if err != nil {
			return nil, validationError("CI_ITEM_TREE", fmt.Sprintf("items of %s are inconsistent", current.Key()), err)
		}
		next, err := s.versions.CreateNewVersion(txCtx, current, func(next *referencelist.ReferenceList) error {
			next.VersionStatus = configitem.StatusDraft
			return nil
		})
		if err != nil {
			return nil, err
		}
		for _, item := range tree.CloneItems(next.ID) {
			if err := s.lists.InsertItem(txCtx, item); err != nil {
				return nil, mapDBError(err)
			}
			next.Items = append(next.Items, item)
		}
		return next, nil
	})
}

// UpdateStatus moves a version along the status machine. A version going Live retires
// the Live version it replaces first.
func (s *ReferenceListService) UpdateStatus(ctx context.Context, id uuid.UUID, status configitem.VersionStatus) (*referencelist.ReferenceList, error) {
	return composables.InTxResult(ctx, func(txCtx context.Context) (*referencelist.ReferenceList, error) {
		list, err := s.versions.FindVersion(txCtx, id)
		if err != nil {
			return nil, err
		}
		if status == configitem.StatusLive && list.VersionStatus != configitem.StatusLive {
			if !list.VersionStatus.CanTransitionTo(status) {
				return nil, policyError("CI_ILLEGAL_TRANSITION",
					fmt.Sprintf("version %d of %s cannot move from %s to %s", list.VersionNo, list.Key(), list.VersionStatus, status))
			}
			live, err := s.lists.ListLive(txCtx, list.Key())
			if err != nil {
				return nil, mapDBError(err)
			}
			for _, v := range live {
				if err := s.versions.UpdateStatus(txCtx, v, configitem.StatusRetired); err != nil {
					return nil, err
				}
			}
			if err := s.lists.Flush(txCtx); err != nil {
				return nil, mapDBError(err)
			}
		}
		if err := s.versions.UpdateStatus(txCtx, list, status); err != nil {
			return nil, err
		}
		return list, nil
	})
}

func (s *ReferenceListService) CancelVersion(ctx context.Context, id uuid.UUID) error {
	return composables.InTx(ctx, func(txCtx context.Context) error {
		list, err := s.versions.FindVersion(txCtx, id)
		if err != nil {
			return err
		}
		return s.versions.CancelVersion(txCtx, list)
	})
}

// DeleteLineage removes every version of a list together with the items.
func (s *ReferenceListService) DeleteLineage(ctx context.Context, moduleName, name string) error {
	key := listKey(moduleName, name)
	return composables.InTx(ctx, func(txCtx context.Context) error {
		versions, err := s.lists.ListVersions(txCtx, key)
		if err != nil {
			return mapDBError(err)
		}
		if len(versions) == 0 {
			return newServiceError(ErrNotFound, "CI_LIST_NOT_FOUND", fmt.Sprintf("reference list %s not found", key), nil)
		}
		if err := s.lists.DeleteLineage(txCtx, key); err != nil {
			return mapDBError(err)
		}
		logWithFields(txCtx, logrus.InfoLevel, "reference list deleted", logrus.Fields{
			"key":      key.String(),
			"versions": len(versions),
		})
		return nil
	})
}

// CreateList stores a new list without items through the raw layout operations.
func (s *ReferenceListService) CreateList(ctx context.Context, moduleName, name, description string) (uuid.UUID, error) {
	return composables.InTxResult(ctx, func(txCtx context.Context) (uuid.UUID, error) {
		moduleName = strings.TrimSpace(moduleName)
		if _, ok, err := s.lists.FindListID(txCtx, moduleName, name); err != nil {
			return uuid.Nil, mapDBError(err)
		} else if ok {
			return uuid.Nil, newServiceError(ErrConflict, "CI_LIST_EXISTS",
				fmt.Sprintf("reference list %s already exists", listKey(moduleName, name)), nil)
		}
		id, err := s.lists.InsertList(txCtx, moduleName, name, description)
		if err != nil {
			return uuid.Nil, mapDBError(err)
		}
		return id, nil
	})
}

func (s *ReferenceListService) SetDescription(ctx context.Context, moduleName, name, description string) error {
	return s.withListID(ctx, moduleName, name, func(txCtx context.Context, id uuid.UUID) error {
		return s.lists.UpdateListDescription(txCtx, id, description)
	})
}

func (s *ReferenceListService) SetNoSelectionValue(ctx context.Context, moduleName, name string, value *int64) error {
	return s.withListID(ctx, moduleName, name, func(txCtx context.Context, id uuid.UUID) error {
		return s.lists.UpdateListNoSelectionValue(txCtx, id, value)
	})
}

// DeleteList removes a list through the raw layout operations. Deleting is allowed in
// any status.
func (s *ReferenceListService) DeleteList(ctx context.Context, moduleName, name string) error {
	return composables.InTx(ctx, func(txCtx context.Context) error {
		if _, err := s.findLastHeader(txCtx, moduleName, name); err != nil {
			return err
		}
		return mapDBError(s.lists.DeleteList(txCtx, strings.TrimSpace(moduleName), name))
	})
}

// AddItem adds an item to the last version of a list, under the item holding
// parentValue when one is given.
func (s *ReferenceListService) AddItem(ctx context.Context, moduleName, name string, parentValue *int64, item referencelist.Item) (referencelist.Item, error) {
	err := s.withListID(ctx, moduleName, name, func(txCtx context.Context, listID uuid.UUID) error {
		if _, exists, err := s.lists.FindItemID(txCtx, listID, item.ItemValue); err != nil {
			return err
		} else if exists {
			return newServiceError(ErrConflict, "CI_ITEM_EXISTS",
				fmt.Sprintf("item value %d already exists in %s", item.ItemValue, listKey(moduleName, name)), nil)
		}
		item.ID = uuid.New()
		item.ReferenceListID = listID
		item.ParentID = nil
		if parentValue != nil {
			parentID, ok, err := s.lists.FindItemID(txCtx, listID, *parentValue)
			if err != nil {
				return err
			}
			if !ok {
				return newServiceError(ErrNotFound, "CI_ITEM_NOT_FOUND",
					fmt.Sprintf("parent item value %d not found in %s", *parentValue, listKey(moduleName, name)), nil)
			}
			item.ParentID = &parentID
		}
		return s.lists.InsertItem(txCtx, item)
	})
	if err != nil {
		return referencelist.Item{}, err
	}
	return item, nil
}

func (s *ReferenceListService) UpdateItem(ctx context.Context, moduleName, name string, itemValue int64, patch ItemPatch) error {
	return s.withItemID(ctx, moduleName, name, itemValue, func(txCtx context.Context, id uuid.UUID) error {
		if patch.Item != nil {
			if err := s.lists.UpdateItemText(txCtx, id, *patch.Item); err != nil {
				return err
			}
		}
		if patch.Description != nil {
			if err := s.lists.UpdateItemDescription(txCtx, id, *patch.Description); err != nil {
				return err
			}
		}
		if patch.OrderIndex != nil {
			return s.lists.UpdateItemOrderIndex(txCtx, id, *patch.OrderIndex)
		}
		return nil
	})
}

// RemoveItem deletes an item and everything nested under it.
func (s *ReferenceListService) RemoveItem(ctx context.Context, moduleName, name string, itemValue int64) error {
	return s.withListID(ctx, moduleName, name, func(txCtx context.Context, listID uuid.UUID) error {
		return s.lists.DeleteItem(txCtx, listID, itemValue)
	})
}

// ClearItems removes every item of the last version of a list.
func (s *ReferenceListService) ClearItems(ctx context.Context, moduleName, name string) error {
	return s.withListID(ctx, moduleName, name, func(txCtx context.Context, listID uuid.UUID) error {
		return s.lists.DeleteItems(txCtx, listID)
	})
}

func (s *ReferenceListService) findLastHeader(ctx context.Context, moduleName, name string) (*referencelist.ReferenceList, error) {
	key := listKey(moduleName, name)
	list, ok, err := s.lists.FindLast(ctx, key)
	if err != nil {
		return nil, mapDBError(err)
	}
	if !ok {
		return nil, newServiceError(ErrNotFound, "CI_LIST_NOT_FOUND", fmt.Sprintf("reference list %s not found", key), nil)
	}
	return list, nil
}

// withListID runs fn against the last version of a list. Live and Retired versions are
// frozen unless s is a data fix service.
func (s *ReferenceListService) withListID(ctx context.Context, moduleName, name string, fn func(context.Context, uuid.UUID) error) error {
	return composables.InTx(ctx, func(txCtx context.Context) error {
		list, err := s.findLastHeader(txCtx, moduleName, name)
		if err != nil {
			return err
		}
		if !s.dataFix && !list.VersionStatus.IsUnpublished() {
			return policyError("CI_VERSION_FROZEN",
				fmt.Sprintf("version %d of %s is %s and cannot be edited; create a draft version first",
					list.VersionNo, list.Key(), list.VersionStatus))
		}
		return mapDBError(fn(txCtx, list.ID))
	})
}

func (s *ReferenceListService) withItemID(ctx context.Context, moduleName, name string, itemValue int64, fn func(context.Context, uuid.UUID) error) error {
	return s.withListID(ctx, moduleName, name, func(txCtx context.Context, listID uuid.UUID) error {
		id, ok, err := s.lists.FindItemID(txCtx, listID, itemValue)
		if err != nil {
			return err
		}
		if !ok {
			return newServiceError(ErrNotFound, "CI_ITEM_NOT_FOUND",
				fmt.Sprintf("item value %d not found in %s", itemValue, listKey(moduleName, name)), nil)
		}
		return fn(txCtx, id)
	})
}
