package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/iota-uz/configitems/modules/configitems/domain/distribution"
	"github.com/iota-uz/configitems/modules/configitems/domain/referencelist"
)

type ItemWriter interface {
	InsertItem(ctx context.Context, item referencelist.Item) error
}

// ItemTreeImporter writes a forest of distributed items under a list version.
// A MaxDepth of 0 leaves the depth unbounded.
type ItemTreeImporter struct {
	items    ItemWriter
	maxDepth int
}

func NewItemTreeImporter(items ItemWriter, maxDepth int) *ItemTreeImporter {
	return &ItemTreeImporter{items: items, maxDepth: maxDepth}
}

// Validate rejects a forest deeper than the configured limit.
func (i *ItemTreeImporter) Validate(items []distribution.DistributedReferenceListItem) error {
	if i.maxDepth <= 0 {
		return nil
	}
	src := distribution.DistributedReferenceList{Items: items}
	if depth := src.Depth(); depth > i.maxDepth {
		return validationError("CI_ITEMS_TOO_DEEP",
			fmt.Sprintf("items are nested %d levels deep, at most %d allowed", depth, i.maxDepth), nil)
	}
	return nil
}

// ImportChildren inserts items depth-first so that every parent exists before its
// children. The inserted items are appended to list.Items; the count is returned.
func (i *ItemTreeImporter) ImportChildren(
	ctx context.Context,
	list *referencelist.ReferenceList,
	items []distribution.DistributedReferenceListItem,
) (int, error) {
	if err := i.Validate(items); err != nil {
		return 0, err
	}
	n, err := i.importLevel(ctx, list, items, nil)
	listItemsImported.Add(float64(n))
	if err != nil {
		return n, err
	}
	if n > 0 {
		logWithFields(ctx, logrus.DebugLevel, "reference list items imported", logrus.Fields{
			"list_id": list.ID,
			"items":   n,
		})
	}
	return n, nil
}

func (i *ItemTreeImporter) importLevel(
	ctx context.Context,
	list *referencelist.ReferenceList,
	items []distribution.DistributedReferenceListItem,
	parentID *uuid.UUID,
) (int, error) {
	n := 0
	for pos := range items {
		src := &items[pos]
		item := referencelist.NewItem(list.ID, parentID)
		mapItem(src, &item, pos)
		if err := i.items.InsertItem(ctx, item); err != nil {
			return n, mapDBError(err)
		}
		list.Items = append(list.Items, item)
		n++

		if len(src.ChildItems) == 0 {
			continue
		}
		id := item.ID
		written, err := i.importLevel(ctx, list, src.ChildItems, &id)
		n += written
		if err != nil {
			return n, err
		}
	}
	return n, nil
}

func mapItem(src *distribution.DistributedReferenceListItem, dst *referencelist.Item, pos int) {
	dst.Item = src.Item
	dst.ItemValue = src.ItemValue
	dst.OrderIndex = int64(pos)
	if src.OrderIndex != nil {
		dst.OrderIndex = *src.OrderIndex
	}
	dst.Description = src.Description
	dst.Color = src.Color
	dst.Icon = src.Icon
	dst.ShortAlias = src.ShortAlias
}
