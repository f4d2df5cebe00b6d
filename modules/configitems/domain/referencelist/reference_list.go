package referencelist

import (
	"github.com/google/uuid"

	"github.com/iota-uz/configitems/modules/configitems/domain/configitem"
)

const ItemType = "reference-list"

// ReferenceList is one version of a reference list lineage together with the items it owns.
type ReferenceList struct {
	configitem.ConfigurationItem

	NoSelectionValue      *int64 `json:"no_selection_value,omitempty"`
	HardLinkToApplication bool   `json:"hard_link_to_application"`
	Items                 []Item `json:"items,omitempty"`
}

// New prepares version 1 of a reference list lineage.
func New(name string) *ReferenceList {
	return &ReferenceList{ConfigurationItem: configitem.NewFirstVersion(ItemType, name)}
}

func (l *ReferenceList) Config() *configitem.ConfigurationItem {
	return &l.ConfigurationItem
}

// CloneVersion returns the unsaved successor of l. Items are not carried over; callers
// that need them copy the tree explicitly with CloneItems.
func (l *ReferenceList) CloneVersion() *ReferenceList {
	next := &ReferenceList{
		ConfigurationItem:     l.NextVersion(),
		HardLinkToApplication: l.HardLinkToApplication,
	}
	if l.NoSelectionValue != nil {
		v := *l.NoSelectionValue
		next.NoSelectionValue = &v
	}
	return next
}

// Item is a single entry of a reference list. Entries form a forest through ParentID.
type Item struct {
	ID              uuid.UUID  `json:"id"`
	ReferenceListID uuid.UUID  `json:"reference_list_id"`
	ParentID        *uuid.UUID `json:"parent_id,omitempty"`
	Item            string     `json:"item"`
	ItemValue       int64      `json:"item_value"`
	OrderIndex      int64      `json:"order_index"`
	Description     string     `json:"description,omitempty"`
	Color           string     `json:"color,omitempty"`
	Icon            string     `json:"icon,omitempty"`
	ShortAlias      string     `json:"short_alias,omitempty"`
}

func NewItem(listID uuid.UUID, parentID *uuid.UUID) Item {
	return Item{ID: uuid.New(), ReferenceListID: listID, ParentID: parentID}
}
