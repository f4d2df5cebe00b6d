package distribution

import (
	"github.com/iota-uz/configitems/modules/configitems/domain/configitem"
)

// Item is a configuration item in its transport form.
type Item interface {
	ConfigItemType() string
	ConfigItemName() string
	ConfigModuleName() string
}

type DistributedReferenceList struct {
	Name             string                         `json:"name" yaml:"name" toml:"name" validate:"required,max=255"`
	Label            string                         `json:"label" yaml:"label" toml:"label" validate:"max=255"`
	ItemType         string                         `json:"itemType" yaml:"itemType" toml:"itemType"`
	Description      string                         `json:"description" yaml:"description" toml:"description"`
	VersionStatus    configitem.VersionStatus       `json:"versionStatus" yaml:"versionStatus" toml:"versionStatus"`
	Suppress         bool                           `json:"suppress" yaml:"suppress" toml:"suppress"`
	ModuleName       string                         `json:"moduleName" yaml:"moduleName" toml:"moduleName" validate:"max=255"`
	NoSelectionValue *int64                         `json:"noSelectionValue,omitempty" yaml:"noSelectionValue,omitempty" toml:"noSelectionValue,omitempty"`
	Items            []DistributedReferenceListItem `json:"items" yaml:"items" toml:"items" validate:"dive"`
}

func (d *DistributedReferenceList) ConfigItemType() string {
	if d.ItemType == "" {
		return ItemTypeReferenceList
	}
	return d.ItemType
}

func (d *DistributedReferenceList) ConfigItemName() string   { return d.Name }
func (d *DistributedReferenceList) ConfigModuleName() string { return d.ModuleName }

// Depth returns the number of item levels; a list without items has depth 0.
func (d *DistributedReferenceList) Depth() int {
	return forestDepth(d.Items)
}

// Count returns the number of items across all levels.
func (d *DistributedReferenceList) Count() int {
	return forestCount(d.Items)
}

type DistributedReferenceListItem struct {
	Item        string `json:"item" yaml:"item" toml:"item" validate:"required,max=300"`
	ItemValue   int64  `json:"itemValue" yaml:"itemValue" toml:"itemValue"`
	OrderIndex  *int64 `json:"orderIndex,omitempty" yaml:"orderIndex,omitempty" toml:"orderIndex,omitempty"`
	Description string `json:"description,omitempty" yaml:"description,omitempty" toml:"description,omitempty"`
	Color       string `json:"color,omitempty" yaml:"color,omitempty" toml:"color,omitempty" validate:"max=50"`
	Icon        string `json:"icon,omitempty" yaml:"icon,omitempty" toml:"icon,omitempty" validate:"max=50"`
	ShortAlias  string `json:"shortAlias,omitempty" yaml:"shortAlias,omitempty" toml:"shortAlias,omitempty" validate:"max=50"`

	ChildItems []DistributedReferenceListItem `json:"childItems,omitempty" yaml:"childItems,omitempty" toml:"childItems,omitempty" validate:"dive"`
}

const ItemTypeReferenceList = "reference-list"

func forestDepth(items []DistributedReferenceListItem) int {
	deepest := 0
	for i := range items {
		if d := forestDepth(items[i].ChildItems); d > deepest {
			deepest = d
		}
	}
	if len(items) == 0 {
		return 0
	}
	return deepest + 1
}

func forestCount(items []DistributedReferenceListItem) int {
	n := len(items)
	for i := range items {
		n += forestCount(items[i].ChildItems)
	}
	return n
}
