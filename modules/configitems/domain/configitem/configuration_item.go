package configitem

import (
	"errors"

	"github.com/google/uuid"
)

// ConfigurationItem is the versioned header shared by every distributable item kind.
type ConfigurationItem struct {
	ID              uuid.UUID     `json:"id"`
	OriginID        uuid.UUID     `json:"origin_id"`
	Name            string        `json:"name"`
	Label           string        `json:"label"`
	Description     string        `json:"description"`
	ItemType        string        `json:"item_type"`
	VersionNo       int           `json:"version_no"`
	VersionStatus   VersionStatus `json:"version_status"`
	IsLast          bool          `json:"is_last"`
	ModuleID        *uuid.UUID    `json:"module_id,omitempty"`
	ModuleName      string        `json:"module_name,omitempty"`
	ParentVersionID *uuid.UUID    `json:"parent_version_id,omitempty"`
	CreatedByImport *uuid.UUID    `json:"created_by_import,omitempty"`
	Suppress        bool          `json:"suppress"`
}

// Key identifies the lineage a version belongs to.
type Key struct {
	ItemType string
	Module   string
	Name     string
}

func (k Key) String() string {
	if k.Module == "" {
		return k.ItemType + ":" + k.Name
	}
	return k.ItemType + ":" + k.Module + "." + k.Name
}

func (c *ConfigurationItem) Key() Key {
	return Key{ItemType: c.ItemType, Module: c.ModuleName, Name: c.Name}
}

// NewFirstVersion prepares version 1 of a new lineage. The origin of a lineage is the
// id of its first version.
func NewFirstVersion(itemType, name string) ConfigurationItem {
	id := uuid.New()
	return ConfigurationItem{
		ID:        id,
		OriginID:  id,
		Name:      name,
		ItemType:  itemType,
		VersionNo: 1,
		IsLast:    true,
	}
}

// NextVersion copies the header into a successor: fresh id, same origin and module,
// version number incremented, linked to its predecessor. Status is left
// unset; whoever persists the successor decides it.
func (c ConfigurationItem) NextVersion() ConfigurationItem {
	parentID := c.ID
	next := c
	next.ID = uuid.New()
	next.VersionNo = c.VersionNo + 1
	next.ParentVersionID = &parentID
	next.VersionStatus = StatusUnknown
	next.IsLast = true
	next.CreatedByImport = nil
	if c.ModuleID != nil {
		moduleID := *c.ModuleID
		next.ModuleID = &moduleID
	}
	return next
}

// Versioned is implemented by every item kind managed by the version lifecycle.
type Versioned[T any] interface {
	Config() *ConfigurationItem
	// CloneVersion returns an unsaved successor carrying a copy of the kind-specific content.
	CloneVersion() T
}

// ErrLayoutRestriction is returned when the storage layout cannot represent the requested state.
var ErrLayoutRestriction = errors.New("not supported by the storage layout")
