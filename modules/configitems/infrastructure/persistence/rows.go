package persistence

import (
	"database/sql"

	"github.com/google/uuid"

	"github.com/iota-uz/configitems/modules/configitems/domain/configitem"
	"github.com/iota-uz/configitems/modules/configitems/domain/module"
	"github.com/iota-uz/configitems/modules/configitems/domain/referencelist"
)

type referenceListRow struct {
	ID                    uuid.UUID      `db:"id"`
	OriginID              uuid.UUID      `db:"origin_id"`
	Name                  string         `db:"name"`
	Label                 sql.NullString `db:"label"`
	Description           sql.NullString `db:"description"`
	ItemType              string         `db:"item_type"`
	VersionNo             int            `db:"version_no"`
	VersionStatus         int            `db:"version_status"`
	IsLast                bool           `db:"is_last"`
	ModuleID              uuid.NullUUID  `db:"module_id"`
	ModuleName            sql.NullString `db:"module_name"`
	ParentVersionID       uuid.NullUUID  `db:"parent_version_id"`
	CreatedByImport       uuid.NullUUID  `db:"created_by_import"`
	Suppress              bool           `db:"suppress"`
	NoSelectionValue      sql.NullInt64  `db:"no_selection_value"`
	HardLinkToApplication bool           `db:"hard_link_to_application"`
}

func (r referenceListRow) toDomain() *referencelist.ReferenceList {
	return &referencelist.ReferenceList{
		ConfigurationItem: configitem.ConfigurationItem{
			ID:              r.ID,
			OriginID:        r.OriginID,
			Name:            r.Name,
			Label:           r.Label.String,
			Description:     r.Description.String,
			ItemType:        r.ItemType,
			VersionNo:       r.VersionNo,
			VersionStatus:   configitem.VersionStatus(r.VersionStatus),
			IsLast:          r.IsLast,
			ModuleID:        uuidPtr(r.ModuleID),
			ModuleName:      r.ModuleName.String,
			ParentVersionID: uuidPtr(r.ParentVersionID),
			CreatedByImport: uuidPtr(r.CreatedByImport),
			Suppress:        r.Suppress,
		},
		NoSelectionValue:      int64Ptr(r.NoSelectionValue),
		HardLinkToApplication: r.HardLinkToApplication,
	}
}

func toDomainLists(rows []referenceListRow) []*referencelist.ReferenceList {
	out := make([]*referencelist.ReferenceList, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toDomain())
	}
	return out
}

type itemRow struct {
	ID              uuid.UUID      `db:"id"`
	ReferenceListID uuid.UUID      `db:"reference_list_id"`
	ParentID        uuid.NullUUID  `db:"parent_id"`
	Item            string         `db:"item"`
	ItemValue       int64          `db:"item_value"`
	OrderIndex      int64          `db:"order_index"`
	Description     sql.NullString `db:"description"`
	Color           sql.NullString `db:"color"`
	Icon            sql.NullString `db:"icon"`
	ShortAlias      sql.NullString `db:"short_alias"`
}

func (r itemRow) toDomain() referencelist.Item {
	return referencelist.Item{
		ID:              r.ID,
		ReferenceListID: r.ReferenceListID,
		ParentID:        uuidPtr(r.ParentID),
		Item:            r.Item,
		ItemValue:       r.ItemValue,
		OrderIndex:      r.OrderIndex,
		Description:     r.Description.String,
		Color:           r.Color.String,
		Icon:            r.Icon.String,
		ShortAlias:      r.ShortAlias.String,
	}
}

type moduleRow struct {
	ID        uuid.UUID `db:"id"`
	Name      string    `db:"name"`
	IsEnabled bool      `db:"is_enabled"`
}

func (r moduleRow) toDomain() *module.Module {
	return &module.Module{ID: r.ID, Name: r.Name, IsEnabled: r.IsEnabled}
}

func uuidPtr(v uuid.NullUUID) *uuid.UUID {
	if !v.Valid {
		return nil
	}
	id := v.UUID
	return &id
}

func int64Ptr(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	n := v.Int64
	return &n
}

// Ids are bound as text so every driver stores the canonical form.
func idArg(id uuid.UUID) string {
	return id.String()
}

func nullableID(id *uuid.UUID) any {
	if id == nil {
		return nil
	}
	return id.String()
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullableInt64(v *int64) any {
	if v == nil {
		return nil
	}
	return *v
}
