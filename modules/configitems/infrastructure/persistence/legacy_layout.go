package persistence

import (
	"context"
	"strings"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/iota-uz/configitems/modules/configitems/domain/configitem"
	"github.com/iota-uz/configitems/modules/configitems/domain/referencelist"
)

// legacyLayout keeps one flat reference_lists row per namespace and name. The row has
// no version columns: it always reads back as version 1, Live and last. Only Live
// content can be written and retiring a row removes it, items included.
type legacyLayout struct{}

const legacySelect = `
SELECT
	rl.id,
	rl.id AS origin_id,
	rl.name,
	rl.name AS label,
	rl.description,
	'reference-list' AS item_type,
	1 AS version_no,
	3 AS version_status,
	TRUE AS is_last,
	m.id AS module_id,
	NULLIF(rl.namespace, '') AS module_name,
	NULL AS parent_version_id,
	NULL AS created_by_import,
	FALSE AS suppress,
	rl.no_selection_value,
	rl.hard_link_to_application
FROM reference_lists rl
LEFT JOIN modules m ON m.name = rl.namespace`

func (legacyLayout) selectLists(ctx context.Context, q sqlx.ExtContext, filter listFilter) ([]referenceListRow, error) {
	if filter.status != configitem.StatusUnknown && filter.status != configitem.StatusLive {
		return nil, nil
	}
	conds := []string{"1 = 1"}
	var args []any
	if filter.id != nil {
		conds = append(conds, "rl.id = ?")
		args = append(args, idArg(*filter.id))
	}
	if filter.key != nil {
		if filter.key.ItemType != referencelist.ItemType {
			return nil, nil
		}
		conds = append(conds, "rl.namespace = ?", "rl.name = ?")
		args = append(args, filter.key.Module, filter.key.Name)
	}
	query := legacySelect + "\nWHERE " + strings.Join(conds, " AND ")

	var rows []referenceListRow
	if err := sqlx.SelectContext(ctx, q, &rows, q.Rebind(query), args...); err != nil {
		return nil, err
	}
	return rows, nil
}

func (legacyLayout) insertList(ctx context.Context, q sqlx.ExtContext, moduleName, name, description string) (uuid.UUID, error) {
	id := uuid.New()
	_, err := q.ExecContext(ctx, q.Rebind(`
INSERT INTO reference_lists (id, namespace, name, description, hard_link_to_application)
VALUES (?, ?, ?, ?, ?)`), idArg(id), moduleName, name, nullableString(description), false)
	if err != nil {
		return uuid.Nil, errors.Wrap(err, "insert reference list")
	}
	return id, nil
}

func (legacyLayout) updateListDescription(ctx context.Context, q sqlx.ExtContext, id uuid.UUID, description string) error {
	res, err := q.ExecContext(ctx, q.Rebind(`UPDATE reference_lists SET description = ? WHERE id = ?`), nullableString(description), idArg(id))
	if err != nil {
		return err
	}
	return expectOne(res)
}

func (legacyLayout) findListID(ctx context.Context, q sqlx.ExtContext, moduleName, name string) (uuid.UUID, bool, error) {
	var ids []uuid.UUID
	err := sqlx.SelectContext(ctx, q, &ids, q.Rebind(`SELECT id FROM reference_lists WHERE namespace = ? AND name = ?`), moduleName, name)
	if err != nil {
		return uuid.Nil, false, err
	}
	if len(ids) == 0 {
		return uuid.Nil, false, nil
	}
	return ids[0], true, nil
}

// Items cascade with the list row.
func (legacyLayout) deleteLineage(ctx context.Context, q sqlx.ExtContext, key configitem.Key) error {
	if key.ItemType != referencelist.ItemType {
		return nil
	}
	if _, err := q.ExecContext(ctx, q.Rebind(`DELETE FROM reference_lists WHERE namespace = ? AND name = ?`), key.Module, key.Name); err != nil {
		return errors.Wrap(err, "delete reference list")
	}
	return nil
}

func (legacyLayout) deleteVersion(ctx context.Context, q sqlx.ExtContext, id uuid.UUID) error {
	if _, err := q.ExecContext(ctx, q.Rebind(`DELETE FROM reference_lists WHERE id = ?`), idArg(id)); err != nil {
		return errors.Wrap(err, "delete reference list")
	}
	return nil
}

func (legacyLayout) insertVersion(ctx context.Context, q sqlx.ExtContext, list *referencelist.ReferenceList) error {
	ci := list.Config()
	if ci.VersionStatus != configitem.StatusLive {
		return errors.Wrapf(configitem.ErrLayoutRestriction, "legacy reference lists are always Live, cannot store %s", ci.VersionStatus)
	}
	_, err := q.ExecContext(ctx, q.Rebind(`
INSERT INTO reference_lists (id, namespace, name, description, no_selection_value, hard_link_to_application)
VALUES (?, ?, ?, ?, ?, ?)`),
		idArg(ci.ID), ci.ModuleName, ci.Name, nullableString(ci.Description),
		nullableInt64(list.NoSelectionValue), list.HardLinkToApplication,
	)
	if err != nil {
		return errors.Wrap(err, "insert reference list")
	}
	readAsStored(ci)
	return nil
}

// readAsStored resets the header fields the flat row cannot hold to the values the row
// reads back with.
func readAsStored(ci *configitem.ConfigurationItem) {
	ci.OriginID = ci.ID
	ci.Label = ci.Name
	ci.ItemType = referencelist.ItemType
	ci.VersionNo = 1
	ci.IsLast = true
	ci.ParentVersionID = nil
	ci.CreatedByImport = nil
	ci.Suppress = false
}

// The flat table keeps no history: a retired row is removed, a Live row stays as is.
func (l legacyLayout) updateStatus(ctx context.Context, q sqlx.ExtContext, id uuid.UUID, status configitem.VersionStatus) error {
	switch status {
	case configitem.StatusLive:
		return nil
	case configitem.StatusRetired:
		return l.deleteVersion(ctx, q, id)
	default:
		return errors.Wrapf(configitem.ErrLayoutRestriction, "legacy reference lists cannot become %s", status)
	}
}

func (legacyLayout) setLast(context.Context, sqlx.ExtContext, uuid.UUID, bool) error {
	return nil
}
