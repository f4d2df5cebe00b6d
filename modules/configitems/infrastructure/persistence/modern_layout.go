package persistence

import (
	"context"
	"database/sql"
	"strings"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/iota-uz/configitems/modules/configitems/domain/configitem"
	"github.com/iota-uz/configitems/modules/configitems/domain/module"
	"github.com/iota-uz/configitems/modules/configitems/domain/referencelist"
)

// modernLayout stores the versioned header in configuration_items and the list
// specific columns in reference_lists, sharing one id.
type modernLayout struct{}

const modernSelect = `
SELECT
	ci.id,
	ci.origin_id,
	ci.name,
	ci.label,
	ci.description,
	ci.item_type,
	ci.version_no,
	ci.version_status,
	ci.is_last,
	ci.module_id,
	m.name AS module_name,
	ci.parent_version_id,
	ci.created_by_import,
	ci.suppress,
	rl.no_selection_value,
	rl.hard_link_to_application
FROM configuration_items ci
JOIN reference_lists rl ON rl.id = ci.id
LEFT JOIN modules m ON m.id = ci.module_id`

// lineageIDs selects the configuration item ids of every version of a lineage.
func lineageIDs(key configitem.Key) (string, []any) {
	var b strings.Builder
	b.WriteString(`SELECT ci.id FROM configuration_items ci WHERE ci.item_type = ? AND ci.name = ? AND `)
	args := []any{key.ItemType, key.Name}
	if key.Module == "" {
		b.WriteString(`ci.module_id IS NULL`)
	} else {
		b.WriteString(`ci.module_id = (SELECT m.id FROM modules m WHERE m.name = ?)`)
		args = append(args, key.Module)
	}
	return b.String(), args
}

func (modernLayout) selectLists(ctx context.Context, q sqlx.ExtContext, filter listFilter) ([]referenceListRow, error) {
	conds := []string{"ci.item_type = ?"}
	args := []any{referencelist.ItemType}
	if filter.id != nil {
		conds = append(conds, "ci.id = ?")
		args = append(args, idArg(*filter.id))
	}
	if filter.key != nil {
		conds = append(conds, "ci.name = ?")
		args = append(args, filter.key.Name)
		if filter.key.Module == "" {
			conds = append(conds, "ci.module_id IS NULL")
		} else {
			conds = append(conds, "m.name = ?")
			args = append(args, filter.key.Module)
		}
	}
	if filter.lastOnly {
		conds = append(conds, "ci.is_last = TRUE")
	}
	if filter.status != configitem.StatusUnknown {
		conds = append(conds, "ci.version_status = ?")
		args = append(args, int(filter.status))
	}
	query := modernSelect + "\nWHERE " + strings.Join(conds, " AND ") + "\nORDER BY ci.version_no ASC"

	var rows []referenceListRow
	if err := sqlx.SelectContext(ctx, q, &rows, q.Rebind(query), args...); err != nil {
		return nil, err
	}
	return rows, nil
}

func (l modernLayout) insertList(ctx context.Context, q sqlx.ExtContext, moduleName, name, description string) (uuid.UUID, error) {
	list := referencelist.New(name)
	list.Label = name
	list.Description = description
	list.VersionStatus = configitem.StatusLive
	list.ModuleName = moduleName
	if moduleName != "" {
		var moduleID uuid.UUID
		err := sqlx.GetContext(ctx, q, &moduleID, q.Rebind(`SELECT id FROM modules WHERE name = ?`), moduleName)
		if errors.Is(err, sql.ErrNoRows) {
			return uuid.Nil, errors.Wrapf(module.ErrNotFound, "module %q", moduleName)
		}
		if err != nil {
			return uuid.Nil, err
		}
		list.ModuleID = &moduleID
	}
	if err := l.insertVersion(ctx, q, list); err != nil {
		return uuid.Nil, err
	}
	return list.ID, nil
}

func (modernLayout) updateListDescription(ctx context.Context, q sqlx.ExtContext, id uuid.UUID, description string) error {
	res, err := q.ExecContext(ctx, q.Rebind(`
UPDATE configuration_items
SET description = ?
WHERE id = ? AND id IN (SELECT rl.id FROM reference_lists rl)`), nullableString(description), idArg(id))
	if err != nil {
		return err
	}
	return expectOne(res)
}

func (l modernLayout) findListID(ctx context.Context, q sqlx.ExtContext, moduleName, name string) (uuid.UUID, bool, error) {
	key := configitem.Key{ItemType: referencelist.ItemType, Module: moduleName, Name: name}
	rows, err := l.selectLists(ctx, q, listFilter{key: &key, lastOnly: true})
	if err != nil {
		return uuid.Nil, false, err
	}
	if len(rows) == 0 {
		return uuid.Nil, false, nil
	}
	return rows[0].ID, true, nil
}

// Items reference their parent without cascading, so the lineage is removed bottom up:
// parent links first, then items, list rows and finally the configuration items.
func (modernLayout) deleteLineage(ctx context.Context, q sqlx.ExtContext, key configitem.Key) error {
	ids, args := lineageIDs(key)
	return execAll(ctx, q, []statement{
		{"detach item parents", `UPDATE reference_list_items SET parent_id = NULL WHERE reference_list_id IN (` + ids + `)`, args},
		{"delete items", `DELETE FROM reference_list_items WHERE reference_list_id IN (` + ids + `)`, args},
		{"delete reference lists", `DELETE FROM reference_lists WHERE id IN (` + ids + `)`, args},
		{"delete configuration items", `DELETE FROM configuration_items WHERE id IN (` + ids + `)`, args},
	})
}

func (modernLayout) deleteVersion(ctx context.Context, q sqlx.ExtContext, id uuid.UUID) error {
	arg := []any{idArg(id)}
	return execAll(ctx, q, []statement{
		{"detach item parents", `UPDATE reference_list_items SET parent_id = NULL WHERE reference_list_id = ?`, arg},
		{"delete items", `DELETE FROM reference_list_items WHERE reference_list_id = ?`, arg},
		{"delete reference list", `DELETE FROM reference_lists WHERE id = ?`, arg},
		{"delete configuration item", `DELETE FROM configuration_items WHERE id = ?`, arg},
	})
}

// insertVersion writes the configuration item row before the reference list row that
// points at it.
func (modernLayout) insertVersion(ctx context.Context, q sqlx.ExtContext, list *referencelist.ReferenceList) error {
	ci := list.Config()
	return execAll(ctx, q, []statement{
		{"insert configuration item", `
INSERT INTO configuration_items (
	id, origin_id, name, label, description, item_type, version_no, version_status,
	is_last, module_id, parent_version_id, created_by_import, suppress
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, []any{
			idArg(ci.ID), idArg(ci.OriginID), ci.Name, nullableString(ci.Label), nullableString(ci.Description),
			ci.ItemType, ci.VersionNo, int(ci.VersionStatus), ci.IsLast, nullableID(ci.ModuleID),
			nullableID(ci.ParentVersionID), nullableID(ci.CreatedByImport), ci.Suppress,
		}},
		{"insert reference list", `
INSERT INTO reference_lists (id, no_selection_value, hard_link_to_application) VALUES (?, ?, ?)`, []any{
			idArg(ci.ID), nullableInt64(list.NoSelectionValue), list.HardLinkToApplication,
		}},
	})
}

func (modernLayout) updateStatus(ctx context.Context, q sqlx.ExtContext, id uuid.UUID, status configitem.VersionStatus) error {
	res, err := q.ExecContext(ctx, q.Rebind(`UPDATE configuration_items SET version_status = ? WHERE id = ?`), int(status), idArg(id))
	if err != nil {
		return errors.Wrap(err, "update version status")
	}
	return expectOne(res)
}

func (modernLayout) setLast(ctx context.Context, q sqlx.ExtContext, id uuid.UUID, isLast bool) error {
	res, err := q.ExecContext(ctx, q.Rebind(`UPDATE configuration_items SET is_last = ? WHERE id = ?`), isLast, idArg(id))
	if err != nil {
		return errors.Wrap(err, "update is_last")
	}
	return expectOne(res)
}
