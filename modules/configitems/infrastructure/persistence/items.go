package persistence

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/iota-uz/configitems/modules/configitems/domain/referencelist"
	"github.com/iota-uz/configitems/pkg/composables"
)

// Item statements are identical in both layouts.

func (g *Gateway) InsertItem(ctx context.Context, item referencelist.Item) error {
	_, err := exec(ctx, `
INSERT INTO reference_list_items (
	id, reference_list_id, parent_id, item, item_value, order_index,
	description, color, icon, short_alias, hard_link_to_application
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		idArg(item.ID), idArg(item.ReferenceListID), nullableID(item.ParentID), item.Item, item.ItemValue,
		item.OrderIndex, nullableString(item.Description), nullableString(item.Color),
		nullableString(item.Icon), nullableString(item.ShortAlias), false,
	)
	if err != nil {
		return errors.Wrapf(err, "insert reference list item %q", item.Item)
	}
	return nil
}

// ListItems returns the items of a list, parents are linked by ParentID.
func (g *Gateway) ListItems(ctx context.Context, listID uuid.UUID) ([]referencelist.Item, error) {
	q, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	var rows []itemRow
	err = sqlx.SelectContext(ctx, q, &rows, q.Rebind(`
SELECT id, reference_list_id, parent_id, item, item_value, order_index, description, color, icon, short_alias
FROM reference_list_items
WHERE reference_list_id = ?
ORDER BY order_index ASC, item_value ASC`), idArg(listID))
	if err != nil {
		return nil, errors.Wrap(err, "select reference list items")
	}
	out := make([]referencelist.Item, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toDomain())
	}
	return out, nil
}

func (g *Gateway) FindItemID(ctx context.Context, listID uuid.UUID, itemValue int64) (uuid.UUID, bool, error) {
	q, err := composables.UseTx(ctx)
	if err != nil {
		return uuid.Nil, false, err
	}
	var ids []uuid.UUID
	err = sqlx.SelectContext(ctx, q, &ids, q.Rebind(`
SELECT id FROM reference_list_items WHERE reference_list_id = ? AND item_value = ?`), idArg(listID), itemValue)
	if err != nil {
		return uuid.Nil, false, err
	}
	if len(ids) == 0 {
		return uuid.Nil, false, nil
	}
	return ids[0], true, nil
}

func (g *Gateway) UpdateItemText(ctx context.Context, id uuid.UUID, text string) error {
	return execOne(ctx, `UPDATE reference_list_items SET item = ? WHERE id = ?`, text, idArg(id))
}

func (g *Gateway) UpdateItemDescription(ctx context.Context, id uuid.UUID, description string) error {
	return execOne(ctx, `UPDATE reference_list_items SET description = ? WHERE id = ?`, nullableString(description), idArg(id))
}

func (g *Gateway) UpdateItemOrderIndex(ctx context.Context, id uuid.UUID, orderIndex int64) error {
	return execOne(ctx, `UPDATE reference_list_items SET order_index = ? WHERE id = ?`, orderIndex, idArg(id))
}

// DeleteItems removes every item of a list.
func (g *Gateway) DeleteItems(ctx context.Context, listID uuid.UUID) error {
	q, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	arg := []any{idArg(listID)}
	return execAll(ctx, q, []statement{
		{"detach item parents", `UPDATE reference_list_items SET parent_id = NULL WHERE reference_list_id = ?`, arg},
		{"delete items", `DELETE FROM reference_list_items WHERE reference_list_id = ?`, arg},
	})
}

// DeleteItem removes the item holding itemValue together with its descendants.
func (g *Gateway) DeleteItem(ctx context.Context, listID uuid.UUID, itemValue int64) error {
	q, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	var ids []string
	err = sqlx.SelectContext(ctx, q, &ids, q.Rebind(`
WITH RECURSIVE subtree (id) AS (
	SELECT id FROM reference_list_items WHERE reference_list_id = ? AND item_value = ?
	UNION ALL
	SELECT c.id FROM reference_list_items c JOIN subtree s ON c.parent_id = s.id
)
SELECT id FROM subtree`), idArg(listID), itemValue)
	if err != nil {
		return errors.Wrap(err, "select item subtree")
	}
	if len(ids) == 0 {
		return nil
	}

	steps := make([]statement, 0, 2)
	for _, tmpl := range []struct{ name, query string }{
		{"detach subtree", `UPDATE reference_list_items SET parent_id = NULL WHERE id IN (?)`},
		{"delete subtree", `DELETE FROM reference_list_items WHERE id IN (?)`},
	} {
		query, args, err := sqlx.In(tmpl.query, ids)
		if err != nil {
			return err
		}
		steps = append(steps, statement{tmpl.name, query, args})
	}
	return execAll(ctx, q, steps)
}
