package persistence

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/iota-uz/configitems/modules/configitems/domain/configitem"
	"github.com/iota-uz/configitems/modules/configitems/domain/referencelist"
	"github.com/iota-uz/configitems/modules/configitems/infrastructure/schema"
	"github.com/iota-uz/configitems/pkg/composables"
)

// layoutStrategy holds every statement whose text depends on the physical layout.
// Gateway is the only place that chooses between implementations.
type layoutStrategy interface {
	insertList(ctx context.Context, q sqlx.ExtContext, moduleName, name, description string) (uuid.UUID, error)
	updateListDescription(ctx context.Context, q sqlx.ExtContext, id uuid.UUID, description string) error
	findListID(ctx context.Context, q sqlx.ExtContext, moduleName, name string) (uuid.UUID, bool, error)
	deleteLineage(ctx context.Context, q sqlx.ExtContext, key configitem.Key) error

	selectLists(ctx context.Context, q sqlx.ExtContext, filter listFilter) ([]referenceListRow, error)
	insertVersion(ctx context.Context, q sqlx.ExtContext, list *referencelist.ReferenceList) error
	updateStatus(ctx context.Context, q sqlx.ExtContext, id uuid.UUID, status configitem.VersionStatus) error
	setLast(ctx context.Context, q sqlx.ExtContext, id uuid.UUID, isLast bool) error
	deleteVersion(ctx context.Context, q sqlx.ExtContext, id uuid.UUID) error
}

type listFilter struct {
	id       *uuid.UUID
	key      *configitem.Key
	lastOnly bool
	status   configitem.VersionStatus
}

// Gateway executes reference list statements for the layout detected at startup.
// Statements run on the transaction carried by the context when there is one.
type Gateway struct {
	layout   schema.Layout
	strategy layoutStrategy
}

func NewGateway(layout schema.Layout) (*Gateway, error) {
	switch layout {
	case schema.LayoutLegacy:
		return &Gateway{layout: layout, strategy: legacyLayout{}}, nil
	case schema.LayoutModern:
		return &Gateway{layout: layout, strategy: modernLayout{}}, nil
	default:
		return nil, fmt.Errorf("unsupported schema layout %s", layout)
	}
}

func (g *Gateway) Layout() schema.Layout {
	return g.layout
}

// InsertList creates a Live reference list with no items and returns its id.
func (g *Gateway) InsertList(ctx context.Context, moduleName, name, description string) (uuid.UUID, error) {
	q, err := composables.UseTx(ctx)
	if err != nil {
		return uuid.Nil, err
	}
	return g.strategy.insertList(ctx, q, moduleName, name, description)
}

func (g *Gateway) UpdateListDescription(ctx context.Context, id uuid.UUID, description string) error {
	q, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	return g.strategy.updateListDescription(ctx, q, id, description)
}

func (g *Gateway) UpdateListNoSelectionValue(ctx context.Context, id uuid.UUID, value *int64) error {
	return execOne(ctx, `UPDATE reference_lists SET no_selection_value = ? WHERE id = ?`, nullableInt64(value), idArg(id))
}

// FindListID resolves the id of the current list for a module and name.
func (g *Gateway) FindListID(ctx context.Context, moduleName, name string) (uuid.UUID, bool, error) {
	q, err := composables.UseTx(ctx)
	if err != nil {
		return uuid.Nil, false, err
	}
	return g.strategy.findListID(ctx, q, moduleName, name)
}

// DeleteList removes every version of the list together with all of its items.
func (g *Gateway) DeleteList(ctx context.Context, moduleName, name string) error {
	return g.DeleteLineage(ctx, configitem.Key{ItemType: referencelist.ItemType, Module: moduleName, Name: name})
}

func (g *Gateway) DeleteLineage(ctx context.Context, key configitem.Key) error {
	q, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	return g.strategy.deleteLineage(ctx, q, key)
}

// FindLast returns the last version of the lineage.
func (g *Gateway) FindLast(ctx context.Context, key configitem.Key) (*referencelist.ReferenceList, bool, error) {
	return g.findOne(ctx, listFilter{key: &key, lastOnly: true})
}

func (g *Gateway) FindByID(ctx context.Context, id uuid.UUID) (*referencelist.ReferenceList, bool, error) {
	return g.findOne(ctx, listFilter{id: &id})
}

// ListLive returns every Live version of the lineage.
func (g *Gateway) ListLive(ctx context.Context, key configitem.Key) ([]*referencelist.ReferenceList, error) {
	return g.list(ctx, listFilter{key: &key, status: configitem.StatusLive})
}

// ListVersions returns the lineage ordered by version number.
func (g *Gateway) ListVersions(ctx context.Context, key configitem.Key) ([]*referencelist.ReferenceList, error) {
	return g.list(ctx, listFilter{key: &key})
}

func (g *Gateway) findOne(ctx context.Context, filter listFilter) (*referencelist.ReferenceList, bool, error) {
	lists, err := g.list(ctx, filter)
	if err != nil {
		return nil, false, err
	}
	if len(lists) == 0 {
		return nil, false, nil
	}
	return lists[len(lists)-1], true, nil
}

func (g *Gateway) list(ctx context.Context, filter listFilter) ([]*referencelist.ReferenceList, error) {
	q, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := g.strategy.selectLists(ctx, q, filter)
	if err != nil {
		return nil, errors.Wrap(err, "select reference lists")
	}
	return toDomainLists(rows), nil
}

// InsertVersion persists the header and list rows of a version. Items are written separately.
func (g *Gateway) InsertVersion(ctx context.Context, list *referencelist.ReferenceList) error {
	q, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	return g.strategy.insertVersion(ctx, q, list)
}

func (g *Gateway) UpdateStatus(ctx context.Context, list *referencelist.ReferenceList, status configitem.VersionStatus) error {
	q, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	return g.strategy.updateStatus(ctx, q, list.ID, status)
}

func (g *Gateway) SetLast(ctx context.Context, list *referencelist.ReferenceList, isLast bool) error {
	q, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	return g.strategy.setLast(ctx, q, list.ID, isLast)
}

// DeleteVersion removes one version and its items.
func (g *Gateway) DeleteVersion(ctx context.Context, list *referencelist.ReferenceList) error {
	q, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	return g.strategy.deleteVersion(ctx, q, list.ID)
}

// Flush makes every statement issued so far visible in order before the next one runs.
func (g *Gateway) Flush(ctx context.Context) error {
	return composables.Flush(ctx)
}

func exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	q, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	return q.ExecContext(ctx, q.Rebind(query), args...)
}

// execOne runs an update that must hit exactly one row.
func execOne(ctx context.Context, query string, args ...any) error {
	res, err := exec(ctx, query, args...)
	if err != nil {
		return err
	}
	return expectOne(res)
}

func expectOne(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n != 1 {
		return errors.Wrapf(sql.ErrNoRows, "expected one affected row, got %d", n)
	}
	return nil
}

func execAll(ctx context.Context, q sqlx.ExtContext, steps []statement) error {
	for _, st := range steps {
		if _, err := q.ExecContext(ctx, q.Rebind(st.query), st.args...); err != nil {
			return errors.Wrap(err, st.name)
		}
	}
	return nil
}

type statement struct {
	name  string
	query string
	args  []any
}
