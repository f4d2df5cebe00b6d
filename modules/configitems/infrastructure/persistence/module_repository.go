package persistence

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jmoiron/sqlx"

	"github.com/iota-uz/configitems/modules/configitems/domain/module"
	"github.com/iota-uz/configitems/pkg/composables"
)

type ModuleRepository struct{}

func NewModuleRepository() *ModuleRepository {
	return &ModuleRepository{}
}

func (r *ModuleRepository) FindByName(ctx context.Context, name string) (*module.Module, bool, error) {
	q, err := composables.UseTx(ctx)
	if err != nil {
		return nil, false, err
	}
	var rows []moduleRow
	if err := sqlx.SelectContext(ctx, q, &rows, q.Rebind(`SELECT id, name, is_enabled FROM modules WHERE name = ?`), name); err != nil {
		return nil, false, errors.Wrap(err, "select module")
	}
	if len(rows) == 0 {
		return nil, false, nil
	}
	return rows[0].toDomain(), true, nil
}

func (r *ModuleRepository) Insert(ctx context.Context, m *module.Module) error {
	_, err := exec(ctx, `INSERT INTO modules (id, name, is_enabled) VALUES (?, ?, ?)`, idArg(m.ID), m.Name, m.IsEnabled)
	if err != nil {
		return errors.Wrapf(err, "insert module %q", m.Name)
	}
	return nil
}

func (r *ModuleRepository) List(ctx context.Context) ([]*module.Module, error) {
	q, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	var rows []moduleRow
	if err := sqlx.SelectContext(ctx, q, &rows, q.Rebind(`SELECT id, name, is_enabled FROM modules ORDER BY name`)); err != nil {
		return nil, errors.Wrap(err, "select modules")
	}
	out := make([]*module.Module, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}
