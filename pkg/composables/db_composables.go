package composables

import (
	"context"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/iota-uz/configitems/pkg/constants"
)

var (
	ErrNoTx = errors.New("no transaction found in context")
	ErrNoDB = errors.New("no database handle found in context")
)

func WithTx(ctx context.Context, tx *sqlx.Tx) context.Context {
	return context.WithValue(ctx, constants.TxKey, tx)
}

// UseTx returns the transaction carried by ctx, falling back to the database handle.
func UseTx(ctx context.Context) (sqlx.ExtContext, error) {
	tx, ok := ctx.Value(constants.TxKey).(*sqlx.Tx)
	if !ok || tx == nil {
		return UseDB(ctx)
	}
	return tx, nil
}

func WithDB(ctx context.Context, db *sqlx.DB) context.Context {
	return context.WithValue(ctx, constants.DBKey, db)
}

func UseDB(ctx context.Context) (*sqlx.DB, error) {
	db, ok := ctx.Value(constants.DBKey).(*sqlx.DB)
	if !ok || db == nil {
		return nil, ErrNoDB
	}
	return db, nil
}

func HasTx(ctx context.Context) bool {
	tx, ok := ctx.Value(constants.TxKey).(*sqlx.Tx)
	return ok && tx != nil
}

// InTx runs fn inside a transaction. A transaction already carried by ctx is joined
// and left for its owner to commit.
func InTx(ctx context.Context, fn func(context.Context) error) error {
	if HasTx(ctx) {
		return fn(ctx)
	}

	db, err := UseDB(ctx)
	if err != nil {
		return err
	}

	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}

	if err := fn(WithTx(ctx, tx)); err != nil {
		if rErr := tx.Rollback(); rErr != nil {
			return errors.Join(err, rErr)
		}
		return err
	}
	return tx.Commit()
}

func InTxResult[T any](ctx context.Context, fn func(context.Context) (T, error)) (T, error) {
	var out T
	err := InTx(ctx, func(txCtx context.Context) error {
		var innerErr error
		out, innerErr = fn(txCtx)
		return innerErr
	})
	return out, err
}

const flushSavepoint = "configitems_flush"

// Flush is an ordering barrier inside the current transaction: every statement issued
// before it has been executed by the server once it returns. It never commits.
// Outside a transaction statements autocommit and Flush does nothing.
func Flush(ctx context.Context) error {
	tx, ok := ctx.Value(constants.TxKey).(*sqlx.Tx)
	if !ok || tx == nil {
		return nil
	}
	if _, err := tx.ExecContext(ctx, "SAVEPOINT "+flushSavepoint); err != nil {
		return err
	}
	_, err := tx.ExecContext(ctx, "RELEASE SAVEPOINT "+flushSavepoint)
	return err
}
