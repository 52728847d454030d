package db

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

type txKey struct{}

// WithTx returns a context carrying tx. Repositories resolve their
// connection through Conn and so join the transaction.
func WithTx(ctx context.Context, tx *sqlx.Tx) context.Context {
	return context.WithValue(ctx, txKey{}, tx)
}

// TxFromContext returns the transaction stored by WithTx, or nil.
func TxFromContext(ctx context.Context) *sqlx.Tx {
	tx, _ := ctx.Value(txKey{}).(*sqlx.Tx)
	return tx
}

// Transactor runs fn inside a single transaction.
type Transactor interface {
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// InTx runs fn in a transaction. If ctx already carries one, fn joins it and
// the outermost caller commits. Any error from fn rolls everything back.
func (d *DB) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if TxFromContext(ctx) != nil {
		return fn(ctx)
	}

	tx, err := d.BeginTxx(ctx, nil)
	if err != nil {
		return d.Err(fmt.Errorf("begin transaction: %w", err), "transaction")
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if err := fn(WithTx(ctx, tx)); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return d.Err(fmt.Errorf("commit transaction: %w", err), "transaction")
	}
	committed = true
	return nil
}
