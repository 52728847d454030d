package db

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/opdemr/opdemr/internal/platform/apperr"
)

// Conn returns the transaction from ctx if present, else the shared handle.
func (d *DB) Conn(ctx context.Context) sqlx.ExtContext {
	if tx := TxFromContext(ctx); tx != nil {
		return tx
	}
	return d.DB
}

// Get scans a single row into dest. Placeholders are written as ?.
func (d *DB) Get(ctx context.Context, dest any, query string, args ...any) error {
	return sqlx.GetContext(ctx, d.Conn(ctx), dest, d.Rebind(query), args...)
}

// Select scans all rows into dest, a pointer to a slice.
func (d *DB) Select(ctx context.Context, dest any, query string, args ...any) error {
	return sqlx.SelectContext(ctx, d.Conn(ctx), dest, d.Rebind(query), args...)
}

// Exec runs a statement and returns the number of affected rows.
func (d *DB) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	res, err := d.Conn(ctx).ExecContext(ctx, d.Rebind(query), args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// InsertID runs an INSERT and returns the generated id column.
func (d *DB) InsertID(ctx context.Context, query string, args ...any) (int64, error) {
	var id int64
	err := d.Conn(ctx).QueryRowxContext(ctx, d.Rebind(query+" RETURNING id"), args...).Scan(&id)
	return id, err
}

// Count runs a SELECT COUNT(*) style query.
func (d *DB) Count(ctx context.Context, query string, args ...any) (int, error) {
	var n int
	err := d.Get(ctx, &n, query, args...)
	return n, err
}

// Err classifies a driver error for the given entity.
func (d *DB) Err(err error, entity string) error {
	if err == nil {
		return nil
	}
	var ae *apperr.Error
	if errors.As(err, &ae) {
		return err
	}
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return apperr.NotFound(entity)
	case d.dialect.IsUniqueViolation(err):
		return apperr.Wrap(apperr.KindConflict, err, "%s already exists", entity)
	case d.dialect.IsForeignKeyViolation(err):
		return apperr.Wrap(apperr.KindConflict, err, "%s is referenced by or references a missing record", entity)
	case d.dialect.IsConstraintViolation(err):
		return apperr.Wrap(apperr.KindValidation, err, "%s violates a required field or allowed value", entity)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return apperr.Persistence(entity+" request cancelled", err)
	default:
		return apperr.Persistence(entity+" storage failure", err)
	}
}

// RequireAffected returns NotFound when an UPDATE or DELETE touched no rows.
func RequireAffected(n int64, entity string) error {
	if n == 0 {
		return apperr.NotFound(entity)
	}
	return nil
}
