package db

import (
	"context"

	"github.com/jmoiron/sqlx"
)

// ForeignKey is a child column that references a parent key.
type ForeignKey struct {
	Table  string `db:"table_name" json:"table"`
	Column string `db:"column_name" json:"column"`
}

// FKViolation is a row whose foreign key has no matching parent.
type FKViolation struct {
	Table  string `json:"table"`
	RowID  int64  `json:"row_id"`
	Parent string `json:"parent"`
}

// Dialect isolates the engine-specific parts: error classification,
// deferred constraint checks and schema introspection.
type Dialect interface {
	Name() string
	IsUniqueViolation(err error) bool
	IsForeignKeyViolation(err error) bool
	IsConstraintViolation(err error) bool
	// DeferForeignKeys postpones foreign key checks to commit for the
	// current transaction.
	DeferForeignKeys(ctx context.Context, q sqlx.ExecerContext) error
	ReferencingColumns(ctx context.Context, q sqlx.QueryerContext, table, column string) ([]ForeignKey, error)
	TablesWithColumn(ctx context.Context, q sqlx.QueryerContext, column string) ([]string, error)
	ForeignKeyViolations(ctx context.Context, q sqlx.QueryerContext) ([]FKViolation, error)
}
