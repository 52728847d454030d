package db

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
)

type postgresDialect struct{}

func (postgresDialect) Name() string { return "postgres" }

func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

func (postgresDialect) IsUniqueViolation(err error) bool { return pgCode(err) == "23505" }

func (postgresDialect) IsForeignKeyViolation(err error) bool { return pgCode(err) == "23503" }

func (postgresDialect) IsConstraintViolation(err error) bool {
	code := pgCode(err)
	return code == "23502" || code == "23514"
}

func (postgresDialect) DeferForeignKeys(ctx context.Context, q sqlx.ExecerContext) error {
	_, err := q.ExecContext(ctx, "SET CONSTRAINTS ALL DEFERRED")
	return err
}

func (postgresDialect) ReferencingColumns(ctx context.Context, q sqlx.QueryerContext, table, column string) ([]ForeignKey, error) {
	var fks []ForeignKey
	err := sqlx.SelectContext(ctx, q, &fks, `
		SELECT kcu.table_name, kcu.column_name
		FROM information_schema.referential_constraints rc
		JOIN information_schema.key_column_usage kcu
		  ON kcu.constraint_name = rc.constraint_name
		 AND kcu.constraint_schema = rc.constraint_schema
		JOIN information_schema.key_column_usage ref
		  ON ref.constraint_name = rc.unique_constraint_name
		 AND ref.constraint_schema = rc.unique_constraint_schema
		 AND ref.ordinal_position = kcu.position_in_unique_constraint
		WHERE kcu.table_schema = current_schema()
		  AND ref.table_name = $1 AND ref.column_name = $2
		ORDER BY kcu.table_name, kcu.column_name`, table, column)
	return fks, err
}

func (postgresDialect) TablesWithColumn(ctx context.Context, q sqlx.QueryerContext, column string) ([]string, error) {
	var tables []string
	err := sqlx.SelectContext(ctx, q, &tables, `
		SELECT c.table_name
		FROM information_schema.columns c
		JOIN information_schema.tables t
		  ON t.table_schema = c.table_schema AND t.table_name = c.table_name
		WHERE c.table_schema = current_schema()
		  AND t.table_type = 'BASE TABLE'
		  AND c.column_name = $1
		ORDER BY c.table_name`, column)
	return tables, err
}

// ForeignKeyViolations returns nothing on PostgreSQL: constraints are
// enforced at write time and cannot be left violated after commit.
func (postgresDialect) ForeignKeyViolations(context.Context, sqlx.QueryerContext) ([]FKViolation, error) {
	return nil, nil
}
