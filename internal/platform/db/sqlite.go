package db

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/jmoiron/sqlx"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// SQLiteMaxConns caps the pool for a file database; writers serialize on the
// file lock regardless of pool size.
const SQLiteMaxConns = 4

var sqlitePragmas = []string{
	"_pragma=foreign_keys(1)",
	"_pragma=busy_timeout(5000)",
	"_pragma=journal_mode(WAL)",
	"_txlock=immediate",
	"_time_format=sqlite",
}

func init() {
	sqlx.BindDriver("sqlite", sqlx.QUESTION)
}

// SQLiteDSN turns a DATABASE_URL such as "file:opd-emr.db" or a bare path
// into a modernc DSN with foreign keys on, WAL, and immediate write locks.
func SQLiteDSN(raw string) string {
	dsn := strings.TrimPrefix(raw, "sqlite://")
	if !strings.HasPrefix(dsn, "file:") {
		dsn = "file:" + dsn
	}
	base, query, _ := strings.Cut(dsn, "?")
	values, _ := url.ParseQuery(query)
	parts := make([]string, 0, len(sqlitePragmas)+1)
	if query != "" {
		parts = append(parts, query)
	}
	for _, p := range sqlitePragmas {
		key, val, _ := strings.Cut(p, "=")
		if key == "_pragma" {
			name, _, _ := strings.Cut(val, "(")
			if hasPragma(values["_pragma"], name) {
				continue
			}
		} else if values.Has(key) {
			continue
		}
		parts = append(parts, p)
	}
	return base + "?" + strings.Join(parts, "&")
}

func hasPragma(existing []string, name string) bool {
	for _, e := range existing {
		if strings.HasPrefix(e, name) {
			return true
		}
	}
	return false
}

func openSQLite(ctx context.Context, opts Options) (*DB, error) {
	sqlDB, err := sqlx.Open("sqlite", SQLiteDSN(opts.URL))
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	maxConns := int(opts.MaxConns)
	if maxConns <= 0 || maxConns > SQLiteMaxConns {
		maxConns = SQLiteMaxConns
	}
	sqlDB.SetMaxOpenConns(maxConns)
	sqlDB.SetMaxIdleConns(maxConns)

	if err := sqlDB.PingContext(ctx); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &DB{DB: sqlDB, dialect: sqliteDialect{}}, nil
}

type sqliteDialect struct{}

func (sqliteDialect) Name() string { return "sqlite" }

func sqliteCode(err error) (int, bool) {
	var se *sqlite.Error
	if errors.As(err, &se) {
		return se.Code(), true
	}
	return 0, false
}

func (sqliteDialect) IsUniqueViolation(err error) bool {
	if code, ok := sqliteCode(err); ok {
		if code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY {
			return true
		}
	}
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func (sqliteDialect) IsForeignKeyViolation(err error) bool {
	if code, ok := sqliteCode(err); ok && code == sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY {
		return true
	}
	return err != nil && strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}

func (sqliteDialect) IsConstraintViolation(err error) bool {
	if code, ok := sqliteCode(err); ok {
		if code == sqlite3.SQLITE_CONSTRAINT_NOTNULL || code == sqlite3.SQLITE_CONSTRAINT_CHECK {
			return true
		}
	}
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "NOT NULL constraint failed") || strings.Contains(msg, "CHECK constraint failed")
}

func (sqliteDialect) DeferForeignKeys(ctx context.Context, q sqlx.ExecerContext) error {
	_, err := q.ExecContext(ctx, "PRAGMA defer_foreign_keys = ON")
	return err
}

func (sqliteDialect) ReferencingColumns(ctx context.Context, q sqlx.QueryerContext, table, column string) ([]ForeignKey, error) {
	var fks []ForeignKey
	err := sqlx.SelectContext(ctx, q, &fks, `
		SELECT m.name AS table_name, f."from" AS column_name
		FROM sqlite_master m
		JOIN pragma_foreign_key_list(m.name) f
		WHERE m.type = 'table' AND f."table" = ? AND f."to" = ?
		ORDER BY m.name, f."from"`, table, column)
	return fks, err
}

func (sqliteDialect) TablesWithColumn(ctx context.Context, q sqlx.QueryerContext, column string) ([]string, error) {
	var tables []string
	err := sqlx.SelectContext(ctx, q, &tables, `
		SELECT m.name
		FROM sqlite_master m
		JOIN pragma_table_info(m.name) c
		WHERE m.type = 'table' AND m.name NOT LIKE 'sqlite_%' AND c.name = ?
		ORDER BY m.name`, column)
	return tables, err
}

func (sqliteDialect) ForeignKeyViolations(ctx context.Context, q sqlx.QueryerContext) ([]FKViolation, error) {
	rows, err := q.QueryxContext(ctx, "PRAGMA foreign_key_check")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []FKViolation
	for rows.Next() {
		var (
			v     FKViolation
			rowID *int64
			fkID  int64
		)
		if err := rows.Scan(&v.Table, &rowID, &v.Parent, &fkID); err != nil {
			return nil, err
		}
		if rowID != nil {
			v.RowID = *rowID
		}
		out = append(out, v)
	}
	return out, rows.Err()
}
