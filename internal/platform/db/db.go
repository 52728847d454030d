// Package db owns the shared database handle. SQLite (modernc.org/sqlite) is
// the default engine; a postgres:// DATABASE_URL switches to pgx.
package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
)

// Options configures Open.
type Options struct {
	URL      string
	MaxConns int32
	MinConns int32
}

// DB wraps a sqlx handle with the dialect it was opened with. Queries are
// written with ? placeholders and rebound for the engine.
type DB struct {
	*sqlx.DB
	dialect Dialect
	closeFn func()
}

// Open connects to the database named by opts.URL and verifies the connection.
func Open(ctx context.Context, opts Options) (*DB, error) {
	if opts.URL == "" {
		return nil, fmt.Errorf("database url is required")
	}
	if IsPostgresURL(opts.URL) {
		return openPostgres(ctx, opts)
	}
	return openSQLite(ctx, opts)
}

// IsPostgresURL reports whether url selects the PostgreSQL engine.
func IsPostgresURL(url string) bool {
	return strings.HasPrefix(url, "postgres://") || strings.HasPrefix(url, "postgresql://")
}

// Dialect returns the engine-specific behavior for this handle.
func (d *DB) Dialect() Dialect { return d.dialect }

// Close releases every connection.
func (d *DB) Close() error {
	err := d.DB.Close()
	if d.closeFn != nil {
		d.closeFn()
	}
	return err
}
