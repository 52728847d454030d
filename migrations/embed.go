// Package migrations embeds the per-dialect SQL migration files.
package migrations

import (
	"embed"
	"io/fs"
)

// FS holds sqlite/*.sql and postgres/*.sql.
//
//go:embed sqlite/*.sql postgres/*.sql
var FS embed.FS

// For returns the migrations for a dialect name ("sqlite" or "postgres").
func For(dialect string) (fs.FS, error) {
	return fs.Sub(FS, dialect)
}
