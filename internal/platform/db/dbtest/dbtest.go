// Package dbtest opens throwaway SQLite databases with every migration
// applied, for repository and service tests.
package dbtest

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/opdemr/opdemr/internal/platform/db"
	"github.com/opdemr/opdemr/migrations"
)

// Open returns a migrated database in t.TempDir(), closed on cleanup.
func Open(t testing.TB) *db.DB {
	t.Helper()
	ctx := context.Background()

	d, err := db.Open(ctx, db.Options{URL: "file:" + filepath.Join(t.TempDir(), "test.db")})
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	t.Cleanup(func() { d.Close() })

	files, err := migrations.For(d.Dialect().Name())
	if err != nil {
		t.Fatalf("load migrations: %v", err)
	}
	if _, err := db.NewMigrator(d, files).Up(ctx); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}
	return d
}

// Passthrough is a db.Transactor that runs fn directly, for service tests
// backed by in-memory fakes.
type Passthrough struct{}

func (Passthrough) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}
