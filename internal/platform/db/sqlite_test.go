package db

import (
	"errors"
	"strings"
	"testing"
)

func TestSQLiteDSN(t *testing.T) {
	tests := []struct {
		in       string
		prefix   string
		contains []string
	}{
		{"file:opd-emr.db", "file:opd-emr.db?", []string{"_pragma=foreign_keys(1)", "_txlock=immediate"}},
		{"opd-emr.db", "file:opd-emr.db?", []string{"_pragma=busy_timeout(5000)"}},
		{"sqlite:///tmp/x.db", "file:/tmp/x.db?", []string{"_pragma=journal_mode(WAL)"}},
		{"file:x.db?_pragma=busy_timeout(100)", "file:x.db?", []string{"busy_timeout(100)", "_pragma=foreign_keys(1)"}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := SQLiteDSN(tt.in)
			if !strings.HasPrefix(got, tt.prefix) {
				t.Errorf("SQLiteDSN(%q) = %q, want prefix %q", tt.in, got, tt.prefix)
			}
			for _, c := range tt.contains {
				if !strings.Contains(got, c) {
					t.Errorf("SQLiteDSN(%q) = %q, missing %q", tt.in, got, c)
				}
			}
		})
	}
}

func TestSQLiteDSN_KeepsCallerPragma(t *testing.T) {
	got := SQLiteDSN("file:x.db?_pragma=busy_timeout(100)")
	if strings.Contains(got, "busy_timeout(5000)") {
		t.Errorf("caller pragma overridden: %q", got)
	}
}

func TestSQLiteDialect_MessageFallback(t *testing.T) {
	d := sqliteDialect{}
	if !d.IsUniqueViolation(errors.New("UNIQUE constraint failed: pharmacy_items.sku")) {
		t.Error("expected unique violation")
	}
	if !d.IsForeignKeyViolation(errors.New("FOREIGN KEY constraint failed")) {
		t.Error("expected foreign key violation")
	}
	if !d.IsConstraintViolation(errors.New("NOT NULL constraint failed: patients.first_name")) {
		t.Error("expected not-null violation")
	}
	if d.IsUniqueViolation(errors.New("disk I/O error")) {
		t.Error("unexpected unique violation")
	}
}

func TestIsPostgresURL(t *testing.T) {
	if !IsPostgresURL("postgres://u:p@localhost/db") || !IsPostgresURL("postgresql://localhost/db") {
		t.Error("expected postgres url")
	}
	if IsPostgresURL("file:opd-emr.db") {
		t.Error("sqlite url detected as postgres")
	}
}
