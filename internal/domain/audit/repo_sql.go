package audit

import (
	"context"
	"strings"

	"github.com/opdemr/opdemr/internal/platform/db"
)

type repoSQL struct{ db *db.DB }

func NewRepoSQL(d *db.DB) Repository { return &repoSQL{db: d} }

func (r *repoSQL) Create(ctx context.Context, e *Entry) error {
	id, err := r.db.InsertID(ctx, `
		INSERT INTO audit_trail (table_name, record_id, action, old_values, new_values, changed_by, changed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.TableName, e.RecordID, e.Action, e.OldValues, e.NewValues, e.ChangedBy, e.ChangedAt)
	if err != nil {
		return r.db.Err(err, "audit entry")
	}
	e.ID = id
	return nil
}

func (r *repoSQL) List(ctx context.Context, f Filter, limit, offset int) ([]*Entry, int, error) {
	var where []string
	var args []any
	if f.TableName != "" {
		where = append(where, "table_name = ?")
		args = append(args, f.TableName)
	}
	if f.RecordID != 0 {
		where = append(where, "record_id = ?")
		args = append(args, f.RecordID)
	}
	if f.ChangedBy != "" {
		where = append(where, "changed_by = ?")
		args = append(args, f.ChangedBy)
	}
	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	total, err := r.db.Count(ctx, "SELECT COUNT(*) FROM audit_trail"+clause, args...)
	if err != nil {
		return nil, 0, r.db.Err(err, "audit entry")
	}

	var entries []*Entry
	err = r.db.Select(ctx, &entries, `
		SELECT id, table_name, record_id, action, old_values, new_values, changed_by, changed_at
		FROM audit_trail`+clause+` ORDER BY id DESC LIMIT ? OFFSET ?`,
		append(args, limit, offset)...)
	if err != nil {
		return nil, 0, r.db.Err(err, "audit entry")
	}
	for _, e := range entries {
		e.expand()
	}
	return entries, total, nil
}
