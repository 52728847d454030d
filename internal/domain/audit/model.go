package audit

import (
	"encoding/json"
	"time"
)

const (
	ActionInsert = "INSERT"
	ActionUpdate = "UPDATE"
	ActionDelete = "DELETE"
)

// Entry is one row of the audit trail. OldValues and NewValues hold the
// JSON encoding of the record before and after the change.
type Entry struct {
	ID        int64           `db:"id" json:"id"`
	TableName string          `db:"table_name" json:"table_name"`
	RecordID  int64           `db:"record_id" json:"record_id"`
	Action    string          `db:"action" json:"action"`
	OldValues *string         `db:"old_values" json:"-"`
	NewValues *string         `db:"new_values" json:"-"`
	ChangedBy string          `db:"changed_by" json:"changed_by"`
	ChangedAt time.Time       `db:"changed_at" json:"changed_at"`
	Old       json.RawMessage `db:"-" json:"old_values,omitempty"`
	New       json.RawMessage `db:"-" json:"new_values,omitempty"`
}

// expand copies the stored JSON text into the raw message fields.
func (e *Entry) expand() {
	if e.OldValues != nil {
		e.Old = json.RawMessage(*e.OldValues)
	}
	if e.NewValues != nil {
		e.New = json.RawMessage(*e.NewValues)
	}
}

// Filter narrows List. Zero values match everything.
type Filter struct {
	TableName string
	RecordID  int64
	ChangedBy string
}
