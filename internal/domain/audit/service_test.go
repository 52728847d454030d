package audit

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/opdemr/opdemr/internal/platform/auth"
)

type mockRepo struct {
	entries []*Entry
}

func (m *mockRepo) Create(_ context.Context, e *Entry) error {
	e.ID = int64(len(m.entries) + 1)
	m.entries = append(m.entries, e)
	return nil
}

func (m *mockRepo) List(_ context.Context, f Filter, limit, offset int) ([]*Entry, int, error) {
	var out []*Entry
	for _, e := range m.entries {
		if f.TableName != "" && e.TableName != f.TableName {
			continue
		}
		if f.RecordID != 0 && e.RecordID != f.RecordID {
			continue
		}
		out = append(out, e)
	}
	return out, len(out), nil
}

func TestService_Record(t *testing.T) {
	repo := &mockRepo{}
	svc := NewService(repo)
	ctx := auth.WithIdentity(context.Background(), "7", "drsmith", []string{auth.RoleDoctor})

	after := map[string]any{"first_name": "Ada"}
	if err := svc.Record(ctx, "patients", 1, ActionInsert, nil, after); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(repo.entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(repo.entries))
	}
	e := repo.entries[0]
	if e.ChangedBy != "drsmith" {
		t.Errorf("expected actor drsmith, got %s", e.ChangedBy)
	}
	if e.OldValues != nil {
		t.Error("expected nil old values on insert")
	}
	var decoded map[string]string
	if err := json.Unmarshal([]byte(*e.NewValues), &decoded); err != nil {
		t.Fatal(err)
	}
	if decoded["first_name"] != "Ada" {
		t.Errorf("unexpected new values %s", *e.NewValues)
	}
}

func TestService_Record_SystemActor(t *testing.T) {
	repo := &mockRepo{}
	svc := NewService(repo)
	if err := svc.Record(context.Background(), "patients", 3, ActionUpdate, map[string]int{"patient_id": 9}, map[string]int{"patient_id": 3}); err != nil {
		t.Fatal(err)
	}
	if repo.entries[0].ChangedBy != auth.SystemActor {
		t.Errorf("expected system actor, got %s", repo.entries[0].ChangedBy)
	}
}

func TestService_Record_UnknownAction(t *testing.T) {
	svc := NewService(&mockRepo{})
	if err := svc.Record(context.Background(), "patients", 1, "UPSERT", nil, nil); err == nil {
		t.Error("expected error for unknown action")
	}
}

func TestService_Record_Unencodable(t *testing.T) {
	svc := NewService(&mockRepo{})
	if err := svc.Record(context.Background(), "patients", 1, ActionInsert, nil, make(chan int)); err == nil {
		t.Error("expected encode error")
	}
}
