package audit

import (
	"context"
	"testing"

	"github.com/opdemr/opdemr/internal/platform/db/dbtest"
)

func TestRepoSQL_CreateAndList(t *testing.T) {
	d := dbtest.Open(t)
	svc := NewService(NewRepoSQL(d))
	ctx := context.Background()

	for i := int64(1); i <= 3; i++ {
		if err := svc.Record(ctx, "doctors", i, ActionInsert, nil, map[string]int64{"id": i}); err != nil {
			t.Fatalf("record: %v", err)
		}
	}
	if err := svc.Record(ctx, "patients", 1, ActionDelete, map[string]int{"patient_id": 1}, nil); err != nil {
		t.Fatal(err)
	}

	entries, total, err := svc.List(ctx, Filter{TableName: "doctors"}, 10, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 3 || len(entries) != 3 {
		t.Fatalf("expected 3 doctor entries, got total=%d len=%d", total, len(entries))
	}
	if entries[0].RecordID != 3 {
		t.Errorf("expected newest first, got record %d", entries[0].RecordID)
	}
	if string(entries[0].New) != `{"id":3}` {
		t.Errorf("unexpected new values %s", entries[0].New)
	}

	entries, total, err = svc.List(ctx, Filter{TableName: "patients", RecordID: 1}, 10, 0)
	if err != nil {
		t.Fatal(err)
	}
	if total != 1 || entries[0].Action != ActionDelete || entries[0].New != nil {
		t.Errorf("unexpected patient entry %+v", entries[0])
	}
}
