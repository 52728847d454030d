package pharmacy

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/opdemr/opdemr/internal/platform/apperr"
	"github.com/opdemr/opdemr/internal/platform/db/dbtest"
	"github.com/opdemr/opdemr/pkg/dates"
)

func TestItemRepoSQL_StockAndLowStock(t *testing.T) {
	d := dbtest.Open(t)
	ctx := context.Background()
	items := NewItemRepoSQL(d)
	batches := NewBatchRepoSQL(d)
	suppliers := NewSupplierRepoSQL(d)
	now := time.Now().UTC()

	sup := &Supplier{Name: "MedPlus Distributors", IsActive: true, CreatedAt: now, UpdatedAt: now}
	if err := suppliers.Create(ctx, sup); err != nil {
		t.Fatal(err)
	}
	para := &Item{SKU: "PARA500", Name: "Paracetamol 500mg", MRP: decimal.RequireFromString("2.50"), ReorderLevel: 100,
		IsActive: true, CreatedAt: now, UpdatedAt: now}
	amox := &Item{SKU: "AMOX250", Name: "Amoxicillin 250mg", MRP: decimal.NewFromInt(8), ReorderLevel: 10,
		IsActive: true, CreatedAt: now, UpdatedAt: now}
	for _, it := range []*Item{para, amox} {
		if err := items.Create(ctx, it); err != nil {
			t.Fatal(err)
		}
	}

	expiry := dates.Of(now.AddDate(1, 0, 0))
	for _, b := range []*Batch{
		{ItemID: para.ID, SupplierID: sup.ID, BatchNumber: "P-1", Quantity: 40, ExpiryDate: &expiry, CreatedAt: now, UpdatedAt: now},
		{ItemID: para.ID, SupplierID: sup.ID, BatchNumber: "P-2", Quantity: 30, CreatedAt: now, UpdatedAt: now},
		{ItemID: amox.ID, SupplierID: sup.ID, BatchNumber: "A-1", Quantity: 50, CreatedAt: now, UpdatedAt: now},
	} {
		if err := batches.Create(ctx, b); err != nil {
			t.Fatal(err)
		}
	}

	got, err := items.GetByID(ctx, para.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Stock != 70 {
		t.Errorf("expected stock 70, got %d", got.Stock)
	}

	low, err := items.LowStock(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(low) != 1 || low[0].SKU != "PARA500" {
		t.Fatalf("expected only paracetamol to be low, got %+v", low)
	}

	b, err := batches.Find(ctx, para.ID, "P-2")
	if err != nil {
		t.Fatal(err)
	}
	if err := batches.TopUp(ctx, b.ID, 40, decimal.NewFromInt(1), decimal.NewFromInt(2), nil, now); err != nil {
		t.Fatal(err)
	}
	low, _ = items.LowStock(ctx)
	if len(low) != 0 {
		t.Errorf("expected no low stock after top up, got %d", len(low))
	}

	dup := &Batch{ItemID: para.ID, SupplierID: sup.ID, BatchNumber: "P-1", Quantity: 1, CreatedAt: now, UpdatedAt: now}
	if err := batches.Create(ctx, dup); !apperr.Is(err, apperr.KindConflict) {
		t.Errorf("expected conflict for duplicate batch number, got %v", err)
	}
}

func TestItemRepoSQL_ListOrderedByName(t *testing.T) {
	d := dbtest.Open(t)
	ctx := context.Background()
	items := NewItemRepoSQL(d)
	now := time.Now().UTC()
	generic := "cetirizine"
	for _, it := range []*Item{
		{SKU: "Z1", Name: "Zincovit", IsActive: true},
		{SKU: "C1", Name: "Cetzine 10mg", GenericName: &generic, IsActive: true},
		{SKU: "A1", Name: "Allegra 120mg", IsActive: true},
	} {
		it.CreatedAt, it.UpdatedAt = now, now
		if err := items.Create(ctx, it); err != nil {
			t.Fatal(err)
		}
	}

	all, total, err := items.List(ctx, "", 10, 0)
	if err != nil {
		t.Fatal(err)
	}
	if total != 3 || all[0].Name != "Allegra 120mg" || all[2].Name != "Zincovit" {
		t.Errorf("expected items ordered by name, got %d", total)
	}

	found, total, err := items.List(ctx, "CETIRI", 10, 0)
	if err != nil {
		t.Fatal(err)
	}
	if total != 1 || found[0].SKU != "C1" {
		t.Errorf("expected generic name match, got %d", total)
	}

	if err := items.Create(ctx, &Item{SKU: "A1", Name: "Dup", CreatedAt: now, UpdatedAt: now}); !apperr.Is(err, apperr.KindConflict) {
		t.Errorf("expected duplicate sku conflict, got %v", err)
	}
}

func TestRepoSQL_InsertIfAbsent(t *testing.T) {
	d := dbtest.Open(t)
	ctx := context.Background()
	items := NewItemRepoSQL(d)
	suppliers := NewSupplierRepoSQL(d)
	now := time.Now().UTC()

	for round := 0; round < 2; round++ {
		sup := &Supplier{Name: "Apollo Pharma", IsActive: true, CreatedAt: now, UpdatedAt: now}
		created, err := suppliers.InsertIfAbsent(ctx, sup)
		if err != nil {
			t.Fatal(err)
		}
		if created != (round == 0) || sup.ID == 0 {
			t.Errorf("round %d: supplier created=%v id=%d", round, created, sup.ID)
		}
		it := &Item{SKU: "ORS", Name: "ORS Sachet", IsActive: true, CreatedAt: now, UpdatedAt: now}
		created, err = items.InsertIfAbsent(ctx, it)
		if err != nil {
			t.Fatal(err)
		}
		if created != (round == 0) || it.ID == 0 {
			t.Errorf("round %d: item created=%v id=%d", round, created, it.ID)
		}
	}
	_, total, _ := suppliers.List(ctx, 10, 0)
	if total != 1 {
		t.Errorf("expected 1 supplier, got %d", total)
	}
}
