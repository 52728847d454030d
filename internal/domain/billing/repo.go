package billing

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/opdemr/opdemr/pkg/dates"
)

type Repository interface {
	Create(ctx context.Context, b *Bill) error
	GetByID(ctx context.Context, id int64) (*Bill, error)
	List(ctx context.Context, f Filter, limit, offset int) ([]*Bill, int, error)
	// SetPaid and SetStatus only move a bill that is still in the expected
	// status; otherwise they return a conflict.
	SetPaid(ctx context.Context, id int64, method string, at time.Time) error
	SetStatus(ctx context.Context, id int64, from, to string, at time.Time) error
	// Items
	AddItem(ctx context.Context, item *BillItem) error
	ListItems(ctx context.Context, billID int64) ([]*BillItem, error)
	// Lab billing links
	LinkLabOrder(ctx context.Context, billID, labOrderID, prescriptionID int64, at time.Time) error
	UnlinkLabOrders(ctx context.Context, billID int64) error
	BilledLabOrders(ctx context.Context, prescriptionID int64) (map[int64]bool, error)
	ListUnbilled(ctx context.Context, priority string) ([]*UnbilledPrescription, error)
	// Reports
	AwaitingConsultation(ctx context.Context, f WorklistFilter) ([]*WorklistEntry, error)
	Revenue(ctx context.Context, from, to dates.Date) ([]*RevenueLine, error)
	PaidTotal(ctx context.Context, from, to dates.Date) (decimal.Decimal, error)
}
