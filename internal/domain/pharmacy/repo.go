package pharmacy

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/opdemr/opdemr/pkg/dates"
)

type ItemRepository interface {
	Create(ctx context.Context, it *Item) error
	GetByID(ctx context.Context, id int64) (*Item, error)
	GetBySKU(ctx context.Context, sku string) (*Item, error)
	Update(ctx context.Context, it *Item) error
	List(ctx context.Context, search string, limit, offset int) ([]*Item, int, error)
	// LowStock lists active items whose batch total is below their reorder level.
	LowStock(ctx context.Context) ([]*Item, error)
	// InsertIfAbsent creates it unless an item with the same sku exists.
	InsertIfAbsent(ctx context.Context, it *Item) (bool, error)
}

type BatchRepository interface {
	ListByItem(ctx context.Context, itemID int64) ([]*Batch, error)
	Find(ctx context.Context, itemID int64, batchNumber string) (*Batch, error)
	Create(ctx context.Context, b *Batch) error
	// TopUp adds qty to an existing batch and refreshes its prices and expiry.
	TopUp(ctx context.Context, id int64, qty int, cost, sale decimal.Decimal, expiry *dates.Date, at time.Time) error
}

type SupplierRepository interface {
	Create(ctx context.Context, s *Supplier) error
	GetByID(ctx context.Context, id int64) (*Supplier, error)
	List(ctx context.Context, limit, offset int) ([]*Supplier, int, error)
	// InsertIfAbsent creates s unless a supplier with the same name exists.
	InsertIfAbsent(ctx context.Context, s *Supplier) (bool, error)
}

type PurchaseRepository interface {
	CreatePO(ctx context.Context, po *PurchaseOrder) error
	GetPO(ctx context.Context, id int64) (*PurchaseOrder, error)
	ListPOs(ctx context.Context, status string, limit, offset int) ([]*PurchaseOrder, int, error)
	UpdatePOStatus(ctx context.Context, id int64, status string, at time.Time) error
	AddPOItem(ctx context.Context, item *PurchaseOrderItem) error
	ListPOItems(ctx context.Context, poID int64) ([]*PurchaseOrderItem, error)
	AddReceived(ctx context.Context, poItemID int64, qty int) error
	// GRN
	CreateGRN(ctx context.Context, g *GRN) error
	GetGRN(ctx context.Context, id int64) (*GRN, error)
	AddGRNItem(ctx context.Context, item *GRNItem) error
	ListGRNItems(ctx context.Context, grnID int64) ([]*GRNItem, error)
}

type OrderRepository interface {
	Create(ctx context.Context, o *Order) error
	GetByID(ctx context.Context, id int64) (*Order, error)
	ListByPrescription(ctx context.Context, prescriptionID int64) ([]*Order, error)
	UpdateStatus(ctx context.Context, id int64, status string, dispensedAt *time.Time, at time.Time) error
	AddItem(ctx context.Context, item *OrderItem) error
	ListItems(ctx context.Context, orderID int64) ([]*OrderItem, error)
}
