package pharmacy

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/opdemr/opdemr/pkg/dates"
)

const (
	POOrdered           = "ordered"
	POPartiallyReceived = "partially_received"
	POReceived          = "received"
	POCancelled         = "cancelled"
)

const (
	OrderPending   = "pending"
	OrderDispensed = "dispensed"
	OrderCancelled = "cancelled"
)

// Item is a stocked medicine or consumable. Stock is the sum of its batch
// quantities and is only populated on reads.
type Item struct {
	ID           int64           `db:"id" json:"id"`
	SKU          string          `db:"sku" json:"sku"`
	Name         string          `db:"name" json:"name"`
	GenericName  *string         `db:"generic_name" json:"generic_name,omitempty"`
	Category     *string         `db:"category" json:"category,omitempty"`
	Manufacturer *string         `db:"manufacturer" json:"manufacturer,omitempty"`
	Unit         *string         `db:"unit" json:"unit,omitempty"`
	MRP          decimal.Decimal `db:"mrp" json:"mrp"`
	ReorderLevel int             `db:"reorder_level" json:"reorder_level"`
	IsActive     bool            `db:"is_active" json:"is_active"`
	Stock        int             `db:"stock" json:"stock"`
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time       `db:"updated_at" json:"updated_at"`
}

type Supplier struct {
	ID            int64     `db:"id" json:"id"`
	Name          string    `db:"name" json:"name"`
	ContactPerson *string   `db:"contact_person" json:"contact_person,omitempty"`
	Phone         *string   `db:"phone" json:"phone,omitempty"`
	Email         *string   `db:"email" json:"email,omitempty"`
	Address       *string   `db:"address" json:"address,omitempty"`
	GSTNumber     *string   `db:"gst_number" json:"gst_number,omitempty"`
	IsActive      bool      `db:"is_active" json:"is_active"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

// Batch is stock of one item received from one supplier under a batch number.
type Batch struct {
	ID          int64           `db:"id" json:"id"`
	ItemID      int64           `db:"item_id" json:"item_id"`
	SupplierID  int64           `db:"supplier_id" json:"supplier_id"`
	BatchNumber string          `db:"batch_number" json:"batch_number"`
	ExpiryDate  *dates.Date     `db:"expiry_date" json:"expiry_date,omitempty"`
	Quantity    int             `db:"quantity" json:"quantity"`
	CostPrice   decimal.Decimal `db:"cost_price" json:"cost_price"`
	SalePrice   decimal.Decimal `db:"sale_price" json:"sale_price"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time       `db:"updated_at" json:"updated_at"`
}

type PurchaseOrder struct {
	ID         int64                `db:"id" json:"id"`
	PONumber   string               `db:"po_number" json:"po_number"`
	SupplierID int64                `db:"supplier_id" json:"supplier_id"`
	Status     string               `db:"status" json:"status"`
	OrderDate  dates.Date           `db:"order_date" json:"order_date"`
	Total      decimal.Decimal      `db:"total" json:"total"`
	Notes      *string              `db:"notes" json:"notes,omitempty"`
	CreatedAt  time.Time            `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time            `db:"updated_at" json:"updated_at"`
	Items      []*PurchaseOrderItem `db:"-" json:"items"`
}

type PurchaseOrderItem struct {
	ID               int64           `db:"id" json:"id"`
	PurchaseOrderID  int64           `db:"purchase_order_id" json:"purchase_order_id"`
	ItemID           int64           `db:"item_id" json:"item_id"`
	Quantity         int             `db:"quantity" json:"quantity"`
	ReceivedQuantity int             `db:"received_quantity" json:"received_quantity"`
	UnitCost         decimal.Decimal `db:"unit_cost" json:"unit_cost"`
}

// GRN is a goods received note. PurchaseOrderID is nil for direct receipts.
type GRN struct {
	ID              int64           `db:"id" json:"id"`
	GRNNumber       string          `db:"grn_number" json:"grn_number"`
	PurchaseOrderID *int64          `db:"purchase_order_id" json:"purchase_order_id,omitempty"`
	SupplierID      int64           `db:"supplier_id" json:"supplier_id"`
	InvoiceNumber   *string         `db:"invoice_number" json:"invoice_number,omitempty"`
	ReceivedDate    dates.Date      `db:"received_date" json:"received_date"`
	Total           decimal.Decimal `db:"total" json:"total"`
	CreatedAt       time.Time       `db:"created_at" json:"created_at"`
	Items           []*GRNItem      `db:"-" json:"items"`
}

type GRNItem struct {
	ID          int64           `db:"id" json:"id"`
	GRNID       int64           `db:"grn_id" json:"grn_id"`
	ItemID      int64           `db:"item_id" json:"item_id"`
	BatchID     int64           `db:"batch_id" json:"batch_id"`
	BatchNumber string          `db:"batch_number" json:"batch_number"`
	ExpiryDate  *dates.Date     `db:"expiry_date" json:"expiry_date,omitempty"`
	Quantity    int             `db:"quantity" json:"quantity"`
	UnitCost    decimal.Decimal `db:"unit_cost" json:"unit_cost"`
	SalePrice   decimal.Decimal `db:"sale_price" json:"sale_price"`
}

// Order is a pharmacy order raised on a prescription.
type Order struct {
	ID             int64        `db:"id" json:"id"`
	PrescriptionID int64        `db:"prescription_id" json:"prescription_id"`
	PatientID      int64        `db:"patient_id" json:"patient_id"`
	DoctorID       int64        `db:"doctor_id" json:"doctor_id"`
	Status         string       `db:"status" json:"status"`
	DispensedAt    *time.Time   `db:"dispensed_at" json:"dispensed_at,omitempty"`
	CreatedAt      time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time    `db:"updated_at" json:"updated_at"`
	Items          []*OrderItem `db:"-" json:"items"`
}

// OrderItem copies the item's sku, name and MRP at order time.
type OrderItem struct {
	ID              int64           `db:"id" json:"id"`
	PharmacyOrderID int64           `db:"pharmacy_order_id" json:"pharmacy_order_id"`
	ItemID          int64           `db:"item_id" json:"item_id"`
	SKU             string          `db:"sku" json:"sku"`
	ItemName        string          `db:"item_name" json:"item_name"`
	Quantity        int             `db:"quantity" json:"quantity"`
	UnitPrice       decimal.Decimal `db:"unit_price" json:"unit_price"`
}

// Total is the sum of quantity times unit price over all items.
func (o *Order) Total() decimal.Decimal {
	sum := decimal.Zero
	for _, it := range o.Items {
		sum = sum.Add(it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}
	return sum
}

type POLine struct {
	ItemID   int64           `json:"item_id"`
	Quantity int             `json:"quantity"`
	UnitCost decimal.Decimal `json:"unit_cost"`
}

type CreatePOInput struct {
	SupplierID int64       `json:"supplier_id"`
	OrderDate  *dates.Date `json:"order_date,omitempty"`
	Notes      *string     `json:"notes,omitempty"`
	Items      []POLine    `json:"items"`
}

type GRNLine struct {
	ItemID      int64           `json:"item_id"`
	BatchNumber string          `json:"batch_number"`
	ExpiryDate  *dates.Date     `json:"expiry_date,omitempty"`
	Quantity    int             `json:"quantity"`
	UnitCost    decimal.Decimal `json:"unit_cost"`
	SalePrice   decimal.Decimal `json:"sale_price"`
}

type ReceiveInput struct {
	PurchaseOrderID *int64      `json:"purchase_order_id,omitempty"`
	SupplierID      int64       `json:"supplier_id"`
	InvoiceNumber   *string     `json:"invoice_number,omitempty"`
	ReceivedDate    *dates.Date `json:"received_date,omitempty"`
	Items           []GRNLine   `json:"items"`
}

type OrderLine struct {
	ItemID   int64 `json:"item_id"`
	Quantity int   `json:"quantity"`
}

type CreateOrderInput struct {
	PrescriptionID int64       `json:"prescription_id"`
	Items          []OrderLine `json:"items"`
}
