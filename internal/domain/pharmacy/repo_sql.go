package pharmacy

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/opdemr/opdemr/internal/platform/apperr"
	"github.com/opdemr/opdemr/internal/platform/db"
	"github.com/opdemr/opdemr/pkg/dates"
)

// =========== Item Repository ===========

type itemRepoSQL struct{ db *db.DB }

func NewItemRepoSQL(d *db.DB) ItemRepository { return &itemRepoSQL{db: d} }

const stockExpr = `COALESCE((SELECT SUM(b.quantity) FROM pharmacy_batches b WHERE b.item_id = i.id), 0)`

const itemCols = `i.id, i.sku, i.name, i.generic_name, i.category, i.manufacturer, i.unit, i.mrp,
	i.reorder_level, i.is_active, ` + stockExpr + ` AS stock, i.created_at, i.updated_at`

func (r *itemRepoSQL) Create(ctx context.Context, it *Item) error {
	id, err := r.db.InsertID(ctx, `
		INSERT INTO pharmacy_items (sku, name, generic_name, category, manufacturer, unit, mrp,
			reorder_level, is_active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		it.SKU, it.Name, it.GenericName, it.Category, it.Manufacturer, it.Unit, it.MRP,
		it.ReorderLevel, it.IsActive, it.CreatedAt, it.UpdatedAt)
	if err != nil {
		return r.db.Err(err, "pharmacy item")
	}
	it.ID = id
	return nil
}

func (r *itemRepoSQL) GetByID(ctx context.Context, id int64) (*Item, error) {
	var it Item
	if err := r.db.Get(ctx, &it, `SELECT `+itemCols+` FROM pharmacy_items i WHERE i.id = ?`, id); err != nil {
		return nil, r.db.Err(err, "pharmacy item")
	}
	return &it, nil
}

func (r *itemRepoSQL) GetBySKU(ctx context.Context, sku string) (*Item, error) {
	var it Item
	if err := r.db.Get(ctx, &it, `SELECT `+itemCols+` FROM pharmacy_items i WHERE i.sku = ?`, sku); err != nil {
		return nil, r.db.Err(err, "pharmacy item")
	}
	return &it, nil
}

func (r *itemRepoSQL) Update(ctx context.Context, it *Item) error {
	n, err := r.db.Exec(ctx, `
		UPDATE pharmacy_items SET name = ?, generic_name = ?, category = ?, manufacturer = ?, unit = ?,
			mrp = ?, reorder_level = ?, is_active = ?, updated_at = ?
		WHERE id = ?`,
		it.Name, it.GenericName, it.Category, it.Manufacturer, it.Unit,
		it.MRP, it.ReorderLevel, it.IsActive, it.UpdatedAt, it.ID)
	if err != nil {
		return r.db.Err(err, "pharmacy item")
	}
	return db.RequireAffected(n, "pharmacy item")
}

func (r *itemRepoSQL) List(ctx context.Context, search string, limit, offset int) ([]*Item, int, error) {
	clause := ""
	var args []any
	if search = strings.TrimSpace(search); search != "" {
		like := "%" + strings.ToLower(search) + "%"
		clause = ` WHERE LOWER(i.name) LIKE ? OR LOWER(i.generic_name) LIKE ? OR LOWER(i.sku) LIKE ?`
		args = append(args, like, like, like)
	}

	total, err := r.db.Count(ctx, `SELECT COUNT(*) FROM pharmacy_items i`+clause, args...)
	if err != nil {
		return nil, 0, r.db.Err(err, "pharmacy item")
	}
	var out []*Item
	err = r.db.Select(ctx, &out, `SELECT `+itemCols+` FROM pharmacy_items i`+clause+
		` ORDER BY i.name, i.id LIMIT ? OFFSET ?`, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, r.db.Err(err, "pharmacy item")
	}
	return out, total, nil
}

func (r *itemRepoSQL) LowStock(ctx context.Context) ([]*Item, error) {
	out := []*Item{}
	err := r.db.Select(ctx, &out, `SELECT `+itemCols+` FROM pharmacy_items i
		WHERE i.is_active = ? AND `+stockExpr+` < i.reorder_level
		ORDER BY i.name, i.id`, true)
	if err != nil {
		return nil, r.db.Err(err, "pharmacy item")
	}
	return out, nil
}

func (r *itemRepoSQL) InsertIfAbsent(ctx context.Context, it *Item) (bool, error) {
	existing, err := r.GetBySKU(ctx, it.SKU)
	if err == nil {
		it.ID = existing.ID
		return false, nil
	}
	if !apperr.Is(err, apperr.KindNotFound) {
		return false, err
	}
	if err := r.Create(ctx, it); err != nil {
		return false, err
	}
	return true, nil
}

// =========== Batch Repository ===========

type batchRepoSQL struct{ db *db.DB }

func NewBatchRepoSQL(d *db.DB) BatchRepository { return &batchRepoSQL{db: d} }

const batchCols = `id, item_id, supplier_id, batch_number, expiry_date, quantity, cost_price, sale_price,
	created_at, updated_at`

func (r *batchRepoSQL) ListByItem(ctx context.Context, itemID int64) ([]*Batch, error) {
	out := []*Batch{}
	if err := r.db.Select(ctx, &out, `SELECT `+batchCols+` FROM pharmacy_batches WHERE item_id = ?
		ORDER BY expiry_date, id`, itemID); err != nil {
		return nil, r.db.Err(err, "batch")
	}
	return out, nil
}

func (r *batchRepoSQL) Find(ctx context.Context, itemID int64, batchNumber string) (*Batch, error) {
	var b Batch
	if err := r.db.Get(ctx, &b, `SELECT `+batchCols+` FROM pharmacy_batches WHERE item_id = ? AND batch_number = ?`,
		itemID, batchNumber); err != nil {
		return nil, r.db.Err(err, "batch")
	}
	return &b, nil
}

func (r *batchRepoSQL) Create(ctx context.Context, b *Batch) error {
	id, err := r.db.InsertID(ctx, `
		INSERT INTO pharmacy_batches (item_id, supplier_id, batch_number, expiry_date, quantity,
			cost_price, sale_price, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.ItemID, b.SupplierID, b.BatchNumber, b.ExpiryDate, b.Quantity,
		b.CostPrice, b.SalePrice, b.CreatedAt, b.UpdatedAt)
	if err != nil {
		return r.db.Err(err, "batch")
	}
	b.ID = id
	return nil
}

func (r *batchRepoSQL) TopUp(ctx context.Context, id int64, qty int, cost, sale decimal.Decimal, expiry *dates.Date, at time.Time) error {
	n, err := r.db.Exec(ctx, `
		UPDATE pharmacy_batches SET quantity = quantity + ?, cost_price = ?, sale_price = ?,
			expiry_date = COALESCE(?, expiry_date), updated_at = ?
		WHERE id = ?`, qty, cost, sale, expiry, at, id)
	if err != nil {
		return r.db.Err(err, "batch")
	}
	return db.RequireAffected(n, "batch")
}

// =========== Supplier Repository ===========

type supplierRepoSQL struct{ db *db.DB }

func NewSupplierRepoSQL(d *db.DB) SupplierRepository { return &supplierRepoSQL{db: d} }

const supplierCols = `id, name, contact_person, phone, email, address, gst_number, is_active, created_at, updated_at`

func (r *supplierRepoSQL) Create(ctx context.Context, s *Supplier) error {
	id, err := r.db.InsertID(ctx, `
		INSERT INTO pharmacy_suppliers (name, contact_person, phone, email, address, gst_number,
			is_active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.Name, s.ContactPerson, s.Phone, s.Email, s.Address, s.GSTNumber,
		s.IsActive, s.CreatedAt, s.UpdatedAt)
	if err != nil {
		return r.db.Err(err, "supplier")
	}
	s.ID = id
	return nil
}

func (r *supplierRepoSQL) GetByID(ctx context.Context, id int64) (*Supplier, error) {
	var s Supplier
	if err := r.db.Get(ctx, &s, `SELECT `+supplierCols+` FROM pharmacy_suppliers WHERE id = ?`, id); err != nil {
		return nil, r.db.Err(err, "supplier")
	}
	return &s, nil
}

func (r *supplierRepoSQL) List(ctx context.Context, limit, offset int) ([]*Supplier, int, error) {
	total, err := r.db.Count(ctx, `SELECT COUNT(*) FROM pharmacy_suppliers`)
	if err != nil {
		return nil, 0, r.db.Err(err, "supplier")
	}
	var out []*Supplier
	if err := r.db.Select(ctx, &out, `SELECT `+supplierCols+` FROM pharmacy_suppliers ORDER BY name LIMIT ? OFFSET ?`,
		limit, offset); err != nil {
		return nil, 0, r.db.Err(err, "supplier")
	}
	return out, total, nil
}

func (r *supplierRepoSQL) InsertIfAbsent(ctx context.Context, s *Supplier) (bool, error) {
	var existing Supplier
	err := r.db.Get(ctx, &existing, `SELECT `+supplierCols+` FROM pharmacy_suppliers WHERE name = ?`, s.Name)
	if err == nil {
		s.ID = existing.ID
		return false, nil
	}
	if err = r.db.Err(err, "supplier"); !apperr.Is(err, apperr.KindNotFound) {
		return false, err
	}
	if err := r.Create(ctx, s); err != nil {
		return false, err
	}
	return true, nil
}

// =========== Purchase Repository ===========

type purchaseRepoSQL struct{ db *db.DB }

func NewPurchaseRepoSQL(d *db.DB) PurchaseRepository { return &purchaseRepoSQL{db: d} }

const (
	poCols      = `id, po_number, supplier_id, status, order_date, total, notes, created_at, updated_at`
	poItemCols  = `id, purchase_order_id, item_id, quantity, received_quantity, unit_cost`
	grnCols     = `id, grn_number, purchase_order_id, supplier_id, invoice_number, received_date, total, created_at`
	grnItemCols = `id, grn_id, item_id, batch_id, batch_number, expiry_date, quantity, unit_cost, sale_price`
)

func (r *purchaseRepoSQL) CreatePO(ctx context.Context, po *PurchaseOrder) error {
	id, err := r.db.InsertID(ctx, `
		INSERT INTO purchase_orders (po_number, supplier_id, status, order_date, total, notes, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		po.PONumber, po.SupplierID, po.Status, po.OrderDate, po.Total, po.Notes, po.CreatedAt, po.UpdatedAt)
	if err != nil {
		return r.db.Err(err, "purchase order")
	}
	po.ID = id
	return nil
}

func (r *purchaseRepoSQL) GetPO(ctx context.Context, id int64) (*PurchaseOrder, error) {
	var po PurchaseOrder
	if err := r.db.Get(ctx, &po, `SELECT `+poCols+` FROM purchase_orders WHERE id = ?`, id); err != nil {
		return nil, r.db.Err(err, "purchase order")
	}
	return &po, nil
}

func (r *purchaseRepoSQL) ListPOs(ctx context.Context, status string, limit, offset int) ([]*PurchaseOrder, int, error) {
	clause := ""
	var args []any
	if status != "" {
		clause = ` WHERE status = ?`
		args = append(args, status)
	}
	total, err := r.db.Count(ctx, `SELECT COUNT(*) FROM purchase_orders`+clause, args...)
	if err != nil {
		return nil, 0, r.db.Err(err, "purchase order")
	}
	var out []*PurchaseOrder
	if err := r.db.Select(ctx, &out, `SELECT `+poCols+` FROM purchase_orders`+clause+
		` ORDER BY order_date DESC, id DESC LIMIT ? OFFSET ?`, append(args, limit, offset)...); err != nil {
		return nil, 0, r.db.Err(err, "purchase order")
	}
	return out, total, nil
}

func (r *purchaseRepoSQL) UpdatePOStatus(ctx context.Context, id int64, status string, at time.Time) error {
	n, err := r.db.Exec(ctx, `UPDATE purchase_orders SET status = ?, updated_at = ? WHERE id = ?`, status, at, id)
	if err != nil {
		return r.db.Err(err, "purchase order")
	}
	return db.RequireAffected(n, "purchase order")
}

func (r *purchaseRepoSQL) AddPOItem(ctx context.Context, item *PurchaseOrderItem) error {
	id, err := r.db.InsertID(ctx, `
		INSERT INTO purchase_order_items (purchase_order_id, item_id, quantity, received_quantity, unit_cost)
		VALUES (?, ?, ?, ?, ?)`,
		item.PurchaseOrderID, item.ItemID, item.Quantity, item.ReceivedQuantity, item.UnitCost)
	if err != nil {
		return r.db.Err(err, "purchase order item")
	}
	item.ID = id
	return nil
}

func (r *purchaseRepoSQL) ListPOItems(ctx context.Context, poID int64) ([]*PurchaseOrderItem, error) {
	out := []*PurchaseOrderItem{}
	if err := r.db.Select(ctx, &out, `SELECT `+poItemCols+` FROM purchase_order_items
		WHERE purchase_order_id = ? ORDER BY id`, poID); err != nil {
		return nil, r.db.Err(err, "purchase order item")
	}
	return out, nil
}

func (r *purchaseRepoSQL) AddReceived(ctx context.Context, poItemID int64, qty int) error {
	n, err := r.db.Exec(ctx, `UPDATE purchase_order_items SET received_quantity = received_quantity + ? WHERE id = ?`,
		qty, poItemID)
	if err != nil {
		return r.db.Err(err, "purchase order item")
	}
	return db.RequireAffected(n, "purchase order item")
}

func (r *purchaseRepoSQL) CreateGRN(ctx context.Context, g *GRN) error {
	id, err := r.db.InsertID(ctx, `
		INSERT INTO grn (grn_number, purchase_order_id, supplier_id, invoice_number, received_date, total, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		g.GRNNumber, g.PurchaseOrderID, g.SupplierID, g.InvoiceNumber, g.ReceivedDate, g.Total, g.CreatedAt)
	if err != nil {
		return r.db.Err(err, "grn")
	}
	g.ID = id
	return nil
}

func (r *purchaseRepoSQL) GetGRN(ctx context.Context, id int64) (*GRN, error) {
	var g GRN
	if err := r.db.Get(ctx, &g, `SELECT `+grnCols+` FROM grn WHERE id = ?`, id); err != nil {
		return nil, r.db.Err(err, "grn")
	}
	return &g, nil
}

func (r *purchaseRepoSQL) AddGRNItem(ctx context.Context, item *GRNItem) error {
	id, err := r.db.InsertID(ctx, `
		INSERT INTO grn_items (grn_id, item_id, batch_id, batch_number, expiry_date, quantity, unit_cost, sale_price)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		item.GRNID, item.ItemID, item.BatchID, item.BatchNumber, item.ExpiryDate, item.Quantity,
		item.UnitCost, item.SalePrice)
	if err != nil {
		return r.db.Err(err, "grn item")
	}
	item.ID = id
	return nil
}

func (r *purchaseRepoSQL) ListGRNItems(ctx context.Context, grnID int64) ([]*GRNItem, error) {
	out := []*GRNItem{}
	if err := r.db.Select(ctx, &out, `SELECT `+grnItemCols+` FROM grn_items WHERE grn_id = ? ORDER BY id`, grnID); err != nil {
		return nil, r.db.Err(err, "grn item")
	}
	return out, nil
}

// =========== Pharmacy Order Repository ===========

type orderRepoSQL struct{ db *db.DB }

func NewOrderRepoSQL(d *db.DB) OrderRepository { return &orderRepoSQL{db: d} }

const (
	orderCols     = `id, prescription_id, patient_id, doctor_id, status, dispensed_at, created_at, updated_at`
	orderItemCols = `id, pharmacy_order_id, item_id, sku, item_name, quantity, unit_price`
)

func (r *orderRepoSQL) Create(ctx context.Context, o *Order) error {
	id, err := r.db.InsertID(ctx, `
		INSERT INTO pharmacy_orders (prescription_id, patient_id, doctor_id, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		o.PrescriptionID, o.PatientID, o.DoctorID, o.Status, o.CreatedAt, o.UpdatedAt)
	if err != nil {
		return r.db.Err(err, "pharmacy order")
	}
	o.ID = id
	return nil
}

func (r *orderRepoSQL) GetByID(ctx context.Context, id int64) (*Order, error) {
	var o Order
	if err := r.db.Get(ctx, &o, `SELECT `+orderCols+` FROM pharmacy_orders WHERE id = ?`, id); err != nil {
		return nil, r.db.Err(err, "pharmacy order")
	}
	return &o, nil
}

func (r *orderRepoSQL) ListByPrescription(ctx context.Context, prescriptionID int64) ([]*Order, error) {
	out := []*Order{}
	if err := r.db.Select(ctx, &out, `SELECT `+orderCols+` FROM pharmacy_orders WHERE prescription_id = ? ORDER BY id`,
		prescriptionID); err != nil {
		return nil, r.db.Err(err, "pharmacy order")
	}
	return out, nil
}

func (r *orderRepoSQL) UpdateStatus(ctx context.Context, id int64, status string, dispensedAt *time.Time, at time.Time) error {
	n, err := r.db.Exec(ctx, `UPDATE pharmacy_orders SET status = ?, dispensed_at = ?, updated_at = ? WHERE id = ?`,
		status, dispensedAt, at, id)
	if err != nil {
		return r.db.Err(err, "pharmacy order")
	}
	return db.RequireAffected(n, "pharmacy order")
}

func (r *orderRepoSQL) AddItem(ctx context.Context, item *OrderItem) error {
	id, err := r.db.InsertID(ctx, `
		INSERT INTO pharmacy_order_items (pharmacy_order_id, item_id, sku, item_name, quantity, unit_price)
		VALUES (?, ?, ?, ?, ?, ?)`,
		item.PharmacyOrderID, item.ItemID, item.SKU, item.ItemName, item.Quantity, item.UnitPrice)
	if err != nil {
		return r.db.Err(err, "pharmacy order item")
	}
	item.ID = id
	return nil
}

func (r *orderRepoSQL) ListItems(ctx context.Context, orderID int64) ([]*OrderItem, error) {
	out := []*OrderItem{}
	if err := r.db.Select(ctx, &out, `SELECT `+orderItemCols+` FROM pharmacy_order_items
		WHERE pharmacy_order_id = ? ORDER BY id`, orderID); err != nil {
		return nil, r.db.Err(err, "pharmacy order item")
	}
	return out, nil
}
