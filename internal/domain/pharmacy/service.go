// Package pharmacy manages the medicine catalog, suppliers, stock batches,
// purchase orders, goods receipts and pharmacy orders on prescriptions.
package pharmacy

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/opdemr/opdemr/internal/domain/audit"
	"github.com/opdemr/opdemr/internal/domain/clinical"
	"github.com/opdemr/opdemr/internal/platform/apperr"
	"github.com/opdemr/opdemr/internal/platform/db"
	"github.com/opdemr/opdemr/pkg/dates"
	"github.com/opdemr/opdemr/pkg/docnum"
)

// PrescriptionLookup resolves the prescription a pharmacy order is raised on.
type PrescriptionLookup interface {
	GetPrescription(ctx context.Context, id int64) (*clinical.Prescription, error)
}

type Service struct {
	tx            db.Transactor
	items         ItemRepository
	batches       BatchRepository
	suppliers     SupplierRepository
	purchases     PurchaseRepository
	orders        OrderRepository
	prescriptions PrescriptionLookup
	audit         audit.Recorder
	now           func() time.Time

	skuMu   sync.Mutex
	lastSKU int64
}

func NewService(tx db.Transactor, items ItemRepository, batches BatchRepository, suppliers SupplierRepository,
	purchases PurchaseRepository, orders OrderRepository, prescriptions PrescriptionLookup, rec audit.Recorder) *Service {
	return &Service{
		tx:            tx,
		items:         items,
		batches:       batches,
		suppliers:     suppliers,
		purchases:     purchases,
		orders:        orders,
		prescriptions: prescriptions,
		audit:         rec,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// nextSKU returns SKU-<unix millis>, bumped past the last one issued so two
// items created in the same millisecond still differ.
func (s *Service) nextSKU() string {
	s.skuMu.Lock()
	defer s.skuMu.Unlock()
	ms := s.now().UnixMilli()
	if ms <= s.lastSKU {
		ms = s.lastSKU + 1
	}
	s.lastSKU = ms
	return fmt.Sprintf("SKU-%d", ms)
}

// -- Items --

func normalizeItem(it *Item) error {
	it.Name = strings.TrimSpace(it.Name)
	it.SKU = strings.TrimSpace(it.SKU)
	if it.Name == "" {
		return apperr.Validation("name is required")
	}
	if it.MRP.IsNegative() {
		return apperr.Validation("mrp must not be negative")
	}
	if it.ReorderLevel < 0 {
		return apperr.Validation("reorder_level must not be negative")
	}
	it.MRP = it.MRP.Round(2)
	return nil
}

// CreateItem adds a catalog item, generating a SKU when none is given.
func (s *Service) CreateItem(ctx context.Context, it *Item) error {
	if err := normalizeItem(it); err != nil {
		return err
	}
	if it.SKU == "" {
		it.SKU = s.nextSKU()
	}
	it.IsActive = true
	it.Stock = 0
	return s.tx.InTx(ctx, func(ctx context.Context) error {
		it.CreatedAt = s.now()
		it.UpdatedAt = it.CreatedAt
		if err := s.items.Create(ctx, it); err != nil {
			return err
		}
		return s.audit.Record(ctx, "pharmacy_items", it.ID, audit.ActionInsert, nil, it)
	})
}

func (s *Service) GetItem(ctx context.Context, id int64) (*Item, error) {
	return s.items.GetByID(ctx, id)
}

// UpdateItem edits catalog fields. The SKU is fixed once assigned.
func (s *Service) UpdateItem(ctx context.Context, it *Item) error {
	if err := normalizeItem(it); err != nil {
		return err
	}
	return s.tx.InTx(ctx, func(ctx context.Context) error {
		before, err := s.items.GetByID(ctx, it.ID)
		if err != nil {
			return err
		}
		it.SKU = before.SKU
		it.Stock = before.Stock
		it.CreatedAt = before.CreatedAt
		it.UpdatedAt = s.now()
		if err := s.items.Update(ctx, it); err != nil {
			return err
		}
		return s.audit.Record(ctx, "pharmacy_items", it.ID, audit.ActionUpdate, before, it)
	})
}

func (s *Service) ListItems(ctx context.Context, search string, limit, offset int) ([]*Item, int, error) {
	return s.items.List(ctx, search, limit, offset)
}

func (s *Service) LowStock(ctx context.Context) ([]*Item, error) {
	return s.items.LowStock(ctx)
}

func (s *Service) ListBatches(ctx context.Context, itemID int64) ([]*Batch, error) {
	if _, err := s.items.GetByID(ctx, itemID); err != nil {
		return nil, err
	}
	return s.batches.ListByItem(ctx, itemID)
}

// -- Suppliers --

func (s *Service) CreateSupplier(ctx context.Context, sup *Supplier) error {
	sup.Name = strings.TrimSpace(sup.Name)
	if sup.Name == "" {
		return apperr.Validation("name is required")
	}
	sup.IsActive = true
	return s.tx.InTx(ctx, func(ctx context.Context) error {
		sup.CreatedAt = s.now()
		sup.UpdatedAt = sup.CreatedAt
		if err := s.suppliers.Create(ctx, sup); err != nil {
			return err
		}
		return s.audit.Record(ctx, "pharmacy_suppliers", sup.ID, audit.ActionInsert, nil, sup)
	})
}

func (s *Service) GetSupplier(ctx context.Context, id int64) (*Supplier, error) {
	return s.suppliers.GetByID(ctx, id)
}

func (s *Service) ListSuppliers(ctx context.Context, limit, offset int) ([]*Supplier, int, error) {
	return s.suppliers.List(ctx, limit, offset)
}

// -- Purchase Orders --

func (s *Service) CreatePurchaseOrder(ctx context.Context, in CreatePOInput) (*PurchaseOrder, error) {
	if in.SupplierID <= 0 {
		return nil, apperr.Validation("supplier_id is required")
	}
	if len(in.Items) == 0 {
		return nil, apperr.Validation("at least one item is required")
	}
	total := decimal.Zero
	seen := make(map[int64]bool, len(in.Items))
	for i, l := range in.Items {
		if seen[l.ItemID] {
			return nil, apperr.Validation("item %d is listed twice", l.ItemID)
		}
		seen[l.ItemID] = true
		if l.Quantity <= 0 {
			return nil, apperr.Validation("items[%d]: quantity must be positive", i)
		}
		if l.UnitCost.IsNegative() {
			return nil, apperr.Validation("items[%d]: unit_cost must not be negative", i)
		}
		total = total.Add(l.UnitCost.Round(2).Mul(decimal.NewFromInt(int64(l.Quantity))))
	}

	var po *PurchaseOrder
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		if _, err := s.suppliers.GetByID(ctx, in.SupplierID); err != nil {
			return err
		}
		now := s.now()
		po = &PurchaseOrder{
			PONumber:   docnum.New("PO", now),
			SupplierID: in.SupplierID,
			Status:     POOrdered,
			OrderDate:  dates.Of(now),
			Total:      total.Round(2),
			Notes:      in.Notes,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		if in.OrderDate != nil && !in.OrderDate.IsZero() {
			po.OrderDate = *in.OrderDate
		}
		if err := s.purchases.CreatePO(ctx, po); err != nil {
			return err
		}
		for _, l := range in.Items {
			if _, err := s.items.GetByID(ctx, l.ItemID); err != nil {
				return err
			}
			item := &PurchaseOrderItem{PurchaseOrderID: po.ID, ItemID: l.ItemID, Quantity: l.Quantity, UnitCost: l.UnitCost.Round(2)}
			if err := s.purchases.AddPOItem(ctx, item); err != nil {
				return err
			}
			po.Items = append(po.Items, item)
		}
		return s.audit.Record(ctx, "purchase_orders", po.ID, audit.ActionInsert, nil, po)
	})
	if err != nil {
		return nil, err
	}
	return po, nil
}

func (s *Service) GetPurchaseOrder(ctx context.Context, id int64) (*PurchaseOrder, error) {
	po, err := s.purchases.GetPO(ctx, id)
	if err != nil {
		return nil, err
	}
	if po.Items, err = s.purchases.ListPOItems(ctx, id); err != nil {
		return nil, err
	}
	return po, nil
}

func (s *Service) ListPurchaseOrders(ctx context.Context, status string, limit, offset int) ([]*PurchaseOrder, int, error) {
	return s.purchases.ListPOs(ctx, status, limit, offset)
}

// CancelPurchaseOrder cancels an order nothing has been received against.
func (s *Service) CancelPurchaseOrder(ctx context.Context, id int64) (*PurchaseOrder, error) {
	var out *PurchaseOrder
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		before, err := s.purchases.GetPO(ctx, id)
		if err != nil {
			return err
		}
		if before.Status != POOrdered {
			return apperr.Validation("purchase order %s is %s", before.PONumber, before.Status)
		}
		now := s.now()
		if err := s.purchases.UpdatePOStatus(ctx, id, POCancelled, now); err != nil {
			return err
		}
		after := *before
		after.Status = POCancelled
		after.UpdatedAt = now
		out = &after
		return s.audit.Record(ctx, "purchase_orders", id, audit.ActionUpdate, before, out)
	})
	return out, err
}

// -- Goods Receipt --

// Receive records a goods receipt in one transaction. Each line creates its
// (item, batch_number) batch or tops up an existing one. When the receipt is
// against a purchase order, received quantities are added to the matching
// order lines and the order moves to partially_received or received.
func (s *Service) Receive(ctx context.Context, in ReceiveInput) (*GRN, error) {
	if in.SupplierID <= 0 {
		return nil, apperr.Validation("supplier_id is required")
	}
	if len(in.Items) == 0 {
		return nil, apperr.Validation("at least one item is required")
	}
	total := decimal.Zero
	for i := range in.Items {
		l := &in.Items[i]
		l.BatchNumber = strings.TrimSpace(l.BatchNumber)
		if l.BatchNumber == "" {
			return nil, apperr.Validation("items[%d]: batch_number is required", i)
		}
		if l.Quantity <= 0 {
			return nil, apperr.Validation("items[%d]: quantity must be positive", i)
		}
		if l.UnitCost.IsNegative() || l.SalePrice.IsNegative() {
			return nil, apperr.Validation("items[%d]: prices must not be negative", i)
		}
		l.UnitCost = l.UnitCost.Round(2)
		l.SalePrice = l.SalePrice.Round(2)
		total = total.Add(l.UnitCost.Mul(decimal.NewFromInt(int64(l.Quantity))))
	}

	var grn *GRN
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		if _, err := s.suppliers.GetByID(ctx, in.SupplierID); err != nil {
			return err
		}
		var po *PurchaseOrder
		poLines := map[int64]*PurchaseOrderItem{}
		if in.PurchaseOrderID != nil {
			var err error
			if po, err = s.purchases.GetPO(ctx, *in.PurchaseOrderID); err != nil {
				return err
			}
			if po.Status != POOrdered && po.Status != POPartiallyReceived {
				return apperr.Validation("purchase order %s is %s", po.PONumber, po.Status)
			}
			if po.SupplierID != in.SupplierID {
				return apperr.Validation("purchase order %s belongs to another supplier", po.PONumber)
			}
			lines, err := s.purchases.ListPOItems(ctx, po.ID)
			if err != nil {
				return err
			}
			for _, pl := range lines {
				poLines[pl.ItemID] = pl
			}
		}

		now := s.now()
		grn = &GRN{
			GRNNumber:       docnum.New("GRN", now),
			PurchaseOrderID: in.PurchaseOrderID,
			SupplierID:      in.SupplierID,
			InvoiceNumber:   in.InvoiceNumber,
			ReceivedDate:    dates.Of(now),
			Total:           total.Round(2),
			CreatedAt:       now,
		}
		if in.ReceivedDate != nil && !in.ReceivedDate.IsZero() {
			grn.ReceivedDate = *in.ReceivedDate
		}
		if err := s.purchases.CreateGRN(ctx, grn); err != nil {
			return err
		}

		for _, l := range in.Items {
			if _, err := s.items.GetByID(ctx, l.ItemID); err != nil {
				return err
			}
			if po != nil {
				pl, ok := poLines[l.ItemID]
				if !ok {
					return apperr.Validation("item %d is not on purchase order %s", l.ItemID, po.PONumber)
				}
				if pl.ReceivedQuantity+l.Quantity > pl.Quantity {
					return apperr.Validation("item %d: receiving %d exceeds the %d outstanding",
						l.ItemID, l.Quantity, pl.Quantity-pl.ReceivedQuantity)
				}
				if err := s.purchases.AddReceived(ctx, pl.ID, l.Quantity); err != nil {
					return err
				}
				pl.ReceivedQuantity += l.Quantity
			}

			batchID, err := s.stockBatch(ctx, in.SupplierID, l, now)
			if err != nil {
				return err
			}
			gi := &GRNItem{
				GRNID:       grn.ID,
				ItemID:      l.ItemID,
				BatchID:     batchID,
				BatchNumber: l.BatchNumber,
				ExpiryDate:  l.ExpiryDate,
				Quantity:    l.Quantity,
				UnitCost:    l.UnitCost,
				SalePrice:   l.SalePrice,
			}
			if err := s.purchases.AddGRNItem(ctx, gi); err != nil {
				return err
			}
			grn.Items = append(grn.Items, gi)
		}
		if err := s.audit.Record(ctx, "grn", grn.ID, audit.ActionInsert, nil, grn); err != nil {
			return err
		}

		if po == nil {
			return nil
		}
		next := POReceived
		for _, pl := range poLines {
			if pl.ReceivedQuantity < pl.Quantity {
				next = POPartiallyReceived
				break
			}
		}
		if next == po.Status {
			return nil
		}
		if err := s.purchases.UpdatePOStatus(ctx, po.ID, next, now); err != nil {
			return err
		}
		return s.audit.Record(ctx, "purchase_orders", po.ID, audit.ActionUpdate,
			map[string]string{"status": po.Status}, map[string]string{"status": next})
	})
	if err != nil {
		return nil, err
	}
	return grn, nil
}

// stockBatch creates the batch for a receipt line or tops up the existing
// one with the same item and batch number.
func (s *Service) stockBatch(ctx context.Context, supplierID int64, l GRNLine, now time.Time) (int64, error) {
	existing, err := s.batches.Find(ctx, l.ItemID, l.BatchNumber)
	switch {
	case err == nil:
		if err := s.batches.TopUp(ctx, existing.ID, l.Quantity, l.UnitCost, l.SalePrice, l.ExpiryDate, now); err != nil {
			return 0, err
		}
		after := *existing
		after.Quantity += l.Quantity
		return existing.ID, s.audit.Record(ctx, "pharmacy_batches", existing.ID, audit.ActionUpdate, existing, &after)
	case apperr.Is(err, apperr.KindNotFound):
		b := &Batch{
			ItemID:      l.ItemID,
			SupplierID:  supplierID,
			BatchNumber: l.BatchNumber,
			ExpiryDate:  l.ExpiryDate,
			Quantity:    l.Quantity,
			CostPrice:   l.UnitCost,
			SalePrice:   l.SalePrice,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := s.batches.Create(ctx, b); err != nil {
			return 0, err
		}
		return b.ID, s.audit.Record(ctx, "pharmacy_batches", b.ID, audit.ActionInsert, nil, b)
	default:
		return 0, err
	}
}

func (s *Service) GetGRN(ctx context.Context, id int64) (*GRN, error) {
	g, err := s.purchases.GetGRN(ctx, id)
	if err != nil {
		return nil, err
	}
	if g.Items, err = s.purchases.ListGRNItems(ctx, id); err != nil {
		return nil, err
	}
	return g, nil
}

// -- Pharmacy Orders --

// CreateOrder raises a pharmacy order on a prescription, copying each item's
// sku, name and MRP onto the order lines.
func (s *Service) CreateOrder(ctx context.Context, in CreateOrderInput) (*Order, error) {
	if in.PrescriptionID <= 0 {
		return nil, apperr.Validation("prescription_id is required")
	}
	if len(in.Items) == 0 {
		return nil, apperr.Validation("at least one item is required")
	}
	for i, l := range in.Items {
		if l.Quantity <= 0 {
			return nil, apperr.Validation("items[%d]: quantity must be positive", i)
		}
	}

	var order *Order
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		p, err := s.prescriptions.GetPrescription(ctx, in.PrescriptionID)
		if err != nil {
			return err
		}
		if !p.Orderable() {
			return apperr.Validation("prescription %d is %s", p.ID, p.Status)
		}
		now := s.now()
		order = &Order{
			PrescriptionID: p.ID,
			PatientID:      p.PatientID,
			DoctorID:       p.DoctorID,
			Status:         OrderPending,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		if err := s.orders.Create(ctx, order); err != nil {
			return err
		}
		for _, l := range in.Items {
			it, err := s.items.GetByID(ctx, l.ItemID)
			if err != nil {
				return err
			}
			if !it.IsActive {
				return apperr.Validation("pharmacy item %s is not active", it.SKU)
			}
			oi := &OrderItem{
				PharmacyOrderID: order.ID,
				ItemID:          it.ID,
				SKU:             it.SKU,
				ItemName:        it.Name,
				Quantity:        l.Quantity,
				UnitPrice:       it.MRP,
			}
			if err := s.orders.AddItem(ctx, oi); err != nil {
				return err
			}
			order.Items = append(order.Items, oi)
		}
		return s.audit.Record(ctx, "pharmacy_orders", order.ID, audit.ActionInsert, nil, order)
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

func (s *Service) GetOrder(ctx context.Context, id int64) (*Order, error) {
	o, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if o.Items, err = s.orders.ListItems(ctx, id); err != nil {
		return nil, err
	}
	return o, nil
}

func (s *Service) ListOrdersByPrescription(ctx context.Context, prescriptionID int64) ([]*Order, error) {
	orders, err := s.orders.ListByPrescription(ctx, prescriptionID)
	if err != nil {
		return nil, err
	}
	for _, o := range orders {
		if o.Items, err = s.orders.ListItems(ctx, o.ID); err != nil {
			return nil, err
		}
	}
	return orders, nil
}

// Dispense marks a pending order as handed over. Stock levels are managed
// through batches and are not decremented here.
func (s *Service) Dispense(ctx context.Context, id int64) (*Order, error) {
	return s.setOrderStatus(ctx, id, OrderDispensed)
}

func (s *Service) CancelOrder(ctx context.Context, id int64) (*Order, error) {
	return s.setOrderStatus(ctx, id, OrderCancelled)
}

func (s *Service) setOrderStatus(ctx context.Context, id int64, status string) (*Order, error) {
	var out *Order
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		before, err := s.orders.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if before.Status != OrderPending {
			return apperr.Validation("pharmacy order %d is %s", id, before.Status)
		}
		now := s.now()
		var dispensedAt *time.Time
		if status == OrderDispensed {
			dispensedAt = &now
		}
		if err := s.orders.UpdateStatus(ctx, id, status, dispensedAt, now); err != nil {
			return err
		}
		after := *before
		after.Status = status
		after.DispensedAt = dispensedAt
		after.UpdatedAt = now
		if after.Items, err = s.orders.ListItems(ctx, id); err != nil {
			return err
		}
		out = &after
		return s.audit.Record(ctx, "pharmacy_orders", id, audit.ActionUpdate, before, out)
	})
	return out, err
}
