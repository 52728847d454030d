package billing

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/opdemr/opdemr/internal/domain/category"
	"github.com/opdemr/opdemr/internal/platform/apperr"
	"github.com/opdemr/opdemr/internal/platform/db"
	"github.com/opdemr/opdemr/pkg/dates"
)

type repoSQL struct{ db *db.DB }

func NewRepoSQL(d *db.DB) Repository { return &repoSQL{db: d} }

const (
	billCols = `id, bill_number, patient_id, doctor_id, prescription_id, subtotal, discount, tax, total,
	billing_status, payment_method, paid_at, created_at, updated_at`
	billItemCols = `id, bill_id, service_type, description, reference_id, quantity, unit_price, amount`
)

func (r *repoSQL) Create(ctx context.Context, b *Bill) error {
	id, err := r.db.InsertID(ctx, `
		INSERT INTO bills (bill_number, patient_id, doctor_id, prescription_id, subtotal, discount, tax, total,
			billing_status, payment_method, paid_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.BillNumber, b.PatientID, b.DoctorID, b.PrescriptionID, b.Subtotal, b.Discount, b.Tax, b.Total,
		b.BillingStatus, b.PaymentMethod, b.PaidAt, b.CreatedAt, b.UpdatedAt)
	if err != nil {
		return r.db.Err(err, "bill")
	}
	b.ID = id
	return nil
}

func (r *repoSQL) GetByID(ctx context.Context, id int64) (*Bill, error) {
	var b Bill
	if err := r.db.Get(ctx, &b, `SELECT `+billCols+` FROM bills WHERE id = ?`, id); err != nil {
		return nil, r.db.Err(err, "bill")
	}
	return &b, nil
}

func (r *repoSQL) List(ctx context.Context, f Filter, limit, offset int) ([]*Bill, int, error) {
	var where []string
	var args []any
	if f.Status != "" {
		where = append(where, "billing_status = ?")
		args = append(args, f.Status)
	}
	if f.PatientID != 0 {
		where = append(where, "patient_id = ?")
		args = append(args, f.PatientID)
	}
	if f.From != nil {
		where = append(where, "created_at >= ?")
		args = append(args, f.From.Time)
	}
	if f.To != nil {
		where = append(where, "created_at < ?")
		args = append(args, f.To.AddDays(1).Time)
	}
	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	total, err := r.db.Count(ctx, `SELECT COUNT(*) FROM bills`+clause, args...)
	if err != nil {
		return nil, 0, r.db.Err(err, "bill")
	}
	var out []*Bill
	if err := r.db.Select(ctx, &out, `SELECT `+billCols+` FROM bills`+clause+
		` ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`, append(args, limit, offset)...); err != nil {
		return nil, 0, r.db.Err(err, "bill")
	}
	return out, total, nil
}

func (r *repoSQL) SetPaid(ctx context.Context, id int64, method string, at time.Time) error {
	n, err := r.db.Exec(ctx, `UPDATE bills SET billing_status = ?, payment_method = ?, paid_at = ?, updated_at = ?
		WHERE id = ? AND billing_status = ?`, StatusPaid, method, at, at, id, StatusPending)
	if err != nil {
		return r.db.Err(err, "bill")
	}
	return r.requireMoved(ctx, n, id, StatusPending)
}

func (r *repoSQL) SetStatus(ctx context.Context, id int64, from, to string, at time.Time) error {
	n, err := r.db.Exec(ctx, `UPDATE bills SET billing_status = ?, updated_at = ? WHERE id = ? AND billing_status = ?`,
		to, at, id, from)
	if err != nil {
		return r.db.Err(err, "bill")
	}
	return r.requireMoved(ctx, n, id, from)
}

// requireMoved tells a missing bill apart from one another writer already
// moved out of the expected status.
func (r *repoSQL) requireMoved(ctx context.Context, n, id int64, from string) error {
	if n > 0 {
		return nil
	}
	exists, err := r.db.Count(ctx, `SELECT COUNT(*) FROM bills WHERE id = ?`, id)
	if err != nil {
		return r.db.Err(err, "bill")
	}
	if exists == 0 {
		return apperr.NotFound("bill")
	}
	return apperr.Conflict("bill %d is no longer %s", id, from)
}

func (r *repoSQL) AddItem(ctx context.Context, item *BillItem) error {
	id, err := r.db.InsertID(ctx, `
		INSERT INTO bill_items (bill_id, service_type, description, reference_id, quantity, unit_price, amount)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		item.BillID, item.ServiceType, item.Description, item.ReferenceID, item.Quantity, item.UnitPrice, item.Amount)
	if err != nil {
		return r.db.Err(err, "bill item")
	}
	item.ID = id
	return nil
}

func (r *repoSQL) ListItems(ctx context.Context, billID int64) ([]*BillItem, error) {
	out := []*BillItem{}
	if err := r.db.Select(ctx, &out, `SELECT `+billItemCols+` FROM bill_items WHERE bill_id = ? ORDER BY id`,
		billID); err != nil {
		return nil, r.db.Err(err, "bill item")
	}
	return out, nil
}

func (r *repoSQL) LinkLabOrder(ctx context.Context, billID, labOrderID, prescriptionID int64, at time.Time) error {
	_, err := r.db.InsertID(ctx, `
		INSERT INTO lab_billing (bill_id, lab_order_id, prescription_id, created_at) VALUES (?, ?, ?, ?)`,
		billID, labOrderID, prescriptionID, at)
	if err != nil {
		return r.db.Err(err, "lab billing")
	}
	return nil
}

func (r *repoSQL) UnlinkLabOrders(ctx context.Context, billID int64) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM lab_billing WHERE bill_id = ?`, billID); err != nil {
		return r.db.Err(err, "lab billing")
	}
	return nil
}

func (r *repoSQL) BilledLabOrders(ctx context.Context, prescriptionID int64) (map[int64]bool, error) {
	var ids []int64
	if err := r.db.Select(ctx, &ids, `SELECT lab_order_id FROM lab_billing WHERE prescription_id = ?`,
		prescriptionID); err != nil {
		return nil, r.db.Err(err, "lab billing")
	}
	out := make(map[int64]bool, len(ids))
	for _, id := range ids {
		out[id] = true
	}
	return out, nil
}

func (r *repoSQL) ListUnbilled(ctx context.Context, priority string) ([]*UnbilledPrescription, error) {
	out := []*UnbilledPrescription{}
	err := r.db.Select(ctx, &out, `
		SELECT lo.prescription_id, lo.patient_id, lo.doctor_id, p.first_name, p.last_name,
			COUNT(DISTINCT lo.id) AS order_count, COUNT(li.id) AS item_count,
			COALESCE(SUM(li.price), 0) AS amount
		FROM lab_orders lo
		JOIN lab_order_items li ON li.lab_order_id = lo.id
		JOIN patients p ON p.patient_id = lo.patient_id
		WHERE lo.priority = ? AND lo.status <> ?
			AND NOT EXISTS (SELECT 1 FROM lab_billing lb WHERE lb.lab_order_id = lo.id)
		GROUP BY lo.prescription_id, lo.patient_id, lo.doctor_id, p.first_name, p.last_name
		ORDER BY MIN(lo.id)`, priority, "cancelled")
	if err != nil {
		return nil, r.db.Err(err, "lab order")
	}
	return out, nil
}

// AwaitingConsultation lists patients holding a paid bill with at least one
// consultation item.
func (r *repoSQL) AwaitingConsultation(ctx context.Context, f WorklistFilter) ([]*WorklistEntry, error) {
	inner := []string{"b.patient_id = p.patient_id", "b.billing_status = ?"}
	args := []any{StatusPaid}
	if f.DoctorID != 0 {
		inner = append(inner, "b.doctor_id = ?")
		args = append(args, f.DoctorID)
	}
	if f.Date != nil {
		inner = append(inner, "b.created_at >= ?", "b.created_at < ?")
		args = append(args, f.Date.Time, f.Date.AddDays(1).Time)
	}
	args = append(args, category.Consultation)

	out := []*WorklistEntry{}
	err := r.db.Select(ctx, &out, `
		SELECT p.patient_id, p.first_name, p.last_name, p.phone
		FROM patients p
		WHERE EXISTS (
			SELECT 1 FROM bills b
			WHERE `+strings.Join(inner, " AND ")+`
				AND EXISTS (SELECT 1 FROM bill_items bi WHERE bi.bill_id = b.id AND bi.service_type = ?)
		)
		ORDER BY p.patient_id`, args...)
	if err != nil {
		return nil, r.db.Err(err, "bill")
	}
	return out, nil
}

func (r *repoSQL) Revenue(ctx context.Context, from, to dates.Date) ([]*RevenueLine, error) {
	out := []*RevenueLine{}
	err := r.db.Select(ctx, &out, `
		SELECT bi.service_type, COUNT(DISTINCT b.id) AS bills, COALESCE(SUM(bi.amount), 0) AS amount
		FROM bills b JOIN bill_items bi ON bi.bill_id = b.id
		WHERE b.billing_status = ? AND b.paid_at >= ? AND b.paid_at < ?
		GROUP BY bi.service_type
		ORDER BY bi.service_type`, StatusPaid, from.Time, to.AddDays(1).Time)
	if err != nil {
		return nil, r.db.Err(err, "bill")
	}
	return out, nil
}

func (r *repoSQL) PaidTotal(ctx context.Context, from, to dates.Date) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := r.db.Get(ctx, &total, `SELECT COALESCE(SUM(total), 0) FROM bills
		WHERE billing_status = ? AND paid_at >= ? AND paid_at < ?`, StatusPaid, from.Time, to.AddDays(1).Time)
	if err != nil {
		return decimal.Zero, r.db.Err(err, "bill")
	}
	return total, nil
}
