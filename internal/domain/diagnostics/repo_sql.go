package diagnostics

import (
	"context"
	"strings"
	"time"

	"github.com/opdemr/opdemr/internal/platform/apperr"
	"github.com/opdemr/opdemr/internal/platform/db"
)

// =========== Lab Test Repository ===========

type testRepoSQL struct{ db *db.DB }

func NewTestRepoSQL(d *db.DB) TestRepository { return &testRepoSQL{db: d} }

const testCols = `id, test_code, name, category, subcategory, sample_type, unit, normal_range, price,
	service_type, is_active, created_at, updated_at`

func (r *testRepoSQL) Create(ctx context.Context, t *LabTest) error {
	id, err := r.db.InsertID(ctx, `
		INSERT INTO lab_tests (test_code, name, category, subcategory, sample_type, unit, normal_range, price,
			service_type, is_active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.TestCode, t.Name, t.Category, t.Subcategory, t.SampleType, t.Unit, t.NormalRange, t.Price,
		t.ServiceType, t.IsActive, t.CreatedAt, t.UpdatedAt)
	if err != nil {
		return r.db.Err(err, "lab test")
	}
	t.ID = id
	return nil
}

func (r *testRepoSQL) GetByID(ctx context.Context, id int64) (*LabTest, error) {
	var t LabTest
	if err := r.db.Get(ctx, &t, `SELECT `+testCols+` FROM lab_tests WHERE id = ?`, id); err != nil {
		return nil, r.db.Err(err, "lab test")
	}
	return &t, nil
}

func (r *testRepoSQL) GetByCode(ctx context.Context, code string) (*LabTest, error) {
	var t LabTest
	if err := r.db.Get(ctx, &t, `SELECT `+testCols+` FROM lab_tests WHERE test_code = ?`, code); err != nil {
		return nil, r.db.Err(err, "lab test")
	}
	return &t, nil
}

func (r *testRepoSQL) Update(ctx context.Context, t *LabTest) error {
	n, err := r.db.Exec(ctx, `
		UPDATE lab_tests SET test_code = ?, name = ?, category = ?, subcategory = ?, sample_type = ?, unit = ?,
			normal_range = ?, price = ?, service_type = ?, is_active = ?, updated_at = ?
		WHERE id = ?`,
		t.TestCode, t.Name, t.Category, t.Subcategory, t.SampleType, t.Unit,
		t.NormalRange, t.Price, t.ServiceType, t.IsActive, t.UpdatedAt, t.ID)
	if err != nil {
		return r.db.Err(err, "lab test")
	}
	return db.RequireAffected(n, "lab test")
}

func (r *testRepoSQL) List(ctx context.Context, f TestFilter, limit, offset int) ([]*LabTest, int, error) {
	var where []string
	var args []any
	if f.Category != "" {
		where = append(where, "category = ?")
		args = append(args, f.Category)
	}
	if f.Subcategory != "" {
		where = append(where, "subcategory = ?")
		args = append(args, f.Subcategory)
	}
	if f.ActiveOnly {
		where = append(where, "is_active = ?")
		args = append(args, true)
	}
	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	total, err := r.db.Count(ctx, `SELECT COUNT(*) FROM lab_tests`+clause, args...)
	if err != nil {
		return nil, 0, r.db.Err(err, "lab test")
	}
	var out []*LabTest
	err = r.db.Select(ctx, &out, `SELECT `+testCols+` FROM lab_tests`+clause+
		` ORDER BY name, id LIMIT ? OFFSET ?`, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, r.db.Err(err, "lab test")
	}
	return out, total, nil
}

func (r *testRepoSQL) Categories(ctx context.Context) ([]*CategoryGroup, error) {
	var rows []struct {
		Category    string  `db:"category"`
		Subcategory *string `db:"subcategory"`
	}
	err := r.db.Select(ctx, &rows, `SELECT DISTINCT category, subcategory FROM lab_tests
		WHERE is_active = ? ORDER BY category, subcategory`, true)
	if err != nil {
		return nil, r.db.Err(err, "lab test")
	}
	out := []*CategoryGroup{}
	var cur *CategoryGroup
	for _, row := range rows {
		if cur == nil || cur.Category != row.Category {
			cur = &CategoryGroup{Category: row.Category, Subcategories: []string{}}
			out = append(out, cur)
		}
		if row.Subcategory != nil && *row.Subcategory != "" {
			cur.Subcategories = append(cur.Subcategories, *row.Subcategory)
		}
	}
	return out, nil
}

func (r *testRepoSQL) InsertIfAbsent(ctx context.Context, t *LabTest) (bool, error) {
	existing, err := r.GetByCode(ctx, t.TestCode)
	if err == nil {
		t.ID = existing.ID
		return false, nil
	}
	if !apperr.Is(err, apperr.KindNotFound) {
		return false, err
	}
	if err := r.Create(ctx, t); err != nil {
		return false, err
	}
	return true, nil
}

// =========== Report Template Repository ===========

type templateRepoSQL struct{ db *db.DB }

func NewTemplateRepoSQL(d *db.DB) TemplateRepository { return &templateRepoSQL{db: d} }

const templateCols = `id, name, category, test_id, body, created_at, updated_at`

func (r *templateRepoSQL) Create(ctx context.Context, t *ReportTemplate) error {
	id, err := r.db.InsertID(ctx, `
		INSERT INTO report_templates (name, category, test_id, body, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		t.Name, t.Category, t.TestID, t.Body, t.CreatedAt, t.UpdatedAt)
	if err != nil {
		return r.db.Err(err, "report template")
	}
	t.ID = id
	return nil
}

func (r *templateRepoSQL) GetByID(ctx context.Context, id int64) (*ReportTemplate, error) {
	var t ReportTemplate
	if err := r.db.Get(ctx, &t, `SELECT `+templateCols+` FROM report_templates WHERE id = ?`, id); err != nil {
		return nil, r.db.Err(err, "report template")
	}
	return &t, nil
}

func (r *templateRepoSQL) List(ctx context.Context, limit, offset int) ([]*ReportTemplate, int, error) {
	total, err := r.db.Count(ctx, `SELECT COUNT(*) FROM report_templates`)
	if err != nil {
		return nil, 0, r.db.Err(err, "report template")
	}
	var out []*ReportTemplate
	if err := r.db.Select(ctx, &out, `SELECT `+templateCols+` FROM report_templates ORDER BY name LIMIT ? OFFSET ?`,
		limit, offset); err != nil {
		return nil, 0, r.db.Err(err, "report template")
	}
	return out, total, nil
}

func (r *templateRepoSQL) InsertIfAbsent(ctx context.Context, t *ReportTemplate) (bool, error) {
	var id int64
	err := r.db.Get(ctx, &id, `SELECT id FROM report_templates WHERE name = ?`, t.Name)
	if err == nil {
		t.ID = id
		return false, nil
	}
	if err = r.db.Err(err, "report template"); !apperr.Is(err, apperr.KindNotFound) {
		return false, err
	}
	if err := r.Create(ctx, t); err != nil {
		return false, err
	}
	return true, nil
}

// =========== Lab Order Repository ===========

type orderRepoSQL struct{ db *db.DB }

func NewOrderRepoSQL(d *db.DB) OrderRepository { return &orderRepoSQL{db: d} }

const orderCols = `id, prescription_id, patient_id, doctor_id, priority, status, created_at, updated_at`

const itemCols = `id, lab_order_id, test_id, test_code, test_name, price, service_type, sample_id,
	result_value, result_status, resulted_at, created_at`

func (r *orderRepoSQL) Create(ctx context.Context, o *LabOrder) error {
	id, err := r.db.InsertID(ctx, `
		INSERT INTO lab_orders (prescription_id, patient_id, doctor_id, priority, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		o.PrescriptionID, o.PatientID, o.DoctorID, o.Priority, o.Status, o.CreatedAt, o.UpdatedAt)
	if err != nil {
		return r.db.Err(err, "lab order")
	}
	o.ID = id
	return nil
}

func (r *orderRepoSQL) GetByID(ctx context.Context, id int64) (*LabOrder, error) {
	var o LabOrder
	if err := r.db.Get(ctx, &o, `SELECT `+orderCols+` FROM lab_orders WHERE id = ?`, id); err != nil {
		return nil, r.db.Err(err, "lab order")
	}
	return &o, nil
}

func (r *orderRepoSQL) ListByPrescription(ctx context.Context, prescriptionID int64) ([]*LabOrder, error) {
	out := []*LabOrder{}
	if err := r.db.Select(ctx, &out, `SELECT `+orderCols+` FROM lab_orders WHERE prescription_id = ? ORDER BY id`,
		prescriptionID); err != nil {
		return nil, r.db.Err(err, "lab order")
	}
	return out, nil
}

func (r *orderRepoSQL) UpdateStatus(ctx context.Context, id int64, status string, at time.Time) error {
	n, err := r.db.Exec(ctx, `UPDATE lab_orders SET status = ?, updated_at = ? WHERE id = ?`, status, at, id)
	if err != nil {
		return r.db.Err(err, "lab order")
	}
	return db.RequireAffected(n, "lab order")
}

func (r *orderRepoSQL) AddItem(ctx context.Context, item *LabOrderItem) error {
	id, err := r.db.InsertID(ctx, `
		INSERT INTO lab_order_items (lab_order_id, test_id, test_code, test_name, price, service_type, sample_id,
			result_status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		item.LabOrderID, item.TestID, item.TestCode, item.TestName, item.Price, item.ServiceType, item.SampleID,
		item.ResultStatus, item.CreatedAt)
	if err != nil {
		return r.db.Err(err, "lab order item")
	}
	item.ID = id
	return nil
}

func (r *orderRepoSQL) GetItem(ctx context.Context, id int64) (*LabOrderItem, error) {
	var item LabOrderItem
	if err := r.db.Get(ctx, &item, `SELECT `+itemCols+` FROM lab_order_items WHERE id = ?`, id); err != nil {
		return nil, r.db.Err(err, "lab order item")
	}
	return &item, nil
}

func (r *orderRepoSQL) ListItems(ctx context.Context, orderID int64) ([]*LabOrderItem, error) {
	out := []*LabOrderItem{}
	if err := r.db.Select(ctx, &out, `SELECT `+itemCols+` FROM lab_order_items WHERE lab_order_id = ? ORDER BY id`,
		orderID); err != nil {
		return nil, r.db.Err(err, "lab order item")
	}
	return out, nil
}

func (r *orderRepoSQL) RecordResult(ctx context.Context, itemID int64, value string, at time.Time) error {
	n, err := r.db.Exec(ctx, `UPDATE lab_order_items SET result_value = ?, result_status = ?, resulted_at = ? WHERE id = ?`,
		value, ResultCompleted, at, itemID)
	if err != nil {
		return r.db.Err(err, "lab order item")
	}
	return db.RequireAffected(n, "lab order item")
}
