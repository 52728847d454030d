// Package diagnostics owns the lab test catalog, lab orders with their
// results, and report templates.
package diagnostics

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/opdemr/opdemr/internal/domain/audit"
	"github.com/opdemr/opdemr/internal/domain/category"
	"github.com/opdemr/opdemr/internal/domain/clinical"
	"github.com/opdemr/opdemr/internal/platform/apperr"
	"github.com/opdemr/opdemr/internal/platform/db"
)

// PrescriptionLookup resolves the prescription a lab order is raised on.
type PrescriptionLookup interface {
	GetPrescription(ctx context.Context, id int64) (*clinical.Prescription, error)
}

type Service struct {
	tx            db.Transactor
	tests         TestRepository
	templates     TemplateRepository
	orders        OrderRepository
	prescriptions PrescriptionLookup
	audit         audit.Recorder
	now           func() time.Time
}

func NewService(tx db.Transactor, tests TestRepository, templates TemplateRepository, orders OrderRepository,
	prescriptions PrescriptionLookup, rec audit.Recorder) *Service {
	return &Service{
		tx:            tx,
		tests:         tests,
		templates:     templates,
		orders:        orders,
		prescriptions: prescriptions,
		audit:         rec,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// NewSampleID returns a random sample barcode such as SMP-3F9A0C12B7DE.
func NewSampleID() string {
	hex := strings.ReplaceAll(uuid.NewString(), "-", "")
	return "SMP-" + strings.ToUpper(hex[:12])
}

// -- Lab Tests --

func normalizeTest(t *LabTest) error {
	t.TestCode = strings.ToUpper(strings.TrimSpace(t.TestCode))
	t.Name = strings.TrimSpace(t.Name)
	t.Category = strings.TrimSpace(t.Category)
	if t.TestCode == "" {
		return apperr.Validation("test_code is required")
	}
	if t.Name == "" {
		return apperr.Validation("name is required")
	}
	if t.Category == "" {
		return apperr.Validation("category is required")
	}
	if t.Price.IsNegative() {
		return apperr.Validation("price must not be negative")
	}
	t.Price = t.Price.Round(2)
	if t.ServiceType == "" {
		t.ServiceType = category.Investigation
	}
	if !t.ServiceType.Valid() {
		return apperr.Validation("invalid service_type: %s", t.ServiceType)
	}
	return nil
}

func (s *Service) CreateTest(ctx context.Context, t *LabTest) error {
	if err := normalizeTest(t); err != nil {
		return err
	}
	t.IsActive = true
	return s.tx.InTx(ctx, func(ctx context.Context) error {
		t.CreatedAt = s.now()
		t.UpdatedAt = t.CreatedAt
		if err := s.tests.Create(ctx, t); err != nil {
			return err
		}
		return s.audit.Record(ctx, "lab_tests", t.ID, audit.ActionInsert, nil, t)
	})
}

func (s *Service) GetTest(ctx context.Context, id int64) (*LabTest, error) {
	return s.tests.GetByID(ctx, id)
}

// UpdateTest changes the catalog entry only. Items already ordered keep the
// code, name and price they were ordered at.
func (s *Service) UpdateTest(ctx context.Context, t *LabTest) error {
	if err := normalizeTest(t); err != nil {
		return err
	}
	return s.tx.InTx(ctx, func(ctx context.Context) error {
		before, err := s.tests.GetByID(ctx, t.ID)
		if err != nil {
			return err
		}
		t.CreatedAt = before.CreatedAt
		t.UpdatedAt = s.now()
		if err := s.tests.Update(ctx, t); err != nil {
			return err
		}
		return s.audit.Record(ctx, "lab_tests", t.ID, audit.ActionUpdate, before, t)
	})
}

func (s *Service) ListTests(ctx context.Context, f TestFilter, limit, offset int) ([]*LabTest, int, error) {
	return s.tests.List(ctx, f, limit, offset)
}

func (s *Service) Categories(ctx context.Context) ([]*CategoryGroup, error) {
	return s.tests.Categories(ctx)
}

// -- Report Templates --

func (s *Service) CreateTemplate(ctx context.Context, t *ReportTemplate) error {
	t.Name = strings.TrimSpace(t.Name)
	if t.Name == "" {
		return apperr.Validation("name is required")
	}
	if strings.TrimSpace(t.Body) == "" {
		return apperr.Validation("body is required")
	}
	return s.tx.InTx(ctx, func(ctx context.Context) error {
		if t.TestID != nil {
			if _, err := s.tests.GetByID(ctx, *t.TestID); err != nil {
				return err
			}
		}
		t.CreatedAt = s.now()
		t.UpdatedAt = t.CreatedAt
		if err := s.templates.Create(ctx, t); err != nil {
			return err
		}
		return s.audit.Record(ctx, "report_templates", t.ID, audit.ActionInsert, nil, t)
	})
}

func (s *Service) GetTemplate(ctx context.Context, id int64) (*ReportTemplate, error) {
	return s.templates.GetByID(ctx, id)
}

func (s *Service) ListTemplates(ctx context.Context, limit, offset int) ([]*ReportTemplate, int, error) {
	return s.templates.List(ctx, limit, offset)
}

// -- Lab Orders --

// CreateOrder raises a lab order on a prescription. Each line copies the
// catalog test's code, name, price and service type onto the order item.
func (s *Service) CreateOrder(ctx context.Context, in CreateOrderInput) (*LabOrder, error) {
	if in.PrescriptionID <= 0 {
		return nil, apperr.Validation("prescription_id is required")
	}
	if in.Priority == "" {
		in.Priority = PriorityRegular
	}
	if in.Priority != PriorityRegular && in.Priority != PriorityUrgent {
		return nil, apperr.Validation("priority must be %s or %s", PriorityRegular, PriorityUrgent)
	}
	lines := in.lines()
	if len(lines) == 0 {
		return nil, apperr.Validation("at least one test is required")
	}
	seen := make(map[int64]bool, len(lines))
	for _, l := range lines {
		if seen[l.TestID] {
			return nil, apperr.Validation("test %d is ordered twice", l.TestID)
		}
		seen[l.TestID] = true
	}

	var order *LabOrder
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		p, err := s.prescriptions.GetPrescription(ctx, in.PrescriptionID)
		if err != nil {
			return err
		}
		if !p.Orderable() {
			return apperr.Validation("prescription %d is %s", p.ID, p.Status)
		}

		now := s.now()
		order = &LabOrder{
			PrescriptionID: p.ID,
			PatientID:      p.PatientID,
			DoctorID:       p.DoctorID,
			Priority:       in.Priority,
			Status:         OrderOrdered,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		if err := s.orders.Create(ctx, order); err != nil {
			return err
		}
		for _, l := range lines {
			t, err := s.tests.GetByID(ctx, l.TestID)
			if err != nil {
				return err
			}
			if !t.IsActive {
				return apperr.Validation("lab test %s is not active", t.TestCode)
			}
			sample := l.SampleID
			if sample == nil || strings.TrimSpace(*sample) == "" {
				generated := NewSampleID()
				sample = &generated
			}
			item := &LabOrderItem{
				LabOrderID:   order.ID,
				TestID:       t.ID,
				TestCode:     t.TestCode,
				TestName:     t.Name,
				Price:        t.Price,
				ServiceType:  t.ServiceType,
				SampleID:     sample,
				ResultStatus: ResultPending,
				CreatedAt:    now,
			}
			if err := s.orders.AddItem(ctx, item); err != nil {
				return err
			}
			order.Items = append(order.Items, item)
		}
		return s.audit.Record(ctx, "lab_orders", order.ID, audit.ActionInsert, nil, order)
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

// GetOrder returns the order with its items.
func (s *Service) GetOrder(ctx context.Context, id int64) (*LabOrder, error) {
	o, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if o.Items, err = s.orders.ListItems(ctx, id); err != nil {
		return nil, err
	}
	return o, nil
}

func (s *Service) ListOrdersByPrescription(ctx context.Context, prescriptionID int64) ([]*LabOrder, error) {
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

func (s *Service) UpdateOrderStatus(ctx context.Context, id int64, status string) (*LabOrder, error) {
	var out *LabOrder
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		before, err := s.orders.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if !canTransition(before.Status, status) {
			return apperr.Validation("cannot change lab order from %s to %s", before.Status, status)
		}
		if status == OrderCompleted {
			items, err := s.orders.ListItems(ctx, id)
			if err != nil {
				return err
			}
			for _, it := range items {
				if it.ResultStatus != ResultCompleted {
					return apperr.Validation("lab order %d still has pending results", id)
				}
			}
		}
		now := s.now()
		if err := s.orders.UpdateStatus(ctx, id, status, now); err != nil {
			return err
		}
		after := *before
		after.Status = status
		after.UpdatedAt = now
		out = &after
		return s.audit.Record(ctx, "lab_orders", id, audit.ActionUpdate, before, out)
	})
	return out, err
}

// RecordResult stores a result on one item. The order moves to in_progress
// with its first result and to completed once every item has one.
func (s *Service) RecordResult(ctx context.Context, itemID int64, value string) (*LabOrderItem, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, apperr.Validation("result_value is required")
	}
	var out *LabOrderItem
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		before, err := s.orders.GetItem(ctx, itemID)
		if err != nil {
			return err
		}
		order, err := s.orders.GetByID(ctx, before.LabOrderID)
		if err != nil {
			return err
		}
		if order.Status == OrderCancelled || order.Status == OrderCompleted {
			return apperr.Validation("lab order %d is %s", order.ID, order.Status)
		}

		now := s.now()
		if err := s.orders.RecordResult(ctx, itemID, value, now); err != nil {
			return err
		}
		after := *before
		after.ResultValue = &value
		after.ResultStatus = ResultCompleted
		after.ResultedAt = &now
		out = &after
		if err := s.audit.Record(ctx, "lab_order_items", itemID, audit.ActionUpdate, before, out); err != nil {
			return err
		}

		items, err := s.orders.ListItems(ctx, order.ID)
		if err != nil {
			return err
		}
		next := OrderCompleted
		for _, it := range items {
			if it.ResultStatus != ResultCompleted {
				next = OrderInProgress
				break
			}
		}
		if next == order.Status {
			return nil
		}
		if err := s.orders.UpdateStatus(ctx, order.ID, next, now); err != nil {
			return err
		}
		return s.audit.Record(ctx, "lab_orders", order.ID, audit.ActionUpdate,
			map[string]string{"status": order.Status}, map[string]string{"status": next})
	})
	return out, err
}
