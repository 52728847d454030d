// Package billing raises consultation and lab bills, records payments and
// answers the queries built on bill classification: the doctor's
// awaiting-consultation worklist and revenue by category.
package billing

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/opdemr/opdemr/internal/domain/audit"
	"github.com/opdemr/opdemr/internal/domain/category"
	"github.com/opdemr/opdemr/internal/domain/clinical"
	"github.com/opdemr/opdemr/internal/domain/diagnostics"
	"github.com/opdemr/opdemr/internal/domain/identity"
	"github.com/opdemr/opdemr/internal/platform/apperr"
	"github.com/opdemr/opdemr/internal/platform/db"
	"github.com/opdemr/opdemr/pkg/dates"
	"github.com/opdemr/opdemr/pkg/docnum"
)

// Directory resolves the patient and doctor on a consultation bill.
type Directory interface {
	GetPatientByPatientID(ctx context.Context, patientID int64) (*identity.Patient, error)
	ActiveDoctor(ctx context.Context, id int64) (*identity.Doctor, error)
}

// Prescriptions is the part of the clinical service lab billing drives.
type Prescriptions interface {
	GetPrescription(ctx context.Context, id int64) (*clinical.Prescription, error)
	MarkBilled(ctx context.Context, id int64) error
}

// LabOrders lists the lab orders raised on a prescription.
type LabOrders interface {
	ListOrdersByPrescription(ctx context.Context, prescriptionID int64) ([]*diagnostics.LabOrder, error)
}

type Service struct {
	tx            db.Transactor
	repo          Repository
	dir           Directory
	prescriptions Prescriptions
	labOrders     LabOrders
	audit         audit.Recorder
	now           func() time.Time
}

func NewService(tx db.Transactor, repo Repository, dir Directory, prescriptions Prescriptions, labOrders LabOrders,
	rec audit.Recorder) *Service {
	return &Service{
		tx:            tx,
		repo:          repo,
		dir:           dir,
		prescriptions: prescriptions,
		labOrders:     labOrders,
		audit:         rec,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// Total returns subtotal - discount + tax rounded to two places. Negative
// adjustments and negative totals are rejected.
func Total(subtotal, discount, tax decimal.Decimal) (decimal.Decimal, error) {
	if discount.IsNegative() {
		return decimal.Zero, apperr.Validation("discount must not be negative")
	}
	if tax.IsNegative() {
		return decimal.Zero, apperr.Validation("tax must not be negative")
	}
	total := subtotal.Sub(discount).Add(tax).Round(2)
	if total.IsNegative() {
		return decimal.Zero, apperr.Validation("discount exceeds bill amount")
	}
	return total, nil
}

// create inserts b with its items. b.Subtotal is computed from the items.
func (s *Service) create(ctx context.Context, b *Bill) error {
	subtotal := decimal.Zero
	for _, it := range b.Items {
		subtotal = subtotal.Add(it.Amount)
	}
	total, err := Total(subtotal, b.Discount, b.Tax)
	if err != nil {
		return err
	}
	now := s.now()
	b.BillNumber = docnum.New("BILL", now)
	b.Subtotal = subtotal.Round(2)
	b.Discount = b.Discount.Round(2)
	b.Tax = b.Tax.Round(2)
	b.Total = total
	b.BillingStatus = StatusPending
	b.CreatedAt = now
	b.UpdatedAt = now
	if err := s.repo.Create(ctx, b); err != nil {
		return err
	}
	for _, it := range b.Items {
		it.BillID = b.ID
		if err := s.repo.AddItem(ctx, it); err != nil {
			return err
		}
	}
	b.classify()
	return s.audit.Record(ctx, "bills", b.ID, audit.ActionInsert, nil, b)
}

// CreateConsultationBill bills one consultation priced at the doctor's fee
// unless in.Fee overrides it.
func (s *Service) CreateConsultationBill(ctx context.Context, in ConsultationBillInput) (*Bill, error) {
	if in.PatientID <= 0 || in.DoctorID <= 0 {
		return nil, apperr.Validation("patient_id and doctor_id are required")
	}
	if in.Fee != nil && in.Fee.IsNegative() {
		return nil, apperr.Validation("fee must not be negative")
	}
	var b *Bill
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		if _, err := s.dir.GetPatientByPatientID(ctx, in.PatientID); err != nil {
			return err
		}
		doc, err := s.dir.ActiveDoctor(ctx, in.DoctorID)
		if err != nil {
			return err
		}
		fee := doc.ConsultationFee
		if in.Fee != nil {
			fee = *in.Fee
		}
		fee = fee.Round(2)
		b = &Bill{
			PatientID: in.PatientID,
			DoctorID:  &doc.ID,
			Discount:  in.Discount,
			Tax:       in.Tax,
			Items: []*BillItem{{
				ServiceType: category.Consultation,
				Description: "Consultation - " + doc.Name,
				ReferenceID: in.AppointmentID,
				Quantity:    1,
				UnitPrice:   fee,
				Amount:      fee,
			}},
		}
		return s.create(ctx, b)
	})
	if err != nil {
		return nil, err
	}
	return b, nil
}

// ListUnbilledPrescriptions returns prescriptions with lab orders of the given
// priority that are not linked to any bill.
func (s *Service) ListUnbilledPrescriptions(ctx context.Context, priority string) ([]*UnbilledPrescription, error) {
	if priority != diagnostics.PriorityRegular && priority != diagnostics.PriorityUrgent {
		return nil, apperr.Validation("priority must be %s or %s", diagnostics.PriorityRegular, diagnostics.PriorityUrgent)
	}
	return s.repo.ListUnbilled(ctx, priority)
}

// CreateLabBill bills every unbilled lab order item of a prescription in one
// transaction. Item service type and price come from the order item, the
// orders are linked to the bill, and a created prescription becomes billed.
func (s *Service) CreateLabBill(ctx context.Context, in LabBillInput) (*Bill, error) {
	if in.PrescriptionID <= 0 {
		return nil, apperr.Validation("prescription_id is required")
	}
	var b *Bill
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		p, err := s.prescriptions.GetPrescription(ctx, in.PrescriptionID)
		if err != nil {
			return err
		}
		if p.Status == clinical.StatusCancelled {
			return apperr.Validation("prescription %d is cancelled", p.ID)
		}
		orders, err := s.labOrders.ListOrdersByPrescription(ctx, p.ID)
		if err != nil {
			return err
		}
		billed, err := s.repo.BilledLabOrders(ctx, p.ID)
		if err != nil {
			return err
		}

		b = &Bill{PatientID: p.PatientID, DoctorID: &p.DoctorID, PrescriptionID: &p.ID, Discount: in.Discount, Tax: in.Tax}
		var linked []int64
		for _, o := range orders {
			if o.Status == diagnostics.OrderCancelled || billed[o.ID] || len(o.Items) == 0 {
				continue
			}
			linked = append(linked, o.ID)
			for _, it := range o.Items {
				ref := it.ID
				b.Items = append(b.Items, &BillItem{
					ServiceType: it.ServiceType,
					Description: it.TestName,
					ReferenceID: &ref,
					Quantity:    1,
					UnitPrice:   it.Price,
					Amount:      it.Price,
				})
			}
		}
		if len(b.Items) == 0 {
			return apperr.Validation("prescription %d has no unbilled lab items", p.ID)
		}
		if err := s.create(ctx, b); err != nil {
			return err
		}
		for _, id := range linked {
			if err := s.repo.LinkLabOrder(ctx, b.ID, id, p.ID, b.CreatedAt); err != nil {
				return err
			}
		}
		if p.Status == clinical.StatusCreated {
			return s.prescriptions.MarkBilled(ctx, p.ID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return b, nil
}

// RecordPayment settles a pending bill. Paying twice is a conflict.
func (s *Service) RecordPayment(ctx context.Context, id int64, method string) (*Bill, error) {
	method = strings.ToLower(strings.TrimSpace(method))
	if method == "" {
		method = "cash"
	}
	if !paymentMethods[method] {
		return nil, apperr.Validation("invalid payment method: %s", method)
	}
	var out *Bill
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		before, err := s.GetBill(ctx, id)
		if err != nil {
			return err
		}
		switch before.BillingStatus {
		case StatusPaid:
			return apperr.Conflict("bill %s is already paid", before.BillNumber)
		case StatusCancelled:
			return apperr.Validation("bill %s is cancelled", before.BillNumber)
		}
		now := s.now()
		if err := s.repo.SetPaid(ctx, id, method, now); err != nil {
			return err
		}
		after := *before
		after.BillingStatus = StatusPaid
		after.PaymentMethod = &method
		after.PaidAt = &now
		after.UpdatedAt = now
		after.classify()
		out = &after
		return s.audit.Record(ctx, "bills", id, audit.ActionUpdate, before, out)
	})
	return out, err
}

// CancelBill cancels a pending bill and releases its lab orders so they can
// be billed again.
func (s *Service) CancelBill(ctx context.Context, id int64) (*Bill, error) {
	var out *Bill
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		before, err := s.GetBill(ctx, id)
		if err != nil {
			return err
		}
		if before.BillingStatus != StatusPending {
			return apperr.Validation("only pending bills can be cancelled, bill %s is %s", before.BillNumber, before.BillingStatus)
		}
		now := s.now()
		if err := s.repo.SetStatus(ctx, id, StatusPending, StatusCancelled, now); err != nil {
			return err
		}
		if err := s.repo.UnlinkLabOrders(ctx, id); err != nil {
			return err
		}
		after := *before
		after.BillingStatus = StatusCancelled
		after.UpdatedAt = now
		after.classify()
		out = &after
		return s.audit.Record(ctx, "bills", id, audit.ActionUpdate, before, out)
	})
	return out, err
}

// GetBill returns the bill with its items and classification flags.
func (s *Service) GetBill(ctx context.Context, id int64) (*Bill, error) {
	b, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if b.Items, err = s.repo.ListItems(ctx, id); err != nil {
		return nil, err
	}
	b.classify()
	return b, nil
}

func (s *Service) ListBills(ctx context.Context, f Filter, limit, offset int) ([]*Bill, int, error) {
	f.Status = strings.ToUpper(strings.TrimSpace(f.Status))
	if f.Status != "" && f.Status != StatusPending && f.Status != StatusPaid && f.Status != StatusCancelled {
		return nil, 0, apperr.Validation("invalid billing status: %s", f.Status)
	}
	bills, total, err := s.repo.List(ctx, f, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	for _, b := range bills {
		if b.Items, err = s.repo.ListItems(ctx, b.ID); err != nil {
			return nil, 0, err
		}
		b.classify()
	}
	return bills, total, nil
}

// AwaitingConsultation is the doctor's worklist: patients with a paid bill
// carrying a consultation item.
func (s *Service) AwaitingConsultation(ctx context.Context, f WorklistFilter) ([]*WorklistEntry, error) {
	return s.repo.AwaitingConsultation(ctx, f)
}

// RevenueSummary reports paid revenue between from and to inclusive.
func (s *Service) RevenueSummary(ctx context.Context, from, to dates.Date) (*Revenue, error) {
	if to.Before(from.Time) {
		return nil, apperr.Validation("to must not be before from")
	}
	lines, err := s.repo.Revenue(ctx, from, to)
	if err != nil {
		return nil, err
	}
	total, err := s.repo.PaidTotal(ctx, from, to)
	if err != nil {
		return nil, err
	}
	for _, l := range lines {
		l.Amount = l.Amount.Round(2)
	}
	return &Revenue{From: from, To: to, Lines: lines, Total: total.Round(2)}, nil
}
