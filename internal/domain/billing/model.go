package billing

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/opdemr/opdemr/internal/domain/category"
	"github.com/opdemr/opdemr/pkg/dates"
)

const (
	StatusPending   = "PENDING"
	StatusPaid      = "PAID"
	StatusCancelled = "CANCELLED"
)

var paymentMethods = map[string]bool{
	"cash": true, "card": true, "upi": true, "insurance": true, "other": true,
}

// Bill aggregates bill items. IsConsultation and IsInvestigation are only
// meaningful once Items is loaded.
type Bill struct {
	ID             int64           `db:"id" json:"id"`
	BillNumber     string          `db:"bill_number" json:"bill_number"`
	PatientID      int64           `db:"patient_id" json:"patient_id"`
	DoctorID       *int64          `db:"doctor_id" json:"doctor_id,omitempty"`
	PrescriptionID *int64          `db:"prescription_id" json:"prescription_id,omitempty"`
	Subtotal       decimal.Decimal `db:"subtotal" json:"subtotal"`
	Discount       decimal.Decimal `db:"discount" json:"discount"`
	Tax            decimal.Decimal `db:"tax" json:"tax"`
	Total          decimal.Decimal `db:"total" json:"total"`
	BillingStatus  string          `db:"billing_status" json:"billing_status"`
	PaymentMethod  *string         `db:"payment_method" json:"payment_method,omitempty"`
	PaidAt         *time.Time      `db:"paid_at" json:"paid_at,omitempty"`
	CreatedAt      time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time       `db:"updated_at" json:"updated_at"`
	Items          []*BillItem     `db:"-" json:"items"`

	Consultation  bool `db:"-" json:"is_consultation"`
	Investigation bool `db:"-" json:"is_investigation"`
}

type BillItem struct {
	ID          int64             `db:"id" json:"id"`
	BillID      int64             `db:"bill_id" json:"bill_id"`
	ServiceType category.Category `db:"service_type" json:"service_type"`
	Description string            `db:"description" json:"description"`
	ReferenceID *int64            `db:"reference_id" json:"reference_id,omitempty"`
	Quantity    int               `db:"quantity" json:"quantity"`
	UnitPrice   decimal.Decimal   `db:"unit_price" json:"unit_price"`
	Amount      decimal.Decimal   `db:"amount" json:"amount"`
}

func (b *Bill) paidWith(c category.Category) bool {
	if b.BillingStatus != StatusPaid {
		return false
	}
	for _, it := range b.Items {
		if it.ServiceType == c {
			return true
		}
	}
	return false
}

// IsConsultation reports whether the bill is paid and carries at least one
// consultation item. A bill without items is never a consultation.
func (b *Bill) IsConsultation() bool { return b.paidWith(category.Consultation) }

// IsInvestigation reports whether the bill is paid and carries at least one
// investigation item.
func (b *Bill) IsInvestigation() bool { return b.paidWith(category.Investigation) }

func (b *Bill) classify() {
	b.Consultation = b.IsConsultation()
	b.Investigation = b.IsInvestigation()
}

type Filter struct {
	Status    string
	PatientID int64
	From      *dates.Date
	To        *dates.Date // inclusive
}

// UnbilledPrescription is a prescription with lab orders not yet on a bill.
type UnbilledPrescription struct {
	PrescriptionID int64           `db:"prescription_id" json:"prescription_id"`
	PatientID      int64           `db:"patient_id" json:"patient_id"`
	DoctorID       int64           `db:"doctor_id" json:"doctor_id"`
	FirstName      string          `db:"first_name" json:"first_name"`
	LastName       string          `db:"last_name" json:"last_name"`
	OrderCount     int             `db:"order_count" json:"order_count"`
	ItemCount      int             `db:"item_count" json:"item_count"`
	Amount         decimal.Decimal `db:"amount" json:"amount"`
}

// WorklistEntry is a patient waiting to be seen after paying for a consultation.
type WorklistEntry struct {
	PatientID int64   `db:"patient_id" json:"patient_id"`
	FirstName string  `db:"first_name" json:"first_name"`
	LastName  string  `db:"last_name" json:"last_name"`
	Phone     *string `db:"phone" json:"phone,omitempty"`
}

type WorklistFilter struct {
	DoctorID int64
	Date     *dates.Date
}

type RevenueLine struct {
	ServiceType category.Category `db:"service_type" json:"service_type"`
	Bills       int               `db:"bills" json:"bills"`
	Amount      decimal.Decimal   `db:"amount" json:"amount"`
}

// Revenue is paid revenue over a period. Lines carry gross item amounts per
// category; Total is the sum of paid bill totals after discount and tax.
type Revenue struct {
	From  dates.Date      `json:"from"`
	To    dates.Date      `json:"to"`
	Lines []*RevenueLine  `json:"lines"`
	Total decimal.Decimal `json:"total"`
}

type ConsultationBillInput struct {
	PatientID     int64            `json:"patient_id"`
	DoctorID      int64            `json:"doctor_id"`
	AppointmentID *int64           `json:"appointment_id,omitempty"`
	Fee           *decimal.Decimal `json:"fee,omitempty"`
	Discount      decimal.Decimal  `json:"discount"`
	Tax           decimal.Decimal  `json:"tax"`
}

type LabBillInput struct {
	PrescriptionID int64           `json:"prescription_id"`
	Discount       decimal.Decimal `json:"discount"`
	Tax            decimal.Decimal `json:"tax"`
}
