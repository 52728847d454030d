package clinical

import (
	"strings"
	"time"

	"github.com/opdemr/opdemr/pkg/dates"
)

const (
	StatusCreated   = "created"
	StatusBilled    = "billed"
	StatusFulfilled = "fulfilled"
	StatusCancelled = "cancelled"
)

// Prescription is written by a doctor at an encounter and owns its
// medicine lines, lab orders and pharmacy orders.
type Prescription struct {
	ID             int64       `db:"id" json:"id"`
	PatientID      int64       `db:"patient_id" json:"patient_id"`
	DoctorID       int64       `db:"doctor_id" json:"doctor_id"`
	AppointmentID  *int64      `db:"appointment_id" json:"appointment_id,omitempty"`
	ChiefComplaint *string     `db:"chief_complaint" json:"chief_complaint,omitempty"`
	Diagnosis      *string     `db:"diagnosis" json:"diagnosis,omitempty"`
	Advice         *string     `db:"advice" json:"advice,omitempty"`
	FollowUpDate   *dates.Date `db:"follow_up_date" json:"follow_up_date,omitempty"`
	Status         string      `db:"status" json:"status"`
	CreatedAt      time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time   `db:"updated_at" json:"updated_at"`
	Medicines      []*Medicine `db:"-" json:"medicines"`
}

// Orderable reports whether lab or pharmacy orders may still be added.
func (p *Prescription) Orderable() bool {
	return p.Status == StatusCreated || p.Status == StatusBilled
}

type Medicine struct {
	ID             int64   `db:"id" json:"id"`
	PrescriptionID int64   `db:"prescription_id" json:"prescription_id"`
	PharmacyItemID *int64  `db:"pharmacy_item_id" json:"pharmacy_item_id,omitempty"`
	MedicineName   string  `db:"medicine_name" json:"medicine_name"`
	Dose           *string `db:"dose" json:"dose,omitempty"`
	DosePattern    *string `db:"dose_pattern" json:"dose_pattern,omitempty"`
	DurationDays   *int    `db:"duration_days" json:"duration_days,omitempty"`
	Quantity       *int    `db:"quantity" json:"quantity,omitempty"`
	Instructions   *string `db:"instructions" json:"instructions,omitempty"`
}

// ClinicalNote is a SOAP note for one encounter.
type ClinicalNote struct {
	ID             int64     `db:"id" json:"id"`
	PatientID      int64     `db:"patient_id" json:"patient_id"`
	DoctorID       int64     `db:"doctor_id" json:"doctor_id"`
	PrescriptionID *int64    `db:"prescription_id" json:"prescription_id,omitempty"`
	Subjective     *string   `db:"subjective" json:"subjective,omitempty"`
	Objective      *string   `db:"objective" json:"objective,omitempty"`
	Assessment     *string   `db:"assessment" json:"assessment,omitempty"`
	Plan           *string   `db:"plan" json:"plan,omitempty"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

func (n *ClinicalNote) empty() bool {
	for _, s := range []*string{n.Subjective, n.Objective, n.Assessment, n.Plan} {
		if s != nil && strings.TrimSpace(*s) != "" {
			return false
		}
	}
	return true
}
