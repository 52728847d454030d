package identity

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/opdemr/opdemr/pkg/dates"
)

// Patient is a registered outpatient. PatientID is the dense display
// number printed on cards and referenced by every clinical table; ID is the
// surrogate key.
type Patient struct {
	ID               int64       `db:"id" json:"id"`
	PatientID        int64       `db:"patient_id" json:"patient_id"`
	FirstName        string      `db:"first_name" json:"first_name"`
	LastName         string      `db:"last_name" json:"last_name"`
	Gender           *string     `db:"gender" json:"gender,omitempty"`
	DateOfBirth      *dates.Date `db:"date_of_birth" json:"date_of_birth,omitempty"`
	Phone            *string     `db:"phone" json:"phone,omitempty"`
	Email            *string     `db:"email" json:"email,omitempty"`
	Address          *string     `db:"address" json:"address,omitempty"`
	BloodGroup       *string     `db:"blood_group" json:"blood_group,omitempty"`
	EmergencyContact *string     `db:"emergency_contact" json:"emergency_contact,omitempty"`
	CreatedAt        time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time   `db:"updated_at" json:"updated_at"`
}

func (p *Patient) FullName() string {
	if p.LastName == "" {
		return p.FirstName
	}
	return p.FirstName + " " + p.LastName
}

type Doctor struct {
	ID              int64           `db:"id" json:"id"`
	Name            string          `db:"name" json:"name"`
	Specialization  string          `db:"specialization" json:"specialization"`
	Qualification   *string         `db:"qualification" json:"qualification,omitempty"`
	Phone           *string         `db:"phone" json:"phone,omitempty"`
	Email           *string         `db:"email" json:"email,omitempty"`
	ConsultationFee decimal.Decimal `db:"consultation_fee" json:"consultation_fee"`
	IsActive        bool            `db:"is_active" json:"is_active"`
	UserID          *int64          `db:"user_id" json:"user_id,omitempty"`
	CreatedAt       time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time       `db:"updated_at" json:"updated_at"`
}

// DoctorFilter narrows ListDoctors. Zero values match everything.
type DoctorFilter struct {
	Specialization string
	ActiveOnly     bool
}
