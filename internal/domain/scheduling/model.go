package scheduling

import (
	"time"

	"github.com/opdemr/opdemr/pkg/dates"
)

const (
	StatusScheduled = "scheduled"
	StatusCheckedIn = "checked_in"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
	StatusNoShow    = "no_show"
)

// transitions lists the statuses reachable from each status.
var transitions = map[string][]string{
	StatusScheduled: {StatusCheckedIn, StatusCancelled, StatusNoShow},
	StatusCheckedIn: {StatusCompleted, StatusCancelled},
}

func canTransition(from, to string) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Appointment is an OPD visit slot. PatientID is the display patient id.
type Appointment struct {
	ID              int64      `db:"id" json:"id"`
	PatientID       int64      `db:"patient_id" json:"patient_id"`
	DoctorID        int64      `db:"doctor_id" json:"doctor_id"`
	AppointmentDate dates.Date `db:"appointment_date" json:"appointment_date"`
	AppointmentTime *string    `db:"appointment_time" json:"appointment_time,omitempty"`
	Status          string     `db:"status" json:"status"`
	Reason          *string    `db:"reason" json:"reason,omitempty"`
	Notes           *string    `db:"notes" json:"notes,omitempty"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at" json:"updated_at"`
}

// Filter narrows List. Zero values match everything.
type Filter struct {
	Date      *dates.Date
	DoctorID  int64
	PatientID int64
	Status    string
}
