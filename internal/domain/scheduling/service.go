// Package scheduling books OPD appointments and tracks a visit from
// booking through check-in to completion.
package scheduling

import (
	"context"
	"regexp"
	"time"

	"github.com/opdemr/opdemr/internal/domain/audit"
	"github.com/opdemr/opdemr/internal/domain/identity"
	"github.com/opdemr/opdemr/internal/platform/apperr"
	"github.com/opdemr/opdemr/internal/platform/db"
)

// Directory resolves the patient and doctor of a booking.
type Directory interface {
	GetPatientByPatientID(ctx context.Context, patientID int64) (*identity.Patient, error)
	ActiveDoctor(ctx context.Context, id int64) (*identity.Doctor, error)
}

var timePattern = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)

type Service struct {
	tx    db.Transactor
	repo  Repository
	dir   Directory
	audit audit.Recorder
	now   func() time.Time
}

func NewService(tx db.Transactor, repo Repository, dir Directory, rec audit.Recorder) *Service {
	return &Service{tx: tx, repo: repo, dir: dir, audit: rec, now: func() time.Time { return time.Now().UTC() }}
}

func (s *Service) Create(ctx context.Context, a *Appointment) error {
	if a.PatientID <= 0 {
		return apperr.Validation("patient_id is required")
	}
	if a.DoctorID <= 0 {
		return apperr.Validation("doctor_id is required")
	}
	if a.AppointmentDate.IsZero() {
		return apperr.Validation("appointment_date is required")
	}
	if a.AppointmentTime != nil && !timePattern.MatchString(*a.AppointmentTime) {
		return apperr.Validation("appointment_time must be HH:MM")
	}
	a.Status = StatusScheduled

	return s.tx.InTx(ctx, func(ctx context.Context) error {
		if _, err := s.dir.GetPatientByPatientID(ctx, a.PatientID); err != nil {
			return err
		}
		if _, err := s.dir.ActiveDoctor(ctx, a.DoctorID); err != nil {
			return err
		}
		a.CreatedAt = s.now()
		a.UpdatedAt = a.CreatedAt
		if err := s.repo.Create(ctx, a); err != nil {
			return err
		}
		return s.audit.Record(ctx, "appointments", a.ID, audit.ActionInsert, nil, a)
	})
}

func (s *Service) Get(ctx context.Context, id int64) (*Appointment, error) {
	return s.repo.GetByID(ctx, id)
}

// UpdateStatus moves an appointment along its lifecycle. Transitions not in
// the lifecycle are rejected with a validation error.
func (s *Service) UpdateStatus(ctx context.Context, id int64, status string) (*Appointment, error) {
	var updated *Appointment
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		before, err := s.repo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if !canTransition(before.Status, status) {
			return apperr.Validation("cannot change appointment from %s to %s", before.Status, status)
		}
		now := s.now()
		if err := s.repo.UpdateStatus(ctx, id, status, now); err != nil {
			return err
		}
		after := *before
		after.Status = status
		after.UpdatedAt = now
		updated = &after
		return s.audit.Record(ctx, "appointments", id, audit.ActionUpdate, before, updated)
	})
	return updated, err
}

func (s *Service) List(ctx context.Context, f Filter, limit, offset int) ([]*Appointment, int, error) {
	return s.repo.List(ctx, f, limit, offset)
}
