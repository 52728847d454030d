// Package identity manages patients and doctors.
package identity

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/opdemr/opdemr/internal/domain/audit"
	"github.com/opdemr/opdemr/internal/platform/apperr"
	"github.com/opdemr/opdemr/internal/platform/db"
)

// createAttempts bounds retries when two registrations race for the same
// next patient_id.
const createAttempts = 3

type Service struct {
	tx       db.Transactor
	patients PatientRepository
	doctors  DoctorRepository
	audit    audit.Recorder
	now      func() time.Time
}

func NewService(tx db.Transactor, p PatientRepository, d DoctorRepository, rec audit.Recorder) *Service {
	return &Service{tx: tx, patients: p, doctors: d, audit: rec, now: func() time.Time { return time.Now().UTC() }}
}

// -- Patients --

var validGenders = map[string]bool{"male": true, "female": true, "other": true}

func normalizePatient(p *Patient) error {
	p.FirstName = strings.TrimSpace(p.FirstName)
	p.LastName = strings.TrimSpace(p.LastName)
	if p.FirstName == "" {
		return apperr.Validation("first_name is required")
	}
	if p.Gender != nil {
		g := strings.ToLower(strings.TrimSpace(*p.Gender))
		if !validGenders[g] {
			return apperr.Validation("invalid gender: %s", *p.Gender)
		}
		p.Gender = &g
	}
	if p.DateOfBirth != nil && p.DateOfBirth.After(time.Now()) {
		return apperr.Validation("date_of_birth is in the future")
	}
	return nil
}

// CreatePatient registers a patient. Without an explicit PatientID the next
// number after the current maximum is assigned; a concurrent registration
// that takes the same number causes a retry. An explicit PatientID that is
// already in use is a conflict.
func (s *Service) CreatePatient(ctx context.Context, p *Patient) error {
	if err := normalizePatient(p); err != nil {
		return err
	}
	if p.PatientID < 0 {
		return apperr.Validation("patient_id must be positive")
	}
	explicit := p.PatientID > 0

	var err error
	for attempt := 0; attempt < createAttempts; attempt++ {
		err = s.tx.InTx(ctx, func(ctx context.Context) error {
			if explicit {
				if _, err := s.patients.GetByPatientID(ctx, p.PatientID); err == nil {
					return apperr.Conflict("patient_id %d already exists", p.PatientID)
				} else if !apperr.Is(err, apperr.KindNotFound) {
					return err
				}
			} else {
				next, err := s.patients.NextPatientID(ctx)
				if err != nil {
					return err
				}
				p.PatientID = next
			}
			p.CreatedAt = s.now()
			p.UpdatedAt = p.CreatedAt
			if err := s.patients.Create(ctx, p); err != nil {
				return err
			}
			return s.audit.Record(ctx, "patients", p.ID, audit.ActionInsert, nil, p)
		})
		if err == nil || explicit || !apperr.Is(err, apperr.KindConflict) {
			return err
		}
	}
	return err
}

func (s *Service) GetPatient(ctx context.Context, id int64) (*Patient, error) {
	return s.patients.GetByID(ctx, id)
}

func (s *Service) GetPatientByPatientID(ctx context.Context, patientID int64) (*Patient, error) {
	return s.patients.GetByPatientID(ctx, patientID)
}

// UpdatePatient replaces the demographics of p.ID. The display patient_id
// is not changed here; renumbering is a maintenance operation.
func (s *Service) UpdatePatient(ctx context.Context, p *Patient) error {
	if err := normalizePatient(p); err != nil {
		return err
	}
	return s.tx.InTx(ctx, func(ctx context.Context) error {
		before, err := s.patients.GetByID(ctx, p.ID)
		if err != nil {
			return err
		}
		p.PatientID = before.PatientID
		p.CreatedAt = before.CreatedAt
		p.UpdatedAt = s.now()
		if err := s.patients.Update(ctx, p); err != nil {
			return err
		}
		return s.audit.Record(ctx, "patients", p.ID, audit.ActionUpdate, before, p)
	})
}

// DeletePatient removes a patient with no clinical history. Patients that
// are still referenced fail with a conflict.
func (s *Service) DeletePatient(ctx context.Context, id int64) error {
	return s.tx.InTx(ctx, func(ctx context.Context) error {
		before, err := s.patients.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if err := s.patients.Delete(ctx, id); err != nil {
			return err
		}
		return s.audit.Record(ctx, "patients", id, audit.ActionDelete, before, nil)
	})
}

func (s *Service) SearchPatients(ctx context.Context, term string, limit, offset int) ([]*Patient, int, error) {
	return s.patients.Search(ctx, term, limit, offset)
}

// -- Doctors --

func normalizeDoctor(d *Doctor) error {
	d.Name = strings.TrimSpace(d.Name)
	d.Specialization = strings.TrimSpace(d.Specialization)
	if d.Name == "" {
		return apperr.Validation("name is required")
	}
	if d.Specialization == "" {
		return apperr.Validation("specialization is required")
	}
	if d.ConsultationFee.IsNegative() {
		return apperr.Validation("consultation_fee must not be negative")
	}
	d.ConsultationFee = d.ConsultationFee.Round(2)
	return nil
}

func (s *Service) CreateDoctor(ctx context.Context, d *Doctor) error {
	if err := normalizeDoctor(d); err != nil {
		return err
	}
	d.IsActive = true
	return s.tx.InTx(ctx, func(ctx context.Context) error {
		d.CreatedAt = s.now()
		d.UpdatedAt = d.CreatedAt
		if err := s.doctors.Create(ctx, d); err != nil {
			return err
		}
		return s.audit.Record(ctx, "doctors", d.ID, audit.ActionInsert, nil, d)
	})
}

func (s *Service) GetDoctor(ctx context.Context, id int64) (*Doctor, error) {
	return s.doctors.GetByID(ctx, id)
}

func (s *Service) UpdateDoctor(ctx context.Context, d *Doctor) error {
	if err := normalizeDoctor(d); err != nil {
		return err
	}
	return s.tx.InTx(ctx, func(ctx context.Context) error {
		before, err := s.doctors.GetByID(ctx, d.ID)
		if err != nil {
			return err
		}
		d.CreatedAt = before.CreatedAt
		d.UpdatedAt = s.now()
		if err := s.doctors.Update(ctx, d); err != nil {
			return err
		}
		return s.audit.Record(ctx, "doctors", d.ID, audit.ActionUpdate, before, d)
	})
}

func (s *Service) ListDoctors(ctx context.Context, f DoctorFilter, limit, offset int) ([]*Doctor, int, error) {
	return s.doctors.List(ctx, f, limit, offset)
}

// ActiveDoctor returns the doctor when it exists and is active.
func (s *Service) ActiveDoctor(ctx context.Context, id int64) (*Doctor, error) {
	d, err := s.doctors.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !d.IsActive {
		return nil, apperr.Validation("doctor %d is not active", id)
	}
	return d, nil
}

// ConsultationFee returns the doctor's fee, used to price consultation bills.
func (s *Service) ConsultationFee(ctx context.Context, doctorID int64) (decimal.Decimal, error) {
	d, err := s.doctors.GetByID(ctx, doctorID)
	if err != nil {
		return decimal.Zero, err
	}
	return d.ConsultationFee, nil
}
