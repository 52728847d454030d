// Package clinical holds prescriptions, their medicine lines and SOAP
// clinical notes.
package clinical

import (
	"context"
	"strings"
	"time"

	"github.com/opdemr/opdemr/internal/domain/audit"
	"github.com/opdemr/opdemr/internal/domain/identity"
	"github.com/opdemr/opdemr/internal/domain/scheduling"
	"github.com/opdemr/opdemr/internal/platform/apperr"
	"github.com/opdemr/opdemr/internal/platform/db"
)

// Directory resolves patients and doctors.
type Directory interface {
	GetPatientByPatientID(ctx context.Context, patientID int64) (*identity.Patient, error)
	ActiveDoctor(ctx context.Context, id int64) (*identity.Doctor, error)
}

// AppointmentLookup resolves the appointment a prescription was written at.
type AppointmentLookup interface {
	Get(ctx context.Context, id int64) (*scheduling.Appointment, error)
}

type Service struct {
	tx            db.Transactor
	prescriptions PrescriptionRepository
	notes         NoteRepository
	dir           Directory
	appointments  AppointmentLookup
	audit         audit.Recorder
	now           func() time.Time
}

func NewService(tx db.Transactor, p PrescriptionRepository, n NoteRepository, dir Directory, appts AppointmentLookup, rec audit.Recorder) *Service {
	return &Service{
		tx:            tx,
		prescriptions: p,
		notes:         n,
		dir:           dir,
		appointments:  appts,
		audit:         rec,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// -- Prescriptions --

func validateMedicine(m *Medicine) error {
	m.MedicineName = strings.TrimSpace(m.MedicineName)
	if m.MedicineName == "" {
		return apperr.Validation("medicine_name is required")
	}
	if m.DurationDays != nil && *m.DurationDays < 0 {
		return apperr.Validation("duration_days must not be negative")
	}
	if m.Quantity != nil && *m.Quantity <= 0 {
		return apperr.Validation("quantity must be positive")
	}
	return nil
}

func (s *Service) checkEncounter(ctx context.Context, patientID, doctorID int64, appointmentID *int64) error {
	if patientID <= 0 {
		return apperr.Validation("patient_id is required")
	}
	if doctorID <= 0 {
		return apperr.Validation("doctor_id is required")
	}
	if _, err := s.dir.GetPatientByPatientID(ctx, patientID); err != nil {
		return err
	}
	if _, err := s.dir.ActiveDoctor(ctx, doctorID); err != nil {
		return err
	}
	if appointmentID != nil && s.appointments != nil {
		a, err := s.appointments.Get(ctx, *appointmentID)
		if err != nil {
			return err
		}
		if a.PatientID != patientID {
			return apperr.Validation("appointment %d belongs to another patient", a.ID)
		}
	}
	return nil
}

// CreatePrescription stores a prescription with its medicine lines in one
// transaction.
func (s *Service) CreatePrescription(ctx context.Context, p *Prescription) error {
	for _, m := range p.Medicines {
		if err := validateMedicine(m); err != nil {
			return err
		}
	}
	p.Status = StatusCreated

	return s.tx.InTx(ctx, func(ctx context.Context) error {
		if err := s.checkEncounter(ctx, p.PatientID, p.DoctorID, p.AppointmentID); err != nil {
			return err
		}
		p.CreatedAt = s.now()
		p.UpdatedAt = p.CreatedAt
		if err := s.prescriptions.Create(ctx, p); err != nil {
			return err
		}
		for _, m := range p.Medicines {
			m.PrescriptionID = p.ID
			if err := s.prescriptions.AddMedicine(ctx, m); err != nil {
				return err
			}
		}
		if p.Medicines == nil {
			p.Medicines = []*Medicine{}
		}
		return s.audit.Record(ctx, "prescriptions", p.ID, audit.ActionInsert, nil, p)
	})
}

// GetPrescription returns the prescription with its medicines.
func (s *Service) GetPrescription(ctx context.Context, id int64) (*Prescription, error) {
	p, err := s.prescriptions.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.Medicines, err = s.prescriptions.ListMedicines(ctx, id); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Service) ListPrescriptionsByPatient(ctx context.Context, patientID int64, limit, offset int) ([]*Prescription, int, error) {
	items, total, err := s.prescriptions.ListByPatient(ctx, patientID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	for _, p := range items {
		if p.Medicines, err = s.prescriptions.ListMedicines(ctx, p.ID); err != nil {
			return nil, 0, err
		}
	}
	return items, total, nil
}

func (s *Service) AddMedicine(ctx context.Context, prescriptionID int64, m *Medicine) error {
	if err := validateMedicine(m); err != nil {
		return err
	}
	return s.tx.InTx(ctx, func(ctx context.Context) error {
		p, err := s.prescriptions.GetByID(ctx, prescriptionID)
		if err != nil {
			return err
		}
		if p.Status != StatusCreated {
			return apperr.Validation("medicines can only be added to a %s prescription, this one is %s", StatusCreated, p.Status)
		}
		m.PrescriptionID = prescriptionID
		if err := s.prescriptions.AddMedicine(ctx, m); err != nil {
			return err
		}
		return s.audit.Record(ctx, "prescription_medicines", m.ID, audit.ActionInsert, nil, m)
	})
}

// transition moves a prescription to status when its current status is in
// from. A prescription already in status is left unchanged.
func (s *Service) transition(ctx context.Context, id int64, status string, from ...string) (*Prescription, error) {
	var out *Prescription
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		p, err := s.prescriptions.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if p.Status == status {
			out = p
			return nil
		}
		allowed := false
		for _, f := range from {
			if p.Status == f {
				allowed = true
			}
		}
		if !allowed {
			return apperr.Validation("cannot change prescription %d from %s to %s", id, p.Status, status)
		}
		now := s.now()
		if err := s.prescriptions.UpdateStatus(ctx, id, status, now); err != nil {
			return err
		}
		after := *p
		after.Status = status
		after.UpdatedAt = now
		out = &after
		return s.audit.Record(ctx, "prescriptions", id, audit.ActionUpdate, p, out)
	})
	return out, err
}

// MarkBilled records that lab work on the prescription has been billed.
func (s *Service) MarkBilled(ctx context.Context, id int64) error {
	_, err := s.transition(ctx, id, StatusBilled, StatusCreated)
	return err
}

func (s *Service) MarkFulfilled(ctx context.Context, id int64) (*Prescription, error) {
	return s.transition(ctx, id, StatusFulfilled, StatusBilled)
}

func (s *Service) Cancel(ctx context.Context, id int64) (*Prescription, error) {
	return s.transition(ctx, id, StatusCancelled, StatusCreated)
}

// -- Clinical Notes --

func (s *Service) CreateNote(ctx context.Context, n *ClinicalNote) error {
	if n.empty() {
		return apperr.Validation("at least one of subjective, objective, assessment or plan is required")
	}
	return s.tx.InTx(ctx, func(ctx context.Context) error {
		if err := s.checkEncounter(ctx, n.PatientID, n.DoctorID, nil); err != nil {
			return err
		}
		if n.PrescriptionID != nil {
			p, err := s.prescriptions.GetByID(ctx, *n.PrescriptionID)
			if err != nil {
				return err
			}
			if p.PatientID != n.PatientID {
				return apperr.Validation("prescription %d belongs to another patient", p.ID)
			}
		}
		n.CreatedAt = s.now()
		n.UpdatedAt = n.CreatedAt
		if err := s.notes.Create(ctx, n); err != nil {
			return err
		}
		return s.audit.Record(ctx, "clinical_notes", n.ID, audit.ActionInsert, nil, n)
	})
}

func (s *Service) GetNote(ctx context.Context, id int64) (*ClinicalNote, error) {
	return s.notes.GetByID(ctx, id)
}

// UpdateNote replaces the SOAP sections of a note.
func (s *Service) UpdateNote(ctx context.Context, n *ClinicalNote) error {
	if n.empty() {
		return apperr.Validation("at least one of subjective, objective, assessment or plan is required")
	}
	return s.tx.InTx(ctx, func(ctx context.Context) error {
		before, err := s.notes.GetByID(ctx, n.ID)
		if err != nil {
			return err
		}
		n.PatientID = before.PatientID
		n.DoctorID = before.DoctorID
		n.PrescriptionID = before.PrescriptionID
		n.CreatedAt = before.CreatedAt
		n.UpdatedAt = s.now()
		if err := s.notes.Update(ctx, n); err != nil {
			return err
		}
		return s.audit.Record(ctx, "clinical_notes", n.ID, audit.ActionUpdate, before, n)
	})
}

func (s *Service) ListNotesByPatient(ctx context.Context, patientID int64, limit, offset int) ([]*ClinicalNote, int, error) {
	return s.notes.ListByPatient(ctx, patientID, limit, offset)
}
