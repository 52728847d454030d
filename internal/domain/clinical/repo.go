package clinical

import (
	"context"
	"time"
)

type PrescriptionRepository interface {
	Create(ctx context.Context, p *Prescription) error
	GetByID(ctx context.Context, id int64) (*Prescription, error)
	ListByPatient(ctx context.Context, patientID int64, limit, offset int) ([]*Prescription, int, error)
	UpdateStatus(ctx context.Context, id int64, status string, at time.Time) error
	// Medicines
	AddMedicine(ctx context.Context, m *Medicine) error
	ListMedicines(ctx context.Context, prescriptionID int64) ([]*Medicine, error)
}

type NoteRepository interface {
	Create(ctx context.Context, n *ClinicalNote) error
	GetByID(ctx context.Context, id int64) (*ClinicalNote, error)
	Update(ctx context.Context, n *ClinicalNote) error
	ListByPatient(ctx context.Context, patientID int64, limit, offset int) ([]*ClinicalNote, int, error)
}
