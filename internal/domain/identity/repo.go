package identity

import "context"

type PatientRepository interface {
	Create(ctx context.Context, p *Patient) error
	GetByID(ctx context.Context, id int64) (*Patient, error)
	GetByPatientID(ctx context.Context, patientID int64) (*Patient, error)
	Update(ctx context.Context, p *Patient) error
	Delete(ctx context.Context, id int64) error
	// NextPatientID returns MAX(patient_id)+1, or 1 for an empty table.
	NextPatientID(ctx context.Context) (int64, error)
	Search(ctx context.Context, term string, limit, offset int) ([]*Patient, int, error)
}

type DoctorRepository interface {
	Create(ctx context.Context, d *Doctor) error
	GetByID(ctx context.Context, id int64) (*Doctor, error)
	Update(ctx context.Context, d *Doctor) error
	List(ctx context.Context, f DoctorFilter, limit, offset int) ([]*Doctor, int, error)
}
