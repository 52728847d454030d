package clinical

import (
	"context"
	"time"

	"github.com/opdemr/opdemr/internal/platform/db"
)

// =========== Prescription Repository ===========

type prescriptionRepoSQL struct{ db *db.DB }

func NewPrescriptionRepoSQL(d *db.DB) PrescriptionRepository { return &prescriptionRepoSQL{db: d} }

const prescriptionCols = `id, patient_id, doctor_id, appointment_id, chief_complaint, diagnosis, advice,
	follow_up_date, status, created_at, updated_at`

const medicineCols = `id, prescription_id, pharmacy_item_id, medicine_name, dose, dose_pattern,
	duration_days, quantity, instructions`

func (r *prescriptionRepoSQL) Create(ctx context.Context, p *Prescription) error {
	id, err := r.db.InsertID(ctx, `
		INSERT INTO prescriptions (patient_id, doctor_id, appointment_id, chief_complaint, diagnosis, advice,
			follow_up_date, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.PatientID, p.DoctorID, p.AppointmentID, p.ChiefComplaint, p.Diagnosis, p.Advice,
		p.FollowUpDate, p.Status, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return r.db.Err(err, "prescription")
	}
	p.ID = id
	return nil
}

func (r *prescriptionRepoSQL) GetByID(ctx context.Context, id int64) (*Prescription, error) {
	var p Prescription
	if err := r.db.Get(ctx, &p, `SELECT `+prescriptionCols+` FROM prescriptions WHERE id = ?`, id); err != nil {
		return nil, r.db.Err(err, "prescription")
	}
	return &p, nil
}

func (r *prescriptionRepoSQL) ListByPatient(ctx context.Context, patientID int64, limit, offset int) ([]*Prescription, int, error) {
	total, err := r.db.Count(ctx, `SELECT COUNT(*) FROM prescriptions WHERE patient_id = ?`, patientID)
	if err != nil {
		return nil, 0, r.db.Err(err, "prescription")
	}
	var out []*Prescription
	err = r.db.Select(ctx, &out, `SELECT `+prescriptionCols+` FROM prescriptions WHERE patient_id = ?
		ORDER BY id DESC LIMIT ? OFFSET ?`, patientID, limit, offset)
	if err != nil {
		return nil, 0, r.db.Err(err, "prescription")
	}
	return out, total, nil
}

func (r *prescriptionRepoSQL) UpdateStatus(ctx context.Context, id int64, status string, at time.Time) error {
	n, err := r.db.Exec(ctx, `UPDATE prescriptions SET status = ?, updated_at = ? WHERE id = ?`, status, at, id)
	if err != nil {
		return r.db.Err(err, "prescription")
	}
	return db.RequireAffected(n, "prescription")
}

func (r *prescriptionRepoSQL) AddMedicine(ctx context.Context, m *Medicine) error {
	id, err := r.db.InsertID(ctx, `
		INSERT INTO prescription_medicines (prescription_id, pharmacy_item_id, medicine_name, dose, dose_pattern,
			duration_days, quantity, instructions)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		m.PrescriptionID, m.PharmacyItemID, m.MedicineName, m.Dose, m.DosePattern,
		m.DurationDays, m.Quantity, m.Instructions)
	if err != nil {
		return r.db.Err(err, "prescription medicine")
	}
	m.ID = id
	return nil
}

func (r *prescriptionRepoSQL) ListMedicines(ctx context.Context, prescriptionID int64) ([]*Medicine, error) {
	out := []*Medicine{}
	if err := r.db.Select(ctx, &out, `SELECT `+medicineCols+` FROM prescription_medicines
		WHERE prescription_id = ? ORDER BY id`, prescriptionID); err != nil {
		return nil, r.db.Err(err, "prescription medicine")
	}
	return out, nil
}

// =========== Clinical Note Repository ===========

type noteRepoSQL struct{ db *db.DB }

func NewNoteRepoSQL(d *db.DB) NoteRepository { return &noteRepoSQL{db: d} }

const noteCols = `id, patient_id, doctor_id, prescription_id, subjective, objective, assessment, plan,
	created_at, updated_at`

func (r *noteRepoSQL) Create(ctx context.Context, n *ClinicalNote) error {
	id, err := r.db.InsertID(ctx, `
		INSERT INTO clinical_notes (patient_id, doctor_id, prescription_id, subjective, objective, assessment, plan,
			created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		n.PatientID, n.DoctorID, n.PrescriptionID, n.Subjective, n.Objective, n.Assessment, n.Plan,
		n.CreatedAt, n.UpdatedAt)
	if err != nil {
		return r.db.Err(err, "clinical note")
	}
	n.ID = id
	return nil
}

func (r *noteRepoSQL) GetByID(ctx context.Context, id int64) (*ClinicalNote, error) {
	var n ClinicalNote
	if err := r.db.Get(ctx, &n, `SELECT `+noteCols+` FROM clinical_notes WHERE id = ?`, id); err != nil {
		return nil, r.db.Err(err, "clinical note")
	}
	return &n, nil
}

func (r *noteRepoSQL) Update(ctx context.Context, n *ClinicalNote) error {
	affected, err := r.db.Exec(ctx, `
		UPDATE clinical_notes SET subjective = ?, objective = ?, assessment = ?, plan = ?, updated_at = ?
		WHERE id = ?`,
		n.Subjective, n.Objective, n.Assessment, n.Plan, n.UpdatedAt, n.ID)
	if err != nil {
		return r.db.Err(err, "clinical note")
	}
	return db.RequireAffected(affected, "clinical note")
}

func (r *noteRepoSQL) ListByPatient(ctx context.Context, patientID int64, limit, offset int) ([]*ClinicalNote, int, error) {
	total, err := r.db.Count(ctx, `SELECT COUNT(*) FROM clinical_notes WHERE patient_id = ?`, patientID)
	if err != nil {
		return nil, 0, r.db.Err(err, "clinical note")
	}
	var out []*ClinicalNote
	err = r.db.Select(ctx, &out, `SELECT `+noteCols+` FROM clinical_notes WHERE patient_id = ?
		ORDER BY id DESC LIMIT ? OFFSET ?`, patientID, limit, offset)
	if err != nil {
		return nil, 0, r.db.Err(err, "clinical note")
	}
	return out, total, nil
}
