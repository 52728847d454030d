package identity

import (
	"context"
	"strconv"
	"strings"

	"github.com/opdemr/opdemr/internal/platform/db"
)

// =========== Patient Repository ===========

type patientRepoSQL struct{ db *db.DB }

func NewPatientRepoSQL(d *db.DB) PatientRepository { return &patientRepoSQL{db: d} }

const patientCols = `id, patient_id, first_name, last_name, gender, date_of_birth, phone, email,
	address, blood_group, emergency_contact, created_at, updated_at`

func (r *patientRepoSQL) Create(ctx context.Context, p *Patient) error {
	id, err := r.db.InsertID(ctx, `
		INSERT INTO patients (patient_id, first_name, last_name, gender, date_of_birth, phone, email,
			address, blood_group, emergency_contact, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.PatientID, p.FirstName, p.LastName, p.Gender, p.DateOfBirth, p.Phone, p.Email,
		p.Address, p.BloodGroup, p.EmergencyContact, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return r.db.Err(err, "patient")
	}
	p.ID = id
	return nil
}

func (r *patientRepoSQL) GetByID(ctx context.Context, id int64) (*Patient, error) {
	var p Patient
	if err := r.db.Get(ctx, &p, `SELECT `+patientCols+` FROM patients WHERE id = ?`, id); err != nil {
		return nil, r.db.Err(err, "patient")
	}
	return &p, nil
}

func (r *patientRepoSQL) GetByPatientID(ctx context.Context, patientID int64) (*Patient, error) {
	var p Patient
	if err := r.db.Get(ctx, &p, `SELECT `+patientCols+` FROM patients WHERE patient_id = ?`, patientID); err != nil {
		return nil, r.db.Err(err, "patient")
	}
	return &p, nil
}

func (r *patientRepoSQL) Update(ctx context.Context, p *Patient) error {
	n, err := r.db.Exec(ctx, `
		UPDATE patients SET first_name = ?, last_name = ?, gender = ?, date_of_birth = ?, phone = ?,
			email = ?, address = ?, blood_group = ?, emergency_contact = ?, updated_at = ?
		WHERE id = ?`,
		p.FirstName, p.LastName, p.Gender, p.DateOfBirth, p.Phone,
		p.Email, p.Address, p.BloodGroup, p.EmergencyContact, p.UpdatedAt, p.ID)
	if err != nil {
		return r.db.Err(err, "patient")
	}
	return db.RequireAffected(n, "patient")
}

func (r *patientRepoSQL) Delete(ctx context.Context, id int64) error {
	n, err := r.db.Exec(ctx, `DELETE FROM patients WHERE id = ?`, id)
	if err != nil {
		return r.db.Err(err, "patient")
	}
	return db.RequireAffected(n, "patient")
}

func (r *patientRepoSQL) NextPatientID(ctx context.Context) (int64, error) {
	var next int64
	if err := r.db.Get(ctx, &next, `SELECT COALESCE(MAX(patient_id), 0) + 1 FROM patients`); err != nil {
		return 0, r.db.Err(err, "patient")
	}
	return next, nil
}

func (r *patientRepoSQL) Search(ctx context.Context, term string, limit, offset int) ([]*Patient, int, error) {
	clause := ""
	var args []any
	if term = strings.TrimSpace(term); term != "" {
		like := "%" + strings.ToLower(term) + "%"
		clause = ` WHERE LOWER(first_name) LIKE ? OR LOWER(last_name) LIKE ?
			OR LOWER(first_name || ' ' || last_name) LIKE ? OR phone LIKE ?`
		args = append(args, like, like, like, like)
		if n, err := strconv.ParseInt(term, 10, 64); err == nil {
			clause += ` OR patient_id = ?`
			args = append(args, n)
		}
	}

	total, err := r.db.Count(ctx, `SELECT COUNT(*) FROM patients`+clause, args...)
	if err != nil {
		return nil, 0, r.db.Err(err, "patient")
	}
	var out []*Patient
	err = r.db.Select(ctx, &out, `SELECT `+patientCols+` FROM patients`+clause+
		` ORDER BY patient_id LIMIT ? OFFSET ?`, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, r.db.Err(err, "patient")
	}
	return out, total, nil
}

// =========== Doctor Repository ===========

type doctorRepoSQL struct{ db *db.DB }

func NewDoctorRepoSQL(d *db.DB) DoctorRepository { return &doctorRepoSQL{db: d} }

const doctorCols = `id, name, specialization, qualification, phone, email, consultation_fee,
	is_active, user_id, created_at, updated_at`

func (r *doctorRepoSQL) Create(ctx context.Context, d *Doctor) error {
	id, err := r.db.InsertID(ctx, `
		INSERT INTO doctors (name, specialization, qualification, phone, email, consultation_fee,
			is_active, user_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.Name, d.Specialization, d.Qualification, d.Phone, d.Email, d.ConsultationFee,
		d.IsActive, d.UserID, d.CreatedAt, d.UpdatedAt)
	if err != nil {
		return r.db.Err(err, "doctor")
	}
	d.ID = id
	return nil
}

func (r *doctorRepoSQL) GetByID(ctx context.Context, id int64) (*Doctor, error) {
	var d Doctor
	if err := r.db.Get(ctx, &d, `SELECT `+doctorCols+` FROM doctors WHERE id = ?`, id); err != nil {
		return nil, r.db.Err(err, "doctor")
	}
	return &d, nil
}

func (r *doctorRepoSQL) Update(ctx context.Context, d *Doctor) error {
	n, err := r.db.Exec(ctx, `
		UPDATE doctors SET name = ?, specialization = ?, qualification = ?, phone = ?, email = ?,
			consultation_fee = ?, is_active = ?, user_id = ?, updated_at = ?
		WHERE id = ?`,
		d.Name, d.Specialization, d.Qualification, d.Phone, d.Email,
		d.ConsultationFee, d.IsActive, d.UserID, d.UpdatedAt, d.ID)
	if err != nil {
		return r.db.Err(err, "doctor")
	}
	return db.RequireAffected(n, "doctor")
}

func (r *doctorRepoSQL) List(ctx context.Context, f DoctorFilter, limit, offset int) ([]*Doctor, int, error) {
	var where []string
	var args []any
	if f.Specialization != "" {
		where = append(where, "LOWER(specialization) = ?")
		args = append(args, strings.ToLower(f.Specialization))
	}
	if f.ActiveOnly {
		where = append(where, "is_active = ?")
		args = append(args, true)
	}
	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	total, err := r.db.Count(ctx, `SELECT COUNT(*) FROM doctors`+clause, args...)
	if err != nil {
		return nil, 0, r.db.Err(err, "doctor")
	}
	var out []*Doctor
	err = r.db.Select(ctx, &out, `SELECT `+doctorCols+` FROM doctors`+clause+
		` ORDER BY name, id LIMIT ? OFFSET ?`, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, r.db.Err(err, "doctor")
	}
	return out, total, nil
}
