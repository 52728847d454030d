package scheduling

import (
	"context"
	"strings"
	"time"

	"github.com/opdemr/opdemr/internal/platform/db"
)

type repoSQL struct{ db *db.DB }

func NewRepoSQL(d *db.DB) Repository { return &repoSQL{db: d} }

const appointmentCols = `id, patient_id, doctor_id, appointment_date, appointment_time, status, reason, notes,
	created_at, updated_at`

func (r *repoSQL) Create(ctx context.Context, a *Appointment) error {
	id, err := r.db.InsertID(ctx, `
		INSERT INTO appointments (patient_id, doctor_id, appointment_date, appointment_time, status, reason, notes,
			created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.PatientID, a.DoctorID, a.AppointmentDate, a.AppointmentTime, a.Status, a.Reason, a.Notes,
		a.CreatedAt, a.UpdatedAt)
	if err != nil {
		return r.db.Err(err, "appointment")
	}
	a.ID = id
	return nil
}

func (r *repoSQL) GetByID(ctx context.Context, id int64) (*Appointment, error) {
	var a Appointment
	if err := r.db.Get(ctx, &a, `SELECT `+appointmentCols+` FROM appointments WHERE id = ?`, id); err != nil {
		return nil, r.db.Err(err, "appointment")
	}
	return &a, nil
}

func (r *repoSQL) UpdateStatus(ctx context.Context, id int64, status string, at time.Time) error {
	n, err := r.db.Exec(ctx, `UPDATE appointments SET status = ?, updated_at = ? WHERE id = ?`, status, at, id)
	if err != nil {
		return r.db.Err(err, "appointment")
	}
	return db.RequireAffected(n, "appointment")
}

func (r *repoSQL) List(ctx context.Context, f Filter, limit, offset int) ([]*Appointment, int, error) {
	var where []string
	var args []any
	if f.Date != nil {
		where = append(where, "appointment_date = ?")
		args = append(args, *f.Date)
	}
	if f.DoctorID != 0 {
		where = append(where, "doctor_id = ?")
		args = append(args, f.DoctorID)
	}
	if f.PatientID != 0 {
		where = append(where, "patient_id = ?")
		args = append(args, f.PatientID)
	}
	if f.Status != "" {
		where = append(where, "status = ?")
		args = append(args, f.Status)
	}
	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	total, err := r.db.Count(ctx, `SELECT COUNT(*) FROM appointments`+clause, args...)
	if err != nil {
		return nil, 0, r.db.Err(err, "appointment")
	}
	var out []*Appointment
	err = r.db.Select(ctx, &out, `SELECT `+appointmentCols+` FROM appointments`+clause+
		` ORDER BY appointment_date, appointment_time, id LIMIT ? OFFSET ?`, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, r.db.Err(err, "appointment")
	}
	return out, total, nil
}
