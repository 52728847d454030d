// Package maintenance holds the one-off database operations run from the
// command line: patient id renumbering, relationship checks and demo data.
package maintenance

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"

	"github.com/opdemr/opdemr/internal/domain/audit"
	"github.com/opdemr/opdemr/internal/platform/apperr"
	"github.com/opdemr/opdemr/internal/platform/db"
)

// TableUpdate counts the rows rewritten in one referencing column.
type TableUpdate struct {
	Table  string `json:"table"`
	Column string `json:"column"`
	Rows   int64  `json:"rows"`
}

type NormalizeReport struct {
	Patients int           `json:"patients"`
	Changed  int           `json:"changed"`
	Tables   []TableUpdate `json:"tables"`
}

// PatientIDNormalizer renumbers patients.patient_id onto 1..N, keeping the
// current order, and rewrites every column that references it.
type PatientIDNormalizer struct {
	db    *db.DB
	audit audit.Recorder
	log   zerolog.Logger
}

func NewPatientIDNormalizer(d *db.DB, rec audit.Recorder, log zerolog.Logger) *PatientIDNormalizer {
	return &PatientIDNormalizer{db: d, audit: rec, log: log}
}

type patientKey struct {
	ID        int64 `db:"id"`
	PatientID int64 `db:"patient_id"`
}

type remap struct {
	id       int64
	old, new int64
}

// Run performs the whole renumbering in one transaction. Referencing columns
// are found from foreign key metadata; a patient_id column in any other
// table that is not such a foreign key aborts the run before anything is
// written.
func (n *PatientIDNormalizer) Run(ctx context.Context) (*NormalizeReport, error) {
	rep := &NormalizeReport{Tables: []TableUpdate{}}
	err := n.db.InTx(ctx, func(ctx context.Context) error {
		q := n.db.Conn(ctx)
		dialect := n.db.Dialect()
		if err := dialect.DeferForeignKeys(ctx, q); err != nil {
			return apperr.Persistence("defer foreign keys", err)
		}

		var patients []patientKey
		if err := n.db.Select(ctx, &patients, `SELECT id, patient_id FROM patients ORDER BY patient_id, id`); err != nil {
			return n.db.Err(err, "patient")
		}
		rep.Patients = len(patients)

		var changes []remap
		for i, p := range patients {
			if p.PatientID <= 0 {
				return apperr.Validation("patient %d has non-positive patient_id %d", p.ID, p.PatientID)
			}
			if want := int64(i + 1); p.PatientID != want {
				changes = append(changes, remap{id: p.ID, old: p.PatientID, new: want})
			}
		}
		rep.Changed = len(changes)

		fks, err := dialect.ReferencingColumns(ctx, q, "patients", "patient_id")
		if err != nil {
			return apperr.Persistence("discover foreign keys", err)
		}
		if err := checkCoverage(ctx, dialect, q, fks); err != nil {
			return err
		}
		if len(changes) == 0 {
			n.log.Info().Int("patients", rep.Patients).Msg("patient ids already dense")
			return nil
		}

		// Phase one moves every changed id to its negated target, phase two
		// flips the sign. No intermediate value collides with a live id.
		for _, c := range changes {
			if _, err := n.db.Exec(ctx, `UPDATE patients SET patient_id = ? WHERE id = ?`, -c.new, c.id); err != nil {
				return n.db.Err(err, "patient")
			}
		}
		for _, fk := range fks {
			tu := TableUpdate{Table: fk.Table, Column: fk.Column}
			stmt := fmt.Sprintf(`UPDATE %q SET %q = ? WHERE %q = ?`, fk.Table, fk.Column, fk.Column)
			for _, c := range changes {
				rows, err := n.db.Exec(ctx, stmt, -c.new, c.old)
				if err != nil {
					return n.db.Err(err, fk.Table)
				}
				tu.Rows += rows
			}
			flip := fmt.Sprintf(`UPDATE %q SET %q = -%q WHERE %q < 0`, fk.Table, fk.Column, fk.Column, fk.Column)
			if _, err := n.db.Exec(ctx, flip); err != nil {
				return n.db.Err(err, fk.Table)
			}
			n.log.Info().Str("table", fk.Table).Str("column", fk.Column).Int64("rows", tu.Rows).Msg("remapped patient references")
			rep.Tables = append(rep.Tables, tu)
		}
		if _, err := n.db.Exec(ctx, `UPDATE patients SET patient_id = -patient_id WHERE patient_id < 0`); err != nil {
			return n.db.Err(err, "patient")
		}

		for _, c := range changes {
			before := map[string]int64{"patient_id": c.old}
			after := map[string]int64{"patient_id": c.new}
			if err := n.audit.Record(ctx, "patients", c.id, audit.ActionUpdate, before, after); err != nil {
				return err
			}
		}
		n.log.Info().Int("patients", rep.Patients).Int("changed", rep.Changed).Msg("patient ids renumbered")
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rep, nil
}

// checkCoverage fails when a table carries a patient_id column that no
// discovered foreign key accounts for.
func checkCoverage(ctx context.Context, dialect db.Dialect, q sqlx.QueryerContext, fks []db.ForeignKey) error {
	tables, err := dialect.TablesWithColumn(ctx, q, "patient_id")
	if err != nil {
		return apperr.Persistence("discover patient_id columns", err)
	}
	covered := map[string]bool{}
	for _, fk := range fks {
		if fk.Column == "patient_id" {
			covered[fk.Table] = true
		}
	}
	for _, t := range tables {
		if t == "patients" || covered[t] {
			continue
		}
		return apperr.Validation("table %s has a patient_id column without a foreign key to patients; refusing to renumber", t)
	}
	return nil
}
