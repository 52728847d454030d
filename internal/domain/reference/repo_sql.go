package reference

import (
	"context"
	"strings"

	"github.com/opdemr/opdemr/internal/platform/apperr"
	"github.com/opdemr/opdemr/internal/platform/db"
)

type dosePatternRepoSQL struct{ db *db.DB }

func NewDosePatternRepoSQL(d *db.DB) DosePatternRepository { return &dosePatternRepoSQL{db: d} }

const doseCols = `id, dose_value, description_en, description_hi, created_at`

func (r *dosePatternRepoSQL) Create(ctx context.Context, p *DosePattern) error {
	id, err := r.db.InsertID(ctx, `
		INSERT INTO dose_pattern (dose_value, description_en, description_hi, created_at) VALUES (?, ?, ?, ?)`,
		p.DoseValue, p.DescriptionEN, p.DescriptionHI, p.CreatedAt)
	if err != nil {
		return r.db.Err(err, "dose pattern")
	}
	p.ID = id
	return nil
}

func (r *dosePatternRepoSQL) Search(ctx context.Context, prefix string, limit int) ([]*DosePattern, error) {
	out := []*DosePattern{}
	like := strings.ToUpper(strings.TrimSpace(prefix)) + "%"
	if err := r.db.Select(ctx, &out, `SELECT `+doseCols+` FROM dose_pattern WHERE UPPER(dose_value) LIKE ?
		ORDER BY dose_value LIMIT ?`, like, limit); err != nil {
		return nil, r.db.Err(err, "dose pattern")
	}
	return out, nil
}

func (r *dosePatternRepoSQL) ListAll(ctx context.Context) ([]*DosePattern, error) {
	out := []*DosePattern{}
	if err := r.db.Select(ctx, &out, `SELECT `+doseCols+` FROM dose_pattern ORDER BY id`); err != nil {
		return nil, r.db.Err(err, "dose pattern")
	}
	return out, nil
}

func (r *dosePatternRepoSQL) Update(ctx context.Context, p *DosePattern) error {
	n, err := r.db.Exec(ctx, `UPDATE dose_pattern SET dose_value = ?, description_en = ?, description_hi = ? WHERE id = ?`,
		p.DoseValue, p.DescriptionEN, p.DescriptionHI, p.ID)
	if err != nil {
		return r.db.Err(err, "dose pattern")
	}
	return db.RequireAffected(n, "dose pattern")
}

func (r *dosePatternRepoSQL) Delete(ctx context.Context, id int64) error {
	n, err := r.db.Exec(ctx, `DELETE FROM dose_pattern WHERE id = ?`, id)
	if err != nil {
		return r.db.Err(err, "dose pattern")
	}
	return db.RequireAffected(n, "dose pattern")
}

func (r *dosePatternRepoSQL) InsertIfAbsent(ctx context.Context, p *DosePattern) (bool, error) {
	var existing DosePattern
	err := r.db.Get(ctx, &existing, `SELECT `+doseCols+` FROM dose_pattern WHERE dose_value = ?`, p.DoseValue)
	if err == nil {
		p.ID = existing.ID
		return false, nil
	}
	if err = r.db.Err(err, "dose pattern"); !apperr.Is(err, apperr.KindNotFound) {
		return false, err
	}
	if err := r.Create(ctx, p); err != nil {
		return false, err
	}
	return true, nil
}

func (r *dosePatternRepoSQL) RenameInMedicines(ctx context.Context, from, to string) (int64, error) {
	n, err := r.db.Exec(ctx, `UPDATE prescription_medicines SET dose_pattern = ? WHERE dose_pattern = ?`, to, from)
	if err != nil {
		return 0, r.db.Err(err, "prescription medicine")
	}
	return n, nil
}
