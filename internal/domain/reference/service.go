// Package reference holds the dose pattern lookup and the loaders that seed
// and repair reference data across the catalog tables.
package reference

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/opdemr/opdemr/internal/domain/audit"
	"github.com/opdemr/opdemr/internal/platform/apperr"
	"github.com/opdemr/opdemr/internal/platform/db"
)

const (
	defaultSearchLimit = 20
	maxSearchLimit     = 100
)

type Service struct {
	tx    db.Transactor
	doses DosePatternRepository
	audit audit.Recorder
	now   func() time.Time
}

func NewService(tx db.Transactor, doses DosePatternRepository, rec audit.Recorder) *Service {
	return &Service{
		tx:    tx,
		doses: doses,
		audit: rec,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

var (
	dashSpaces = regexp.MustCompile(`\s*-\s*`)
	runSpaces  = regexp.MustCompile(`\s+`)
)

// NormalizeDose canonicalizes a dose value: "1 - 0 - 1" becomes "1-0-1" and
// letters are upper-cased, so "sos" and "SOS" are the same pattern.
func NormalizeDose(v string) string {
	v = strings.TrimSpace(v)
	v = dashSpaces.ReplaceAllString(v, "-")
	v = runSpaces.ReplaceAllString(v, " ")
	return strings.ToUpper(v)
}

// Search returns dose patterns whose value starts with prefix, ordered by
// value. An empty prefix lists from the start.
func (s *Service) Search(ctx context.Context, prefix string, limit int) ([]*DosePattern, error) {
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	if limit > maxSearchLimit {
		limit = maxSearchLimit
	}
	return s.doses.Search(ctx, NormalizeDose(prefix), limit)
}

func (s *Service) Create(ctx context.Context, p *DosePattern) error {
	p.DoseValue = NormalizeDose(p.DoseValue)
	p.DescriptionEN = strings.TrimSpace(p.DescriptionEN)
	if p.DoseValue == "" {
		return apperr.Validation("dose_value is required")
	}
	if known, ok := phrasebook[p.DoseValue]; ok {
		if p.DescriptionEN == "" {
			p.DescriptionEN = known.en
		}
		if p.DescriptionHI == nil || strings.TrimSpace(*p.DescriptionHI) == "" {
			hi := known.hi
			p.DescriptionHI = &hi
		}
	}
	if p.DescriptionEN == "" {
		return apperr.Validation("description_en is required")
	}
	p.CreatedAt = s.now()
	return s.tx.InTx(ctx, func(ctx context.Context) error {
		if err := s.doses.Create(ctx, p); err != nil {
			return err
		}
		return s.audit.Record(ctx, "dose_pattern", p.ID, audit.ActionInsert, nil, p)
	})
}

// FixDosePatterns normalizes every stored dose value, merges rows that
// normalize to the same value into the lowest id, rewrites prescription
// lines that used a merged spelling, and fills missing descriptions from
// the phrasebook. Running it twice changes nothing the second time.
func (s *Service) FixDosePatterns(ctx context.Context) (*FixReport, error) {
	rep := &FixReport{}
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		all, err := s.doses.ListAll(ctx)
		if err != nil {
			return err
		}
		rep.Scanned = len(all)

		groups := map[string][]*DosePattern{}
		var order []string
		for _, p := range all {
			key := NormalizeDose(p.DoseValue)
			if _, seen := groups[key]; !seen {
				order = append(order, key)
			}
			groups[key] = append(groups[key], p)
		}

		for _, key := range order {
			rows := groups[key]
			keep := rows[0]
			before := *keep
			for _, dup := range rows[1:] {
				if dup.DoseValue != key {
					n, err := s.doses.RenameInMedicines(ctx, dup.DoseValue, key)
					if err != nil {
						return err
					}
					rep.Medicines += n
				}
				if keep.DescriptionEN == "" && dup.DescriptionEN != "" {
					keep.DescriptionEN = dup.DescriptionEN
				}
				if keep.DescriptionHI == nil && dup.DescriptionHI != nil {
					keep.DescriptionHI = dup.DescriptionHI
				}
				if err := s.doses.Delete(ctx, dup.ID); err != nil {
					return err
				}
				if err := s.audit.Record(ctx, "dose_pattern", dup.ID, audit.ActionDelete, dup, nil); err != nil {
					return err
				}
				rep.Merged++
			}

			changed := len(rows) > 1
			if keep.DoseValue != key {
				n, err := s.doses.RenameInMedicines(ctx, keep.DoseValue, key)
				if err != nil {
					return err
				}
				rep.Medicines += n
				keep.DoseValue = key
				rep.Normalized++
				changed = true
			}
			if known, ok := phrasebook[key]; ok {
				described := false
				if strings.TrimSpace(keep.DescriptionEN) == "" {
					keep.DescriptionEN = known.en
					described = true
				}
				if keep.DescriptionHI == nil || strings.TrimSpace(*keep.DescriptionHI) == "" {
					hi := known.hi
					keep.DescriptionHI = &hi
					described = true
				}
				if described {
					rep.Described++
					changed = true
				}
			}
			if !changed {
				continue
			}
			if err := s.doses.Update(ctx, keep); err != nil {
				return err
			}
			if err := s.audit.Record(ctx, "dose_pattern", keep.ID, audit.ActionUpdate, &before, keep); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rep, nil
}
