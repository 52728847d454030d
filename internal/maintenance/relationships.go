package maintenance

import (
	"context"

	"github.com/opdemr/opdemr/internal/platform/apperr"
	"github.com/opdemr/opdemr/internal/platform/db"
)

// Orphan counts child rows whose parent row is missing.
type Orphan struct {
	Check string `json:"check"`
	Rows  int    `json:"rows"`
}

type RelationshipReport struct {
	Violations []db.FKViolation `json:"violations"`
	Orphans    []Orphan         `json:"orphans"`
}

// OK reports whether nothing was found.
func (r *RelationshipReport) OK() bool {
	return len(r.Violations) == 0 && len(r.Orphans) == 0
}

var orphanChecks = []struct {
	name  string
	query string
}{
	{"lab order items without order", `SELECT COUNT(*) FROM lab_order_items i
		LEFT JOIN lab_orders o ON o.id = i.lab_order_id WHERE o.id IS NULL`},
	{"lab order items without catalog test", `SELECT COUNT(*) FROM lab_order_items i
		LEFT JOIN lab_tests t ON t.id = i.test_id WHERE t.id IS NULL`},
	{"pharmacy order items without order", `SELECT COUNT(*) FROM pharmacy_order_items i
		LEFT JOIN pharmacy_orders o ON o.id = i.pharmacy_order_id WHERE o.id IS NULL`},
	{"pharmacy order items without item", `SELECT COUNT(*) FROM pharmacy_order_items i
		LEFT JOIN pharmacy_items p ON p.id = i.item_id WHERE p.id IS NULL`},
	{"prescription medicines without prescription", `SELECT COUNT(*) FROM prescription_medicines m
		LEFT JOIN prescriptions p ON p.id = m.prescription_id WHERE p.id IS NULL`},
	{"bill items without bill", `SELECT COUNT(*) FROM bill_items i
		LEFT JOIN bills b ON b.id = i.bill_id WHERE b.id IS NULL`},
	{"lab billing links without lab order", `SELECT COUNT(*) FROM lab_billing l
		LEFT JOIN lab_orders o ON o.id = l.lab_order_id WHERE o.id IS NULL`},
	{"lab orders without prescription", `SELECT COUNT(*) FROM lab_orders o
		LEFT JOIN prescriptions p ON p.id = o.prescription_id WHERE p.id IS NULL`},
	{"pharmacy orders without prescription", `SELECT COUNT(*) FROM pharmacy_orders o
		LEFT JOIN prescriptions p ON p.id = o.prescription_id WHERE p.id IS NULL`},
}

// CheckRelationships lists foreign key violations reported by the engine
// and counts orphaned order, bill and prescription lines. It only reads.
func CheckRelationships(ctx context.Context, d *db.DB) (*RelationshipReport, error) {
	rep := &RelationshipReport{Violations: []db.FKViolation{}, Orphans: []Orphan{}}
	v, err := d.Dialect().ForeignKeyViolations(ctx, d.Conn(ctx))
	if err != nil {
		return nil, apperr.Persistence("foreign key check", err)
	}
	rep.Violations = append(rep.Violations, v...)

	for _, c := range orphanChecks {
		n, err := d.Count(ctx, c.query)
		if err != nil {
			return nil, d.Err(err, c.name)
		}
		if n > 0 {
			rep.Orphans = append(rep.Orphans, Orphan{Check: c.name, Rows: n})
		}
	}
	return rep, nil
}
