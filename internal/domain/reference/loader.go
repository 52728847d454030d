package reference

import (
	"context"
	"time"

	"github.com/opdemr/opdemr/internal/domain/audit"
	"github.com/opdemr/opdemr/internal/domain/diagnostics"
	"github.com/opdemr/opdemr/internal/domain/pharmacy"
	"github.com/opdemr/opdemr/internal/platform/db"
)

type TestSeeder interface {
	InsertIfAbsent(ctx context.Context, t *diagnostics.LabTest) (bool, error)
}

type TemplateSeeder interface {
	InsertIfAbsent(ctx context.Context, t *diagnostics.ReportTemplate) (bool, error)
}

type SupplierSeeder interface {
	InsertIfAbsent(ctx context.Context, s *pharmacy.Supplier) (bool, error)
}

type ItemSeeder interface {
	InsertIfAbsent(ctx context.Context, it *pharmacy.Item) (bool, error)
}

// Loader inserts the built-in reference data. Rows are matched on their
// natural key (dose value, test code, template name, supplier name, SKU)
// and existing rows are left untouched.
type Loader struct {
	tx        db.Transactor
	doses     DosePatternRepository
	tests     TestSeeder
	templates TemplateSeeder
	suppliers SupplierSeeder
	items     ItemSeeder
	audit     audit.Recorder
	now       func() time.Time
}

func NewLoader(tx db.Transactor, doses DosePatternRepository, tests TestSeeder, templates TemplateSeeder,
	suppliers SupplierSeeder, items ItemSeeder, rec audit.Recorder) *Loader {
	return &Loader{
		tx:        tx,
		doses:     doses,
		tests:     tests,
		templates: templates,
		suppliers: suppliers,
		items:     items,
		audit:     rec,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Load seeds every reference table in one transaction.
func (l *Loader) Load(ctx context.Context) (LoadReport, error) {
	rep := LoadReport{}
	err := l.tx.InTx(ctx, func(ctx context.Context) error {
		now := l.now()
		record := func(table string, id int64, created bool, row any) error {
			if !created {
				return nil
			}
			rep[table]++
			return l.audit.Record(ctx, table, id, audit.ActionInsert, nil, row)
		}

		for _, v := range doseOrder {
			ph := phrasebook[v]
			p := &DosePattern{DoseValue: v, DescriptionEN: ph.en, DescriptionHI: strPtr(ph.hi), CreatedAt: now}
			created, err := l.doses.InsertIfAbsent(ctx, p)
			if err != nil {
				return err
			}
			if err := record("dose_pattern", p.ID, created, p); err != nil {
				return err
			}
		}

		testIDs := map[string]int64{}
		for _, st := range seedTests {
			t := &diagnostics.LabTest{
				TestCode:    st.code,
				Name:        st.name,
				Category:    st.cat,
				Subcategory: strPtr(st.sub),
				SampleType:  strPtr(st.sample),
				Unit:        strPtr(st.unit),
				NormalRange: strPtr(st.normal),
				Price:       mustDecimal(st.price),
				ServiceType: st.service,
				IsActive:    true,
				CreatedAt:   now,
				UpdatedAt:   now,
			}
			created, err := l.tests.InsertIfAbsent(ctx, t)
			if err != nil {
				return err
			}
			testIDs[st.code] = t.ID
			if err := record("lab_tests", t.ID, created, t); err != nil {
				return err
			}
		}

		for _, st := range seedTemplates {
			tpl := &diagnostics.ReportTemplate{Name: st.name, Category: strPtr(st.cat), Body: st.body, CreatedAt: now, UpdatedAt: now}
			if id, ok := testIDs[st.testCode]; ok {
				tpl.TestID = &id
			}
			created, err := l.templates.InsertIfAbsent(ctx, tpl)
			if err != nil {
				return err
			}
			if err := record("report_templates", tpl.ID, created, tpl); err != nil {
				return err
			}
		}

		for _, ss := range seedSuppliers {
			sup := &pharmacy.Supplier{
				Name:          ss.name,
				ContactPerson: strPtr(ss.contact),
				Phone:         strPtr(ss.phone),
				GSTNumber:     strPtr(ss.gst),
				IsActive:      true,
				CreatedAt:     now,
				UpdatedAt:     now,
			}
			created, err := l.suppliers.InsertIfAbsent(ctx, sup)
			if err != nil {
				return err
			}
			if err := record("pharmacy_suppliers", sup.ID, created, sup); err != nil {
				return err
			}
		}

		for _, si := range seedItems {
			it := &pharmacy.Item{
				SKU:          si.sku,
				Name:         si.name,
				GenericName:  strPtr(si.generic),
				Category:     strPtr(si.cat),
				Unit:         strPtr(si.unit),
				MRP:          mustDecimal(si.mrp),
				ReorderLevel: si.reorder,
				IsActive:     true,
				CreatedAt:    now,
				UpdatedAt:    now,
			}
			created, err := l.items.InsertIfAbsent(ctx, it)
			if err != nil {
				return err
			}
			if err := record("pharmacy_items", it.ID, created, it); err != nil {
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
