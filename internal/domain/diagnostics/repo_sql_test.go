package diagnostics

import (
	"context"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/opdemr/opdemr/internal/domain/audit"
	"github.com/opdemr/opdemr/internal/domain/category"
	"github.com/opdemr/opdemr/internal/domain/clinical"
	"github.com/opdemr/opdemr/internal/domain/identity"
	"github.com/opdemr/opdemr/internal/platform/apperr"
	"github.com/opdemr/opdemr/internal/platform/db/dbtest"
)

type fixture struct {
	svc          *Service
	clinical     *clinical.Service
	prescription *clinical.Prescription
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	d := dbtest.Open(t)
	rec := audit.NewService(audit.NewRepoSQL(d))
	ids := identity.NewService(d, identity.NewPatientRepoSQL(d), identity.NewDoctorRepoSQL(d), rec)
	cs := clinical.NewService(d, clinical.NewPrescriptionRepoSQL(d), clinical.NewNoteRepoSQL(d), ids, nil, rec)
	svc := NewService(d, NewTestRepoSQL(d), NewTemplateRepoSQL(d), NewOrderRepoSQL(d), cs, rec)
	ctx := context.Background()

	p := &identity.Patient{FirstName: "Ada", LastName: "Lovelace"}
	doc := &identity.Doctor{Name: "Dr. Babbage", Specialization: "General"}
	if err := ids.CreatePatient(ctx, p); err != nil {
		t.Fatal(err)
	}
	if err := ids.CreateDoctor(ctx, doc); err != nil {
		t.Fatal(err)
	}
	rx := &clinical.Prescription{PatientID: p.PatientID, DoctorID: doc.ID}
	if err := cs.CreatePrescription(ctx, rx); err != nil {
		t.Fatal(err)
	}
	return &fixture{svc: svc, clinical: cs, prescription: rx}
}

func (f *fixture) createTest(t *testing.T, code, name, cat, price string) *LabTest {
	t.Helper()
	lt := &LabTest{TestCode: code, Name: name, Category: cat, Price: decimal.RequireFromString(price)}
	if err := f.svc.CreateTest(context.Background(), lt); err != nil {
		t.Fatalf("create test %s: %v", code, err)
	}
	return lt
}

func TestRepoSQL_OrderSnapshotsCatalogPrice(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cbc := f.createTest(t, "cbc", "Complete Blood Count", "Hematology", "500")

	order, err := f.svc.CreateOrder(ctx, CreateOrderInput{PrescriptionID: f.prescription.ID, TestIDs: []int64{cbc.ID}})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	if order.Priority != PriorityRegular || order.Status != OrderOrdered {
		t.Errorf("unexpected order defaults %+v", order)
	}

	cbc.Price = decimal.RequireFromString("600")
	if err := f.svc.UpdateTest(ctx, cbc); err != nil {
		t.Fatal(err)
	}

	got, err := f.svc.GetOrder(ctx, order.ID)
	if err != nil {
		t.Fatal(err)
	}
	item := got.Items[0]
	if !item.Price.Equal(decimal.NewFromInt(500)) {
		t.Errorf("expected snapshot price 500, got %s", item.Price)
	}
	if item.TestCode != "CBC" || item.TestName != "Complete Blood Count" || item.ServiceType != category.Investigation {
		t.Errorf("unexpected snapshot %+v", item)
	}
	if item.SampleID == nil || !strings.HasPrefix(*item.SampleID, "SMP-") {
		t.Errorf("expected generated sample id, got %v", item.SampleID)
	}

	catalog, _ := f.svc.GetTest(ctx, cbc.ID)
	if !catalog.Price.Equal(decimal.NewFromInt(600)) {
		t.Errorf("expected catalog price 600, got %s", catalog.Price)
	}
}

func TestRepoSQL_DuplicateSampleIDConflicts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.createTest(t, "LFT", "Liver Function Test", "Biochemistry", "750")
	b := f.createTest(t, "KFT", "Kidney Function Test", "Biochemistry", "700")

	sample := "SMP-FIXED"
	if _, err := f.svc.CreateOrder(ctx, CreateOrderInput{PrescriptionID: f.prescription.ID,
		Tests: []OrderLine{{TestID: a.ID, SampleID: &sample}}}); err != nil {
		t.Fatal(err)
	}
	_, err := f.svc.CreateOrder(ctx, CreateOrderInput{PrescriptionID: f.prescription.ID,
		Tests: []OrderLine{{TestID: b.ID, SampleID: &sample}}})
	if !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("expected conflict for duplicate sample id, got %v", err)
	}

	orders, err := f.svc.ListOrdersByPrescription(ctx, f.prescription.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(orders) != 1 {
		t.Errorf("failed order must roll back, found %d orders", len(orders))
	}
}

func TestRepoSQL_ResultsCompleteOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.createTest(t, "FBS", "Fasting Blood Sugar", "Biochemistry", "150")
	b := f.createTest(t, "HBA1C", "Glycated Haemoglobin", "Biochemistry", "450")

	order, err := f.svc.CreateOrder(ctx, CreateOrderInput{PrescriptionID: f.prescription.ID, Priority: PriorityUrgent,
		TestIDs: []int64{a.ID, b.ID}})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.UpdateOrderStatus(ctx, order.ID, OrderCompleted); !apperr.Is(err, apperr.KindValidation) {
		t.Errorf("expected completion without results to fail, got %v", err)
	}

	if _, err := f.svc.RecordResult(ctx, order.Items[0].ID, "96 mg/dL"); err != nil {
		t.Fatal(err)
	}
	got, _ := f.svc.GetOrder(ctx, order.ID)
	if got.Status != OrderInProgress {
		t.Errorf("expected in_progress after first result, got %s", got.Status)
	}
	if _, err := f.svc.RecordResult(ctx, order.Items[1].ID, "5.6 %"); err != nil {
		t.Fatal(err)
	}
	got, _ = f.svc.GetOrder(ctx, order.ID)
	if got.Status != OrderCompleted {
		t.Errorf("expected completed after all results, got %s", got.Status)
	}
	if got.Items[1].ResultedAt == nil || *got.Items[1].ResultValue != "5.6 %" {
		t.Errorf("unexpected item %+v", got.Items[1])
	}
	if _, err := f.svc.RecordResult(ctx, order.Items[0].ID, "99"); !apperr.Is(err, apperr.KindValidation) {
		t.Errorf("expected result on completed order to fail, got %v", err)
	}
}

func TestRepoSQL_ListTestsAndCategories(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sub := func(s string) *string { return &s }
	for _, lt := range []*LabTest{
		{TestCode: "TSH", Name: "Thyroid Stimulating Hormone", Category: "Biochemistry", Subcategory: sub("Hormones"), Price: decimal.NewFromInt(400)},
		{TestCode: "T3", Name: "Triiodothyronine", Category: "Biochemistry", Subcategory: sub("Hormones"), Price: decimal.NewFromInt(300)},
		{TestCode: "ALB", Name: "Albumin", Category: "Biochemistry", Subcategory: sub("Proteins"), Price: decimal.NewFromInt(120)},
		{TestCode: "CBC", Name: "Complete Blood Count", Category: "Hematology", Price: decimal.NewFromInt(500)},
		{TestCode: "CONS", Name: "Pathologist Consultation", Category: "Consultation", Price: decimal.NewFromInt(300), ServiceType: category.Consultation},
	} {
		if err := f.svc.CreateTest(ctx, lt); err != nil {
			t.Fatal(err)
		}
	}

	hormones, total, err := f.svc.ListTests(ctx, TestFilter{Category: "Biochemistry", Subcategory: "Hormones", ActiveOnly: true}, 10, 0)
	if err != nil {
		t.Fatal(err)
	}
	if total != 2 || hormones[0].TestCode != "TSH" || hormones[1].TestCode != "T3" {
		t.Errorf("expected hormones ordered by name, got %d", total)
	}

	groups, err := f.svc.Categories(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(groups) != 3 || groups[0].Category != "Biochemistry" || len(groups[0].Subcategories) != 2 {
		t.Errorf("unexpected categories %+v", groups)
	}

	if _, _, err := f.svc.ListTests(ctx, TestFilter{}, 10, 0); err != nil {
		t.Fatal(err)
	}
	dup := &LabTest{TestCode: "tsh", Name: "Dup", Category: "X", Price: decimal.NewFromInt(1)}
	if err := f.svc.CreateTest(ctx, dup); !apperr.Is(err, apperr.KindConflict) {
		t.Errorf("expected duplicate test code conflict, got %v", err)
	}
}

func TestRepoSQL_Templates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cbc := f.createTest(t, "CBC", "Complete Blood Count", "Hematology", "500")

	tpl := &ReportTemplate{Name: "CBC Report", TestID: &cbc.ID, Body: "Hb: {{hb}}"}
	if err := f.svc.CreateTemplate(ctx, tpl); err != nil {
		t.Fatal(err)
	}
	repo := f.svc.templates
	again := &ReportTemplate{Name: "CBC Report", Body: "other"}
	created, err := repo.InsertIfAbsent(ctx, again)
	if err != nil || created || again.ID != tpl.ID {
		t.Errorf("InsertIfAbsent existing = %v, %v, id %d", created, err, again.ID)
	}
	created, err = repo.InsertIfAbsent(ctx, &ReportTemplate{Name: "Lipid Profile", Body: "LDL: {{ldl}}"})
	if err != nil || !created {
		t.Errorf("InsertIfAbsent new = %v, %v", created, err)
	}
	_, total, _ := f.svc.ListTemplates(ctx, 10, 0)
	if total != 2 {
		t.Errorf("expected 2 templates, got %d", total)
	}

	missing := int64(999)
	if err := f.svc.CreateTemplate(ctx, &ReportTemplate{Name: "X", TestID: &missing, Body: "b"}); !apperr.Is(err, apperr.KindNotFound) {
		t.Errorf("expected not found for unknown test, got %v", err)
	}
}
