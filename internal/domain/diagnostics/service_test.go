package diagnostics

import (
	"context"
	"regexp"
	"sort"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/opdemr/opdemr/internal/domain/audit"
	"github.com/opdemr/opdemr/internal/domain/clinical"
	"github.com/opdemr/opdemr/internal/platform/apperr"
	"github.com/opdemr/opdemr/internal/platform/db/dbtest"
)

// -- Mock Repositories --

type mockTestRepo struct {
	items  map[int64]*LabTest
	nextID int64
}

func (m *mockTestRepo) Create(_ context.Context, t *LabTest) error {
	for _, x := range m.items {
		if x.TestCode == t.TestCode {
			return apperr.Conflict("lab test already exists")
		}
	}
	m.nextID++
	t.ID = m.nextID
	c := *t
	m.items[t.ID] = &c
	return nil
}

func (m *mockTestRepo) GetByID(_ context.Context, id int64) (*LabTest, error) {
	t, ok := m.items[id]
	if !ok {
		return nil, apperr.NotFound("lab test")
	}
	c := *t
	return &c, nil
}

func (m *mockTestRepo) GetByCode(_ context.Context, code string) (*LabTest, error) {
	for _, t := range m.items {
		if t.TestCode == code {
			c := *t
			return &c, nil
		}
	}
	return nil, apperr.NotFound("lab test")
}

func (m *mockTestRepo) Update(_ context.Context, t *LabTest) error {
	if _, ok := m.items[t.ID]; !ok {
		return apperr.NotFound("lab test")
	}
	c := *t
	m.items[t.ID] = &c
	return nil
}

func (m *mockTestRepo) List(_ context.Context, f TestFilter, limit, offset int) ([]*LabTest, int, error) {
	var out []*LabTest
	for _, t := range m.items {
		if f.ActiveOnly && !t.IsActive {
			continue
		}
		out = append(out, t)
	}
	return out, len(out), nil
}

func (m *mockTestRepo) Categories(_ context.Context) ([]*CategoryGroup, error) {
	return []*CategoryGroup{}, nil
}

func (m *mockTestRepo) InsertIfAbsent(ctx context.Context, t *LabTest) (bool, error) {
	if existing, err := m.GetByCode(ctx, t.TestCode); err == nil {
		t.ID = existing.ID
		return false, nil
	}
	return true, m.Create(ctx, t)
}

type mockTemplateRepo struct {
	items map[int64]*ReportTemplate
}

func (m *mockTemplateRepo) Create(_ context.Context, t *ReportTemplate) error {
	t.ID = int64(len(m.items) + 1)
	c := *t
	m.items[t.ID] = &c
	return nil
}

func (m *mockTemplateRepo) GetByID(_ context.Context, id int64) (*ReportTemplate, error) {
	t, ok := m.items[id]
	if !ok {
		return nil, apperr.NotFound("report template")
	}
	c := *t
	return &c, nil
}

func (m *mockTemplateRepo) List(_ context.Context, limit, offset int) ([]*ReportTemplate, int, error) {
	var out []*ReportTemplate
	for _, t := range m.items {
		out = append(out, t)
	}
	return out, len(out), nil
}

func (m *mockTemplateRepo) InsertIfAbsent(ctx context.Context, t *ReportTemplate) (bool, error) {
	return true, m.Create(ctx, t)
}

type mockOrderRepo struct {
	orders map[int64]*LabOrder
	items  map[int64]*LabOrderItem
}

func (m *mockOrderRepo) Create(_ context.Context, o *LabOrder) error {
	o.ID = int64(len(m.orders) + 1)
	c := *o
	c.Items = nil
	m.orders[o.ID] = &c
	return nil
}

func (m *mockOrderRepo) GetByID(_ context.Context, id int64) (*LabOrder, error) {
	o, ok := m.orders[id]
	if !ok {
		return nil, apperr.NotFound("lab order")
	}
	c := *o
	return &c, nil
}

func (m *mockOrderRepo) ListByPrescription(_ context.Context, prescriptionID int64) ([]*LabOrder, error) {
	out := []*LabOrder{}
	for _, o := range m.orders {
		if o.PrescriptionID == prescriptionID {
			c := *o
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *mockOrderRepo) UpdateStatus(_ context.Context, id int64, status string, at time.Time) error {
	o, ok := m.orders[id]
	if !ok {
		return apperr.NotFound("lab order")
	}
	o.Status = status
	o.UpdatedAt = at
	return nil
}

func (m *mockOrderRepo) AddItem(_ context.Context, item *LabOrderItem) error {
	for _, x := range m.items {
		if x.SampleID != nil && item.SampleID != nil && *x.SampleID == *item.SampleID {
			return apperr.Conflict("lab order item already exists")
		}
	}
	item.ID = int64(len(m.items) + 1)
	c := *item
	m.items[item.ID] = &c
	return nil
}

func (m *mockOrderRepo) GetItem(_ context.Context, id int64) (*LabOrderItem, error) {
	it, ok := m.items[id]
	if !ok {
		return nil, apperr.NotFound("lab order item")
	}
	c := *it
	return &c, nil
}

func (m *mockOrderRepo) ListItems(_ context.Context, orderID int64) ([]*LabOrderItem, error) {
	out := []*LabOrderItem{}
	for _, it := range m.items {
		if it.LabOrderID == orderID {
			c := *it
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *mockOrderRepo) RecordResult(_ context.Context, itemID int64, value string, at time.Time) error {
	it, ok := m.items[itemID]
	if !ok {
		return apperr.NotFound("lab order item")
	}
	it.ResultValue = &value
	it.ResultStatus = ResultCompleted
	it.ResultedAt = &at
	return nil
}

type mockPrescriptions map[int64]*clinical.Prescription

func (m mockPrescriptions) GetPrescription(_ context.Context, id int64) (*clinical.Prescription, error) {
	p, ok := m[id]
	if !ok {
		return nil, apperr.NotFound("prescription")
	}
	c := *p
	return &c, nil
}

func newTestService() *Service {
	rx := mockPrescriptions{
		1: {ID: 1, PatientID: 7, DoctorID: 2, Status: clinical.StatusCreated},
		2: {ID: 2, PatientID: 7, DoctorID: 2, Status: clinical.StatusFulfilled},
		3: {ID: 3, PatientID: 8, DoctorID: 2, Status: clinical.StatusBilled},
	}
	return NewService(dbtest.Passthrough{},
		&mockTestRepo{items: map[int64]*LabTest{}},
		&mockTemplateRepo{items: map[int64]*ReportTemplate{}},
		&mockOrderRepo{orders: map[int64]*LabOrder{}, items: map[int64]*LabOrderItem{}},
		rx, audit.Nop{})
}

func mustCreateTest(t *testing.T, svc *Service, code string, price int64) *LabTest {
	t.Helper()
	lt := &LabTest{TestCode: code, Name: code + " test", Category: "General", Price: decimal.NewFromInt(price)}
	if err := svc.CreateTest(context.Background(), lt); err != nil {
		t.Fatal(err)
	}
	return lt
}

// -- Lab Test Tests --

func TestService_CreateTest_Normalizes(t *testing.T) {
	svc := newTestService()
	lt := &LabTest{TestCode: " esr ", Name: "ESR", Category: "Hematology", Price: decimal.RequireFromString("120.456")}
	if err := svc.CreateTest(context.Background(), lt); err != nil {
		t.Fatal(err)
	}
	if lt.TestCode != "ESR" || !lt.IsActive || lt.ServiceType != "I" {
		t.Errorf("unexpected test %+v", lt)
	}
	if lt.Price.String() != "120.46" {
		t.Errorf("expected price rounded to 120.46, got %s", lt.Price)
	}
}

func TestService_CreateTest_Errors(t *testing.T) {
	svc := newTestService()
	tests := []struct {
		name string
		lt   *LabTest
	}{
		{"missing code", &LabTest{Name: "X", Category: "Y"}},
		{"missing name", &LabTest{TestCode: "X", Category: "Y"}},
		{"missing category", &LabTest{TestCode: "X", Name: "Y"}},
		{"negative price", &LabTest{TestCode: "X", Name: "Y", Category: "Z", Price: decimal.NewFromInt(-1)}},
		{"bad service type", &LabTest{TestCode: "X", Name: "Y", Category: "Z", ServiceType: "RX"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := svc.CreateTest(context.Background(), tt.lt); !apperr.Is(err, apperr.KindValidation) {
				t.Errorf("expected validation error, got %v", err)
			}
		})
	}
}

// -- Lab Order Tests --

func TestNewSampleID(t *testing.T) {
	re := regexp.MustCompile(`^SMP-[0-9A-F]{12}$`)
	a, b := NewSampleID(), NewSampleID()
	if !re.MatchString(a) {
		t.Errorf("unexpected sample id %q", a)
	}
	if a == b {
		t.Error("expected distinct sample ids")
	}
}

func TestService_CreateOrder(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	cbc := mustCreateTest(t, svc, "CBC", 500)
	lft := mustCreateTest(t, svc, "LFT", 750)

	fixed := "SMP-MANUAL"
	o, err := svc.CreateOrder(ctx, CreateOrderInput{
		PrescriptionID: 1,
		Tests:          []OrderLine{{TestID: cbc.ID, SampleID: &fixed}},
		TestIDs:        []int64{lft.ID},
	})
	if err != nil {
		t.Fatal(err)
	}
	if o.PatientID != 7 || o.DoctorID != 2 || o.Priority != PriorityRegular {
		t.Errorf("order should inherit prescription context, got %+v", o)
	}
	if len(o.Items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(o.Items))
	}
	if *o.Items[0].SampleID != fixed {
		t.Errorf("expected supplied sample id, got %s", *o.Items[0].SampleID)
	}
	if *o.Items[1].SampleID == "" || *o.Items[1].SampleID == fixed {
		t.Errorf("expected generated sample id, got %s", *o.Items[1].SampleID)
	}
	if !o.Items[1].Price.Equal(decimal.NewFromInt(750)) || o.Items[1].TestCode != "LFT" {
		t.Errorf("unexpected snapshot %+v", o.Items[1])
	}

	// Billed prescriptions still accept orders.
	if _, err := svc.CreateOrder(ctx, CreateOrderInput{PrescriptionID: 3, TestIDs: []int64{cbc.ID}}); err != nil {
		t.Errorf("expected order on billed prescription, got %v", err)
	}
}

func TestService_CreateOrder_Errors(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	cbc := mustCreateTest(t, svc, "CBC", 500)
	old := mustCreateTest(t, svc, "OLD", 100)
	old.IsActive = false
	if err := svc.UpdateTest(ctx, old); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		in   CreateOrderInput
		kind apperr.Kind
	}{
		{"missing prescription", CreateOrderInput{TestIDs: []int64{cbc.ID}}, apperr.KindValidation},
		{"no tests", CreateOrderInput{PrescriptionID: 1}, apperr.KindValidation},
		{"bad priority", CreateOrderInput{PrescriptionID: 1, Priority: "stat", TestIDs: []int64{cbc.ID}}, apperr.KindValidation},
		{"duplicate test", CreateOrderInput{PrescriptionID: 1, TestIDs: []int64{cbc.ID, cbc.ID}}, apperr.KindValidation},
		{"inactive test", CreateOrderInput{PrescriptionID: 1, TestIDs: []int64{old.ID}}, apperr.KindValidation},
		{"unknown test", CreateOrderInput{PrescriptionID: 1, TestIDs: []int64{99}}, apperr.KindNotFound},
		{"unknown prescription", CreateOrderInput{PrescriptionID: 42, TestIDs: []int64{cbc.ID}}, apperr.KindNotFound},
		{"fulfilled prescription", CreateOrderInput{PrescriptionID: 2, TestIDs: []int64{cbc.ID}}, apperr.KindValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.CreateOrder(ctx, tt.in); !apperr.Is(err, tt.kind) {
				t.Errorf("expected %s, got %v", tt.kind, err)
			}
		})
	}
}

func TestService_UpdateOrderStatus(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	cbc := mustCreateTest(t, svc, "CBC", 500)
	o, err := svc.CreateOrder(ctx, CreateOrderInput{PrescriptionID: 1, TestIDs: []int64{cbc.ID}})
	if err != nil {
		t.Fatal(err)
	}

	if _, err := svc.UpdateOrderStatus(ctx, o.ID, OrderCompleted); !apperr.Is(err, apperr.KindValidation) {
		t.Errorf("ordered -> completed should fail, got %v", err)
	}
	got, err := svc.UpdateOrderStatus(ctx, o.ID, OrderSampleCollected)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != OrderSampleCollected {
		t.Errorf("expected sample_collected, got %s", got.Status)
	}
	if _, err := svc.UpdateOrderStatus(ctx, o.ID, OrderCancelled); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.RecordResult(ctx, o.Items[0].ID, "13.5 g/dL"); !apperr.Is(err, apperr.KindValidation) {
		t.Errorf("result on cancelled order should fail, got %v", err)
	}
	if _, err := svc.UpdateOrderStatus(ctx, o.ID, OrderOrdered); !apperr.Is(err, apperr.KindValidation) {
		t.Errorf("cancelled is terminal, got %v", err)
	}
}

func TestService_RecordResult_Blank(t *testing.T) {
	svc := newTestService()
	if _, err := svc.RecordResult(context.Background(), 1, "  "); !apperr.Is(err, apperr.KindValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
}

// -- Report Template Tests --

func TestService_CreateTemplate(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	if err := svc.CreateTemplate(ctx, &ReportTemplate{Name: "  ", Body: "x"}); !apperr.Is(err, apperr.KindValidation) {
		t.Errorf("expected validation error for blank name, got %v", err)
	}
	if err := svc.CreateTemplate(ctx, &ReportTemplate{Name: "CBC", Body: ""}); !apperr.Is(err, apperr.KindValidation) {
		t.Errorf("expected validation error for blank body, got %v", err)
	}
	tpl := &ReportTemplate{Name: " Urine Routine ", Body: "Colour: {{colour}}"}
	if err := svc.CreateTemplate(ctx, tpl); err != nil {
		t.Fatal(err)
	}
	got, err := svc.GetTemplate(ctx, tpl.ID)
	if err != nil || got.Name != "Urine Routine" {
		t.Errorf("unexpected template %+v, %v", got, err)
	}
}
