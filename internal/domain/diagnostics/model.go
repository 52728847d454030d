package diagnostics

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/opdemr/opdemr/internal/domain/category"
)

const (
	PriorityRegular = "regular"
	PriorityUrgent  = "urgent"
)

const (
	OrderOrdered         = "ordered"
	OrderSampleCollected = "sample_collected"
	OrderInProgress      = "in_progress"
	OrderCompleted       = "completed"
	OrderCancelled       = "cancelled"
)

const (
	ResultPending   = "pending"
	ResultCompleted = "completed"
)

var orderTransitions = map[string][]string{
	OrderOrdered:         {OrderSampleCollected, OrderInProgress, OrderCancelled},
	OrderSampleCollected: {OrderInProgress, OrderCancelled},
	OrderInProgress:      {OrderCompleted, OrderCancelled},
}

func canTransition(from, to string) bool {
	for _, s := range orderTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// LabTest is a catalog entry. Orders copy its code, name, price and
// service type, so later catalog edits never change existing orders.
type LabTest struct {
	ID          int64             `db:"id" json:"id"`
	TestCode    string            `db:"test_code" json:"test_code"`
	Name        string            `db:"name" json:"name"`
	Category    string            `db:"category" json:"category"`
	Subcategory *string           `db:"subcategory" json:"subcategory,omitempty"`
	SampleType  *string           `db:"sample_type" json:"sample_type,omitempty"`
	Unit        *string           `db:"unit" json:"unit,omitempty"`
	NormalRange *string           `db:"normal_range" json:"normal_range,omitempty"`
	Price       decimal.Decimal   `db:"price" json:"price"`
	ServiceType category.Category `db:"service_type" json:"service_type"`
	IsActive    bool              `db:"is_active" json:"is_active"`
	CreatedAt   time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time         `db:"updated_at" json:"updated_at"`
}

type TestFilter struct {
	Category    string
	Subcategory string
	ActiveOnly  bool
}

// CategoryGroup is one catalog category and its subcategories.
type CategoryGroup struct {
	Category      string   `json:"category"`
	Subcategories []string `json:"subcategories"`
}

type ReportTemplate struct {
	ID        int64     `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Category  *string   `db:"category" json:"category,omitempty"`
	TestID    *int64    `db:"test_id" json:"test_id,omitempty"`
	Body      string    `db:"body" json:"body"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

type LabOrder struct {
	ID             int64           `db:"id" json:"id"`
	PrescriptionID int64           `db:"prescription_id" json:"prescription_id"`
	PatientID      int64           `db:"patient_id" json:"patient_id"`
	DoctorID       int64           `db:"doctor_id" json:"doctor_id"`
	Priority       string          `db:"priority" json:"priority"`
	Status         string          `db:"status" json:"status"`
	CreatedAt      time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time       `db:"updated_at" json:"updated_at"`
	Items          []*LabOrderItem `db:"-" json:"items"`
}

// LabOrderItem is one test on an order with its catalog snapshot.
type LabOrderItem struct {
	ID           int64             `db:"id" json:"id"`
	LabOrderID   int64             `db:"lab_order_id" json:"lab_order_id"`
	TestID       int64             `db:"test_id" json:"test_id"`
	TestCode     string            `db:"test_code" json:"test_code"`
	TestName     string            `db:"test_name" json:"test_name"`
	Price        decimal.Decimal   `db:"price" json:"price"`
	ServiceType  category.Category `db:"service_type" json:"service_type"`
	SampleID     *string           `db:"sample_id" json:"sample_id,omitempty"`
	ResultValue  *string           `db:"result_value" json:"result_value,omitempty"`
	ResultStatus string            `db:"result_status" json:"result_status"`
	ResultedAt   *time.Time        `db:"resulted_at" json:"resulted_at,omitempty"`
	CreatedAt    time.Time         `db:"created_at" json:"created_at"`
}

// OrderLine requests one catalog test. SampleID is generated when empty.
type OrderLine struct {
	TestID   int64   `json:"test_id"`
	SampleID *string `json:"sample_id,omitempty"`
}

type CreateOrderInput struct {
	PrescriptionID int64       `json:"prescription_id"`
	Priority       string      `json:"priority"`
	Tests          []OrderLine `json:"tests"`
	TestIDs        []int64     `json:"test_ids"`
}

func (in CreateOrderInput) lines() []OrderLine {
	out := append([]OrderLine{}, in.Tests...)
	for _, id := range in.TestIDs {
		out = append(out, OrderLine{TestID: id})
	}
	return out
}
