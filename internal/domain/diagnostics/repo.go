package diagnostics

import (
	"context"
	"time"
)

type TestRepository interface {
	Create(ctx context.Context, t *LabTest) error
	GetByID(ctx context.Context, id int64) (*LabTest, error)
	GetByCode(ctx context.Context, code string) (*LabTest, error)
	Update(ctx context.Context, t *LabTest) error
	List(ctx context.Context, f TestFilter, limit, offset int) ([]*LabTest, int, error)
	Categories(ctx context.Context) ([]*CategoryGroup, error)
	// InsertIfAbsent creates t unless a test with the same code exists.
	InsertIfAbsent(ctx context.Context, t *LabTest) (bool, error)
}

type TemplateRepository interface {
	Create(ctx context.Context, t *ReportTemplate) error
	GetByID(ctx context.Context, id int64) (*ReportTemplate, error)
	List(ctx context.Context, limit, offset int) ([]*ReportTemplate, int, error)
	// InsertIfAbsent creates t unless a template with the same name exists.
	InsertIfAbsent(ctx context.Context, t *ReportTemplate) (bool, error)
}

type OrderRepository interface {
	Create(ctx context.Context, o *LabOrder) error
	GetByID(ctx context.Context, id int64) (*LabOrder, error)
	ListByPrescription(ctx context.Context, prescriptionID int64) ([]*LabOrder, error)
	UpdateStatus(ctx context.Context, id int64, status string, at time.Time) error
	// Items
	AddItem(ctx context.Context, item *LabOrderItem) error
	GetItem(ctx context.Context, id int64) (*LabOrderItem, error)
	ListItems(ctx context.Context, orderID int64) ([]*LabOrderItem, error)
	RecordResult(ctx context.Context, itemID int64, value string, at time.Time) error
}
