package reference

import "context"

type DosePatternRepository interface {
	Create(ctx context.Context, p *DosePattern) error
	Search(ctx context.Context, prefix string, limit int) ([]*DosePattern, error)
	ListAll(ctx context.Context) ([]*DosePattern, error)
	Update(ctx context.Context, p *DosePattern) error
	Delete(ctx context.Context, id int64) error
	// InsertIfAbsent creates p unless the dose value exists.
	InsertIfAbsent(ctx context.Context, p *DosePattern) (bool, error)
	// RenameInMedicines rewrites prescription lines using from to use to.
	RenameInMedicines(ctx context.Context, from, to string) (int64, error)
}
