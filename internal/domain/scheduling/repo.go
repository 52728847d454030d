package scheduling

import (
	"context"
	"time"
)

type Repository interface {
	Create(ctx context.Context, a *Appointment) error
	GetByID(ctx context.Context, id int64) (*Appointment, error)
	UpdateStatus(ctx context.Context, id int64, status string, at time.Time) error
	List(ctx context.Context, f Filter, limit, offset int) ([]*Appointment, int, error)
}
