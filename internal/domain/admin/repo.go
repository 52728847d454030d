package admin

import (
	"context"
	"time"
)

type UserRepository interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id int64) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
	List(ctx context.Context, limit, offset int) ([]*User, int, error)
	SetActive(ctx context.Context, id int64, active bool, at time.Time) error
	UpdatePassword(ctx context.Context, id int64, hash string, at time.Time) error
	TouchLogin(ctx context.Context, id int64, at time.Time) error
}
