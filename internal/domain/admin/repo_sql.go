package admin

import (
	"context"
	"time"

	"github.com/opdemr/opdemr/internal/platform/db"
)

type userRepoSQL struct{ db *db.DB }

func NewUserRepoSQL(d *db.DB) UserRepository { return &userRepoSQL{db: d} }

const userCols = `id, username, password_hash, full_name, role, is_active, last_login_at, created_at, updated_at`

func (r *userRepoSQL) Create(ctx context.Context, u *User) error {
	id, err := r.db.InsertID(ctx, `
		INSERT INTO users (username, password_hash, full_name, role, is_active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		u.Username, u.PasswordHash, u.FullName, u.Role, u.IsActive, u.CreatedAt, u.UpdatedAt)
	if err != nil {
		return r.db.Err(err, "user")
	}
	u.ID = id
	return nil
}

func (r *userRepoSQL) GetByID(ctx context.Context, id int64) (*User, error) {
	var u User
	if err := r.db.Get(ctx, &u, `SELECT `+userCols+` FROM users WHERE id = ?`, id); err != nil {
		return nil, r.db.Err(err, "user")
	}
	return &u, nil
}

func (r *userRepoSQL) GetByUsername(ctx context.Context, username string) (*User, error) {
	var u User
	if err := r.db.Get(ctx, &u, `SELECT `+userCols+` FROM users WHERE username = ?`, username); err != nil {
		return nil, r.db.Err(err, "user")
	}
	return &u, nil
}

func (r *userRepoSQL) List(ctx context.Context, limit, offset int) ([]*User, int, error) {
	total, err := r.db.Count(ctx, `SELECT COUNT(*) FROM users`)
	if err != nil {
		return nil, 0, r.db.Err(err, "user")
	}
	var out []*User
	if err := r.db.Select(ctx, &out, `SELECT `+userCols+` FROM users ORDER BY username LIMIT ? OFFSET ?`, limit, offset); err != nil {
		return nil, 0, r.db.Err(err, "user")
	}
	return out, total, nil
}

func (r *userRepoSQL) SetActive(ctx context.Context, id int64, active bool, at time.Time) error {
	n, err := r.db.Exec(ctx, `UPDATE users SET is_active = ?, updated_at = ? WHERE id = ?`, active, at, id)
	if err != nil {
		return r.db.Err(err, "user")
	}
	return db.RequireAffected(n, "user")
}

func (r *userRepoSQL) UpdatePassword(ctx context.Context, id int64, hash string, at time.Time) error {
	n, err := r.db.Exec(ctx, `UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?`, hash, at, id)
	if err != nil {
		return r.db.Err(err, "user")
	}
	return db.RequireAffected(n, "user")
}

func (r *userRepoSQL) TouchLogin(ctx context.Context, id int64, at time.Time) error {
	_, err := r.db.Exec(ctx, `UPDATE users SET last_login_at = ? WHERE id = ?`, at, id)
	return r.db.Err(err, "user")
}
