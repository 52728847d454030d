// Package admin manages staff accounts and issues session tokens.
package admin

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/opdemr/opdemr/internal/domain/audit"
	"github.com/opdemr/opdemr/internal/platform/apperr"
	"github.com/opdemr/opdemr/internal/platform/auth"
	"github.com/opdemr/opdemr/internal/platform/db"
)

var usernamePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9._-]{2,63}$`)

const invalidCredentials = "invalid username or password"

type Service struct {
	tx         db.Transactor
	users      UserRepository
	tokens     *auth.TokenIssuer
	bcryptCost int
	audit      audit.Recorder
	now        func() time.Time
}

func NewService(tx db.Transactor, users UserRepository, tokens *auth.TokenIssuer, bcryptCost int, rec audit.Recorder) *Service {
	return &Service{
		tx:         tx,
		users:      users,
		tokens:     tokens,
		bcryptCost: bcryptCost,
		audit:      rec,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func normalizeUsername(u string) string {
	return strings.ToLower(strings.TrimSpace(u))
}

func (s *Service) CreateUser(ctx context.Context, in CreateUserInput) (*User, error) {
	username := normalizeUsername(in.Username)
	if !usernamePattern.MatchString(username) {
		return nil, apperr.Validation("username must be 3-64 characters of letters, digits, dot, dash or underscore")
	}
	if !auth.ValidRole(in.Role) {
		return nil, apperr.Validation("invalid role: %s", in.Role)
	}
	if err := auth.ValidatePassword(in.Password); err != nil {
		return nil, apperr.Validation("%s", err.Error())
	}
	hash, err := auth.HashPassword(in.Password, s.bcryptCost)
	if err != nil {
		return nil, apperr.Persistence("hash password", err)
	}

	u := &User{
		Username:     username,
		PasswordHash: hash,
		FullName:     strings.TrimSpace(in.FullName),
		Role:         in.Role,
		IsActive:     true,
	}
	err = s.tx.InTx(ctx, func(ctx context.Context) error {
		u.CreatedAt = s.now()
		u.UpdatedAt = u.CreatedAt
		if err := s.users.Create(ctx, u); err != nil {
			return err
		}
		return s.audit.Record(ctx, "users", u.ID, audit.ActionInsert, nil, u)
	})
	if err != nil {
		return nil, err
	}
	return u, nil
}

// Login verifies credentials and issues a token. Unknown users, wrong
// passwords and disabled accounts all fail with KindUnauthorized. A legacy
// SHA-256 hash is replaced by a bcrypt hash on the first successful login.
func (s *Service) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	username = normalizeUsername(username)
	if username == "" || password == "" {
		return nil, apperr.Validation("username and password are required")
	}

	u, err := s.users.GetByUsername(ctx, username)
	if apperr.Is(err, apperr.KindNotFound) {
		return nil, apperr.Unauthorized(invalidCredentials)
	}
	if err != nil {
		return nil, err
	}

	ok, needsRehash := auth.CheckPassword(u.PasswordHash, password)
	if !ok {
		return nil, apperr.Unauthorized(invalidCredentials)
	}
	if !u.IsActive {
		return nil, apperr.Unauthorized("account is disabled")
	}

	err = s.tx.InTx(ctx, func(ctx context.Context) error {
		now := s.now()
		if needsRehash {
			hash, err := auth.HashPassword(password, s.bcryptCost)
			if err != nil {
				return apperr.Persistence("hash password", err)
			}
			if err := s.users.UpdatePassword(ctx, u.ID, hash, now); err != nil {
				return err
			}
			u.PasswordHash = hash
			u.UpdatedAt = now
		}
		u.LastLoginAt = &now
		return s.users.TouchLogin(ctx, u.ID, now)
	})
	if err != nil {
		return nil, err
	}

	token, expires, err := s.tokens.Issue(u.ID, u.Username, u.Role)
	if err != nil {
		return nil, apperr.Persistence("issue token", err)
	}
	return &LoginResult{Success: true, Token: token, ExpiresAt: expires, User: u}, nil
}

func (s *Service) GetUser(ctx context.Context, id int64) (*User, error) {
	return s.users.GetByID(ctx, id)
}

func (s *Service) GetUserByUsername(ctx context.Context, username string) (*User, error) {
	return s.users.GetByUsername(ctx, normalizeUsername(username))
}

func (s *Service) ListUsers(ctx context.Context, limit, offset int) ([]*User, int, error) {
	return s.users.List(ctx, limit, offset)
}

// AccountActive reports whether a token subject may still act. Deleted and
// deactivated accounts are both refused.
func (s *Service) AccountActive(ctx context.Context, userID int64) (bool, error) {
	u, err := s.users.GetByID(ctx, userID)
	if apperr.Is(err, apperr.KindNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return u.IsActive, nil
}

// SetActive enables or disables an account. Users cannot disable themselves.
func (s *Service) SetActive(ctx context.Context, id int64, active bool) (*User, error) {
	if !active && auth.UserIDInt64(ctx) == id {
		return nil, apperr.Validation("you cannot deactivate your own account")
	}
	var u *User
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		before, err := s.users.GetByID(ctx, id)
		if err != nil {
			return err
		}
		now := s.now()
		if err := s.users.SetActive(ctx, id, active, now); err != nil {
			return err
		}
		after := *before
		after.IsActive = active
		after.UpdatedAt = now
		u = &after
		return s.audit.Record(ctx, "users", id, audit.ActionUpdate, before, u)
	})
	return u, err
}

// ChangePassword sets a new password. Unless reset is true the current
// password must match.
func (s *Service) ChangePassword(ctx context.Context, id int64, current, next string, reset bool) error {
	if err := auth.ValidatePassword(next); err != nil {
		return apperr.Validation("%s", err.Error())
	}
	return s.tx.InTx(ctx, func(ctx context.Context) error {
		u, err := s.users.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if !reset {
			if ok, _ := auth.CheckPassword(u.PasswordHash, current); !ok {
				return apperr.Unauthorized("current password is incorrect")
			}
		}
		hash, err := auth.HashPassword(next, s.bcryptCost)
		if err != nil {
			return apperr.Persistence("hash password", err)
		}
		if err := s.users.UpdatePassword(ctx, id, hash, s.now()); err != nil {
			return err
		}
		return s.audit.Record(ctx, "users", id, audit.ActionUpdate, nil, map[string]any{"password_changed": true})
	})
}
