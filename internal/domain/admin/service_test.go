package admin

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/opdemr/opdemr/internal/domain/audit"
	"github.com/opdemr/opdemr/internal/platform/apperr"
	"github.com/opdemr/opdemr/internal/platform/auth"
	"github.com/opdemr/opdemr/internal/platform/db/dbtest"
)

type mockUserRepo struct {
	items  map[int64]*User
	nextID int64
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{items: make(map[int64]*User)}
}

func (m *mockUserRepo) Create(_ context.Context, u *User) error {
	for _, existing := range m.items {
		if existing.Username == u.Username {
			return apperr.Conflict("user already exists")
		}
	}
	m.nextID++
	u.ID = m.nextID
	cp := *u
	m.items[u.ID] = &cp
	return nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id int64) (*User, error) {
	u, ok := m.items[id]
	if !ok {
		return nil, apperr.NotFound("user")
	}
	cp := *u
	return &cp, nil
}

func (m *mockUserRepo) GetByUsername(_ context.Context, username string) (*User, error) {
	for _, u := range m.items {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, apperr.NotFound("user")
}

func (m *mockUserRepo) List(_ context.Context, limit, offset int) ([]*User, int, error) {
	var out []*User
	for _, u := range m.items {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, len(out), nil
}

func (m *mockUserRepo) SetActive(_ context.Context, id int64, active bool, at time.Time) error {
	u, ok := m.items[id]
	if !ok {
		return apperr.NotFound("user")
	}
	u.IsActive = active
	u.UpdatedAt = at
	return nil
}

func (m *mockUserRepo) UpdatePassword(_ context.Context, id int64, hash string, at time.Time) error {
	u, ok := m.items[id]
	if !ok {
		return apperr.NotFound("user")
	}
	u.PasswordHash = hash
	u.UpdatedAt = at
	return nil
}

func (m *mockUserRepo) TouchLogin(_ context.Context, id int64, at time.Time) error {
	if u, ok := m.items[id]; ok {
		u.LastLoginAt = &at
	}
	return nil
}

var testKey = []byte("0123456789abcdef0123456789abcdef")

func newTestService() (*Service, *mockUserRepo) {
	repo := newMockUserRepo()
	tokens := auth.NewTokenIssuer(testKey, time.Hour)
	return NewService(dbtest.Passthrough{}, repo, tokens, 4, audit.Nop{}), repo
}

func TestService_CreateUser(t *testing.T) {
	svc, repo := newTestService()
	u, err := svc.CreateUser(context.Background(), CreateUserInput{
		Username: "  DrSmith ", Password: "s3cret-pass", FullName: "Dr Smith", Role: auth.RoleDoctor,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if u.Username != "drsmith" || !u.IsActive {
		t.Errorf("unexpected user %+v", u)
	}
	stored := repo.items[u.ID]
	if !strings.HasPrefix(stored.PasswordHash, "$2") {
		t.Errorf("expected bcrypt hash, got %q", stored.PasswordHash)
	}
}

func TestService_CreateUser_Validation(t *testing.T) {
	svc, _ := newTestService()
	cases := []CreateUserInput{
		{Username: "ab", Password: "longenough", Role: auth.RoleAdmin},
		{Username: "alice", Password: "short", Role: auth.RoleAdmin},
		{Username: "alice", Password: "longenough", Role: "nurse"},
		{Username: "al ice", Password: "longenough", Role: auth.RoleLab},
	}
	for _, in := range cases {
		if _, err := svc.CreateUser(context.Background(), in); !apperr.Is(err, apperr.KindValidation) {
			t.Errorf("expected validation error for %+v, got %v", in, err)
		}
	}
}

func TestService_Login(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	u, _ := svc.CreateUser(ctx, CreateUserInput{Username: "reception1", Password: "front-desk-1", Role: auth.RoleReceptionist})

	res, err := svc.Login(ctx, "Reception1", "front-desk-1")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if !res.Success || res.Token == "" || res.User.ID != u.ID {
		t.Fatalf("unexpected result %+v", res)
	}
	claims, err := auth.NewTokenIssuer(testKey, time.Hour).Parse(res.Token)
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}
	if claims.Username != "reception1" || claims.Roles[0] != auth.RoleReceptionist {
		t.Errorf("unexpected claims %+v", claims)
	}
	if res.User.LastLoginAt == nil {
		t.Error("expected last login to be set")
	}
}

func TestService_Login_Failures(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	u, _ := svc.CreateUser(ctx, CreateUserInput{Username: "lab1", Password: "lab-password", Role: auth.RoleLab})

	if _, err := svc.Login(ctx, "", "x"); !apperr.Is(err, apperr.KindValidation) {
		t.Errorf("expected validation for missing username, got %v", err)
	}
	if _, err := svc.Login(ctx, "nobody", "lab-password"); !apperr.Is(err, apperr.KindUnauthorized) {
		t.Errorf("expected unauthorized for unknown user, got %v", err)
	}
	if _, err := svc.Login(ctx, "lab1", "wrong-password"); !apperr.Is(err, apperr.KindUnauthorized) {
		t.Errorf("expected unauthorized for wrong password, got %v", err)
	}

	if _, err := svc.SetActive(ctx, u.ID, false); err != nil {
		t.Fatal(err)
	}
	_, err := svc.Login(ctx, "lab1", "lab-password")
	if !apperr.Is(err, apperr.KindUnauthorized) {
		t.Fatalf("expected unauthorized for inactive user, got %v", err)
	}

	if _, err := svc.SetActive(ctx, u.ID, true); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Login(ctx, "lab1", "lab-password"); err != nil {
		t.Errorf("expected login after reactivation, got %v", err)
	}
}

func TestService_Login_UpgradesLegacyHash(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()
	sum := sha256.Sum256([]byte("old-password"))
	_ = repo.Create(ctx, &User{Username: "legacy", PasswordHash: hex.EncodeToString(sum[:]), Role: auth.RoleBilling, IsActive: true})

	if _, err := svc.Login(ctx, "legacy", "old-password"); err != nil {
		t.Fatalf("login with legacy hash: %v", err)
	}
	stored, _ := repo.GetByUsername(ctx, "legacy")
	if auth.IsLegacyHash(stored.PasswordHash) {
		t.Fatal("expected legacy hash to be replaced")
	}
	if ok, rehash := auth.CheckPassword(stored.PasswordHash, "old-password"); !ok || rehash {
		t.Errorf("expected bcrypt match, got ok=%v rehash=%v", ok, rehash)
	}
}

func TestService_SetActive_Self(t *testing.T) {
	svc, _ := newTestService()
	u, _ := svc.CreateUser(context.Background(), CreateUserInput{Username: "root", Password: "admin-password", Role: auth.RoleAdmin})
	ctx := auth.WithIdentity(context.Background(), "1", "root", []string{auth.RoleAdmin})
	if _, err := svc.SetActive(ctx, u.ID, false); !apperr.Is(err, apperr.KindValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestService_AccountActive(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	u, err := svc.CreateUser(ctx, CreateUserInput{Username: "billing1", Password: "billing-pass", Role: auth.RoleBilling})
	if err != nil {
		t.Fatal(err)
	}

	if ok, err := svc.AccountActive(ctx, u.ID); err != nil || !ok {
		t.Errorf("new account: active=%v err=%v", ok, err)
	}
	if _, err := svc.SetActive(ctx, u.ID, false); err != nil {
		t.Fatal(err)
	}
	if ok, err := svc.AccountActive(ctx, u.ID); err != nil || ok {
		t.Errorf("deactivated account: active=%v err=%v", ok, err)
	}
	if ok, err := svc.AccountActive(ctx, 999); err != nil || ok {
		t.Errorf("unknown account: active=%v err=%v", ok, err)
	}
}

func TestService_ChangePassword(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	u, _ := svc.CreateUser(ctx, CreateUserInput{Username: "pharm", Password: "first-password", Role: auth.RolePharmacist})

	if err := svc.ChangePassword(ctx, u.ID, "wrong", "second-password", false); !apperr.Is(err, apperr.KindUnauthorized) {
		t.Errorf("expected unauthorized, got %v", err)
	}
	if err := svc.ChangePassword(ctx, u.ID, "first-password", "second-password", false); err != nil {
		t.Fatal(err)
	}
	if err := svc.ChangePassword(ctx, u.ID, "", "third-password", true); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Login(ctx, "pharm", "third-password"); err != nil {
		t.Errorf("expected login with reset password, got %v", err)
	}
}
