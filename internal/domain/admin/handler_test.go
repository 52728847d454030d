package admin

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/opdemr/opdemr/internal/platform/apperr"
	"github.com/opdemr/opdemr/internal/platform/auth"
)

func jsonRequest(method, body string) *http.Request {
	req := httptest.NewRequest(method, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return req
}

func TestHandler_Login(t *testing.T) {
	svc, _ := newTestService()
	_, _ = svc.CreateUser(context.Background(), CreateUserInput{Username: "admin", Password: "admin-password", Role: auth.RoleAdmin})
	h := NewHandler(svc)
	e := echo.New()

	rec := httptest.NewRecorder()
	c := e.NewContext(jsonRequest(http.MethodPost, `{"username":"admin","password":"admin-password"}`), rec)
	if err := h.Login(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body["success"] != true || body["token"] == "" {
		t.Errorf("unexpected body %s", rec.Body.String())
	}
	if strings.Contains(rec.Body.String(), "password_hash") {
		t.Error("password hash leaked in login response")
	}

	c = e.NewContext(jsonRequest(http.MethodPost, `{"username":"admin","password":"nope"}`), httptest.NewRecorder())
	if err := h.Login(c); apperr.Status(err) != http.StatusUnauthorized {
		t.Errorf("expected 401, got %v", err)
	}
	c = e.NewContext(jsonRequest(http.MethodPost, `{"username":"admin"}`), httptest.NewRecorder())
	if err := h.Login(c); apperr.Status(err) != http.StatusBadRequest {
		t.Errorf("expected 400, got %v", err)
	}
}

func TestHandler_Me_DevIdentity(t *testing.T) {
	svc, _ := newTestService()
	h := NewHandler(svc)
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(auth.WithIdentity(req.Context(), "0", "dev-user", []string{auth.RoleAdmin}))
	rec := httptest.NewRecorder()
	if err := h.Me(e.NewContext(req, rec)); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(rec.Body.String(), `"username":"dev-user"`) {
		t.Errorf("unexpected body %s", rec.Body.String())
	}
}

func TestHandler_ChangePassword_Forbidden(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	_, _ = svc.CreateUser(ctx, CreateUserInput{Username: "doc1", Password: "password-1", Role: auth.RoleDoctor})
	_, _ = svc.CreateUser(ctx, CreateUserInput{Username: "doc2", Password: "password-2", Role: auth.RoleDoctor})
	h := NewHandler(svc)
	e := echo.New()

	req := jsonRequest(http.MethodPut, `{"current_password":"password-1","new_password":"password-9"}`)
	req = req.WithContext(auth.WithIdentity(req.Context(), "1", "doc1", []string{auth.RoleDoctor}))
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetParamNames("id")
	c.SetParamValues("2")
	if err := h.ChangePassword(c); !apperr.Is(err, apperr.KindForbidden) {
		t.Errorf("expected forbidden, got %v", err)
	}
}

func TestHandler_SetActive_RequiresFlag(t *testing.T) {
	svc, _ := newTestService()
	h := NewHandler(svc)
	e := echo.New()
	c := e.NewContext(jsonRequest(http.MethodPut, `{}`), httptest.NewRecorder())
	c.SetParamNames("id")
	c.SetParamValues("1")
	if err := h.SetActive(c); !apperr.Is(err, apperr.KindValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
}
