package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func TestAuthSkipper(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"/health", true},
		{"/health/db", true},
		{"/metrics", true},
		{"/api/auth/login", true},
		{"/api/auth/me", false},
		{"/api/patients", false},
	}
	e := echo.New()
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			c := e.NewContext(req, httptest.NewRecorder())
			c.SetPath(tt.path)
			if got := AuthSkipper(c); got != tt.want {
				t.Errorf("AuthSkipper(%s) = %v, want %v", tt.path, got, tt.want)
			}
		})
	}
}

func TestJWTMiddleware_SkipsPublicPaths(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetPath("/api/auth/login")

	mw := JWTMiddleware(JWTConfig{Tokens: newTestIssuer(), Skipper: AuthSkipper})
	if err := mw(okHandler)(c); err != nil {
		t.Fatalf("expected login to skip auth, got %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestJWTMiddleware_DoesNotSkipProtectedPaths(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/bills", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetPath("/api/bills")

	mw := JWTMiddleware(JWTConfig{Tokens: newTestIssuer(), Skipper: AuthSkipper})
	expectStatus(t, mw(okHandler)(c), http.StatusUnauthorized)
}
