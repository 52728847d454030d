package reference

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/opdemr/opdemr/internal/platform/apperr"
)

func TestHandler_CreateAndSearch(t *testing.T) {
	f := newFixture(t)
	h := NewHandler(f.svc, f.loader)
	e := echo.New()

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"dose_value":"0 - 0 - 1"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	if err := h.Create(e.NewContext(req, rec)); err != nil {
		t.Fatal(err)
	}
	if rec.Code != http.StatusCreated || !strings.Contains(rec.Body.String(), `"dose_value":"0-0-1"`) {
		t.Fatalf("unexpected response %d %s", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	if err := h.Search(e.NewContext(httptest.NewRequest(http.MethodGet, "/?q=0-0", nil), rec)); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(rec.Body.String(), `"description_en":"Once daily at night"`) {
		t.Errorf("search missed created pattern: %s", rec.Body.String())
	}

	err := h.Search(e.NewContext(httptest.NewRequest(http.MethodGet, "/?limit=many", nil), httptest.NewRecorder()))
	if apperr.Status(err) != http.StatusBadRequest {
		t.Errorf("expected 400 for bad limit, got %v", err)
	}
}

func TestHandler_LoadThenFix(t *testing.T) {
	f := newFixture(t)
	h := NewHandler(f.svc, f.loader)
	e := echo.New()

	rec := httptest.NewRecorder()
	if err := h.Load(e.NewContext(httptest.NewRequest(http.MethodPost, "/", nil), rec)); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(rec.Body.String(), `"pharmacy_items":8`) {
		t.Errorf("unexpected load report %s", rec.Body.String())
	}

	rec = httptest.NewRecorder()
	if err := h.Fix(e.NewContext(httptest.NewRequest(http.MethodPost, "/", nil), rec)); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(rec.Body.String(), `"merged":0`) {
		t.Errorf("seeded data should need no fixing: %s", rec.Body.String())
	}
}
