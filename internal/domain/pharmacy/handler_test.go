package pharmacy

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/opdemr/opdemr/internal/platform/apperr"
)

func jsonRequest(method, body string) *http.Request {
	req := httptest.NewRequest(method, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return req
}

func TestHandler_CreateItem_AutoSKU(t *testing.T) {
	f := newFixture(t)
	h := NewHandler(f.svc)
	e := echo.New()

	rec := httptest.NewRecorder()
	if err := h.CreateItem(e.NewContext(jsonRequest(http.MethodPost, `{"name":"Montelukast 10mg","mrp":"12.5","reorder_level":30}`), rec)); err != nil {
		t.Fatal(err)
	}
	if rec.Code != http.StatusCreated || !strings.Contains(rec.Body.String(), `"sku":"SKU-`) {
		t.Errorf("unexpected response %d %s", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	if err := h.LowStock(e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(rec.Body.String(), "Montelukast") {
		t.Errorf("expected new item without stock in low-stock list, got %s", rec.Body.String())
	}
}

func TestHandler_SuppliersAndPurchaseOrder(t *testing.T) {
	f := newFixture(t)
	h := NewHandler(f.svc)
	e := echo.New()
	it := f.item(t, "Metformin 500mg", "4", 0)

	rec := httptest.NewRecorder()
	if err := h.CreateSupplier(e.NewContext(jsonRequest(http.MethodPost, `{"name":"Zydus Distributors","phone":"9800000000"}`), rec)); err != nil {
		t.Fatal(err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	body := `{"supplier_id":1,"items":[{"item_id":` + itoa(it.ID) + `,"quantity":10,"unit_cost":"2.75"}]}`
	if err := h.CreatePurchaseOrder(e.NewContext(jsonRequest(http.MethodPost, body), rec)); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(rec.Body.String(), `"total":"27.5"`) {
		t.Errorf("unexpected po body %s", rec.Body.String())
	}

	rec = httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/?status=ordered", nil), rec)
	if err := h.ListPurchaseOrders(c); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(rec.Body.String(), `"total":1`) {
		t.Errorf("expected one ordered po, got %s", rec.Body.String())
	}
}

func TestHandler_ListOrders_RequiresPrescription(t *testing.T) {
	f := newFixture(t)
	h := NewHandler(f.svc)
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/api/pharmacy/orders", nil), httptest.NewRecorder())
	if err := h.ListOrders(c); !apperr.Is(err, apperr.KindValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestHandler_Dispense_NotFound(t *testing.T) {
	f := newFixture(t)
	h := NewHandler(f.svc)
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodPut, "/", nil), httptest.NewRecorder())
	c.SetParamNames("id")
	c.SetParamValues("42")
	if err := h.Dispense(c); apperr.Status(err) != http.StatusNotFound {
		t.Errorf("expected 404, got %v", err)
	}
}

func itoa(n int64) string {
	return strconv.FormatInt(n, 10)
}
