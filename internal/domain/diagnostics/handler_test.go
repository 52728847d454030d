package diagnostics

import (
	"net/http"
	"net/http/httptest"
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

func TestHandler_CreateTestAndOrder(t *testing.T) {
	h := NewHandler(newTestService())
	e := echo.New()

	rec := httptest.NewRecorder()
	body := `{"test_code":"cbc","name":"Complete Blood Count","category":"Hematology","price":"500"}`
	if err := h.CreateTest(e.NewContext(jsonRequest(http.MethodPost, body), rec)); err != nil {
		t.Fatal(err)
	}
	if rec.Code != http.StatusCreated || !strings.Contains(rec.Body.String(), `"test_code":"CBC"`) {
		t.Fatalf("unexpected response %d %s", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	if err := h.CreateOrder(e.NewContext(jsonRequest(http.MethodPost, `{"prescription_id":1,"test_ids":[1]}`), rec)); err != nil {
		t.Fatal(err)
	}
	if rec.Code != http.StatusCreated || !strings.Contains(rec.Body.String(), `"sample_id":"SMP-`) {
		t.Errorf("unexpected response %d %s", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	c := e.NewContext(jsonRequest(http.MethodPut, `{"result_value":"13.2 g/dL"}`), rec)
	c.SetParamNames("id")
	c.SetParamValues("1")
	if err := h.RecordResult(c); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(rec.Body.String(), `"result_status":"completed"`) {
		t.Errorf("expected completed result, got %s", rec.Body.String())
	}
}

func TestHandler_UpdateTest_KeepsOmittedFields(t *testing.T) {
	svc := newTestService()
	h := NewHandler(svc)
	e := echo.New()
	mustCreateTest(t, svc, "TSH", 400)

	rec := httptest.NewRecorder()
	c := e.NewContext(jsonRequest(http.MethodPut, `{"price":"450"}`), rec)
	c.SetParamNames("id")
	c.SetParamValues("1")
	if err := h.UpdateTest(c); err != nil {
		t.Fatal(err)
	}
	body := rec.Body.String()
	if !strings.Contains(body, `"price":"450"`) || !strings.Contains(body, `"test_code":"TSH"`) || !strings.Contains(body, `"is_active":true`) {
		t.Errorf("unexpected body %s", body)
	}
}

func TestHandler_ListOrders_RequiresPrescription(t *testing.T) {
	h := NewHandler(newTestService())
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/api/lab/orders", nil), httptest.NewRecorder())
	if err := h.ListOrders(c); !apperr.Is(err, apperr.KindValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestHandler_UpdateOrderStatus_MissingStatus(t *testing.T) {
	h := NewHandler(newTestService())
	e := echo.New()
	c := e.NewContext(jsonRequest(http.MethodPut, `{}`), httptest.NewRecorder())
	c.SetParamNames("id")
	c.SetParamValues("1")
	if err := h.UpdateOrderStatus(c); apperr.Status(err) != http.StatusBadRequest {
		t.Errorf("expected 400, got %v", err)
	}
}

func TestHandler_GetOrder_NotFound(t *testing.T) {
	h := NewHandler(newTestService())
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	c.SetParamNames("id")
	c.SetParamValues("9")
	if err := h.GetOrder(c); apperr.Status(err) != http.StatusNotFound {
		t.Errorf("expected 404, got %v", err)
	}
}
