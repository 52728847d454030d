package billing

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/opdemr/opdemr/internal/platform/apperr"
	"github.com/opdemr/opdemr/internal/platform/auth"
	"github.com/opdemr/opdemr/pkg/dates"
	"github.com/opdemr/opdemr/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	// Front desk and billing counter
	desk := auth.RequireRole(auth.RoleBilling, auth.RoleReceptionist)
	api.GET("/bills", h.ListBills, desk)
	api.GET("/bills/:id", h.GetBill, desk)
	api.POST("/bills/consultation", h.CreateConsultationBill, desk)
	api.PUT("/bills/:id/payment", h.RecordPayment, desk)
	api.PUT("/bills/:id/cancel", h.CancelBill, desk)

	// Lab billing
	lab := api.Group("/lab-billing", auth.RequireRole(auth.RoleBilling, auth.RoleLab))
	lab.GET("/prescriptions/unbilled/:priority", h.ListUnbilled)
	lab.POST("/bills", h.CreateLabBill)
	lab.PUT("/bills/:id/payment", h.RecordPayment)

	// Doctor worklist
	doc := auth.RequireRole(auth.RoleDoctor)
	api.GET("/doctor/worklist", h.Worklist, doc)

	// Reports
	rep := auth.RequireRole(auth.RoleBilling)
	api.GET("/reports/revenue", h.Revenue, rep)
}

func parseID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.Validation("invalid id")
	}
	return id, nil
}

func queryDate(c echo.Context, name string) (*dates.Date, error) {
	v := c.QueryParam(name)
	if v == "" {
		return nil, nil
	}
	d, err := dates.Parse(v)
	if err != nil {
		return nil, apperr.Validation("invalid %s: %s", name, v)
	}
	return &d, nil
}

func (h *Handler) CreateConsultationBill(c echo.Context) error {
	var in ConsultationBillInput
	if err := c.Bind(&in); err != nil {
		return apperr.Validation("invalid request body")
	}
	b, err := h.svc.CreateConsultationBill(c.Request().Context(), in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, b)
}

func (h *Handler) GetBill(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	b, err := h.svc.GetBill(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, b)
}

func (h *Handler) ListBills(c echo.Context) error {
	pg := pagination.FromContext(c)
	f := Filter{Status: c.QueryParam("status")}
	if v := c.QueryParam("patient_id"); v != "" {
		pid, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return apperr.Validation("invalid patient_id")
		}
		f.PatientID = pid
	}
	var err error
	if f.From, err = queryDate(c, "from"); err != nil {
		return err
	}
	if f.To, err = queryDate(c, "to"); err != nil {
		return err
	}
	items, total, err := h.svc.ListBills(c.Request().Context(), f, pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) RecordPayment(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var body struct {
		PaymentMethod string `json:"payment_method"`
	}
	if err := c.Bind(&body); err != nil {
		return apperr.Validation("invalid request body")
	}
	b, err := h.svc.RecordPayment(c.Request().Context(), id, body.PaymentMethod)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"success": true, "data": b})
}

func (h *Handler) CancelBill(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	b, err := h.svc.CancelBill(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, b)
}

func (h *Handler) ListUnbilled(c echo.Context) error {
	rows, err := h.svc.ListUnbilledPrescriptions(c.Request().Context(), c.Param("priority"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"success": true, "data": rows})
}

func (h *Handler) CreateLabBill(c echo.Context) error {
	var in LabBillInput
	if err := c.Bind(&in); err != nil {
		return apperr.Validation("invalid request body")
	}
	b, err := h.svc.CreateLabBill(c.Request().Context(), in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, map[string]any{"success": true, "data": b})
}

func (h *Handler) Worklist(c echo.Context) error {
	var f WorklistFilter
	if v := c.QueryParam("doctor_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return apperr.Validation("invalid doctor_id")
		}
		f.DoctorID = id
	}
	var err error
	if f.Date, err = queryDate(c, "date"); err != nil {
		return err
	}
	rows, err := h.svc.AwaitingConsultation(c.Request().Context(), f)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"success": true, "data": rows})
}

func (h *Handler) Revenue(c echo.Context) error {
	from, err := queryDate(c, "from")
	if err != nil {
		return err
	}
	to, err := queryDate(c, "to")
	if err != nil {
		return err
	}
	today := dates.Today()
	if to == nil {
		to = &today
	}
	if from == nil {
		start := to.AddDays(-30)
		from = &start
	}
	r, err := h.svc.RevenueSummary(c.Request().Context(), *from, *to)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"success": true, "data": r})
}
