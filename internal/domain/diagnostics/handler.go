package diagnostics

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/opdemr/opdemr/internal/platform/apperr"
	"github.com/opdemr/opdemr/internal/platform/auth"
	"github.com/opdemr/opdemr/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	// Catalog and order reads
	read := auth.RequireRole(auth.RoleDoctor, auth.RoleLab, auth.RoleBilling, auth.RoleReceptionist)
	api.GET("/lab/tests", h.ListTests, read)
	api.GET("/lab/tests/:id", h.GetTest, read)
	api.GET("/lab/categories", h.Categories, read)
	api.GET("/lab/orders", h.ListOrders, read)
	api.GET("/lab/orders/:id", h.GetOrder, read)
	api.GET("/report-templates", h.ListTemplates, read)
	api.GET("/report-templates/:id", h.GetTemplate, read)

	// Ordering – doctor
	doc := auth.RequireRole(auth.RoleDoctor)
	api.POST("/lab/orders", h.CreateOrder, doc)

	// Lab bench and catalog maintenance – lab staff
	lab := auth.RequireRole(auth.RoleLab)
	api.POST("/lab/tests", h.CreateTest, lab)
	api.PUT("/lab/tests/:id", h.UpdateTest, lab)
	api.PUT("/lab/orders/:id/status", h.UpdateOrderStatus, lab)
	api.PUT("/lab/order-items/:id/result", h.RecordResult, lab)
	api.POST("/report-templates", h.CreateTemplate, lab)
}

func parseID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.Validation("invalid id")
	}
	return id, nil
}

// -- Lab Test Handlers --

func (h *Handler) CreateTest(c echo.Context) error {
	var t LabTest
	if err := c.Bind(&t); err != nil {
		return apperr.Validation("invalid request body")
	}
	if err := h.svc.CreateTest(c.Request().Context(), &t); err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, t)
}

func (h *Handler) GetTest(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	t, err := h.svc.GetTest(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, t)
}

func (h *Handler) UpdateTest(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	t, err := h.svc.GetTest(c.Request().Context(), id)
	if err != nil {
		return err
	}
	if err := c.Bind(t); err != nil {
		return apperr.Validation("invalid request body")
	}
	t.ID = id
	if err := h.svc.UpdateTest(c.Request().Context(), t); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, t)
}

func (h *Handler) ListTests(c echo.Context) error {
	pg := pagination.FromContext(c)
	f := TestFilter{
		Category:    c.QueryParam("category"),
		Subcategory: c.QueryParam("subcategory"),
		ActiveOnly:  c.QueryParam("include_inactive") != "true",
	}
	items, total, err := h.svc.ListTests(c.Request().Context(), f, pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) Categories(c echo.Context) error {
	groups, err := h.svc.Categories(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"success": true, "data": groups})
}

// -- Lab Order Handlers --

func (h *Handler) CreateOrder(c echo.Context) error {
	var in CreateOrderInput
	if err := c.Bind(&in); err != nil {
		return apperr.Validation("invalid request body")
	}
	o, err := h.svc.CreateOrder(c.Request().Context(), in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, o)
}

func (h *Handler) GetOrder(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	o, err := h.svc.GetOrder(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, o)
}

func (h *Handler) ListOrders(c echo.Context) error {
	pid, err := strconv.ParseInt(c.QueryParam("prescription_id"), 10, 64)
	if err != nil || pid <= 0 {
		return apperr.Validation("prescription_id is required")
	}
	orders, err := h.svc.ListOrdersByPrescription(c.Request().Context(), pid)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"success": true, "data": orders})
}

func (h *Handler) UpdateOrderStatus(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var body struct {
		Status string `json:"status"`
	}
	if err := c.Bind(&body); err != nil || body.Status == "" {
		return apperr.Validation("status is required")
	}
	o, err := h.svc.UpdateOrderStatus(c.Request().Context(), id, body.Status)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, o)
}

func (h *Handler) RecordResult(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var body struct {
		ResultValue string `json:"result_value"`
	}
	if err := c.Bind(&body); err != nil {
		return apperr.Validation("invalid request body")
	}
	item, err := h.svc.RecordResult(c.Request().Context(), id, body.ResultValue)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, item)
}

// -- Report Template Handlers --

func (h *Handler) CreateTemplate(c echo.Context) error {
	var t ReportTemplate
	if err := c.Bind(&t); err != nil {
		return apperr.Validation("invalid request body")
	}
	if err := h.svc.CreateTemplate(c.Request().Context(), &t); err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, t)
}

func (h *Handler) GetTemplate(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	t, err := h.svc.GetTemplate(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, t)
}

func (h *Handler) ListTemplates(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListTemplates(c.Request().Context(), pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}
