package pharmacy

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
	// Catalog reads – prescribers and pharmacy staff
	g := api.Group("/pharmacy")
	read := auth.RequireRole(auth.RolePharmacist, auth.RoleDoctor)
	g.GET("/items", h.ListItems, read)
	g.GET("/items/:id", h.GetItem, read)
	g.GET("/orders", h.ListOrders, read)
	g.GET("/orders/:id", h.GetOrder, read)
	g.POST("/orders", h.CreateOrder, read)

	// Inventory – pharmacist
	ph := auth.RequireRole(auth.RolePharmacist)
	g.POST("/items", h.CreateItem, ph)
	g.PUT("/items/:id", h.UpdateItem, ph)
	g.GET("/items/:id/batches", h.ListBatches, ph)
	g.GET("/low-stock", h.LowStock, ph)
	g.GET("/suppliers", h.ListSuppliers, ph)
	g.POST("/suppliers", h.CreateSupplier, ph)
	g.GET("/suppliers/:id", h.GetSupplier, ph)
	g.GET("/purchase-orders", h.ListPurchaseOrders, ph)
	g.POST("/purchase-orders", h.CreatePurchaseOrder, ph)
	g.GET("/purchase-orders/:id", h.GetPurchaseOrder, ph)
	g.PUT("/purchase-orders/:id/cancel", h.CancelPurchaseOrder, ph)
	g.POST("/grn", h.Receive, ph)
	g.GET("/grn/:id", h.GetGRN, ph)
	g.PUT("/orders/:id/dispense", h.Dispense, ph)
	g.PUT("/orders/:id/cancel", h.CancelOrder, ph)
}

func parseID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.Validation("invalid id")
	}
	return id, nil
}

// -- Item Handlers --

func (h *Handler) CreateItem(c echo.Context) error {
	var it Item
	if err := c.Bind(&it); err != nil {
		return apperr.Validation("invalid request body")
	}
	if err := h.svc.CreateItem(c.Request().Context(), &it); err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, it)
}

func (h *Handler) GetItem(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	it, err := h.svc.GetItem(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, it)
}

func (h *Handler) UpdateItem(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	it, err := h.svc.GetItem(c.Request().Context(), id)
	if err != nil {
		return err
	}
	if err := c.Bind(it); err != nil {
		return apperr.Validation("invalid request body")
	}
	it.ID = id
	if err := h.svc.UpdateItem(c.Request().Context(), it); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, it)
}

func (h *Handler) ListItems(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListItems(c.Request().Context(), c.QueryParam("q"), pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) ListBatches(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	batches, err := h.svc.ListBatches(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"success": true, "data": batches})
}

func (h *Handler) LowStock(c echo.Context) error {
	items, err := h.svc.LowStock(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"success": true, "data": items})
}

// -- Supplier Handlers --

func (h *Handler) CreateSupplier(c echo.Context) error {
	var s Supplier
	if err := c.Bind(&s); err != nil {
		return apperr.Validation("invalid request body")
	}
	if err := h.svc.CreateSupplier(c.Request().Context(), &s); err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, s)
}

func (h *Handler) GetSupplier(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	s, err := h.svc.GetSupplier(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, s)
}

func (h *Handler) ListSuppliers(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListSuppliers(c.Request().Context(), pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

// -- Purchase Order Handlers --

func (h *Handler) CreatePurchaseOrder(c echo.Context) error {
	var in CreatePOInput
	if err := c.Bind(&in); err != nil {
		return apperr.Validation("invalid request body")
	}
	po, err := h.svc.CreatePurchaseOrder(c.Request().Context(), in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, po)
}

func (h *Handler) GetPurchaseOrder(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	po, err := h.svc.GetPurchaseOrder(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, po)
}

func (h *Handler) ListPurchaseOrders(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListPurchaseOrders(c.Request().Context(), c.QueryParam("status"), pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) CancelPurchaseOrder(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	po, err := h.svc.CancelPurchaseOrder(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, po)
}

func (h *Handler) Receive(c echo.Context) error {
	var in ReceiveInput
	if err := c.Bind(&in); err != nil {
		return apperr.Validation("invalid request body")
	}
	g, err := h.svc.Receive(c.Request().Context(), in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, g)
}

func (h *Handler) GetGRN(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	g, err := h.svc.GetGRN(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, g)
}

// -- Pharmacy Order Handlers --

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

func (h *Handler) Dispense(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	o, err := h.svc.Dispense(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, o)
}

func (h *Handler) CancelOrder(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	o, err := h.svc.CancelOrder(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, o)
}
