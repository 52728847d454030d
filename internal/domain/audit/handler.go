package audit

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
	adminOnly := auth.RequireRole(auth.RoleAdmin)
	api.GET("/audit-trail", h.List, adminOnly)
}

func (h *Handler) List(c echo.Context) error {
	pg := pagination.FromContext(c)
	f := Filter{
		TableName: c.QueryParam("table"),
		ChangedBy: c.QueryParam("changed_by"),
	}
	if v := c.QueryParam("record_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return apperr.Validation("invalid record_id")
		}
		f.RecordID = id
	}
	entries, total, err := h.svc.List(c.Request().Context(), f, pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(entries, total, pg.Limit, pg.Offset))
}
