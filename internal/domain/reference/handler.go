package reference

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/opdemr/opdemr/internal/platform/apperr"
	"github.com/opdemr/opdemr/internal/platform/auth"
)

type Handler struct {
	svc    *Service
	loader *Loader
}

func NewHandler(svc *Service, loader *Loader) *Handler {
	return &Handler{svc: svc, loader: loader}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	// Prescribing lookups
	read := api.Group("/dose-patterns", auth.RequireRole(auth.RoleDoctor, auth.RolePharmacist))
	read.GET("", h.Search)
	read.POST("", h.Create)

	// Reference data maintenance – admin only
	adm := api.Group("/reference", auth.RequireRole(auth.RoleAdmin))
	adm.POST("/load", h.Load)
	adm.POST("/dose-patterns/fix", h.Fix)
}

func (h *Handler) Search(c echo.Context) error {
	limit := 0
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return apperr.Validation("invalid limit")
		}
		limit = n
	}
	out, err := h.svc.Search(c.Request().Context(), c.QueryParam("q"), limit)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, out)
}

func (h *Handler) Create(c echo.Context) error {
	var p DosePattern
	if err := c.Bind(&p); err != nil {
		return apperr.Validation("invalid request body")
	}
	if err := h.svc.Create(c.Request().Context(), &p); err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, p)
}

func (h *Handler) Load(c echo.Context) error {
	rep, err := h.loader.Load(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, rep)
}

func (h *Handler) Fix(c echo.Context) error {
	rep, err := h.svc.FixDosePatterns(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, rep)
}
