package admin

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
	api.POST("/auth/login", h.Login)
	api.GET("/auth/me", h.Me)
	api.PUT("/users/:id/password", h.ChangePassword)

	adminOnly := auth.RequireRole(auth.RoleAdmin)
	api.GET("/users", h.ListUsers, adminOnly)
	api.POST("/users", h.CreateUser, adminOnly)
	api.GET("/users/:id", h.GetUser, adminOnly)
	api.PUT("/users/:id/active", h.SetActive, adminOnly)
}

func parseID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.Validation("invalid id")
	}
	return id, nil
}

func (h *Handler) Login(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return apperr.Validation("invalid request body")
	}
	res, err := h.svc.Login(c.Request().Context(), req.Username, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, res)
}

// Me returns the account behind the current token. The development
// identity has no stored account and is echoed back from the context.
func (h *Handler) Me(c echo.Context) error {
	ctx := c.Request().Context()
	id := auth.UserIDInt64(ctx)
	if id == 0 {
		roles := auth.RolesFromContext(ctx)
		role := ""
		if len(roles) > 0 {
			role = roles[0]
		}
		return c.JSON(http.StatusOK, &User{Username: auth.UsernameFromContext(ctx), Role: role, IsActive: true})
	}
	u, err := h.svc.GetUser(ctx, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, u)
}

func (h *Handler) CreateUser(c echo.Context) error {
	var in CreateUserInput
	if err := c.Bind(&in); err != nil {
		return apperr.Validation("invalid request body")
	}
	u, err := h.svc.CreateUser(c.Request().Context(), in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, u)
}

func (h *Handler) GetUser(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	u, err := h.svc.GetUser(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, u)
}

func (h *Handler) ListUsers(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListUsers(c.Request().Context(), pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) SetActive(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var body struct {
		IsActive *bool `json:"is_active"`
	}
	if err := c.Bind(&body); err != nil || body.IsActive == nil {
		return apperr.Validation("is_active is required")
	}
	u, err := h.svc.SetActive(c.Request().Context(), id, *body.IsActive)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, u)
}

// ChangePassword lets users change their own password. Admins may reset
// anyone's password without the current one.
func (h *Handler) ChangePassword(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	self := auth.UserIDInt64(ctx) == id
	isAdmin := auth.HasRole(auth.RolesFromContext(ctx), auth.RoleAdmin)
	if !self && !isAdmin {
		return apperr.Forbidden("insufficient permissions")
	}
	var body struct {
		CurrentPassword string `json:"current_password"`
		NewPassword     string `json:"new_password"`
	}
	if err := c.Bind(&body); err != nil {
		return apperr.Validation("invalid request body")
	}
	if err := h.svc.ChangePassword(ctx, id, body.CurrentPassword, body.NewPassword, !self); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"success": true})
}
