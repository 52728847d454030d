package identity

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
	// Patient reads – every clinical and front desk role
	read := auth.RequireRole(auth.RoleReceptionist, auth.RoleDoctor, auth.RoleBilling, auth.RoleLab, auth.RolePharmacist)
	api.GET("/patients", h.SearchPatients, read)
	api.GET("/patients/:id", h.GetPatient, read)
	api.GET("/patients/by-patient-id/:patientId", h.GetPatientByPatientID, read)
	api.GET("/doctors", h.ListDoctors, read)
	api.GET("/doctors/:id", h.GetDoctor, read)

	// Registration – front desk
	reg := auth.RequireRole(auth.RoleReceptionist)
	api.POST("/patients", h.CreatePatient, reg)
	api.PUT("/patients/:id", h.UpdatePatient, reg)

	// Deletes and doctor master data – admin only
	admin := auth.RequireRole(auth.RoleAdmin)
	api.DELETE("/patients/:id", h.DeletePatient, admin)
	api.POST("/doctors", h.CreateDoctor, admin)
	api.PUT("/doctors/:id", h.UpdateDoctor, admin)
}

func parseID(c echo.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.Validation("invalid %s", name)
	}
	return id, nil
}

// -- Patient Handlers --

func (h *Handler) CreatePatient(c echo.Context) error {
	var p Patient
	if err := c.Bind(&p); err != nil {
		return apperr.Validation("invalid request body")
	}
	if err := h.svc.CreatePatient(c.Request().Context(), &p); err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, p)
}

func (h *Handler) GetPatient(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	p, err := h.svc.GetPatient(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) GetPatientByPatientID(c echo.Context) error {
	pid, err := parseID(c, "patientId")
	if err != nil {
		return err
	}
	p, err := h.svc.GetPatientByPatientID(c.Request().Context(), pid)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) UpdatePatient(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	// Fields omitted from the body keep their stored values.
	p, err := h.svc.GetPatient(c.Request().Context(), id)
	if err != nil {
		return err
	}
	if err := c.Bind(p); err != nil {
		return apperr.Validation("invalid request body")
	}
	p.ID = id
	if err := h.svc.UpdatePatient(c.Request().Context(), p); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) DeletePatient(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	if err := h.svc.DeletePatient(c.Request().Context(), id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) SearchPatients(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.SearchPatients(c.Request().Context(), c.QueryParam("q"), pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

// -- Doctor Handlers --

func (h *Handler) CreateDoctor(c echo.Context) error {
	var d Doctor
	if err := c.Bind(&d); err != nil {
		return apperr.Validation("invalid request body")
	}
	if err := h.svc.CreateDoctor(c.Request().Context(), &d); err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, d)
}

func (h *Handler) GetDoctor(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	d, err := h.svc.GetDoctor(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, d)
}

func (h *Handler) UpdateDoctor(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	d, err := h.svc.GetDoctor(c.Request().Context(), id)
	if err != nil {
		return err
	}
	if err := c.Bind(d); err != nil {
		return apperr.Validation("invalid request body")
	}
	d.ID = id
	if err := h.svc.UpdateDoctor(c.Request().Context(), d); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, d)
}

func (h *Handler) ListDoctors(c echo.Context) error {
	pg := pagination.FromContext(c)
	f := DoctorFilter{
		Specialization: c.QueryParam("specialization"),
		ActiveOnly:     c.QueryParam("active") == "true",
	}
	items, total, err := h.svc.ListDoctors(c.Request().Context(), f, pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}
