package clinical

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
	// Read endpoints – everyone who works a prescription
	read := auth.RequireRole(auth.RoleDoctor, auth.RoleReceptionist, auth.RoleLab, auth.RolePharmacist, auth.RoleBilling)
	api.GET("/prescriptions", h.ListPrescriptions, read)
	api.GET("/prescriptions/:id", h.GetPrescription, read)

	// Write endpoints – doctor
	doc := auth.RequireRole(auth.RoleDoctor)
	api.POST("/prescriptions", h.CreatePrescription, doc)
	api.POST("/prescriptions/:id/medicines", h.AddMedicine, doc)
	api.PUT("/prescriptions/:id/cancel", h.Cancel, doc)
	api.GET("/clinical-notes", h.ListNotes, doc)
	api.POST("/clinical-notes", h.CreateNote, doc)
	api.GET("/clinical-notes/:id", h.GetNote, doc)
	api.PUT("/clinical-notes/:id", h.UpdateNote, doc)

	pharm := auth.RequireRole(auth.RolePharmacist)
	api.PUT("/prescriptions/:id/fulfil", h.Fulfil, pharm)
}

func parseInt64(v, name string) (int64, error) {
	id, err := strconv.ParseInt(v, 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.Validation("invalid %s", name)
	}
	return id, nil
}

// -- Prescription Handlers --

func (h *Handler) CreatePrescription(c echo.Context) error {
	var p Prescription
	if err := c.Bind(&p); err != nil {
		return apperr.Validation("invalid request body")
	}
	if err := h.svc.CreatePrescription(c.Request().Context(), &p); err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, p)
}

func (h *Handler) GetPrescription(c echo.Context) error {
	id, err := parseInt64(c.Param("id"), "id")
	if err != nil {
		return err
	}
	p, err := h.svc.GetPrescription(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) ListPrescriptions(c echo.Context) error {
	pid, err := parseInt64(c.QueryParam("patient_id"), "patient_id")
	if err != nil {
		return err
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListPrescriptionsByPatient(c.Request().Context(), pid, pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) AddMedicine(c echo.Context) error {
	id, err := parseInt64(c.Param("id"), "id")
	if err != nil {
		return err
	}
	var m Medicine
	if err := c.Bind(&m); err != nil {
		return apperr.Validation("invalid request body")
	}
	if err := h.svc.AddMedicine(c.Request().Context(), id, &m); err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, m)
}

func (h *Handler) Fulfil(c echo.Context) error {
	id, err := parseInt64(c.Param("id"), "id")
	if err != nil {
		return err
	}
	p, err := h.svc.MarkFulfilled(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) Cancel(c echo.Context) error {
	id, err := parseInt64(c.Param("id"), "id")
	if err != nil {
		return err
	}
	p, err := h.svc.Cancel(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, p)
}

// -- Clinical Note Handlers --

func (h *Handler) CreateNote(c echo.Context) error {
	var n ClinicalNote
	if err := c.Bind(&n); err != nil {
		return apperr.Validation("invalid request body")
	}
	if err := h.svc.CreateNote(c.Request().Context(), &n); err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, n)
}

func (h *Handler) GetNote(c echo.Context) error {
	id, err := parseInt64(c.Param("id"), "id")
	if err != nil {
		return err
	}
	n, err := h.svc.GetNote(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, n)
}

func (h *Handler) UpdateNote(c echo.Context) error {
	id, err := parseInt64(c.Param("id"), "id")
	if err != nil {
		return err
	}
	var n ClinicalNote
	if err := c.Bind(&n); err != nil {
		return apperr.Validation("invalid request body")
	}
	n.ID = id
	if err := h.svc.UpdateNote(c.Request().Context(), &n); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, n)
}

func (h *Handler) ListNotes(c echo.Context) error {
	pid, err := parseInt64(c.QueryParam("patient_id"), "patient_id")
	if err != nil {
		return err
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListNotesByPatient(c.Request().Context(), pid, pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}
