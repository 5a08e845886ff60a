package masterdata

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/klinik/klinik/internal/platform/auth"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts the master data. Every signed-in role may read it;
// admins manage doctors and doctors manage diagnoses and formulas.
func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/doctors", h.ListDoctors)
	api.GET("/doctors/on-duty", h.OnDuty)
	api.GET("/doctors/:id", h.GetDoctor)
	api.GET("/diagnosis-categories", h.ListDiagnoses)
	api.GET("/diagnosis-categories/lookup", h.LookupDiagnosis)
	api.GET("/diagnosis-categories/:id", h.GetDiagnosis)
	api.GET("/medicine-formulas", h.ListFormulas)
	api.GET("/medicine-formulas/:id", h.GetFormula)

	admin := api.Group("/doctors", auth.RequireRole(auth.RoleAdmin))
	admin.POST("", h.CreateDoctor)
	admin.PUT("/:id", h.UpdateDoctor)
	admin.PUT("/:id/active", h.SetDoctorActive)

	diag := api.Group("/diagnosis-categories", auth.RequireRole(auth.RoleDoctor))
	diag.POST("", h.CreateDiagnosis)
	diag.PUT("/:id", h.UpdateDiagnosis)
	diag.DELETE("/:id", h.DeleteDiagnosis)

	formulas := api.Group("/medicine-formulas", auth.RequireRole(auth.RoleDoctor))
	formulas.POST("", h.CreateFormula)
	formulas.PUT("/:id", h.UpdateFormula)
	formulas.DELETE("/:id", h.DeleteFormula)
}

func httpError(err error) error {
	switch {
	case errors.Is(err, ErrDoctorNotFound), errors.Is(err, ErrDiagnosisNotFound), errors.Is(err, ErrFormulaNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrDuplicate):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, ErrValidation):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}

func idParam(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	return id, nil
}

func (h *Handler) CreateDoctor(c echo.Context) error {
	var d Doctor
	if err := c.Bind(&d); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.CreateDoctor(c.Request().Context(), &d); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, d)
}

func (h *Handler) GetDoctor(c echo.Context) error {
	id, err := idParam(c)
	if err != nil {
		return err
	}
	d, err := h.svc.GetDoctor(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, d)
}

func (h *Handler) ListDoctors(c echo.Context) error {
	items, err := h.svc.ListDoctors(c.Request().Context(), c.QueryParam("active") == "true")
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, items)
}

// OnDuty takes an RFC 3339 at, defaulting to now.
func (h *Handler) OnDuty(c echo.Context) error {
	at := h.svc.now()
	if v := c.QueryParam("at"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid at, want RFC 3339")
		}
		at = t
	}
	items, err := h.svc.OnDuty(c.Request().Context(), at)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) UpdateDoctor(c echo.Context) error {
	id, err := idParam(c)
	if err != nil {
		return err
	}
	var d Doctor
	if err := c.Bind(&d); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	d.ID = id
	if err := h.svc.UpdateDoctor(c.Request().Context(), &d); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, d)
}

type activeRequest struct {
	IsActive *bool `json:"is_active"`
}

func (h *Handler) SetDoctorActive(c echo.Context) error {
	id, err := idParam(c)
	if err != nil {
		return err
	}
	var req activeRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.IsActive == nil {
		return echo.NewHTTPError(http.StatusBadRequest, "is_active is required")
	}
	d, err := h.svc.SetDoctorActive(c.Request().Context(), id, *req.IsActive)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, d)
}

func (h *Handler) CreateDiagnosis(c echo.Context) error {
	var d DiagnosisCategory
	if err := c.Bind(&d); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.CreateDiagnosis(c.Request().Context(), &d); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, d)
}

func (h *Handler) GetDiagnosis(c echo.Context) error {
	id, err := idParam(c)
	if err != nil {
		return err
	}
	d, err := h.svc.GetDiagnosis(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, d)
}

func (h *Handler) LookupDiagnosis(c echo.Context) error {
	name := c.QueryParam("name")
	if name == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "name is required")
	}
	d, err := h.svc.DiagnosisByName(c.Request().Context(), name)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, d)
}

func (h *Handler) ListDiagnoses(c echo.Context) error {
	items, err := h.svc.ListDiagnoses(c.Request().Context(), c.QueryParam("search"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) UpdateDiagnosis(c echo.Context) error {
	id, err := idParam(c)
	if err != nil {
		return err
	}
	var d DiagnosisCategory
	if err := c.Bind(&d); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	d.ID = id
	if err := h.svc.UpdateDiagnosis(c.Request().Context(), &d); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, d)
}

func (h *Handler) DeleteDiagnosis(c echo.Context) error {
	id, err := idParam(c)
	if err != nil {
		return err
	}
	if err := h.svc.DeleteDiagnosis(c.Request().Context(), id); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) CreateFormula(c echo.Context) error {
	var f MedicineFormula
	if err := c.Bind(&f); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	ctx := c.Request().Context()
	if err := h.svc.CreateFormula(ctx, &f, auth.UserIDFromContext(ctx)); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, f)
}

func (h *Handler) GetFormula(c echo.Context) error {
	id, err := idParam(c)
	if err != nil {
		return err
	}
	f, err := h.svc.GetFormula(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, f)
}

func (h *Handler) ListFormulas(c echo.Context) error {
	items, err := h.svc.ListFormulas(c.Request().Context(), c.QueryParam("diagnosis"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) UpdateFormula(c echo.Context) error {
	id, err := idParam(c)
	if err != nil {
		return err
	}
	var f MedicineFormula
	if err := c.Bind(&f); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	f.ID = id
	if err := h.svc.UpdateFormula(c.Request().Context(), &f); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, f)
}

func (h *Handler) DeleteFormula(c echo.Context) error {
	id, err := idParam(c)
	if err != nil {
		return err
	}
	if err := h.svc.DeleteFormula(c.Request().Context(), id); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}
