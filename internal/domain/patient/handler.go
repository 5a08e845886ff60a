package patient

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/klinik/klinik/internal/platform/auth"
	"github.com/klinik/klinik/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	read := api.Group("/patients", auth.RequireRole(auth.RoleRegistrar, auth.RoleNurse, auth.RoleDoctor, auth.RoleCashier))
	read.GET("", h.List)
	read.GET("/lookup", h.GetByMRN)
	read.GET("/diagnoses", h.Diagnoses)
	read.GET("/:id", h.Get)

	write := api.Group("/patients", auth.RequireRole(auth.RoleRegistrar, auth.RoleNurse))
	write.POST("", h.Register)
	write.PUT("/:id", h.Update)
}

func httpError(err error) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrImmutableField), errors.Is(err, ErrDuplicateMRN):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, ErrValidation):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}

func (h *Handler) Register(c echo.Context) error {
	var p Patient
	if err := c.Bind(&p); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.Register(c.Request().Context(), &p); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, p)
}

func (h *Handler) Get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	p, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, p)
}

// GetByMRN takes the number as a query parameter because it contains slashes.
func (h *Handler) GetByMRN(c echo.Context) error {
	mrn := c.QueryParam("mrn")
	if mrn == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "mrn is required")
	}
	p, err := h.svc.GetByMRN(c.Request().Context(), mrn)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) Update(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var p Patient
	if err := c.Bind(&p); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	p.ID = id
	if err := h.svc.Update(c.Request().Context(), &p); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, p)
}

func filterFromQuery(c echo.Context) (Filter, error) {
	f := Filter{
		Search:            c.QueryParam("search"),
		Gender:            c.QueryParam("gender"),
		Diagnosis:         c.QueryParam("diagnosis"),
		TreatmentCategory: TreatmentCategory(c.QueryParam("category")),
	}
	for name, dst := range map[string]**int{"age_min": &f.AgeMin, "age_max": &f.AgeMax} {
		raw := c.QueryParam(name)
		if raw == "" {
			continue
		}
		v, err := strconv.Atoi(raw)
		if err != nil {
			return f, echo.NewHTTPError(http.StatusBadRequest, "invalid "+name)
		}
		*dst = &v
	}
	return f, nil
}

// List serves the registry. With group=diagnosis the filtered patients are
// returned bucketed by diagnosis instead of paged.
func (h *Handler) List(c echo.Context) error {
	f, err := filterFromQuery(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()

	if c.QueryParam("group") == "diagnosis" {
		groups, err := h.svc.GroupByDiagnosis(ctx, f)
		if err != nil {
			return httpError(err)
		}
		return c.JSON(http.StatusOK, groups)
	}

	pg := pagination.FromContext(c)
	items, total, err := h.svc.List(ctx, ListParams{
		Filter: f,
		SortBy: c.QueryParam("sort"),
		Order:  c.QueryParam("order"),
		Limit:  pg.Limit,
		Offset: pg.Offset,
	})
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg))
}

func (h *Handler) Diagnoses(c echo.Context) error {
	items, err := h.svc.Diagnoses(c.Request().Context())
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, items)
}
