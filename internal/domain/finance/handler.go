package finance

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/klinik/klinik/internal/platform/auth"
	"github.com/klinik/klinik/pkg/dateutil"
	"github.com/klinik/klinik/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/transactions", auth.RequireRole(auth.RoleCashier))
	g.POST("", h.Create)
	g.GET("", h.List)
	g.GET("/summary", h.Summary)
	g.GET("/:id", h.Get)
	g.PUT("/:id/status", h.UpdateStatus)
}

func httpError(err error) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrInvalidStatus), errors.Is(err, ErrConflict):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, ErrValidation):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}

func (h *Handler) Create(c echo.Context) error {
	var t Transaction
	if err := c.Bind(&t); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	ctx := c.Request().Context()
	if err := h.svc.Create(ctx, &t, auth.UserIDFromContext(ctx)); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, t)
}

func (h *Handler) Get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	t, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, t)
}

func validDay(name, v string) error {
	if v == "" {
		return nil
	}
	if _, err := dateutil.ParseDateInput(v); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid "+name)
	}
	return nil
}

func filterFromQuery(c echo.Context) (Filter, error) {
	f := Filter{
		StartDate: c.QueryParam("start"),
		EndDate:   c.QueryParam("end"),
		Type:      Type(c.QueryParam("type")),
		Category:  Category(c.QueryParam("category")),
		Status:    Status(c.QueryParam("status")),
	}
	if err := validDay("start", f.StartDate); err != nil {
		return f, err
	}
	if err := validDay("end", f.EndDate); err != nil {
		return f, err
	}
	if raw := c.QueryParam("patient_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return f, echo.NewHTTPError(http.StatusBadRequest, "invalid patient_id")
		}
		f.PatientID = &id
	}
	for name, dst := range map[string]**float64{"min_amount": &f.MinAmount, "max_amount": &f.MaxAmount} {
		raw := c.QueryParam(name)
		if raw == "" {
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return f, echo.NewHTTPError(http.StatusBadRequest, "invalid "+name)
		}
		*dst = &v
	}
	return f, nil
}

func (h *Handler) List(c echo.Context) error {
	f, err := filterFromQuery(c)
	if err != nil {
		return err
	}
	items, err := h.svc.List(c.Request().Context(), f)
	if err != nil {
		return httpError(err)
	}
	pg := pagination.FromContext(c)
	return c.JSON(http.StatusOK, pagination.NewResponse(pagination.Page(items, pg), len(items), pg))
}

type statusRequest struct {
	Status Status `json:"status"`
}

func (h *Handler) UpdateStatus(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req statusRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	t, err := h.svc.UpdateStatus(c.Request().Context(), id, req.Status)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, t)
}

// Summary totals a date range; with month=YYYY-MM it returns the month view
// including the transaction count.
func (h *Handler) Summary(c echo.Context) error {
	ctx := c.Request().Context()
	if m := c.QueryParam("month"); m != "" {
		year, month, err := ParseMonth(m)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		s, err := h.svc.Month(ctx, year, month)
		if err != nil {
			return httpError(err)
		}
		return c.JSON(http.StatusOK, s)
	}
	start, end := c.QueryParam("start"), c.QueryParam("end")
	if err := validDay("start", start); err != nil {
		return err
	}
	if err := validDay("end", end); err != nil {
		return err
	}
	s, err := h.svc.Summary(ctx, start, end)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, s)
}
