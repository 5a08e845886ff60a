package reporting

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/klinik/klinik/internal/domain/finance"
	"github.com/klinik/klinik/internal/platform/auth"
	"github.com/klinik/klinik/pkg/dateutil"
)

const mimeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Handler serves the report endpoints.
type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/reports", auth.RequireRole(auth.RoleDoctor, auth.RoleCashier))
	g.GET("/daily", h.Daily)
	g.GET("/daily/export", h.ExportDaily)
	g.GET("/monthly", h.Monthly)
	g.GET("/monthly/export", h.ExportMonthly)
	g.GET("/demographics", h.Demographics)
}

// dayParam reads ?date=, defaulting to today in the clinic timezone.
func (h *Handler) dayParam(c echo.Context) (string, error) {
	day := c.QueryParam("date")
	if day == "" {
		return h.svc.localDay(h.svc.now()), nil
	}
	if _, err := dateutil.ParseDateInput(day); err != nil {
		return "", echo.NewHTTPError(http.StatusBadRequest, "date must be YYYY-MM-DD")
	}
	return day, nil
}

func (h *Handler) monthParam(c echo.Context) (int, int, error) {
	month := c.QueryParam("month")
	if month == "" {
		now := h.svc.now().In(h.svc.loc)
		return now.Year(), int(now.Month()), nil
	}
	y, m, err := finance.ParseMonth(month)
	if err != nil {
		return 0, 0, echo.NewHTTPError(http.StatusBadRequest, "month must be YYYY-MM")
	}
	return y, m, nil
}

func (h *Handler) Daily(c echo.Context) error {
	day, err := h.dayParam(c)
	if err != nil {
		return err
	}
	r, err := h.svc.DailyReport(c.Request().Context(), day)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, r)
}

func (h *Handler) Monthly(c echo.Context) error {
	y, m, err := h.monthParam(c)
	if err != nil {
		return err
	}
	r, err := h.svc.MonthlyReport(c.Request().Context(), y, m)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, r)
}

func (h *Handler) Demographics(c echo.Context) error {
	d, err := h.svc.Demographics(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, d)
}

func (h *Handler) ExportDaily(c echo.Context) error {
	day, err := h.dayParam(c)
	if err != nil {
		return err
	}
	r, err := h.svc.DailyReport(c.Request().Context(), day)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	data, err := ExportDailyXLSX(r)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return attachment(c, fmt.Sprintf("laporan-harian-%s.xlsx", day), data)
}

func (h *Handler) ExportMonthly(c echo.Context) error {
	y, m, err := h.monthParam(c)
	if err != nil {
		return err
	}
	r, err := h.svc.MonthlyReport(c.Request().Context(), y, m)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	data, err := ExportMonthlyXLSX(r)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return attachment(c, fmt.Sprintf("laporan-bulanan-%04d-%02d.xlsx", y, m), data)
}

func attachment(c echo.Context, filename string, data []byte) error {
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%s", filename))
	return c.Blob(http.StatusOK, mimeXLSX, data)
}
