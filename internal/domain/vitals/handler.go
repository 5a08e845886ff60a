package vitals

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/klinik/klinik/internal/platform/metrics"
)

type Handler struct{}

func NewHandler() *Handler {
	return &Handler{}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/vitals/interpret", h.Interpret)
}

// Interpret classifies the posted readings. Physically impossible values are
// rejected before classification.
func (h *Handler) Interpret(c echo.Context) error {
	var vs VitalSigns
	if err := c.Bind(&vs); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := Validate(vs); err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}
	out := Interpret(vs)
	for _, alert := range out.Summary.Alerts {
		metrics.RecordVitalAlert(alert)
	}
	return c.JSON(http.StatusOK, out)
}
