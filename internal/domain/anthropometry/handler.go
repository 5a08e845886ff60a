package anthropometry

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/klinik/klinik/pkg/dateutil"
)

type Handler struct{}

func NewHandler() *Handler {
	return &Handler{}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/anthropometry")
	g.POST("/bmi", h.BMI)
	g.GET("/age", h.Age)
}

type bmiRequest struct {
	Weight float64 `json:"weight"`
	Height float64 `json:"height"`
}

type bmiResponse struct {
	BMI float64 `json:"bmi"`
	BMICategory
}

func (h *Handler) BMI(c echo.Context) error {
	var req bmiRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.Weight <= 0 {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, "weight must be positive")
	}
	if req.Height <= 0 {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, "height must be positive")
	}
	bmi := CalculateBMI(req.Weight, req.Height)
	return c.JSON(http.StatusOK, bmiResponse{BMI: bmi, BMICategory: ClassifyBMI(bmi)})
}

func (h *Handler) Age(c echo.Context) error {
	birth, err := dateutil.ParseDateInput(c.QueryParam("birth_date"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	ref := time.Now()
	if on := c.QueryParam("on"); on != "" {
		if ref, err = dateutil.ParseDateInput(on); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
	}
	age := CalculateAge(birth, ref)
	return c.JSON(http.StatusOK, map[string]interface{}{
		"age":       age,
		"age_group": AgeGroup(age),
	})
}
