package anthropometry

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestCalculateAge(t *testing.T) {
	tests := []struct {
		name  string
		birth time.Time
		ref   time.Time
		want  int
	}{
		{"birthday today", date(1990, time.May, 10), date(2024, time.May, 10), 34},
		{"day before birthday", date(1990, time.May, 10), date(2024, time.May, 9), 33},
		{"earlier month", date(1990, time.May, 10), date(2024, time.April, 30), 33},
		{"later month", date(1990, time.May, 10), date(2024, time.June, 1), 34},
		{"newborn", date(2024, time.January, 1), date(2024, time.January, 1), 0},
		{"leap birthday on leap year", date(2000, time.February, 29), date(2024, time.February, 29), 24},
		{"leap birthday before Mar 1", date(2000, time.February, 29), date(2023, time.February, 28), 22},
		{"leap birthday on Mar 1", date(2000, time.February, 29), date(2023, time.March, 1), 23},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CalculateAge(tt.birth, tt.ref); got != tt.want {
				t.Errorf("expected %d, got %d", tt.want, got)
			}
		})
	}
}

func TestCalculateAge_Monotonic(t *testing.T) {
	birth := date(1985, time.November, 3)
	prev := CalculateAge(birth, birth)
	for ref := birth; ref.Year() < 2030; ref = ref.AddDate(0, 0, 17) {
		age := CalculateAge(birth, ref)
		if age < prev {
			t.Fatalf("age decreased at %v: %d < %d", ref, age, prev)
		}
		prev = age
	}
}

func TestCalculateBMI(t *testing.T) {
	tests := []struct {
		weight, height, want float64
	}{
		{70, 175, 22.9},
		{60, 160, 23.4},
		{45, 170, 15.6},
		{100, 180, 30.9},
		{50, 100, 50.0},
	}
	for _, tt := range tests {
		if got := CalculateBMI(tt.weight, tt.height); got != tt.want {
			t.Errorf("CalculateBMI(%v, %v) = %v, want %v", tt.weight, tt.height, got, tt.want)
		}
	}
}

func TestClassifyBMI_Boundaries(t *testing.T) {
	tests := []struct {
		bmi  float64
		want string
	}{
		{18.4, CategoryUnderweight},
		{18.5, CategoryNormal},
		{24.9, CategoryNormal},
		{25.0, CategoryOverweight},
		{29.9, CategoryOverweight},
		{30.0, CategoryObese},
		{45.2, CategoryObese},
	}
	for _, tt := range tests {
		got := ClassifyBMI(tt.bmi)
		if got.Category != tt.want {
			t.Errorf("ClassifyBMI(%v) = %s, want %s", tt.bmi, got.Category, tt.want)
		}
		if got.Recommendation == "" {
			t.Errorf("ClassifyBMI(%v) has no recommendation", tt.bmi)
		}
	}
}

func TestAgeGroup(t *testing.T) {
	tests := map[int]string{0: AgeGroupChild, 11: AgeGroupChild, 12: AgeGroupAdult, 59: AgeGroupAdult, 60: AgeGroupElderly}
	for age, want := range tests {
		if got := AgeGroup(age); got != want {
			t.Errorf("AgeGroup(%d) = %s, want %s", age, got, want)
		}
	}
}

func TestHandler_BMI(t *testing.T) {
	e := echo.New()
	h := NewHandler()

	body := `{"weight":70,"height":175}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.BMI(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"bmi":22.9`) {
		t.Errorf("unexpected body: %s", rec.Body.String())
	}
}

func TestHandler_BMI_ZeroHeight(t *testing.T) {
	e := echo.New()
	h := NewHandler()

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"weight":70,"height":0}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := h.BMI(c)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok {
		t.Fatalf("expected echo.HTTPError, got %T", err)
	}
	if httpErr.Code != http.StatusUnprocessableEntity {
		t.Errorf("expected 422, got %d", httpErr.Code)
	}
}

func TestHandler_Age(t *testing.T) {
	e := echo.New()
	h := NewHandler()

	req := httptest.NewRequest(http.MethodGet, "/?birth_date=2000-02-29&on=2023-03-01", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.Age(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(rec.Body.String(), `"age":23`) {
		t.Errorf("unexpected body: %s", rec.Body.String())
	}
}
