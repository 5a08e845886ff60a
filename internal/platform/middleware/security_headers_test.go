package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func runSecurityHeaders(t *testing.T, path string) http.Header {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := SecurityHeaders()(func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})(c)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return rec.Header()
}

func TestSecurityHeaders_API(t *testing.T) {
	h := runSecurityHeaders(t, "/api/v1/reports/daily/export")

	expected := map[string]string{
		"X-Content-Type-Options":    "nosniff",
		"X-Frame-Options":           "DENY",
		"Content-Security-Policy":   "default-src 'none'; frame-ancestors 'none'",
		"Strict-Transport-Security": "max-age=31536000; includeSubDomains",
		"Referrer-Policy":           "no-referrer",
		"Cache-Control":             "no-store",
		"Pragma":                    "no-cache",
	}
	for header, want := range expected {
		if got := h.Get(header); got != want {
			t.Errorf("%s: expected %q, got %q", header, want, got)
		}
	}
}

func TestSecurityHeaders_OperationalEndpointsCacheable(t *testing.T) {
	h := runSecurityHeaders(t, "/metrics")

	if got := h.Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("expected nosniff on every response, got %q", got)
	}
	if got := h.Get("Cache-Control"); got != "" {
		t.Errorf("expected no Cache-Control outside /api, got %q", got)
	}
}

func TestSecurityHeaders_HandlerErrorKeepsHeaders(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/patients/missing", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := SecurityHeaders()(func(c echo.Context) error {
		return echo.NewHTTPError(http.StatusNotFound, "patient not found")
	})(c)
	if err == nil {
		t.Fatal("expected handler error to pass through")
	}
	if got := rec.Header().Get("X-Frame-Options"); got != "DENY" {
		t.Errorf("expected headers set before the handler ran, got %q", got)
	}
}
