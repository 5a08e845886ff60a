package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func TestIsPublicPath(t *testing.T) {
	for _, p := range []string{"/health", "/health/db", "/metrics"} {
		if !IsPublicPath(p) {
			t.Errorf("expected %s to be public", p)
		}
	}
	for _, p := range []string{"/api/v1/patients", "/api/v1/queue/ws", "/"} {
		if IsPublicPath(p) {
			t.Errorf("expected %s to NOT be public", p)
		}
	}
}

func TestJWTMiddleware_SkipsPublicPaths(t *testing.T) {
	e := echo.New()
	mw := JWTMiddleware(JWTConfig{SigningKey: testSigningKey, Skipper: AuthSkipper})

	for _, path := range []string{"/health", "/metrics"} {
		c := e.NewContext(httptest.NewRequest(http.MethodGet, path, nil), httptest.NewRecorder())
		c.SetPath(path)
		called := false
		err := mw(func(c echo.Context) error {
			called = true
			return nil
		})(c)
		if err != nil || !called {
			t.Errorf("%s: expected pass-through, got err=%v", path, err)
		}
	}

	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/api/v1/patients", nil), httptest.NewRecorder())
	c.SetPath("/api/v1/patients")
	err := mw(func(c echo.Context) error { return nil })(c)
	expectStatus(t, err, http.StatusUnauthorized)
}
