package auth

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

var testSigningKey = []byte("test-secret-key-for-unit-tests-only")

func createTestToken(t *testing.T, claims Claims, key []byte) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenStr, err := token.SignedString(key)
	if err != nil {
		t.Fatalf("failed to sign test token: %v", err)
	}
	return tokenStr
}

func validClaims() Claims {
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "perawat-1",
			Issuer:    "klinik",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Roles: []string{RoleNurse},
	}
}

// run passes req through mw and reports what the handler saw.
func run(t *testing.T, mw echo.MiddlewareFunc, req *http.Request) (userID string, roles []string, err error) {
	t.Helper()
	e := echo.New()
	c := e.NewContext(req, httptest.NewRecorder())
	err = mw(func(c echo.Context) error {
		userID = UserIDFromContext(c.Request().Context())
		roles = RolesFromContext(c.Request().Context())
		return nil
	})(c)
	return userID, roles, err
}

func expectStatus(t *testing.T, err error, code int) {
	t.Helper()
	var he *echo.HTTPError
	if !errors.As(err, &he) {
		t.Fatalf("expected echo.HTTPError, got %v", err)
	}
	if he.Code != code {
		t.Errorf("expected %d, got %d", code, he.Code)
	}
}

func TestJWTMiddleware_MissingHeader(t *testing.T) {
	_, _, err := run(t, JWTMiddleware(JWTConfig{SigningKey: testSigningKey}), httptest.NewRequest(http.MethodGet, "/", nil))
	expectStatus(t, err, http.StatusUnauthorized)
}

func TestJWTMiddleware_InvalidFormat(t *testing.T) {
	tests := []struct {
		name   string
		header string
	}{
		{"no bearer prefix", "Token abc123"},
		{"missing token", "Bearer"},
		{"empty value", "Bearer "},
		{"basic auth", "Basic dXNlcjpwYXNz"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set("Authorization", tt.header)
			_, _, err := run(t, JWTMiddleware(JWTConfig{SigningKey: testSigningKey}), req)
			expectStatus(t, err, http.StatusUnauthorized)
		})
	}
}

func TestJWTMiddleware_ValidToken(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+createTestToken(t, validClaims(), testSigningKey))

	uid, roles, err := run(t, JWTMiddleware(JWTConfig{SigningKey: testSigningKey, Issuer: "klinik"}), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if uid != "perawat-1" {
		t.Errorf("expected perawat-1, got %q", uid)
	}
	if len(roles) != 1 || roles[0] != RoleNurse {
		t.Errorf("unexpected roles: %v", roles)
	}
}

func TestJWTMiddleware_Rejects(t *testing.T) {
	expired := validClaims()
	expired.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))
	otherIssuer := validClaims()
	otherIssuer.Issuer = "elsewhere"
	noSubject := validClaims()
	noSubject.Subject = ""

	tests := []struct {
		name  string
		token string
	}{
		{"expired", createTestToken(t, expired, testSigningKey)},
		{"wrong issuer", createTestToken(t, otherIssuer, testSigningKey)},
		{"wrong key", createTestToken(t, validClaims(), []byte("another-key"))},
		{"no subject", createTestToken(t, noSubject, testSigningKey)},
		{"garbage", "not.a.jwt"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set("Authorization", "Bearer "+tt.token)
			_, _, err := run(t, JWTMiddleware(JWTConfig{SigningKey: testSigningKey, Issuer: "klinik"}), req)
			expectStatus(t, err, http.StatusUnauthorized)
		})
	}
}

func TestJWTMiddleware_WebsocketQueryToken(t *testing.T) {
	tok := createTestToken(t, validClaims(), testSigningKey)
	mw := JWTMiddleware(JWTConfig{SigningKey: testSigningKey})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/queue/ws?access_token="+tok, nil)
	req.Header.Set("Upgrade", "websocket")
	uid, _, err := run(t, mw, req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if uid != "perawat-1" {
		t.Errorf("expected perawat-1, got %q", uid)
	}

	// Plain requests must use the header.
	req = httptest.NewRequest(http.MethodGet, "/api/v1/queue?access_token="+tok, nil)
	_, _, err = run(t, mw, req)
	expectStatus(t, err, http.StatusUnauthorized)
}

func TestDevAuthMiddleware_NoToken(t *testing.T) {
	uid, roles, err := run(t, DevAuthMiddleware(JWTConfig{SigningKey: testSigningKey}), httptest.NewRequest(http.MethodGet, "/", nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if uid != "dev-user" {
		t.Errorf("expected dev-user, got %q", uid)
	}
	if len(roles) != 1 || roles[0] != RoleAdmin {
		t.Errorf("expected admin, got %v", roles)
	}
}

func TestDevAuthMiddleware_ValidatesPresentedToken(t *testing.T) {
	mw := DevAuthMiddleware(JWTConfig{SigningKey: testSigningKey})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+createTestToken(t, validClaims(), testSigningKey))
	uid, _, err := run(t, mw, req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if uid != "perawat-1" {
		t.Errorf("expected token subject, got %q", uid)
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer forged")
	_, _, err = run(t, mw, req)
	expectStatus(t, err, http.StatusUnauthorized)
}

func TestIssueToken(t *testing.T) {
	now := time.Now()
	tok, err := IssueToken(testSigningKey, "klinik", "kasir-1", []string{RoleCashier}, time.Hour, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	claims, err := ParseToken(tok, JWTConfig{SigningKey: testSigningKey, Issuer: "klinik"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if claims.Subject != "kasir-1" || len(claims.Roles) != 1 || claims.Roles[0] != RoleCashier {
		t.Errorf("unexpected claims: %+v", claims)
	}

	if _, err := IssueToken(testSigningKey, "klinik", "x", []string{"superuser"}, time.Hour, now); err == nil {
		t.Error("expected error for unknown role")
	}
	if _, err := IssueToken(nil, "klinik", "x", nil, time.Hour, now); err == nil {
		t.Error("expected error for empty key")
	}
	if _, err := IssueToken(testSigningKey, "klinik", "", nil, time.Hour, now); err == nil {
		t.Error("expected error for empty subject")
	}
}
