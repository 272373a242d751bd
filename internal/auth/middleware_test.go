package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"
	"github.com/stretchr/testify/require"
)

var secret = []byte("test-secret")

func signToken(t *testing.T, role string, expiry time.Time) string {
	t.Helper()
	builder := jwt.NewBuilder().
		Subject("admin-user").
		Expiration(expiry)
	if role != "" {
		builder = builder.Claim("role", role)
	}
	tok, err := builder.Build()
	require.NoError(t, err)
	signed, err := jwt.Sign(tok, jwt.WithKey(jwa.HS256, secret))
	require.NoError(t, err)
	return string(signed)
}

func doRequest(token string) *httptest.ResponseRecorder {
	handler := Admin{Secret: secret}.RequireAdmin(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	req := httptest.NewRequest(http.MethodGet, "/admin/settings/0", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestRequireAdminAccepts(t *testing.T) {
	rec := doRequest(signToken(t, "admin", time.Now().Add(time.Hour)))
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireAdminRejectsMissingToken(t *testing.T) {
	rec := doRequest("")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireAdminRejectsWrongRole(t *testing.T) {
	rec := doRequest(signToken(t, "customer", time.Now().Add(time.Hour)))
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRequireAdminRejectsExpiredToken(t *testing.T) {
	rec := doRequest(signToken(t, "admin", time.Now().Add(-time.Hour)))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireAdminRejectsBadSignature(t *testing.T) {
	other := Admin{Secret: []byte("other-secret")}
	handler := other.RequireAdmin(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	req := httptest.NewRequest(http.MethodGet, "/admin/settings/0", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, "admin", time.Now().Add(time.Hour)))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}
