package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fekuna/omnipos-invoice-service/internal/auth"
	"github.com/fekuna/omnipos-invoice-service/internal/logger"
)

const testCompany = "6f1c1f0e-3c1a-4a51-9d0e-0d2b7f2f6a10"

func captureIdentity(got *auth.Identity) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*got, _ = auth.FromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})
}

func request(company, user, role string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/api/invoices", nil)
	if company != "" {
		req.Header.Set(HeaderCompanyID, company)
	}
	if user != "" {
		req.Header.Set(HeaderUserID, user)
	}
	if role != "" {
		req.Header.Set(HeaderUserRole, role)
	}
	return req
}

func TestIdentity_NormalisesRole(t *testing.T) {
	var got auth.Identity
	rec := httptest.NewRecorder()
	Identity(captureIdentity(&got)).ServeHTTP(rec, request(testCompany, "u1", "Super Admin"))

	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, auth.Identity{CompanyID: testCompany, UserID: "u1", Role: auth.RoleSuperAdmin}, got)
}

func TestIdentity_Rejections(t *testing.T) {
	tests := []struct {
		name                string
		company, user, role string
		want                int
	}{
		{"no company", "", "u1", "admin", http.StatusUnauthorized},
		{"no user", testCompany, "", "admin", http.StatusUnauthorized},
		{"bad company id", "acme", "u1", "admin", http.StatusUnauthorized},
		{"unknown role", testCompany, "u1", "root", http.StatusForbidden},
		{"empty role", testCompany, "u1", "", http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got auth.Identity
			rec := httptest.NewRecorder()
			Identity(captureIdentity(&got)).ServeHTTP(rec, request(tt.company, tt.user, tt.role))
			assert.Equal(t, tt.want, rec.Code)
			assert.Empty(t, got.UserID)
		})
	}
}

func TestRequireRole(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	h := Identity(RequireRole(auth.RoleAdmin)(ok))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, request(testCompany, "u1", "admin"))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, request(testCompany, "u1", "user"))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = httptest.NewRecorder()
	RequireRole(auth.RoleUser)(ok).ServeHTTP(rec, request("", "", ""))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestPanicRecovery(t *testing.T) {
	boom := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { panic("boom") })
	rec := httptest.NewRecorder()

	PanicRecovery(logger.NewNop())(boom).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"internal error"}`, rec.Body.String())
}

func TestRequestLogger_PassesStatusThrough(t *testing.T) {
	teapot := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusTeapot) })
	rec := httptest.NewRecorder()

	RequestLogger(logger.NewNop())(teapot).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusTeapot, rec.Code)
}
