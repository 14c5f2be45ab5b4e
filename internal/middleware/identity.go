package middleware

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/fekuna/omnipos-invoice-service/internal/auth"
	"github.com/fekuna/omnipos-invoice-service/internal/httpx"
)

const (
	HeaderCompanyID = "X-Company-ID"
	HeaderUserID    = "X-User-ID"
	HeaderUserRole  = "X-User-Role"
)

// Identity resolves the caller forwarded by the gateway into an auth.Identity.
// This is the only place a raw role string is interpreted.
func Identity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		companyID := r.Header.Get(HeaderCompanyID)
		userID := r.Header.Get(HeaderUserID)
		if companyID == "" || userID == "" {
			httpx.WriteError(w, status.Error(codes.Unauthenticated, "missing caller identity"))
			return
		}
		if _, err := uuid.Parse(companyID); err != nil {
			httpx.WriteError(w, status.Error(codes.Unauthenticated, "malformed company id"))
			return
		}

		role, err := auth.ParseRole(r.Header.Get(HeaderUserRole))
		if err != nil {
			if errors.Is(err, auth.ErrUnknownRole) {
				httpx.WriteError(w, status.Error(codes.PermissionDenied, err.Error()))
				return
			}
			httpx.WriteError(w, err)
			return
		}

		ctx := auth.WithIdentity(r.Context(), auth.Identity{
			CompanyID: companyID,
			UserID:    userID,
			Role:      role,
		})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireRole rejects callers below min. It must run after Identity.
func RequireRole(min auth.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := auth.FromContext(r.Context())
			if !ok {
				httpx.WriteError(w, status.Error(codes.Unauthenticated, "missing caller identity"))
				return
			}
			if !id.Role.AtLeast(min) {
				httpx.WriteError(w, status.Errorf(codes.PermissionDenied, "requires role %s", min))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
