package auth

import (
	"context"
)

// Identity is the caller as resolved once at the edge of a request.
type Identity struct {
	CompanyID string
	UserID    string
	Role      Role
}

// CanAccessCompany reports whether the caller may act on companyID's data.
func (i Identity) CanAccessCompany(companyID string) bool {
	return i.Role == RoleSuperAdmin || i.CompanyID == companyID
}

type ctxKey struct{}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// FromContext returns the identity stored by the identity middleware.
func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(ctxKey{}).(Identity)
	return id, ok
}

// GetCompanyID returns the caller's company, or "" outside a request.
func GetCompanyID(ctx context.Context) string {
	id, _ := FromContext(ctx)
	return id.CompanyID
}
