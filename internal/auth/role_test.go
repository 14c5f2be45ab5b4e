package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRole(t *testing.T) {
	tests := map[string]Role{
		"admin":        RoleAdmin,
		"Admin":        RoleAdmin,
		" ADMIN ":      RoleAdmin,
		"Super Admin":  RoleSuperAdmin,
		"super-admin":  RoleSuperAdmin,
		"SUPER_ADMIN":  RoleSuperAdmin,
		"super  admin": RoleSuperAdmin,
		"superadmin":   RoleSuperAdmin,
		"user":         RoleUser,
		"Member":       RoleUser,
		"Accountant":   RoleAccountant,
	}
	for raw, want := range tests {
		got, err := ParseRole(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, want, got, raw)
	}
}

func TestParseRole_Unknown(t *testing.T) {
	for _, raw := range []string{"", "root", "administrator", "super"} {
		_, err := ParseRole(raw)
		assert.ErrorIs(t, err, ErrUnknownRole, raw)
	}
}

func TestRole_AtLeast(t *testing.T) {
	assert.True(t, RoleSuperAdmin.AtLeast(RoleAdmin))
	assert.True(t, RoleAdmin.AtLeast(RoleAdmin))
	assert.True(t, RoleAdmin.AtLeast(RoleAccountant))
	assert.False(t, RoleAccountant.AtLeast(RoleAdmin))
	assert.False(t, RoleUser.AtLeast(RoleAccountant))
	assert.False(t, Role("Admin").AtLeast(RoleUser), "unnormalised roles grant nothing")
}

func TestIdentity_Context(t *testing.T) {
	_, ok := FromContext(context.Background())
	assert.False(t, ok)
	assert.Empty(t, GetCompanyID(context.Background()))

	ctx := WithIdentity(context.Background(), Identity{CompanyID: "c1", UserID: "u1", Role: RoleAdmin})
	id, ok := FromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, "u1", id.UserID)
	assert.Equal(t, "c1", GetCompanyID(ctx))
}

func TestIdentity_CanAccessCompany(t *testing.T) {
	admin := Identity{CompanyID: "c1", Role: RoleAdmin}
	assert.True(t, admin.CanAccessCompany("c1"))
	assert.False(t, admin.CanAccessCompany("c2"))

	super := Identity{CompanyID: "c1", Role: RoleSuperAdmin}
	assert.True(t, super.CanAccessCompany("c2"))
}
