package auth

import (
	"errors"
	"fmt"
	"strings"
)

// Role is a user's permission level. The set is closed; every raw role string
// entering the system goes through ParseRole.
type Role string

const (
	RoleUser       Role = "user"
	RoleAccountant Role = "accountant"
	RoleAdmin      Role = "admin"
	RoleSuperAdmin Role = "super_admin"
)

var ErrUnknownRole = errors.New("unknown role")

var roleRank = map[Role]int{
	RoleUser:       1,
	RoleAccountant: 2,
	RoleAdmin:      3,
	RoleSuperAdmin: 4,
}

var roleAliases = map[string]Role{
	"user":        RoleUser,
	"member":      RoleUser,
	"accountant":  RoleAccountant,
	"admin":       RoleAdmin,
	"super_admin": RoleSuperAdmin,
	"superadmin":  RoleSuperAdmin,
}

// ParseRole normalises a role string: case, surrounding space and the choice
// of space, dash or underscore as separator are ignored. "Super Admin",
// "super-admin" and "SUPER_ADMIN" all parse to RoleSuperAdmin.
func ParseRole(raw string) (Role, error) {
	key := strings.ToLower(strings.TrimSpace(raw))
	key = strings.Join(strings.FieldsFunc(key, func(r rune) bool {
		return r == ' ' || r == '-' || r == '_'
	}), "_")
	if role, ok := roleAliases[key]; ok {
		return role, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownRole, raw)
}

// Valid reports whether r is one of the defined roles.
func (r Role) Valid() bool {
	_, ok := roleRank[r]
	return ok
}

// AtLeast reports whether r grants everything min grants.
func (r Role) AtLeast(min Role) bool {
	return r.Valid() && roleRank[r] >= roleRank[min]
}

func (r Role) String() string {
	return string(r)
}
