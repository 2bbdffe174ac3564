package models

import "strings"

// Role is the closed set of field-operations roles.
type Role string

const (
	RoleUnknown    Role = ""
	RoleSuperAdmin Role = "super_admin"
	RoleAdmin      Role = "admin"
	RoleBoothBoy   Role = "booth_boy"
)

// ParseRole maps the role spellings seen on the wire onto a Role.
// Matching is case-insensitive; unrecognised values yield RoleUnknown.
func ParseRole(raw string) Role {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "super_admin":
		return RoleSuperAdmin
	case "admin":
		return RoleAdmin
	case "booth_boy", "boothboy":
		return RoleBoothBoy
	default:
		return RoleUnknown
	}
}

// IsAdmin reports whether the role uses the admin-scoped endpoints.
func (r Role) IsAdmin() bool {
	return r == RoleAdmin || r == RoleSuperAdmin
}

// CanCreate reports whether a user holding r may create a user with the target role.
func (r Role) CanCreate(target Role) bool {
	switch r {
	case RoleSuperAdmin:
		return target == RoleAdmin || target == RoleBoothBoy
	case RoleAdmin:
		return target == RoleBoothBoy
	default:
		return false
	}
}

func (r Role) String() string {
	if r == RoleUnknown {
		return "unknown"
	}
	return string(r)
}
