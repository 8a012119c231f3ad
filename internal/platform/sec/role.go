// Copyright (c) 2026 Waitgate. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package sec

// # User Roles

// UserRole represents the authorization level granted to an identity.
type UserRole string

const (
	// Unrestricted system access
	RoleAdmin UserRole = "admin"

	// Can review identities and the waitlist
	RoleModerator UserRole = "moderator"

	// Default role for self-registered identities
	RoleUser UserRole = "user"
)

// Roles lists every assignable role, lowest first.
var Roles = []UserRole{RoleUser, RoleModerator, RoleAdmin}

// Valid reports whether r is a known role.
func (r UserRole) Valid() bool {
	return r.level() > 0
}

// String implements fmt.Stringer.
func (r UserRole) String() string {
	return string(r)
}

// # Role Hierarchy

// AtLeast checks if the current role meets or exceeds the required target role.
func (r UserRole) AtLeast(target UserRole) bool {
	return r.level() >= target.level()
}

func (r UserRole) level() int {
	switch r {
	case RoleAdmin:
		return 30
	case RoleModerator:
		return 20
	case RoleUser:
		return 10
	default:
		return 0
	}
}
