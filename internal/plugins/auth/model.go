// Package auth gates the admin panel by role. Tokens are issued and checked
// by the upstream village API; this package only decodes the JWT cookie the
// browser carries, works out who is asking, and decides whether the
// requested admin page is theirs to see.
//
// This is a CORE plugin -- always enabled, cannot be disabled.
package auth

import (
	"slices"

	"github.com/golang-jwt/jwt/v5"
)

// Roles issued by the upstream API.
const (
	RoleSuperadmin = "superadmin"
	RoleAdmin      = "admin"
	RoleAuthor     = "author"
)

// Identity is the caller as decoded from their token. It is derived on
// demand and never stored.
type Identity struct {
	UserID   uint64 `json:"user_id"`
	Username string `json:"username"`
	Role     string `json:"role"`
	FullName string `json:"full_name,omitempty"`
}

// HasRole reports whether the identity's role is one of roles.
func (i *Identity) HasRole(roles ...string) bool {
	return i != nil && slices.Contains(roles, i.Role)
}

// DisplayName prefers the full name and falls back to the username.
func (i *Identity) DisplayName() string {
	if i.FullName != "" {
		return i.FullName
	}
	return i.Username
}

// Claims is the upstream token payload.
type Claims struct {
	UserID   uint64 `json:"user_id"`
	Username string `json:"username"`
	Role     string `json:"role"`
	FullName string `json:"full_name,omitempty"`
	jwt.RegisteredClaims
}

// RoleCheck is the outcome of the per-page role check. Loading is true only
// when no check has run for the request yet.
type RoleCheck struct {
	Role      string `json:"role"`
	Loading   bool   `json:"loading"`
	IsAllowed bool   `json:"is_allowed"`
}

// DefaultAllowedRoles is the allow-list used by RequireRoles when the caller
// passes none.
var DefaultAllowedRoles = []string{RoleAdmin, RoleSuperadmin}

// DefaultRoleRedirect is where RequireRoles sends disallowed roles when the
// caller passes no target.
const DefaultRoleRedirect = "/admin/news"

// --- Request DTOs ---

// LoginRequest holds the data submitted by the login form.
type LoginRequest struct {
	Username string `json:"username" form:"username"`
	Password string `json:"password" form:"password"`
	Next     string `json:"next" form:"next"`
}
