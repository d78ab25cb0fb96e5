// Package auth carries the authenticated caller through request contexts.
package auth

import (
	"context"
	"strings"

	"github.com/wolfman30/vetcare-platform/internal/apperr"
)

// Role mirrors profiles.user_type.
type Role string

const (
	RolePetOwner Role = "pet_owner"
	RoleVet      Role = "vet"
	RoleAdmin    Role = "admin"
)

// ParseRole normalises a role claim. Unknown values yield "".
func ParseRole(raw string) Role {
	switch Role(strings.ToLower(strings.TrimSpace(raw))) {
	case RolePetOwner:
		return RolePetOwner
	case RoleVet:
		return RoleVet
	case RoleAdmin, "superadmin":
		return RoleAdmin
	default:
		return ""
	}
}

// Principal is the caller identity derived from a verified token.
type Principal struct {
	UserID string
	Role   Role
}

// IsAdmin reports whether the caller bypasses actor restrictions.
func (p Principal) IsAdmin() bool { return p.Role == RoleAdmin }

type ctxKey string

const principalKey ctxKey = "vetcare.principal"

// WithPrincipal stores the caller in ctx.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// PrincipalFromContext extracts the caller if present.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey).(Principal)
	return p, ok && p.UserID != "" && p.Role != ""
}

// Require returns the caller or a Forbidden error when the request is anonymous.
func Require(ctx context.Context) (Principal, error) {
	p, ok := PrincipalFromContext(ctx)
	if !ok {
		return Principal{}, apperr.Forbidden("authentication required")
	}
	return p, nil
}
