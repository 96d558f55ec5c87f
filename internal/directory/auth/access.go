package auth

import (
	"context"
	"slices"

	e "github.com/gartstein/directory/internal/directory/errors"
)

// Allowed returns nil when the caller holds one of roles. An empty roles
// list admits any authenticated caller.
func Allowed(ctx context.Context, roles ...string) error {
	claims, ok := FromContext(ctx)
	if !ok {
		return e.Unauthorized("Access token required")
	}
	if len(roles) == 0 || slices.Contains(roles, claims.Role) {
		return nil
	}
	return e.Forbidden("Insufficient permissions")
}

// CheckScope rejects a caller bound to one company that addresses another.
// HR administrators and unbound callers are not restricted.
func CheckScope(ctx context.Context, companyID string) error {
	claims, ok := FromContext(ctx)
	if !ok || companyID == "" || claims.CompanyID == "" || claims.Role == RoleHRAdmin {
		return nil
	}
	if claims.CompanyID != companyID {
		return e.Security("Access denied to company data")
	}
	return nil
}
