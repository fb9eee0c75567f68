package authz

import (
	"context"

	"github.com/uplifor/aac-api/internal/auth"
	"github.com/uplifor/aac-api/internal/logging"
)

// PrincipalLookup loads a principal by id.
type PrincipalLookup interface {
	GetByID(ctx context.Context, id int64) (*auth.Principal, error)
}

// Admins answers the system administrator question for a bare principal id,
// for callers that do not hold an authenticated Subject.
type Admins struct {
	roles      RoleGraph
	principals PrincipalLookup
}

// NewAdmins creates an Admins checker.
func NewAdmins(roles RoleGraph, principals PrincipalLookup) *Admins {
	return &Admins{roles: roles, principals: principals}
}

// IsSystemAdmin reports whether the principal holds a system administrator
// assignment or the admin account role. Lookup errors count as false.
func (a *Admins) IsSystemAdmin(ctx context.Context, principalID int64) bool {
	ok, err := a.roles.IsSystemAdmin(ctx, principalID)
	if err != nil {
		logging.FromContext(ctx).Error("system admin lookup failed", "principalId", principalID, "error", err)
	}
	if ok {
		return true
	}

	p, err := a.principals.GetByID(ctx, principalID)
	if err != nil {
		return false
	}
	return p.Role == auth.AccountAdmin
}
