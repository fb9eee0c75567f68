package authz

import (
	"context"
	"errors"

	"github.com/uplifor/aac-api/internal/auth"
	"github.com/uplifor/aac-api/internal/logging"
	"github.com/uplifor/aac-api/internal/metrics"
	"github.com/uplifor/aac-api/internal/profile"
)

// Engine evaluates access requests. Rules are applied in order and the first
// grant wins: system administrator, self access, then the resource rule.
// Everything else is denied.
type Engine struct {
	roles     RoleGraph
	relations Relationships
	profiles  ProfileOwners
	metrics   *metrics.Metrics
}

// NewEngine creates an Engine. m may be nil.
func NewEngine(roles RoleGraph, relations Relationships, profiles ProfileOwners, m *metrics.Metrics) *Engine {
	return &Engine{
		roles:     roles,
		relations: relations,
		profiles:  profiles,
		metrics:   m,
	}
}

// IsSystemAdmin reports whether s has global scope, either through the flat
// admin account role or a system administrator assignment. Lookup errors
// count as false.
func (e *Engine) IsSystemAdmin(ctx context.Context, s Subject) bool {
	if s.AccountRole == auth.AccountAdmin {
		return true
	}
	ok, err := e.roles.IsSystemAdmin(ctx, s.ID)
	if err != nil {
		logging.FromContext(ctx).Error("system admin lookup failed", "principalId", s.ID, "error", err)
		return false
	}
	return ok
}

// Authorize decides req for s.
func (e *Engine) Authorize(ctx context.Context, s Subject, req Request) Decision {
	var d Decision
	if e.IsSystemAdmin(ctx, s) {
		d = allow(ReasonSystemAdmin)
	} else {
		d = e.evaluate(ctx, s, req)
	}

	e.metrics.ObserveAuthz(string(req.Resource), d.Allowed)
	if !d.Allowed {
		logging.FromContext(ctx).Debug("access denied", "principalId", s.ID, "resource", req.Resource, "id", req.ID, "action", req.Action, "reason", d.Reason)
	}
	return d
}

// evaluate applies the self access and resource rules.
func (e *Engine) evaluate(ctx context.Context, s Subject, req Request) Decision {
	switch req.Resource {
	case ResourceProfile:
		return e.profileRule(ctx, s, req)
	case ResourceStudentData, ResourceUser:
		if req.ID == s.ID && req.Action != ActionManage {
			return allow(ReasonSelf)
		}
		return e.studentDataRule(ctx, s, req)
	case ResourceOrganization:
		if e.isOrgAdmin(ctx, s.ID, req.ID) {
			return allow(ReasonOrgAdmin)
		}
		return deny(ReasonDenied)
	case ResourceClass:
		ok, err := e.roles.HoldsClass(ctx, s.ID, req.ID)
		if err != nil {
			logging.FromContext(ctx).Error("class lookup failed", "principalId", s.ID, "classId", req.ID, "error", err)
		}
		if ok {
			return allow(ReasonClassMember)
		}
		return deny(ReasonDenied)
	default:
		logging.FromContext(ctx).Warn("authorization requested for unknown resource type", "resource", req.Resource, "principalId", s.ID)
		return deny(ReasonUnknownResource)
	}
}

// profileRule grants the owner, a parent of the owner whose link allows
// profile management, and a teacher of the owner.
func (e *Engine) profileRule(ctx context.Context, s Subject, req Request) Decision {
	owner, err := e.profiles.OwnerOf(ctx, req.ID)
	if err != nil {
		if !errors.Is(err, profile.ErrProfileNotFound) {
			logging.FromContext(ctx).Error("profile owner lookup failed", "profileId", req.ID, "error", err)
		}
		return deny(ReasonNotFound)
	}

	if owner == s.ID {
		return allow(ReasonOwner)
	}
	if link, ok := e.relations.ParentLink(ctx, s.ID, owner); ok && link.CanManageProfile {
		return allow(ReasonParentManage)
	}
	if e.relations.IsTeacherOf(ctx, s.ID, owner, nil) {
		return allow(ReasonTeacher)
	}
	return deny(ReasonDenied)
}

func (e *Engine) studentDataRule(ctx context.Context, s Subject, req Request) Decision {
	if e.relations.IsTeacherOf(ctx, s.ID, req.ID, req.OrganizationID) {
		return allow(ReasonTeacher)
	}
	if e.relations.IsParentOf(ctx, s.ID, req.ID) {
		return allow(ReasonParent)
	}
	if req.OrganizationID != nil && e.isOrgAdmin(ctx, s.ID, *req.OrganizationID) {
		return allow(ReasonOrgAdmin)
	}
	return deny(ReasonDenied)
}

func (e *Engine) isOrgAdmin(ctx context.Context, principalID, org int64) bool {
	ok, err := e.roles.IsOrgAdmin(ctx, principalID, org)
	if err != nil {
		logging.FromContext(ctx).Error("org admin lookup failed", "principalId", principalID, "organizationId", org, "error", err)
		return false
	}
	return ok
}

// FilterByPermission returns the items s may view. idOf maps an item to the
// id checked against resource. System administrators get items unchanged.
func FilterByPermission[T any](ctx context.Context, e *Engine, s Subject, items []T, resource ResourceType, idOf func(T) int64) []T {
	if e.IsSystemAdmin(ctx, s) {
		return items
	}

	out := make([]T, 0, len(items))
	for _, item := range items {
		d := e.evaluate(ctx, s, Request{Resource: resource, ID: idOf(item), Action: ActionView})
		e.metrics.ObserveAuthz(string(resource), d.Allowed)
		if d.Allowed {
			out = append(out, item)
		}
	}
	return out
}
