// Package authz decides whether a principal may act on a resource by
// combining role assignments, relationship edges and ownership.
package authz

import (
	"context"

	"github.com/uplifor/aac-api/internal/auth"
	"github.com/uplifor/aac-api/internal/relation"
)

// ResourceType names a kind of protected resource.
type ResourceType string

const (
	ResourceProfile      ResourceType = "profile"
	ResourceStudentData  ResourceType = "student_data"
	ResourceUser         ResourceType = "user"
	ResourceOrganization ResourceType = "organization"
	ResourceClass        ResourceType = "class"
)

// ParseResourceType converts a path segment into a ResourceType. ok is false
// for unknown types.
func ParseResourceType(s string) (ResourceType, bool) {
	switch rt := ResourceType(s); rt {
	case ResourceProfile, ResourceStudentData, ResourceUser, ResourceOrganization, ResourceClass:
		return rt, true
	default:
		return rt, false
	}
}

// Action is what the subject wants to do with the resource.
type Action string

const (
	ActionView   Action = "view"
	ActionManage Action = "manage"
)

// Subject is the principal asking for access.
type Subject struct {
	ID          int64
	AccountRole auth.AccountRole
}

// SubjectOf builds a Subject from an authenticated identity.
func SubjectOf(id *auth.Identity) Subject {
	return Subject{ID: id.PrincipalID, AccountRole: id.Role}
}

// Request describes one access check. OrganizationID optionally scopes
// student data checks.
type Request struct {
	Resource       ResourceType
	ID             int64
	Action         Action
	OrganizationID *int64
}

// Decision reasons.
const (
	ReasonSystemAdmin     = "system_admin"
	ReasonSelf            = "self"
	ReasonOwner           = "owner"
	ReasonParentManage    = "parent_can_manage"
	ReasonParent          = "parent_relationship"
	ReasonTeacher         = "teacher_assignment"
	ReasonOrgAdmin        = "org_admin"
	ReasonClassMember     = "class_member"
	ReasonNotFound        = "not_found"
	ReasonUnknownResource = "unknown_resource"
	ReasonDenied          = "denied"
)

// Decision is the outcome of Authorize.
type Decision struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason"`
}

func allow(reason string) Decision { return Decision{Allowed: true, Reason: reason} }
func deny(reason string) Decision  { return Decision{Allowed: false, Reason: reason} }

// RoleGraph is the role lookup the engine depends on.
type RoleGraph interface {
	IsSystemAdmin(ctx context.Context, principalID int64) (bool, error)
	IsOrgAdmin(ctx context.Context, principalID, org int64) (bool, error)
	HoldsClass(ctx context.Context, principalID, class int64) (bool, error)
}

// Relationships is the relationship lookup the engine depends on.
type Relationships interface {
	IsTeacherOf(ctx context.Context, teacherID, studentID int64, org *int64) bool
	IsParentOf(ctx context.Context, parentID, childID int64) bool
	ParentLink(ctx context.Context, parentID, childID int64) (*relation.ParentLink, bool)
}

// ProfileOwners resolves a profile to its owning principal.
type ProfileOwners interface {
	OwnerOf(ctx context.Context, profileID int64) (int64, error)
}
