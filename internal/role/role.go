// Package role reads the organization-scoped role assignments held by
// principals.
package role

import "fmt"

// Role is an organization role tag.
type Role string

const (
	SystemAdmin Role = "system_admin"
	OrgAdmin    Role = "org_admin"
	Teacher     Role = "teacher"
	Therapist   Role = "therapist"
	Parent      Role = "parent"
	Student     Role = "student"
)

// ParseRole converts a stored tag into a Role.
func ParseRole(s string) (Role, error) {
	switch r := Role(s); r {
	case SystemAdmin, OrgAdmin, Teacher, Therapist, Parent, Student:
		return r, nil
	default:
		return "", fmt.Errorf("unknown role %q", s)
	}
}

// Assignment is one active row of user_organization_roles. A nil
// OrganizationID means the assignment is global.
type Assignment struct {
	PrincipalID    int64
	OrganizationID *int64
	ClassID        *int64
	Role           Role
}

// Global reports whether the assignment applies across all organizations.
func (a Assignment) Global() bool {
	return a.OrganizationID == nil
}

// InOrganization reports whether the assignment is scoped to org.
func (a Assignment) InOrganization(org int64) bool {
	return a.OrganizationID != nil && *a.OrganizationID == org
}
