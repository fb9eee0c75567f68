package relation

import (
	"context"
	"errors"
	"time"
)

// ErrLinkNotFound is returned when no parent link exists between two principals.
var ErrLinkNotFound = errors.New("relationship not found")

// ErrSchemaUnavailable is returned when a relationship table or column is
// missing from the database.
var ErrSchemaUnavailable = errors.New("relationship schema unavailable")

// AssignmentQuery selects active teacher assignments. OrganizationID is only
// applied when ScopeByOrganization is set.
type AssignmentQuery struct {
	TeacherID           int64
	StudentID           int64
	OrganizationID      *int64
	ClassID             *int64
	ScopeByOrganization bool
	Day                 time.Time
}

// Repository reads relationship edges.
type Repository interface {
	HasActiveAssignment(ctx context.Context, q AssignmentQuery) (bool, error)
	StudentsOfTeacher(ctx context.Context, q AssignmentQuery) ([]Student, error)
	AllStudents(ctx context.Context, organizationID *int64) ([]Student, error)
	ParentLink(ctx context.Context, parentID, childID int64) (*ParentLink, error)
	ChildrenOf(ctx context.Context, parentID int64) ([]Child, error)
}
