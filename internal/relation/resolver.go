// Package relation evaluates teacher to student and parent to child
// relationship edges. Lookups never fail the caller: a missing table or a
// store error resolves to "no relationship".
package relation

import (
	"context"
	"errors"
	"time"

	"github.com/uplifor/aac-api/internal/database"
	"github.com/uplifor/aac-api/internal/logging"
	"github.com/uplifor/aac-api/internal/metrics"
)

const (
	edgeTeacher = "teacher"
	edgeParent  = "parent"
)

// AdminChecker reports whether a principal has global administrative scope.
type AdminChecker interface {
	IsSystemAdmin(ctx context.Context, principalID int64) bool
}

// Resolver answers relationship questions between principals.
type Resolver struct {
	repo    Repository
	caps    database.Capabilities
	admins  AdminChecker
	metrics *metrics.Metrics
	now     func() time.Time
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithClock overrides the time source used to decide whether an assignment
// has ended.
func WithClock(now func() time.Time) Option {
	return func(r *Resolver) {
		r.now = now
	}
}

// WithMetrics records lookup outcomes on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Resolver) {
		r.metrics = m
	}
}

// NewResolver creates a Resolver. caps is the result of the startup schema
// probe; edges whose table is absent are never queried.
func NewResolver(repo Repository, caps database.Capabilities, admins AdminChecker, opts ...Option) *Resolver {
	r := &Resolver{
		repo:   repo,
		caps:   caps,
		admins: admins,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Capabilities returns the schema flags the resolver was built with.
func (r *Resolver) Capabilities() database.Capabilities {
	return r.caps
}

func (r *Resolver) today() time.Time {
	return dateOf(r.now())
}

// IsTeacherOf reports whether an active assignment links teacher to student.
// org narrows the check when the assignment table carries an organization
// column.
func (r *Resolver) IsTeacherOf(ctx context.Context, teacherID, studentID int64, org *int64) bool {
	if !r.caps.TeacherAssignments {
		r.metrics.ObserveRelationship(edgeTeacher, metrics.LookupUnavailable)
		return false
	}

	ok, err := r.repo.HasActiveAssignment(ctx, AssignmentQuery{
		TeacherID:           teacherID,
		StudentID:           studentID,
		OrganizationID:      org,
		ScopeByOrganization: r.caps.TeacherAssignmentOrgColumn,
		Day:                 r.today(),
	})
	if err != nil {
		r.lookupFailed(ctx, edgeTeacher, teacherID, studentID, err)
		return false
	}

	r.observe(edgeTeacher, ok)
	return ok
}

// ParentLink returns the edge from parent to child, if any.
func (r *Resolver) ParentLink(ctx context.Context, parentID, childID int64) (*ParentLink, bool) {
	if !r.caps.ParentRelationships {
		r.metrics.ObserveRelationship(edgeParent, metrics.LookupUnavailable)
		return nil, false
	}

	link, err := r.repo.ParentLink(ctx, parentID, childID)
	if err != nil {
		if errors.Is(err, ErrLinkNotFound) {
			r.observe(edgeParent, false)
			return nil, false
		}
		r.lookupFailed(ctx, edgeParent, parentID, childID, err)
		return nil, false
	}

	r.observe(edgeParent, true)
	return link, true
}

// IsParentOf reports whether a parent edge exists from parent to child.
func (r *Resolver) IsParentOf(ctx context.Context, parentID, childID int64) bool {
	_, ok := r.ParentLink(ctx, parentID, childID)
	return ok
}

// AccessibleStudents lists the students visible to teacher. System
// administrators see every student, optionally limited to org; everyone else
// sees students from their active assignments, optionally limited to org and
// class.
func (r *Resolver) AccessibleStudents(ctx context.Context, teacherID int64, org, class *int64) ([]Student, error) {
	if r.admins != nil && r.admins.IsSystemAdmin(ctx, teacherID) {
		return r.repo.AllStudents(ctx, org)
	}

	if !r.caps.TeacherAssignments {
		return []Student{}, nil
	}

	students, err := r.repo.StudentsOfTeacher(ctx, AssignmentQuery{
		TeacherID:           teacherID,
		OrganizationID:      org,
		ClassID:             class,
		ScopeByOrganization: r.caps.TeacherAssignmentOrgColumn,
		Day:                 r.today(),
	})
	if errors.Is(err, ErrSchemaUnavailable) {
		logging.FromContext(ctx).Warn("teacher assignment schema unavailable", "error", err)
		return []Student{}, nil
	}
	return students, err
}

// AccessibleChildren lists every child linked to parent with the link's
// capability flags.
func (r *Resolver) AccessibleChildren(ctx context.Context, parentID int64) ([]Child, error) {
	if !r.caps.ParentRelationships {
		return []Child{}, nil
	}

	children, err := r.repo.ChildrenOf(ctx, parentID)
	if errors.Is(err, ErrSchemaUnavailable) {
		logging.FromContext(ctx).Warn("parent relationship schema unavailable", "error", err)
		return []Child{}, nil
	}
	return children, err
}

func (r *Resolver) observe(edge string, found bool) {
	if found {
		r.metrics.ObserveRelationship(edge, metrics.LookupFound)
		return
	}
	r.metrics.ObserveRelationship(edge, metrics.LookupNotFound)
}

func (r *Resolver) lookupFailed(ctx context.Context, edge string, from, to int64, err error) {
	if errors.Is(err, ErrSchemaUnavailable) {
		logging.FromContext(ctx).Warn("relationship schema unavailable", "edge", edge, "error", err)
		r.metrics.ObserveRelationship(edge, metrics.LookupUnavailable)
		return
	}
	logging.FromContext(ctx).Error("relationship lookup failed", "edge", edge, "from", from, "to", to, "error", err)
	r.metrics.ObserveRelationship(edge, metrics.LookupError)
}
