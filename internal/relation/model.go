package relation

import "time"

// TeacherAssignment links a teacher to a student, optionally within an
// organization and class. It is active through EndDate inclusive.
type TeacherAssignment struct {
	TeacherID      int64
	StudentID      int64
	OrganizationID *int64
	ClassID        *int64
	EndDate        *time.Time
}

// ActiveOn reports whether the assignment is still in effect on day.
func (a TeacherAssignment) ActiveOn(day time.Time) bool {
	if a.EndDate == nil {
		return true
	}
	return !dateOf(*a.EndDate).Before(dateOf(day))
}

// ParentLink is a directed parent to child edge with its capability flags.
type ParentLink struct {
	ParentID         int64
	ChildID          int64
	RelationshipType string
	CanManageProfile bool
	CanViewProgress  bool
}

// Student is a principal reachable through a teacher assignment.
type Student struct {
	ID        int64
	Name      string
	Email     string
	ClassID   *int64
	ClassName *string
}

// Child is a principal reachable through a parent link.
type Child struct {
	ID               int64
	Name             string
	Email            string
	RelationshipType string
	CanManageProfile bool
	CanViewProgress  bool
}

// dateOf truncates t to its calendar date in UTC.
func dateOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
