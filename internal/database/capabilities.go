package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// Capabilities records which optional relationship tables exist. Deployments
// may run without the assignment or parent tables; lookups against a missing
// table resolve to "no relationship".
type Capabilities struct {
	TeacherAssignments         bool
	TeacherAssignmentOrgColumn bool
	ParentRelationships        bool
}

// AllCapabilities is the fully migrated schema.
var AllCapabilities = Capabilities{
	TeacherAssignments:         true,
	TeacherAssignmentOrgColumn: true,
	ParentRelationships:        true,
}

// Querier is the subset of pgxpool.Pool used for probing.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// ProbeCapabilities inspects the catalog for the optional tables and columns.
func ProbeCapabilities(ctx context.Context, q Querier) (Capabilities, error) {
	var caps Capabilities

	var err error
	if caps.TeacherAssignments, err = tableExists(ctx, q, "student_teacher_assignments"); err != nil {
		return Capabilities{}, err
	}
	if caps.TeacherAssignments {
		if caps.TeacherAssignmentOrgColumn, err = columnExists(ctx, q, "student_teacher_assignments", "organization_id"); err != nil {
			return Capabilities{}, err
		}
	}
	if caps.ParentRelationships, err = tableExists(ctx, q, "parent_child_relationships"); err != nil {
		return Capabilities{}, err
	}

	return caps, nil
}

func tableExists(ctx context.Context, q Querier, table string) (bool, error) {
	var exists bool
	err := q.QueryRow(ctx, `SELECT to_regclass($1) IS NOT NULL`, table).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("probing table %s: %w", table, err)
	}
	return exists, nil
}

func columnExists(ctx context.Context, q Querier, table, column string) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM information_schema.columns
			WHERE table_schema = current_schema() AND table_name = $1 AND column_name = $2
		)`

	var exists bool
	if err := q.QueryRow(ctx, query, table, column).Scan(&exists); err != nil {
		return false, fmt.Errorf("probing column %s.%s: %w", table, column, err)
	}
	return exists, nil
}
