package relation

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository implements Repository using pgxpool.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new Repository backed by the given connection pool.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &PostgresRepository{pool: pool}
}

// classify maps missing-table and missing-column errors to ErrSchemaUnavailable.
func classify(err error, doing string) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgerrcode.UndefinedTable, pgerrcode.UndefinedColumn:
			return fmt.Errorf("%s: %w", doing, ErrSchemaUnavailable)
		}
	}
	return fmt.Errorf("%s: %w", doing, err)
}

// assignmentFilter builds the shared WHERE clause for assignment queries.
func assignmentFilter(q AssignmentQuery) (string, []any) {
	where := `sta.teacher_user_id = $1 AND (sta.end_date IS NULL OR sta.end_date >= $2)`
	args := []any{q.TeacherID, q.Day}

	if q.StudentID != 0 {
		args = append(args, q.StudentID)
		where += ` AND sta.student_user_id = $` + strconv.Itoa(len(args))
	}
	if q.ScopeByOrganization && q.OrganizationID != nil {
		args = append(args, *q.OrganizationID)
		where += ` AND sta.organization_id = $` + strconv.Itoa(len(args))
	}
	if q.ClassID != nil {
		args = append(args, *q.ClassID)
		where += ` AND sta.class_id = $` + strconv.Itoa(len(args))
	}
	return where, args
}

func (r *PostgresRepository) HasActiveAssignment(ctx context.Context, q AssignmentQuery) (bool, error) {
	where, args := assignmentFilter(q)
	query := `SELECT EXISTS (SELECT 1 FROM student_teacher_assignments sta WHERE ` + where + `)`

	var exists bool
	if err := r.pool.QueryRow(ctx, query, args...).Scan(&exists); err != nil {
		return false, classify(err, "checking teacher assignment")
	}
	return exists, nil
}

func (r *PostgresRepository) StudentsOfTeacher(ctx context.Context, q AssignmentQuery) ([]Student, error) {
	where, args := assignmentFilter(q)
	query := `
		SELECT DISTINCT u.id, u.name, u.email, sta.class_id, c.name
		FROM users u
		JOIN student_teacher_assignments sta ON u.id = sta.student_user_id
		LEFT JOIN classes c ON sta.class_id = c.id
		WHERE ` + where + `
		ORDER BY u.id`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, classify(err, "listing assigned students")
	}
	return collectStudents(rows)
}

func (r *PostgresRepository) AllStudents(ctx context.Context, organizationID *int64) ([]Student, error) {
	query := `
		SELECT DISTINCT u.id, u.name, u.email, uor.class_id, c.name
		FROM users u
		JOIN user_organization_roles uor ON u.id = uor.user_id
		LEFT JOIN classes c ON uor.class_id = c.id
		WHERE uor.role = 'student' AND uor.is_active = TRUE`
	var args []any
	if organizationID != nil {
		query += ` AND uor.organization_id = $1`
		args = append(args, *organizationID)
	}
	query += ` ORDER BY u.id`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing students: %w", err)
	}
	return collectStudents(rows)
}

func collectStudents(rows pgx.Rows) ([]Student, error) {
	defer rows.Close()

	students := []Student{}
	for rows.Next() {
		var s Student
		if err := rows.Scan(&s.ID, &s.Name, &s.Email, &s.ClassID, &s.ClassName); err != nil {
			return nil, fmt.Errorf("scanning student: %w", err)
		}
		students = append(students, s)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(err, "iterating students")
	}
	return students, nil
}

func (r *PostgresRepository) ParentLink(ctx context.Context, parentID, childID int64) (*ParentLink, error) {
	query := `
		SELECT parent_user_id, child_user_id, relationship_type, can_manage_profile, can_view_progress
		FROM parent_child_relationships
		WHERE parent_user_id = $1 AND child_user_id = $2`

	var l ParentLink
	err := r.pool.QueryRow(ctx, query, parentID, childID).Scan(
		&l.ParentID,
		&l.ChildID,
		&l.RelationshipType,
		&l.CanManageProfile,
		&l.CanViewProgress,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrLinkNotFound
		}
		return nil, classify(err, "querying parent link")
	}
	return &l, nil
}

func (r *PostgresRepository) ChildrenOf(ctx context.Context, parentID int64) ([]Child, error) {
	query := `
		SELECT u.id, u.name, u.email, pcr.relationship_type, pcr.can_manage_profile, pcr.can_view_progress
		FROM users u
		JOIN parent_child_relationships pcr ON u.id = pcr.child_user_id
		WHERE pcr.parent_user_id = $1
		ORDER BY u.id`

	rows, err := r.pool.Query(ctx, query, parentID)
	if err != nil {
		return nil, classify(err, "listing children")
	}
	defer rows.Close()

	children := []Child{}
	for rows.Next() {
		var c Child
		if err := rows.Scan(&c.ID, &c.Name, &c.Email, &c.RelationshipType, &c.CanManageProfile, &c.CanViewProgress); err != nil {
			return nil, fmt.Errorf("scanning child: %w", err)
		}
		children = append(children, c)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(err, "iterating children")
	}
	return children, nil
}
