package role

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository reads role assignments.
type Repository interface {
	ActiveAssignments(ctx context.Context, principalID int64) ([]Assignment, error)
}

// PostgresRepository implements Repository using pgxpool.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new Repository backed by the given connection pool.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &PostgresRepository{pool: pool}
}

// ActiveAssignments returns every active assignment of the principal. Rows
// with an unrecognised role tag are skipped.
func (r *PostgresRepository) ActiveAssignments(ctx context.Context, principalID int64) ([]Assignment, error) {
	query := `
		SELECT user_id, organization_id, class_id, role
		FROM user_organization_roles
		WHERE user_id = $1 AND is_active = TRUE
		ORDER BY id`

	rows, err := r.pool.Query(ctx, query, principalID)
	if err != nil {
		return nil, fmt.Errorf("querying role assignments: %w", err)
	}
	defer rows.Close()

	var out []Assignment
	for rows.Next() {
		var (
			a   Assignment
			tag string
		)
		if err := rows.Scan(&a.PrincipalID, &a.OrganizationID, &a.ClassID, &tag); err != nil {
			return nil, fmt.Errorf("scanning role assignment: %w", err)
		}
		role, err := ParseRole(tag)
		if err != nil {
			slog.Warn("skipping role assignment", "principalId", principalID, "error", err)
			continue
		}
		a.Role = role
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating role assignments: %w", err)
	}

	return out, nil
}

