package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository implements PrincipalRepository using pgxpool.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new PrincipalRepository backed by the given connection pool.
func NewRepository(pool *pgxpool.Pool) PrincipalRepository {
	return &PostgresRepository{pool: pool}
}

const principalColumns = `id, name, email, password_hash, role, is_active, is_verified, created_at, last_login`

// Create inserts a new principal record.
func (r *PostgresRepository) Create(ctx context.Context, p *Principal) error {
	query := `
		INSERT INTO users (name, email, password_hash, role, is_active, is_verified)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`

	err := r.pool.QueryRow(ctx, query,
		p.Name,
		p.Email,
		p.PasswordHash,
		string(p.Role),
		p.IsActive,
		p.IsVerified,
	).Scan(&p.ID, &p.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return ErrDuplicateEmail
		}
		return fmt.Errorf("inserting principal: %w", err)
	}

	return nil
}

// GetByID retrieves a single principal by id.
func (r *PostgresRepository) GetByID(ctx context.Context, id int64) (*Principal, error) {
	query := `SELECT ` + principalColumns + ` FROM users WHERE id = $1`
	return r.getOne(ctx, query, id)
}

// GetByEmail retrieves a single principal by email address.
func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*Principal, error) {
	query := `SELECT ` + principalColumns + ` FROM users WHERE lower(email) = lower($1)`
	return r.getOne(ctx, query, email)
}

func (r *PostgresRepository) getOne(ctx context.Context, query string, arg any) (*Principal, error) {
	p, err := scanPrincipal(r.pool.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPrincipalNotFound
		}
		return nil, fmt.Errorf("querying principal: %w", err)
	}
	return p, nil
}

// List retrieves all principals ordered by id.
func (r *PostgresRepository) List(ctx context.Context) ([]Principal, error) {
	query := `SELECT ` + principalColumns + ` FROM users ORDER BY id ASC`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing principals: %w", err)
	}
	defer rows.Close()

	var principals []Principal
	for rows.Next() {
		p, err := scanPrincipal(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning principal row: %w", err)
		}
		principals = append(principals, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating principal rows: %w", err)
	}

	if principals == nil {
		principals = []Principal{}
	}

	return principals, nil
}

// Update applies the non-nil fields of u in a single statement.
func (r *PostgresRepository) Update(ctx context.Context, id int64, u PrincipalUpdate) error {
	var role *string
	if u.Role != nil {
		tag := string(*u.Role)
		role = &tag
	}
	return r.execOne(ctx, `
		UPDATE users
		SET role = COALESCE($2, role),
		    is_active = COALESCE($3, is_active),
		    updated_at = NOW()
		WHERE id = $1`, id, role, u.IsActive)
}

// TouchLogin records the time of a successful login.
func (r *PostgresRepository) TouchLogin(ctx context.Context, id int64) error {
	return r.execOne(ctx, `UPDATE users SET last_login = NOW() WHERE id = $1`, id)
}

func (r *PostgresRepository) execOne(ctx context.Context, query string, args ...any) error {
	result, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("updating principal: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrPrincipalNotFound
	}
	return nil
}

func scanPrincipal(row pgx.Row) (*Principal, error) {
	var p Principal
	var role string
	err := row.Scan(
		&p.ID, &p.Name, &p.Email, &p.PasswordHash, &role,
		&p.IsActive, &p.IsVerified, &p.CreatedAt, &p.LastLoginAt,
	)
	if err != nil {
		return nil, err
	}

	p.Role, err = ParseAccountRole(role)
	if err != nil {
		// Unrecognised legacy tags are demoted to guest rather than failing the lookup.
		p.Role = AccountGuest
	}
	return &p, nil
}
