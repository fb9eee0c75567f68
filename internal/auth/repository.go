package auth

import (
	"context"
	"errors"
)

// ErrPrincipalNotFound is returned when a principal record is not found.
var ErrPrincipalNotFound = errors.New("principal not found")

// ErrDuplicateEmail is returned when a principal with the same email already exists.
var ErrDuplicateEmail = errors.New("email already registered")

// PrincipalUpdate holds an administrative change. Nil fields are left as is.
type PrincipalUpdate struct {
	Role     *AccountRole
	IsActive *bool
}

// PrincipalRepository provides operations on the users table.
type PrincipalRepository interface {
	Create(ctx context.Context, p *Principal) error
	GetByID(ctx context.Context, id int64) (*Principal, error)
	GetByEmail(ctx context.Context, email string) (*Principal, error)
	List(ctx context.Context) ([]Principal, error)
	Update(ctx context.Context, id int64, u PrincipalUpdate) error
	TouchLogin(ctx context.Context, id int64) error
}
