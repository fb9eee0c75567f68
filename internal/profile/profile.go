// Package profile reads communication profiles and their owners.
package profile

import (
	"context"
	"errors"
	"time"
)

// ErrProfileNotFound is returned when a profile record is not found.
var ErrProfileNotFound = errors.New("profile not found")

// Profile is a managed resource owned by one principal.
type Profile struct {
	ID          int64
	OwnerID     int64
	DisplayName string
	IsDefault   bool
	IsPublic    bool
	CreatedAt   time.Time
}

// Repository provides read operations on the profiles table.
type Repository interface {
	GetByID(ctx context.Context, id int64) (*Profile, error)
	ListByOwner(ctx context.Context, ownerID int64) ([]Profile, error)
	OwnerOf(ctx context.Context, id int64) (int64, error)
}
