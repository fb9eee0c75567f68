package auth

import (
	"fmt"
	"time"
)

// AccountRole is the flat role tag stored on a principal.
type AccountRole string

const (
	AccountAdmin     AccountRole = "admin"
	AccountTeacher   AccountRole = "teacher"
	AccountTherapist AccountRole = "therapist"
	AccountParent    AccountRole = "parent"
	AccountStudent   AccountRole = "student"
	AccountGuest     AccountRole = "guest"
)

// ParseAccountRole converts a stored tag into an AccountRole.
func ParseAccountRole(s string) (AccountRole, error) {
	switch r := AccountRole(s); r {
	case AccountAdmin, AccountTeacher, AccountTherapist, AccountParent, AccountStudent, AccountGuest:
		return r, nil
	default:
		return "", fmt.Errorf("unknown account role %q", s)
	}
}

// Principal represents a row in the users table. Principals are never
// deleted, only deactivated.
type Principal struct {
	ID           int64
	Name         string
	Email        string
	PasswordHash string
	Role         AccountRole
	IsActive     bool
	IsVerified   bool
	CreatedAt    time.Time
	LastLoginAt  *time.Time
}

// Identity is stored in the request context after authentication.
type Identity struct {
	PrincipalID int64
	Name        string
	Email       string
	Role        AccountRole
}
