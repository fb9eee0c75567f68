package validation

import (
	"regexp"
	"strings"

	"github.com/uplifor/aac-api/internal/auth"
)

var emailRegex = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// FieldError represents a validation error on a specific field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

const (
	minPasswordLength = 6
	maxNameLength     = 191
	maxEmailLength    = 191
)

// RegisterRequest mirrors the fields needed for registration validation.
type RegisterRequest struct {
	Email    string
	Password string
	Name     string
}

// ValidateRegisterRequest validates the fields of a registration request.
func ValidateRegisterRequest(req RegisterRequest) []FieldError {
	var errs []FieldError

	errs = append(errs, validateEmail(req.Email)...)

	switch {
	case req.Password == "":
		errs = append(errs, FieldError{Field: "password", Message: "password is required"})
	case len(req.Password) < minPasswordLength:
		errs = append(errs, FieldError{Field: "password", Message: "password must be at least 6 characters"})
	case len(req.Password) > auth.MaxSecretBytes:
		errs = append(errs, FieldError{Field: "password", Message: "password must be at most 72 bytes"})
	}

	if len(strings.TrimSpace(req.Name)) > maxNameLength {
		errs = append(errs, FieldError{Field: "name", Message: "name must be at most 191 characters"})
	}

	return errs
}

// LoginRequest mirrors the fields needed for login validation.
type LoginRequest struct {
	Email    string
	Password string
}

// ValidateLoginRequest checks that both credentials are present.
func ValidateLoginRequest(req LoginRequest) []FieldError {
	var errs []FieldError
	if strings.TrimSpace(req.Email) == "" {
		errs = append(errs, FieldError{Field: "email", Message: "email is required"})
	}
	if req.Password == "" {
		errs = append(errs, FieldError{Field: "password", Message: "password is required"})
	}
	return errs
}

// UpdatePrincipalRequest mirrors the fields of an administrative update.
type UpdatePrincipalRequest struct {
	Role     *string
	IsActive *bool
}

// ValidateUpdatePrincipalRequest requires at least one field and a known role.
func ValidateUpdatePrincipalRequest(req UpdatePrincipalRequest) []FieldError {
	var errs []FieldError
	if req.Role == nil && req.IsActive == nil {
		errs = append(errs, FieldError{Field: "body", Message: "at least one of role or isActive is required"})
	}
	if req.Role != nil {
		if _, err := auth.ParseAccountRole(*req.Role); err != nil {
			errs = append(errs, FieldError{Field: "role", Message: "role must be one of admin, teacher, therapist, parent, student, guest"})
		}
	}
	return errs
}

func validateEmail(email string) []FieldError {
	email = strings.TrimSpace(email)
	switch {
	case email == "":
		return []FieldError{{Field: "email", Message: "email is required"}}
	case len(email) > maxEmailLength:
		return []FieldError{{Field: "email", Message: "email must be at most 191 characters"}}
	case !emailRegex.MatchString(email):
		return []FieldError{{Field: "email", Message: "email must be a valid address"}}
	}
	return nil
}
