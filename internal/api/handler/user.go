package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/uplifor/aac-api/internal/api/middleware"
	"github.com/uplifor/aac-api/internal/api/response"
	"github.com/uplifor/aac-api/internal/api/validation"
	"github.com/uplifor/aac-api/internal/auth"
	"github.com/uplifor/aac-api/internal/logging"
	"github.com/uplifor/aac-api/internal/role"
)

// AccountService is the subset of auth.Service used by UserHandler.
type AccountService interface {
	Register(ctx context.Context, email, password, name string) (*auth.Session, error)
	Login(ctx context.Context, email, password string) (*auth.Session, error)
}

// RoleLister reads a principal's active role assignments.
type RoleLister interface {
	RolesFor(ctx context.Context, principalID int64, org *int64) ([]role.Assignment, error)
}

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type userResponse struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Email       string  `json:"email"`
	Role        string  `json:"role"`
	IsActive    bool    `json:"isActive"`
	IsVerified  bool    `json:"isVerified"`
	CreatedAt   string  `json:"createdAt"`
	LastLoginAt *string `json:"lastLoginAt,omitempty"`
}

type sessionResponse struct {
	User  userResponse `json:"user"`
	Token string       `json:"token"`
}

type assignmentResponse struct {
	Role           string `json:"role"`
	OrganizationID *int64 `json:"organizationId"`
	ClassID        *int64 `json:"classId,omitempty"`
}

type identityResponse struct {
	ID          int64                `json:"id"`
	Name        string               `json:"name"`
	Email       string               `json:"email"`
	Role        string               `json:"role"`
	Assignments []assignmentResponse `json:"assignments"`
}

func toUserResponse(p *auth.Principal) userResponse {
	resp := userResponse{
		ID:         p.ID,
		Name:       p.Name,
		Email:      p.Email,
		Role:       string(p.Role),
		IsActive:   p.IsActive,
		IsVerified: p.IsVerified,
		CreatedAt:  formatTime(p.CreatedAt),
	}
	if p.LastLoginAt != nil {
		last := formatTime(*p.LastLoginAt)
		resp.LastLoginAt = &last
	}
	return resp
}

// UserHandler handles registration, login and the current principal.
type UserHandler struct {
	accounts AccountService
	roles    RoleLister
}

// NewUserHandler creates a new UserHandler. roles may be nil, in which case
// /user/me reports no assignments.
func NewUserHandler(accounts AccountService, roles RoleLister) *UserHandler {
	return &UserHandler{accounts: accounts, roles: roles}
}

// Register handles POST /user/register.
func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		response.Err(w, http.StatusBadRequest, "Request body must be valid JSON")
		return
	}

	fieldErrors := validation.ValidateRegisterRequest(validation.RegisterRequest{
		Email:    req.Email,
		Password: req.Password,
		Name:     req.Name,
	})
	if len(fieldErrors) > 0 {
		response.ErrWithDetails(w, http.StatusBadRequest, "validation_error", "Input validation failed", fieldErrors)
		return
	}

	session, err := h.accounts.Register(r.Context(), req.Email, req.Password, req.Name)
	if err != nil {
		if errors.Is(err, auth.ErrDuplicateEmail) {
			response.Err(w, http.StatusConflict, "Email already registered")
			return
		}
		logging.FromContext(r.Context()).Error("failed to register principal", "error", err)
		response.Err(w, http.StatusInternalServerError, "Registration failed")
		return
	}

	response.Success(w, http.StatusCreated, sessionResponse{
		User:  toUserResponse(session.Principal),
		Token: session.Token,
	})
}

// Login handles POST /user/login.
func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		response.Err(w, http.StatusBadRequest, "Request body must be valid JSON")
		return
	}

	if fieldErrors := validation.ValidateLoginRequest(validation.LoginRequest{Email: req.Email, Password: req.Password}); len(fieldErrors) > 0 {
		response.ErrWithDetails(w, http.StatusBadRequest, "validation_error", "Email and password are required", fieldErrors)
		return
	}

	session, err := h.accounts.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrInvalidCredentials):
			response.Err(w, http.StatusUnauthorized, "Invalid email or password")
		case errors.Is(err, auth.ErrInactive):
			response.Err(w, http.StatusForbidden, "Account is inactive")
		default:
			logging.FromContext(r.Context()).Error("failed to log in", "error", err)
			response.Err(w, http.StatusInternalServerError, "Login failed")
		}
		return
	}

	response.Success(w, http.StatusOK, sessionResponse{
		User:  toUserResponse(session.Principal),
		Token: session.Token,
	})
}

// Me handles GET /user/me.
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	identity := middleware.GetIdentity(r.Context())
	if identity == nil {
		response.Err(w, http.StatusUnauthorized, response.MsgAuthRequired)
		return
	}

	org, ok := queryID(r, "organizationId")
	if !ok {
		response.Err(w, http.StatusBadRequest, "organizationId must be a positive integer")
		return
	}

	assignments := []assignmentResponse{}
	if h.roles != nil {
		as, err := h.roles.RolesFor(r.Context(), identity.PrincipalID, org)
		if err != nil {
			logging.FromContext(r.Context()).Error("failed to load role assignments", "error", err, "principalId", identity.PrincipalID)
			response.Err(w, http.StatusInternalServerError, "Failed to load roles")
			return
		}
		for _, a := range as {
			assignments = append(assignments, assignmentResponse{
				Role:           string(a.Role),
				OrganizationID: a.OrganizationID,
				ClassID:        a.ClassID,
			})
		}
	}

	response.Success(w, http.StatusOK, identityResponse{
		ID:          identity.PrincipalID,
		Name:        identity.Name,
		Email:       identity.Email,
		Role:        string(identity.Role),
		Assignments: assignments,
	})
}
