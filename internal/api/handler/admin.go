package handler

import (
	"errors"
	"net/http"

	"github.com/uplifor/aac-api/internal/api/middleware"
	"github.com/uplifor/aac-api/internal/api/response"
	"github.com/uplifor/aac-api/internal/api/validation"
	"github.com/uplifor/aac-api/internal/auth"
	"github.com/uplifor/aac-api/internal/logging"
)

// RoleCache drops cached role data after an administrative change.
type RoleCache interface {
	Invalidate(principalID int64)
}

// RoleGraph is the role.Graph surface the router hands to handlers.
type RoleGraph interface {
	RoleCache
	RoleLister
}

type updatePrincipalRequest struct {
	Role     *string `json:"role"`
	IsActive *bool   `json:"isActive"`
}

// AdminHandler handles principal administration.
type AdminHandler struct {
	principals auth.PrincipalRepository
	roles      RoleCache
}

// NewAdminHandler creates a new AdminHandler. roles may be nil.
func NewAdminHandler(principals auth.PrincipalRepository, roles RoleCache) *AdminHandler {
	return &AdminHandler{principals: principals, roles: roles}
}

// List handles GET /admin/users.
func (h *AdminHandler) List(w http.ResponseWriter, r *http.Request) {
	principals, err := h.principals.List(r.Context())
	if err != nil {
		logging.FromContext(r.Context()).Error("failed to list principals", "error", err)
		response.Err(w, http.StatusInternalServerError, "Failed to list users")
		return
	}

	items := make([]userResponse, 0, len(principals))
	for i := range principals {
		items = append(items, toUserResponse(&principals[i]))
	}
	response.Success(w, http.StatusOK, items)
}

// Update handles PATCH /admin/users/{id}. Principals are deactivated, never
// deleted.
func (h *AdminHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		response.Err(w, http.StatusBadRequest, "id must be a positive integer")
		return
	}

	var req updatePrincipalRequest
	if err := decodeJSON(w, r, &req); err != nil {
		response.Err(w, http.StatusBadRequest, "Request body must be valid JSON")
		return
	}

	if fieldErrors := validation.ValidateUpdatePrincipalRequest(validation.UpdatePrincipalRequest{
		Role:     req.Role,
		IsActive: req.IsActive,
	}); len(fieldErrors) > 0 {
		response.ErrWithDetails(w, http.StatusBadRequest, "validation_error", "Input validation failed", fieldErrors)
		return
	}

	if identity := middleware.GetIdentity(r.Context()); identity != nil && identity.PrincipalID == id && req.IsActive != nil && !*req.IsActive {
		response.Err(w, http.StatusBadRequest, "Cannot deactivate your own account")
		return
	}

	update := auth.PrincipalUpdate{IsActive: req.IsActive}
	if req.Role != nil {
		role, _ := auth.ParseAccountRole(*req.Role) // already validated
		update.Role = &role
	}
	if err := h.principals.Update(r.Context(), id, update); err != nil {
		h.updateFailed(w, r, id, err)
		return
	}

	if h.roles != nil {
		h.roles.Invalidate(id)
	}

	p, err := h.principals.GetByID(r.Context(), id)
	if err != nil {
		h.updateFailed(w, r, id, err)
		return
	}

	logging.FromContext(r.Context()).Info("principal updated", "principalId", id, "role", p.Role, "isActive", p.IsActive)
	response.Success(w, http.StatusOK, toUserResponse(p))
}

func (h *AdminHandler) updateFailed(w http.ResponseWriter, r *http.Request, id int64, err error) {
	if errors.Is(err, auth.ErrPrincipalNotFound) {
		response.Err(w, http.StatusNotFound, "User not found")
		return
	}
	logging.FromContext(r.Context()).Error("failed to update principal", "error", err, "principalId", id)
	response.Err(w, http.StatusInternalServerError, "Failed to update user")
}
