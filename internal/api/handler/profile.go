package handler

import (
	"errors"
	"net/http"

	"github.com/uplifor/aac-api/internal/api/middleware"
	"github.com/uplifor/aac-api/internal/api/response"
	"github.com/uplifor/aac-api/internal/authz"
	"github.com/uplifor/aac-api/internal/profile"
	"github.com/uplifor/aac-api/internal/logging"
)

type profileResponse struct {
	ID          int64  `json:"id"`
	OwnerID     int64  `json:"ownerId"`
	DisplayName string `json:"displayName"`
	IsDefault   bool   `json:"isDefault"`
	IsPublic    bool   `json:"isPublic"`
	CreatedAt   string `json:"createdAt"`
}

func toProfileResponse(p *profile.Profile) profileResponse {
	return profileResponse{
		ID:          p.ID,
		OwnerID:     p.OwnerID,
		DisplayName: p.DisplayName,
		IsDefault:   p.IsDefault,
		IsPublic:    p.IsPublic,
		CreatedAt:   formatTime(p.CreatedAt),
	}
}

// ProfileHandler serves profile reads gated by the authorization engine.
type ProfileHandler struct {
	profiles profile.Repository
	engine   *authz.Engine
}

// NewProfileHandler creates a new ProfileHandler.
func NewProfileHandler(profiles profile.Repository, engine *authz.Engine) *ProfileHandler {
	return &ProfileHandler{profiles: profiles, engine: engine}
}

// Get handles GET /profiles/{id}.
func (h *ProfileHandler) Get(w http.ResponseWriter, r *http.Request) {
	identity := middleware.GetIdentity(r.Context())
	if identity == nil {
		response.Err(w, http.StatusUnauthorized, response.MsgAuthRequired)
		return
	}

	id, ok := pathID(r, "id")
	if !ok {
		response.Err(w, http.StatusBadRequest, "id must be a positive integer")
		return
	}

	p, err := h.profiles.GetByID(r.Context(), id)
	missing := errors.Is(err, profile.ErrProfileNotFound)
	if err != nil && !missing {
		logging.FromContext(r.Context()).Error("failed to get profile", "error", err, "profileId", id)
		response.Err(w, http.StatusInternalServerError, "Failed to get profile")
		return
	}

	// A missing profile is denied for everyone but system administrators, so
	// other callers cannot learn which ids exist.
	d := h.engine.Authorize(r.Context(), authz.SubjectOf(identity), authz.Request{
		Resource: authz.ResourceProfile,
		ID:       id,
		Action:   authz.ActionView,
	})
	if !d.Allowed {
		response.Err(w, http.StatusForbidden, response.MsgAccessDenied)
		return
	}
	if missing {
		response.Err(w, http.StatusNotFound, "Profile not found")
		return
	}

	response.Success(w, http.StatusOK, toProfileResponse(p))
}

// ListForUser handles GET /users/{id}/profiles. Profiles the caller may not
// view are left out.
func (h *ProfileHandler) ListForUser(w http.ResponseWriter, r *http.Request) {
	identity := middleware.GetIdentity(r.Context())
	if identity == nil {
		response.Err(w, http.StatusUnauthorized, response.MsgAuthRequired)
		return
	}

	ownerID, ok := pathID(r, "id")
	if !ok {
		response.Err(w, http.StatusBadRequest, "id must be a positive integer")
		return
	}

	profiles, err := h.profiles.ListByOwner(r.Context(), ownerID)
	if err != nil {
		logging.FromContext(r.Context()).Error("failed to list profiles", "error", err, "ownerId", ownerID)
		response.Err(w, http.StatusInternalServerError, "Failed to list profiles")
		return
	}

	visible := authz.FilterByPermission(r.Context(), h.engine, authz.SubjectOf(identity), profiles, authz.ResourceProfile,
		func(p profile.Profile) int64 { return p.ID })

	items := make([]profileResponse, 0, len(visible))
	for i := range visible {
		items = append(items, toProfileResponse(&visible[i]))
	}
	response.Success(w, http.StatusOK, items)
}
