package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/uplifor/aac-api/internal/api/middleware"
	"github.com/uplifor/aac-api/internal/api/response"
	"github.com/uplifor/aac-api/internal/authz"
)

// AccessHandler lets a client ask whether the caller may act on a resource.
type AccessHandler struct {
	engine *authz.Engine
}

// NewAccessHandler creates a new AccessHandler.
func NewAccessHandler(engine *authz.Engine) *AccessHandler {
	return &AccessHandler{engine: engine}
}

// Check handles GET /access/{resource}/{id}?action=view|manage&organizationId=.
func (h *AccessHandler) Check(w http.ResponseWriter, r *http.Request) {
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

	action := authz.Action(r.URL.Query().Get("action"))
	switch action {
	case "":
		action = authz.ActionView
	case authz.ActionView, authz.ActionManage:
	default:
		response.Err(w, http.StatusBadRequest, "action must be view or manage")
		return
	}

	org, ok := queryID(r, "organizationId")
	if !ok {
		response.Err(w, http.StatusBadRequest, "organizationId must be a positive integer")
		return
	}

	resource, _ := authz.ParseResourceType(chi.URLParam(r, "resource"))
	d := h.engine.Authorize(r.Context(), authz.SubjectOf(identity), authz.Request{
		Resource:       resource,
		ID:             id,
		Action:         action,
		OrganizationID: org,
	})

	response.Success(w, http.StatusOK, d)
}
