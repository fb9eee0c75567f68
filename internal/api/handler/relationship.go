package handler

import (
	"context"
	"net/http"

	"github.com/uplifor/aac-api/internal/api/middleware"
	"github.com/uplifor/aac-api/internal/api/response"
	"github.com/uplifor/aac-api/internal/relation"
	"github.com/uplifor/aac-api/internal/logging"
)

// RelationshipLister lists the principals reachable from the caller.
type RelationshipLister interface {
	AccessibleStudents(ctx context.Context, teacherID int64, org, class *int64) ([]relation.Student, error)
	AccessibleChildren(ctx context.Context, parentID int64) ([]relation.Child, error)
}

type studentResponse struct {
	ID        int64   `json:"id"`
	Name      string  `json:"name"`
	Email     string  `json:"email"`
	ClassID   *int64  `json:"classId,omitempty"`
	ClassName *string `json:"className,omitempty"`
}

type childResponse struct {
	ID               int64  `json:"id"`
	Name             string `json:"name"`
	Email            string `json:"email"`
	RelationshipType string `json:"relationshipType"`
	CanManageProfile bool   `json:"canManageProfile"`
	CanViewProgress  bool   `json:"canViewProgress"`
}

// RelationshipHandler serves the teacher and parent views.
type RelationshipHandler struct {
	relations RelationshipLister
}

// NewRelationshipHandler creates a new RelationshipHandler.
func NewRelationshipHandler(relations RelationshipLister) *RelationshipHandler {
	return &RelationshipHandler{relations: relations}
}

// Students handles GET /teacher/students.
func (h *RelationshipHandler) Students(w http.ResponseWriter, r *http.Request) {
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
	class, ok := queryID(r, "classId")
	if !ok {
		response.Err(w, http.StatusBadRequest, "classId must be a positive integer")
		return
	}

	students, err := h.relations.AccessibleStudents(r.Context(), identity.PrincipalID, org, class)
	if err != nil {
		logging.FromContext(r.Context()).Error("failed to list students", "error", err, "principalId", identity.PrincipalID)
		response.Err(w, http.StatusInternalServerError, "Failed to list students")
		return
	}

	items := make([]studentResponse, 0, len(students))
	for _, s := range students {
		items = append(items, studentResponse(s))
	}
	response.Success(w, http.StatusOK, items)
}

// Children handles GET /parent/children.
func (h *RelationshipHandler) Children(w http.ResponseWriter, r *http.Request) {
	identity := middleware.GetIdentity(r.Context())
	if identity == nil {
		response.Err(w, http.StatusUnauthorized, response.MsgAuthRequired)
		return
	}

	children, err := h.relations.AccessibleChildren(r.Context(), identity.PrincipalID)
	if err != nil {
		logging.FromContext(r.Context()).Error("failed to list children", "error", err, "principalId", identity.PrincipalID)
		response.Err(w, http.StatusInternalServerError, "Failed to list children")
		return
	}

	items := make([]childResponse, 0, len(children))
	for _, c := range children {
		items = append(items, childResponse(c))
	}
	response.Success(w, http.StatusOK, items)
}
