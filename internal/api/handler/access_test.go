package handler_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uplifor/aac-api/internal/api/handler"
	"github.com/uplifor/aac-api/internal/auth"
	"github.com/uplifor/aac-api/internal/authz"
)

func TestAccessHandler_Check(t *testing.T) {
	h := handler.NewAccessHandler(fixtureEngine(fixtureProfiles()))

	tests := []struct {
		name      string
		principal int64
		path      string
		status    int
		want      authz.Decision
	}{
		{"self view", childID, "/access/student_data/4", http.StatusOK, authz.Decision{Allowed: true, Reason: authz.ReasonSelf}},
		{"teacher", teacherID, "/access/student_data/4", http.StatusOK, authz.Decision{Allowed: true, Reason: authz.ReasonTeacher}},
		{"parent", parentID, "/access/student_data/4?action=manage", http.StatusOK, authz.Decision{Allowed: true, Reason: authz.ReasonParent}},
		{"org admin scoped", outsider, "/access/student_data/4?organizationId=42", http.StatusOK, authz.Decision{Allowed: true, Reason: authz.ReasonOrgAdmin}},
		{"org admin wrong org", outsider, "/access/student_data/4?organizationId=43", http.StatusOK, authz.Decision{Allowed: false, Reason: authz.ReasonDenied}},
		{"profile owner", childID, "/access/profile/10", http.StatusOK, authz.Decision{Allowed: true, Reason: authz.ReasonOwner}},
		{"unknown resource", childID, "/access/spaceship/1", http.StatusOK, authz.Decision{Allowed: false, Reason: authz.ReasonUnknownResource}},
		{"admin unknown resource", adminID, "/access/spaceship/1", http.StatusOK, authz.Decision{Allowed: true, Reason: authz.ReasonSystemAdmin}},
		{"bad action", childID, "/access/profile/10?action=delete", http.StatusBadRequest, authz.Decision{}},
		{"bad org", childID, "/access/profile/10?organizationId=-1", http.StatusBadRequest, authz.Decision{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(http.MethodGet, "/access/{resource}/{id}", h.Check,
				httptest.NewRequest(http.MethodGet, tt.path, nil), &auth.Identity{PrincipalID: tt.principal, Role: auth.AccountStudent})

			require.Equal(t, tt.status, w.Code)
			if tt.status != http.StatusOK {
				return
			}
			var got authz.Decision
			require.NoError(t, json.Unmarshal(parseEnvelope(t, w).Data, &got))
			assert.Equal(t, tt.want, got)
		})
	}
}
