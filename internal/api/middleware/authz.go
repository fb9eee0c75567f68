package middleware

import (
	"context"
	"net/http"

	"github.com/uplifor/aac-api/internal/api/response"
	"github.com/uplifor/aac-api/internal/auth"
	"github.com/uplifor/aac-api/internal/authz"
)

// AdminChecker decides whether a subject has global administrative scope.
type AdminChecker interface {
	IsSystemAdmin(ctx context.Context, s authz.Subject) bool
}

// RequireSystemAdmin returns middleware that rejects non-administrators with 403.
func RequireSystemAdmin(admins AdminChecker) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity := GetIdentity(r.Context())
			if identity == nil {
				response.Err(w, http.StatusUnauthorized, response.MsgAuthRequired)
				return
			}

			if !admins.IsSystemAdmin(r.Context(), authz.SubjectOf(identity)) {
				response.Err(w, http.StatusForbidden, response.MsgAdminRequired)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RequireAccountRole returns middleware that rejects identities whose account
// role is not in the allowed list. System administrators always pass.
func RequireAccountRole(admins AdminChecker, message string, roles ...auth.AccountRole) func(http.Handler) http.Handler {
	allowed := make(map[auth.AccountRole]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity := GetIdentity(r.Context())
			if identity == nil {
				response.Err(w, http.StatusUnauthorized, response.MsgAuthRequired)
				return
			}

			if !allowed[identity.Role] && !admins.IsSystemAdmin(r.Context(), authz.SubjectOf(identity)) {
				response.Err(w, http.StatusForbidden, message)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
