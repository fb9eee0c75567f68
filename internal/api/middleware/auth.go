package middleware

import (
	"context"
	"net/http"

	"github.com/uplifor/aac-api/internal/api/response"
	"github.com/uplifor/aac-api/internal/auth"
	"github.com/uplifor/aac-api/internal/token"
)

type contextKey string

const identityKey contextKey = "identity"

// Authenticator resolves a raw bearer token to an active principal.
type Authenticator interface {
	Authenticate(ctx context.Context, rawToken string) (*auth.Identity, error)
}

// Auth is middleware that extracts the bearer token from the Authorization
// header and resolves it to an Identity. Missing, malformed, expired and
// tampered tokens all return the same 401.
func Auth(authenticator Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := token.ParseBearer(r.Header.Get("Authorization"))
			if raw == "" {
				response.Err(w, http.StatusUnauthorized, response.MsgAuthRequired)
				return
			}

			identity, err := authenticator.Authenticate(r.Context(), raw)
			if err != nil {
				response.Err(w, http.StatusUnauthorized, response.MsgAuthRequired)
				return
			}

			ctx := WithIdentity(r.Context(), identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// WithIdentity returns a copy of ctx carrying identity.
func WithIdentity(ctx context.Context, identity *auth.Identity) context.Context {
	return context.WithValue(ctx, identityKey, identity)
}

// GetIdentity retrieves the authenticated Identity from the request context.
func GetIdentity(ctx context.Context) *auth.Identity {
	if id, ok := ctx.Value(identityKey).(*auth.Identity); ok {
		return id
	}
	return nil
}
