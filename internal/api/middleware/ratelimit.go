package middleware

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/uplifor/aac-api/internal/api/response"
	"github.com/uplifor/aac-api/internal/ratelimit"
	"github.com/uplifor/aac-api/internal/token"
)

// Admitter is the admission check used by RateLimit.
type Admitter interface {
	Check(ctx context.Context, identifier string, rule ratelimit.Rule) ratelimit.Decision
	Now() time.Time
}

// TokenVerifier verifies a raw bearer token.
type TokenVerifier interface {
	Verify(raw string) (*token.Claims, error)
}

// RateLimit is middleware that admits requests against policy. Callers with a
// valid bearer token are keyed by principal, everyone else by client address.
// Preflight requests are not counted.
func RateLimit(limiter Admitter, policy ratelimit.Policy, verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			rule := policy.Match(r.URL.Path)
			d := limiter.Check(r.Context(), Identifier(r, verifier), rule)

			h := w.Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(d.Limit))
			h.Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
			h.Set("X-RateLimit-Reset", strconv.FormatInt(d.Reset.Unix(), 10))

			if !d.Allowed {
				retryAfter := d.RetryAfter(limiter.Now())
				h.Set("Retry-After", strconv.Itoa(retryAfter))
				response.TooManyRequests(w, retryAfter)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// Identifier returns "user_<id>" when the request carries a valid bearer
// token and "ip_<address>" otherwise.
func Identifier(r *http.Request, verifier TokenVerifier) string {
	if raw := token.ParseBearer(r.Header.Get("Authorization")); raw != "" && verifier != nil {
		if claims, err := verifier.Verify(raw); err == nil {
			return "user_" + strconv.FormatInt(claims.UserID, 10)
		}
	}
	return "ip_" + ClientIP(r)
}

// ClientIP returns the first X-Forwarded-For entry, falling back to the peer
// address without its port.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
