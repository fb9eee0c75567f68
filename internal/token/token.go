// Package token issues and verifies the signed bearer tokens presented on
// every protected request. Tokens use the standard three-segment HS256 layout
// so external verifiers can read them with common tooling.
package token

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalid is returned for every verification failure. Callers get no
// distinction between malformed, tampered and expired tokens.
var ErrInvalid = errors.New("invalid token")

// Claims is the payload carried by a token. Keys outside the fixed set are
// kept in Extra; Extra never overrides a fixed or registered claim.
type Claims struct {
	UserID int64          `json:"user_id"`
	Email  string         `json:"email,omitempty"`
	Role   string         `json:"role,omitempty"`
	Extra  map[string]any `json:"-"`
	jwt.RegisteredClaims
}

var reservedClaims = map[string]bool{
	"user_id": true, "email": true, "role": true,
	"iss": true, "sub": true, "aud": true, "exp": true, "nbf": true, "iat": true, "jti": true,
}

type plainClaims Claims

// MarshalJSON writes the fixed claims merged with Extra.
func (c Claims) MarshalJSON() ([]byte, error) {
	fixed, err := json.Marshal(plainClaims(c))
	if err != nil || len(c.Extra) == 0 {
		return fixed, err
	}

	merged := make(map[string]json.RawMessage, len(c.Extra)+8)
	for k, v := range c.Extra {
		if reservedClaims[k] {
			continue
		}
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("encoding claim %q: %w", k, err)
		}
		merged[k] = raw
	}
	if err := json.Unmarshal(fixed, &merged); err != nil {
		return nil, err
	}
	return json.Marshal(merged)
}

// UnmarshalJSON reads the fixed claims and collects every other key into Extra.
func (c *Claims) UnmarshalJSON(data []byte) error {
	var p plainClaims
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}

	var all map[string]json.RawMessage
	if err := json.Unmarshal(data, &all); err != nil {
		return err
	}
	for k, raw := range all {
		if reservedClaims[k] {
			continue
		}
		var v any
		if err := json.Unmarshal(raw, &v); err != nil {
			return fmt.Errorf("decoding claim %q: %w", k, err)
		}
		if p.Extra == nil {
			p.Extra = make(map[string]any, len(all))
		}
		p.Extra[k] = v
	}

	*c = Claims(p)
	return nil
}

// Codec signs and verifies tokens with a single HMAC secret.
type Codec struct {
	secret []byte
	now    func() time.Time
	parser *jwt.Parser
}

// Option configures a Codec.
type Option func(*Codec)

// WithClock overrides the time source used for issued-at, expiry and
// verification.
func WithClock(now func() time.Time) Option {
	return func(c *Codec) {
		c.now = now
	}
}

// New creates a Codec bound to secret.
func New(secret string, opts ...Option) *Codec {
	c := &Codec{
		secret: []byte(secret),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.parser = jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		// exp is whole seconds; a token stays valid through its expiry second.
		jwt.WithLeeway(time.Second),
		jwt.WithStrictDecoding(),
		jwt.WithTimeFunc(c.now),
	)
	return c
}

// Issue signs claims with issued-at = now and expires-at = now + ttl.
func (c *Codec) Issue(claims Claims, ttl time.Duration) (string, error) {
	if claims.UserID <= 0 {
		return "", fmt.Errorf("issuing token: user id is required")
	}
	if ttl <= 0 {
		return "", fmt.Errorf("issuing token: ttl must be positive")
	}

	now := c.now()
	claims.RegisteredClaims = jwt.RegisteredClaims{
		Subject:   strconv.FormatInt(claims.UserID, 10),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &claims).SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return signed, nil
}

// Verify checks the shape, signature and expiry of raw and returns its claims.
// It never panics on attacker-supplied input; any failure yields ErrInvalid.
func (c *Codec) Verify(raw string) (*Claims, error) {
	if strings.Count(raw, ".") != 2 {
		return nil, ErrInvalid
	}

	claims := &Claims{}
	parsed, err := c.parser.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return c.secret, nil
	})
	if err != nil || !parsed.Valid {
		return nil, ErrInvalid
	}
	if claims.UserID <= 0 {
		return nil, ErrInvalid
	}
	return claims, nil
}

// ParseBearer extracts the token from an Authorization header value. The
// scheme comparison is case-insensitive. It returns "" when the header does
// not carry a bearer token.
func ParseBearer(header string) string {
	scheme, value, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(value)
}
