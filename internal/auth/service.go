package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/uplifor/aac-api/internal/token"
)

// ErrInvalidCredentials is returned when the email or password does not match.
var ErrInvalidCredentials = errors.New("invalid email or password")

// ErrInactive is returned when a deactivated principal attempts to log in.
var ErrInactive = errors.New("account is inactive")

// ErrUnauthenticated is returned for any bearer token that cannot be resolved
// to an active principal.
var ErrUnauthenticated = errors.New("authentication required")

// Service provides registration, login and token authentication.
type Service struct {
	repo     PrincipalRepository
	hasher   *Hasher
	codec    *token.Codec
	tokenTTL time.Duration
}

// NewService creates a new auth Service.
func NewService(repo PrincipalRepository, hasher *Hasher, codec *token.Codec, tokenTTL time.Duration) *Service {
	return &Service{
		repo:     repo,
		hasher:   hasher,
		codec:    codec,
		tokenTTL: tokenTTL,
	}
}

// Session is returned by Register and Login.
type Session struct {
	Principal *Principal
	Token     string
}

// Register creates a new active, unverified student principal and issues a token.
func (s *Service) Register(ctx context.Context, email, password, name string) (*Session, error) {
	email = strings.TrimSpace(email)
	name = strings.TrimSpace(name)
	if name == "" {
		name = email
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, err
	}

	p := &Principal{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         AccountStudent,
		IsActive:     true,
		IsVerified:   false,
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, err
	}

	raw, err := s.issue(p)
	if err != nil {
		return nil, err
	}
	return &Session{Principal: p, Token: raw}, nil
}

// Login verifies credentials and issues a token. Unknown emails and wrong
// passwords both yield ErrInvalidCredentials.
func (s *Service) Login(ctx context.Context, email, password string) (*Session, error) {
	p, err := s.repo.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, ErrPrincipalNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("looking up principal: %w", err)
	}

	if !p.IsActive {
		return nil, ErrInactive
	}

	if !s.hasher.Verify(password, p.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	raw, err := s.issue(p)
	if err != nil {
		return nil, err
	}

	if err := s.repo.TouchLogin(ctx, p.ID); err != nil {
		slog.Warn("failed to record last login", "principalId", p.ID, "error", err)
	}

	return &Session{Principal: p, Token: raw}, nil
}

// Authenticate resolves a raw bearer token to the Identity of an active
// principal. Every failure is reported as ErrUnauthenticated.
func (s *Service) Authenticate(ctx context.Context, rawToken string) (*Identity, error) {
	if rawToken == "" {
		return nil, ErrUnauthenticated
	}

	claims, err := s.codec.Verify(rawToken)
	if err != nil {
		return nil, ErrUnauthenticated
	}

	p, err := s.repo.GetByID(ctx, claims.UserID)
	if err != nil {
		if !errors.Is(err, ErrPrincipalNotFound) {
			slog.Error("auth verification error", "principalId", claims.UserID, "error", err)
		}
		return nil, ErrUnauthenticated
	}
	if !p.IsActive {
		return nil, ErrUnauthenticated
	}

	return &Identity{
		PrincipalID: p.ID,
		Name:        p.Name,
		Email:       p.Email,
		Role:        p.Role,
	}, nil
}

// BootstrapAdmin creates an active administrator with the given credentials
// unless a principal with that email already exists. It reports whether a
// principal was created.
func (s *Service) BootstrapAdmin(ctx context.Context, email, password, name string) (bool, error) {
	_, err := s.repo.GetByEmail(ctx, email)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, ErrPrincipalNotFound) {
		return false, fmt.Errorf("looking up admin: %w", err)
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return false, err
	}

	p := &Principal{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         AccountAdmin,
		IsActive:     true,
		IsVerified:   true,
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return false, fmt.Errorf("creating admin: %w", err)
	}

	slog.Info("bootstrap administrator created", "principalId", p.ID, "email", email)
	return true, nil
}

func (s *Service) issue(p *Principal) (string, error) {
	raw, err := s.codec.Issue(token.Claims{
		UserID: p.ID,
		Email:  p.Email,
		Role:   string(p.Role),
	}, s.tokenTTL)
	if err != nil {
		return "", fmt.Errorf("issuing token: %w", err)
	}
	return raw, nil
}
