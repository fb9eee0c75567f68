package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/uplifor/aac-api/internal/api/handler"
	"github.com/uplifor/aac-api/internal/api/middleware"
	"github.com/uplifor/aac-api/internal/auth"
	"github.com/uplifor/aac-api/internal/authz"
	"github.com/uplifor/aac-api/internal/metrics"
	"github.com/uplifor/aac-api/internal/profile"
	"github.com/uplifor/aac-api/internal/ratelimit"
)

// RouterDeps holds all dependencies needed by the router.
type RouterDeps struct {
	DBPinger    handler.DBPinger
	Version     string
	OpenAPISpec []byte

	Accounts      handler.AccountService
	Authenticator middleware.Authenticator
	Principals    auth.PrincipalRepository
	Roles         handler.RoleGraph

	Engine    *authz.Engine
	Relations handler.RelationshipLister
	Profiles  profile.Repository

	// Limiter is nil when rate limiting is disabled.
	Limiter       middleware.Admitter
	Policy        ratelimit.Policy
	TokenVerifier middleware.TokenVerifier

	Metrics        *metrics.Metrics
	AllowedOrigins []string
}

// NewRouter creates and configures a Chi router with all middleware and routes.
func NewRouter(deps RouterDeps) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recovery)
	r.Use(chimiddleware.Logger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   deps.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "Authorization", "X-Requested-With", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           86400,
	}))
	if deps.Metrics != nil {
		r.Use(middleware.Metrics(deps.Metrics))
	}

	healthHandler := handler.NewHealthHandler(deps.DBPinger, deps.Version)
	r.Get("/health", healthHandler.ServeHTTP)
	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics.Handler())
	}
	if len(deps.OpenAPISpec) > 0 {
		openapiHandler := handler.NewOpenAPIHandler(deps.OpenAPISpec)
		r.Get("/openapi.json", openapiHandler.ServeHTTP)
	}

	r.Group(func(r chi.Router) {
		if deps.Limiter != nil {
			r.Use(middleware.RateLimit(deps.Limiter, deps.Policy, deps.TokenVerifier))
		}

		if deps.Accounts != nil {
			userHandler := handler.NewUserHandler(deps.Accounts, deps.Roles)
			r.Post("/user/register", userHandler.Register)
			r.Post("/user/login", userHandler.Login)
			r.With(middleware.Auth(deps.Authenticator)).Get("/user/me", userHandler.Me)
		}

		if deps.Engine == nil {
			return
		}

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(deps.Authenticator))

			relHandler := handler.NewRelationshipHandler(deps.Relations)
			r.With(middleware.RequireAccountRole(deps.Engine, "Access denied - teacher role required", auth.AccountTeacher, auth.AccountTherapist)).
				Get("/teacher/students", relHandler.Students)
			r.With(middleware.RequireAccountRole(deps.Engine, "Access denied - parent role required", auth.AccountParent)).
				Get("/parent/children", relHandler.Children)

			profileHandler := handler.NewProfileHandler(deps.Profiles, deps.Engine)
			r.Get("/profiles/{id}", profileHandler.Get)
			r.Get("/users/{id}/profiles", profileHandler.ListForUser)

			accessHandler := handler.NewAccessHandler(deps.Engine)
			r.Get("/access/{resource}/{id}", accessHandler.Check)

			adminHandler := handler.NewAdminHandler(deps.Principals, deps.Roles)
			r.Route("/admin", func(r chi.Router) {
				r.Use(middleware.RequireSystemAdmin(deps.Engine))
				r.Get("/users", adminHandler.List)
				r.Patch("/users/{id}", adminHandler.Update)
			})
		})
	})

	return r
}
