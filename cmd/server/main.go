package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	specpkg "github.com/uplifor/aac-api/api"
	"github.com/uplifor/aac-api/internal/api"
	"github.com/uplifor/aac-api/internal/api/middleware"
	"github.com/uplifor/aac-api/internal/auth"
	"github.com/uplifor/aac-api/internal/authz"
	"github.com/uplifor/aac-api/internal/config"
	"github.com/uplifor/aac-api/internal/database"
	"github.com/uplifor/aac-api/internal/metrics"
	"github.com/uplifor/aac-api/internal/profile"
	"github.com/uplifor/aac-api/internal/ratelimit"
	"github.com/uplifor/aac-api/internal/relation"
	"github.com/uplifor/aac-api/internal/role"
	"github.com/uplifor/aac-api/internal/token"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	setupLogger(cfg.LogLevel)

	if cfg.UsesDefaultSecret() {
		slog.Warn("JWT_SECRET is not set; tokens are signed with the insecure default secret")
	}

	ctx := context.Background()

	db, err := database.New(ctx, cfg.DatabaseURL, database.WithMaxConns(cfg.DBMaxConns))
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	caps, err := db.Capabilities(ctx)
	if err != nil {
		slog.Warn("schema probe failed; assuming all relationship tables exist", "error", err)
		caps = database.AllCapabilities
	}
	slog.Info("relationship schema",
		"teacherAssignments", caps.TeacherAssignments,
		"teacherAssignmentOrgColumn", caps.TeacherAssignmentOrgColumn,
		"parentRelationships", caps.ParentRelationships,
	)

	m := metrics.New()

	codec := token.New(cfg.JWTSecret)
	principals := auth.NewRepository(db.Pool())
	accounts := auth.NewService(principals, auth.NewHasher(cfg.BcryptCost), codec, cfg.TokenTTL)

	if cfg.AdminEmail != "" && cfg.AdminPassword != "" {
		if _, err := accounts.BootstrapAdmin(ctx, cfg.AdminEmail, cfg.AdminPassword, cfg.AdminName); err != nil {
			slog.Error("failed to bootstrap administrator", "error", err)
			os.Exit(1)
		}
	}

	graph := role.NewGraph(role.NewRepository(db.Pool()), cfg.RoleCacheSize, cfg.RoleCacheTTL)
	resolver := relation.NewResolver(
		relation.NewRepository(db.Pool()),
		caps,
		authz.NewAdmins(graph, principals),
		relation.WithMetrics(m),
	)
	profiles := profile.NewRepository(db.Pool())
	engine := authz.NewEngine(graph, resolver, profiles, m)

	policy, err := loadPolicy(cfg)
	if err != nil {
		slog.Error("failed to load rate limit policy", "error", err)
		os.Exit(1)
	}

	var limiter middleware.Admitter
	var janitor *ratelimit.Janitor
	if cfg.RateLimitEnabled {
		eventLog, closeLog, err := openEventLog(ctx, cfg, db, policy)
		if err != nil {
			slog.Error("failed to open rate limit store", "backend", cfg.RateLimitBackend, "error", err)
			os.Exit(1)
		}
		defer closeLog()

		limiter = ratelimit.NewLimiter(eventLog, ratelimit.WithMetrics(m))

		janitor, err = ratelimit.NewJanitor(eventLog, 2*policy.MaxWindow(), cfg.RateLimitPruneSchedule)
		if err != nil {
			slog.Error("failed to schedule rate limit pruning", "error", err)
			os.Exit(1)
		}
		janitor.Start()
		slog.Info("rate limiting enabled", "backend", cfg.RateLimitBackend, "rules", len(policy.Rules))
	} else {
		slog.Warn("rate limiting disabled")
	}

	router := api.NewRouter(api.RouterDeps{
		DBPinger:       db,
		Version:        cfg.Version,
		OpenAPISpec:    specpkg.OpenAPISpec,
		Accounts:       accounts,
		Authenticator:  accounts,
		Principals:     principals,
		Roles:          graph,
		Engine:         engine,
		Relations:      resolver,
		Profiles:       profiles,
		Limiter:        limiter,
		Policy:         policy,
		TokenVerifier:  codec,
		Metrics:        m,
		AllowedOrigins: cfg.CORSAllowedOrigins,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("starting AAC server", "port", cfg.Port, "version", cfg.Version, "env", cfg.AppEnv)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		slog.Info("shutting down server", "signal", sig.String())
	case err := <-serverErr:
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if janitor != nil {
		janitor.Stop(shutdownCtx)
	}

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("server stopped gracefully")
}

func setupLogger(level string) {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})
	slog.SetDefault(slog.New(handler))
}

func loadPolicy(cfg *config.Config) (ratelimit.Policy, error) {
	switch {
	case cfg.RateLimitPolicyFile != "":
		return ratelimit.LoadPolicyFile(cfg.RateLimitPolicyFile)
	case cfg.IsDevelopment():
		return ratelimit.DevelopmentPolicy(), nil
	default:
		return ratelimit.DefaultPolicy(), nil
	}
}

// openEventLog returns the configured event store and a function releasing it.
func openEventLog(ctx context.Context, cfg *config.Config, db *database.DB, policy ratelimit.Policy) (ratelimit.EventLog, func(), error) {
	switch cfg.RateLimitBackend {
	case "postgres":
		return ratelimit.NewPostgresEventLog(db.Pool()), func() {}, nil
	case "redis":
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, nil, fmt.Errorf("parsing redis URL: %w", err)
		}
		client := redis.NewClient(opts)
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("pinging redis: %w", err)
		}
		closeFn := func() {
			if err := client.Close(); err != nil {
				slog.Warn("failed to close redis client", "error", err)
			}
		}
		return ratelimit.NewRedisEventLog(client, 2*policy.MaxWindow()), closeFn, nil
	default:
		return nil, nil, fmt.Errorf("unknown rate limit backend %q", cfg.RateLimitBackend)
	}
}
