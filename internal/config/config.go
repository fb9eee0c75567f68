package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// InsecureDefaultSecret is the signing secret used when JWT_SECRET is not set.
// Operators are expected to override it.
const InsecureDefaultSecret = "default-secret-key-change-in-production"

// Config holds application configuration loaded from environment variables.
type Config struct {
	Port        int    `envconfig:"PORT" default:"8080"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`
	AppEnv      string `envconfig:"APP_ENV" default:"production"`
	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`
	DBMaxConns  int32  `envconfig:"DB_MAX_CONNS" default:"0"`
	Version     string `envconfig:"VERSION" default:"dev"`

	JWTSecret  string        `envconfig:"JWT_SECRET" default:"default-secret-key-change-in-production"`
	TokenTTL   time.Duration `envconfig:"TOKEN_TTL" default:"24h"`
	BcryptCost int           `envconfig:"BCRYPT_COST" default:"12"`

	RateLimitEnabled       bool   `envconfig:"RATE_LIMIT_ENABLED" default:"true"`
	RateLimitBackend       string `envconfig:"RATE_LIMIT_BACKEND" default:"postgres"`
	RedisURL               string `envconfig:"REDIS_URL" default:"redis://localhost:6379/0"`
	RateLimitPolicyFile    string `envconfig:"RATE_LIMIT_POLICY_FILE" default:""`
	RateLimitPruneSchedule string `envconfig:"RATE_LIMIT_PRUNE_SCHEDULE" default:"@every 5m"`

	RoleCacheTTL  time.Duration `envconfig:"ROLE_CACHE_TTL" default:"10s"`
	RoleCacheSize int           `envconfig:"ROLE_CACHE_SIZE" default:"1024"`

	CORSAllowedOrigins []string `envconfig:"CORS_ALLOWED_ORIGINS" default:"http://localhost:3000,http://localhost:3001,https://aac.uplifor.org,https://www.aac.uplifor.org"`

	AdminEmail    string `envconfig:"ADMIN_EMAIL" default:""`
	AdminPassword string `envconfig:"ADMIN_PASSWORD" default:""`
	AdminName     string `envconfig:"ADMIN_NAME" default:"Administrator"`
}

// Load reads an optional .env file and then configuration from environment
// variables into a Config struct.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// IsDevelopment reports whether the relaxed development limits apply.
func (c *Config) IsDevelopment() bool {
	env := strings.ToLower(c.AppEnv)
	return env == "development" || env == "dev"
}

// UsesDefaultSecret reports whether the signing secret was left at its
// documented insecure default.
func (c *Config) UsesDefaultSecret() bool {
	return c.JWTSecret == InsecureDefaultSecret
}
