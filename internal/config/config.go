// Package config loads runtime settings from the environment.
//
// Every knob is an environment variable with a sensible default, so a
// bare `go run ./cmd/api` starts a working in-memory instance. A .env
// file in the working directory is honored for local development.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// Store drivers selectable via STORE_DRIVER.
const (
	StoreDriverMemory   = "memory"
	StoreDriverPostgres = "postgres"
)

// Deployment environments recognized in APP_ENV.
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Config carries every runtime setting, populated from the environment.
type Config struct {
	// Process identity and listen port.
	AppEnv  string `env:"APP_ENV" envDefault:"development"`
	AppPort int    `env:"APP_PORT" envDefault:"8080"`

	// Recipe store backend: "memory" (default, pre-seeded) or "postgres".
	StoreDriver string `env:"STORE_DRIVER" envDefault:"memory"`

	// Database (PostgreSQL); required only for the postgres driver.
	DatabaseURL string `env:"DATABASE_URL"`

	// Cache (Redis). Optional: when empty, search caching and search
	// rate limiting are disabled.
	RedisURL string `env:"REDIS_URL"`

	// External recipe catalog.
	MealDBBaseURL string        `env:"MEALDB_BASE_URL" envDefault:"https://www.themealdb.com/api/json/v1/1"`
	MealDBTimeout time.Duration `env:"MEALDB_TIMEOUT" envDefault:"5s"`

	// How long cached external search results stay fresh.
	SearchCacheTTL time.Duration `env:"SEARCH_CACHE_TTL" envDefault:"15m"`

	// Logging.
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	// Server timeouts.
	ReadTimeout     time.Duration `env:"READ_TIMEOUT" envDefault:"5s"`
	WriteTimeout    time.Duration `env:"WRITE_TIMEOUT" envDefault:"30s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`

	// Rate limiting for search requests (per client IP, needs Redis).
	RateLimitSearchEnabled bool `env:"RATE_LIMIT_SEARCH_ENABLED" envDefault:"true"`
	RateLimitSearchRPS     int  `env:"RATE_LIMIT_SEARCH_RPS" envDefault:"10"`
	RateLimitSearchBurst   int  `env:"RATE_LIMIT_SEARCH_BURST" envDefault:"5"`

	// Comma-separated allowed CORS origins; empty disables CORS handling.
	CORSAllowedOrigins string `env:"CORS_ALLOWED_ORIGINS" envDefault:""`

	// Request body size limit in bytes. The default leaves room for a
	// full-size recipe import upload plus multipart framing.
	MaxRequestBodySize int64 `env:"MAX_REQUEST_BODY_SIZE" envDefault:"4194304"`
}

// Load reads a .env file when present, parses the environment and
// validates cross-field constraints.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.StoreDriver {
	case StoreDriverMemory:
		return nil
	case StoreDriverPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when STORE_DRIVER is %q", StoreDriverPostgres)
		}
		return nil
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
	}
}

// IsDevelopment reports whether the process runs in development mode.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == EnvDevelopment
}

// IsProduction reports whether the process runs in production mode.
func (c *Config) IsProduction() bool {
	return c.AppEnv == EnvProduction
}

// GetCORSAllowedOrigins splits CORS_ALLOWED_ORIGINS on commas, dropping
// blank entries and surrounding whitespace.
func (c *Config) GetCORSAllowedOrigins() []string {
	var origins []string
	for _, part := range strings.Split(c.CORSAllowedOrigins, ",") {
		if origin := strings.TrimSpace(part); origin != "" {
			origins = append(origins, origin)
		}
	}
	return origins
}
