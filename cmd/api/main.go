// Command api runs the Recipe Explorer HTTP server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"regexp"
	"strings"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/recipex/recipex/internal/cache"
	"github.com/recipex/recipex/internal/config"
	"github.com/recipex/recipex/internal/handler"
	"github.com/recipex/recipex/internal/mealdb"
	"github.com/recipex/recipex/internal/metrics"
	"github.com/recipex/recipex/internal/middleware"
	"github.com/recipex/recipex/internal/repository"
	"github.com/recipex/recipex/internal/server"
	"github.com/recipex/recipex/internal/service"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := newLogger(cfg)

	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}

	cacheClient, err := openCache(ctx, cfg, logger)
	if err != nil {
		store.Close()
		return err
	}

	collector := metrics.NewCollector(logger)
	external := mealdb.NewClient(cfg.MealDBBaseURL, cfg.MealDBTimeout, logger)

	queryOpts := service.QueryOptions{
		SearchCacheTTL:  cfg.SearchCacheTTL,
		ExternalTimeout: cfg.MealDBTimeout,
	}
	var cacheCheck handler.HealthChecker
	if cacheClient != nil {
		// Assigning the typed nil directly would make the interface
		// non-nil and panic on first use.
		queryOpts.SearchCache = cacheClient
		cacheCheck = cacheClient
	}

	queryService := service.NewQueryService(store, external, queryOpts, collector, logger)
	recipeService := service.NewRecipeService(store, external, cfg.MealDBTimeout, collector, logger)

	deps := routerDeps{
		cfg:     cfg,
		log:     logger,
		cache:   cacheClient,
		root:    handler.New(),
		health:  handler.NewHealthHandler(store, cacheCheck),
		recipes: handler.NewRecipeHandler(queryService, recipeService, logger),
		metrics: handler.NewMetricsHandler(collector),
	}

	srv := server.New(
		newRouter(deps),
		cfg.AppPort,
		cfg.ReadTimeout,
		cfg.WriteTimeout,
		cfg.ShutdownTimeout,
		logger,
	)
	srv.OnShutdown("recipe store", func(context.Context) error {
		store.Close()
		return nil
	})
	if cacheClient != nil {
		srv.OnShutdown("redis cache", func(context.Context) error {
			return cacheClient.Close()
		})
	}

	logger.Info("starting server",
		"port", cfg.AppPort,
		"store_driver", cfg.StoreDriver,
		"env", cfg.AppEnv,
	)

	return srv.Run()
}

// newLogger builds the process logger from LOG_LEVEL and LOG_FORMAT and
// installs it as the slog default.
func newLogger(cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: logLevel(cfg.LogLevel)}

	var h slog.Handler = slog.NewTextHandler(os.Stdout, opts)
	if cfg.LogFormat == "json" {
		h = slog.NewJSONHandler(os.Stdout, opts)
	}

	logger := slog.New(h)
	slog.SetDefault(logger)
	return logger
}

// logLevel parses a level name, falling back to info on anything it
// does not recognize.
func logLevel(name string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(name)); err != nil {
		return slog.LevelInfo
	}
	return level
}

// openStore opens the configured recipe store backend. Connection
// failures are logged here with credentials redacted; the returned
// error is safe to log anywhere.
func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (repository.RecipeStore, error) {
	switch cfg.StoreDriver {
	case config.StoreDriverPostgres:
		store, err := repository.NewPostgresStore(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Error(
				"failed to connect to database",
				slog.String("error", sanitizeError(err, cfg.DatabaseURL)),
				slog.String("database_url", redactURL(cfg.DatabaseURL)),
			)
			return nil, errors.New("database unavailable")
		}
		logger.Info("connected to database")
		return store, nil
	default:
		logger.Info("using in-memory recipe store")
		return repository.NewMemoryStore(), nil
	}
}

// openCache connects to Redis when configured. A nil client with nil
// error means Redis is absent and the dependent features are disabled.
func openCache(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*cache.Cache, error) {
	if cfg.RedisURL == "" {
		logger.Info("Redis not configured, search caching and rate limiting disabled")
		return nil, nil
	}

	c, err := cache.New(ctx, cfg.RedisURL)
	if err != nil {
		logger.Error(
			"failed to connect to Redis",
			slog.String("error", sanitizeError(err, cfg.RedisURL)),
			slog.String("redis_url", redactURL(cfg.RedisURL)),
		)
		return nil, errors.New("redis unavailable")
	}
	logger.Info("connected to Redis")
	return c, nil
}

// routerDeps collects everything the HTTP layer needs.
type routerDeps struct {
	cfg     *config.Config
	log     *slog.Logger
	cache   *cache.Cache
	root    *handler.Handler
	health  *handler.HealthHandler
	recipes *handler.RecipeHandler
	metrics *handler.MetricsHandler
}

// newRouter wires the middleware stack and all routes.
func newRouter(d routerDeps) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(d.log))
	r.Use(middleware.Recoverer(d.log))
	r.Use(middleware.Security(middleware.SecurityConfig{
		IsDevelopment:      d.cfg.IsDevelopment(),
		MaxRequestBodySize: d.cfg.MaxRequestBodySize,
	}))

	corsCfg := middleware.DefaultCORSConfig()
	if origins := d.cfg.GetCORSAllowedOrigins(); len(origins) > 0 {
		corsCfg.AllowedOrigins = origins
	}
	r.Use(middleware.CORS(corsCfg))
	r.Use(middleware.MaxBodySize(d.cfg.MaxRequestBodySize))

	r.Get("/healthz", d.health.Healthz)
	r.Get("/readyz", d.health.Readyz)
	r.Get("/", d.root.Info)

	// Only combined queries carry a search term, so the limiter guards
	// the listing route alone.
	searchLimit := middleware.RateLimitSearch(middleware.RateLimitConfig{
		Logger:  d.log,
		Cache:   d.cache,
		Enabled: d.cfg.RateLimitSearchEnabled,
		RPS:     d.cfg.RateLimitSearchRPS,
		Burst:   d.cfg.RateLimitSearchBurst,
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/recipes", func(r chi.Router) {
			r.With(searchLimit).Get("/", d.recipes.List)
			r.Post("/", d.recipes.Create)
			r.Get("/export", d.recipes.Export)
			r.Post("/import", d.recipes.Import)
			r.Get("/internal/{id}", d.recipes.GetInternal)
			r.Get("/external/{id}", d.recipes.GetExternal)
			r.Get("/{id}", d.recipes.Get)
			r.Put("/{id}", d.recipes.Update)
			r.Delete("/{id}", d.recipes.Delete)
		})

		r.Route("/metrics", func(r chi.Router) {
			r.Get("/", d.metrics.Get)
			r.Delete("/", d.metrics.Clear)
		})
	})

	r.NotFound(d.root.NotFound)
	r.MethodNotAllowed(d.root.MethodNotAllowed)

	return r
}

var passwordPattern = regexp.MustCompile(`(?i)password=\S+`)

// redactURL strips credentials from a connection URL so it can be
// logged.
func redactURL(raw string) string {
	if raw == "" {
		return ""
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "[redacted]"
	}
	if u.User != nil {
		if name := u.User.Username(); name != "" {
			u.User = url.User(name)
		} else {
			u.User = url.User("redacted")
		}
	}
	return u.String()
}

// sanitizeError rewrites err's message so connection secrets never
// reach the logs.
func sanitizeError(err error, secrets ...string) string {
	if err == nil {
		return ""
	}

	msg := err.Error()
	for _, secret := range secrets {
		if secret == "" {
			continue
		}
		safe := redactURL(secret)
		if safe == "" {
			safe = "[redacted]"
		}
		msg = strings.ReplaceAll(msg, secret, safe)
	}
	return passwordPattern.ReplaceAllString(msg, "password=redacted")
}
