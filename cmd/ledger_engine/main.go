package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	portsrepo "github.com/SscSPs/ledger_engine/internal/core/ports/repositories"
	"github.com/SscSPs/ledger_engine/internal/core/services"
	"github.com/SscSPs/ledger_engine/internal/handlers"
	"github.com/SscSPs/ledger_engine/internal/middleware"
	"github.com/SscSPs/ledger_engine/internal/platform/config"
	rediscache "github.com/SscSPs/ledger_engine/internal/repositories/cache/redis"
	"github.com/SscSPs/ledger_engine/internal/repositories/database/pgsql"
	"github.com/SscSPs/ledger_engine/internal/repositories/memory"
	"github.com/SscSPs/ledger_engine/pkg/database"
	"github.com/gin-gonic/gin"
)

// @title Ledger Engine API
// @version 1.0
// @description Double-entry transfers between accounts with exactly-once idempotency.

// @host localhost:8080
// @BasePath /api/v1
func main() {
	// Initialize structured logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("Failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	repos, cleanup, err := buildRepositories(context.Background(), cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize ledger store", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer cleanup()

	if cfg.RedisURL != "" {
		client, err := rediscache.NewClient(context.Background(), cfg.RedisURL)
		if err != nil {
			// The cache only shortens replays; run without it.
			logger.Warn("Redis unavailable, idempotency cache disabled", slog.String("error", err.Error()))
		} else {
			defer client.Close()
			repos.IdempotencyCache = rediscache.NewIdempotencyCache(client, rediscache.WithTTL(cfg.IdempotencyCacheTTL))
			logger.Info("Idempotency cache enabled", slog.Duration("ttl", cfg.IdempotencyCacheTTL))
		}
	}

	serviceContainer := services.NewServiceContainer(cfg, repos)

	rateLimiter, err := middleware.NewLimiter(cfg.RateLimit)
	if err != nil {
		logger.Error("Invalid RATE_LIMIT", slog.String("rate", cfg.RateLimit), slog.String("error", err.Error()))
		os.Exit(1)
	}

	if cfg.IsProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Global middleware (logging, recovery)
	r.Use(middleware.StructuredLoggingMiddleware(logger), gin.Recovery())

	err = r.SetTrustedProxies(nil)
	if err != nil {
		logger.Error("Failed to set trusted proxies", slog.String("error", err.Error()))
		os.Exit(1)
	}

	handlers.RegisterRoutes(r, cfg, serviceContainer, rateLimiter)

	logger.Info("Server starting", slog.String("port", cfg.Port), slog.String("ledger_store", cfg.LedgerStore))
	if err := r.Run(":" + cfg.Port); err != nil {
		logger.Error("Server failed to run", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

// buildRepositories opens the configured ledger store. The returned cleanup releases it.
func buildRepositories(ctx context.Context, cfg *config.Config, logger *slog.Logger) (portsrepo.RepositoryProvider, func(), error) {
	if cfg.LedgerStore == config.StoreMemory {
		store := memory.NewStore(memory.WithLockTimeout(cfg.LockTimeout))
		n, err := store.Seed(cfg.SeedAccounts, time.Now().UTC())
		if err != nil {
			return portsrepo.RepositoryProvider{}, nil, err
		}
		logger.Info("In-memory ledger store ready", slog.Int("seeded_accounts", n))
		return portsrepo.RepositoryProvider{LedgerStore: store}, func() {}, nil
	}

	dbPool, err := database.NewPgxPool(ctx, cfg.DatabaseURL, cfg.EnableDBCheck)
	if err != nil {
		return portsrepo.RepositoryProvider{}, nil, err
	}
	logger.Info("Database connection pool established.")

	logger.Info("Running database migrations...")
	if err := database.RunMigrations(cfg.DatabaseURL, cfg.MigrationsPath, logger); err != nil {
		dbPool.Close()
		return portsrepo.RepositoryProvider{}, nil, err
	}

	return pgsql.NewRepositoryProvider(dbPool, pgsql.WithLockTimeout(cfg.LockTimeout)), dbPool.Close, nil
}
