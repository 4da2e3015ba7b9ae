// Package main is the entry point for the blog API.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/jsamuelsen/blogdraft/internal/adapters/cache"
	"github.com/jsamuelsen/blogdraft/internal/adapters/http"
	"github.com/jsamuelsen/blogdraft/internal/adapters/http/handlers"
	"github.com/jsamuelsen/blogdraft/internal/adapters/storage/memory"
	"github.com/jsamuelsen/blogdraft/internal/adapters/storage/sqlstore"
	"github.com/jsamuelsen/blogdraft/internal/app"
	"github.com/jsamuelsen/blogdraft/internal/platform/config"
	"github.com/jsamuelsen/blogdraft/internal/platform/logging"
	"github.com/jsamuelsen/blogdraft/internal/platform/telemetry"
	"github.com/jsamuelsen/blogdraft/internal/ports"
)

// Build-time variables, injected via ldflags.
// Example: go build -ldflags "-X main.Version=1.0.0 -X main.Commit=$(git rev-parse HEAD) -X main.BuildTime=$(date -u +%Y-%m-%dT%H:%M:%SZ)"
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx := context.Background()

	profile := os.Getenv("APP_ENVIRONMENT")
	if profile == "" {
		profile = "local"
	}

	cfg, err := config.Load(profile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logger := logging.New(&logging.Config{
		Level:   cfg.Log.Level,
		Format:  cfg.Log.Format,
		Service: cfg.App.Name,
		Version: cfg.App.Version,
		File: logging.FileConfig{
			Enabled:    cfg.Log.File.Enabled,
			Path:       cfg.Log.File.Path,
			MaxSizeMB:  cfg.Log.File.MaxSizeMB,
			MaxBackups: cfg.Log.File.MaxBackups,
			MaxAgeDays: cfg.Log.File.MaxAgeDays,
			Compress:   cfg.Log.File.Compress,
		},
	})
	logging.SetDefault(logger)

	logger.Info("starting service",
		slog.String("version", Version),
		slog.String("commit", Commit),
		slog.String("environment", cfg.App.Environment),
		slog.String("storage", cfg.Storage.Driver),
	)

	telProvider, err := telemetry.New(ctx, &telemetry.Config{
		Enabled:      cfg.Telemetry.Enabled,
		Endpoint:     cfg.Telemetry.Endpoint,
		ServiceName:  cfg.Telemetry.ServiceName,
		Version:      cfg.App.Version,
		Environment:  cfg.App.Environment,
		SamplingRate: cfg.Telemetry.SamplingRate,
	})
	if err != nil {
		return fmt.Errorf("initializing telemetry: %w", err)
	}

	defer func() {
		if shutdownErr := telProvider.Shutdown(ctx); shutdownErr != nil {
			logger.Error("telemetry shutdown error", slog.Any("error", shutdownErr))
		}
	}()

	healthRegistry := ports.NewHealthRegistry()

	repo, closeRepo, err := openRepository(ctx, &cfg.Storage, logger)
	if err != nil {
		return err
	}
	defer closeRepo()

	if err := healthRegistry.Register(repo); err != nil {
		return fmt.Errorf("registering storage health check: %w", err)
	}

	var postCache ports.Cache

	if cfg.Cache.Enabled {
		redisCache := cache.NewRedis(cache.Config{
			Addr:     cfg.Cache.Addr,
			Password: cfg.Cache.Password,
			DB:       cfg.Cache.DB,
		})
		defer func() { _ = redisCache.Close() }()

		// The service keeps serving from storage when Redis is down.
		if err := healthRegistry.Register(redisCache, ports.Optional(), ports.WithCheckTimeout(time.Second)); err != nil {
			return fmt.Errorf("registering cache health check: %w", err)
		}

		postCache = redisCache
	}

	postService := app.NewPostService(app.PostServiceConfig{
		Repository: repo,
		Cache:      postCache,
		CacheTTL:   cfg.Cache.TTL,
		Logger:     logger,
	})

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	metrics, err := telemetry.NewMetrics(registry)
	if err != nil {
		return fmt.Errorf("registering metrics: %w", err)
	}

	buildInfo := handlers.NewBuildInfo(Version, Commit, BuildTime)

	server := http.New(&cfg.Server, logger)

	http.SetupRouter(server.Engine(), http.RouterConfig{
		Logger:         logger,
		ServiceName:    cfg.App.Name,
		Health:         handlers.NewHealthHandler(healthRegistry, buildInfo, registry),
		Blogs:          handlers.NewBlogHandler(postService, metrics),
		Metrics:        metrics,
		RequestTimeout: cfg.Server.RequestTimeout,
		CORSOrigins:    cfg.Server.CORSOrigins,
	})

	serverErr, err := server.Start()
	if err != nil {
		return fmt.Errorf("starting server: %w", err)
	}

	return waitForShutdown(ctx, logger, server, serverErr, cfg.Server.ShutdownTimeout)
}

// repository is what the service needs from a storage backend.
type repository interface {
	ports.PostRepository
	ports.HealthChecker
}

func openRepository(ctx context.Context, cfg *config.StorageConfig, logger *slog.Logger) (repository, func(), error) {
	if cfg.Driver == "memory" {
		logger.Warn("using in-memory storage, posts are lost on restart")
		return memory.New(), func() {}, nil
	}

	store, err := sqlstore.Open(ctx, sqlstore.Config{
		Driver:          cfg.Driver,
		DSN:             cfg.DSN,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
		Logger:          logger,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("opening %s storage: %w", cfg.Driver, err)
	}

	return store, func() {
		if err := store.Close(); err != nil {
			logger.Error("closing storage", slog.Any("error", err))
		}
	}, nil
}

// waitForShutdown blocks until a shutdown signal is received or the server
// fails, then drains in-flight requests.
func waitForShutdown(
	ctx context.Context,
	logger *slog.Logger,
	server *http.Server,
	serverErr <-chan error,
	shutdownTimeout time.Duration,
) error {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err, ok := <-serverErr:
		if ok && err != nil {
			return fmt.Errorf("server error: %w", err)
		}

		return nil

	case sig := <-quit:
		logger.Info("received shutdown signal", slog.String("signal", sig.String()))
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()

	logger.Info("initiating graceful shutdown", slog.Duration("timeout", shutdownTimeout))

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	logger.Info("shutdown complete")

	return nil
}
