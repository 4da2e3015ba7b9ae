package http

import (
	"log/slog"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/jsamuelsen/blogdraft/internal/adapters/http/handlers"
	"github.com/jsamuelsen/blogdraft/internal/adapters/http/middleware"
	"github.com/jsamuelsen/blogdraft/internal/platform/telemetry"
)

// DefaultRequestTimeout bounds /api/v1 requests when none is configured.
const DefaultRequestTimeout = 15 * time.Second

// RouterConfig contains everything SetupRouter mounts.
type RouterConfig struct {
	Logger *slog.Logger

	// ServiceName names the server spans.
	ServiceName string

	Health *handlers.HealthHandler
	Blogs  *handlers.BlogHandler

	// Metrics records request latency; nil disables it.
	Metrics *telemetry.Metrics

	// RequestTimeout is the deadline of /api/v1 requests. Zero disables it.
	RequestTimeout time.Duration

	// CORSOrigins are the editor origins allowed to call the API. Empty
	// disables CORS handling.
	CORSOrigins []string
}

// SetupRouter configures middleware and routes on the engine.
// Middleware runs in this order:
//  1. Recovery
//  2. Context logger, request id, correlation id
//  3. OpenTelemetry tracing and Prometheus metrics
//  4. CORS
//  5. Access log (skips /-/ routes)
//  6. Deadline (/api/v1 only)
//
// Route groups:
//   - /-/: probes, build info and metrics
//   - /api/v1/blogs: the blog API
func SetupRouter(engine *gin.Engine, cfg RouterConfig) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	engine.Use(
		middleware.Recovery(),
		middleware.ContextLogger(logger),
		middleware.RequestID(),
		middleware.CorrelationID(),
	)
	engine.Use(telemetry.Tracing(cfg.ServiceName)...)

	if cfg.Metrics != nil {
		engine.Use(cfg.Metrics.Handler())
	}

	if len(cfg.CORSOrigins) > 0 {
		engine.Use(cors.New(corsConfig(cfg.CORSOrigins)))
	}

	engine.Use(middleware.AccessLog())

	if cfg.Health != nil {
		cfg.Health.Register(engine)
	}

	apiV1 := engine.Group("/api/v1")
	apiV1.Use(middleware.Deadline(cfg.RequestTimeout))

	if cfg.Blogs != nil {
		cfg.Blogs.Register(apiV1)
	}
}

func corsConfig(origins []string) cors.Config {
	return cors.Config{
		AllowOrigins: origins,
		AllowMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders: []string{
			"Origin", "Content-Type", "Accept",
			middleware.HeaderRequestID, middleware.HeaderCorrelationID,
		},
		ExposeHeaders: []string{
			middleware.HeaderRequestID, middleware.HeaderCorrelationID, telemetry.TraceIDHeader,
		},
		MaxAge: 12 * time.Hour,
	}
}
