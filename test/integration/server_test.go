//go:build integration

package integration

import (
	"context"
	"io"
	"log/slog"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/jsamuelsen/blogdraft/internal/adapters/clients"
	"github.com/jsamuelsen/blogdraft/internal/adapters/clients/acl"
	httpadapter "github.com/jsamuelsen/blogdraft/internal/adapters/http"
	"github.com/jsamuelsen/blogdraft/internal/adapters/http/handlers"
	"github.com/jsamuelsen/blogdraft/internal/adapters/storage/sqlstore"
	"github.com/jsamuelsen/blogdraft/internal/app"
	"github.com/jsamuelsen/blogdraft/internal/platform/config"
	"github.com/jsamuelsen/blogdraft/internal/platform/telemetry"
	"github.com/jsamuelsen/blogdraft/internal/ports"
)

// apiServer is the blog API wired as cmd/service wires it, over a sqlite
// file in a temp dir.
type apiServer struct {
	URL   string
	Store *sqlstore.Store
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func startAPI(tb testing.TB) *apiServer {
	tb.Helper()

	gin.SetMode(gin.TestMode)

	store, err := sqlstore.Open(context.Background(), sqlstore.Config{
		Driver:       sqlstore.DriverSQLite,
		DSN:          "file:" + filepath.Join(tb.TempDir(), "blog.db") + "?_busy_timeout=5000",
		MaxOpenConns: 4,
	})
	require.NoError(tb, err)
	tb.Cleanup(func() { _ = store.Close() })

	health := ports.NewHealthRegistry()
	require.NoError(tb, health.Register(store))

	reg := prometheus.NewRegistry()
	metrics, err := telemetry.NewMetrics(reg)
	require.NoError(tb, err)

	engine := gin.New()
	httpadapter.SetupRouter(engine, httpadapter.RouterConfig{
		Logger:      discardLogger(),
		ServiceName: "blogdraft-integration",
		Health:      handlers.NewHealthHandler(health, handlers.NewBuildInfo("integration", "none", ""), reg),
		Blogs: handlers.NewBlogHandler(app.NewPostService(app.PostServiceConfig{
			Repository: store,
			Logger:     discardLogger(),
		}), metrics),
		Metrics:        metrics,
		RequestTimeout: 5 * time.Second,
	})

	server := httptest.NewServer(engine)
	tb.Cleanup(server.Close)

	return &apiServer{URL: server.URL, Store: store}
}

// blogClient is the draftsync side: resilient client plus ACL.
func blogClient(tb testing.TB, baseURL string, mutate ...func(*clients.Config)) *acl.BlogClient {
	tb.Helper()

	cfg := clients.Config{
		BaseURL:     baseURL,
		ServiceName: "blog-api",
		Timeout:     5 * time.Second,
		Retry: config.RetryConfig{
			MaxAttempts:     3,
			InitialInterval: 10 * time.Millisecond,
			MaxInterval:     50 * time.Millisecond,
			Multiplier:      2,
		},
		Circuit: config.CircuitBreakerConfig{
			MaxFailures:   5,
			Timeout:       time.Second,
			HalfOpenLimit: 1,
		},
		Logger: discardLogger(),
	}

	for _, m := range mutate {
		m(&cfg)
	}

	client, err := clients.New(cfg)
	require.NoError(tb, err)

	return acl.NewBlogClient(client, cfg.ServiceName, discardLogger())
}
