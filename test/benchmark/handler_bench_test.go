package benchmark

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	httpadapter "github.com/jsamuelsen/blogdraft/internal/adapters/http"
	"github.com/jsamuelsen/blogdraft/internal/adapters/http/handlers"
	"github.com/jsamuelsen/blogdraft/internal/adapters/http/middleware"
	"github.com/jsamuelsen/blogdraft/internal/adapters/storage/memory"
	"github.com/jsamuelsen/blogdraft/internal/app"
	"github.com/jsamuelsen/blogdraft/internal/domain"
	"github.com/jsamuelsen/blogdraft/internal/ports"
)

func init() {
	// Set Gin to release mode for accurate benchmarks
	gin.SetMode(gin.ReleaseMode)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// createGinContext creates a Gin context for handler testing.
func createGinContext(w http.ResponseWriter, r *http.Request) *gin.Context {
	c, _ := gin.CreateTestContext(w)
	c.Request = r
	return c
}

// setupHealthHandler creates a HealthHandler with a minimal registry for benchmarking.
func setupHealthHandler(checkers ...ports.HealthChecker) *handlers.HealthHandler {
	registry := ports.NewHealthRegistry()
	for _, hc := range checkers {
		_ = registry.Register(hc)
	}

	buildInfo := handlers.NewBuildInfo("1.0.0", "abc123", "2024-01-01T00:00:00Z")
	return handlers.NewHealthHandler(registry, buildInfo, nil)
}

// setupRouter wires the full API over an in-memory repository holding n posts.
func setupRouter(b *testing.B, n int) (*gin.Engine, []string) {
	b.Helper()

	repo := memory.New()
	svc := app.NewPostService(app.PostServiceConfig{Repository: repo, Logger: discardLogger()})

	ids := make([]string, 0, n)
	for i := range n {
		res, err := svc.SaveDraft(context.Background(), domain.PostInput{
			Title:   fmt.Sprintf("Benchmark post %d", i),
			Content: "Content long enough to pass validation.",
			Tags:    []string{"go", fmt.Sprintf("tag%d", i%5)},
		}, "")
		if err != nil {
			b.Fatal(err)
		}

		ids = append(ids, res.Post.ID)
	}

	engine := gin.New()
	httpadapter.SetupRouter(engine, httpadapter.RouterConfig{
		Logger:      discardLogger(),
		ServiceName: "blogdraft-bench",
		Health:      setupHealthHandler(repo),
		Blogs:       handlers.NewBlogHandler(svc, nil),
	})

	return engine, ids
}

// BenchmarkLivenessHandler measures the performance of the liveness endpoint.
// This is a critical path for Kubernetes probes and should be extremely fast.
func BenchmarkLivenessHandler(b *testing.B) {
	handler := setupHealthHandler()
	req := httptest.NewRequest(http.MethodGet, "/-/live", http.NoBody)

	b.ReportAllocs()

	for b.Loop() {
		w := httptest.NewRecorder()
		handler.Liveness(createGinContext(w, req))
	}
}

// BenchmarkReadinessHandler measures readiness with registered health checks.
func BenchmarkReadinessHandler(b *testing.B) {
	handler := setupHealthHandler(
		&simpleHealthChecker{name: "database"},
		&simpleHealthChecker{name: "cache"},
	)
	req := httptest.NewRequest(http.MethodGet, "/-/ready", http.NoBody)

	b.ReportAllocs()

	for b.Loop() {
		w := httptest.NewRecorder()
		handler.Readiness(createGinContext(w, req))
	}
}

func BenchmarkBuildHandler(b *testing.B) {
	handler := setupHealthHandler()
	req := httptest.NewRequest(http.MethodGet, "/-/build", http.NoBody)

	b.ReportAllocs()

	for b.Loop() {
		w := httptest.NewRecorder()
		handler.Build(createGinContext(w, req))
	}
}

func BenchmarkGetBlog(b *testing.B) {
	router, ids := setupRouter(b, 1)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/blogs/"+ids[0], http.NoBody)

	b.ReportAllocs()

	for b.Loop() {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			b.Fatalf("status %d: %s", w.Code, w.Body)
		}
	}
}

// BenchmarkListBlogs measures a filtered, paginated listing.
func BenchmarkListBlogs(b *testing.B) {
	for _, n := range []int{10, 100, 1000} {
		b.Run(fmt.Sprintf("posts=%d", n), func(b *testing.B) {
			router, _ := setupRouter(b, n)
			req := httptest.NewRequest(http.MethodGet, "/api/v1/blogs?status=draft&tags=tag1&limit=20", http.NoBody)

			b.ReportAllocs()

			for b.Loop() {
				w := httptest.NewRecorder()
				router.ServeHTTP(w, req)
			}
		})
	}
}

// BenchmarkSaveDraft_Update measures the auto-save hot path: an existing
// draft rewritten in place.
func BenchmarkSaveDraft_Update(b *testing.B) {
	router, ids := setupRouter(b, 1)
	path := "/api/v1/blogs/save-draft/" + ids[0]
	body := `{"title":"Benchmark post 0","content":"Content rewritten by the benchmark loop.","tags":["go","bench"]}`

	b.ReportAllocs()

	for b.Loop() {
		req := httptest.NewRequest(http.MethodPut, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")

		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			b.Fatalf("status %d: %s", w.Code, w.Body)
		}
	}
}

// BenchmarkSaveDraft_Invalid measures rejection of a draft that fails
// validation before reaching the repository.
func BenchmarkSaveDraft_Invalid(b *testing.B) {
	router, _ := setupRouter(b, 0)
	body := `{"title":"Hi","content":"short"}`

	b.ReportAllocs()

	for b.Loop() {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/blogs/save-draft", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")

		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
	}
}

// BenchmarkMiddlewareChain measures the overhead of the middleware chain.
func BenchmarkMiddlewareChain(b *testing.B) {
	router := gin.New()
	router.Use(gin.Recovery())
	router.GET("/test", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	req := httptest.NewRequest(http.MethodGet, "/test", http.NoBody)

	b.ReportAllocs()

	for b.Loop() {
		router.ServeHTTP(httptest.NewRecorder(), req)
	}
}

// BenchmarkMiddlewareChain_Full measures the chain the API group runs.
func BenchmarkMiddlewareChain_Full(b *testing.B) {
	router := gin.New()
	router.Use(
		middleware.Recovery(),
		middleware.ContextLogger(discardLogger()),
		middleware.RequestID(),
		middleware.CorrelationID(),
		middleware.AccessLog(),
		middleware.Deadline(0),
	)
	router.GET("/test", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	req := httptest.NewRequest(http.MethodGet, "/test", http.NoBody)

	b.ReportAllocs()

	for b.Loop() {
		router.ServeHTTP(httptest.NewRecorder(), req)
	}
}

// simpleHealthChecker is a minimal health checker for benchmarking.
type simpleHealthChecker struct {
	name string
}

func (s *simpleHealthChecker) Name() string {
	return s.name
}

func (s *simpleHealthChecker) Check(_ context.Context) error {
	return nil
}
