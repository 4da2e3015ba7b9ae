package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jsamuelsen/blogdraft/internal/adapters/http/dto"
	"github.com/jsamuelsen/blogdraft/internal/adapters/http/handlers"
	"github.com/jsamuelsen/blogdraft/internal/adapters/http/middleware"
	"github.com/jsamuelsen/blogdraft/internal/adapters/storage/memory"
	"github.com/jsamuelsen/blogdraft/internal/app"
	"github.com/jsamuelsen/blogdraft/internal/platform/config"
	"github.com/jsamuelsen/blogdraft/internal/platform/telemetry"
	"github.com/jsamuelsen/blogdraft/internal/ports"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func serverConfig() *config.ServerConfig {
	return &config.ServerConfig{
		Host:           "127.0.0.1",
		Port:           0,
		ReadTimeout:    5 * time.Second,
		WriteTimeout:   10 * time.Second,
		IdleTimeout:    30 * time.Second,
		MaxRequestSize: 1 << 10,
	}
}

// newTestRouter wires the full middleware chain over an in-memory service.
func newTestRouter(t *testing.T, origins ...string) (*gin.Engine, *prometheus.Registry) {
	t.Helper()

	gin.SetMode(gin.TestMode)

	reg := prometheus.NewRegistry()
	metrics, err := telemetry.NewMetrics(reg)
	require.NoError(t, err)

	repo := memory.New()
	health := ports.NewHealthRegistry()
	require.NoError(t, health.Register(repo))

	svc := app.NewPostService(app.PostServiceConfig{Repository: repo, Logger: discardLogger()})

	engine := gin.New()
	SetupRouter(engine, RouterConfig{
		Logger:         discardLogger(),
		ServiceName:    "blogdraft-test",
		Health:         handlers.NewHealthHandler(health, handlers.NewBuildInfo("test", "none", ""), reg),
		Blogs:          handlers.NewBlogHandler(svc, metrics),
		Metrics:        metrics,
		RequestTimeout: time.Second,
		CORSOrigins:    origins,
	})

	return engine, reg
}

func TestServer_New(t *testing.T) {
	cfg := serverConfig()
	srv := New(cfg, discardLogger())

	require.NotNil(t, srv.Engine())
	assert.Equal(t, cfg, srv.Config())
	assert.Equal(t, "127.0.0.1:0", srv.Addr())
}

func TestServer_StartShutdown(t *testing.T) {
	srv := New(serverConfig(), discardLogger())
	srv.Engine().GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })

	errCh, err := srv.Start()
	require.NoError(t, err)
	assert.NotEqual(t, "127.0.0.1:0", srv.Addr(), "Addr reports the bound port")

	resp, err := http.Get("http://" + srv.Addr() + "/ping")
	require.NoError(t, err)

	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, "pong", string(body))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	require.NoError(t, srv.Shutdown(ctx))

	_, open := <-errCh
	assert.False(t, open)
}

func TestServer_StartBindError(t *testing.T) {
	first := New(serverConfig(), discardLogger())
	_, err := first.Start()
	require.NoError(t, err)

	t.Cleanup(func() { _ = first.Shutdown(context.Background()) })

	_, port, err := net.SplitHostPort(first.Addr())
	require.NoError(t, err)

	cfg := serverConfig()
	cfg.Port, err = strconv.Atoi(port)
	require.NoError(t, err)

	second := New(cfg, discardLogger())

	_, err = second.Start()
	require.Error(t, err)
}

func TestServer_MaxBodySize(t *testing.T) {
	srv := New(serverConfig(), discardLogger())
	srv.Engine().POST("/echo", func(c *gin.Context) {
		var body map[string]any
		if err := dto.BindJSON(c, &body); err != nil {
			dto.HandleError(c, err)
			return
		}

		c.Status(http.StatusNoContent)
	})

	small := httptest.NewRequest(http.MethodPost, "/echo", strings.NewReader(`{"a":"b"}`))
	small.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	srv.Engine().ServeHTTP(w, small)
	assert.Equal(t, http.StatusNoContent, w.Code)

	big := httptest.NewRequest(http.MethodPost, "/echo",
		strings.NewReader(`{"a":"`+strings.Repeat("x", 2<<10)+`"}`))
	big.Header.Set("Content-Type", "application/json")

	w = httptest.NewRecorder()
	srv.Engine().ServeHTTP(w, big)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "request body is too large")
}

func TestSetupRouter_Routes(t *testing.T) {
	router, _ := newTestRouter(t)

	tests := []struct {
		method   string
		path     string
		wantCode int
	}{
		{http.MethodGet, "/-/live", http.StatusOK},
		{http.MethodGet, "/-/ready", http.StatusOK},
		{http.MethodGet, "/-/build", http.StatusOK},
		{http.MethodGet, "/-/metrics", http.StatusOK},
		{http.MethodGet, "/api/v1/blogs", http.StatusOK},
		{http.MethodGet, "/api/v1/blogs/not-a-uuid", http.StatusBadRequest},
		{http.MethodGet, "/api/v1/unknown", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(tt.method, tt.path, nil))

			assert.Equal(t, tt.wantCode, w.Code)
			assert.NotEmpty(t, w.Header().Get(middleware.HeaderRequestID))
		})
	}
}

func TestSetupRouter_SaveAndRead(t *testing.T) {
	router, reg := newTestRouter(t)

	body := `{"title":"Router test","content":"Content through the full chain","tags":["go"]}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/blogs/save-draft", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(middleware.HeaderCorrelationID, "session-1")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "session-1", w.Header().Get(middleware.HeaderCorrelationID))

	var saved dto.MessageResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &saved))

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/blogs/"+saved.Blog.ID, nil))
	require.Equal(t, http.StatusOK, w.Code)

	families, err := reg.Gather()
	require.NoError(t, err)

	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}

	assert.Contains(t, names, "blogdraft_posts_saved_total")
	assert.Contains(t, names, "blogdraft_http_request_duration_seconds")
}

func TestSetupRouter_CORS(t *testing.T) {
	router, _ := newTestRouter(t, "http://editor.local")

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/blogs/save-draft", nil)
	req.Header.Set("Origin", "http://editor.local")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://editor.local", w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/api/v1/blogs", nil)
	req.Header.Set("Origin", "http://evil.local")

	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
}
