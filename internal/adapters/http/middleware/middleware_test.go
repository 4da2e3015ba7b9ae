package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jsamuelsen/blogdraft/internal/adapters/http/dto"
	"github.com/jsamuelsen/blogdraft/internal/platform/logging"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// jsonLogger captures log records as JSON lines.
func jsonLogger() (*slog.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})), &buf
}

func serve(router *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	return w
}

func TestIDMiddleware(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		middleware  gin.HandlerFunc
		header      string
		fromContext func(context.Context) string
		incoming    string
	}{
		{name: "request id generated", middleware: RequestID(), header: HeaderRequestID, fromContext: RequestIDFromContext},
		{name: "request id propagated", middleware: RequestID(), header: HeaderRequestID, fromContext: RequestIDFromContext, incoming: "req-123"},
		{name: "correlation id generated", middleware: CorrelationID(), header: HeaderCorrelationID, fromContext: CorrelationIDFromContext},
		{name: "correlation id propagated", middleware: CorrelationID(), header: HeaderCorrelationID, fromContext: CorrelationIDFromContext, incoming: "corr-9"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var seen string

			router := gin.New()
			router.Use(tt.middleware)
			router.GET("/x", func(c *gin.Context) {
				seen = tt.fromContext(c.Request.Context())
				c.Status(http.StatusNoContent)
			})

			req := httptest.NewRequest(http.MethodGet, "/x", nil)
			if tt.incoming != "" {
				req.Header.Set(tt.header, tt.incoming)
			}

			w := serve(router, req)

			echoed := w.Header().Get(tt.header)
			require.NotEmpty(t, echoed)
			assert.Equal(t, echoed, seen)

			if tt.incoming != "" {
				assert.Equal(t, tt.incoming, echoed)
			} else {
				assert.Len(t, echoed, 36)
			}
		})
	}
}

func TestIDFromContext_Missing(t *testing.T) {
	assert.Empty(t, RequestIDFromContext(context.Background()))
	assert.Empty(t, CorrelationIDFromContext(nil)) //nolint:staticcheck // nil context is handled
	assert.Equal(t, "abc", CorrelationIDFromContext(ContextWithCorrelationID(context.Background(), "abc")))
}

func TestAccessLog(t *testing.T) {
	logger, buf := jsonLogger()

	router := gin.New()
	router.Use(ContextLogger(logger), RequestID(), AccessLog())
	router.GET("/api/v1/blogs/:id", func(c *gin.Context) { c.Status(http.StatusNotFound) })
	router.GET("/-/live", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/api/v1/blogs/42?x=1", nil)
	req.Header.Set(HeaderRequestID, "req-1")
	serve(router, req)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))

	assert.Equal(t, "request completed", entry["msg"])
	assert.Equal(t, "WARN", entry["level"])
	assert.Equal(t, "/api/v1/blogs/:id", entry["route"])
	assert.Equal(t, "x=1", entry["query"])
	assert.Equal(t, "req-1", entry["request_id"])
	assert.InDelta(t, http.StatusNotFound, entry["status"], 0)

	buf.Reset()
	serve(router, httptest.NewRequest(http.MethodGet, "/-/live", nil))
	assert.Zero(t, buf.Len(), "probe requests are not logged")
}

func TestRecovery(t *testing.T) {
	logger, buf := jsonLogger()

	router := gin.New()
	router.Use(ContextLogger(logger), Recovery())
	router.GET("/boom", func(*gin.Context) { panic("kaboom") })

	w := serve(router, httptest.NewRequest(http.MethodGet, "/boom", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)

	var resp dto.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, dto.ErrorCodeInternal, resp.Error.Code)
	assert.Contains(t, buf.String(), "panic recovered")
	assert.Contains(t, buf.String(), "kaboom")
}

func TestDeadline(t *testing.T) {
	tests := []struct {
		name       string
		timeout    time.Duration
		handler    gin.HandlerFunc
		wantStatus int
	}{
		{
			name:       "fast handler",
			timeout:    time.Second,
			handler:    func(c *gin.Context) { c.Status(http.StatusOK) },
			wantStatus: http.StatusOK,
		},
		{
			name:    "slow handler without response",
			timeout: 10 * time.Millisecond,
			handler: func(c *gin.Context) {
				<-c.Request.Context().Done()
			},
			wantStatus: http.StatusGatewayTimeout,
		},
		{
			name:    "slow handler that already answered",
			timeout: 10 * time.Millisecond,
			handler: func(c *gin.Context) {
				<-c.Request.Context().Done()
				c.Status(http.StatusServiceUnavailable)
				c.Writer.WriteHeaderNow()
			},
			wantStatus: http.StatusServiceUnavailable,
		},
		{
			name:    "disabled",
			timeout: 0,
			handler: func(c *gin.Context) {
				_, ok := c.Request.Context().Deadline()
				assert.False(t, ok)
				c.Status(http.StatusOK)
			},
			wantStatus: http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := gin.New()
			router.Use(ContextLogger(logging.FromContext(context.Background())), Deadline(tt.timeout))
			router.GET("/slow", tt.handler)

			w := serve(router, httptest.NewRequest(http.MethodGet, "/slow", nil))
			assert.Equal(t, tt.wantStatus, w.Code)
		})
	}
}
