package telemetry

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/trace"
)

// TraceIDHeader carries the trace id of a request back to the caller.
const TraceIDHeader = "X-Trace-ID"

// Tracing starts a server span per request with otelgin and echoes the
// trace id in TraceIDHeader.
func Tracing(serviceName string) []gin.HandlerFunc {
	return []gin.HandlerFunc{
		otelgin.Middleware(serviceName),
		func(c *gin.Context) {
			if sc := trace.SpanFromContext(c.Request.Context()).SpanContext(); sc.HasTraceID() {
				c.Header(TraceIDHeader, sc.TraceID().String())
			}

			c.Next()
		},
	}
}

// Metrics holds the Prometheus collectors of the blog API.
type Metrics struct {
	requestDuration *prometheus.HistogramVec
	inFlight        prometheus.Gauge
	postsSaved      *prometheus.CounterVec
	postsDeleted    prometheus.Counter
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "blogdraft",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by route and status.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "blogdraft",
			Subsystem: "http",
			Name:      "requests_in_flight",
			Help:      "Requests currently being served.",
		}),
		postsSaved: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "blogdraft",
			Name:      "posts_saved_total",
			Help:      "Posts saved, by resulting status and whether the save created the post.",
		}, []string{"status", "created"}),
		postsDeleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "blogdraft",
			Name:      "posts_deleted_total",
			Help:      "Posts deleted.",
		}),
	}

	for _, c := range []prometheus.Collector{m.requestDuration, m.inFlight, m.postsSaved, m.postsDeleted} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}

	return m, nil
}

// Handler records latency and in-flight requests.
func (m *Metrics) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		m.inFlight.Inc()
		defer m.inFlight.Dec()

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}

		m.requestDuration.
			WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).
			Observe(time.Since(start).Seconds())
	}
}

// PostSaved counts one successful save or publish.
func (m *Metrics) PostSaved(status string, created bool) {
	if m == nil {
		return
	}

	m.postsSaved.WithLabelValues(status, strconv.FormatBool(created)).Inc()
}

// PostDeleted counts one successful delete.
func (m *Metrics) PostDeleted() {
	if m == nil {
		return
	}

	m.postsDeleted.Inc()
}
