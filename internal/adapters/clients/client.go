package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"math/rand/v2"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"k8s.io/utils/clock"

	"github.com/jsamuelsen/blogdraft/internal/adapters/http/middleware"
	"github.com/jsamuelsen/blogdraft/internal/platform/config"
	"github.com/jsamuelsen/blogdraft/internal/platform/logging"
)

const (
	instrumentationName = "github.com/jsamuelsen/blogdraft/internal/adapters/clients"

	defaultTimeout   = 30 * time.Second
	defaultUserAgent = "blogdraft-client"
)

// Config configures a Client.
type Config struct {
	// BaseURL prefixes every request path, e.g. "http://localhost:8080".
	BaseURL string

	// ServiceName names the downstream in logs, spans and metrics.
	ServiceName string

	// Timeout bounds a single attempt. Retries and backoff come on top.
	Timeout time.Duration

	Retry     config.RetryConfig
	Circuit   config.CircuitBreakerConfig
	Transport config.TransportConfig

	// UserAgent defaults to "blogdraft-client".
	UserAgent string

	// Clock drives backoff and the breaker cool-down. Defaults to the real clock.
	Clock clock.Clock

	Logger *slog.Logger
}

// Client sends JSON requests to one downstream service with retries,
// a circuit breaker, OpenTelemetry spans and metrics, and request and
// correlation id propagation.
type Client struct {
	http    *http.Client
	cfg     Config
	baseURL string
	logger  *slog.Logger
	breaker *Breaker
	clock   clock.Clock

	tracer   trace.Tracer
	duration metric.Float64Histogram
	total    metric.Int64Counter
}

// New creates a Client. ServiceName is required; zero retry and transport
// settings fall back to a single attempt and the net/http defaults.
func New(cfg Config) (*Client, error) {
	if cfg.ServiceName == "" {
		return nil, errors.New("service name is required")
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}

	if cfg.Retry.MaxAttempts < 1 {
		cfg.Retry.MaxAttempts = 1
	}

	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}

	if cfg.Clock == nil {
		cfg.Clock = clock.RealClock{}
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	logger = logger.With(slog.String("component", "clients"), slog.String("downstream", cfg.ServiceName))

	breaker := NewBreaker(BreakerConfig{
		MaxFailures:   cfg.Circuit.MaxFailures,
		CoolDown:      cfg.Circuit.Timeout,
		HalfOpenLimit: cfg.Circuit.HalfOpenLimit,
	}, cfg.Clock)
	breaker.OnTransition(func(from, to State) {
		logger.Warn("circuit breaker state changed",
			slog.String("from", from.String()),
			slog.String("to", to.String()),
		)
	})

	meter := otel.Meter(instrumentationName)

	duration, err := meter.Float64Histogram("blogdraft.client.request.duration",
		metric.WithDescription("Duration of calls to a downstream service, retries included."),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating duration metric: %w", err)
	}

	total, err := meter.Int64Counter("blogdraft.client.request.total",
		metric.WithDescription("Calls to a downstream service by outcome."),
	)
	if err != nil {
		return nil, fmt.Errorf("creating request counter: %w", err)
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	if cfg.Transport.MaxIdleConns > 0 {
		transport.MaxIdleConns = cfg.Transport.MaxIdleConns
	}

	if cfg.Transport.MaxIdleConnsPerHost > 0 {
		transport.MaxIdleConnsPerHost = cfg.Transport.MaxIdleConnsPerHost
	}

	if cfg.Transport.IdleConnTimeout > 0 {
		transport.IdleConnTimeout = cfg.Transport.IdleConnTimeout
	}

	return &Client{
		http:     &http.Client{Timeout: cfg.Timeout, Transport: transport},
		cfg:      cfg,
		baseURL:  strings.TrimSuffix(cfg.BaseURL, "/"),
		logger:   logger,
		breaker:  breaker,
		clock:    cfg.Clock,
		tracer:   otel.Tracer(instrumentationName),
		duration: duration,
		total:    total,
	}, nil
}

// Get sends a GET request.
func (c *Client) Get(ctx context.Context, path string) (*http.Response, error) {
	return c.Do(ctx, http.MethodGet, path, nil)
}

// Post sends body as JSON. POST is never retried: a lost response may
// still have created the resource.
func (c *Client) Post(ctx context.Context, path string, body any) (*http.Response, error) {
	return c.sendJSON(ctx, http.MethodPost, path, body)
}

// Put sends body as JSON.
func (c *Client) Put(ctx context.Context, path string, body any) (*http.Response, error) {
	return c.sendJSON(ctx, http.MethodPut, path, body)
}

// Delete sends a DELETE request.
func (c *Client) Delete(ctx context.Context, path string) (*http.Response, error) {
	return c.Do(ctx, http.MethodDelete, path, nil)
}

func (c *Client) sendJSON(ctx context.Context, method, path string, body any) (*http.Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encoding request body: %w", err)
	}

	return c.Do(ctx, method, path, payload)
}

// Do sends the request, retrying idempotent methods on transport errors and
// 5xx responses. The final response is returned whatever its status; only
// transport failures and an open circuit produce an error.
func (c *Client) Do(ctx context.Context, method, path string, body []byte) (*http.Response, error) {
	start := c.clock.Now()
	logger := logging.FromContextOr(ctx, c.logger).With(
		slog.String("downstream", c.cfg.ServiceName),
		slog.String("method", method),
		slog.String("path", path),
	)

	if err := c.breaker.Acquire(); err != nil {
		c.record(ctx, method, 0, start, "circuit_open")
		logger.WarnContext(ctx, "request blocked by circuit breaker")

		return nil, err
	}

	ctx, span := c.tracer.Start(ctx, "HTTP "+method+" "+c.cfg.ServiceName,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", method),
			attribute.String("url.full", c.url(path)),
			attribute.String("peer.service", c.cfg.ServiceName),
		),
	)
	defer span.End()

	resp, err := c.attempts(ctx, method, path, body, logger)

	switch {
	case err != nil && ctx.Err() != nil:
		c.breaker.Release()
		span.SetStatus(codes.Error, err.Error())
		c.record(ctx, method, 0, start, "canceled")

		return nil, err

	case err != nil:
		c.breaker.Failure()
		span.SetStatus(codes.Error, err.Error())
		c.record(ctx, method, 0, start, "error")
		logger.ErrorContext(ctx, "request failed",
			slog.Duration("duration", c.clock.Since(start)),
			slog.Any("error", err),
		)

		return nil, fmt.Errorf("%w: %w", ErrMaxRetriesExceeded, err)
	}

	if resp.StatusCode >= http.StatusInternalServerError {
		c.breaker.Failure()
	} else {
		c.breaker.Success()
	}

	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))

	if resp.StatusCode >= http.StatusBadRequest {
		span.SetStatus(codes.Error, "HTTP "+strconv.Itoa(resp.StatusCode))
	}

	c.record(ctx, method, resp.StatusCode, start, strconv.Itoa(resp.StatusCode/100)+"xx")
	logger.DebugContext(ctx, "request completed",
		slog.Int("status", resp.StatusCode),
		slog.Duration("duration", c.clock.Since(start)),
	)

	return resp, nil
}

func (c *Client) attempts(ctx context.Context, method, path string, body []byte, logger *slog.Logger) (*http.Response, error) {
	maxAttempts := c.cfg.Retry.MaxAttempts
	if !idempotent(method) {
		maxAttempts = 1
	}

	var lastErr error

	for attempt := range maxAttempts {
		if attempt > 0 {
			backoff := c.backoff(attempt)
			logger.DebugContext(ctx, "retrying request",
				slog.Int("attempt", attempt+1),
				slog.Duration("backoff", backoff),
			)

			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-c.clock.After(backoff):
			}
		}

		req, err := c.newRequest(ctx, method, path, body)
		if err != nil {
			return nil, err
		}

		resp, err := c.http.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}

			if !retryable(err) {
				return nil, err
			}

			lastErr = err

			continue
		}

		if resp.StatusCode < http.StatusInternalServerError || attempt == maxAttempts-1 {
			return resp, nil
		}

		logger.DebugContext(ctx, "server error, will retry",
			slog.Int("attempt", attempt+1),
			slog.Int("status", resp.StatusCode),
		)
		drain(resp)
	}

	return nil, lastErr
}

func (c *Client) newRequest(ctx context.Context, method, path string, body []byte) (*http.Request, error) {
	var reader io.Reader = http.NoBody
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.url(path), reader)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.cfg.UserAgent)

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if id := middleware.RequestIDFromContext(ctx); id != "" {
		req.Header.Set(middleware.HeaderRequestID, id)
	}

	if id := middleware.CorrelationIDFromContext(ctx); id != "" {
		req.Header.Set(middleware.HeaderCorrelationID, id)
	}

	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	return req, nil
}

// CircuitState returns the breaker state.
func (c *Client) CircuitState() State {
	return c.breaker.State()
}

func (c *Client) url(path string) string {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	return c.baseURL + path
}

// backoff is InitialInterval * Multiplier^(attempt-1), capped at MaxInterval,
// with +/- JitterFactor applied.
func (c *Client) backoff(attempt int) time.Duration {
	r := c.cfg.Retry
	multiplier := max(r.Multiplier, 1)

	d := float64(r.InitialInterval) * math.Pow(multiplier, float64(attempt-1))
	if r.MaxInterval > 0 {
		d = math.Min(d, float64(r.MaxInterval))
	}

	if r.JitterFactor > 0 {
		d += d * r.JitterFactor * (rand.Float64()*2 - 1) //nolint:gosec // jitter needs no crypto randomness
	}

	return time.Duration(d)
}

func (c *Client) record(ctx context.Context, method string, status int, start time.Time, result string) {
	attrs := []attribute.KeyValue{
		attribute.String("http.request.method", method),
		attribute.String("peer.service", c.cfg.ServiceName),
		attribute.String("result", result),
	}

	if status > 0 {
		attrs = append(attrs, attribute.Int("http.response.status_code", status))
	}

	c.duration.Record(ctx, c.clock.Since(start).Seconds(), metric.WithAttributes(attrs...))
	c.total.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func idempotent(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodPut, http.MethodDelete, http.MethodOptions:
		return true
	default:
		return false
	}
}

// retryable reports whether a transport error is worth another attempt.
// Per-attempt timeouts and connection-level failures are.
func retryable(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	if errors.Is(err, context.Canceled) {
		return false
	}

	var opErr *net.OpError

	return errors.As(err, &opErr) || errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF)
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	_ = resp.Body.Close()
}
