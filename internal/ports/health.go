package ports

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrDuplicateChecker is returned when a checker name is registered twice.
var ErrDuplicateChecker = errors.New("duplicate health checker")

// DefaultCheckTimeout bounds a single health check.
const DefaultCheckTimeout = 2 * time.Second

// HealthChecker is implemented by adapters that can report their health.
//
//	func (s *Store) Name() string { return "sqlite" }
//	func (s *Store) Check(ctx context.Context) error { return s.db.PingContext(ctx) }
type HealthChecker interface {
	Name() string
	Check(ctx context.Context) error
}

// HealthRegistry aggregates health checks registered at startup.
type HealthRegistry interface {
	Register(checker HealthChecker, opts ...RegisterOption) error
	CheckAll(ctx context.Context) *HealthResult
}

// HealthStatus is the state of one check or of the whole service.
type HealthStatus string

const (
	HealthStatusHealthy   HealthStatus = "healthy"
	HealthStatusDegraded  HealthStatus = "degraded"
	HealthStatusUnhealthy HealthStatus = "unhealthy"
)

// HealthResult is the aggregate of all checks.
type HealthResult struct {
	Status    HealthStatus            `json:"status"`
	Checks    map[string]*CheckResult `json:"checks"`
	Timestamp time.Time               `json:"timestamp"`
}

// CheckResult is the outcome of one check.
type CheckResult struct {
	Status   HealthStatus  `json:"status"`
	Critical bool          `json:"critical"`
	Message  string        `json:"message,omitempty"`
	Duration time.Duration `json:"duration"`
}

// RegisterOption configures a registered checker.
type RegisterOption func(*registration)

// Optional marks a checker whose failure degrades the service instead of
// making it unhealthy. The post cache is registered this way.
func Optional() RegisterOption {
	return func(r *registration) { r.critical = false }
}

// WithCheckTimeout overrides DefaultCheckTimeout for one checker.
func WithCheckTimeout(d time.Duration) RegisterOption {
	return func(r *registration) { r.timeout = d }
}

type registration struct {
	checker  HealthChecker
	critical bool
	timeout  time.Duration
}

// DefaultHealthRegistry is a concurrency-safe HealthRegistry.
type DefaultHealthRegistry struct {
	mu      sync.RWMutex
	entries []registration
}

// NewHealthRegistry creates an empty registry.
func NewHealthRegistry() *DefaultHealthRegistry {
	return &DefaultHealthRegistry{entries: make([]registration, 0)}
}

// Register adds checker. Checkers are critical unless Optional is given.
func (r *DefaultHealthRegistry) Register(checker HealthChecker, opts ...RegisterOption) error {
	reg := registration{checker: checker, critical: true, timeout: DefaultCheckTimeout}
	for _, opt := range opts {
		opt(&reg)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, e := range r.entries {
		if e.checker.Name() == checker.Name() {
			return fmt.Errorf("%w: %s", ErrDuplicateChecker, checker.Name())
		}
	}

	r.entries = append(r.entries, reg)

	return nil
}

// CheckAll runs every check concurrently, each under its own timeout.
func (r *DefaultHealthRegistry) CheckAll(ctx context.Context) *HealthResult {
	r.mu.RLock()
	entries := append([]registration(nil), r.entries...)
	r.mu.RUnlock()

	result := &HealthResult{
		Status:    HealthStatusHealthy,
		Checks:    make(map[string]*CheckResult, len(entries)),
		Timestamp: time.Now(),
	}

	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)

	for _, e := range entries {
		wg.Add(1)

		go func(e registration) {
			defer wg.Done()

			cr := runCheck(ctx, e)

			mu.Lock()
			defer mu.Unlock()

			result.Checks[e.checker.Name()] = cr
			result.Status = worse(result.Status, cr)
		}(e)
	}

	wg.Wait()

	return result
}

func runCheck(ctx context.Context, e registration) *CheckResult {
	checkCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	start := time.Now()
	err := e.checker.Check(checkCtx)

	cr := &CheckResult{Status: HealthStatusHealthy, Critical: e.critical, Duration: time.Since(start)}
	if err != nil {
		cr.Status = HealthStatusUnhealthy
		cr.Message = err.Error()
	}

	return cr
}

// worse folds one check into the aggregate status.
func worse(current HealthStatus, cr *CheckResult) HealthStatus {
	if cr.Status == HealthStatusHealthy || current == HealthStatusUnhealthy {
		return current
	}

	if cr.Critical {
		return HealthStatusUnhealthy
	}

	return HealthStatusDegraded
}
