package clients

import (
	"sync"
	"time"

	"k8s.io/utils/clock"
)

// State is the position of a Breaker.
type State int

const (
	// StateClosed lets every request through.
	StateClosed State = iota

	// StateOpen rejects requests until the cool-down has passed.
	StateOpen

	// StateHalfOpen lets a limited number of probes through.
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// BreakerConfig configures a Breaker.
type BreakerConfig struct {
	// MaxFailures consecutive failures open the circuit.
	MaxFailures int

	// CoolDown is how long the circuit stays open before probing.
	CoolDown time.Duration

	// HalfOpenLimit is both the number of concurrent probes and the number of
	// probe successes needed to close the circuit again.
	HalfOpenLimit int
}

// Breaker is a consecutive-failure circuit breaker.
//
//	closed    -> open       after MaxFailures failures in a row
//	open      -> half-open  once CoolDown has elapsed since the last failure
//	half-open -> closed     after HalfOpenLimit successful probes
//	half-open -> open       on any failed probe
type Breaker struct {
	cfg   BreakerConfig
	clock clock.PassiveClock

	mu          sync.Mutex
	state       State
	failures    int
	successes   int
	probes      int
	lastFailure time.Time
	onChange    func(from, to State)
}

// NewBreaker creates a closed breaker. Zero config values fall back to one
// failure, no cool-down and a single probe.
func NewBreaker(cfg BreakerConfig, clk clock.PassiveClock) *Breaker {
	if cfg.MaxFailures < 1 {
		cfg.MaxFailures = 1
	}

	if cfg.HalfOpenLimit < 1 {
		cfg.HalfOpenLimit = 1
	}

	if clk == nil {
		clk = clock.RealClock{}
	}

	return &Breaker{cfg: cfg, clock: clk}
}

// OnTransition registers fn to be called after every state change. fn runs
// on the goroutine that caused the change, outside the breaker lock.
func (b *Breaker) OnTransition(fn func(from, to State)) {
	b.mu.Lock()
	b.onChange = fn
	b.mu.Unlock()
}

// Acquire reports whether a request may proceed. A request that acquired
// the breaker must report back through Success or Failure.
func (b *Breaker) Acquire() error {
	b.mu.Lock()

	var notify func()

	switch b.state {
	case StateOpen:
		if b.clock.Since(b.lastFailure) < b.cfg.CoolDown {
			b.mu.Unlock()
			return ErrCircuitOpen
		}

		notify = b.transition(StateHalfOpen)
		b.probes = 1

	case StateHalfOpen:
		if b.probes >= b.cfg.HalfOpenLimit {
			b.mu.Unlock()
			return ErrCircuitOpen
		}

		b.probes++
	}

	b.mu.Unlock()
	run(notify)

	return nil
}

// Success records a request that reached a healthy downstream.
func (b *Breaker) Success() {
	b.mu.Lock()

	var notify func()

	switch b.state {
	case StateClosed:
		b.failures = 0

	case StateHalfOpen:
		b.probes--
		b.successes++

		if b.successes >= b.cfg.HalfOpenLimit {
			notify = b.transition(StateClosed)
		}
	}

	b.mu.Unlock()
	run(notify)
}

// Failure records a request that failed because of the downstream.
func (b *Breaker) Failure() {
	b.mu.Lock()

	var notify func()

	b.lastFailure = b.clock.Now()

	switch b.state {
	case StateClosed:
		b.failures++
		if b.failures >= b.cfg.MaxFailures {
			notify = b.transition(StateOpen)
		}

	case StateHalfOpen:
		b.probes--
		notify = b.transition(StateOpen)
	}

	b.mu.Unlock()
	run(notify)
}

// Release gives back an acquired slot without judging the downstream, for
// requests the caller abandoned.
func (b *Breaker) Release() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == StateHalfOpen && b.probes > 0 {
		b.probes--
	}
}

func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.state
}

// transition must be called with b.mu held. It returns the notification to
// run once the lock is released.
func (b *Breaker) transition(to State) func() {
	from := b.state
	if from == to {
		return nil
	}

	b.state = to
	b.failures = 0
	b.successes = 0

	if to != StateHalfOpen {
		b.probes = 0
	}

	if fn := b.onChange; fn != nil {
		return func() { fn(from, to) }
	}

	return nil
}

func run(fn func()) {
	if fn != nil {
		fn()
	}
}
