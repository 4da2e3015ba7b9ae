package autosave

import (
	"log/slog"
	"time"

	"k8s.io/utils/clock"
)

const (
	DefaultDebounce     = 5 * time.Second
	DefaultInterval     = 30 * time.Second
	DefaultTimeout      = 10 * time.Second
	DefaultResultBuffer = 16
)

type options struct {
	debounce time.Duration
	interval time.Duration
	timeout  time.Duration
	buffer   int
	clock    clock.WithTicker
	id       string
	logger   *slog.Logger
}

func defaultOptions() options {
	return options{
		debounce: DefaultDebounce,
		interval: DefaultInterval,
		timeout:  DefaultTimeout,
		buffer:   DefaultResultBuffer,
		clock:    clock.RealClock{},
		logger:   slog.Default(),
	}
}

// Option configures a Coordinator.
type Option func(*options)

// WithDebounce sets the quiet period after the last edit before a save.
func WithDebounce(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.debounce = d
		}
	}
}

// WithInterval sets the period of the safety-net save.
func WithInterval(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.interval = d
		}
	}
}

// WithTimeout bounds each request to the draft endpoint. Zero disables the
// deadline.
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		if d >= 0 {
			o.timeout = d
		}
	}
}

// WithResultBuffer sets the capacity of the Results channel.
func WithResultBuffer(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.buffer = n
		}
	}
}

// WithClock replaces the wall clock, typically with a fake in tests.
func WithClock(c clock.WithTicker) Option {
	return func(o *options) {
		if c != nil {
			o.clock = c
		}
	}
}

// WithID resumes an existing document: saves update it instead of creating
// a new one.
func WithID(id string) Option {
	return func(o *options) {
		o.id = id
	}
}

// WithLogger sets the logger used for attempt outcomes.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}
