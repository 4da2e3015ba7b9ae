package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/jsamuelsen/blogdraft/internal/platform/logging"
)

// Write operations run as Validate → Perform → Verify → Archive → Respond.
// Nothing is archived (cached) before the stored state has been read back,
// and nothing is returned to the caller before every step succeeded.

// ExecutionStep names one stage of an Operation.
type ExecutionStep string

const (
	StepValidate ExecutionStep = "validate"
	StepPerform  ExecutionStep = "perform"
	StepVerify   ExecutionStep = "verify"
	StepArchive  ExecutionStep = "archive"
	StepRespond  ExecutionStep = "respond"
)

// ExecutionError records the step an operation failed in. Domain errors
// remain reachable through Unwrap.
type ExecutionError struct {
	Operation string
	Step      ExecutionStep
	Cause     error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Operation, e.Step, e.Cause)
}

func (e *ExecutionError) Unwrap() error {
	return e.Cause
}

// Executor runs operations with step logging and span events.
type Executor struct {
	logger *slog.Logger
}

// NewExecutor creates an executor; a nil logger falls back to slog.Default.
func NewExecutor(logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.Default()
	}

	return &Executor{logger: logger}
}

// Operation bundles the step functions of one use case. Only Perform is
// required; nil steps pass their input through unchanged where the types
// allow it and are skipped otherwise.
type Operation[I, P, O any] struct {
	Name string

	Validate func(ctx context.Context, in I) error
	Perform  func(ctx context.Context, in I) (P, error)
	Verify   func(ctx context.Context, in I, performed P) (P, error)
	Archive  func(ctx context.Context, in I, verified P) error
	Respond  func(ctx context.Context, in I, verified P) (O, error)
}

// Execute runs op against in.
func Execute[I, P, O any](ctx context.Context, exec *Executor, op Operation[I, P, O], in I) (O, error) {
	var zero O

	if op.Perform == nil {
		return zero, &ExecutionError{Operation: op.Name, Step: StepPerform, Cause: errors.New("no perform step")}
	}

	logger := logging.FromContextOr(ctx, exec.logger)

	run := stepRunner{ctx: ctx, name: op.Name, logger: logger.With(slog.String("operation", op.Name))}
	start := time.Now()

	if op.Validate != nil {
		if err := run.do(StepValidate, func() error { return op.Validate(ctx, in) }); err != nil {
			return zero, err
		}
	}

	var performed P

	err := run.do(StepPerform, func() (err error) {
		performed, err = op.Perform(ctx, in)
		return err
	})
	if err != nil {
		return zero, err
	}

	verified := performed

	if op.Verify != nil {
		err = run.do(StepVerify, func() (err error) {
			verified, err = op.Verify(ctx, in, performed)
			return err
		})
		if err != nil {
			return zero, err
		}
	}

	if op.Archive != nil {
		if err = run.do(StepArchive, func() error { return op.Archive(ctx, in, verified) }); err != nil {
			return zero, err
		}
	}

	var out O

	if op.Respond != nil {
		err = run.do(StepRespond, func() (err error) {
			out, err = op.Respond(ctx, in, verified)
			return err
		})
		if err != nil {
			return zero, err
		}
	}

	run.logger.DebugContext(ctx, "operation completed", slog.Duration("duration", time.Since(start)))

	return out, nil
}

type stepRunner struct {
	ctx    context.Context //nolint:containedctx // scoped to a single Execute call
	name   string
	logger *slog.Logger
}

func (r stepRunner) do(step ExecutionStep, fn func() error) error {
	span := trace.SpanFromContext(r.ctx)
	span.AddEvent(string(step), trace.WithAttributes(attribute.String("operation", r.name)))

	if err := fn(); err != nil {
		level := slog.LevelError
		if step == StepValidate {
			level = slog.LevelWarn
		}

		r.logger.Log(r.ctx, level, "step failed", slog.String("step", string(step)), slog.Any("error", err))

		return &ExecutionError{Operation: r.name, Step: step, Cause: err}
	}

	r.logger.Log(r.ctx, logging.LevelTrace, "step done", slog.String("step", string(step)))

	return nil
}

// FailedStep reports the step recorded in err, if any.
func FailedStep(err error) (ExecutionStep, bool) {
	var execErr *ExecutionError
	if errors.As(err, &execErr) {
		return execErr.Step, true
	}

	return "", false
}
