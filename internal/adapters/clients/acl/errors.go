package acl

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"slices"

	"github.com/jsamuelsen/blogdraft/internal/adapters/clients"
	"github.com/jsamuelsen/blogdraft/internal/domain"
)

// Codes of the blog API error envelope.
const (
	CodeNotFound    = "NOT_FOUND"
	CodeConflict    = "CONFLICT"
	CodeValidation  = "VALIDATION_ERROR"
	CodeUnavailable = "SERVICE_UNAVAILABLE"
)

// errorEnvelope is the upstream error body. The flat code/message form is
// accepted too, for proxies that answer on the API's behalf.
type errorEnvelope struct {
	Error struct {
		Code    string            `json:"code"`
		Message string            `json:"message"`
		Details map[string]string `json:"details"`
	} `json:"error"`
	Code    string `json:"code"`
	Message string `json:"message"`
	TraceID string `json:"traceId"`
}

func (e *errorEnvelope) code() string {
	if e.Error.Code != "" {
		return e.Error.Code
	}

	return e.Code
}

func (e *errorEnvelope) message() string {
	if e.Error.Message != "" {
		return e.Error.Message
	}

	return e.Message
}

// RemoteError is a failed call to the blog API. It unwraps to the matching
// domain error, so callers use errors.Is(err, domain.ErrNotFound) and the
// like; Message is safe to show to the author.
type RemoteError struct {
	Service   string
	Operation string

	// Status is 0 when no response was received.
	Status  int
	Code    string
	Message string
	TraceID string

	Err error
}

func (e *RemoteError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("%s %s: %v", e.Service, e.Operation, e.Err)
	}

	return fmt.Sprintf("%s %s: HTTP %d %s: %s", e.Service, e.Operation, e.Status, e.Code, e.Message)
}

func (e *RemoteError) Unwrap() error {
	return e.Err
}

// PublicMessage is the text shown to the author.
func (e *RemoteError) PublicMessage() string {
	return e.Message
}

// MapResponse turns a non-2xx response into a *RemoteError. entityID names
// the post the request was about, if any. The body is read but not closed.
func MapResponse(resp *http.Response, service, operation, entityID string) error {
	if resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusMultipleChoices {
		return nil
	}

	var env errorEnvelope
	if resp.Body != nil {
		_ = json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&env)
	}

	msg := env.message()
	if msg == "" {
		msg = defaultMessage(resp.StatusCode, operation)
	}

	return &RemoteError{
		Service:   service,
		Operation: operation,
		Status:    resp.StatusCode,
		Code:      env.code(),
		Message:   msg,
		TraceID:   env.TraceID,
		Err:       domainError(resp.StatusCode, &env, service, msg, entityID),
	}
}

// MapTransportError translates a failure of the client itself: no response
// was received.
func MapTransportError(err error, service, operation string) error {
	var (
		msg   string
		cause error
	)

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		msg = operation + " timed out"
		cause = domain.NewUnavailableError(service, err)
	case errors.Is(err, context.Canceled):
		msg = operation + " was cancelled"
		cause = err
	case errors.Is(err, clients.ErrCircuitOpen):
		msg = service + " is temporarily unavailable"
		cause = domain.NewUnavailableError(service, err)
	default:
		msg = "could not reach " + service
		cause = domain.NewUnavailableError(service, err)
	}

	return &RemoteError{Service: service, Operation: operation, Message: msg, Err: cause}
}

func domainError(status int, env *errorEnvelope, service, msg, entityID string) error {
	switch {
	case status == http.StatusNotFound || env.code() == CodeNotFound:
		return domain.NewNotFoundError(domain.EntityPost, entityID)

	case status == http.StatusConflict || env.code() == CodeConflict:
		return fmt.Errorf("%w: %s", domain.ErrConflict, msg)

	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity:
		if len(env.Error.Details) == 0 {
			return domain.NewValidationError("", msg)
		}

		fields := make([]string, 0, len(env.Error.Details))
		for f := range env.Error.Details {
			fields = append(fields, f)
		}

		slices.Sort(fields)

		errs := make(domain.ValidationErrors, 0, len(fields))
		for _, f := range fields {
			errs = append(errs, &domain.ValidationError{Field: f, Message: env.Error.Details[f]})
		}

		return errs

	case status == http.StatusTooManyRequests || status >= http.StatusInternalServerError:
		return domain.NewUnavailableError(service, errors.New(msg))

	default:
		return fmt.Errorf("unexpected status %d: %s", status, msg)
	}
}

func defaultMessage(status int, operation string) string {
	switch status {
	case http.StatusNotFound:
		return "Blog not found"
	case http.StatusConflict:
		return "blog already exists"
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return "invalid request"
	case http.StatusTooManyRequests:
		return "rate limit exceeded"
	case http.StatusServiceUnavailable:
		return "service temporarily unavailable"
	default:
		return fmt.Sprintf("%s failed with status %d", operation, status)
	}
}
