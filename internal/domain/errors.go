// Package domain contains the blog entities, their rules and errors.
// Domain errors describe business failures, never transport failures; adapters
// translate them to HTTP statuses or back from upstream responses.
package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for use with errors.Is().
var (
	// ErrNotFound indicates the requested post does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict indicates a uniqueness violation such as a duplicate slug.
	ErrConflict = errors.New("conflict")

	// ErrValidation indicates the input broke a business rule.
	ErrValidation = errors.New("validation failed")

	// ErrUnavailable indicates a storage or upstream dependency is unavailable.
	ErrUnavailable = errors.New("unavailable")
)

// NotFoundError names the missing entity.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("%s with id %q not found", e.Entity, e.ID)
	}

	return e.Entity + " not found"
}

// Unwrap returns ErrNotFound.
func (e *NotFoundError) Unwrap() error {
	return ErrNotFound
}

// NewNotFoundError creates a not found error for entity/id.
func NewNotFoundError(entity, id string) error {
	return &NotFoundError{Entity: entity, ID: id}
}

// ConflictError reports a field whose value must be unique.
type ConflictError struct {
	Entity string
	Field  string
	Value  string
}

func (e *ConflictError) Error() string {
	if e.Value != "" {
		return fmt.Sprintf("%s with %s %q already exists", e.Entity, e.Field, e.Value)
	}

	return fmt.Sprintf("%s %s already exists", e.Entity, e.Field)
}

// Unwrap returns ErrConflict.
func (e *ConflictError) Unwrap() error {
	return ErrConflict
}

// NewConflictError creates a uniqueness conflict error.
func NewConflictError(entity, field, value string) error {
	return &ConflictError{Entity: entity, Field: field, Value: value}
}

// ValidationError describes a single rejected field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed for %s: %s", e.Field, e.Message)
	}

	return "validation failed: " + e.Message
}

// Unwrap returns ErrValidation.
func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// NewValidationError creates a validation error for one field.
func NewValidationError(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// ValidationErrors collects every field failure of one input.
type ValidationErrors []*ValidationError

func (v ValidationErrors) Error() string {
	msgs := make([]string, 0, len(v))
	for _, e := range v {
		msgs = append(msgs, e.Field+": "+e.Message)
	}

	return "validation failed: " + strings.Join(msgs, "; ")
}

// Unwrap returns ErrValidation.
func (v ValidationErrors) Unwrap() error {
	return ErrValidation
}

// Fields returns the failures keyed by field name.
func (v ValidationErrors) Fields() map[string]string {
	out := make(map[string]string, len(v))
	for _, e := range v {
		out[e.Field] = e.Message
	}

	return out
}

// UnavailableError wraps the failure of a named dependency.
type UnavailableError struct {
	Dependency string
	Cause      error
}

func (e *UnavailableError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s unavailable: %v", e.Dependency, e.Cause)
	}

	return e.Dependency + " unavailable"
}

// Unwrap exposes both ErrUnavailable and the underlying cause.
func (e *UnavailableError) Unwrap() []error {
	if e.Cause == nil {
		return []error{ErrUnavailable}
	}

	return []error{ErrUnavailable, e.Cause}
}

// NewUnavailableError wraps cause as an unavailable dependency.
func NewUnavailableError(dependency string, cause error) error {
	return &UnavailableError{Dependency: dependency, Cause: cause}
}

// IsNotFound reports whether err is a not found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsConflict reports whether err is a conflict error.
func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}

// IsValidation reports whether err is a validation error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

// IsUnavailable reports whether err is an unavailable error.
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrUnavailable)
}
