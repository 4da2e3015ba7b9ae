package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSentinelErrors_AreDistinct(t *testing.T) {
	sentinels := []error{ErrNotFound, ErrConflict, ErrValidation, ErrUnavailable}

	for i, a := range sentinels {
		for j, b := range sentinels {
			if i != j {
				assert.NotErrorIs(t, a, b, "sentinels should be distinct: %v vs %v", a, b)
			}
		}
	}
}

func TestNotFoundError(t *testing.T) {
	tests := []struct {
		name        string
		id          string
		expectedMsg string
	}{
		{name: "with id", id: "42", expectedMsg: `blog with id "42" not found`},
		{name: "without id", id: "", expectedMsg: "blog not found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewNotFoundError(EntityPost, tt.id)

			assert.Equal(t, tt.expectedMsg, err.Error())
			require.ErrorIs(t, err, ErrNotFound)

			var nf *NotFoundError
			require.ErrorAs(t, err, &nf)
			assert.Equal(t, tt.id, nf.ID)
		})
	}
}

func TestConflictError(t *testing.T) {
	err := NewConflictError(EntityPost, "slug", "my-post")

	assert.Equal(t, `blog with slug "my-post" already exists`, err.Error())
	assert.True(t, IsConflict(err))

	bare := NewConflictError(EntityPost, "slug", "")
	assert.Equal(t, "blog slug already exists", bare.Error())
}

func TestValidationErrors(t *testing.T) {
	errs := ValidationErrors{
		{Field: "title", Message: "is required"},
		{Field: "content", Message: "must be at least 10 characters"},
	}

	var err error = errs

	assert.True(t, IsValidation(err))
	assert.Equal(t, "validation failed: title: is required; content: must be at least 10 characters", err.Error())
	assert.Equal(t, map[string]string{
		"title":   "is required",
		"content": "must be at least 10 characters",
	}, errs.Fields())

	var target ValidationErrors
	require.ErrorAs(t, fmt.Errorf("save: %w", err), &target)
	assert.Len(t, target, 2)
}

func TestUnavailableError(t *testing.T) {
	cause := errors.New("connection refused")
	err := NewUnavailableError("redis", cause)

	assert.Equal(t, "redis unavailable: connection refused", err.Error())
	require.ErrorIs(t, err, ErrUnavailable)
	require.ErrorIs(t, err, cause)

	assert.Equal(t, "db unavailable", NewUnavailableError("db", nil).Error())
}

func TestIsHelpers(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		isFunc   func(error) bool
		expected bool
	}{
		{"IsNotFound typed", NewNotFoundError("blog", "1"), IsNotFound, true},
		{"IsNotFound wrapped", fmt.Errorf("get: %w", ErrNotFound), IsNotFound, true},
		{"IsNotFound other", ErrConflict, IsNotFound, false},
		{"IsNotFound nil", nil, IsNotFound, false},

		{"IsConflict typed", NewConflictError("blog", "slug", "x"), IsConflict, true},
		{"IsConflict other", ErrValidation, IsConflict, false},

		{"IsValidation typed", NewValidationError("title", "bad"), IsValidation, true},
		{"IsValidation wrapped", fmt.Errorf("outer: %w", ErrValidation), IsValidation, true},
		{"IsValidation nil", nil, IsValidation, false},

		{"IsUnavailable typed", NewUnavailableError("db", nil), IsUnavailable, true},
		{"IsUnavailable other", ErrNotFound, IsUnavailable, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.isFunc(tt.err))
		})
	}
}
