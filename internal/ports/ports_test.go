package ports

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubChecker struct {
	name string
	err  error
}

func (s *stubChecker) Name() string                  { return s.name }
func (s *stubChecker) Check(_ context.Context) error { return s.err }

type blockingChecker struct{ name string }

func (b *blockingChecker) Name() string { return b.name }

func (b *blockingChecker) Check(ctx context.Context) error {
	<-ctx.Done()
	return ctx.Err()
}

func TestRegister_DuplicateName(t *testing.T) {
	registry := NewHealthRegistry()

	require.NoError(t, registry.Register(&stubChecker{name: "sqlite"}))

	err := registry.Register(&stubChecker{name: "sqlite"})
	require.ErrorIs(t, err, ErrDuplicateChecker)
	assert.Contains(t, err.Error(), "sqlite")
	assert.Len(t, registry.entries, 1)
}

func TestCheckAll(t *testing.T) {
	tests := []struct {
		name     string
		register func(r *DefaultHealthRegistry)
		want     HealthStatus
	}{
		{
			name:     "no checkers",
			register: func(*DefaultHealthRegistry) {},
			want:     HealthStatusHealthy,
		},
		{
			name: "all healthy",
			register: func(r *DefaultHealthRegistry) {
				_ = r.Register(&stubChecker{name: "sqlite"})
				_ = r.Register(&stubChecker{name: "redis"}, Optional())
			},
			want: HealthStatusHealthy,
		},
		{
			name: "optional failure degrades",
			register: func(r *DefaultHealthRegistry) {
				_ = r.Register(&stubChecker{name: "sqlite"})
				_ = r.Register(&stubChecker{name: "redis", err: errors.New("connection refused")}, Optional())
			},
			want: HealthStatusDegraded,
		},
		{
			name: "critical failure wins over degraded",
			register: func(r *DefaultHealthRegistry) {
				_ = r.Register(&stubChecker{name: "sqlite", err: errors.New("locked")})
				_ = r.Register(&stubChecker{name: "redis", err: errors.New("connection refused")}, Optional())
			},
			want: HealthStatusUnhealthy,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			registry := NewHealthRegistry()
			tt.register(registry)

			result := registry.CheckAll(context.Background())

			require.NotNil(t, result)
			assert.Equal(t, tt.want, result.Status)
			assert.False(t, result.Timestamp.IsZero())
		})
	}
}

func TestCheckAll_RecordsMessage(t *testing.T) {
	registry := NewHealthRegistry()
	require.NoError(t, registry.Register(&stubChecker{name: "redis", err: errors.New("connection refused")}, Optional()))

	result := registry.CheckAll(context.Background())

	check := result.Checks["redis"]
	require.NotNil(t, check)
	assert.Equal(t, HealthStatusUnhealthy, check.Status)
	assert.False(t, check.Critical)
	assert.Equal(t, "connection refused", check.Message)
}

func TestCheckAll_PerCheckTimeout(t *testing.T) {
	registry := NewHealthRegistry()
	require.NoError(t, registry.Register(&blockingChecker{name: "slow"}, WithCheckTimeout(20*time.Millisecond)))

	start := time.Now()
	result := registry.CheckAll(context.Background())

	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, HealthStatusUnhealthy, result.Status)
	assert.Contains(t, result.Checks["slow"].Message, "deadline exceeded")
}

func TestPostFilter_Normalize(t *testing.T) {
	tests := []struct {
		name       string
		in         PostFilter
		wantPage   int
		wantLimit  int
		wantOffset int
	}{
		{"zero values", PostFilter{}, 1, DefaultPageSize, 0},
		{"negative page", PostFilter{Page: -3, Limit: 10}, 1, 10, 0},
		{"limit capped", PostFilter{Page: 2, Limit: 500}, 2, MaxPageSize, MaxPageSize},
		{"third page", PostFilter{Page: 3, Limit: 5}, 3, 5, 10},
		{"huge page capped", PostFilter{Page: 461168601842738792, Limit: 20}, MaxPage, 20, (MaxPage - 1) * 20},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.in.Normalize()
			assert.Equal(t, tt.wantPage, got.Page)
			assert.Equal(t, tt.wantLimit, got.Limit)
			assert.Equal(t, tt.wantOffset, got.Offset())
		})
	}
}

func TestPostFilter_OffsetWithoutNormalize(t *testing.T) {
	f := PostFilter{Page: math.MaxInt, Limit: math.MaxInt}
	assert.Equal(t, (MaxPage-1)*MaxPageSize, f.Offset())
	assert.Zero(t, PostFilter{Page: -5, Limit: 10}.Offset())
}
