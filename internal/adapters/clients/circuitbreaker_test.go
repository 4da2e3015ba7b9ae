package clients

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	testingclock "k8s.io/utils/clock/testing"
)

func newTestBreaker(maxFailures, halfOpen int) (*Breaker, *testingclock.FakePassiveClock) {
	clk := testingclock.NewFakePassiveClock(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))

	return NewBreaker(BreakerConfig{
		MaxFailures:   maxFailures,
		CoolDown:      30 * time.Second,
		HalfOpenLimit: halfOpen,
	}, clk), clk
}

func TestBreaker_OpensAfterConsecutiveFailures(t *testing.T) {
	b, _ := newTestBreaker(3, 1)

	require.NoError(t, b.Acquire())

	b.Failure()
	b.Failure()
	b.Success()
	b.Failure()
	b.Failure()
	assert.Equal(t, StateClosed, b.State(), "a success resets the count")

	b.Failure()
	assert.Equal(t, StateOpen, b.State())
	assert.ErrorIs(t, b.Acquire(), ErrCircuitOpen)
}

func TestBreaker_HalfOpenRecovery(t *testing.T) {
	tests := []struct {
		name      string
		probe     func(b *Breaker)
		wantState State
	}{
		{
			name: "probes succeed",
			probe: func(b *Breaker) {
				b.Success()
				require.NoError(t, b.Acquire())
				b.Success()
			},
			wantState: StateClosed,
		},
		{
			name:      "probe fails",
			probe:     func(b *Breaker) { b.Failure() },
			wantState: StateOpen,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, clk := newTestBreaker(1, 2)

			b.Failure()
			require.Equal(t, StateOpen, b.State())

			clk.SetTime(clk.Now().Add(29 * time.Second))
			require.ErrorIs(t, b.Acquire(), ErrCircuitOpen)

			clk.SetTime(clk.Now().Add(time.Second))
			require.NoError(t, b.Acquire())
			assert.Equal(t, StateHalfOpen, b.State())

			tt.probe(b)
			assert.Equal(t, tt.wantState, b.State())
		})
	}
}

func TestBreaker_HalfOpenLimitsProbes(t *testing.T) {
	b, clk := newTestBreaker(1, 2)

	b.Failure()
	clk.SetTime(clk.Now().Add(time.Minute))

	require.NoError(t, b.Acquire())
	require.NoError(t, b.Acquire())
	assert.ErrorIs(t, b.Acquire(), ErrCircuitOpen)
}

func TestBreaker_OnTransition(t *testing.T) {
	b, clk := newTestBreaker(1, 1)

	var got []string

	b.OnTransition(func(from, to State) {
		got = append(got, from.String()+"->"+to.String())
	})

	b.Failure()
	clk.SetTime(clk.Now().Add(time.Minute))
	require.NoError(t, b.Acquire())
	b.Success()

	assert.Equal(t, []string{"closed->open", "open->half-open", "half-open->closed"}, got)
}

func TestBreaker_ZeroConfig(t *testing.T) {
	b := NewBreaker(BreakerConfig{}, nil)

	b.Failure()
	assert.Equal(t, StateOpen, b.State())
	require.NoError(t, b.Acquire(), "no cool-down means probing right away")
	assert.Equal(t, StateHalfOpen, b.State())
}

func TestBreaker_Concurrent(t *testing.T) {
	b, _ := newTestBreaker(1000, 1)

	var wg sync.WaitGroup

	for i := range 50 {
		wg.Add(1)

		go func() {
			defer wg.Done()

			if b.Acquire() != nil {
				return
			}

			if i%2 == 0 {
				b.Success()
			} else {
				b.Failure()
			}
		}()
	}

	wg.Wait()
	assert.Equal(t, StateClosed, b.State())
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "closed", StateClosed.String())
	assert.Equal(t, "open", StateOpen.String())
	assert.Equal(t, "half-open", StateHalfOpen.String())
	assert.Equal(t, "unknown", State(42).String())
}
