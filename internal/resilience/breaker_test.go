package resilience

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errBoom = errors.New("boom")

func TestBreakerStaysClosedOnSuccess(t *testing.T) {
	b := NewBreaker(Options{Name: "ok", FailureThreshold: 3})

	for i := 0; i < 10; i++ {
		require.NoError(t, b.Do(func() error { return nil }))
	}
	assert.Equal(t, StateClosed, b.State())
}

func TestBreakerTripsAfterThreshold(t *testing.T) {
	b := NewBreaker(Options{Name: "flaky", FailureThreshold: 3, CoolDown: time.Minute})

	for i := 0; i < 3; i++ {
		require.ErrorIs(t, b.Do(func() error { return errBoom }), errBoom)
	}
	assert.Equal(t, StateOpen, b.State())

	called := false
	err := b.Do(func() error { called = true; return nil })
	assert.ErrorIs(t, err, ErrOpen)
	assert.False(t, called, "open breaker must not invoke the function")
}

func TestBreakerSuccessResetsFailureCount(t *testing.T) {
	b := NewBreaker(Options{FailureThreshold: 3})

	require.Error(t, b.Do(func() error { return errBoom }))
	require.Error(t, b.Do(func() error { return errBoom }))
	require.NoError(t, b.Do(func() error { return nil }))
	require.Error(t, b.Do(func() error { return errBoom }))
	require.Error(t, b.Do(func() error { return errBoom }))

	assert.Equal(t, StateClosed, b.State())
}

func TestBreakerClosesAfterProbeQuota(t *testing.T) {
	b := NewBreaker(Options{FailureThreshold: 1, CoolDown: 10 * time.Millisecond, ProbeQuota: 2})

	require.Error(t, b.Do(func() error { return errBoom }))
	require.Equal(t, StateOpen, b.State())

	time.Sleep(20 * time.Millisecond)
	require.Equal(t, StateHalfOpen, b.State())

	require.NoError(t, b.Do(func() error { return nil }))
	require.NoError(t, b.Do(func() error { return nil }))
	assert.Equal(t, StateClosed, b.State())
}

func TestBreakerFailedProbeReopens(t *testing.T) {
	b := NewBreaker(Options{FailureThreshold: 1, CoolDown: 10 * time.Millisecond, ProbeQuota: 2})

	require.Error(t, b.Do(func() error { return errBoom }))
	time.Sleep(20 * time.Millisecond)
	require.Equal(t, StateHalfOpen, b.State())

	require.ErrorIs(t, b.Do(func() error { return errBoom }), errBoom)
	assert.Equal(t, StateOpen, b.State())
}

func TestBreakerReportsStateChanges(t *testing.T) {
	var transitions []string
	b := NewBreaker(Options{
		Name:             "observed",
		FailureThreshold: 1,
		CoolDown:         time.Minute,
		OnStateChange: func(name string, from, to State) {
			transitions = append(transitions, from.String()+">"+to.String())
		},
	})

	require.Error(t, b.Do(func() error { return errBoom }))
	assert.Equal(t, []string{"closed>open"}, transitions)
}
