package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errBackend = errors.New("backend down")

func TestCircuitBreaker_OpensAfterThreshold(t *testing.T) {
	var transitions []State
	cb := NewCircuitBreaker("docs", CircuitBreakerConfig{
		FailureThreshold: 2,
		ResetTimeout:     time.Minute,
		OnStateChange:    func(_ string, to State) { transitions = append(transitions, to) },
	})

	assert.ErrorIs(t, cb.Execute(func() error { return errBackend }), errBackend)
	assert.Equal(t, StateClosed, cb.GetState())
	assert.ErrorIs(t, cb.Execute(func() error { return errBackend }), errBackend)
	assert.Equal(t, StateOpen, cb.GetState())

	called := false
	err := cb.Execute(func() error { called = true; return nil })
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.False(t, called)
	assert.Equal(t, []State{StateOpen}, transitions)
}

func TestCircuitBreaker_HalfOpenRecovery(t *testing.T) {
	now := time.Unix(0, 0)
	cb := NewCircuitBreaker("index", CircuitBreakerConfig{FailureThreshold: 1, ResetTimeout: time.Second})
	cb.now = func() time.Time { return now }

	require.Error(t, cb.Execute(func() error { return errBackend }))
	require.Equal(t, StateOpen, cb.GetState())

	now = now.Add(2 * time.Second)
	require.NoError(t, cb.Execute(func() error { return nil }))
	assert.Equal(t, StateClosed, cb.GetState())
}

func TestCircuitBreaker_HalfOpenProbeFails(t *testing.T) {
	now := time.Unix(0, 0)
	cb := NewCircuitBreaker("index", CircuitBreakerConfig{FailureThreshold: 1, ResetTimeout: time.Second})
	cb.now = func() time.Time { return now }

	require.Error(t, cb.Execute(func() error { return errBackend }))
	now = now.Add(2 * time.Second)
	require.Error(t, cb.Execute(func() error { return errBackend }))
	assert.Equal(t, StateOpen, cb.GetState())
}

func TestCircuitBreaker_IgnoresNonFailures(t *testing.T) {
	notFound := errors.New("not found")
	cb := NewCircuitBreaker("docs", CircuitBreakerConfig{
		FailureThreshold: 1,
		IsFailure:        func(err error) bool { return !errors.Is(err, notFound) },
	})

	assert.ErrorIs(t, cb.Execute(func() error { return notFound }), notFound)
	assert.Equal(t, StateClosed, cb.GetState())
}

func TestCircuitBreaker_Reset(t *testing.T) {
	cb := NewCircuitBreaker("docs", CircuitBreakerConfig{FailureThreshold: 1})
	require.Error(t, cb.Execute(func() error { return errBackend }))
	cb.Reset()
	assert.Equal(t, StateClosed, cb.GetState())
	assert.Equal(t, "closed", cb.GetState().String())
}

func TestRetry_SucceedsEventually(t *testing.T) {
	attempts := 0
	err := Retry(context.Background(), "connect", Backoff{Attempts: 3, Delay: time.Millisecond}, func(context.Context) error {
		attempts++
		if attempts < 3 {
			return errBackend
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestRetry_GivesUp(t *testing.T) {
	attempts := 0
	err := Retry(context.Background(), "connect", Backoff{Attempts: 2, Delay: time.Millisecond}, func(context.Context) error {
		attempts++
		return errBackend
	})
	assert.ErrorIs(t, err, errBackend)
	assert.ErrorContains(t, err, "giving up after 2 attempts")
	assert.Equal(t, 2, attempts)
}

func TestRetry_StopsOnPermanentError(t *testing.T) {
	attempts := 0
	err := Retry(context.Background(), "connect", Backoff{
		Attempts:  5,
		Delay:     time.Millisecond,
		Permanent: func(error) bool { return true },
	}, func(context.Context) error {
		attempts++
		return errBackend
	})
	assert.ErrorIs(t, err, errBackend)
	assert.Equal(t, 1, attempts)
}

func TestRetry_ContextCancelledDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	err := Retry(ctx, "connect", Backoff{Attempts: 5, Delay: time.Hour}, func(context.Context) error {
		cancel()
		return errBackend
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBackoff_WaitIsCapped(t *testing.T) {
	b := Backoff{Delay: time.Second, MaxDelay: 3 * time.Second}.withDefaults()
	assert.InDelta(t, float64(time.Second), float64(b.wait(1)), float64(100*time.Millisecond))
	assert.LessOrEqual(t, b.wait(10), 3*time.Second)
	assert.LessOrEqual(t, b.wait(80), 3*time.Second)
}

func TestWithTimeout(t *testing.T) {
	err := WithTimeout(context.Background(), 10*time.Millisecond, "ping", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	err = WithTimeout(context.Background(), time.Second, "ping", func(ctx context.Context) error { return nil })
	assert.NoError(t, err)
}

func TestCircuitBreaker_SingleProbeWhileHalfOpen(t *testing.T) {
	now := time.Unix(0, 0)
	cb := NewCircuitBreaker("index", CircuitBreakerConfig{FailureThreshold: 1, ResetTimeout: time.Second})
	cb.now = func() time.Time { return now }

	require.Error(t, cb.Execute(func() error { return errBackend }))
	err := cb.Execute(func() error { return nil })
	var open *OpenError
	require.ErrorAs(t, err, &open)
	assert.Equal(t, time.Second, open.RetryAfter)

	now = now.Add(time.Second)
	err = cb.Execute(func() error {
		assert.Equal(t, StateHalfOpen, cb.GetState())
		assert.ErrorIs(t, cb.Execute(func() error { return nil }), ErrCircuitOpen)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, StateClosed, cb.GetState())
}
