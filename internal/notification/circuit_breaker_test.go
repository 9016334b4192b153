package notification

import (
	"context"
	"testing"
	"testing/synctest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/eyedrop-checker/internal/errors"
)

func failing(context.Context) error { return errors.NewStd("provider down") }

func succeeding(context.Context) error { return nil }

func TestCircuitBreakerOpensAfterMaxFailures(t *testing.T) {
	t.Parallel()

	cb := NewPushCircuitBreaker(CircuitBreakerConfig{MaxFailures: 3, Timeout: time.Minute, HalfOpenMaxRequests: 1}, nil, "test")
	for range 2 {
		require.Error(t, cb.Call(context.Background(), failing))
		assert.Equal(t, StateClosed, cb.State())
	}
	require.Error(t, cb.Call(context.Background(), failing))
	assert.Equal(t, StateOpen, cb.State())
	assert.Equal(t, 3, cb.Failures())
	assert.False(t, cb.IsHealthy())

	err := cb.Call(context.Background(), succeeding)
	assert.ErrorIs(t, err, ErrCircuitBreakerOpen)
}

func TestCircuitBreakerHalfOpenRecovery(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		cb := NewPushCircuitBreaker(CircuitBreakerConfig{MaxFailures: 1, Timeout: 30 * time.Second, HalfOpenMaxRequests: 1}, nil, "test")
		require.Error(t, cb.Call(t.Context(), failing))
		require.Equal(t, StateOpen, cb.State())

		time.Sleep(31 * time.Second)
		// The probe fails: back to open.
		require.Error(t, cb.Call(t.Context(), failing))
		assert.Equal(t, StateOpen, cb.State())

		time.Sleep(31 * time.Second)
		require.NoError(t, cb.Call(t.Context(), succeeding))
		assert.Equal(t, StateClosed, cb.State())
		assert.Zero(t, cb.Failures())
	})
}

func TestCircuitBreakerIgnoresCancellation(t *testing.T) {
	t.Parallel()

	cb := NewPushCircuitBreaker(CircuitBreakerConfig{MaxFailures: 1, Timeout: time.Minute, HalfOpenMaxRequests: 1}, nil, "test")
	err := cb.Call(context.Background(), func(context.Context) error { return context.Canceled })
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, StateClosed, cb.State())

	require.Error(t, cb.Call(context.Background(), failing))
	cb.Reset()
	assert.Equal(t, StateClosed, cb.State())
	assert.Zero(t, cb.Failures())
}

func TestCircuitBreakerConfigValidate(t *testing.T) {
	t.Parallel()

	require.NoError(t, DefaultCircuitBreakerConfig().Validate())
	assert.Error(t, CircuitBreakerConfig{MaxFailures: 0, Timeout: time.Minute, HalfOpenMaxRequests: 1}.Validate())
	assert.Error(t, CircuitBreakerConfig{MaxFailures: 1, Timeout: time.Millisecond, HalfOpenMaxRequests: 1}.Validate())
	assert.Error(t, CircuitBreakerConfig{MaxFailures: 1, Timeout: time.Minute}.Validate())
}
