package family

import (
	"context"
	"testing"
	"testing/synctest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogMessengerDeliversToSubscriber(t *testing.T) {
	m := NewLogMessenger("alice@example.com")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var got []Envelope
	require.NoError(t, m.Subscribe(ctx, "alice@example.com", func(env Envelope) {
		got = append(got, env)
	}))

	require.NoError(t, m.Send(context.Background(), []string{"mom@example.com", "alice@example.com"}, "hello", KindEscalation))

	require.Len(t, got, 1)
	assert.Equal(t, "alice@example.com", got[0].To)
	assert.Equal(t, "hello", got[0].Message)
	assert.Len(t, m.Sent(), 2)
}

func TestLogMessengerUnsubscribesOnCancel(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		m := NewLogMessenger("alice@example.com")
		ctx, cancel := context.WithCancel(t.Context())

		calls := 0
		require.NoError(t, m.Subscribe(ctx, "alice@example.com", func(Envelope) { calls++ }))
		cancel()
		synctest.Wait()

		require.NoError(t, m.Send(t.Context(), []string{"alice@example.com"}, "hi", KindEscalation))
		assert.Zero(t, calls)
		assert.Len(t, m.Sent(), 1)
	})
}

func TestLogMessengerHonorsContext(t *testing.T) {
	m := NewLogMessenger("alice@example.com")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, m.Send(ctx, []string{"mom@example.com"}, "hi", KindEscalation), context.Canceled)
	assert.Empty(t, m.Sent())
}
