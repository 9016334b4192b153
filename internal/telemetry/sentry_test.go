package telemetry

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/eyedrop-checker/internal/conf"
	"github.com/tphakala/eyedrop-checker/internal/errors"
)

// mockTransport records events instead of sending them.
type mockTransport struct {
	mu     sync.Mutex
	events []*sentry.Event
}

func (t *mockTransport) Configure(sentry.ClientOptions) {}

func (t *mockTransport) SendEvent(event *sentry.Event) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.events = append(t.events, event)
}

func (t *mockTransport) Flush(time.Duration) bool             { return true }
func (t *mockTransport) FlushWithContext(context.Context) bool { return true }
func (t *mockTransport) Close()                                {}

func (t *mockTransport) Events() []*sentry.Event {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]*sentry.Event(nil), t.events...)
}

func TestInitDisabled(t *testing.T) {
	enabled, err := Init(&conf.TelemetrySettings{}, "dev")
	require.NoError(t, err)
	assert.False(t, enabled)
}

func TestInitRequiresDSN(t *testing.T) {
	enabled, err := Init(&conf.TelemetrySettings{Enabled: true}, "dev")
	require.Error(t, err)
	assert.False(t, enabled)
	assert.True(t, errors.IsCategory(err, errors.CategoryConfiguration))
}

func TestReportedErrorsAreScrubbed(t *testing.T) {
	transport := &mockTransport{}
	enabled, err := initWithTransport(&conf.TelemetrySettings{
		Enabled: true,
		DSN:     "https://public@example.com/1",
	}, "test", transport)
	require.NoError(t, err)
	require.True(t, enabled)
	t.Cleanup(Shutdown)

	_ = errors.Newf("push failed for https://ntfy.example.com/topic?token=abc123").
		Component("notification").
		Category(errors.CategoryNotification).
		Build()

	events := transport.Events()
	require.Len(t, events, 1)
	ev := events[0]
	assert.NotContains(t, ev.Message, "abc123")
	assert.Empty(t, ev.ServerName)
	assert.Equal(t, "notification", ev.Tags["component"])
	assert.Equal(t, sentry.LevelWarning, ev.Level)
	assert.Equal(t, "eyedrop-checker@test", ev.Release)
}

func TestScrubEvent(t *testing.T) {
	ev := &sentry.Event{
		ServerName: "my-laptop",
		Message:    "GET https://cam.local/snap?password=hunter2",
		Exception:  []sentry.Exception{{Value: "token=deadbeef"}},
	}
	out := scrubEvent(ev, nil)
	assert.Empty(t, out.ServerName)
	assert.NotContains(t, out.Message, "hunter2")
	assert.NotContains(t, out.Exception[0].Value, "deadbeef")
}
