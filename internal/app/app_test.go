package app

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/eyedrop-checker/internal/conf"
	"github.com/tphakala/eyedrop-checker/internal/family"
	"github.com/tphakala/eyedrop-checker/internal/model"
	"github.com/tphakala/eyedrop-checker/internal/notification"
)

func testSettings() *conf.Settings {
	s := &conf.Settings{}
	s.Main.Locale = "en"
	s.Main.Timezone = "UTC"
	s.Main.User = "alice"
	s.Main.Address = "alice@example.com"
	s.Reminder.Times = conf.SlotTimes{Morning: "07:30", Night: "21:15"}
	s.Notification.Permission = string(notification.PermissionGranted)
	s.Notification.Presence.Foreground = true
	s.Notification.GracePeriod = time.Hour
	s.Storage.Type = conf.StorageMemory
	return s
}

func newTestApp(t *testing.T, s *conf.Settings) *App {
	t.Helper()
	a, err := New(s, "test")
	require.NoError(t, err)
	t.Cleanup(a.Close)
	return a
}

func TestNewRejectsUnknownTimezone(t *testing.T) {
	t.Parallel()
	s := testSettings()
	s.Main.Timezone = "Mars/Olympus"
	_, err := New(s, "test")
	require.Error(t, err)
}

func TestNewUsesLogMessengerWithoutBroker(t *testing.T) {
	t.Parallel()
	a := newTestApp(t, testSettings())
	assert.IsType(t, &family.LogMessenger{}, a.Messenger)
	assert.Nil(t, a.mqtt)
	assert.Nil(t, a.db)
}

func TestSeedSettingsOnlyOnFirstStart(t *testing.T) {
	t.Parallel()
	ctx := t.Context()
	a := newTestApp(t, testSettings())

	require.NoError(t, a.SeedSettings(ctx))
	got, err := a.Records.Settings(ctx)
	require.NoError(t, err)
	assert.Equal(t, "07:30", got.Times[model.Morning])
	assert.Equal(t, "12:00", got.Times[model.Noon], "unset slots keep the default")
	assert.Equal(t, "21:15", got.Times[model.Night])

	_, err = a.Records.UpdateSettings(ctx, func(s *model.Settings) { s.Times[model.Morning] = "06:00" })
	require.NoError(t, err)
	require.NoError(t, a.SeedSettings(ctx))

	got, err = a.Records.Settings(ctx)
	require.NoError(t, err)
	assert.Equal(t, "06:00", got.Times[model.Morning])
}

func TestFamilyMessageShownLocally(t *testing.T) {
	t.Parallel()
	a := newTestApp(t, testSettings())

	env := family.NewEnvelope("bob@example.com", "alice@example.com", "note", "drops done?")
	a.handleFamily(t.Context())(env)

	notices := a.Surface.Notices()
	require.Len(t, notices, 1)
	assert.Equal(t, "drops done?", notices[0].Body)
	assert.Equal(t, "family-"+env.ID, notices[0].Tag)
}

func TestOwnEscalationNotShownTwice(t *testing.T) {
	t.Parallel()
	a := newTestApp(t, testSettings())

	env := family.NewEnvelope("alice@example.com", "alice@example.com", family.KindEscalation, "no motion")
	a.handleFamily(t.Context())(env)

	assert.Empty(t, a.Surface.Notices())
}

func TestFamilyMessagePayload(t *testing.T) {
	t.Parallel()
	a := newTestApp(t, testSettings())

	env := family.Envelope{
		ID:        "abc",
		From:      "bob@example.com",
		Kind:      family.KindEscalation,
		Message:   "check on alice",
		Timestamp: time.Date(2026, 10, 15, 23, 30, 0, 0, time.UTC),
	}
	msg := a.FamilyMessage(env)
	assert.Equal(t, notification.KindFamily, msg.Payload.Kind)
	assert.Equal(t, "2026-10-15", msg.Payload.Date)
	assert.Equal(t, "bob@example.com", msg.Payload.Extra["from"])
	assert.NotEmpty(t, msg.Title)
}

func TestPushConfigDisabledBreakerNeverOpens(t *testing.T) {
	t.Parallel()
	ps := &conf.PushSettings{
		URLs: []string{"generic://example.com"},
		CircuitBreaker: conf.CircuitBreakerSettings{
			Enabled:     false,
			MaxFailures: 3,
		},
	}
	cfg := pushConfig(ps)
	assert.Equal(t, math.MaxInt32, cfg.CircuitBreaker.MaxFailures)

	ps.CircuitBreaker.Enabled = true
	ps.CircuitBreaker.Timeout = time.Minute
	ps.CircuitBreaker.HalfOpenMaxCalls = 2
	cfg = pushConfig(ps)
	assert.Equal(t, 3, cfg.CircuitBreaker.MaxFailures)
	assert.Equal(t, 2, cfg.CircuitBreaker.HalfOpenMaxRequests)
}

func TestRunStopsOnCancel(t *testing.T) {
	t.Parallel()
	a := newTestApp(t, testSettings())

	ctx, cancel := context.WithCancel(t.Context())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestRunFailsWhenMonitorHasNoSource(t *testing.T) {
	t.Parallel()
	s := testSettings()
	s.Monitor.Enabled = true
	a := newTestApp(t, s)

	err := a.Run(t.Context())
	require.Error(t, err)
}
