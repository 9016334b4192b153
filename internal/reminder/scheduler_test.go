package reminder

import (
	"context"
	"sync"
	"testing"
	"testing/synctest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/eyedrop-checker/internal/errors"
	"github.com/tphakala/eyedrop-checker/internal/i18n"
	"github.com/tphakala/eyedrop-checker/internal/model"
	"github.com/tphakala/eyedrop-checker/internal/notification"
	"github.com/tphakala/eyedrop-checker/internal/storage"
)

type recordingNotifier struct {
	mu       sync.Mutex
	messages []notification.Message
	envs     []notification.Environment
}

func (n *recordingNotifier) Dispatch(_ context.Context, env notification.Environment, msg notification.Message) notification.DeliveryAttempt {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, msg)
	n.envs = append(n.envs, env)
	return notification.DeliveryAttempt{
		Channel: notification.ChannelForeground,
		Status:  notification.StatusDelivered,
		Tag:     msg.Tag,
	}
}

func (n *recordingNotifier) sent() []notification.Message {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]notification.Message(nil), n.messages...)
}

type failingMarkStore struct {
	*storage.Records
}

func (failingMarkStore) MarkNotified(context.Context, model.Slot, string) error {
	return errors.NewStd("disk full")
}

func newTestRecords(t *testing.T, enabled bool) *storage.Records {
	t.Helper()
	records := storage.NewRecords(storage.NewMemoryStore(), "")
	_, err := records.UpdateSettings(context.Background(), func(s *model.Settings) {
		s.NotificationsEnabled = enabled
	})
	require.NoError(t, err)
	return records
}

func newTestScheduler(store Store, notifier Notifier, locale string) *Scheduler {
	return NewScheduler(Config{
		Store:    store,
		Notifier: notifier,
		Presence: notification.NewPresence(notification.Environment{Permission: notification.PermissionGranted}),
		Resolver: NewTimeResolver(time.UTC, nil),
		Printer:  i18n.NewPrinter(locale),
	})
}

func at(day, hour, minute, second int) time.Time {
	return time.Date(2026, 10, day, hour, minute, second, 0, time.UTC)
}

func TestShouldFire(t *testing.T) {
	t.Parallel()

	target := at(15, 8, 0, 0)
	tests := []struct {
		name         string
		now          time.Time
		lastNotified string
		done         bool
		want         bool
	}{
		{"at target", target, "", false, true},
		{"inside minute", target.Add(59 * time.Second), "", false, true},
		{"end of minute", target.Add(time.Minute), "", false, false},
		{"before target", target.Add(-time.Second), "", false, false},
		{"already notified today", target, "2026-10-15", false, false},
		{"notified yesterday", target, "2026-10-14", false, true},
		{"slot done", target, "", true, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, ShouldFire(tt.now, target, "2026-10-15", tt.lastNotified, tt.done))
		})
	}
}

func TestTickFiresOncePerSlotPerDay(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	records := newTestRecords(t, true)
	notifier := &recordingNotifier{}
	s := newTestScheduler(records, notifier, "en")

	assert.Equal(t, []model.Slot{model.Morning}, s.Tick(ctx, at(15, 8, 0, 0)))
	assert.Empty(t, s.Tick(ctx, at(15, 8, 0, 30)), "same minute, already notified")
	assert.Empty(t, s.Tick(ctx, at(15, 8, 1, 0)), "window closed")

	settings, err := records.Settings(ctx)
	require.NoError(t, err)
	assert.Equal(t, "2026-10-15", settings.LastNotified[model.Morning])

	sent := notifier.sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "eyedrop-morning-2026-10-15", sent[0].Tag)
	assert.Equal(t, "Eyedrop time", sent[0].Title)
	assert.Equal(t, "Don't forget your Morning eyedrops.", sent[0].Body)
	assert.Equal(t, notification.KindReminder, sent[0].Payload.Kind)
	assert.Equal(t, "morning", sent[0].Payload.Slot)
	assert.Equal(t, "2026-10-15", sent[0].Payload.Date)
}

func TestTickDayRollover(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	records := newTestRecords(t, true)
	notifier := &recordingNotifier{}
	s := newTestScheduler(records, notifier, "ja")

	require.Len(t, s.Tick(ctx, at(15, 20, 0, 0)), 1)
	require.Len(t, s.Tick(ctx, at(16, 20, 0, 5)), 1)

	sent := notifier.sent()
	require.Len(t, sent, 2)
	assert.Equal(t, "eyedrop-night-2026-10-15", sent[0].Tag)
	assert.Equal(t, "eyedrop-night-2026-10-16", sent[1].Tag)
	assert.Equal(t, "目薬の時間です", sent[1].Title)
	assert.Equal(t, "夜の目薬を忘れずに。", sent[1].Body)
}

func TestTickSkipsDoneSlot(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	records := newTestRecords(t, true)
	_, err := records.SetSlot(ctx, "2026-10-15", model.Noon, true)
	require.NoError(t, err)

	notifier := &recordingNotifier{}
	s := newTestScheduler(records, notifier, "en")

	assert.Empty(t, s.Tick(ctx, at(15, 12, 0, 0)))
	assert.Empty(t, notifier.sent())
}

func TestTickDisabledNotifications(t *testing.T) {
	t.Parallel()

	notifier := &recordingNotifier{}
	s := newTestScheduler(newTestRecords(t, false), notifier, "en")

	assert.Empty(t, s.Tick(context.Background(), at(15, 8, 0, 0)))
	assert.Empty(t, notifier.sent())
}

func TestTickSkipsEmptyAndInvalidTimes(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	records := newTestRecords(t, true)
	_, err := records.UpdateSettings(ctx, func(s *model.Settings) {
		s.Times[model.Morning] = ""
		s.Times[model.Noon] = "noonish"
		s.Times[model.Night] = "08:00"
	})
	require.NoError(t, err)

	notifier := &recordingNotifier{}
	s := newTestScheduler(records, notifier, "en")

	assert.Equal(t, []model.Slot{model.Night}, s.Tick(ctx, at(15, 8, 0, 0)))
}

func TestTickSwallowsPersistFailure(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	notifier := &recordingNotifier{}
	s := newTestScheduler(failingMarkStore{newTestRecords(t, true)}, notifier, "en")

	assert.Equal(t, []model.Slot{model.Morning}, s.Tick(ctx, at(15, 8, 0, 0)))
	// Nothing was persisted, so the guard does not hold within the window.
	assert.Equal(t, []model.Slot{model.Morning}, s.Tick(ctx, at(15, 8, 0, 30)))
	assert.Len(t, notifier.sent(), 2)
}

func TestTickUsesPresenceEnvironment(t *testing.T) {
	t.Parallel()

	presence := notification.NewPresence(notification.Environment{Permission: notification.PermissionDenied})
	notifier := &recordingNotifier{}
	s := NewScheduler(Config{
		Store:    newTestRecords(t, true),
		Notifier: notifier,
		Presence: presence,
		Resolver: NewTimeResolver(time.UTC, nil),
	})

	s.Tick(context.Background(), at(15, 8, 0, 0))
	require.Len(t, notifier.envs, 1)
	assert.Equal(t, notification.PermissionDenied, notifier.envs[0].Permission)
}

func TestSendTest(t *testing.T) {
	t.Parallel()

	notifier := &recordingNotifier{}
	s := newTestScheduler(newTestRecords(t, false), notifier, "ja")

	attempt := s.SendTest(context.Background(), at(15, 10, 0, 0))
	assert.Equal(t, notification.StatusDelivered, attempt.Status)

	sent := notifier.sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "test-2026-10-15", sent[0].Tag)
	assert.Equal(t, "テスト通知", sent[0].Title)
	assert.Equal(t, notification.KindTest, sent[0].Payload.Kind)
}

func TestRunTicksOnMinuteBoundaries(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		ctx := context.Background()
		records := newTestRecords(t, true)
		start := time.Now().UTC()
		target := start.Add(2 * time.Minute).Truncate(time.Minute)
		_, err := records.UpdateSettings(ctx, func(s *model.Settings) {
			s.Times = map[model.Slot]string{model.Morning: target.Format("15:04")}
		})
		require.NoError(t, err)

		notifier := &recordingNotifier{}
		s := newTestScheduler(records, notifier, "en")
		s.Start()
		assert.True(t, s.IsRunning())

		time.Sleep(5*time.Minute + time.Second)
		synctest.Wait()
		s.Stop()
		assert.False(t, s.IsRunning())

		sent := notifier.sent()
		require.Len(t, sent, 1)
		assert.Equal(t, ReminderTag(model.Morning, model.DateKey(target, time.UTC)), sent[0].Tag)
	})
}

func TestRunStopsOnCancel(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		ctx, cancel := context.WithCancel(t.Context())
		s := newTestScheduler(newTestRecords(t, false), &recordingNotifier{}, "en")

		done := make(chan error, 1)
		go func() { done <- s.Run(ctx) }()

		time.Sleep(90 * time.Second)
		cancel()
		synctest.Wait()
		require.NoError(t, <-done)
	})
}
