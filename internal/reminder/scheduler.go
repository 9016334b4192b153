// Package reminder fires one notification per slot per day at the configured times.
package reminder

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/tphakala/eyedrop-checker/internal/i18n"
	"github.com/tphakala/eyedrop-checker/internal/logger"
	"github.com/tphakala/eyedrop-checker/internal/model"
	"github.com/tphakala/eyedrop-checker/internal/notification"
	"github.com/tphakala/eyedrop-checker/internal/observability/metrics"
)

// TickInterval is the scheduler period. A slot fires on the first tick inside
// the minute after its target time.
const TickInterval = time.Minute

// Store is the persistence the scheduler reads and updates.
type Store interface {
	Settings(ctx context.Context) (model.Settings, error)
	Day(ctx context.Context, date string) (model.DailyRecord, error)
	MarkNotified(ctx context.Context, slot model.Slot, date string) error
}

// Notifier delivers a message.
type Notifier interface {
	Dispatch(ctx context.Context, env notification.Environment, msg notification.Message) notification.DeliveryAttempt
}

// EnvironmentSource reports the current shell environment.
type EnvironmentSource interface {
	Environment() notification.Environment
}

// Config holds the scheduler collaborators.
type Config struct {
	Store    Store
	Notifier Notifier
	Presence EnvironmentSource
	Resolver *TimeResolver
	Printer  *i18n.Printer
	Metrics  *metrics.ReminderMetrics
}

// Scheduler checks the slot times once a minute.
type Scheduler struct {
	store    Store
	notifier Notifier
	presence EnvironmentSource
	resolver *TimeResolver
	printer  *i18n.Printer
	metrics  *metrics.ReminderMetrics
	log      logger.Logger

	mu        sync.Mutex
	isRunning bool
	cancel    context.CancelFunc
	done      chan struct{}
}

// NewScheduler creates a scheduler. A nil resolver resolves clock times in time.Local.
func NewScheduler(cfg Config) *Scheduler {
	if cfg.Resolver == nil {
		cfg.Resolver = NewTimeResolver(time.Local, nil)
	}
	if cfg.Printer == nil {
		cfg.Printer = i18n.NewPrinter("en")
	}
	return &Scheduler{
		store:    cfg.Store,
		notifier: cfg.Notifier,
		presence: cfg.Presence,
		resolver: cfg.Resolver,
		printer:  cfg.Printer,
		metrics:  cfg.Metrics,
		log:      GetLogger(),
	}
}

// ShouldFire reports whether a slot whose target time is target fires at now.
// It fires inside [target, target+1m) unless it was already notified today or is done.
func ShouldFire(now, target time.Time, today, lastNotified string, done bool) bool {
	elapsed := now.Sub(target)
	if elapsed < 0 || elapsed >= TickInterval {
		return false
	}
	return lastNotified != today && !done
}

// Tick evaluates every slot at now and returns the slots that fired.
// Failures are logged; Tick never returns an error.
func (s *Scheduler) Tick(ctx context.Context, now time.Time) []model.Slot {
	if s.metrics != nil {
		s.metrics.RecordTick()
	}

	settings, err := s.store.Settings(ctx)
	if err != nil {
		s.log.Warn("failed to load reminder settings", logger.Error(err))
		return nil
	}
	if !settings.NotificationsEnabled {
		return nil
	}

	today := model.DateKey(now, s.resolver.Location())
	record, err := s.store.Day(ctx, today)
	if err != nil {
		s.log.Warn("failed to load day record",
			logger.String("date", today),
			logger.Error(err))
		return nil
	}

	var fired []model.Slot
	for _, slot := range model.Slots {
		expr := settings.Times[slot]
		if expr == "" {
			continue
		}
		target, err := s.resolver.Resolve(expr, now)
		if err != nil {
			if s.metrics != nil {
				s.metrics.RecordResolveError(string(slot))
			}
			s.log.Warn("cannot resolve slot time",
				logger.String("slot", string(slot)),
				logger.String("expression", expr),
				logger.Error(err))
			continue
		}
		if !ShouldFire(now, target, today, settings.LastNotified[slot], record.Done(slot)) {
			continue
		}
		s.fire(ctx, slot, today)
		fired = append(fired, slot)
	}
	return fired
}

func (s *Scheduler) fire(ctx context.Context, slot model.Slot, today string) {
	label := s.printer.SlotLabel(string(slot))
	msg := notification.Message{
		Title: s.printer.Sprintf(i18n.KeyReminderTitle),
		Body:  s.printer.Sprintf(i18n.KeyReminderBody, label),
		Tag:   ReminderTag(slot, today),
		Payload: notification.Payload{
			Kind: notification.KindReminder,
			Slot: string(slot),
			Date: today,
		},
	}

	attempt := s.notifier.Dispatch(ctx, s.environment(), msg)
	if s.metrics != nil {
		s.metrics.RecordFired(string(slot))
	}
	s.log.Info("reminder fired",
		logger.String("slot", string(slot)),
		logger.String("date", today),
		logger.String("channel", string(attempt.Channel)),
		logger.String("status", string(attempt.Status)))

	// Settings are re-read inside MarkNotified so edits made since the tick
	// started are kept.
	if err := s.store.MarkNotified(ctx, slot, today); err != nil {
		if s.metrics != nil {
			s.metrics.RecordPersistError()
		}
		s.log.Error("failed to record notified slot",
			logger.String("slot", string(slot)),
			logger.String("date", today),
			logger.Error(err))
	}
}

func (s *Scheduler) environment() notification.Environment {
	if s.presence == nil {
		return notification.Environment{Permission: notification.PermissionGranted}
	}
	return s.presence.Environment()
}

// ReminderTag is the notification tag of slot on date. Repeats with the same
// tag replace each other on the notification surface.
func ReminderTag(slot model.Slot, date string) string {
	return fmt.Sprintf("eyedrop-%s-%s", slot, date)
}

// SendTest dispatches a test notification tagged test-<date>.
func (s *Scheduler) SendTest(ctx context.Context, now time.Time) notification.DeliveryAttempt {
	today := model.DateKey(now, s.resolver.Location())
	attempt := s.notifier.Dispatch(ctx, s.environment(), notification.Message{
		Title:   s.printer.Sprintf(i18n.KeyTestTitle),
		Body:    s.printer.Sprintf(i18n.KeyTestBody),
		Tag:     "test-" + today,
		Payload: notification.Payload{Kind: notification.KindTest, Date: today},
	})
	s.log.Info("test notification sent",
		logger.String("status", string(attempt.Status)),
		logger.String("error", attempt.ErrorText()))
	return attempt
}

// Run ticks at every wall-clock minute boundary until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	now := time.Now()
	first := time.NewTimer(now.Truncate(TickInterval).Add(TickInterval).Sub(now))
	defer first.Stop()

	select {
	case <-ctx.Done():
		return nil
	case now := <-first.C:
		s.Tick(ctx, now)
	}

	ticker := time.NewTicker(TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			s.Tick(ctx, now)
		}
	}
}

// Start runs the scheduler in the background.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})
	s.isRunning = true

	go func(done chan struct{}) {
		defer close(done)
		_ = s.Run(ctx)
	}(s.done)
	s.log.Info("reminder scheduler started")
}

// Stop stops a scheduler started with Start and waits for the loop to exit.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return
	}
	s.cancel()
	done := s.done
	s.isRunning = false
	s.mu.Unlock()

	<-done
	s.log.Info("reminder scheduler stopped")
}

// IsRunning reports whether a Start-ed loop is active.
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isRunning
}
