// Package app wires the eyedrop checker services together and runs them.
package app

import (
	"context"
	"math"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tphakala/eyedrop-checker/internal/capture"
	"github.com/tphakala/eyedrop-checker/internal/conf"
	"github.com/tphakala/eyedrop-checker/internal/errors"
	"github.com/tphakala/eyedrop-checker/internal/family"
	"github.com/tphakala/eyedrop-checker/internal/httpserver"
	"github.com/tphakala/eyedrop-checker/internal/i18n"
	"github.com/tphakala/eyedrop-checker/internal/logger"
	"github.com/tphakala/eyedrop-checker/internal/model"
	"github.com/tphakala/eyedrop-checker/internal/monitor"
	"github.com/tphakala/eyedrop-checker/internal/motion"
	"github.com/tphakala/eyedrop-checker/internal/notification"
	"github.com/tphakala/eyedrop-checker/internal/observability"
	"github.com/tphakala/eyedrop-checker/internal/reminder"
	"github.com/tphakala/eyedrop-checker/internal/storage"
	"github.com/tphakala/eyedrop-checker/internal/suncalc"
)

// GetLogger returns the app module logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("app")
}

// App holds every service of a running daemon.
type App struct {
	Settings   *conf.Settings
	Location   *time.Location
	Printer    *i18n.Printer
	Metrics    *observability.Metrics
	Records    *storage.Records
	Family     storage.FamilyStore
	Presence   *notification.Presence
	Surface    *notification.LocalSurface
	Dispatcher *notification.Dispatcher
	Scheduler  *reminder.Scheduler
	Monitor    *monitor.Monitor
	Escalator  *family.Escalator
	Messenger  family.Messenger
	Server     *httpserver.Server

	version string
	db      *storage.GormStore
	mqtt    *family.MQTTMessenger
	source  *capture.HTTPSource
	log     logger.Logger
}

// New builds the services described by settings. Nothing is started.
func New(settings *conf.Settings, version string) (*App, error) {
	loc, err := settings.Location()
	if err != nil {
		return nil, errors.New(err).
			Component("app").
			Category(errors.CategoryConfiguration).
			Context("timezone", settings.Main.Timezone).
			Build()
	}

	a := &App{
		Settings: settings,
		Location: loc,
		Printer:  i18n.NewPrinter(settings.Main.Locale),
		version:  version,
		log:      GetLogger(),
	}

	if a.Metrics, err = observability.NewMetrics(); err != nil {
		return nil, err
	}
	if err := a.openStorage(); err != nil {
		return nil, err
	}
	if err := a.buildNotification(); err != nil {
		a.Close()
		return nil, err
	}
	a.buildScheduler()
	if err := a.buildFamily(); err != nil {
		a.Close()
		return nil, err
	}
	if err := a.buildMonitor(); err != nil {
		a.Close()
		return nil, err
	}
	a.Server = httpserver.New(&settings.WebServer, httpserver.Deps{
		Records:  a.Records,
		Family:   a.Family,
		Owner:    settings.Main.User,
		Presence: a.Presence,
		Banners:  a.Dispatcher.Banners(),
		Surface:  a.Surface,
		Tester:   a.Scheduler,
		Monitor:  a.Monitor,
		Metrics:  a.Metrics,
		Location: loc,
		Version:  version,
	})
	return a, nil
}

func (a *App) openStorage() error {
	db, err := storage.Open(&a.Settings.Storage)
	if err != nil {
		return err
	}
	a.db = db
	if db == nil {
		a.Records = storage.NewRecords(storage.NewMemoryStore(), a.Settings.Storage.Namespace)
		a.Family = storage.NewMemoryFamilyStore()
		a.log.Warn("using in-memory storage, records are lost on exit")
		return nil
	}
	a.Records = storage.NewRecords(db, a.Settings.Storage.Namespace)
	a.Family = db
	return nil
}

func (a *App) buildNotification() error {
	ns := &a.Settings.Notification
	a.Presence = notification.NewPresence(notification.Environment{
		Permission: notification.ParsePermission(ns.Permission),
		Mobile:     ns.Presence.Mobile,
		Standalone: ns.Presence.Standalone,
		Foreground: ns.Presence.Foreground,
	})

	var presenters []notification.Presenter
	if ns.Console.Enabled {
		presenters = append(presenters, notification.NewConsolePresenter(os.Stdout))
	}
	a.Surface = notification.NewLocalSurface(notification.DefaultNoticeTTL, presenters...)

	cfg := notification.DispatcherConfig{
		Foreground:  a.Surface,
		Banners:     notification.NewBannerBoard(notification.DefaultBannerTTL),
		GracePeriod: ns.GracePeriod,
		Printer:     a.Printer,
		Metrics:     a.Metrics.Notification,
	}
	if ns.Push.Enabled {
		push, err := notification.NewPushChannel(pushConfig(&ns.Push), a.Metrics.Notification)
		if err != nil {
			return err
		}
		cfg.Background = push
	}
	a.Dispatcher = notification.NewDispatcher(cfg)
	return nil
}

func pushConfig(ps *conf.PushSettings) notification.PushConfig {
	cb := notification.CircuitBreakerConfig{
		MaxFailures:         ps.CircuitBreaker.MaxFailures,
		Timeout:             ps.CircuitBreaker.Timeout,
		HalfOpenMaxRequests: ps.CircuitBreaker.HalfOpenMaxCalls,
	}
	if !ps.CircuitBreaker.Enabled {
		// A breaker that never reaches its failure count never opens.
		cb = notification.CircuitBreakerConfig{MaxFailures: math.MaxInt32, Timeout: time.Minute, HalfOpenMaxRequests: 1}
	}
	return notification.PushConfig{
		URLs:           ps.URLs,
		Timeout:        ps.Timeout,
		RateLimit:      ps.RateLimit,
		Burst:          ps.Burst,
		DedupWindow:    ps.DedupWindow,
		MaxRetries:     ps.MaxRetries,
		CircuitBreaker: cb,
	}
}

func (a *App) buildScheduler() {
	rs := &a.Settings.Reminder
	var sun *suncalc.SunCalc
	if rs.Latitude != 0 || rs.Longitude != 0 {
		sun = suncalc.NewSunCalc(rs.Latitude, rs.Longitude, a.Location)
	}
	a.Scheduler = reminder.NewScheduler(reminder.Config{
		Store:    a.Records,
		Notifier: a.Dispatcher,
		Presence: a.Presence,
		Resolver: reminder.NewTimeResolver(a.Location, sun),
		Printer:  a.Printer,
		Metrics:  a.Metrics.Reminder,
	})
}

func (a *App) buildFamily() error {
	fs := &a.Settings.Family
	self := a.Settings.Main.Address
	if fs.Enabled {
		m, err := family.NewMQTTMessenger(family.MQTTConfigFromSettings(fs, self), a.Metrics.Family)
		if err != nil {
			return err
		}
		a.mqtt = m
		a.Messenger = m
	} else {
		a.Messenger = family.NewLogMessenger(self)
	}

	esc, err := family.NewEscalator(family.EscalatorConfig{
		Owner:     a.Settings.Main.User,
		Self:      self,
		Directory: a.Family,
		Messenger: a.Messenger,
		Metrics:   a.Metrics.Family,
	})
	if err != nil {
		return err
	}
	a.Escalator = esc
	return nil
}

func (a *App) buildMonitor() error {
	ms := &a.Settings.Monitor
	var source monitor.FrameSource
	if ms.Snapshot.URL != "" {
		src, err := capture.NewHTTPSource(capture.HTTPConfig{
			URL:      ms.Snapshot.URL,
			Timeout:  ms.Snapshot.Timeout,
			Username: ms.Snapshot.Username,
			Password: ms.Snapshot.Password,
			Retries:  ms.Snapshot.Retries,
		})
		if err != nil {
			return err
		}
		a.source = src
		source = src
	}

	session := monitor.NewSession(monitor.SessionConfig{
		Detector: motion.DetectorConfig{
			PixelThreshold: ms.PixelThreshold,
			MotionRatio:    ms.MotionRatio,
		},
		Classifier: motion.ClassifierConfig{
			Window:        ms.Window,
			MinSamples:    ms.MinSamples,
			HighIntensity: ms.HighIntensity,
		},
		Deadline:     ms.Deadline,
		TestDeadline: ms.TestDeadline,
		Location:     a.Location,
		OnEscalate: monitor.NewAlertHandler(monitor.AlertConfig{
			Escalator: a.Escalator,
			Notifier:  a.Dispatcher,
			Presence:  a.Presence,
			Printer:   a.Printer,
			Metrics:   a.Metrics.Monitor,
		}),
		Metrics: a.Metrics.Monitor,
	})
	a.Monitor = monitor.NewMonitor(session, source, ms.Interval, a.Metrics.Monitor)
	return nil
}

// SeedSettings writes the configured slot times to storage on first start.
func (a *App) SeedSettings(ctx context.Context) error {
	rs := &a.Settings.Reminder
	s := model.DefaultSettings()
	s.NotificationsEnabled = rs.Enabled
	for slot, expr := range map[model.Slot]string{
		model.Morning: rs.Times.Morning,
		model.Noon:    rs.Times.Noon,
		model.Night:   rs.Times.Night,
	} {
		if expr != "" {
			s.Times[slot] = expr
		}
	}
	seeded, err := a.Records.SeedSettings(ctx, s)
	if err != nil {
		return err
	}
	if seeded {
		a.log.Info("reminder settings initialized from configuration",
			logger.Bool("notifications", s.NotificationsEnabled))
	}
	return nil
}

// FamilyMessage turns a received envelope into a local notification.
func (a *App) FamilyMessage(env family.Envelope) notification.Message {
	return notification.Message{
		Title: a.Printer.Sprintf(i18n.KeyFamilyTitle),
		Body:  env.Message,
		Tag:   "family-" + env.ID,
		Payload: notification.Payload{
			Kind:  notification.KindFamily,
			Date:  model.DateKey(env.Timestamp, a.Location),
			Extra: map[string]string{"from": env.From, "kind": env.Kind},
		},
	}
}

// handleFamily dispatches envelopes addressed to the acting user. Escalations
// this instance sent itself were already shown as camera alerts.
func (a *App) handleFamily(ctx context.Context) family.Handler {
	self := a.Settings.Main.Address
	return func(env family.Envelope) {
		if env.From == self && env.Kind == family.KindEscalation {
			return
		}
		attempt := a.Dispatcher.Dispatch(ctx, a.Presence.Environment(), a.FamilyMessage(env))
		a.log.Info("family message delivered",
			logger.String("from", env.From),
			logger.String("status", string(attempt.Status)))
	}
}

// Run starts every enabled service and blocks until ctx is done or one of
// them fails.
func (a *App) Run(ctx context.Context) error {
	if err := a.SeedSettings(ctx); err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)

	if a.mqtt != nil {
		if err := a.mqtt.Connect(ctx); err != nil {
			return err
		}
	}
	if self := a.Settings.Main.Address; self != "" {
		if sub, ok := a.Messenger.(family.Subscriber); ok {
			if err := sub.Subscribe(ctx, self, a.handleFamily(ctx)); err != nil {
				return err
			}
		}
	}

	if a.Settings.Reminder.Enabled {
		g.Go(func() error { return a.Scheduler.Run(ctx) })
	}

	if a.Settings.Monitor.Enabled {
		if err := a.Monitor.Start(a.Settings.Monitor.TestMode); err != nil {
			return err
		}
	}
	g.Go(func() error {
		<-ctx.Done()
		// Sessions started over HTTP are stopped here as well.
		a.Monitor.Stop()
		return nil
	})

	if a.Settings.WebServer.Enabled {
		g.Go(func() error { return a.Server.Run(ctx) })
	}

	a.log.Info("eyedrop checker running",
		logger.String("version", a.version),
		logger.Bool("reminders", a.Settings.Reminder.Enabled),
		logger.Bool("monitor", a.Settings.Monitor.Enabled),
		logger.Bool("family_mqtt", a.mqtt != nil),
		logger.Bool("http", a.Settings.WebServer.Enabled))

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		err = nil
	}
	return err
}

// Close releases every resource New acquired.
func (a *App) Close() {
	if a.Monitor != nil {
		a.Monitor.Stop()
	}
	if a.Dispatcher != nil {
		a.Dispatcher.Close()
	}
	if a.mqtt != nil {
		a.mqtt.Disconnect()
	}
	if a.source != nil {
		a.source.Close()
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.log.Warn("failed to close database", logger.Error(err))
		}
	}
}
