// Package telemetry provides opt-in error reporting to Sentry.
package telemetry

import (
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/tphakala/eyedrop-checker/internal/conf"
	"github.com/tphakala/eyedrop-checker/internal/errors"
	"github.com/tphakala/eyedrop-checker/internal/logger"
)

// FlushTimeout bounds how long Shutdown waits for queued events.
const FlushTimeout = 2 * time.Second

// GetLogger returns the telemetry module logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("telemetry")
}

// Init initializes the Sentry SDK when telemetry is enabled and routes built
// errors to it. It returns false when telemetry stays off.
func Init(settings *conf.TelemetrySettings, release string) (bool, error) {
	return initWithTransport(settings, release, nil)
}

func initWithTransport(settings *conf.TelemetrySettings, release string, transport sentry.Transport) (bool, error) {
	log := GetLogger()
	if !settings.Enabled {
		log.Info("telemetry is disabled")
		errors.SetTelemetryReporter(nil)
		return false, nil
	}
	if settings.DSN == "" {
		return false, errors.Newf("telemetry is enabled but no DSN is configured").
			Component("telemetry").
			Category(errors.CategoryConfiguration).
			Build()
	}

	env := settings.Environment
	if env == "" {
		env = "production"
	}
	err := sentry.Init(sentry.ClientOptions{
		Dsn:              settings.DSN,
		SampleRate:       1.0,
		AttachStacktrace: false,
		Environment:      env,
		ServerName:       "",
		Release:          "eyedrop-checker@" + release,
		Transport:        transport,
		BeforeSend:       scrubEvent,
	})
	if err != nil {
		return false, errors.New(err).
			Component("telemetry").
			Category(errors.CategoryConfiguration).
			Build()
	}

	errors.SetTelemetryReporter(errors.NewSentryReporter(true))
	log.Info("telemetry enabled", logger.String("environment", env))
	return true, nil
}

// Shutdown detaches the reporter and flushes pending events.
func Shutdown() {
	errors.SetTelemetryReporter(nil)
	sentry.Flush(FlushTimeout)
}

// scrubEvent drops host identity and redacts secrets from event text.
func scrubEvent(event *sentry.Event, _ *sentry.EventHint) *sentry.Event {
	event.ServerName = ""
	event.User = sentry.User{}
	event.Request = nil
	event.Message = errors.ScrubMessage(event.Message)
	for i := range event.Exception {
		event.Exception[i].Value = errors.ScrubMessage(event.Exception[i].Value)
	}
	return event
}
