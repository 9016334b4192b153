package monitor

import (
	"context"
	"fmt"

	"github.com/tphakala/eyedrop-checker/internal/i18n"
	"github.com/tphakala/eyedrop-checker/internal/logger"
	"github.com/tphakala/eyedrop-checker/internal/notification"
	"github.com/tphakala/eyedrop-checker/internal/observability/metrics"
)

// Escalator forwards the escalation message to the user and their family.
type Escalator interface {
	Escalate(ctx context.Context, message string) error
}

// Notifier delivers a local notification.
type Notifier interface {
	Dispatch(ctx context.Context, env notification.Environment, msg notification.Message) notification.DeliveryAttempt
}

// EnvironmentSource reports the current shell environment.
type EnvironmentSource interface {
	Environment() notification.Environment
}

// AlertConfig holds what an elapsed deadline is reported through. Any of the
// collaborators may be nil.
type AlertConfig struct {
	Escalator Escalator
	Notifier  Notifier
	Presence  EnvironmentSource
	Printer   *i18n.Printer
	Metrics   *metrics.MonitorMetrics
}

// NewAlertHandler returns an EscalationFunc that raises a local camera alert and
// then escalates to family messaging. Only the escalation error is returned.
func NewAlertHandler(cfg AlertConfig) EscalationFunc {
	if cfg.Printer == nil {
		cfg.Printer = i18n.NewPrinter("en")
	}
	log := GetLogger()

	return func(ctx context.Context, ev Escalation) error {
		message := EscalationMessage(cfg.Printer, ev)

		if cfg.Notifier != nil {
			env := notification.Environment{Permission: notification.PermissionGranted}
			if cfg.Presence != nil {
				env = cfg.Presence.Environment()
			}
			attempt := cfg.Notifier.Dispatch(ctx, env, notification.Message{
				Title: cfg.Printer.Sprintf(i18n.KeyCameraTitle),
				Body:  message,
				Tag:   CameraAlertTag(ev),
				Payload: notification.Payload{
					Kind: notification.KindCamera,
					Date: ev.Date,
				},
			})
			log.Info("camera alert dispatched",
				logger.String("status", string(attempt.Status)),
				logger.String("channel", string(attempt.Channel)))
		}

		if cfg.Escalator == nil {
			return nil
		}
		err := cfg.Escalator.Escalate(ctx, message)
		if cfg.Metrics != nil {
			status := metrics.StatusSuccess
			if err != nil {
				status = metrics.StatusError
			}
			cfg.Metrics.RecordEscalation(status)
		}
		return err
	}
}

// EscalationMessage is the localized text naming the deadline and the date.
func EscalationMessage(p *i18n.Printer, ev Escalation) string {
	return p.Sprintf(i18n.KeyEscalation, p.Duration(ev.Deadline), ev.Date)
}

// CameraAlertTag identifies one elapsed deadline.
func CameraAlertTag(ev Escalation) string {
	return fmt.Sprintf("camera-alert-%s-%s", ev.Date, ev.FiredAt.Format("150405"))
}
