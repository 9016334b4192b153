package notification

import (
	"context"
	"sync"
	"time"

	"github.com/tphakala/eyedrop-checker/internal/errors"
	"github.com/tphakala/eyedrop-checker/internal/i18n"
	"github.com/tphakala/eyedrop-checker/internal/logger"
	"github.com/tphakala/eyedrop-checker/internal/observability/metrics"
)

// DefaultGracePeriod is how long a foreground notice may stay unconfirmed before
// an in-page banner is raised.
const DefaultGracePeriod = 5 * time.Second

// DispatcherConfig configures a Dispatcher.
type DispatcherConfig struct {
	// Background is optional; without it every dispatch uses the foreground channel.
	Background  BackgroundChannel
	Foreground  ForegroundChannel
	Banners     *BannerBoard
	GracePeriod time.Duration
	Printer     *i18n.Printer
	Metrics     *metrics.NotificationMetrics
}

// Dispatcher delivers messages through the background or foreground channel.
// It is safe for concurrent use.
type Dispatcher struct {
	background BackgroundChannel
	foreground ForegroundChannel
	banners    *BannerBoard
	grace      time.Duration
	printer    *i18n.Printer
	metrics    *metrics.NotificationMetrics
	log        logger.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewDispatcher creates a Dispatcher. Close stops the notice watchers it starts.
func NewDispatcher(cfg DispatcherConfig) *Dispatcher {
	if cfg.GracePeriod <= 0 {
		cfg.GracePeriod = DefaultGracePeriod
	}
	if cfg.Banners == nil {
		cfg.Banners = NewBannerBoard(DefaultBannerTTL)
	}
	if cfg.Printer == nil {
		cfg.Printer = i18n.NewPrinter("")
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Dispatcher{
		background: cfg.Background,
		foreground: cfg.Foreground,
		banners:    cfg.Banners,
		grace:      cfg.GracePeriod,
		printer:    cfg.Printer,
		metrics:    cfg.Metrics,
		log:        GetLogger(),
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Banners returns the board banners are raised on.
func (d *Dispatcher) Banners() *BannerBoard { return d.banners }

// Dispatch delivers msg given the host environment env. It never panics and never
// returns an error; the outcome is in the returned attempt.
func (d *Dispatcher) Dispatch(ctx context.Context, env Environment, msg Message) DeliveryAttempt {
	start := time.Now()
	attempt := d.dispatch(ctx, env, msg)
	attempt.Tag = msg.Tag

	if d.metrics != nil {
		d.metrics.RecordDispatch(string(attempt.Channel), string(msg.Payload.Kind), string(attempt.Status), time.Since(start))
	}
	fields := []logger.Field{
		logger.String("tag", msg.Tag),
		logger.String("kind", string(msg.Payload.Kind)),
		logger.String("channel", string(attempt.Channel)),
		logger.String("status", string(attempt.Status)),
		logger.Bool("fell_back", attempt.FellBack),
	}
	switch attempt.Status {
	case StatusFailed:
		d.log.Warn("notification dispatch failed", append(fields, logger.Error(attempt.Err))...)
	case StatusBlocked:
		d.log.Info("notification blocked by permission", append(fields, logger.String("permission", string(env.Permission)))...)
	default:
		d.log.Debug("notification dispatched", fields...)
	}
	return attempt
}

func (d *Dispatcher) dispatch(ctx context.Context, env Environment, msg Message) DeliveryAttempt {
	if env.Permission != PermissionGranted {
		return DeliveryAttempt{
			Channel: ChannelNone,
			Status:  StatusBlocked,
			Err: errors.Newf("notification permission is %s", env.Permission).
				Component("notification").
				Category(errors.CategoryPermission).
				Build(),
		}
	}

	fellBack := false
	if env.PrefersBackground() && d.background != nil {
		err := d.deliverBackground(ctx, msg)
		if err == nil {
			return DeliveryAttempt{Channel: ChannelBackground, Status: StatusDelivered}
		}
		d.log.Warn("background channel failed, falling back to foreground",
			logger.String("tag", msg.Tag),
			logger.String("provider", d.background.Name()),
			logger.Error(err))
		fellBack = true
	}

	if d.foreground == nil {
		return DeliveryAttempt{
			Channel:  ChannelForeground,
			Status:   StatusFailed,
			FellBack: fellBack,
			Err: errors.Newf("no foreground channel configured").
				Component("notification").
				Category(errors.CategoryConfiguration).
				Build(),
		}
	}

	handle, err := d.showForeground(ctx, msg)
	if err != nil {
		return DeliveryAttempt{Channel: ChannelForeground, Status: StatusFailed, FellBack: fellBack, Err: err}
	}

	status := StatusUnconfirmed
	select {
	case <-handle.Shown():
		status = StatusDelivered
	default:
	}
	d.watch(handle, msg, env.Foreground)
	return DeliveryAttempt{Channel: ChannelForeground, Status: status, FellBack: fellBack}
}

// deliverBackground and showForeground turn channel panics into errors.
func (d *Dispatcher) deliverBackground(ctx context.Context, msg Message) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Newf("background channel panic: %v", r).
				Component("notification").
				Category(errors.CategoryNotification).
				Build()
		}
	}()
	return d.background.Deliver(ctx, msg)
}

func (d *Dispatcher) showForeground(ctx context.Context, msg Message) (h Handle, err error) {
	defer func() {
		if r := recover(); r != nil {
			h = nil
			err = errors.Newf("foreground channel panic: %v", r).
				Component("notification").
				Category(errors.CategoryNotification).
				Build()
		}
	}()
	h, err = d.foreground.Show(ctx, msg)
	if err == nil && h == nil {
		err = errors.Newf("foreground channel returned no handle").
			Component("notification").
			Category(errors.CategoryNotification).
			Build()
	}
	return h, err
}

// watch follows a foreground notice until it closes. If it is not shown within the
// grace period while the app has focus, an unconfirmed banner is raised; a click
// raises an opened banner.
func (d *Dispatcher) watch(h Handle, msg Message, foreground bool) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()

		shown := h.Shown()
		clicked := h.Clicked()
		grace := time.NewTimer(d.grace)
		defer grace.Stop()
		graceC := grace.C
		confirmed := false

		for {
			select {
			case <-d.ctx.Done():
				return
			case <-shown:
				confirmed = true
				shown = nil
				graceC = nil
			case <-graceC:
				graceC = nil
				if !confirmed && foreground {
					d.raise(BannerUnconfirmed, msg)
				}
			case <-clicked:
				clicked = nil
				d.raise(BannerOpened, msg)
			case <-h.Closed():
				// A click closes the notice too; do not lose it to select ordering.
				if clicked != nil {
					select {
					case <-clicked:
						d.raise(BannerOpened, msg)
					default:
					}
				}
				return
			}
		}
	}()
}

func (d *Dispatcher) raise(reason BannerReason, msg Message) {
	b := Banner{
		Reason: reason,
		Kind:   msg.Payload.Kind,
		Title:  msg.Title,
		Body:   msg.Body,
		Slot:   msg.Payload.Slot,
		Date:   msg.Payload.Date,
	}
	if msg.Payload.Slot != "" {
		label := d.printer.SlotLabel(msg.Payload.Slot)
		b.Action = d.printer.Sprintf(i18n.KeyMarkDone, label)
		if reason == BannerOpened {
			b.Title = d.printer.Sprintf(i18n.KeyOpenedBanner, label)
		}
	}
	b = d.banners.Publish(b)
	if d.metrics != nil {
		d.metrics.RecordBanner(string(reason))
	}
	d.log.Info("in-page banner raised",
		logger.String("banner_id", b.ID),
		logger.String("reason", string(reason)),
		logger.String("tag", msg.Tag))
}

// Close stops all notice watchers and waits for them to exit.
func (d *Dispatcher) Close() {
	d.cancel()
	d.wg.Wait()
}
