package notification

import (
	"context"
	"fmt"
	"io"
	"log"
	"slices"
	"time"

	"github.com/codeGROOVE-dev/retry"
	shoutrrr "github.com/nicholas-fedor/shoutrrr"
	stypes "github.com/nicholas-fedor/shoutrrr/pkg/types"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"github.com/tphakala/eyedrop-checker/internal/errors"
	"github.com/tphakala/eyedrop-checker/internal/logger"
	"github.com/tphakala/eyedrop-checker/internal/observability/metrics"
)

// Push channel defaults.
const (
	DefaultPushTimeout     = 10 * time.Second
	DefaultPushRateLimit   = 30 // per minute
	DefaultPushBurst       = 5
	DefaultPushDedupWindow = 10 * time.Minute
	DefaultPushMaxRetries  = 3
	pushRetryDelay         = 500 * time.Millisecond
	pushMaxRetryDelay      = 10 * time.Second
)

// PushConfig configures the background push channel.
type PushConfig struct {
	Name           string
	URLs           []string
	Timeout        time.Duration
	RateLimit      int // notifications per minute
	Burst          int
	DedupWindow    time.Duration
	MaxRetries     int
	CircuitBreaker CircuitBreakerConfig
}

func (c *PushConfig) applyDefaults() {
	if c.Name == "" {
		c.Name = "shoutrrr"
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultPushTimeout
	}
	if c.RateLimit <= 0 {
		c.RateLimit = DefaultPushRateLimit
	}
	if c.Burst <= 0 {
		c.Burst = DefaultPushBurst
	}
	if c.DedupWindow <= 0 {
		c.DedupWindow = DefaultPushDedupWindow
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = DefaultPushMaxRetries
	}
	if c.CircuitBreaker.MaxFailures == 0 {
		c.CircuitBreaker = DefaultCircuitBreakerConfig()
	}
}

// pushSender is the part of the shoutrrr router the channel uses.
type pushSender interface {
	Send(message string, params *stypes.Params) []error
}

// PushChannel is the background channel. It sends through shoutrrr service URLs,
// dropping repeats of a tag inside the dedup window.
type PushChannel struct {
	cfg     PushConfig
	sender  pushSender
	limiter *rate.Limiter
	sent    *cache.Cache
	breaker *PushCircuitBreaker
	metrics *metrics.NotificationMetrics
	log     logger.Logger
}

// NewPushChannel builds a shoutrrr sender for cfg.URLs.
func NewPushChannel(cfg PushConfig, m *metrics.NotificationMetrics) (*PushChannel, error) {
	if len(cfg.URLs) == 0 {
		return nil, errors.Newf("push channel needs at least one service URL").
			Component("notification").
			Category(errors.CategoryConfiguration).
			Build()
	}
	cfg.applyDefaults()

	router, err := shoutrrr.CreateSender(slices.Clone(cfg.URLs)...)
	if err != nil {
		// Service URLs usually embed tokens.
		return nil, errors.Newf("invalid push service URL: %s", errors.ScrubMessage(err.Error())).
			Component("notification").
			Category(errors.CategoryConfiguration).
			Build()
	}
	router.Timeout = cfg.Timeout
	router.SetLogger(log.New(io.Discard, "", 0))

	return newPushChannel(cfg, router, m), nil
}

func newPushChannel(cfg PushConfig, sender pushSender, m *metrics.NotificationMetrics) *PushChannel {
	cfg.applyDefaults()
	return &PushChannel{
		cfg:     cfg,
		sender:  sender,
		limiter: rate.NewLimiter(rate.Limit(float64(cfg.RateLimit)/60.0), cfg.Burst),
		sent:    cache.New(cfg.DedupWindow, 0),
		breaker: NewPushCircuitBreaker(cfg.CircuitBreaker, m, cfg.Name),
		metrics: m,
		log:     GetLogger().With(logger.String("channel", string(ChannelBackground)), logger.String("provider", cfg.Name)),
	}
}

// Name returns the provider name.
func (p *PushChannel) Name() string { return p.cfg.Name }

// Deliver sends msg. A tag delivered within the dedup window is treated as
// already delivered.
func (p *PushChannel) Deliver(ctx context.Context, msg Message) error {
	if msg.Tag != "" {
		if _, dup := p.sent.Get(msg.Tag); dup {
			if p.metrics != nil {
				p.metrics.RecordPushDeduplicated()
			}
			p.log.Debug("push deduplicated", logger.String("tag", msg.Tag))
			return nil
		}
	}

	if !p.limiter.Allow() {
		if p.metrics != nil {
			p.metrics.RecordPushRateLimited()
		}
		return errors.Newf("push rate limit exceeded").
			Component("notification").
			Category(errors.CategoryLimit).
			Context("tag", msg.Tag).
			Build()
	}

	err := p.breaker.Call(ctx, func(ctx context.Context) error {
		return p.sendWithRetry(ctx, msg)
	})
	if err != nil {
		return errors.New(err).
			Component("notification").
			Category(errors.CategoryNotification).
			Context("channel", string(ChannelBackground)).
			Context("provider", p.cfg.Name).
			Context("tag", msg.Tag).
			Build()
	}

	if msg.Tag != "" {
		p.sent.DeleteExpired()
		p.sent.SetDefault(msg.Tag, struct{}{})
	}
	if p.metrics != nil {
		p.metrics.RecordPushSuccess(p.cfg.Name)
	}
	return nil
}

func (p *PushChannel) sendWithRetry(ctx context.Context, msg Message) error {
	var lastErr error
	err := retry.Do(
		func() error {
			lastErr = p.send(msg)
			return lastErr
		},
		retry.Context(ctx),
		retry.Attempts(uint(p.cfg.MaxRetries)),
		retry.Delay(pushRetryDelay),
		retry.MaxDelay(pushMaxRetryDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.OnRetry(func(n uint, err error) {
			if p.metrics != nil {
				p.metrics.RecordRetryAttempt(p.cfg.Name)
			}
			p.log.Debug("retrying push",
				logger.Int("attempt", int(n)+1),
				logger.String("tag", msg.Tag),
				logger.Error(err))
		}),
	)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return lastErr
	}
	return nil
}

func (p *PushChannel) send(msg Message) error {
	params := stypes.Params{}
	if msg.Title != "" {
		params.SetTitle(msg.Title)
	}
	for _, err := range p.sender.Send(msg.Body, &params) {
		if err != nil {
			return fmt.Errorf("push send failed: %s", errors.ScrubMessage(err.Error()))
		}
	}
	return nil
}

// Breaker exposes the circuit breaker for health reporting.
func (p *PushChannel) Breaker() *PushCircuitBreaker { return p.breaker }
