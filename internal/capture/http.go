package capture

import (
	"context"
	"fmt"
	"image"
	_ "image/jpeg" // register decoder
	_ "image/png"  // register decoder
	"io"
	"net/http"
	"time"

	"github.com/codeGROOVE-dev/retry"

	"github.com/tphakala/eyedrop-checker/internal/errors"
	"github.com/tphakala/eyedrop-checker/internal/httpclient"
	"github.com/tphakala/eyedrop-checker/internal/logger"
	"github.com/tphakala/eyedrop-checker/internal/motion"
)

// HTTP source defaults.
const (
	DefaultSnapshotTimeout = 5 * time.Second
	DefaultSnapshotRetries = 2
	defaultRetryDelay      = 200 * time.Millisecond
	maxSnapshotBytes       = 16 << 20
)

// HTTPConfig configures an HTTPSource.
type HTTPConfig struct {
	URL        string
	Timeout    time.Duration
	Username   string
	Password   string
	Retries    int // attempts per snapshot
	RetryDelay time.Duration
}

// HTTPSource fetches JPEG or PNG snapshots from an IP camera.
type HTTPSource struct {
	cfg    HTTPConfig
	client *httpclient.Client
	log    logger.Logger
}

// NewHTTPSource creates a snapshot source for cfg.URL.
func NewHTTPSource(cfg HTTPConfig) (*HTTPSource, error) {
	if cfg.URL == "" {
		return nil, errors.Newf("snapshot URL is required").
			Component("capture").
			Category(errors.CategoryConfiguration).
			Build()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultSnapshotTimeout
	}
	if cfg.Retries <= 0 {
		cfg.Retries = DefaultSnapshotRetries
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = defaultRetryDelay
	}

	client := httpclient.New(&httpclient.Config{DefaultTimeout: cfg.Timeout})
	s := &HTTPSource{
		cfg:    cfg,
		client: client,
		log:    GetLogger().With(logger.String("url", errors.ScrubMessage(cfg.URL))),
	}
	client.SetAfterResponseHook(func(_ *http.Request, resp *http.Response, d time.Duration, err error) {
		if err != nil {
			return
		}
		s.log.Trace("snapshot response",
			logger.Int("status", resp.StatusCode),
			logger.Duration("duration", d))
	})
	return s, nil
}

// Client exposes the HTTP client, e.g. for installing a mock transport in tests.
func (s *HTTPSource) Client() *httpclient.Client { return s.client }

// Close releases idle connections.
func (s *HTTPSource) Close() { s.client.Close() }

// Snapshot downloads and decodes one frame. Network and 5xx failures are retried;
// undecodable bodies and 4xx responses are not.
func (s *HTTPSource) Snapshot(ctx context.Context) (motion.Frame, error) {
	var frame motion.Frame

	err := retry.Do(
		func() error {
			f, err := s.fetch(ctx)
			if err != nil {
				return err
			}
			frame = f
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(uint(s.cfg.Retries)),
		retry.Delay(s.cfg.RetryDelay),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			s.log.Debug("retrying snapshot",
				logger.Int("attempt", int(n)+1),
				logger.Error(err))
		}),
	)
	if err != nil {
		if errors.IsCategory(err, errors.CategoryImageDecode) {
			return motion.Frame{}, err
		}
		return motion.Frame{}, errors.New(err).
			Component("capture").
			Category(errors.CategoryCapture).
			Context("attempts", s.cfg.Retries).
			Build()
	}
	return frame, nil
}

func (s *HTTPSource) fetch(ctx context.Context) (motion.Frame, error) {
	resp, cancel, err := s.client.Get(ctx, s.cfg.URL,
		httpclient.WithBasicAuth(s.cfg.Username, s.cfg.Password),
		httpclient.WithHeader("Accept", "image/jpeg, image/png"))
	if err != nil {
		return motion.Frame{}, fmt.Errorf("snapshot request failed: %s", errors.ScrubMessage(err.Error()))
	}
	defer cancel()
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("snapshot request returned %s", resp.Status)
		if resp.StatusCode < http.StatusInternalServerError {
			return motion.Frame{}, retry.Unrecoverable(err)
		}
		return motion.Frame{}, err
	}

	img, format, err := image.Decode(io.LimitReader(resp.Body, maxSnapshotBytes))
	if err != nil {
		return motion.Frame{}, retry.Unrecoverable(errors.New(err).
			Component("capture").
			Category(errors.CategoryImageDecode).
			Context("content_type", resp.Header.Get("Content-Type")).
			Build())
	}
	s.log.Trace("snapshot decoded", logger.String("format", format))
	return motion.FrameFromImage(img), nil
}
