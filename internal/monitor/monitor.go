package monitor

import (
	"context"
	"sync"
	"time"

	"github.com/tphakala/eyedrop-checker/internal/errors"
	"github.com/tphakala/eyedrop-checker/internal/logger"
	"github.com/tphakala/eyedrop-checker/internal/motion"
	"github.com/tphakala/eyedrop-checker/internal/observability/metrics"
)

// DefaultInterval is the sampling period.
const DefaultInterval = time.Second

// FrameSource returns the current camera frame.
type FrameSource interface {
	Snapshot(ctx context.Context) (motion.Frame, error)
}

// Monitor samples a FrameSource into a Session at a fixed interval.
type Monitor struct {
	session  *Session
	source   FrameSource
	interval time.Duration
	metrics  *metrics.MonitorMetrics
	log      logger.Logger

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewMonitor creates a monitor. A zero interval samples once per second.
func NewMonitor(session *Session, source FrameSource, interval time.Duration, m *metrics.MonitorMetrics) *Monitor {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Monitor{
		session:  session,
		source:   source,
		interval: interval,
		metrics:  m,
		log:      GetLogger(),
	}
}

// Session returns the monitored session.
func (m *Monitor) Session() *Session { return m.session }

// Start starts a session and the sampling loop.
func (m *Monitor) Start(testMode bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return errors.Newf("monitor already running").
			Component("monitor").
			Category(errors.CategoryConflict).
			Build()
	}
	if m.source == nil {
		return errors.Newf("no capture source configured").
			Component("monitor").
			Category(errors.CategoryConfiguration).
			Build()
	}
	if err := m.session.Start(time.Now(), testMode); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.running = true
	m.wg.Add(1)
	go m.sampleLoop(ctx)
	return nil
}

// Stop stops sampling, waits for the loop to exit and then clears the session.
func (m *Monitor) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	m.running = false
	m.cancel()
	m.mu.Unlock()

	m.wg.Wait()
	m.session.Stop()
}

// Running reports whether the sampling loop is active.
func (m *Monitor) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

func (m *Monitor) sampleLoop(ctx context.Context) {
	defer m.wg.Done()

	m.log.Debug("sampling loop started", logger.Duration("interval", m.interval))
	m.sample(ctx)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.sample(ctx)
		case <-ctx.Done():
			m.log.Debug("sampling loop stopping")
			return
		}
	}
}

func (m *Monitor) sample(ctx context.Context) {
	// Frames are not analysed while hidden; the deadline keeps running.
	if m.session.Hidden() {
		return
	}

	start := time.Now()
	frame, err := m.source.Snapshot(ctx)
	if m.metrics != nil {
		m.metrics.ObserveCapture(time.Since(start).Seconds())
	}
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		if m.metrics != nil {
			m.metrics.RecordSample(metrics.SampleError, 0, 0)
		}
		m.log.Warn("snapshot failed", logger.Error(err))
		return
	}

	if _, err := m.session.Observe(time.Now(), frame); err != nil && ctx.Err() == nil {
		m.log.Warn("frame rejected", logger.Error(err))
	}
}
