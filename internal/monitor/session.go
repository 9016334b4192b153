// Package monitor runs a motion monitoring session: it samples frames, feeds the
// motion detector and classifier, and escalates when no qualifying motion is
// seen before the no-motion deadline.
package monitor

import (
	"context"
	"sync"
	"time"

	"github.com/tphakala/eyedrop-checker/internal/errors"
	"github.com/tphakala/eyedrop-checker/internal/logger"
	"github.com/tphakala/eyedrop-checker/internal/model"
	"github.com/tphakala/eyedrop-checker/internal/motion"
	"github.com/tphakala/eyedrop-checker/internal/observability/metrics"
)

// Deadline defaults.
const (
	DefaultDeadline     = 5 * time.Minute
	DefaultTestDeadline = 30 * time.Second
)

// Escalation describes one elapsed no-motion deadline.
type Escalation struct {
	Date      string // local date the deadline elapsed on
	StartedAt time.Time
	FiredAt   time.Time
	Deadline  time.Duration
	TestMode  bool
}

// EscalationFunc is called once per elapsed arming, outside the session lock.
type EscalationFunc func(ctx context.Context, ev Escalation) error

// SessionConfig configures a Session.
type SessionConfig struct {
	Detector     motion.DetectorConfig
	Classifier   motion.ClassifierConfig
	Deadline     time.Duration
	TestDeadline time.Duration
	Location     *time.Location
	OnEscalate   EscalationFunc
	OnQualifying func(now time.Time) // called with the session lock held
	Metrics      *metrics.MonitorMetrics
}

// Status is the externally visible state of a session.
type Status struct {
	Active      bool             `json:"active"`
	Hidden      bool             `json:"hidden"`
	TestMode    bool             `json:"testMode"`
	MotionCount int              `json:"motionCount"`
	Escalations int              `json:"escalations"`
	TimerState  string           `json:"timerState"`
	Timer       model.TimerState `json:"timer"`
	RemainingMs int64            `json:"remainingMs"`
	LastResult  motion.Result    `json:"lastResult"`
	LastSample  time.Time        `json:"lastSample,omitzero"`
}

// Session owns the detector, classifier and deadline timer of one monitoring
// session. All state changes happen under one mutex, so a frame's
// classification and timer reset complete before the next frame is processed.
type Session struct {
	cfg SessionConfig
	log logger.Logger

	mu          sync.Mutex
	detector    *motion.Detector
	classifier  *motion.Classifier
	timer       *DeadlineTimer
	active      bool
	hidden      bool
	testMode    bool
	motionCount int
	escalations int
	lastResult  motion.Result
	lastSample  time.Time

	ctx        context.Context
	cancel     context.CancelFunc
	alarm      *time.Timer
	generation uint64
	inflight   sync.WaitGroup
}

// NewSession creates an inactive session.
func NewSession(cfg SessionConfig) *Session {
	if cfg.Deadline <= 0 {
		cfg.Deadline = DefaultDeadline
	}
	if cfg.TestDeadline <= 0 {
		cfg.TestDeadline = DefaultTestDeadline
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	return &Session{
		cfg:        cfg,
		log:        GetLogger(),
		detector:   motion.NewDetector(cfg.Detector),
		classifier: motion.NewClassifier(cfg.Classifier),
		timer:      NewDeadlineTimer(cfg.Deadline),
	}
}

// Start activates the session at now and arms the timer immediately, before
// any frame has been analysed.
func (s *Session) Start(now time.Time, testMode bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active {
		return errors.Newf("monitoring session already active").
			Component("monitor").
			Category(errors.CategoryConflict).
			Build()
	}

	deadline := s.cfg.Deadline
	if testMode {
		deadline = s.cfg.TestDeadline
	}
	s.clearLocked()
	s.timer.SetDeadline(deadline)
	s.active = true
	s.testMode = testMode
	s.motionCount = 0
	s.escalations = 0
	s.ctx, s.cancel = context.WithCancel(context.Background())

	s.timer.Arm(now)
	s.scheduleLocked(now)
	if s.cfg.Metrics != nil {
		s.cfg.Metrics.SetSessionActive(true)
	}
	s.log.Info("monitoring session started",
		logger.Bool("test_mode", testMode),
		logger.Duration("deadline", deadline))
	return nil
}

// Stop deactivates the session, cancels the deadline and clears all detector,
// classifier and timer state. It waits for a running escalation to return.
func (s *Session) Stop() {
	s.mu.Lock()
	if !s.active {
		s.mu.Unlock()
		return
	}
	s.active = false
	s.hidden = false
	s.cancel()
	s.clearLocked()
	if s.cfg.Metrics != nil {
		s.cfg.Metrics.SetSessionActive(false)
	}
	s.mu.Unlock()

	s.inflight.Wait()
	s.log.Info("monitoring session stopped")
}

// clearLocked must be called with s.mu held.
func (s *Session) clearLocked() {
	s.generation++
	if s.alarm != nil {
		s.alarm.Stop()
		s.alarm = nil
	}
	s.detector.Reset()
	s.classifier.Reset()
	s.timer.Reset()
	s.lastResult = motion.Result{}
	s.lastSample = time.Time{}
	s.publishTimerLocked()
}

// SetHidden records whether the shell is hidden. Becoming hidden arms an idle
// timer, since frames are not sampled while hidden.
func (s *Session) SetHidden(now time.Time, hidden bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.hidden = hidden
	if !s.active || !hidden {
		return
	}
	if s.timer.ArmIfIdle(now) {
		s.scheduleLocked(now)
		s.log.Debug("timer armed on hide")
	}
}

// Hidden reports whether the shell is hidden.
func (s *Session) Hidden() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hidden
}

// Active reports whether the session is running.
func (s *Session) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// Observe processes one frame sampled at now.
func (s *Session) Observe(now time.Time, frame motion.Frame) (motion.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.active {
		return motion.Result{}, errors.Newf("monitoring session is not active").
			Component("monitor").
			Category(errors.CategoryState).
			Build()
	}

	res, err := s.detector.Detect(frame)
	if err != nil {
		s.record(metrics.SampleError, res)
		return res, err
	}
	s.lastResult = res
	s.lastSample = now

	switch {
	case res.Baseline:
		s.record(metrics.SampleBaseline, res)
	case res.HasMotion:
		s.record(metrics.SampleMotion, res)
		s.motionCount++
		if s.classifier.Observe(now, res.Intensity) {
			s.qualifiedLocked(now)
		}
	default:
		s.record(metrics.SampleStill, res)
		if s.timer.ArmIfIdle(now) {
			s.scheduleLocked(now)
			s.log.Debug("no motion, timer armed")
		}
	}
	return res, nil
}

func (s *Session) qualifiedLocked(now time.Time) {
	s.generation++
	if s.alarm != nil {
		s.alarm.Stop()
		s.alarm = nil
	}
	s.timer.Reset()
	s.publishTimerLocked()
	if s.cfg.Metrics != nil {
		s.cfg.Metrics.RecordQualifying()
	}
	s.log.Info("eyedrop motion pattern detected, deadline reset",
		logger.Int("motion_count", s.motionCount))
	if s.cfg.OnQualifying != nil {
		s.cfg.OnQualifying(now)
	}
}

func (s *Session) record(result string, res motion.Result) {
	if s.cfg.Metrics != nil {
		s.cfg.Metrics.RecordSample(result, res.Intensity, res.DiffRatio)
	}
}

// scheduleLocked arms a wall-clock alarm for the timer's due time.
func (s *Session) scheduleLocked(now time.Time) {
	s.generation++
	if s.alarm != nil {
		s.alarm.Stop()
	}
	gen := s.generation
	s.alarm = time.AfterFunc(s.timer.DueAt().Sub(now), func() { s.onAlarm(gen) })
	s.publishTimerLocked()
}

func (s *Session) onAlarm(gen uint64) {
	s.mu.Lock()
	if !s.active || gen != s.generation {
		s.mu.Unlock()
		return
	}
	now := time.Now()
	if !s.timer.Expire(now) {
		if s.timer.State() == PhaseArmed {
			// Fired early against the timer's clock; wait for the remainder.
			s.alarm = time.AfterFunc(s.timer.Remaining(now), func() { s.onAlarm(gen) })
		}
		s.mu.Unlock()
		return
	}
	s.escalations++
	snap := s.timer.Snapshot()
	ev := Escalation{
		Date:      model.DateKey(now, s.cfg.Location),
		StartedAt: snap.StartedAt,
		FiredAt:   now,
		Deadline:  snap.Deadline,
		TestMode:  s.testMode,
	}
	ctx := s.ctx
	s.publishTimerLocked()
	s.inflight.Add(1)
	s.mu.Unlock()

	defer s.inflight.Done()
	s.log.Warn("no qualifying motion before deadline",
		logger.Duration("deadline", ev.Deadline),
		logger.String("date", ev.Date))
	if s.cfg.OnEscalate == nil {
		return
	}
	if err := s.cfg.OnEscalate(ctx, ev); err != nil {
		s.log.Error("escalation failed", logger.Error(err))
	}
}

func (s *Session) publishTimerLocked() {
	if s.cfg.Metrics != nil {
		s.cfg.Metrics.SetTimerState(int(s.timer.State()))
	}
}

// Status returns the session state at now.
func (s *Session) Status(now time.Time) Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Status{
		Active:      s.active,
		Hidden:      s.hidden,
		TestMode:    s.testMode,
		MotionCount: s.motionCount,
		Escalations: s.escalations,
		TimerState:  s.timer.State().String(),
		Timer:       s.timer.Snapshot(),
		RemainingMs: s.timer.Remaining(now).Milliseconds(),
		LastResult:  s.lastResult,
		LastSample:  s.lastSample,
	}
}
