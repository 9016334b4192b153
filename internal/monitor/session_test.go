package monitor

import (
	"bytes"
	"context"
	"sync"
	"testing"
	"testing/synctest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/eyedrop-checker/internal/errors"
	"github.com/tphakala/eyedrop-checker/internal/motion"
)

type escalationRecorder struct {
	mu     sync.Mutex
	events []Escalation
	err    error
}

func (r *escalationRecorder) handle(_ context.Context, ev Escalation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return r.err
}

func (r *escalationRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

func (r *escalationRecorder) last() Escalation {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.events[len(r.events)-1]
}

func grayFrame(value byte) motion.Frame {
	return motion.Frame{Width: 4, Height: 4, Channels: motion.RGB, Pix: bytes.Repeat([]byte{value}, 4*4*3)}
}

// sensitiveDetector counts small differences so intensities below 30 can be produced.
var sensitiveDetector = motion.DetectorConfig{PixelThreshold: 5, MotionRatio: 0.05}

func newTestSession(rec *escalationRecorder) *Session {
	return NewSession(SessionConfig{
		Detector:     sensitiveDetector,
		Deadline:     5 * time.Minute,
		TestDeadline: 30 * time.Second,
		Location:     time.UTC,
		OnEscalate:   rec.handle,
	})
}

func TestSessionSilentEscalation(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		rec := &escalationRecorder{}
		s := newTestSession(rec)
		require.NoError(t, s.Start(time.Now(), true))
		assert.Equal(t, "armed", s.Status(time.Now()).TimerState, "armed before any frame")

		time.Sleep(31 * time.Second)
		synctest.Wait()
		require.Equal(t, 1, rec.count())
		ev := rec.last()
		assert.Equal(t, time.Now().UTC().Format("2006-01-02"), ev.Date)
		assert.Equal(t, 30*time.Second, ev.Deadline)
		assert.True(t, ev.TestMode)

		// Still frames keep arriving; the elapsed timer is not re-armed.
		_, err := s.Observe(time.Now(), grayFrame(10))
		require.NoError(t, err)
		_, err = s.Observe(time.Now(), grayFrame(10))
		require.NoError(t, err)
		time.Sleep(31 * time.Second)
		synctest.Wait()
		assert.Equal(t, 1, rec.count())
		assert.Equal(t, "elapsed", s.Status(time.Now()).TimerState)

		s.Stop()
	})
}

func TestSessionQualifyingMotionResetsDeadline(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		rec := &escalationRecorder{}
		qualified := 0
		s := NewSession(SessionConfig{
			Detector:     sensitiveDetector,
			Location:     time.UTC,
			OnEscalate:   rec.handle,
			OnQualifying: func(time.Time) { qualified++ },
		})
		require.NoError(t, s.Start(time.Now(), false))

		observe := func(value byte) motion.Result {
			time.Sleep(3 * time.Second)
			res, err := s.Observe(time.Now(), grayFrame(value))
			require.NoError(t, err)
			return res
		}

		assert.True(t, observe(0).Baseline)
		assert.InDelta(t, 55, observe(55).Intensity, 1e-9)
		assert.InDelta(t, 8, observe(63).Intensity, 1e-9)
		assert.InDelta(t, 62, observe(1).Intensity, 1e-9)

		st := s.Status(time.Now())
		assert.Equal(t, "idle", st.TimerState)
		assert.Equal(t, 3, st.MotionCount)
		assert.Equal(t, 1, qualified)

		time.Sleep(6 * time.Minute)
		synctest.Wait()
		assert.Zero(t, rec.count(), "deadline was reset and nothing re-armed it")

		// Motion stops: a still frame re-arms the deadline.
		observe(1)
		assert.Equal(t, "armed", s.Status(time.Now()).TimerState)
		time.Sleep(5*time.Minute + time.Second)
		synctest.Wait()
		assert.Equal(t, 1, rec.count())

		s.Stop()
	})
}

func TestSessionSingleMotionDoesNotReset(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		rec := &escalationRecorder{}
		s := newTestSession(rec)
		require.NoError(t, s.Start(time.Now(), true))

		_, err := s.Observe(time.Now(), grayFrame(0))
		require.NoError(t, err)
		time.Sleep(10 * time.Second)
		res, err := s.Observe(time.Now(), grayFrame(200))
		require.NoError(t, err)
		require.True(t, res.HasMotion)

		time.Sleep(21 * time.Second)
		synctest.Wait()
		assert.Equal(t, 1, rec.count(), "a single large motion does not cancel the deadline")
		s.Stop()
	})
}

func TestSessionHiddenArmsIdleTimer(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		rec := &escalationRecorder{}
		s := newTestSession(rec)
		require.NoError(t, s.Start(time.Now(), true))

		for _, v := range []byte{0, 55, 63, 1} {
			_, err := s.Observe(time.Now(), grayFrame(v))
			require.NoError(t, err)
			time.Sleep(time.Second)
		}
		require.Equal(t, "idle", s.Status(time.Now()).TimerState)

		s.SetHidden(time.Now(), true)
		assert.True(t, s.Hidden())
		assert.Equal(t, "armed", s.Status(time.Now()).TimerState)

		time.Sleep(31 * time.Second)
		synctest.Wait()
		assert.Equal(t, 1, rec.count())
		s.Stop()
	})
}

func TestSessionStopClearsState(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		rec := &escalationRecorder{}
		s := newTestSession(rec)
		require.NoError(t, s.Start(time.Now(), true))
		_, err := s.Observe(time.Now(), grayFrame(0))
		require.NoError(t, err)

		s.Stop()
		assert.False(t, s.Active())
		st := s.Status(time.Now())
		assert.Equal(t, "idle", st.TimerState)
		assert.Zero(t, st.RemainingMs)

		time.Sleep(time.Minute)
		synctest.Wait()
		assert.Zero(t, rec.count(), "stopped session never escalates")

		_, err = s.Observe(time.Now(), grayFrame(0))
		require.Error(t, err)
		assert.True(t, errors.IsCategory(err, errors.CategoryState))

		require.NoError(t, s.Start(time.Now(), true))
		res, err := s.Observe(time.Now(), grayFrame(255))
		require.NoError(t, err)
		assert.True(t, res.Baseline, "restart does not compare against the old baseline")
		s.Stop()
	})
}

func TestSessionStartTwice(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		s := newTestSession(&escalationRecorder{})
		require.NoError(t, s.Start(time.Now(), false))
		err := s.Start(time.Now(), false)
		require.Error(t, err)
		assert.True(t, errors.IsCategory(err, errors.CategoryConflict))
		s.Stop()
		s.Stop()
	})
}

func TestSessionEscalationErrorIsLogged(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		rec := &escalationRecorder{err: errors.NewStd("broker unreachable")}
		s := newTestSession(rec)
		require.NoError(t, s.Start(time.Now(), true))

		time.Sleep(31 * time.Second)
		synctest.Wait()
		assert.Equal(t, 1, rec.count())
		assert.True(t, s.Active())
		s.Stop()
	})
}

func TestSessionStopWaitsForEscalation(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		release := make(chan struct{})
		finished := false
		s := NewSession(SessionConfig{
			TestDeadline: 30 * time.Second,
			OnEscalate: func(ctx context.Context, _ Escalation) error {
				select {
				case <-release:
				case <-ctx.Done():
				}
				finished = true
				return ctx.Err()
			},
		})
		require.NoError(t, s.Start(time.Now(), true))
		time.Sleep(31 * time.Second)
		synctest.Wait()

		s.Stop()
		assert.True(t, finished, "Stop cancels and waits for the running escalation")
		close(release)
	})
}
