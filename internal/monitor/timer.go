package monitor

import (
	"time"

	"github.com/tphakala/eyedrop-checker/internal/model"
)

// TimerPhase is the state of a DeadlineTimer.
type TimerPhase int

const (
	PhaseIdle TimerPhase = iota
	PhaseArmed
	PhaseElapsed
)

func (p TimerPhase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseArmed:
		return "armed"
	case PhaseElapsed:
		return "elapsed"
	default:
		return "unknown"
	}
}

// DeadlineTimer tracks how long no qualifying motion has been seen. It does not
// schedule anything itself; callers pass the current time. It is not safe for
// concurrent use.
type DeadlineTimer struct {
	deadline  time.Duration
	armed     bool
	startedAt time.Time
	fired     bool
}

// NewDeadlineTimer creates an idle timer.
func NewDeadlineTimer(deadline time.Duration) *DeadlineTimer {
	return &DeadlineTimer{deadline: deadline}
}

// Deadline returns the configured deadline.
func (t *DeadlineTimer) Deadline() time.Duration { return t.deadline }

// SetDeadline changes the deadline and resets the timer.
func (t *DeadlineTimer) SetDeadline(d time.Duration) {
	t.Reset()
	t.deadline = d
}

// Arm starts a new countdown at now.
func (t *DeadlineTimer) Arm(now time.Time) {
	t.armed = true
	t.startedAt = now
	t.fired = false
}

// ArmIfIdle arms the timer when it is idle and reports whether it did.
func (t *DeadlineTimer) ArmIfIdle(now time.Time) bool {
	if t.armed {
		return false
	}
	t.Arm(now)
	return true
}

// Reset returns the timer to idle.
func (t *DeadlineTimer) Reset() {
	t.armed = false
	t.startedAt = time.Time{}
	t.fired = false
}

// Expire marks the timer elapsed if the deadline has passed at now. It returns
// true only for the call that performed the transition.
func (t *DeadlineTimer) Expire(now time.Time) bool {
	if !t.armed || t.fired || now.Sub(t.startedAt) < t.deadline {
		return false
	}
	t.fired = true
	return true
}

// Remaining returns the time left before the deadline, 0 when idle or elapsed.
func (t *DeadlineTimer) Remaining(now time.Time) time.Duration {
	if !t.armed {
		return 0
	}
	return max(0, t.deadline-now.Sub(t.startedAt))
}

// DueAt returns when an armed timer elapses.
func (t *DeadlineTimer) DueAt() time.Time {
	if !t.armed {
		return time.Time{}
	}
	return t.startedAt.Add(t.deadline)
}

// State returns the current phase.
func (t *DeadlineTimer) State() TimerPhase {
	switch {
	case !t.armed:
		return PhaseIdle
	case t.fired:
		return PhaseElapsed
	default:
		return PhaseArmed
	}
}

// Snapshot returns the raw timer fields.
func (t *DeadlineTimer) Snapshot() model.TimerState {
	return model.TimerState{
		Armed:     t.armed,
		StartedAt: t.startedAt,
		Fired:     t.fired,
		Deadline:  t.deadline,
	}
}
