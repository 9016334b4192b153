// Package model holds the persisted data shapes shared by the scheduler, storage and HTTP API.
package model

import (
	"fmt"
	"maps"
	"math"
	"time"
)

// Slot is one of the three daily reminder slots.
type Slot string

const (
	Morning Slot = "morning"
	Noon    Slot = "noon"
	Night   Slot = "night"
)

// Slots lists every slot in display order.
var Slots = []Slot{Morning, Noon, Night}

// ParseSlot converts s to a Slot.
func ParseSlot(s string) (Slot, error) {
	switch Slot(s) {
	case Morning, Noon, Night:
		return Slot(s), nil
	}
	return "", fmt.Errorf("unknown slot %q", s)
}

func (s Slot) String() string { return string(s) }

// DateKeyLayout is the layout of the per-day storage key.
const DateKeyLayout = "2006-01-02"

// DateKey returns t as YYYY-MM-DD in loc. A nil loc uses t's own location.
func DateKey(t time.Time, loc *time.Location) string {
	if loc != nil {
		t = t.In(loc)
	}
	return t.Format(DateKeyLayout)
}

// DailyRecord is the completion state of one calendar day.
type DailyRecord struct {
	Morning bool   `json:"morning"`
	Noon    bool   `json:"noon"`
	Night   bool   `json:"night"`
	Note    string `json:"note"`
}

// Done reports whether slot is completed.
func (r DailyRecord) Done(slot Slot) bool {
	switch slot {
	case Morning:
		return r.Morning
	case Noon:
		return r.Noon
	case Night:
		return r.Night
	}
	return false
}

// Set marks slot as done or not done. Unknown slots are ignored.
func (r *DailyRecord) Set(slot Slot, done bool) {
	switch slot {
	case Morning:
		r.Morning = done
	case Noon:
		r.Noon = done
	case Night:
		r.Night = done
	}
}

// Completed returns the number of completed slots.
func (r DailyRecord) Completed() int {
	n := 0
	for _, s := range Slots {
		if r.Done(s) {
			n++
		}
	}
	return n
}

// Progress returns the completion percentage rounded to the nearest integer.
func (r DailyRecord) Progress() int {
	return int(math.Round(float64(r.Completed()) * 100 / float64(len(Slots))))
}

// Settings is the persisted reminder configuration.
type Settings struct {
	NotificationsEnabled bool            `json:"notifications"`
	Times                map[Slot]string `json:"times"`
	LastNotified         map[Slot]string `json:"lastNotified,omitempty"`
}

// DefaultSettings returns the settings of a fresh install.
func DefaultSettings() Settings {
	return Settings{
		NotificationsEnabled: false,
		Times: map[Slot]string{
			Morning: "08:00",
			Noon:    "12:00",
			Night:   "20:00",
		},
	}
}

// Clone returns a deep copy of s.
func (s Settings) Clone() Settings {
	out := s
	out.Times = maps.Clone(s.Times)
	out.LastNotified = maps.Clone(s.LastNotified)
	return out
}

// WithNotified returns a copy of s with LastNotified[slot] set to date.
func (s Settings) WithNotified(slot Slot, date string) Settings {
	out := s.Clone()
	if out.LastNotified == nil {
		out.LastNotified = make(map[Slot]string, len(Slots))
	}
	out.LastNotified[slot] = date
	return out
}

// DayProgress pairs a date with its completion state.
type DayProgress struct {
	Date     string      `json:"date"`
	Record   DailyRecord `json:"record"`
	Progress int         `json:"progress"`
}

// MotionSample is one positive motion observation kept by the classifier.
type MotionSample struct {
	Timestamp time.Time `json:"timestamp"`
	Intensity float64   `json:"intensity"`
}

// TimerState is a snapshot of the no-motion deadline timer. Fired implies Armed
// and a non-zero StartedAt.
type TimerState struct {
	Armed     bool          `json:"armed"`
	StartedAt time.Time     `json:"startedAt,omitzero"`
	Fired     bool          `json:"fired"`
	Deadline  time.Duration `json:"deadline"`
}
