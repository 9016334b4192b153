package motion

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/tphakala/eyedrop-checker/internal/model"
)

func samples(intensities ...float64) []model.MotionSample {
	base := time.Date(2026, 10, 15, 8, 0, 0, 0, time.UTC)
	out := make([]model.MotionSample, len(intensities))
	for i, v := range intensities {
		out[i] = model.MotionSample{Timestamp: base.Add(time.Duration(i) * time.Second), Intensity: v}
	}
	return out
}

func TestQualifies(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		samples []model.MotionSample
		want    bool
	}{
		{"two mixed samples", samples(60, 10), false},
		{"large small small", samples(5, 60, 10), true},
		{"all small", samples(10, 20, 30), false},
		{"all large", samples(55, 70, 90), false},
		{"small at boundary", samples(50, 51, 51), true},
		{"zero is not small", samples(0, 60, 0), false},
		{"empty", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, Qualifies(tt.samples))
		})
	}
}

func TestClassifierObserve(t *testing.T) {
	t.Parallel()

	c := NewClassifier(ClassifierConfig{})
	now := time.Date(2026, 10, 15, 8, 0, 0, 0, time.UTC)

	assert.False(t, c.Observe(now, 55))
	assert.False(t, c.Observe(now.Add(4*time.Second), 8))
	assert.True(t, c.Observe(now.Add(9*time.Second), 62))
	assert.Empty(t, c.History(), "qualifying clears the history")

	// The same samples cannot qualify twice.
	assert.False(t, c.Observe(now.Add(10*time.Second), 10))
	assert.Len(t, c.History(), 1)
}

func TestClassifierPrunesWindow(t *testing.T) {
	t.Parallel()

	c := NewClassifier(DefaultClassifierConfig())
	now := time.Date(2026, 10, 15, 8, 0, 0, 0, time.UTC)

	assert.False(t, c.Observe(now, 60))
	assert.False(t, c.Observe(now.Add(10*time.Second), 10))
	// 30s after the first sample it falls out of the window.
	assert.False(t, c.Observe(now.Add(30*time.Second), 20))
	assert.Len(t, c.History(), 2)

	c.Reset()
	assert.Empty(t, c.History())
}

func TestClassifierCustomConfig(t *testing.T) {
	t.Parallel()

	c := NewClassifier(ClassifierConfig{Window: time.Minute, MinSamples: 2, HighIntensity: 100})
	now := time.Date(2026, 10, 15, 8, 0, 0, 0, time.UTC)

	assert.False(t, c.Observe(now, 90))
	assert.True(t, c.Observe(now.Add(time.Second), 120))
}
