package motion

import (
	"time"

	"github.com/tphakala/eyedrop-checker/internal/model"
)

// Classifier defaults.
const (
	DefaultWindow        = 30 * time.Second
	DefaultMinSamples    = 3
	DefaultHighIntensity = 50.0
)

// ClassifierConfig holds the pattern rule parameters.
type ClassifierConfig struct {
	Window        time.Duration // samples older than this are pruned
	MinSamples    int
	HighIntensity float64 // above: large motion, at or below (and positive): small motion
}

// DefaultClassifierConfig returns the default rule parameters.
func DefaultClassifierConfig() ClassifierConfig {
	return ClassifierConfig{
		Window:        DefaultWindow,
		MinSamples:    DefaultMinSamples,
		HighIntensity: DefaultHighIntensity,
	}
}

// Qualifies applies the two-tier rule: at least MinSamples samples, one of them
// large and one of them small.
func (c ClassifierConfig) Qualifies(samples []model.MotionSample) bool {
	if len(samples) < c.MinSamples {
		return false
	}
	var large, small bool
	for _, s := range samples {
		switch {
		case s.Intensity > c.HighIntensity:
			large = true
		case s.Intensity > 0:
			small = true
		}
	}
	return large && small
}

// Qualifies applies the default rule to samples.
func Qualifies(samples []model.MotionSample) bool {
	return DefaultClassifierConfig().Qualifies(samples)
}

// Classifier keeps the recent motion history. It is not safe for concurrent use.
type Classifier struct {
	cfg     ClassifierConfig
	history []model.MotionSample
}

// NewClassifier creates a classifier. Zero fields take the defaults.
func NewClassifier(cfg ClassifierConfig) *Classifier {
	def := DefaultClassifierConfig()
	if cfg.Window <= 0 {
		cfg.Window = def.Window
	}
	if cfg.MinSamples <= 0 {
		cfg.MinSamples = def.MinSamples
	}
	if cfg.HighIntensity <= 0 {
		cfg.HighIntensity = def.HighIntensity
	}
	return &Classifier{cfg: cfg}
}

// Observe records a positive motion sample at now and reports whether the pruned
// history qualifies. A qualifying history is cleared.
func (c *Classifier) Observe(now time.Time, intensity float64) bool {
	c.history = append(c.history, model.MotionSample{Timestamp: now, Intensity: intensity})

	kept := c.history[:0]
	for _, s := range c.history {
		if now.Sub(s.Timestamp) < c.cfg.Window {
			kept = append(kept, s)
		}
	}
	c.history = kept

	if !c.cfg.Qualifies(c.history) {
		return false
	}
	c.history = nil
	return true
}

// History returns a copy of the retained samples.
func (c *Classifier) History() []model.MotionSample {
	return append([]model.MotionSample(nil), c.history...)
}

// Reset clears the history.
func (c *Classifier) Reset() { c.history = nil }
