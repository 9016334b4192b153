package motion

import "github.com/tphakala/eyedrop-checker/internal/logger"

// Detector defaults.
const (
	DefaultPixelThreshold = 30.0
	DefaultMotionRatio    = 0.05
)

// DetectorConfig holds the frame differencing thresholds.
type DetectorConfig struct {
	// PixelThreshold is the mean absolute RGB difference above which a pixel counts as changed.
	PixelThreshold float64
	// MotionRatio is the share of changed pixels above which a frame has motion.
	MotionRatio float64
}

// DefaultDetectorConfig returns the default thresholds.
func DefaultDetectorConfig() DetectorConfig {
	return DetectorConfig{PixelThreshold: DefaultPixelThreshold, MotionRatio: DefaultMotionRatio}
}

// Result is the outcome of comparing a frame with the previous one.
type Result struct {
	HasMotion bool    `json:"hasMotion"`
	Intensity float64 `json:"intensity"` // mean difference of the changed pixels
	DiffRatio float64 `json:"diffRatio"`
	Baseline  bool    `json:"baseline"` // the frame only became the new baseline
}

// Detector compares each frame against the one before it. It is not safe for
// concurrent use.
type Detector struct {
	cfg  DetectorConfig
	prev []byte
	last Frame
	log  logger.Logger
}

// NewDetector creates a detector. Zero thresholds take the defaults.
func NewDetector(cfg DetectorConfig) *Detector {
	if cfg.PixelThreshold <= 0 {
		cfg.PixelThreshold = DefaultPixelThreshold
	}
	if cfg.MotionRatio <= 0 {
		cfg.MotionRatio = DefaultMotionRatio
	}
	return &Detector{cfg: cfg, log: GetLogger()}
}

// Config returns the thresholds in use.
func (d *Detector) Config() DetectorConfig { return d.cfg }

// Detect compares frame with the stored baseline and then makes frame the baseline.
// The first frame, and any frame whose shape differs from the baseline, only
// resets the baseline.
func (d *Detector) Detect(frame Frame) (Result, error) {
	if err := frame.Validate(); err != nil {
		return Result{}, err
	}

	if d.prev == nil || !d.last.SameShape(frame) {
		if d.prev != nil {
			d.log.Debug("frame shape changed, resetting baseline",
				logger.Int("old_width", d.last.Width),
				logger.Int("old_height", d.last.Height),
				logger.Int("width", frame.Width),
				logger.Int("height", frame.Height))
		}
		d.store(frame)
		return Result{Baseline: true}, nil
	}

	ch := frame.Channels
	var diffPixels int
	var totalDiff float64
	for i := 0; i+2 < len(frame.Pix); i += ch {
		sum := absDiff(frame.Pix[i], d.prev[i]) +
			absDiff(frame.Pix[i+1], d.prev[i+1]) +
			absDiff(frame.Pix[i+2], d.prev[i+2])
		avg := float64(sum) / 3
		if avg > d.cfg.PixelThreshold {
			diffPixels++
			totalDiff += avg
		}
	}
	d.store(frame)

	ratio := float64(diffPixels) / float64(frame.Pixels())
	var intensity float64
	if diffPixels > 0 {
		intensity = totalDiff / float64(diffPixels)
	}
	return Result{
		HasMotion: ratio > d.cfg.MotionRatio,
		Intensity: intensity,
		DiffRatio: ratio,
	}, nil
}

// Reset drops the baseline.
func (d *Detector) Reset() {
	d.prev = nil
	d.last = Frame{}
}

// store copies the frame so callers may reuse their buffer.
func (d *Detector) store(frame Frame) {
	if cap(d.prev) >= len(frame.Pix) {
		d.prev = d.prev[:len(frame.Pix)]
	} else {
		d.prev = make([]byte, len(frame.Pix))
	}
	copy(d.prev, frame.Pix)
	d.last = Frame{Width: frame.Width, Height: frame.Height, Channels: frame.Channels}
}

func absDiff(a, b byte) int {
	if a > b {
		return int(a - b)
	}
	return int(b - a)
}
