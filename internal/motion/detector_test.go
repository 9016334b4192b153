package motion

import (
	"bytes"
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/eyedrop-checker/internal/errors"
)

func solidFrame(t *testing.T, w, h, channels int, value byte) Frame {
	t.Helper()
	f, err := NewFrame(w, h, channels, bytes.Repeat([]byte{value}, w*h*channels))
	require.NoError(t, err)
	return f
}

func TestDetectFirstFrameIsBaseline(t *testing.T) {
	t.Parallel()

	d := NewDetector(DefaultDetectorConfig())
	res, err := d.Detect(solidFrame(t, 4, 4, RGBA, 10))
	require.NoError(t, err)
	assert.Equal(t, Result{Baseline: true}, res)
}

func TestDetectIdenticalFrames(t *testing.T) {
	t.Parallel()

	d := NewDetector(DefaultDetectorConfig())
	_, err := d.Detect(solidFrame(t, 8, 8, RGB, 100))
	require.NoError(t, err)

	res, err := d.Detect(solidFrame(t, 8, 8, RGB, 100))
	require.NoError(t, err)
	assert.False(t, res.HasMotion)
	assert.Zero(t, res.Intensity)
	assert.Zero(t, res.DiffRatio)
	assert.False(t, res.Baseline)
}

func TestDetectFullChange(t *testing.T) {
	t.Parallel()

	d := NewDetector(DefaultDetectorConfig())
	_, err := d.Detect(solidFrame(t, 8, 8, RGBA, 0))
	require.NoError(t, err)

	res, err := d.Detect(solidFrame(t, 8, 8, RGBA, 40))
	require.NoError(t, err)
	assert.True(t, res.HasMotion)
	assert.InDelta(t, 1.0, res.DiffRatio, 1e-9)
	assert.InDelta(t, 40.0, res.Intensity, 1e-9)
}

func TestDetectIgnoresAlphaAndSmallChanges(t *testing.T) {
	t.Parallel()

	d := NewDetector(DefaultDetectorConfig())
	base := solidFrame(t, 2, 2, RGBA, 50)
	_, err := d.Detect(base)
	require.NoError(t, err)

	next := solidFrame(t, 2, 2, RGBA, 50)
	for i := 3; i < len(next.Pix); i += 4 {
		next.Pix[i] = 255
	}
	// One pixel changes by exactly the threshold, which does not count.
	next.Pix[0], next.Pix[1], next.Pix[2] = 80, 80, 80

	res, err := d.Detect(next)
	require.NoError(t, err)
	assert.False(t, res.HasMotion)
	assert.Zero(t, res.DiffRatio)
}

func TestDetectRatioBoundary(t *testing.T) {
	t.Parallel()

	// 20 pixels: one changed pixel is exactly 5%, which is not motion.
	d := NewDetector(DefaultDetectorConfig())
	_, err := d.Detect(solidFrame(t, 20, 1, RGB, 0))
	require.NoError(t, err)

	next := solidFrame(t, 20, 1, RGB, 0)
	next.Pix[0], next.Pix[1], next.Pix[2] = 90, 90, 90
	res, err := d.Detect(next)
	require.NoError(t, err)
	assert.InDelta(t, 0.05, res.DiffRatio, 1e-9)
	assert.False(t, res.HasMotion)
	assert.InDelta(t, 90.0, res.Intensity, 1e-9)

	next = solidFrame(t, 20, 1, RGB, 0)
	for i := range 6 {
		next.Pix[i] = 200
	}
	res, err = d.Detect(next)
	require.NoError(t, err)
	assert.True(t, res.HasMotion)
}

func TestDetectShapeChangeResetsBaseline(t *testing.T) {
	t.Parallel()

	d := NewDetector(DefaultDetectorConfig())
	_, err := d.Detect(solidFrame(t, 4, 4, RGBA, 0))
	require.NoError(t, err)

	res, err := d.Detect(solidFrame(t, 8, 2, RGBA, 255))
	require.NoError(t, err)
	assert.True(t, res.Baseline)

	res, err = d.Detect(solidFrame(t, 8, 2, RGB, 255))
	require.NoError(t, err)
	assert.True(t, res.Baseline, "channel layout change also resets")

	res, err = d.Detect(solidFrame(t, 8, 2, RGB, 255))
	require.NoError(t, err)
	assert.False(t, res.Baseline)
	assert.False(t, res.HasMotion)
}

func TestDetectCopiesBaseline(t *testing.T) {
	t.Parallel()

	d := NewDetector(DefaultDetectorConfig())
	buf := solidFrame(t, 4, 4, RGB, 0)
	_, err := d.Detect(buf)
	require.NoError(t, err)

	for i := range buf.Pix {
		buf.Pix[i] = 200
	}
	res, err := d.Detect(buf)
	require.NoError(t, err)
	assert.True(t, res.HasMotion)
}

func TestDetectRejectsInvalidFrame(t *testing.T) {
	t.Parallel()

	d := NewDetector(DetectorConfig{})
	_, err := d.Detect(Frame{Width: 2, Height: 2, Channels: RGB, Pix: make([]byte, 5)})
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))

	_, err = NewFrame(2, 2, 2, make([]byte, 8))
	assert.Error(t, err)
}

func TestDetectorReset(t *testing.T) {
	t.Parallel()

	d := NewDetector(DefaultDetectorConfig())
	_, err := d.Detect(solidFrame(t, 2, 2, RGB, 0))
	require.NoError(t, err)
	d.Reset()

	res, err := d.Detect(solidFrame(t, 2, 2, RGB, 255))
	require.NoError(t, err)
	assert.True(t, res.Baseline)
}

func TestFrameFromImage(t *testing.T) {
	t.Parallel()

	img := image.NewNRGBA(image.Rect(10, 10, 13, 12))
	img.Set(10, 10, color.NRGBA{R: 255, G: 128, B: 0, A: 255})

	f := FrameFromImage(img)
	require.NoError(t, f.Validate())
	assert.Equal(t, 3, f.Width)
	assert.Equal(t, 2, f.Height)
	assert.Equal(t, RGBA, f.Channels)
	assert.Equal(t, []byte{255, 128, 0, 255}, f.Pix[:4])

	rgba := image.NewRGBA(image.Rect(0, 0, 2, 2))
	assert.Len(t, FrameFromImage(rgba).Pix, 16)
}
