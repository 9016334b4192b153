// Package motion detects scene changes between camera frames and classifies the
// resulting motion history.
package motion

import (
	"image"
	"image/draw"

	"github.com/tphakala/eyedrop-checker/internal/errors"
)

// Pixel layouts.
const (
	RGB  = 3
	RGBA = 4
)

// Frame is an interleaved 8-bit pixel buffer.
type Frame struct {
	Width    int
	Height   int
	Channels int // RGB or RGBA
	Pix      []byte
}

// NewFrame validates and wraps pix.
func NewFrame(width, height, channels int, pix []byte) (Frame, error) {
	f := Frame{Width: width, Height: height, Channels: channels, Pix: pix}
	if err := f.Validate(); err != nil {
		return Frame{}, err
	}
	return f, nil
}

// Validate checks the layout and buffer length.
func (f Frame) Validate() error {
	if f.Channels != RGB && f.Channels != RGBA {
		return errors.Newf("unsupported channel count %d", f.Channels).
			Component("motion").
			Category(errors.CategoryValidation).
			Build()
	}
	if f.Width <= 0 || f.Height <= 0 {
		return errors.Newf("invalid frame size %dx%d", f.Width, f.Height).
			Component("motion").
			Category(errors.CategoryValidation).
			Build()
	}
	if want := f.Width * f.Height * f.Channels; len(f.Pix) != want {
		return errors.Newf("frame buffer has %d bytes, want %d", len(f.Pix), want).
			Component("motion").
			Category(errors.CategoryValidation).
			Context("width", f.Width).
			Context("height", f.Height).
			Build()
	}
	return nil
}

// Pixels returns the pixel count.
func (f Frame) Pixels() int { return f.Width * f.Height }

// SameShape reports whether f and o can be compared pixel by pixel.
func (f Frame) SameShape(o Frame) bool {
	return f.Width == o.Width && f.Height == o.Height && f.Channels == o.Channels
}

// FrameFromImage converts img to an RGBA frame.
func FrameFromImage(img image.Image) Frame {
	b := img.Bounds()
	rgba, ok := img.(*image.RGBA)
	if !ok || rgba.Stride != 4*b.Dx() || b.Min != (image.Point{}) {
		rgba = image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
		draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)
	}
	return Frame{
		Width:    b.Dx(),
		Height:   b.Dy(),
		Channels: RGBA,
		Pix:      rgba.Pix,
	}
}
