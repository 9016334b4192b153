// Package capture provides camera frame sources for motion monitoring.
package capture

import (
	"context"
	"sync"

	"github.com/tphakala/eyedrop-checker/internal/errors"
	"github.com/tphakala/eyedrop-checker/internal/logger"
	"github.com/tphakala/eyedrop-checker/internal/motion"
)

// Source returns the current frame on demand.
type Source interface {
	Snapshot(ctx context.Context) (motion.Frame, error)
}

// GetLogger returns the capture module logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("capture")
}

// SequenceSource replays a fixed list of frames. After the last frame it keeps
// returning the last one, or wraps around when Loop is set.
type SequenceSource struct {
	Loop bool

	mu     sync.Mutex
	frames []motion.Frame
	next   int
}

// NewSequenceSource creates a source over frames.
func NewSequenceSource(frames ...motion.Frame) *SequenceSource {
	return &SequenceSource{frames: frames}
}

// Append adds frames to the end of the sequence.
func (s *SequenceSource) Append(frames ...motion.Frame) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frames = append(s.frames, frames...)
}

// Snapshot returns the next frame.
func (s *SequenceSource) Snapshot(ctx context.Context) (motion.Frame, error) {
	if err := ctx.Err(); err != nil {
		return motion.Frame{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.frames) == 0 {
		return motion.Frame{}, errors.Newf("frame sequence is empty").
			Component("capture").
			Category(errors.CategoryCapture).
			Build()
	}
	idx := s.next
	switch {
	case idx < len(s.frames)-1:
		s.next++
	case s.Loop:
		s.next = 0
	}
	return s.frames[idx], nil
}
