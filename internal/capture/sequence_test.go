package capture

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/eyedrop-checker/internal/errors"
	"github.com/tphakala/eyedrop-checker/internal/motion"
)

func tinyFrame(v byte) motion.Frame {
	return motion.Frame{Width: 1, Height: 1, Channels: motion.RGB, Pix: []byte{v, v, v}}
}

func TestSequenceSourceRepeatsLastFrame(t *testing.T) {
	t.Parallel()

	src := NewSequenceSource(tinyFrame(1), tinyFrame(2))
	var got []byte
	for range 4 {
		f, err := src.Snapshot(context.Background())
		require.NoError(t, err)
		got = append(got, f.Pix[0])
	}
	assert.Equal(t, []byte{1, 2, 2, 2}, got)

	src.Append(tinyFrame(3))
	f, err := src.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, byte(2), f.Pix[0], "cursor stays on the old last frame once")
	f, err = src.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, byte(3), f.Pix[0])
}

func TestSequenceSourceLoop(t *testing.T) {
	t.Parallel()

	src := NewSequenceSource(tinyFrame(1), tinyFrame(2))
	src.Loop = true
	var got []byte
	for range 5 {
		f, err := src.Snapshot(context.Background())
		require.NoError(t, err)
		got = append(got, f.Pix[0])
	}
	assert.Equal(t, []byte{1, 2, 1, 2, 1}, got)
}

func TestSequenceSourceErrors(t *testing.T) {
	t.Parallel()

	_, err := NewSequenceSource().Snapshot(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryCapture))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = NewSequenceSource(tinyFrame(1)).Snapshot(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
