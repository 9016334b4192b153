package notification

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/eyedrop-checker/internal/errors"
)

func TestLocalSurfaceReplacesByTag(t *testing.T) {
	t.Parallel()

	s := NewLocalSurface(time.Minute)
	first, err := s.Show(context.Background(), Message{Title: "a", Tag: "eyedrop-noon-2026-10-15"})
	require.NoError(t, err)
	second, err := s.Show(context.Background(), Message{Title: "b", Tag: "eyedrop-noon-2026-10-15"})
	require.NoError(t, err)

	select {
	case <-first.Closed():
	default:
		t.Fatal("replaced notice should be closed")
	}

	notices := s.Notices()
	require.Len(t, notices, 1)
	assert.Equal(t, second.ID(), notices[0].ID)
	assert.Equal(t, "b", notices[0].Title)

	// Untagged notices never replace each other.
	_, err = s.Show(context.Background(), Message{Title: "c"})
	require.NoError(t, err)
	_, err = s.Show(context.Background(), Message{Title: "d"})
	require.NoError(t, err)
	assert.Len(t, s.Notices(), 3)
}

func TestLocalSurfaceLifecycle(t *testing.T) {
	t.Parallel()

	s := NewLocalSurface(time.Minute)
	h, err := s.Show(context.Background(), Message{Title: "a", Tag: "t"})
	require.NoError(t, err)

	n, err := s.MarkShown(h.ID())
	require.NoError(t, err)
	assert.True(t, n.Shown)
	<-h.Shown()

	require.NoError(t, s.Close(h.ID()))
	<-h.Closed()
	assert.Empty(t, s.Notices())

	_, err = s.Click(h.ID())
	assert.True(t, errors.IsNotFound(err))
	assert.True(t, errors.IsNotFound(s.Close("missing")))
}

func TestConsolePresenterMarksShown(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	p := NewConsolePresenter(&buf)
	p.title.DisableColor()
	p.tag.DisableColor()

	s := NewLocalSurface(time.Minute, p)
	h, err := s.Show(context.Background(), Message{Title: "目薬の時間です", Body: "朝の目薬を忘れずに。", Tag: "eyedrop-morning-2026-10-15"})
	require.NoError(t, err)

	select {
	case <-h.Shown():
	default:
		t.Fatal("console presenter should confirm display")
	}
	assert.Contains(t, buf.String(), "目薬の時間です")
	assert.Contains(t, buf.String(), "朝の目薬を忘れずに。")
	assert.Contains(t, buf.String(), "[eyedrop-morning-2026-10-15]")
}
