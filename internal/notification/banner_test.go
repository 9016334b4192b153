package notification

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBannerBoardPublishListDismiss(t *testing.T) {
	t.Parallel()

	bb := NewBannerBoard(time.Hour)
	ch, cancel := bb.Subscribe(4)
	defer cancel()

	base := time.Date(2026, 10, 15, 8, 0, 0, 0, time.UTC)
	a := bb.Publish(Banner{Reason: BannerUnconfirmed, Slot: "morning", CreatedAt: base})
	b := bb.Publish(Banner{Reason: BannerOpened, Slot: "noon", CreatedAt: base.Add(time.Minute)})
	require.NotEmpty(t, a.ID)
	assert.NotEqual(t, a.ID, b.ID)

	assert.Equal(t, a.ID, (<-ch).ID)
	assert.Equal(t, b.ID, (<-ch).ID)

	list := bb.List()
	require.Len(t, list, 2)
	assert.Equal(t, "morning", list[0].Slot)

	got, ok := bb.Get(b.ID)
	require.True(t, ok)
	assert.Equal(t, BannerOpened, got.Reason)

	assert.True(t, bb.Dismiss(a.ID))
	assert.False(t, bb.Dismiss(a.ID))
	assert.Len(t, bb.List(), 1)
}

func TestBannerBoardSlowSubscriberDoesNotBlock(t *testing.T) {
	t.Parallel()

	bb := NewBannerBoard(time.Hour)
	_, cancel := bb.Subscribe(0)
	for range 5 {
		bb.Publish(Banner{Reason: BannerUnconfirmed})
	}
	cancel()
	cancel()
	assert.Len(t, bb.List(), 5)
}
