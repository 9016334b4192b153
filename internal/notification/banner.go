package notification

import (
	"cmp"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
)

// BannerReason says why an in-page banner was raised.
type BannerReason string

const (
	// BannerUnconfirmed is raised when a foreground notice was not shown within
	// the grace period while the app had focus.
	BannerUnconfirmed BannerReason = "unconfirmed"
	// BannerOpened is raised when a notice was clicked.
	BannerOpened BannerReason = "opened"
)

// Banner is an in-page stand-in for a notification.
type Banner struct {
	ID        string       `json:"id"`
	Reason    BannerReason `json:"reason"`
	Kind      Kind         `json:"kind"`
	Title     string       `json:"title"`
	Body      string       `json:"body"`
	Slot      string       `json:"slot,omitempty"`
	Date      string       `json:"date,omitempty"`
	Action    string       `json:"action,omitempty"`
	CreatedAt time.Time    `json:"createdAt"`
}

// DefaultBannerTTL is how long an unhandled banner stays listed.
const DefaultBannerTTL = 12 * time.Hour

// BannerBoard holds raised banners until they are dismissed or expire.
type BannerBoard struct {
	banners *cache.Cache

	mu   sync.Mutex
	subs map[int]chan Banner
	next int
}

// NewBannerBoard creates a board whose banners expire after ttl.
func NewBannerBoard(ttl time.Duration) *BannerBoard {
	if ttl <= 0 {
		ttl = DefaultBannerTTL
	}
	return &BannerBoard{
		banners: cache.New(ttl, ttl),
		subs:    make(map[int]chan Banner),
	}
}

// Publish stores b, assigning its ID and creation time, and notifies subscribers.
// Slow subscribers miss banners rather than block the publisher.
func (bb *BannerBoard) Publish(b Banner) Banner {
	b.ID = uuid.NewString()
	if b.CreatedAt.IsZero() {
		b.CreatedAt = time.Now()
	}
	bb.banners.SetDefault(b.ID, b)

	bb.mu.Lock()
	defer bb.mu.Unlock()
	for _, ch := range bb.subs {
		select {
		case ch <- b:
		default:
		}
	}
	return b
}

// Get returns the banner with id.
func (bb *BannerBoard) Get(id string) (Banner, bool) {
	v, ok := bb.banners.Get(id)
	if !ok {
		return Banner{}, false
	}
	return v.(Banner), true
}

// Dismiss removes the banner with id and reports whether it existed.
func (bb *BannerBoard) Dismiss(id string) bool {
	if _, ok := bb.banners.Get(id); !ok {
		return false
	}
	bb.banners.Delete(id)
	return true
}

// List returns the current banners, oldest first.
func (bb *BannerBoard) List() []Banner {
	items := bb.banners.Items()
	out := make([]Banner, 0, len(items))
	for _, it := range items {
		out = append(out, it.Object.(Banner))
	}
	slices.SortFunc(out, func(a, b Banner) int {
		return cmp.Or(a.CreatedAt.Compare(b.CreatedAt), cmp.Compare(a.ID, b.ID))
	})
	return out
}

// Subscribe returns a channel receiving newly published banners and a cancel func.
func (bb *BannerBoard) Subscribe(buffer int) (<-chan Banner, func()) {
	ch := make(chan Banner, buffer)
	bb.mu.Lock()
	id := bb.next
	bb.next++
	bb.subs[id] = ch
	bb.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			bb.mu.Lock()
			delete(bb.subs, id)
			bb.mu.Unlock()
			close(ch)
		})
	}
}
