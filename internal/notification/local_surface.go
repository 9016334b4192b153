package notification

import (
	"cmp"
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	"github.com/tphakala/eyedrop-checker/internal/errors"
	"github.com/tphakala/eyedrop-checker/internal/logger"
)

// DefaultNoticeTTL is how long an unhandled notice stays on the surface.
const DefaultNoticeTTL = time.Hour

// Notice is the observable state of a foreground notification.
type Notice struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	Tag       string    `json:"tag"`
	Payload   Payload   `json:"payload"`
	CreatedAt time.Time `json:"createdAt"`
	Shown     bool      `json:"shown"`
	Clicked   bool      `json:"clicked"`
}

// Presenter displays a notice somewhere. A nil error confirms the notice was shown.
type Presenter interface {
	Present(ctx context.Context, n Notice) error
}

// notice implements Handle.
type notice struct {
	mu    sync.Mutex
	state Notice

	shown   chan struct{}
	clicked chan struct{}
	closed  chan struct{}

	shownOnce, clickedOnce, closedOnce sync.Once
}

func newNotice(msg Message) *notice {
	return &notice{
		state: Notice{
			ID:        uuid.NewString(),
			Title:     msg.Title,
			Body:      msg.Body,
			Tag:       msg.Tag,
			Payload:   msg.Payload,
			CreatedAt: time.Now(),
		},
		shown:   make(chan struct{}),
		clicked: make(chan struct{}),
		closed:  make(chan struct{}),
	}
}

func (n *notice) ID() string { return n.state.ID }

func (n *notice) Shown() <-chan struct{} { return n.shown }

func (n *notice) Clicked() <-chan struct{} { return n.clicked }

func (n *notice) Closed() <-chan struct{} { return n.closed }

func (n *notice) snapshot() Notice {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.state
}

func (n *notice) markShown() {
	n.shownOnce.Do(func() {
		n.mu.Lock()
		n.state.Shown = true
		n.mu.Unlock()
		close(n.shown)
	})
}

func (n *notice) markClicked() {
	n.clickedOnce.Do(func() {
		n.mu.Lock()
		n.state.Clicked = true
		n.mu.Unlock()
		close(n.clicked)
	})
}

func (n *notice) close() {
	n.closedOnce.Do(func() { close(n.closed) })
}

// LocalSurface is the in-process foreground channel. Notices are keyed by tag, so
// showing a notice with a tag already on the surface replaces the old one.
type LocalSurface struct {
	mu         sync.Mutex
	notices    *cache.Cache
	presenters []Presenter
	log        logger.Logger
}

// NewLocalSurface creates a surface whose notices expire after ttl. Each presenter
// is asked to display every notice; the first success marks it shown.
func NewLocalSurface(ttl time.Duration, presenters ...Presenter) *LocalSurface {
	if ttl <= 0 {
		ttl = DefaultNoticeTTL
	}
	c := cache.New(ttl, ttl/2)
	c.OnEvicted(func(_ string, v any) {
		if n, ok := v.(*notice); ok {
			n.close()
		}
	})
	return &LocalSurface{
		notices:    c,
		presenters: presenters,
		log:        GetLogger().With(logger.String("channel", string(ChannelForeground))),
	}
}

func noticeKey(n *notice) string {
	if n.state.Tag != "" {
		return n.state.Tag
	}
	return n.state.ID
}

// Show puts msg on the surface and hands it to the presenters.
func (s *LocalSurface) Show(ctx context.Context, msg Message) (Handle, error) {
	n := newNotice(msg)
	key := noticeKey(n)

	s.mu.Lock()
	if old, ok := s.notices.Get(key); ok {
		// Replacing by tag closes the old notice without firing OnEvicted.
		old.(*notice).close()
	}
	s.notices.SetDefault(key, n)
	s.mu.Unlock()

	var lastErr error
	failures := 0
	for _, p := range s.presenters {
		if err := p.Present(ctx, n.snapshot()); err != nil {
			lastErr = err
			failures++
			s.log.Warn("presenter failed", logger.String("tag", msg.Tag), logger.Error(err))
			continue
		}
		n.markShown()
	}
	if failures > 0 && failures == len(s.presenters) {
		s.remove(n)
		return nil, errors.New(lastErr).
			Component("notification").
			Category(errors.CategoryNotification).
			Context("channel", string(ChannelForeground)).
			Build()
	}
	return n, nil
}

func (s *LocalSurface) find(id string) (*notice, string, bool) {
	for key, it := range s.notices.Items() {
		if n, ok := it.Object.(*notice); ok && n.state.ID == id {
			return n, key, true
		}
	}
	return nil, "", false
}

func (s *LocalSurface) remove(n *notice) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := noticeKey(n)
	if cur, ok := s.notices.Get(key); ok && cur.(*notice) == n {
		s.notices.Delete(key)
	}
	n.close()
}

func noticeNotFound(id string) error {
	return errors.NotFound("notification", "notice %s not found", id)
}

// MarkShown confirms that the shell displayed the notice.
func (s *LocalSurface) MarkShown(id string) (Notice, error) {
	n, _, ok := s.find(id)
	if !ok {
		return Notice{}, noticeNotFound(id)
	}
	n.markShown()
	return n.snapshot(), nil
}

// Click records a click on the notice and closes it.
func (s *LocalSurface) Click(id string) (Notice, error) {
	n, _, ok := s.find(id)
	if !ok {
		return Notice{}, noticeNotFound(id)
	}
	n.markShown()
	n.markClicked()
	s.remove(n)
	return n.snapshot(), nil
}

// Close removes the notice without a click.
func (s *LocalSurface) Close(id string) error {
	n, _, ok := s.find(id)
	if !ok {
		return noticeNotFound(id)
	}
	s.remove(n)
	return nil
}

// Notices lists the notices currently on the surface, oldest first.
func (s *LocalSurface) Notices() []Notice {
	items := s.notices.Items()
	out := make([]Notice, 0, len(items))
	for _, it := range items {
		if n, ok := it.Object.(*notice); ok {
			out = append(out, n.snapshot())
		}
	}
	slices.SortFunc(out, func(a, b Notice) int {
		return cmp.Or(a.CreatedAt.Compare(b.CreatedAt), cmp.Compare(a.ID, b.ID))
	})
	return out
}
