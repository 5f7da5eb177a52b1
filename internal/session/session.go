// Package session hosts the live cart and wishlist stores of each shopper.
// Sessions are built on first use from their persisted records and torn
// down after a period of inactivity.
package session

import (
	"context"
	"log/slog"
	"regexp"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/sync/singleflight"

	"github.com/Aimecol/hforher/internal/notify"
	"github.com/Aimecol/hforher/internal/repository"
	"github.com/Aimecol/hforher/internal/store"
	apperrors "github.com/Aimecol/hforher/pkg/errors"
)

// DefaultIdleTimeout is how long an untouched session stays in memory.
const DefaultIdleTimeout = 30 * time.Minute

var validID = regexp.MustCompile(`^[A-Za-z0-9_-]{1,128}$`)

var liveSessions = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "storefront",
	Subsystem: "session",
	Name:      "live",
	Help:      "Sessions currently held in memory.",
})

// ValidID reports whether id can name a session.
func ValidID(id string) bool {
	return validID.MatchString(id)
}

// NewID mints a session id.
func NewID() string {
	return uuid.NewString()
}

// Session is one shopper's live state.
type Session struct {
	ID        string
	Cart      *store.Cart
	Wishlist  *store.Wishlist
	CreatedAt time.Time
}

// Config tunes the registry.
type Config struct {
	IdleTimeout     time.Duration
	CleanupInterval time.Duration
}

// Registry builds, caches and tears down sessions. mu only guards cache
// lookups and inserts; loads from the repositories run outside it, one at a
// time per id.
type Registry struct {
	mu        sync.Mutex
	loads     singleflight.Group
	live      *cache.Cache
	ttl       time.Duration
	carts     repository.CartRepository
	wishlists repository.WishlistRepository
	notifier  notify.Notifier
	logger    *slog.Logger
	opts      []store.Option
}

// NewRegistry creates a registry over the given repositories.
func NewRegistry(cfg Config, carts repository.CartRepository, wishlists repository.WishlistRepository, n notify.Notifier, l *slog.Logger, opts ...store.Option) *Registry {
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = DefaultIdleTimeout
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = cfg.IdleTimeout / 2
	}

	r := &Registry{
		live:      cache.New(cfg.IdleTimeout, cfg.CleanupInterval),
		ttl:       cfg.IdleTimeout,
		carts:     carts,
		wishlists: wishlists,
		notifier:  n,
		logger:    l,
		opts:      opts,
	}
	r.live.OnEvicted(r.teardown)
	return r
}

// Get returns the live session for id, loading it from the repositories on
// first use. Each call restarts the idle timer.
func (r *Registry) Get(ctx context.Context, id string) (*Session, error) {
	if !ValidID(id) {
		return nil, apperrors.InvalidInput("session id must be 1-128 characters of letters, digits, '-' or '_'")
	}

	if s, ok := r.lookup(id); ok {
		return s, nil
	}

	// A caller that gives up must not fail the others waiting on the same
	// load.
	loadCtx := context.WithoutCancel(ctx)
	v, err, _ := r.loads.Do(id, func() (any, error) {
		if s, ok := r.lookup(id); ok {
			return s, nil
		}
		s, err := r.load(loadCtx, id)
		if err != nil {
			return nil, err
		}
		r.insert(s)
		return s, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Session), nil
}

// lookup returns the live session for id and restarts its idle timer.
func (r *Registry) lookup(id string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	v, ok := r.live.Get(id)
	if !ok {
		return nil, false
	}
	s := v.(*Session)
	r.live.SetDefault(id, s)
	return s, true
}

func (r *Registry) insert(s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Release an expired entry the janitor has not swept yet.
	r.live.Delete(s.ID)
	r.live.SetDefault(s.ID, s)
	liveSessions.Inc()
}

func (r *Registry) load(ctx context.Context, id string) (*Session, error) {
	cart, err := store.NewCart(ctx, id, r.carts, r.notifier, r.logger, r.opts...)
	if err != nil {
		return nil, apperrors.Unavailable("session storage", err)
	}
	wishlist, err := store.NewWishlist(ctx, id, r.wishlists, r.notifier, r.logger)
	if err != nil {
		return nil, apperrors.Unavailable("session storage", err)
	}

	r.logger.DebugContext(ctx, "session loaded",
		slog.String("session_id", id),
		slog.Int("cart_lines", len(cart.Items())),
		slog.Int("wishlist_items", wishlist.TotalItems()),
	)
	return &Session{ID: id, Cart: cart, Wishlist: wishlist, CreatedAt: time.Now().UTC()}, nil
}

// Close tears down the session if it is live. Its persisted records are
// kept.
func (r *Registry) Close(id string) {
	r.live.Delete(id)
}

// Len reports how many sessions are live.
func (r *Registry) Len() int {
	return r.live.ItemCount()
}

// Flush tears down every live session.
func (r *Registry) Flush() {
	for id := range r.live.Items() {
		r.live.Delete(id)
	}
}

func (r *Registry) teardown(id string, _ any) {
	liveSessions.Dec()
	r.logger.Debug("session released", slog.String("session_id", id))
}
