package store

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/Aimecol/hforher/internal/domain"
	"github.com/Aimecol/hforher/internal/notify"
	"github.com/Aimecol/hforher/internal/repository"
)

// Wishlist owns one session's saved product ids, kept in insertion order
// without duplicates.
type Wishlist struct {
	mu        sync.Mutex
	sessionID string
	items     []string

	repo     repository.WishlistRepository
	notifier notify.Notifier
	logger   *slog.Logger
}

// NewWishlist loads the session's persisted wishlist and returns a store
// for it.
func NewWishlist(ctx context.Context, sessionID string, repo repository.WishlistRepository, n notify.Notifier, l *slog.Logger) (*Wishlist, error) {
	ids, err := repo.LoadWishlist(ctx, sessionID)
	if err := loadErr(ctx, l, storeWishlist, err); err != nil {
		return nil, fmt.Errorf("load wishlist: %w", err)
	}
	if err != nil {
		ids = nil
	}

	// Records written by other clients may repeat ids.
	items := make([]string, 0, len(ids))
	for _, id := range ids {
		if id != "" && !slices.Contains(items, id) {
			items = append(items, id)
		}
	}

	return &Wishlist{
		sessionID: sessionID,
		items:     items,
		repo:      repo,
		notifier:  n,
		logger:    l,
	}, nil
}

// AddItem saves productID. It reports false and raises no toast when the
// id is already saved.
func (w *Wishlist) AddItem(ctx context.Context, productID, label string) bool {
	if productID == "" {
		return false
	}

	w.mu.Lock()
	if slices.Contains(w.items, productID) {
		w.mu.Unlock()
		return false
	}
	w.items = append(w.items, productID)
	ok := w.persist(ctx, "add_item")
	w.mu.Unlock()

	w.emit(ctx, ok, addedToast(label))
	return true
}

// RemoveItem drops productID if saved. The removal toast is raised either
// way.
func (w *Wishlist) RemoveItem(ctx context.Context, productID, label string) bool {
	w.mu.Lock()
	ok := true
	i := slices.Index(w.items, productID)
	if i >= 0 {
		w.items = slices.Delete(w.items, i, i+1)
		ok = w.persist(ctx, "remove_item")
	}
	w.mu.Unlock()

	w.emit(ctx, ok, removedToast(label))
	return i >= 0
}

// ToggleItem removes productID when saved and adds it otherwise. It returns
// whether the id is saved afterwards.
func (w *Wishlist) ToggleItem(ctx context.Context, productID, label string) bool {
	if productID == "" {
		return false
	}

	w.mu.Lock()
	var n domain.Notification
	i := slices.Index(w.items, productID)
	saved := i < 0
	if saved {
		w.items = append(w.items, productID)
		n = addedToast(label)
	} else {
		w.items = slices.Delete(w.items, i, i+1)
		n = removedToast(label)
	}
	ok := w.persist(ctx, "toggle_item")
	w.mu.Unlock()

	w.emit(ctx, ok, n)
	return saved
}

// ClearWishlist removes every id.
func (w *Wishlist) ClearWishlist(ctx context.Context) {
	w.mu.Lock()
	w.items = []string{}
	ok := w.persist(ctx, "clear")
	w.mu.Unlock()

	w.emit(ctx, ok, domain.Notification{
		Title:       "Wishlist Cleared",
		Description: "All items have been removed from your wishlist",
		Severity:    domain.SeverityDefault,
	})
}

// HasItem reports whether productID is saved.
func (w *Wishlist) HasItem(productID string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return slices.Contains(w.items, productID)
}

// Items returns a copy of the saved ids in insertion order.
func (w *Wishlist) Items() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return slices.Clone(w.items)
}

// TotalItems is the number of saved ids.
func (w *Wishlist) TotalItems() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.items)
}

// SessionID identifies the owning session.
func (w *Wishlist) SessionID() string {
	return w.sessionID
}

func (w *Wishlist) persist(ctx context.Context, op string) bool {
	mutationsTotal.WithLabelValues(storeWishlist, op).Inc()
	if err := w.repo.SaveWishlist(ctx, w.sessionID, w.items); err != nil {
		persistFailed(ctx, w.logger, storeWishlist, op, err)
		return false
	}
	return true
}

func (w *Wishlist) emit(ctx context.Context, persisted bool, n domain.Notification) {
	emit(ctx, w.notifier, n)
	if !persisted {
		emit(ctx, w.notifier, StorageWarning)
	}
}

func addedToast(label string) domain.Notification {
	return domain.Notification{
		Title:       "Added to Wishlist",
		Description: describe(label, "has been added to your wishlist"),
		Severity:    domain.SeveritySuccess,
	}
}

func removedToast(label string) domain.Notification {
	return domain.Notification{
		Title:       "Removed from Wishlist",
		Description: describe(label, "has been removed from your wishlist"),
		Severity:    domain.SeverityDefault,
	}
}

func describe(label, rest string) string {
	if label == "" {
		return "Item " + rest
	}
	return label + " " + rest
}
