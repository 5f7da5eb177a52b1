package store

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/Aimecol/hforher/internal/domain"
	"github.com/Aimecol/hforher/internal/notify"
	"github.com/Aimecol/hforher/internal/repository"
)

// Cart owns one session's cart lines and the visibility of its side panel.
// It is safe for concurrent use; each operation, including its write, runs
// under one lock.
type Cart struct {
	mu        sync.Mutex
	sessionID string
	lines     []domain.CartLine
	open      bool

	repo     repository.CartRepository
	notifier notify.Notifier
	logger   *slog.Logger
	now      func() time.Time
	newID    func() string
}

// NewCart loads the session's persisted cart and returns a store for it.
func NewCart(ctx context.Context, sessionID string, repo repository.CartRepository, n notify.Notifier, l *slog.Logger, opts ...Option) (*Cart, error) {
	lines, err := repo.LoadCart(ctx, sessionID)
	if err := loadErr(ctx, l, storeCart, err); err != nil {
		return nil, fmt.Errorf("load cart: %w", err)
	}
	if lines == nil || err != nil {
		lines = []domain.CartLine{}
	}

	o := buildOptions(opts)
	return &Cart{
		sessionID: sessionID,
		lines:     lines,
		repo:      repo,
		notifier:  n,
		logger:    l,
		now:       o.now,
		newID:     o.newID,
	}, nil
}

// AddItem adds quantity units of the referenced variant. An existing line
// for the same pair is incremented and its timestamp refreshed. A quantity
// below one does nothing and reports false.
func (c *Cart) AddItem(ctx context.Context, ref domain.ItemRef, quantity int) (domain.CartLine, bool) {
	if quantity <= 0 {
		return domain.CartLine{}, false
	}

	c.mu.Lock()
	now := c.now().UTC()
	var (
		line domain.CartLine
		n    domain.Notification
	)
	if i := domain.FindPair(c.lines, ref.ProductID, ref.VariantID); i >= 0 {
		c.lines[i].Quantity += quantity
		c.lines[i].AddedAt = now
		line = c.lines[i]
		n = domain.Notification{
			Title:       "Cart Updated",
			Description: ref.Name + " quantity updated",
			Severity:    domain.SeverityDefault,
		}
	} else {
		line = domain.CartLine{
			ID:        c.newID(),
			ProductID: ref.ProductID,
			VariantID: ref.VariantID,
			Quantity:  quantity,
			AddedAt:   now,
		}
		c.lines = append(c.lines, line)
		n = domain.Notification{
			Title:       "Added to Cart",
			Description: ref.Name + " has been added to your cart",
			Severity:    domain.SeveritySuccess,
		}
	}
	ok := c.persist(ctx, "add_item")
	c.mu.Unlock()

	c.emit(ctx, ok, n)
	return line, true
}

// RemoveItem deletes the line with lineID if present. The removal toast is
// raised either way.
func (c *Cart) RemoveItem(ctx context.Context, lineID string) {
	c.mu.Lock()
	ok := true
	if i := domain.FindLine(c.lines, lineID); i >= 0 {
		c.lines = slices.Delete(c.lines, i, i+1)
		ok = c.persist(ctx, "remove_item")
	}
	c.mu.Unlock()

	c.emit(ctx, ok, domain.Notification{
		Title:       "Item Removed",
		Description: "Item has been removed from your cart",
		Severity:    domain.SeverityDefault,
	})
}

// UpdateQuantity sets a line's quantity. Zero or less removes the line; an
// unknown id does nothing.
func (c *Cart) UpdateQuantity(ctx context.Context, lineID string, quantity int) {
	if quantity <= 0 {
		c.RemoveItem(ctx, lineID)
		return
	}

	c.mu.Lock()
	i := domain.FindLine(c.lines, lineID)
	if i < 0 {
		c.mu.Unlock()
		return
	}
	c.lines[i].Quantity = quantity
	ok := c.persist(ctx, "update_quantity")
	c.mu.Unlock()

	c.emit(ctx, ok)
}

// ClearCart removes every line.
func (c *Cart) ClearCart(ctx context.Context) {
	c.mu.Lock()
	c.lines = []domain.CartLine{}
	ok := c.persist(ctx, "clear")
	c.mu.Unlock()

	c.emit(ctx, ok, domain.Notification{
		Title:       "Cart Cleared",
		Description: "All items have been removed from your cart",
		Severity:    domain.SeverityDefault,
	})
}

// ToggleCart flips the panel flag and returns the new value. The flag is
// never persisted.
func (c *Cart) ToggleCart() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.open = !c.open
	return c.open
}

// SetCartOpen sets the panel flag.
func (c *Cart) SetCartOpen(open bool) {
	c.mu.Lock()
	c.open = open
	c.mu.Unlock()
}

// IsOpen reports the panel flag.
func (c *Cart) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.open
}

// Items returns a copy of the lines in insertion order.
func (c *Cart) Items() []domain.CartLine {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.lines)
}

// Snapshot returns the lines and panel flag read under one lock.
func (c *Cart) Snapshot() ([]domain.CartLine, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.lines), c.open
}

// GetItem returns the line with lineID.
func (c *Cart) GetItem(lineID string) (domain.CartLine, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if i := domain.FindLine(c.lines, lineID); i >= 0 {
		return c.lines[i], true
	}
	return domain.CartLine{}, false
}

// HasItem reports whether the cart holds the product variant.
func (c *Cart) HasItem(productID, variantID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return domain.FindPair(c.lines, productID, variantID) >= 0
}

// SessionID identifies the owning session.
func (c *Cart) SessionID() string {
	return c.sessionID
}

// persist writes the current lines. Callers hold c.mu.
func (c *Cart) persist(ctx context.Context, op string) bool {
	mutationsTotal.WithLabelValues(storeCart, op).Inc()
	if err := c.repo.SaveCart(ctx, c.sessionID, c.lines); err != nil {
		persistFailed(ctx, c.logger, storeCart, op, err)
		return false
	}
	return true
}

func (c *Cart) emit(ctx context.Context, persisted bool, ns ...domain.Notification) {
	emit(ctx, c.notifier, ns...)
	if !persisted {
		emit(ctx, c.notifier, StorageWarning)
	}
}
