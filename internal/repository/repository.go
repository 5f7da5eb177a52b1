package repository

import (
	"context"
	"errors"

	"github.com/Aimecol/hforher/internal/domain"
)

// ErrCorrupt is returned when a persisted record cannot be decoded. Callers
// treat the collection as empty.
var ErrCorrupt = errors.New("corrupt record")

// CartRepository persists a session's cart lines. A session with no record
// loads as an empty slice.
type CartRepository interface {
	LoadCart(ctx context.Context, sessionID string) ([]domain.CartLine, error)
	SaveCart(ctx context.Context, sessionID string, lines []domain.CartLine) error
}

// WishlistRepository persists a session's saved product ids in insertion
// order.
type WishlistRepository interface {
	LoadWishlist(ctx context.Context, sessionID string) ([]string, error)
	SaveWishlist(ctx context.Context, sessionID string, productIDs []string) error
}
