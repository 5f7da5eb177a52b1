// Package memory keeps session records in process memory. It backs tests
// and single-instance deployments without Redis.
package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/Aimecol/hforher/internal/domain"
)

// Store implements repository.CartRepository and
// repository.WishlistRepository.
type Store struct {
	mu        sync.RWMutex
	carts     map[string][]domain.CartLine
	wishlists map[string][]string
}

// New creates an empty store.
func New() *Store {
	return &Store{
		carts:     make(map[string][]domain.CartLine),
		wishlists: make(map[string][]string),
	}
}

// LoadCart returns a copy of the stored lines.
func (s *Store) LoadCart(_ context.Context, sessionID string) ([]domain.CartLine, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneOrEmpty(s.carts[sessionID]), nil
}

// SaveCart replaces the stored lines.
func (s *Store) SaveCart(_ context.Context, sessionID string, lines []domain.CartLine) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.carts[sessionID] = slices.Clone(lines)
	return nil
}

// LoadWishlist returns a copy of the stored ids.
func (s *Store) LoadWishlist(_ context.Context, sessionID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneOrEmpty(s.wishlists[sessionID]), nil
}

// SaveWishlist replaces the stored ids.
func (s *Store) SaveWishlist(_ context.Context, sessionID string, productIDs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.wishlists[sessionID] = slices.Clone(productIDs)
	return nil
}

// Ping always succeeds.
func (s *Store) Ping(context.Context) error { return nil }

func cloneOrEmpty[T any](v []T) []T {
	if v == nil {
		return []T{}
	}
	return slices.Clone(v)
}
