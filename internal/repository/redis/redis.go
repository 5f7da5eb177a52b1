// Package redis persists session records in Redis as JSON documents.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"

	"github.com/Aimecol/hforher/internal/domain"
	"github.com/Aimecol/hforher/internal/repository"
)

const (
	// DefaultCartPrefix namespaces cart records.
	DefaultCartPrefix = "h-for-her-cart:"
	// DefaultWishlistPrefix namespaces wishlist records.
	DefaultWishlistPrefix = "h-for-her-wishlist:"
)

// Options configures key layout and expiry.
type Options struct {
	CartPrefix     string
	WishlistPrefix string
	// TTL expires idle records. Zero keeps them forever.
	TTL time.Duration
}

// Config holds connection settings.
type Config struct {
	Addr     string
	Password string
	DB       int
}

// NewClient connects to Redis and verifies the connection.
func NewClient(ctx context.Context, cfg Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

// Store implements repository.CartRepository and
// repository.WishlistRepository on Redis.
type Store struct {
	client redis.UniversalClient
	opts   Options
}

// New creates a Redis-backed store.
func New(client redis.UniversalClient, opts Options) *Store {
	if opts.CartPrefix == "" {
		opts.CartPrefix = DefaultCartPrefix
	}
	if opts.WishlistPrefix == "" {
		opts.WishlistPrefix = DefaultWishlistPrefix
	}
	return &Store{client: client, opts: opts}
}

// cartRecord is the persisted cart layout.
type cartRecord struct {
	Items []cartItemRecord `json:"items"`
}

type cartItemRecord struct {
	ID        string    `json:"id"`
	ProductID string    `json:"productId"`
	VariantID string    `json:"variantId"`
	Quantity  int       `json:"quantity"`
	AddedAt   time.Time `json:"addedAt"`
}

type wishlistRecord struct {
	Items []string `json:"items"`
}

// LoadCart reads the cart record. A missing key is an empty cart.
func (s *Store) LoadCart(ctx context.Context, sessionID string) ([]domain.CartLine, error) {
	var rec cartRecord
	found, err := s.get(ctx, s.opts.CartPrefix+sessionID, &rec)
	if err != nil || !found {
		return []domain.CartLine{}, err
	}

	lines := make([]domain.CartLine, 0, len(rec.Items))
	for _, it := range rec.Items {
		lines = append(lines, domain.CartLine{
			ID:        it.ID,
			ProductID: it.ProductID,
			VariantID: it.VariantID,
			Quantity:  it.Quantity,
			AddedAt:   it.AddedAt,
		})
	}
	return lines, nil
}

// SaveCart overwrites the cart record.
func (s *Store) SaveCart(ctx context.Context, sessionID string, lines []domain.CartLine) error {
	rec := cartRecord{Items: make([]cartItemRecord, 0, len(lines))}
	for _, l := range lines {
		rec.Items = append(rec.Items, cartItemRecord{
			ID:        l.ID,
			ProductID: l.ProductID,
			VariantID: l.VariantID,
			Quantity:  l.Quantity,
			AddedAt:   l.AddedAt,
		})
	}
	return s.set(ctx, s.opts.CartPrefix+sessionID, rec)
}

// LoadWishlist reads the wishlist record. A missing key is an empty list.
func (s *Store) LoadWishlist(ctx context.Context, sessionID string) ([]string, error) {
	var rec wishlistRecord
	found, err := s.get(ctx, s.opts.WishlistPrefix+sessionID, &rec)
	if err != nil || !found || rec.Items == nil {
		return []string{}, err
	}
	return rec.Items, nil
}

// SaveWishlist overwrites the wishlist record.
func (s *Store) SaveWishlist(ctx context.Context, sessionID string, productIDs []string) error {
	if productIDs == nil {
		productIDs = []string{}
	}
	return s.set(ctx, s.opts.WishlistPrefix+sessionID, wishlistRecord{Items: productIDs})
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *Store) get(ctx context.Context, key string, dst any) (bool, error) {
	data, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("redis get %s: %w", key, err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return false, fmt.Errorf("%w: %s: %v", repository.ErrCorrupt, key, err)
	}
	return true, nil
}

func (s *Store) set(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	if err := s.client.Set(ctx, key, data, s.opts.TTL).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}
