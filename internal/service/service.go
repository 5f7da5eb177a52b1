// Package service implements the storefront use cases on top of the session
// stores and the catalog.
package service

import (
	"context"

	"github.com/Aimecol/hforher/internal/domain"
	"github.com/Aimecol/hforher/internal/pricing"
	"github.com/Aimecol/hforher/internal/session"
)

// Sessions hands out live shopper sessions.
type Sessions interface {
	Get(ctx context.Context, sessionID string) (*session.Session, error)
}

// Catalog is the read side of the product catalog.
type Catalog interface {
	pricing.Lookup
	Products() []domain.Product
	ProductByID(id string) (domain.Product, bool)
	ProductBySlug(slug string) (domain.Product, bool)
	Categories() []domain.Category
	CategoryBySlug(slug string) (domain.Category, bool)
	Featured(limit int) []domain.Product
	Trending(limit int) []domain.Product
	NewArrivals(limit int) []domain.Product
	Recommendations(productID string, limit int) []domain.Product
}
