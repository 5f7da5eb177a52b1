package service

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Aimecol/hforher/internal/catalog"
	"github.com/Aimecol/hforher/internal/domain"
	"github.com/Aimecol/hforher/internal/notify"
	"github.com/Aimecol/hforher/internal/pricing"
	"github.com/Aimecol/hforher/internal/repository/memory"
	"github.com/Aimecol/hforher/internal/session"
)

// --- Mock Publisher ---

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) PublishCartUpdated(ctx context.Context, sessionID string, lines []domain.CartLine, totals pricing.Totals) error {
	return m.Called(ctx, sessionID, lines, totals).Error(0)
}

func (m *mockPublisher) PublishCartCleared(ctx context.Context, sessionID string) error {
	return m.Called(ctx, sessionID).Error(0)
}

func (m *mockPublisher) PublishWishlistUpdated(ctx context.Context, sessionID string, productIDs []string) error {
	return m.Called(ctx, sessionID, productIDs).Error(0)
}

func (m *mockPublisher) PublishOrderPlaced(ctx context.Context, order *domain.Order) error {
	return m.Called(ctx, order).Error(0)
}

// --- Test Helpers ---

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// testCatalog holds a small catalog: a 25000 dress, a discounted top, a
// sold-out shoe and an accessory.
func testCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	created := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c, err := catalog.New(catalog.Data{
		Categories: []domain.Category{
			{ID: "cat-dresses", Name: "Dresses", Slug: "dresses", IsActive: true, SortOrder: 1},
			{ID: "cat-tops", Name: "Tops", Slug: "tops", IsActive: true, SortOrder: 2},
			{ID: "cat-shoes", Name: "Shoes", Slug: "shoes", IsActive: true, SortOrder: 3},
		},
		Products: []domain.Product{
			{
				ID: "p-dress", Name: "Silk Dress", Slug: "silk-dress", CategoryID: "cat-dresses",
				Description: "Bias cut silk", Vendor: "H for Her", IsFeatured: true, CreatedAt: created,
				Variants: []domain.Variant{{ID: "v1", SKU: "SD-1", Price: 25000, Size: "M", Color: "Blush", Stock: 5, IsAvailable: true}},
			},
			{
				ID: "p-top", Name: "Crepe Blouse", Slug: "crepe-blouse", CategoryID: "cat-tops",
				Description: "Soft crepe", Vendor: "Maison", IsTrending: true, CreatedAt: created.Add(time.Hour),
				Variants: []domain.Variant{{ID: "v1", SKU: "CB-1", Price: 20000, SalePrice: 15000, Size: "S", Color: "Ivory", Stock: 3, IsAvailable: true}},
			},
			{
				ID: "p-shoe", Name: "Ballet Flats", Slug: "ballet-flats", CategoryID: "cat-shoes",
				Vendor: "Umutako", CreatedAt: created.Add(2 * time.Hour),
				Variants: []domain.Variant{{ID: "v1", SKU: "BF-1", Price: 30000, Size: "38", Color: "Black", Stock: 0, IsAvailable: false}},
			},
			{
				ID: "p-gown", Name: "Evening Gown", Slug: "evening-gown", CategoryID: "cat-dresses",
				Vendor: "H for Her", IsNew: true, CreatedAt: created.Add(3 * time.Hour),
				Variants: []domain.Variant{{ID: "v1", SKU: "EG-1", Price: 90000, Size: "M", Color: "Black", Stock: 1, IsAvailable: true}},
			},
		},
	})
	require.NoError(t, err)
	return c
}

type fixture struct {
	registry  *session.Registry
	repo      *memory.Store
	catalog   *catalog.Catalog
	publisher *mockPublisher
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	repo := memory.New()
	return &fixture{
		registry:  session.NewRegistry(session.Config{}, repo, repo, notify.Discard, newTestLogger()),
		repo:      repo,
		catalog:   testCatalog(t),
		publisher: new(mockPublisher),
	}
}

func (f *fixture) cart() *CartService {
	return NewCartService(f.registry, f.catalog, f.publisher, newTestLogger())
}

func (f *fixture) wishlist() *WishlistService {
	return NewWishlistService(f.registry, f.catalog, f.publisher, newTestLogger())
}

func (f *fixture) checkout() *CheckoutService {
	return NewCheckoutService(f.registry, f.catalog, f.publisher, newTestLogger())
}

func (f *fixture) expectAllEvents() {
	f.publisher.On("PublishCartUpdated", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()
	f.publisher.On("PublishCartCleared", mock.Anything, mock.Anything).Return(nil).Maybe()
	f.publisher.On("PublishWishlistUpdated", mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()
	f.publisher.On("PublishOrderPlaced", mock.Anything, mock.Anything).Return(nil).Maybe()
}
