package service

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"

	"github.com/Aimecol/hforher/internal/catalog"
	"github.com/Aimecol/hforher/internal/domain"
	apperrors "github.com/Aimecol/hforher/pkg/errors"
	"github.com/Aimecol/hforher/pkg/pagination"
	"github.com/Aimecol/hforher/pkg/tracing"
)

// Listing sizes used by the storefront pages.
const (
	DefaultCollectionLimit = 8
	RecommendationLimit    = 4
)

// SearchResult is one page of search hits.
type SearchResult struct {
	Query string `json:"query"`
	pagination.Result[catalog.Hit]
}

// CategoryPage is a category with one page of its products.
type CategoryPage struct {
	Category domain.Category `json:"category"`
	pagination.Result[domain.Product]
}

// CatalogService implements product browsing and search.
type CatalogService struct {
	catalog  Catalog
	searcher catalog.Searcher
	logger   *slog.Logger
}

// NewCatalogService creates a catalog service.
func NewCatalogService(c Catalog, searcher catalog.Searcher, l *slog.Logger) *CatalogService {
	return &CatalogService{catalog: c, searcher: searcher, logger: l}
}

// ListProducts filters, sorts and paginates the catalog. A category filter
// may name a category slug; it is translated to the category id.
func (s *CatalogService) ListProducts(ctx context.Context, f catalog.Filter, sort catalog.Sort, page pagination.Params) pagination.Result[domain.Product] {
	_, span := tracing.Start(ctx, "CatalogService.ListProducts",
		attribute.String("filter.category", f.Category),
		attribute.String("sort.field", string(sort.Field)),
	)
	defer tracing.End(span, nil)

	if f.Category != "" {
		if cat, ok := s.catalog.CategoryBySlug(f.Category); ok {
			f.Category = cat.ID
		}
	}
	return catalog.Query(s.catalog.Products(), f, sort, page)
}

// Search ranks products against q.
func (s *CatalogService) Search(ctx context.Context, q string, page pagination.Params) SearchResult {
	_, span := tracing.Start(ctx, "CatalogService.Search", attribute.String("search.query", q))
	defer tracing.End(span, nil)

	hits := s.searcher.Search(s.catalog.Products(), q)
	span.SetAttributes(attribute.Int("search.hits", len(hits)))
	return SearchResult{Query: q, Result: pagination.Paginate(hits, page)}
}

// GetProduct looks a product up by slug.
func (s *CatalogService) GetProduct(_ context.Context, slug string) (domain.Product, error) {
	p, ok := s.catalog.ProductBySlug(slug)
	if !ok {
		return domain.Product{}, apperrors.NotFound("product", slug)
	}
	return p, nil
}

// Recommendations lists products related to the one with slug.
func (s *CatalogService) Recommendations(ctx context.Context, slug string) ([]domain.Product, error) {
	p, err := s.GetProduct(ctx, slug)
	if err != nil {
		return nil, err
	}
	return s.catalog.Recommendations(p.ID, RecommendationLimit), nil
}

// Featured lists featured products.
func (s *CatalogService) Featured(_ context.Context, limit int) []domain.Product {
	return s.catalog.Featured(collectionLimit(limit))
}

// Trending lists trending products.
func (s *CatalogService) Trending(_ context.Context, limit int) []domain.Product {
	return s.catalog.Trending(collectionLimit(limit))
}

// NewArrivals lists new products, newest first.
func (s *CatalogService) NewArrivals(_ context.Context, limit int) []domain.Product {
	return s.catalog.NewArrivals(collectionLimit(limit))
}

// Categories lists active categories.
func (s *CatalogService) Categories(context.Context) []domain.Category {
	return s.catalog.Categories()
}

// GetCategory looks an active category up by slug.
func (s *CatalogService) GetCategory(_ context.Context, slug string) (domain.Category, error) {
	cat, ok := s.catalog.CategoryBySlug(slug)
	if !ok {
		return domain.Category{}, apperrors.NotFound("category", slug)
	}
	return cat, nil
}

// CategoryProducts lists one page of a category's products. Other filters
// apply on top.
func (s *CatalogService) CategoryProducts(ctx context.Context, slug string, f catalog.Filter, sort catalog.Sort, page pagination.Params) (*CategoryPage, error) {
	cat, err := s.GetCategory(ctx, slug)
	if err != nil {
		return nil, err
	}
	f.Category = cat.ID
	return &CategoryPage{
		Category: cat,
		Result:   catalog.Query(s.catalog.Products(), f, sort, page),
	}, nil
}

func collectionLimit(limit int) int {
	if limit <= 0 {
		return DefaultCollectionLimit
	}
	return min(limit, pagination.MaxLimit)
}
