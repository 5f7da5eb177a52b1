// Package catalog holds the read-only product and category catalog the
// storefront browses, prices against and searches.
package catalog

import (
	"cmp"
	"fmt"
	"slices"
	"sync"

	"github.com/Aimecol/hforher/internal/domain"
	"github.com/Aimecol/hforher/internal/pricing"
	"github.com/Aimecol/hforher/pkg/slug"
)

// Data is a full catalog snapshot as delivered by a Source.
type Data struct {
	Categories []domain.Category `json:"categories"`
	Products   []domain.Product  `json:"products"`
}

// Catalog is an in-memory, concurrency-safe view over a Data snapshot. It
// implements pricing.Lookup.
type Catalog struct {
	mu         sync.RWMutex
	products   []domain.Product
	byID       map[string]int
	bySlug     map[string]int
	categories []domain.Category
	catBySlug  map[string]int
	catByID    map[string]int
}

var _ pricing.Lookup = (*Catalog)(nil)

// New builds a catalog from data.
func New(data Data) (*Catalog, error) {
	c := &Catalog{}
	if err := c.Replace(data); err != nil {
		return nil, err
	}
	return c, nil
}

// Replace swaps in a new snapshot after validating it. Missing slugs are
// derived from names and category product counts are recomputed.
func (c *Catalog) Replace(data Data) error {
	products := slices.Clone(data.Products)
	categories := slices.Clone(data.Categories)

	byID := make(map[string]int, len(products))
	bySlug := make(map[string]int, len(products))
	for i := range products {
		p := &products[i]
		if p.ID == "" {
			return fmt.Errorf("product at index %d has no id", i)
		}
		if _, dup := byID[p.ID]; dup {
			return fmt.Errorf("duplicate product id %q", p.ID)
		}
		if p.Slug == "" {
			p.Slug = slug.Generate(p.Name)
		}
		if _, dup := bySlug[p.Slug]; dup {
			return fmt.Errorf("duplicate product slug %q", p.Slug)
		}
		byID[p.ID] = i
		bySlug[p.Slug] = i
	}

	catBySlug := make(map[string]int, len(categories))
	catByID := make(map[string]int, len(categories))
	for i := range categories {
		cat := &categories[i]
		if cat.Slug == "" {
			cat.Slug = slug.Generate(cat.Name)
		}
		if _, dup := catBySlug[cat.Slug]; dup {
			return fmt.Errorf("duplicate category slug %q", cat.Slug)
		}
		cat.ProductCount = 0
		for j := range products {
			if inCategory(&products[j], cat.ID) {
				cat.ProductCount++
			}
		}
		catBySlug[cat.Slug] = i
		catByID[cat.ID] = i
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.products = products
	c.byID = byID
	c.bySlug = bySlug
	c.categories = categories
	c.catBySlug = catBySlug
	c.catByID = catByID
	return nil
}

// Len is the number of products.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.products)
}

// Products returns a copy of every product in catalog order.
func (c *Catalog) Products() []domain.Product {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.products)
}

// ProductByID looks a product up by id.
func (c *Catalog) ProductByID(id string) (domain.Product, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	i, ok := c.byID[id]
	if !ok {
		return domain.Product{}, false
	}
	return c.products[i], true
}

// ProductBySlug looks a product up by slug.
func (c *Catalog) ProductBySlug(s string) (domain.Product, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	i, ok := c.bySlug[s]
	if !ok {
		return domain.Product{}, false
	}
	return c.products[i], true
}

// Resolve implements pricing.Lookup.
func (c *Catalog) Resolve(productID, variantID string) (pricing.LineDetails, bool) {
	p, ok := c.ProductByID(productID)
	if !ok {
		return pricing.LineDetails{}, false
	}
	v, ok := p.Variant(variantID)
	if !ok {
		return pricing.LineDetails{}, false
	}
	return pricing.LineDetails{
		Price:     v.Price,
		SalePrice: v.SalePrice,
		Stock:     v.Stock,
		Name:      p.Name,
		Image:     p.PrimaryImage(),
		SKU:       v.SKU,
		Size:      v.Size,
		Color:     v.Color,
		Slug:      p.Slug,
	}, true
}

// Categories lists active categories by sort order.
func (c *Catalog) Categories() []domain.Category {
	c.mu.RLock()
	out := make([]domain.Category, 0, len(c.categories))
	for _, cat := range c.categories {
		if cat.IsActive {
			out = append(out, cat)
		}
	}
	c.mu.RUnlock()

	slices.SortStableFunc(out, func(a, b domain.Category) int {
		return cmp.Compare(a.SortOrder, b.SortOrder)
	})
	return out
}

// CategoryBySlug looks up an active category.
func (c *Catalog) CategoryBySlug(s string) (domain.Category, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	i, ok := c.catBySlug[s]
	if !ok || !c.categories[i].IsActive {
		return domain.Category{}, false
	}
	return c.categories[i], true
}

// Featured returns up to limit featured products.
func (c *Catalog) Featured(limit int) []domain.Product {
	return c.collect(limit, func(p *domain.Product) bool { return p.IsFeatured })
}

// Trending returns up to limit trending products.
func (c *Catalog) Trending(limit int) []domain.Product {
	return c.collect(limit, func(p *domain.Product) bool { return p.IsTrending })
}

// NewArrivals returns up to limit products flagged new, newest first.
func (c *Catalog) NewArrivals(limit int) []domain.Product {
	all := c.collect(0, func(p *domain.Product) bool { return p.IsNew })
	slices.SortStableFunc(all, func(a, b domain.Product) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return truncate(all, limit)
}

// Recommendations returns up to limit other products from the same
// category as productID.
func (c *Catalog) Recommendations(productID string, limit int) []domain.Product {
	p, ok := c.ProductByID(productID)
	if !ok {
		return []domain.Product{}
	}
	return c.collect(limit, func(o *domain.Product) bool {
		return o.ID != p.ID && o.CategoryID == p.CategoryID
	})
}

func (c *Catalog) collect(limit int, keep func(*domain.Product) bool) []domain.Product {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := []domain.Product{}
	for i := range c.products {
		if keep(&c.products[i]) {
			out = append(out, c.products[i])
			if limit > 0 && len(out) == limit {
				break
			}
		}
	}
	return out
}

func truncate(ps []domain.Product, limit int) []domain.Product {
	if limit > 0 && len(ps) > limit {
		return ps[:limit]
	}
	return ps
}

func inCategory(p *domain.Product, category string) bool {
	return p.CategoryID == category || p.HasTag(category)
}
