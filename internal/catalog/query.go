package catalog

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/Aimecol/hforher/internal/domain"
	"github.com/Aimecol/hforher/internal/pricing"
	"github.com/Aimecol/hforher/pkg/pagination"
)

// Filter narrows a product listing. Zero values disable a predicate.
type Filter struct {
	// Category matches the product category id or any tag.
	Category string
	// MinPrice and MaxPrice bound the lead variant's effective price,
	// inclusively.
	MinPrice     *int64
	MaxPrice     *int64
	Sizes        []string
	Colors       []string
	Brands       []string
	OnSale       bool
	InStock      bool
	FreeShipping bool
	MinRating    *float64
}

// SortField names a sortable product attribute.
type SortField string

const (
	SortByName       SortField = "name"
	SortByPrice      SortField = "price"
	SortByRating     SortField = "rating"
	SortByPopularity SortField = "popularity"
	SortByCreatedAt  SortField = "createdAt"
)

// SortOrder is the sort direction.
type SortOrder string

const (
	Asc  SortOrder = "asc"
	Desc SortOrder = "desc"
)

// Sort orders a product listing.
type Sort struct {
	Field SortField
	Order SortOrder
}

// DefaultSort lists the newest products first.
func DefaultSort() Sort {
	return Sort{Field: SortByCreatedAt, Order: Desc}
}

// ParseSort validates user supplied sort parameters. Empty values take the
// defaults.
func ParseSort(field, order string) (Sort, error) {
	s := DefaultSort()
	switch f := SortField(field); f {
	case "":
	case SortByName, SortByPrice, SortByRating, SortByPopularity, SortByCreatedAt:
		s.Field = f
	default:
		return Sort{}, fmt.Errorf("unknown sort field %q", field)
	}
	switch o := SortOrder(strings.ToLower(order)); o {
	case "":
	case Asc, Desc:
		s.Order = o
	default:
		return Sort{}, fmt.Errorf("unknown sort order %q", order)
	}
	return s, nil
}

// Query filters, sorts and paginates products. The input is not modified
// and ties keep their input order.
func Query(products []domain.Product, f Filter, s Sort, page pagination.Params) pagination.Result[domain.Product] {
	matched := make([]domain.Product, 0, len(products))
	for i := range products {
		if f.Match(&products[i]) {
			matched = append(matched, products[i])
		}
	}
	SortProducts(matched, s)
	return pagination.Paginate(matched, page)
}

// Match reports whether p satisfies every active predicate.
func (f Filter) Match(p *domain.Product) bool {
	if f.Category != "" && !inCategory(p, f.Category) {
		return false
	}
	if f.MinPrice != nil || f.MaxPrice != nil {
		price := ListPrice(p)
		if f.MinPrice != nil && price < *f.MinPrice {
			return false
		}
		if f.MaxPrice != nil && price > *f.MaxPrice {
			return false
		}
	}
	if len(f.Sizes) > 0 && !anyVariant(p, func(v domain.Variant) bool { return slices.Contains(f.Sizes, v.Size) }) {
		return false
	}
	if len(f.Colors) > 0 && !anyVariant(p, func(v domain.Variant) bool { return slices.Contains(f.Colors, v.Color) }) {
		return false
	}
	if len(f.Brands) > 0 && !slices.Contains(f.Brands, p.Vendor) {
		return false
	}
	if f.OnSale && !anyVariant(p, domain.Variant.OnSale) {
		return false
	}
	if f.InStock && !anyVariant(p, func(v domain.Variant) bool { return v.Stock > 0 }) {
		return false
	}
	if f.FreeShipping && !p.ShippingEligible {
		return false
	}
	if f.MinRating != nil && p.Rating < *f.MinRating {
		return false
	}
	return true
}

// ListPrice is the effective price of the lead variant, or zero.
func ListPrice(p *domain.Product) int64 {
	v, ok := p.FirstVariant()
	if !ok {
		return 0
	}
	return pricing.EffectivePrice(v)
}

func anyVariant(p *domain.Product, pred func(domain.Variant) bool) bool {
	return slices.ContainsFunc(p.Variants, pred)
}

// SortProducts sorts ps in place, stably.
func SortProducts(ps []domain.Product, s Sort) {
	var compare func(a, b *domain.Product) int
	switch s.Field {
	case SortByName:
		compare = func(a, b *domain.Product) int {
			return strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
		}
	case SortByPrice:
		compare = func(a, b *domain.Product) int { return cmp.Compare(ListPrice(a), ListPrice(b)) }
	case SortByRating:
		compare = func(a, b *domain.Product) int { return cmp.Compare(a.Rating, b.Rating) }
	case SortByPopularity:
		compare = func(a, b *domain.Product) int { return cmp.Compare(a.ReviewCount, b.ReviewCount) }
	default:
		compare = func(a, b *domain.Product) int { return a.CreatedAt.Compare(b.CreatedAt) }
	}

	if s.Order == Asc {
		slices.SortStableFunc(ps, func(a, b domain.Product) int { return compare(&a, &b) })
		return
	}
	slices.SortStableFunc(ps, func(a, b domain.Product) int { return compare(&b, &a) })
}
