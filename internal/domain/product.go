package domain

import (
	"slices"
	"time"
)

// Product is a catalog entry. Prices live on its variants.
type Product struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	Slug             string    `json:"slug"`
	Description      string    `json:"description"`
	Images           []Image   `json:"images"`
	Variants         []Variant `json:"variants"`
	Tags             []string  `json:"tags"`
	CategoryID       string    `json:"category_id"`
	Vendor           string    `json:"vendor"`
	OriginCountry    string    `json:"origin_country,omitempty"`
	WeightGrams      int       `json:"weight_grams,omitempty"`
	ShippingEligible bool      `json:"shipping_eligible"`
	Rating           float64   `json:"rating"`
	ReviewCount      int       `json:"review_count"`
	IsFeatured       bool      `json:"is_featured"`
	IsNew            bool      `json:"is_new"`
	IsTrending       bool      `json:"is_trending"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// Image is a product photo.
type Image struct {
	ID        string `json:"id"`
	URL       string `json:"url"`
	Alt       string `json:"alt"`
	Width     int    `json:"width,omitempty"`
	Height    int    `json:"height,omitempty"`
	IsPrimary bool   `json:"is_primary"`
}

// Variant is a purchasable size/colour combination. SalePrice is zero when
// the variant is not discounted.
type Variant struct {
	ID          string `json:"id"`
	SKU         string `json:"sku"`
	Price       int64  `json:"price"`
	SalePrice   int64  `json:"sale_price,omitempty"`
	Size        string `json:"size"`
	Color       string `json:"color"`
	Stock       int    `json:"stock"`
	IsAvailable bool   `json:"is_available"`
}

// OnSale reports whether the sale price undercuts the list price.
func (v Variant) OnSale() bool {
	return v.SalePrice > 0 && v.SalePrice < v.Price
}

// FirstVariant returns the product's lead variant, used for listing prices.
func (p *Product) FirstVariant() (Variant, bool) {
	if len(p.Variants) == 0 {
		return Variant{}, false
	}
	return p.Variants[0], true
}

// Variant looks a variant up by id.
func (p *Product) Variant(id string) (Variant, bool) {
	i := slices.IndexFunc(p.Variants, func(v Variant) bool { return v.ID == id })
	if i < 0 {
		return Variant{}, false
	}
	return p.Variants[i], true
}

// PrimaryImage returns the image flagged primary, else the first one.
func (p *Product) PrimaryImage() string {
	for _, img := range p.Images {
		if img.IsPrimary {
			return img.URL
		}
	}
	if len(p.Images) > 0 {
		return p.Images[0].URL
	}
	return ""
}

// HasTag reports tag membership.
func (p *Product) HasTag(tag string) bool {
	return slices.Contains(p.Tags, tag)
}

// Category groups products for navigation.
type Category struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Slug         string `json:"slug"`
	ParentID     string `json:"parent_id,omitempty"`
	Description  string `json:"description"`
	Image        string `json:"image"`
	IsActive     bool   `json:"is_active"`
	SortOrder    int    `json:"sort_order"`
	ProductCount int    `json:"product_count"`
}
