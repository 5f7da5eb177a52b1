// Package pricing derives cart totals from a snapshot of cart lines. All
// amounts are whole RWF units.
package pricing

import (
	"strings"

	"github.com/Aimecol/hforher/internal/domain"
	apperrors "github.com/Aimecol/hforher/pkg/errors"
)

const (
	// FreeShippingThreshold is the subtotal at which shipping becomes free.
	FreeShippingThreshold int64 = 50000
	// FlatShippingFee is charged below the threshold.
	FlatShippingFee int64 = 2000
	// TaxRatePercent is the VAT rate applied to the subtotal.
	TaxRatePercent int64 = 18
)

// LineDetails is what the catalog knows about a (product, variant) pair.
type LineDetails struct {
	Price     int64  `json:"price"`
	SalePrice int64  `json:"sale_price,omitempty"`
	Stock     int    `json:"stock"`
	Name      string `json:"name"`
	Image     string `json:"image,omitempty"`
	SKU       string `json:"sku"`
	Size      string `json:"size"`
	Color     string `json:"color"`
	Slug      string `json:"slug"`
}

// UnitPrice is the price charged per unit.
func (d LineDetails) UnitPrice() int64 {
	return effective(d.Price, d.SalePrice)
}

// Lookup resolves cart line references against the catalog.
type Lookup interface {
	Resolve(productID, variantID string) (LineDetails, bool)
}

// Totals is the priced summary of a cart.
type Totals struct {
	TotalItems int    `json:"total_items"`
	Subtotal   int64  `json:"subtotal"`
	Discount   int64  `json:"discount"`
	Shipping   int64  `json:"shipping"`
	Tax        int64  `json:"tax"`
	Total      int64  `json:"total"`
	CouponCode string `json:"coupon_code,omitempty"`
}

// EnrichedLine is a cart line joined with its catalog details.
type EnrichedLine struct {
	domain.CartLine
	Details   LineDetails `json:"details"`
	UnitPrice int64       `json:"unit_price"`
	LineTotal int64       `json:"line_total"`
}

// TotalItems is the sum of line quantities.
func TotalItems(lines []domain.CartLine) int {
	n := 0
	for _, l := range lines {
		n += l.Quantity
	}
	return n
}

// EffectivePrice is the sale price when it undercuts the list price, else
// the list price.
func EffectivePrice(v domain.Variant) int64 {
	return effective(v.Price, v.SalePrice)
}

func effective(price, sale int64) int64 {
	if sale > 0 && sale < price {
		return sale
	}
	return price
}

// Subtotal sums quantity times unit price. Lines the catalog cannot resolve
// contribute nothing.
func Subtotal(lines []domain.CartLine, lookup Lookup) int64 {
	var sum int64
	for _, l := range lines {
		if d, ok := lookup.Resolve(l.ProductID, l.VariantID); ok {
			sum += int64(l.Quantity) * d.UnitPrice()
		}
	}
	return sum
}

// Shipping is free at or above FreeShippingThreshold.
func Shipping(subtotal int64) int64 {
	if subtotal >= FreeShippingThreshold {
		return 0
	}
	return FlatShippingFee
}

// Tax is TaxRatePercent of subtotal rounded half up to a whole unit.
func Tax(subtotal int64) int64 {
	return percentOf(subtotal, TaxRatePercent)
}

func percentOf(amount, pct int64) int64 {
	return (amount*pct + 50) / 100
}

// Compute prices lines.
func Compute(lines []domain.CartLine, lookup Lookup) Totals {
	return FromSubtotal(Subtotal(lines, lookup), TotalItems(lines))
}

// FromSubtotal builds totals for a known subtotal.
func FromSubtotal(subtotal int64, items int) Totals {
	shipping := Shipping(subtotal)
	tax := Tax(subtotal)
	return Totals{
		TotalItems: items,
		Subtotal:   subtotal,
		Shipping:   shipping,
		Tax:        tax,
		Total:      subtotal + shipping + tax,
	}
}

// Enrich joins lines with catalog details, preserving order. Unresolvable
// lines are left out of the view but stay in the cart.
func Enrich(lines []domain.CartLine, lookup Lookup) []EnrichedLine {
	out := make([]EnrichedLine, 0, len(lines))
	for _, l := range lines {
		d, ok := lookup.Resolve(l.ProductID, l.VariantID)
		if !ok {
			continue
		}
		unit := d.UnitPrice()
		out = append(out, EnrichedLine{
			CartLine:  l,
			Details:   d,
			UnitPrice: unit,
			LineTotal: unit * int64(l.Quantity),
		})
	}
	return out
}

// FreeShippingProgress tells the shopper how far they are from free
// delivery.
type FreeShippingProgress struct {
	Eligible  bool    `json:"eligible"`
	Remaining int64   `json:"remaining"`
	Percent   float64 `json:"percent"`
}

// FreeShippingRemaining is the amount still needed for free shipping, never
// negative.
func FreeShippingRemaining(subtotal int64) int64 {
	return max(FreeShippingThreshold-subtotal, 0)
}

// Progress reports free-shipping progress, capping the percentage at 100.
func Progress(subtotal int64) FreeShippingProgress {
	pct := float64(max(subtotal, 0)) / float64(FreeShippingThreshold) * 100
	return FreeShippingProgress{
		Eligible:  subtotal >= FreeShippingThreshold,
		Remaining: FreeShippingRemaining(subtotal),
		Percent:   min(pct, 100),
	}
}

// coupons maps an upper-cased code to its percentage discount on subtotal.
var coupons = map[string]int64{
	"WELCOME10": 10,
}

// ApplyCoupon discounts t by the coupon's share of the subtotal. Shipping
// and tax are unchanged. An empty code returns t untouched.
func ApplyCoupon(t Totals, code string) (Totals, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return t, nil
	}
	pct, ok := coupons[code]
	if !ok {
		return t, apperrors.InvalidInput("coupon code is not valid")
	}

	t.Discount = percentOf(t.Subtotal, pct)
	t.CouponCode = code
	t.Total = t.Subtotal - t.Discount + t.Shipping + t.Tax
	return t, nil
}
