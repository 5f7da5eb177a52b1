package domain

import "time"

// CartLine is one product variant in a cart. The cart holds identifiers
// only; prices are resolved from the catalog when needed.
type CartLine struct {
	ID        string    `json:"id"`
	ProductID string    `json:"product_id"`
	VariantID string    `json:"variant_id"`
	Quantity  int       `json:"quantity"`
	AddedAt   time.Time `json:"added_at"`
}

// ItemRef names the product and variant being added to a cart. Name is used
// in notifications.
type ItemRef struct {
	ProductID string
	VariantID string
	Name      string
}

// FindLine returns the index of the line with the given id, or -1.
func FindLine(lines []CartLine, id string) int {
	for i := range lines {
		if lines[i].ID == id {
			return i
		}
	}
	return -1
}

// FindPair returns the index of the line for productID and variantID, or -1.
func FindPair(lines []CartLine, productID, variantID string) int {
	for i := range lines {
		if lines[i].ProductID == productID && lines[i].VariantID == variantID {
			return i
		}
	}
	return -1
}
