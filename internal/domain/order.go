package domain

import "time"

// OrderStatus values. Checkout is simulated, so orders are confirmed
// immediately.
const (
	OrderStatusConfirmed = "confirmed"
)

// Payment method types accepted at checkout.
const (
	PaymentCard         = "card"
	PaymentMobileMoney  = "mobile_money"
	PaymentBankTransfer = "bank_transfer"
)

// Contact is the buyer's contact information.
type Contact struct {
	Email string `json:"email" validate:"required,email"`
	Phone string `json:"phone" validate:"required,min=7,max=20"`
}

// Address is a shipping address.
type Address struct {
	FirstName  string `json:"first_name" validate:"required,max=100"`
	LastName   string `json:"last_name" validate:"required,max=100"`
	Address1   string `json:"address1" validate:"required,max=200"`
	Address2   string `json:"address2,omitempty" validate:"max=200"`
	City       string `json:"city" validate:"required,max=100"`
	Province   string `json:"province" validate:"required,max=100"`
	Country    string `json:"country" validate:"required,len=2"`
	PostalCode string `json:"postal_code,omitempty" validate:"max=20"`
}

// PaymentMethod describes how the buyer intends to pay. Nothing is charged.
type PaymentMethod struct {
	Type     string `json:"type" validate:"required,oneof=card mobile_money bank_transfer"`
	Provider string `json:"provider" validate:"required,oneof=stripe momo airtel bank"`
	Last4    string `json:"last4,omitempty" validate:"omitempty,len=4,numeric"`
	Phone    string `json:"phone,omitempty" validate:"omitempty,min=7,max=20"`
}

// OrderLine is a priced snapshot of a cart line at checkout.
type OrderLine struct {
	ProductID string `json:"product_id"`
	VariantID string `json:"variant_id"`
	Name      string `json:"name"`
	Slug      string `json:"slug"`
	Image     string `json:"image,omitempty"`
	SKU       string `json:"sku"`
	Size      string `json:"size"`
	Color     string `json:"color"`
	Quantity  int    `json:"quantity"`
	UnitPrice int64  `json:"unit_price"`
	Total     int64  `json:"total"`
}

// Order is the result of a simulated checkout.
type Order struct {
	ID              string        `json:"id"`
	OrderNumber     string        `json:"order_number"`
	SessionID       string        `json:"session_id"`
	Lines           []OrderLine   `json:"lines"`
	Subtotal        int64         `json:"subtotal"`
	Discount        int64         `json:"discount"`
	Shipping        int64         `json:"shipping"`
	Tax             int64         `json:"tax"`
	Total           int64         `json:"total"`
	CouponCode      string        `json:"coupon_code,omitempty"`
	Contact         Contact       `json:"contact"`
	ShippingAddress Address       `json:"shipping_address"`
	PaymentMethod   PaymentMethod `json:"payment_method"`
	Status          string        `json:"status"`
	CreatedAt       time.Time     `json:"created_at"`
}
