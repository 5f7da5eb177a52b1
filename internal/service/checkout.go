package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/Aimecol/hforher/internal/domain"
	"github.com/Aimecol/hforher/internal/event"
	"github.com/Aimecol/hforher/internal/pricing"
	apperrors "github.com/Aimecol/hforher/pkg/errors"
	"github.com/Aimecol/hforher/pkg/tracing"
	"github.com/Aimecol/hforher/pkg/validator"
)

// QuoteInput asks for the cart's totals with an optional coupon.
type QuoteInput struct {
	CouponCode string `json:"coupon_code" validate:"max=32"`
}

// PlaceOrderInput is the checkout form.
type PlaceOrderInput struct {
	Contact         domain.Contact       `json:"contact" validate:"required"`
	ShippingAddress domain.Address       `json:"shipping_address" validate:"required"`
	PaymentMethod   domain.PaymentMethod `json:"payment_method" validate:"required"`
	CouponCode      string               `json:"coupon_code" validate:"max=32"`
}

// Quote is the priced cart shown on the checkout page.
type Quote struct {
	Lines        []pricing.EnrichedLine       `json:"lines"`
	Totals       pricing.Totals               `json:"totals"`
	FreeShipping pricing.FreeShippingProgress `json:"free_shipping"`
}

// CheckoutService prices carts and places simulated orders. Nothing is
// charged.
type CheckoutService struct {
	sessions  Sessions
	catalog   Catalog
	publisher event.Publisher
	logger    *slog.Logger
	now       func() time.Time
}

// NewCheckoutService creates a checkout service.
func NewCheckoutService(sessions Sessions, catalog Catalog, publisher event.Publisher, l *slog.Logger) *CheckoutService {
	return &CheckoutService{
		sessions:  sessions,
		catalog:   catalog,
		publisher: publisher,
		logger:    l,
		now:       time.Now,
	}
}

// Quote prices the session's cart and applies the coupon, if any.
func (s *CheckoutService) Quote(ctx context.Context, sessionID string, input QuoteInput) (*Quote, error) {
	sess, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return s.quote(sess.Cart.Items(), input.CouponCode)
}

func (s *CheckoutService) quote(lines []domain.CartLine, coupon string) (*Quote, error) {
	enriched := pricing.Enrich(lines, s.catalog)
	totals := pricing.Compute(lines, s.catalog)
	totals, err := pricing.ApplyCoupon(totals, coupon)
	if err != nil {
		return nil, err
	}
	return &Quote{
		Lines:        enriched,
		Totals:       totals,
		FreeShipping: pricing.Progress(totals.Subtotal),
	}, nil
}

// PlaceOrder turns the session's cart into a confirmed order and clears the
// cart. Lines the catalog no longer resolves are left out of the order.
func (s *CheckoutService) PlaceOrder(ctx context.Context, sessionID string, input PlaceOrderInput) (*domain.Order, error) {
	ctx, span := tracing.Start(ctx, "CheckoutService.PlaceOrder")
	var err error
	defer func() { tracing.End(span, err) }()

	if verr := validator.Validate(input); verr != nil {
		err = apperrors.InvalidInput(verr.Error())
		return nil, err
	}

	sess, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	q, err := s.quote(sess.Cart.Items(), input.CouponCode)
	if err != nil {
		return nil, err
	}
	if len(q.Lines) == 0 {
		err = apperrors.EmptyCart()
		return nil, err
	}

	now := s.now().UTC()
	number, err := orderNumber(now)
	if err != nil {
		err = apperrors.Internal(err)
		return nil, err
	}

	order := &domain.Order{
		ID:              uuid.NewString(),
		OrderNumber:     number,
		SessionID:       sessionID,
		Lines:           orderLines(q.Lines),
		Subtotal:        q.Totals.Subtotal,
		Discount:        q.Totals.Discount,
		Shipping:        q.Totals.Shipping,
		Tax:             q.Totals.Tax,
		Total:           q.Totals.Total,
		CouponCode:      q.Totals.CouponCode,
		Contact:         input.Contact,
		ShippingAddress: input.ShippingAddress,
		PaymentMethod:   input.PaymentMethod,
		Status:          domain.OrderStatusConfirmed,
		CreatedAt:       now,
	}
	span.SetAttributes(
		attribute.String("order.number", order.OrderNumber),
		attribute.Int64("order.total", order.Total),
	)

	sess.Cart.ClearCart(ctx)

	if perr := s.publisher.PublishOrderPlaced(ctx, order); perr != nil {
		s.logger.ErrorContext(ctx, "failed to publish order.placed event",
			slog.String("order_number", order.OrderNumber),
			slog.String("error", perr.Error()),
		)
	}
	if perr := s.publisher.PublishCartCleared(ctx, sessionID); perr != nil {
		s.logger.ErrorContext(ctx, "failed to publish cart.cleared event",
			slog.String("session_id", sessionID),
			slog.String("error", perr.Error()),
		)
	}

	s.logger.InfoContext(ctx, "order placed",
		slog.String("order_number", order.OrderNumber),
		slog.Int64("total", order.Total),
		slog.Int("lines", len(order.Lines)),
	)
	return order, nil
}

func orderLines(lines []pricing.EnrichedLine) []domain.OrderLine {
	out := make([]domain.OrderLine, len(lines))
	for i, l := range lines {
		out[i] = domain.OrderLine{
			ProductID: l.ProductID,
			VariantID: l.VariantID,
			Name:      l.Details.Name,
			Slug:      l.Details.Slug,
			Image:     l.Details.Image,
			SKU:       l.Details.SKU,
			Size:      l.Details.Size,
			Color:     l.Details.Color,
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice,
			Total:     l.LineTotal,
		}
	}
	return out
}

// orderNumber formats HFH-<yyyymmdd>-<6 upper-case hex digits>.
func orderNumber(t time.Time) (string, error) {
	b := make([]byte, 3)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate order number: %w", err)
	}
	return fmt.Sprintf("HFH-%s-%s", t.Format("20060102"), strings.ToUpper(hex.EncodeToString(b))), nil
}
