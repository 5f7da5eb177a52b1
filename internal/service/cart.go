package service

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"

	"github.com/Aimecol/hforher/internal/domain"
	"github.com/Aimecol/hforher/internal/event"
	"github.com/Aimecol/hforher/internal/pricing"
	"github.com/Aimecol/hforher/internal/session"
	apperrors "github.com/Aimecol/hforher/pkg/errors"
	"github.com/Aimecol/hforher/pkg/tracing"
)

// MaxQuantityPerItem caps the quantity of a single add or update request.
const MaxQuantityPerItem = 100

// AddItemInput holds the parameters for adding a variant to the cart.
type AddItemInput struct {
	ProductID string `json:"product_id" validate:"required,max=64"`
	VariantID string `json:"variant_id" validate:"required,max=64"`
	Quantity  int    `json:"quantity" validate:"omitempty,gte=1,lte=100"`
}

// UpdateQuantityInput holds the new quantity for a line. Zero removes it.
type UpdateQuantityInput struct {
	Quantity *int `json:"quantity" validate:"required,lte=100"`
}

// CartView is the cart as shown to the shopper.
type CartView struct {
	SessionID    string                       `json:"session_id"`
	Items        []domain.CartLine            `json:"items"`
	Lines        []pricing.EnrichedLine       `json:"lines"`
	Totals       pricing.Totals               `json:"totals"`
	FreeShipping pricing.FreeShippingProgress `json:"free_shipping"`
	IsOpen       bool                         `json:"is_open"`
}

// CartService implements the cart use cases.
type CartService struct {
	sessions  Sessions
	catalog   Catalog
	publisher event.Publisher
	logger    *slog.Logger
}

// NewCartService creates a cart service.
func NewCartService(sessions Sessions, catalog Catalog, publisher event.Publisher, l *slog.Logger) *CartService {
	return &CartService{
		sessions:  sessions,
		catalog:   catalog,
		publisher: publisher,
		logger:    l,
	}
}

// GetCart returns the session's cart.
func (s *CartService) GetCart(ctx context.Context, sessionID string) (*CartView, error) {
	sess, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return s.view(sess), nil
}

// AddItem resolves the variant in the catalog and adds it to the cart.
func (s *CartService) AddItem(ctx context.Context, sessionID string, input AddItemInput) (*CartView, error) {
	ctx, span := tracing.Start(ctx, "CartService.AddItem",
		attribute.String("product.id", input.ProductID),
		attribute.String("variant.id", input.VariantID),
	)
	var err error
	defer func() { tracing.End(span, err) }()

	if input.Quantity == 0 {
		input.Quantity = 1
	}
	if input.Quantity < 0 || input.Quantity > MaxQuantityPerItem {
		err = apperrors.InvalidInput(fmt.Sprintf("quantity must be between 1 and %d", MaxQuantityPerItem))
		return nil, err
	}

	product, ok := s.catalog.ProductByID(input.ProductID)
	if !ok {
		err = apperrors.NotFound("product", input.ProductID)
		return nil, err
	}
	variant, ok := product.Variant(input.VariantID)
	if !ok {
		err = apperrors.NotFound("variant", input.VariantID)
		return nil, err
	}
	if !variant.IsAvailable || variant.Stock <= 0 {
		err = apperrors.InvalidInput(fmt.Sprintf("%s (%s, %s) is out of stock", product.Name, variant.Size, variant.Color))
		return nil, err
	}

	sess, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	sess.Cart.AddItem(ctx, domain.ItemRef{
		ProductID: product.ID,
		VariantID: variant.ID,
		Name:      product.Name,
	}, input.Quantity)

	v := s.view(sess)
	s.publishUpdated(ctx, v)
	return v, nil
}

// UpdateQuantity sets a line's quantity; zero or less removes the line. An
// unknown line id leaves the cart untouched.
func (s *CartService) UpdateQuantity(ctx context.Context, sessionID, lineID string, input UpdateQuantityInput) (*CartView, error) {
	if input.Quantity == nil {
		return nil, apperrors.InvalidInput("quantity is required")
	}
	if *input.Quantity > MaxQuantityPerItem {
		return nil, apperrors.InvalidInput(fmt.Sprintf("quantity must not exceed %d", MaxQuantityPerItem))
	}

	sess, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	_, existed := sess.Cart.GetItem(lineID)
	sess.Cart.UpdateQuantity(ctx, lineID, *input.Quantity)

	v := s.view(sess)
	if existed {
		s.publishUpdated(ctx, v)
	}
	return v, nil
}

// RemoveItem deletes a line. Removing an unknown line succeeds.
func (s *CartService) RemoveItem(ctx context.Context, sessionID, lineID string) (*CartView, error) {
	sess, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	_, existed := sess.Cart.GetItem(lineID)
	sess.Cart.RemoveItem(ctx, lineID)

	v := s.view(sess)
	if existed {
		s.publishUpdated(ctx, v)
	}
	return v, nil
}

// ClearCart empties the cart.
func (s *CartService) ClearCart(ctx context.Context, sessionID string) (*CartView, error) {
	sess, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	sess.Cart.ClearCart(ctx)

	if err := s.publisher.PublishCartCleared(ctx, sessionID); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish cart.cleared event",
			slog.String("session_id", sessionID),
			slog.String("error", err.Error()),
		)
	}
	return s.view(sess), nil
}

// ToggleCart flips the cart panel.
func (s *CartService) ToggleCart(ctx context.Context, sessionID string) (*CartView, error) {
	sess, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	sess.Cart.ToggleCart()
	return s.view(sess), nil
}

// SetCartOpen opens or closes the cart panel.
func (s *CartService) SetCartOpen(ctx context.Context, sessionID string, open bool) (*CartView, error) {
	sess, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	sess.Cart.SetCartOpen(open)
	return s.view(sess), nil
}

func (s *CartService) view(sess *session.Session) *CartView {
	lines, open := sess.Cart.Snapshot()
	totals := pricing.Compute(lines, s.catalog)
	return &CartView{
		SessionID:    sess.ID,
		Items:        lines,
		Lines:        pricing.Enrich(lines, s.catalog),
		Totals:       totals,
		FreeShipping: pricing.Progress(totals.Subtotal),
		IsOpen:       open,
	}
}

func (s *CartService) publishUpdated(ctx context.Context, v *CartView) {
	if err := s.publisher.PublishCartUpdated(ctx, v.SessionID, v.Items, v.Totals); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish cart.updated event",
			slog.String("session_id", v.SessionID),
			slog.String("error", err.Error()),
		)
	}
}
