package service

import (
	"context"
	"log/slog"

	"github.com/Aimecol/hforher/internal/domain"
	"github.com/Aimecol/hforher/internal/event"
	"github.com/Aimecol/hforher/internal/session"
	apperrors "github.com/Aimecol/hforher/pkg/errors"
)

// WishlistItemInput names a product to save.
type WishlistItemInput struct {
	ProductID string `json:"product_id" validate:"required,max=64"`
}

// WishlistView is the wishlist as shown to the shopper. Products holds the
// saved ids the catalog still knows, in saved order.
type WishlistView struct {
	SessionID  string           `json:"session_id"`
	Items      []string         `json:"items"`
	Products   []domain.Product `json:"products"`
	TotalItems int              `json:"total_items"`
	Saved      *bool            `json:"saved,omitempty"`
}

// WishlistService implements the wishlist use cases.
type WishlistService struct {
	sessions  Sessions
	catalog   Catalog
	publisher event.Publisher
	logger    *slog.Logger
}

// NewWishlistService creates a wishlist service.
func NewWishlistService(sessions Sessions, catalog Catalog, publisher event.Publisher, l *slog.Logger) *WishlistService {
	return &WishlistService{
		sessions:  sessions,
		catalog:   catalog,
		publisher: publisher,
		logger:    l,
	}
}

// GetWishlist returns the session's wishlist.
func (s *WishlistService) GetWishlist(ctx context.Context, sessionID string) (*WishlistView, error) {
	sess, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return s.view(sess), nil
}

// AddItem saves a catalog product.
func (s *WishlistService) AddItem(ctx context.Context, sessionID string, input WishlistItemInput) (*WishlistView, error) {
	product, ok := s.catalog.ProductByID(input.ProductID)
	if !ok {
		return nil, apperrors.NotFound("product", input.ProductID)
	}

	sess, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if sess.Wishlist.AddItem(ctx, product.ID, product.Name) {
		s.publishUpdated(ctx, sess)
	}
	return s.view(sess), nil
}

// RemoveItem drops a product. Ids no longer in the catalog can still be
// removed.
func (s *WishlistService) RemoveItem(ctx context.Context, sessionID, productID string) (*WishlistView, error) {
	sess, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if sess.Wishlist.RemoveItem(ctx, productID, s.label(productID)) {
		s.publishUpdated(ctx, sess)
	}
	return s.view(sess), nil
}

// ToggleItem flips a product's membership. Only catalog products can be
// added, but any saved id can be toggled off.
func (s *WishlistService) ToggleItem(ctx context.Context, sessionID, productID string) (*WishlistView, error) {
	sess, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if !sess.Wishlist.HasItem(productID) {
		if _, ok := s.catalog.ProductByID(productID); !ok {
			return nil, apperrors.NotFound("product", productID)
		}
	}

	saved := sess.Wishlist.ToggleItem(ctx, productID, s.label(productID))
	s.publishUpdated(ctx, sess)

	v := s.view(sess)
	v.Saved = &saved
	return v, nil
}

// ClearWishlist removes every saved product.
func (s *WishlistService) ClearWishlist(ctx context.Context, sessionID string) (*WishlistView, error) {
	sess, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	sess.Wishlist.ClearWishlist(ctx)
	s.publishUpdated(ctx, sess)
	return s.view(sess), nil
}

func (s *WishlistService) label(productID string) string {
	if p, ok := s.catalog.ProductByID(productID); ok {
		return p.Name
	}
	return ""
}

func (s *WishlistService) view(sess *session.Session) *WishlistView {
	ids := sess.Wishlist.Items()
	products := make([]domain.Product, 0, len(ids))
	for _, id := range ids {
		if p, ok := s.catalog.ProductByID(id); ok {
			products = append(products, p)
		}
	}
	return &WishlistView{
		SessionID:  sess.ID,
		Items:      ids,
		Products:   products,
		TotalItems: len(ids),
	}
}

func (s *WishlistService) publishUpdated(ctx context.Context, sess *session.Session) {
	if err := s.publisher.PublishWishlistUpdated(ctx, sess.ID, sess.Wishlist.Items()); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish wishlist.updated event",
			slog.String("session_id", sess.ID),
			slog.String("error", err.Error()),
		)
	}
}
