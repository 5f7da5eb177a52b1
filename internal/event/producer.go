// Package event publishes storefront domain events.
package event

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Aimecol/hforher/internal/domain"
	"github.com/Aimecol/hforher/internal/pricing"
	pkgkafka "github.com/Aimecol/hforher/pkg/kafka"
	"github.com/Aimecol/hforher/pkg/logger"
)

// Kafka topics.
const (
	TopicCartUpdated         = "storefront.cart.updated"
	TopicCartCleared         = "storefront.cart.cleared"
	TopicWishlistUpdated     = "storefront.wishlist.updated"
	TopicOrderPlaced         = "storefront.order.placed"
	TopicNotificationCreated = "storefront.notification.created"
)

// SourceStorefront identifies events emitted by this service.
const SourceStorefront = "storefront"

// Publisher is what the services need from the event layer.
type Publisher interface {
	PublishCartUpdated(ctx context.Context, sessionID string, lines []domain.CartLine, totals pricing.Totals) error
	PublishCartCleared(ctx context.Context, sessionID string) error
	PublishWishlistUpdated(ctx context.Context, sessionID string, productIDs []string) error
	PublishOrderPlaced(ctx context.Context, order *domain.Order) error
}

// CartUpdatedData is the payload of a cart.updated event.
type CartUpdatedData struct {
	SessionID  string         `json:"session_id"`
	Items      []CartItemData `json:"items"`
	TotalItems int            `json:"total_items"`
	Totals     pricing.Totals `json:"totals"`
}

// CartItemData is one line within cart events.
type CartItemData struct {
	LineID    string    `json:"line_id"`
	ProductID string    `json:"product_id"`
	VariantID string    `json:"variant_id"`
	Quantity  int       `json:"quantity"`
	AddedAt   time.Time `json:"added_at"`
}

// CartClearedData is the payload of a cart.cleared event.
type CartClearedData struct {
	SessionID string `json:"session_id"`
}

// WishlistUpdatedData is the payload of a wishlist.updated event.
type WishlistUpdatedData struct {
	SessionID  string   `json:"session_id"`
	ProductIDs []string `json:"product_ids"`
}

// OrderPlacedData is the payload of an order.placed event.
type OrderPlacedData struct {
	OrderID     string `json:"order_id"`
	OrderNumber string `json:"order_number"`
	SessionID   string `json:"session_id"`
	ItemCount   int    `json:"item_count"`
	Total       int64  `json:"total"`
	CouponCode  string `json:"coupon_code,omitempty"`
	Payment     string `json:"payment_type"`
}

// NotificationData is the payload of a notification.created event.
type NotificationData struct {
	SessionID   string `json:"session_id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Severity    string `json:"severity"`
}

type eventPublisher interface {
	Publish(ctx context.Context, topic string, event *pkgkafka.Event) error
}

// Producer publishes storefront events to Kafka.
type Producer struct {
	kafka  eventPublisher
	logger *slog.Logger
}

// NewProducer creates an event producer.
func NewProducer(kafka *pkgkafka.Producer, l *slog.Logger) *Producer {
	return &Producer{kafka: kafka, logger: l}
}

// PublishCartUpdated publishes a cart.updated event.
func (p *Producer) PublishCartUpdated(ctx context.Context, sessionID string, lines []domain.CartLine, totals pricing.Totals) error {
	items := make([]CartItemData, len(lines))
	for i, l := range lines {
		items[i] = CartItemData{
			LineID:    l.ID,
			ProductID: l.ProductID,
			VariantID: l.VariantID,
			Quantity:  l.Quantity,
			AddedAt:   l.AddedAt,
		}
	}
	return p.publish(ctx, TopicCartUpdated, sessionID, CartUpdatedData{
		SessionID:  sessionID,
		Items:      items,
		TotalItems: totals.TotalItems,
		Totals:     totals,
	})
}

// PublishCartCleared publishes a cart.cleared event.
func (p *Producer) PublishCartCleared(ctx context.Context, sessionID string) error {
	return p.publish(ctx, TopicCartCleared, sessionID, CartClearedData{SessionID: sessionID})
}

// PublishWishlistUpdated publishes a wishlist.updated event.
func (p *Producer) PublishWishlistUpdated(ctx context.Context, sessionID string, productIDs []string) error {
	return p.publish(ctx, TopicWishlistUpdated, sessionID, WishlistUpdatedData{
		SessionID:  sessionID,
		ProductIDs: productIDs,
	})
}

// PublishOrderPlaced publishes an order.placed event keyed by session.
func (p *Producer) PublishOrderPlaced(ctx context.Context, order *domain.Order) error {
	items := 0
	for _, l := range order.Lines {
		items += l.Quantity
	}
	return p.publish(ctx, TopicOrderPlaced, order.SessionID, OrderPlacedData{
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		SessionID:   order.SessionID,
		ItemCount:   items,
		Total:       order.Total,
		CouponCode:  order.CouponCode,
		Payment:     order.PaymentMethod.Type,
	})
}

// PublishNotification forwards a toast. It satisfies notify.Sink.
func (p *Producer) PublishNotification(ctx context.Context, sessionID string, n domain.Notification) error {
	return p.publish(ctx, TopicNotificationCreated, sessionID, NotificationData{
		SessionID:   sessionID,
		Title:       n.Title,
		Description: n.Description,
		Severity:    string(n.Severity),
	})
}

func (p *Producer) publish(ctx context.Context, topic, key string, data any) error {
	evt, err := pkgkafka.NewEvent(topic, key, SourceStorefront, data)
	if err != nil {
		return fmt.Errorf("create %s event: %w", topic, err)
	}
	evt.CorrelationID = logger.CorrelationIDFromContext(ctx)

	if err := p.kafka.Publish(ctx, topic, evt); err != nil {
		return fmt.Errorf("publish %s event: %w", topic, err)
	}
	return nil
}

// NopPublisher discards events. It is used when Kafka is disabled.
type NopPublisher struct{}

func (NopPublisher) PublishCartUpdated(context.Context, string, []domain.CartLine, pricing.Totals) error {
	return nil
}

func (NopPublisher) PublishCartCleared(context.Context, string) error { return nil }

func (NopPublisher) PublishWishlistUpdated(context.Context, string, []string) error { return nil }

func (NopPublisher) PublishOrderPlaced(context.Context, *domain.Order) error { return nil }
