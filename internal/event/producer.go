// Package event publishes storefront domain events to Kafka.
package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/RobertEarleCodes/Scrittle/internal/domain"
	pkgkafka "github.com/RobertEarleCodes/Scrittle/pkg/kafka"
	"github.com/RobertEarleCodes/Scrittle/pkg/logger"
)

// Kafka topics for storefront events.
var (
	TopicCheckoutSessionCreated = pkgkafka.Topic("checkout", "session_created")
	TopicOrderCreated           = pkgkafka.Topic("order", "created")
	TopicOrderStatusChanged     = pkgkafka.Topic("order", "status_changed")
)

// Aggregate types.
const (
	AggregateTypeCheckout = "checkout"
	AggregateTypeOrder    = "order"
)

// SourceStorefrontAPI identifies events emitted by the API server.
const SourceStorefrontAPI = "storefront-api"

// Envelope metadata keys. Consumers can route on them without decoding data.
const (
	MetadataSessionID   = "session_id"
	MetadataOrderSource = "order_source"
	MetadataProvider    = "provider"
)

// CheckoutSessionCreatedData is the payload for checkout.session_created.
type CheckoutSessionCreatedData struct {
	SessionID        string `json:"session_id"`
	Provider         string `json:"provider"`
	CustomerEmail    string `json:"customer_email"`
	ShippingPostcode string `json:"shipping_postcode"`
	ShippingMethod   string `json:"shipping_method"`
	AmountTotal      int64  `json:"amount_total"`
	Currency         string `json:"currency"`
}

// OrderCreatedData is the payload for order.created (full order snapshot).
type OrderCreatedData struct {
	ID             string `json:"id"`
	Email          string `json:"email"`
	Postcode       string `json:"postcode"`
	ShippingMethod string `json:"shipping_method"`
	Amount         int64  `json:"amount"`
	Status         string `json:"status"`
	Source         string `json:"source"`
}

// OrderStatusChangedData is the payload for order.status_changed.
type OrderStatusChangedData struct {
	OrderID   string `json:"order_id"`
	OldStatus string `json:"old_status"`
	NewStatus string `json:"new_status"`
}

// Publisher is the subset of pkg/kafka.Producer used here.
type Publisher interface {
	Publish(ctx context.Context, topic string, event *pkgkafka.Event) error
}

// Producer publishes storefront domain events.
type Producer struct {
	kafka  Publisher
	logger *slog.Logger
}

// NewProducer creates a new event producer.
func NewProducer(kafka Publisher, logger *slog.Logger) *Producer {
	return &Producer{kafka: kafka, logger: logger}
}

// PublishCheckoutSessionCreated announces a new hosted checkout session.
func (p *Producer) PublishCheckoutSessionCreated(ctx context.Context, data CheckoutSessionCreatedData) error {
	return p.publish(ctx, TopicCheckoutSessionCreated, "checkout.session_created",
		data.SessionID, AggregateTypeCheckout, data, map[string]string{MetadataProvider: data.Provider})
}

// PublishOrderCreated publishes an order.created event. source says which
// path recorded the order (save_order or webhook).
func (p *Producer) PublishOrderCreated(ctx context.Context, order *domain.Order, source string) error {
	return p.publish(ctx, TopicOrderCreated, "order.created", order.ID, AggregateTypeOrder, OrderCreatedData{
		ID:             order.ID,
		Email:          order.Email,
		Postcode:       order.Postcode,
		ShippingMethod: order.ShippingMethodID,
		Amount:         order.Amount,
		Status:         order.Status,
		Source:         source,
	}, map[string]string{MetadataOrderSource: source})
}

// PublishOrderStatusChanged publishes an order.status_changed event.
func (p *Producer) PublishOrderStatusChanged(ctx context.Context, orderID, oldStatus, newStatus string) error {
	return p.publish(ctx, TopicOrderStatusChanged, "order.status_changed", orderID, AggregateTypeOrder,
		OrderStatusChangedData{OrderID: orderID, OldStatus: oldStatus, NewStatus: newStatus}, nil)
}

func (p *Producer) publish(ctx context.Context, topic, eventType, aggregateID, aggregateType string, data any, metadata map[string]string) error {
	evt, err := pkgkafka.NewEvent(eventType, aggregateID, aggregateType, SourceStorefrontAPI, data)
	if err != nil {
		return fmt.Errorf("create %s event: %w", eventType, err)
	}
	if cid := logger.CorrelationIDFromContext(ctx); cid != "" {
		evt.WithCorrelationID(cid)
	}
	if sid := logger.SessionIDFromContext(ctx); sid != "" {
		evt.WithMetadata(MetadataSessionID, sid)
	}
	for k, v := range metadata {
		if v != "" {
			evt.WithMetadata(k, v)
		}
	}

	if err := p.kafka.Publish(ctx, topic, evt); err != nil {
		return fmt.Errorf("publish %s event: %w", eventType, err)
	}

	p.logger.DebugContext(ctx, "published event",
		slog.String("event_type", eventType),
		slog.String("aggregate_id", aggregateID),
	)
	return nil
}

// Discard drops every event. It stands in for the producer when Kafka is
// disabled.
type Discard struct{}

// PublishCheckoutSessionCreated does nothing.
func (Discard) PublishCheckoutSessionCreated(context.Context, CheckoutSessionCreatedData) error {
	return nil
}

// PublishOrderCreated does nothing.
func (Discard) PublishOrderCreated(context.Context, *domain.Order, string) error { return nil }

// PublishOrderStatusChanged does nothing.
func (Discard) PublishOrderStatusChanged(context.Context, string, string, string) error { return nil }
