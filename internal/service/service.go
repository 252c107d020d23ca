// Package service implements the storefront business logic: shipping quotes,
// checkout session building, order bookkeeping and payment webhooks.
package service

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/RobertEarleCodes/Scrittle/internal/domain"
	"github.com/RobertEarleCodes/Scrittle/internal/event"
)

// EventPublisher publishes storefront domain events. Publishing is best
// effort: failures are logged and never fail the request.
type EventPublisher interface {
	PublishCheckoutSessionCreated(ctx context.Context, data event.CheckoutSessionCreatedData) error
	PublishOrderCreated(ctx context.Context, order *domain.Order, source string) error
	PublishOrderStatusChanged(ctx context.Context, orderID, oldStatus, newStatus string) error
}

// Order sources recorded on order.created events and metrics.
const (
	OrderSourceSaveOrder = "save_order"
	OrderSourceWebhook   = "webhook"
)

var (
	shippingQuotesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_shipping_quotes_total",
			Help: "Total shipping quote requests by result",
		},
		[]string{"result"},
	)

	checkoutSessionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_checkout_sessions_total",
			Help: "Total checkout session attempts by result",
		},
		[]string{"result"},
	)

	checkoutAmountTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "storefront_checkout_amount_minor_units_total",
			Help: "Sum of checkout session totals in minor units",
		},
	)

	ordersRecordedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_orders_recorded_total",
			Help: "Total orders written to the ledger by source",
		},
		[]string{"source"},
	)

	orderStatusTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_order_status_transitions_total",
			Help: "Total order status changes",
		},
		[]string{"from", "to"},
	)

	webhookEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_webhook_events_total",
			Help: "Total payment webhook deliveries by outcome",
		},
		[]string{"type", "outcome"},
	)
)

func resultLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
