// Package payment defines the hosted-checkout provider port and the webhook
// event model shared by the provider adapters.
package payment

import (
	"context"
	"strings"
)

// LineItem is one priced line on a hosted checkout page. UnitAmount is in
// minor units.
type LineItem struct {
	Name        string
	Description string
	UnitAmount  int64
	Quantity    int64
}

// SessionRequest describes a hosted checkout session.
type SessionRequest struct {
	Currency      string
	LineItems     []LineItem
	CustomerEmail string
	SuccessURL    string
	CancelURL     string
	Metadata      map[string]string
}

// Total returns the sum of all lines in minor units.
func (r *SessionRequest) Total() int64 {
	var total int64
	for _, li := range r.LineItems {
		total += li.UnitAmount * li.Quantity
	}
	return total
}

// Session is the provider's handle for a created checkout session.
type Session struct {
	ID  string
	URL string
}

// Provider creates hosted checkout sessions.
type Provider interface {
	// Name returns the provider name (e.g., "mock", "stripe").
	Name() string

	// CreateCheckoutSession opens a hosted checkout session. Failures are
	// returned as apperrors.PaymentProvider errors carrying the provider's
	// message.
	CreateCheckoutSession(ctx context.Context, req *SessionRequest) (*Session, error)
}

// Webhook event types the storefront acts on.
const (
	EventCheckoutSessionCompleted = "checkout.session.completed"
	EventCheckoutSessionExpired   = "checkout.session.expired"
)

// CheckoutSession is the subset of a provider checkout session carried by
// webhook events.
type CheckoutSession struct {
	ID            string
	CustomerEmail string
	AmountTotal   int64
	PaymentStatus string
	Metadata      map[string]string
}

// Event is a verified provider notification. Session is set for
// checkout.session.* events.
type Event struct {
	ID      string
	Type    string
	Session *CheckoutSession
}

// WebhookVerifier authenticates and decodes webhook payloads.
type WebhookVerifier interface {
	ParseEvent(payload []byte, signatureHeader string) (*Event, error)
}

// IsPlaceholderSecret reports whether a signing secret is unset or still the
// sample value from the environment template.
func IsPlaceholderSecret(secret string) bool {
	return strings.TrimSpace(secret) == "" || strings.Contains(secret, "YOUR_")
}
