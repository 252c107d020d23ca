// Package mock provides a payment provider for development that accepts every
// checkout without contacting a payment service.
package mock

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/RobertEarleCodes/Scrittle/internal/payment"
)

// SessionIDPlaceholder is replaced with the session id in success URLs, the
// same template variable hosted checkout pages use.
const SessionIDPlaceholder = "{CHECKOUT_SESSION_ID}"

// PublicKey is served to browsers when the mock provider is active and no
// publishable key is configured.
const PublicKey = "pk_mock_storefront"

// Provider is a mock payment provider that always succeeds. Its session URL
// points straight at the success page, as if the buyer had paid.
type Provider struct {
	mu       sync.Mutex
	requests []payment.SessionRequest
}

// NewProvider creates a new mock payment provider.
func NewProvider() *Provider {
	return &Provider{}
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return "mock"
}

// CreateCheckoutSession records req and returns a fresh mock session.
func (p *Provider) CreateCheckoutSession(ctx context.Context, req *payment.SessionRequest) (*payment.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p.mu.Lock()
	p.requests = append(p.requests, *req)
	p.mu.Unlock()

	id := "mock_cs_" + uuid.New().String()
	return &payment.Session{
		ID:  id,
		URL: strings.ReplaceAll(req.SuccessURL, SessionIDPlaceholder, id),
	}, nil
}

// Requests returns the session requests received so far.
func (p *Provider) Requests() []payment.SessionRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]payment.SessionRequest, len(p.requests))
	copy(out, p.requests)
	return out
}
