// Package stripe adapts Stripe Checkout to the payment provider port and
// verifies Stripe webhook signatures.
package stripe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	stripego "github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/webhook"

	"github.com/RobertEarleCodes/Scrittle/internal/payment"
	apperrors "github.com/RobertEarleCodes/Scrittle/pkg/errors"
)

// Config holds Stripe API settings.
type Config struct {
	SecretKey string
	Timeout   time.Duration
	// BackendURL overrides the API base URL. Empty uses api.stripe.com.
	BackendURL string
}

// Provider creates Stripe hosted checkout sessions.
type Provider struct {
	api *client.API
}

// NewProvider builds a Stripe client. Network retries are disabled; callers
// surface the first error.
func NewProvider(cfg Config) *Provider {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	backendCfg := &stripego.BackendConfig{
		HTTPClient:        &http.Client{Timeout: timeout},
		MaxNetworkRetries: stripego.Int64(0),
		LeveledLogger:     &stripego.LeveledLogger{Level: stripego.LevelError},
	}
	if cfg.BackendURL != "" {
		backendCfg.URL = stripego.String(cfg.BackendURL)
	}
	backend := stripego.GetBackendWithConfig(stripego.APIBackend, backendCfg)

	return &Provider{
		api: client.New(cfg.SecretKey, &stripego.Backends{API: backend, Connect: backend, Uploads: backend}),
	}
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return "stripe"
}

// CreateCheckoutSession opens a card-payment Checkout Session.
func (p *Provider) CreateCheckoutSession(ctx context.Context, req *payment.SessionRequest) (*payment.Session, error) {
	params := &stripego.CheckoutSessionParams{
		PaymentMethodTypes: stripego.StringSlice([]string{"card"}),
		Mode:               stripego.String(string(stripego.CheckoutSessionModePayment)),
		SuccessURL:         stripego.String(req.SuccessURL),
		CancelURL:          stripego.String(req.CancelURL),
	}
	if req.CustomerEmail != "" {
		params.CustomerEmail = stripego.String(req.CustomerEmail)
	}
	for _, li := range req.LineItems {
		params.LineItems = append(params.LineItems, &stripego.CheckoutSessionLineItemParams{
			PriceData: &stripego.CheckoutSessionLineItemPriceDataParams{
				Currency: stripego.String(req.Currency),
				ProductData: &stripego.CheckoutSessionLineItemPriceDataProductDataParams{
					Name:        stripego.String(li.Name),
					Description: stripego.String(li.Description),
				},
				UnitAmount: stripego.Int64(li.UnitAmount),
			},
			Quantity: stripego.Int64(li.Quantity),
		})
	}
	for k, v := range req.Metadata {
		params.AddMetadata(k, v)
	}
	params.Context = ctx

	s, err := p.api.CheckoutSessions.New(params)
	if err != nil {
		return nil, providerError(err)
	}
	return &payment.Session{ID: s.ID, URL: s.URL}, nil
}

// providerError keeps Stripe's human-readable message. A 400 invalid-request
// error is also classified as invalid input so it does not trip the breaker.
func providerError(err error) error {
	var se *stripego.Error
	if !errors.As(err, &se) {
		return apperrors.PaymentProvider(err.Error(), err)
	}
	appErr := apperrors.PaymentProvider(se.Msg, err)
	if se.Type == stripego.ErrorTypeInvalidRequest && se.HTTPStatusCode == http.StatusBadRequest {
		appErr.Err = fmt.Errorf("%w: %w", appErr.Err, apperrors.ErrInvalidInput)
	}
	return appErr
}

// WebhookVerifier checks Stripe-Signature headers with the endpoint secret.
type WebhookVerifier struct {
	secret    string
	tolerance time.Duration
}

// NewWebhookVerifier creates a verifier for secret.
func NewWebhookVerifier(secret string) *WebhookVerifier {
	return &WebhookVerifier{secret: secret, tolerance: webhook.DefaultTolerance}
}

// ParseEvent verifies the signature and decodes the event. checkout.session.*
// events carry their session.
func (v *WebhookVerifier) ParseEvent(payload []byte, signatureHeader string) (*payment.Event, error) {
	evt, err := webhook.ConstructEventWithOptions(payload, signatureHeader, v.secret, webhook.ConstructEventOptions{
		Tolerance:                v.tolerance,
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return nil, apperrors.InvalidInput(fmt.Sprintf("Webhook Error: %s", err.Error()))
	}

	out := &payment.Event{ID: evt.ID, Type: string(evt.Type)}
	if evt.Data == nil || len(evt.Data.Raw) == 0 {
		return out, nil
	}

	switch out.Type {
	case payment.EventCheckoutSessionCompleted, payment.EventCheckoutSessionExpired:
		var cs stripego.CheckoutSession
		if err := json.Unmarshal(evt.Data.Raw, &cs); err != nil {
			return nil, apperrors.InvalidInput(fmt.Sprintf("Webhook Error: decode checkout session: %s", err.Error()))
		}
		email := cs.CustomerEmail
		if email == "" && cs.CustomerDetails != nil {
			email = cs.CustomerDetails.Email
		}
		out.Session = &payment.CheckoutSession{
			ID:            cs.ID,
			CustomerEmail: email,
			AmountTotal:   cs.AmountTotal,
			PaymentStatus: string(cs.PaymentStatus),
			Metadata:      cs.Metadata,
		}
	}
	return out, nil
}
