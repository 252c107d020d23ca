package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/RobertEarleCodes/Scrittle/internal/domain"
	"github.com/RobertEarleCodes/Scrittle/internal/event"
	"github.com/RobertEarleCodes/Scrittle/internal/payment"
	"github.com/RobertEarleCodes/Scrittle/internal/shipping"
	apperrors "github.com/RobertEarleCodes/Scrittle/pkg/errors"
	"github.com/RobertEarleCodes/Scrittle/pkg/logger"
	"github.com/RobertEarleCodes/Scrittle/pkg/validator"
)

// FallbackDomain is used for redirect URLs when neither the request origin nor
// DOMAIN is set.
const FallbackDomain = "http://localhost:3000"

// CheckoutService quotes shipping and opens hosted payment sessions.
type CheckoutService struct {
	quoter        *shipping.Quoter
	provider      payment.Provider
	events        EventPublisher
	logger        *slog.Logger
	defaultDomain string
}

// NewCheckoutService creates a new checkout service. defaultDomain is the
// configured public origin of the storefront pages.
func NewCheckoutService(
	quoter *shipping.Quoter,
	provider payment.Provider,
	events EventPublisher,
	logger *slog.Logger,
	defaultDomain string,
) *CheckoutService {
	return &CheckoutService{
		quoter:        quoter,
		provider:      provider,
		events:        events,
		logger:        logger,
		defaultDomain: defaultDomain,
	}
}

// Quote validates postcode and returns the shipping options.
func (s *CheckoutService) Quote(ctx context.Context, postcode string) (*domain.ShippingQuote, error) {
	quote, err := s.quoter.Quote(postcode)
	shippingQuotesTotal.WithLabelValues(resultLabel(err)).Inc()
	if err != nil {
		s.logger.DebugContext(ctx, "shipping quote rejected",
			slog.String("postcode", postcode),
			slog.String("error", err.Error()),
		)
		return nil, err
	}
	return quote, nil
}

// Build validates req, prices it, and opens a hosted checkout session with
// the payment provider. It never creates an order. origin is the request's
// Origin header and takes precedence over the configured domain for redirect
// URLs.
func (s *CheckoutService) Build(ctx context.Context, req *domain.CheckoutRequest, origin string) (*domain.SessionHandle, error) {
	handle, err := s.build(ctx, req, origin)
	checkoutSessionsTotal.WithLabelValues(resultLabel(err)).Inc()
	return handle, err
}

func (s *CheckoutService) build(ctx context.Context, req *domain.CheckoutRequest, origin string) (*domain.SessionHandle, error) {
	method, err := s.quoter.Lookup(req.ShippingMethodID)
	if err != nil {
		return nil, err
	}
	if err := validator.Var(domain.FieldCustomerEmail, req.CustomerEmail, "required,email"); err != nil {
		return nil, err
	}
	postcode, err := shipping.ValidatePostcode(req.ShippingPostcode)
	if err != nil {
		return nil, err
	}
	for _, item := range req.CartItems {
		if err := item.Validate(); err != nil {
			return nil, err
		}
	}

	sessionReq, err := s.sessionRequest(req, method, postcode, s.ResolveDomain(origin))
	if err != nil {
		return nil, err
	}

	session, err := s.provider.CreateCheckoutSession(ctx, sessionReq)
	if err != nil {
		s.logger.ErrorContext(ctx, "create checkout session failed",
			slog.String("provider", s.provider.Name()),
			slog.String("error", err.Error()),
		)
		var appErr *apperrors.AppError
		if !errors.As(err, &appErr) {
			return nil, apperrors.PaymentProvider(err.Error(), err)
		}
		return nil, err
	}
	if session.ID == "" {
		return nil, apperrors.PaymentProvider("No session ID received", nil)
	}

	ctx = logger.WithSessionID(ctx, session.ID)
	log := logger.WithContext(ctx, s.logger)

	total := sessionReq.Total()
	checkoutAmountTotal.Add(float64(total))
	log.InfoContext(ctx, "checkout session created",
		slog.String("provider", s.provider.Name()),
		slog.String("shipping_method", method.ID),
		slog.Int64("amount_total", total),
	)

	if err := s.events.PublishCheckoutSessionCreated(ctx, event.CheckoutSessionCreatedData{
		SessionID:        session.ID,
		Provider:         s.provider.Name(),
		CustomerEmail:    req.CustomerEmail,
		ShippingPostcode: postcode,
		ShippingMethod:   method.ID,
		AmountTotal:      total,
		Currency:         sessionReq.Currency,
	}); err != nil {
		log.ErrorContext(ctx, "failed to publish checkout.session_created event",
			slog.String("error", err.Error()),
		)
	}

	return &domain.SessionHandle{SessionID: session.ID, URL: session.URL}, nil
}

// ResolveDomain picks the origin redirect URLs are built on.
func (s *CheckoutService) ResolveDomain(origin string) string {
	for _, d := range []string{origin, s.defaultDomain} {
		if d = strings.TrimRight(strings.TrimSpace(d), "/"); d != "" {
			return d
		}
	}
	return FallbackDomain
}

// sessionRequest charges the single product once plus the shipping line,
// whatever the cart holds. The cart is carried in metadata for reconciliation.
func (s *CheckoutService) sessionRequest(req *domain.CheckoutRequest, method domain.ShippingMethod, postcode, origin string) (*payment.SessionRequest, error) {
	items := req.CartItems
	if items == nil {
		items = []domain.CartItem{}
	}
	cartJSON, err := json.Marshal(items)
	if err != nil {
		return nil, fmt.Errorf("marshal cart snapshot: %w", err)
	}
	shopJSON, err := json.Marshal(domain.Shop)
	if err != nil {
		return nil, fmt.Errorf("marshal shop address: %w", err)
	}

	return &payment.SessionRequest{
		Currency: domain.Currency,
		LineItems: []payment.LineItem{
			{
				Name:        domain.ProductName,
				Description: domain.ProductDescription,
				UnitAmount:  domain.ProductPrice,
				Quantity:    1,
			},
			{
				Name:        "Shipping",
				Description: method.Name,
				UnitAmount:  method.Price,
				Quantity:    1,
			},
		},
		CustomerEmail: req.CustomerEmail,
		SuccessURL:    origin + "/success.html?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:     origin + "/cart.html",
		Metadata: map[string]string{
			domain.MetadataShippingPostcode: postcode,
			domain.MetadataShippingMethod:   method.ID,
			domain.MetadataShopAddress:      string(shopJSON),
			domain.MetadataCartItems:        string(cartJSON),
		},
	}, nil
}
