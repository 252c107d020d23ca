package http

import (
	"log/slog"
	"net/http"

	"github.com/RobertEarleCodes/Scrittle/internal/domain"
	"github.com/RobertEarleCodes/Scrittle/internal/service"
	"github.com/RobertEarleCodes/Scrittle/pkg/httputil"
)

// CheckoutHandler serves the public key, shipping quotes and session creation.
type CheckoutHandler struct {
	service   *service.CheckoutService
	publicKey string
	logger    *slog.Logger
}

// NewCheckoutHandler creates a new checkout HTTP handler. publicKey is the
// payment provider's publishable key handed to the browser.
func NewCheckoutHandler(svc *service.CheckoutService, publicKey string, logger *slog.Logger) *CheckoutHandler {
	return &CheckoutHandler{
		service:   svc,
		publicKey: publicKey,
		logger:    logger,
	}
}

// --- Request/Response DTOs ---

// CalculateShippingRequest is the JSON body for POST /api/calculate-shipping.
type CalculateShippingRequest struct {
	Postcode string `json:"postcode"`
}

// CreateCheckoutSessionRequest is the JSON body for POST
// /api/create-checkout-session. Field checks run in the service so that an
// unknown shipping method is reported before anything else.
type CreateCheckoutSessionRequest struct {
	CartItems        []domain.CartItem `json:"cartItems" validate:"omitempty,max=100"`
	ShippingMethod   string            `json:"shippingMethod"`
	CustomerEmail    string            `json:"customerEmail"`
	ShippingPostcode string            `json:"shippingPostcode"`
}

// PublicKeyResponse carries the publishable key. An empty key means the
// server is not configured for payments.
type PublicKeyResponse struct {
	PublicKey string `json:"publicKey"`
}

// CalculateShippingResponse lists the shipping options for a postcode.
type CalculateShippingResponse struct {
	Success         bool                    `json:"success"`
	Postcode        string                  `json:"postcode"`
	ShippingOptions []domain.ShippingMethod `json:"shippingOptions"`
}

// --- Handlers ---

// PublicKey handles GET /api/public-key.
func (h *CheckoutHandler) PublicKey(w http.ResponseWriter, r *http.Request) {
	if h.publicKey == "" {
		h.logger.WarnContext(r.Context(), "public key requested but none is configured")
	}
	httputil.WriteJSON(w, http.StatusOK, PublicKeyResponse{PublicKey: h.publicKey})
}

// CalculateShipping handles POST /api/calculate-shipping.
func (h *CheckoutHandler) CalculateShipping(w http.ResponseWriter, r *http.Request) {
	var req CalculateShippingRequest
	if err := decodeRequest(w, r, &req); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	quote, err := h.service.Quote(r.Context(), req.Postcode)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, CalculateShippingResponse{
		Success:         true,
		Postcode:        quote.Postcode,
		ShippingOptions: quote.Options,
	})
}

// CreateCheckoutSession handles POST /api/create-checkout-session. It opens a
// hosted payment session and never records an order.
func (h *CheckoutHandler) CreateCheckoutSession(w http.ResponseWriter, r *http.Request) {
	var req CreateCheckoutSessionRequest
	if err := decodeRequest(w, r, &req); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	handle, err := h.service.Build(r.Context(), &domain.CheckoutRequest{
		CartItems:        req.CartItems,
		ShippingMethodID: req.ShippingMethod,
		CustomerEmail:    req.CustomerEmail,
		ShippingPostcode: req.ShippingPostcode,
	}, r.Header.Get("Origin"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, handle)
}
