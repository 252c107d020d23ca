package http

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/RobertEarleCodes/Scrittle/internal/service"
	apperrors "github.com/RobertEarleCodes/Scrittle/pkg/errors"
	"github.com/RobertEarleCodes/Scrittle/pkg/httputil"
)

// SignatureHeader carries the provider's webhook signature.
const SignatureHeader = "Stripe-Signature"

// maxWebhookBytes bounds webhook payloads; provider events are far smaller.
const maxWebhookBytes = 64 << 10

// WebhookHandler receives payment provider notifications.
type WebhookHandler struct {
	service *service.WebhookService
	logger  *slog.Logger
}

// NewWebhookHandler creates a new webhook HTTP handler.
func NewWebhookHandler(svc *service.WebhookService, logger *slog.Logger) *WebhookHandler {
	return &WebhookHandler{service: svc, logger: logger}
}

// WebhookResponse acknowledges a delivery.
type WebhookResponse struct {
	Received bool `json:"received"`
}

// HandleWebhook handles POST /api/webhook. The body is read raw because the
// signature covers the exact bytes sent.
func (h *WebhookHandler) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBytes))
	if err != nil {
		httputil.WriteError(w, r, apperrors.InvalidInput("Webhook Error: unreadable payload"), h.logger)
		return
	}

	if err := h.service.Handle(r.Context(), payload, r.Header.Get(SignatureHeader)); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, WebhookResponse{Received: true})
}
