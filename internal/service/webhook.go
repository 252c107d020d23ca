package service

import (
	"context"
	"log/slog"

	"github.com/RobertEarleCodes/Scrittle/internal/payment"
	"github.com/RobertEarleCodes/Scrittle/pkg/idempotency"
)

// WebhookService handles payment provider notifications.
type WebhookService struct {
	verifier payment.WebhookVerifier
	dedup    idempotency.Store
	orders   *OrderService
	logger   *slog.Logger
}

// NewWebhookService creates a webhook service. A nil verifier means no real
// signing secret is configured: deliveries are acknowledged and logged but
// never acted on.
func NewWebhookService(verifier payment.WebhookVerifier, dedup idempotency.Store, orders *OrderService, logger *slog.Logger) *WebhookService {
	return &WebhookService{
		verifier: verifier,
		dedup:    dedup,
		orders:   orders,
		logger:   logger,
	}
}

// Verified reports whether signatures are checked.
func (s *WebhookService) Verified() bool {
	return s.verifier != nil
}

// Handle verifies and applies one delivery. Verification failures come back as
// InvalidInput errors; ledger failures are returned so the provider retries.
func (s *WebhookService) Handle(ctx context.Context, payload []byte, signature string) error {
	if s.verifier == nil {
		webhookEventsTotal.WithLabelValues("unknown", "unverified").Inc()
		s.logger.WarnContext(ctx, "webhook received without signature verification; no signing secret configured",
			slog.Int("payload_bytes", len(payload)),
		)
		return nil
	}

	evt, err := s.verifier.ParseEvent(payload, signature)
	if err != nil {
		webhookEventsTotal.WithLabelValues("unknown", "rejected").Inc()
		s.logger.WarnContext(ctx, "webhook signature verification failed", slog.String("error", err.Error()))
		return err
	}

	ran, err := idempotency.Once(ctx, s.dedup, evt.ID, s.logger, func(ctx context.Context) error {
		return s.dispatch(ctx, evt)
	})
	switch {
	case err != nil:
		webhookEventsTotal.WithLabelValues(evt.Type, "error").Inc()
		s.logger.ErrorContext(ctx, "webhook processing failed",
			slog.String("event_id", evt.ID),
			slog.String("event_type", evt.Type),
			slog.String("error", err.Error()),
		)
		return err
	case !ran:
		webhookEventsTotal.WithLabelValues(evt.Type, "duplicate").Inc()
		s.logger.InfoContext(ctx, "duplicate webhook event skipped",
			slog.String("event_id", evt.ID),
			slog.String("event_type", evt.Type),
		)
	default:
		webhookEventsTotal.WithLabelValues(evt.Type, "processed").Inc()
	}
	return nil
}

func (s *WebhookService) dispatch(ctx context.Context, evt *payment.Event) error {
	switch evt.Type {
	case payment.EventCheckoutSessionCompleted:
		if evt.Session == nil {
			return nil
		}
		if evt.Session.PaymentStatus == "unpaid" {
			s.logger.InfoContext(ctx, "checkout completed with payment pending",
				slog.String("session_id", evt.Session.ID))
			return nil
		}
		_, err := s.orders.RecordPayment(ctx, evt.Session)
		return err

	case payment.EventCheckoutSessionExpired:
		if evt.Session == nil {
			return nil
		}
		_, err := s.orders.CancelUnpaid(ctx, evt.Session.ID)
		return err

	default:
		s.logger.DebugContext(ctx, "ignoring webhook event", slog.String("event_type", evt.Type))
		return nil
	}
}
