package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/RobertEarleCodes/Scrittle/internal/domain"
	"github.com/RobertEarleCodes/Scrittle/internal/payment"
	"github.com/RobertEarleCodes/Scrittle/internal/repository"
	apperrors "github.com/RobertEarleCodes/Scrittle/pkg/errors"
	"github.com/RobertEarleCodes/Scrittle/pkg/logger"
)

// SaveOrderInput is what the browser reports after a successful redirect.
type SaveOrderInput struct {
	SessionID        string
	CustomerEmail    string
	ShippingPostcode string
	ShippingMethod   string
	Amount           int64
}

// OrderService maintains the order ledger.
type OrderService struct {
	ledger repository.OrderLedger
	events EventPublisher
	logger *slog.Logger
	now    func() time.Time

	// mu serializes read-check-write status changes.
	mu sync.Mutex
}

// NewOrderService creates a new order service.
func NewOrderService(ledger repository.OrderLedger, events EventPublisher, logger *slog.Logger) *OrderService {
	return &OrderService{
		ledger: ledger,
		events: events,
		logger: logger,
		now:    time.Now,
	}
}

// SaveOrder records a pending order for a completed checkout. Replaying the
// same session id returns the order already on the ledger.
func (s *OrderService) SaveOrder(ctx context.Context, in *SaveOrderInput) (*domain.Order, error) {
	if in.SessionID == "" {
		return nil, apperrors.MissingField("sessionId")
	}

	order := &domain.Order{
		ID:               in.SessionID,
		Email:            in.CustomerEmail,
		Postcode:         in.ShippingPostcode,
		ShippingMethodID: in.ShippingMethod,
		Amount:           in.Amount,
		CreatedAt:        s.now().UTC(),
		Status:           domain.OrderStatusPending,
	}

	if err := s.ledger.Create(ctx, order); err != nil {
		if errors.Is(err, domain.ErrDuplicateOrder) {
			existing, getErr := s.ledger.GetByID(ctx, in.SessionID)
			if getErr != nil {
				return nil, getErr
			}
			s.logger.InfoContext(ctx, "save-order replayed for existing order",
				slog.String("order_id", existing.ID),
				slog.String("status", existing.Status),
			)
			return existing, nil
		}
		return nil, err
	}

	ordersRecordedTotal.WithLabelValues(OrderSourceSaveOrder).Inc()
	s.logger.InfoContext(ctx, "order saved",
		slog.String("order_id", order.ID),
		slog.String("shipping_method", order.ShippingMethodID),
		slog.Int64("amount", order.Amount),
	)
	s.publishCreated(ctx, order, OrderSourceSaveOrder)
	return order, nil
}

// ListOrders returns every order in the order they were recorded.
func (s *OrderService) ListOrders(ctx context.Context) ([]domain.Order, error) {
	orders, err := s.ledger.List(ctx)
	if err != nil {
		return nil, err
	}
	if orders == nil {
		orders = []domain.Order{}
	}
	return orders, nil
}

// UpdateOrderStatus sets an order's status. Any known status is accepted
// from any other; the lifecycle is only enforced for provider events.
func (s *OrderService) UpdateOrderStatus(ctx context.Context, id, status string) (*domain.Order, error) {
	if id == "" {
		return nil, apperrors.MissingField("orderId")
	}
	if !domain.IsValidStatus(status) {
		return nil, domain.InvalidStatusError(status)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.ledger.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.apply(ctx, current, status)
}

// RecordPayment marks the order for a completed checkout session as paid,
// creating it from the session metadata when the browser never reported it.
func (s *OrderService) RecordPayment(ctx context.Context, session *payment.CheckoutSession) (*domain.Order, error) {
	if session == nil || session.ID == "" {
		return nil, apperrors.InvalidInput("checkout session id missing from event")
	}
	ctx = logger.WithSessionID(ctx, session.ID)

	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.ledger.GetByID(ctx, session.ID)
	switch {
	case errors.Is(err, domain.ErrOrderNotFound):
		return s.createPaid(ctx, session)
	case err != nil:
		return nil, err
	}

	if current.Status != domain.OrderStatusPending {
		logger.WithContext(ctx, s.logger).InfoContext(ctx, "payment already reflected on order",
			slog.String("order_id", current.ID),
			slog.String("status", current.Status),
		)
		return current, nil
	}
	return s.transition(ctx, session.ID, domain.OrderStatusPaid)
}

// CancelUnpaid cancels a pending order whose checkout session expired.
// Unknown or already settled orders are left alone.
func (s *OrderService) CancelUnpaid(ctx context.Context, sessionID string) (*domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.ledger.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, domain.ErrOrderNotFound) {
			return nil, nil
		}
		return nil, err
	}
	if current.Status != domain.OrderStatusPending {
		return current, nil
	}
	return s.transition(ctx, sessionID, domain.OrderStatusCancelled)
}

// transition moves an order along the lifecycle. It must be called with s.mu held.
func (s *OrderService) transition(ctx context.Context, id, status string) (*domain.Order, error) {
	current, err := s.ledger.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !current.CanTransitionTo(status) {
		return nil, domain.InvalidTransitionError(current.Status, status)
	}
	return s.apply(ctx, current, status)
}

// apply must be called with s.mu held. Re-applying the current status is a
// no-op.
func (s *OrderService) apply(ctx context.Context, current *domain.Order, status string) (*domain.Order, error) {
	if current.Status == status {
		return current, nil
	}

	id := current.ID
	updated, err := s.ledger.UpdateStatus(ctx, id, status)
	if err != nil {
		return nil, err
	}

	orderStatusTransitionsTotal.WithLabelValues(current.Status, status).Inc()
	s.logger.InfoContext(ctx, "order status updated",
		slog.String("order_id", id),
		slog.String("old_status", current.Status),
		slog.String("new_status", status),
	)
	if err := s.events.PublishOrderStatusChanged(ctx, id, current.Status, status); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish order.status_changed event",
			slog.String("order_id", id),
			slog.String("error", err.Error()),
		)
	}
	return updated, nil
}

func (s *OrderService) createPaid(ctx context.Context, session *payment.CheckoutSession) (*domain.Order, error) {
	order := &domain.Order{
		ID:               session.ID,
		Email:            session.CustomerEmail,
		Postcode:         session.Metadata[domain.MetadataShippingPostcode],
		ShippingMethodID: session.Metadata[domain.MetadataShippingMethod],
		Amount:           session.AmountTotal,
		CreatedAt:        s.now().UTC(),
		Status:           domain.OrderStatusPaid,
	}
	if err := s.ledger.Create(ctx, order); err != nil {
		return nil, err
	}

	ordersRecordedTotal.WithLabelValues(OrderSourceWebhook).Inc()
	s.logger.InfoContext(ctx, "order recorded from payment webhook",
		slog.String("order_id", order.ID),
		slog.Int64("amount", order.Amount),
	)
	s.publishCreated(ctx, order, OrderSourceWebhook)
	return order, nil
}

func (s *OrderService) publishCreated(ctx context.Context, order *domain.Order, source string) {
	if err := s.events.PublishOrderCreated(ctx, order, source); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish order.created event",
			slog.String("order_id", order.ID),
			slog.String("error", err.Error()),
		)
	}
}
