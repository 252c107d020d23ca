package payment

import (
	"context"
	"errors"
	"log/slog"

	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/otel/attribute"

	"github.com/RobertEarleCodes/Scrittle/pkg/breaker"
	apperrors "github.com/RobertEarleCodes/Scrittle/pkg/errors"
	"github.com/RobertEarleCodes/Scrittle/pkg/tracing"
)

// BreakerProvider wraps a Provider with a circuit breaker so a provider outage
// fails fast instead of stacking up slow checkout requests. Calls are never
// retried.
type BreakerProvider struct {
	next   Provider
	cb     *gobreaker.CircuitBreaker[*Session]
	logger *slog.Logger
}

// WithBreaker decorates next. Validation-style provider rejections (the
// request itself was bad) do not count toward tripping.
func WithBreaker(next Provider, cfg breaker.Config, logger *slog.Logger) *BreakerProvider {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.IsSuccessful == nil {
		cfg.IsSuccessful = func(err error) bool {
			return err == nil ||
				errors.Is(err, context.Canceled) ||
				errors.Is(err, apperrors.ErrInvalidInput)
		}
	}
	return &BreakerProvider{
		next:   next,
		cb:     breaker.New[*Session](cfg, logger),
		logger: logger,
	}
}

// Name returns the wrapped provider's name.
func (p *BreakerProvider) Name() string {
	return p.next.Name()
}

// CreateCheckoutSession calls the wrapped provider through the breaker.
func (p *BreakerProvider) CreateCheckoutSession(ctx context.Context, req *SessionRequest) (*Session, error) {
	ctx, span := tracing.Tracer("payment").Start(ctx, "payment.CreateCheckoutSession")
	defer span.End()
	span.SetAttributes(
		attribute.String("payment.provider", p.next.Name()),
		attribute.Int64("payment.amount_total", req.Total()),
	)

	session, err := p.cb.Execute(func() (*Session, error) {
		return p.next.CreateCheckoutSession(ctx, req)
	})
	if err == nil {
		span.SetAttributes(attribute.String("payment.session_id", session.ID))
		return session, nil
	}

	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		breaker.RecordFallback(p.cb.Name())
		p.logger.WarnContext(ctx, "payment provider circuit open, rejecting checkout",
			slog.String("provider", p.next.Name()),
		)
		err = apperrors.PaymentProvider("Payment provider is temporarily unavailable, please try again shortly", err)
	}
	tracing.RecordError(span, err)
	return nil, err
}

// State returns the breaker state.
func (p *BreakerProvider) State() gobreaker.State {
	return p.cb.State()
}
