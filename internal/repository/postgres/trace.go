package postgres

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/RobertEarleCodes/Scrittle/internal/domain"
)

const (
	tracerName  = "github.com/RobertEarleCodes/Scrittle/internal/repository/postgres"
	ordersTable = "orders"
)

// Span attribute keys for ledger statements.
const (
	attrOrderID     = attribute.Key("order.id")
	attrOrderStatus = attribute.Key("order.status")
	attrOutcome     = attribute.Key("ledger.outcome")
	attrRows        = attribute.Key("db.response.returned_rows")
)

// Option configures an OrderLedger.
type Option func(*OrderLedger)

// WithSlowQueryLog logs ledger statements that take threshold or longer.
// A zero threshold or nil logger turns it off.
func WithSlowQueryLog(threshold time.Duration, logger *slog.Logger) Option {
	return func(l *OrderLedger) {
		l.slowQuery = threshold
		l.logger = logger
	}
}

// ledgerSpan tracks one statement against the orders table.
type ledgerSpan struct {
	ledger    *OrderLedger
	span      trace.Span
	operation string
	orderID   string
	start     time.Time
}

// trace starts a client span for operation. orderID is empty for statements
// that touch every row.
func (l *OrderLedger) trace(ctx context.Context, operation, statement, orderID string) (context.Context, *ledgerSpan) {
	attrs := []attribute.KeyValue{
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation", operation),
		attribute.String("db.sql.table", ordersTable),
		attribute.String("db.statement", statement),
	}
	if orderID != "" {
		attrs = append(attrs, attrOrderID.String(orderID))
	}
	ctx, span := otel.Tracer(tracerName).Start(ctx, "ledger."+operation,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attrs...),
	)
	return ctx, &ledgerSpan{ledger: l, span: span, operation: operation, orderID: orderID, start: time.Now()}
}

func (s *ledgerSpan) status(status string) {
	s.span.SetAttributes(attrOrderStatus.String(status))
}

func (s *ledgerSpan) rows(n int) {
	s.span.SetAttributes(attrRows.Int(n))
}

// end closes the span. Unknown and duplicate ids are answers the ledger
// gives, not failures, so they only set ledger.outcome.
func (s *ledgerSpan) end(err error) {
	outcome := "ok"
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrOrderNotFound):
		outcome = "not_found"
	case errors.Is(err, domain.ErrDuplicateOrder):
		outcome = "duplicate"
	default:
		outcome = "error"
		s.span.RecordError(err)
		s.span.SetStatus(codes.Error, err.Error())
	}
	s.span.SetAttributes(attrOutcome.String(outcome))
	s.span.End()

	l := s.ledger
	if l.slowQuery <= 0 || l.logger == nil {
		return
	}
	elapsed := time.Since(s.start)
	if elapsed < l.slowQuery {
		return
	}
	attrs := []any{
		slog.String("operation", s.operation),
		slog.String("table", ordersTable),
		slog.String("outcome", outcome),
		slog.Duration("duration", elapsed),
	}
	if s.orderID != "" {
		attrs = append(attrs, slog.String("order_id", s.orderID))
	}
	if outcome == "error" {
		attrs = append(attrs, slog.String("error", err.Error()))
	}
	l.logger.Warn("slow ledger query", attrs...)
}
