// Package postgres is the durable order ledger backed by PostgreSQL.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/RobertEarleCodes/Scrittle/internal/domain"
	"github.com/RobertEarleCodes/Scrittle/pkg/database"
)

const orderColumns = "id, email, postcode, shipping_method, amount, status, created_at"

// OrderLedger implements repository.OrderLedger using PostgreSQL. Each
// operation is a single statement, so row locks serialize concurrent writers.
type OrderLedger struct {
	db database.DBTX

	slowQuery time.Duration
	logger    *slog.Logger
}

// NewOrderLedger creates a new PostgreSQL-backed order ledger. Every
// statement is traced as a ledger.<operation> span.
func NewOrderLedger(db database.DBTX, opts ...Option) *OrderLedger {
	l := &OrderLedger{db: db}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Create inserts an order. A primary key violation becomes DuplicateOrderError.
func (l *OrderLedger) Create(ctx context.Context, o *domain.Order) (err error) {
	query := `
		INSERT INTO orders (id, email, postcode, shipping_method, amount, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	ctx, span := l.trace(ctx, "CreateOrder", query, o.ID)
	span.status(o.Status)
	defer func() { span.end(err) }()

	_, err = l.db.Exec(ctx, query,
		o.ID,
		o.Email,
		o.Postcode,
		o.ShippingMethodID,
		o.Amount,
		o.Status,
		o.CreatedAt,
	)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return domain.DuplicateOrderError(o.ID)
		}
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

// GetByID retrieves an order by its ID.
func (l *OrderLedger) GetByID(ctx context.Context, id string) (o *domain.Order, err error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	ctx, span := l.trace(ctx, "GetOrder", query, id)
	defer func() { span.end(err) }()

	o, err = scanOrder(l.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.OrderNotFoundError(id)
		}
		return nil, fmt.Errorf("get order: %w", err)
	}
	span.status(o.Status)
	return o, nil
}

// List returns all orders in insertion order.
func (l *OrderLedger) List(ctx context.Context) (orders []domain.Order, err error) {
	query := `SELECT ` + orderColumns + ` FROM orders ORDER BY seq ASC`

	ctx, span := l.trace(ctx, "ListOrders", query, "")
	defer func() { span.end(err) }()

	rows, err := l.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	orders = make([]domain.Order, 0)
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate orders: %w", err)
	}
	span.rows(len(orders))
	return orders, nil
}

// UpdateStatus sets the status and returns the updated row.
func (l *OrderLedger) UpdateStatus(ctx context.Context, id, status string) (o *domain.Order, err error) {
	query := `
		UPDATE orders SET status = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + orderColumns

	ctx, span := l.trace(ctx, "UpdateOrderStatus", query, id)
	span.status(status)
	defer func() { span.end(err) }()

	o, err = scanOrder(l.db.QueryRow(ctx, query, id, status))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.OrderNotFoundError(id)
		}
		return nil, fmt.Errorf("update order status: %w", err)
	}
	return o, nil
}

func scanOrder(row pgx.Row) (*domain.Order, error) {
	var o domain.Order
	if err := row.Scan(
		&o.ID,
		&o.Email,
		&o.Postcode,
		&o.ShippingMethodID,
		&o.Amount,
		&o.Status,
		&o.CreatedAt,
	); err != nil {
		return nil, err
	}
	o.CreatedAt = o.CreatedAt.UTC()
	return &o, nil
}
