// Package repository defines the order ledger port. Implementations live in
// the memory and postgres subpackages.
package repository

import (
	"context"

	"github.com/RobertEarleCodes/Scrittle/internal/domain"
)

// OrderLedger records orders keyed by payment session id. Implementations must
// be safe for concurrent use and serialize mutations.
type OrderLedger interface {
	// Create inserts a new order. A duplicate id fails with
	// domain.ErrDuplicateOrder and leaves the existing order untouched.
	Create(ctx context.Context, order *domain.Order) error

	// GetByID returns the order or domain.ErrOrderNotFound.
	GetByID(ctx context.Context, id string) (*domain.Order, error)

	// List returns all orders in insertion order.
	List(ctx context.Context) ([]domain.Order, error)

	// UpdateStatus sets the status and returns the updated order, or
	// domain.ErrOrderNotFound without changing anything.
	UpdateStatus(ctx context.Context, id, status string) (*domain.Order, error)
}
