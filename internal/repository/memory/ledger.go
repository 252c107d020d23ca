// Package memory is the default process-local order ledger. Orders do not
// survive a restart.
package memory

import (
	"context"
	"sync"

	"github.com/RobertEarleCodes/Scrittle/internal/domain"
)

// OrderLedger implements repository.OrderLedger with a slice guarded by a
// read/write mutex.
type OrderLedger struct {
	mu     sync.RWMutex
	orders []domain.Order
	index  map[string]int
}

// NewOrderLedger creates an empty ledger.
func NewOrderLedger() *OrderLedger {
	return &OrderLedger{index: make(map[string]int)}
}

// Create appends order unless its id is already present.
func (l *OrderLedger) Create(_ context.Context, order *domain.Order) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.index[order.ID]; ok {
		return domain.DuplicateOrderError(order.ID)
	}
	l.index[order.ID] = len(l.orders)
	l.orders = append(l.orders, *order)
	return nil
}

// GetByID returns a copy of the order.
func (l *OrderLedger) GetByID(_ context.Context, id string) (*domain.Order, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	i, ok := l.index[id]
	if !ok {
		return nil, domain.OrderNotFoundError(id)
	}
	o := l.orders[i]
	return &o, nil
}

// List returns a copy of all orders in insertion order.
func (l *OrderLedger) List(_ context.Context) ([]domain.Order, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]domain.Order, len(l.orders))
	copy(out, l.orders)
	return out, nil
}

// UpdateStatus sets the order status.
func (l *OrderLedger) UpdateStatus(_ context.Context, id, status string) (*domain.Order, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	i, ok := l.index[id]
	if !ok {
		return nil, domain.OrderNotFoundError(id)
	}
	l.orders[i].Status = status
	o := l.orders[i]
	return &o, nil
}

// Len returns the number of orders.
func (l *OrderLedger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.orders)
}
