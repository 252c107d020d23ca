package domain

import (
	"slices"
	"time"
)

// Order status constants.
const (
	OrderStatusPending   = "pending"
	OrderStatusPaid      = "paid"
	OrderStatusFulfilled = "fulfilled"
	OrderStatusCancelled = "cancelled"
)

// Order is a ledger entry keyed by the payment session id.
type Order struct {
	ID               string    `json:"id"`
	Email            string    `json:"email"`
	Postcode         string    `json:"postcode"`
	ShippingMethodID string    `json:"shippingMethod"`
	Amount           int64     `json:"amount"`
	CreatedAt        time.Time `json:"date"`
	Status           string    `json:"status"`
}

// ValidStatuses returns all valid order statuses.
func ValidStatuses() []string {
	return []string{
		OrderStatusPending,
		OrderStatusPaid,
		OrderStatusFulfilled,
		OrderStatusCancelled,
	}
}

// IsValidStatus checks if a status string is valid.
func IsValidStatus(status string) bool {
	return slices.Contains(ValidStatuses(), status)
}

// AllowedTransitions defines which status transitions are valid.
func AllowedTransitions() map[string][]string {
	return map[string][]string{
		OrderStatusPending:   {OrderStatusPaid, OrderStatusCancelled},
		OrderStatusPaid:      {OrderStatusFulfilled, OrderStatusCancelled},
		OrderStatusFulfilled: {},
		OrderStatusCancelled: {},
	}
}

// CanTransitionTo checks if the order can move to target. Re-applying the
// current status is allowed so replayed updates stay harmless.
func (o *Order) CanTransitionTo(target string) bool {
	if o.Status == target {
		return IsValidStatus(target)
	}
	return slices.Contains(AllowedTransitions()[o.Status], target)
}
