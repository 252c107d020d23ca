package domain

import (
	"fmt"
	"net/http"

	apperrors "github.com/RobertEarleCodes/Scrittle/pkg/errors"
)

// Domain-specific sentinels. Each wraps its category sentinel so both
// errors.Is(err, ErrInvalidPostcode) and errors.Is(err, apperrors.ErrInvalidInput)
// hold.
var (
	ErrInvalidPostcode       = fmt.Errorf("invalid postcode: %w", apperrors.ErrInvalidInput)
	ErrInvalidShippingMethod = fmt.Errorf("invalid shipping method: %w", apperrors.ErrInvalidInput)
	ErrEmptyCart             = fmt.Errorf("empty cart: %w", apperrors.ErrInvalidInput)
	ErrInvalidCartItem       = fmt.Errorf("invalid cart item: %w", apperrors.ErrInvalidInput)
	ErrInvalidStatus         = fmt.Errorf("invalid order status: %w", apperrors.ErrInvalidInput)
	ErrInvalidTransition     = fmt.Errorf("invalid status transition: %w", apperrors.ErrConflict)
	ErrDuplicateOrder        = fmt.Errorf("duplicate order: %w", apperrors.ErrAlreadyExists)
	ErrOrderNotFound         = fmt.Errorf("order: %w", apperrors.ErrNotFound)
)

// Error codes the checkout client routes on.
const (
	CodeInvalidPostcode       = "INVALID_POSTCODE"
	CodeInvalidShippingMethod = "INVALID_SHIPPING_METHOD"
)

// InvalidPostcodeError reports a postcode that does not look like a UK postcode.
func InvalidPostcodeError(postcode string) *apperrors.AppError {
	return &apperrors.AppError{
		Code:    CodeInvalidPostcode,
		Message: "Invalid UK postcode",
		Status:  http.StatusBadRequest,
		Err:     fmt.Errorf("%q: %w", postcode, ErrInvalidPostcode),
	}
}

// InvalidShippingMethodError reports a shipping method id missing from the catalog.
func InvalidShippingMethodError(id string) *apperrors.AppError {
	return &apperrors.AppError{
		Code:    CodeInvalidShippingMethod,
		Message: "Invalid shipping method",
		Status:  http.StatusBadRequest,
		Err:     fmt.Errorf("%q: %w", id, ErrInvalidShippingMethod),
	}
}

// EmptyCartError reports a checkout attempted with nothing in the cart.
func EmptyCartError() *apperrors.AppError {
	return &apperrors.AppError{
		Code:    "EMPTY_CART",
		Message: "Your cart is empty",
		Status:  http.StatusBadRequest,
		Err:     ErrEmptyCart,
	}
}

// InvalidCartItemError reports a cart line that breaks the item invariants.
func InvalidCartItemError(reason string) *apperrors.AppError {
	return &apperrors.AppError{
		Code:    "INVALID_CART_ITEM",
		Message: reason,
		Status:  http.StatusBadRequest,
		Err:     ErrInvalidCartItem,
	}
}

// InvalidStatusError reports an order status outside the known set.
func InvalidStatusError(status string) *apperrors.AppError {
	return &apperrors.AppError{
		Code:    "INVALID_STATUS",
		Message: fmt.Sprintf("Invalid order status %q", status),
		Status:  http.StatusBadRequest,
		Err:     ErrInvalidStatus,
	}
}

// InvalidTransitionError reports a status change the order lifecycle forbids.
func InvalidTransitionError(from, to string) *apperrors.AppError {
	return &apperrors.AppError{
		Code:    "INVALID_STATUS_TRANSITION",
		Message: fmt.Sprintf("Cannot change order status from %s to %s", from, to),
		Status:  http.StatusConflict,
		Err:     ErrInvalidTransition,
	}
}

// DuplicateOrderError reports a second insert for an existing order id.
func DuplicateOrderError(id string) *apperrors.AppError {
	return &apperrors.AppError{
		Code:    "DUPLICATE_ORDER",
		Message: fmt.Sprintf("Order %s already exists", id),
		Status:  http.StatusConflict,
		Err:     ErrDuplicateOrder,
	}
}

// OrderNotFoundError reports an unknown order id.
func OrderNotFoundError(id string) *apperrors.AppError {
	return &apperrors.AppError{
		Code:    "NOT_FOUND",
		Message: "Order not found",
		Status:  http.StatusNotFound,
		Err:     fmt.Errorf("%q: %w", id, ErrOrderNotFound),
	}
}
