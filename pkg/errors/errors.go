package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors. Every AppError wraps one of these so callers classify
// failures with errors.Is regardless of the concrete message.
var (
	ErrNotFound        = errors.New("resource not found")
	ErrAlreadyExists   = errors.New("resource already exists")
	ErrInvalidInput    = errors.New("invalid input")
	ErrInternal        = errors.New("internal error")
	ErrConflict        = errors.New("conflict")
	ErrServiceUnavail  = errors.New("service unavailable")
	ErrPaymentProvider = errors.New("payment provider error")
	ErrConfiguration   = errors.New("configuration error")
	ErrUserCancelled   = errors.New("cancelled by user")
)

// AppError represents a structured application error with HTTP status mapping.
type AppError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	// Fields names the rejected inputs of a validation failure.
	Fields map[string]string `json:"fields,omitempty"`
	Status int               `json:"-"`
	Err    error             `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// HasField reports whether field was one of the rejected inputs.
func (e *AppError) HasField(field string) bool {
	_, ok := e.Fields[field]
	return ok
}

// InvalidInput creates a 400 error.
func InvalidInput(message string) *AppError {
	return &AppError{
		Code:    "INVALID_INPUT",
		Message: message,
		Status:  http.StatusBadRequest,
		Err:     ErrInvalidInput,
	}
}

// MissingField creates a 400 error for a required value that was empty.
func MissingField(field string) *AppError {
	return &AppError{
		Code:    "MISSING_FIELD",
		Message: fmt.Sprintf("%s is required", field),
		Status:  http.StatusBadRequest,
		Err:     ErrInvalidInput,
	}
}

// PaymentProvider creates a 500 error carrying the provider's message verbatim.
func PaymentProvider(message string, cause error) *AppError {
	err := ErrPaymentProvider
	if cause != nil {
		err = fmt.Errorf("%w: %w", ErrPaymentProvider, cause)
	}
	return &AppError{
		Code:    "PAYMENT_PROVIDER_ERROR",
		Message: message,
		Status:  http.StatusInternalServerError,
		Err:     err,
	}
}

// Configuration creates a 500 error for missing or placeholder configuration.
func Configuration(message string) *AppError {
	return &AppError{
		Code:    "CONFIGURATION_ERROR",
		Message: message,
		Status:  http.StatusInternalServerError,
		Err:     ErrConfiguration,
	}
}

// UserCancelled creates an error for a flow the user abandoned.
func UserCancelled(step string) *AppError {
	return &AppError{
		Code:    "USER_CANCELLED",
		Message: fmt.Sprintf("checkout cancelled at %s", step),
		Status:  499,
		Err:     ErrUserCancelled,
	}
}

// ServiceUnavailable creates a 503 error.
func ServiceUnavailable(message string) *AppError {
	return &AppError{
		Code:    "SERVICE_UNAVAILABLE",
		Message: message,
		Status:  http.StatusServiceUnavailable,
		Err:     ErrServiceUnavail,
	}
}

// Internal creates a 500 error.
func Internal(err error) *AppError {
	return &AppError{
		Code:    "INTERNAL_ERROR",
		Message: "an internal error occurred",
		Status:  http.StatusInternalServerError,
		Err:     err,
	}
}

// HTTPStatus returns the HTTP status code for the given error.
func HTTPStatus(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Status
	}

	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrAlreadyExists), errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, ErrServiceUnavail):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
