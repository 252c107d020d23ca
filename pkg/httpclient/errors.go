package httpclient

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	apperrors "github.com/RobertEarleCodes/Scrittle/pkg/errors"
)

// remoteError mirrors httputil.ErrorResponse as written by the storefront API.
type remoteError struct {
	Error  *string           `json:"error"`
	Code   string            `json:"code"`
	Fields map[string]string `json:"fields"`
}

// ParseResponseError reads the body of a non-2xx HTTP response and rebuilds
// the AppError the server produced, keeping its code and message verbatim so
// callers can classify it with errors.Is and show the message to the buyer.
// Validation field names are kept so callers can tell which input was refused.
// Bodies that are not in the {error, code} shape become a plain error naming
// serviceName and the status. The body is consumed and closed.
func ParseResponseError(resp *http.Response, serviceName string) error {
	defer func() { _ = resp.Body.Close() }()

	bodyBytes, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("%s returned status %d (failed to read body: %w)", serviceName, resp.StatusCode, err)
	}

	var remote remoteError
	if json.Unmarshal(bodyBytes, &remote) == nil && remote.Error != nil {
		appErr := mapRemoteError(resp.StatusCode, remote.Code, *remote.Error)
		appErr.Fields = remote.Fields
		return appErr
	}

	return fmt.Errorf("%s returned status %d: %s", serviceName, resp.StatusCode, string(bodyBytes))
}

func mapRemoteError(status int, code, message string) *apperrors.AppError {
	var sentinel error
	switch {
	case status == http.StatusNotFound:
		sentinel = apperrors.ErrNotFound
	case status == http.StatusConflict && code == "ALREADY_EXISTS":
		sentinel = apperrors.ErrAlreadyExists
	case status == http.StatusConflict:
		sentinel = apperrors.ErrConflict
	case IsClientError(status):
		sentinel = apperrors.ErrInvalidInput
	case status == http.StatusServiceUnavailable:
		sentinel = apperrors.ErrServiceUnavail
	case code == "PAYMENT_PROVIDER_ERROR":
		sentinel = apperrors.ErrPaymentProvider
	case code == "CONFIGURATION_ERROR":
		sentinel = apperrors.ErrConfiguration
	default:
		sentinel = apperrors.ErrInternal
	}

	if code == "" {
		code = http.StatusText(status)
	}
	return &apperrors.AppError{
		Code:    code,
		Message: message,
		Status:  status,
		Err:     sentinel,
	}
}

// IsClientError returns true if the HTTP status code is a 4xx client error.
func IsClientError(status int) bool {
	return status >= 400 && status < 500
}
