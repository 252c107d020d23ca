package http

import (
	"errors"
	"net/http"

	apperrors "github.com/RobertEarleCodes/Scrittle/pkg/errors"
	"github.com/RobertEarleCodes/Scrittle/pkg/validator"
)

// decodeRequest decodes and validates a JSON body. Malformed JSON becomes an
// INVALID_INPUT error; tag failures stay validator errors.
func decodeRequest(w http.ResponseWriter, r *http.Request, dst any) error {
	err := validator.DecodeAndValidate(w, r, dst)
	if err == nil {
		return nil
	}
	var valErr *validator.ValidationError
	if errors.As(err, &valErr) {
		return err
	}
	return apperrors.InvalidInput("invalid request body")
}
