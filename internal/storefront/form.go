package storefront

import (
	"context"
	"strconv"

	"github.com/RobertEarleCodes/Scrittle/internal/domain"
	apperrors "github.com/RobertEarleCodes/Scrittle/pkg/errors"
)

// Form supplies checkout input filled in up front. Each field is handed out
// once; a step asked again after its value was rejected is cancelled, since
// a submitted form cannot be corrected in place.
type Form struct {
	PostcodeValue string
	// ShippingValue is an option number or a shipping method id.
	ShippingValue string
	EmailValue    string

	asked map[string]bool
}

// NewForm creates a form adapter.
func NewForm(postcode, shipping, email string) *Form {
	return &Form{PostcodeValue: postcode, ShippingValue: shipping, EmailValue: email}
}

// Postcode returns the form's postcode the first time it is asked.
func (f *Form) Postcode(_ context.Context) (string, error) {
	return f.once("postcode", f.PostcodeValue)
}

// ShippingSelection maps the form's method id to its option number in quote.
// Anything else is returned as typed for the sequencer to validate.
func (f *Form) ShippingSelection(_ context.Context, quote *domain.ShippingQuote) (string, error) {
	value, err := f.once("shipping", f.ShippingValue)
	if err != nil {
		return "", err
	}
	for i, opt := range quote.Options {
		if opt.ID == value {
			return strconv.Itoa(i + 1), nil
		}
	}
	return value, nil
}

// Email returns the form's email the first time it is asked.
func (f *Form) Email(_ context.Context) (string, error) {
	return f.once("email", f.EmailValue)
}

func (f *Form) once(field, value string) (string, error) {
	if f.asked == nil {
		f.asked = make(map[string]bool)
	}
	if f.asked[field] {
		return "", apperrors.ErrUserCancelled
	}
	f.asked[field] = true
	return value, nil
}
