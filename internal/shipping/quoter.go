// Package shipping validates UK postcodes and quotes the fixed Royal Mail
// Special Delivery catalog.
package shipping

import (
	"regexp"
	"strings"

	"github.com/RobertEarleCodes/Scrittle/internal/domain"
	apperrors "github.com/RobertEarleCodes/Scrittle/pkg/errors"
)

var postcodePattern = regexp.MustCompile(`(?i)^[A-Z]{1,2}\d{1,2}[A-Z]?\s?\d[A-Z]{2}$`)

// DefaultCatalog is the Royal Mail rate table, in the order it is offered.
// Prices do not vary by destination.
var DefaultCatalog = []domain.ShippingMethod{
	{ID: "special_delivery_guaranteed_by_9am", Name: "Special Delivery Guaranteed by 9am (£0.50)", Price: 50},
	{ID: "special_delivery_guaranteed_by_1pm", Name: "Special Delivery Guaranteed by 1pm (£0.50)", Price: 50},
	{ID: "special_delivery_guaranteed_next_working_day", Name: "Special Delivery Next Working Day (£0.50)", Price: 50},
	{ID: "royal_mail_special_delivery_saturday", Name: "Special Delivery Saturday Guarantee (£0.50)", Price: 50},
}

// Quoter looks up shipping options. It holds no mutable state.
type Quoter struct {
	catalog []domain.ShippingMethod
	byID    map[string]domain.ShippingMethod
}

// NewQuoter creates a quoter over catalog. A nil catalog uses DefaultCatalog.
func NewQuoter(catalog []domain.ShippingMethod) *Quoter {
	if catalog == nil {
		catalog = DefaultCatalog
	}
	byID := make(map[string]domain.ShippingMethod, len(catalog))
	for _, m := range catalog {
		byID[m.ID] = m
	}
	return &Quoter{catalog: catalog, byID: byID}
}

// ValidatePostcode returns the trimmed, upper-cased postcode, a
// MissingField error for blank input, or an InvalidPostcode error.
func ValidatePostcode(postcode string) (string, error) {
	p := strings.TrimSpace(postcode)
	if p == "" {
		return "", apperrors.MissingField("Postcode")
	}
	if !postcodePattern.MatchString(p) {
		return "", domain.InvalidPostcodeError(postcode)
	}
	return strings.ToUpper(p), nil
}

// Quote validates postcode and returns every catalog entry.
func (q *Quoter) Quote(postcode string) (*domain.ShippingQuote, error) {
	normalized, err := ValidatePostcode(postcode)
	if err != nil {
		return nil, err
	}
	return &domain.ShippingQuote{
		Postcode: normalized,
		Options:  q.Methods(),
	}, nil
}

// Lookup resolves a shipping method id.
func (q *Quoter) Lookup(id string) (domain.ShippingMethod, error) {
	m, ok := q.byID[id]
	if !ok {
		return domain.ShippingMethod{}, domain.InvalidShippingMethodError(id)
	}
	return m, nil
}

// Methods returns a copy of the catalog.
func (q *Quoter) Methods() []domain.ShippingMethod {
	out := make([]domain.ShippingMethod, len(q.catalog))
	copy(out, q.catalog)
	return out
}
