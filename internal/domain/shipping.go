package domain

// ShippingMethod is an immutable catalog entry. Price is in pence.
type ShippingMethod struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Price int64  `json:"price"`
}

// ShippingQuote lists every shipping method available to a postcode, in
// catalog order.
type ShippingQuote struct {
	Postcode string           `json:"postcode"`
	Options  []ShippingMethod `json:"shippingOptions"`
}
