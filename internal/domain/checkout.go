package domain

// CheckoutRequest is what the client submits to open a payment session.
type CheckoutRequest struct {
	CartItems        []CartItem `json:"cartItems"`
	ShippingMethodID string     `json:"shippingMethod"`
	CustomerEmail    string     `json:"customerEmail"`
	ShippingPostcode string     `json:"shippingPostcode"`
}

// FieldCustomerEmail is the request field validation errors name for the
// buyer's email.
const FieldCustomerEmail = "customerEmail"

// SessionHandle identifies a hosted payment session. URL is empty for
// providers that redirect client-side from the id alone.
type SessionHandle struct {
	SessionID string `json:"sessionId"`
	URL       string `json:"url,omitempty"`
}

// Session metadata keys recorded on every payment session.
const (
	MetadataShippingPostcode = "shippingPostcode"
	MetadataShippingMethod   = "shippingMethod"
	MetadataShopAddress      = "shopAddress"
	MetadataCartItems        = "cartItems"
)
