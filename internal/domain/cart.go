package domain

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// The storefront sells a single product.
const (
	ProductID          = "pickup_edge_hangboard"
	ProductName        = "Pickup Edge Hangboard"
	ProductDescription = "Premium grip training equipment"
	ProductPrice int64 = 3500
	Currency           = "gbp"
)

// ShopAddress is the dispatch address recorded with every checkout session.
type ShopAddress struct {
	Street   string `json:"street"`
	City     string `json:"city"`
	Postcode string `json:"postcode"`
	Country  string `json:"country"`
}

// Shop is the storefront's dispatch address.
var Shop = ShopAddress{
	Street:   "47 Clementson Road",
	City:     "Sheffield",
	Postcode: "S13 9AQ",
	Country:  "GB",
}

var minorUnitsPerMajor = decimal.NewFromInt(100)

// CartItem is one line in the client cart. Adding the same product twice
// produces two lines.
type CartItem struct {
	ProductID string          `json:"id"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
}

// MarshalJSON writes the price as a JSON number, e.g. 35 or 35.5, the way
// cart blobs and session metadata store it.
func (i CartItem) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		ProductID string      `json:"id"`
		Name      string      `json:"name"`
		UnitPrice json.Number `json:"price"`
		Quantity  int         `json:"quantity"`
	}{i.ProductID, i.Name, json.Number(i.UnitPrice.String()), i.Quantity})
}

// NewProductItem returns a cart line for the storefront product at its list price.
func NewProductItem(quantity int) CartItem {
	return CartItem{
		ProductID: ProductID,
		Name:      ProductName,
		UnitPrice: MajorUnits(ProductPrice),
		Quantity:  quantity,
	}
}

// Validate checks the item invariants: a product id, quantity >= 1 and a
// non-negative price.
func (i CartItem) Validate() error {
	switch {
	case i.ProductID == "":
		return InvalidCartItemError("Cart item id is required")
	case i.Quantity < 1:
		return InvalidCartItemError("Cart item quantity must be at least 1")
	case i.UnitPrice.IsNegative():
		return InvalidCartItemError("Cart item price must not be negative")
	}
	return nil
}

// MinorUnits returns the unit price in pence, rounded half away from zero.
func (i CartItem) MinorUnits() int64 {
	return i.UnitPrice.Mul(minorUnitsPerMajor).Round(0).IntPart()
}

// LineTotal returns unit price times quantity in pence.
func (i CartItem) LineTotal() int64 {
	return i.MinorUnits() * int64(i.Quantity)
}

// MajorUnits converts pence to a pounds decimal.
func MajorUnits(minor int64) decimal.Decimal {
	return decimal.New(minor, -2)
}
