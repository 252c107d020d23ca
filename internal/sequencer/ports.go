package sequencer

import (
	"context"

	"github.com/RobertEarleCodes/Scrittle/internal/domain"
)

// CartReader reads the cart at checkout entry and clears it after payment
// handoff.
type CartReader interface {
	Items(ctx context.Context) ([]domain.CartItem, error)
	Clear(ctx context.Context) error
}

// CheckoutAPI is the server side of checkout.
type CheckoutAPI interface {
	Quote(ctx context.Context, postcode string) (*domain.ShippingQuote, error)
	CreateSession(ctx context.Context, req *domain.CheckoutRequest) (*domain.SessionHandle, error)
}

// Redirector hands the buyer over to the hosted payment page.
type Redirector interface {
	Redirect(ctx context.Context, handle *domain.SessionHandle) error
}

// InputProvider collects buyer input. An empty postcode or email, or an error
// wrapping apperrors.ErrUserCancelled, means the buyer abandoned the step.
// ShippingSelection returns the 1-based option number as typed.
type InputProvider interface {
	Postcode(ctx context.Context) (string, error)
	ShippingSelection(ctx context.Context, quote *domain.ShippingQuote) (string, error)
	Email(ctx context.Context) (string, error)
}

// Presenter shows errors and toggles the control that started checkout.
type Presenter interface {
	ShowError(ctx context.Context, err error)
	SetControlEnabled(ctx context.Context, enabled bool)
}
