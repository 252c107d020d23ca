package storefront

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/RobertEarleCodes/Scrittle/internal/domain"
	apperrors "github.com/RobertEarleCodes/Scrittle/pkg/errors"
)

// Message returns the text to show the buyer for err: the server's own
// message when there is one.
func Message(err error) string {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return err.Error()
}

// Presenter writes checkout feedback to a terminal.
type Presenter struct {
	out io.Writer
}

// NewPresenter creates a presenter writing to out.
func NewPresenter(out io.Writer) *Presenter {
	return &Presenter{out: out}
}

// ShowError prints err as a single line, with cancellation and payment
// failures worded for the buyer.
func (p *Presenter) ShowError(_ context.Context, err error) {
	switch {
	case errors.Is(err, apperrors.ErrUserCancelled):
		fmt.Fprintln(p.out, "Checkout cancelled.")
	case errors.Is(err, apperrors.ErrPaymentProvider):
		fmt.Fprintf(p.out, "Payment error: %s\n", Message(err))
	default:
		fmt.Fprintf(p.out, "Error: %s\n", Message(err))
	}
}

// SetControlEnabled prints a progress line while a request is in flight.
func (p *Presenter) SetControlEnabled(_ context.Context, enabled bool) {
	if !enabled {
		fmt.Fprintln(p.out, "Processing...")
	}
}

// Redirector hands off to the hosted payment page by printing its URL for
// the buyer to open.
type Redirector struct {
	out       io.Writer
	publicKey string
}

// NewRedirector creates a redirector. publicKey is the provider's
// publishable key fetched at startup.
func NewRedirector(out io.Writer, publicKey string) *Redirector {
	return &Redirector{out: out, publicKey: publicKey}
}

// Redirect prints the hosted checkout URL. It fails without a publishable
// key or when the provider returned no page for the session.
func (r *Redirector) Redirect(_ context.Context, handle *domain.SessionHandle) error {
	if r.publicKey == "" {
		return apperrors.Configuration("Payment system is not configured")
	}
	if handle.URL == "" {
		return apperrors.PaymentProvider(fmt.Sprintf("No checkout page for session %s", handle.SessionID), nil)
	}
	fmt.Fprintf(r.out, "Complete your payment at:\n  %s\n", handle.URL)
	return nil
}
