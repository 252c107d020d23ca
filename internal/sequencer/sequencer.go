// Package sequencer drives a checkout from postcode entry to payment
// handoff. It owns no I/O: buyer input, display and network calls come in
// through ports so interactive prompts and pre-filled forms share one state
// machine.
package sequencer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/RobertEarleCodes/Scrittle/internal/domain"
	apperrors "github.com/RobertEarleCodes/Scrittle/pkg/errors"
)

// State is a checkout step.
type State int

const (
	Idle State = iota
	AwaitingPostcode
	AwaitingShippingSelection
	AwaitingEmail
	CreatingSession
	Redirecting
	Succeeded
	Failed
)

var stateNames = [...]string{
	Idle:                      "idle",
	AwaitingPostcode:          "awaiting_postcode",
	AwaitingShippingSelection: "awaiting_shipping_selection",
	AwaitingEmail:             "awaiting_email",
	CreatingSession:           "creating_session",
	Redirecting:               "redirecting",
	Succeeded:                 "succeeded",
	Failed:                    "failed",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// ErrCheckoutInProgress is returned by Run while another Run is active.
var ErrCheckoutInProgress = errors.New("checkout already in progress")

// InvalidSelectionError reports a shipping choice outside the offered options.
func InvalidSelectionError(choice string) *apperrors.AppError {
	return apperrors.InvalidInput(fmt.Sprintf("Invalid selection %q", choice))
}

// Ports bundles the sequencer's collaborators.
type Ports struct {
	Cart       CartReader
	API        CheckoutAPI
	Redirector Redirector
	Input      InputProvider
	Presenter  Presenter
}

// Sequencer is one buyer's checkout. Accepted input is kept across failed
// runs so a retry resumes at the first step still missing.
type Sequencer struct {
	ports   Ports
	logger  *slog.Logger
	running atomic.Bool

	mu        sync.Mutex
	state     State
	lastErr   error
	postcode  string
	quote     *domain.ShippingQuote
	selection *domain.ShippingMethod
	email     string
}

// New creates a sequencer in the Idle state.
func New(ports Ports, logger *slog.Logger) *Sequencer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sequencer{ports: ports, logger: logger}
}

// State returns the current step.
func (s *Sequencer) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Err returns the error that ended or parked the last run.
func (s *Sequencer) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// Postcode returns the accepted, normalized postcode.
func (s *Sequencer) Postcode() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.postcode
}

// Selection returns the accepted shipping method, if any.
func (s *Sequencer) Selection() *domain.ShippingMethod {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selection
}

// Reset discards accepted input and returns to Idle.
func (s *Sequencer) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resetLocked()
	s.state = Idle
}

func (s *Sequencer) resetLocked() {
	s.lastErr = nil
	s.postcode = ""
	s.quote = nil
	s.selection = nil
	s.email = ""
}

// Run walks the checkout from the first step without accepted input to the
// payment handoff. Only one Run may be active per sequencer.
func (s *Sequencer) Run(ctx context.Context) (*domain.SessionHandle, error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, ErrCheckoutInProgress
	}
	defer s.running.Store(false)

	items, err := s.ports.Cart.Items(ctx)
	if err != nil {
		return nil, s.fail(ctx, fmt.Errorf("read cart: %w", err))
	}
	if len(items) == 0 {
		return nil, s.fail(ctx, domain.EmptyCartError())
	}

	s.setState(ctx, s.resumePoint())

	for {
		switch s.State() {
		case AwaitingPostcode:
			if err := s.collectPostcode(ctx); err != nil {
				return nil, s.fail(ctx, err)
			}
		case AwaitingShippingSelection:
			if err := s.collectSelection(ctx); err != nil {
				return nil, s.fail(ctx, err)
			}
		case AwaitingEmail:
			if err := s.collectEmail(ctx); err != nil {
				return nil, s.fail(ctx, err)
			}
		case CreatingSession:
			return s.createAndRedirect(ctx, items)
		default:
			return nil, fmt.Errorf("checkout in unexpected state %s", s.State())
		}
	}
}

func (s *Sequencer) resumePoint() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case s.quote == nil:
		return AwaitingPostcode
	case s.selection == nil:
		return AwaitingShippingSelection
	case s.email == "":
		return AwaitingEmail
	default:
		return CreatingSession
	}
}

// collectPostcode asks until the quoter accepts a postcode. Quote errors are
// shown and the step is asked again.
func (s *Sequencer) collectPostcode(ctx context.Context) error {
	for {
		postcode, err := s.ask(ctx, "postcode", false, s.ports.Input.Postcode)
		if err != nil {
			return err
		}
		quote, err := s.ports.API.Quote(ctx, postcode)
		if err != nil {
			if ctx.Err() != nil {
				return apperrors.UserCancelled("postcode")
			}
			s.logger.InfoContext(ctx, "shipping quote rejected", slog.String("error", err.Error()))
			s.ports.Presenter.ShowError(ctx, err)
			continue
		}

		s.mu.Lock()
		s.postcode = quote.Postcode
		s.quote = quote
		s.selection = nil
		s.mu.Unlock()
		s.setState(ctx, AwaitingShippingSelection)
		return nil
	}
}

func (s *Sequencer) collectSelection(ctx context.Context) error {
	s.mu.Lock()
	quote := s.quote
	s.mu.Unlock()

	for {
		choice, err := s.ask(ctx, "shipping selection", true, func(ctx context.Context) (string, error) {
			return s.ports.Input.ShippingSelection(ctx, quote)
		})
		if err != nil {
			return err
		}
		n, convErr := strconv.Atoi(strings.TrimSpace(choice))
		if convErr != nil || n < 1 || n > len(quote.Options) {
			s.ports.Presenter.ShowError(ctx, InvalidSelectionError(choice))
			continue
		}

		method := quote.Options[n-1]
		s.mu.Lock()
		s.selection = &method
		s.mu.Unlock()
		s.setState(ctx, s.resumePoint())
		return nil
	}
}

func (s *Sequencer) collectEmail(ctx context.Context) error {
	email, err := s.ask(ctx, "email", false, s.ports.Input.Email)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.email = email
	s.mu.Unlock()
	s.setState(ctx, CreatingSession)
	return nil
}

// ask reads one input. Cancelled contexts, and blank answers unless
// allowBlank, are treated as the buyer abandoning the step.
func (s *Sequencer) ask(ctx context.Context, step string, allowBlank bool, read func(context.Context) (string, error)) (string, error) {
	if ctx.Err() != nil {
		return "", apperrors.UserCancelled(step)
	}
	value, err := read(ctx)
	switch {
	case errors.Is(err, apperrors.ErrUserCancelled), ctx.Err() != nil:
		return "", apperrors.UserCancelled(step)
	case err != nil:
		return "", fmt.Errorf("read %s: %w", step, err)
	}
	value = strings.TrimSpace(value)
	if value == "" && !allowBlank {
		return "", apperrors.UserCancelled(step)
	}
	return value, nil
}

func (s *Sequencer) createAndRedirect(ctx context.Context, items []domain.CartItem) (*domain.SessionHandle, error) {
	s.mu.Lock()
	req := &domain.CheckoutRequest{
		CartItems:        items,
		ShippingMethodID: s.selection.ID,
		CustomerEmail:    s.email,
		ShippingPostcode: s.postcode,
	}
	s.mu.Unlock()

	s.ports.Presenter.SetControlEnabled(ctx, false)
	handle, err := s.ports.API.CreateSession(ctx, req)
	if err != nil {
		// Parked: the next run resumes at the rejected step, or retries
		// session creation without re-asking.
		s.mu.Lock()
		s.lastErr = err
		s.discardRejectedLocked(err)
		s.mu.Unlock()
		s.setState(ctx, s.resumePoint())
		s.logger.WarnContext(ctx, "checkout session creation failed", slog.String("error", err.Error()))
		s.ports.Presenter.SetControlEnabled(ctx, true)
		s.ports.Presenter.ShowError(ctx, err)
		return nil, err
	}

	s.setState(ctx, Redirecting)
	if err := s.ports.Redirector.Redirect(ctx, handle); err != nil {
		if !errors.Is(err, apperrors.ErrPaymentProvider) {
			err = apperrors.PaymentProvider(err.Error(), err)
		}
		s.ports.Presenter.SetControlEnabled(ctx, true)
		return nil, s.fail(ctx, err)
	}

	if err := s.ports.Cart.Clear(ctx); err != nil {
		s.logger.WarnContext(ctx, "failed to clear cart after checkout", slog.String("error", err.Error()))
	}

	s.mu.Lock()
	s.resetLocked()
	s.mu.Unlock()
	s.setState(ctx, Succeeded)
	s.logger.InfoContext(ctx, "checkout handed off to payment provider",
		slog.String("session_id", handle.SessionID),
	)
	return handle, nil
}

// discardRejectedLocked drops the accepted input a builder rejection names.
// Anything else is kept for a plain retry.
func (s *Sequencer) discardRejectedLocked(err error) {
	var appErr *apperrors.AppError
	if !errors.Is(err, apperrors.ErrInvalidInput) || !errors.As(err, &appErr) {
		return
	}
	switch {
	case appErr.Code == domain.CodeInvalidPostcode:
		s.postcode = ""
		s.quote = nil
		s.selection = nil
	case appErr.Code == domain.CodeInvalidShippingMethod:
		s.selection = nil
	case appErr.HasField(domain.FieldCustomerEmail):
		s.email = ""
	}
}

// Retryable reports whether another Run could get further: the last run
// parked on a builder error or failed handing off to the payment provider.
func (s *Sequencer) Retryable() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.state {
	case Idle, Succeeded:
		return false
	case Failed:
		return errors.Is(s.lastErr, apperrors.ErrPaymentProvider)
	default:
		return s.lastErr != nil
	}
}

// fail ends the run in Failed. Accepted input is kept.
func (s *Sequencer) fail(ctx context.Context, err error) error {
	s.mu.Lock()
	s.lastErr = err
	s.mu.Unlock()
	s.setState(ctx, Failed)
	s.ports.Presenter.ShowError(ctx, err)
	return err
}

func (s *Sequencer) setState(ctx context.Context, next State) {
	s.mu.Lock()
	prev := s.state
	s.state = next
	s.mu.Unlock()
	if prev != next {
		s.logger.DebugContext(ctx, "checkout state changed",
			slog.String("from", prev.String()),
			slog.String("to", next.String()),
		)
	}
}
