package storefront

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/RobertEarleCodes/Scrittle/internal/domain"
	apperrors "github.com/RobertEarleCodes/Scrittle/pkg/errors"
)

// DefaultSelection is offered when the buyer presses enter at the shipping
// prompt.
const DefaultSelection = "1"

// Prompt asks for checkout input one line at a time. End of input cancels the
// step being asked.
type Prompt struct {
	in  *bufio.Reader
	out io.Writer
}

// NewPrompt creates a prompt reading answers from in and writing questions to out.
func NewPrompt(in io.Reader, out io.Writer) *Prompt {
	return &Prompt{in: bufio.NewReader(in), out: out}
}

// Postcode asks for the delivery postcode.
func (p *Prompt) Postcode(ctx context.Context) (string, error) {
	return p.ask(ctx, "Enter your UK postcode for shipping calculation: ")
}

// ShippingSelection lists the quoted options and returns the chosen number.
// A blank answer picks DefaultSelection.
func (p *Prompt) ShippingSelection(ctx context.Context, quote *domain.ShippingQuote) (string, error) {
	fmt.Fprintf(p.out, "Shipping options for %s:\n", quote.Postcode)
	for i, opt := range quote.Options {
		fmt.Fprintf(p.out, "  %d. %s - £%s\n", i+1, opt.Name, domain.MajorUnits(opt.Price).StringFixed(2))
	}
	answer, err := p.ask(ctx, fmt.Sprintf("Enter the number of your choice [%s]: ", DefaultSelection))
	if err != nil {
		return "", err
	}
	if answer == "" {
		return DefaultSelection, nil
	}
	return answer, nil
}

// Email asks for the contact email.
func (p *Prompt) Email(ctx context.Context) (string, error) {
	return p.ask(ctx, "Enter your email address: ")
}

// Confirm asks a yes/no question defaulting to yes. End of input answers no.
func (p *Prompt) Confirm(ctx context.Context, question string) (bool, error) {
	answer, err := p.ask(ctx, question)
	if errors.Is(err, apperrors.ErrUserCancelled) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	switch strings.ToLower(answer) {
	case "", "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

func (p *Prompt) ask(ctx context.Context, question string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	fmt.Fprint(p.out, question)
	line, err := p.in.ReadString('\n')
	if errors.Is(err, io.EOF) && line == "" {
		fmt.Fprintln(p.out)
		return "", apperrors.ErrUserCancelled
	}
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimSpace(line), nil
}
