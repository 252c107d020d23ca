// Command storefront is a terminal client for the Pickup Edge storefront:
// it keeps a local cart and walks the buyer through checkout.
//
// Usage:
//
//	storefront add [-quantity n]
//	storefront list
//	storefront remove <n>
//	storefront clear
//	storefront checkout [-postcode p -shipping s -email e]
//	storefront orders
//	storefront order-status <order-id> <status>
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/RobertEarleCodes/Scrittle/internal/cart"
	"github.com/RobertEarleCodes/Scrittle/internal/domain"
	"github.com/RobertEarleCodes/Scrittle/internal/sequencer"
	"github.com/RobertEarleCodes/Scrittle/internal/storefront"
	"github.com/RobertEarleCodes/Scrittle/pkg/logger"
)

const usage = `usage: storefront <command> [arguments]

commands:
  add [-quantity n]                         add the hangboard to the cart
  list                                      show the cart
  remove <n>                                remove line n from the cart
  clear                                     empty the cart
  checkout [-postcode -shipping -email]     check out the cart
  orders                                    list recorded orders
  order-status <order-id> <status>          change an order's status
`

var (
	errUsage = errors.New("invalid usage")
	// errReported marks failures already shown to the buyer.
	errReported = errors.New("reported")
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		if !errors.Is(err, errUsage) && !errors.Is(err, errReported) {
			fmt.Fprintf(os.Stderr, "storefront: %s\n", storefront.Message(err))
		}
		os.Exit(1)
	}
}

type cli struct {
	cfg    *storefront.Config
	log    *slog.Logger
	store  *cart.Store
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	if len(args) == 0 {
		fmt.Fprint(stderr, usage)
		return errUsage
	}

	cfg, err := storefront.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log := logger.NewWithWriter("storefront-cli", cfg.LogLevel, stderr)

	store, closeCart, err := storefront.OpenCart(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeCart(); err != nil {
			log.Warn("failed to close cart backend", slog.String("error", err.Error()))
		}
	}()

	c := &cli{cfg: cfg, log: log, store: store, stdin: stdin, stdout: stdout, stderr: stderr}

	cmd, rest := args[0], args[1:]
	switch cmd {
	case "add":
		return c.add(ctx, rest)
	case "list":
		return c.list(ctx)
	case "remove":
		return c.remove(ctx, rest)
	case "clear":
		return c.store.Clear(ctx)
	case "checkout":
		return c.checkout(ctx, rest)
	case "orders":
		return c.orders(ctx)
	case "order-status":
		return c.orderStatus(ctx, rest)
	default:
		fmt.Fprintf(stderr, "unknown command %q\n\n%s", cmd, usage)
		return errUsage
	}
}

func (c *cli) flags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	return fs
}

func (c *cli) add(ctx context.Context, args []string) error {
	fs := c.flags("add")
	quantity := fs.Int("quantity", 1, "number of hangboards")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if err := c.store.Add(ctx, domain.NewProductItem(*quantity)); err != nil {
		return err
	}
	fmt.Fprintf(c.stdout, "Added %s to cart!\n", domain.ProductName)
	return nil
}

func (c *cli) list(ctx context.Context) error {
	items, err := c.store.List(ctx)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		fmt.Fprintln(c.stdout, "Your cart is empty.")
		return nil
	}
	for i, it := range items {
		fmt.Fprintf(c.stdout, "%d. %s x%d  £%s\n", i+1, it.Name, it.Quantity,
			domain.MajorUnits(it.LineTotal()).StringFixed(2))
	}
	fmt.Fprintf(c.stdout, "Subtotal: £%s\n", domain.MajorUnits(cart.Subtotal(items)).StringFixed(2))
	return nil
}

func (c *cli) remove(ctx context.Context, args []string) error {
	if len(args) != 1 {
		fmt.Fprintln(c.stderr, "usage: storefront remove <n>")
		return errUsage
	}
	n, err := strconv.Atoi(args[0])
	if err != nil {
		fmt.Fprintf(c.stderr, "line number must be an integer, got %q\n", args[0])
		return errUsage
	}
	return c.store.Remove(ctx, n-1)
}

func (c *cli) checkout(ctx context.Context, args []string) error {
	fs := c.flags("checkout")
	postcode := fs.String("postcode", "", "UK delivery postcode")
	shippingMethod := fs.String("shipping", "", "shipping option number or method id")
	email := fs.String("email", "", "contact email")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}

	client := storefront.NewClient(c.cfg.APIURL, c.cfg.Timeout(), c.log)
	publicKey, err := client.PublicKey(ctx)
	if err != nil {
		return err
	}

	prompt := storefront.NewPrompt(c.stdin, c.stdout)
	var input sequencer.InputProvider = prompt
	if *postcode != "" || *shippingMethod != "" || *email != "" {
		input = storefront.NewForm(*postcode, *shippingMethod, *email)
	}

	seq := sequencer.New(sequencer.Ports{
		Cart:       c.store,
		API:        client,
		Redirector: storefront.NewRedirector(c.stdout, publicKey),
		Input:      input,
		Presenter:  storefront.NewPresenter(c.stdout),
	}, c.log)

	// Accepted input lives in seq, so a retry only asks for what is missing.
	for {
		_, err := seq.Run(ctx)
		if err == nil {
			return nil
		}
		if !seq.Retryable() {
			return fmt.Errorf("%w: %w", errReported, err)
		}
		retry, confirmErr := prompt.Confirm(ctx, "Retry? [Y/n]: ")
		if confirmErr != nil || !retry {
			return fmt.Errorf("%w: %w", errReported, err)
		}
	}
}

func (c *cli) orders(ctx context.Context) error {
	client := storefront.NewClient(c.cfg.APIURL, c.cfg.Timeout(), c.log)
	orders, err := client.ListOrders(ctx)
	if err != nil {
		return err
	}
	if len(orders) == 0 {
		fmt.Fprintln(c.stdout, "No orders yet.")
		return nil
	}
	for _, o := range orders {
		fmt.Fprintf(c.stdout, "%s  %-9s  £%s  %s  %s  %s\n",
			o.ID, o.Status, domain.MajorUnits(o.Amount).StringFixed(2), o.Email, o.Postcode,
			o.CreatedAt.Format("2006-01-02 15:04"))
	}
	return nil
}

func (c *cli) orderStatus(ctx context.Context, args []string) error {
	if len(args) != 2 {
		fmt.Fprintln(c.stderr, "usage: storefront order-status <order-id> <status>")
		return errUsage
	}
	client := storefront.NewClient(c.cfg.APIURL, c.cfg.Timeout(), c.log)
	order, err := client.UpdateOrderStatus(ctx, args[0], args[1])
	if err != nil {
		return err
	}
	fmt.Fprintf(c.stdout, "Order %s is now %s\n", order.ID, order.Status)
	return nil
}
