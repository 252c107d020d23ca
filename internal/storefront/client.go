// Package storefront is the terminal storefront client: a typed client for
// the storefront API plus the prompt and form adapters that drive checkout.
package storefront

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/RobertEarleCodes/Scrittle/internal/domain"
	"github.com/RobertEarleCodes/Scrittle/pkg/breaker"
	apperrors "github.com/RobertEarleCodes/Scrittle/pkg/errors"
	"github.com/RobertEarleCodes/Scrittle/pkg/httpclient"
)

const serviceName = "storefront-api"

// ErrNoShippingOptions is returned when a quote comes back without options.
var ErrNoShippingOptions = apperrors.InvalidInput("No shipping options available")

// Client calls the storefront API. Requests are never retried; repeated
// 5xx responses open a circuit breaker.
type Client struct {
	baseURL string
	http    *httpclient.CircuitBreakerClient
	logger  *slog.Logger
}

// NewClient creates an API client for baseURL.
func NewClient(baseURL string, timeout time.Duration, logger *slog.Logger) *Client {
	base := httpclient.New(httpclient.Config{
		Timeout:         timeout,
		MaxRetries:      0,
		MaxConnsPerHost: 4,
		UserAgent:       "pickup-edge-storefront",
	})
	cb := httpclient.NewCircuitBreakerClient(base, breaker.DefaultConfig(serviceName), logger).
		WithFallback(func(ctx context.Context, err error) (*http.Response, error) {
			unavailable := apperrors.ServiceUnavailable("Storefront is temporarily unavailable, please try again shortly")
			unavailable.Err = fmt.Errorf("%w: %w", apperrors.ErrServiceUnavail, err)
			return nil, unavailable
		})

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    cb,
		logger:  logger,
	}
}

type publicKeyResponse struct {
	PublicKey string `json:"publicKey"`
}

type quoteResponse struct {
	Success         bool                    `json:"success"`
	Postcode        string                  `json:"postcode"`
	ShippingOptions []domain.ShippingMethod `json:"shippingOptions"`
}

type ordersResponse struct {
	Orders []domain.Order `json:"orders"`
}

type updateStatusResponse struct {
	Success bool          `json:"success"`
	Order   *domain.Order `json:"order"`
}

// PublicKey fetches the payment provider's publishable key. An empty key
// means the server is misconfigured.
func (c *Client) PublicKey(ctx context.Context) (string, error) {
	var out publicKeyResponse
	if err := c.get(ctx, "/api/public-key", &out); err != nil {
		return "", err
	}
	if out.PublicKey == "" {
		return "", apperrors.Configuration("Payment system is not configured")
	}
	return out.PublicKey, nil
}

// Quote asks the server for the shipping options available to postcode.
func (c *Client) Quote(ctx context.Context, postcode string) (*domain.ShippingQuote, error) {
	var out quoteResponse
	if err := c.post(ctx, "/api/calculate-shipping", map[string]string{"postcode": postcode}, &out); err != nil {
		return nil, err
	}
	if len(out.ShippingOptions) == 0 {
		return nil, ErrNoShippingOptions
	}
	return &domain.ShippingQuote{Postcode: out.Postcode, Options: out.ShippingOptions}, nil
}

// CreateSession opens a hosted payment session.
func (c *Client) CreateSession(ctx context.Context, req *domain.CheckoutRequest) (*domain.SessionHandle, error) {
	if req.CartItems == nil {
		cp := *req
		cp.CartItems = []domain.CartItem{}
		req = &cp
	}
	var out domain.SessionHandle
	if err := c.post(ctx, "/api/create-checkout-session", req, &out); err != nil {
		return nil, err
	}
	if out.SessionID == "" {
		return nil, apperrors.PaymentProvider("No session ID received", nil)
	}
	return &out, nil
}

// ListOrders returns every order in the ledger.
func (c *Client) ListOrders(ctx context.Context) ([]domain.Order, error) {
	var out ordersResponse
	if err := c.get(ctx, "/api/orders", &out); err != nil {
		return nil, err
	}
	if out.Orders == nil {
		out.Orders = []domain.Order{}
	}
	return out.Orders, nil
}

// UpdateOrderStatus moves an order to status.
func (c *Client) UpdateOrderStatus(ctx context.Context, orderID, status string) (*domain.Order, error) {
	var out updateStatusResponse
	body := map[string]string{"orderId": orderID, "status": status}
	if err := c.post(ctx, "/api/update-order-status", body, &out); err != nil {
		return nil, err
	}
	return out.Order, nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	resp, err := c.http.Get(ctx, c.baseURL+path)
	if err != nil {
		return fmt.Errorf("GET %s: %w", path, err)
	}
	return c.decode(ctx, path, resp, out)
}

func (c *Client) post(ctx context.Context, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("encode %s request: %w", path, err)
	}
	resp, err := c.http.Post(ctx, c.baseURL+path, "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("POST %s: %w", path, err)
	}
	return c.decode(ctx, path, resp, out)
}

func (c *Client) decode(ctx context.Context, path string, resp *http.Response, out any) error {
	if resp.StatusCode >= http.StatusBadRequest {
		err := httpclient.ParseResponseError(resp, serviceName)
		c.logger.DebugContext(ctx, "storefront request rejected",
			slog.String("path", path),
			slog.Int("status", resp.StatusCode),
			slog.String("error", err.Error()),
		)
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}
