package stripe

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RobertEarleCodes/Scrittle/internal/payment"
	apperrors "github.com/RobertEarleCodes/Scrittle/pkg/errors"
)

func sessionRequest() *payment.SessionRequest {
	return &payment.SessionRequest{
		Currency: "gbp",
		LineItems: []payment.LineItem{
			{Name: "Pickup Edge Hangboard", Description: "Premium grip training equipment", UnitAmount: 3500, Quantity: 1},
			{Name: "Shipping", Description: "Special Delivery Guaranteed by 9am (£0.50)", UnitAmount: 50, Quantity: 1},
		},
		CustomerEmail: "a@b.com",
		SuccessURL:    "http://localhost:3000/success.html?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:     "http://localhost:3000/cart.html",
		Metadata:      map[string]string{"shippingPostcode": "S13 9AQ", "shippingMethod": "special_delivery_guaranteed_by_9am"},
	}
}

func TestProvider_CreateCheckoutSession(t *testing.T) {
	var form url.Values
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/checkout/sessions", r.URL.Path)
		body, _ := io.ReadAll(r.Body)
		form, _ = url.ParseQuery(string(body))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"cs_test_123","object":"checkout.session","url":"https://checkout.stripe.com/c/pay/cs_test_123"}`))
	}))
	defer server.Close()

	p := NewProvider(Config{SecretKey: "sk_test_123", BackendURL: server.URL})
	assert.Equal(t, "stripe", p.Name())

	s, err := p.CreateCheckoutSession(context.Background(), sessionRequest())
	require.NoError(t, err)
	assert.Equal(t, "cs_test_123", s.ID)
	assert.Equal(t, "https://checkout.stripe.com/c/pay/cs_test_123", s.URL)

	assert.Equal(t, "payment", form.Get("mode"))
	assert.Equal(t, "card", form.Get("payment_method_types[0]"))
	assert.Equal(t, "a@b.com", form.Get("customer_email"))
	assert.Equal(t, "gbp", form.Get("line_items[0][price_data][currency]"))
	assert.Equal(t, "3500", form.Get("line_items[0][price_data][unit_amount]"))
	assert.Equal(t, "Shipping", form.Get("line_items[1][price_data][product_data][name]"))
	assert.Equal(t, "50", form.Get("line_items[1][price_data][unit_amount]"))
	assert.Equal(t, "S13 9AQ", form.Get("metadata[shippingPostcode]"))
	assert.Equal(t, "http://localhost:3000/cart.html", form.Get("cancel_url"))
}

func TestProvider_ErrorMessagePassedThrough(t *testing.T) {
	tests := []struct {
		name         string
		status       int
		body         string
		message      string
		invalidInput bool
	}{
		{"invalid request", http.StatusBadRequest, `{"error":{"message":"Invalid email address: nope","type":"invalid_request_error"}}`, "Invalid email address: nope", true},
		{"bad api key", http.StatusUnauthorized, `{"error":{"message":"Invalid API Key provided: sk_test_***","type":"invalid_request_error"}}`, "Invalid API Key provided: sk_test_***", false},
		{"api error", http.StatusInternalServerError, `{"error":{"message":"Something went wrong","type":"api_error"}}`, "Something went wrong", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			_, err := NewProvider(Config{SecretKey: "sk_test_123", BackendURL: server.URL}).
				CreateCheckoutSession(context.Background(), sessionRequest())
			require.Error(t, err)

			var appErr *apperrors.AppError
			require.ErrorAs(t, err, &appErr)
			assert.Equal(t, tt.message, appErr.Message)
			assert.Equal(t, http.StatusInternalServerError, appErr.Status)
			assert.ErrorIs(t, err, apperrors.ErrPaymentProvider)
			assert.Equal(t, tt.invalidInput, errors.Is(err, apperrors.ErrInvalidInput))
		})
	}
}

const testSecret = "whsec_test_secret"

func sign(payload []byte, secret string, ts time.Time) string {
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.%s", ts.Unix(), payload)
	return fmt.Sprintf("t=%d,v1=%s", ts.Unix(), hex.EncodeToString(mac.Sum(nil)))
}

const completedPayload = `{
  "id": "evt_1",
  "object": "event",
  "type": "checkout.session.completed",
  "data": {
    "object": {
      "id": "cs_test_1",
      "object": "checkout.session",
      "amount_total": 3550,
      "payment_status": "paid",
      "customer_details": {"email": "a@b.com"},
      "metadata": {"shippingPostcode": "S13 9AQ", "shippingMethod": "special_delivery_guaranteed_by_9am"}
    }
  }
}`

func TestWebhookVerifier_ValidSignature(t *testing.T) {
	payload := []byte(completedPayload)
	evt, err := NewWebhookVerifier(testSecret).ParseEvent(payload, sign(payload, testSecret, time.Now()))
	require.NoError(t, err)

	assert.Equal(t, "evt_1", evt.ID)
	assert.Equal(t, payment.EventCheckoutSessionCompleted, evt.Type)
	require.NotNil(t, evt.Session)
	assert.Equal(t, "cs_test_1", evt.Session.ID)
	assert.Equal(t, "a@b.com", evt.Session.CustomerEmail)
	assert.Equal(t, int64(3550), evt.Session.AmountTotal)
	assert.Equal(t, "paid", evt.Session.PaymentStatus)
	assert.Equal(t, "S13 9AQ", evt.Session.Metadata["shippingPostcode"])
}

func TestWebhookVerifier_OtherEventHasNoSession(t *testing.T) {
	payload := []byte(`{"id":"evt_2","object":"event","type":"payment_intent.created","data":{"object":{"id":"pi_1","object":"payment_intent"}}}`)
	evt, err := NewWebhookVerifier(testSecret).ParseEvent(payload, sign(payload, testSecret, time.Now()))
	require.NoError(t, err)
	assert.Equal(t, "payment_intent.created", evt.Type)
	assert.Nil(t, evt.Session)
}

func TestWebhookVerifier_Rejects(t *testing.T) {
	payload := []byte(completedPayload)
	tests := []struct {
		name   string
		header string
	}{
		{"wrong secret", sign(payload, "whsec_other", time.Now())},
		{"stale timestamp", sign(payload, testSecret, time.Now().Add(-time.Hour))},
		{"missing header", ""},
		{"garbage header", "not-a-signature"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewWebhookVerifier(testSecret).ParseEvent(payload, tt.header)
			require.Error(t, err)
			assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
			assert.Contains(t, err.Error(), "Webhook Error")
		})
	}
}
