package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RobertEarleCodes/Scrittle/internal/domain"
	"github.com/RobertEarleCodes/Scrittle/internal/event"
	"github.com/RobertEarleCodes/Scrittle/internal/payment"
	paymentmock "github.com/RobertEarleCodes/Scrittle/internal/payment/mock"
	"github.com/RobertEarleCodes/Scrittle/internal/repository/memory"
	"github.com/RobertEarleCodes/Scrittle/internal/service"
	"github.com/RobertEarleCodes/Scrittle/internal/shipping"
	apperrors "github.com/RobertEarleCodes/Scrittle/pkg/errors"
	"github.com/RobertEarleCodes/Scrittle/pkg/health"
	"github.com/RobertEarleCodes/Scrittle/pkg/idempotency"
)

// --- Test Helpers ---

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

type failingProvider struct{ err error }

func (p *failingProvider) Name() string { return "failing" }

func (p *failingProvider) CreateCheckoutSession(context.Context, *payment.SessionRequest) (*payment.Session, error) {
	return nil, p.err
}

type stubVerifier struct {
	evt *payment.Event
	err error
}

func (v *stubVerifier) ParseEvent([]byte, string) (*payment.Event, error) {
	return v.evt, v.err
}

type testServer struct {
	router http.Handler
	ledger *memory.OrderLedger
}

type serverOption func(*serverConfig)

type serverConfig struct {
	provider  payment.Provider
	verifier  payment.WebhookVerifier
	publicKey string
}

func withProvider(p payment.Provider) serverOption {
	return func(c *serverConfig) { c.provider = p }
}

func withVerifier(v payment.WebhookVerifier) serverOption {
	return func(c *serverConfig) { c.verifier = v }
}

func newTestServer(opts ...serverOption) *testServer {
	cfg := serverConfig{provider: paymentmock.NewProvider(), publicKey: "pk_test_123"}
	for _, o := range opts {
		o(&cfg)
	}

	logger := testLogger()
	ledger := memory.NewOrderLedger()
	events := event.Discard{}

	checkoutSvc := service.NewCheckoutService(shipping.NewQuoter(nil), cfg.provider, events, logger, "https://shop.example.com")
	orderSvc := service.NewOrderService(ledger, events, logger)
	webhookSvc := service.NewWebhookService(cfg.verifier, idempotency.NewMemoryStore(time.Hour), orderSvc, logger)

	router := NewRouter(checkoutSvc, orderSvc, webhookSvc, health.NewHandler(), logger, RouterOptions{
		PublicKey: cfg.publicKey,
	})
	return &testServer{router: router, ledger: ledger}
}

func (s *testServer) do(method, path, body string, headers ...string) *httptest.ResponseRecorder {
	var rdr io.Reader
	if body != "" {
		rdr = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rdr)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body
}

const validCheckoutBody = `{
	"shippingMethod": "special_delivery_guaranteed_by_1pm",
	"customerEmail": "climber@example.com",
	"shippingPostcode": "S13 9AQ",
	"cartItems": [{"id":"pickup_edge_hangboard","name":"Pickup Edge Hangboard","price":35,"quantity":1}]
}`

// --- Public key ---

func TestPublicKey(t *testing.T) {
	rec := newTestServer().do(http.MethodGet, "/api/public-key", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "pk_test_123", decodeBody(t, rec)["publicKey"])
	assert.Equal(t, "public, max-age=300", rec.Header().Get("Cache-Control"))
}

func TestPublicKey_Unconfigured(t *testing.T) {
	s := newTestServer(func(c *serverConfig) { c.publicKey = "" })
	rec := s.do(http.MethodGet, "/api/public-key", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "", decodeBody(t, rec)["publicKey"])
}

// --- Shipping ---

func TestCalculateShipping_Success(t *testing.T) {
	rec := newTestServer().do(http.MethodPost, "/api/calculate-shipping", `{"postcode":"s13 9aq"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "S13 9AQ", body["postcode"])
	options := body["shippingOptions"].([]any)
	require.Len(t, options, 4)
	first := options[0].(map[string]any)
	assert.Equal(t, "special_delivery_guaranteed_by_9am", first["id"])
	assert.Equal(t, float64(50), first["price"])
}

func TestCalculateShipping_Errors(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		status  int
		message string
	}{
		{"invalid postcode", `{"postcode":"not a postcode"}`, http.StatusBadRequest, "Invalid UK postcode"},
		{"missing postcode", `{}`, http.StatusBadRequest, "Postcode is required"},
		{"malformed json", `{"postcode":`, http.StatusBadRequest, "invalid request body"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := newTestServer().do(http.MethodPost, "/api/calculate-shipping", tt.body)
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.message, decodeBody(t, rec)["error"])
		})
	}
}

func TestCalculateShipping_RequiresJSON(t *testing.T) {
	s := newTestServer()
	req := httptest.NewRequest(http.MethodPost, "/api/calculate-shipping", strings.NewReader("postcode=S13"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
}

// --- Checkout session ---

func TestCreateCheckoutSession_Success(t *testing.T) {
	provider := paymentmock.NewProvider()
	s := newTestServer(withProvider(provider))

	rec := s.do(http.MethodPost, "/api/create-checkout-session", validCheckoutBody, "Origin", "http://localhost:8080")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	body := decodeBody(t, rec)
	assert.True(t, strings.HasPrefix(body["sessionId"].(string), "mock_cs_"))
	assert.NotEmpty(t, body["url"])

	reqs := provider.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, int64(3550), reqs[0].Total())
	assert.True(t, strings.HasPrefix(reqs[0].SuccessURL, "http://localhost:8080/success.html"))
	assert.Equal(t, 0, s.ledger.Len(), "creating a session never records an order")
}

func TestCreateCheckoutSession_InvalidShippingMethod(t *testing.T) {
	provider := paymentmock.NewProvider()
	s := newTestServer(withProvider(provider))

	rec := s.do(http.MethodPost, "/api/create-checkout-session",
		`{"shippingMethod":"not_a_real_method","customerEmail":"bad","shippingPostcode":"x"}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid shipping method", decodeBody(t, rec)["error"])
	assert.Empty(t, provider.Requests())
}

func TestCreateCheckoutSession_InvalidEmail(t *testing.T) {
	rec := newTestServer().do(http.MethodPost, "/api/create-checkout-session",
		`{"shippingMethod":"special_delivery_guaranteed_by_9am","customerEmail":"nope","shippingPostcode":"S13 9AQ"}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "VALIDATION_ERROR", body["code"])
	assert.Contains(t, body["fields"], "customerEmail")
}

func TestCreateCheckoutSession_ProviderErrorVerbatim(t *testing.T) {
	s := newTestServer(withProvider(&failingProvider{
		err: apperrors.PaymentProvider("Invalid API Key provided: sk_test_***", nil),
	}))

	rec := s.do(http.MethodPost, "/api/create-checkout-session", validCheckoutBody)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "Invalid API Key provided: sk_test_***", body["error"])
	assert.Equal(t, "PAYMENT_PROVIDER_ERROR", body["code"])
}

func TestCreateCheckoutSession_PlainProviderErrorCarriesMessage(t *testing.T) {
	s := newTestServer(withProvider(&failingProvider{err: errors.New("dial tcp: i/o timeout")}))

	rec := s.do(http.MethodPost, "/api/create-checkout-session", validCheckoutBody)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "dial tcp: i/o timeout", decodeBody(t, rec)["error"])
}

// --- Orders ---

func TestSaveOrderAndList(t *testing.T) {
	s := newTestServer()

	rec := s.do(http.MethodPost, "/api/save-order", `{
		"sessionId":"cs_test_1","customerEmail":"climber@example.com",
		"shippingPostcode":"S13 9AQ","shippingMethod":"special_delivery_guaranteed_by_9am","amount":3550}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decodeBody(t, rec)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "cs_test_1", body["orderId"])

	rec = s.do(http.MethodGet, "/api/orders", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))

	var list struct {
		Orders []domain.Order `json:"orders"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list.Orders, 1)
	assert.Equal(t, domain.OrderStatusPending, list.Orders[0].Status)
	assert.Equal(t, int64(3550), list.Orders[0].Amount)
	assert.Contains(t, rec.Body.String(), `"shippingMethod":"special_delivery_guaranteed_by_9am"`)
	assert.Contains(t, rec.Body.String(), `"date":`)
}

func TestListOrders_Empty(t *testing.T) {
	rec := newTestServer().do(http.MethodGet, "/api/orders", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"orders":[]}`, rec.Body.String())
}

func TestSaveOrder_MissingSessionID(t *testing.T) {
	rec := newTestServer().do(http.MethodPost, "/api/save-order", `{"amount":3550}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "VALIDATION_ERROR", decodeBody(t, rec)["code"])
}

func TestSaveOrder_ReplayIsIdempotent(t *testing.T) {
	s := newTestServer()
	body := `{"sessionId":"cs_dup","amount":3550}`

	require.Equal(t, http.StatusOK, s.do(http.MethodPost, "/api/save-order", body).Code)
	rec := s.do(http.MethodPost, "/api/save-order", body)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, s.ledger.Len())
}

func TestUpdateOrderStatus(t *testing.T) {
	s := newTestServer()
	require.Equal(t, http.StatusOK, s.do(http.MethodPost, "/api/save-order", `{"sessionId":"cs_1","amount":3550}`).Code)

	rec := s.do(http.MethodPost, "/api/update-order-status", `{"orderId":"cs_1","status":"paid"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decodeBody(t, rec)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "paid", body["order"].(map[string]any)["status"])
}

func TestUpdateOrderStatus_Errors(t *testing.T) {
	s := newTestServer()
	require.Equal(t, http.StatusOK, s.do(http.MethodPost, "/api/save-order", `{"sessionId":"cs_1","amount":3550}`).Code)

	tests := []struct {
		name   string
		body   string
		status int
		errMsg string
	}{
		{"unknown order", `{"orderId":"nonexistent","status":"paid"}`, http.StatusNotFound, "Order not found"},
		{"unknown status", `{"orderId":"cs_1","status":"shipped"}`, http.StatusBadRequest, `Invalid order status "shipped"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(http.MethodPost, "/api/update-order-status", tt.body)
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.errMsg, decodeBody(t, rec)["error"])
		})
	}

	rec := s.do(http.MethodGet, "/api/orders", "")
	assert.Contains(t, rec.Body.String(), `"status":"pending"`)
}

func TestUpdateOrderStatus_SkipsLifecycleSteps(t *testing.T) {
	s := newTestServer()
	require.Equal(t, http.StatusOK, s.do(http.MethodPost, "/api/save-order", `{"sessionId":"cs_1","amount":3550}`).Code)

	rec := s.do(http.MethodPost, "/api/update-order-status", `{"orderId":"cs_1","status":"fulfilled"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "fulfilled", decodeBody(t, rec)["order"].(map[string]any)["status"])

	rec = s.do(http.MethodPost, "/api/update-order-status", `{"orderId":"cs_1","status":"pending"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "pending", decodeBody(t, rec)["order"].(map[string]any)["status"])
}

// --- Webhook ---

func TestWebhook_UnverifiedAcknowledges(t *testing.T) {
	s := newTestServer()
	rec := s.do(http.MethodPost, "/api/webhook", `{"id":"evt_1","type":"checkout.session.completed"}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"received":true}`, rec.Body.String())
	assert.Equal(t, 0, s.ledger.Len())
}

func TestWebhook_BadSignature(t *testing.T) {
	s := newTestServer(withVerifier(&stubVerifier{
		err: apperrors.InvalidInput("Webhook Error: No signatures found matching the expected signature for payload"),
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/webhook", bytes.NewBufferString(`{}`))
	req.Header.Set(SignatureHeader, "t=1,v1=deadbeef")
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.True(t, strings.HasPrefix(decodeBody(t, rec)["error"].(string), "Webhook Error: "))
}

func TestWebhook_CompletedRecordsPaidOrder(t *testing.T) {
	s := newTestServer(withVerifier(&stubVerifier{evt: &payment.Event{
		ID:   "evt_2",
		Type: payment.EventCheckoutSessionCompleted,
		Session: &payment.CheckoutSession{
			ID:            "cs_hook",
			AmountTotal:   3550,
			PaymentStatus: "paid",
		},
	}}))

	rec := s.do(http.MethodPost, "/api/webhook", `{}`, SignatureHeader, "t=1,v1=ok")
	require.Equal(t, http.StatusOK, rec.Code)

	order, err := s.ledger.GetByID(context.Background(), "cs_hook")
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusPaid, order.Status)
}

// --- Ambient ---

func TestCORS_Preflight(t *testing.T) {
	rec := newTestServer().do(http.MethodOptions, "/api/create-checkout-session", "", "Origin", "http://localhost:8080")

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestHealthLive(t *testing.T) {
	rec := newTestServer().do(http.MethodGet, "/health/live", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCorrelationIDEchoed(t *testing.T) {
	rec := newTestServer().do(http.MethodGet, "/api/public-key", "", "X-Correlation-ID", "corr-42")
	assert.Equal(t, "corr-42", rec.Header().Get("X-Correlation-ID"))
}
