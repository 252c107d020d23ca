package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/RobertEarleCodes/Scrittle/internal/service"
	"github.com/RobertEarleCodes/Scrittle/pkg/health"
	"github.com/RobertEarleCodes/Scrittle/pkg/middleware"
)

// ServiceName labels metrics and traces emitted by the API server.
const ServiceName = "storefront-api"

// publicKeyMaxAge is how long browsers may cache the publishable key.
const publicKeyMaxAge = 300

// RouterOptions holds the optional knobs of the router.
type RouterOptions struct {
	PublicKey      string
	AllowedOrigins []string
	PprofCIDRs     []string
	RequestTimeout time.Duration
}

// NewRouter creates a chi router with all storefront routes registered.
func NewRouter(
	checkoutService *service.CheckoutService,
	orderService *service.OrderService,
	webhookService *service.WebhookService,
	healthHandler *health.Handler,
	logger *slog.Logger,
	opts RouterOptions,
) http.Handler {
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 30 * time.Second
	}
	cors := middleware.DefaultCORSConfig()
	if len(opts.AllowedOrigins) > 0 {
		cors.AllowedOrigins = opts.AllowedOrigins
	}

	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recovery(logger))
	r.Use(chimw.Compress(5))
	r.Use(chimw.Timeout(opts.RequestTimeout))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.PrometheusMetrics(ServiceName))
	r.Use(middleware.Tracing(ServiceName))
	r.Use(middleware.RequestLogger(logger))

	// Health check endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	})

	// Pprof debug endpoints with IP allowlist.
	middleware.RegisterPprof(r, opts.PprofCIDRs, logger)

	checkoutHandler := NewCheckoutHandler(checkoutService, opts.PublicKey, logger)
	orderHandler := NewOrderHandler(orderService, logger)
	webhookHandler := NewWebhookHandler(webhookService, logger)

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.CORS(cors))

		r.With(middleware.CacheControl(publicKeyMaxAge)).Get("/public-key", checkoutHandler.PublicKey)
		r.With(middleware.NoStore).Get("/orders", orderHandler.ListOrders)

		// Signed payloads must reach the verifier byte for byte.
		r.Post("/webhook", webhookHandler.HandleWebhook)

		r.Group(func(r chi.Router) {
			r.Use(ContentTypeJSON)

			r.Post("/calculate-shipping", checkoutHandler.CalculateShipping)
			r.Post("/create-checkout-session", checkoutHandler.CreateCheckoutSession)
			r.Post("/save-order", orderHandler.SaveOrder)
			r.Post("/update-order-status", orderHandler.UpdateOrderStatus)
		})
	})

	return r
}
