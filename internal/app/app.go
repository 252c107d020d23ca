// Package app wires the storefront API server together.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/RobertEarleCodes/Scrittle/internal/config"
	"github.com/RobertEarleCodes/Scrittle/internal/event"
	handler "github.com/RobertEarleCodes/Scrittle/internal/handler/http"
	"github.com/RobertEarleCodes/Scrittle/internal/payment"
	paymentmock "github.com/RobertEarleCodes/Scrittle/internal/payment/mock"
	"github.com/RobertEarleCodes/Scrittle/internal/payment/stripe"
	"github.com/RobertEarleCodes/Scrittle/internal/repository"
	"github.com/RobertEarleCodes/Scrittle/internal/repository/memory"
	"github.com/RobertEarleCodes/Scrittle/internal/repository/postgres"
	"github.com/RobertEarleCodes/Scrittle/internal/service"
	"github.com/RobertEarleCodes/Scrittle/internal/shipping"
	"github.com/RobertEarleCodes/Scrittle/migrations"
	"github.com/RobertEarleCodes/Scrittle/pkg/database"
	"github.com/RobertEarleCodes/Scrittle/pkg/health"
	"github.com/RobertEarleCodes/Scrittle/pkg/idempotency"
	pkgkafka "github.com/RobertEarleCodes/Scrittle/pkg/kafka"
	"github.com/RobertEarleCodes/Scrittle/pkg/tracing"
)

// App wires together all dependencies and runs the storefront API.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	pool           *pgxpool.Pool
	redis          *redis.Client
	producer       *pkgkafka.Producer
	httpServer     *http.Server
	tracerShutdown func(context.Context) error
}

// NewApp creates a new application instance, initializing all dependencies.
// Optional backends (postgres, redis, kafka) are only dialled when selected.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	a := &App{cfg: cfg, logger: logger}

	// Initialize OpenTelemetry tracing.
	tracerShutdown, err := tracing.InitTracer(ctx, tracing.Config{
		ServiceName:    handler.ServiceName,
		ServiceVersion: "0.1.0",
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.OTELEndpoint,
		SampleRate:     cfg.OTELSampleRate,
		Enabled:        cfg.OTELEnabled,
	})
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}
	a.tracerShutdown = tracerShutdown

	healthHandler := health.NewHandler()

	ledger, err := a.initLedger(ctx, healthHandler)
	if err != nil {
		a.closeBackends()
		return nil, err
	}

	dedup, err := a.initDedup(ctx, healthHandler)
	if err != nil {
		a.closeBackends()
		return nil, err
	}

	events := a.initEvents(healthHandler)
	provider := a.initProvider()

	var verifier payment.WebhookVerifier
	if cfg.WebhookVerified() {
		verifier = stripe.NewWebhookVerifier(cfg.StripeWebhookSecret)
	} else {
		logger.Warn("webhook signature verification disabled: STRIPE_WEBHOOK_SECRET is unset or a placeholder; webhook events will be acknowledged but not applied")
	}

	publicKey := cfg.StripePublicKey
	if publicKey == "" && cfg.PaymentProvider == config.ProviderMock {
		publicKey = paymentmock.PublicKey
	}
	if publicKey == "" {
		logger.Warn("STRIPE_PUBLIC_KEY is not set; clients will refuse to start checkout")
	}

	// Build the dependency graph.
	checkoutService := service.NewCheckoutService(shipping.NewQuoter(nil), provider, events, logger, cfg.Domain)
	orderService := service.NewOrderService(ledger, events, logger)
	webhookService := service.NewWebhookService(verifier, dedup, orderService, logger)

	// HTTP router.
	router := handler.NewRouter(checkoutService, orderService, webhookService, healthHandler, logger, handler.RouterOptions{
		PublicKey:      publicKey,
		AllowedOrigins: cfg.CORSAllowedOrigins,
		PprofCIDRs:     cfg.PprofAllowedCIDRs,
	})

	a.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      35 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return a, nil
}

func (a *App) initLedger(ctx context.Context, hh *health.Handler) (repository.OrderLedger, error) {
	if a.cfg.LedgerBackend != config.BackendPostgres {
		a.logger.Info("using in-memory order ledger; orders are lost on restart")
		return memory.NewOrderLedger(), nil
	}

	pgCfg := a.cfg.PostgresConfig()
	pool, err := database.NewPostgresPool(ctx, &pgCfg, a.logger)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	a.pool = pool
	a.logger.Info("connected to PostgreSQL",
		slog.String("host", pgCfg.Host),
		slog.Int("port", pgCfg.Port),
		slog.String("database", pgCfg.DBName),
	)

	if err := database.RegisterPoolMetrics(prometheus.DefaultRegisterer, pool, handler.ServiceName); err != nil {
		a.logger.Warn("pool metrics not registered", slog.String("error", err.Error()))
	}

	// Run database migrations.
	if err := database.RunMigrations(ctx, pool, migrations.FS, a.logger); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	a.logger.Info("database migrations completed")

	hh.RegisterCritical("postgres", func(ctx context.Context) error {
		return pool.Ping(ctx)
	})
	return postgres.NewOrderLedger(pool,
		postgres.WithSlowQueryLog(time.Duration(a.cfg.SlowQueryThresholdMs)*time.Millisecond, a.logger),
	), nil
}

func (a *App) initDedup(ctx context.Context, hh *health.Handler) (idempotency.Store, error) {
	if a.cfg.DedupBackend != config.BackendRedis {
		return idempotency.NewMemoryStore(a.cfg.DedupTTL()), nil
	}

	client, err := database.NewRedisClient(ctx, a.cfg.RedisConfig())
	if err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	a.redis = client
	a.logger.Info("connected to Redis", slog.String("addr", a.cfg.RedisAddr))

	hh.RegisterCritical("redis", func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	})
	return idempotency.NewRedisStore(client, idempotency.DefaultKeyPrefix, a.cfg.DedupTTL()), nil
}

func (a *App) initEvents(hh *health.Handler) service.EventPublisher {
	if !a.cfg.KafkaEnabled {
		a.logger.Info("kafka disabled; domain events are dropped")
		return event.Discard{}
	}

	producer := pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig(a.cfg.KafkaBrokers), a.logger)
	a.producer = producer
	a.logger.Info("kafka producer initialized", slog.Any("brokers", a.cfg.KafkaBrokers))

	hh.RegisterNonCritical("kafka", func(ctx context.Context) error {
		return producer.Ping(ctx)
	})
	return event.NewProducer(producer, a.logger)
}

func (a *App) initProvider() payment.Provider {
	var provider payment.Provider
	switch a.cfg.PaymentProvider {
	case config.ProviderStripe:
		provider = stripe.NewProvider(stripe.Config{
			SecretKey: a.cfg.StripeSecretKey,
			Timeout:   a.cfg.ProviderTimeout(),
		})
	default:
		a.logger.Warn("using mock payment provider; no real payments are taken")
		provider = paymentmock.NewProvider()
	}

	cbCfg := a.cfg.BreakerConfig("payment-provider")
	a.logger.Info("circuit breaker initialized",
		slog.String("name", cbCfg.Name),
		slog.String("provider", provider.Name()),
		slog.Int("timeout_seconds", a.cfg.CBTimeout),
		slog.Uint64("min_requests", uint64(cbCfg.MinRequests)),
	)
	return payment.WithBreaker(provider, cbCfg, a.logger)
}

// Handler returns the HTTP handler serving the API.
func (a *App) Handler() http.Handler {
	return a.httpServer.Handler
}

// Run starts the HTTP server and blocks until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		a.logger.Info("starting HTTP server",
			slog.String("addr", a.httpServer.Addr),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		a.closeBackends()
		return err
	}

	return a.Shutdown()
}

// Shutdown gracefully stops all components in the correct order:
// 1. HTTP server (drain in-flight requests)
// 2. Tracer (flush pending spans from drained requests)
// 3. Kafka producer, Redis client, PostgreSQL pool
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	var errs []error

	// 1. Drain in-flight HTTP requests (5s budget).
	httpCtx, httpCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer httpCancel()
	if err := a.httpServer.Shutdown(httpCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	// 2. Flush pending spans after HTTP drain so in-flight request spans are captured.
	if a.tracerShutdown != nil {
		tracerCtx, tracerCancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer tracerCancel()
		if err := a.tracerShutdown(tracerCtx); err != nil {
			a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	if err := a.closeBackends(); err != nil {
		errs = append(errs, err)
	}

	a.logger.Info("application shutdown complete")
	return errors.Join(errs...)
}

func (a *App) closeBackends() error {
	var errs []error
	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
		a.producer = nil
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Error("redis close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
		a.redis = nil
	}
	if a.pool != nil {
		a.pool.Close()
		a.pool = nil
	}
	return errors.Join(errs...)
}
