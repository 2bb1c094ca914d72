// Package app wires the storefront services together.
package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/go-redis/redis/v8"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/bahodirov07uz/shop/internal/domain/auth"
	"github.com/bahodirov07uz/shop/internal/domain/discount"
	"github.com/bahodirov07uz/shop/internal/domain/order"
	"github.com/bahodirov07uz/shop/internal/handler"
	"github.com/bahodirov07uz/shop/internal/storage/postgres"
	"github.com/bahodirov07uz/shop/internal/worker"
	"github.com/bahodirov07uz/shop/pkg/health"
	"github.com/bahodirov07uz/shop/pkg/httpmiddleware"
	"github.com/bahodirov07uz/shop/pkg/runlock"
)

// Telemetry supplies OpenTelemetry providers. *app.Telemetry from
// github.com/go-faster/sdk implements it.
type Telemetry interface {
	TracerProvider() trace.TracerProvider
	MeterProvider() metric.MeterProvider
}

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the API server.
func Run(ctx context.Context, lg *zap.Logger, m Telemetry, cfg *Config) error {
	lg.Info("Initializing", zap.String("addr", cfg.Addr))

	// PostgreSQL pool + migrations.
	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return errors.Wrap(err, "create db pool")
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	// Health check service.
	healthSvc := health.New()
	healthSvc.AddReadinessCheck("postgres", 5*time.Second, health.PingCheck(pool))
	healthSvc.AddLivenessCheck("goroutines", time.Second, health.GoroutineCountCheck(10000))

	locker, rdb, err := connectLock(ctx, cfg)
	if err != nil {
		return err
	}
	if rdb != nil {
		defer func() { _ = rdb.Close() }()
		healthSvc.AddReadinessCheck("redis", 2*time.Second, func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		})
	}

	healthSvc.Start(ctx, 10*time.Second)
	healthSvc.SetReady(true)

	// Repositories.
	productRepo := postgres.NewProductRepository(pool)
	discountRepo := postgres.NewDiscountRepository(pool)
	orderRepo := postgres.NewOrderRepository(pool)
	ruleRepo := postgres.NewRuleRepository(pool)
	apikeyRepo := postgres.NewAPIKeyRepository(pool)

	// Domain services.
	delivery, err := cfg.Delivery.Settings()
	if err != nil {
		return errors.Wrap(err, "delivery settings")
	}
	pricer := discount.NewPricer(discountRepo)
	orderService := order.NewService(productRepo, pricer, orderRepo, ruleRepo, delivery)
	authenticator := auth.NewAuthenticator(apikeyRepo, []byte(cfg.APIKeyPepper))

	// Optional in-process status sweep.
	if cfg.Schedule.Interval > 0 {
		advancer, err := newAdvancer(lg, m, cfg, orderRepo, ruleRepo, locker)
		if err != nil {
			return err
		}
		scheduler := worker.NewScheduler(advancer, cfg.Schedule.Interval, lg.Named("sweep"))
		scheduler.Start(ctx)
		defer scheduler.Stop()
	}

	// HTTP handlers.
	h := handler.NewHandler(productRepo, pricer, orderService, authenticator)
	router := h.Router()
	router.Get("/livez", healthSvc.LiveEndpoint)
	router.Get("/readyz", healthSvc.ReadyEndpoint)

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler: httpmiddleware.Wrap(router,
			httpmiddleware.InjectLogger(zctx.From(ctx)),
			httpmiddleware.Recovery(),
			httpmiddleware.CORS(httpmiddleware.CORSConfig{
				AllowOrigins:     cfg.CORS.Origins,
				AllowHeaders:     []string{"Content-Type", handler.APIKeyHeader},
				AllowCredentials: cfg.CORS.AllowCredentials,
				MaxAge:           86400,
			}),
			httpmiddleware.RateLimit(ctx, httpmiddleware.RateLimitConfig{
				Max:    cfg.RateLimit.Max,
				Window: cfg.RateLimit.Window,
			}),
			httpmiddleware.RequestID(),
			httpmiddleware.Instrument("shop-api", m.TracerProvider(), m.MeterProvider()),
			httpmiddleware.LogRequests(),
		),
	}

	// Graceful shutdown: wait for context cancellation, drain, then stop.
	shutdownDone := make(chan struct{})
	go func() {
		<-ctx.Done()
		healthSvc.SetReady(false)
		lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
		time.Sleep(cfg.Graceful.ReadinessDelay)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			lg.Error("Server shutdown error", zap.Error(err))
		}
		healthSvc.Stop()
		close(shutdownDone)
	}()

	lg.Info("Server listening", zap.String("addr", cfg.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "server")
	}
	<-shutdownDone
	return nil
}

// Sweep runs one scheduled status sweep. It backs cmd/update-orders.
func Sweep(ctx context.Context, lg *zap.Logger, m Telemetry, cfg *Config) (order.Result, error) {
	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return order.Result{}, errors.Wrap(err, "create db pool")
	}
	defer pool.Close()

	locker, rdb, err := connectLock(ctx, cfg)
	if err != nil {
		return order.Result{}, err
	}
	if rdb != nil {
		defer func() { _ = rdb.Close() }()
	}

	advancer, err := newAdvancer(lg, m, cfg,
		postgres.NewOrderRepository(pool), postgres.NewRuleRepository(pool), locker)
	if err != nil {
		return order.Result{}, err
	}
	return advancer.Run(ctx)
}

// connectLock returns the Redis run lock, or a nil Locker when no Redis URL
// is configured.
func connectLock(ctx context.Context, cfg *Config) (order.Locker, *redis.Client, error) {
	if cfg.RedisURL == "" {
		return nil, nil, nil
	}
	rdb, err := runlock.Connect(ctx, cfg.RedisURL)
	if err != nil {
		return nil, nil, errors.Wrap(err, "connect run lock")
	}
	return runlock.New(rdb, runlock.DefaultKey, cfg.Schedule.LockTTL), rdb, nil
}

func newAdvancer(
	lg *zap.Logger,
	m Telemetry,
	cfg *Config,
	orders order.Repository,
	rules order.RuleRepository,
	locker order.Locker,
) (*order.Advancer, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	if locker == nil {
		lg.Warn("No Redis configured, status sweeps are not serialized across instances")
	}
	advancer, err := order.NewAdvancer(orders, rules, order.AdvancerOptions{
		Locker:         locker,
		Logger:         lg,
		Location:       loc,
		TracerProvider: m.TracerProvider(),
		MeterProvider:  m.MeterProvider(),
	})
	if err != nil {
		return nil, errors.Wrap(err, "create advancer")
	}
	return advancer, nil
}
