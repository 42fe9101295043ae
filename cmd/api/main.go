package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/multierr"

	"github.com/angelmondragon/marketplace-checkout/api/routes"
	"github.com/angelmondragon/marketplace-checkout/internal/checkout"
	"github.com/angelmondragon/marketplace-checkout/internal/loyalty"
	"github.com/angelmondragon/marketplace-checkout/internal/orders"
	"github.com/angelmondragon/marketplace-checkout/internal/pricing"
	"github.com/angelmondragon/marketplace-checkout/internal/promo"
	"github.com/angelmondragon/marketplace-checkout/pkg/config"
	"github.com/angelmondragon/marketplace-checkout/pkg/db"
	"github.com/angelmondragon/marketplace-checkout/pkg/enums"
	"github.com/angelmondragon/marketplace-checkout/pkg/instance"
	"github.com/angelmondragon/marketplace-checkout/pkg/logger"
	"github.com/angelmondragon/marketplace-checkout/pkg/metrics"
	"github.com/angelmondragon/marketplace-checkout/pkg/migrate"
	"github.com/angelmondragon/marketplace-checkout/pkg/outbox"
	"github.com/angelmondragon/marketplace-checkout/pkg/redis"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Instance:    instance.ID("api"),
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := multierr.Combine(redisClient.Close(), dbClient.Close()); err != nil {
			logg.Error(context.Background(), "error closing clients", err)
		}
	}()

	promRegistry := prometheus.NewRegistry()
	promRegistry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	checkoutMetrics := metrics.NewCheckoutMetrics(promRegistry)

	checkoutService, materializer, err := buildCheckout(cfg, logg, dbClient, redisClient, checkoutMetrics)
	if err != nil {
		logg.Error(context.Background(), "failed to build checkout services", err)
		os.Exit(1)
	}

	ordersService, err := orders.NewService(
		orders.NewRepository(dbClient.DB()),
		dbClient,
		outbox.NewService(outbox.NewRepository(dbClient.DB()), logg),
		loyalty.NewTxLedger(loyalty.NewRepository(dbClient.DB())),
		nil,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create orders service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:              addr,
		Handler:           routes.NewRouter(cfg, logg, dbClient, redisClient, promRegistry, checkoutService, materializer, ordersService),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "api server shutdown failed", err)
		}
		logg.Info(ctx, "api server shut down gracefully")
	}
}

// buildCheckout wires session pricing and payment confirmation over the same
// session store.
func buildCheckout(cfg *config.Config, logg *logger.Logger, dbClient *db.Client, redisClient *redis.Client, checkoutMetrics *metrics.CheckoutMetrics) (checkout.Service, *orders.Materializer, error) {
	var promoStore promo.Store = promo.NewRepository(dbClient.DB())
	if cfg.FeatureFlags.StaticPromos {
		promoStore = promo.DefaultCatalog()
	}
	promoValidator, err := promo.NewValidator(promoStore, nil)
	if err != nil {
		return nil, nil, err
	}

	sessions, err := checkout.NewRedisSessionStore(redisClient)
	if err != nil {
		return nil, nil, err
	}

	taxRate, err := cfg.Checkout.TaxRate()
	if err != nil {
		return nil, nil, err
	}
	currency, err := enums.ParseCurrency(cfg.Checkout.Currency)
	if err != nil {
		return nil, nil, err
	}

	loyaltyRepo := loyalty.NewRepository(dbClient.DB())
	checkoutService, err := checkout.NewService(
		promoValidator,
		loyaltyRepo,
		pricing.NewRepository(dbClient.DB()),
		sessions,
		checkoutMetrics,
		checkout.Options{
			Currency:         currency,
			SessionTTL:       cfg.Checkout.SessionTTL,
			SessionRetention: cfg.Checkout.SessionRetention,
			TaxRate:          taxRate,
		},
	)
	if err != nil {
		return nil, nil, err
	}

	materializer, err := orders.NewMaterializer(orders.MaterializerParams{
		Repository: orders.NewRepository(dbClient.DB()),
		Tx:         dbClient,
		Sessions:   sessions,
		Loyalty:    loyalty.NewTxLedger(loyaltyRepo),
		Outbox:     outbox.NewService(outbox.NewRepository(dbClient.DB()), logg),
		Metrics:    checkoutMetrics,
		Logger:     logg,
		Options: orders.MaterializerOptions{
			MaxAttempts:  cfg.Checkout.ConfirmMaxAttempts,
			Backoff:      cfg.Checkout.ConfirmBackoff,
			DeliveryLead: time.Duration(cfg.Checkout.DeliveryLeadMinutes) * time.Minute,
		},
	})
	if err != nil {
		return nil, nil, err
	}
	return checkoutService, materializer, nil
}
