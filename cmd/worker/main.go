package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/angelmondragon/marketplace-checkout/internal/checkout"
	"github.com/angelmondragon/marketplace-checkout/internal/loyalty"
	"github.com/angelmondragon/marketplace-checkout/internal/orders"
	"github.com/angelmondragon/marketplace-checkout/internal/payments"
	"github.com/angelmondragon/marketplace-checkout/pkg/config"
	"github.com/angelmondragon/marketplace-checkout/pkg/db"
	"github.com/angelmondragon/marketplace-checkout/pkg/instance"
	"github.com/angelmondragon/marketplace-checkout/pkg/logger"
	"github.com/angelmondragon/marketplace-checkout/pkg/metrics"
	"github.com/angelmondragon/marketplace-checkout/pkg/migrate"
	"github.com/angelmondragon/marketplace-checkout/pkg/outbox"
	"github.com/angelmondragon/marketplace-checkout/pkg/outbox/idempotency"
	"github.com/angelmondragon/marketplace-checkout/pkg/pubsub"
	"github.com/angelmondragon/marketplace-checkout/pkg/redis"
)

const serviceName = "worker"

func main() {
	bootLogg := logger.New(logger.Options{ServiceName: serviceName})
	if err := godotenv.Load(); err != nil {
		bootLogg.Warn(context.Background(), ".env file not found, relying on environment")
	}
	if err := run(); err != nil {
		bootLogg.Error(context.Background(), "worker stopped", err)
		os.Exit(1)
	}
}

// run owns every client it opens, so deferred closes happen on any exit path.
func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	cfg.Service.Kind = serviceName

	logg := logger.New(logger.Options{
		ServiceName: serviceName,
		Instance:    instance.ID(serviceName),
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":          cfg.App.Env,
		"service_kind": cfg.Service.Kind,
		"subscription": cfg.PubSub.PaymentsSubscription,
	})

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return fmt.Errorf("bootstrap database: %w", err)
	}
	defer closeAll(ctx, logg, dbClient)

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		return fmt.Errorf("dev migrations: %w", err)
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		return fmt.Errorf("bootstrap redis: %w", err)
	}
	defer closeAll(ctx, logg, redisClient)

	pubsubClient, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, pubsub.RoleConsumer, logg)
	if err != nil {
		return fmt.Errorf("bootstrap pubsub: %w", err)
	}
	defer closeAll(ctx, logg, pubsubClient)

	sessions, err := checkout.NewRedisSessionStore(redisClient)
	if err != nil {
		return fmt.Errorf("session store: %w", err)
	}

	promRegistry := prometheus.NewRegistry()
	materializer, err := orders.NewMaterializer(orders.MaterializerParams{
		Repository: orders.NewRepository(dbClient.DB()),
		Tx:         dbClient,
		Sessions:   sessions,
		Loyalty:    loyalty.NewTxLedger(loyalty.NewRepository(dbClient.DB())),
		Outbox:     outbox.NewService(outbox.NewRepository(dbClient.DB()), logg),
		Metrics:    metrics.NewCheckoutMetrics(promRegistry),
		Logger:     logg,
		Options: orders.MaterializerOptions{
			MaxAttempts:  cfg.Checkout.ConfirmMaxAttempts,
			Backoff:      cfg.Checkout.ConfirmBackoff,
			DeliveryLead: time.Duration(cfg.Checkout.DeliveryLeadMinutes) * time.Minute,
		},
	})
	if err != nil {
		return fmt.Errorf("order materializer: %w", err)
	}

	guard, err := idempotency.NewGuard(redisClient, payments.ConsumerName, cfg.Eventing.IdempotencyTTL)
	if err != nil {
		return fmt.Errorf("idempotency guard: %w", err)
	}
	consumer, err := payments.NewConsumer(materializer, pubsubClient.PaymentsSubscription(), guard, logg)
	if err != nil {
		return fmt.Errorf("payments consumer: %w", err)
	}

	service, err := NewService(ServiceParams{
		Logger:   logg,
		DB:       dbClient,
		Redis:    redisClient,
		PubSub:   pubsubClient,
		Payments: consumer,
	})
	if err != nil {
		return fmt.Errorf("worker service: %w", err)
	}

	logg.Info(ctx, "starting worker")
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return metrics.Serve(gctx, ":"+cfg.App.Port, promRegistry) })
	g.Go(func() error { return service.Run(gctx) })
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logg.Info(ctx, "worker shut down gracefully")
	return nil
}

type closer interface {
	Close() error
}

func closeAll(ctx context.Context, logg *logger.Logger, clients ...closer) {
	var err error
	for _, c := range clients {
		err = multierr.Append(err, c.Close())
	}
	if err != nil {
		logg.Error(ctx, "error closing clients", err)
	}
}
