package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/marketplace-checkout/api/controllers"
	ordercontrollers "github.com/angelmondragon/marketplace-checkout/api/controllers/orders"
	webhookcontrollers "github.com/angelmondragon/marketplace-checkout/api/controllers/webhooks"
	"github.com/angelmondragon/marketplace-checkout/api/middleware"
	checkoutsvc "github.com/angelmondragon/marketplace-checkout/internal/checkout"
	"github.com/angelmondragon/marketplace-checkout/internal/orders"
	"github.com/angelmondragon/marketplace-checkout/pkg/config"
	"github.com/angelmondragon/marketplace-checkout/pkg/db"
	"github.com/angelmondragon/marketplace-checkout/pkg/logger"
	"github.com/angelmondragon/marketplace-checkout/pkg/metrics"
	"github.com/angelmondragon/marketplace-checkout/pkg/redis"
)

type redisStore interface {
	redis.IdempotencyStore
	redis.Pinger
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient redisStore,
	gatherer prometheus.Gatherer,
	checkoutService checkoutsvc.Service,
	materializer controllers.PaymentConfirmer,
	ordersService orders.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, map[string]controllers.Pinger{
			"db":    dbP,
			"redis": redisClient,
		}))
	})
	if gatherer != nil {
		r.Handle("/metrics", metrics.Handler(gatherer))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Idempotency(redisClient, cfg.Checkout.IdempotencyKeyTTL, logg))

		r.Route("/checkout/sessions", func(r chi.Router) {
			r.Post("/", controllers.CreateCheckoutSession(checkoutService, logg))
			r.Post("/{sessionId}/confirm", controllers.ConfirmCheckoutSession(materializer, logg))
			r.Get("/{sessionId}/orders", controllers.CheckoutSessionOrders(ordersService, logg))
		})

		r.Route("/orders/{orderId}", func(r chi.Router) {
			r.Get("/", ordercontrollers.Detail(ordersService, logg))
			r.Post("/status", ordercontrollers.UpdateStatus(ordersService, logg))
		})

		r.Get("/customers/{customerId}/orders", ordercontrollers.ListByCustomer(ordersService, logg))
		r.Get("/loyalty/{customerId}", controllers.LoyaltySummary(checkoutService, logg))

		r.Post("/webhooks/payments", webhookcontrollers.PaymentConfirmed(materializer, logg))
	})

	return r
}
