package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nvasquez/stagefront-backend/api/controllers"
	"github.com/nvasquez/stagefront-backend/api/middleware"
	"github.com/nvasquez/stagefront-backend/internal/cart"
	checkoutsvc "github.com/nvasquez/stagefront-backend/internal/checkout"
	fulfillmentsvc "github.com/nvasquez/stagefront-backend/internal/fulfillment"
	purchasesvc "github.com/nvasquez/stagefront-backend/internal/purchase"
	"github.com/nvasquez/stagefront-backend/pkg/config"
	"github.com/nvasquez/stagefront-backend/pkg/db"
	"github.com/nvasquez/stagefront-backend/pkg/logger"
	"github.com/nvasquez/stagefront-backend/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	cartService cart.Service,
	checkoutService checkoutsvc.Service,
	purchaseService purchasesvc.Service,
	fulfillmentService fulfillmentsvc.Service,
	metricsGatherer prometheus.Gatherer,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	var redisP redis.Pinger
	if redisClient != nil {
		redisP = redisClient
	}
	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisP))
	})

	if metricsGatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(metricsGatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Session(cfg.JWT, logg))

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", controllers.CartView(cartService, logg))
			r.Post("/lines", controllers.CartAdd(cartService, logg))
			r.Patch("/lines/{variantID}", controllers.CartUpdateQuantity(cartService, logg))
			r.Delete("/lines/{variantID}", controllers.CartRemove(cartService, logg))
			r.Delete("/", controllers.CartClear(cartService, logg))
		})

		r.Route("/checkout", func(r chi.Router) {
			r.Post("/session", controllers.CheckoutInitialize(checkoutService, logg))
			r.Post("/complete", controllers.CheckoutComplete(checkoutService, logg))
		})

		r.Route("/purchase", func(r chi.Router) {
			r.Post("/attempts", controllers.PurchaseOpen(purchaseService, logg))
			r.Get("/attempts/{attemptID}", controllers.PurchaseAttempt(purchaseService, logg))
			r.Post("/attempts/{attemptID}/confirm/wallet", controllers.PurchaseConfirmWallet(purchaseService, logg))
			r.Post("/attempts/{attemptID}/confirm/card", controllers.PurchaseConfirmCard(purchaseService, logg))
			r.Delete("/attempts/{attemptID}", controllers.PurchaseClose(purchaseService, logg))
		})

		r.Get("/funding-total", controllers.FundingTotal(fulfillmentService, logg))

		r.With(middleware.RequireUser(logg)).
			Get("/account/credits", controllers.AccountCredits(fulfillmentService, logg))
	})

	return r
}
