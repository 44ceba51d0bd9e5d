package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"

	"github.com/nvasquez/stagefront-backend/api/routes"
	"github.com/nvasquez/stagefront-backend/internal/cart"
	"github.com/nvasquez/stagefront-backend/internal/checkout"
	"github.com/nvasquez/stagefront-backend/internal/fulfillment"
	"github.com/nvasquez/stagefront-backend/internal/payments"
	"github.com/nvasquez/stagefront-backend/internal/purchase"
	"github.com/nvasquez/stagefront-backend/pkg/config"
	"github.com/nvasquez/stagefront-backend/pkg/db"
	"github.com/nvasquez/stagefront-backend/pkg/flags"
	"github.com/nvasquez/stagefront-backend/pkg/logger"
	"github.com/nvasquez/stagefront-backend/pkg/metrics"
	"github.com/nvasquez/stagefront-backend/pkg/migrate"
	"github.com/nvasquez/stagefront-backend/pkg/redis"
	"github.com/nvasquez/stagefront-backend/pkg/stripe"
)

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

	redisClient, err := redis.New(context.Background(), cfg.Redis)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := multierr.Append(dbClient.Close(), redisClient.Close()); err != nil {
			logg.Error(context.Background(), "error closing clients", err)
		}
	}()

	cartStorage, err := cart.NewRedisStorage(redisClient)
	if err != nil {
		logg.Error(context.Background(), "failed to create cart storage", err)
		os.Exit(1)
	}
	cartService, err := cart.NewService(cartStorage)
	if err != nil {
		logg.Error(context.Background(), "failed to create cart service", err)
		os.Exit(1)
	}

	paymentsGate := flags.NewGate(cfg.Payments.Enabled)

	checkoutService, err := checkout.NewService(cfg.Commerce, paymentsGate, cartService, nil, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create checkout service", err)
		os.Exit(1)
	}

	intentClient, err := payments.NewIntentClient(cfg.Payments, cfg.JWT, nil, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create intent client", err)
		os.Exit(1)
	}

	stripeClient, err := stripe.NewClient(context.Background(), cfg.Stripe, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create stripe client", err)
		os.Exit(1)
	}
	processor, err := payments.NewStripeProcessor(stripeClient)
	if err != nil {
		logg.Error(context.Background(), "failed to create payment processor", err)
		os.Exit(1)
	}

	fulfillmentRepo := fulfillment.NewRepository(dbClient.DB())
	fulfillmentService, err := fulfillment.NewService(dbClient, fulfillmentRepo, cartService, redisClient, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create fulfillment service", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	purchaseMetrics := metrics.NewPurchaseMetrics(registry)

	purchaseService, err := purchase.NewService(
		paymentsGate,
		intentClient,
		processor,
		fulfillmentService,
		purchaseMetrics,
		logg,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create purchase service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":              cfg.App.Env,
		"addr":             addr,
		"payments_enabled": paymentsGate.Enabled(),
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			dbClient,
			redisClient,
			cartService,
			checkoutService,
			purchaseService,
			fulfillmentService,
			registry,
		),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
