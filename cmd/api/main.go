package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/multierr"

	"github.com/papelisco/storefront/api"
	"github.com/papelisco/storefront/api/controllers"
	"github.com/papelisco/storefront/api/routes"
	"github.com/papelisco/storefront/internal/auth"
	"github.com/papelisco/storefront/internal/checkout"
	"github.com/papelisco/storefront/internal/dashboard"
	"github.com/papelisco/storefront/internal/orders"
	"github.com/papelisco/storefront/internal/products"
	"github.com/papelisco/storefront/internal/users"
	"github.com/papelisco/storefront/internal/wishlist"
	"github.com/papelisco/storefront/pkg/auth/session"
	"github.com/papelisco/storefront/pkg/config"
	"github.com/papelisco/storefront/pkg/db"
	"github.com/papelisco/storefront/pkg/logger"
	"github.com/papelisco/storefront/pkg/metrics"
	"github.com/papelisco/storefront/pkg/migrate"
	"github.com/papelisco/storefront/pkg/outbox"
	"github.com/papelisco/storefront/pkg/redis"
)

const serviceName = "api"

func main() {
	logg := logger.New(logger.Options{ServiceName: serviceName})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}
	cfg.Service.Kind = serviceName

	logg = logger.New(logger.Options{
		ServiceName: serviceName,
		Level:       cfg.App.LogLevel,
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logg); err != nil {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(ctx, "api server shut down gracefully")
}

func run(ctx context.Context, cfg *config.Config, logg *logger.Logger) (err error) {
	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, dbClient.Close()) }()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		return err
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, redisClient.Close()) }()

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		return err
	}

	policy, err := cfg.Pricing.Policy()
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	conn := dbClient.DB()
	events := outbox.NewService(outbox.NewRepository(conn), logg)
	productsRepo := products.NewRepository(conn)
	ordersRepo := orders.NewRepository(conn)

	authService, err := auth.NewService(auth.ServiceParams{
		DB:              dbClient,
		UserRepo:        users.NewRepository(conn),
		SessionManager:  sessionManager,
		Outbox:          events,
		JWTConfig:       cfg.JWT,
		PasswordConfig:  cfg.Password,
		RequireVerified: cfg.Auth.RequireVerified,
		Logger:          logg,
	})
	if err != nil {
		return err
	}
	productService, err := products.NewService(productsRepo)
	if err != nil {
		return err
	}
	wishlistService, err := wishlist.NewService(wishlist.NewRepository(conn), productsRepo)
	if err != nil {
		return err
	}
	ordersService, err := orders.NewService(ordersRepo, dbClient, events)
	if err != nil {
		return err
	}
	checkoutService, err := checkout.NewService(checkout.ServiceParams{
		Tx:       dbClient,
		Orders:   ordersRepo,
		Products: productsRepo,
		Outbox:   events,
		Policy:   policy,
		Currency: cfg.Pricing.Currency,
		Metrics:  metrics.NewCheckoutMetrics(reg),
		Logger:   logg,
	})
	if err != nil {
		return err
	}
	dashboardService, err := dashboard.NewService(dashboard.NewRepository(conn), nil)
	if err != nil {
		return err
	}

	handler := routes.NewRouter(routes.Deps{
		Config:      cfg,
		Logger:      logg,
		Sessions:    sessionManager,
		RateLimiter: redisClient,
		Idempotency: redisClient,
		Health: map[string]controllers.Pinger{
			"database": dbClient,
			"redis":    redisClient,
		},
		Metrics:   metrics.NewHTTPMetrics(reg),
		Gatherer:  reg,
		Auth:      authService,
		Products:  productService,
		Wishlist:  wishlistService,
		Checkout:  checkoutService,
		Orders:    ordersService,
		Dashboard: dashboardService,
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	logCtx := logg.WithFields(ctx, map[string]any{
		"env":     cfg.App.Env,
		"addr":    addr,
		"started": time.Now().UTC().Format(time.RFC3339),
	})
	logg.Info(logCtx, "starting api server")

	return api.Serve(ctx, api.NewServer(addr, handler), logg)
}
