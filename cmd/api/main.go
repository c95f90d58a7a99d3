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
	"go.uber.org/multierr"

	"github.com/jmercado/storefront-backend/api/routes"
	"github.com/jmercado/storefront-backend/internal/analytics"
	authsvc "github.com/jmercado/storefront-backend/internal/auth"
	cartsvc "github.com/jmercado/storefront-backend/internal/cart"
	checkoutsvc "github.com/jmercado/storefront-backend/internal/checkout"
	contactsvc "github.com/jmercado/storefront-backend/internal/contact"
	ordersvc "github.com/jmercado/storefront-backend/internal/orders"
	paymentsvc "github.com/jmercado/storefront-backend/internal/payments"
	productsvc "github.com/jmercado/storefront-backend/internal/products"
	testimonialsvc "github.com/jmercado/storefront-backend/internal/testimonials"
	userssvc "github.com/jmercado/storefront-backend/internal/users"
	stripewebhook "github.com/jmercado/storefront-backend/internal/webhooks/stripe"
	wishlistsvc "github.com/jmercado/storefront-backend/internal/wishlist"
	"github.com/jmercado/storefront-backend/pkg/config"
	"github.com/jmercado/storefront-backend/pkg/db"
	"github.com/jmercado/storefront-backend/pkg/logger"
	"github.com/jmercado/storefront-backend/pkg/metrics"
	"github.com/jmercado/storefront-backend/pkg/migrate"
	"github.com/jmercado/storefront-backend/pkg/redis"
	"github.com/jmercado/storefront-backend/pkg/stripe"
)

const stripeWebhookScope = "stripe_webhook"

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

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}

	stripeClient, err := stripe.NewClient(context.Background(), cfg.Stripe, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap stripe client", err)
		os.Exit(1)
	}

	deps, err := buildServices(cfg, logg, dbClient, redisClient, stripeClient)
	if err != nil {
		logg.Error(context.Background(), "failed to wire services", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port

	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:              addr,
		Handler:           routes.NewRouter(deps),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
		}
	case sig := <-stop:
		logg.Info(logg.WithField(ctx, "signal", sig.String()), "shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "graceful shutdown failed", err)
		}
	}

	if err := multierr.Combine(dbClient.Close(), redisClient.Close()); err != nil {
		logg.Error(ctx, "error closing clients", err)
		os.Exit(1)
	}
}

func buildServices(
	cfg *config.Config,
	logg *logger.Logger,
	dbClient *db.Client,
	redisClient *redis.Client,
	stripeClient *stripe.Client,
) (routes.Deps, error) {
	gormDB := dbClient.DB()

	usersRepo := userssvc.NewRepository(gormDB)
	productsRepo := productsvc.NewRepository(gormDB)
	cartRepo := cartsvc.NewRepository(gormDB)
	ordersRepo := ordersvc.NewRepository(gormDB)
	wishlistRepo := wishlistsvc.NewRepository(gormDB)
	testimonialsRepo := testimonialsvc.NewRepository(gormDB)
	contactRepo := contactsvc.NewRepository(gormDB)

	authService, err := authsvc.NewService(authsvc.ServiceParams{
		UserRepo:       usersRepo,
		JWTConfig:      cfg.JWT,
		PasswordConfig: cfg.Password,
	})
	if err != nil {
		return routes.Deps{}, err
	}

	usersService, err := userssvc.NewService(userssvc.ServiceParams{Repo: usersRepo, Logger: logg})
	if err != nil {
		return routes.Deps{}, err
	}

	productsService, err := productsvc.NewService(productsRepo, dbClient)
	if err != nil {
		return routes.Deps{}, err
	}

	cartService, err := cartsvc.NewService(cartRepo, productsRepo)
	if err != nil {
		return routes.Deps{}, err
	}

	wishlistService, err := wishlistsvc.NewService(wishlistRepo, productsRepo)
	if err != nil {
		return routes.Deps{}, err
	}

	ordersService, err := ordersvc.NewService(ordersRepo)
	if err != nil {
		return routes.Deps{}, err
	}

	checkoutService, err := checkoutsvc.NewService(checkoutsvc.ServiceParams{
		TxRunner:       dbClient,
		CartRepo:       cartRepo,
		OrdersRepo:     ordersRepo,
		ProductRepo:    productsRepo,
		StripeClient:   checkoutsvc.NewStripeClient(stripeClient),
		CartLocker:     redisClient,
		StripeConfig:   cfg.Stripe,
		CheckoutConfig: cfg.Checkout,
	})
	if err != nil {
		return routes.Deps{}, err
	}

	paymentsService, err := paymentsvc.NewService(paymentsvc.ServiceParams{
		TxRunner:    dbClient,
		OrdersRepo:  ordersRepo,
		CartRepo:    cartRepo,
		ProductRepo: paymentsvc.StockSource{Repo: productsRepo},
		Logger:      logg,
	})
	if err != nil {
		return routes.Deps{}, err
	}

	clientConfirm, err := paymentsvc.NewClientConfirmService(checkoutsvc.NewStripeClient(stripeClient), paymentsService)
	if err != nil {
		return routes.Deps{}, err
	}

	webhookService, err := stripewebhook.NewService(paymentsService, logg)
	if err != nil {
		return routes.Deps{}, err
	}

	webhookGuard, err := stripewebhook.NewIdempotencyGuard(redisClient, cfg.Stripe.EventDedupTTL, stripeWebhookScope)
	if err != nil {
		return routes.Deps{}, err
	}

	testimonialsService, err := testimonialsvc.NewService(testimonialsRepo)
	if err != nil {
		return routes.Deps{}, err
	}

	contactService, err := contactsvc.NewService(contactRepo)
	if err != nil {
		return routes.Deps{}, err
	}

	analyticsService, err := analytics.NewService(gormDB)
	if err != nil {
		return routes.Deps{}, err
	}

	return routes.Deps{
		Config:      cfg,
		Logger:      logg,
		DB:          dbClient,
		Redis:       redisClient,
		HTTPMetrics: metrics.NewHTTPMetrics(prometheus.DefaultRegisterer),

		AuthService:         authService,
		UsersService:        usersService,
		ProductsService:     productsService,
		CartService:         cartService,
		WishlistService:     wishlistService,
		CheckoutService:     checkoutService,
		ClientConfirm:       clientConfirm,
		OrdersService:       ordersService,
		TestimonialsService: testimonialsService,
		ContactService:      contactService,
		AnalyticsService:    analyticsService,

		StripeClient:       stripeClient,
		StripeWebhookSvc:   webhookService,
		StripeWebhookGuard: webhookGuard,
	}, nil
}
