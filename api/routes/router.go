package routes

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jmercado/storefront-backend/api/controllers"
	analyticscontrollers "github.com/jmercado/storefront-backend/api/controllers/analytics"
	webhookcontrollers "github.com/jmercado/storefront-backend/api/controllers/webhooks"
	"github.com/jmercado/storefront-backend/api/middleware"
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
	"github.com/jmercado/storefront-backend/pkg/enums"
	"github.com/jmercado/storefront-backend/pkg/logger"
	"github.com/jmercado/storefront-backend/pkg/metrics"
	"github.com/jmercado/storefront-backend/pkg/redis"
	"github.com/jmercado/storefront-backend/pkg/stripe"
)

// Deps collects everything the router wires into handlers.
type Deps struct {
	Config      *config.Config
	Logger      *logger.Logger
	DB          Pinger
	Redis       *redis.Client
	HTTPMetrics *metrics.HTTPMetrics

	AuthService         authsvc.Service
	UsersService        userssvc.Service
	ProductsService     productsvc.Service
	CartService         cartsvc.Service
	WishlistService     wishlistsvc.Service
	CheckoutService     checkoutsvc.Service
	ClientConfirm       *paymentsvc.ClientConfirmService
	OrdersService       ordersvc.Service
	TestimonialsService testimonialsvc.Service
	ContactService      contactsvc.Service
	AnalyticsService    analytics.Service

	StripeClient       *stripe.Client
	StripeWebhookSvc   *stripewebhook.Service
	StripeWebhookGuard *stripewebhook.IdempotencyGuard
}

// Pinger is satisfied by the Postgres and Redis clients.
type Pinger interface {
	Ping(ctx context.Context) error
}

// NewRouter assembles the full HTTP surface: public storefront reads,
// authenticated buyer routes, admin routes and the Stripe webhook.
func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.Metrics(deps.HTTPMetrics),
		middleware.CORS(),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)
	registerPolicy := middleware.NewAuthRateLimitPolicy(
		"register",
		cfg.AuthRateLimit.RegisterWindow,
		cfg.AuthRateLimit.RegisterIPLimit,
		cfg.AuthRateLimit.RegisterEmailLimit,
	)

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.DB, deps.Redis))
	})

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/stripe", webhookcontrollers.StripeWebhook(deps.StripeWebhookSvc, deps.StripeClient, deps.StripeWebhookGuard, logg))
	})

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(middleware.AuthRateLimit(loginPolicy, deps.Redis, logg)).Post("/login", controllers.Login(deps.AuthService, logg))
		r.With(middleware.AuthRateLimit(registerPolicy, deps.Redis, logg)).Post("/register", controllers.Register(deps.AuthService, logg))
	})

	// Public storefront reads plus the contact form.
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/products", controllers.ListProducts(deps.ProductsService, logg))
		r.Get("/products/{productID}", controllers.GetProduct(deps.ProductsService, logg))
		r.Get("/testimonials", controllers.ListTestimonials(deps.TestimonialsService, logg))
		r.Post("/contact", controllers.SubmitContactMessage(deps.ContactService, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, logg))

			r.Route("/users/me", func(r chi.Router) {
				r.Get("/", controllers.Me(deps.UsersService, logg))
				r.Patch("/", controllers.UpdateMe(deps.UsersService, logg))
			})

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", controllers.GetCart(deps.CartService, logg))
				r.Post("/items", controllers.AddCartItem(deps.CartService, logg))
				r.Patch("/items/{productID}", controllers.UpdateCartItem(deps.CartService, logg))
				r.Delete("/items/{productID}", controllers.RemoveCartItem(deps.CartService, logg))
				r.Delete("/", controllers.ClearCart(deps.CartService, logg))
			})

			r.Route("/wishlist", func(r chi.Router) {
				r.Get("/", controllers.GetWishlist(deps.WishlistService, logg))
				r.Get("/ids", controllers.GetWishlistIDs(deps.WishlistService, logg))
				r.Post("/items", controllers.AddWishlistItem(deps.WishlistService, logg))
				r.Delete("/items/{productID}", controllers.RemoveWishlistItem(deps.WishlistService, logg))
			})

			r.Post("/checkout", controllers.StartCheckout(deps.CheckoutService, logg))
			r.Post("/checkout/confirm", controllers.ConfirmCheckout(deps.ClientConfirm, logg))

			r.Route("/orders", func(r chi.Router) {
				r.Get("/", controllers.ListMyOrders(deps.OrdersService, logg))
				r.Get("/{orderID}", controllers.GetMyOrder(deps.OrdersService, logg))
			})

			r.Post("/testimonials", controllers.SubmitTestimonial(deps.TestimonialsService, logg))
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.RequireRole(string(enums.UserRoleAdmin), logg))

		r.Route("/users", func(r chi.Router) {
			r.Get("/", controllers.AdminListUsers(deps.UsersService, logg))
			r.Patch("/{userID}/active", controllers.AdminSetUserActive(deps.UsersService, logg))
		})

		r.Route("/products", func(r chi.Router) {
			r.Post("/", controllers.AdminCreateProduct(deps.ProductsService, logg))
			r.Patch("/{productID}", controllers.AdminUpdateProduct(deps.ProductsService, logg))
			r.Delete("/{productID}", controllers.AdminDeleteProduct(deps.ProductsService, logg))
		})

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", controllers.AdminListOrders(deps.OrdersService, logg))
			r.Get("/{orderID}", controllers.AdminGetOrder(deps.OrdersService, logg))
			r.Patch("/{orderID}/status", controllers.AdminUpdateOrderStatus(deps.OrdersService, logg))
		})

		r.Route("/testimonials", func(r chi.Router) {
			r.Get("/", controllers.AdminListTestimonials(deps.TestimonialsService, logg))
			r.Post("/{testimonialID}/approve", controllers.AdminApproveTestimonial(deps.TestimonialsService, logg))
			r.Delete("/{testimonialID}", controllers.AdminDeleteTestimonial(deps.TestimonialsService, logg))
		})

		r.Route("/contact", func(r chi.Router) {
			r.Get("/", controllers.AdminListContactMessages(deps.ContactService, logg))
			r.Patch("/{messageID}/status", controllers.AdminUpdateContactStatus(deps.ContactService, logg))
		})

		r.Route("/analytics", func(r chi.Router) {
			r.Get("/overview", analyticscontrollers.Overview(deps.AnalyticsService, logg))
			r.Get("/revenue", analyticscontrollers.RevenueByDay(deps.AnalyticsService, logg))
			r.Get("/top-products", analyticscontrollers.TopProducts(deps.AnalyticsService, logg))
			r.Get("/low-stock", analyticscontrollers.LowStock(deps.AnalyticsService, logg))
		})
	})

	return r
}
