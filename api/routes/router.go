package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/papelisco/storefront/api/controllers"
	"github.com/papelisco/storefront/api/middleware"
	"github.com/papelisco/storefront/internal/auth"
	"github.com/papelisco/storefront/internal/checkout"
	"github.com/papelisco/storefront/internal/dashboard"
	"github.com/papelisco/storefront/internal/orders"
	"github.com/papelisco/storefront/internal/products"
	"github.com/papelisco/storefront/internal/wishlist"
	"github.com/papelisco/storefront/pkg/auth/session"
	"github.com/papelisco/storefront/pkg/config"
	"github.com/papelisco/storefront/pkg/enums"
	"github.com/papelisco/storefront/pkg/logger"
	"github.com/papelisco/storefront/pkg/metrics"
	"github.com/papelisco/storefront/pkg/redis"
)

// Deps is everything the HTTP surface needs. Nil stores disable the middleware that uses them.
type Deps struct {
	Config      *config.Config
	Logger      *logger.Logger
	Sessions    session.AccessSessionChecker
	RateLimiter redis.RateLimiter
	Idempotency redis.IdempotencyStore
	Health      map[string]controllers.Pinger
	Metrics     *metrics.HTTPMetrics
	Gatherer    prometheus.Gatherer

	Auth      auth.Service
	Products  products.Service
	Wishlist  wishlist.Service
	Checkout  checkout.Service
	Orders    orders.Service
	Dashboard dashboard.Service
}

func NewRouter(d Deps) http.Handler {
	cfg, logg := d.Config, d.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.Metrics(d.Metrics),
		middleware.CORS(cfg.CORS),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, d.Health))
	})
	if d.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{}))
	}

	authenticate := middleware.Auth(cfg.JWT, d.Sessions, logg)
	idempotent := middleware.Idempotency(d.Idempotency, logg)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.With(middleware.AuthRateLimit(middleware.LoginRateLimitPolicy(cfg.AuthRateLimit), d.RateLimiter, logg)).
				Post("/login", controllers.AuthLogin(d.Auth, logg))
			r.With(middleware.AuthRateLimit(middleware.RegisterRateLimitPolicy(cfg.AuthRateLimit), d.RateLimiter, logg), idempotent).
				Post("/register", controllers.AuthRegister(d.Auth, logg))
			r.Post("/refresh", controllers.AuthRefresh(d.Auth, logg))
			r.Post("/logout", controllers.AuthLogout(d.Auth, logg))
			r.With(authenticate).Get("/me", controllers.AuthMe(d.Auth, logg))
			r.With(authenticate).Put("/me", controllers.AuthUpdateMe(d.Auth, logg))
		})

		r.Route("/products", func(r chi.Router) {
			r.Get("/", controllers.ProductsList(d.Products, logg))
			r.Get("/{id}", controllers.ProductGet(d.Products, logg))
			r.Get("/{id}/related", controllers.ProductRelated(d.Products, logg))
		})

		r.Group(func(r chi.Router) {
			r.Use(authenticate, idempotent)

			r.Route("/wishlist", func(r chi.Router) {
				r.Get("/", controllers.WishlistList(d.Wishlist, logg))
				r.Post("/", controllers.WishlistAdd(d.Wishlist, logg))
				r.Delete("/{productId}", controllers.WishlistRemove(d.Wishlist, logg))
			})
			r.Post("/checkout", controllers.Checkout(d.Checkout, logg))
			r.Route("/orders", func(r chi.Router) {
				r.Get("/", controllers.OrdersList(d.Orders, logg))
				r.Get("/{id}", controllers.OrderGet(d.Orders, logg))
			})
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(authenticate, middleware.RequireRole(enums.UserRoleAdmin, logg), idempotent)
			r.Get("/dashboard", controllers.AdminDashboard(d.Dashboard, logg))
			r.Patch("/orders/{id}/status", controllers.AdminUpdateOrderStatus(d.Orders, logg))
		})
	})

	return r
}
