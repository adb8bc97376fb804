package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mehadihasan/bazarly-backend/api/controllers"
	"github.com/mehadihasan/bazarly-backend/api/middleware"
	"github.com/mehadihasan/bazarly-backend/internal/addresses"
	authsvc "github.com/mehadihasan/bazarly-backend/internal/auth"
	"github.com/mehadihasan/bazarly-backend/internal/cart"
	"github.com/mehadihasan/bazarly-backend/internal/catalog"
	"github.com/mehadihasan/bazarly-backend/internal/orders"
	"github.com/mehadihasan/bazarly-backend/internal/payments"
	"github.com/mehadihasan/bazarly-backend/pkg/auth/session"
	"github.com/mehadihasan/bazarly-backend/pkg/config"
	"github.com/mehadihasan/bazarly-backend/pkg/db"
	"github.com/mehadihasan/bazarly-backend/pkg/logger"
	"github.com/mehadihasan/bazarly-backend/pkg/metrics"
	redispkg "github.com/mehadihasan/bazarly-backend/pkg/redis"
)

// Deps carries everything the HTTP surface needs.
type Deps struct {
	Config      *config.Config
	Logger      *logger.Logger
	DB          db.Pinger
	Redis       *redispkg.Client
	Sessions    session.AccessSessionChecker
	HTTPMetrics *metrics.HTTPMetrics
	Registry    *prometheus.Registry

	Auth      authsvc.Service
	Catalog   catalog.Service
	Cart      cart.Service
	Addresses addresses.Service
	Orders    orders.Service
	Payments  payments.Service
}

func NewRouter(d Deps) http.Handler {
	cfg := d.Config
	logg := d.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)
	if d.HTTPMetrics != nil {
		r.Use(middleware.Metrics(d.HTTPMetrics))
	}

	// A typed-nil redis client must not slip into the interface params.
	var (
		limiter middleware.RateLimiterStore
		cache   redispkg.Pinger
	)
	if d.Redis != nil {
		limiter = d.Redis
		cache = d.Redis
	}

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)
	forgotPolicy := middleware.NewAuthRateLimitPolicy(
		"forgot-password",
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

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, d.DB, cache, logg))
	})
	if d.Registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(d.Registry, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		// Public surface.
		r.Route("/auth", func(r chi.Router) {
			r.With(middleware.AuthRateLimit(registerPolicy, limiter, logg)).
				Post("/register", controllers.AuthRegister(d.Auth, logg))
			r.With(middleware.AuthRateLimit(loginPolicy, limiter, logg)).
				Post("/login", controllers.AuthLogin(d.Auth, logg))
			r.Post("/refresh", controllers.AuthRefresh(d.Auth, logg))
			r.Post("/verify-email", controllers.AuthVerifyEmail(d.Auth, logg))
			r.With(middleware.AuthRateLimit(forgotPolicy, limiter, logg)).
				Post("/forgot-password", controllers.AuthForgotPassword(d.Auth, logg))
			r.Post("/reset-password", controllers.AuthResetPassword(d.Auth, logg))
			r.With(middleware.Auth(cfg.JWT, d.Sessions, logg)).
				Post("/logout", controllers.AuthLogout(d.Auth, logg))
		})

		r.Get("/products", controllers.ProductsList(d.Catalog, logg))
		r.Get("/products/{productId}", controllers.ProductsGet(d.Catalog, logg))
		r.Get("/categories", controllers.CategoriesList(d.Catalog, logg))

		// Gateway-invoked callbacks; the gateway cannot present a bearer token.
		r.Route("/payment", func(r chi.Router) {
			r.Get("/success/{tranId}", controllers.PaymentSuccess(d.Payments, logg))
			r.Get("/fail", controllers.PaymentFail(d.Payments, logg))
			r.Post("/fail", controllers.PaymentFail(d.Payments, logg))
			r.Get("/cancel", controllers.PaymentCancel(d.Payments, logg))
			r.Post("/cancel", controllers.PaymentCancel(d.Payments, logg))
			r.Post("/ipn", controllers.PaymentIPN(d.Payments, logg))

			r.With(middleware.Auth(cfg.JWT, d.Sessions, logg)).
				Post("/initiate", controllers.PaymentInitiate(d.Payments, logg))
		})

		// Authenticated surface.
		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, d.Sessions, logg))

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", controllers.CartGet(d.Cart, logg))
				r.Post("/add", controllers.CartAdd(d.Cart, logg))
				r.Put("/update", controllers.CartUpdate(d.Cart, logg))
				r.Delete("/remove", controllers.CartRemove(d.Cart, logg))
				r.Delete("/clear", controllers.CartClear(d.Cart, logg))
			})

			r.Route("/orders", func(r chi.Router) {
				r.Post("/", controllers.OrdersCreate(d.Orders, logg))
				r.Get("/{orderId}", controllers.OrdersGet(d.Orders, logg))
				r.Get("/by-user/{userId}", controllers.OrdersListByUser(d.Orders, logg))
				r.Put("/{orderId}/status", controllers.OrdersUpdateStatus(d.Orders, logg))
				r.Put("/{orderId}/cancel", controllers.OrdersCancel(d.Orders, logg))
			})

			r.Route("/addresses", func(r chi.Router) {
				r.Get("/", controllers.AddressesList(d.Addresses, logg))
				r.Post("/", controllers.AddressesCreate(d.Addresses, logg))
				r.Put("/{addressId}/default", controllers.AddressesSetDefault(d.Addresses, logg))
				r.Delete("/{addressId}", controllers.AddressesDelete(d.Addresses, logg))
			})
		})

		// Admin surface.
		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, d.Sessions, logg))
			r.Use(middleware.RequireAdmin(logg))

			r.Get("/orders", controllers.OrdersListAll(d.Orders, logg))
			r.Delete("/orders/{orderId}", controllers.OrdersDelete(d.Orders, logg))
			r.Post("/products", controllers.ProductsCreate(d.Catalog, logg))
			r.Post("/categories", controllers.CategoriesCreate(d.Catalog, logg))
			r.Post("/auth/register", controllers.AuthRegisterAdmin(d.Auth, logg))
		})
	})

	return r
}
