package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pwerioflow/link/internal/service"
	"github.com/pwerioflow/link/internal/storage"
	"github.com/pwerioflow/link/pkg/health"
	"github.com/pwerioflow/link/pkg/middleware"
)

// ServiceName labels metrics and spans.
const ServiceName = "linkbio"

// Services bundles what the router dispatches to.
type Services struct {
	Storefronts   *service.StorefrontService
	Carts         *service.CartService
	Checkout      *service.CheckoutService
	Auth          *service.AuthService
	Admin         *service.AdminService
	Media         *service.MediaService
	QR            *service.QRService
	Orders        *service.OrderService
	Connect       *service.ConnectService
	Subscriptions *service.SubscriptionService
	Webhooks      *service.WebhookService
}

// Options tunes the public edge of the router.
type Options struct {
	CORSOrigins  []string
	RateLimitRPS float64
	RateBurst    int
	// StorefrontMaxAge is the Cache-Control max-age of storefront pages.
	StorefrontMaxAge int
}

// NewRouter creates a chi router with every route registered. ctx bounds
// the rate limiter's background sweep.
func NewRouter(
	ctx context.Context,
	svcs Services,
	files storage.Storage,
	tokens middleware.TokenValidator,
	healthHandler *health.Handler,
	opts Options,
	logger *slog.Logger,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recovery(logger))
	r.Use(chimw.Compress(5))
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.PrometheusMetrics(ServiceName))
	r.Use(middleware.Tracing(ServiceName))
	r.Use(middleware.RequestLogger(logger))

	cors := middleware.DefaultCORSConfig()
	if len(opts.CORSOrigins) > 0 {
		cors.AllowedOrigins = opts.CORSOrigins
	}
	r.Use(middleware.CORS(cors))

	r.Get("/healthz", healthHandler.Liveness)
	r.Get("/readyz", healthHandler.Readiness)
	r.Handle("/metrics", promhttp.Handler())
	r.With(middleware.CacheControl(86400)).Handle(storage.PathPrefix+"*", files)

	storefrontHandler := NewStorefrontHandler(svcs.Storefronts, svcs.Carts, logger)
	checkoutHandler := NewCheckoutHandler(svcs.Checkout, logger)
	authHandler := NewAuthHandler(svcs.Auth, logger)
	adminHandler := NewAdminHandler(svcs.Admin, logger)
	mediaHandler := NewMediaHandler(svcs.Media, logger)
	qrHandler := NewQRHandler(svcs.QR, logger)
	orderHandler := NewOrderHandler(svcs.Orders, logger)
	paymentsHandler := NewPaymentsHandler(svcs.Connect, svcs.Subscriptions, logger)
	webhookHandler := NewWebhookHandler(svcs.Webhooks, logger)

	limit := middleware.RateLimit(ctx, opts.RateLimitRPS, opts.RateBurst, logger)

	r.Route("/api/v1", func(r chi.Router) {
		// Provider callbacks are verified by signature and not rate limited.
		r.Post("/webhooks/stripe", webhookHandler.Receive)

		r.Group(func(r chi.Router) {
			r.Use(ContentTypeJSON)
			r.Use(LimitBody)

			r.Route("/carts/{cartID}", func(r chi.Router) {
				r.Use(middleware.NoStore)

				// Charged once, against the shopper, when it reaches /checkout.
				r.Post("/checkout", storefrontHandler.CheckoutCart)

				r.Group(func(r chi.Router) {
					r.Use(limit)

					r.Get("/", storefrontHandler.GetCart)
					r.Delete("/", storefrontHandler.ClearCart)
					r.Post("/items", storefrontHandler.AddItem)
					r.Patch("/items/{productID}", storefrontHandler.UpdateQuantity)
					r.Delete("/items/{productID}", storefrontHandler.RemoveItem)
					r.Post("/open", storefrontHandler.OpenDrawer)
					r.Post("/close", storefrontHandler.CloseDrawer)
				})
			})

			r.Group(func(r chi.Router) {
				r.Use(limit)

				r.With(middleware.CacheControl(opts.StorefrontMaxAge)).Get("/storefront/{username}", storefrontHandler.GetPage)
				r.With(middleware.NoStore).Post("/checkout", checkoutHandler.CreateSession)

				r.Route("/auth", func(r chi.Router) {
					r.Use(middleware.NoStore)
					r.Post("/register", authHandler.Register)
					r.Post("/login", authHandler.Login)
				})
			})
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.Auth(tokens))
			r.Use(middleware.NoStore)
			r.Use(ContentTypeJSON)

			// Uploads set their own body limit.
			r.Post("/uploads", mediaHandler.Upload)

			r.Group(func(r chi.Router) {
				r.Use(LimitBody)

				r.Get("/dashboard", adminHandler.Dashboard)
				r.Put("/profile", adminHandler.UpdateProfile)
				r.Delete("/profile/hero", adminHandler.RemoveHeroBanner)
				r.Put("/settings", adminHandler.UpdateSettings)

				r.Post("/links", adminHandler.CreateLink)
				r.Put("/links/{id}", adminHandler.UpdateLink)
				r.Delete("/links/{id}", adminHandler.DeleteLink)

				r.Post("/products", adminHandler.CreateProduct)
				r.Put("/products/{id}", adminHandler.UpdateProduct)
				r.Delete("/products/{id}", adminHandler.DeleteProduct)

				r.Get("/qr", qrHandler.Info)
				r.Get("/qr.png", qrHandler.PNG)
				r.Post("/qr/reset", qrHandler.Reset)

				r.Get("/orders", orderHandler.List)
				r.Get("/orders/export", orderHandler.Export)

				r.Post("/connect", paymentsHandler.Connect)
				r.Post("/connect/refresh", paymentsHandler.Refresh)
				r.Get("/connect/status", paymentsHandler.Status)

				r.Get("/subscription", paymentsHandler.Subscription)
				r.Post("/subscription", paymentsHandler.Subscribe)
				r.Post("/subscription/cancel", paymentsHandler.CancelSubscription)
			})
		})
	})

	return r
}
