package app

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/noah-isme/marketplace-cart/internal/cart"
	"github.com/noah-isme/marketplace-cart/internal/checkout"
	"github.com/noah-isme/marketplace-cart/internal/common"
	"github.com/noah-isme/marketplace-cart/internal/health"
	"github.com/noah-isme/marketplace-cart/internal/obs"
	"github.com/noah-isme/marketplace-cart/internal/ratelimit"
	"github.com/noah-isme/marketplace-cart/internal/security"
	"github.com/noah-isme/marketplace-cart/internal/voucher"
)

// Services are the domain services mounted by the router.
type Services struct {
	Cart     *cart.Service
	Checkout *checkout.Service
}

// NewServices builds the cart and checkout services from the shared dependencies.
func NewServices(d *Dependencies) Services {
	cfg := d.Config
	return Services{
		Cart: &cart.Service{
			Options: cart.Options{
				Coupons:   d.Coupons,
				MinQty:    cfg.QuantityMin,
				MaxQty:    cfg.QuantityMax,
				NoticeTTL: cfg.CouponNoticeTTL,
			},
			Handoff: d.Handoff,
			Events:  d.Events,
			Logger:  d.Logger.With().Str("component", "cart").Logger(),
			Seeds:   DefaultCatalog(),
		},
		Checkout: &checkout.Service{
			Store:   d.Handoff,
			Coupons: d.Coupons,
			Delay:   cfg.CheckoutDelay,
			Events:  d.Events,
			Logger:  d.Logger.With().Str("component", "checkout").Logger(),
		},
	}
}

// NewRouter mounts the storefront API, health and metrics endpoints.
func NewRouter(d *Dependencies, svcs Services) http.Handler {
	cartHandler := &cart.Handler{Svc: svcs.Cart}
	checkoutHandler := &checkout.Handler{Svc: svcs.Checkout}
	couponHandler := &voucher.Handler{Table: d.Coupons}
	couponLimit := ratelimit.Handler{
		Limiter: d.CouponLimiter,
		Name:    "coupon",
		OnError: func(err error) { d.Logger.Warn().Err(err).Msg("coupon rate limiter unavailable") },
	}.Middleware

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if d.Tracing {
		r.Use(obs.TracingMiddleware)
	}
	if d.HTTPMetrics != nil {
		r.Use(obs.HTTPObs{Metrics: d.HTTPMetrics}.Middleware)
	}
	r.Use(obs.RequestLogger{Logger: d.Logger}.Middleware)
	r.Use(security.Headers{Enable: d.Config.SecurityHeaders, EnableHSTS: d.Config.EnableHSTS}.Middleware)
	r.Use(security.BodyLimit{Max: common.MaxBodyBytes}.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins(d.Config.CORSAllowedOrigins),
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
		ExposedHeaders: []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset", "Retry-After"},
		MaxAge:         300,
	}))

	if d.HTTPMetrics != nil && d.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{}))
	}

	healthHandler := health.Handler{Probes: d.Probes, Timeout: 300 * time.Millisecond}
	r.Get("/health/live", healthHandler.Live)
	r.Get("/health/ready", healthHandler.Ready)

	r.Route("/api/v1", func(v chi.Router) {
		v.Route("/carts", func(c chi.Router) {
			c.Post("/", cartHandler.Create)
			c.Get("/{id}", cartHandler.Get)
			c.Post("/{id}/items", cartHandler.AddItem)
			c.Delete("/{id}/items", cartHandler.Clear)
			c.Patch("/{id}/items/{itemId}", cartHandler.UpdateItem)
			c.Delete("/{id}/items/{itemId}", cartHandler.RemoveItem)
			c.With(couponLimit).Post("/{id}/coupon", cartHandler.ApplyCoupon)
			c.Delete("/{id}/coupon", cartHandler.RemoveCoupon)
			c.Post("/{id}/checkout", cartHandler.Checkout)
		})

		v.Route("/checkout/{id}", func(c chi.Router) {
			c.Post("/", checkoutHandler.Begin)
			c.Get("/", checkoutHandler.Get)
			c.With(couponLimit).Post("/coupon", checkoutHandler.ApplyCoupon)
			c.Put("/payment", checkoutHandler.SetPaymentMethod)
			c.Post("/order", checkoutHandler.PlaceOrder)
		})

		v.With(couponLimit).Post("/coupons/preview", couponHandler.Preview)
	})

	return r
}

func allowedOrigins(origins []string) []string {
	if len(origins) == 0 {
		return []string{"*"}
	}
	return origins
}
