package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Aimecol/hforher/internal/service"
	"github.com/Aimecol/hforher/pkg/health"
	"github.com/Aimecol/hforher/pkg/middleware"
)

// RouterConfig carries everything the router mounts.
type RouterConfig struct {
	Cart     *service.CartService
	Wishlist *service.WishlistService
	Catalog  *service.CatalogService
	Checkout *service.CheckoutService
	Health   *health.Handler
	Logger   *slog.Logger

	CORS            middleware.CORSConfig
	OrderLimiter    *middleware.RateLimiter
	PprofCIDRs      []string
	RequestTimeout  time.Duration
	CatalogCacheTTL time.Duration
}

// NewRouter creates a chi router with all storefront routes registered.
func NewRouter(cfg RouterConfig) http.Handler {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}
	l := cfg.Logger
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recovery(l))
	r.Use(middleware.CORS(cfg.CORS))
	r.Use(chimw.Compress(5))
	r.Use(chimw.Timeout(cfg.RequestTimeout))
	r.Use(middleware.RequestLogging(l))
	r.Use(middleware.Metrics)
	r.Use(middleware.Tracing)
	r.Use(middleware.RequestLogger(l))

	// Health check endpoints
	r.Get("/health/live", cfg.Health.LivenessHandler())
	r.Get("/health/ready", cfg.Health.ReadinessHandler())
	r.Handle("/metrics", promhttp.Handler())

	middleware.RegisterPprof(r, cfg.PprofCIDRs, l)

	cartHandler := NewCartHandler(cfg.Cart, l)
	wishlistHandler := NewWishlistHandler(cfg.Wishlist, l)
	catalogHandler := NewCatalogHandler(cfg.Catalog, l)
	checkoutHandler := NewCheckoutHandler(cfg.Checkout, l)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(ContentTypeJSON)

		r.Group(func(r chi.Router) {
			if cfg.CatalogCacheTTL > 0 {
				r.Use(middleware.CacheControl(cfg.CatalogCacheTTL))
			}

			r.Get("/products", catalogHandler.ListProducts)
			r.Get("/products/featured", catalogHandler.Featured)
			r.Get("/products/trending", catalogHandler.Trending)
			r.Get("/products/new", catalogHandler.NewArrivals)
			r.Get("/products/{slug}", catalogHandler.GetProduct)
			r.Get("/products/{slug}/recommendations", catalogHandler.Recommendations)
			r.Get("/search", catalogHandler.Search)
			r.Get("/categories", catalogHandler.Categories)
			r.Get("/categories/{slug}", catalogHandler.GetCategory)
			r.Get("/categories/{slug}/products", catalogHandler.CategoryProducts)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.NoStore)
			r.Use(Session(l))

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", cartHandler.GetCart)
				r.Delete("/", cartHandler.ClearCart)
				r.Post("/items", cartHandler.AddItem)
				r.Put("/items/{lineId}", cartHandler.UpdateItemQuantity)
				r.Delete("/items/{lineId}", cartHandler.RemoveItem)
				r.Post("/toggle", cartHandler.ToggleCart)
				r.Put("/open", cartHandler.SetCartOpen)
			})

			r.Route("/wishlist", func(r chi.Router) {
				r.Get("/", wishlistHandler.GetWishlist)
				r.Delete("/", wishlistHandler.ClearWishlist)
				r.Post("/items", wishlistHandler.AddItem)
				r.Delete("/items/{productId}", wishlistHandler.RemoveItem)
				r.Post("/items/{productId}/toggle", wishlistHandler.ToggleItem)
			})

			r.Route("/checkout", func(r chi.Router) {
				r.Post("/quote", checkoutHandler.Quote)
				r.With(rateLimit(cfg.OrderLimiter)).Post("/orders", checkoutHandler.PlaceOrder)
			})
		})
	})

	return r
}

func rateLimit(rl *middleware.RateLimiter) func(http.Handler) http.Handler {
	if rl == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	return rl.Handler
}
