package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/utafrali/product-catalog/internal/auth"
	"github.com/utafrali/product-catalog/internal/service"
	"github.com/utafrali/product-catalog/pkg/health"
	"github.com/utafrali/product-catalog/pkg/middleware"
)

// RouterConfig holds the HTTP options of the catalog API.
type RouterConfig struct {
	ServiceName string
	CORS        middleware.CORSConfig
	// PprofAllowedCIDRs enables /debug/pprof for these networks. Empty
	// disables it.
	PprofAllowedCIDRs []string
	// TokenValidator guards the write endpoints. Nil leaves them open.
	TokenValidator middleware.TokenValidator
	// MaxUploadBytes bounds a product form including its files.
	MaxUploadBytes int64
	// FormCacheTTL is the Cache-Control max-age of the create form data.
	FormCacheTTL time.Duration
	// Media, when set, serves stored images under /media.
	Media http.Handler
}

// NewRouter creates a chi router with all catalog routes registered.
func NewRouter(
	products *service.ProductService,
	variants *service.VariantService,
	healthHandler *health.Handler,
	cfg RouterConfig,
	logger *slog.Logger,
) http.Handler {
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 32 << 20
	}

	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.Tracing(cfg.ServiceName))
	r.Use(middleware.PrometheusMetrics(cfg.ServiceName))
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.CORS(cfg.CORS))

	// Health check endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Handle("/metrics", promhttp.Handler())

	if cfg.Media != nil {
		r.Handle("/media/*", http.StripPrefix("/media", cfg.Media))
	}

	if len(cfg.PprofAllowedCIDRs) > 0 {
		middleware.RegisterPprof(r, cfg.PprofAllowedCIDRs, logger)
	}

	writeGuard := func(r chi.Router) {
		if cfg.TokenValidator != nil {
			r.Use(middleware.Auth(cfg.TokenValidator))
			r.Use(middleware.RequireRole(auth.RoleAdmin))
		}
	}

	productHandler := NewProductHandler(products, variants, cfg.MaxUploadBytes, logger)

	r.Route("/api/v1/products", func(r chi.Router) {
		r.Get("/", productHandler.ListProducts)
		r.With(middleware.CacheControl(cfg.FormCacheTTL)).Get("/create", productHandler.CreateForm)
		r.Get("/{id}", productHandler.GetProduct)

		r.Group(func(r chi.Router) {
			writeGuard(r)
			r.Use(RequireContentType(contentTypeMultipart, contentTypeURLEncoded))

			r.Post("/", productHandler.CreateProduct)
			r.Post("/{id}", productHandler.UpdateProduct)
			r.Put("/{id}", productHandler.UpdateProduct)
		})
	})

	variantHandler := NewVariantHandler(variants, logger)

	r.Route("/api/v1/variants", func(r chi.Router) {
		r.Get("/", variantHandler.ListVariants)

		r.Group(func(r chi.Router) {
			writeGuard(r)
			r.Use(RequireContentType(contentTypeJSON))

			r.Post("/", variantHandler.CreateVariant)
		})
	})

	return r
}
