package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/riturajsingh8919/anti-romantic/internal/service"
	"github.com/riturajsingh8919/anti-romantic/pkg/health"
	"github.com/riturajsingh8919/anti-romantic/pkg/middleware"
)

// ServiceName labels HTTP metrics and spans.
const ServiceName = "media"

// Services groups the application services the router exposes.
type Services struct {
	Media   *service.MediaService
	Listing *service.ListingService
	Catalog *service.CatalogService
	Uploads *service.UploadService
}

// RouterConfig holds the transport settings of the router.
type RouterConfig struct {
	CORS              middleware.CORSConfig
	PprofAllowedCIDRs []string
	// StorefrontMaxAge is the Cache-Control max-age, in seconds, of the
	// public catalog endpoints. Zero disables the header.
	StorefrontMaxAge int
}

// NewRouter creates a chi router with the admin and storefront routes
// registered.
func NewRouter(
	svc Services,
	healthHandler *health.Handler,
	logger *slog.Logger,
	cfg RouterConfig,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.CORS(cfg.CORS))
	r.Use(middleware.Recovery(logger))
	r.Use(chimw.Compress(5))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.PrometheusMetrics(ServiceName))
	r.Use(middleware.Tracing(ServiceName))
	r.Use(middleware.RequestLogger(logger))

	// Health check endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	})

	// Pprof debug endpoints with IP allowlist.
	middleware.RegisterPprof(r, cfg.PprofAllowedCIDRs, logger)

	mediaHandler := NewMediaHandler(svc.Media, svc.Listing, logger)
	uploadHandler := NewUploadHandler(svc.Uploads, logger)
	catalogHandler := NewCatalogHandler(svc.Catalog, logger)

	// Admin API endpoints
	r.Route("/api/admin", func(r chi.Router) {
		r.Use(middleware.NoStore)
		r.Use(ContentTypeJSON)

		r.Group(func(r chi.Router) {
			r.Use(chimw.Timeout(30 * time.Second))

			r.Get("/image-manager", mediaHandler.ListRecords)
			r.Post("/image-manager", mediaHandler.CreateRecord)
			r.Put("/image-manager", mediaHandler.UpdateRecord)
			r.Get("/image-manager/console", mediaHandler.Console)
			r.Get("/image-manager/video-status", mediaHandler.VideoStatus)
			r.Delete("/image-manager/{id}", mediaHandler.DeleteRecord)
			r.Delete("/media/{id}", mediaHandler.DeleteRemoteAsset)
			r.Get("/products", catalogHandler.ProductPicker)
		})

		// Uploads stream up to 50MB to the remote service.
		r.With(chimw.Timeout(5*time.Minute)).Post("/media/upload", uploadHandler.Upload)
	})

	// Storefront API endpoints
	r.Group(func(r chi.Router) {
		if cfg.StorefrontMaxAge > 0 {
			r.Use(middleware.CacheControl(cfg.StorefrontMaxAge, cfg.StorefrontMaxAge*5))
		}
		r.Use(chimw.Timeout(30 * time.Second))

		r.Get("/api/products", catalogHandler.ListProducts)
		r.Get("/api/store/products", catalogHandler.ListCards)
		r.Get("/api/categories", catalogHandler.Categories)
	})

	return r
}
