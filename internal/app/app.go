package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/riturajsingh8919/anti-romantic/internal/cache"
	"github.com/riturajsingh8919/anti-romantic/internal/config"
	"github.com/riturajsingh8919/anti-romantic/internal/event"
	handler "github.com/riturajsingh8919/anti-romantic/internal/handler/http"
	"github.com/riturajsingh8919/anti-romantic/internal/service"
	"github.com/riturajsingh8919/anti-romantic/pkg/health"
	pkgkafka "github.com/riturajsingh8919/anti-romantic/pkg/kafka"
	"github.com/riturajsingh8919/anti-romantic/pkg/middleware"
	"github.com/riturajsingh8919/anti-romantic/pkg/tracing"
)

// ServiceName labels logs, metrics and traces of both binaries.
const ServiceName = "media"

// Version is set at build time.
var Version = "0.1.0"

// App wires together all dependencies and runs the media HTTP server.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	stores         *stores
	redis          *redis.Client
	producer       *pkgkafka.Producer
	httpServer     *http.Server
	tracerShutdown func(context.Context) error
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	tracerShutdown, err := tracing.InitTracer(ctx, cfg.Tracing(ServiceName, Version))
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}

	healthHandler := health.NewHandler()

	st, err := openStores(ctx, cfg, healthHandler, logger)
	if err != nil {
		return nil, err
	}

	mediaStorage, err := openMediaStorage(ctx, cfg, logger)
	if err != nil {
		_ = st.close(context.Background())
		return nil, err
	}

	redisClient, err := openRedis(ctx, cfg, healthHandler, logger)
	if err != nil {
		_ = st.close(context.Background())
		return nil, err
	}

	producer := openKafka(ctx, cfg, healthHandler, logger)

	// Build the dependency graph.
	mediaRepo := st.media
	if redisClient != nil {
		mediaRepo = cache.NewMediaRepository(st.media, redisClient, cfg.CacheTTL, logger)
	}

	var publisher event.Publisher
	if producer != nil {
		publisher = producer
	}
	eventProducer := event.NewProducer(publisher, logger)
	cleaner := service.NewAssetCleaner(mediaStorage, eventProducer, logger)

	router := handler.NewRouter(handler.Services{
		Media:   service.NewMediaService(mediaRepo, st.products, cleaner, eventProducer, logger),
		Listing: service.NewListingService(mediaRepo, st.products, logger),
		Catalog: service.NewCatalogService(st.products, mediaRepo, cfg.PlaceholderImageURL, logger),
		Uploads: service.NewUploadService(mediaStorage, logger),
	}, healthHandler, logger, handler.RouterConfig{
		CORS: middleware.CORSConfig{
			AllowedOrigins: cfg.CORSAllowedOrigins,
			ExposedHeaders: []string{middleware.CorrelationHeader},
			Environment:    cfg.Environment,
		},
		PprofAllowedCIDRs: cfg.PprofAllowedCIDRs,
		StorefrontMaxAge:  cfg.StorefrontMaxAge,
	})

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadTimeout:       time.Minute,
		WriteTimeout:      6 * time.Minute,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return &App{
		cfg:            cfg,
		logger:         logger,
		stores:         st,
		redis:          redisClient,
		producer:       producer,
		httpServer:     httpServer,
		tracerShutdown: tracerShutdown,
	}, nil
}

// Run starts the HTTP server, then blocks until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		a.logger.Info("starting HTTP server",
			slog.String("addr", a.httpServer.Addr),
			slog.String("store", a.cfg.StoreDriver),
			slog.String("media_provider", a.cfg.MediaProvider),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		_ = a.Shutdown()
		return err
	}

	return a.Shutdown()
}

// Shutdown stops components in order: HTTP server, tracer, Kafka producer,
// Redis, then the record store.
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	var errs []error

	httpCtx, httpCancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer httpCancel()
	if err := a.httpServer.Shutdown(httpCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	if a.tracerShutdown != nil {
		tracerCtx, tracerCancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer tracerCancel()
		if err := a.tracerShutdown(tracerCtx); err != nil {
			a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Error("redis close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	storeCtx, storeCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer storeCancel()
	if err := a.stores.close(storeCtx); err != nil {
		a.logger.Error("store close error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	a.logger.Info("application shutdown complete")
	return errors.Join(errs...)
}
