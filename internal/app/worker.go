package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/riturajsingh8919/anti-romantic/internal/config"
	"github.com/riturajsingh8919/anti-romantic/internal/event"
	"github.com/riturajsingh8919/anti-romantic/internal/service"
	"github.com/riturajsingh8919/anti-romantic/pkg/health"
	pkgkafka "github.com/riturajsingh8919/anti-romantic/pkg/kafka"
	"github.com/riturajsingh8919/anti-romantic/pkg/tracing"
)

// WorkerName labels the cleanup worker's traces.
const WorkerName = "media-cleanup-worker"

// Worker consumes media.cleanup_requested events and retries the remote
// deletions the HTTP server could not complete.
type Worker struct {
	cfg            *config.Config
	logger         *slog.Logger
	consumer       *pkgkafka.Consumer
	dlq            *pkgkafka.DLQProducer
	redis          *redis.Client
	httpServer     *http.Server
	tracerShutdown func(context.Context) error
}

// NewWorker builds the cleanup worker. Kafka must be enabled.
func NewWorker(cfg *config.Config, logger *slog.Logger) (*Worker, error) {
	if !cfg.KafkaEnabled {
		return nil, errors.New("cleanup worker requires KAFKA_ENABLED=true")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	tracerShutdown, err := tracing.InitTracer(ctx, cfg.Tracing(WorkerName, Version))
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}

	healthHandler := health.NewHandler()

	mediaStorage, err := openMediaStorage(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	redisClient, err := openRedis(ctx, cfg, healthHandler, logger)
	if err != nil {
		return nil, err
	}

	var store pkgkafka.IdempotencyStore = pkgkafka.NewMemoryIdempotencyStore(cfg.CleanupIdempotencyTTL)
	if redisClient != nil {
		store = pkgkafka.NewRedisIdempotencyStore(redisClient, WorkerName, cfg.CleanupIdempotencyTTL)
	}

	// Failures are returned to the consumer for retry, so the cleaner never
	// re-queues from here.
	cleaner := service.NewAssetCleaner(mediaStorage, event.NewProducer(nil, logger), logger)
	handle := pkgkafka.IdempotentHandler(store, event.NewConsumer(cleaner, logger).HandleCleanupRequested, logger)

	var (
		opts []pkgkafka.ConsumerOption
		dlq  *pkgkafka.DLQProducer
	)
	if cfg.CleanupDLQEnabled {
		dlq = pkgkafka.NewDLQProducer(cfg.KafkaBrokers, logger)
		opts = append(opts, pkgkafka.WithDeadLetter(dlq))
	}

	consumer := pkgkafka.NewConsumer(pkgkafka.ConsumerConfig{
		Brokers:      cfg.KafkaBrokers,
		GroupID:      cfg.CleanupGroupID,
		Topic:        event.TopicMediaCleanupRequested,
		MinBytes:     1,
		MaxBytes:     10e6,
		MaxRetries:   5,
		RetryBackoff: 500 * time.Millisecond,
	}, handle, logger, opts...)

	healthHandler.Register("kafka", func(ctx context.Context) error {
		return pkgkafka.PingBrokers(ctx, cfg.KafkaBrokers)
	})

	r := chi.NewRouter()
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Handle("/metrics", promhttp.Handler())

	return &Worker{
		cfg:      cfg,
		logger:   logger,
		consumer: consumer,
		dlq:      dlq,
		redis:    redisClient,
		httpServer: &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
			Handler:           r,
			ReadHeaderTimeout: 5 * time.Second,
		},
		tracerShutdown: tracerShutdown,
	}, nil
}

// Run consumes cleanup requests until ctx is canceled.
func (w *Worker) Run(ctx context.Context) error {
	errCh := make(chan error, 2)

	go func() {
		w.logger.Info("starting health server", slog.String("addr", w.httpServer.Addr))
		if err := w.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("health server: %w", err)
		}
	}()

	go func() {
		if err := w.consumer.Start(ctx); err != nil {
			errCh <- fmt.Errorf("cleanup consumer: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		w.logger.Info("shutdown signal received")
	case err := <-errCh:
		_ = w.Shutdown()
		return err
	}

	return w.Shutdown()
}

// Shutdown stops the consumer before the producers and clients it uses.
func (w *Worker) Shutdown() error {
	var errs []error

	if err := w.consumer.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close consumer: %w", err))
	}
	if w.dlq != nil {
		if err := w.dlq.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close dlq producer: %w", err))
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := w.httpServer.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("shutdown health server: %w", err))
	}
	if err := w.tracerShutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("shutdown tracer: %w", err))
	}
	if w.redis != nil {
		if err := w.redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close redis: %w", err))
		}
	}

	err := errors.Join(errs...)
	if err != nil {
		w.logger.Error("worker shutdown finished with errors", slog.String("error", err.Error()))
	} else {
		w.logger.Info("worker shutdown complete")
	}
	return err
}
