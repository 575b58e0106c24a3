package app

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/riturajsingh8919/anti-romantic/internal/config"
	"github.com/riturajsingh8919/anti-romantic/internal/repository"
	memrepo "github.com/riturajsingh8919/anti-romantic/internal/repository/memory"
	mongorepo "github.com/riturajsingh8919/anti-romantic/internal/repository/mongo"
	"github.com/riturajsingh8919/anti-romantic/internal/repository/postgres"
	"github.com/riturajsingh8919/anti-romantic/internal/storage"
	"github.com/riturajsingh8919/anti-romantic/internal/storage/breaker"
	"github.com/riturajsingh8919/anti-romantic/internal/storage/cloudinary"
	memstorage "github.com/riturajsingh8919/anti-romantic/internal/storage/memory"
	s3storage "github.com/riturajsingh8919/anti-romantic/internal/storage/s3"
	"github.com/riturajsingh8919/anti-romantic/migrations"
	"github.com/riturajsingh8919/anti-romantic/pkg/database"
	"github.com/riturajsingh8919/anti-romantic/pkg/health"
	pkgkafka "github.com/riturajsingh8919/anti-romantic/pkg/kafka"
)

// stores is the record store selected by STORE_DRIVER.
type stores struct {
	media    repository.MediaRecordRepository
	products repository.ProductRepository
	close    func(ctx context.Context) error
}

// openStores connects to the configured store and registers its health
// check as critical.
func openStores(ctx context.Context, cfg *config.Config, hh *health.Handler, logger *slog.Logger) (*stores, error) {
	switch cfg.StoreDriver {
	case config.DriverMongo:
		poolMetrics := database.NewMongoPoolMetrics(ServiceName)
		prometheus.MustRegister(poolMetrics)

		mongoCfg := cfg.Mongo(ServiceName)
		client, err := database.NewMongoClient(ctx, mongoCfg, poolMetrics.Monitor(), logger)
		if err != nil {
			return nil, fmt.Errorf("connect to mongodb: %w", err)
		}
		logger.Info("connected to MongoDB", slog.String("database", cfg.MongoDatabase))

		db := client.Database(cfg.MongoDatabase)
		media := mongorepo.NewMediaRecordRepository(db)
		if err := media.EnsureIndexes(ctx); err != nil {
			_ = client.Disconnect(context.Background())
			return nil, fmt.Errorf("ensure mongodb indexes: %w", err)
		}

		hh.Register("mongodb", func(ctx context.Context) error {
			return client.Ping(ctx, readpref.Primary())
		})
		return &stores{
			media:    media,
			products: mongorepo.NewProductRepository(db),
			close:    client.Disconnect,
		}, nil

	case config.DriverPostgres:
		pgCfg := cfg.Postgres()
		pool, err := database.NewPostgresPool(ctx, &pgCfg, logger)
		if err != nil {
			return nil, fmt.Errorf("connect to postgres: %w", err)
		}
		logger.Info("connected to PostgreSQL",
			slog.String("host", cfg.PostgresHost),
			slog.Int("port", cfg.PostgresPort),
			slog.String("database", cfg.PostgresDB),
		)
		database.RegisterPoolMetrics(pool, ServiceName)

		if err := database.RunMigrations(ctx, pool, migrations.FS, logger); err != nil {
			pool.Close()
			return nil, fmt.Errorf("run migrations: %w", err)
		}
		logger.Info("database migrations completed")

		if cfg.SlowQueryThresholdMs > 0 {
			database.SetSlowQueryLogging(time.Duration(cfg.SlowQueryThresholdMs)*time.Millisecond, logger)
		}

		hh.Register("postgres", func(ctx context.Context) error {
			return pool.Ping(ctx)
		})
		return &stores{
			media:    postgres.NewMediaRecordRepository(pool),
			products: postgres.NewProductRepository(pool),
			close: func(context.Context) error {
				pool.Close()
				return nil
			},
		}, nil

	default:
		products := memrepo.NewProductRepository()
		if cfg.SeedProductsFile != "" {
			if err := seedProducts(products, cfg.SeedProductsFile); err != nil {
				return nil, err
			}
		}
		logger.Warn("using in-memory store; records are lost on restart")
		return &stores{
			media:    memrepo.NewMediaRecordRepository(),
			products: products,
			close:    func(context.Context) error { return nil },
		}, nil
	}
}

func seedProducts(repo *memrepo.ProductRepository, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open product seed: %w", err)
	}
	defer f.Close()

	if _, err := repo.LoadProductsJSON(f); err != nil {
		return err
	}
	return nil
}

// openMediaStorage builds the configured remote media provider behind a
// circuit breaker.
func openMediaStorage(ctx context.Context, cfg *config.Config, logger *slog.Logger) (storage.Storage, error) {
	var (
		provider storage.Storage
		err      error
	)
	switch cfg.MediaProvider {
	case config.ProviderCloudinary:
		provider, err = cloudinary.New(cfg.Cloudinary(), logger)
	case config.ProviderS3:
		provider, err = s3storage.New(ctx, cfg.S3(), logger)
	default:
		logger.Warn("using in-memory media storage; uploads are not persisted")
		provider = memstorage.New(cfg.MemoryMediaBaseURL)
	}
	if err != nil {
		return nil, fmt.Errorf("init %s media storage: %w", cfg.MediaProvider, err)
	}
	return breaker.Wrap(provider, cfg.Breaker(cfg.MediaProvider), logger), nil
}

// openRedis connects to Redis when enabled. The returned client is nil
// otherwise.
func openRedis(ctx context.Context, cfg *config.Config, hh *health.Handler, logger *slog.Logger) (*redis.Client, error) {
	if !cfg.RedisEnabled {
		return nil, nil
	}
	client, err := database.NewRedisClient(ctx, cfg.Redis())
	if err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	logger.Info("connected to Redis", slog.String("addr", cfg.Redis().Addr()))
	hh.RegisterOptional("redis", func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	})
	return client, nil
}

// openKafka creates the event producer when Kafka is enabled. An
// unreachable broker is logged and the service continues degraded.
func openKafka(ctx context.Context, cfg *config.Config, hh *health.Handler, logger *slog.Logger) *pkgkafka.Producer {
	if !cfg.KafkaEnabled {
		logger.Info("kafka disabled; domain events and the cleanup queue are off")
		return nil
	}
	producer := pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers), logger)
	if err := pingKafkaWithRetry(ctx, producer, logger); err != nil {
		logger.Warn("kafka producer ping failed after retries, continuing in degraded mode",
			slog.String("error", err.Error()),
		)
	} else {
		logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))
	}
	hh.RegisterOptional("kafka", producer.Ping)
	return producer
}

// pingKafkaWithRetry attempts to ping the Kafka producer with exponential
// backoff (3 attempts, 1s/2s/4s with ±25% jitter).
func pingKafkaWithRetry(ctx context.Context, producer *pkgkafka.Producer, logger *slog.Logger) error {
	var lastErr error
	for attempt := range 3 {
		if lastErr = producer.Ping(ctx); lastErr == nil {
			return nil
		}
		if attempt == 2 {
			break
		}
		base := time.Duration(1<<uint(attempt)) * time.Second
		wait := base + time.Duration(float64(base)*0.25*(2*rand.Float64()-1)) // #nosec G404 -- retry jitter
		logger.Warn("kafka producer ping failed, retrying",
			slog.Int("attempt", attempt+1),
			slog.Duration("backoff", wait),
			slog.String("error", lastErr.Error()),
		)
		select {
		case <-ctx.Done():
			return fmt.Errorf("kafka ping: %w", ctx.Err())
		case <-time.After(wait):
		}
	}
	return fmt.Errorf("kafka producer ping failed after 3 attempts: %w", lastErr)
}
