package config

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/riturajsingh8919/anti-romantic/internal/storage/breaker"
	"github.com/riturajsingh8919/anti-romantic/internal/storage/cloudinary"
	"github.com/riturajsingh8919/anti-romantic/internal/storage/s3"
	pkgconfig "github.com/riturajsingh8919/anti-romantic/pkg/config"
	"github.com/riturajsingh8919/anti-romantic/pkg/database"
	"github.com/riturajsingh8919/anti-romantic/pkg/tracing"
)

// Store drivers.
const (
	DriverMongo    = "mongo"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Media providers.
const (
	ProviderCloudinary = "cloudinary"
	ProviderS3         = "s3"
	ProviderMemory     = "memory"
)

// Config holds all configuration for the media server and the cleanup
// worker.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// HTTP server
	HTTPPort        int           `env:"HTTP_PORT" envDefault:"8080"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"15s"`

	// Record store
	StoreDriver string `env:"STORE_DRIVER" envDefault:"mongo"`

	// MongoDB
	MongoURI         string `env:"MONGO_URI" envDefault:"mongodb://localhost:27017"`
	MongoDatabase    string `env:"MONGO_DATABASE" envDefault:"anti_romantic"`
	MongoMaxPoolSize uint64 `env:"MONGO_MAX_POOL_SIZE" envDefault:"50"`

	// PostgreSQL
	PostgresHost string `env:"POSTGRES_HOST" envDefault:"localhost"`
	PostgresPort int    `env:"POSTGRES_PORT" envDefault:"5432"`
	PostgresUser string `env:"POSTGRES_USER" envDefault:"anti_romantic"`
	PostgresPass string `env:"POSTGRES_PASSWORD" envDefault:"anti_romantic"`
	PostgresDB   string `env:"POSTGRES_DB" envDefault:"anti_romantic"`
	PostgresSSL  string `env:"POSTGRES_SSL_MODE" envDefault:"disable"`

	// Database pool
	DBMaxConns            int32 `env:"DB_MAX_CONNS" envDefault:"10"`
	DBMinConns            int32 `env:"DB_MIN_CONNS" envDefault:"2"`
	DBMaxConnLifetimeMins int   `env:"DB_MAX_CONN_LIFETIME_MINUTES" envDefault:"60"`
	DBMaxConnIdleTimeMins int   `env:"DB_MAX_CONN_IDLE_TIME_MINUTES" envDefault:"30"`

	// Slow query logging
	SlowQueryThresholdMs int `env:"LOG_SLOW_QUERY_MS" envDefault:"500"`

	// Seed file of products for the memory store.
	SeedProductsFile string `env:"SEED_PRODUCTS_FILE"`

	// Remote media
	MediaProvider       string `env:"MEDIA_PROVIDER" envDefault:"cloudinary"`
	CloudinaryCloudName string `env:"CLOUDINARY_CLOUD_NAME"`
	CloudinaryAPIKey    string `env:"CLOUDINARY_API_KEY"`
	CloudinaryAPISecret string `env:"CLOUDINARY_API_SECRET"`
	S3Bucket            string `env:"S3_BUCKET"`
	S3Region            string `env:"S3_REGION" envDefault:"us-east-1"`
	S3Endpoint          string `env:"S3_ENDPOINT"`
	S3AccessKeyID       string `env:"S3_ACCESS_KEY_ID"`
	S3SecretAccessKey   string `env:"S3_SECRET_ACCESS_KEY"`
	S3CDNURL            string `env:"S3_CDN_URL"`
	S3ForcePathStyle    bool   `env:"S3_FORCE_PATH_STYLE" envDefault:"false"`
	MemoryMediaBaseURL  string `env:"MEMORY_MEDIA_BASE_URL" envDefault:"http://localhost:8080"`

	// Circuit breaker around remote deletes
	CleanupBreakerMaxRequests  uint32        `env:"CLEANUP_BREAKER_MAX_REQUESTS" envDefault:"1"`
	CleanupBreakerInterval     time.Duration `env:"CLEANUP_BREAKER_INTERVAL" envDefault:"60s"`
	CleanupBreakerTimeout      time.Duration `env:"CLEANUP_BREAKER_TIMEOUT" envDefault:"30s"`
	CleanupBreakerFailureRatio float64       `env:"CLEANUP_BREAKER_FAILURE_RATIO" envDefault:"0.5"`
	CleanupBreakerMinRequests  uint32        `env:"CLEANUP_BREAKER_MIN_REQUESTS" envDefault:"5"`

	// Redis
	RedisEnabled  bool          `env:"REDIS_ENABLED" envDefault:"false"`
	RedisHost     string        `env:"REDIS_HOST" envDefault:"localhost"`
	RedisPort     int           `env:"REDIS_PORT" envDefault:"6379"`
	RedisPassword string        `env:"REDIS_PASSWORD"`
	RedisDB       int           `env:"REDIS_DB" envDefault:"0"`
	CacheTTL      time.Duration `env:"CACHE_TTL" envDefault:"5m"`

	// Kafka
	KafkaEnabled          bool          `env:"KAFKA_ENABLED" envDefault:"false"`
	KafkaBrokers          []string      `env:"KAFKA_BROKERS" envDefault:"localhost:9092" envSeparator:","`
	CleanupGroupID        string        `env:"CLEANUP_CONSUMER_GROUP" envDefault:"media-cleanup-worker"`
	CleanupDLQEnabled     bool          `env:"CLEANUP_DLQ_ENABLED" envDefault:"true"`
	CleanupIdempotencyTTL time.Duration `env:"CLEANUP_IDEMPOTENCY_TTL" envDefault:"24h"`

	// OpenTelemetry
	OTELEnabled    bool    `env:"OTEL_ENABLED" envDefault:"false"`
	OTELEndpoint   string  `env:"OTEL_ENDPOINT" envDefault:"localhost:4318"`
	OTELSampleRate float64 `env:"OTEL_SAMPLE_RATE" envDefault:"1.0"`

	// HTTP edge
	CORSAllowedOrigins  []string `env:"CORS_ALLOWED_ORIGINS" envDefault:"http://localhost:3000" envSeparator:","`
	PlaceholderImageURL string   `env:"PLACEHOLDER_IMAGE_URL" envDefault:"/store/product1.png"`
	StorefrontMaxAge    int      `env:"STOREFRONT_CACHE_MAX_AGE" envDefault:"60"`

	// Pprof debug endpoints (IP allowlist in CIDR notation)
	PprofAllowedCIDRs []string `env:"PPROF_ALLOWED_CIDRS" envDefault:"10.0.0.0/8,172.16.0.0/12,192.168.0.0/16,127.0.0.0/8,::1/128" envSeparator:","`
}

// Load reads configuration from the environment, after any dotenv files
// given, and validates it.
func Load(envFiles ...string) (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg, envFiles...); err != nil {
		return nil, fmt.Errorf("load media config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects unknown drivers and providers and missing settings for
// the selected ones.
func (c *Config) Validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}

	switch c.StoreDriver {
	case DriverMongo:
		if c.MongoURI == "" {
			return fmt.Errorf("MONGO_URI is required")
		}
		if c.MongoDatabase == "" {
			return fmt.Errorf("MONGO_DATABASE is required")
		}
	case DriverPostgres:
		if c.PostgresHost == "" {
			return fmt.Errorf("POSTGRES_HOST is required")
		}
		if c.PostgresUser == "" {
			return fmt.Errorf("POSTGRES_USER is required")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q: must be one of mongo, postgres, memory", c.StoreDriver)
	}

	switch c.MediaProvider {
	case ProviderCloudinary:
		var missing []string
		for key, v := range map[string]string{
			"CLOUDINARY_CLOUD_NAME": c.CloudinaryCloudName,
			"CLOUDINARY_API_KEY":    c.CloudinaryAPIKey,
			"CLOUDINARY_API_SECRET": c.CloudinaryAPISecret,
		} {
			if v == "" {
				missing = append(missing, key)
			}
		}
		if len(missing) > 0 {
			slices.Sort(missing)
			return fmt.Errorf("%s required for MEDIA_PROVIDER=cloudinary", strings.Join(missing, ", "))
		}
	case ProviderS3:
		if c.S3Bucket == "" {
			return fmt.Errorf("S3_BUCKET is required for MEDIA_PROVIDER=s3")
		}
		if (c.S3AccessKeyID == "") != (c.S3SecretAccessKey == "") {
			return fmt.Errorf("S3_ACCESS_KEY_ID and S3_SECRET_ACCESS_KEY must be set together")
		}
	case ProviderMemory:
	default:
		return fmt.Errorf("unknown MEDIA_PROVIDER %q: must be one of cloudinary, s3, memory", c.MediaProvider)
	}

	if c.KafkaEnabled && len(c.KafkaBrokers) == 0 {
		return fmt.Errorf("KAFKA_BROKERS is required when KAFKA_ENABLED is set")
	}
	if c.OTELSampleRate < 0 || c.OTELSampleRate > 1.0 {
		return fmt.Errorf("OTEL_SAMPLE_RATE must be between 0.0 and 1.0, got %f", c.OTELSampleRate)
	}
	if c.CleanupBreakerFailureRatio <= 0 || c.CleanupBreakerFailureRatio > 1.0 {
		return fmt.Errorf("CLEANUP_BREAKER_FAILURE_RATIO must be in (0, 1], got %f", c.CleanupBreakerFailureRatio)
	}
	return nil
}

// PostgresDSN returns the PostgreSQL connection string.
func (c *Config) PostgresDSN() string {
	pg := c.Postgres()
	return pg.DSN()
}

// Postgres returns the connection pool settings.
func (c *Config) Postgres() database.PostgresConfig {
	return database.PostgresConfig{
		Host:            c.PostgresHost,
		Port:            c.PostgresPort,
		User:            c.PostgresUser,
		Password:        c.PostgresPass,
		DBName:          c.PostgresDB,
		SSLMode:         c.PostgresSSL,
		MaxConns:        c.DBMaxConns,
		MinConns:        c.DBMinConns,
		MaxConnLifetime: time.Duration(c.DBMaxConnLifetimeMins) * time.Minute,
		MaxConnIdleTime: time.Duration(c.DBMaxConnIdleTimeMins) * time.Minute,
	}
}

func (c *Config) Mongo(appName string) database.MongoConfig {
	cfg := database.DefaultMongoConfig()
	cfg.URI = c.MongoURI
	cfg.Database = c.MongoDatabase
	cfg.AppName = appName
	cfg.MaxPoolSize = c.MongoMaxPoolSize
	return cfg
}

func (c *Config) Redis() database.RedisConfig {
	cfg := database.DefaultRedisConfig()
	cfg.Host = c.RedisHost
	cfg.Port = c.RedisPort
	cfg.Password = c.RedisPassword
	cfg.DB = c.RedisDB
	return cfg
}

func (c *Config) Cloudinary() cloudinary.Config {
	return cloudinary.Config{
		CloudName: c.CloudinaryCloudName,
		APIKey:    c.CloudinaryAPIKey,
		APISecret: c.CloudinaryAPISecret,
	}
}

func (c *Config) S3() s3.Config {
	return s3.Config{
		Bucket:          c.S3Bucket,
		Region:          c.S3Region,
		Endpoint:        c.S3Endpoint,
		AccessKeyID:     c.S3AccessKeyID,
		SecretAccessKey: c.S3SecretAccessKey,
		CDNURL:          c.S3CDNURL,
		ForcePathStyle:  c.S3ForcePathStyle,
	}
}

// Breaker returns the circuit breaker settings for remote deletes.
func (c *Config) Breaker(name string) breaker.Config {
	return breaker.Config{
		Name:         name,
		MaxRequests:  c.CleanupBreakerMaxRequests,
		Interval:     c.CleanupBreakerInterval,
		Timeout:      c.CleanupBreakerTimeout,
		FailureRatio: c.CleanupBreakerFailureRatio,
		MinRequests:  c.CleanupBreakerMinRequests,
	}
}

func (c *Config) Tracing(serviceName, version string) tracing.Config {
	return tracing.Config{
		ServiceName:    serviceName,
		ServiceVersion: version,
		Environment:    c.Environment,
		OTLPEndpoint:   c.OTELEndpoint,
		Insecure:       c.Environment != "production",
		SampleRate:     c.OTELSampleRate,
		Enabled:        c.OTELEnabled,
	}
}
