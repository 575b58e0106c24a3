// Command seed fills the configured product store with a generated
// storefront catalog, or writes it as JSON for the memory store's
// SEED_PRODUCTS_FILE.
//
//	go run ./cmd/seed -count 10000
//	go run ./cmd/seed -count 50 -out products.json
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/riturajsingh8919/anti-romantic/internal/config"
	"github.com/riturajsingh8919/anti-romantic/internal/domain"
	mongorepo "github.com/riturajsingh8919/anti-romantic/internal/repository/mongo"
	"github.com/riturajsingh8919/anti-romantic/internal/repository/postgres"
	"github.com/riturajsingh8919/anti-romantic/internal/seed"
	"github.com/riturajsingh8919/anti-romantic/migrations"
	pkgconfig "github.com/riturajsingh8919/anti-romantic/pkg/config"
	"github.com/riturajsingh8919/anti-romantic/pkg/database"
	"github.com/riturajsingh8919/anti-romantic/pkg/logger"
)

func main() {
	count := flag.Int("count", 1000, "number of products to generate")
	seedValue := flag.Uint64("seed", 42, "random seed; the same seed yields the same catalog")
	batch := flag.Int("batch", 500, "rows per insert")
	out := flag.String("out", "", "write the catalog as JSON to this file instead of the store")
	flag.Parse()

	// The seed tool never touches remote media, so the provider settings
	// are not validated.
	cfg := &config.Config{}
	if err := pkgconfig.Load(cfg, ".env"); err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}
	log := logger.New("media-seed", cfg.Environment, cfg.LogLevel)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	start := time.Now()
	products := seed.Generate(seed.Options{Count: *count, Seed: *seedValue})

	n, err := write(ctx, cfg, *out, products, *batch, log)
	if err != nil {
		log.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	log.Info("seed complete",
		slog.Int("generated", len(products)),
		slog.Int("written", n),
		slog.Duration("elapsed", time.Since(start)),
	)
}

func write(ctx context.Context, cfg *config.Config, out string, products []domain.Product, batch int, log *slog.Logger) (int, error) {
	if out != "" {
		f, err := os.Create(out)
		if err != nil {
			return 0, fmt.Errorf("create %s: %w", out, err)
		}
		defer f.Close()

		enc := json.NewEncoder(f)
		enc.SetIndent("", "  ")
		if err := enc.Encode(products); err != nil {
			return 0, fmt.Errorf("write %s: %w", out, err)
		}
		return len(products), nil
	}

	switch cfg.StoreDriver {
	case config.DriverMongo:
		client, err := database.NewMongoClient(ctx, cfg.Mongo("media-seed"), nil, log)
		if err != nil {
			return 0, fmt.Errorf("connect to mongodb: %w", err)
		}
		defer client.Disconnect(context.Background()) //nolint:errcheck

		return mongorepo.NewProductRepository(client.Database(cfg.MongoDatabase)).Seed(ctx, products, batch)

	case config.DriverPostgres:
		pgCfg := cfg.Postgres()
		pool, err := database.NewPostgresPool(ctx, &pgCfg, log)
		if err != nil {
			return 0, fmt.Errorf("connect to postgres: %w", err)
		}
		defer pool.Close()

		if err := database.RunMigrations(ctx, pool, migrations.FS, log); err != nil {
			return 0, fmt.Errorf("run migrations: %w", err)
		}
		return postgres.NewProductRepository(pool).Seed(ctx, products, batch)

	default:
		return 0, fmt.Errorf("STORE_DRIVER=%s has no persistent store; pass -out and point SEED_PRODUCTS_FILE at the file", cfg.StoreDriver)
	}
}
