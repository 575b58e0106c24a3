package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/riturajsingh8919/anti-romantic/internal/app"
	"github.com/riturajsingh8919/anti-romantic/internal/config"
	"github.com/riturajsingh8919/anti-romantic/pkg/logger"
)

func main() {
	// Environment variables win over values from .env.
	cfg, err := config.Load(".env")
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	log := logger.New(app.ServiceName, cfg.Environment, cfg.LogLevel)
	slog.SetDefault(log)
	log.Info("starting media service",
		slog.String("version", app.Version),
		slog.Int("http_port", cfg.HTTPPort),
		slog.String("store", cfg.StoreDriver),
		slog.String("media_provider", cfg.MediaProvider),
		slog.Bool("kafka", cfg.KafkaEnabled),
		slog.Bool("redis", cfg.RedisEnabled),
	)

	application, err := app.NewApp(cfg, log)
	if err != nil {
		log.Error("failed to initialize application", slog.String("error", err.Error()))
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := application.Run(ctx); err != nil {
		log.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}

	log.Info("media service stopped")
}
