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
	cfg, err := config.Load(".env")
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	log := logger.New(app.WorkerName, cfg.Environment, cfg.LogLevel)
	slog.SetDefault(log)
	log.Info("starting cleanup worker",
		slog.String("media_provider", cfg.MediaProvider),
		slog.Any("brokers", cfg.KafkaBrokers),
		slog.String("group", cfg.CleanupGroupID),
	)

	worker, err := app.NewWorker(cfg, log)
	if err != nil {
		log.Error("failed to initialize worker", slog.String("error", err.Error()))
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := worker.Run(ctx); err != nil {
		log.Error("worker error", slog.String("error", err.Error()))
		os.Exit(1)
	}

	log.Info("cleanup worker stopped")
}
