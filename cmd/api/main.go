package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/pelyams/cached_product_service/cmd/api/app"
	"github.com/pelyams/cached_product_service/internal/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.Any("err", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx, cfg)
	if err != nil {
		slog.Error("failed to start", slog.Any("err", err))
		os.Exit(1)
	}

	if err := application.Run(ctx); err != nil {
		slog.Error("server stopped with error", slog.Any("err", err))
		os.Exit(1)
	}
}
