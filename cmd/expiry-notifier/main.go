package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	expirynotifier "github.com/magabrotheeeer/membership-ledger/internal/app/expiry-notifier"
	"github.com/magabrotheeeer/membership-ledger/internal/config"
)

func main() {
	cfg := config.MustLoad()
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))

	logger.Info("starting expiry-notifier service", slog.String("env", cfg.Env))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := expirynotifier.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize expiry-notifier app", slog.Any("err", err))
		os.Exit(1)
	}

	if err := app.Run(ctx); err != nil {
		logger.Error("expiry-notifier app stopped with error", slog.Any("err", err))
		os.Exit(1)
	}

	logger.Info("expiry-notifier app stopped gracefully")
}
