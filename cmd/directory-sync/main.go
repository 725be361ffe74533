package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	directorysync "github.com/magabrotheeeer/membership-ledger/internal/app/directory-sync"
	"github.com/magabrotheeeer/membership-ledger/internal/config"
)

func main() {
	cfg := config.MustLoad()
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))

	logger.Info("starting directory-sync service", slog.String("env", cfg.Env))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := directorysync.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize directory-sync app", slog.Any("err", err))
		os.Exit(1)
	}

	if err := app.Run(ctx); err != nil {
		logger.Error("directory-sync app stopped with error", slog.Any("err", err))
		os.Exit(1)
	}

	logger.Info("directory-sync app stopped gracefully")
}
