package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	payoutsweeper "github.com/magabrotheeeer/escrow-marketplace/internal/app/payout-sweeper"
	"github.com/magabrotheeeer/escrow-marketplace/internal/config"
)

func main() {
	cfg := config.MustLoad()
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	logger.Info("starting payout-sweeper", slog.String("env", cfg.Env))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := payoutsweeper.New(cfg, logger)
	if err != nil {
		logger.Error("failed to initialize payout-sweeper", slog.Any("err", err))
		os.Exit(1)
	}

	if err := app.Run(ctx); err != nil {
		logger.Error("payout-sweeper stopped with error", slog.Any("err", err))
		os.Exit(1)
	}

	logger.Info("payout-sweeper stopped gracefully")
}
