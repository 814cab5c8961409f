package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"ecocards/internal/app"
	"ecocards/internal/config"

	"go.uber.org/zap"
)

var configPath = flag.String("config", "", "path to a YAML config file (optional)")

func main() {
	flag.Parse()

	loader := config.NewLoader(*configPath)
	cfg, err := loader.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, level, err := config.NewLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to start", zap.Error(err))
	}
	defer a.Close(context.Background())

	loader.Watch(func(next *config.Config) {
		level.SetLevel(config.ParseLevel(next.Logging.Level))
		a.Reload(next)
		logger.Info("configuration reloaded", zap.String("log_level", next.Logging.Level))
	}, func(err error) {
		logger.Warn("ignoring invalid configuration change", zap.Error(err))
	})

	logger.Info("starting ecocards server",
		zap.String("addr", cfg.Server.Addr),
		zap.String("storage", cfg.Storage.Backend),
		zap.Duration("turn_timeout", cfg.Battle.TurnTimeout),
	)
	if err := a.Run(ctx); err != nil {
		logger.Error("server stopped", zap.Error(err))
		return
	}
	logger.Info("server exited")
}
