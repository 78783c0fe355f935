package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/Black-And-White-Club/arena-engine/app"
	"github.com/Black-And-White-Club/arena-engine/app/shared/attr"
	"github.com/Black-And-White-Club/arena-engine/config"
)

func main() {
	configFile := flag.String("config", "config.yaml", "Path to the configuration file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configFile)
	if err != nil {
		slog.Error("Failed to load config", attr.Error(err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application := &app.App{Logger: app.NewLogger(cfg.Observability)}
	logger := application.Logger

	if err := application.Initialize(ctx, cfg); err != nil {
		logger.Error("Failed to initialize application", attr.Error(err))
		os.Exit(1)
	}

	runErr := application.Run(ctx)
	if runErr != nil {
		logger.Error("Application stopped with error", attr.Error(runErr))
	}

	logger.Info("Shutting down application")
	if err := application.Close(); err != nil {
		logger.Error("Error during shutdown", attr.Error(err))
	}
	logger.Info("Application shut down gracefully")

	if runErr != nil {
		os.Exit(1)
	}
}
