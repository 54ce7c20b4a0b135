package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"fintrack/internal/backend"
	"fintrack/internal/cli"
	"fintrack/internal/config"
	"fintrack/internal/log"
)

// fintrack-worker consumes transaction events and writes the audit trail.
func main() {
	cfg, logger := cli.LoadConfig(log.ComponentWorker)
	logger.Info("Starting fintrack-worker")

	if err := run(cfg, logger); err != nil {
		logger.Error("Fintrack-worker failed", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Fintrack-worker stopped")
}

func run(cfg *config.Config, logger *log.Logger) (err error) {
	b, err := backend.Open(context.Background(), cfg, logger, backend.Options{
		RequireEvents:   true,
		ConnectAttempts: 10,
	})
	if err != nil {
		return fmt.Errorf("open backend: %w", err)
	}
	defer func() {
		if cerr := b.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close backend: %w", cerr)
		}
	}()

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, nil)

	if err := b.EventWorker().Run(ctx, b.Events); err != nil {
		return fmt.Errorf("event worker: %w", err)
	}

	cli.WaitForShutdown(ctx, done)
	return nil
}
