package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/robfig/cron/v3"

	"fintrack/internal/backend"
	"fintrack/internal/cli"
	"fintrack/internal/config"
	"fintrack/internal/log"
)

// recurring-worker generates due occurrences of recurring transactions on
// the RECURRING_SCHEDULE cron schedule.
func main() {
	cfg, logger := cli.LoadConfig(log.ComponentRecurring)
	logger.Info("Starting recurring-worker", "schedule", cfg.RecurringSchedule)

	if err := run(cfg, logger); err != nil {
		logger.Error("Recurring-worker failed", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Recurring-worker stopped")
}

func run(cfg *config.Config, logger *log.Logger) (err error) {
	b, err := backend.Open(context.Background(), cfg, logger, backend.Options{})
	if err != nil {
		return fmt.Errorf("open backend: %w", err)
	}
	defer func() {
		if cerr := b.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close backend: %w", cerr)
		}
	}()

	processor := b.RecurringProcessor()
	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, nil)

	process := func() {
		start := time.Now()
		count, err := processor.ProcessDue(ctx, start)
		if err != nil {
			logger.Error("Recurring processing failed", log.FieldError, err)
			return
		}
		logger.Info("Recurring processing complete",
			"created", count,
			log.FieldDuration, time.Since(start).Milliseconds())
	}

	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	if _, err := c.AddFunc(cfg.RecurringSchedule, process); err != nil {
		return fmt.Errorf("invalid schedule %q: %w", cfg.RecurringSchedule, err)
	}

	// Catch up on anything that fell due while the worker was down
	process()
	c.Start()

	<-ctx.Done()
	// wait for an in-flight run before the backend closes
	<-c.Stop().Done()
	cli.WaitForShutdown(ctx, done)
	return nil
}
