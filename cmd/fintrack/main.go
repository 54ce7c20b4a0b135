package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"fintrack/internal/auth"
	"fintrack/internal/backend"
	"fintrack/internal/cli"
	"fintrack/internal/config"
	apphttp "fintrack/internal/http"
	"fintrack/internal/log"
)

func main() {
	cfg, logger := cli.LoadConfig(log.ComponentApp)
	logger.Info("Starting fintrack", "environment", cfg.Environment, "port", cfg.Port)

	if err := run(cfg, logger); err != nil {
		logger.Error("Fintrack failed", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}

func run(cfg *config.Config, logger *log.Logger) (err error) {
	// Broker connection is attempted but optional for the web server
	b, err := backend.Open(context.Background(), cfg, logger, backend.Options{})
	if err != nil {
		return fmt.Errorf("open backend: %w", err)
	}
	defer func() {
		if cerr := b.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close backend: %w", cerr)
		}
	}()
	svc := b.Services()

	srv, err := apphttp.NewServer(apphttp.Options{
		Addr:               ":" + cfg.Port,
		CookieSecure:       cfg.CookieSecure,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		TrustedProxies:     cfg.TrustedProxies,
		Logger:             logger,
		Metrics:            b.Metrics,
	}, apphttp.Services{
		Users:        auth.NewPasswordAuthenticator(b.Repo),
		Sessions:     auth.NewSessionManager(cfg.SessionSecret, cfg.SessionIdleTimeout),
		Transactions: svc.Transactions,
		Reports:      svc.Reports,
		Planning:     svc.Planning,
		Activity:     svc.Activity,
		Categories:   b.Classifier.Categories(),
		Readiness:    b.Repo.Ping,
	})
	if err != nil {
		return fmt.Errorf("build HTTP server: %w", err)
	}

	// the backend is closed by the deferred call once the server has drained
	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(shutdownCtx context.Context) {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
	})

	logger.Info("HTTP server listening", "addr", srv.Addr, "events", b.Events != nil)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		srv.Shutdown(context.Background())
		return fmt.Errorf("serve: %w", err)
	}

	cli.WaitForShutdown(ctx, done)
	return nil
}
