package backend

import (
	"context"
	"fmt"

	"fintrack/internal/amqp"
	"fintrack/internal/classifier"
	"fintrack/internal/config"
	"fintrack/internal/log"
	"fintrack/internal/metrics"
	"fintrack/internal/services"
	"fintrack/internal/storage"
	"fintrack/internal/worker"
)

const defaultConnectAttempts = 5

type Options struct {
	// RequireEvents makes a missing or unreachable broker fatal. The web
	// server and the recurring worker run without one; the event worker
	// has nothing to do.
	RequireEvents   bool
	ConnectAttempts int
}

// Open runs migrations, opens the repository and, when AMQP_URL is set,
// connects to the broker.
func Open(ctx context.Context, cfg *config.Config, logger *log.Logger, opts Options) (*Backend, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}
	if opts.ConnectAttempts <= 0 {
		opts.ConnectAttempts = defaultConnectAttempts
	}

	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("open SQLite repository: %w", err)
	}
	b := &Backend{
		Repo:       repo,
		Metrics:    metrics.New(),
		Classifier: classifier.NewDefault(),
		cfg:        cfg,
		logger:     logger,
	}
	if version, dirty, err := repo.SchemaVersion(); err == nil {
		logger.Info("SQLite repository ready",
			"path", cfg.SQLiteDBPath,
			"schema_version", version,
			"dirty", dirty)
	}

	switch {
	case cfg.EventsEnabled():
		client, err := amqp.Connect(ctx, cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, opts.ConnectAttempts)
		if err != nil {
			if opts.RequireEvents {
				repo.Close()
				return nil, err
			}
			logger.Warn("AMQP unavailable, transaction events disabled", log.FieldError, err)
			break
		}
		b.Events = client
		logger.Info("AMQP client connected", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	case opts.RequireEvents:
		repo.Close()
		return nil, fmt.Errorf("AMQP_URL is required")
	default:
		logger.Info("AMQP disabled, transaction events will not be published")
	}
	return b, nil
}

// Services builds the domain services.
func (b *Backend) Services() Services {
	return Services{
		Transactions: services.NewTransactionService(b.Repo, b.Classifier, b.Publisher(), b.Metrics, b.logger),
		Reports: services.NewReportService(b.Repo, services.ReportOptions{
			TrendWindow: b.cfg.TrendWindowMonths,
			RecentLimit: b.cfg.RecentLimit,
		}),
		Planning: services.NewPlanningService(b.Repo, b.Classifier),
		Activity: services.NewActivityService(b.Repo),
	}
}

func (b *Backend) RecurringProcessor() *services.RecurringProcessor {
	return services.NewRecurringProcessor(b.Repo, b.Publisher(), b.Metrics, b.logger)
}

func (b *Backend) EventWorker() *worker.EventWorker {
	return worker.NewEventWorker(b.Repo, b.Metrics, b.logger)
}
