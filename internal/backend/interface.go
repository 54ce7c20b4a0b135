// Package backend opens the stores and builds the services that every
// fintrack binary shares.
package backend

import (
	"errors"
	"sync"

	"fintrack/internal/amqp"
	"fintrack/internal/classifier"
	"fintrack/internal/config"
	"fintrack/internal/log"
	"fintrack/internal/metrics"
	"fintrack/internal/services"
	"fintrack/internal/storage"
)

// Backend holds the long-lived collaborators of one process.
type Backend struct {
	Repo       *storage.SQLiteRepository
	Events     *amqp.Client // nil when events are disabled or the broker was unreachable
	Metrics    *metrics.Metrics
	Classifier *classifier.Classifier

	cfg       *config.Config
	logger    *log.Logger
	closeOnce sync.Once
}

// Services is the full set of domain services built over one Backend.
type Services struct {
	Transactions *services.TransactionService
	Reports      *services.ReportService
	Planning     *services.PlanningService
	Activity     *services.ActivityService
}

// Publisher returns the broker client as an EventPublisher, or nil. A nil
// *amqp.Client must not leak into the interface.
func (b *Backend) Publisher() services.EventPublisher {
	if b.Events == nil {
		return nil
	}
	return b.Events
}

// Close releases the broker connection and the database.
func (b *Backend) Close() error {
	var errs []error
	b.closeOnce.Do(func() {
		if b.Events != nil {
			if err := b.Events.Close(); err != nil {
				errs = append(errs, err)
			}
		}
		if err := b.Repo.Close(); err != nil {
			errs = append(errs, err)
		}
	})
	return errors.Join(errs...)
}
