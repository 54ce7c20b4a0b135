package services

import (
	"context"
	"fmt"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/log"
)

// RecurringStore lists recurring origins across all users and stores their
// generated occurrences. CreateOccurrence must store the occurrence and
// record the run of its series atomically: either both happen or neither.
type RecurringStore interface {
	ListRecurringSeries(ctx context.Context) ([]core.RecurringSeries, error)
	CreateOccurrence(ctx context.Context, occurrence core.Transaction) (core.Transaction, error)
}

type RecurringObserver interface {
	RecurringOccurrenceGenerated()
}

// RecurringProcessor materializes occurrences of recurring transactions.
type RecurringProcessor struct {
	store     RecurringStore
	checkers  DuenessCheckers
	publisher EventPublisher
	observer  RecurringObserver
	logger    *log.Logger
}

// NewRecurringProcessor uses the default checkers. publisher and observer
// may be nil.
func NewRecurringProcessor(store RecurringStore, publisher EventPublisher, observer RecurringObserver, logger *log.Logger) *RecurringProcessor {
	return &RecurringProcessor{
		store:     store,
		checkers:  DefaultDuenessCheckers(),
		publisher: publisher,
		observer:  observer,
		logger:    logger.WithComponent(log.ComponentRecurring),
	}
}

// ProcessDue creates at most one occurrence per due series, dated on the
// day of now, and returns how many were created. A failing series is logged
// and skipped so one bad row cannot stall the rest.
func (p *RecurringProcessor) ProcessDue(ctx context.Context, now time.Time) (int, error) {
	series, err := p.store.ListRecurringSeries(ctx)
	if err != nil {
		return 0, fmt.Errorf("list recurring series: %w", err)
	}

	today := core.DateOf(now)
	p.logger.InfoContext(ctx, "Processing recurring transactions",
		"total_active", len(series),
		"processing_date", today.String())

	processed := 0
	for _, s := range series {
		if err := ctx.Err(); err != nil {
			return processed, err
		}

		origin := s.Origin
		checker, err := p.checkers.For(origin.RecurringFrequency)
		if err != nil {
			p.logger.ErrorContext(ctx, "Skipping recurring transaction",
				log.FieldTransactionID, origin.ID,
				log.FieldError, err.Error())
			continue
		}

		last := s.LastRunOn
		if last.IsZero() {
			last = origin.Date
		}
		if !checker.IsDue(last, today, origin.Date) {
			continue
		}

		occurrence, err := p.store.CreateOccurrence(ctx, Occurrence(origin, today))
		if err != nil {
			// nothing was written, the next run retries this series
			p.logger.ErrorContext(ctx, "Failed to create occurrence",
				log.FieldTransactionID, origin.ID,
				log.FieldUserID, origin.UserID,
				log.FieldError, err.Error())
			continue
		}

		processed++
		if p.observer != nil {
			p.observer.RecurringOccurrenceGenerated()
		}
		if p.publisher != nil {
			if err := p.publisher.PublishTransactionEvent(ctx, core.EventCreated, occurrence); err != nil {
				p.logger.WarnContext(ctx, "Failed to publish occurrence event",
					log.FieldTransactionID, occurrence.ID,
					log.FieldError, err.Error())
			}
		}
		p.logger.InfoContext(ctx, "Created occurrence from recurring transaction",
			log.FieldTransactionID, occurrence.ID,
			"series_id", origin.ID,
			log.FieldUserID, origin.UserID,
			log.FieldAmountCents, origin.Amount.Cents,
			"frequency", origin.RecurringFrequency)
	}

	p.logger.InfoContext(ctx, "Recurring processing complete",
		"processed", processed,
		"total_checked", len(series))
	return processed, nil
}

// Occurrence copies origin into a one-off transaction dated on day.
func Occurrence(origin core.Transaction, day core.Date) core.Transaction {
	return core.Transaction{
		UserID:      origin.UserID,
		Date:        day,
		Description: origin.Description,
		Amount:      origin.Amount,
		Category:    origin.Category,
		Type:        origin.Type,
		SeriesID:    origin.ID,
	}
}
