package worker

import (
	"context"
	"fmt"

	"fintrack/internal/amqp"
	"fintrack/internal/core"
	"fintrack/internal/log"
)

// EventRecorder stores audit events. It reports false when the event was
// already stored, which makes redelivery harmless.
type EventRecorder interface {
	RecordEvent(ctx context.Context, e core.TransactionEvent) (bool, error)
}

// Consumer delivers decoded messages to a handler until ctx is done.
type Consumer interface {
	ConsumeTransactionEvents(ctx context.Context, handler func(context.Context, *amqp.TransactionEventMessage) error) error
}

type Observer interface {
	EventConsumed(kind string, ok bool)
}

// EventWorker turns transaction events from the broker into the audit trail.
type EventWorker struct {
	store    EventRecorder
	observer Observer
	logger   *log.Logger
}

func NewEventWorker(store EventRecorder, observer Observer, logger *log.Logger) *EventWorker {
	return &EventWorker{
		store:    store,
		observer: observer,
		logger:   logger.WithComponent(log.ComponentWorker),
	}
}

// Run consumes until ctx is cancelled or the consumer fails.
func (w *EventWorker) Run(ctx context.Context, consumer Consumer) error {
	w.logger.InfoContext(ctx, "Event worker started")
	err := consumer.ConsumeTransactionEvents(ctx, w.HandleEventMessage)
	if err != nil && ctx.Err() == nil {
		return fmt.Errorf("consume transaction events: %w", err)
	}
	w.logger.InfoContext(ctx, "Event worker stopped")
	return nil
}

// HandleEventMessage records one message. A returned error asks the broker
// to redeliver.
func (w *EventWorker) HandleEventMessage(ctx context.Context, msg *amqp.TransactionEventMessage) error {
	w.logger.DebugContext(ctx, "Processing transaction event",
		"kind", msg.Kind,
		log.FieldTransactionID, msg.TransactionID,
		log.FieldUserID, msg.UserID)

	event, err := msg.ToEvent()
	if err != nil {
		w.observe(msg.Kind, false)
		// Malformed payloads will never succeed; drop them.
		w.logger.WarnContext(ctx, "Dropping malformed transaction event",
			log.FieldTransactionID, msg.TransactionID,
			log.FieldError, err.Error())
		return nil
	}

	stored, err := w.store.RecordEvent(ctx, event)
	if err != nil {
		w.observe(msg.Kind, false)
		return fmt.Errorf("record event: %w", err)
	}
	w.observe(msg.Kind, true)

	if !stored {
		w.logger.InfoContext(ctx, "Duplicate transaction event ignored",
			"kind", msg.Kind,
			log.FieldTransactionID, msg.TransactionID)
		return nil
	}
	w.logger.InfoContext(ctx, "Transaction event recorded",
		"kind", msg.Kind,
		log.FieldTransactionID, msg.TransactionID,
		log.FieldUserID, msg.UserID,
		log.FieldAmountCents, msg.AmountCents)
	return nil
}

func (w *EventWorker) observe(kind string, ok bool) {
	if w.observer != nil {
		w.observer.EventConsumed(kind, ok)
	}
}
