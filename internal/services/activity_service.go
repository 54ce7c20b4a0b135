package services

import (
	"context"

	"fintrack/internal/core"
)

const DefaultActivityLimit = 20

type EventStore interface {
	ListEvents(ctx context.Context, userID int64, limit int) ([]core.TransactionEvent, error)
}

// ActivityService reads the audit trail written by the event worker.
type ActivityService struct {
	store EventStore
}

func NewActivityService(store EventStore) *ActivityService {
	return &ActivityService{store: store}
}

// Recent returns the user's newest events first. A non-positive or
// oversized limit falls back to DefaultActivityLimit.
func (s *ActivityService) Recent(ctx context.Context, userID int64, limit int) ([]core.TransactionEvent, error) {
	if limit <= 0 || limit > 100 {
		limit = DefaultActivityLimit
	}
	events, err := s.store.ListEvents(ctx, userID, limit)
	if err != nil {
		return nil, err
	}
	if events == nil {
		events = []core.TransactionEvent{}
	}
	return events, nil
}
