package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"

	"fintrack/internal/core"
	"fintrack/internal/log"
)

func discardLogger() *log.Logger {
	return log.New(log.Config{Level: slog.LevelDebug, Format: "json", Output: io.Discard})
}

// memStore is an in-memory TransactionStore with owner-filtered deletes.
type memStore struct {
	mu     sync.Mutex
	nextID int64
	rows   map[int64]core.Transaction
	err    error
}

func newMemStore() *memStore {
	return &memStore{rows: make(map[int64]core.Transaction)}
}

func (m *memStore) CreateTransaction(_ context.Context, t core.Transaction) (core.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return core.Transaction{}, m.err
	}
	m.nextID++
	t.ID = m.nextID
	m.rows[t.ID] = t
	return t, nil
}

func (m *memStore) DeleteTransaction(_ context.Context, id, userID int64) (core.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.rows[id]
	if !ok || t.UserID != userID {
		return core.Transaction{}, core.ErrNotFound
	}
	delete(m.rows, id)
	return t, nil
}

func (m *memStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rows)
}

type publishedEvent struct {
	kind string
	id   int64
}

type fakePublisher struct {
	mu     sync.Mutex
	events []publishedEvent
	err    error
}

func (p *fakePublisher) PublishTransactionEvent(_ context.Context, kind string, t core.Transaction) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, publishedEvent{kind: kind, id: t.ID})
	return nil
}

type countingObserver struct {
	created, deleted      int
	publishOK, publishErr int
}

func (o *countingObserver) TransactionCreated(core.TransactionType) { o.created++ }
func (o *countingObserver) TransactionDeleted()                     { o.deleted++ }
func (o *countingObserver) EventPublished(_ string, ok bool) {
	if ok {
		o.publishOK++
	} else {
		o.publishErr++
	}
}

var errBroker = errors.New("broker unavailable")
