package services

import (
	"context"
	"fmt"
	"strings"

	"fintrack/internal/core"
	"fintrack/internal/log"
)

const (
	MsgTransactionAdded = "Transaction added successfully!"
	MsgRecurringAdded   = "Recurring transaction added! It will repeat %s."
)

// TransactionStore persists transactions; deletes must be owner-filtered and
// atomic.
type TransactionStore interface {
	CreateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error)
	DeleteTransaction(ctx context.Context, id, userID int64) (core.Transaction, error)
}

// EventPublisher announces transaction changes. Failures never undo the
// change that triggered them.
type EventPublisher interface {
	PublishTransactionEvent(ctx context.Context, kind string, t core.Transaction) error
}

// Classifier maps descriptions to categories and knows the vocabulary.
type Classifier interface {
	Classify(description string) string
	Known(category string) bool
}

// TransactionObserver receives counters for created and deleted rows and
// for publish outcomes.
type TransactionObserver interface {
	TransactionCreated(kind core.TransactionType)
	TransactionDeleted()
	EventPublished(kind string, ok bool)
}

// NewTransaction is the raw user input for AddTransaction.
type NewTransaction struct {
	Date               string
	Description        string
	AmountText         string
	Category           string
	Type               string
	IsRecurring        bool
	RecurringFrequency string
}

// Created is a stored transaction plus the confirmation to show the user.
type Created struct {
	Transaction core.Transaction
	Message     string
}

type TransactionService struct {
	store      TransactionStore
	classifier Classifier
	publisher  EventPublisher
	observer   TransactionObserver
	logger     *log.StructuredLogger
}

// NewTransactionService wires the lifecycle manager. publisher and observer
// may be nil.
func NewTransactionService(store TransactionStore, classifier Classifier, publisher EventPublisher, observer TransactionObserver, logger *log.Logger) *TransactionService {
	return &TransactionService{
		store:      store,
		classifier: classifier,
		publisher:  publisher,
		observer:   observer,
		logger:     log.NewStructuredLogger(logger.WithComponent(log.ComponentTransaction)),
	}
}

// BuildTransaction turns raw input into a validated transaction without
// storing it. The amount is checked first, then the required fields; an
// empty category is filled in by the classifier.
func (s *TransactionService) BuildTransaction(userID int64, in NewTransaction) (core.Transaction, error) {
	amount, err := core.ParseAmount(in.AmountText)
	if err != nil {
		return core.Transaction{}, err
	}

	dateText := strings.TrimSpace(in.Date)
	if dateText == "" {
		return core.Transaction{}, &core.ValidationError{Field: "date", Reason: "required"}
	}
	date, err := core.ParseDate(dateText)
	if err != nil {
		return core.Transaction{}, &core.ValidationError{Field: "date", Reason: "must be a YYYY-MM-DD date"}
	}

	description := strings.TrimSpace(in.Description)
	if description == "" {
		return core.Transaction{}, &core.ValidationError{Field: "description", Reason: "required"}
	}

	kind := core.TransactionType(strings.ToLower(strings.TrimSpace(in.Type)))
	if kind == "" {
		return core.Transaction{}, &core.ValidationError{Field: "type", Reason: "required"}
	}

	category := strings.TrimSpace(in.Category)
	if category == "" {
		category = s.classifier.Classify(description)
	} else if !s.classifier.Known(category) {
		return core.Transaction{}, &core.ValidationError{Field: "category", Reason: "unknown category"}
	}

	t := core.Transaction{
		UserID:      userID,
		Date:        date,
		Description: description,
		Amount:      amount,
		Category:    category,
		Type:        kind,
		IsRecurring: in.IsRecurring,
	}
	if in.IsRecurring {
		t.RecurringFrequency = core.RepetitionTypes(strings.ToLower(strings.TrimSpace(in.RecurringFrequency)))
		if t.RecurringFrequency == "" {
			t.RecurringFrequency = core.Monthly
		}
	}

	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}
	return t, nil
}

// AddTransaction validates, stores and announces a new transaction.
func (s *TransactionService) AddTransaction(ctx context.Context, userID int64, in NewTransaction) (Created, error) {
	t, err := s.BuildTransaction(userID, in)
	if err != nil {
		return Created{}, err
	}

	stored, err := s.store.CreateTransaction(ctx, t)
	if err != nil {
		return Created{}, fmt.Errorf("save transaction: %w", err)
	}

	s.logger.LogTransactionCreated(ctx, userID, stored.ID, string(stored.Type), stored.Category, stored.Amount.Cents, stored.IsRecurring)
	if s.observer != nil {
		s.observer.TransactionCreated(stored.Type)
	}
	s.publish(ctx, core.EventCreated, stored)

	msg := MsgTransactionAdded
	if stored.IsRecurring {
		msg = fmt.Sprintf(MsgRecurringAdded, stored.RecurringFrequency)
	}
	return Created{Transaction: stored, Message: msg}, nil
}

// DeleteTransaction removes a transaction owned by userID. Missing and
// foreign transactions both yield core.ErrNotFound.
func (s *TransactionService) DeleteTransaction(ctx context.Context, id, userID int64) error {
	if id <= 0 {
		return core.ErrNotFound
	}
	deleted, err := s.store.DeleteTransaction(ctx, id, userID)
	if err != nil {
		return err
	}

	s.logger.LogTransactionDeleted(ctx, userID, id)
	if s.observer != nil {
		s.observer.TransactionDeleted()
	}
	s.publish(ctx, core.EventDeleted, deleted)
	return nil
}

func (s *TransactionService) publish(ctx context.Context, kind string, t core.Transaction) {
	if s.publisher == nil {
		return
	}
	err := s.publisher.PublishTransactionEvent(ctx, kind, t)
	if s.observer != nil {
		s.observer.EventPublished(kind, err == nil)
	}
	if err != nil {
		s.logger.LogError(ctx, "Failed to publish transaction event", err, log.OpPublish,
			log.NewFields().WithUser(t.UserID).WithComponent(log.ComponentAMQP))
	}
}
