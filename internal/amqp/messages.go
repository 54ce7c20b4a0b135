package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"fintrack/internal/core"
)

// TransactionEventMessage announces that a transaction was created or
// deleted. It carries the fields the audit trail needs, so consumers never
// read back from the primary store (deleted rows are gone by then).
type TransactionEventMessage struct {
	Kind          string    `json:"kind"`
	TransactionID int64     `json:"transaction_id"`
	UserID        int64     `json:"user_id"`
	Type          string    `json:"type"`
	Category      string    `json:"category"`
	AmountCents   int64     `json:"amount_cents"`
	Date          string    `json:"date"`
	Timestamp     time.Time `json:"timestamp"`
}

// NewTransactionEventMessage snapshots t for the given event kind.
func NewTransactionEventMessage(kind string, t core.Transaction) *TransactionEventMessage {
	return &TransactionEventMessage{
		Kind:          kind,
		TransactionID: t.ID,
		UserID:        t.UserID,
		Type:          string(t.Type),
		Category:      t.Category,
		AmountCents:   t.Amount.Cents,
		Date:          t.Date.String(),
		Timestamp:     time.Now(),
	}
}

func (m *TransactionEventMessage) Validate() error {
	switch m.Kind {
	case core.EventCreated, core.EventDeleted:
	default:
		return fmt.Errorf("unknown event kind %q", m.Kind)
	}
	if m.TransactionID <= 0 || m.UserID <= 0 {
		return fmt.Errorf("event %s: missing transaction or user id", m.Kind)
	}
	if _, err := core.ParseDate(m.Date); err != nil {
		return fmt.Errorf("event %s: bad date %q: %w", m.Kind, m.Date, err)
	}
	return nil
}

// ToJSON converts the message to JSON bytes
func (m *TransactionEventMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// TransactionEventMessageFromJSON decodes and validates a message body.
func TransactionEventMessageFromJSON(data []byte) (*TransactionEventMessage, error) {
	var msg TransactionEventMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	return &msg, nil
}

// ToEvent converts the message into an audit trail entry.
func (m *TransactionEventMessage) ToEvent() (core.TransactionEvent, error) {
	d, err := core.ParseDate(m.Date)
	if err != nil {
		return core.TransactionEvent{}, err
	}
	return core.TransactionEvent{
		UserID:        m.UserID,
		TransactionID: m.TransactionID,
		Kind:          m.Kind,
		Type:          core.TransactionType(m.Type),
		Category:      m.Category,
		Amount:        core.Money{Cents: m.AmountCents},
		Date:          d,
		OccurredAt:    m.Timestamp,
	}, nil
}
