package storage

import "database/sql"

type User struct {
	ID           int64
	Username     string
	PasswordHash string
	CreatedAt    string
}

type Transaction struct {
	ID                 int64
	UserID             int64
	Date               string
	Description        string
	AmountCents        int64
	Category           string
	Type               string
	IsRecurring        bool
	RecurringFrequency sql.NullString
	SeriesID           sql.NullInt64
	LastRunOn          sql.NullString
	CreatedAt          string
}

type Budget struct {
	ID          int64
	UserID      int64
	Category    string
	AmountCents int64
	Month       string
}

type SavingsGoal struct {
	ID           int64
	UserID       int64
	Name         string
	TargetCents  int64
	CurrentCents int64
	TargetDate   sql.NullString
	CreatedAt    string
}

type TransactionEvent struct {
	ID            int64
	UserID        int64
	TransactionID int64
	Kind          string
	Type          string
	Category      string
	AmountCents   int64
	Date          string
	OccurredAt    string
}
