package storage

import (
	"database/sql"
	"fmt"
	"time"

	"fintrack/internal/core"
)

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullInt64(v int64) sql.NullInt64 {
	return sql.NullInt64{Int64: v, Valid: v != 0}
}

func parseTimestamp(s string) time.Time {
	t, err := time.Parse(timestampLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func toCoreUser(u User) core.User {
	return core.User{
		ID:           u.ID,
		Username:     u.Username,
		PasswordHash: u.PasswordHash,
		CreatedAt:    parseTimestamp(u.CreatedAt),
	}
}

func toCoreTransaction(row Transaction) (core.Transaction, error) {
	d, err := core.ParseDate(row.Date)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("parse date of transaction %d: %w", row.ID, err)
	}
	return core.Transaction{
		ID:                 row.ID,
		UserID:             row.UserID,
		Date:               d,
		Description:        row.Description,
		Amount:             core.Money{Cents: row.AmountCents},
		Category:           row.Category,
		Type:               core.TransactionType(row.Type),
		IsRecurring:        row.IsRecurring,
		RecurringFrequency: core.RepetitionTypes(row.RecurringFrequency.String),
		SeriesID:           row.SeriesID.Int64,
		CreatedAt:          parseTimestamp(row.CreatedAt),
	}, nil
}

func toCoreTransactions(rows []Transaction) ([]core.Transaction, error) {
	out := make([]core.Transaction, 0, len(rows))
	for _, row := range rows {
		t, err := toCoreTransaction(row)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

func toCoreBudget(row Budget) core.Budget {
	return core.Budget{
		ID:       row.ID,
		UserID:   row.UserID,
		Category: row.Category,
		Amount:   core.Money{Cents: row.AmountCents},
		Month:    core.MonthKey(row.Month),
	}
}

func toCoreSavingsGoal(row SavingsGoal) (core.SavingsGoal, error) {
	g := core.SavingsGoal{
		ID:            row.ID,
		UserID:        row.UserID,
		Name:          row.Name,
		TargetAmount:  core.Money{Cents: row.TargetCents},
		CurrentAmount: core.Money{Cents: row.CurrentCents},
		CreatedAt:     parseTimestamp(row.CreatedAt),
	}
	if row.TargetDate.Valid {
		d, err := core.ParseDate(row.TargetDate.String)
		if err != nil {
			return core.SavingsGoal{}, fmt.Errorf("parse target date of goal %d: %w", row.ID, err)
		}
		g.TargetDate = d
	}
	return g, nil
}
