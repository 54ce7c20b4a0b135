package core

import (
	"errors"
	"testing"
	"time"
)

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2024-05-03")
	if err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if d.String() != "2024-05-03" || d.MonthKey() != "2024-05" {
		t.Fatalf("unexpected date %s / %s", d, d.MonthKey())
	}
	for _, bad := range []string{"", "2024-13-01", "03/05/2024", "2024-02-30"} {
		if _, err := ParseDate(bad); err == nil {
			t.Fatalf("%q expected error", bad)
		}
	}
}

func TestMonthKeyRange(t *testing.T) {
	cases := []struct {
		month    MonthKey
		from, to string
	}{
		{"2024-05", "2024-05-01", "2024-06-01"},
		{"2024-12", "2024-12-01", "2025-01-01"},
		{"2024-02", "2024-02-01", "2024-03-01"},
	}
	for _, tc := range cases {
		from, to := tc.month.Range()
		if from.String() != tc.from || to.String() != tc.to {
			t.Fatalf("%s: got [%s, %s), want [%s, %s)", tc.month, from, to, tc.from, tc.to)
		}
	}
	if MonthKey("2024-01").Prev() != "2023-12" || MonthKey("2024-12").Next() != "2025-01" {
		t.Fatal("Prev/Next crossed the year boundary incorrectly")
	}
}

func TestParseMonthKey(t *testing.T) {
	if m, err := ParseMonthKey("2024-05"); err != nil || m != "2024-05" {
		t.Fatalf("expected 2024-05, got %q (err=%v)", m, err)
	}
	for _, bad := range []string{"2024-5-1", "May", "2024-00", ""} {
		if _, err := ParseMonthKey(bad); !errors.Is(err, ErrValidation) {
			t.Fatalf("%q expected ErrValidation, got %v", bad, err)
		}
	}
}

func TestTransactionValidate(t *testing.T) {
	good := Transaction{
		Date:        NewDate(2024, 5, 3),
		Description: "Pizza night",
		Amount:      Money{Cents: 1250},
		Category:    "Food",
		Type:        Expense,
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	tests := []struct {
		name  string
		mut   func(*Transaction)
		field string
	}{
		{"zero date", func(tx *Transaction) { tx.Date = Date{Time: time.Time{}} }, "date"},
		{"blank description", func(tx *Transaction) { tx.Description = "  " }, "description"},
		{"bad type", func(tx *Transaction) { tx.Type = "transfer" }, "type"},
		{"missing category", func(tx *Transaction) { tx.Category = "" }, "category"},
		{"recurring without valid frequency", func(tx *Transaction) {
			tx.IsRecurring = true
			tx.RecurringFrequency = "fortnightly"
		}, "recurring_frequency"},
		{"frequency on one-off", func(tx *Transaction) { tx.RecurringFrequency = Monthly }, "recurring_frequency"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx := good
			tt.mut(&tx)
			err := tx.Validate()
			var vErr *ValidationError
			if !errors.As(err, &vErr) {
				t.Fatalf("expected *ValidationError, got %v", err)
			}
			if vErr.Field != tt.field {
				t.Errorf("Field = %q, want %q", vErr.Field, tt.field)
			}
			if !errors.Is(err, ErrValidation) {
				t.Error("expected errors.Is(err, ErrValidation)")
			}
		})
	}
}

func TestSavingsGoalProgress(t *testing.T) {
	g := SavingsGoal{Name: "Bike", TargetAmount: Money{Cents: 1000}, CurrentAmount: Money{Cents: 250}}
	if g.Progress() != 25 {
		t.Fatalf("Progress() = %d, want 25", g.Progress())
	}
	g.CurrentAmount = Money{Cents: 5000}
	if g.Progress() != 100 {
		t.Fatalf("Progress() = %d, want capped 100", g.Progress())
	}
	if err := (SavingsGoal{Name: "", TargetAmount: Money{Cents: 1}}).Validate(); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
