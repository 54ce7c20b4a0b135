package core

import "time"

// CategoryAmount represents an amount aggregated by category name.
type CategoryAmount struct {
	Name   string
	Amount Money
}

// MonthlySummary is the per-user view of one calendar month. ByCategory only
// holds expense totals, ordered by amount descending.
type MonthlySummary struct {
	Month      MonthKey
	ByCategory []CategoryAmount
	Income     Money
	Expense    Money
}

// Net is income minus expense.
func (s MonthlySummary) Net() Money {
	return s.Income.Sub(s.Expense)
}

// TrendPoint is one month of the rolling income/expense trend.
type TrendPoint struct {
	Month   MonthKey
	Income  Money
	Expense Money
}

// BudgetStatus pairs a budget with what was actually spent in its category.
type BudgetStatus struct {
	Budget Budget
	Spent  Money
}

// Remaining is negative once the budget is exceeded.
func (b BudgetStatus) Remaining() Money {
	return b.Budget.Amount.Sub(b.Spent)
}

func (b BudgetStatus) Exceeded() bool {
	return b.Spent.Cents > b.Budget.Amount.Cents
}

// Dashboard bundles everything the landing page shows for a user.
type Dashboard struct {
	Month   MonthKey
	Recent  []Transaction
	Summary MonthlySummary
	Goals   []SavingsGoal
	Budgets []BudgetStatus
}

// Audit trail event kinds.
const (
	EventCreated = "created"
	EventDeleted = "deleted"
)

// TransactionEvent is one entry of the audit trail.
type TransactionEvent struct {
	ID            int64
	UserID        int64
	TransactionID int64
	Kind          string
	Type          TransactionType
	Category      string
	Amount        Money
	Date          Date
	OccurredAt    time.Time
}
