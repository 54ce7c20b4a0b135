package storage

import (
	"context"
	"database/sql"
)

const userColumns = `id, username, password_hash, created_at`

const transactionColumns = `id, user_id, date, description, amount_cents, category, type,
	is_recurring, recurring_frequency, series_id, last_run_on, created_at`

const budgetColumns = `id, user_id, category, amount_cents, month`

const savingsGoalColumns = `id, user_id, name, target_cents, current_cents, target_date, created_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanUser(row rowScanner) (User, error) {
	var i User
	err := row.Scan(&i.ID, &i.Username, &i.PasswordHash, &i.CreatedAt)
	return i, err
}

func scanTransaction(row rowScanner) (Transaction, error) {
	var i Transaction
	err := row.Scan(
		&i.ID,
		&i.UserID,
		&i.Date,
		&i.Description,
		&i.AmountCents,
		&i.Category,
		&i.Type,
		&i.IsRecurring,
		&i.RecurringFrequency,
		&i.SeriesID,
		&i.LastRunOn,
		&i.CreatedAt,
	)
	return i, err
}

func scanBudget(row rowScanner) (Budget, error) {
	var i Budget
	err := row.Scan(&i.ID, &i.UserID, &i.Category, &i.AmountCents, &i.Month)
	return i, err
}

func scanSavingsGoal(row rowScanner) (SavingsGoal, error) {
	var i SavingsGoal
	err := row.Scan(&i.ID, &i.UserID, &i.Name, &i.TargetCents, &i.CurrentCents, &i.TargetDate, &i.CreatedAt)
	return i, err
}

func collect[T any](rows *sql.Rows, scan func(rowScanner) (T, error)) ([]T, error) {
	defer rows.Close()
	var items []T
	for rows.Next() {
		i, err := scan(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// Users

const createUser = `-- name: CreateUser :one
INSERT INTO users (username, password_hash, created_at)
VALUES (?, ?, ?)
RETURNING ` + userColumns

type CreateUserParams struct {
	Username     string
	PasswordHash string
	CreatedAt    string
}

func (q *Queries) CreateUser(ctx context.Context, arg CreateUserParams) (User, error) {
	row := q.db.QueryRowContext(ctx, createUser, arg.Username, arg.PasswordHash, arg.CreatedAt)
	return scanUser(row)
}

const getUserByUsername = `-- name: GetUserByUsername :one
SELECT ` + userColumns + ` FROM users WHERE username = ?`

func (q *Queries) GetUserByUsername(ctx context.Context, username string) (User, error) {
	return scanUser(q.db.QueryRowContext(ctx, getUserByUsername, username))
}

const getUserByID = `-- name: GetUserByID :one
SELECT ` + userColumns + ` FROM users WHERE id = ?`

func (q *Queries) GetUserByID(ctx context.Context, id int64) (User, error) {
	return scanUser(q.db.QueryRowContext(ctx, getUserByID, id))
}

// Transactions

const createTransaction = `-- name: CreateTransaction :one
INSERT INTO transactions (
	user_id, date, description, amount_cents, category, type,
	is_recurring, recurring_frequency, series_id, created_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
RETURNING ` + transactionColumns

type CreateTransactionParams struct {
	UserID             int64
	Date               string
	Description        string
	AmountCents        int64
	Category           string
	Type               string
	IsRecurring        bool
	RecurringFrequency sql.NullString
	SeriesID           sql.NullInt64
	CreatedAt          string
}

func (q *Queries) CreateTransaction(ctx context.Context, arg CreateTransactionParams) (Transaction, error) {
	row := q.db.QueryRowContext(ctx, createTransaction,
		arg.UserID,
		arg.Date,
		arg.Description,
		arg.AmountCents,
		arg.Category,
		arg.Type,
		arg.IsRecurring,
		arg.RecurringFrequency,
		arg.SeriesID,
		arg.CreatedAt,
	)
	return scanTransaction(row)
}

const getTransactionForUser = `-- name: GetTransactionForUser :one
SELECT ` + transactionColumns + `
FROM transactions
WHERE id = ? AND user_id = ?`

func (q *Queries) GetTransactionForUser(ctx context.Context, id, userID int64) (Transaction, error) {
	return scanTransaction(q.db.QueryRowContext(ctx, getTransactionForUser, id, userID))
}

const deleteTransactionForUser = `-- name: DeleteTransactionForUser :execrows
DELETE FROM transactions WHERE id = ? AND user_id = ?`

func (q *Queries) DeleteTransactionForUser(ctx context.Context, id, userID int64) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteTransactionForUser, id, userID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const listRecentTransactions = `-- name: ListRecentTransactions :many
SELECT ` + transactionColumns + `
FROM transactions
WHERE user_id = ?
ORDER BY date DESC, created_at DESC, id DESC
LIMIT ?`

func (q *Queries) ListRecentTransactions(ctx context.Context, userID int64, limit int) ([]Transaction, error) {
	rows, err := q.db.QueryContext(ctx, listRecentTransactions, userID, limit)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanTransaction)
}

const listTransactionsInRange = `-- name: ListTransactionsInRange :many
SELECT ` + transactionColumns + `
FROM transactions
WHERE user_id = ? AND date >= ? AND date < ?
ORDER BY date DESC, created_at DESC, id DESC`

func (q *Queries) ListTransactionsInRange(ctx context.Context, userID int64, from, to string) ([]Transaction, error) {
	rows, err := q.db.QueryContext(ctx, listTransactionsInRange, userID, from, to)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanTransaction)
}

const sumExpensesByCategory = `-- name: SumExpensesByCategory :many
SELECT category, SUM(amount_cents) AS total_cents
FROM transactions
WHERE user_id = ? AND type = 'expense' AND date >= ? AND date < ?
GROUP BY category
ORDER BY total_cents DESC, category ASC`

type SumExpensesByCategoryRow struct {
	Category   string
	TotalCents int64
}

func (q *Queries) SumExpensesByCategory(ctx context.Context, userID int64, from, to string) ([]SumExpensesByCategoryRow, error) {
	rows, err := q.db.QueryContext(ctx, sumExpensesByCategory, userID, from, to)
	if err != nil {
		return nil, err
	}
	return collect(rows, func(r rowScanner) (SumExpensesByCategoryRow, error) {
		var i SumExpensesByCategoryRow
		err := r.Scan(&i.Category, &i.TotalCents)
		return i, err
	})
}

const sumByType = `-- name: SumByType :one
SELECT
	COALESCE(SUM(CASE WHEN type = 'income' THEN amount_cents ELSE 0 END), 0) AS income_cents,
	COALESCE(SUM(CASE WHEN type = 'expense' THEN amount_cents ELSE 0 END), 0) AS expense_cents
FROM transactions
WHERE user_id = ? AND date >= ? AND date < ?`

type SumByTypeRow struct {
	IncomeCents  int64
	ExpenseCents int64
}

func (q *Queries) SumByType(ctx context.Context, userID int64, from, to string) (SumByTypeRow, error) {
	var i SumByTypeRow
	err := q.db.QueryRowContext(ctx, sumByType, userID, from, to).Scan(&i.IncomeCents, &i.ExpenseCents)
	return i, err
}

const monthlyTotalsSince = `-- name: MonthlyTotalsSince :many
SELECT
	substr(date, 1, 7) AS month,
	SUM(CASE WHEN type = 'income' THEN amount_cents ELSE 0 END) AS income_cents,
	SUM(CASE WHEN type = 'expense' THEN amount_cents ELSE 0 END) AS expense_cents
FROM transactions
WHERE user_id = ? AND date >= ?
GROUP BY month
ORDER BY month ASC`

type MonthlyTotalsRow struct {
	Month        string
	IncomeCents  int64
	ExpenseCents int64
}

func (q *Queries) MonthlyTotalsSince(ctx context.Context, userID int64, since string) ([]MonthlyTotalsRow, error) {
	rows, err := q.db.QueryContext(ctx, monthlyTotalsSince, userID, since)
	if err != nil {
		return nil, err
	}
	return collect(rows, func(r rowScanner) (MonthlyTotalsRow, error) {
		var i MonthlyTotalsRow
		err := r.Scan(&i.Month, &i.IncomeCents, &i.ExpenseCents)
		return i, err
	})
}

const listRecurringOrigins = `-- name: ListRecurringOrigins :many
SELECT ` + transactionColumns + `
FROM transactions
WHERE is_recurring = 1 AND series_id IS NULL
ORDER BY id`

func (q *Queries) ListRecurringOrigins(ctx context.Context) ([]Transaction, error) {
	rows, err := q.db.QueryContext(ctx, listRecurringOrigins)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanTransaction)
}

const updateLastRunOn = `-- name: UpdateLastRunOn :execrows
UPDATE transactions SET last_run_on = ?1
WHERE id = ?2 AND is_recurring = 1 AND (last_run_on IS NULL OR last_run_on < ?1)`

// UpdateLastRunOn only moves last_run_on forward, so a second writer for the
// same day affects no rows.
func (q *Queries) UpdateLastRunOn(ctx context.Context, lastRunOn string, id int64) (int64, error) {
	result, err := q.db.ExecContext(ctx, updateLastRunOn, lastRunOn, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const latestTransactions = `-- name: LatestTransactions :many
SELECT ` + transactionColumns + `
FROM transactions
ORDER BY created_at DESC, id DESC
LIMIT ?`

func (q *Queries) LatestTransactions(ctx context.Context, limit int) ([]Transaction, error) {
	rows, err := q.db.QueryContext(ctx, latestTransactions, limit)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanTransaction)
}

// Budgets

const upsertBudget = `-- name: UpsertBudget :one
INSERT INTO budgets (user_id, category, amount_cents, month)
VALUES (?, ?, ?, ?)
ON CONFLICT (user_id, category, month) DO UPDATE SET amount_cents = excluded.amount_cents
RETURNING ` + budgetColumns

type UpsertBudgetParams struct {
	UserID      int64
	Category    string
	AmountCents int64
	Month       string
}

func (q *Queries) UpsertBudget(ctx context.Context, arg UpsertBudgetParams) (Budget, error) {
	row := q.db.QueryRowContext(ctx, upsertBudget, arg.UserID, arg.Category, arg.AmountCents, arg.Month)
	return scanBudget(row)
}

const listBudgetsForMonth = `-- name: ListBudgetsForMonth :many
SELECT ` + budgetColumns + `
FROM budgets
WHERE user_id = ? AND month = ?
ORDER BY category`

func (q *Queries) ListBudgetsForMonth(ctx context.Context, userID int64, month string) ([]Budget, error) {
	rows, err := q.db.QueryContext(ctx, listBudgetsForMonth, userID, month)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanBudget)
}

const deleteBudgetForUser = `-- name: DeleteBudgetForUser :execrows
DELETE FROM budgets WHERE id = ? AND user_id = ?`

func (q *Queries) DeleteBudgetForUser(ctx context.Context, id, userID int64) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteBudgetForUser, id, userID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// Savings goals

const createSavingsGoal = `-- name: CreateSavingsGoal :one
INSERT INTO savings_goals (user_id, name, target_cents, current_cents, target_date, created_at)
VALUES (?, ?, ?, ?, ?, ?)
RETURNING ` + savingsGoalColumns

type CreateSavingsGoalParams struct {
	UserID       int64
	Name         string
	TargetCents  int64
	CurrentCents int64
	TargetDate   sql.NullString
	CreatedAt    string
}

func (q *Queries) CreateSavingsGoal(ctx context.Context, arg CreateSavingsGoalParams) (SavingsGoal, error) {
	row := q.db.QueryRowContext(ctx, createSavingsGoal,
		arg.UserID, arg.Name, arg.TargetCents, arg.CurrentCents, arg.TargetDate, arg.CreatedAt)
	return scanSavingsGoal(row)
}

const listSavingsGoals = `-- name: ListSavingsGoals :many
SELECT ` + savingsGoalColumns + `
FROM savings_goals
WHERE user_id = ?
ORDER BY created_at, id`

func (q *Queries) ListSavingsGoals(ctx context.Context, userID int64) ([]SavingsGoal, error) {
	rows, err := q.db.QueryContext(ctx, listSavingsGoals, userID)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanSavingsGoal)
}

const addToSavingsGoal = `-- name: AddToSavingsGoal :one
UPDATE savings_goals
SET current_cents = current_cents + ?
WHERE id = ? AND user_id = ?
RETURNING ` + savingsGoalColumns

func (q *Queries) AddToSavingsGoal(ctx context.Context, cents, id, userID int64) (SavingsGoal, error) {
	return scanSavingsGoal(q.db.QueryRowContext(ctx, addToSavingsGoal, cents, id, userID))
}

const deleteSavingsGoalForUser = `-- name: DeleteSavingsGoalForUser :execrows
DELETE FROM savings_goals WHERE id = ? AND user_id = ?`

func (q *Queries) DeleteSavingsGoalForUser(ctx context.Context, id, userID int64) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteSavingsGoalForUser, id, userID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// Transaction events

const insertTransactionEvent = `-- name: InsertTransactionEvent :execrows
INSERT OR IGNORE INTO transaction_events (
	user_id, transaction_id, kind, type, category, amount_cents, date, occurred_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

type InsertTransactionEventParams struct {
	UserID        int64
	TransactionID int64
	Kind          string
	Type          string
	Category      string
	AmountCents   int64
	Date          string
	OccurredAt    string
}

func (q *Queries) InsertTransactionEvent(ctx context.Context, arg InsertTransactionEventParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, insertTransactionEvent,
		arg.UserID,
		arg.TransactionID,
		arg.Kind,
		arg.Type,
		arg.Category,
		arg.AmountCents,
		arg.Date,
		arg.OccurredAt,
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const listTransactionEvents = `-- name: ListTransactionEvents :many
SELECT id, user_id, transaction_id, kind, type, category, amount_cents, date, occurred_at
FROM transaction_events
WHERE user_id = ?
ORDER BY occurred_at DESC, id DESC
LIMIT ?`

func (q *Queries) ListTransactionEvents(ctx context.Context, userID int64, limit int) ([]TransactionEvent, error) {
	rows, err := q.db.QueryContext(ctx, listTransactionEvents, userID, limit)
	if err != nil {
		return nil, err
	}
	return collect(rows, func(r rowScanner) (TransactionEvent, error) {
		var i TransactionEvent
		err := r.Scan(
			&i.ID,
			&i.UserID,
			&i.TransactionID,
			&i.Kind,
			&i.Type,
			&i.Category,
			&i.AmountCents,
			&i.Date,
			&i.OccurredAt,
		)
		return i, err
	})
}

// Diagnostics

const transactionsTableInfo = `-- name: TransactionsTableInfo :many
PRAGMA table_info(transactions)`

type ColumnInfo struct {
	CID          int64
	Name         string
	Type         string
	NotNull      bool
	DefaultValue sql.NullString
	PrimaryKey   int64
}

func (q *Queries) TransactionsTableInfo(ctx context.Context) ([]ColumnInfo, error) {
	rows, err := q.db.QueryContext(ctx, transactionsTableInfo)
	if err != nil {
		return nil, err
	}
	return collect(rows, func(r rowScanner) (ColumnInfo, error) {
		var i ColumnInfo
		err := r.Scan(&i.CID, &i.Name, &i.Type, &i.NotNull, &i.DefaultValue, &i.PrimaryKey)
		return i, err
	})
}
