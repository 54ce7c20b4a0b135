package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"fintrack/internal/core"

	_ "modernc.org/sqlite"
)

// timestampLayout is fixed width so created_at sorts correctly as text.
const timestampLayout = "2006-01-02 15:04:05.000000"

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
	dsn     string
	now     func() time.Time
}

// DSN builds the connection string used by both the repository and the
// migrator. Write transactions take the lock up front so a check-then-delete
// cannot be interleaved with another writer.
func DSN(dbPath string) string {
	return dbPath + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_txlock=immediate"
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	dsn := DSN(dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dsn); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{
		db:      db,
		queries: New(db),
		dsn:     dsn,
		now:     time.Now,
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// SchemaVersion returns the applied migration version.
func (r *SQLiteRepository) SchemaVersion() (uint, bool, error) {
	return SchemaVersion(r.dsn)
}

func (r *SQLiteRepository) timestamp() string {
	return r.now().UTC().Format(timestampLayout)
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// Users

func (r *SQLiteRepository) CreateUser(ctx context.Context, username, passwordHash string) (core.User, error) {
	u, err := r.queries.CreateUser(ctx, CreateUserParams{
		Username:     username,
		PasswordHash: passwordHash,
		CreatedAt:    r.timestamp(),
	})
	if isUniqueViolation(err) {
		return core.User{}, core.ErrDuplicateUsername
	}
	if err != nil {
		return core.User{}, fmt.Errorf("create user: %w", err)
	}
	slog.InfoContext(ctx, "User created", "user_id", u.ID)
	return toCoreUser(u), nil
}

func (r *SQLiteRepository) GetUserByUsername(ctx context.Context, username string) (core.User, error) {
	u, err := r.queries.GetUserByUsername(ctx, username)
	if errors.Is(err, sql.ErrNoRows) {
		return core.User{}, core.ErrNotFound
	}
	if err != nil {
		return core.User{}, fmt.Errorf("get user by username: %w", err)
	}
	return toCoreUser(u), nil
}

func (r *SQLiteRepository) GetUserByID(ctx context.Context, id int64) (core.User, error) {
	u, err := r.queries.GetUserByID(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return core.User{}, core.ErrNotFound
	}
	if err != nil {
		return core.User{}, fmt.Errorf("get user by id: %w", err)
	}
	return toCoreUser(u), nil
}

// Transactions

// CreateTransaction stores t and returns it with id and created_at assigned.
func (r *SQLiteRepository) createParams(t core.Transaction) CreateTransactionParams {
	return CreateTransactionParams{
		UserID:             t.UserID,
		Date:               t.Date.String(),
		Description:        t.Description,
		AmountCents:        t.Amount.Cents,
		Category:           t.Category,
		Type:               string(t.Type),
		IsRecurring:        t.IsRecurring,
		RecurringFrequency: nullString(string(t.RecurringFrequency)),
		SeriesID:           nullInt64(t.SeriesID),
		CreatedAt:          r.timestamp(),
	}
}

func (r *SQLiteRepository) CreateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	row, err := r.queries.CreateTransaction(ctx, r.createParams(t))
	if err != nil {
		return core.Transaction{}, fmt.Errorf("create transaction: %w", err)
	}

	slog.InfoContext(ctx, "Transaction saved to SQLite",
		"id", row.ID,
		"user_id", row.UserID,
		"type", row.Type,
		"category", row.Category,
		"amount_cents", row.AmountCents,
		"date", row.Date)

	return toCoreTransaction(row)
}

func (r *SQLiteRepository) GetTransaction(ctx context.Context, id, userID int64) (core.Transaction, error) {
	row, err := r.queries.GetTransactionForUser(ctx, id, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, core.ErrNotFound
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction: %w", err)
	}
	return toCoreTransaction(row)
}

// DeleteTransaction removes the transaction if it belongs to userID and
// returns what was deleted. Both the lookup and the delete are filtered by
// owner and run in one transaction; a missing row and a foreign row are
// indistinguishable to the caller.
func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, id, userID int64) (core.Transaction, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	q := r.queries.WithTx(tx)

	row, err := q.GetTransactionForUser(ctx, id, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, core.ErrNotFound
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("load transaction: %w", err)
	}

	affected, err := q.DeleteTransactionForUser(ctx, id, userID)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("delete transaction: %w", err)
	}
	if affected != 1 {
		return core.Transaction{}, core.ErrNotFound
	}

	if err := tx.Commit(); err != nil {
		return core.Transaction{}, fmt.Errorf("commit delete: %w", err)
	}

	slog.InfoContext(ctx, "Transaction deleted from SQLite", "id", id, "user_id", userID)
	return toCoreTransaction(row)
}

func (r *SQLiteRepository) ListRecentTransactions(ctx context.Context, userID int64, limit int) ([]core.Transaction, error) {
	rows, err := r.queries.ListRecentTransactions(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent transactions: %w", err)
	}
	return toCoreTransactions(rows)
}

func (r *SQLiteRepository) ListTransactionsByMonth(ctx context.Context, userID int64, month core.MonthKey) ([]core.Transaction, error) {
	from, to := month.Range()
	rows, err := r.queries.ListTransactionsInRange(ctx, userID, from.String(), to.String())
	if err != nil {
		return nil, fmt.Errorf("list transactions for %s: %w", month, err)
	}
	return toCoreTransactions(rows)
}

// Aggregates

func (r *SQLiteRepository) SumExpensesByCategory(ctx context.Context, userID int64, month core.MonthKey) ([]core.CategoryAmount, error) {
	from, to := month.Range()
	rows, err := r.queries.SumExpensesByCategory(ctx, userID, from.String(), to.String())
	if err != nil {
		return nil, fmt.Errorf("sum expenses by category: %w", err)
	}
	out := make([]core.CategoryAmount, 0, len(rows))
	for _, row := range rows {
		out = append(out, core.CategoryAmount{Name: row.Category, Amount: core.Money{Cents: row.TotalCents}})
	}
	return out, nil
}

func (r *SQLiteRepository) SumByType(ctx context.Context, userID int64, month core.MonthKey) (income, expense core.Money, err error) {
	from, to := month.Range()
	row, err := r.queries.SumByType(ctx, userID, from.String(), to.String())
	if err != nil {
		return core.Money{}, core.Money{}, fmt.Errorf("sum by type: %w", err)
	}
	return core.Money{Cents: row.IncomeCents}, core.Money{Cents: row.ExpenseCents}, nil
}

// MonthlyTotals groups income and expense by month for every transaction
// dated on or after since. Months without rows are absent.
func (r *SQLiteRepository) MonthlyTotals(ctx context.Context, userID int64, since core.Date) ([]core.TrendPoint, error) {
	rows, err := r.queries.MonthlyTotalsSince(ctx, userID, since.String())
	if err != nil {
		return nil, fmt.Errorf("monthly totals: %w", err)
	}
	out := make([]core.TrendPoint, 0, len(rows))
	for _, row := range rows {
		out = append(out, core.TrendPoint{
			Month:   core.MonthKey(row.Month),
			Income:  core.Money{Cents: row.IncomeCents},
			Expense: core.Money{Cents: row.ExpenseCents},
		})
	}
	return out, nil
}

// Recurring series

func (r *SQLiteRepository) ListRecurringSeries(ctx context.Context) ([]core.RecurringSeries, error) {
	rows, err := r.queries.ListRecurringOrigins(ctx)
	if err != nil {
		return nil, fmt.Errorf("list recurring origins: %w", err)
	}
	out := make([]core.RecurringSeries, 0, len(rows))
	for _, row := range rows {
		origin, err := toCoreTransaction(row)
		if err != nil {
			return nil, err
		}
		series := core.RecurringSeries{Origin: origin}
		if row.LastRunOn.Valid {
			if series.LastRunOn, err = core.ParseDate(row.LastRunOn.String); err != nil {
				return nil, fmt.Errorf("parse last_run_on of %d: %w", row.ID, err)
			}
		}
		out = append(out, series)
	}
	return out, nil
}

// CreateOccurrence stores occurrence and advances the last_run_on of its
// series (occurrence.SeriesID) to the occurrence date in one transaction.
// If the series is gone or already ran on or after that date nothing is
// written and ErrNotFound is returned.
func (r *SQLiteRepository) CreateOccurrence(ctx context.Context, occurrence core.Transaction) (core.Transaction, error) {
	if occurrence.SeriesID == 0 {
		return core.Transaction{}, fmt.Errorf("occurrence has no series")
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	q := r.queries.WithTx(tx)

	affected, err := q.UpdateLastRunOn(ctx, occurrence.Date.String(), occurrence.SeriesID)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("update last run: %w", err)
	}
	if affected == 0 {
		return core.Transaction{}, fmt.Errorf("series %d: %w", occurrence.SeriesID, core.ErrNotFound)
	}

	row, err := q.CreateTransaction(ctx, r.createParams(occurrence))
	if err != nil {
		return core.Transaction{}, fmt.Errorf("create occurrence: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return core.Transaction{}, fmt.Errorf("commit occurrence: %w", err)
	}

	slog.InfoContext(ctx, "Recurring occurrence saved to SQLite",
		"id", row.ID,
		"series_id", occurrence.SeriesID,
		"user_id", row.UserID,
		"date", row.Date)
	return toCoreTransaction(row)
}

// LatestTransactions lists the newest rows across all users, for diagnostics.
func (r *SQLiteRepository) LatestTransactions(ctx context.Context, limit int) ([]core.Transaction, error) {
	rows, err := r.queries.LatestTransactions(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("latest transactions: %w", err)
	}
	return toCoreTransactions(rows)
}

func (r *SQLiteRepository) TransactionsTableInfo(ctx context.Context) ([]ColumnInfo, error) {
	cols, err := r.queries.TransactionsTableInfo(ctx)
	if err != nil {
		return nil, fmt.Errorf("table info: %w", err)
	}
	return cols, nil
}

// Budgets

func (r *SQLiteRepository) UpsertBudget(ctx context.Context, b core.Budget) (core.Budget, error) {
	row, err := r.queries.UpsertBudget(ctx, UpsertBudgetParams{
		UserID:      b.UserID,
		Category:    b.Category,
		AmountCents: b.Amount.Cents,
		Month:       b.Month.String(),
	})
	if err != nil {
		return core.Budget{}, fmt.Errorf("upsert budget: %w", err)
	}
	return toCoreBudget(row), nil
}

func (r *SQLiteRepository) ListBudgets(ctx context.Context, userID int64, month core.MonthKey) ([]core.Budget, error) {
	rows, err := r.queries.ListBudgetsForMonth(ctx, userID, month.String())
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	out := make([]core.Budget, 0, len(rows))
	for _, row := range rows {
		out = append(out, toCoreBudget(row))
	}
	return out, nil
}

func (r *SQLiteRepository) DeleteBudget(ctx context.Context, id, userID int64) error {
	affected, err := r.queries.DeleteBudgetForUser(ctx, id, userID)
	if err != nil {
		return fmt.Errorf("delete budget: %w", err)
	}
	if affected == 0 {
		return core.ErrNotFound
	}
	return nil
}

// Savings goals

func (r *SQLiteRepository) CreateSavingsGoal(ctx context.Context, g core.SavingsGoal) (core.SavingsGoal, error) {
	row, err := r.queries.CreateSavingsGoal(ctx, CreateSavingsGoalParams{
		UserID:       g.UserID,
		Name:         g.Name,
		TargetCents:  g.TargetAmount.Cents,
		CurrentCents: g.CurrentAmount.Cents,
		TargetDate:   nullString(g.TargetDate.String()),
		CreatedAt:    r.timestamp(),
	})
	if err != nil {
		return core.SavingsGoal{}, fmt.Errorf("create savings goal: %w", err)
	}
	return toCoreSavingsGoal(row)
}

func (r *SQLiteRepository) ListSavingsGoals(ctx context.Context, userID int64) ([]core.SavingsGoal, error) {
	rows, err := r.queries.ListSavingsGoals(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list savings goals: %w", err)
	}
	out := make([]core.SavingsGoal, 0, len(rows))
	for _, row := range rows {
		g, err := toCoreSavingsGoal(row)
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, nil
}

func (r *SQLiteRepository) ContributeToSavingsGoal(ctx context.Context, id, userID int64, amount core.Money) (core.SavingsGoal, error) {
	row, err := r.queries.AddToSavingsGoal(ctx, amount.Cents, id, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return core.SavingsGoal{}, core.ErrNotFound
	}
	if err != nil {
		return core.SavingsGoal{}, fmt.Errorf("contribute to savings goal: %w", err)
	}
	return toCoreSavingsGoal(row)
}

func (r *SQLiteRepository) DeleteSavingsGoal(ctx context.Context, id, userID int64) error {
	affected, err := r.queries.DeleteSavingsGoalForUser(ctx, id, userID)
	if err != nil {
		return fmt.Errorf("delete savings goal: %w", err)
	}
	if affected == 0 {
		return core.ErrNotFound
	}
	return nil
}

// Audit trail

// RecordEvent stores e unless an event of the same kind was already stored
// for the transaction. It reports whether a row was written, so redelivered
// messages are harmless.
func (r *SQLiteRepository) RecordEvent(ctx context.Context, e core.TransactionEvent) (bool, error) {
	occurred := e.OccurredAt
	if occurred.IsZero() {
		occurred = r.now()
	}
	affected, err := r.queries.InsertTransactionEvent(ctx, InsertTransactionEventParams{
		UserID:        e.UserID,
		TransactionID: e.TransactionID,
		Kind:          e.Kind,
		Type:          string(e.Type),
		Category:      e.Category,
		AmountCents:   e.Amount.Cents,
		Date:          e.Date.String(),
		OccurredAt:    occurred.UTC().Format(timestampLayout),
	})
	if err != nil {
		return false, fmt.Errorf("record event: %w", err)
	}
	return affected == 1, nil
}

func (r *SQLiteRepository) ListEvents(ctx context.Context, userID int64, limit int) ([]core.TransactionEvent, error) {
	rows, err := r.queries.ListTransactionEvents(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	out := make([]core.TransactionEvent, 0, len(rows))
	for _, row := range rows {
		d, err := core.ParseDate(row.Date)
		if err != nil {
			return nil, fmt.Errorf("parse event date: %w", err)
		}
		occurred, err := time.Parse(timestampLayout, row.OccurredAt)
		if err != nil {
			return nil, fmt.Errorf("parse occurred_at: %w", err)
		}
		out = append(out, core.TransactionEvent{
			ID:            row.ID,
			UserID:        row.UserID,
			TransactionID: row.TransactionID,
			Kind:          row.Kind,
			Type:          core.TransactionType(row.Type),
			Category:      row.Category,
			Amount:        core.Money{Cents: row.AmountCents},
			Date:          d,
			OccurredAt:    occurred,
		})
	}
	return out, nil
}
