package storage

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"fintrack/internal/core"
)

func newTestRepository(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to create repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func mustUser(t *testing.T, repo *SQLiteRepository, name string) core.User {
	t.Helper()
	u, err := repo.CreateUser(context.Background(), name, "hash")
	if err != nil {
		t.Fatalf("CreateUser(%q) failed: %v", name, err)
	}
	return u
}

func mustTx(t *testing.T, repo *SQLiteRepository, userID int64, date, desc string, cents int64, category string, typ core.TransactionType) core.Transaction {
	t.Helper()
	d, err := core.ParseDate(date)
	if err != nil {
		t.Fatalf("bad date %q: %v", date, err)
	}
	created, err := repo.CreateTransaction(context.Background(), core.Transaction{
		UserID:      userID,
		Date:        d,
		Description: desc,
		Amount:      core.Money{Cents: cents},
		Category:    category,
		Type:        typ,
	})
	if err != nil {
		t.Fatalf("CreateTransaction failed: %v", err)
	}
	return created
}

func TestUsers(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	alice := mustUser(t, repo, "alice")
	if alice.ID == 0 || alice.CreatedAt.IsZero() {
		t.Fatalf("expected id and created_at to be assigned, got %+v", alice)
	}

	if _, err := repo.CreateUser(ctx, "alice", "other"); !errors.Is(err, core.ErrDuplicateUsername) {
		t.Fatalf("expected ErrDuplicateUsername, got %v", err)
	}

	// Usernames are case-sensitive.
	if _, err := repo.CreateUser(ctx, "Alice", "hash"); err != nil {
		t.Fatalf("expected Alice to be distinct from alice, got %v", err)
	}

	got, err := repo.GetUserByUsername(ctx, "alice")
	if err != nil || got.ID != alice.ID {
		t.Fatalf("GetUserByUsername = %+v, %v", got, err)
	}
	if _, err := repo.GetUserByUsername(ctx, "nobody"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := repo.GetUserByID(ctx, 9999); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMonthlyAggregates(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	a := mustUser(t, repo, "a")
	b := mustUser(t, repo, "b")

	mustTx(t, repo, a.ID, "2024-05-03", "Pizza", 1250, "Food", core.Expense)
	mustTx(t, repo, a.ID, "2024-05-20", "Groceries", 3750, "Food", core.Expense)
	mustTx(t, repo, a.ID, "2024-05-31", "Uber", 900, "Transportation", core.Expense)
	mustTx(t, repo, a.ID, "2024-05-01", "Salary", 200000, "Income", core.Income)
	mustTx(t, repo, a.ID, "2024-04-30", "Pizza", 999, "Food", core.Expense)
	mustTx(t, repo, a.ID, "2024-06-01", "Pizza", 888, "Food", core.Expense)
	mustTx(t, repo, b.ID, "2024-05-10", "Pizza", 7000, "Food", core.Expense)

	t.Run("category totals are per user and per month", func(t *testing.T) {
		cats, err := repo.SumExpensesByCategory(ctx, a.ID, "2024-05")
		if err != nil {
			t.Fatalf("SumExpensesByCategory failed: %v", err)
		}
		if len(cats) != 2 {
			t.Fatalf("expected 2 categories, got %+v", cats)
		}
		if cats[0].Name != "Food" || cats[0].Amount.Cents != 5000 {
			t.Errorf("Food = %+v, want 5000 cents", cats[0])
		}
		if cats[1].Name != "Transportation" || cats[1].Amount.Cents != 900 {
			t.Errorf("Transportation = %+v, want 900 cents", cats[1])
		}
	})

	t.Run("income and expense totals", func(t *testing.T) {
		income, expense, err := repo.SumByType(ctx, a.ID, "2024-05")
		if err != nil {
			t.Fatalf("SumByType failed: %v", err)
		}
		if income.Cents != 200000 || expense.Cents != 5900 {
			t.Errorf("income=%d expense=%d, want 200000/5900", income.Cents, expense.Cents)
		}
	})

	t.Run("unknown user yields zero aggregates", func(t *testing.T) {
		cats, err := repo.SumExpensesByCategory(ctx, 4242, "2024-05")
		if err != nil || len(cats) != 0 {
			t.Fatalf("expected no categories, got %+v (err=%v)", cats, err)
		}
		income, expense, err := repo.SumByType(ctx, 4242, "2024-05")
		if err != nil || income.Cents != 0 || expense.Cents != 0 {
			t.Fatalf("expected zeros, got %d/%d (err=%v)", income.Cents, expense.Cents, err)
		}
	})

	t.Run("monthly totals ascending without empty months", func(t *testing.T) {
		mustTx(t, repo, a.ID, "2024-02-14", "Flowers store", 3000, "Shopping", core.Expense)

		points, err := repo.MonthlyTotals(ctx, a.ID, core.NewDate(2024, 1, 1))
		if err != nil {
			t.Fatalf("MonthlyTotals failed: %v", err)
		}
		want := []core.MonthKey{"2024-02", "2024-04", "2024-05", "2024-06"}
		if len(points) != len(want) {
			t.Fatalf("got %d points, want %d: %+v", len(points), len(want), points)
		}
		for i, p := range points {
			if p.Month != want[i] {
				t.Errorf("points[%d].Month = %s, want %s", i, p.Month, want[i])
			}
		}
		if points[2].Income.Cents != 200000 || points[2].Expense.Cents != 5900 {
			t.Errorf("May totals = %+v", points[2])
		}
	})
}

func TestDeleteTransactionOwnership(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	a := mustUser(t, repo, "a")
	b := mustUser(t, repo, "b")
	tx := mustTx(t, repo, a.ID, "2024-05-03", "Pizza", 1250, "Food", core.Expense)

	if _, err := repo.DeleteTransaction(ctx, tx.ID, b.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("delete by non-owner: expected ErrNotFound, got %v", err)
	}
	if _, err := repo.GetTransaction(ctx, tx.ID, a.ID); err != nil {
		t.Fatalf("transaction must survive a foreign delete: %v", err)
	}

	deleted, err := repo.DeleteTransaction(ctx, tx.ID, a.ID)
	if err != nil {
		t.Fatalf("delete by owner failed: %v", err)
	}
	if deleted.ID != tx.ID || deleted.Amount.Cents != 1250 {
		t.Errorf("deleted = %+v", deleted)
	}

	if _, err := repo.DeleteTransaction(ctx, tx.ID, a.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("second delete: expected ErrNotFound, got %v", err)
	}
	if _, err := repo.DeleteTransaction(ctx, 123456, a.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("missing id: expected ErrNotFound, got %v", err)
	}
}

func TestDeleteTransactionConcurrent(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	owner := mustUser(t, repo, "owner")

	const workers = 8
	for round := 0; round < 10; round++ {
		tx := mustTx(t, repo, owner.ID, "2024-05-03", "Groceries", 4200, "Food", core.Expense)

		var (
			wg    sync.WaitGroup
			start = make(chan struct{})
			errs  = make(chan error, workers)
		)
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				<-start
				_, err := repo.DeleteTransaction(ctx, tx.ID, owner.ID)
				errs <- err
			}()
		}
		close(start)
		wg.Wait()
		close(errs)

		succeeded := 0
		for err := range errs {
			switch {
			case err == nil:
				succeeded++
			case !errors.Is(err, core.ErrNotFound):
				t.Fatalf("round %d: unexpected error %v", round, err)
			}
		}
		if succeeded != 1 {
			t.Fatalf("round %d: %d deletes succeeded, want exactly 1", round, succeeded)
		}
	}
}

func TestListRecentTransactionsOrder(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	clock := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	repo.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}

	a := mustUser(t, repo, "a")
	first := mustTx(t, repo, a.ID, "2024-05-03", "first", 100, "Other", core.Expense)
	second := mustTx(t, repo, a.ID, "2024-05-03", "second", 100, "Other", core.Expense)
	older := mustTx(t, repo, a.ID, "2024-04-01", "older", 100, "Other", core.Expense)
	newer := mustTx(t, repo, a.ID, "2024-05-09", "newer", 100, "Other", core.Expense)

	got, err := repo.ListRecentTransactions(ctx, a.ID, 3)
	if err != nil {
		t.Fatalf("ListRecentTransactions failed: %v", err)
	}
	want := []int64{newer.ID, second.ID, first.ID}
	if len(got) != len(want) {
		t.Fatalf("got %d rows, want %d", len(got), len(want))
	}
	for i, tx := range got {
		if tx.ID != want[i] {
			t.Errorf("row %d = %d (%s), want %d", i, tx.ID, tx.Description, want[i])
		}
	}
	_ = older

	month, err := repo.ListTransactionsByMonth(ctx, a.ID, "2024-04")
	if err != nil || len(month) != 1 || month[0].ID != older.ID {
		t.Fatalf("ListTransactionsByMonth = %+v (err=%v)", month, err)
	}
}

func TestRecurringSeries(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	a := mustUser(t, repo, "a")

	origin, err := repo.CreateTransaction(ctx, core.Transaction{
		UserID:             a.ID,
		Date:               core.NewDate(2024, 1, 5),
		Description:        "Rent",
		Amount:             core.Money{Cents: 90000},
		Category:           "Bills",
		Type:               core.Expense,
		IsRecurring:        true,
		RecurringFrequency: core.Monthly,
	})
	if err != nil {
		t.Fatalf("CreateTransaction failed: %v", err)
	}
	mustTx(t, repo, a.ID, "2024-01-06", "one-off", 100, "Other", core.Expense)

	series, err := repo.ListRecurringSeries(ctx)
	if err != nil {
		t.Fatalf("ListRecurringSeries failed: %v", err)
	}
	if len(series) != 1 || series[0].Origin.ID != origin.ID || !series[0].LastRunOn.IsZero() {
		t.Fatalf("series = %+v", series)
	}
	if series[0].Origin.RecurringFrequency != core.Monthly {
		t.Errorf("frequency = %q", series[0].Origin.RecurringFrequency)
	}

	occurrenceOn := func(day core.Date, typ core.TransactionType) core.Transaction {
		return core.Transaction{
			UserID:      a.ID,
			Date:        day,
			Description: "Rent",
			Amount:      core.Money{Cents: 90000},
			Category:    "Bills",
			Type:        typ,
			SeriesID:    origin.ID,
		}
	}

	// a failing insert must not leave the run recorded
	if _, err := repo.CreateOccurrence(ctx, occurrenceOn(core.NewDate(2024, 2, 5), "bogus")); err == nil {
		t.Fatal("expected the CHECK constraint to reject the occurrence")
	}
	series, err = repo.ListRecurringSeries(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !series[0].LastRunOn.IsZero() {
		t.Fatalf("last run recorded despite failed insert: %s", series[0].LastRunOn)
	}

	occurrence, err := repo.CreateOccurrence(ctx, occurrenceOn(core.NewDate(2024, 2, 5), core.Expense))
	if err != nil {
		t.Fatalf("CreateOccurrence failed: %v", err)
	}
	if occurrence.SeriesID != origin.ID {
		t.Errorf("SeriesID = %d, want %d", occurrence.SeriesID, origin.ID)
	}

	// a second run for the same day writes nothing
	if _, err := repo.CreateOccurrence(ctx, occurrenceOn(core.NewDate(2024, 2, 5), core.Expense)); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("duplicate run: expected ErrNotFound, got %v", err)
	}
	feb, err := repo.ListTransactionsByMonth(ctx, a.ID, "2024-02")
	if err != nil {
		t.Fatal(err)
	}
	if len(feb) != 1 {
		t.Errorf("February rows = %d, want 1", len(feb))
	}

	series, err = repo.ListRecurringSeries(ctx)
	if err != nil {
		t.Fatalf("ListRecurringSeries failed: %v", err)
	}
	if len(series) != 1 || series[0].LastRunOn.String() != "2024-02-05" {
		t.Fatalf("series after run = %+v", series)
	}
}

func TestBudgetsAndGoals(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	a := mustUser(t, repo, "a")
	b := mustUser(t, repo, "b")

	t.Run("budget upsert replaces the amount", func(t *testing.T) {
		first, err := repo.UpsertBudget(ctx, core.Budget{UserID: a.ID, Category: "Food", Amount: core.Money{Cents: 30000}, Month: "2024-05"})
		if err != nil {
			t.Fatalf("UpsertBudget failed: %v", err)
		}
		second, err := repo.UpsertBudget(ctx, core.Budget{UserID: a.ID, Category: "Food", Amount: core.Money{Cents: 45000}, Month: "2024-05"})
		if err != nil {
			t.Fatalf("UpsertBudget failed: %v", err)
		}
		if first.ID != second.ID || second.Amount.Cents != 45000 {
			t.Fatalf("expected in-place update, got %+v then %+v", first, second)
		}
		budgets, err := repo.ListBudgets(ctx, a.ID, "2024-05")
		if err != nil || len(budgets) != 1 {
			t.Fatalf("ListBudgets = %+v (err=%v)", budgets, err)
		}
		if err := repo.DeleteBudget(ctx, first.ID, b.ID); !errors.Is(err, core.ErrNotFound) {
			t.Fatalf("foreign budget delete: expected ErrNotFound, got %v", err)
		}
	})

	t.Run("goal contributions respect ownership", func(t *testing.T) {
		goal, err := repo.CreateSavingsGoal(ctx, core.SavingsGoal{
			UserID:       a.ID,
			Name:         "Bike",
			TargetAmount: core.Money{Cents: 50000},
			TargetDate:   core.NewDate(2024, 12, 1),
		})
		if err != nil {
			t.Fatalf("CreateSavingsGoal failed: %v", err)
		}
		if goal.CurrentAmount.Cents != 0 || goal.TargetDate.String() != "2024-12-01" {
			t.Fatalf("goal = %+v", goal)
		}

		updated, err := repo.ContributeToSavingsGoal(ctx, goal.ID, a.ID, core.Money{Cents: 12500})
		if err != nil || updated.CurrentAmount.Cents != 12500 {
			t.Fatalf("contribute = %+v (err=%v)", updated, err)
		}
		if _, err := repo.ContributeToSavingsGoal(ctx, goal.ID, b.ID, core.Money{Cents: 1}); !errors.Is(err, core.ErrNotFound) {
			t.Fatalf("foreign contribution: expected ErrNotFound, got %v", err)
		}

		goals, err := repo.ListSavingsGoals(ctx, b.ID)
		if err != nil || len(goals) != 0 {
			t.Fatalf("b must not see a's goals: %+v (err=%v)", goals, err)
		}
		if err := repo.DeleteSavingsGoal(ctx, goal.ID, a.ID); err != nil {
			t.Fatalf("DeleteSavingsGoal failed: %v", err)
		}
	})
}

func TestRecordEventIsIdempotent(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	ev := core.TransactionEvent{
		UserID:        7,
		TransactionID: 42,
		Kind:          "created",
		Type:          core.Expense,
		Category:      "Food",
		Amount:        core.Money{Cents: 1250},
		Date:          core.NewDate(2024, 5, 3),
		OccurredAt:    time.Date(2024, 5, 3, 12, 0, 0, 0, time.UTC),
	}
	inserted, err := repo.RecordEvent(ctx, ev)
	if err != nil || !inserted {
		t.Fatalf("first RecordEvent = %v, %v", inserted, err)
	}
	inserted, err = repo.RecordEvent(ctx, ev)
	if err != nil || inserted {
		t.Fatalf("duplicate RecordEvent = %v, %v", inserted, err)
	}

	events, err := repo.ListEvents(ctx, 7, 10)
	if err != nil || len(events) != 1 {
		t.Fatalf("ListEvents = %+v (err=%v)", events, err)
	}
	if events[0].Amount.Cents != 1250 || !events[0].OccurredAt.Equal(ev.OccurredAt) {
		t.Errorf("event = %+v", events[0])
	}
}

func TestSchemaVersion(t *testing.T) {
	repo := newTestRepository(t)
	version, dirty, err := repo.SchemaVersion()
	if err != nil {
		t.Fatalf("SchemaVersion failed: %v", err)
	}
	if version != 2 || dirty {
		t.Fatalf("version=%d dirty=%v, want 2/false", version, dirty)
	}

	cols, err := repo.TransactionsTableInfo(context.Background())
	if err != nil {
		t.Fatalf("TransactionsTableInfo failed: %v", err)
	}
	names := map[string]bool{}
	for _, c := range cols {
		names[c.Name] = true
	}
	for _, want := range []string{"id", "user_id", "date", "amount_cents", "category", "type", "created_at"} {
		if !names[want] {
			t.Errorf("missing column %q", want)
		}
	}
}
