package services

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"fintrack/internal/core"
)

const (
	DefaultTrendWindow = 6
	DefaultRecentLimit = 10
)

// ReportStore is the read side of the repository used by reports. Every
// method is scoped to one user.
type ReportStore interface {
	SumExpensesByCategory(ctx context.Context, userID int64, month core.MonthKey) ([]core.CategoryAmount, error)
	SumByType(ctx context.Context, userID int64, month core.MonthKey) (income, expense core.Money, err error)
	MonthlyTotals(ctx context.Context, userID int64, since core.Date) ([]core.TrendPoint, error)
	ListRecentTransactions(ctx context.Context, userID int64, limit int) ([]core.Transaction, error)
	ListSavingsGoals(ctx context.Context, userID int64) ([]core.SavingsGoal, error)
	ListBudgets(ctx context.Context, userID int64, month core.MonthKey) ([]core.Budget, error)
}

// ChartData is the JSON document behind the dashboard charts.
type ChartData struct {
	CategoryData  map[string]float64 `json:"category_data"`
	MonthlyTrends []ChartTrendPoint  `json:"monthly_trends"`
}

type ChartTrendPoint struct {
	Month    string  `json:"month"`
	Income   float64 `json:"income"`
	Expenses float64 `json:"expenses"`
}

type ReportOptions struct {
	TrendWindow int
	RecentLimit int
}

// ReportService is the aggregator: monthly summaries, trends and the
// dashboard bundle. It holds no state between calls; every report is read
// from the store, so writes made by other processes show up at once.
type ReportService struct {
	store       ReportStore
	trendWindow int
	recentLimit int
}

func NewReportService(store ReportStore, opts ReportOptions) *ReportService {
	if opts.TrendWindow <= 0 {
		opts.TrendWindow = DefaultTrendWindow
	}
	if opts.RecentLimit <= 0 {
		opts.RecentLimit = DefaultRecentLimit
	}
	return &ReportService{
		store:       store,
		trendWindow: opts.TrendWindow,
		recentLimit: opts.RecentLimit,
	}
}

func (s *ReportService) TrendWindow() int { return s.trendWindow }

// MonthlySummary returns the user's expense totals per category and the
// income and expense totals for one calendar month. A user without rows
// gets zero totals.
func (s *ReportService) MonthlySummary(ctx context.Context, userID int64, month core.MonthKey) (core.MonthlySummary, error) {
	var (
		summary = core.MonthlySummary{Month: month}
		g       errgroup.Group
	)
	g.Go(func() error {
		byCategory, err := s.store.SumExpensesByCategory(ctx, userID, month)
		if err != nil {
			return err
		}
		summary.ByCategory = byCategory
		return nil
	})
	g.Go(func() error {
		income, expense, err := s.store.SumByType(ctx, userID, month)
		if err != nil {
			return err
		}
		summary.Income, summary.Expense = income, expense
		return nil
	})
	if err := g.Wait(); err != nil {
		return core.MonthlySummary{}, fmt.Errorf("monthly summary %s: %w", month, err)
	}
	return summary, nil
}

// Trend returns one point per month with at least one transaction dated on
// or after now minus windowMonths, oldest first. Empty months are omitted.
func (s *ReportService) Trend(ctx context.Context, userID int64, windowMonths int, now time.Time) ([]core.TrendPoint, error) {
	if windowMonths <= 0 {
		windowMonths = s.trendWindow
	}
	since := core.DateOf(now.AddDate(0, -windowMonths, 0))
	points, err := s.store.MonthlyTotals(ctx, userID, since)
	if err != nil {
		return nil, fmt.Errorf("trend: %w", err)
	}
	return points, nil
}

// Dashboard gathers the landing page data for the month containing now.
func (s *ReportService) Dashboard(ctx context.Context, userID int64, now time.Time) (core.Dashboard, error) {
	month := core.MonthOf(now)
	dash := core.Dashboard{Month: month}
	var budgets []core.Budget

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		recent, err := s.store.ListRecentTransactions(gctx, userID, s.recentLimit)
		dash.Recent = recent
		return err
	})
	g.Go(func() error {
		summary, err := s.MonthlySummary(gctx, userID, month)
		dash.Summary = summary
		return err
	})
	g.Go(func() error {
		goals, err := s.store.ListSavingsGoals(gctx, userID)
		dash.Goals = goals
		return err
	})
	g.Go(func() error {
		var err error
		budgets, err = s.store.ListBudgets(gctx, userID, month)
		return err
	})
	if err := g.Wait(); err != nil {
		return core.Dashboard{}, fmt.Errorf("dashboard: %w", err)
	}

	dash.Budgets = budgetStatuses(budgets, dash.Summary.ByCategory)
	return dash, nil
}

func budgetStatuses(budgets []core.Budget, spent []core.CategoryAmount) []core.BudgetStatus {
	byCategory := make(map[string]core.Money, len(spent))
	for _, c := range spent {
		byCategory[c.Name] = c.Amount
	}
	out := make([]core.BudgetStatus, 0, len(budgets))
	for _, b := range budgets {
		out = append(out, core.BudgetStatus{Budget: b, Spent: byCategory[b.Category]})
	}
	return out
}

// ChartData combines the current month's category split with the trend.
func (s *ReportService) ChartData(ctx context.Context, userID int64, now time.Time) (ChartData, error) {
	var (
		summary core.MonthlySummary
		trend   []core.TrendPoint
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		summary, err = s.MonthlySummary(gctx, userID, core.MonthOf(now))
		return err
	})
	g.Go(func() error {
		var err error
		trend, err = s.Trend(gctx, userID, s.trendWindow, now)
		return err
	})
	if err := g.Wait(); err != nil {
		return ChartData{}, err
	}

	data := ChartData{
		CategoryData:  make(map[string]float64, len(summary.ByCategory)),
		MonthlyTrends: make([]ChartTrendPoint, 0, len(trend)),
	}
	for _, c := range summary.ByCategory {
		data.CategoryData[c.Name] = c.Amount.Float()
	}
	for _, p := range trend {
		data.MonthlyTrends = append(data.MonthlyTrends, ChartTrendPoint{
			Month:    string(p.Month),
			Income:   p.Income.Float(),
			Expenses: p.Expense.Float(),
		})
	}
	return data, nil
}
