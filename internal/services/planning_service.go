package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"fintrack/internal/core"
)

// PlanningStore persists budgets and savings goals. Every write is
// owner-filtered; a missing or foreign row is core.ErrNotFound.
type PlanningStore interface {
	UpsertBudget(ctx context.Context, b core.Budget) (core.Budget, error)
	ListBudgets(ctx context.Context, userID int64, month core.MonthKey) ([]core.Budget, error)
	DeleteBudget(ctx context.Context, id, userID int64) error
	CreateSavingsGoal(ctx context.Context, g core.SavingsGoal) (core.SavingsGoal, error)
	ListSavingsGoals(ctx context.Context, userID int64) ([]core.SavingsGoal, error)
	ContributeToSavingsGoal(ctx context.Context, id, userID int64, amount core.Money) (core.SavingsGoal, error)
	DeleteSavingsGoal(ctx context.Context, id, userID int64) error
}

// NewBudget is the raw form input for SetBudget. An empty Month means the
// current month.
type NewBudget struct {
	Category   string
	AmountText string
	Month      string
}

// NewGoal is the raw form input for CreateGoal. TargetDate is optional.
type NewGoal struct {
	Name       string
	TargetText string
	TargetDate string
}

type PlanningService struct {
	store      PlanningStore
	classifier Classifier
	now        func() time.Time
}

func NewPlanningService(store PlanningStore, classifier Classifier) *PlanningService {
	return &PlanningService{store: store, classifier: classifier, now: time.Now}
}

// SetBudget creates or replaces the budget for one category and month.
func (s *PlanningService) SetBudget(ctx context.Context, userID int64, in NewBudget) (core.Budget, error) {
	amount, err := core.ParsePositiveAmount(in.AmountText)
	if err != nil {
		return core.Budget{}, err
	}

	category := strings.TrimSpace(in.Category)
	if category == "" {
		return core.Budget{}, &core.ValidationError{Field: "category", Reason: "required"}
	}
	if !s.classifier.Known(category) {
		return core.Budget{}, &core.ValidationError{Field: "category", Reason: "unknown category"}
	}

	month := core.MonthOf(s.now())
	if m := strings.TrimSpace(in.Month); m != "" {
		if month, err = core.ParseMonthKey(m); err != nil {
			return core.Budget{}, err
		}
	}

	b := core.Budget{UserID: userID, Category: category, Amount: amount, Month: month}
	if err := b.Validate(); err != nil {
		return core.Budget{}, err
	}
	saved, err := s.store.UpsertBudget(ctx, b)
	if err != nil {
		return core.Budget{}, fmt.Errorf("save budget: %w", err)
	}
	return saved, nil
}

func (s *PlanningService) ListBudgets(ctx context.Context, userID int64, month core.MonthKey) ([]core.Budget, error) {
	return s.store.ListBudgets(ctx, userID, month)
}

func (s *PlanningService) DeleteBudget(ctx context.Context, id, userID int64) error {
	if id <= 0 {
		return core.ErrNotFound
	}
	return s.store.DeleteBudget(ctx, id, userID)
}

// CreateGoal starts a savings goal with nothing saved yet.
func (s *PlanningService) CreateGoal(ctx context.Context, userID int64, in NewGoal) (core.SavingsGoal, error) {
	target, err := core.ParsePositiveAmount(in.TargetText)
	if err != nil {
		return core.SavingsGoal{}, err
	}

	g := core.SavingsGoal{UserID: userID, Name: strings.TrimSpace(in.Name), TargetAmount: target}
	if d := strings.TrimSpace(in.TargetDate); d != "" {
		g.TargetDate, err = core.ParseDate(d)
		if err != nil {
			return core.SavingsGoal{}, &core.ValidationError{Field: "target_date", Reason: "must be a YYYY-MM-DD date"}
		}
	}
	if err := g.Validate(); err != nil {
		return core.SavingsGoal{}, err
	}

	saved, err := s.store.CreateSavingsGoal(ctx, g)
	if err != nil {
		return core.SavingsGoal{}, fmt.Errorf("save savings goal: %w", err)
	}
	return saved, nil
}

func (s *PlanningService) ListGoals(ctx context.Context, userID int64) ([]core.SavingsGoal, error) {
	return s.store.ListSavingsGoals(ctx, userID)
}

// Contribute adds a positive amount to a goal the user owns.
func (s *PlanningService) Contribute(ctx context.Context, id, userID int64, amountText string) (core.SavingsGoal, error) {
	amount, err := core.ParsePositiveAmount(amountText)
	if err != nil {
		return core.SavingsGoal{}, err
	}
	if id <= 0 {
		return core.SavingsGoal{}, core.ErrNotFound
	}
	return s.store.ContributeToSavingsGoal(ctx, id, userID, amount)
}

func (s *PlanningService) DeleteGoal(ctx context.Context, id, userID int64) error {
	if id <= 0 {
		return core.ErrNotFound
	}
	return s.store.DeleteSavingsGoal(ctx, id, userID)
}
