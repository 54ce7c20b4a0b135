package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	Income  TransactionType = "income"
	Expense TransactionType = "expense"
)

const (
	Monthly RepetitionTypes = "monthly"
	Yearly  RepetitionTypes = "yearly"
	Weekly  RepetitionTypes = "weekly"
	Daily   RepetitionTypes = "daily"
)

// DateLayout is the calendar date format used for storage and forms.
const DateLayout = "2006-01-02"

type (
	TransactionType string
	RepetitionTypes string

	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	User struct {
		ID           int64
		Username     string
		PasswordHash string
		CreatedAt    time.Time
	}

	Transaction struct {
		ID                 int64
		UserID             int64
		Date               Date
		Description        string
		Amount             Money
		Category           string
		Type               TransactionType
		IsRecurring        bool
		RecurringFrequency RepetitionTypes
		SeriesID           int64 // origin of a generated occurrence, 0 otherwise
		CreatedAt          time.Time
	}

	// RecurringSeries is a recurring transaction together with the last day
	// an occurrence was generated from it.
	RecurringSeries struct {
		Origin    Transaction
		LastRunOn Date
	}

	Budget struct {
		ID       int64
		UserID   int64
		Category string
		Amount   Money
		Month    MonthKey
	}

	SavingsGoal struct {
		ID            int64
		UserID        int64
		Name          string
		TargetAmount  Money
		CurrentAmount Money
		TargetDate    Date // zero when not set
		CreatedAt     time.Time
	}
)

var (
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrValidation        = errors.New("validation failed")
	ErrNotFound          = errors.New("not found")
	ErrUnauthenticated   = errors.New("unauthenticated")
	ErrDuplicateUsername = errors.New("username already taken")
)

// AmountError reports an amount that could not be parsed. It matches
// ErrInvalidAmount and unwraps to the underlying parse error.
type AmountError struct {
	Input string
	Err   error
}

func (e *AmountError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("invalid amount %q", e.Input)
	}
	return fmt.Sprintf("invalid amount %q: %v", e.Input, e.Err)
}

func (e *AmountError) Unwrap() error { return e.Err }

func (e *AmountError) Is(target error) bool { return target == ErrInvalidAmount }

// ValidationError names the offending field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Reason
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

func invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// ParseDate parses a YYYY-MM-DD calendar date.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, err
	}
	return Date{Time: t}, nil
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar day in UTC.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), int(t.Month()), t.Day())
}

// String renders the date as YYYY-MM-DD, or "" for the zero date.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

// MonthKey returns the calendar month the date falls in.
func (d Date) MonthKey() MonthKey {
	return MonthOf(d.Time)
}

func (t TransactionType) Valid() bool {
	return t == Income || t == Expense
}

func (r RepetitionTypes) Valid() bool {
	switch r {
	case Daily, Weekly, Monthly, Yearly:
		return true
	}
	return false
}

// Validate checks the fields a user supplies. Amount parsing happens
// earlier, so only the sign is checked here.
func (t Transaction) Validate() error {
	if t.Date.IsZero() {
		return invalid("date", "required")
	}
	desc := strings.TrimSpace(t.Description)
	if desc == "" {
		return invalid("description", "required")
	}
	if len(desc) > 200 {
		return invalid("description", "too long (max 200 characters)")
	}
	if t.Amount.Cents < 0 {
		return &AmountError{Input: t.Amount.String()}
	}
	if !t.Type.Valid() {
		return invalid("type", "must be income or expense")
	}
	if strings.TrimSpace(t.Category) == "" {
		return invalid("category", "required")
	}
	if t.IsRecurring && !t.RecurringFrequency.Valid() {
		return invalid("recurring_frequency", "must be daily, weekly, monthly or yearly")
	}
	if !t.IsRecurring && t.RecurringFrequency != "" {
		return invalid("recurring_frequency", "only allowed on recurring transactions")
	}
	return nil
}

func (b Budget) Validate() error {
	if strings.TrimSpace(b.Category) == "" {
		return invalid("category", "required")
	}
	if b.Amount.Cents <= 0 {
		return &AmountError{Input: b.Amount.String()}
	}
	if b.Month == "" {
		return invalid("month", "required")
	}
	return nil
}

func (g SavingsGoal) Validate() error {
	name := strings.TrimSpace(g.Name)
	if name == "" {
		return invalid("name", "required")
	}
	if len(name) > 100 {
		return invalid("name", "too long (max 100 characters)")
	}
	if g.TargetAmount.Cents <= 0 {
		return &AmountError{Input: g.TargetAmount.String()}
	}
	if g.CurrentAmount.Cents < 0 {
		return &AmountError{Input: g.CurrentAmount.String()}
	}
	return nil
}

// Progress returns the funded share of the goal in percent, capped at 100.
func (g SavingsGoal) Progress() int {
	if g.TargetAmount.Cents <= 0 {
		return 0
	}
	p := g.CurrentAmount.Cents * 100 / g.TargetAmount.Cents
	if p > 100 {
		return 100
	}
	return int(p)
}
