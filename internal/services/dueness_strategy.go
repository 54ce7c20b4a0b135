package services

import (
	"fmt"
	"time"

	"fintrack/internal/core"
)

// DuenessChecker decides whether a recurring transaction needs a new
// occurrence today. last is the day of the previous occurrence (the origin
// date when none has been generated yet); anchor is the origin date, whose
// day and month pin monthly and yearly schedules.
type DuenessChecker interface {
	IsDue(last, today, anchor core.Date) bool
}

type DailyChecker struct{}

func (DailyChecker) IsDue(last, today, _ core.Date) bool {
	return last.IsZero() || today.After(last.Time)
}

type WeeklyChecker struct{}

// IsDue fires on the first anchor weekday after last, so a late run does not
// move the following weeks off the origin's weekday.
func (WeeklyChecker) IsDue(last, today, anchor core.Date) bool {
	if last.IsZero() {
		return true
	}
	if anchor.IsZero() {
		anchor = last
	}
	days := (int(anchor.Weekday()) - int(last.Weekday()) + 7) % 7
	if days == 0 {
		days = 7
	}
	return !today.Before(last.AddDate(0, 0, days))
}

type MonthlyChecker struct{}

// IsDue fires once per later calendar month, on or after the anchor day. An
// anchor of the 31st fires on the last day of shorter months.
func (MonthlyChecker) IsDue(last, today, anchor core.Date) bool {
	if last.IsZero() {
		return true
	}
	if !today.MonthKey().After(last.MonthKey()) {
		return false
	}
	return today.Day() >= clampDay(today.Year(), today.Month(), anchor.Day())
}

type YearlyChecker struct{}

func (YearlyChecker) IsDue(last, today, anchor core.Date) bool {
	if last.IsZero() {
		return true
	}
	if today.Year() <= last.Year() {
		return false
	}
	switch {
	case today.Month() < anchor.Month():
		return false
	case today.Month() > anchor.Month():
		return true
	default:
		return today.Day() >= clampDay(today.Year(), today.Month(), anchor.Day())
	}
}

func clampDay(year int, month time.Month, day int) int {
	last := time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
	if day > last {
		return last
	}
	return day
}

// DuenessCheckers maps each frequency to its checker.
type DuenessCheckers map[core.RepetitionTypes]DuenessChecker

func DefaultDuenessCheckers() DuenessCheckers {
	return DuenessCheckers{
		core.Daily:   DailyChecker{},
		core.Weekly:  WeeklyChecker{},
		core.Monthly: MonthlyChecker{},
		core.Yearly:  YearlyChecker{},
	}
}

// For returns the checker for frequency, or an error for unknown labels.
func (c DuenessCheckers) For(frequency core.RepetitionTypes) (DuenessChecker, error) {
	checker, ok := c[frequency]
	if !ok {
		return nil, fmt.Errorf("unknown repetition type: %s", frequency)
	}
	return checker, nil
}
