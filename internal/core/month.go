package core

import (
	"fmt"
	"strings"
	"time"
)

// MonthKey identifies a calendar month as "YYYY-MM".
type MonthKey string

const monthLayout = "2006-01"

// ParseMonthKey validates s as YYYY-MM.
func ParseMonthKey(s string) (MonthKey, error) {
	s = strings.TrimSpace(s)
	if _, err := time.Parse(monthLayout, s); err != nil {
		return "", invalid("month", fmt.Sprintf("%q is not YYYY-MM", s))
	}
	return MonthKey(s), nil
}

// MonthOf returns the month containing t.
func MonthOf(t time.Time) MonthKey {
	return MonthKey(t.Format(monthLayout))
}

func (m MonthKey) String() string { return string(m) }

// Start returns the first day of the month.
func (m MonthKey) Start() Date {
	t, err := time.Parse(monthLayout, string(m))
	if err != nil {
		return Date{}
	}
	return Date{Time: t}
}

// Range returns [first day, first day of the following month) so that a
// plain string comparison on ISO dates selects exactly this month.
func (m MonthKey) Range() (from, to Date) {
	from = m.Start()
	return from, Date{Time: from.AddDate(0, 1, 0)}
}

// Label renders the month for headings, e.g. "May 2024".
func (m MonthKey) Label() string {
	start := m.Start()
	if start.IsZero() {
		return string(m)
	}
	return start.Format("January 2006")
}

// Prev and Next step one calendar month.
func (m MonthKey) Prev() MonthKey { return MonthOf(m.Start().AddDate(0, -1, 0)) }

func (m MonthKey) Next() MonthKey { return MonthOf(m.Start().AddDate(0, 1, 0)) }

// After reports whether m is a later month than o. Keys compare
// lexicographically because they are zero-padded.
func (m MonthKey) After(o MonthKey) bool { return m > o }
