// Package period holds calendar-day arithmetic shared by status and billing.
// All values are normalized to midnight UTC of their calendar date; the
// time-of-day component of any input is discarded.
package period

import (
	"errors"
	"fmt"
	"time"
)

// DateLayout is the storage and wire format for calendar dates.
const DateLayout = "2006-01-02"

// Duration units accepted by Add.
const (
	UnitDay   = "day"
	UnitMonth = "month"
	UnitYear  = "year"
)

// Domain errors
var (
	ErrInvalidUnit  = errors.New("duration unit must be 'day', 'month', or 'year'")
	ErrInvalidValue = errors.New("duration value must be positive")
)

// Day truncates t to midnight UTC of its own calendar date.
// The date is read in t's location so a late-evening local time stays on
// the same day.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Date builds a calendar day from its parts.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// Parse reads a YYYY-MM-DD string into a calendar day.
// PRE: s is in DateLayout
// POST: Returns midnight UTC of the date or a parse error
func Parse(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return t, nil
}

// Format renders a calendar day as YYYY-MM-DD.
func Format(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return Day(t).Format(DateLayout)
}

// DaysBetween returns the whole number of calendar days from `from` to `to`.
// Positive when to is after from.
// INVARIANT: DaysBetween(a, b) == -DaysBetween(b, a)
func DaysBetween(from, to time.Time) int {
	return int(Day(to).Sub(Day(from)).Hours() / 24)
}

// Add returns start advanced by value units.
// Month and year arithmetic keeps the day of month where the target month
// has it and clamps to the last day otherwise (Jan 31 + 1 month = Feb 28/29).
// PRE: value > 0, unit is one of UnitDay, UnitMonth, UnitYear
// POST: Returns a calendar day strictly after start
func Add(start time.Time, value int, unit string) (time.Time, error) {
	if value <= 0 {
		return time.Time{}, ErrInvalidValue
	}
	start = Day(start)
	switch unit {
	case UnitDay:
		return start.AddDate(0, 0, value), nil
	case UnitMonth:
		return addMonths(start, value), nil
	case UnitYear:
		return addMonths(start, value*12), nil
	default:
		return time.Time{}, ErrInvalidUnit
	}
}

// addMonths moves start forward by n months with month-end clamping.
func addMonths(start time.Time, n int) time.Time {
	y, m, d := start.Date()
	// time.Date normalizes month overflow into the year.
	first := time.Date(y, m+time.Month(n), 1, 0, 0, 0, 0, time.UTC)
	if last := daysIn(first.Year(), first.Month()); d > last {
		d = last
	}
	return time.Date(first.Year(), first.Month(), d, 0, 0, 0, 0, time.UTC)
}

// daysIn returns the number of days in the given month.
func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// IsValidUnit reports whether unit is accepted by Add.
func IsValidUnit(unit string) bool {
	return unit == UnitDay || unit == UnitMonth || unit == UnitYear
}
