package domain

import (
	"fmt"
	"time"
)

// ─── Calendar Helpers ───────────────────────────────────────────────────────
// Dates are local calendar dates rendered by a Clock. Gap arithmetic is done
// on the civil date itself (parsed as UTC midnight) so DST transitions and
// "11:59pm then 12:01am" both count as exactly one day.

const (
	DateLayout  = "2006-01-02" // YYYY-MM-DD
	MonthLayout = "2006-01"    // YYYY-MM
)

// DaysBetween returns the number of whole calendar days from `from` to `to`.
// Both arguments are YYYY-MM-DD strings. The result is negative if `to` is
// before `from`.
func DaysBetween(from, to string) (int, error) {
	a, err := time.Parse(DateLayout, from)
	if err != nil {
		return 0, fmt.Errorf("parse date %q: %w", from, err)
	}
	b, err := time.Parse(DateLayout, to)
	if err != nil {
		return 0, fmt.Errorf("parse date %q: %w", to, err)
	}
	return int(b.Sub(a).Hours() / 24), nil
}

// PrevDay returns the calendar date before the given YYYY-MM-DD date.
func PrevDay(date string) (string, error) {
	d, err := time.Parse(DateLayout, date)
	if err != nil {
		return "", fmt.Errorf("parse date %q: %w", date, err)
	}
	return d.AddDate(0, 0, -1).Format(DateLayout), nil
}

// MonthOf returns the YYYY-MM month containing the given YYYY-MM-DD date.
func MonthOf(date string) string {
	if len(date) < len(MonthLayout) {
		return ""
	}
	return date[:len(MonthLayout)]
}
