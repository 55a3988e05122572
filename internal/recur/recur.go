// Package recur expands declarative recurrence definitions into concrete
// due targets. All functions are pure: no storage, no wall-clock reads.
// Callers pass calendar date ranges as half-open [from, to) intervals in
// rule.DateLayout; all day and week boundaries are computed in the owning
// definition's timezone.
package recur

import (
	"fmt"
	"time"

	"github.com/coldtrack/coldtrack/internal/rule"
)

// Target is one resolved expectation: a unique key plus the half-open due
// interval [DueStart, DueEnd) as UTC instants.
type Target struct {
	Key      string
	DueStart time.Time
	DueEnd   time.Time
}

// dateRange parses and orders a half-open [from, to) calendar date range.
func dateRange(from, to string) (time.Time, time.Time, error) {
	f, err := time.Parse(rule.DateLayout, from)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("malformed from date %q: %w", from, err)
	}
	t, err := time.Parse(rule.DateLayout, to)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("malformed to date %q: %w", to, err)
	}
	return f, t, nil
}

// maxDate and minDate compare naive calendar dates.
func maxDate(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}

func minDate(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}

// dayBounds returns the [midnight, next midnight) instants for a naive
// calendar date, evaluated in loc. Using time.Date for the upper bound keeps
// the interval correct across DST transitions (a local day may be 23h or 25h).
func dayBounds(d time.Time, loc *time.Location) (time.Time, time.Time) {
	y, m, day := d.Date()
	start := time.Date(y, m, day, 0, 0, 0, 0, loc)
	end := time.Date(y, m, day+1, 0, 0, 0, 0, loc)
	return start.UTC(), end.UTC()
}

// weekBounds returns the [Monday midnight, next Monday midnight) instants
// for the ISO week containing the naive date d, evaluated in loc.
func weekBounds(d time.Time, loc *time.Location) (time.Time, time.Time) {
	monday := isoWeekMonday(d)
	y, m, day := monday.Date()
	start := time.Date(y, m, day, 0, 0, 0, 0, loc)
	end := time.Date(y, m, day+7, 0, 0, 0, 0, loc)
	return start.UTC(), end.UTC()
}

// isoWeekMonday returns the Monday of the ISO week containing d.
func isoWeekMonday(d time.Time) time.Time {
	offset := (int(d.Weekday()) + 6) % 7 // Monday=0 .. Sunday=6
	return d.AddDate(0, 0, -offset)
}

// WeekKey formats the ISO year-week identifier for a naive date, e.g.
// "2024-W03". ISO years differ from calendar years at year boundaries.
func WeekKey(d time.Time) string {
	year, week := d.ISOWeek()
	return fmt.Sprintf("%04d-W%02d", year, week)
}
