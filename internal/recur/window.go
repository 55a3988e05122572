package recur

import (
	"fmt"
	"time"

	"github.com/coldtrack/coldtrack/internal/rule"
)

// ExpandMonitor resolves a window monitor into one target per covered date
// in the half-open date range [from, to), skipping excluded weekdays.
//
// Specific-time-range monitors get the [StartTime, EndTime) interval in the
// monitor's timezone; daily-any-time monitors get the full local calendar
// day. The target key is always the calendar date.
//
// Monitors on the same asset are independent: each owner id produces its
// own occurrence lineage, so an asset with AM and PM checks yields two
// targets per day under two distinct owners.
func ExpandMonitor(m rule.WindowMonitor, from, to string) ([]Target, error) {
	loc, err := m.Location()
	if err != nil {
		return nil, fmt.Errorf("resolve timezone: %w", err)
	}
	lo, hi, err := dateRange(from, to)
	if err != nil {
		return nil, err
	}

	excluded := weekdaySet(m.ExcludedWeekdays)
	targets := []Target{}
	for d := lo; d.Before(hi); d = d.AddDate(0, 0, 1) {
		if excluded[int(d.Weekday())] {
			continue
		}
		t, err := monitorTarget(m, d, loc)
		if err != nil {
			return nil, err
		}
		targets = append(targets, t)
	}
	return targets, nil
}

// TargetForMonitor resolves the target an event at instant `at` falls into.
// The target covers the whole local date, so an event after the window's
// end still resolves to that day's target (it completes late, it does not
// miss). The second return is false on excluded weekdays.
func TargetForMonitor(m rule.WindowMonitor, at time.Time) (Target, bool, error) {
	loc, err := m.Location()
	if err != nil {
		return Target{}, false, fmt.Errorf("resolve timezone: %w", err)
	}

	local := at.In(loc)
	d := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC)
	if weekdaySet(m.ExcludedWeekdays)[int(d.Weekday())] {
		return Target{}, false, nil
	}
	t, err := monitorTarget(m, d, loc)
	if err != nil {
		return Target{}, false, err
	}
	return t, true, nil
}

// monitorTarget builds the due interval for one naive calendar date.
func monitorTarget(m rule.WindowMonitor, d time.Time, loc *time.Location) (Target, error) {
	key := d.Format(rule.DateLayout)
	y, mo, day := d.Date()

	switch m.CheckType {
	case rule.CheckAnyTime:
		ds, de := dayBounds(d, loc)
		return Target{Key: key, DueStart: ds, DueEnd: de}, nil

	case rule.CheckSpecificWindow:
		st, err := time.Parse(rule.TimeOfDayLayout, m.StartTime)
		if err != nil {
			return Target{}, fmt.Errorf("malformed window start time %q: %w", m.StartTime, err)
		}
		et, err := time.Parse(rule.TimeOfDayLayout, m.EndTime)
		if err != nil {
			return Target{}, fmt.Errorf("malformed window end time %q: %w", m.EndTime, err)
		}
		start := time.Date(y, mo, day, st.Hour(), st.Minute(), 0, 0, loc)
		end := time.Date(y, mo, day, et.Hour(), et.Minute(), 0, 0, loc)
		return Target{Key: key, DueStart: start.UTC(), DueEnd: end.UTC()}, nil

	default:
		return Target{}, &rule.ConfigurationError{Field: "checkType", Message: fmt.Sprintf("unknown check type %q", m.CheckType)}
	}
}
