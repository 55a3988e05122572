package recur

import (
	"fmt"
	"time"

	"github.com/coldtrack/coldtrack/internal/rule"
)

// ExpandSchedule resolves a schedule rule into the ordered, deduplicated
// targets due within the half-open date range [from, to).
//
// The effective range is clipped to [max(from, StartDate), min(to, EndDate))
// with an open-ended rule clipping only at `to`. An empty clip yields an
// empty (non-nil) slice.
//
// The rule must already have passed rule.Validate; ExpandSchedule re-checks
// the DOW weekday set so an invalid definition can never silently resolve
// to zero occurrences.
func ExpandSchedule(r rule.ScheduleRule, from, to string) ([]Target, error) {
	if r.Cadence == rule.CadenceDOW && len(r.DaysOfWeek) == 0 {
		return nil, &rule.ConfigurationError{Field: "daysOfWeek", Message: "DOW cadence requires a non-empty weekday set"}
	}

	loc, err := r.Location()
	if err != nil {
		return nil, fmt.Errorf("resolve timezone: %w", err)
	}
	lo, hi, err := dateRange(from, to)
	if err != nil {
		return nil, err
	}

	start, err := time.Parse(rule.DateLayout, r.StartDate)
	if err != nil {
		return nil, fmt.Errorf("malformed rule start date %q: %w", r.StartDate, err)
	}
	lo = maxDate(lo, start)
	if r.EndDate != "" {
		end, err := time.Parse(rule.DateLayout, r.EndDate)
		if err != nil {
			return nil, fmt.Errorf("malformed rule end date %q: %w", r.EndDate, err)
		}
		hi = minDate(hi, end)
	}

	targets := []Target{}
	if !lo.Before(hi) {
		return targets, nil
	}

	dow := weekdaySet(r.DaysOfWeek)
	seenWeeks := map[string]bool{}

	for d := lo; d.Before(hi); d = d.AddDate(0, 0, 1) {
		switch r.Cadence {
		case rule.CadenceDaily:
			ds, de := dayBounds(d, loc)
			targets = append(targets, Target{Key: d.Format(rule.DateLayout), DueStart: ds, DueEnd: de})

		case rule.CadenceDOW:
			if dow[int(d.Weekday())] {
				ds, de := dayBounds(d, loc)
				targets = append(targets, Target{Key: d.Format(rule.DateLayout), DueStart: ds, DueEnd: de})
			}

		case rule.CadenceWeekly:
			key := WeekKey(d)
			if seenWeeks[key] {
				continue
			}
			seenWeeks[key] = true
			ws, we := weekBounds(d, loc)
			targets = append(targets, Target{Key: key, DueStart: ws, DueEnd: we})

		default:
			return nil, &rule.ConfigurationError{Field: "cadence", Message: fmt.Sprintf("unknown cadence %q", r.Cadence)}
		}
	}
	return targets, nil
}

// TargetForSchedule resolves the target an event at instant `at` falls into,
// using the same date and week logic as ExpandSchedule. The second return
// is false when the rule expects nothing at that instant (date outside
// [StartDate, EndDate), or weekday not listed for DOW).
func TargetForSchedule(r rule.ScheduleRule, at time.Time) (Target, bool, error) {
	loc, err := r.Location()
	if err != nil {
		return Target{}, false, fmt.Errorf("resolve timezone: %w", err)
	}

	// Naive local date of the event instant.
	local := at.In(loc)
	d := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC)

	start, err := time.Parse(rule.DateLayout, r.StartDate)
	if err != nil {
		return Target{}, false, fmt.Errorf("malformed rule start date %q: %w", r.StartDate, err)
	}
	var end time.Time
	hasEnd := r.EndDate != ""
	if hasEnd {
		end, err = time.Parse(rule.DateLayout, r.EndDate)
		if err != nil {
			return Target{}, false, fmt.Errorf("malformed rule end date %q: %w", r.EndDate, err)
		}
	}

	switch r.Cadence {
	case rule.CadenceDaily, rule.CadenceDOW:
		if d.Before(start) || (hasEnd && !d.Before(end)) {
			return Target{}, false, nil
		}
		if r.Cadence == rule.CadenceDOW && !weekdaySet(r.DaysOfWeek)[int(d.Weekday())] {
			return Target{}, false, nil
		}
		ds, de := dayBounds(d, loc)
		return Target{Key: d.Format(rule.DateLayout), DueStart: ds, DueEnd: de}, true, nil

	case rule.CadenceWeekly:
		// The week counts if any of its days falls in [StartDate, EndDate).
		monday := isoWeekMonday(d)
		weekEnd := monday.AddDate(0, 0, 7)
		if !weekEnd.After(start) || (hasEnd && !monday.Before(end)) {
			return Target{}, false, nil
		}
		ws, we := weekBounds(d, loc)
		return Target{Key: WeekKey(d), DueStart: ws, DueEnd: we}, true, nil

	default:
		return Target{}, false, &rule.ConfigurationError{Field: "cadence", Message: fmt.Sprintf("unknown cadence %q", r.Cadence)}
	}
}

func weekdaySet(days []int) map[int]bool {
	set := make(map[int]bool, len(days))
	for _, d := range days {
		set[d] = true
	}
	return set
}
