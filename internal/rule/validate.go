package rule

import (
	"fmt"
	"time"
)

// ConfigurationError reports an invalid rule or monitor definition.
// Definitions are rejected at creation time so the resolvers never see
// invalid input.
type ConfigurationError struct {
	Field   string
	Message string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration: %s: %s", e.Field, e.Message)
}

func configErr(field, format string, args ...any) *ConfigurationError {
	return &ConfigurationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// Validate checks a schedule rule definition.
//
// Rejections:
//   - unknown cadence
//   - DaysOfWeek empty or out of range for DOW (an empty set must signal a
//     configuration error upstream, never silently resolve to nothing)
//   - DaysOfWeek present for non-DOW cadences
//   - malformed StartDate/EndDate, or EndDate not strictly after StartDate
//   - unknown timezone
func (r ScheduleRule) Validate() error {
	if r.OwnerID == "" {
		return configErr("owner", "owner id is required")
	}
	if !ValidCadences[r.Cadence] {
		return configErr("cadence", "unknown cadence %q", r.Cadence)
	}

	switch r.Cadence {
	case CadenceDOW:
		if len(r.DaysOfWeek) == 0 {
			return configErr("daysOfWeek", "DOW cadence requires a non-empty weekday set")
		}
		seen := make(map[int]bool, len(r.DaysOfWeek))
		for _, d := range r.DaysOfWeek {
			if d < 0 || d > 6 {
				return configErr("daysOfWeek", "weekday %d out of range 0..6", d)
			}
			if seen[d] {
				return configErr("daysOfWeek", "weekday %d listed twice", d)
			}
			seen[d] = true
		}
	default:
		if len(r.DaysOfWeek) != 0 {
			return configErr("daysOfWeek", "weekday set is only valid for DOW cadence")
		}
	}

	start, err := time.Parse(DateLayout, r.StartDate)
	if err != nil {
		return configErr("startDate", "malformed date %q", r.StartDate)
	}
	if r.EndDate != "" {
		end, err := time.Parse(DateLayout, r.EndDate)
		if err != nil {
			return configErr("endDate", "malformed date %q", r.EndDate)
		}
		if !end.After(start) {
			return configErr("endDate", "end date %s must be strictly after start date %s", r.EndDate, r.StartDate)
		}
	}

	if _, err := r.Location(); err != nil {
		return configErr("timezone", "unknown timezone %q", r.Timezone)
	}
	return nil
}

// Validate checks a window monitor definition.
//
// Rejections:
//   - unknown check type
//   - missing or inverted StartTime/EndTime for specific-time-range checks
//   - StartTime/EndTime present for daily-any-time checks
//   - weekday exclusions out of range, or excluding every weekday
//   - unknown timezone
func (m WindowMonitor) Validate() error {
	if m.OwnerID == "" {
		return configErr("owner", "owner id is required")
	}
	if m.AssetID == "" {
		return configErr("asset", "asset id is required")
	}
	if !ValidCheckTypes[m.CheckType] {
		return configErr("checkType", "unknown check type %q", m.CheckType)
	}

	switch m.CheckType {
	case CheckSpecificWindow:
		start, err := time.Parse(TimeOfDayLayout, m.StartTime)
		if err != nil {
			return configErr("startTime", "malformed time %q", m.StartTime)
		}
		end, err := time.Parse(TimeOfDayLayout, m.EndTime)
		if err != nil {
			return configErr("endTime", "malformed time %q", m.EndTime)
		}
		if !end.After(start) {
			return configErr("endTime", "end time %s must be after start time %s", m.EndTime, m.StartTime)
		}
	case CheckAnyTime:
		if m.StartTime != "" || m.EndTime != "" {
			return configErr("startTime", "time bounds are only valid for specific-time-range checks")
		}
	}

	seen := make(map[int]bool, len(m.ExcludedWeekdays))
	for _, d := range m.ExcludedWeekdays {
		if d < 0 || d > 6 {
			return configErr("excludedWeekdays", "weekday %d out of range 0..6", d)
		}
		if seen[d] {
			return configErr("excludedWeekdays", "weekday %d listed twice", d)
		}
		seen[d] = true
	}
	if len(seen) == 7 {
		return configErr("excludedWeekdays", "all weekdays excluded; monitor would never be due")
	}
	return nil
}
