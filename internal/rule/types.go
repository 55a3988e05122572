package rule

import (
	"time"

	"github.com/google/uuid"
)

// Cadence is the recurrence pattern of a schedule rule.
type Cadence string

const (
	// CadenceDaily requires one occurrence every calendar day.
	CadenceDaily Cadence = "DAILY"

	// CadenceDOW requires one occurrence on each listed weekday.
	CadenceDOW Cadence = "DOW"

	// CadenceWeekly requires one occurrence per ISO week.
	CadenceWeekly Cadence = "WEEKLY"
)

// ValidCadences defines allowed cadence values.
var ValidCadences = map[Cadence]bool{
	CadenceDaily:  true,
	CadenceDOW:    true,
	CadenceWeekly: true,
}

// CheckType is the intraday timing mode of a window monitor.
type CheckType string

const (
	// CheckSpecificWindow expects the check inside [StartTime, EndTime).
	CheckSpecificWindow CheckType = "SPECIFIC_TIME_RANGE"

	// CheckAnyTime expects the check at any point in the local calendar day.
	CheckAnyTime CheckType = "DAILY_ANY_TIME"
)

// ValidCheckTypes defines allowed check type values.
var ValidCheckTypes = map[CheckType]bool{
	CheckSpecificWindow: true,
	CheckAnyTime:        true,
}

// DateLayout is the wire format for calendar dates (rule bounds, target keys).
const DateLayout = "2006-01-02"

// TimeOfDayLayout is the wire format for intraday window bounds.
const TimeOfDayLayout = "15:04"

// ScheduleRule owns the recurrence definition for a recurring checklist.
//
// OwnerID identifies the checklist the rule drives. At most one rule per
// owner may be active at a time (enforced by a partial unique index in the
// store). Editing a rule never rewrites past occurrences - the generator
// only inserts missing ones going forward.
type ScheduleRule struct {
	ID         uuid.UUID
	OwnerID    string
	Cadence    Cadence
	DaysOfWeek []int  // 0=Sunday..6=Saturday; required and non-empty iff Cadence == DOW
	StartDate  string // inclusive, DateLayout
	EndDate    string // exclusive, DateLayout; empty means open-ended
	Timezone   string // IANA name; all date math runs in this location
	Active     bool
}

// Location resolves the rule's IANA timezone.
func (r ScheduleRule) Location() (*time.Location, error) {
	return time.LoadLocation(r.Timezone)
}

// WindowMonitor owns the intraday check timing for a monitored asset.
//
// OwnerID identifies one check lineage (asset + window); an asset with AM
// and PM checks carries two monitors with distinct owner IDs, and each
// produces its own occurrence stream. The streams are never merged.
type WindowMonitor struct {
	ID               uuid.UUID
	OwnerID          string
	AssetID          string
	CheckType        CheckType
	StartTime        string // TimeOfDayLayout; required iff CheckSpecificWindow
	EndTime          string // TimeOfDayLayout; required iff CheckSpecificWindow
	ExcludedWeekdays []int  // 0=Sunday..6=Saturday
	Timezone         string
	Active           bool
}

// Location resolves the monitor's IANA timezone.
func (m WindowMonitor) Location() (*time.Location, error) {
	return time.LoadLocation(m.Timezone)
}

// Status is the lifecycle state of an occurrence.
type Status string

const (
	// StatusRequired marks an expected occurrence with no matching event yet.
	StatusRequired Status = "REQUIRED"

	// StatusCompleted marks an occurrence satisfied by an event or override.
	StatusCompleted Status = "COMPLETED"

	// StatusMissed marks an occurrence whose due window elapsed unmet.
	StatusMissed Status = "MISSED"
)

// ValidStatuses defines allowed occurrence statuses.
var ValidStatuses = map[Status]bool{
	StatusRequired:  true,
	StatusCompleted: true,
	StatusMissed:    true,
}

// Occurrence is one expected instance of a recurring obligation.
//
// The (OwnerID, TargetKey) pair is unique; regeneration relies on that
// uniqueness for idempotency. TargetKey is a calendar date (DateLayout) for
// DAILY/DOW rules and window monitors, or an ISO week identifier such as
// "2024-W03" for WEEKLY rules.
//
// DueStart/DueEnd bound the half-open due interval as UTC instants. OnTime
// is meaningful only once Status is COMPLETED.
type Occurrence struct {
	ID        uuid.UUID
	OwnerID   string
	TargetKey string
	Status    Status
	DueStart  time.Time
	DueEnd    time.Time

	OnTime      bool
	CompletedAt *time.Time
	CompletedBy string
	Payload     string // JSON completion payload; empty until completed
	PayloadHash string // canonical hash of Payload, used for resubmission dedup

	MissedReason   string
	OverrideReason string
	OverriddenBy   string
	OverriddenAt   *time.Time
}

// Overridden reports whether a completed occurrence was produced by a
// manual override rather than a matching event.
func (o Occurrence) Overridden() bool {
	return o.OverrideReason != ""
}

// Terminal reports whether the occurrence is in a state the generator must
// never disturb.
func (o Occurrence) Terminal() bool {
	return o.Status == StatusCompleted || o.Status == StatusMissed
}
