package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/coldtrack/coldtrack/internal/rule"
)

// GetScheduleRule returns the active schedule rule for an owner, or nil if
// none is active.
func (s *Store) GetScheduleRule(ctx context.Context, ownerID string) (*rule.ScheduleRule, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, owner_id, cadence, days_of_week, start_date, end_date, timezone, active
		FROM schedule_rules
		WHERE owner_id = ? AND active = 1
	`, ownerID)

	var (
		r       rule.ScheduleRule
		id      string
		cadence string
		days    string
		active  int
	)
	err := row.Scan(&id, &r.OwnerID, &cadence, &days, &r.StartDate, &r.EndDate, &r.Timezone, &active)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get schedule rule: %w", err)
	}

	r.ID, err = uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("get schedule rule: malformed id %q: %w", id, err)
	}
	r.Cadence = rule.Cadence(cadence)
	r.DaysOfWeek, err = decodeWeekdays(days)
	if err != nil {
		return nil, fmt.Errorf("get schedule rule: %w", err)
	}
	r.Active = active == 1
	return &r, nil
}

// GetWindowMonitor returns the active window monitor for an owner, or nil
// if none is active.
func (s *Store) GetWindowMonitor(ctx context.Context, ownerID string) (*rule.WindowMonitor, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, owner_id, asset_id, check_type, start_time, end_time, excluded_weekdays, timezone, active
		FROM window_monitors
		WHERE owner_id = ? AND active = 1
	`, ownerID)

	var (
		m         rule.WindowMonitor
		id        string
		checkType string
		excluded  string
		active    int
	)
	err := row.Scan(&id, &m.OwnerID, &m.AssetID, &checkType, &m.StartTime, &m.EndTime, &excluded, &m.Timezone, &active)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get window monitor: %w", err)
	}

	m.ID, err = uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("get window monitor: malformed id %q: %w", id, err)
	}
	m.CheckType = rule.CheckType(checkType)
	m.ExcludedWeekdays, err = decodeWeekdays(excluded)
	if err != nil {
		return nil, fmt.Errorf("get window monitor: %w", err)
	}
	m.Active = active == 1
	return &m, nil
}

const occurrenceColumns = `
	id, owner_id, target_key, status, due_start, due_end,
	on_time, completed_at, completed_by, payload, payload_hash,
	missed_reason, override_reason, overridden_by, overridden_at`

// GetOccurrence returns an occurrence by id, or nil if it does not exist.
func (s *Store) GetOccurrence(ctx context.Context, occurrenceID string) (*rule.Occurrence, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+occurrenceColumns+`
		FROM occurrences WHERE id = ?
	`, occurrenceID)
	return scanOptionalOccurrence(row)
}

// GetOccurrenceByKey returns the occurrence for (owner, target key), or nil
// if it does not exist. The pair is unique by schema constraint.
func (s *Store) GetOccurrenceByKey(ctx context.Context, ownerID, targetKey string) (*rule.Occurrence, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+occurrenceColumns+`
		FROM occurrences WHERE owner_id = ? AND target_key = ?
	`, ownerID, targetKey)
	return scanOptionalOccurrence(row)
}

// ListOccurrences returns an owner's occurrences whose due intervals overlap
// the half-open instant range [from, to), in deterministic order.
// Returns an empty slice (not nil) when nothing matches.
func (s *Store) ListOccurrences(ctx context.Context, ownerID string, from, to time.Time) ([]rule.Occurrence, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+occurrenceColumns+`
		FROM occurrences
		WHERE owner_id = ? AND due_end > ? AND due_start < ?
		ORDER BY due_start ASC, target_key ASC
	`, ownerID, FormatTime(from), FormatTime(to))
	if err != nil {
		return nil, fmt.Errorf("list occurrences: %w", err)
	}
	defer rows.Close()
	return collectOccurrences(rows)
}

// ListOccurrencesForOwners returns occurrences for a set of owners whose due
// intervals overlap [from, to). An empty owner set means all owners
// (facility-wide scan). Ordering is deterministic for stable aggregation
// and golden comparison.
func (s *Store) ListOccurrencesForOwners(ctx context.Context, ownerIDs []string, from, to time.Time) ([]rule.Occurrence, error) {
	query := `
		SELECT ` + occurrenceColumns + `
		FROM occurrences
		WHERE due_end > ? AND due_start < ?`
	args := []any{FormatTime(from), FormatTime(to)}

	if len(ownerIDs) > 0 {
		query += ` AND owner_id IN (?` + strings.Repeat(",?", len(ownerIDs)-1) + `)`
		for _, id := range ownerIDs {
			args = append(args, id)
		}
	}
	query += ` ORDER BY owner_id ASC, due_start ASC, target_key ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list occurrences for owners: %w", err)
	}
	defer rows.Close()
	return collectOccurrences(rows)
}

// ListActiveOwners returns every owner with an active schedule rule or
// window monitor, sorted and deduplicated.
func (s *Store) ListActiveOwners(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT owner_id FROM schedule_rules WHERE active = 1
		UNION
		SELECT owner_id FROM window_monitors WHERE active = 1
		ORDER BY owner_id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list active owners: %w", err)
	}
	defer rows.Close()

	owners := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan owner id: %w", err)
		}
		owners = append(owners, id)
	}
	return owners, rows.Err()
}

// CountRequired returns the number of occurrences currently in REQUIRED
// status, across all owners.
func (s *Store) CountRequired(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM occurrences WHERE status = ?
	`, string(rule.StatusRequired)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count required occurrences: %w", err)
	}
	return n, nil
}

// rowScanner abstracts *sql.Row and *sql.Rows for shared scanning.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanOptionalOccurrence(row *sql.Row) (*rule.Occurrence, error) {
	occ, err := scanOccurrence(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &occ, nil
}

func collectOccurrences(rows *sql.Rows) ([]rule.Occurrence, error) {
	occurrences := []rule.Occurrence{}
	for rows.Next() {
		occ, err := scanOccurrence(rows)
		if err != nil {
			return nil, err
		}
		occurrences = append(occurrences, occ)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate occurrences: %w", err)
	}
	return occurrences, nil
}

func scanOccurrence(sc rowScanner) (rule.Occurrence, error) {
	var (
		occ          rule.Occurrence
		id           string
		status       string
		dueStart     string
		dueEnd       string
		onTime       int
		completedAt  string
		overriddenAt string
	)
	err := sc.Scan(
		&id, &occ.OwnerID, &occ.TargetKey, &status, &dueStart, &dueEnd,
		&onTime, &completedAt, &occ.CompletedBy, &occ.Payload, &occ.PayloadHash,
		&occ.MissedReason, &occ.OverrideReason, &occ.OverriddenBy, &overriddenAt,
	)
	if err != nil {
		return rule.Occurrence{}, err
	}

	occ.ID, err = uuid.Parse(id)
	if err != nil {
		return rule.Occurrence{}, fmt.Errorf("scan occurrence: malformed id %q: %w", id, err)
	}
	occ.Status = rule.Status(status)
	occ.OnTime = onTime == 1

	if occ.DueStart, err = ParseTime(dueStart); err != nil {
		return rule.Occurrence{}, fmt.Errorf("scan occurrence: %w", err)
	}
	if occ.DueEnd, err = ParseTime(dueEnd); err != nil {
		return rule.Occurrence{}, fmt.Errorf("scan occurrence: %w", err)
	}
	if completedAt != "" {
		t, err := ParseTime(completedAt)
		if err != nil {
			return rule.Occurrence{}, fmt.Errorf("scan occurrence: %w", err)
		}
		occ.CompletedAt = &t
	}
	if overriddenAt != "" {
		t, err := ParseTime(overriddenAt)
		if err != nil {
			return rule.Occurrence{}, fmt.Errorf("scan occurrence: %w", err)
		}
		occ.OverriddenAt = &t
	}
	return occ, nil
}
