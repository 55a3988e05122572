package store

import (
	"context"
	"fmt"
	"time"

	"github.com/coldtrack/coldtrack/internal/rule"
)

// SaveScheduleRule inserts a schedule rule, deactivating any previously
// active rule for the same owner in the same transaction. The partial
// unique index on (owner_id) WHERE active guarantees at most one active
// rule per checklist even under concurrent saves.
func (s *Store) SaveScheduleRule(ctx context.Context, r rule.ScheduleRule) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("save schedule rule: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	if r.Active {
		if _, err := tx.ExecContext(ctx, `
			UPDATE schedule_rules SET active = 0
			WHERE owner_id = ? AND active = 1
		`, r.OwnerID); err != nil {
			return fmt.Errorf("save schedule rule: deactivate previous: %w", err)
		}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO schedule_rules
		(id, owner_id, cadence, days_of_week, start_date, end_date, timezone, active)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		r.ID.String(),
		r.OwnerID,
		string(r.Cadence),
		encodeWeekdays(r.DaysOfWeek),
		r.StartDate,
		r.EndDate,
		r.Timezone,
		boolToInt(r.Active),
	)
	if err != nil {
		return fmt.Errorf("save schedule rule: insert: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("save schedule rule: commit: %w", err)
	}
	return nil
}

// SaveWindowMonitor inserts a window monitor, deactivating any previously
// active monitor with the same owner id. Monitors on the same asset carry
// distinct owner ids, so sibling windows (AM/PM) are untouched.
func (s *Store) SaveWindowMonitor(ctx context.Context, m rule.WindowMonitor) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("save window monitor: begin tx: %w", err)
	}
	defer tx.Rollback()

	if m.Active {
		if _, err := tx.ExecContext(ctx, `
			UPDATE window_monitors SET active = 0
			WHERE owner_id = ? AND active = 1
		`, m.OwnerID); err != nil {
			return fmt.Errorf("save window monitor: deactivate previous: %w", err)
		}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO window_monitors
		(id, owner_id, asset_id, check_type, start_time, end_time, excluded_weekdays, timezone, active)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		m.ID.String(),
		m.OwnerID,
		m.AssetID,
		string(m.CheckType),
		m.StartTime,
		m.EndTime,
		encodeWeekdays(m.ExcludedWeekdays),
		m.Timezone,
		boolToInt(m.Active),
	)
	if err != nil {
		return fmt.Errorf("save window monitor: insert: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("save window monitor: commit: %w", err)
	}
	return nil
}

// InsertRequiredOccurrence inserts a REQUIRED occurrence record.
// Uses ON CONFLICT(owner_id, target_key) DO NOTHING for idempotency: an
// existing occurrence for the same key - whatever its status - is left
// untouched, which is the generator's core invariant. Returns whether a
// new row was written.
func (s *Store) InsertRequiredOccurrence(ctx context.Context, occ rule.Occurrence) (bool, error) {
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO occurrences
		(id, owner_id, target_key, status, due_start, due_end)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(owner_id, target_key) DO NOTHING
	`,
		occ.ID.String(),
		occ.OwnerID,
		occ.TargetKey,
		string(rule.StatusRequired),
		FormatTime(occ.DueStart),
		FormatTime(occ.DueEnd),
	)
	if err != nil {
		return false, fmt.Errorf("insert required occurrence: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert required occurrence: rows affected: %w", err)
	}
	return n > 0, nil
}

// InsertCompletedOccurrence inserts an occurrence directly in COMPLETED
// state. Used when an event arrives before generation ran for its key;
// reconciliation must never depend on generation having run first.
// ON CONFLICT DO NOTHING keeps the write race-safe against a concurrent
// generator insert; the caller retries the conditional transition when the
// insert loses.
func (s *Store) InsertCompletedOccurrence(ctx context.Context, occ rule.Occurrence) (bool, error) {
	completedAt := ""
	if occ.CompletedAt != nil {
		completedAt = FormatTime(*occ.CompletedAt)
	}
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO occurrences
		(id, owner_id, target_key, status, due_start, due_end,
		 on_time, completed_at, completed_by, payload, payload_hash)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(owner_id, target_key) DO NOTHING
	`,
		occ.ID.String(),
		occ.OwnerID,
		occ.TargetKey,
		string(rule.StatusCompleted),
		FormatTime(occ.DueStart),
		FormatTime(occ.DueEnd),
		boolToInt(occ.OnTime),
		completedAt,
		occ.CompletedBy,
		occ.Payload,
		occ.PayloadHash,
	)
	if err != nil {
		return false, fmt.Errorf("insert completed occurrence: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert completed occurrence: rows affected: %w", err)
	}
	return n > 0, nil
}

// MarkCompleted transitions an occurrence REQUIRED -> COMPLETED.
// The write is conditional on the current status, so a sweep racing this
// transition cannot both succeed; the loser affects zero rows and reports
// false, not an error.
func (s *Store) MarkCompleted(ctx context.Context, ownerID, targetKey string, completedAt time.Time, completedBy string, onTime bool, payload, payloadHash string) (bool, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE occurrences
		SET status = ?, completed_at = ?, completed_by = ?, on_time = ?, payload = ?, payload_hash = ?
		WHERE owner_id = ? AND target_key = ? AND status = ?
	`,
		string(rule.StatusCompleted),
		FormatTime(completedAt),
		completedBy,
		boolToInt(onTime),
		payload,
		payloadHash,
		ownerID,
		targetKey,
		string(rule.StatusRequired),
	)
	if err != nil {
		return false, fmt.Errorf("mark completed: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("mark completed: rows affected: %w", err)
	}
	return n > 0, nil
}

// ReplacePayload applies last-write-wins payload semantics to an already
// COMPLETED occurrence. The original completed_at/completed_by/on_time
// determination is preserved. A resubmission carrying the same canonical
// payload hash affects zero rows.
func (s *Store) ReplacePayload(ctx context.Context, ownerID, targetKey, payload, payloadHash string) (bool, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE occurrences
		SET payload = ?, payload_hash = ?
		WHERE owner_id = ? AND target_key = ? AND status = ? AND payload_hash <> ?
	`,
		payload,
		payloadHash,
		ownerID,
		targetKey,
		string(rule.StatusCompleted),
		payloadHash,
	)
	if err != nil {
		return false, fmt.Errorf("replace payload: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("replace payload: rows affected: %w", err)
	}
	return n > 0, nil
}

// MarkMissedBefore transitions every REQUIRED occurrence whose due interval
// ended strictly before asOf to MISSED. Occurrences still inside their due
// interval are untouched, and re-sweeping already-MISSED rows is a no-op by
// the status condition. Returns the number of rows transitioned.
func (s *Store) MarkMissedBefore(ctx context.Context, asOf time.Time, reason string) (int64, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE occurrences
		SET status = ?, missed_reason = ?
		WHERE status = ? AND due_end < ?
	`,
		string(rule.StatusMissed),
		reason,
		string(rule.StatusRequired),
		FormatTime(asOf),
	)
	if err != nil {
		return 0, fmt.Errorf("mark missed: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("mark missed: rows affected: %w", err)
	}
	return n, nil
}

// OverrideMissed transitions a MISSED occurrence to COMPLETED with override
// metadata. Conditional on status = MISSED: overriding a REQUIRED or
// already-COMPLETED occurrence affects zero rows, and the caller maps that
// to a state conflict.
func (s *Store) OverrideMissed(ctx context.Context, occurrenceID, actorID, reason string, at time.Time) (bool, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE occurrences
		SET status = ?, completed_at = ?, completed_by = ?, on_time = 0,
		    override_reason = ?, overridden_by = ?, overridden_at = ?
		WHERE id = ? AND status = ?
	`,
		string(rule.StatusCompleted),
		FormatTime(at),
		actorID,
		reason,
		actorID,
		FormatTime(at),
		occurrenceID,
		string(rule.StatusMissed),
	)
	if err != nil {
		return false, fmt.Errorf("override missed: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("override missed: rows affected: %w", err)
	}
	return n > 0, nil
}

// Event is one inbound actual event, kept as an append-only audit record.
type Event struct {
	ID          string
	OwnerID     string
	Kind        string // "READING" | "CHECKLIST"
	OccurredAt  time.Time
	Payload     string
	PayloadHash string
	Outcome     string // reconciliation outcome, e.g. "completed", "duplicate"
}

// InsertEvent appends an event audit record.
// ON CONFLICT(id) DO NOTHING keeps producer retries idempotent.
func (s *Store) InsertEvent(ctx context.Context, ev Event) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO events
		(id, owner_id, kind, occurred_at, payload, payload_hash, outcome)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		ev.ID,
		ev.OwnerID,
		ev.Kind,
		FormatTime(ev.OccurredAt),
		ev.Payload,
		ev.PayloadHash,
		ev.Outcome,
	)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
