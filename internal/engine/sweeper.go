package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/coldtrack/coldtrack/internal/rule"
)

// SweepResult reports one sweep pass.
type SweepResult struct {
	AsOf   time.Time
	Missed int64
}

// Sweep transitions every REQUIRED occurrence whose due interval ended
// strictly before asOf to MISSED with an auto-generated reason.
//
// Occurrences still inside their due interval are untouched: a daily
// "any time today" check is not missed until the day fully elapses in the
// facility's timezone, which is already encoded in the stored due_end
// instant. Idempotent - re-sweeping changes nothing, and a reconciliation
// racing the sweep is resolved by whichever conditional write lands first.
//
// The caller supplies asOf explicitly; sweeping is triggered by an external
// periodic scheduler, never by the engine itself.
func (e *Engine) Sweep(ctx context.Context, asOf time.Time) (SweepResult, error) {
	reason := fmt.Sprintf("due window elapsed with no matching event as of %s", asOf.UTC().Format(time.RFC3339))

	missed, err := e.store.MarkMissedBefore(ctx, asOf, reason)
	if err != nil {
		return SweepResult{}, fmt.Errorf("sweep: %w", err)
	}

	if missed > 0 {
		e.metrics.OccurrencesMissed(int(missed))
		slog.Info("sweep pass complete", "as_of", asOf.UTC().Format(time.RFC3339), "missed", missed)
	} else {
		slog.Debug("sweep pass found nothing overdue", "as_of", asOf.UTC().Format(time.RFC3339))
	}
	return SweepResult{AsOf: asOf, Missed: missed}, nil
}

// Override flips a MISSED occurrence to COMPLETED-with-override, recording
// the acting user, the justification, and the override instant.
//
// Only MISSED occurrences can be overridden: a still-REQUIRED occurrence
// has an open due window and an already-COMPLETED one has nothing to
// correct. Both are rejected as state conflicts with no state change.
func (e *Engine) Override(ctx context.Context, occurrenceID, actorID, reason string, at time.Time) error {
	if reason == "" {
		return NewStateConflictError(occurrenceID, "override requires a justification")
	}

	occ, err := e.store.GetOccurrence(ctx, occurrenceID)
	if err != nil {
		return err
	}
	if occ == nil {
		return &DomainError{
			Code:         ErrCodeNotFound,
			Message:      "occurrence does not exist",
			OccurrenceID: occurrenceID,
		}
	}

	unlock := e.locks.acquire(occ.OwnerID)
	defer unlock()

	overridden, err := e.store.OverrideMissed(ctx, occurrenceID, actorID, reason, at)
	if err != nil {
		return err
	}
	if !overridden {
		// Re-read for a precise rejection; the conditional write already
		// guaranteed no state change happened.
		occ, err := e.store.GetOccurrence(ctx, occurrenceID)
		if err != nil {
			return err
		}
		status := rule.Status("")
		if occ != nil {
			status = occ.Status
		}
		return NewStateConflictError(occurrenceID, fmt.Sprintf("only MISSED occurrences can be overridden (status=%s)", status))
	}

	e.metrics.OccurrenceOverridden()
	slog.Info("occurrence overridden",
		"occurrence", occurrenceID,
		"actor", actorID,
		"reason", reason,
	)
	return nil
}
