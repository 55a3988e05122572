package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/coldtrack/coldtrack/internal/recur"
	"github.com/coldtrack/coldtrack/internal/rule"
	"github.com/coldtrack/coldtrack/internal/store"
)

// ReadingEvent is a logged temperature reading for a monitored asset
// window. OwnerID identifies the asset+window lineage, not the bare asset.
type ReadingEvent struct {
	OwnerID    string
	OccurredAt time.Time
	Value      float64
	RecordedBy string

	// OnTimeHint lets the producer assert on-time-ness when it observed
	// the submission moment itself (e.g. offline capture synced later).
	// Nil means the engine computes it from the due interval.
	OnTimeHint *bool
}

// ChecklistItem is one acknowledged item in a checklist submission.
type ChecklistItem struct {
	ItemID       string
	Acknowledged bool
	Note         string
}

// ChecklistEvent is a submitted checklist response set for a scheduled
// checklist owner.
type ChecklistEvent struct {
	OwnerID     string
	OccurredAt  time.Time
	CompletedBy string
	Items       []ChecklistItem
}

// ReconcileOutcome describes what an inbound event did.
type ReconcileOutcome string

const (
	// OutcomeCompleted transitioned an existing REQUIRED occurrence.
	OutcomeCompleted ReconcileOutcome = "completed"

	// OutcomeCreatedCompleted created the occurrence directly in COMPLETED
	// state because generation had not run for its key yet.
	OutcomeCreatedCompleted ReconcileOutcome = "created_completed"

	// OutcomeDuplicate matched a terminal occurrence with an identical
	// canonical payload; nothing changed.
	OutcomeDuplicate ReconcileOutcome = "duplicate"

	// OutcomeCorrected replaced the payload of a COMPLETED occurrence
	// (last-write-wins), preserving the original completion timing.
	OutcomeCorrected ReconcileOutcome = "corrected"

	// OutcomeArrivedAfterMiss matched an occurrence already swept to
	// MISSED; the sweep's conditional write landed first, so the event is
	// a no-op beyond the audit log.
	OutcomeArrivedAfterMiss ReconcileOutcome = "arrived_after_miss"
)

// ReconcileResult reports the reconciliation of one event.
type ReconcileResult struct {
	OwnerID   string
	TargetKey string
	Outcome   ReconcileOutcome
	OnTime    bool
}

// ReconcileReading matches a logged reading to the occurrence it satisfies.
func (e *Engine) ReconcileReading(ctx context.Context, ev ReadingEvent) (ReconcileResult, error) {
	payload := map[string]any{
		"type":        "reading",
		"value":       ev.Value,
		"recorded_by": ev.RecordedBy,
	}
	return e.reconcile(ctx, "READING", ev.OwnerID, ev.OccurredAt, ev.RecordedBy, payload, ev.OnTimeHint)
}

// ReconcileChecklist matches a submitted checklist response set to the
// occurrence it satisfies.
func (e *Engine) ReconcileChecklist(ctx context.Context, ev ChecklistEvent) (ReconcileResult, error) {
	items := make([]any, len(ev.Items))
	for i, item := range ev.Items {
		items[i] = map[string]any{
			"item_id":      item.ItemID,
			"acknowledged": item.Acknowledged,
			"note":         item.Note,
		}
	}
	payload := map[string]any{
		"type":         "checklist",
		"completed_by": ev.CompletedBy,
		"items":        items,
	}
	return e.reconcile(ctx, "CHECKLIST", ev.OwnerID, ev.OccurredAt, ev.CompletedBy, payload, nil)
}

// reconcile is the shared event path.
//
// The target key is computed with the same date/week logic as generation,
// so reconciliation never depends on generation having run first: a missing
// occurrence is created directly in COMPLETED state. Terminal occurrences
// take last-write-wins payload corrections with the original completion
// timing preserved.
func (e *Engine) reconcile(ctx context.Context, kind, ownerID string, occurredAt time.Time, actor string, payload map[string]any, onTimeHint *bool) (ReconcileResult, error) {
	unlock := e.locks.acquire(ownerID)
	defer unlock()

	target, err := e.resolveEventTarget(ctx, ownerID, occurredAt)
	if err != nil {
		e.metrics.EventRejected(string(errorCode(err)))
		e.auditEvent(ctx, kind, ownerID, occurredAt, payload, "rejected:"+string(errorCode(err)))
		return ReconcileResult{}, err
	}

	payloadJSON, err := MarshalPayload(payload)
	if err != nil {
		return ReconcileResult{}, err
	}
	payloadHash, err := HashPayload(payload)
	if err != nil {
		return ReconcileResult{}, err
	}

	onTime := occurredAt.Before(target.DueEnd)
	if onTimeHint != nil {
		onTime = *onTimeHint
	}

	result := ReconcileResult{OwnerID: ownerID, TargetKey: target.Key, OnTime: onTime}
	outcome, err := e.applyEvent(ctx, ownerID, target, occurredAt, actor, onTime, payloadJSON, payloadHash)
	if err != nil {
		return ReconcileResult{}, err
	}
	result.Outcome = outcome

	if outcome == OutcomeCompleted || outcome == OutcomeCreatedCompleted {
		e.metrics.OccurrenceCompleted(onTime)
	}
	e.auditEvent(ctx, kind, ownerID, occurredAt, payload, string(outcome))

	slog.Info("event reconciled",
		"owner", ownerID,
		"target", target.Key,
		"outcome", string(outcome),
		"on_time", onTime,
	)
	return result, nil
}

// applyEvent runs the conditional-write ladder for one resolved target.
func (e *Engine) applyEvent(ctx context.Context, ownerID string, target recur.Target, occurredAt time.Time, actor string, onTime bool, payloadJSON, payloadHash string) (ReconcileOutcome, error) {
	// Common case: the generator already wrote a REQUIRED occurrence.
	transitioned, err := e.store.MarkCompleted(ctx, ownerID, target.Key, occurredAt, actor, onTime, payloadJSON, payloadHash)
	if err != nil {
		return "", err
	}
	if transitioned {
		return OutcomeCompleted, nil
	}

	existing, err := e.store.GetOccurrenceByKey(ctx, ownerID, target.Key)
	if err != nil {
		return "", err
	}

	if existing == nil {
		id, err := uuid.Parse(e.ids.Generate())
		if err != nil {
			return "", fmt.Errorf("generate occurrence id: %w", err)
		}
		completedAt := occurredAt
		inserted, err := e.store.InsertCompletedOccurrence(ctx, rule.Occurrence{
			ID:          id,
			OwnerID:     ownerID,
			TargetKey:   target.Key,
			Status:      rule.StatusCompleted,
			DueStart:    target.DueStart,
			DueEnd:      target.DueEnd,
			OnTime:      onTime,
			CompletedAt: &completedAt,
			CompletedBy: actor,
			Payload:     payloadJSON,
			PayloadHash: payloadHash,
		})
		if err != nil {
			return "", err
		}
		if inserted {
			return OutcomeCreatedCompleted, nil
		}
		// Lost an insert race against the generator; the row now exists as
		// REQUIRED, so the conditional transition applies after all.
		transitioned, err := e.store.MarkCompleted(ctx, ownerID, target.Key, occurredAt, actor, onTime, payloadJSON, payloadHash)
		if err != nil {
			return "", err
		}
		if transitioned {
			return OutcomeCompleted, nil
		}
		existing, err = e.store.GetOccurrenceByKey(ctx, ownerID, target.Key)
		if err != nil {
			return "", err
		}
		if existing == nil {
			return "", fmt.Errorf("occurrence for (%s, %s) vanished during reconciliation", ownerID, target.Key)
		}
	}

	switch existing.Status {
	case rule.StatusCompleted:
		if existing.PayloadHash == payloadHash {
			slog.Debug("duplicate submission, skipping (idempotent)",
				"owner", ownerID,
				"target", target.Key,
			)
			return OutcomeDuplicate, nil
		}
		replaced, err := e.store.ReplacePayload(ctx, ownerID, target.Key, payloadJSON, payloadHash)
		if err != nil {
			return "", err
		}
		if !replaced {
			// Another correction with the same payload landed in between.
			return OutcomeDuplicate, nil
		}
		return OutcomeCorrected, nil

	case rule.StatusMissed:
		slog.Debug("event arrived after sweep, occurrence stays MISSED",
			"owner", ownerID,
			"target", target.Key,
		)
		return OutcomeArrivedAfterMiss, nil

	default:
		return "", fmt.Errorf("occurrence (%s, %s) in unexpected status %s after failed transition", ownerID, target.Key, existing.Status)
	}
}

// resolveEventTarget computes the target an event instant falls into.
func (e *Engine) resolveEventTarget(ctx context.Context, ownerID string, at time.Time) (recur.Target, error) {
	r, err := e.store.GetScheduleRule(ctx, ownerID)
	if err != nil {
		return recur.Target{}, err
	}
	if r != nil {
		target, ok, err := recur.TargetForSchedule(*r, at)
		if err != nil {
			return recur.Target{}, err
		}
		if !ok {
			return recur.Target{}, NewNoDueWindowError(ownerID, fmt.Sprintf("schedule expects nothing at %s", at.Format(time.RFC3339)))
		}
		return target, nil
	}

	m, err := e.store.GetWindowMonitor(ctx, ownerID)
	if err != nil {
		return recur.Target{}, err
	}
	if m != nil {
		target, ok, err := recur.TargetForMonitor(*m, at)
		if err != nil {
			return recur.Target{}, err
		}
		if !ok {
			return recur.Target{}, NewNoDueWindowError(ownerID, fmt.Sprintf("monitor excludes the weekday of %s", at.Format(time.RFC3339)))
		}
		return target, nil
	}

	return recur.Target{}, NewNotFoundError(ownerID, "no active schedule rule or window monitor")
}

// auditEvent appends the inbound event to the audit log. Audit failures are
// logged, not propagated: the reconciliation outcome already landed through
// its own conditional write.
func (e *Engine) auditEvent(ctx context.Context, kind, ownerID string, occurredAt time.Time, payload map[string]any, outcome string) {
	payloadJSON, err := MarshalPayload(payload)
	if err != nil {
		slog.Error("audit event marshal failed", "owner", ownerID, "error", err)
		return
	}
	payloadHash, err := HashPayload(payload)
	if err != nil {
		slog.Error("audit event hash failed", "owner", ownerID, "error", err)
		return
	}
	err = e.store.InsertEvent(ctx, store.Event{
		ID:          e.ids.Generate(),
		OwnerID:     ownerID,
		Kind:        kind,
		OccurredAt:  occurredAt,
		Payload:     payloadJSON,
		PayloadHash: payloadHash,
		Outcome:     outcome,
	})
	if err != nil {
		slog.Error("audit event write failed", "owner", ownerID, "error", err)
	}
}

func errorCode(err error) ErrorCode {
	var de *DomainError
	if ok := asDomainError(err, &de); ok {
		return de.Code
	}
	return "INTERNAL"
}
