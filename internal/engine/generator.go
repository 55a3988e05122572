package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/coldtrack/coldtrack/internal/recur"
	"github.com/coldtrack/coldtrack/internal/rule"
)

// Default generation window applied by the surrounding system: backfill for
// reporting completeness, pre-generate ahead so dashboards show upcoming
// obligations. Re-run on rule creation/reactivation and from the periodic
// maintenance trigger.
const (
	DefaultBackfillDays  = 14
	DefaultLookaheadDays = 60
)

// GenerateResult reports one generation pass.
type GenerateResult struct {
	OwnerID  string
	Resolved int // targets the definition requires in the range
	Created  int // new REQUIRED occurrences written
}

// Generate expands the owner's active definition over the half-open date
// range [from, to) (rule.DateLayout) and inserts a REQUIRED occurrence for
// every target that has none yet.
//
// Idempotent: existing occurrences - any status - are left untouched, so
// re-running with the same or an overlapping range produces no new writes
// and never disturbs terminal states. A partial failure is safe to retry
// for the same reason.
func (e *Engine) Generate(ctx context.Context, ownerID, from, to string) (GenerateResult, error) {
	unlock := e.locks.acquire(ownerID)
	defer unlock()

	targets, err := e.resolveTargets(ctx, ownerID, from, to)
	if err != nil {
		return GenerateResult{}, err
	}

	result := GenerateResult{OwnerID: ownerID, Resolved: len(targets)}
	for _, t := range targets {
		id, err := uuid.Parse(e.ids.Generate())
		if err != nil {
			return result, fmt.Errorf("generate occurrence id: %w", err)
		}
		inserted, err := e.store.InsertRequiredOccurrence(ctx, rule.Occurrence{
			ID:        id,
			OwnerID:   ownerID,
			TargetKey: t.Key,
			Status:    rule.StatusRequired,
			DueStart:  t.DueStart,
			DueEnd:    t.DueEnd,
		})
		if err != nil {
			// Partial writes are fine: the uniqueness invariant makes the
			// retry skip everything already written.
			return result, fmt.Errorf("generate for %s: %w", ownerID, err)
		}
		if inserted {
			result.Created++
		}
	}

	e.metrics.OccurrencesGenerated(result.Created)
	slog.Info("generation pass complete",
		"owner", ownerID,
		"from", from,
		"to", to,
		"resolved", result.Resolved,
		"created", result.Created,
	)
	return result, nil
}

// GenerateAround runs Generate over the default policy window anchored at
// `now`: backfillDays into the past and lookaheadDays forward, with day
// boundaries taken in the owner's timezone.
func (e *Engine) GenerateAround(ctx context.Context, ownerID string, now time.Time, backfillDays, lookaheadDays int) (GenerateResult, error) {
	loc, err := e.ownerLocation(ctx, ownerID)
	if err != nil {
		return GenerateResult{}, err
	}
	local := now.In(loc)
	from := local.AddDate(0, 0, -backfillDays).Format(rule.DateLayout)
	to := local.AddDate(0, 0, lookaheadDays+1).Format(rule.DateLayout)
	return e.Generate(ctx, ownerID, from, to)
}

// resolveTargets expands the owner's active schedule rule or window monitor.
func (e *Engine) resolveTargets(ctx context.Context, ownerID, from, to string) ([]recur.Target, error) {
	r, err := e.store.GetScheduleRule(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if r != nil {
		return recur.ExpandSchedule(*r, from, to)
	}

	m, err := e.store.GetWindowMonitor(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if m != nil {
		return recur.ExpandMonitor(*m, from, to)
	}

	return nil, NewNotFoundError(ownerID, "no active schedule rule or window monitor")
}

// ownerLocation resolves the timezone of the owner's active definition.
func (e *Engine) ownerLocation(ctx context.Context, ownerID string) (*time.Location, error) {
	r, err := e.store.GetScheduleRule(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if r != nil {
		return r.Location()
	}

	m, err := e.store.GetWindowMonitor(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if m != nil {
		return m.Location()
	}

	return nil, NewNotFoundError(ownerID, "no active schedule rule or window monitor")
}
