// Package report computes compliance rates from occurrence outcomes.
//
// Reports are derived, cacheable views: always recomputable from the
// occurrence table, never a source of truth. Reads are safe to run
// concurrently with engine writes; a report may trail an in-flight
// reconciliation by one event, which is acceptable for dashboards.
package report

import (
	"context"
	"time"

	"github.com/coldtrack/coldtrack/internal/rule"
	"github.com/coldtrack/coldtrack/internal/store"
)

// Period is a half-open instant range [From, To).
type Period struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// Bucket aggregates occurrence outcomes for one group.
//
// Required counts every non-future occurrence (due interval started before
// "now", plus anything already terminal). Completed includes overridden
// occurrences. Rates are 0, not NaN, when Required is 0.
type Bucket struct {
	Required       int     `json:"required"`
	Completed      int     `json:"completed"`
	OnTime         int     `json:"on_time"`
	Missed         int     `json:"missed"`
	Overridden     int     `json:"overridden"`
	CompletionRate float64 `json:"completion_rate"`
	OnTimeRate     float64 `json:"on_time_rate"`
}

// Report is one aggregation pass over a period, grouped three ways in a
// single scan: facility-wide, per owner, and per target key (calendar date
// for daily lineages, ISO week for weekly ones).
type Report struct {
	Overall  Bucket            `json:"overall"`
	ByOwner  map[string]Bucket `json:"by_owner"`
	ByTarget map[string]Bucket `json:"by_target"`
}

// Aggregate scans the occurrences of ownerIDs (empty set = all owners)
// overlapping the period and rolls their outcomes up into all three
// groupings at once. `now` bounds which REQUIRED occurrences count as due
// yet; callers supply it explicitly.
func Aggregate(ctx context.Context, st *store.Store, ownerIDs []string, period Period, now time.Time) (Report, error) {
	occurrences, err := st.ListOccurrencesForOwners(ctx, ownerIDs, period.From, period.To)
	if err != nil {
		return Report{}, err
	}

	rep := Report{
		ByOwner:  map[string]Bucket{},
		ByTarget: map[string]Bucket{},
	}

	for _, occ := range occurrences {
		if occ.Status == rule.StatusRequired && !occ.DueStart.Before(now) {
			// Future obligation: not yet due, not yet countable.
			continue
		}

		accumulate(&rep.Overall, occ)

		owner := rep.ByOwner[occ.OwnerID]
		accumulate(&owner, occ)
		rep.ByOwner[occ.OwnerID] = owner

		target := rep.ByTarget[occ.TargetKey]
		accumulate(&target, occ)
		rep.ByTarget[occ.TargetKey] = target
	}

	finalize(&rep.Overall)
	for k, b := range rep.ByOwner {
		finalize(&b)
		rep.ByOwner[k] = b
	}
	for k, b := range rep.ByTarget {
		finalize(&b)
		rep.ByTarget[k] = b
	}
	return rep, nil
}

func accumulate(b *Bucket, occ rule.Occurrence) {
	b.Required++
	switch occ.Status {
	case rule.StatusCompleted:
		b.Completed++
		if occ.OnTime {
			b.OnTime++
		}
		if occ.Overridden() {
			b.Overridden++
		}
	case rule.StatusMissed:
		b.Missed++
	}
}

func finalize(b *Bucket) {
	if b.Required == 0 {
		return
	}
	b.CompletionRate = float64(b.Completed) / float64(b.Required)
	b.OnTimeRate = float64(b.OnTime) / float64(b.Required)
}

// TrendPoint is one sub-period of a trend series.
type TrendPoint struct {
	Period  Period `json:"period"`
	Overall Bucket `json:"overall"`
}

// Trend produces a series by repeated aggregation over sliding sub-periods
// of length step - the same algorithm as Aggregate, not a separate one.
// The final sub-period is clipped to the series end.
func Trend(ctx context.Context, st *store.Store, ownerIDs []string, start, end time.Time, step time.Duration, now time.Time) ([]TrendPoint, error) {
	points := []TrendPoint{}
	for t := start; t.Before(end); t = t.Add(step) {
		sub := Period{From: t, To: t.Add(step)}
		if sub.To.After(end) {
			sub.To = end
		}
		rep, err := Aggregate(ctx, st, ownerIDs, sub, now)
		if err != nil {
			return nil, err
		}
		points = append(points, TrendPoint{Period: sub, Overall: rep.Overall})
	}
	return points, nil
}
