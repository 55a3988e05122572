// Package harness runs end-to-end compliance scenarios declared in YAML.
//
// Each scenario runs against a fresh in-memory database with a sequential
// ID generator, so a scenario always produces the same trace byte for
// byte. Traces are compared against golden files; regenerate them with
//
//	go test ./internal/harness -update
package harness

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/coldtrack/coldtrack/internal/engine"
	"github.com/coldtrack/coldtrack/internal/report"
	"github.com/coldtrack/coldtrack/internal/rule"
	"github.com/coldtrack/coldtrack/internal/store"
)

// TraceEvent records the observable outcome of one scenario step.
type TraceEvent struct {
	Step     string `json:"step"`
	Owner    string `json:"owner,omitempty"`
	Target   string `json:"target,omitempty"`
	Outcome  string `json:"outcome,omitempty"`
	OnTime   *bool  `json:"on_time,omitempty"`
	Resolved int    `json:"resolved,omitempty"`
	Created  int    `json:"created,omitempty"`
	Missed   int64  `json:"missed,omitempty"`
}

// Result is the outcome of one scenario execution.
type Result struct {
	Trace  []TraceEvent
	Report *report.Report
}

// Run executes a scenario against a fresh engine and returns its trace.
// Any engine error is fatal: scenarios encode deterministic outcomes
// (duplicate, arrived_after_miss, ...) as trace events, not as errors.
func Run(scenario *Scenario) (*Result, error) {
	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("open in-memory store: %w", err)
	}
	defer st.Close()

	eng := engine.New(st, engine.WithIDGenerator(engine.NewSequentialIDGenerator()))
	ctx := context.Background()

	if err := loadDefinitions(ctx, st, scenario); err != nil {
		return nil, err
	}

	result := &Result{Trace: []TraceEvent{}}
	for i, step := range scenario.Steps {
		ev, err := runStep(ctx, eng, st, step)
		if err != nil {
			return nil, fmt.Errorf("steps[%d]: %w", i, err)
		}
		result.Trace = append(result.Trace, ev)
	}

	if scenario.Report != nil {
		rep, err := runReport(ctx, st, scenario.Report)
		if err != nil {
			return nil, err
		}
		result.Report = rep
	}
	return result, nil
}

func loadDefinitions(ctx context.Context, st *store.Store, scenario *Scenario) error {
	for _, def := range scenario.Schedules {
		r := rule.ScheduleRule{
			ID:         uuid.Must(uuid.NewV7()),
			OwnerID:    def.Owner,
			Cadence:    rule.Cadence(def.Cadence),
			DaysOfWeek: def.DaysOfWeek,
			StartDate:  def.StartDate,
			EndDate:    def.EndDate,
			Timezone:   def.Timezone,
			Active:     true,
		}
		if err := r.Validate(); err != nil {
			return fmt.Errorf("schedule for %s: %w", def.Owner, err)
		}
		if err := st.SaveScheduleRule(ctx, r); err != nil {
			return fmt.Errorf("save schedule for %s: %w", def.Owner, err)
		}
	}
	for _, def := range scenario.Monitors {
		m := rule.WindowMonitor{
			ID:               uuid.Must(uuid.NewV7()),
			OwnerID:          def.Owner,
			AssetID:          def.Asset,
			CheckType:        rule.CheckType(def.Type),
			StartTime:        def.StartTime,
			EndTime:          def.EndTime,
			ExcludedWeekdays: def.ExcludedWeekdays,
			Timezone:         def.Timezone,
			Active:           true,
		}
		if err := m.Validate(); err != nil {
			return fmt.Errorf("monitor for %s: %w", def.Owner, err)
		}
		if err := st.SaveWindowMonitor(ctx, m); err != nil {
			return fmt.Errorf("save monitor for %s: %w", def.Owner, err)
		}
	}
	return nil
}

func runStep(ctx context.Context, eng *engine.Engine, st *store.Store, step Step) (TraceEvent, error) {
	switch {
	case step.Generate != nil:
		s := step.Generate
		res, err := eng.Generate(ctx, s.Owner, s.From, s.To)
		if err != nil {
			return TraceEvent{}, err
		}
		return TraceEvent{Step: "generate", Owner: s.Owner, Resolved: res.Resolved, Created: res.Created}, nil

	case step.Reading != nil:
		s := step.Reading
		at, err := parseInstant(s.At)
		if err != nil {
			return TraceEvent{}, err
		}
		res, err := eng.ReconcileReading(ctx, engine.ReadingEvent{
			OwnerID:    s.Owner,
			OccurredAt: at,
			Value:      s.Value,
			RecordedBy: s.By,
		})
		if err != nil {
			return TraceEvent{}, err
		}
		return TraceEvent{Step: "reading", Owner: s.Owner, Target: res.TargetKey, Outcome: string(res.Outcome), OnTime: &res.OnTime}, nil

	case step.Checklist != nil:
		s := step.Checklist
		at, err := parseInstant(s.At)
		if err != nil {
			return TraceEvent{}, err
		}
		items := make([]engine.ChecklistItem, len(s.Items))
		for i, item := range s.Items {
			items[i] = engine.ChecklistItem{
				ItemID:       item.ID,
				Acknowledged: !item.Unchecked,
				Note:         item.Note,
			}
		}
		res, err := eng.ReconcileChecklist(ctx, engine.ChecklistEvent{
			OwnerID:     s.Owner,
			OccurredAt:  at,
			CompletedBy: s.By,
			Items:       items,
		})
		if err != nil {
			return TraceEvent{}, err
		}
		return TraceEvent{Step: "checklist", Owner: s.Owner, Target: res.TargetKey, Outcome: string(res.Outcome), OnTime: &res.OnTime}, nil

	case step.Sweep != nil:
		asOf, err := parseInstant(step.Sweep.AsOf)
		if err != nil {
			return TraceEvent{}, err
		}
		res, err := eng.Sweep(ctx, asOf)
		if err != nil {
			return TraceEvent{}, err
		}
		return TraceEvent{Step: "sweep", Missed: res.Missed}, nil

	case step.Override != nil:
		s := step.Override
		at, err := parseInstant(s.At)
		if err != nil {
			return TraceEvent{}, err
		}
		occ, err := st.GetOccurrenceByKey(ctx, s.Owner, s.Target)
		if err != nil {
			return TraceEvent{}, err
		}
		if occ == nil {
			return TraceEvent{}, fmt.Errorf("no occurrence for (%s, %s)", s.Owner, s.Target)
		}
		if err := eng.Override(ctx, occ.ID.String(), s.Actor, s.Reason, at); err != nil {
			return TraceEvent{}, err
		}
		return TraceEvent{Step: "override", Owner: s.Owner, Target: s.Target, Outcome: "overridden"}, nil
	}
	return TraceEvent{}, fmt.Errorf("empty step")
}

func runReport(ctx context.Context, st *store.Store, spec *ReportSpec) (*report.Report, error) {
	from, err := parseInstant(spec.From)
	if err != nil {
		return nil, err
	}
	to, err := parseInstant(spec.To)
	if err != nil {
		return nil, err
	}
	now, err := parseInstant(spec.Now)
	if err != nil {
		return nil, err
	}
	rep, err := report.Aggregate(ctx, st, nil, report.Period{From: from, To: to}, now)
	if err != nil {
		return nil, err
	}
	return &rep, nil
}

func parseInstant(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("malformed timestamp %q: %w", s, err)
	}
	return t, nil
}
