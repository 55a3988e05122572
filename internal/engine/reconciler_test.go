package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coldtrack/coldtrack/internal/rule"
)

func logReading(t *testing.T, eng *Engine, owner string, at time.Time, value float64) ReconcileResult {
	t.Helper()
	result, err := eng.ReconcileReading(context.Background(), ReadingEvent{
		OwnerID:    owner,
		OccurredAt: at,
		Value:      value,
		RecordedBy: "nurse-1",
	})
	require.NoError(t, err)
	return result
}

func TestReconcileReadingOnTimeBoundary(t *testing.T) {
	eng, _ := newTestEngine(t)
	ctx := context.Background()
	saveMonitor(t, eng.Store(), morningWindow("fridge-1/am"))

	_, err := eng.Generate(ctx, "fridge-1/am", "2024-01-01", "2024-01-04")
	require.NoError(t, err)

	// Inside the window: on time.
	result := logReading(t, eng, "fridge-1/am", time.Date(2024, 1, 1, 9, 29, 0, 0, time.UTC), 4.2)
	assert.Equal(t, OutcomeCompleted, result.Outcome)
	assert.True(t, result.OnTime)

	// The due interval is half-open: exactly at the end is already late.
	result = logReading(t, eng, "fridge-1/am", time.Date(2024, 1, 2, 9, 30, 0, 0, time.UTC), 4.2)
	assert.Equal(t, OutcomeCompleted, result.Outcome)
	assert.False(t, result.OnTime)

	// After the window but same local day: completes late, never misses.
	result = logReading(t, eng, "fridge-1/am", time.Date(2024, 1, 3, 21, 0, 0, 0, time.UTC), 4.2)
	assert.Equal(t, "2024-01-03", result.TargetKey)
	assert.Equal(t, OutcomeCompleted, result.Outcome)
	assert.False(t, result.OnTime)
}

func TestReconcileReadingOnTimeHint(t *testing.T) {
	eng, _ := newTestEngine(t)
	ctx := context.Background()
	saveMonitor(t, eng.Store(), morningWindow("fridge-1/am"))
	_, err := eng.Generate(ctx, "fridge-1/am", "2024-01-01", "2024-01-02")
	require.NoError(t, err)

	// Offline capture synced hours later: the producer asserts on-time-ness.
	hint := true
	result, err := eng.ReconcileReading(ctx, ReadingEvent{
		OwnerID:    "fridge-1/am",
		OccurredAt: time.Date(2024, 1, 1, 18, 0, 0, 0, time.UTC),
		Value:      4.2,
		RecordedBy: "nurse-1",
		OnTimeHint: &hint,
	})
	require.NoError(t, err)
	assert.True(t, result.OnTime)
}

func TestReconcileCreatesOccurrenceBeforeGeneration(t *testing.T) {
	eng, st := newTestEngine(t)
	ctx := context.Background()
	saveMonitor(t, st, morningWindow("fridge-1/am"))

	// No generation pass has run; the event must not be lost.
	result := logReading(t, eng, "fridge-1/am", time.Date(2024, 1, 1, 9, 10, 0, 0, time.UTC), 4.2)
	assert.Equal(t, OutcomeCreatedCompleted, result.Outcome)
	assert.True(t, result.OnTime)

	occ, err := st.GetOccurrenceByKey(ctx, "fridge-1/am", "2024-01-01")
	require.NoError(t, err)
	require.NotNil(t, occ)
	assert.Equal(t, rule.StatusCompleted, occ.Status)
	assert.Equal(t, time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC), occ.DueStart)

	// A later generation pass resolves the target but skips the row.
	gen, err := eng.Generate(ctx, "fridge-1/am", "2024-01-01", "2024-01-02")
	require.NoError(t, err)
	assert.Equal(t, 1, gen.Resolved)
	assert.Equal(t, 0, gen.Created)
}

func TestReconcileDuplicateAndCorrection(t *testing.T) {
	eng, st := newTestEngine(t)
	ctx := context.Background()
	saveMonitor(t, st, morningWindow("fridge-1/am"))
	_, err := eng.Generate(ctx, "fridge-1/am", "2024-01-01", "2024-01-02")
	require.NoError(t, err)

	first := logReading(t, eng, "fridge-1/am", time.Date(2024, 1, 1, 9, 10, 0, 0, time.UTC), 4.2)
	assert.Equal(t, OutcomeCompleted, first.Outcome)

	// Identical canonical payload: absorbed.
	dup := logReading(t, eng, "fridge-1/am", time.Date(2024, 1, 1, 9, 12, 0, 0, time.UTC), 4.2)
	assert.Equal(t, OutcomeDuplicate, dup.Outcome)

	// Different value: last write wins on the payload only.
	corrected := logReading(t, eng, "fridge-1/am", time.Date(2024, 1, 1, 11, 0, 0, 0, time.UTC), 4.7)
	assert.Equal(t, OutcomeCorrected, corrected.Outcome)

	occ, err := st.GetOccurrenceByKey(ctx, "fridge-1/am", "2024-01-01")
	require.NoError(t, err)
	assert.Contains(t, occ.Payload, "4.7")
	// The original completion determination is preserved.
	assert.True(t, occ.OnTime)
	require.NotNil(t, occ.CompletedAt)
	assert.Equal(t, time.Date(2024, 1, 1, 9, 10, 0, 0, time.UTC), *occ.CompletedAt)
}

func TestReconcileAfterSweepStaysMissed(t *testing.T) {
	eng, st := newTestEngine(t)
	ctx := context.Background()
	saveMonitor(t, st, morningWindow("fridge-1/am"))
	_, err := eng.Generate(ctx, "fridge-1/am", "2024-01-01", "2024-01-02")
	require.NoError(t, err)

	_, err = eng.Sweep(ctx, time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	result := logReading(t, eng, "fridge-1/am", time.Date(2024, 1, 1, 9, 10, 0, 0, time.UTC), 4.2)
	assert.Equal(t, OutcomeArrivedAfterMiss, result.Outcome)

	occ, err := st.GetOccurrenceByKey(ctx, "fridge-1/am", "2024-01-01")
	require.NoError(t, err)
	assert.Equal(t, rule.StatusMissed, occ.Status)
}

func TestReconcileRejectsExcludedWeekday(t *testing.T) {
	eng, _ := newTestEngine(t)
	m := morningWindow("fridge-1/am")
	m.ExcludedWeekdays = []int{0} // Sundays
	saveMonitor(t, eng.Store(), m)

	_, err := eng.ReconcileReading(context.Background(), ReadingEvent{
		OwnerID:    "fridge-1/am",
		OccurredAt: time.Date(2024, 1, 14, 9, 10, 0, 0, time.UTC), // Sunday
		Value:      4.2,
		RecordedBy: "nurse-1",
	})
	require.Error(t, err)
	var de *DomainError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, ErrCodeNoDueWindow, de.Code)
}

func TestReconcileChecklistAgainstWeeklySchedule(t *testing.T) {
	eng, st := newTestEngine(t)
	ctx := context.Background()
	r := dailySchedule("checklist-42")
	r.Cadence = rule.CadenceWeekly
	saveSchedule(t, st, r)
	_, err := eng.Generate(ctx, "checklist-42", "2024-01-01", "2024-01-08")
	require.NoError(t, err)

	result, err := eng.ReconcileChecklist(ctx, ChecklistEvent{
		OwnerID:     "checklist-42",
		OccurredAt:  time.Date(2024, 1, 3, 14, 0, 0, 0, time.UTC),
		CompletedBy: "tech-3",
		Items: []ChecklistItem{
			{ItemID: "probe-calibrated", Acknowledged: true},
			{ItemID: "door-seal", Acknowledged: false, Note: "worn"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "2024-W01", result.TargetKey)
	assert.Equal(t, OutcomeCompleted, result.Outcome)
	assert.True(t, result.OnTime)

	occ, err := st.GetOccurrenceByKey(ctx, "checklist-42", "2024-W01")
	require.NoError(t, err)
	assert.Contains(t, occ.Payload, "door-seal")
	assert.Equal(t, "tech-3", occ.CompletedBy)
}

func TestReconcileWritesAuditEvents(t *testing.T) {
	eng, st := newTestEngine(t)
	ctx := context.Background()
	saveMonitor(t, st, morningWindow("fridge-1/am"))
	_, err := eng.Generate(ctx, "fridge-1/am", "2024-01-01", "2024-01-02")
	require.NoError(t, err)

	logReading(t, eng, "fridge-1/am", time.Date(2024, 1, 1, 9, 10, 0, 0, time.UTC), 4.2)
	logReading(t, eng, "fridge-1/am", time.Date(2024, 1, 1, 9, 12, 0, 0, time.UTC), 4.2)

	var outcomes []string
	rows, err := st.Query(ctx, "SELECT outcome FROM events ORDER BY id")
	require.NoError(t, err)
	defer rows.Close()
	for rows.Next() {
		var outcome string
		require.NoError(t, rows.Scan(&outcome))
		outcomes = append(outcomes, outcome)
	}
	require.NoError(t, rows.Err())
	assert.ElementsMatch(t, []string{"completed", "duplicate"}, outcomes)
}
