package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coldtrack/coldtrack/internal/rule"
	"github.com/coldtrack/coldtrack/internal/testutil"
)

func TestGenerateIsIdempotent(t *testing.T) {
	eng, _ := newTestEngine(t)
	ctx := context.Background()
	saveMonitor(t, eng.Store(), morningWindow("fridge-1/am"))

	first, err := eng.Generate(ctx, "fridge-1/am", "2024-01-01", "2024-01-08")
	require.NoError(t, err)
	assert.Equal(t, 7, first.Resolved)
	assert.Equal(t, 7, first.Created)

	// Re-running the same range writes nothing new.
	second, err := eng.Generate(ctx, "fridge-1/am", "2024-01-01", "2024-01-08")
	require.NoError(t, err)
	assert.Equal(t, 7, second.Resolved)
	assert.Equal(t, 0, second.Created)

	// An overlapping range only fills the gap.
	third, err := eng.Generate(ctx, "fridge-1/am", "2024-01-05", "2024-01-10")
	require.NoError(t, err)
	assert.Equal(t, 5, third.Resolved)
	assert.Equal(t, 2, third.Created)
}

func TestGenerateUnknownOwner(t *testing.T) {
	eng, _ := newTestEngine(t)

	_, err := eng.Generate(context.Background(), "nobody", "2024-01-01", "2024-01-02")
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
}

func TestGenerateLeavesTerminalStatesAlone(t *testing.T) {
	eng, st := newTestEngine(t)
	ctx := context.Background()
	saveMonitor(t, st, morningWindow("fridge-1/am"))

	_, err := eng.Generate(ctx, "fridge-1/am", "2024-01-01", "2024-01-03")
	require.NoError(t, err)

	// Complete one day, sweep the other to MISSED.
	_, err = eng.ReconcileReading(ctx, ReadingEvent{
		OwnerID:    "fridge-1/am",
		OccurredAt: time.Date(2024, 1, 1, 9, 10, 0, 0, time.UTC),
		Value:      4.2,
		RecordedBy: "nurse-1",
	})
	require.NoError(t, err)
	_, err = eng.Sweep(ctx, time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	result, err := eng.Generate(ctx, "fridge-1/am", "2024-01-01", "2024-01-03")
	require.NoError(t, err)
	assert.Equal(t, 0, result.Created)

	completed, err := st.GetOccurrenceByKey(ctx, "fridge-1/am", "2024-01-01")
	require.NoError(t, err)
	assert.Equal(t, rule.StatusCompleted, completed.Status)

	missed, err := st.GetOccurrenceByKey(ctx, "fridge-1/am", "2024-01-02")
	require.NoError(t, err)
	assert.Equal(t, rule.StatusMissed, missed.Status)
}

func TestGenerateWeeklySchedule(t *testing.T) {
	eng, st := newTestEngine(t)
	ctx := context.Background()
	r := dailySchedule("checklist-42")
	r.Cadence = rule.CadenceWeekly
	saveSchedule(t, st, r)

	result, err := eng.Generate(ctx, "checklist-42", "2024-01-01", "2024-01-22")
	require.NoError(t, err)
	assert.Equal(t, 3, result.Resolved)
	assert.Equal(t, 3, result.Created)

	occ, err := st.GetOccurrenceByKey(ctx, "checklist-42", "2024-W02")
	require.NoError(t, err)
	require.NotNil(t, occ)
	assert.Equal(t, time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC), occ.DueStart)
	assert.Equal(t, time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), occ.DueEnd)
}

func TestGenerateAroundUsesOwnerTimezone(t *testing.T) {
	eng, st := newTestEngine(t)
	ctx := context.Background()
	saveMonitor(t, st, morningWindow("fridge-1/am"))

	clock := testutil.NewClock(time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC))

	// Backfill 2 days, look ahead 1: covers Jan 13 .. Jan 16 inclusive.
	result, err := eng.GenerateAround(ctx, "fridge-1/am", clock.Now(), 2, 1)
	require.NoError(t, err)
	assert.Equal(t, 4, result.Resolved)
	assert.Equal(t, 4, result.Created)

	// Advancing the anchor extends the window by exactly the elapsed days.
	clock.Advance(24 * time.Hour)
	result, err = eng.GenerateAround(ctx, "fridge-1/am", clock.Now(), 2, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Created)
}
