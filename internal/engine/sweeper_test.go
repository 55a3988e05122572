package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coldtrack/coldtrack/internal/rule"
)

func TestSweepMarksOnlyElapsedWindows(t *testing.T) {
	eng, st := newTestEngine(t)
	ctx := context.Background()
	saveMonitor(t, st, morningWindow("fridge-1/am"))

	_, err := eng.Generate(ctx, "fridge-1/am", "2024-01-01", "2024-01-04")
	require.NoError(t, err)

	// As of Jan 2 09:15, the Jan 1 window has elapsed, Jan 2 is still open.
	result, err := eng.Sweep(ctx, time.Date(2024, 1, 2, 9, 15, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, int64(1), result.Missed)

	missed, err := st.GetOccurrenceByKey(ctx, "fridge-1/am", "2024-01-01")
	require.NoError(t, err)
	assert.Equal(t, rule.StatusMissed, missed.Status)
	assert.NotEmpty(t, missed.MissedReason)

	open, err := st.GetOccurrenceByKey(ctx, "fridge-1/am", "2024-01-02")
	require.NoError(t, err)
	assert.Equal(t, rule.StatusRequired, open.Status)
}

func TestSweepIsIdempotent(t *testing.T) {
	eng, _ := newTestEngine(t)
	ctx := context.Background()
	saveMonitor(t, eng.Store(), morningWindow("fridge-1/am"))
	_, err := eng.Generate(ctx, "fridge-1/am", "2024-01-01", "2024-01-03")
	require.NoError(t, err)

	asOf := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	first, err := eng.Sweep(ctx, asOf)
	require.NoError(t, err)
	assert.Equal(t, int64(2), first.Missed)

	second, err := eng.Sweep(ctx, asOf)
	require.NoError(t, err)
	assert.Equal(t, int64(0), second.Missed)
}

func TestSweepSkipsCompleted(t *testing.T) {
	eng, _ := newTestEngine(t)
	ctx := context.Background()
	saveMonitor(t, eng.Store(), morningWindow("fridge-1/am"))
	_, err := eng.Generate(ctx, "fridge-1/am", "2024-01-01", "2024-01-02")
	require.NoError(t, err)

	logReading(t, eng, "fridge-1/am", time.Date(2024, 1, 1, 9, 10, 0, 0, time.UTC), 4.2)

	result, err := eng.Sweep(ctx, time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, int64(0), result.Missed)
}

func setupMissedOccurrence(t *testing.T, eng *Engine) rule.Occurrence {
	t.Helper()
	ctx := context.Background()
	saveMonitor(t, eng.Store(), morningWindow("fridge-1/am"))
	_, err := eng.Generate(ctx, "fridge-1/am", "2024-01-01", "2024-01-02")
	require.NoError(t, err)
	_, err = eng.Sweep(ctx, time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	occ, err := eng.Store().GetOccurrenceByKey(ctx, "fridge-1/am", "2024-01-01")
	require.NoError(t, err)
	require.Equal(t, rule.StatusMissed, occ.Status)
	return *occ
}

func TestOverrideMissedOccurrence(t *testing.T) {
	eng, st := newTestEngine(t)
	ctx := context.Background()
	occ := setupMissedOccurrence(t, eng)

	at := time.Date(2024, 1, 5, 8, 0, 0, 0, time.UTC)
	err := eng.Override(ctx, occ.ID.String(), "supervisor-1", "sensor outage", at)
	require.NoError(t, err)

	got, err := st.GetOccurrence(ctx, occ.ID.String())
	require.NoError(t, err)
	assert.Equal(t, rule.StatusCompleted, got.Status)
	assert.True(t, got.Overridden())
	assert.Equal(t, "supervisor-1", got.OverriddenBy)
	assert.Equal(t, "sensor outage", got.OverrideReason)
	assert.False(t, got.OnTime)
	require.NotNil(t, got.OverriddenAt)
	assert.Equal(t, at, *got.OverriddenAt)
}

func TestOverrideRequiresReason(t *testing.T) {
	eng, _ := newTestEngine(t)
	occ := setupMissedOccurrence(t, eng)

	err := eng.Override(context.Background(), occ.ID.String(), "supervisor-1", "", time.Date(2024, 1, 5, 8, 0, 0, 0, time.UTC))
	require.Error(t, err)
	assert.True(t, IsStateConflict(err))
}

func TestOverrideUnknownOccurrence(t *testing.T) {
	eng, _ := newTestEngine(t)
	saveMonitor(t, eng.Store(), morningWindow("fridge-1/am"))

	err := eng.Override(context.Background(), "no-such-id", "supervisor-1", "reason", time.Now().UTC())
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
}

func TestOverrideRejectsNonMissedStates(t *testing.T) {
	eng, st := newTestEngine(t)
	ctx := context.Background()
	saveMonitor(t, st, morningWindow("fridge-1/am"))
	_, err := eng.Generate(ctx, "fridge-1/am", "2024-01-01", "2024-01-02")
	require.NoError(t, err)

	occ, err := st.GetOccurrenceByKey(ctx, "fridge-1/am", "2024-01-01")
	require.NoError(t, err)

	// Still REQUIRED: the due window is open, nothing to forgive yet.
	err = eng.Override(ctx, occ.ID.String(), "supervisor-1", "early", time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC))
	require.Error(t, err)
	assert.True(t, IsStateConflict(err))

	logReading(t, eng, "fridge-1/am", time.Date(2024, 1, 1, 9, 10, 0, 0, time.UTC), 4.2)

	// COMPLETED: nothing to override either.
	err = eng.Override(ctx, occ.ID.String(), "supervisor-1", "late", time.Date(2024, 1, 2, 8, 0, 0, 0, time.UTC))
	require.Error(t, err)
	assert.True(t, IsStateConflict(err))

	// The rejections changed nothing.
	got, err := st.GetOccurrence(ctx, occ.ID.String())
	require.NoError(t, err)
	assert.Equal(t, rule.StatusCompleted, got.Status)
	assert.False(t, got.Overridden())
}

func TestOverrideTwiceConflicts(t *testing.T) {
	eng, _ := newTestEngine(t)
	ctx := context.Background()
	occ := setupMissedOccurrence(t, eng)

	at := time.Date(2024, 1, 5, 8, 0, 0, 0, time.UTC)
	require.NoError(t, eng.Override(ctx, occ.ID.String(), "supervisor-1", "outage", at))

	err := eng.Override(ctx, occ.ID.String(), "supervisor-2", "again", at.Add(time.Hour))
	require.Error(t, err)
	assert.True(t, IsStateConflict(err))
}
