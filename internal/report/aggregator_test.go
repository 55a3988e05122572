package report

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coldtrack/coldtrack/internal/rule"
	"github.com/coldtrack/coldtrack/internal/store"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func day(d int) time.Time {
	return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC)
}

// seed inserts an occurrence and drives it to the wanted status through the
// store's conditional writes.
func seed(t *testing.T, st *store.Store, owner, key string, d int, status rule.Status, onTime, overridden bool) {
	t.Helper()
	ctx := context.Background()
	occ := rule.Occurrence{
		ID:        uuid.New(),
		OwnerID:   owner,
		TargetKey: key,
		Status:    rule.StatusRequired,
		DueStart:  day(d),
		DueEnd:    day(d + 1),
	}
	inserted, err := st.InsertRequiredOccurrence(ctx, occ)
	require.NoError(t, err)
	require.True(t, inserted)

	switch status {
	case rule.StatusCompleted:
		if overridden {
			_, err = st.MarkMissedBefore(ctx, day(d+2), "elapsed")
			require.NoError(t, err)
			ok, err := st.OverrideMissed(ctx, occ.ID.String(), "supervisor-1", "forgiven", day(d+2))
			require.NoError(t, err)
			require.True(t, ok)
		} else {
			ok, err := st.MarkCompleted(ctx, owner, key, day(d).Add(9*time.Hour), "nurse-1", onTime, `{}`, "h-"+key)
			require.NoError(t, err)
			require.True(t, ok)
		}
	case rule.StatusMissed:
		_, err = st.MarkMissedBefore(ctx, day(d+2), "elapsed")
		require.NoError(t, err)
	}
}

func TestAggregateRates(t *testing.T) {
	st := newTestStore(t)

	// Five due occurrences: three completed (two on time), one missed, one
	// missed-then-overridden.
	seed(t, st, "fridge-1/am", "2024-01-01", 1, rule.StatusCompleted, true, false)
	seed(t, st, "fridge-1/am", "2024-01-02", 2, rule.StatusCompleted, true, false)
	seed(t, st, "fridge-1/am", "2024-01-03", 3, rule.StatusCompleted, false, false)
	seed(t, st, "fridge-1/am", "2024-01-04", 4, rule.StatusMissed, false, false)
	seed(t, st, "fridge-1/am", "2024-01-05", 5, rule.StatusCompleted, false, true)

	rep, err := Aggregate(context.Background(), st, nil,
		Period{From: day(1), To: day(10)}, day(20))
	require.NoError(t, err)

	assert.Equal(t, 5, rep.Overall.Required)
	assert.Equal(t, 4, rep.Overall.Completed)
	assert.Equal(t, 2, rep.Overall.OnTime)
	assert.Equal(t, 1, rep.Overall.Missed)
	assert.Equal(t, 1, rep.Overall.Overridden)
	assert.InDelta(t, 0.8, rep.Overall.CompletionRate, 1e-9)
	assert.InDelta(t, 0.4, rep.Overall.OnTimeRate, 1e-9)
}

func TestAggregateRatesLargerPopulation(t *testing.T) {
	st := newTestStore(t)

	// Ten due occurrences: eight completed (six on time, two late), two
	// missed. Completed rows are seeded first so the miss-marking pass only
	// touches the rows meant to be missed.
	for d := 1; d <= 6; d++ {
		seed(t, st, "fridge-1/am", day(d).Format(rule.DateLayout), d, rule.StatusCompleted, true, false)
	}
	for d := 7; d <= 8; d++ {
		seed(t, st, "fridge-1/am", day(d).Format(rule.DateLayout), d, rule.StatusCompleted, false, false)
	}
	for d := 9; d <= 10; d++ {
		seed(t, st, "fridge-1/am", day(d).Format(rule.DateLayout), d, rule.StatusMissed, false, false)
	}

	rep, err := Aggregate(context.Background(), st, nil,
		Period{From: day(1), To: day(12)}, day(20))
	require.NoError(t, err)

	assert.Equal(t, 10, rep.Overall.Required)
	assert.Equal(t, 8, rep.Overall.Completed)
	assert.Equal(t, 6, rep.Overall.OnTime)
	assert.Equal(t, 2, rep.Overall.Missed)
	assert.InDelta(t, 0.8, rep.Overall.CompletionRate, 1e-9)
	assert.InDelta(t, 0.6, rep.Overall.OnTimeRate, 1e-9)
}

func TestAggregateExcludesFutureOccurrences(t *testing.T) {
	st := newTestStore(t)

	seed(t, st, "fridge-1/am", "2024-01-01", 1, rule.StatusCompleted, true, false)
	// Still REQUIRED with a due interval that has not started as of "now".
	seed(t, st, "fridge-1/am", "2024-01-08", 8, rule.StatusRequired, false, false)

	rep, err := Aggregate(context.Background(), st, nil,
		Period{From: day(1), To: day(10)}, day(5))
	require.NoError(t, err)

	assert.Equal(t, 1, rep.Overall.Required)
	assert.Equal(t, 1.0, rep.Overall.CompletionRate)

	// A due-but-unmet REQUIRED occurrence does count against the rate.
	rep, err = Aggregate(context.Background(), st, nil,
		Period{From: day(1), To: day(10)}, day(9))
	require.NoError(t, err)
	assert.Equal(t, 2, rep.Overall.Required)
	assert.InDelta(t, 0.5, rep.Overall.CompletionRate, 1e-9)
}

func TestAggregateEmptyPeriodHasZeroRates(t *testing.T) {
	st := newTestStore(t)

	rep, err := Aggregate(context.Background(), st, nil,
		Period{From: day(1), To: day(10)}, day(20))
	require.NoError(t, err)

	// Zero, not NaN.
	assert.Equal(t, 0, rep.Overall.Required)
	assert.Equal(t, 0.0, rep.Overall.CompletionRate)
	assert.Equal(t, 0.0, rep.Overall.OnTimeRate)
}

func TestAggregateGroupings(t *testing.T) {
	st := newTestStore(t)

	seed(t, st, "fridge-1/am", "2024-01-01", 1, rule.StatusCompleted, true, false)
	seed(t, st, "fridge-1/pm", "2024-01-01", 1, rule.StatusMissed, false, false)

	rep, err := Aggregate(context.Background(), st, nil,
		Period{From: day(1), To: day(3)}, day(10))
	require.NoError(t, err)

	require.Contains(t, rep.ByOwner, "fridge-1/am")
	require.Contains(t, rep.ByOwner, "fridge-1/pm")
	assert.Equal(t, 1.0, rep.ByOwner["fridge-1/am"].CompletionRate)
	assert.Equal(t, 0.0, rep.ByOwner["fridge-1/pm"].CompletionRate)

	// Both lineages share the calendar date, so the target bucket merges them.
	require.Contains(t, rep.ByTarget, "2024-01-01")
	assert.Equal(t, 2, rep.ByTarget["2024-01-01"].Required)
	assert.InDelta(t, 0.5, rep.ByTarget["2024-01-01"].CompletionRate, 1e-9)
}

func TestAggregateOwnerFilter(t *testing.T) {
	st := newTestStore(t)

	seed(t, st, "fridge-1/am", "2024-01-01", 1, rule.StatusCompleted, true, false)
	seed(t, st, "fridge-2/am", "2024-01-01", 1, rule.StatusMissed, false, false)

	rep, err := Aggregate(context.Background(), st, []string{"fridge-1/am"},
		Period{From: day(1), To: day(3)}, day(10))
	require.NoError(t, err)

	assert.Equal(t, 1, rep.Overall.Required)
	assert.NotContains(t, rep.ByOwner, "fridge-2/am")
}

func TestTrend(t *testing.T) {
	st := newTestStore(t)

	seed(t, st, "fridge-1/am", "2024-01-01", 1, rule.StatusCompleted, true, false)
	seed(t, st, "fridge-1/am", "2024-01-02", 2, rule.StatusMissed, false, false)
	seed(t, st, "fridge-1/am", "2024-01-03", 3, rule.StatusCompleted, false, false)

	points, err := Trend(context.Background(), st, nil,
		day(1), day(4), 24*time.Hour, day(10))
	require.NoError(t, err)
	require.Len(t, points, 3)

	assert.Equal(t, 1.0, points[0].Overall.CompletionRate)
	assert.Equal(t, 0.0, points[1].Overall.CompletionRate)
	assert.Equal(t, 1.0, points[2].Overall.CompletionRate)
}

func TestTrendClipsFinalSubPeriod(t *testing.T) {
	st := newTestStore(t)
	seed(t, st, "fridge-1/am", "2024-01-01", 1, rule.StatusCompleted, true, false)

	points, err := Trend(context.Background(), st, nil,
		day(1), day(6), 48*time.Hour, day(10))
	require.NoError(t, err)
	require.Len(t, points, 3)
	assert.Equal(t, day(5), points[2].Period.From)
	assert.Equal(t, day(6), points[2].Period.To)
}
