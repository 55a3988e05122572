package engine

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/coldtrack/coldtrack/internal/rule"
	"github.com/coldtrack/coldtrack/internal/store"
)

func newTestEngine(t *testing.T, opts ...Option) (*Engine, *store.Store) {
	t.Helper()
	st, err := store.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	opts = append([]Option{WithIDGenerator(NewSequentialIDGenerator())}, opts...)
	return New(st, opts...), st
}

func saveMonitor(t *testing.T, st *store.Store, m rule.WindowMonitor) {
	t.Helper()
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	m.Active = true
	require.NoError(t, m.Validate())
	require.NoError(t, st.SaveWindowMonitor(context.Background(), m))
}

func saveSchedule(t *testing.T, st *store.Store, r rule.ScheduleRule) {
	t.Helper()
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	r.Active = true
	require.NoError(t, r.Validate())
	require.NoError(t, st.SaveScheduleRule(context.Background(), r))
}

func morningWindow(owner string) rule.WindowMonitor {
	return rule.WindowMonitor{
		OwnerID:   owner,
		AssetID:   "fridge-1",
		CheckType: rule.CheckSpecificWindow,
		StartTime: "09:00",
		EndTime:   "09:30",
		Timezone:  "UTC",
	}
}

func dailySchedule(owner string) rule.ScheduleRule {
	return rule.ScheduleRule{
		OwnerID:   owner,
		Cadence:   rule.CadenceDaily,
		StartDate: "2024-01-01",
		Timezone:  "UTC",
	}
}
