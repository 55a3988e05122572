package harness

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestScenarioGoldens(t *testing.T) {
	paths, err := filepath.Glob(filepath.Join("testdata", "scenarios", "*.yaml"))
	require.NoError(t, err)
	require.NotEmpty(t, paths, "no scenario files found")

	for _, path := range paths {
		path := path
		t.Run(filepath.Base(path), func(t *testing.T) {
			scenario, err := LoadScenario(path)
			require.NoError(t, err)
			require.NoError(t, RunWithGolden(t, scenario))
		})
	}
}

func TestRunReadingBeforeGeneration(t *testing.T) {
	scenario := &Scenario{
		Name:        "reading_before_generation",
		Description: "a reading arriving before any generation pass creates the occurrence directly",
		Monitors: []MonitorDef{
			{Owner: "fridge-2/pm", Asset: "fridge-2", Type: "DAILY_ANY_TIME", Timezone: "UTC"},
		},
		Steps: []Step{
			{Reading: &ReadingStep{Owner: "fridge-2/pm", At: "2024-03-10T15:00:00Z", Value: 3.9, By: "nurse-2"}},
			{Generate: &GenerateStep{Owner: "fridge-2/pm", From: "2024-03-10", To: "2024-03-11"}},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	require.Len(t, result.Trace, 2)

	require.Equal(t, "created_completed", result.Trace[0].Outcome)
	require.Equal(t, "2024-03-10", result.Trace[0].Target)

	// Generation resolves the target but finds it already written.
	require.Equal(t, 1, result.Trace[1].Resolved)
	require.Equal(t, 0, result.Trace[1].Created)
}

func TestRunEventAfterSweepStaysMissed(t *testing.T) {
	scenario := &Scenario{
		Name:        "event_after_sweep",
		Description: "an event arriving after the sweep does not resurrect the miss",
		Monitors: []MonitorDef{
			{Owner: "fridge-3/am", Asset: "fridge-3", Type: "DAILY_ANY_TIME", Timezone: "UTC"},
		},
		Steps: []Step{
			{Generate: &GenerateStep{Owner: "fridge-3/am", From: "2024-03-01", To: "2024-03-02"}},
			{Sweep: &SweepStep{AsOf: "2024-03-05T00:00:00Z"}},
			{Reading: &ReadingStep{Owner: "fridge-3/am", At: "2024-03-01T23:00:00Z", Value: 4.0, By: "nurse-1"}},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	require.Len(t, result.Trace, 3)
	require.Equal(t, int64(1), result.Trace[1].Missed)
	require.Equal(t, "arrived_after_miss", result.Trace[2].Outcome)
}

func TestRunIsDeterministic(t *testing.T) {
	scenario, err := LoadScenario(filepath.Join("testdata", "scenarios", "daily_fridge_cycle.yaml"))
	require.NoError(t, err)

	first, err := Run(scenario)
	require.NoError(t, err)
	second, err := Run(scenario)
	require.NoError(t, err)

	require.Equal(t, first.Trace, second.Trace)
	require.Equal(t, first.Report, second.Report)
}
