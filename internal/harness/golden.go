package harness

import (
	"encoding/json"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/coldtrack/coldtrack/internal/report"
)

// Snapshot is the serialized form of a scenario run, compared byte for
// byte against the golden file testdata/golden/{scenario.Name}.golden.
type Snapshot struct {
	Scenario string         `json:"scenario"`
	Trace    []TraceEvent   `json:"trace"`
	Report   *report.Report `json:"report,omitempty"`
}

// RunWithGolden executes a scenario and compares its trace and final
// report against the golden file. Regenerate goldens with
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) error {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return err
	}

	snapshot := Snapshot{
		Scenario: scenario.Name,
		Trace:    result.Trace,
		Report:   result.Report,
	}
	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenario.Name, data)
	return nil
}
