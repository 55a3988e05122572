package harness

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Scenario defines one end-to-end compliance flow: definitions to load,
// steps to run against the engine, and an optional final report.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario exercises.
	Description string `yaml:"description"`

	// Schedules and Monitors are the definitions active for the run.
	Schedules []ScheduleDef `yaml:"schedules,omitempty"`
	Monitors  []MonitorDef  `yaml:"monitors,omitempty"`

	// Steps run in order against a fresh in-memory store.
	Steps []Step `yaml:"steps"`

	// Report, when present, aggregates compliance after the last step.
	Report *ReportSpec `yaml:"report,omitempty"`
}

// ScheduleDef mirrors the CUE schedule definition shape.
type ScheduleDef struct {
	Owner      string `yaml:"owner"`
	Cadence    string `yaml:"cadence"`
	DaysOfWeek []int  `yaml:"daysOfWeek,omitempty"`
	StartDate  string `yaml:"startDate"`
	EndDate    string `yaml:"endDate,omitempty"`
	Timezone   string `yaml:"timezone"`
}

// MonitorDef mirrors the CUE monitor definition shape.
type MonitorDef struct {
	Owner            string `yaml:"owner"`
	Asset            string `yaml:"asset"`
	Type             string `yaml:"type"`
	StartTime        string `yaml:"startTime,omitempty"`
	EndTime          string `yaml:"endTime,omitempty"`
	ExcludedWeekdays []int  `yaml:"excludedWeekdays,omitempty"`
	Timezone         string `yaml:"timezone"`
}

// Step is one scenario action. Exactly one field must be set.
type Step struct {
	Generate  *GenerateStep  `yaml:"generate,omitempty"`
	Reading   *ReadingStep   `yaml:"reading,omitempty"`
	Checklist *ChecklistStep `yaml:"checklist,omitempty"`
	Sweep     *SweepStep     `yaml:"sweep,omitempty"`
	Override  *OverrideStep  `yaml:"override,omitempty"`
}

// GenerateStep expands an owner's definition over [From, To).
type GenerateStep struct {
	Owner string `yaml:"owner"`
	From  string `yaml:"from"`
	To    string `yaml:"to"`
}

// ReadingStep reconciles a temperature reading.
type ReadingStep struct {
	Owner string  `yaml:"owner"`
	At    string  `yaml:"at"`
	Value float64 `yaml:"value"`
	By    string  `yaml:"by"`
}

// ChecklistStep reconciles a checklist submission.
type ChecklistStep struct {
	Owner string          `yaml:"owner"`
	At    string          `yaml:"at"`
	By    string          `yaml:"by"`
	Items []ChecklistItem `yaml:"items"`
}

// ChecklistItem is one item of a checklist submission.
type ChecklistItem struct {
	ID        string `yaml:"id"`
	Note      string `yaml:"note,omitempty"`
	Unchecked bool   `yaml:"unchecked,omitempty"`
}

// SweepStep marks everything overdue as of AsOf as missed.
type SweepStep struct {
	AsOf string `yaml:"asOf"`
}

// OverrideStep overrides the missed occurrence of (Owner, Target).
type OverrideStep struct {
	Owner  string `yaml:"owner"`
	Target string `yaml:"target"`
	Actor  string `yaml:"actor"`
	Reason string `yaml:"reason"`
	At     string `yaml:"at"`
}

// ReportSpec aggregates the period [From, To) with the due-yet cutoff Now.
type ReportSpec struct {
	From string `yaml:"from"`
	To   string `yaml:"to"`
	Now  string `yaml:"now"`
}

// LoadScenario reads and parses a scenario YAML file. Unknown fields are
// rejected so typos fail loudly instead of silently skipping a step.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario file: %w", err)
	}

	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("parse scenario YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Schedules) == 0 && len(s.Monitors) == 0 {
		return fmt.Errorf("at least one schedule or monitor is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	for i, step := range s.Steps {
		set := 0
		if step.Generate != nil {
			set++
		}
		if step.Reading != nil {
			set++
		}
		if step.Checklist != nil {
			set++
		}
		if step.Sweep != nil {
			set++
		}
		if step.Override != nil {
			set++
		}
		if set != 1 {
			return fmt.Errorf("steps[%d]: exactly one of generate, reading, checklist, sweep, override is required", i)
		}
	}

	if s.Report != nil {
		for _, ts := range []string{s.Report.From, s.Report.To, s.Report.Now} {
			if _, err := time.Parse(time.RFC3339, ts); err != nil {
				return fmt.Errorf("report: malformed timestamp %q", ts)
			}
		}
	}
	return nil
}
