package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"
	"cuelang.org/go/cue/token"
	"github.com/google/uuid"

	"github.com/coldtrack/coldtrack/internal/rule"
)

// Rule definitions are authored declaratively in CUE. A definitions
// directory contains files of the shape:
//
//	schedule: fridge_audit: {
//		owner:     "checklist-42"
//		cadence:   "WEEKLY"
//		startDate: "2024-01-01"
//		timezone:  "America/New_York"
//	}
//
//	monitor: fridge1_am: {
//		owner:     "fridge-1/am"
//		asset:     "fridge-1"
//		type:      "SPECIFIC_TIME_RANGE"
//		startTime: "09:00"
//		endTime:   "09:30"
//		timezone:  "America/New_York"
//	}

// LoadMode controls how errors are handled during definition loading.
type LoadMode int

const (
	// LoadModeFailFast stops on the first error encountered.
	LoadModeFailFast LoadMode = iota
	// LoadModeCollectAll collects all errors before returning.
	LoadModeCollectAll
)

// LoadResult contains the validated definitions from a directory.
type LoadResult struct {
	Schedules []rule.ScheduleRule
	Monitors  []rule.WindowMonitor
	FileCount int // Number of CUE files found
}

// LoadError represents an error that occurred during definition loading.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Error code constants - unified across all CLI commands.
const (
	ErrCodeGeneric         = "E001" // Generic/unknown error
	ErrCodeScanError       = "E002" // Directory scan error
	ErrCodeNoFiles         = "E003" // No CUE files found
	ErrCodeLoadFailed      = "E004" // CUE load failed
	ErrCodeNotFound        = "E005" // Path not found
	ErrCodeBuildFailed     = "E006" // CUE build failed
	ErrCodeInvalidSchedule = "E101" // Schedule definition rejected
	ErrCodeInvalidMonitor  = "E102" // Monitor definition rejected
)

// scheduleDef is the CUE decoding shape for a schedule definition.
type scheduleDef struct {
	Owner      string `json:"owner"`
	Cadence    string `json:"cadence"`
	DaysOfWeek []int  `json:"daysOfWeek,omitempty"`
	StartDate  string `json:"startDate"`
	EndDate    string `json:"endDate,omitempty"`
	Timezone   string `json:"timezone"`
}

// monitorDef is the CUE decoding shape for a window monitor definition.
type monitorDef struct {
	Owner            string `json:"owner"`
	Asset            string `json:"asset"`
	Type             string `json:"type"`
	StartTime        string `json:"startTime,omitempty"`
	EndTime          string `json:"endTime,omitempty"`
	ExcludedWeekdays []int  `json:"excludedWeekdays,omitempty"`
	Timezone         string `json:"timezone"`
}

// LoadDefinitions loads and validates CUE rule definitions from a directory.
// If mode is LoadModeFailFast, returns on first error.
// If mode is LoadModeCollectAll, collects all errors.
func LoadDefinitions(dir string, mode LoadMode) (*LoadResult, []error) {
	var errs []error

	// Verify directory exists
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("definitions directory not found: %s", dir)}}
	}
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing definitions directory: %v", err)}}
	}
	if !info.IsDir() {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("not a directory: %s", dir)}}
	}

	// Find CUE files
	cueFiles, err := FindCUEFiles(dir)
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning directory: %v", err)}}
	}
	if len(cueFiles) == 0 {
		return nil, []error{&LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no CUE files found in %s", dir)}}
	}

	// Load CUE instances
	ctx := cuecontext.New()
	cfg := &load.Config{Dir: dir, Package: "_"}
	instances := load.Instances([]string{"."}, cfg)
	if len(instances) == 0 {
		return nil, []error{&LoadError{Code: ErrCodeLoadFailed, Message: "no CUE instances loaded"}}
	}

	inst := instances[0]
	if inst.Err != nil {
		return nil, []error{&LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("loading CUE files: %v", inst.Err)}}
	}

	value := ctx.BuildInstance(inst)
	if err := value.Err(); err != nil {
		return nil, []error{&LoadError{Code: ErrCodeBuildFailed, Message: fmt.Sprintf("building CUE value: %v", err)}}
	}

	result := &LoadResult{FileCount: len(cueFiles)}

	// Extract schedules
	schedulesVal := value.LookupPath(cue.ParsePath("schedule"))
	if schedulesVal.Exists() {
		iter, iterErr := schedulesVal.Fields()
		if iterErr != nil {
			errs = append(errs, &LoadError{Code: ErrCodeGeneric, Message: fmt.Sprintf("iterating schedules: %v", iterErr)})
			if mode == LoadModeFailFast {
				return result, errs
			}
		} else {
			for iter.Next() {
				r, decodeErr := decodeSchedule(iter.Value())
				if decodeErr != nil {
					errs = append(errs, &LoadError{
						Code:    ErrCodeInvalidSchedule,
						Message: fmt.Sprintf("schedule.%s: %v", iter.Label(), decodeErr),
						Pos:     iter.Value().Pos(),
					})
					if mode == LoadModeFailFast {
						return result, errs
					}
					continue
				}
				result.Schedules = append(result.Schedules, r)
			}
		}
	}

	// Extract monitors
	monitorsVal := value.LookupPath(cue.ParsePath("monitor"))
	if monitorsVal.Exists() {
		iter, iterErr := monitorsVal.Fields()
		if iterErr != nil {
			errs = append(errs, &LoadError{Code: ErrCodeGeneric, Message: fmt.Sprintf("iterating monitors: %v", iterErr)})
			if mode == LoadModeFailFast {
				return result, errs
			}
		} else {
			for iter.Next() {
				m, decodeErr := decodeMonitor(iter.Value())
				if decodeErr != nil {
					errs = append(errs, &LoadError{
						Code:    ErrCodeInvalidMonitor,
						Message: fmt.Sprintf("monitor.%s: %v", iter.Label(), decodeErr),
						Pos:     iter.Value().Pos(),
					})
					if mode == LoadModeFailFast {
						return result, errs
					}
					continue
				}
				result.Monitors = append(result.Monitors, m)
			}
		}
	}

	if len(result.Schedules) == 0 && len(result.Monitors) == 0 && len(errs) == 0 {
		errs = append(errs, &LoadError{Code: ErrCodeGeneric, Message: "no schedules or monitors found in definitions"})
	}

	return result, errs
}

// FindCUEFiles walks the directory and returns all .cue file paths.
func FindCUEFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && filepath.Ext(path) == ".cue" {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

func decodeSchedule(v cue.Value) (rule.ScheduleRule, error) {
	var def scheduleDef
	if err := v.Decode(&def); err != nil {
		return rule.ScheduleRule{}, err
	}
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
		return rule.ScheduleRule{}, err
	}
	return r, nil
}

func decodeMonitor(v cue.Value) (rule.WindowMonitor, error) {
	var def monitorDef
	if err := v.Decode(&def); err != nil {
		return rule.WindowMonitor{}, err
	}
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
		return rule.WindowMonitor{}, err
	}
	return m, nil
}
