package plan

import (
	"os"
	"path/filepath"
	"sort"
	"time"

	"gopkg.in/yaml.v3"

	"gauntlet/internal/results"
	"gauntlet/internal/steps"
	"gauntlet/internal/steps/execute"
)

// stepOrder fixes the pipeline position of each step for status output.
var stepOrder = map[string]int{
	"discover":  0,
	"provision": 1,
	"prepare":   2,
	"execute":   3,
	"report":    4,
	"finish":    5,
}

// StepNames lists the pipeline steps in execution order.
func StepNames() []string {
	names := make([]string, len(stepOrder))
	for name, index := range stepOrder {
		names[index] = name
	}
	return names
}

// PlanStatus is the persisted state of one plan inside a run workdir.
type PlanStatus struct {
	Name    string
	Steps   map[string]steps.Status
	Summary string
}

// RunStatus is the on-disk state of a run, read without loading the plans.
// It only relies on the run workdir, so it works even when the project the
// run came from is gone.
type RunStatus struct {
	ID      string
	Workdir string
	Created time.Time
	Plans   []PlanStatus
}

// ReadStatus collects the persisted step states of a run. An empty id picks
// the most recent run under root.
func ReadStatus(root, id string) (*RunStatus, error) {
	id, err := resolveID(root, id)
	if err != nil {
		return nil, err
	}

	workdir := filepath.Join(root, id)
	statePath := filepath.Join(workdir, runStateFilename)
	payload, err := os.ReadFile(statePath)
	if err != nil {
		return nil, steps.NewSpecificationError("run '%s' not found under '%s'", id, root)
	}
	var state runState
	if err := yaml.Unmarshal(payload, &state); err != nil {
		return nil, steps.NewSpecificationError("invalid run state in '%s'", statePath)
	}

	status := &RunStatus{ID: id, Workdir: workdir, Created: state.Created}
	if err := status.collect(workdir, ""); err != nil {
		return nil, err
	}
	sort.Slice(status.Plans, func(i, j int) bool {
		return status.Plans[i].Name < status.Plans[j].Name
	})
	return status, nil
}

// Finished reports whether every plan of the run completed its finish step.
func (s *RunStatus) Finished() bool {
	if len(s.Plans) == 0 {
		return false
	}
	for _, p := range s.Plans {
		if p.Steps["finish"] != steps.StatusDone {
			return false
		}
	}
	return true
}

// collect walks the run workdir for plan directories. A directory counts as
// a plan when it holds at least one step subdirectory with saved state. Plan
// directories can nest, /basic and /basic/deep live side by side.
func (s *RunStatus) collect(dir, name string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return steps.NewFileError(dir, err)
	}

	statuses := make(map[string]steps.Status)
	var descend []os.DirEntry
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		if _, known := stepOrder[entry.Name()]; known {
			status, found := readStepStatus(filepath.Join(dir, entry.Name(), "step.yaml"))
			if found {
				statuses[entry.Name()] = status
				continue
			}
		}
		descend = append(descend, entry)
	}

	if len(statuses) > 0 {
		plan := PlanStatus{Name: name, Steps: statuses}
		if _, ok := statuses["execute"]; ok {
			resultsPath := filepath.Join(dir, "execute", execute.ResultsFilename)
			if loaded, err := results.Load(resultsPath); err == nil {
				plan.Summary = results.Summary(loaded)
			}
		}
		s.Plans = append(s.Plans, plan)
	}

	for _, entry := range descend {
		child := name + "/" + entry.Name()
		if err := s.collect(filepath.Join(dir, entry.Name()), child); err != nil {
			return err
		}
	}
	return nil
}

// readStepStatus reads the status field of one step.yaml. Unreadable files
// report as absent, the status display stays best-effort.
func readStepStatus(path string) (steps.Status, bool) {
	payload, err := os.ReadFile(path)
	if err != nil {
		return steps.StatusUnset, false
	}
	var state struct {
		Status steps.Status `yaml:"status"`
	}
	if err := yaml.Unmarshal(payload, &state); err != nil {
		return steps.StatusUnset, false
	}
	return state.Status, true
}
