package steps

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/jedib0t/go-pretty/v6/text"
	"gopkg.in/yaml.v3"

	"gauntlet/internal/guest"
	"gauntlet/internal/results"
	"gauntlet/internal/tests"
	"gauntlet/pkg/logging"
)

// Status tracks the lifecycle of a step within a run.
type Status string

const (
	// StatusUnset marks a step that has not been woken up yet.
	StatusUnset Status = ""
	// StatusTodo marks a step whose phases are resolved and ready to run.
	StatusTodo Status = "todo"
	// StatusDone marks a step that finished and persisted its state.
	StatusDone Status = "done"
)

// Plan is the view steps get of their owning plan. It is a non-owning
// back-reference; the plan constructs the steps and outlives them.
type Plan interface {
	// Name of the plan, for messages and log lines.
	Name() string
	// Environment holds plan-wide variables injected into executions.
	Environment() map[string]string
	// Workdir is the root directory of this plan inside the run.
	Workdir() string
	// Verbose enables detailed user-facing output.
	Verbose() bool
	// Dry asks steps to only report what they would do.
	Dry() bool
	// ExitFirst stops execution after the first failing result.
	ExitFirst() bool
	// Resumed reports whether this run continues an earlier one.
	Resumed() bool
	// SourceDir is the project root the plan was loaded from.
	SourceDir() string
	// Guests lists the guests the provision step prepared.
	Guests() []guest.Guest
	// Tests lists the tests the discover step found.
	Tests() []tests.Test
	// DiscoverWorkdir is where discovered test sources live.
	DiscoverWorkdir() string
	// ExecuteResults exposes the results accumulated by the execute step.
	ExecuteResults() []results.Result
	// Requires unions the packages all later steps need on the guests.
	Requires() []string
}

// Step is the surface shared by the six pipeline steps.
type Step interface {
	// Name of the step, for example "discover".
	Name() string
	// Status returns the current lifecycle state.
	Status() Status
	// InitWorkdir creates and remembers the step workdir inside the plan
	// directory.
	InitWorkdir(path string) error
	// Wake resolves configuration data into phases and restores any state
	// persisted by a previous run.
	Wake() error
	// Go performs the step's work. Calling Go on a done step only reports
	// the earlier outcome.
	Go(ctx context.Context) error
	// Save persists the step state into its workdir.
	Save() error
	// Summary is a one-line account of what the step did.
	Summary() string
}

// stepState is the serialized form of step.yaml.
type stepState struct {
	Status Status                   `yaml:"status"`
	Data   []map[string]interface{} `yaml:"data,omitempty"`
}

// Common carries the state shared by all steps: configuration data, status
// and the workdir the step persists itself into. Concrete steps embed it.
type Common struct {
	mu      sync.RWMutex
	plan    Plan
	name    string
	data    []StepData
	status  Status
	workdir string
}

// NewCommon initializes the shared step state. The workdir is assigned
// later, once the plan lays out the run directory.
func NewCommon(plan Plan, name string, data []StepData) Common {
	return Common{plan: plan, name: name, data: data}
}

// Name of the step.
func (c *Common) Name() string {
	return c.name
}

// Plan returns the owning plan handle.
func (c *Common) Plan() Plan {
	return c.plan
}

// Data returns the raw configuration records of the step.
func (c *Common) Data() []StepData {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.data
}

// SetData replaces the configuration records, used when waking rewrites
// legacy methods.
func (c *Common) SetData(data []StepData) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data = data
}

// Status returns the current lifecycle state.
func (c *Common) Status() Status {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.status
}

// SetStatus moves the step to a new lifecycle state. Persisting the change
// is the caller's job via Save.
func (c *Common) SetStatus(status Status) {
	c.mu.Lock()
	defer c.mu.Unlock()
	logging.Debug("Step", "step '%s' status '%s' -> '%s'", c.name, c.status, status)
	c.status = status
}

// Workdir returns the directory the step persists its state into.
func (c *Common) Workdir() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.workdir
}

// InitWorkdir creates and remembers the step workdir.
func (c *Common) InitWorkdir(path string) error {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return NewFileError(path, err)
	}
	c.mu.Lock()
	c.workdir = path
	c.mu.Unlock()
	return nil
}

// StateFile returns the path of a file inside the step workdir.
func (c *Common) StateFile(name string) string {
	return filepath.Join(c.Workdir(), name)
}

// Save writes status and configuration data to step.yaml.
func (c *Common) Save() error {
	c.mu.RLock()
	state := stepState{Status: c.status}
	for _, record := range c.data {
		state.Data = append(state.Data, map[string]interface{}(record))
	}
	workdir := c.workdir
	c.mu.RUnlock()

	if workdir == "" {
		return NewSpecificationError("step '%s' has no workdir to save into", c.name)
	}
	payload, err := yaml.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal state of step '%s': %w", c.name, err)
	}
	path := filepath.Join(workdir, "step.yaml")
	if err := os.WriteFile(path, payload, 0o644); err != nil {
		return NewFileError(path, err)
	}
	return nil
}

// Load restores status and configuration data from step.yaml. A missing
// file leaves the step untouched so a fresh run starts from the plan data.
func (c *Common) Load() error {
	path := filepath.Join(c.Workdir(), "step.yaml")
	payload, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			logging.Debug("Step", "no saved state for step '%s'", c.name)
			return nil
		}
		return NewFileError(path, err)
	}

	var state stepState
	if err := yaml.Unmarshal(payload, &state); err != nil {
		return NewSpecificationError("invalid state file for step '%s'", c.name)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.status = state.Status
	if len(state.Data) > 0 {
		c.data = nil
		for _, record := range state.Data {
			c.data = append(c.data, StepData(record))
		}
	}
	logging.Debug("Step", "restored step '%s' with status '%s'", c.name, c.status)
	return nil
}

// Heading prints the step banner into the run output.
func (c *Common) Heading() {
	fmt.Println(text.FgBlue.Sprint("    " + c.name))
}

// Info prints one key: value detail line under the step banner.
func (c *Common) Info(key, value string) {
	if value == "" {
		fmt.Println("        " + key)
		return
	}
	fmt.Printf("        %s: %s\n", key, value)
}

// InfoColor prints a detail line with the value colored.
func (c *Common) InfoColor(key, value string, color text.Color) {
	fmt.Printf("        %s: %s\n", key, color.Sprint(value))
}

// Verbose prints a detail line only when verbose output is enabled.
func (c *Common) Verbose(key, value string) {
	if c.plan != nil && c.plan.Verbose() {
		c.Info(key, value)
	}
}
