// Package discover implements the first pipeline step: finding the tests a
// plan should run. Methods produce ordered test lists; the step aggregates
// them and persists the selection for later resume.
package discover

import (
	"context"
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/text"
	"gopkg.in/yaml.v3"

	"gauntlet/internal/steps"
	"gauntlet/internal/tests"
	"gauntlet/pkg/logging"
)

// DefaultHow selects inline test lists unless the plan picks a method.
const DefaultHow = "list"

// Plugin is the surface discover phases implement.
type Plugin interface {
	// Name of the phase.
	Name() string
	// How names the implementing method.
	How() string
	// Go performs the discovery.
	Go(ctx context.Context) error
	// Tests returns the discovered tests in a stable order.
	Tests() []tests.Test
}

var registry = steps.NewRegistry[Plugin]("discover")

// Register adds a discover method, called from plugin init functions.
func Register(method steps.Method[Plugin]) {
	registry.Register(method)
}

// Methods lists the registered discover methods.
func Methods() []steps.Method[Plugin] {
	return registry.Methods()
}

// Step collects tests for a plan by delegating to its phases.
type Step struct {
	steps.Common
	phases []Plugin
	found  []tests.Test
}

// New creates the discover step from plan configuration records.
func New(plan steps.Plan, data []steps.StepData) *Step {
	return &Step{Common: steps.NewCommon(plan, "discover", data)}
}

// TestsDir is where discovered test sources live inside the step workdir.
func (s *Step) TestsDir() string {
	return s.StateFile("tests")
}

// Wake restores persisted state and resolves configuration into phases.
func (s *Step) Wake() error {
	if err := s.Load(); err != nil {
		return err
	}
	s.phases = nil
	for _, record := range s.Data() {
		phase, err := registry.Delegate(s.Plan(), record, DefaultHow)
		if err != nil {
			return err
		}
		s.phases = append(s.phases, phase)
	}
	if s.Status() == steps.StatusDone {
		logging.Debug("Discover", "step is done, loading previously discovered tests")
		return s.loadTests()
	}
	s.SetStatus(steps.StatusTodo)
	return s.Save()
}

// Go runs all phases and aggregates their tests in phase order.
func (s *Step) Go(ctx context.Context) error {
	s.Heading()
	if s.Status() == steps.StatusDone {
		s.InfoColor("status", "done", text.FgGreen)
		s.Info("summary", s.Summary())
		return nil
	}

	if err := os.MkdirAll(s.TestsDir(), 0o755); err != nil {
		return steps.NewFileError(s.TestsDir(), err)
	}

	s.found = nil
	for _, phase := range s.phases {
		s.Verbose("how", phase.How())
		if err := phase.Go(ctx); err != nil {
			return err
		}
		s.found = append(s.found, phase.Tests()...)
	}

	if err := s.saveTests(); err != nil {
		return err
	}
	s.Info("summary", s.Summary())
	s.SetStatus(steps.StatusDone)
	return s.Save()
}

// Tests returns the aggregated tests of all phases.
func (s *Step) Tests() []tests.Test {
	return s.found
}

// Summary reports how many tests were selected.
func (s *Step) Summary() string {
	if len(s.found) == 1 {
		return "1 test selected"
	}
	return fmt.Sprintf("%d tests selected", len(s.found))
}

// saveTests persists the selection into tests.yaml.
func (s *Step) saveTests() error {
	payload, err := yaml.Marshal(s.found)
	if err != nil {
		return fmt.Errorf("failed to marshal discovered tests: %w", err)
	}
	path := s.StateFile("tests.yaml")
	if err := os.WriteFile(path, payload, 0o644); err != nil {
		return steps.NewFileError(path, err)
	}
	return nil
}

// loadTests restores the selection of a finished step.
func (s *Step) loadTests() error {
	path := s.StateFile("tests.yaml")
	payload, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			logging.Debug("Discover", "no tests.yaml found in '%s'", s.Workdir())
			return nil
		}
		return steps.NewFileError(path, err)
	}
	var restored []tests.Test
	if err := yaml.Unmarshal(payload, &restored); err != nil {
		return steps.NewSpecificationError("invalid tests.yaml in '%s'", s.Workdir())
	}
	s.found = restored
	return nil
}
