// Package prepare implements the pipeline step that readies guests for
// execution: running setup scripts and installing required packages. On top
// of the configured phases the step synthesizes an install phase from the
// package requirements the later steps report.
package prepare

import (
	"context"
	"fmt"

	"github.com/jedib0t/go-pretty/v6/text"

	"gauntlet/internal/guest"
	"gauntlet/internal/steps"
	"gauntlet/pkg/logging"
)

// DefaultHow runs shell scripts unless the plan picks a method.
const DefaultHow = "shell"

// Plugin is the surface prepare phases implement.
type Plugin interface {
	// Name of the phase.
	Name() string
	// How names the implementing method.
	How() string
	// Go readies one guest.
	Go(ctx context.Context, g guest.Guest) error
	// EnabledOnGuest honors the optional "where" guest selector.
	EnabledOnGuest(g guest.Guest) bool
}

var registry = steps.NewRegistry[Plugin]("prepare")

// Register adds a prepare method, called from plugin init functions.
func Register(method steps.Method[Plugin]) {
	registry.Register(method)
}

// Methods lists the registered prepare methods.
func Methods() []steps.Method[Plugin] {
	return registry.Methods()
}

// Step prepares all guests of a plan.
type Step struct {
	steps.Common
	phases  []Plugin
	applied int
}

// New creates the prepare step from plan configuration records.
func New(plan steps.Plan, data []steps.StepData) *Step {
	return &Step{Common: steps.NewCommon(plan, "prepare", data)}
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
		logging.Debug("Prepare", "step is done, not touching")
		return nil
	}
	s.SetStatus(steps.StatusTodo)
	return s.Save()
}

// Go applies every enabled phase to every guest. Requirements reported by
// the later steps become a trailing install phase.
func (s *Step) Go(ctx context.Context) error {
	s.Heading()
	if s.Status() == steps.StatusDone {
		s.InfoColor("status", "done", text.FgGreen)
		s.Info("summary", s.Summary())
		return nil
	}
	if s.Plan().Dry() {
		s.Info("dry", "guests would be prepared")
		return nil
	}

	phases := s.phases
	if requires := s.Plan().Requires(); len(requires) > 0 {
		logging.Debug("Prepare", "synthesizing install phase for %d required packages", len(requires))
		phase, err := registry.Delegate(s.Plan(), steps.StepData{
			"how":     "install",
			"name":    "requires",
			"summary": "Install packages required by the plan",
			"package": requires,
		}, DefaultHow)
		if err != nil {
			return err
		}
		phases = append(phases, phase)
	}

	s.applied = 0
	for _, g := range s.Plan().Guests() {
		for _, phase := range phases {
			if !phase.EnabledOnGuest(g) {
				logging.Debug("Prepare", "phase '%s' not enabled on guest '%s'", phase.Name(), g.Name())
				continue
			}
			s.Verbose("how", phase.How())
			if err := phase.Go(ctx, g); err != nil {
				return err
			}
			s.applied++
		}
	}

	s.Info("summary", s.Summary())
	s.SetStatus(steps.StatusDone)
	return s.Save()
}

// Summary reports how many phase applications ran.
func (s *Step) Summary() string {
	if s.applied == 1 {
		return "1 preparation applied"
	}
	return fmt.Sprintf("%d preparations applied", s.applied)
}
