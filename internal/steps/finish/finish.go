package finish

import (
	"context"
	"fmt"

	"github.com/jedib0t/go-pretty/v6/text"

	"gauntlet/internal/guest"
	"gauntlet/internal/steps"
)

// DefaultHow selects the shell method when the plan does not say.
const DefaultHow = "shell"

// Plugin is the interface finish methods implement.
type Plugin interface {
	Name() string
	How() string
	// Go runs the cleanup task on one guest.
	Go(ctx context.Context, g guest.Guest) error
	// EnabledOnGuest reports whether the phase applies to the guest.
	EnabledOnGuest(g guest.Guest) bool
}

var registry = steps.NewRegistry[Plugin]("finish")

// Register adds a finish method to the registry.
func Register(method steps.Method[Plugin]) {
	registry.Register(method)
}

// Methods lists the registered finish methods.
func Methods() []steps.Method[Plugin] {
	return registry.Methods()
}

// Step performs the cleanup tasks on all guests once testing is over.
type Step struct {
	steps.Common
	phases []Plugin
	tasks  int
}

// New creates the finish step from plan configuration data.
func New(plan steps.Plan, data []steps.StepData) *Step {
	return &Step{Common: steps.NewCommon(plan, "finish", data)}
}

// Wake resolves the configuration records into finish phases.
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
		return nil
	}
	s.SetStatus(steps.StatusTodo)
	return s.Save()
}

// Go runs all cleanup tasks on every guest.
func (s *Step) Go(ctx context.Context) error {
	s.Heading()
	if s.Status() == steps.StatusDone {
		s.InfoColor("status", "done", text.FgGreen)
		s.Info("summary", s.Summary())
		return nil
	}
	if s.Plan().Dry() {
		s.Info("dry", "cleanup tasks would run now")
		return nil
	}

	for _, g := range s.Plan().Guests() {
		for _, phase := range s.phases {
			if !phase.EnabledOnGuest(g) {
				continue
			}
			s.Verbose("how", phase.How())
			if err := phase.Go(ctx, g); err != nil {
				return err
			}
			s.tasks++
		}
	}

	s.Info("summary", s.Summary())
	s.SetStatus(steps.StatusDone)
	return s.Save()
}

// Summary reports how many cleanup tasks completed.
func (s *Step) Summary() string {
	if s.tasks == 1 {
		return "1 task completed"
	}
	return fmt.Sprintf("%d tasks completed", s.tasks)
}
