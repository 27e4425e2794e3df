package report

import (
	"context"

	"github.com/jedib0t/go-pretty/v6/text"

	"gauntlet/internal/results"
	"gauntlet/internal/steps"
	"gauntlet/pkg/logging"
)

// DefaultHow selects the terminal reporter when the plan does not say.
const DefaultHow = "display"

// Plugin is the interface report methods implement. Reporting happens on
// the host, so phases never talk to guests.
type Plugin interface {
	Name() string
	How() string
	// Bind attaches the phase to its owning step so it can write report
	// files into the step workdir.
	Bind(step *Step)
	// Go renders the report from the collected results.
	Go(ctx context.Context) error
	// Requires lists packages the method needs installed on the guests.
	Requires() []string
}

var registry = steps.NewRegistry[Plugin]("report")

// Register adds a report method to the registry.
func Register(method steps.Method[Plugin]) {
	registry.Register(method)
}

// Methods lists the registered report methods.
func Methods() []steps.Method[Plugin] {
	return registry.Methods()
}

// pluginBase carries what all report methods share.
type pluginBase struct {
	steps.BasePlugin
	step *Step
}

// Bind attaches the phase to its owning step.
func (p *pluginBase) Bind(step *Step) {
	p.step = step
}

// Requires lists nothing; reporting needs no packages on the guests.
func (p *pluginBase) Requires() []string {
	return nil
}

// Step presents the collected results to the user.
type Step struct {
	steps.Common
	phases []Plugin
}

// New creates the report step from plan configuration data.
func New(plan steps.Plan, data []steps.StepData) *Step {
	return &Step{Common: steps.NewCommon(plan, "report", data)}
}

// Wake resolves the configuration records into report phases.
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
		phase.Bind(s)
		s.phases = append(s.phases, phase)
	}
	if s.Status() == steps.StatusDone {
		logging.Debug("Report", "step is done, not touching")
		return nil
	}
	s.SetStatus(steps.StatusTodo)
	return s.Save()
}

// Go renders all configured reports.
func (s *Step) Go(ctx context.Context) error {
	s.Heading()
	if s.Status() == steps.StatusDone {
		s.InfoColor("status", "done", text.FgGreen)
		s.Info("summary", s.Summary())
		return nil
	}
	if s.Plan().Dry() {
		s.Info("dry", "results would be reported now")
		return nil
	}

	for _, phase := range s.phases {
		s.Verbose("how", phase.How())
		if err := phase.Go(ctx); err != nil {
			return err
		}
	}

	s.Info("summary", s.Summary())
	s.SetStatus(steps.StatusDone)
	return s.Save()
}

// Requires unions the packages all phases need on the guests.
func (s *Step) Requires() []string {
	var required []string
	seen := make(map[string]bool)
	for _, phase := range s.phases {
		for _, name := range phase.Requires() {
			if seen[name] {
				continue
			}
			seen[name] = true
			required = append(required, name)
		}
	}
	return required
}

// Summary gives the one-line overview of all collected results.
func (s *Step) Summary() string {
	return results.Summary(s.Plan().ExecuteResults())
}
