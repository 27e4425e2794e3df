// Package provision implements the pipeline step that brings up the guests
// a plan executes on. Phases run concurrently since guests are independent;
// the resulting guest list still follows phase order.
package provision

import (
	"context"
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/text"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"gauntlet/internal/guest"
	"gauntlet/internal/steps"
	"gauntlet/pkg/logging"
)

// DefaultHow provisions on the local machine unless the plan picks a method.
const DefaultHow = "local"

// GuestRecord is one entry of guests.yaml, enough to reconnect on resume.
type GuestRecord struct {
	Name string `yaml:"name"`
	Role string `yaml:"role,omitempty"`
	How  string `yaml:"how"`
}

// Plugin is the surface provision phases implement.
type Plugin interface {
	// Name of the phase.
	Name() string
	// How names the implementing method.
	How() string
	// Go brings the guest up and waits until it is ready.
	Go(ctx context.Context) error
	// Guest returns the provisioned guest, nil before Go or Restore.
	Guest() guest.Guest
	// Restore reconnects to a guest persisted by a previous run.
	Restore(ctx context.Context, record GuestRecord) error
}

var registry = steps.NewRegistry[Plugin]("provision")

// Register adds a provision method, called from plugin init functions.
func Register(method steps.Method[Plugin]) {
	registry.Register(method)
}

// Methods lists the registered provision methods.
func Methods() []steps.Method[Plugin] {
	return registry.Methods()
}

// Step provisions all guests of a plan.
type Step struct {
	steps.Common
	phases []Plugin
	guests []guest.Guest
}

// New creates the provision step from plan configuration records.
func New(plan steps.Plan, data []steps.StepData) *Step {
	return &Step{Common: steps.NewCommon(plan, "provision", data)}
}

// Wake restores persisted state, resolves phases and reconnects guests of a
// finished step.
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
		logging.Debug("Provision", "step is done, reconnecting guests")
		return s.restoreGuests()
	}
	s.SetStatus(steps.StatusTodo)
	return s.Save()
}

// Go starts all guests concurrently and collects them in phase order.
func (s *Step) Go(ctx context.Context) error {
	s.Heading()
	if s.Status() == steps.StatusDone {
		s.InfoColor("status", "done", text.FgGreen)
		s.Info("summary", s.Summary())
		return nil
	}
	if s.Plan().Dry() {
		s.Info("dry", "guests would be provisioned")
		return nil
	}

	group, groupCtx := errgroup.WithContext(ctx)
	for _, phase := range s.phases {
		phase := phase
		group.Go(func() error {
			return phase.Go(groupCtx)
		})
	}
	if err := group.Wait(); err != nil {
		return err
	}

	s.guests = nil
	for _, phase := range s.phases {
		if g := phase.Guest(); g != nil {
			s.guests = append(s.guests, g)
		}
	}

	if err := s.saveGuests(); err != nil {
		return err
	}
	s.Info("summary", s.Summary())
	s.SetStatus(steps.StatusDone)
	return s.Save()
}

// Guests returns the provisioned guests in phase order.
func (s *Step) Guests() []guest.Guest {
	return s.guests
}

// Stop shuts down all guests, called by the plan after the finish step.
func (s *Step) Stop(ctx context.Context) error {
	for _, g := range s.guests {
		if err := g.Stop(ctx); err != nil {
			return err
		}
		logging.Debug("Provision", "guest '%s' stopped", g.Name())
	}
	return nil
}

// Summary reports how many guests were provisioned.
func (s *Step) Summary() string {
	if len(s.guests) == 1 {
		return "1 guest provisioned"
	}
	return fmt.Sprintf("%d guests provisioned", len(s.guests))
}

// saveGuests persists reconnect records into guests.yaml.
func (s *Step) saveGuests() error {
	var records []GuestRecord
	for _, phase := range s.phases {
		g := phase.Guest()
		if g == nil {
			continue
		}
		records = append(records, GuestRecord{Name: g.Name(), Role: g.Role(), How: phase.How()})
	}
	payload, err := yaml.Marshal(records)
	if err != nil {
		return fmt.Errorf("failed to marshal guest records: %w", err)
	}
	path := s.StateFile("guests.yaml")
	if err := os.WriteFile(path, payload, 0o644); err != nil {
		return steps.NewFileError(path, err)
	}
	return nil
}

// restoreGuests reconnects guests from guests.yaml through their phases.
func (s *Step) restoreGuests() error {
	path := s.StateFile("guests.yaml")
	payload, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			logging.Debug("Provision", "no guests.yaml found in '%s'", s.Workdir())
			return nil
		}
		return steps.NewFileError(path, err)
	}
	var records []GuestRecord
	if err := yaml.Unmarshal(payload, &records); err != nil {
		return steps.NewSpecificationError("invalid guests.yaml in '%s'", s.Workdir())
	}

	byName := make(map[string]GuestRecord, len(records))
	for _, record := range records {
		byName[record.Name] = record
	}

	s.guests = nil
	for _, phase := range s.phases {
		record, ok := byName[phase.Name()]
		if !ok {
			logging.Warn("Provision", "no guest record for phase '%s'", phase.Name())
			continue
		}
		if err := phase.Restore(context.Background(), record); err != nil {
			return err
		}
		s.guests = append(s.guests, phase.Guest())
	}
	return nil
}
