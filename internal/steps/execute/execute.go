package execute

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"sync"

	"github.com/jedib0t/go-pretty/v6/text"

	"gauntlet/internal/guest"
	"gauntlet/internal/results"
	"gauntlet/internal/steps"
	"gauntlet/pkg/logging"
)

const (
	// DefaultHow selects the internal executor when the plan does not say.
	DefaultHow = "gauntlet"
	// TestDataDir is the directory under the step workdir holding the
	// per-test artifact folders.
	TestDataDir = "data"
	// OutputFilename collects the combined output of one test execution.
	OutputFilename = "output.txt"
	// ResultsFilename persists the classified results of the step.
	ResultsFilename = "results.yaml"
)

// Plugin is the interface execute methods implement.
type Plugin interface {
	Name() string
	How() string
	// Bind attaches the phase to its owning step so it can lay out the
	// per-test data directories inside the step workdir.
	Bind(step *Step)
	// Go runs all discovered tests on one guest. Infrastructure failures
	// abort the run; test failures become results.
	Go(ctx context.Context, g guest.Guest) error
	// Results returns the results classified by the most recent Go.
	Results() []results.Result
	// Requires lists packages the method needs installed on the guests.
	Requires() []string
	// EnabledOnGuest reports whether the phase applies to the guest.
	EnabledOnGuest(g guest.Guest) bool
}

var registry = steps.NewRegistry[Plugin]("execute")

// Register adds an execute method to the registry.
func Register(method steps.Method[Plugin]) {
	registry.Register(method)
}

// Methods lists the registered execute methods.
func Methods() []steps.Method[Plugin] {
	return registry.Methods()
}

// legacyHow matches the old method names that carried the framework.
var legacyHow = regexp.MustCompile(`^(shell|beakerlib)(\.gauntlet)?$`)

// normalize rewrites a legacy method name onto the internal executor. The
// old names carried the test framework, which becomes the phase framework
// instead.
func normalize(record steps.StepData) steps.StepData {
	how := record.How("")
	matched := legacyHow.FindStringSubmatch(how)
	if matched == nil {
		return record
	}
	framework := matched[1]
	logging.Warn("Execute",
		"execute method '%s' is deprecated, use '%s' with framework '%s' instead",
		how, DefaultHow, framework)
	rewritten := record.Clone()
	rewritten["how"] = DefaultHow
	rewritten["framework"] = framework
	return rewritten
}

// Step runs the discovered tests on the provisioned guests and collects
// their classified results.
type Step struct {
	steps.Common
	phases []Plugin

	mu      sync.Mutex
	results []results.Result
}

// New creates the execute step from plan configuration data.
func New(plan steps.Plan, data []steps.StepData) *Step {
	return &Step{Common: steps.NewCommon(plan, "execute", data)}
}

// Wake resolves the execute configuration into a phase. A plan may define
// only a single execute configuration. Legacy method names are rewritten
// first, except on resumed runs where the saved state already went through
// the rewrite.
func (s *Step) Wake() error {
	if err := s.Load(); err != nil {
		return err
	}
	data := s.Data()
	if len(data) > 1 {
		return steps.NewSpecificationError(
			"multiple execute steps defined in plan '%s'", s.Plan().Name())
	}
	if !s.Plan().Resumed() {
		rewritten := make([]steps.StepData, 0, len(data))
		for _, record := range data {
			rewritten = append(rewritten, normalize(record))
		}
		data = rewritten
		s.SetData(data)
	}

	s.phases = nil
	for _, record := range data {
		phase, err := registry.Delegate(s.Plan(), record, DefaultHow)
		if err != nil {
			return err
		}
		phase.Bind(s)
		s.phases = append(s.phases, phase)
	}

	if s.Status() == steps.StatusDone {
		logging.Debug("Execute", "step is done, restoring saved results")
		return s.loadResults()
	}
	s.SetStatus(steps.StatusTodo)
	return s.Save()
}

// Go executes all tests on every ready guest and persists the results.
func (s *Step) Go(ctx context.Context) error {
	s.Heading()
	if s.Status() == steps.StatusDone {
		s.InfoColor("status", "done", text.FgGreen)
		s.Info("summary", s.Summary())
		return nil
	}
	if s.Plan().Dry() {
		s.Info("dry", "tests would be executed now")
		return nil
	}

	guests := readyGuests(s.Plan().Guests())
	if len(guests) == 0 {
		return steps.NewExecuteError("no guests available for execution")
	}

	for _, g := range guests {
		for _, phase := range s.phases {
			if !phase.EnabledOnGuest(g) {
				continue
			}
			s.Verbose("how", phase.How())
			if err := phase.Go(ctx, g); err != nil {
				return err
			}
			s.appendResults(phase.Results())
		}
	}

	if err := s.saveResults(); err != nil {
		return err
	}
	s.Info("summary", s.Summary())
	s.SetStatus(steps.StatusDone)
	return s.Save()
}

// Results returns a copy of the results collected so far.
func (s *Step) Results() []results.Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]results.Result(nil), s.results...)
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

// Summary reports how many tests were executed.
func (s *Step) Summary() string {
	s.mu.Lock()
	count := len(s.results)
	s.mu.Unlock()
	if count == 1 {
		return "1 test executed"
	}
	return fmt.Sprintf("%d tests executed", count)
}

func (s *Step) appendResults(batch []results.Result) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results = append(s.results, batch...)
}

func (s *Step) saveResults() error {
	return results.Save(s.StateFile(ResultsFilename), s.Results())
}

func (s *Step) loadResults() error {
	path := s.StateFile(ResultsFilename)
	loaded, err := results.Load(path)
	if err != nil {
		if os.IsNotExist(err) {
			logging.Debug("Execute", "no saved results for plan '%s'", s.Plan().Name())
			return nil
		}
		return steps.NewFileError(path, err)
	}
	s.mu.Lock()
	s.results = loaded
	s.mu.Unlock()
	return nil
}

// readyGuests filters out guests that did not finish provisioning.
func readyGuests(all []guest.Guest) []guest.Guest {
	ready := make([]guest.Guest, 0, len(all))
	for _, g := range all {
		if g.Ready() {
			ready = append(ready, g)
		}
	}
	return ready
}
