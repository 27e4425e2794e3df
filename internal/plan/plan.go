package plan

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/jedib0t/go-pretty/v6/text"

	"gauntlet/internal/guest"
	"gauntlet/internal/results"
	"gauntlet/internal/steps"
	"gauntlet/internal/steps/discover"
	"gauntlet/internal/steps/execute"
	"gauntlet/internal/steps/finish"
	"gauntlet/internal/steps/prepare"
	"gauntlet/internal/steps/provision"
	"gauntlet/internal/steps/report"
	"gauntlet/internal/tests"
)

// Options carries the run-level flags threaded into every plan.
type Options struct {
	Verbose   bool
	Dry       bool
	ExitFirst bool
	Resumed   bool
}

// Plan binds the six pipeline steps around one test plan. It implements
// the view steps get of their owner.
type Plan struct {
	name        string
	summary     string
	environment map[string]string
	sourceDir   string
	workdir     string
	options     Options

	discover  *discover.Step
	provision *provision.Step
	prepare   *prepare.Step
	execute   *execute.Step
	report    *report.Step
	finish    *finish.Step
}

// newPlan wires the steps of a parsed plan together. Provision and
// execute always run, so they receive a default configuration record when
// the plan leaves them out.
func newPlan(name string, spec planSpec, sourceDir string, options Options) *Plan {
	p := &Plan{
		name:        name,
		summary:     spec.Summary,
		environment: spec.Environment,
		sourceDir:   sourceDir,
		options:     options,
	}
	p.discover = discover.New(p, spec.Discover)
	p.provision = provision.New(p, withDefault(spec.Provision, steps.StepData{"how": provision.DefaultHow}))
	p.prepare = prepare.New(p, spec.Prepare)
	p.execute = execute.New(p, withDefault(spec.Execute, steps.StepData{"how": execute.DefaultHow}))
	p.report = report.New(p, spec.Report)
	p.finish = finish.New(p, spec.Finish)
	return p
}

// withDefault injects a default configuration record for steps that must
// always run, even when the plan leaves them out.
func withDefault(config stepConfig, fallback steps.StepData) []steps.StepData {
	if len(config) > 0 {
		return config
	}
	return []steps.StepData{fallback}
}

// Name of the plan, rooted with a slash.
func (p *Plan) Name() string {
	return p.name
}

// Summary is the optional one-line description from the plan file.
func (p *Plan) Summary() string {
	return p.summary
}

// Environment holds plan-wide variables injected into executions.
func (p *Plan) Environment() map[string]string {
	return p.environment
}

// Workdir is the root directory of this plan inside the run.
func (p *Plan) Workdir() string {
	return p.workdir
}

// Verbose enables detailed user-facing output.
func (p *Plan) Verbose() bool {
	return p.options.Verbose
}

// Dry asks steps to only report what they would do.
func (p *Plan) Dry() bool {
	return p.options.Dry
}

// ExitFirst stops execution after the first failing result.
func (p *Plan) ExitFirst() bool {
	return p.options.ExitFirst
}

// Resumed reports whether this run continues an earlier one.
func (p *Plan) Resumed() bool {
	return p.options.Resumed
}

// SourceDir is the project root the plan was loaded from.
func (p *Plan) SourceDir() string {
	return p.sourceDir
}

// Guests lists the guests the provision step prepared.
func (p *Plan) Guests() []guest.Guest {
	return p.provision.Guests()
}

// Tests lists the tests the discover step found.
func (p *Plan) Tests() []tests.Test {
	return p.discover.Tests()
}

// DiscoverWorkdir is where discovered test sources live.
func (p *Plan) DiscoverWorkdir() string {
	return p.discover.TestsDir()
}

// ExecuteResults exposes the results accumulated by the execute step.
func (p *Plan) ExecuteResults() []results.Result {
	return p.execute.Results()
}

// Requires unions the packages the execute and report steps need on the
// guests. The prepare step installs them before testing starts.
func (p *Plan) Requires() []string {
	var required []string
	seen := make(map[string]bool)
	for _, names := range [][]string{p.execute.Requires(), p.report.Requires()} {
		for _, name := range names {
			if seen[name] {
				continue
			}
			seen[name] = true
			required = append(required, name)
		}
	}
	return required
}

// Steps lists the six steps in pipeline order.
func (p *Plan) Steps() []steps.Step {
	return []steps.Step{p.discover, p.provision, p.prepare, p.execute, p.report, p.finish}
}

// InitWorkdir lays out the plan directory inside the run workdir and
// assigns each step its own subdirectory.
func (p *Plan) InitWorkdir(runWorkdir string) error {
	p.workdir = filepath.Join(runWorkdir, strings.TrimPrefix(p.name, "/"))
	for _, step := range p.Steps() {
		if err := step.InitWorkdir(filepath.Join(p.workdir, step.Name())); err != nil {
			return err
		}
	}
	return nil
}

// Wake wakes all steps in pipeline order, restoring saved state on
// resumed runs.
func (p *Plan) Wake() error {
	for _, step := range p.Steps() {
		if err := step.Wake(); err != nil {
			return err
		}
	}
	return nil
}

// Go runs the pipeline. Guests are stopped only after the finish step
// completed; a failed run keeps them up so it can be resumed.
func (p *Plan) Go(ctx context.Context) error {
	fmt.Println(text.Bold.Sprint(p.name))
	for _, step := range p.Steps() {
		if err := step.Go(ctx); err != nil {
			return err
		}
	}
	return p.provision.Stop(ctx)
}
