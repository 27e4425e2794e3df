package report

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gauntlet/internal/guest"
	"gauntlet/internal/results"
	"gauntlet/internal/steps"
	"gauntlet/internal/tests"
	"gauntlet/pkg/logging"
)

type fakePlan struct {
	name        string
	verbose     bool
	dry         bool
	execResults []results.Result
}

func (p *fakePlan) Name() string { return p.name }

func (p *fakePlan) Environment() map[string]string { return nil }

func (p *fakePlan) Workdir() string { return "" }

func (p *fakePlan) Verbose() bool { return p.verbose }

func (p *fakePlan) Dry() bool { return p.dry }

func (p *fakePlan) ExitFirst() bool { return false }

func (p *fakePlan) Resumed() bool { return false }

func (p *fakePlan) SourceDir() string { return "" }

func (p *fakePlan) Guests() []guest.Guest { return nil }

func (p *fakePlan) Tests() []tests.Test { return nil }

func (p *fakePlan) DiscoverWorkdir() string { return "" }

func (p *fakePlan) ExecuteResults() []results.Result { return p.execResults }

func (p *fakePlan) Requires() []string { return nil }

func sampleResults() []results.Result {
	return []results.Result{
		{
			Name:     "/smoke",
			Outcome:  results.OutcomePass,
			Log:      []string{filepath.Join("data", "smoke", "output.txt")},
			Duration: "00:00:05",
		},
		{
			Name:     "/full/journal",
			Outcome:  results.OutcomeFail,
			Log:      []string{filepath.Join("data", "full", "journal", "output.txt")},
			Duration: "00:01:30",
			Note:     "timeout",
		},
	}
}

func newTestStep(t *testing.T, plan steps.Plan, data []steps.StepData) *Step {
	t.Helper()
	step := New(plan, data)
	require.NoError(t, step.InitWorkdir(filepath.Join(t.TempDir(), "report")))
	return step
}

func TestDisplayRendersTable(t *testing.T) {
	plan := &fakePlan{name: "/plans/basic", execResults: sampleResults()}
	var buf bytes.Buffer
	p := &displayPlugin{
		pluginBase: pluginBase{BasePlugin: steps.NewBasePlugin(plan, "display", steps.StepData{})},
		out:        &buf,
	}

	require.NoError(t, p.Go(context.Background()))
	rendered := buf.String()
	assert.Contains(t, rendered, "TEST")
	assert.Contains(t, rendered, "/smoke")
	assert.Contains(t, rendered, "pass")
	assert.Contains(t, rendered, "/full/journal")
	assert.Contains(t, rendered, "00:01:30")
	assert.Contains(t, rendered, "timeout")
}

func TestDisplaySkipsEmptyResults(t *testing.T) {
	plan := &fakePlan{name: "/plans/basic"}
	var buf bytes.Buffer
	p := &displayPlugin{
		pluginBase: pluginBase{BasePlugin: steps.NewBasePlugin(plan, "display", steps.StepData{})},
		out:        &buf,
	}

	require.NoError(t, p.Go(context.Background()))
	assert.Empty(t, buf.String())
}

func TestHTMLReport(t *testing.T) {
	plan := &fakePlan{name: "/plans/basic", execResults: sampleResults()}
	step := newTestStep(t, plan, []steps.StepData{{"how": "html"}})
	require.NoError(t, step.Wake())
	require.NoError(t, step.Go(context.Background()))

	rendered, err := os.ReadFile(step.StateFile(HTMLFilename))
	require.NoError(t, err)
	page := string(rendered)
	assert.Contains(t, page, "<title>Test results for /plans/basic</title>")
	assert.Contains(t, page, `class="pass">PASS<`)
	assert.Contains(t, page, `class="fail">FAIL<`)
	assert.Contains(t, page, "1 test passed and 1 test failed")
	assert.Contains(t, page, "../execute/data/smoke/output.txt")
}

func TestJSONReport(t *testing.T) {
	plan := &fakePlan{name: "/plans/basic", execResults: sampleResults()}
	step := newTestStep(t, plan, []steps.StepData{{"how": "json"}})
	require.NoError(t, step.Wake())
	require.NoError(t, step.Go(context.Background()))

	payload, err := os.ReadFile(step.StateFile(JSONFilename))
	require.NoError(t, err)
	var report jsonReport
	require.NoError(t, json.Unmarshal(payload, &report))

	assert.Equal(t, "/plans/basic", report.Plan)
	assert.Equal(t, 2, report.Total)
	assert.Equal(t, map[string]int{"pass": 1, "fail": 1}, report.Stats)
	require.Len(t, report.Results, 2)
	assert.Equal(t, "/smoke", report.Results[0].Name)
	assert.Equal(t, "pass", report.Results[0].Result)
	assert.Equal(t, "timeout", report.Results[1].Note)
	assert.False(t, report.CreatedAt.IsZero())
}

func TestStepRunsAllConfiguredReports(t *testing.T) {
	plan := &fakePlan{name: "/plans/basic", execResults: sampleResults()}
	step := newTestStep(t, plan, []steps.StepData{
		{"how": "html"},
		{"how": "json"},
	})
	require.NoError(t, step.Wake())
	require.NoError(t, step.Go(context.Background()))

	assert.FileExists(t, step.StateFile(HTMLFilename))
	assert.FileExists(t, step.StateFile(JSONFilename))
	assert.Equal(t, steps.StatusDone, step.Status())
	assert.Equal(t, "1 test passed and 1 test failed", step.Summary())
}

func TestStepRejectsUnknownMethod(t *testing.T) {
	plan := &fakePlan{name: "/plans/basic"}
	step := newTestStep(t, plan, []steps.StepData{{"how": "junit"}})

	err := step.Wake()
	require.Error(t, err)
	var specErr *steps.SpecificationError
	require.ErrorAs(t, err, &specErr)
	assert.Contains(t, err.Error(), "unknown report method 'junit'")
	assert.Contains(t, err.Error(), "display, html, json")
}

func TestDoneStepDoesNotRenderAgain(t *testing.T) {
	workdir := filepath.Join(t.TempDir(), "report")
	plan := &fakePlan{name: "/plans/basic", execResults: sampleResults()}
	step := New(plan, []steps.StepData{{"how": "json"}})
	require.NoError(t, step.InitWorkdir(workdir))
	require.NoError(t, step.Wake())
	require.NoError(t, step.Go(context.Background()))
	require.NoError(t, os.Remove(step.StateFile(JSONFilename)))

	restored := New(plan, nil)
	require.NoError(t, restored.InitWorkdir(workdir))
	var logs bytes.Buffer
	logging.Init(logging.LevelDebug, &logs)
	require.NoError(t, restored.Wake())
	assert.Contains(t, logs.String(), "step is done")
	assert.Equal(t, steps.StatusDone, restored.Status())

	require.NoError(t, restored.Go(context.Background()))
	assert.NoFileExists(t, restored.StateFile(JSONFilename))
}

func TestDryRun(t *testing.T) {
	plan := &fakePlan{name: "/plans/basic", dry: true, execResults: sampleResults()}
	step := newTestStep(t, plan, []steps.StepData{{"how": "json"}})
	require.NoError(t, step.Wake())
	require.NoError(t, step.Go(context.Background()))

	assert.NoFileExists(t, step.StateFile(JSONFilename))
	assert.Equal(t, steps.StatusTodo, step.Status())
}

func TestRequiresNothing(t *testing.T) {
	plan := &fakePlan{name: "/plans/basic"}
	step := newTestStep(t, plan, []steps.StepData{{"how": "display"}, {"how": "html"}})
	require.NoError(t, step.Wake())
	assert.Empty(t, step.Requires())
}

func TestSummaryWithoutResults(t *testing.T) {
	plan := &fakePlan{name: "/plans/basic"}
	step := newTestStep(t, plan, nil)
	require.NoError(t, step.Wake())
	assert.Equal(t, "no results found", step.Summary())
}
