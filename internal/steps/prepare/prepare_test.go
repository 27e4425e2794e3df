package prepare

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gauntlet/internal/guest"
	"gauntlet/internal/results"
	"gauntlet/internal/steps"
	"gauntlet/internal/tests"
)

// mockGuest records the commands it receives and simulates the tools
// available on the guest.
type mockGuest struct {
	name     string
	role     string
	tools    map[string]bool
	failing  string
	commands []string
}

func (g *mockGuest) Name() string { return g.name }

func (g *mockGuest) Role() string { return g.role }

func (g *mockGuest) Ready() bool { return true }

func (g *mockGuest) Start(ctx context.Context) error { return nil }

func (g *mockGuest) Stop(ctx context.Context) error { return nil }

func (g *mockGuest) Run(ctx context.Context, cmd guest.Command) (string, error) {
	g.commands = append(g.commands, cmd.Script)
	if tool, ok := strings.CutPrefix(cmd.Script, "command -v "); ok {
		if g.tools[tool] {
			return "/usr/bin/" + tool, nil
		}
		return "", &guest.RunError{Cmd: cmd.Script, ExitCode: 1}
	}
	if g.failing != "" && strings.Contains(cmd.Script, g.failing) {
		return "", &guest.RunError{Cmd: cmd.Script, ExitCode: 1}
	}
	return "", nil
}

func (g *mockGuest) Push(ctx context.Context, source, destination string, opts guest.PushOptions) error {
	return nil
}

func (g *mockGuest) Pull(ctx context.Context, source string, opts guest.PullOptions) error {
	return nil
}

func (g *mockGuest) Reboot(ctx context.Context, command string) error { return nil }

func (g *mockGuest) Localhost() bool { return false }

type fakePlan struct {
	guests   []guest.Guest
	requires []string
}

func (p *fakePlan) Name() string { return "/plans/prepare-test" }

func (p *fakePlan) Environment() map[string]string { return map[string]string{"STAGE": "test"} }

func (p *fakePlan) Workdir() string { return "" }

func (p *fakePlan) Verbose() bool { return false }

func (p *fakePlan) Dry() bool { return false }

func (p *fakePlan) ExitFirst() bool { return false }

func (p *fakePlan) Resumed() bool { return false }

func (p *fakePlan) SourceDir() string { return "" }

func (p *fakePlan) Guests() []guest.Guest { return p.guests }

func (p *fakePlan) Tests() []tests.Test { return nil }

func (p *fakePlan) DiscoverWorkdir() string { return "" }

func (p *fakePlan) ExecuteResults() []results.Result { return nil }

func (p *fakePlan) Requires() []string { return p.requires }

func newStep(t *testing.T, plan steps.Plan, data []steps.StepData) *Step {
	t.Helper()
	step := New(plan, data)
	require.NoError(t, step.InitWorkdir(filepath.Join(t.TempDir(), "prepare")))
	require.NoError(t, step.Wake())
	return step
}

func TestShellScriptsRunOnEveryGuest(t *testing.T) {
	first := &mockGuest{name: "first"}
	second := &mockGuest{name: "second"}
	plan := &fakePlan{guests: []guest.Guest{first, second}}

	step := newStep(t, plan, []steps.StepData{{
		"how":    "shell",
		"script": []interface{}{"echo one", "echo two"},
	}})

	require.NoError(t, step.Go(context.Background()))

	assert.Equal(t, []string{"echo one", "echo two"}, first.commands)
	assert.Equal(t, []string{"echo one", "echo two"}, second.commands)
	assert.Equal(t, steps.StatusDone, step.Status())
	assert.Equal(t, "2 preparations applied", step.Summary())
}

func TestWhereSelectorLimitsGuests(t *testing.T) {
	server := &mockGuest{name: "server-1", role: "server"}
	client := &mockGuest{name: "client-1", role: "client"}
	plan := &fakePlan{guests: []guest.Guest{server, client}}

	step := newStep(t, plan, []steps.StepData{{
		"how":    "shell",
		"where":  "server",
		"script": "systemctl start httpd",
	}})

	require.NoError(t, step.Go(context.Background()))

	assert.Equal(t, []string{"systemctl start httpd"}, server.commands)
	assert.Empty(t, client.commands)
	assert.Equal(t, "1 preparation applied", step.Summary())
}

func TestRequiresSynthesizeInstallPhase(t *testing.T) {
	g := &mockGuest{name: "guest", tools: map[string]bool{"dnf": true}}
	plan := &fakePlan{guests: []guest.Guest{g}, requires: []string{"beakerlib"}}

	step := newStep(t, plan, nil)
	require.NoError(t, step.Go(context.Background()))

	require.NotEmpty(t, g.commands)
	assert.Equal(t, "dnf install -y beakerlib", g.commands[len(g.commands)-1])
	assert.Equal(t, "1 preparation applied", step.Summary())
}

func TestInstallFallsBackThroughManagers(t *testing.T) {
	g := &mockGuest{name: "debianish", tools: map[string]bool{"apt-get": true}}
	plan := &fakePlan{guests: []guest.Guest{g}}

	step := newStep(t, plan, []steps.StepData{{
		"how":     "install",
		"package": []interface{}{"make", "gcc"},
	}})

	require.NoError(t, step.Go(context.Background()))

	assert.Contains(t, g.commands, "command -v dnf")
	assert.Contains(t, g.commands, "command -v yum")
	assert.Contains(t, g.commands, "command -v apt-get")
	assert.Equal(t, "apt-get install -y make gcc", g.commands[len(g.commands)-1])
}

func TestInstallFailsWithoutPackageManager(t *testing.T) {
	g := &mockGuest{name: "bare"}
	plan := &fakePlan{guests: []guest.Guest{g}}

	step := newStep(t, plan, []steps.StepData{{
		"how":     "install",
		"package": "make",
	}})

	err := step.Go(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no supported package manager")
	assert.NotEqual(t, steps.StatusDone, step.Status())
}

func TestFailingScriptStopsTheStep(t *testing.T) {
	g := &mockGuest{name: "guest", failing: "exit 1"}
	plan := &fakePlan{guests: []guest.Guest{g}}

	step := newStep(t, plan, []steps.StepData{{
		"how":    "shell",
		"script": []interface{}{"echo fine", "exit 1", "echo never"},
	}})

	err := step.Go(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "guest")
	assert.Equal(t, []string{"echo fine", "exit 1"}, g.commands)
	assert.NotEqual(t, steps.StatusDone, step.Status())
}

func TestEmptyPrepareCompletes(t *testing.T) {
	plan := &fakePlan{guests: []guest.Guest{&mockGuest{name: "guest"}}}

	step := newStep(t, plan, nil)
	require.NoError(t, step.Go(context.Background()))

	assert.Equal(t, steps.StatusDone, step.Status())
	assert.Equal(t, "0 preparations applied", step.Summary())
}
