package provision

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gauntlet/internal/guest"
	"gauntlet/internal/results"
	"gauntlet/internal/steps"
	"gauntlet/internal/tests"
)

type fakePlan struct {
	dry bool
}

func (p *fakePlan) Name() string { return "/plans/provision-test" }

func (p *fakePlan) Environment() map[string]string { return nil }

func (p *fakePlan) Workdir() string { return "" }

func (p *fakePlan) Verbose() bool { return false }

func (p *fakePlan) Dry() bool { return p.dry }

func (p *fakePlan) ExitFirst() bool { return false }

func (p *fakePlan) Resumed() bool { return false }

func (p *fakePlan) SourceDir() string { return "" }

func (p *fakePlan) Guests() []guest.Guest { return nil }

func (p *fakePlan) Tests() []tests.Test { return nil }

func (p *fakePlan) DiscoverWorkdir() string { return "" }

func (p *fakePlan) ExecuteResults() []results.Result { return nil }

func (p *fakePlan) Requires() []string { return nil }

func newStep(t *testing.T, plan steps.Plan, data []steps.StepData) *Step {
	t.Helper()
	step := New(plan, data)
	require.NoError(t, step.InitWorkdir(filepath.Join(t.TempDir(), "provision")))
	return step
}

func TestLocalMethodProvidesReadyGuest(t *testing.T) {
	step := newStep(t, &fakePlan{}, []steps.StepData{{"how": "local"}})

	require.NoError(t, step.Wake())
	require.NoError(t, step.Go(context.Background()))

	assert.Equal(t, steps.StatusDone, step.Status())
	guests := step.Guests()
	require.Len(t, guests, 1)
	assert.Equal(t, "local", guests[0].Name())
	assert.True(t, guests[0].Ready())
	assert.True(t, guests[0].Localhost())
	assert.Equal(t, "1 guest provisioned", step.Summary())

	assert.FileExists(t, step.StateFile("guests.yaml"))
}

func TestMultipleGuestsKeepPhaseOrder(t *testing.T) {
	step := newStep(t, &fakePlan{}, []steps.StepData{
		{"how": "local", "name": "server", "role": "server"},
		{"how": "local", "name": "client", "role": "client"},
	})

	require.NoError(t, step.Wake())
	require.NoError(t, step.Go(context.Background()))

	guests := step.Guests()
	require.Len(t, guests, 2)
	assert.Equal(t, "server", guests[0].Name())
	assert.Equal(t, "server", guests[0].Role())
	assert.Equal(t, "client", guests[1].Name())
	assert.Equal(t, "client", guests[1].Role())
	assert.Equal(t, "2 guests provisioned", step.Summary())
}

func TestDryRunProvisionsNothing(t *testing.T) {
	step := newStep(t, &fakePlan{dry: true}, []steps.StepData{{"how": "local"}})

	require.NoError(t, step.Wake())
	require.NoError(t, step.Go(context.Background()))

	assert.Equal(t, steps.StatusTodo, step.Status())
	assert.Empty(t, step.Guests())
}

func TestUnknownMethodFailsWake(t *testing.T) {
	step := newStep(t, &fakePlan{}, []steps.StepData{{"how": "openstack"}})

	err := step.Wake()
	require.Error(t, err)

	var specErr *steps.SpecificationError
	require.True(t, errors.As(err, &specErr))
	assert.Contains(t, err.Error(), "openstack")
	assert.Contains(t, err.Error(), "local")
}

func TestDoneStepReconnectsGuests(t *testing.T) {
	workdir := filepath.Join(t.TempDir(), "provision")
	data := []steps.StepData{{"how": "local", "name": "primary", "role": "server"}}

	first := New(&fakePlan{}, data)
	require.NoError(t, first.InitWorkdir(workdir))
	require.NoError(t, first.Wake())
	require.NoError(t, first.Go(context.Background()))
	require.Equal(t, steps.StatusDone, first.Status())

	second := New(&fakePlan{}, data)
	require.NoError(t, second.InitWorkdir(workdir))
	require.NoError(t, second.Wake())

	assert.Equal(t, steps.StatusDone, second.Status())
	guests := second.Guests()
	require.Len(t, guests, 1)
	assert.Equal(t, "primary", guests[0].Name())
	assert.Equal(t, "server", guests[0].Role())
	assert.True(t, guests[0].Ready())
}

func TestStopShutsDownGuests(t *testing.T) {
	step := newStep(t, &fakePlan{}, []steps.StepData{{"how": "local"}})

	require.NoError(t, step.Wake())
	require.NoError(t, step.Go(context.Background()))
	require.True(t, step.Guests()[0].Ready())

	require.NoError(t, step.Stop(context.Background()))
	assert.False(t, step.Guests()[0].Ready())
}
