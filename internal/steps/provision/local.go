package provision

import (
	"context"

	"gauntlet/internal/guest"
	"gauntlet/internal/steps"
)

// localPlugin provisions the machine gauntlet itself runs on. There is
// nothing to bring up, which makes it the default and the fastest method.
type localPlugin struct {
	steps.BasePlugin
	g guest.Guest
}

func init() {
	Register(steps.Method[Plugin]{
		Name:    "local",
		Summary: "Use the localhost as the guest",
		Order:   50,
		New: func(plan steps.Plan, data steps.StepData) (Plugin, error) {
			return &localPlugin{BasePlugin: steps.NewBasePlugin(plan, "local", data)}, nil
		},
	})
}

func (p *localPlugin) Go(ctx context.Context) error {
	role, _ := p.Data().String("role")
	p.g = guest.NewLocal(p.Name(), role)
	if err := p.g.Start(ctx); err != nil {
		return err
	}
	p.Verbose("how", "local")
	p.Info("guest", p.g.Name())
	return nil
}

func (p *localPlugin) Guest() guest.Guest {
	return p.g
}

func (p *localPlugin) Restore(ctx context.Context, record GuestRecord) error {
	p.g = guest.NewLocal(record.Name, record.Role)
	return p.g.Start(ctx)
}
