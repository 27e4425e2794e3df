package finish

import (
	"context"
	"fmt"

	"gauntlet/internal/guest"
	"gauntlet/internal/steps"
)

func init() {
	Register(steps.Method[Plugin]{
		Name:    "shell",
		Summary: "Run shell commands to clean up after testing",
		Order:   50,
		New: func(plan steps.Plan, data steps.StepData) (Plugin, error) {
			return &shellPlugin{BasePlugin: steps.NewBasePlugin(plan, "shell", data)}, nil
		},
	})
}

// shellPlugin runs the configured cleanup scripts on a guest.
type shellPlugin struct {
	steps.BasePlugin
}

func (p *shellPlugin) Go(ctx context.Context, g guest.Guest) error {
	for _, script := range p.Data().StringList("script") {
		p.Verbose("cmd", script)
		_, err := g.Run(ctx, guest.Command{
			Script: script,
			Env:    p.Plan().Environment(),
		})
		if err != nil {
			return fmt.Errorf("cleanup task '%s' failed on guest '%s': %w",
				p.Name(), g.Name(), err)
		}
	}
	return nil
}
