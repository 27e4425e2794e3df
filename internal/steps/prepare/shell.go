package prepare

import (
	"context"
	"fmt"

	"gauntlet/internal/guest"
	"gauntlet/internal/steps"
	"gauntlet/pkg/logging"
)

// shellPlugin runs configured scripts on the guest:
//
//	prepare:
//	    how: shell
//	    script:
//	      - systemctl start libvirtd
//	      - mkdir -p /var/tmp/scratch
type shellPlugin struct {
	steps.BasePlugin
}

func init() {
	Register(steps.Method[Plugin]{
		Name:    "shell",
		Summary: "Run shell scripts on the guest",
		Order:   50,
		New: func(plan steps.Plan, data steps.StepData) (Plugin, error) {
			return &shellPlugin{BasePlugin: steps.NewBasePlugin(plan, "shell", data)}, nil
		},
	})
}

func (p *shellPlugin) Go(ctx context.Context, g guest.Guest) error {
	scripts := p.Data().StringList("script")
	if len(scripts) == 0 {
		logging.Debug("Prepare", "phase '%s' has no scripts", p.Name())
		return nil
	}
	for _, script := range scripts {
		p.Verbose("script", script)
		if _, err := g.Run(ctx, guest.Command{
			Script: script,
			Env:    p.Plan().Environment(),
		}); err != nil {
			return fmt.Errorf("preparation '%s' failed on guest '%s': %w", p.Name(), g.Name(), err)
		}
	}
	return nil
}
