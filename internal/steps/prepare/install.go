package prepare

import (
	"context"
	"fmt"
	"strings"

	"gauntlet/internal/guest"
	"gauntlet/internal/steps"
	"gauntlet/pkg/logging"
)

// managers lists supported package managers in detection order.
var managers = []string{"dnf", "yum", "apt-get"}

// installPlugin installs packages with whatever package manager the guest
// offers:
//
//	prepare:
//	    how: install
//	    package: [make, gcc]
type installPlugin struct {
	steps.BasePlugin
}

func init() {
	Register(steps.Method[Plugin]{
		Name:    "install",
		Summary: "Install packages on the guest",
		Order:   70,
		New: func(plan steps.Plan, data steps.StepData) (Plugin, error) {
			return &installPlugin{BasePlugin: steps.NewBasePlugin(plan, "install", data)}, nil
		},
	})
}

func (p *installPlugin) Go(ctx context.Context, g guest.Guest) error {
	packages := p.Data().StringList("package")
	if len(packages) == 0 {
		logging.Debug("Prepare", "phase '%s' has no packages to install", p.Name())
		return nil
	}

	manager, err := p.detectManager(ctx, g)
	if err != nil {
		return err
	}

	p.Info("install", strings.Join(packages, " "))
	command := fmt.Sprintf("%s install -y %s", manager, strings.Join(packages, " "))
	if _, err := g.Run(ctx, guest.Command{Script: command}); err != nil {
		return fmt.Errorf("failed to install packages on guest '%s': %w", g.Name(), err)
	}
	return nil
}

// detectManager probes the guest for a known package manager.
func (p *installPlugin) detectManager(ctx context.Context, g guest.Guest) (string, error) {
	for _, manager := range managers {
		if _, err := g.Run(ctx, guest.Command{Script: "command -v " + manager}); err == nil {
			logging.Debug("Prepare", "guest '%s' uses package manager '%s'", g.Name(), manager)
			return manager, nil
		}
	}
	return "", fmt.Errorf("no supported package manager found on guest '%s'", g.Name())
}
