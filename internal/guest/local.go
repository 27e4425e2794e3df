package guest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"

	"gauntlet/pkg/logging"
)

// localGuest runs commands directly on the host through /bin/sh. File
// transfers are no-ops since host and guest share a filesystem.
type localGuest struct {
	name  string
	role  string
	ready bool
}

// NewLocal creates a guest executing on the local machine.
func NewLocal(name, role string) Guest {
	return &localGuest{name: name, role: role}
}

func (g *localGuest) Name() string {
	return g.name
}

func (g *localGuest) Role() string {
	return g.role
}

func (g *localGuest) Ready() bool {
	return g.ready
}

func (g *localGuest) Start(ctx context.Context) error {
	logging.Debug("Guest", "guest '%s' is localhost", g.name)
	g.ready = true
	return nil
}

func (g *localGuest) Stop(ctx context.Context) error {
	g.ready = false
	return nil
}

func (g *localGuest) Run(ctx context.Context, cmd Command) (string, error) {
	runCtx := ctx
	if cmd.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, cmd.Timeout)
		defer cancel()
	}

	proc := exec.CommandContext(runCtx, "/bin/sh", "-c", cmd.Script)
	if cmd.Dir != "" {
		proc.Dir = cmd.Dir
	}
	proc.Env = mergedEnviron(cmd.Env)

	var buf bytes.Buffer
	if cmd.Interactive {
		proc.Stdin = os.Stdin
		proc.Stdout = os.Stdout
		proc.Stderr = os.Stderr
	} else {
		// Join stdout and stderr into a single stream, the order tests
		// produced it in.
		var sink io.Writer = &buf
		if cmd.Output != nil {
			sink = io.MultiWriter(&buf, cmd.Output)
		}
		proc.Stdout = sink
		proc.Stderr = sink
	}

	logging.Debug("Guest", "run on '%s': %s", g.name, cmd.Script)
	err := proc.Run()
	output := buf.String()
	if err != nil {
		if runCtx.Err() == context.DeadlineExceeded {
			return output, &RunError{Cmd: cmd.Script, ExitCode: ProcessTimeout, Output: output}
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return output, &RunError{Cmd: cmd.Script, ExitCode: exitErr.ExitCode(), Output: output}
		}
		return output, fmt.Errorf("failed to run command on guest '%s': %w", g.name, err)
	}
	return output, nil
}

func (g *localGuest) Push(ctx context.Context, source, destination string, opts PushOptions) error {
	// Same filesystem, nothing to transfer.
	logging.Debug("Guest", "push to '%s' skipped, localhost", g.name)
	return nil
}

func (g *localGuest) Pull(ctx context.Context, source string, opts PullOptions) error {
	logging.Debug("Guest", "pull from '%s' skipped, localhost", g.name)
	return nil
}

func (g *localGuest) Reboot(ctx context.Context, command string) error {
	return fmt.Errorf("guest '%s' is localhost and cannot be rebooted", g.name)
}

func (g *localGuest) Localhost() bool {
	return true
}

// mergedEnviron layers extra variables over the process environment.
func mergedEnviron(extra map[string]string) []string {
	env := os.Environ()
	for key, value := range extra {
		env = append(env, fmt.Sprintf("%s=%s", key, value))
	}
	return env
}
