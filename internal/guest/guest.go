// Package guest abstracts the environments tests run on. A guest accepts
// commands and file transfers; the provision step decides which concrete
// guest implementation backs a plan.
package guest

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"time"
)

// ProcessTimeout is the exit code reported for a command that was killed
// because its duration limit elapsed, matching the timeout(1) convention.
const ProcessTimeout = 124

// Command describes one command execution on a guest.
type Command struct {
	// Script is the shell snippet to run.
	Script string
	// Dir is the working directory on the guest, empty for the default.
	Dir string
	// Env holds additional environment variables for this command.
	Env map[string]string
	// Timeout kills the command after the given duration. Zero means no
	// limit.
	Timeout time.Duration
	// Interactive connects the command to the controlling terminal instead
	// of capturing output.
	Interactive bool
	// Output, when set, receives the combined stdout and stderr stream as
	// it is produced.
	Output io.Writer
}

// PushOptions tweaks file transfers to a guest.
type PushOptions struct {
	// Mode overrides the permission bits of the transferred file. Zero
	// keeps the source permissions.
	Mode fs.FileMode
}

// PullOptions tweaks file transfers from a guest.
type PullOptions struct {
	// Exclude lists glob patterns to leave out of the transfer.
	Exclude []string
}

// RunError reports a command that started on a guest but exited with a
// non-zero code, carrying the code and the captured output.
type RunError struct {
	Cmd      string
	ExitCode int
	Output   string
}

func (e *RunError) Error() string {
	return fmt.Sprintf("command '%s' exited with code %d", e.Cmd, e.ExitCode)
}

// Guest is the capability surface the steps use to interact with a test
// environment. Implementations must be safe for sequential use from the
// pipeline; they are not required to support concurrent commands.
type Guest interface {
	// Name identifies the guest within its plan.
	Name() string

	// Role is the multihost role this guest fills, empty when unused.
	Role() string

	// Ready reports whether the guest can accept commands.
	Ready() bool

	// Start brings the guest up. It must be called before any command runs.
	Start(ctx context.Context) error

	// Stop releases the guest. Commands must not run afterwards.
	Stop(ctx context.Context) error

	// Run executes a command on the guest and returns its combined output.
	// A command that exits with a non-zero code returns a *RunError; a
	// command killed by its timeout returns a *RunError with the
	// ProcessTimeout code.
	Run(ctx context.Context, cmd Command) (string, error)

	// Push transfers a file or directory to the guest.
	Push(ctx context.Context, source, destination string, opts PushOptions) error

	// Pull transfers a file or directory from the guest back to the host.
	Pull(ctx context.Context, source string, opts PullOptions) error

	// Reboot restarts the guest, optionally with a custom command, and
	// waits until it is ready again.
	Reboot(ctx context.Context, command string) error

	// Localhost reports whether the guest shares the filesystem with the
	// process, which lets callers skip transfers and helper installation.
	Localhost() bool
}
