package cmd

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"gauntlet/internal/plan"
	"gauntlet/internal/steps"
	"gauntlet/pkg/logging"
)

var (
	statusWorkdirRoot string
	statusID          string
	statusWatch       bool
	statusDebug       bool
)

// statusWatchInterval is the fallback refresh period while watching. New
// directories appear as the run progresses, the periodic refresh catches
// changes in ones not watched yet.
const statusWatchInterval = 2 * time.Second

// statusCmd shows the persisted step states of a run.
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the step status of a run",
	Long: `Shows which pipeline steps of a run have completed, per plan, together
with the result summary of the execute step. The state is read from the run
workdir, the project the run came from is not needed.

Without --id the most recent run is shown. With --watch the table is
re-rendered whenever the run workdir changes, until the run completes.

Examples:
  gauntlet status
  gauntlet status --id a1b2c3d4
  gauntlet status --watch`,
	Args: cobra.NoArgs,
	RunE: runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	initLogging(statusDebug)

	status, err := plan.ReadStatus(statusWorkdirRoot, statusID)
	if err != nil {
		return err
	}
	renderStatus(cmd, status)

	if !statusWatch || status.Finished() {
		return nil
	}
	return watchStatus(cmd, status)
}

// renderStatus prints one status table: a row per plan, a column per step.
func renderStatus(cmd *cobra.Command, status *plan.RunStatus) {
	fmt.Fprintln(cmd.OutOrStdout(), text.Faint.Sprint(status.Workdir))

	tw := table.NewWriter()
	tw.SetOutputMirror(cmd.OutOrStdout())
	tw.SetStyle(table.StyleRounded)

	header := table.Row{text.FgHiCyan.Sprint("PLAN")}
	for _, name := range plan.StepNames() {
		header = append(header, text.FgHiCyan.Sprint(strings.ToUpper(name)))
	}
	header = append(header, text.FgHiCyan.Sprint("RESULTS"))
	tw.AppendHeader(header)

	for _, p := range status.Plans {
		row := table.Row{p.Name}
		for _, name := range plan.StepNames() {
			row = append(row, statusCell(p.Steps[name]))
		}
		row = append(row, p.Summary)
		tw.AppendRow(row)
	}
	tw.Render()
}

func statusCell(status steps.Status) string {
	switch status {
	case steps.StatusDone:
		return text.FgGreen.Sprint("done")
	case steps.StatusTodo:
		return text.FgYellow.Sprint("todo")
	default:
		return "-"
	}
}

// watchStatus re-renders the table on run workdir changes until every plan
// completed its finish step. When fsnotify is not available the watch
// degrades to plain polling.
func watchStatus(cmd *cobra.Command, status *plan.RunStatus) error {
	var eventsCh <-chan fsnotify.Event
	var errorsCh <-chan error

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		logging.Warn("Status", "fsnotify not available, falling back to polling: %v", err)
		watcher = nil
	} else {
		defer watcher.Close()
		eventsCh = watcher.Events
		errorsCh = watcher.Errors
	}

	watched := make(map[string]bool)
	addDirs := func(root string) {
		if watcher == nil {
			return
		}
		_ = filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
			if err != nil || !entry.IsDir() || watched[path] {
				return nil
			}
			if watcher.Add(path) == nil {
				watched[path] = true
			}
			return nil
		})
	}
	addDirs(status.Workdir)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event := <-eventsCh:
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove) == 0 {
				continue
			}
			// Coalesce bursts, a finishing step touches several files.
			time.Sleep(200 * time.Millisecond)
			drainEvents(eventsCh)
		case err := <-errorsCh:
			logging.Warn("Status", "watch error: %v", err)
			continue
		case <-time.After(statusWatchInterval):
		}

		refreshed, err := plan.ReadStatus(statusWorkdirRoot, status.ID)
		if err != nil {
			return err
		}
		addDirs(refreshed.Workdir)

		fmt.Fprintln(cmd.OutOrStdout())
		renderStatus(cmd, refreshed)
		if refreshed.Finished() {
			return nil
		}
	}
}

func drainEvents(events <-chan fsnotify.Event) {
	for {
		select {
		case <-events:
		default:
			return
		}
	}
}

func init() {
	rootCmd.AddCommand(statusCmd)

	statusCmd.Flags().StringVar(&statusWorkdirRoot, "workdir-root", plan.DefaultRoot, "Directory where run workdirs are created")
	statusCmd.Flags().StringVar(&statusID, "id", "", "Show the run with the given id instead of the most recent one")
	statusCmd.Flags().BoolVar(&statusWatch, "watch", false, "Keep re-rendering the table until the run completes")
	statusCmd.Flags().BoolVar(&statusDebug, "debug", false, "Enable debug logging")
}
