package cmd

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"gauntlet/internal/plan"
	"gauntlet/internal/steps"
)

// runRoot is the project directory holding the plans and test metadata.
var runRoot string

// runPlansDir is the subdirectory of the project root containing the plans.
var runPlansDir string

// runPlanFilters narrows the run to plans whose name matches one of the
// given substrings.
var runPlanFilters []string

// runID resumes the run with the given id instead of creating a new one.
var runID string

// runLast resumes the most recent run.
var runLast bool

// runWorkdirRoot is where run workdirs are created.
var runWorkdirRoot string

// runDry only reports what the pipeline would do.
var runDry bool

// runExitFirst stops execution after the first failing test.
var runExitFirst bool

// runVerbose enables detailed step output.
var runVerbose bool

// runDebug enables debug logging.
var runDebug bool

// runCmd defines the run command structure. This is the main command of
// gauntlet, it drives every plan through the step pipeline.
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run all plans through the step pipeline",
	Long: `Runs every plan found in the plans directory through the six pipeline
steps: discover, provision, prepare, execute, report and finish.

Each run gets a workdir under the workdir root (default /var/tmp/gauntlet)
holding the complete run state. A run that was interrupted, or that left
failed tests behind, can be picked up again:

  gauntlet run --last        resume the most recent run
  gauntlet run --id a1b2c3d4 resume a specific run

Resumed runs skip the steps that already completed and reconnect to the
guests recorded in the run workdir.

Exit codes:
  0 all tests passed
  1 tests failed or a general error occurred
  2 the plans or the test metadata are invalid
  3 the pipeline could not run the tests`,
	Args: cobra.NoArgs,
	RunE: runRun,
}

// runRun is the main entry point for the run command.
func runRun(cmd *cobra.Command, args []string) error {
	initLogging(runDebug)

	options := plan.Options{
		Verbose:   runVerbose,
		Dry:       runDry,
		ExitFirst: runExitFirst,
	}

	var r *plan.Run
	var err error
	if runLast || runID != "" {
		r, err = plan.Resume(runWorkdirRoot, runID, options)
	} else {
		sourceDir, absErr := filepath.Abs(runRoot)
		if absErr != nil {
			return absErr
		}
		r, err = plan.NewRun(runWorkdirRoot, filepath.Join(sourceDir, runPlansDir), sourceDir, options)
	}
	if err != nil {
		return err
	}

	r.FilterPlans(runPlanFilters)
	if len(r.Plans()) == 0 {
		return steps.NewSpecificationError("no plans match the given filter")
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if err := r.Go(ctx); err != nil {
		return err
	}

	if r.Failed() {
		return fmt.Errorf("some tests failed, check the report for details")
	}
	return nil
}

// init registers the run command and its flags with the root command.
func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVar(&runRoot, "root", ".", "Project root holding plans and test metadata")
	runCmd.Flags().StringVar(&runPlansDir, "plans", "plans", "Plans directory below the project root")
	runCmd.Flags().StringArrayVarP(&runPlanFilters, "plan", "p", nil, "Only run plans matching the given name (repeatable)")
	runCmd.Flags().StringVar(&runID, "id", "", "Resume the run with the given id")
	runCmd.Flags().BoolVar(&runLast, "last", false, "Resume the most recent run")
	runCmd.Flags().StringVar(&runWorkdirRoot, "workdir-root", plan.DefaultRoot, "Directory where run workdirs are created")
	runCmd.Flags().BoolVar(&runDry, "dry", false, "Only report what the pipeline would do")
	runCmd.Flags().BoolVar(&runExitFirst, "exit-first", false, "Stop execution after the first failing test")
	runCmd.Flags().BoolVarP(&runVerbose, "verbose", "v", false, "Enable detailed step output")
	runCmd.Flags().BoolVar(&runDebug, "debug", false, "Enable debug logging")
}
