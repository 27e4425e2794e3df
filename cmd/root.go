package cmd

import (
	"errors"
	"os"

	"github.com/spf13/cobra"

	"gauntlet/internal/steps"
	"gauntlet/pkg/logging"
)

// Exit codes for CLI commands. Scripts rely on these to tell a broken
// configuration from a broken test run.
const (
	// ExitCodeSuccess indicates successful execution.
	ExitCodeSuccess = 0
	// ExitCodeError indicates a general error, including failed tests.
	ExitCodeError = 1
	// ExitCodeSpecification indicates invalid plan or test metadata.
	ExitCodeSpecification = 2
	// ExitCodeExecution indicates the pipeline could not run the tests.
	ExitCodeExecution = 3
)

// rootCmd represents the base command for the gauntlet application.
// It is the entry point when the application is called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "gauntlet",
	Short: "Run test plans against local and remote guests",
	Long: `gauntlet drives test plans through a fixed pipeline of steps:
discover, provision, prepare, execute, report and finish. Plans and test
metadata are plain YAML files kept next to the code under test. Every run
persists its state, so an interrupted run can be resumed later.`,
	// SilenceUsage prevents Cobra from printing the usage message on errors
	// that are handled by the application.
	SilenceUsage: true,
}

// SetVersion sets the version for the root command.
// This function is typically called from the main package to inject the
// application version at build time.
func SetVersion(v string) {
	rootCmd.Version = v
}

// GetVersion returns the current version of the application.
func GetVersion() string {
	return rootCmd.Version
}

// Execute is the main entry point for the CLI application.
// It initializes and executes the root command, which in turn handles
// subcommands and flags. This function is called by main.main().
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "gauntlet version %s\n" .Version}}`)

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(getExitCode(err))
	}
}

// getExitCode determines the appropriate exit code based on the error type.
// This provides semantic exit codes for scripting and automation.
func getExitCode(err error) int {
	var specErr *steps.SpecificationError
	if errors.As(err, &specErr) {
		return ExitCodeSpecification
	}

	var execErr *steps.ExecuteError
	if errors.As(err, &execErr) {
		return ExitCodeExecution
	}

	return ExitCodeError
}

// initLogging configures the process-wide logger. The pipeline prints its
// own user-facing progress, the logger carries diagnostics only.
func initLogging(debug bool) {
	level := logging.LevelWarn
	if debug {
		level = logging.LevelDebug
	}
	logging.Init(level, os.Stderr)
}

func init() {
	rootCmd.AddCommand(newVersionCmd())
}
