// Package logging provides a structured logging system for gauntlet with
// unified log handling and level filtering.
//
// This package implements a logging system built on Go's standard slog package,
// providing consistent logging behavior with structured output and level
// filtering. Diagnostic logs are kept separate from the user-facing run output
// that the step pipeline prints to stdout.
//
// # Log Levels
//   - **Debug**: Detailed information for debugging and development
//   - **Info**: General informational messages about application operation
//   - **Warn**: Warning messages that indicate potential issues
//   - **Error**: Error messages for failures and exceptional conditions
//
// # Usage
//
//	import "gauntlet/pkg/logging"
//
//	// Initialize with Info level logging to stderr
//	logging.Init(logging.LevelInfo, os.Stderr)
//
//	// Log messages
//	logging.Info("Plan", "running plan %s", plan.Name())
//	logging.Debug("Execute", "woke up phase %s", phase.Name())
//	logging.Warn("Discover", "no tests found under %s", root)
//	logging.Error("Provision", err, "failed to start guest %s", guest.Name())
//
// # Subsystem Organization
//
// Logs are organized by subsystem to enable filtering and categorization:
//
//   - **Run**: run directory management and resume handling
//   - **Plan**: plan loading and pipeline sequencing
//   - **Discover**, **Provision**, **Prepare**, **Execute**, **Report**,
//     **Finish**: the individual pipeline steps
//   - **Guest**: guest command execution and file transfer
//   - **Status**: the run status display and its filesystem watch
//
// # Thread Safety
//
// The logging system is fully thread-safe: concurrent logging from multiple
// goroutines is safe and level filtering happens at the handler.
package logging
