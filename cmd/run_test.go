package cmd

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gauntlet/internal/plan"
)

// writeProject lays out a minimal project with one passing test.
func writeProject(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	files := map[string]string{
		"tests/smoke.yaml": "summary: Smoke check\ntest: echo all good\n",
		"plans/basic.yaml": "summary: Basic checks\ndiscover:\n    how: tree\n    root: tests\n",
	}
	for name, content := range files {
		path := filepath.Join(root, name)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("Failed to create %s: %v", filepath.Dir(path), err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("Failed to write %s: %v", path, err)
		}
	}
	return root
}

// resetRunFlags restores the run command flags to their defaults.
func resetRunFlags() {
	runRoot = "."
	runPlansDir = "plans"
	runPlanFilters = nil
	runID = ""
	runLast = false
	runWorkdirRoot = plan.DefaultRoot
	runDry = false
	runExitFirst = false
	runVerbose = false
	runDebug = false
}

func TestRunCommandFlags(t *testing.T) {
	for _, name := range []string{
		"root", "plans", "plan", "id", "last", "workdir-root",
		"dry", "exit-first", "verbose", "debug",
	} {
		if runCmd.Flags().Lookup(name) == nil {
			t.Errorf("Expected flag --%s to be registered", name)
		}
	}

	flag := runCmd.Flags().Lookup("workdir-root")
	if flag.DefValue != plan.DefaultRoot {
		t.Errorf("Expected workdir-root default %s, got %s", plan.DefaultRoot, flag.DefValue)
	}
}

func TestRunCommandPipeline(t *testing.T) {
	defer resetRunFlags()
	resetRunFlags()
	runRoot = writeProject(t)
	runWorkdirRoot = t.TempDir()

	if err := runRun(runCmd, nil); err != nil {
		t.Fatalf("Expected the pipeline to pass, got %v", err)
	}

	// The run left its state behind.
	marker := filepath.Join(runWorkdirRoot, "last")
	if _, err := os.Stat(marker); err != nil {
		t.Errorf("Expected last run marker at %s: %v", marker, err)
	}
}

func TestRunCommandReportsFailure(t *testing.T) {
	defer resetRunFlags()
	resetRunFlags()

	root := t.TempDir()
	path := filepath.Join(root, "plans", "failing.yaml")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	content := "discover:\n    how: list\n    tests:\n      - name: /broken\n        test: exit 1\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	runRoot = root
	runWorkdirRoot = t.TempDir()

	err := runRun(runCmd, nil)
	if err == nil {
		t.Fatal("Expected an error for a failing test")
	}
	if !strings.Contains(err.Error(), "tests failed") {
		t.Errorf("Expected a failed tests error, got %v", err)
	}
	if got := getExitCode(err); got != ExitCodeError {
		t.Errorf("Expected exit code %d for failed tests, got %d", ExitCodeError, got)
	}
}

func TestRunCommandResumesLastRun(t *testing.T) {
	defer resetRunFlags()
	resetRunFlags()
	runRoot = writeProject(t)
	runWorkdirRoot = t.TempDir()

	if err := runRun(runCmd, nil); err != nil {
		t.Fatalf("First run failed: %v", err)
	}

	runLast = true
	if err := runRun(runCmd, nil); err != nil {
		t.Fatalf("Resumed run failed: %v", err)
	}
}

func TestRunCommandRejectsEmptyFilter(t *testing.T) {
	defer resetRunFlags()
	resetRunFlags()
	runRoot = writeProject(t)
	runWorkdirRoot = t.TempDir()
	runPlanFilters = []string{"no-such-plan"}

	err := runRun(runCmd, nil)
	if err == nil {
		t.Fatal("Expected an error when no plan matches the filter")
	}
	if got := getExitCode(err); got != ExitCodeSpecification {
		t.Errorf("Expected exit code %d, got %d", ExitCodeSpecification, got)
	}
}
