package cmd

import (
	"bytes"
	"strings"
	"testing"
)

func resetPlansFlags() {
	plansRoot = "."
	plansDir = "plans"
	plansDebug = false
}

func TestPlansCommandListsPlans(t *testing.T) {
	defer resetPlansFlags()
	resetPlansFlags()
	plansRoot = writeProject(t)

	var buf bytes.Buffer
	plansCmd.SetOut(&buf)
	defer plansCmd.SetOut(nil)

	if err := runPlans(plansCmd, nil); err != nil {
		t.Fatalf("Listing plans failed: %v", err)
	}

	output := buf.String()
	if !strings.Contains(output, "/basic") {
		t.Errorf("Expected plan '/basic' in output. Got: %q", output)
	}
	if !strings.Contains(output, "Basic checks") {
		t.Errorf("Expected the plan summary in output. Got: %q", output)
	}
}

func TestPlansCommandFiltersByName(t *testing.T) {
	defer resetPlansFlags()
	resetPlansFlags()
	plansRoot = writeProject(t)

	var buf bytes.Buffer
	plansCmd.SetOut(&buf)
	defer plansCmd.SetOut(nil)

	if err := runPlans(plansCmd, []string{"no-such-plan"}); err != nil {
		t.Fatalf("Listing plans failed: %v", err)
	}

	if strings.Contains(buf.String(), "/basic") {
		t.Errorf("Expected the filter to drop '/basic'. Got: %q", buf.String())
	}
}

func TestPlansCommandMissingDirectory(t *testing.T) {
	defer resetPlansFlags()
	resetPlansFlags()
	plansRoot = t.TempDir()

	err := runPlans(plansCmd, nil)
	if err == nil {
		t.Fatal("Expected an error for a missing plans directory")
	}
	if got := getExitCode(err); got != ExitCodeSpecification {
		t.Errorf("Expected exit code %d, got %d", ExitCodeSpecification, got)
	}
}
