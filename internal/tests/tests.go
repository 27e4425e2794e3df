// Package tests defines the test metadata record produced by the discover
// step and consumed by the rest of the pipeline.
package tests

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

const (
	// DefaultFramework classifies results of tests that do not pick one.
	DefaultFramework = "shell"
	// FrameworkBeakerlib marks tests reporting through a beakerlib journal.
	FrameworkBeakerlib = "beakerlib"
	// DefaultDuration limits tests that do not declare their own.
	DefaultDuration = "5m"
)

// Test is one discovered test. The declarative fields come from metadata;
// the trailing state fields are filled in during execution.
type Test struct {
	// Name uniquely identifies the test within a plan, rooted with a slash.
	Name string `yaml:"name"`
	// Summary is a short human-readable description.
	Summary string `yaml:"summary,omitempty"`
	// Test is the command executed on the guest.
	Test string `yaml:"test"`
	// Path is the directory the command runs in, relative to the tests root.
	Path string `yaml:"path,omitempty"`
	// Framework selects result classification, shell or beakerlib.
	Framework string `yaml:"framework,omitempty"`
	// Duration limits execution time, for example "5m" or "1h 30m".
	Duration string `yaml:"duration,omitempty"`
	// Environment holds additional variables for this test.
	Environment map[string]string `yaml:"environment,omitempty"`
	// Require lists packages the test needs installed on the guest.
	Require []string `yaml:"require,omitempty"`
	// Result is the interpretation directive: respect, xfail or a fixed
	// outcome.
	Result string `yaml:"result,omitempty"`

	// ReturnCode is the exit code of the last execution attempt.
	ReturnCode int `yaml:"-"`
	// RealDuration is the measured wall-clock time, formatted hh:mm:ss.
	RealDuration string `yaml:"-"`
	// RebootCount tracks how many reboots the test requested so far.
	RebootCount int `yaml:"-"`
}

// Normalize fills in defaults and validates the record. The name gains a
// leading slash when missing so tests sort and nest predictably.
func (t *Test) Normalize() error {
	if t.Name == "" {
		return fmt.Errorf("test is missing a name")
	}
	if !strings.HasPrefix(t.Name, "/") {
		t.Name = "/" + t.Name
	}
	if t.Test == "" {
		return fmt.Errorf("test '%s' is missing the test command", t.Name)
	}
	// The framework stays empty here: a test without one inherits the
	// execute phase default at classification time.
	if t.Duration == "" {
		t.Duration = DefaultDuration
	}
	if _, err := ParseDuration(t.Duration); err != nil {
		return fmt.Errorf("test '%s' has an invalid duration: %w", t.Name, err)
	}
	return nil
}

var durationToken = regexp.MustCompile(`^(\d+)([smhd]?)$`)

// ParseDuration understands sloppy duration specifications: a bare number of
// seconds, single units like "5m" or "2h", and space-separated combinations
// like "1h 30m".
func ParseDuration(spec string) (time.Duration, error) {
	fields := strings.Fields(spec)
	if len(fields) == 0 {
		return 0, fmt.Errorf("empty duration")
	}
	var total time.Duration
	for _, field := range fields {
		match := durationToken.FindStringSubmatch(field)
		if match == nil {
			return 0, fmt.Errorf("invalid duration '%s'", spec)
		}
		var amount int
		fmt.Sscanf(match[1], "%d", &amount)
		switch match[2] {
		case "", "s":
			total += time.Duration(amount) * time.Second
		case "m":
			total += time.Duration(amount) * time.Minute
		case "h":
			total += time.Duration(amount) * time.Hour
		case "d":
			total += time.Duration(amount) * 24 * time.Hour
		}
	}
	return total, nil
}
