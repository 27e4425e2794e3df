package execute

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gauntlet/internal/guest"
	"gauntlet/internal/results"
	"gauntlet/internal/steps"
	"gauntlet/internal/tests"
	"gauntlet/pkg/logging"
)

// rebootRequestFilename marks a pending reboot inside the test data dir.
const rebootRequestFilename = "reboot_request"

func init() {
	Register(steps.Method[Plugin]{
		Name:    "gauntlet",
		Summary: "Run tests on the guest using the internal executor",
		Order:   50,
		New: func(plan steps.Plan, data steps.StepData) (Plugin, error) {
			return &gauntletPlugin{PluginBase: NewPluginBase(plan, "gauntlet", data)}, nil
		},
	})
}

// gauntletPlugin runs each test in its own shell on the guest, captures
// the combined output and classifies the result by the test framework.
type gauntletPlugin struct {
	PluginBase
	results []results.Result
}

// Go runs the full test sequence on one guest.
func (p *gauntletPlugin) Go(ctx context.Context, g guest.Guest) error {
	p.results = nil
	p.Verbose("exit-first", strconv.FormatBool(p.Plan().ExitFirst()))

	prepared, err := p.PrepareTests()
	if err != nil {
		return err
	}
	if err := p.PrepareScripts(ctx, g); err != nil {
		return err
	}
	// The guest runs the tests out of the discovered sources.
	sources := p.Plan().DiscoverWorkdir()
	if err := g.Push(ctx, sources, sources, guest.PushOptions{}); err != nil {
		return fmt.Errorf("failed to push test sources to guest '%s': %w", g.Name(), err)
	}

	verbose := p.Plan().Verbose()
	indicator := newProgress(verbose)
	defer indicator.stop()

	index := 0
	for index < len(prepared) {
		test := &prepared[index]
		indicator.update(index+1, len(prepared), test.Name)
		if verbose {
			p.Info("test", test.Name)
		}

		if err := p.executeTest(ctx, g, test); err != nil {
			return err
		}
		rebooted, err := p.handleReboot(ctx, g, test)
		if err != nil {
			return err
		}
		if rebooted {
			// Run the same test again after the reboot.
			continue
		}

		result, err := p.classify(*test)
		if err != nil {
			return err
		}
		p.results = append(p.results, result)

		if p.Plan().ExitFirst() && !result.Outcome.Successful() {
			logging.Warn("Execute", "test '%s' failed, stopping execution", test.Name)
			break
		}
		index++
	}
	return nil
}

// Results returns the results of the most recent Go.
func (p *gauntletPlugin) Results() []results.Result {
	return append([]results.Result(nil), p.results...)
}

// Requires lists the beakerlib package when the phase framework needs it.
func (p *gauntletPlugin) Requires() []string {
	if framework, _ := p.Data().String("framework"); framework == tests.FrameworkBeakerlib {
		return []string{tests.FrameworkBeakerlib}
	}
	return nil
}

// executeTest runs one test command on the guest and records its exit
// code and wall-clock duration.
func (p *gauntletPlugin) executeTest(ctx context.Context, g guest.Guest, test *tests.Test) error {
	dataDir, err := p.DataPath(*test, "", true, true)
	if err != nil {
		return err
	}
	output, err := p.DataPath(*test, OutputFilename, true, false)
	if err != nil {
		return err
	}
	outFile, err := os.OpenFile(output, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return steps.NewFileError(output, err)
	}
	defer outFile.Close()

	timeout, err := tests.ParseDuration(test.Duration)
	if err != nil {
		return steps.NewSpecificationError(
			"test '%s' has invalid duration '%s'", test.Name, test.Duration)
	}

	script := test.Test
	if test.Framework != tests.FrameworkBeakerlib {
		script = "set -eo pipefail; " + script
	}

	command := guest.Command{
		Script:  script,
		Dir:     filepath.Join(p.Plan().DiscoverWorkdir(), test.Path),
		Env:     p.testEnvironment(test, dataDir),
		Timeout: timeout,
		Output:  outFile,
	}

	logging.Debug("Execute", "running test '%s' in '%s'", test.Name, command.Dir)
	start := time.Now()
	_, runErr := g.Run(ctx, command)
	test.RealDuration = formatDuration(time.Since(start))
	test.ReturnCode = 0
	if runErr != nil {
		var exitErr *guest.RunError
		if !errors.As(runErr, &exitErr) {
			return fmt.Errorf("failed to run test '%s' on guest '%s': %w",
				test.Name, g.Name(), runErr)
		}
		test.ReturnCode = exitErr.ExitCode
	}

	// Collect artifacts the test produced on the guest.
	options := guest.PullOptions{}
	if test.Framework == tests.FrameworkBeakerlib {
		options.Exclude = []string{"backup*"}
	}
	if err := g.Pull(ctx, dataDir, options); err != nil {
		return fmt.Errorf("failed to pull test data of '%s' from guest '%s': %w",
			test.Name, g.Name(), err)
	}
	return nil
}

// testEnvironment assembles the variables one test execution sees. Test
// variables override plan variables.
func (p *gauntletPlugin) testEnvironment(test *tests.Test, dataDir string) map[string]string {
	env := make(map[string]string)
	for key, value := range p.Plan().Environment() {
		env[key] = value
	}
	for key, value := range test.Environment {
		env[key] = value
	}

	testData := filepath.Join(dataDir, TestDataDir)
	count := strconv.Itoa(test.RebootCount)
	env["GAUNTLET_TREE"] = p.Plan().DiscoverWorkdir()
	env["GAUNTLET_TEST_DATA"] = testData
	env["GAUNTLET_REBOOT_REQUEST"] = filepath.Join(testData, rebootRequestFilename)
	env["GAUNTLET_REBOOT_COUNT"] = count
	env["REBOOTCOUNT"] = count
	env["RSTRNT_REBOOTCOUNT"] = count
	if test.Framework == tests.FrameworkBeakerlib {
		env["BEAKERLIB_DIR"] = dataDir
		env["BEAKERLIB_COMMAND_SUBMIT_LOG"] = "bash " + fileSubmitScript.Path
	}
	return env
}

// handleReboot restarts the current test after a reboot the test
// requested through the gauntlet-reboot script.
func (p *gauntletPlugin) handleReboot(ctx context.Context, g guest.Guest, test *tests.Test) (bool, error) {
	dataDir, err := p.DataPath(*test, "", true, false)
	if err != nil {
		return false, err
	}
	requestPath := filepath.Join(dataDir, TestDataDir, rebootRequestFilename)
	content, readErr := os.ReadFile(requestPath)
	if readErr != nil {
		if os.IsNotExist(readErr) {
			return false, nil
		}
		return false, steps.NewFileError(requestPath, readErr)
	}

	test.RebootCount++
	logging.Debug("Execute", "reboot during test '%s' with reboot count %d",
		test.Name, test.RebootCount)
	if err := os.Remove(requestPath); err != nil {
		return false, steps.NewFileError(requestPath, err)
	}
	// The guest must see the request as consumed before going down.
	if err := g.Push(ctx, dataDir, dataDir, guest.PushOptions{}); err != nil {
		return false, fmt.Errorf("failed to push consumed reboot request to guest '%s': %w",
			g.Name(), err)
	}
	if err := g.Reboot(ctx, strings.TrimSpace(string(content))); err != nil {
		return false, fmt.Errorf("failed to reboot guest '%s': %w", g.Name(), err)
	}
	return true, nil
}

// classify picks the framework checker for the finished test. Shell
// tests honor outcomes reported through the helper script and fall back
// to the exit code when the test reported nothing.
func (p *gauntletPlugin) classify(test tests.Test) (results.Result, error) {
	logging.Debug("Execute", "checking result of '%s'", test.Name)
	if test.Framework == tests.FrameworkBeakerlib {
		return p.CheckBeakerlib(test)
	}
	if result, reported, err := p.CheckResultFile(test); reported || err != nil {
		return result, err
	}
	return p.CheckShell(test)
}
