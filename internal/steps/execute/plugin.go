package execute

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"gauntlet/internal/guest"
	"gauntlet/internal/results"
	"gauntlet/internal/steps"
	"gauntlet/internal/tests"
	"gauntlet/pkg/logging"
)

const metadataFilename = "metadata.yaml"

// reportResultFilename collects outcomes the test reports through the
// gauntlet-report-result script, one record per line.
const reportResultFilename = "reported-results"

// beakerlib journal markers parsed out of the TestResults file.
var (
	beakerlibResult = regexp.MustCompile(`TESTRESULT_RESULT_STRING=(.*)`)
	beakerlibState  = regexp.MustCompile(`TESTRESULT_STATE="?(\w+)"?`)
)

// Script is a helper installed on guests before execution.
type Script struct {
	// Path is the destination of the script on the guest.
	Path string
	// Aliases are compatibility names the script is also installed under.
	Aliases []string
	// RelatedVariables lists environment variables the script reads.
	RelatedVariables []string
	// Content is the script body.
	Content []byte
}

// PluginBase carries the behavior shared by execute methods: the per-test
// data layout, helper script installation and result classification.
// Concrete methods embed it.
type PluginBase struct {
	steps.BasePlugin
	step    *Step
	scripts []Script
}

// NewPluginBase binds an execute phase to its plan and configuration record.
func NewPluginBase(plan steps.Plan, how string, data steps.StepData) PluginBase {
	return PluginBase{
		BasePlugin: steps.NewBasePlugin(plan, how, data),
		scripts:    defaultScripts,
	}
}

// Bind attaches the phase to its owning step.
func (p *PluginBase) Bind(step *Step) {
	p.step = step
}

// Step returns the owning execute step.
func (p *PluginBase) Step() *Step {
	return p.step
}

// Scripts returns the helper scripts this phase installs on guests.
func (p *PluginBase) Scripts() []Script {
	return append([]Script(nil), p.scripts...)
}

// Framework resolves the effective framework of a test, falling back to
// the phase framework and then the default.
func (p *PluginBase) Framework(test tests.Test) string {
	if test.Framework != "" {
		return test.Framework
	}
	if framework, ok := p.Data().String("framework"); ok && framework != "" {
		return framework
	}
	return tests.DefaultFramework
}

// DataPath maps a test to its artifact location under the step workdir.
// With a filename the path points at that file, otherwise at the test's
// folder. Relative paths are relative to the step workdir. When create is
// set the folder is laid out, including the nested data directory for
// artifacts the test produces itself.
func (p *PluginBase) DataPath(test tests.Test, filename string, full, create bool) (string, error) {
	workdir := p.step.Workdir()
	folder := filepath.Join(workdir, TestDataDir, strings.TrimPrefix(test.Name, "/"))
	if create {
		nested := filepath.Join(folder, TestDataDir)
		if err := os.MkdirAll(nested, 0o755); err != nil {
			return "", steps.NewFileError(nested, err)
		}
	}
	path := folder
	if filename != "" {
		path = filepath.Join(folder, filename)
	}
	if full {
		return path, nil
	}
	relative, err := filepath.Rel(workdir, path)
	if err != nil {
		return "", fmt.Errorf("failed to relativize '%s': %w", path, err)
	}
	return relative, nil
}

// PrepareTests resolves the effective framework of every discovered test,
// lays out its data directory and writes its metadata there.
func (p *PluginBase) PrepareTests() ([]tests.Test, error) {
	prepared := append([]tests.Test(nil), p.Plan().Tests()...)
	for i := range prepared {
		prepared[i].Framework = p.Framework(prepared[i])
		folder, err := p.DataPath(prepared[i], "", true, true)
		if err != nil {
			return nil, err
		}
		payload, err := yaml.Marshal(prepared[i])
		if err != nil {
			return nil, fmt.Errorf("failed to marshal metadata of test '%s': %w", prepared[i].Name, err)
		}
		path := filepath.Join(folder, metadataFilename)
		if err := os.WriteFile(path, payload, 0o644); err != nil {
			return nil, steps.NewFileError(path, err)
		}
	}
	return prepared, nil
}

// PrepareScripts installs the helper scripts on the guest, including
// their compatibility aliases. Local guests share the filesystem with the
// run and are skipped. At least one script must be configured.
func (p *PluginBase) PrepareScripts(ctx context.Context, g guest.Guest) error {
	if len(p.scripts) == 0 {
		return fmt.Errorf("phase '%s' has no scripts to install", p.Name())
	}
	if g.Localhost() {
		logging.Debug("Execute", "skipping script installation on local guest '%s'", g.Name())
		return nil
	}
	sourceDir := filepath.Join(p.step.Workdir(), "scripts")
	if err := os.MkdirAll(sourceDir, 0o755); err != nil {
		return steps.NewFileError(sourceDir, err)
	}
	for _, script := range p.scripts {
		source := filepath.Join(sourceDir, filepath.Base(script.Path))
		if err := os.WriteFile(source, script.Content, 0o755); err != nil {
			return steps.NewFileError(source, err)
		}
		for _, destination := range append([]string{script.Path}, script.Aliases...) {
			if err := g.Push(ctx, source, destination, guest.PushOptions{Mode: 0o755}); err != nil {
				return fmt.Errorf("failed to install script '%s' on guest '%s': %w",
					destination, g.Name(), err)
			}
		}
	}
	return nil
}

// CheckShell classifies a shell test by its exit code.
func (p *PluginBase) CheckShell(test tests.Test) (results.Result, error) {
	outcome := results.OutcomeError
	note := ""
	switch test.ReturnCode {
	case 0:
		outcome = results.OutcomePass
	case 1:
		outcome = results.OutcomeFail
	default:
		if test.ReturnCode == guest.ProcessTimeout {
			note = "timeout"
			p.TimeoutHint(test)
		}
	}
	output, err := p.DataPath(test, OutputFilename, false, false)
	if err != nil {
		return results.Result{}, err
	}
	return p.buildResult(test, outcome, note, []string{output})
}

// severity ranks outcomes for aggregation of reported results, the
// worst one wins.
var severity = map[results.Outcome]int{
	results.OutcomePass:  0,
	results.OutcomeInfo:  1,
	results.OutcomeWarn:  2,
	results.OutcomeFail:  3,
	results.OutcomeError: 4,
}

// CheckResultFile classifies a test by the records it reported through
// the gauntlet-report-result script. The boolean is false when the test
// reported nothing and the caller should fall back to the exit code.
func (p *PluginBase) CheckResultFile(test tests.Test) (results.Result, bool, error) {
	if test.ReturnCode == guest.ProcessTimeout {
		// A timeout overrides anything the test managed to report.
		return results.Result{}, false, nil
	}
	folder, err := p.DataPath(test, "", true, false)
	if err != nil {
		return results.Result{}, false, err
	}
	path := filepath.Join(folder, TestDataDir, reportResultFilename)
	content, readErr := os.ReadFile(path)
	if readErr != nil {
		if os.IsNotExist(readErr) {
			return results.Result{}, false, nil
		}
		return results.Result{}, false, steps.NewFileError(path, readErr)
	}

	outcome := results.OutcomePass
	note := ""
	records := 0
	for _, line := range strings.Split(string(content), "\n") {
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		records++
		raw := strings.ToLower(fields[1])
		if raw == "skip" {
			raw = string(results.OutcomeInfo)
		}
		parsed, ok := results.ParseOutcome(raw)
		if !ok {
			note = fmt.Sprintf("invalid result '%s'", raw)
		}
		if severity[parsed] > severity[outcome] {
			outcome = parsed
		}
	}
	if records == 0 {
		return results.Result{}, false, nil
	}

	output, err := p.DataPath(test, OutputFilename, false, false)
	if err != nil {
		return results.Result{}, false, err
	}
	result, err := p.buildResult(test, outcome, note, []string{output})
	return result, true, err
}

// CheckBeakerlib classifies a beakerlib test by the journal it produced.
// Only logs the test actually left behind are recorded.
func (p *PluginBase) CheckBeakerlib(test tests.Test) (results.Result, error) {
	var logs []string
	for _, filename := range []string{OutputFilename, "journal.txt"} {
		full, err := p.DataPath(test, filename, true, false)
		if err != nil {
			return results.Result{}, err
		}
		if _, statErr := os.Stat(full); statErr != nil {
			continue
		}
		relative, err := p.DataPath(test, filename, false, false)
		if err != nil {
			return results.Result{}, err
		}
		logs = append(logs, relative)
	}

	outcome := results.OutcomeError
	journalPath, err := p.DataPath(test, "TestResults", true, false)
	if err != nil {
		return results.Result{}, err
	}
	content, readErr := os.ReadFile(journalPath)
	if readErr != nil {
		logging.Debug("Execute", "unable to read '%s': %v", journalPath, readErr)
		return p.buildResult(test, outcome, "beakerlib: TestResults FileError", logs)
	}

	matchedResult := beakerlibResult.FindSubmatch(content)
	matchedState := beakerlibState.FindSubmatch(content)
	if matchedResult == nil || matchedState == nil {
		logging.Debug("Execute", "result or state missing in '%s'", journalPath)
		return p.buildResult(test, outcome, "beakerlib: Result/State missing", logs)
	}

	note := ""
	state := string(matchedState[1])
	switch {
	case test.ReturnCode == guest.ProcessTimeout:
		note = "timeout"
		p.TimeoutHint(test)
	case state != "complete":
		note = fmt.Sprintf("beakerlib: State '%s'", state)
	default:
		raw := strings.ToLower(strings.TrimSpace(string(matchedResult[1])))
		parsed, ok := results.ParseOutcome(raw)
		if !ok {
			note = fmt.Sprintf("invalid result '%s'", raw)
		}
		outcome = parsed
	}
	return p.buildResult(test, outcome, note, logs)
}

// TimeoutHint appends duration advice to the test output after a timeout.
func (p *PluginBase) TimeoutHint(test tests.Test) {
	output, err := p.DataPath(test, OutputFilename, true, false)
	if err != nil {
		logging.Warn("Execute", "cannot locate output of test '%s': %v", test.Name, err)
		return
	}
	hint := fmt.Sprintf(
		"\nMaximum test time '%s' exceeded.\nAdjust the test 'duration' attribute if necessary.\n",
		test.Duration)
	if err := appendFile(output, hint); err != nil {
		logging.Warn("Execute", "cannot write timeout hint for test '%s': %v", test.Name, err)
	}
}

// buildResult applies the test's result interpretation and assembles the
// final record.
func (p *PluginBase) buildResult(test tests.Test, outcome results.Outcome, note string, logs []string) (results.Result, error) {
	interpreted, directive, err := results.Interpret(outcome, test.Result)
	if err != nil {
		return results.Result{}, &steps.SpecificationError{
			Message: fmt.Sprintf("test '%s'", test.Name),
			Err:     err,
		}
	}
	return results.Result{
		Name:     test.Name,
		Outcome:  interpreted,
		Log:      logs,
		Duration: test.RealDuration,
		Note:     results.AppendNote(note, directive),
	}, nil
}

func appendFile(path, content string) error {
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer file.Close()
	_, err = file.WriteString(content)
	return err
}

// formatDuration renders elapsed wall-clock time as hh:mm:ss.
func formatDuration(elapsed time.Duration) string {
	elapsed = elapsed.Round(time.Second)
	hours := int(elapsed.Hours())
	minutes := int(elapsed.Minutes()) % 60
	seconds := int(elapsed.Seconds()) % 60
	return fmt.Sprintf("%02d:%02d:%02d", hours, minutes, seconds)
}
