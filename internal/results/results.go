// Package results defines the outcome of individual test executions and the
// on-disk format used to persist them between runs.
package results

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Outcome classifies how a single test execution ended.
type Outcome string

const (
	// OutcomePass indicates the test finished and met its expectations.
	OutcomePass Outcome = "pass"
	// OutcomeFail indicates the test finished but did not meet its expectations.
	OutcomeFail Outcome = "fail"
	// OutcomeInfo indicates a result recorded for informational purposes only.
	OutcomeInfo Outcome = "info"
	// OutcomeWarn indicates the test finished with warnings.
	OutcomeWarn Outcome = "warn"
	// OutcomeError indicates the execution could not be classified.
	OutcomeError Outcome = "error"
)

// Interpretation directives a test may carry in its metadata.
const (
	InterpretRespect = "respect"
	InterpretXfail   = "xfail"
)

// ParseOutcome validates a raw outcome string. Unknown strings report ok=false
// so the caller can degrade them to an error result instead of persisting
// garbage.
func ParseOutcome(raw string) (Outcome, bool) {
	switch Outcome(raw) {
	case OutcomePass, OutcomeFail, OutcomeInfo, OutcomeWarn, OutcomeError:
		return Outcome(raw), true
	}
	return OutcomeError, false
}

// Successful reports whether the outcome lets exit-first execution continue.
func (o Outcome) Successful() bool {
	return o == OutcomePass || o == OutcomeInfo
}

// Result captures the outcome of one test execution on one guest.
type Result struct {
	// Name is the unique test identifier, rooted with a slash.
	Name string
	// Outcome is the classified verdict of the execution.
	Outcome Outcome
	// Log lists produced log files, relative to the execute step workdir.
	// The first entry is the main test output.
	Log []string
	// Duration is the wall-clock execution time formatted as hh:mm:ss.
	Duration string
	// Note carries optional human-readable context such as "timeout".
	Note string
}

// Interpret applies a test's result interpretation directive to a classified
// outcome. The "xfail" directive swaps pass and fail, a fixed outcome forces
// itself and "respect" (or empty) keeps the outcome as classified. The
// returned note names the directive whenever it was applied.
func Interpret(outcome Outcome, directive string) (Outcome, string, error) {
	switch directive {
	case "", InterpretRespect:
		return outcome, "", nil
	case InterpretXfail:
		switch outcome {
		case OutcomePass:
			return OutcomeFail, InterpretXfail, nil
		case OutcomeFail:
			return OutcomePass, InterpretXfail, nil
		}
		return outcome, InterpretXfail, nil
	}
	if forced, ok := ParseOutcome(directive); ok {
		return forced, directive, nil
	}
	return OutcomeError, "", fmt.Errorf("invalid result interpretation '%s'", directive)
}

// AppendNote extends an existing note with an additional fragment, separating
// the two with a comma the way notes accumulate during classification.
func AppendNote(note, fragment string) string {
	if fragment == "" {
		return note
	}
	if note == "" {
		return fragment
	}
	return note + ", " + fragment
}

// Stats counts results per outcome.
func Stats(results []Result) map[Outcome]int {
	stats := make(map[Outcome]int)
	for _, result := range results {
		stats[result.Outcome]++
	}
	return stats
}

// Failed reports whether any result requires attention, meaning anything
// beyond pass and info.
func Failed(results []Result) bool {
	for _, result := range results {
		if !result.Outcome.Successful() {
			return true
		}
	}
	return false
}

// Summary renders a one-line overview such as
// "2 tests passed, 1 test failed and 1 error".
func Summary(results []Result) string {
	stats := Stats(results)
	var comments []string
	if n := stats[OutcomePass]; n > 0 {
		comments = append(comments, fmt.Sprintf("%s passed", counted(n, "test")))
	}
	if n := stats[OutcomeFail]; n > 0 {
		comments = append(comments, fmt.Sprintf("%s failed", counted(n, "test")))
	}
	if n := stats[OutcomeInfo]; n > 0 {
		comments = append(comments, counted(n, "info"))
	}
	if n := stats[OutcomeWarn]; n > 0 {
		comments = append(comments, counted(n, "warn"))
	}
	if n := stats[OutcomeError]; n > 0 {
		comments = append(comments, counted(n, "error"))
	}
	if len(comments) == 0 {
		return "no results found"
	}
	return joined(comments)
}

func counted(n int, noun string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", noun)
	}
	return fmt.Sprintf("%d %ss", n, noun)
}

// joined lists items with commas and a final "and", matching the summary
// style of the rest of the pipeline.
func joined(items []string) string {
	switch len(items) {
	case 0:
		return ""
	case 1:
		return items[0]
	}
	head := items[:len(items)-1]
	last := items[len(items)-1]
	out := ""
	for i, item := range head {
		if i > 0 {
			out += ", "
		}
		out += item
	}
	return out + " and " + last
}

// logValue round-trips the log field: a single entry serializes as a scalar,
// multiple entries as a sequence, and both forms load back into a slice.
type logValue []string

func (l logValue) MarshalYAML() (interface{}, error) {
	switch len(l) {
	case 0:
		return nil, nil
	case 1:
		return l[0], nil
	}
	return []string(l), nil
}

func (l *logValue) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		var single string
		if err := value.Decode(&single); err != nil {
			return err
		}
		*l = logValue{single}
		return nil
	case yaml.SequenceNode:
		var many []string
		if err := value.Decode(&many); err != nil {
			return err
		}
		*l = logValue(many)
		return nil
	}
	return fmt.Errorf("log must be a string or a list of strings")
}

// record is the serialized form of one result inside results.yaml.
type record struct {
	Result   string   `yaml:"result"`
	Log      logValue `yaml:"log,omitempty"`
	Duration string   `yaml:"duration,omitempty"`
	Note     string   `yaml:"note,omitempty"`
}

// Save writes results to path as a mapping keyed by test name. Insertion
// order of the results is preserved in the file.
func Save(path string, results []Result) error {
	doc := &yaml.Node{Kind: yaml.MappingNode}
	for _, result := range results {
		key := &yaml.Node{Kind: yaml.ScalarNode, Value: result.Name}
		value := &yaml.Node{}
		if err := value.Encode(record{
			Result:   string(result.Outcome),
			Log:      logValue(result.Log),
			Duration: result.Duration,
			Note:     result.Note,
		}); err != nil {
			return fmt.Errorf("failed to encode result for '%s': %w", result.Name, err)
		}
		doc.Content = append(doc.Content, key, value)
	}

	data, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write results file: %w", err)
	}
	return nil
}

// Load reads results back from path in file order. A missing or unreadable
// file is reported as an error for the caller to classify.
func Load(path string) ([]Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse results file: %w", err)
	}
	if len(doc.Content) == 0 {
		return nil, nil
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("results file must contain a mapping of test names")
	}

	var loaded []Result
	for i := 0; i+1 < len(root.Content); i += 2 {
		name := root.Content[i].Value
		var rec record
		if err := root.Content[i+1].Decode(&rec); err != nil {
			return nil, fmt.Errorf("failed to parse result for '%s': %w", name, err)
		}
		outcome, ok := ParseOutcome(rec.Result)
		note := rec.Note
		if !ok {
			note = AppendNote(note, fmt.Sprintf("invalid result '%s'", rec.Result))
		}
		loaded = append(loaded, Result{
			Name:     name,
			Outcome:  outcome,
			Log:      []string(rec.Log),
			Duration: rec.Duration,
			Note:     note,
		})
	}
	return loaded, nil
}
