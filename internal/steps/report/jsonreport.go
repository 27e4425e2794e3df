package report

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"gauntlet/internal/results"
	"gauntlet/internal/steps"
)

// JSONFilename is the machine-readable report written into the step workdir.
const JSONFilename = "report.json"

func init() {
	Register(steps.Method[Plugin]{
		Name:    "json",
		Summary: "Write a machine-readable json report",
		Order:   70,
		New: func(plan steps.Plan, data steps.StepData) (Plugin, error) {
			return &jsonPlugin{
				pluginBase: pluginBase{BasePlugin: steps.NewBasePlugin(plan, "json", data)},
			}, nil
		},
	})
}

// jsonReport is the document written by the json reporter.
type jsonReport struct {
	Plan      string         `json:"plan"`
	Summary   string         `json:"summary"`
	Total     int            `json:"total"`
	Stats     map[string]int `json:"stats"`
	Results   []jsonResult   `json:"results"`
	CreatedAt time.Time      `json:"created_at"`
}

type jsonResult struct {
	Name     string   `json:"name"`
	Result   string   `json:"result"`
	Log      []string `json:"log,omitempty"`
	Duration string   `json:"duration,omitempty"`
	Note     string   `json:"note,omitempty"`
}

// jsonPlugin serializes the results for other tooling to consume.
type jsonPlugin struct {
	pluginBase
}

func (p *jsonPlugin) Go(ctx context.Context) error {
	collected := p.Plan().ExecuteResults()

	report := jsonReport{
		Plan:      p.Plan().Name(),
		Summary:   results.Summary(collected),
		Total:     len(collected),
		Stats:     make(map[string]int),
		CreatedAt: time.Now().UTC(),
	}
	for outcome, count := range results.Stats(collected) {
		report.Stats[string(outcome)] = count
	}
	for _, result := range collected {
		report.Results = append(report.Results, jsonResult{
			Name:     result.Name,
			Result:   string(result.Outcome),
			Log:      result.Log,
			Duration: result.Duration,
			Note:     result.Note,
		})
	}

	payload, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal json report: %w", err)
	}
	path := p.step.StateFile(JSONFilename)
	if err := os.WriteFile(path, payload, 0o644); err != nil {
		return steps.NewFileError(path, err)
	}
	p.Info("output", path)
	return nil
}
