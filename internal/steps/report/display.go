package report

import (
	"context"
	"io"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"gauntlet/internal/results"
	"gauntlet/internal/steps"
)

func init() {
	Register(steps.Method[Plugin]{
		Name:    "display",
		Summary: "Show results in the terminal",
		Order:   50,
		New: func(plan steps.Plan, data steps.StepData) (Plugin, error) {
			return &displayPlugin{
				pluginBase: pluginBase{BasePlugin: steps.NewBasePlugin(plan, "display", data)},
				out:        os.Stdout,
			}, nil
		},
	})
}

// displayPlugin renders the results as a table on the terminal.
type displayPlugin struct {
	pluginBase
	out io.Writer
}

func (p *displayPlugin) Go(ctx context.Context) error {
	collected := p.Plan().ExecuteResults()
	if len(collected) == 0 {
		return nil
	}

	t := table.NewWriter()
	t.SetOutputMirror(p.out)
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{
		text.FgHiCyan.Sprint("TEST"),
		text.FgHiCyan.Sprint("RESULT"),
		text.FgHiCyan.Sprint("DURATION"),
		text.FgHiCyan.Sprint("NOTE"),
	})
	for _, result := range collected {
		t.AppendRow(table.Row{
			result.Name,
			outcomeColor(result.Outcome).Sprint(result.Outcome),
			result.Duration,
			result.Note,
		})
	}
	t.Render()

	if p.Plan().Verbose() {
		for _, result := range collected {
			for _, log := range result.Log {
				p.Info("log", log)
			}
		}
	}
	return nil
}

// outcomeColor maps outcomes onto terminal colors.
func outcomeColor(outcome results.Outcome) text.Color {
	switch outcome {
	case results.OutcomePass:
		return text.FgGreen
	case results.OutcomeFail:
		return text.FgRed
	case results.OutcomeInfo:
		return text.FgBlue
	case results.OutcomeWarn:
		return text.FgYellow
	}
	return text.FgMagenta
}
