package report

import (
	"context"
	_ "embed"
	"fmt"
	"html/template"
	"os"

	"github.com/Masterminds/sprig/v3"

	"gauntlet/internal/results"
	"gauntlet/internal/steps"
)

//go:embed templates/report.html.tmpl
var htmlTemplateSource string

var htmlTemplate = template.Must(
	template.New("report").Funcs(sprig.HtmlFuncMap()).Parse(htmlTemplateSource))

// HTMLFilename is the report file written into the step workdir.
const HTMLFilename = "report.html"

func init() {
	Register(steps.Method[Plugin]{
		Name:    "html",
		Summary: "Render a static html report",
		Order:   60,
		New: func(plan steps.Plan, data steps.StepData) (Plugin, error) {
			return &htmlPlugin{
				pluginBase: pluginBase{BasePlugin: steps.NewBasePlugin(plan, "html", data)},
			}, nil
		},
	})
}

// htmlReport is the data handed to the report template.
type htmlReport struct {
	Plan    string
	Summary string
	Results []results.Result
}

// htmlPlugin renders the results into a standalone html page under the
// step workdir.
type htmlPlugin struct {
	pluginBase
}

func (p *htmlPlugin) Go(ctx context.Context) error {
	collected := p.Plan().ExecuteResults()
	path := p.step.StateFile(HTMLFilename)
	file, err := os.Create(path)
	if err != nil {
		return steps.NewFileError(path, err)
	}
	defer file.Close()

	err = htmlTemplate.Execute(file, htmlReport{
		Plan:    p.Plan().Name(),
		Summary: results.Summary(collected),
		Results: collected,
	})
	if err != nil {
		return fmt.Errorf("failed to render html report: %w", err)
	}
	p.Info("output", path)
	return nil
}
