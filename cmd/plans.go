package cmd

import (
	"path/filepath"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"gauntlet/internal/plan"
	pkgstrings "gauntlet/pkg/strings"
)

var (
	plansRoot  string
	plansDir   string
	plansDebug bool
)

// plansCmd lists the plans of a project without running anything.
var plansCmd = &cobra.Command{
	Use:   "plans [filter...]",
	Short: "List the plans of a project",
	Long: `Lists every plan found in the plans directory. Optional arguments
narrow the listing to plans whose name contains one of them.

Examples:
  gauntlet plans
  gauntlet plans smoke
  gauntlet plans --root ~/project integration`,
	RunE: runPlans,
}

func runPlans(cmd *cobra.Command, args []string) error {
	initLogging(plansDebug)

	sourceDir, err := filepath.Abs(plansRoot)
	if err != nil {
		return err
	}
	loaded, err := plan.LoadAll(filepath.Join(sourceDir, plansDir), sourceDir, plan.Options{})
	if err != nil {
		return err
	}
	loaded = plan.Filter(loaded, args)

	tw := table.NewWriter()
	tw.SetOutputMirror(cmd.OutOrStdout())
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{
		text.FgHiCyan.Sprint("PLAN"),
		text.FgHiCyan.Sprint("SUMMARY"),
	})
	for _, p := range loaded {
		tw.AppendRow(table.Row{
			p.Name(),
			pkgstrings.TruncateSummary(p.Summary(), pkgstrings.DefaultSummaryWidth),
		})
	}
	tw.Render()
	return nil
}

func init() {
	rootCmd.AddCommand(plansCmd)

	plansCmd.Flags().StringVar(&plansRoot, "root", ".", "Project root holding plans and test metadata")
	plansCmd.Flags().StringVar(&plansDir, "plans", "plans", "Plans directory below the project root")
	plansCmd.Flags().BoolVar(&plansDebug, "debug", false, "Enable debug logging")
}
