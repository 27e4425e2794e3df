package cmd

import (
	"path/filepath"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"gauntlet/internal/steps/discover"
	pkgstrings "gauntlet/pkg/strings"
)

var (
	testsRoot  string
	testsTree  string
	testsDebug bool
)

// testsCmd lists the test metadata of a project without running anything.
var testsCmd = &cobra.Command{
	Use:   "tests [pattern...]",
	Short: "List the tests of a project",
	Long: `Walks the test metadata tree and lists every test found. Optional
arguments are regular expressions matched against the test names.

Examples:
  gauntlet tests
  gauntlet tests '^/smoke'
  gauntlet tests --root ~/project --tree checks`,
	RunE: runTests,
}

func runTests(cmd *cobra.Command, args []string) error {
	initLogging(testsDebug)

	sourceDir, err := filepath.Abs(testsRoot)
	if err != nil {
		return err
	}
	found, err := discover.Scan(filepath.Join(sourceDir, testsTree), args)
	if err != nil {
		return err
	}

	tw := table.NewWriter()
	tw.SetOutputMirror(cmd.OutOrStdout())
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{
		text.FgHiCyan.Sprint("TEST"),
		text.FgHiCyan.Sprint("SUMMARY"),
		text.FgHiCyan.Sprint("FRAMEWORK"),
		text.FgHiCyan.Sprint("DURATION"),
	})
	for _, test := range found {
		tw.AppendRow(table.Row{
			test.Name,
			pkgstrings.TruncateSummary(test.Summary, pkgstrings.DefaultSummaryWidth),
			test.Framework,
			test.Duration,
		})
	}
	tw.Render()
	return nil
}

func init() {
	rootCmd.AddCommand(testsCmd)

	testsCmd.Flags().StringVar(&testsRoot, "root", ".", "Project root holding plans and test metadata")
	testsCmd.Flags().StringVar(&testsTree, "tree", "tests", "Test metadata tree below the project root")
	testsCmd.Flags().BoolVar(&testsDebug, "debug", false, "Enable debug logging")
}
