package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/forest6511/passctl/pkg/security"
)

var checkMinScore int

func init() {
	rootCmd.AddCommand(checkCmd)

	checkCmd.Flags().IntVar(&checkMinScore, "min-score", 0, "Exit with an error when the score is below this value")
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Report weak, reused and stale passwords",
	Args:  exactArgs(0),
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := openSession(cmd.Context())
		if err != nil {
			return err
		}
		defer sess.Close()

		analyzer, err := security.New(security.WithClock(clk))
		if err != nil {
			return err
		}
		report := analyzer.Analyze(sess.store.All())

		printer.Title("Security score: %d/100", report.Score)
		printer.Line("  strength   %2d/40", report.Components.Strength)
		printer.Line("  uniqueness %2d/40", report.Components.Uniqueness)
		printer.Line("  freshness  %2d/20", report.Components.Freshness)

		if len(report.Issues) == 0 {
			printer.OK("Alright! No issues in %d password(s).", report.Entries)
		}
		for _, issue := range report.Issues {
			line := fmt.Sprintf("[%s] %s: %s", issue.Severity, strings.Join(issue.Names, ", "), issue.Description)
			if issue.Severity == security.SeverityCritical {
				printer.Error("%s", line)
				continue
			}
			printer.Line("%s", line)
		}
		for _, suggestion := range report.Suggestions {
			printer.Line("- %s", suggestion)
		}

		if report.Score < checkMinScore {
			return fmt.Errorf("security score %d is below %d", report.Score, checkMinScore)
		}
		return nil
	},
}
