package main

import (
	"time"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(listCmd)
}

var listCmd = &cobra.Command{
	Use:   "list [query]",
	Short: "List entries, optionally filtered by a fuzzy query",
	Args:  rangeArgs(0, 1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := openSession(cmd.Context())
		if err != nil {
			return err
		}
		defer sess.Close()

		var query string
		if len(args) == 1 {
			query = args[0]
		}
		entries := sess.runner.List(query)
		if len(entries) == 0 {
			if query == "" {
				printer.Line("No passwords yet. Add one with `passctl add <name> <username>`.")
				return nil
			}
			printer.Line("No password matches %q.", query)
			return nil
		}

		width := 0
		for _, e := range entries {
			width = max(width, len(e.Name))
		}
		printer.Title("%d password(s)", len(entries))
		for _, e := range entries {
			printer.Line("%-*s  %s  (updated %s)", width, e.Name, e.Username, e.UpdatedAt.Local().Format(time.DateTime))
		}
		return nil
	},
}
