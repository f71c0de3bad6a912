package main

import (
	"github.com/spf13/cobra"
)

var addShow bool

func init() {
	rootCmd.AddCommand(addCmd)

	addCmd.Flags().BoolVarP(&addShow, "show", "s", false, "Print the password instead of copying it")
}

var addCmd = &cobra.Command{
	Use:   "add <name> <username>",
	Short: "Add a password you already have",
	Long: `Add a password for an app. You are asked for the password, which is
then saved and copied to the clipboard.

Examples:
  passctl add YouTube me@example.com
  passctl add "Bank of Earth" 12345678 --show`,
	Args: exactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := openSession(cmd.Context())
		if err != nil {
			return err
		}
		defer sess.Close()

		out, err := sess.runner.Add(cmd.Context(), args[0], args[1], addShow)
		if err != nil {
			return err
		}
		return report(out)
	},
}
