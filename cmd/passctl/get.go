package main

import (
	"github.com/spf13/cobra"
)

var getShow bool

func init() {
	rootCmd.AddCommand(getCmd)

	getCmd.Flags().BoolVarP(&getShow, "show", "s", false, "Print the password instead of copying it")
}

var getCmd = &cobra.Command{
	Use:   "get <query>",
	Short: "Copy a password to the clipboard",
	Args:  exactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := openSession(cmd.Context())
		if err != nil {
			return err
		}
		defer sess.Close()

		out, err := sess.runner.Get(args[0], getShow)
		if err != nil {
			return err
		}
		return report(out)
	},
}
