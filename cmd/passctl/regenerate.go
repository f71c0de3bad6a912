package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/forest6511/passctl/pkg/generate"
)

// Regenerate command flags
var (
	regenerateAlnum  bool
	regenerateLength string
	regenerateShow   bool
)

func init() {
	rootCmd.AddCommand(regenerateCmd)

	regenerateCmd.Flags().BoolVarP(&regenerateAlnum, "alnum", "a", false, "Only use letters and digits")
	regenerateCmd.Flags().StringVarP(&regenerateLength, "length", "l", "",
		fmt.Sprintf("Password length (%d-%d, default %d)", generate.MinLength, generate.MaxLength, generate.DefaultLength))
	regenerateCmd.Flags().BoolVarP(&regenerateShow, "show", "s", false, "Print the password instead of copying it")
}

var regenerateCmd = &cobra.Command{
	Use:   "regenerate <query>",
	Short: "Replace a password with a newly generated one",
	Long: `Replace the password of an entry with a random one. The query is
matched fuzzily; when several entries match you are asked to pick one.

Examples:
  passctl regenerate ytb
  passctl regenerate bank --alnum --length 16`,
	Args: exactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		spec := generationSpec(cmd, regenerateAlnum, regenerateLength)

		sess, err := openSession(cmd.Context())
		if err != nil {
			return err
		}
		defer sess.Close()

		out, err := sess.runner.Regenerate(cmd.Context(), args[0], spec, regenerateShow)
		if err != nil {
			return err
		}
		return report(out)
	},
}

// generationSpec starts from the configured defaults and applies the
// --alnum and --length flags. An unusable length falls back to the
// default with a notice.
func generationSpec(cmd *cobra.Command, alnum bool, length string) generate.Spec {
	spec := cfg.GenerationSpec()
	if cmd.Flags().Changed("alnum") {
		spec.AlnumOnly = alnum
	}
	if cmd.Flags().Changed("length") {
		n, normalized := generate.NormalizeLength(length)
		if normalized {
			printer.Error("%q is not a length between %d and %d, so I used %d characters.",
				length, generate.MinLength, generate.MaxLength, n)
		}
		spec.Length = n
	}
	return spec
}
