package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/forest6511/passctl/pkg/generate"
)

// Generate command flags
var (
	generateAlnum  bool
	generateLength string
	generateCopy   bool
)

func init() {
	rootCmd.AddCommand(generateCmd)

	generateCmd.Flags().BoolVarP(&generateAlnum, "alnum", "a", false, "Only use letters and digits")
	generateCmd.Flags().StringVarP(&generateLength, "length", "l", "",
		fmt.Sprintf("Password length (%d-%d, default %d)", generate.MinLength, generate.MaxLength, generate.DefaultLength))
	generateCmd.Flags().BoolVarP(&generateCopy, "copy", "c", false, "Copy the password to the clipboard instead of printing it")
}

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a password without saving it",
	Long: `Generate a random password. Nothing is written to the vault.

Examples:
  passctl generate
  passctl generate --alnum -l 16
  passctl generate --copy`,
	Args: exactArgs(0),
	RunE: func(cmd *cobra.Command, args []string) error {
		spec := generationSpec(cmd, generateAlnum, generateLength)

		password, err := newGenerator().Generate(spec)
		if err != nil {
			return err
		}
		defer password.Close()

		if generateCopy {
			cb := newClipboard()
			if err := cb.Copy(password); err != nil {
				return fmt.Errorf("failed to copy to clipboard: %w", err)
			}
			printer.OK("Alright! You can paste your new password anywhere with %s.", cb.PasteShortcut())
			return nil
		}

		if _, err := password.WriteTo(printer.Stdout()); err != nil {
			return fmt.Errorf("failed to print password: %w", err)
		}
		printer.Line("")
		return nil
	},
}
