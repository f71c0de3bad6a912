package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/forest6511/passctl/internal/command"
	"github.com/forest6511/passctl/pkg/importer"
	"github.com/forest6511/passctl/pkg/secret"
)

// Import command flags
var (
	importFormat   string
	importConflict string
	importDryRun   bool
)

func init() {
	rootCmd.AddCommand(importCmd)

	importCmd.Flags().StringVarP(&importFormat, "format", "f", "",
		fmt.Sprintf("Export format: %s (detected when omitted)", strings.Join(importer.Sources(), ", ")))
	importCmd.Flags().StringVar(&importConflict, "conflict", string(command.ConflictSkip), "When a name exists: skip, overwrite or error")
	importCmd.Flags().BoolVar(&importDryRun, "dry-run", false, "Show what would be imported without changing the vault")
}

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import logins from another password manager",
	Long: `Import logins from a 1Password CSV, Bitwarden JSON or LastPass CSV
export. Delete the export file afterwards: it holds your passwords in
plain text.

Examples:
  passctl import bitwarden_export.json
  passctl import lastpass.csv --conflict overwrite
  passctl import 1password.csv --dry-run`,
	Args: exactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		conflict, err := command.ParseConflict(importConflict)
		if err != nil {
			return err
		}

		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("failed to read export: %w", err)
		}
		defer secret.Wipe(data)

		source := importer.Source(importFormat)
		if source == "" {
			if source, err = importer.Detect(args[0], data); err != nil {
				return err
			}
			logger.Debug("detected export format", "format", source)
		}
		parser, err := importer.ParserFor(source)
		if err != nil {
			return err
		}
		result, err := parser.Parse(data)
		if err != nil {
			return err
		}
		defer result.Close()

		for _, warning := range result.Warnings {
			printer.Error("Warning: %s", warning)
		}
		for _, skipped := range result.Skipped {
			printer.Line("Skipping %q: %s", skipped.OriginalName, skipped.Reason)
		}

		if importDryRun {
			printer.Title("%d login(s) would be imported", len(result.Records))
			for _, rec := range result.Records {
				printer.Line("%s  %s", rec.Name, rec.Username)
			}
			return nil
		}
		if len(result.Records) == 0 {
			printer.Line("Nothing to import.")
			return nil
		}

		sess, err := openSession(cmd.Context())
		if err != nil {
			return err
		}
		defer sess.Close()

		out, err := sess.runner.Import(cmd.Context(), result.Records, conflict)
		if err != nil {
			return err
		}
		for _, name := range out.Skipped {
			printer.Line("Kept the existing %q.", name)
		}
		printer.OK("Alright! Imported %d new and updated %d existing password(s).", len(out.Added), len(out.Updated))
		return nil
	},
}
