package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var errAuditTampered = errors.New("audit log failed verification")

var auditLimit int

func init() {
	rootCmd.AddCommand(auditCmd)
	auditCmd.AddCommand(auditListCmd)
	auditCmd.AddCommand(auditVerifyCmd)

	auditListCmd.Flags().IntVarP(&auditLimit, "limit", "n", 50, "Maximum number of events to show (0 for all)")
}

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Inspect the audit log",
}

var auditListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent audit events",
	Args:  exactArgs(0),
	RunE: func(cmd *cobra.Command, args []string) error {
		if auditLimit < 0 {
			return fmt.Errorf("--limit must not be negative")
		}

		sess, err := openSession(cmd.Context())
		if err != nil {
			return err
		}
		defer sess.Close()

		events, err := sess.vault.Audit().Events(auditLimit)
		if err != nil {
			return fmt.Errorf("failed to list audit events: %w", err)
		}
		if len(events) == 0 {
			printer.Line("No audit events.")
			return nil
		}

		printer.Title("%d event(s)", len(events))
		for _, e := range events {
			line := fmt.Sprintf("%-6d %s  %-20s %s", e.Chain.Sequence, e.Timestamp, e.Operation, e.Result)
			if e.Error != nil {
				line += " (" + e.Error.Code + ")"
			}
			if attempts, ok := e.Context["attempts"]; ok {
				line += fmt.Sprintf(" attempts=%v", attempts)
			}
			printer.Line("%s", line)
		}
		return nil
	},
}

var auditVerifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Verify the integrity of the audit log",
	Args:  exactArgs(0),
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := openSession(cmd.Context())
		if err != nil {
			return err
		}
		defer sess.Close()

		result, err := sess.vault.Audit().Verify()
		if err != nil {
			return fmt.Errorf("failed to verify audit log: %w", err)
		}
		if !result.Valid {
			for _, problem := range result.Errors {
				printer.Error("%s", problem)
			}
			return fmt.Errorf("%w: %d problem(s) in %d record(s)", errAuditTampered, len(result.Errors), result.Records)
		}
		printer.OK("Alright! All %d audit record(s) are intact.", result.Records)
		return nil
	},
}
