package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/forest6511/passctl/internal/config"
	"github.com/forest6511/passctl/pkg/vault"
)

var errPasswordMismatch = errors.New("passwords do not match")

func init() {
	rootCmd.AddCommand(initCmd)
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a new vault",
	Long: fmt.Sprintf(`Create a new vault protected by a master password.

The vault lives in $%s, or ~/%s when it is unset.`, config.EnvHome, config.DirName),
	Args: exactArgs(0),
	RunE: func(cmd *cobra.Command, args []string) error {
		v := openVault()
		if v.Exists() {
			return vault.ErrVaultAlreadyExists
		}

		// Scripts pass the password once, through the environment or a pipe.
		confirm := !config.HasMasterPassword() && terminal.IsTerminal()
		master, err := readMasterPassword("Enter master password: ")
		if err != nil {
			return err
		}
		defer master.Close()

		if confirm {
			again, err := terminal.ReadSecret("Confirm master password: ")
			if err != nil {
				return fmt.Errorf("failed to read password: %w", err)
			}
			match := master.Equal(again)
			again.Close()
			if !match {
				return errPasswordMismatch
			}
		}

		result := vault.ValidateMasterPassword(master.Expose())
		if err := result.Err(); err != nil {
			return err
		}
		printer.Line("Password strength: %s", result.Strength)
		for _, warning := range result.Warnings {
			printer.Error("Warning: %s", warning)
		}

		if err := v.Init(master); err != nil {
			return fmt.Errorf("failed to initialize vault: %w", err)
		}
		printer.OK("Alright! Your vault is ready in %s.", v.Path())
		return nil
	},
}
