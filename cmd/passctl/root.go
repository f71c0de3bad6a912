package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/forest6511/passctl/internal/clock"
	"github.com/forest6511/passctl/internal/command"
	"github.com/forest6511/passctl/internal/config"
	"github.com/forest6511/passctl/internal/prompt"
	"github.com/forest6511/passctl/internal/ui"
	"github.com/forest6511/passctl/pkg/audit"
	"github.com/forest6511/passctl/pkg/vault"
)

// Global flags
var (
	vaultDir string
	verbose  bool
)

// State shared by every command, set up in PersistentPreRunE.
var (
	homeDir  string
	cfg      *config.Config
	logger   *slog.Logger
	printer  *ui.Printer
	terminal *prompt.Terminal
	clk      clock.Clock
)

var rootCmd = &cobra.Command{
	Use:   "passctl",
	Short: "passctl keeps your passwords in an encrypted local vault",
	Long: `passctl stores passwords encrypted on disk and copies them to the
clipboard when you need them. Entries are found by fuzzy name: "ytb"
finds "YouTube".`,
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		printer = ui.New(cmd.OutOrStdout(), cmd.ErrOrStderr())
		terminal = prompt.NewTerminal(cmd.InOrStdin(), cmd.ErrOrStderr())
		clk = clock.Real()

		home := vaultDir
		if home == "" {
			var err error
			if home, err = config.HomeDir(); err != nil {
				return err
			}
		}
		homeDir = home

		loaded, err := config.Load(home)
		if err != nil {
			return err
		}
		cfg = loaded

		level := cfg.SlogLevel()
		if verbose {
			level = slog.LevelDebug
		}
		logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
		slog.SetDefault(logger)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&vaultDir, "vault", "", fmt.Sprintf("Vault directory (default $%s or ~/%s)", config.EnvHome, config.DirName))
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log debug messages to stderr")
}

// run executes the command line and returns the process exit status.
func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	rootCmd.SetArgs(args)
	rootCmd.SetIn(stdin)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		ui.New(stdout, stderr).Error("%s", userMessage(err))
		return 1
	}
	return 0
}

// openVault returns the vault in the home directory. Audit records share
// the command's clock and logger and name failures by error code.
func openVault() *vault.Vault {
	auditLog := audit.NewLogger(filepath.Join(homeDir, vault.AuditDirName),
		audit.WithClock(clk),
		audit.WithLogger(logger),
		audit.WithErrorCoder(command.ErrorCode),
	)
	return vault.New(homeDir,
		vault.WithClock(clk),
		vault.WithLogger(logger),
		vault.WithAudit(auditLog),
	)
}
