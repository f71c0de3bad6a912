package main

import (
	"context"
	"fmt"
	"time"

	"github.com/forest6511/passctl/internal/clipboard"
	"github.com/forest6511/passctl/internal/command"
	"github.com/forest6511/passctl/internal/config"
	"github.com/forest6511/passctl/internal/prompt"
	"github.com/forest6511/passctl/pkg/fuzzy"
	"github.com/forest6511/passctl/pkg/generate"
	"github.com/forest6511/passctl/pkg/secret"
	"github.com/forest6511/passctl/pkg/store"
	"github.com/forest6511/passctl/pkg/vault"
)

// session is an unlocked vault with its entries loaded.
type session struct {
	vault  *vault.Vault
	store  *store.Store
	runner *command.Runner
}

// openSession unlocks the vault and loads its entries. Callers must
// Close the session.
func openSession(ctx context.Context) (*session, error) {
	v := openVault()
	if !v.Exists() {
		return nil, vault.ErrVaultNotFound
	}
	if wait := v.RemainingCooldown(); wait > 0 {
		return nil, fmt.Errorf("%w: please wait %v", vault.ErrCooldownActive, wait.Round(time.Second))
	}

	master, err := readMasterPassword("Enter master password: ")
	if err != nil {
		return nil, err
	}
	err = v.Unlock(master)
	master.Close()
	if err != nil {
		return nil, fmt.Errorf("failed to unlock vault: %w", err)
	}

	matcher := fuzzy.New(fuzzy.WithMinScorePerRune(cfg.Match.MinScorePerRune))
	s, err := v.Load(ctx, store.WithMatcher(matcher))
	if err != nil {
		v.Lock()
		return nil, err
	}

	runner := command.New(s, command.Deps{
		Prompter:  terminal,
		Chooser:   prompt.NewSelector(terminal),
		Clipboard: newClipboard(),
		Clock:     clk,
		Persister: v,
		Recorder:  v.Audit(),
		Generator: newGenerator(),
	})
	return &session{vault: v, store: s, runner: runner}, nil
}

// Close wipes the decrypted entries and locks the vault.
func (s *session) Close() {
	if err := s.store.Close(); err != nil {
		logger.Warn("failed to wipe entries", "error", err)
	}
	s.vault.Lock()
}

// readMasterPassword takes the master password from the environment when
// set, otherwise prompts for it.
func readMasterPassword(ask string) (*secret.Secret, error) {
	if master, ok := config.TakeMasterPassword(); ok {
		logger.Debug("using master password from environment", "var", config.EnvMasterPassword)
		return master, nil
	}
	master, err := terminal.ReadSecret(ask)
	if err != nil {
		return nil, fmt.Errorf("failed to read password: %w", err)
	}
	return master, nil
}

func newClipboard() *clipboard.System {
	return clipboard.New(clipboard.WithCommand(cfg.Clipboard.Command))
}

func newGenerator() *generate.Generator {
	return generate.New(generate.WithSymbols(cfg.Generation.Symbols))
}
