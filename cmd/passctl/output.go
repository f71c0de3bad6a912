package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/forest6511/passctl/internal/command"
	"github.com/forest6511/passctl/pkg/generate"
	"github.com/forest6511/passctl/pkg/store"
	"github.com/forest6511/passctl/pkg/vault"
)

// userMessage turns an error into the line shown on stderr.
func userMessage(err error) string {
	var usage *command.UsageError
	switch {
	case errors.As(err, &usage):
		return fmt.Sprintf("Woops, %s. Run `passctl %s --help` for usage.", usage.Reason, usage.Command)
	case errors.Is(err, store.ErrDuplicateName):
		return "Woops, there is already an app with that name."
	case errors.Is(err, command.ErrNoMatch):
		return "Woops, I could not find any password matching that name."
	case errors.Is(err, command.ErrSelectionCanceled):
		return "Alright, I won't touch anything then."
	case errors.Is(err, command.ErrEmptySecret):
		return "Woops, the password cannot be empty."
	case errors.Is(err, generate.ErrGeneration):
		return fmt.Sprintf("Woops, I could not generate the password (reason: %s).", reason(err, generate.ErrGeneration))
	case errors.Is(err, command.ErrPersist):
		return fmt.Sprintf("Woops, I couldn't save the new password (reason: %s).", reason(err, command.ErrPersist))
	case errors.Is(err, vault.ErrCooldownActive):
		return fmt.Sprintf("Woops, too many wrong master passwords, %s.", reason(err, vault.ErrCooldownActive))
	case errors.Is(err, vault.ErrVaultNotFound):
		return "Woops, there is no vault here yet. Run `passctl init` first."
	}
	return fmt.Sprintf("Woops, %v.", err)
}

// reason strips the sentinel's own text from err, leaving the cause.
func reason(err, sentinel error) string {
	msg := err.Error()
	if i := strings.Index(msg, sentinel.Error()+": "); i >= 0 {
		return msg[i+len(sentinel.Error())+2:]
	}
	return msg
}

// exactArgs rejects a wrong argument count with a UsageError.
func exactArgs(n int) cobra.PositionalArgs {
	return rangeArgs(n, n)
}

// rangeArgs rejects an argument count outside [lo, hi] with a
// UsageError.
func rangeArgs(lo, hi int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) >= lo && len(args) <= hi {
			return nil
		}
		reason := fmt.Sprintf("expected %d to %d arguments, got %d", lo, hi, len(args))
		if lo == hi {
			reason = fmt.Sprintf("expected %d arguments, got %d", lo, len(args))
		}
		return &command.UsageError{Command: cmd.Name(), Reason: reason}
	}
}

// report tells the user where their password went.
func report(out command.Outcome) error {
	if out.LengthNormalized {
		printer.Error("The length you asked for is outside [%d, %d], so I used %d characters.",
			generate.MinLength, generate.MaxLength, generate.DefaultLength)
	}

	switch {
	case out.Reveal != nil:
		printer.OK("Alright! Here is your password:")
		if _, err := out.Reveal.WriteTo(printer.Stdout()); err != nil {
			return fmt.Errorf("failed to print password: %w", err)
		}
		printer.Line("")
	case out.Copied && out.Mutated:
		printer.OK("Alright! I've saved your new password. You can paste it anywhere with %s.", out.PasteKeys)
	case out.Copied:
		printer.OK("Alright! You can paste your %s password anywhere with %s.", out.Entry.Name, out.PasteKeys)
	case out.Mutated:
		logger.Debug("clipboard copy failed", "error", out.ClipboardErr)
		printer.Error("Hmm, I tried to copy your new password to your clipboard, but something went wrong. "+
			"Don't worry, it's saved, and you can see it with `passctl get %s --show`.", out.Entry.Name)
	default:
		logger.Debug("clipboard copy failed", "error", out.ClipboardErr)
		printer.Error("Hmm, I couldn't copy the password to your clipboard (%v). "+
			"You can see it with `passctl get %s --show`.", out.ClipboardErr, out.Entry.Name)
	}
	return nil
}
