package command

import (
	"errors"
	"fmt"

	"github.com/forest6511/passctl/internal/prompt"
	"github.com/forest6511/passctl/pkg/generate"
	"github.com/forest6511/passctl/pkg/store"
)

// Errors
var (
	ErrNoMatch           = errors.New("command: no entry matches")
	ErrSelectionCanceled = errors.New("command: selection canceled")
	ErrEmptySecret       = errors.New("command: password must not be empty")
	ErrPersist           = errors.New("command: could not save the vault")
)

// UsageError reports invalid arguments to a command.
type UsageError struct {
	Command string
	Reason  string
}

func (e *UsageError) Error() string {
	return fmt.Sprintf("usage: %s: %s", e.Command, e.Reason)
}

// ErrorCode maps err to the short code written to the audit trail.
func ErrorCode(err error) string {
	var usage *UsageError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &usage):
		return "usage"
	case errors.Is(err, store.ErrDuplicateName):
		return "duplicate_name"
	case errors.Is(err, store.ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrNoMatch):
		return "no_match"
	case errors.Is(err, ErrSelectionCanceled), errors.Is(err, prompt.ErrCanceled):
		return "selection_canceled"
	case errors.Is(err, ErrEmptySecret):
		return "empty_secret"
	case errors.Is(err, generate.ErrGeneration):
		return "generation_failed"
	case errors.Is(err, ErrPersist):
		return "persist_failed"
	}
	return "error"
}
