// Package prompt reads interactive input: passwords without echo when
// stdin is a terminal, and numbered choices between ambiguous matches.
// Prompts go to the given writer (stderr in the CLI) so that stdout stays
// clean for piping.
package prompt

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/term"

	"github.com/forest6511/passctl/pkg/secret"
)

var (
	ErrNoInput  = errors.New("prompt: no input")
	ErrCanceled = errors.New("prompt: selection canceled")
)

// Terminal reads from one input stream. Piped input is read line by line.
type Terminal struct {
	in     io.Reader
	out    io.Writer
	reader *bufio.Reader

	fd    int
	isTTY bool
}

// NewTerminal creates a Terminal reading in and prompting on out.
func NewTerminal(in io.Reader, out io.Writer) *Terminal {
	t := &Terminal{in: in, out: out, fd: -1}
	if f, ok := in.(*os.File); ok {
		t.fd = int(f.Fd())
		t.isTTY = term.IsTerminal(t.fd)
	}
	return t
}

// IsTerminal reports whether input comes from an interactive terminal.
func (t *Terminal) IsTerminal() bool { return t.isTTY }

// ReadSecret prints prompt and reads a password into secret memory. An
// empty line yields an empty secret; end of input before any byte yields
// ErrNoInput.
func (t *Terminal) ReadSecret(prompt string) (*secret.Secret, error) {
	fmt.Fprint(t.out, prompt)

	if t.isTTY {
		raw, err := term.ReadPassword(t.fd)
		fmt.Fprintln(t.out)
		if err != nil {
			secret.Wipe(raw)
			return nil, fmt.Errorf("prompt: failed to read password: %w", err)
		}
		return secret.FromBytes(raw), nil
	}

	line, err := t.readLine()
	if err != nil {
		return nil, err
	}
	return secret.FromBytes(line), nil
}

// ReadLine prints prompt and reads one line of plain input.
func (t *Terminal) ReadLine(prompt string) (string, error) {
	fmt.Fprint(t.out, prompt)
	line, err := t.readLine()
	if err != nil {
		return "", err
	}
	return string(line), nil
}

// readLine returns the next line without its line ending. The returned
// slice is a fresh copy the caller may wipe.
func (t *Terminal) readLine() ([]byte, error) {
	if t.reader == nil {
		t.reader = bufio.NewReader(t.in)
	}

	line, err := t.reader.ReadBytes('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		secret.Wipe(line)
		return nil, fmt.Errorf("prompt: failed to read input: %w", err)
	}
	if errors.Is(err, io.EOF) && len(line) == 0 {
		return nil, ErrNoInput
	}

	trimmed := bytes.TrimSuffix(line, []byte("\n"))
	trimmed = bytes.TrimSuffix(trimmed, []byte("\r"))
	if len(trimmed) < len(line) {
		secret.Wipe(line[len(trimmed):])
	}
	return trimmed, nil
}
