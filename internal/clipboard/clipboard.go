// Package clipboard hands passwords to the system clipboard by piping them
// into the platform's copy program: pbcopy on macOS, clip on Windows,
// wl-copy, xclip or xsel elsewhere. A configured argv replaces detection.
package clipboard

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"github.com/forest6511/passctl/pkg/secret"
)

const (
	// copyTimeout bounds how long a copy program may take to read its input.
	copyTimeout = 10 * time.Second

	// waitDelay bounds how long Copy waits for the program's stderr to close
	// after it exits. xclip, xsel and wl-copy leave a child serving the
	// selection that inherits the pipe.
	waitDelay = 2 * time.Second
)

var ErrUnavailable = errors.New("clipboard: no clipboard program found")

// System copies through an external program.
type System struct {
	command  []string
	goos     string
	lookPath func(string) (string, error)
	getenv   func(string) string
}

// Option configures a System clipboard.
type Option func(*System)

// WithCommand uses argv instead of detecting a copy program. The program
// must read the password from stdin.
func WithCommand(argv []string) Option {
	return func(s *System) { s.command = argv }
}

// New creates a System clipboard.
func New(opts ...Option) *System {
	s := &System{
		goos:     runtime.GOOS,
		lookPath: exec.LookPath,
		getenv:   os.Getenv,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Copy writes the secret's bytes to the copy program's stdin. The bytes
// are streamed from the secret's buffer without an intermediate string.
func (s *System) Copy(sec *secret.Secret) error {
	argv, err := s.resolve()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), copyTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Stdin = bytes.NewReader(sec.Expose())
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	cmd.WaitDelay = waitDelay

	if err := cmd.Run(); err != nil && !errors.Is(err, exec.ErrWaitDelay) {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return fmt.Errorf("clipboard: %s failed: %w: %s", argv[0], err, msg)
		}
		return fmt.Errorf("clipboard: %s failed: %w", argv[0], err)
	}
	return nil
}

// PasteShortcut describes the key combination that pastes.
func (s *System) PasteShortcut() string {
	if s.goos == "darwin" {
		return "Cmd+V"
	}
	return "Ctrl+V"
}

// resolve picks the copy program's argv.
func (s *System) resolve() ([]string, error) {
	if len(s.command) > 0 {
		return s.command, nil
	}

	var candidates [][]string
	switch s.goos {
	case "darwin":
		candidates = [][]string{{"pbcopy"}}
	case "windows":
		candidates = [][]string{{"clip"}}
	default:
		if s.getenv("WAYLAND_DISPLAY") != "" {
			candidates = append(candidates, []string{"wl-copy"})
		}
		candidates = append(candidates,
			[]string{"xclip", "-selection", "clipboard"},
			[]string{"xsel", "--clipboard", "--input"},
		)
	}

	for _, argv := range candidates {
		if _, err := s.lookPath(argv[0]); err == nil {
			return argv, nil
		}
	}

	names := make([]string, len(candidates))
	for i, argv := range candidates {
		names[i] = argv[0]
	}
	return nil, fmt.Errorf("%w: install one of %s or set clipboard.command", ErrUnavailable, strings.Join(names, ", "))
}
