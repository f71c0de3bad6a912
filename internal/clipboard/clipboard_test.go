package clipboard

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/forest6511/passctl/pkg/secret"
)

func requireShell(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("test uses sh")
	}
}

func TestCopy_PipesSecretToCommand(t *testing.T) {
	requireShell(t)
	out := filepath.Join(t.TempDir(), "clipboard")
	c := New(WithCommand([]string{"sh", "-c", "cat > " + out}))

	s := secret.FromString("p@ss w0rd!")
	defer s.Close()
	if err := c.Copy(s); err != nil {
		t.Fatalf("Copy failed: %v", err)
	}

	got, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("failed to read output: %v", err)
	}
	if string(got) != "p@ss w0rd!" {
		t.Errorf("clipboard received %q", got)
	}
}

func TestCopy_ReturnsWhileChildHoldsStderr(t *testing.T) {
	requireShell(t)
	out := filepath.Join(t.TempDir(), "clipboard")
	c := New(WithCommand([]string{"sh", "-c", "cat > " + out + "; sleep 30 &"}))

	s := secret.FromString("hunter2")
	defer s.Close()

	start := time.Now()
	if err := c.Copy(s); err != nil {
		t.Fatalf("Copy failed: %v", err)
	}
	if elapsed := time.Since(start); elapsed > waitDelay+3*time.Second {
		t.Errorf("Copy took %v, want it to return shortly after the program exits", elapsed)
	}

	got, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("failed to read output: %v", err)
	}
	if string(got) != "hunter2" {
		t.Errorf("clipboard received %q", got)
	}
}

func TestCopy_CommandFailure(t *testing.T) {
	requireShell(t)
	c := New(WithCommand([]string{"sh", "-c", "echo no display >&2; exit 1"}))

	s := secret.FromString("x")
	defer s.Close()
	err := c.Copy(s)
	if err == nil {
		t.Fatal("expected error")
	}
	if want := "no display"; !strings.Contains(err.Error(), want) {
		t.Errorf("error %q should include the program's stderr", err)
	}
}

func TestCopy_Unavailable(t *testing.T) {
	c := New()
	c.goos = "linux"
	c.getenv = func(string) string { return "" }
	c.lookPath = func(string) (string, error) { return "", errors.New("not found") }

	s := secret.FromString("x")
	defer s.Close()
	if err := c.Copy(s); !errors.Is(err, ErrUnavailable) {
		t.Errorf("expected ErrUnavailable, got %v", err)
	}
}

func TestResolve(t *testing.T) {
	tests := []struct {
		name      string
		goos      string
		wayland   string
		installed []string
		want      []string
	}{
		{"darwin", "darwin", "", []string{"pbcopy"}, []string{"pbcopy"}},
		{"windows", "windows", "", []string{"clip"}, []string{"clip"}},
		{"x11 prefers xclip", "linux", "", []string{"xclip", "xsel"}, []string{"xclip", "-selection", "clipboard"}},
		{"x11 falls back to xsel", "linux", "", []string{"xsel"}, []string{"xsel", "--clipboard", "--input"}},
		{"wayland", "linux", "wayland-0", []string{"wl-copy", "xclip"}, []string{"wl-copy"}},
		{"wayland without wl-copy", "linux", "wayland-0", []string{"xclip"}, []string{"xclip", "-selection", "clipboard"}},
		{"bsd", "freebsd", "", []string{"xsel"}, []string{"xsel", "--clipboard", "--input"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New()
			c.goos = tt.goos
			c.getenv = func(string) string { return tt.wayland }
			c.lookPath = func(name string) (string, error) {
				for _, installed := range tt.installed {
					if installed == name {
						return "/usr/bin/" + name, nil
					}
				}
				return "", errors.New("not found")
			}

			got, err := c.resolve()
			if err != nil {
				t.Fatalf("resolve failed: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("resolve() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestResolve_ConfiguredCommandWins(t *testing.T) {
	c := New(WithCommand([]string{"my-copy", "--quiet"}))
	c.lookPath = func(string) (string, error) { return "", errors.New("not found") }

	got, err := c.resolve()
	if err != nil || !reflect.DeepEqual(got, []string{"my-copy", "--quiet"}) {
		t.Errorf("resolve() = %v, %v", got, err)
	}
}

func TestPasteShortcut(t *testing.T) {
	c := New()
	c.goos = "darwin"
	if got := c.PasteShortcut(); got != "Cmd+V" {
		t.Errorf("darwin shortcut = %q", got)
	}
	c.goos = "linux"
	if got := c.PasteShortcut(); got != "Ctrl+V" {
		t.Errorf("linux shortcut = %q", got)
	}
}
