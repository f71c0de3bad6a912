package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forest6511/passctl/pkg/fuzzy"
	"github.com/forest6511/passctl/pkg/generate"
)

func writeConfig(t *testing.T, content string, mode os.FileMode) string {
	t.Helper()
	home := t.TempDir()
	path := filepath.Join(home, FileName)
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	require.NoError(t, os.Chmod(path, mode))
	return home
}

func TestLoad_MissingFileGivesDefaults(t *testing.T) {
	t.Setenv(EnvLogLevel, "")

	cfg, err := Load(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, slog.LevelWarn, cfg.SlogLevel())
	assert.Equal(t, generate.DefaultSpec(), cfg.GenerationSpec())
	assert.Equal(t, fuzzy.DefaultMinScorePerRune, cfg.Match.MinScorePerRune)
}

func TestLoad_File(t *testing.T) {
	t.Setenv(EnvLogLevel, "")
	home := writeConfig(t, `
log_level: info
generation:
  length: 20
  alnum: true
  symbols: "!@#$%^&*"
match:
  min_score_per_rune: 4
clipboard:
  command: ["wl-copy", "--trim-newline"]
`, 0600)

	cfg, err := Load(home)
	require.NoError(t, err)
	assert.Equal(t, slog.LevelInfo, cfg.SlogLevel())
	assert.Equal(t, generate.Spec{AlnumOnly: true, Length: 20}, cfg.GenerationSpec())
	assert.Equal(t, "!@#$%^&*", cfg.Generation.Symbols)
	assert.Equal(t, 4, cfg.Match.MinScorePerRune)
	assert.Equal(t, []string{"wl-copy", "--trim-newline"}, cfg.Clipboard.Command)
}

func TestLoad_PartialFileKeepsOtherDefaults(t *testing.T) {
	t.Setenv(EnvLogLevel, "")
	home := writeConfig(t, "generation:\n  alnum: true\n", 0600)

	cfg, err := Load(home)
	require.NoError(t, err)
	assert.True(t, cfg.Generation.Alnum)
	assert.Equal(t, generate.DefaultLength, cfg.Generation.Length)
	assert.Equal(t, generate.CharsetSymbols, cfg.Generation.Symbols)
}

func TestLoad_EmptyFile(t *testing.T) {
	t.Setenv(EnvLogLevel, "")
	home := writeConfig(t, "", 0600)

	cfg, err := Load(home)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_EnvOverridesLogLevel(t *testing.T) {
	t.Setenv(EnvLogLevel, "debug")
	home := writeConfig(t, "log_level: error\n", 0600)

	cfg, err := Load(home)
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, cfg.SlogLevel())
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantKey string
	}{
		{"unknown key", "colour: red\n", "colour"},
		{"bad yaml", "generation: [\n", "config.yaml"},
		{"length too short", "generation:\n  length: 4\n", "generation.length"},
		{"length too long", "generation:\n  length: 1000\n", "generation.length"},
		{"few symbols", "generation:\n  symbols: \"!@\"\n", "generation.symbols"},
		{"zero score", "match:\n  min_score_per_rune: 0\n", "match.min_score_per_rune"},
		{"empty program", "clipboard:\n  command: [\"\"]\n", "clipboard.command"},
		{"bad level", "log_level: loud\n", "log_level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(EnvLogLevel, "")
			home := writeConfig(t, tt.content, 0600)

			_, err := Load(home)
			require.ErrorIs(t, err, ErrInvalidConfig)
			assert.Contains(t, err.Error(), tt.wantKey)
		})
	}
}

func TestLoad_RejectsWorldWritableFile(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("permission bits are not enforced on windows")
	}
	t.Setenv(EnvLogLevel, "")
	home := writeConfig(t, "log_level: info\n", 0666)

	_, err := Load(home)
	assert.ErrorIs(t, err, ErrInsecureConfig)
}

func TestHomeDir(t *testing.T) {
	t.Setenv(EnvHome, "/tmp/passctl-test-home")
	home, err := HomeDir()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/passctl-test-home", home)

	t.Setenv(EnvHome, "")
	home, err = HomeDir()
	require.NoError(t, err)
	assert.Equal(t, DirName, filepath.Base(home))
}

func TestTakeMasterPassword(t *testing.T) {
	t.Setenv(EnvMasterPassword, "hunter2 hunter2")
	assert.True(t, HasMasterPassword())

	master, ok := TakeMasterPassword()
	require.True(t, ok)
	defer master.Close()
	assert.Equal(t, "hunter2 hunter2", master.Reveal())

	_, present := os.LookupEnv(EnvMasterPassword)
	assert.False(t, present, "variable is removed from the environment")
	assert.False(t, HasMasterPassword())

	_, ok = TakeMasterPassword()
	assert.False(t, ok)
}
