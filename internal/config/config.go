// Package config loads passctl settings.
//
// Settings live in <home>/config.yaml, where <home> is $PASSCTL_HOME or
// ~/.passctl. A missing file means defaults. The file may change which
// program receives copied passwords, so it is refused when other users
// can write to it.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/forest6511/passctl/pkg/fuzzy"
	"github.com/forest6511/passctl/pkg/generate"
	"github.com/forest6511/passctl/pkg/secret"
)

const (
	DirName  = ".passctl"
	FileName = "config.yaml"

	EnvHome           = "PASSCTL_HOME"
	EnvLogLevel       = "PASSCTL_LOG_LEVEL"
	EnvMasterPassword = "PASSCTL_MASTER_PASSWORD"
)

var (
	ErrInvalidConfig  = errors.New("config: invalid configuration")
	ErrInsecureConfig = errors.New("config: configuration file is writable by other users")
)

// Config is the content of config.yaml.
type Config struct {
	LogLevel   string           `yaml:"log_level"`
	Generation GenerationConfig `yaml:"generation"`
	Match      MatchConfig      `yaml:"match"`
	Clipboard  ClipboardConfig  `yaml:"clipboard"`
}

// GenerationConfig sets the defaults for generated passwords.
type GenerationConfig struct {
	// Length of generated passwords; 0 means generate.DefaultLength.
	Length int `yaml:"length"`

	// Alnum restricts passwords to [A-Za-z0-9] unless --alnum=false.
	Alnum bool `yaml:"alnum"`

	// Symbols replaces the default symbol set.
	Symbols string `yaml:"symbols"`
}

// MatchConfig tunes fuzzy lookup.
type MatchConfig struct {
	MinScorePerRune int `yaml:"min_score_per_rune"`
}

// ClipboardConfig overrides clipboard detection.
type ClipboardConfig struct {
	// Command is the argv of a program reading the password on stdin.
	Command []string `yaml:"command"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		LogLevel: "warn",
		Generation: GenerationConfig{
			Length:  generate.DefaultLength,
			Symbols: generate.CharsetSymbols,
		},
		Match: MatchConfig{MinScorePerRune: fuzzy.DefaultMinScorePerRune},
	}
}

// HomeDir returns $PASSCTL_HOME, or ~/.passctl when it is unset.
func HomeDir() (string, error) {
	if home := os.Getenv(EnvHome); home != "" {
		return home, nil
	}
	userHome, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("config: failed to get home directory: %w", err)
	}
	return filepath.Join(userHome, DirName), nil
}

// Load reads <home>/config.yaml over the defaults, applies environment
// overrides and validates the result.
func Load(home string) (*Config, error) {
	cfg := Default()

	path := filepath.Join(home, FileName)
	f, err := os.Open(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("config: failed to open %s: %w", path, err)
	default:
		defer f.Close()
		if err := checkPermissions(f); err != nil {
			return nil, err
		}
		dec := yaml.NewDecoder(f)
		dec.KnownFields(true)
		if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: %s: %w", ErrInvalidConfig, path, err)
		}
	}

	if level := os.Getenv(EnvLogLevel); level != "" {
		cfg.LogLevel = level
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func checkPermissions(f *os.File) error {
	if runtime.GOOS == "windows" {
		return nil
	}
	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("config: failed to stat %s: %w", f.Name(), err)
	}
	if perm := info.Mode().Perm(); perm&0022 != 0 {
		return fmt.Errorf("%w: %s has mode %04o", ErrInsecureConfig, f.Name(), perm)
	}
	return nil
}

// Validate reports the first invalid key.
func (c *Config) Validate() error {
	if _, err := parseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("%w: log_level: %w", ErrInvalidConfig, err)
	}
	if l := c.Generation.Length; l != 0 && (l < generate.MinLength || l > generate.MaxLength) {
		return fmt.Errorf("%w: generation.length: %d is outside [%d, %d]",
			ErrInvalidConfig, l, generate.MinLength, generate.MaxLength)
	}
	if _, err := generate.New(generate.WithSymbols(c.Generation.Symbols)).Charset(generate.Spec{}); err != nil {
		return fmt.Errorf("%w: generation.symbols: %w", ErrInvalidConfig, err)
	}
	if c.Match.MinScorePerRune < 1 {
		return fmt.Errorf("%w: match.min_score_per_rune: must be at least 1", ErrInvalidConfig)
	}
	if cmd := c.Clipboard.Command; len(cmd) > 0 && strings.TrimSpace(cmd[0]) == "" {
		return fmt.Errorf("%w: clipboard.command: program name is empty", ErrInvalidConfig)
	}
	return nil
}

// SlogLevel returns the configured log level.
func (c *Config) SlogLevel() slog.Level {
	level, _ := parseLevel(c.LogLevel)
	return level
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelWarn, err
	}
	return level, nil
}

// GenerationSpec returns the configured defaults as a generate.Spec.
func (c *Config) GenerationSpec() generate.Spec {
	length := c.Generation.Length
	if length == 0 {
		length = generate.DefaultLength
	}
	return generate.Spec{AlnumOnly: c.Generation.Alnum, Length: length}
}

// HasMasterPassword reports whether $PASSCTL_MASTER_PASSWORD is set and
// not empty.
func HasMasterPassword() bool {
	return os.Getenv(EnvMasterPassword) != ""
}

// TakeMasterPassword returns $PASSCTL_MASTER_PASSWORD and removes it from
// the environment so child processes never inherit it.
func TakeMasterPassword() (*secret.Secret, bool) {
	value, ok := os.LookupEnv(EnvMasterPassword)
	if !ok {
		return nil, false
	}
	os.Unsetenv(EnvMasterPassword)
	if value == "" {
		return nil, false
	}
	return secret.FromString(value), true
}
