// Package generate produces random passwords straight into secret memory.
package generate

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"math/big"
	"strconv"
	"strings"

	"github.com/forest6511/passctl/pkg/secret"
)

// Character set constants
const (
	CharsetLowercase = "abcdefghijklmnopqrstuvwxyz"
	CharsetUppercase = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	CharsetDigits    = "0123456789"
	CharsetSymbols   = "!@#$%^&*()_+-=[]{}|;:,.<>?"

	MinLength     = 8
	MaxLength     = 256
	DefaultLength = 32

	// MinSymbols is the fewest distinct symbols a configured symbol set
	// may contain.
	MinSymbols = 8

	maxAttempts = 64
)

var (
	ErrGeneration      = errors.New("generate: could not generate password")
	ErrCharsetTooSmall = errors.New("generate: symbol set too small")
)

// Spec describes the password to generate.
type Spec struct {
	AlnumOnly bool
	Length    int
}

// DefaultSpec returns a full-alphabet spec of DefaultLength.
func DefaultSpec() Spec {
	return Spec{Length: DefaultLength}
}

// Normalize returns the spec with Length replaced by DefaultLength when it
// lies outside [MinLength, MaxLength]. normalized reports the replacement.
func (s Spec) Normalize() (spec Spec, normalized bool) {
	if s.Length < MinLength || s.Length > MaxLength {
		s.Length = DefaultLength
		return s, true
	}
	return s, false
}

// NormalizeLength parses a user-supplied length. An empty string yields
// DefaultLength without normalization; anything unparsable or out of
// range yields DefaultLength with normalized set.
func NormalizeLength(raw string) (length int, normalized bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return DefaultLength, false
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return DefaultLength, true
	}
	spec, normalized := Spec{Length: n}.Normalize()
	return spec.Length, normalized
}

// Generator draws passwords from an entropy source.
type Generator struct {
	rand    io.Reader
	symbols string
}

// Option configures a Generator.
type Option func(*Generator)

// WithRand replaces crypto/rand.Reader as the entropy source.
func WithRand(r io.Reader) Option {
	return func(g *Generator) { g.rand = r }
}

// WithSymbols replaces CharsetSymbols for non-alphanumeric passwords.
func WithSymbols(symbols string) Option {
	return func(g *Generator) { g.symbols = symbols }
}

// New creates a Generator.
func New(opts ...Option) *Generator {
	g := &Generator{
		rand:    rand.Reader,
		symbols: CharsetSymbols,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Charset returns the alphabet used for spec.
func (g *Generator) Charset(spec Spec) (string, error) {
	alnum := CharsetLowercase + CharsetUppercase + CharsetDigits
	if spec.AlnumOnly {
		return alnum, nil
	}
	symbols, err := validateSymbols(g.symbols)
	if err != nil {
		return "", err
	}
	return alnum + symbols, nil
}

// Generate returns a new password satisfying spec. The spec is normalized
// first; call Spec.Normalize beforehand to learn whether that happened.
// The password contains a lowercase letter, an uppercase letter, a digit
// and, unless AlnumOnly, a symbol.
func (g *Generator) Generate(spec Spec) (*secret.Secret, error) {
	spec, _ = spec.Normalize()

	charset, err := g.Charset(spec)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrGeneration, err)
	}

	out := secret.New(spec.Length)
	buf := out.Expose()
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if err := g.fill(buf, charset); err != nil {
			out.Close()
			return nil, err
		}
		if hasEveryClass(buf, !spec.AlnumOnly) {
			return out, nil
		}
	}
	out.Close()
	return nil, fmt.Errorf("%w: no password with every character class after %d attempts", ErrGeneration, maxAttempts)
}

func (g *Generator) fill(buf []byte, charset string) error {
	charsetLen := big.NewInt(int64(len(charset)))
	for i := range buf {
		idx, err := rand.Int(g.rand, charsetLen)
		if err != nil {
			return fmt.Errorf("%w: failed to read entropy: %v", ErrGeneration, err)
		}
		buf[i] = charset[idx.Int64()]
	}
	return nil
}

func hasEveryClass(buf []byte, wantSymbol bool) bool {
	var lower, upper, digit, symbol bool
	for _, c := range buf {
		switch {
		case c >= 'a' && c <= 'z':
			lower = true
		case c >= 'A' && c <= 'Z':
			upper = true
		case c >= '0' && c <= '9':
			digit = true
		default:
			symbol = true
		}
	}
	return lower && upper && digit && (symbol || !wantSymbol)
}

// validateSymbols removes duplicates and rejects sets with fewer than
// MinSymbols printable, non-alphanumeric ASCII characters.
func validateSymbols(symbols string) (string, error) {
	seen := make(map[byte]bool)
	var b strings.Builder
	for i := 0; i < len(symbols); i++ {
		c := symbols[i]
		if c <= ' ' || c > '~' || isAlnum(c) {
			return "", fmt.Errorf("%w: %q is not a printable ASCII symbol", ErrCharsetTooSmall, c)
		}
		if seen[c] {
			continue
		}
		seen[c] = true
		b.WriteByte(c)
	}
	if len(seen) < MinSymbols {
		return "", fmt.Errorf("%w: %d distinct symbols, need at least %d", ErrCharsetTooSmall, len(seen), MinSymbols)
	}
	return b.String(), nil
}

func isAlnum(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}
