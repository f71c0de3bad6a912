// Package importer reads login items from other password managers'
// exports: 1Password CSV, Bitwarden JSON and LastPass CSV.
//
// Only what an entry can hold is kept: a name, a username and a
// password. Items without a password (secure notes, cards, identities)
// are reported as skipped. Names are Unicode-normalized and made unique
// within one import by appending " (2)", " (3)" and so on.
package importer

import (
	"bytes"
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/forest6511/passctl/pkg/secret"
)

// Source is the password manager an export comes from.
type Source string

const (
	Source1Password Source = "1password"
	SourceBitwarden Source = "bitwarden"
	SourceLastPass  Source = "lastpass"
)

var (
	ErrUnsupportedSource = errors.New("importer: unsupported import source")
	ErrInvalidExport     = errors.New("importer: invalid export file")
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Record is one importable login.
type Record struct {
	Name         string
	OriginalName string
	Username     string
	URL          string
	Password     *secret.Secret
}

// Skipped is an item that was not imported.
type Skipped struct {
	OriginalName string
	Reason       string
}

// Result is what a parser found.
type Result struct {
	Records  []Record
	Warnings []string
	Skipped  []Skipped
}

// Close wipes every record's password.
func (r *Result) Close() {
	for _, rec := range r.Records {
		if rec.Password != nil {
			rec.Password.Close()
		}
	}
}

// Parser reads one export format.
type Parser interface {
	Parse(data []byte) (*Result, error)
	Source() Source
}

// ParserFor returns the parser for source.
func ParserFor(source Source) (Parser, error) {
	switch source {
	case Source1Password:
		return &OnePasswordParser{}, nil
	case SourceBitwarden:
		return &BitwardenParser{}, nil
	case SourceLastPass:
		return &LastPassParser{}, nil
	default:
		return nil, fmt.Errorf("%w: %q (valid: %s)", ErrUnsupportedSource, source, strings.Join(Sources(), ", "))
	}
}

// Sources lists the valid source names.
func Sources() []string {
	return []string{string(Source1Password), string(SourceBitwarden), string(SourceLastPass)}
}

// Detect guesses the source of an export from its file name and header.
func Detect(path string, data []byte) (Source, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	if strings.EqualFold(filepath.Ext(path), ".json") || bytes.HasPrefix(bytes.TrimSpace(data), []byte("{")) {
		return SourceBitwarden, nil
	}

	header, _, _ := bytes.Cut(data, []byte("\n"))
	columns := strings.Split(strings.TrimSpace(string(header)), ",")
	has := func(name string) bool {
		for _, c := range columns {
			if strings.EqualFold(strings.Trim(c, `" `), name) {
				return true
			}
		}
		return false
	}
	switch {
	case has("grouping") || has("extra"):
		return SourceLastPass, nil
	case has("title"):
		return Source1Password, nil
	}
	return "", fmt.Errorf("%w: cannot tell the format of %s, use --format", ErrInvalidExport, filepath.Base(path))
}

// builder accumulates records, naming and deduplicating them.
type builder struct {
	result  *Result
	seen    map[string]int
	unnamed int
}

func newBuilder() *builder {
	return &builder{result: &Result{}, seen: make(map[string]int)}
}

// add turns one login into a record. location prefixes warnings, e.g.
// "row 3".
func (b *builder) add(location, name, username, rawURL, password string) {
	original := name
	name = normalize(name)
	if name == "" {
		b.unnamed++
		name = fallbackName(rawURL, b.unnamed)
		b.result.Warnings = append(b.result.Warnings,
			fmt.Sprintf("%s: no name, imported as %q", location, name))
	}

	if password == "" {
		b.result.Skipped = append(b.result.Skipped, Skipped{OriginalName: original, Reason: "no password"})
		return
	}

	b.seen[name]++
	if n := b.seen[name]; n > 1 {
		renamed := fmt.Sprintf("%s (%d)", name, n)
		b.result.Warnings = append(b.result.Warnings,
			fmt.Sprintf("%s: duplicate name %q, imported as %q", location, name, renamed))
		name = renamed
	}

	b.result.Records = append(b.result.Records, Record{
		Name:         name,
		OriginalName: original,
		Username:     strings.TrimSpace(username),
		URL:          strings.TrimSpace(rawURL),
		Password:     secret.FromString(password),
	})
}

func (b *builder) warn(format string, args ...any) {
	b.result.Warnings = append(b.result.Warnings, fmt.Sprintf(format, args...))
}

func (b *builder) skip(name, reason string) {
	b.result.Skipped = append(b.result.Skipped, Skipped{OriginalName: name, Reason: reason})
}

// normalize trims and NFC-normalizes a name.
func normalize(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}

// fallbackName names an item without a title after its website, or
// "Imported item N".
func fallbackName(rawURL string, n int) string {
	if host := hostname(rawURL); host != "" {
		return host
	}
	return fmt.Sprintf("Imported item %d", n)
}

func hostname(rawURL string) string {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return ""
	}
	if !strings.Contains(rawURL, "://") {
		rawURL = "https://" + rawURL
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	host := strings.TrimPrefix(u.Hostname(), "www.")
	if host == "sn" {
		// LastPass marks secure notes with http://sn.
		return ""
	}
	return host
}
