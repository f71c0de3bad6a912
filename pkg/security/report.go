package security

import (
	"fmt"
	"time"

	"github.com/forest6511/passctl/internal/clock"
	"github.com/forest6511/passctl/pkg/crypto"
	"github.com/forest6511/passctl/pkg/store"
)

// DefaultStaleAfter is how long a password may stay unchanged before it
// is reported.
const DefaultStaleAfter = 365 * 24 * time.Hour

// Component weights; they add up to 100.
const (
	maxStrength   = 40
	maxUniqueness = 40
	maxFreshness  = 20
)

// IssueType identifies the kind of problem.
type IssueType string

const (
	IssueWeak   IssueType = "weak"
	IssueReused IssueType = "reused"
	IssueStale  IssueType = "stale"
)

// Severity indicates the urgency of an issue.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityWarning  Severity = "warning"
	SeverityInfo     Severity = "info"
)

// Issue is one problem found in the store.
type Issue struct {
	Type        IssueType
	Severity    Severity
	Names       []string
	Description string
}

// Components breaks the score down by category.
type Components struct {
	Strength   int // 0-40
	Uniqueness int // 0-40
	Freshness  int // 0-20
}

// Report is the assessment of a store.
type Report struct {
	Score       int
	Components  Components
	Entries     int
	Issues      []Issue
	Suggestions []string
}

// Analyzer builds reports.
type Analyzer struct {
	clock      clock.Clock
	staleAfter time.Duration
	key        []byte
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithClock sets the clock that decides which passwords are stale.
func WithClock(c clock.Clock) Option {
	return func(a *Analyzer) { a.clock = c }
}

// WithStaleAfter overrides DefaultStaleAfter.
func WithStaleAfter(d time.Duration) Option {
	return func(a *Analyzer) { a.staleAfter = d }
}

// New creates an Analyzer with a fresh random key for duplicate
// detection.
func New(opts ...Option) (*Analyzer, error) {
	key, err := crypto.RandomBytes(crypto.KeyLength)
	if err != nil {
		return nil, fmt.Errorf("security: failed to generate key: %w", err)
	}
	a := &Analyzer{
		clock:      clock.Real(),
		staleAfter: DefaultStaleAfter,
		key:        key,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Analyze grades every entry. An empty store scores 100.
func (a *Analyzer) Analyze(entries []store.Entry) *Report {
	r := &Report{Entries: len(entries)}
	if len(entries) == 0 {
		r.Score = maxStrength + maxUniqueness + maxFreshness
		r.Components = Components{Strength: maxStrength, Uniqueness: maxUniqueness, Freshness: maxFreshness}
		return r
	}

	r.Components.Strength = a.strength(entries, r)
	r.Components.Uniqueness = a.uniqueness(entries, r)
	r.Components.Freshness = a.freshness(entries, r)
	r.Score = r.Components.Strength + r.Components.Uniqueness + r.Components.Freshness
	r.Suggestions = suggestions(r.Issues)
	return r
}

func (a *Analyzer) strength(entries []store.Entry, r *Report) int {
	total := 0
	for _, e := range entries {
		s := PasswordStrength(e.Secret.Expose())
		total += s.Points()
		if s == Weak {
			r.Issues = append(r.Issues, Issue{
				Type:        IssueWeak,
				Severity:    SeverityCritical,
				Names:       []string{e.Name},
				Description: fmt.Sprintf("password is weak (%d characters)", e.Secret.Len()),
			})
		}
	}
	return total / len(entries)
}

func (a *Analyzer) uniqueness(entries []store.Entry, r *Report) int {
	reused := 0
	for _, group := range a.Duplicates(entries) {
		reused += len(group.Names) - 1
		r.Issues = append(r.Issues, Issue{
			Type:        IssueReused,
			Severity:    SeverityWarning,
			Names:       group.Names,
			Description: fmt.Sprintf("%d entries share the same password", len(group.Names)),
		})
	}
	unique := len(entries) - reused
	return unique * maxUniqueness / len(entries)
}

func (a *Analyzer) freshness(entries []store.Entry, r *Report) int {
	now := a.clock.Now()
	fresh := 0
	for _, e := range entries {
		age := now.Sub(e.UpdatedAt)
		if age < a.staleAfter {
			fresh++
			continue
		}
		r.Issues = append(r.Issues, Issue{
			Type:        IssueStale,
			Severity:    SeverityInfo,
			Names:       []string{e.Name},
			Description: fmt.Sprintf("password unchanged for %d days", int(age.Hours()/24)),
		})
	}
	return fresh * maxFreshness / len(entries)
}

func suggestions(issues []Issue) []string {
	var weak, reused, stale bool
	for _, issue := range issues {
		switch issue.Type {
		case IssueWeak:
			weak = true
		case IssueReused:
			reused = true
		case IssueStale:
			stale = true
		}
	}

	var out []string
	if weak {
		out = append(out, "Regenerate weak passwords with `passctl regenerate <name>`")
	}
	if reused {
		out = append(out, "Give every app its own password; regenerate all but one of each reused group")
	}
	if stale {
		out = append(out, "Rotate passwords you have not changed in a year")
	}
	return out
}
