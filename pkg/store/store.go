// Package store holds the decrypted password entries of one command run.
//
// A Store owns every entry's secret. Entries returned by Get, FindAll and
// All are borrowed views: their Secret pointer stays valid until the
// entry is replaced through Update or the Store is closed.
//
// Update is the only way to change an existing entry. It is all or
// nothing: either the transformed entry replaces the old one, or an error
// is returned and the store is exactly as before.
package store

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/forest6511/passctl/pkg/fuzzy"
	"github.com/forest6511/passctl/pkg/secret"
)

// Errors
var (
	ErrDuplicateName = errors.New("store: an entry with that name already exists")
	ErrNotFound      = errors.New("store: entry not found")
	ErrInvalidEntry  = errors.New("store: invalid entry")
	ErrInvalidUpdate = errors.New("store: update would break entry invariants")
)

// Entry is a named password.
type Entry struct {
	Name      string
	Username  string
	Secret    *secret.Secret
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Candidate is an entry found by FindAll.
type Candidate struct {
	Entry Entry
	Score int
	Exact bool
}

// Store is an ordered collection of entries with unique names.
type Store struct {
	mu      sync.RWMutex
	entries []Entry
	index   map[string]int
	matcher *fuzzy.Matcher
}

// Option configures a Store.
type Option func(*Store)

// WithMatcher sets the matcher used by FindAll.
func WithMatcher(m *fuzzy.Matcher) Option {
	return func(s *Store) { s.matcher = m }
}

// New creates an empty store.
func New(opts ...Option) *Store {
	s := &Store{index: make(map[string]int)}
	for _, opt := range opts {
		opt(s)
	}
	if s.matcher == nil {
		s.matcher = fuzzy.New()
	}
	return s
}

// Has reports whether an entry with exactly this name exists.
func (s *Store) Has(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.index[name]
	return ok
}

// Add appends entry. The store takes ownership of entry.Secret on success;
// on error the caller keeps it.
func (s *Store) Add(entry Entry) error {
	if err := validate(entry); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.index[entry.Name]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicateName, entry.Name)
	}
	s.index[entry.Name] = len(s.entries)
	s.entries = append(s.entries, entry)
	return nil
}

// Get returns the entry with exactly this name.
func (s *Store) Get(name string) (Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i, ok := s.index[name]
	if !ok {
		return Entry{}, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	return s.entries[i], nil
}

// FindAll returns the entries whose names match query, best match first.
// See package fuzzy for the ranking rules.
func (s *Store) FindAll(query string) []Candidate {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, len(s.entries))
	for i, e := range s.entries {
		names[i] = e.Name
	}

	matches := s.matcher.Rank(query, names)
	candidates := make([]Candidate, 0, len(matches))
	for _, m := range matches {
		candidates = append(candidates, Candidate{
			Entry: s.entries[m.Index],
			Score: m.Score,
			Exact: m.Exact,
		})
	}
	return candidates
}

// Update replaces the entry named name with transform(entry).
//
// The result must keep CreatedAt, must not move UpdatedAt backwards, and
// must not take the name of another entry. When the result carries a new
// Secret, the old one is wiped and the store owns the new one. transform
// runs with the store locked and must not call back into it.
func (s *Store) Update(name string, transform func(Entry) Entry) (Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.index[name]
	if !ok {
		return Entry{}, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	old := s.entries[i]

	updated := transform(old)
	if err := validate(updated); err != nil {
		return Entry{}, fmt.Errorf("%w: %w", ErrInvalidUpdate, err)
	}
	if !updated.CreatedAt.Equal(old.CreatedAt) {
		return Entry{}, fmt.Errorf("%w: created_at changed", ErrInvalidUpdate)
	}
	if updated.UpdatedAt.Before(old.UpdatedAt) {
		return Entry{}, fmt.Errorf("%w: updated_at moved backwards", ErrInvalidUpdate)
	}
	if updated.Name != name {
		if _, taken := s.index[updated.Name]; taken {
			return Entry{}, fmt.Errorf("%w: %q", ErrDuplicateName, updated.Name)
		}
	}

	s.entries[i] = updated
	if updated.Name != name {
		delete(s.index, name)
		s.index[updated.Name] = i
	}
	if old.Secret != updated.Secret {
		_ = old.Secret.Close()
	}
	return updated, nil
}

// All returns every entry in insertion order.
func (s *Store) All() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

// Len returns the number of entries.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Close wipes every secret and empties the store.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var errs []error
	for _, e := range s.entries {
		if err := e.Secret.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	s.entries = nil
	s.index = make(map[string]int)
	return errors.Join(errs...)
}

func validate(e Entry) error {
	switch {
	case e.Name == "":
		return fmt.Errorf("%w: empty name", ErrInvalidEntry)
	case e.Secret == nil:
		return fmt.Errorf("%w: %q has no secret", ErrInvalidEntry, e.Name)
	case e.UpdatedAt.Before(e.CreatedAt):
		return fmt.Errorf("%w: %q updated before it was created", ErrInvalidEntry, e.Name)
	}
	return nil
}
