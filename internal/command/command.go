// Package command runs the password workflows: add, regenerate, get and
// list. A Runner works on one decrypted store and talks to the outside
// world only through the collaborator interfaces below, so each workflow
// can be exercised without a terminal, a clipboard or a vault.
//
// Mutating workflows have a single commit point: the store mutation
// followed by Persister.Save. Everything that can fail (argument checks,
// resolution, prompting, generation) happens before it. The clipboard is
// touched only after the commit, and a clipboard failure is reported in
// the Outcome rather than as an error.
package command

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/forest6511/passctl/internal/clock"
	"github.com/forest6511/passctl/pkg/audit"
	"github.com/forest6511/passctl/pkg/generate"
	"github.com/forest6511/passctl/pkg/secret"
	"github.com/forest6511/passctl/pkg/store"
)

// Chooser titles.
const (
	TitleRegenerate = "Which password would you like to regenerate?"
	TitleGet        = "Which password would you like to see?"
)

// Prompter reads a password typed by the user.
type Prompter interface {
	ReadSecret(prompt string) (*secret.Secret, error)
}

// Chooser asks the user to pick one option and returns its index.
type Chooser interface {
	Choose(title string, options []string) (int, error)
}

// Clipboard receives passwords that are not shown.
type Clipboard interface {
	Copy(s *secret.Secret) error
	PasteShortcut() string
}

// Persister writes the store to durable storage.
type Persister interface {
	Save(ctx context.Context, s *store.Store) error
}

// Recorder writes an audit record. Failures are the recorder's concern.
type Recorder interface {
	Record(op, name string, err error)
}

// Generator produces new passwords.
type Generator interface {
	Generate(spec generate.Spec) (*secret.Secret, error)
}

// Deps are the Runner's collaborators. Clock, Generator, Persister and
// Recorder have defaults; the others must be set for the workflows that
// use them.
type Deps struct {
	Prompter  Prompter
	Chooser   Chooser
	Clipboard Clipboard
	Clock     clock.Clock
	Persister Persister
	Recorder  Recorder
	Generator Generator
}

// Outcome describes what a workflow did.
type Outcome struct {
	Entry store.Entry

	// Reveal is set when the caller asked to see the password. It is
	// owned by the store.
	Reveal *secret.Secret

	Copied       bool
	ClipboardErr error
	PasteKeys    string

	LengthNormalized bool
	Mutated          bool
}

// Runner executes workflows against one store.
type Runner struct {
	store *store.Store
	deps  Deps
}

// New creates a Runner for s.
func New(s *store.Store, deps Deps) *Runner {
	if deps.Clock == nil {
		deps.Clock = clock.Real()
	}
	if deps.Generator == nil {
		deps.Generator = generate.New()
	}
	if deps.Persister == nil {
		deps.Persister = nopPersister{}
	}
	if deps.Recorder == nil {
		deps.Recorder = nopRecorder{}
	}
	return &Runner{store: s, deps: deps}
}

// Add prompts for the password of a new entry and saves it.
func (r *Runner) Add(ctx context.Context, name, username string, show bool) (Outcome, error) {
	if strings.TrimSpace(name) == "" {
		return Outcome{}, &UsageError{Command: "add", Reason: "the name must not be empty"}
	}
	if strings.TrimSpace(username) == "" {
		return Outcome{}, &UsageError{Command: "add", Reason: "the username must not be empty"}
	}
	if r.store.Has(name) {
		return Outcome{}, fmt.Errorf("%w: %q", store.ErrDuplicateName, name)
	}

	password, err := r.deps.Prompter.ReadSecret(fmt.Sprintf("What password do you want for %q? ", name))
	if err != nil {
		return Outcome{}, fmt.Errorf("command: failed to read password: %w", err)
	}
	if password.Len() == 0 {
		password.Close()
		return Outcome{}, ErrEmptySecret
	}

	now := r.deps.Clock.Now()
	entry := store.Entry{
		Name:      name,
		Username:  username,
		Secret:    password,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := r.store.Add(entry); err != nil {
		password.Close()
		return Outcome{}, err
	}

	if err := r.persist(ctx); err != nil {
		r.deps.Recorder.Record(audit.OpEntryAdd, name, err)
		return Outcome{}, err
	}
	r.deps.Recorder.Record(audit.OpEntryAdd, name, nil)

	return r.deliver(Outcome{Entry: entry, Mutated: true}, show), nil
}

// Regenerate replaces the password of the entry matching query with a
// generated one. Generation happens before the store is touched, so a
// generation failure leaves the entry as it was.
func (r *Runner) Regenerate(ctx context.Context, query string, spec generate.Spec, show bool) (Outcome, error) {
	entry, err := r.resolve("regenerate", query, TitleRegenerate)
	if err != nil {
		return Outcome{}, err
	}

	spec, normalized := spec.Normalize()
	fresh, err := r.deps.Generator.Generate(spec)
	if err != nil {
		r.deps.Recorder.Record(audit.OpEntryRegenerate, entry.Name, err)
		return Outcome{}, err
	}

	now := r.deps.Clock.Now()
	updated, err := r.store.Update(entry.Name, func(e store.Entry) store.Entry {
		e.Secret = fresh
		e.UpdatedAt = latest(now, e.UpdatedAt)
		return e
	})
	if err != nil {
		fresh.Close()
		return Outcome{}, err
	}

	if err := r.persist(ctx); err != nil {
		r.deps.Recorder.Record(audit.OpEntryRegenerate, entry.Name, err)
		return Outcome{}, err
	}
	r.deps.Recorder.Record(audit.OpEntryRegenerate, entry.Name, nil)

	out := Outcome{Entry: updated, LengthNormalized: normalized, Mutated: true}
	return r.deliver(out, show), nil
}

// Get shows or copies the password of the entry matching query.
func (r *Runner) Get(query string, show bool) (Outcome, error) {
	entry, err := r.resolve("get", query, TitleGet)
	if err != nil {
		return Outcome{}, err
	}
	r.deps.Recorder.Record(audit.OpEntryGet, entry.Name, nil)
	return r.deliver(Outcome{Entry: entry}, show), nil
}

// List returns every entry, or the entries matching query best first.
// Secrets stay in the store.
func (r *Runner) List(query string) []store.Entry {
	if strings.TrimSpace(query) == "" {
		return r.store.All()
	}
	candidates := r.store.FindAll(query)
	entries := make([]store.Entry, len(candidates))
	for i, c := range candidates {
		entries[i] = c.Entry
	}
	return entries
}

// resolve turns a query into one entry, asking the user when several
// entries match.
func (r *Runner) resolve(cmd, query, title string) (store.Entry, error) {
	if strings.TrimSpace(query) == "" {
		return store.Entry{}, &UsageError{Command: cmd, Reason: "the query must not be empty"}
	}

	candidates := r.store.FindAll(query)
	switch len(candidates) {
	case 0:
		return store.Entry{}, fmt.Errorf("%w: %q", ErrNoMatch, query)
	case 1:
		return candidates[0].Entry, nil
	}

	names := make([]string, len(candidates))
	for i, c := range candidates {
		names[i] = c.Entry.Name
	}
	index, err := r.deps.Chooser.Choose(title, names)
	if err != nil {
		return store.Entry{}, fmt.Errorf("%w: %w", ErrSelectionCanceled, err)
	}
	if index < 0 || index >= len(candidates) {
		return store.Entry{}, fmt.Errorf("%w: choice %d out of range", ErrSelectionCanceled, index+1)
	}
	return candidates[index].Entry, nil
}

func (r *Runner) persist(ctx context.Context) error {
	if err := r.deps.Persister.Save(ctx, r.store); err != nil {
		return fmt.Errorf("%w: %w", ErrPersist, err)
	}
	return nil
}

// deliver hands the entry's password to the user.
func (r *Runner) deliver(out Outcome, show bool) Outcome {
	if show {
		out.Reveal = out.Entry.Secret
		return out
	}
	if r.deps.Clipboard == nil {
		out.ClipboardErr = fmt.Errorf("command: no clipboard configured")
		return out
	}
	out.PasteKeys = r.deps.Clipboard.PasteShortcut()
	if err := r.deps.Clipboard.Copy(out.Entry.Secret); err != nil {
		out.ClipboardErr = err
		return out
	}
	out.Copied = true
	return out
}

// latest keeps updated_at monotonic when the wall clock is behind the
// stored timestamp.
func latest(now, previous time.Time) time.Time {
	if now.Before(previous) {
		return previous
	}
	return now
}

type nopPersister struct{}

func (nopPersister) Save(context.Context, *store.Store) error { return nil }

type nopRecorder struct{}

func (nopRecorder) Record(string, string, error) {}
