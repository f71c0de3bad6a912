package command

import (
	"context"
	"fmt"
	"slices"

	"github.com/forest6511/passctl/pkg/audit"
	"github.com/forest6511/passctl/pkg/importer"
	"github.com/forest6511/passctl/pkg/store"
)

// Conflict says what Import does with a record whose name is taken.
type Conflict string

const (
	ConflictSkip      Conflict = "skip"
	ConflictOverwrite Conflict = "overwrite"
	ConflictError     Conflict = "error"
)

// ParseConflict validates a --conflict value.
func ParseConflict(s string) (Conflict, error) {
	switch c := Conflict(s); c {
	case ConflictSkip, ConflictOverwrite, ConflictError:
		return c, nil
	}
	return "", &UsageError{Command: "import", Reason: fmt.Sprintf("unknown conflict mode %q, use skip, overwrite or error", s)}
}

// ImportOutcome lists the names Import touched.
type ImportOutcome struct {
	Added   []string
	Updated []string
	Skipped []string
}

// Import adds records to the store and saves once. Passwords are copied;
// the caller still owns the records. With ConflictError nothing is
// changed when any name is taken. With ConflictOverwrite the username and
// password of an existing entry are replaced and its creation time kept.
func (r *Runner) Import(ctx context.Context, records []importer.Record, conflict Conflict) (ImportOutcome, error) {
	var out ImportOutcome
	if err := r.checkImport(records, conflict); err != nil {
		return out, err
	}

	now := r.deps.Clock.Now()
	for _, rec := range records {
		if rec.Password == nil || rec.Password.Len() == 0 {
			out.Skipped = append(out.Skipped, rec.Name)
			continue
		}

		if !r.store.Has(rec.Name) {
			password := rec.Password.Clone()
			err := r.store.Add(store.Entry{
				Name:      rec.Name,
				Username:  rec.Username,
				Secret:    password,
				CreatedAt: now,
				UpdatedAt: now,
			})
			if err != nil {
				password.Close()
				return ImportOutcome{}, err
			}
			out.Added = append(out.Added, rec.Name)
			continue
		}

		if conflict != ConflictOverwrite {
			out.Skipped = append(out.Skipped, rec.Name)
			continue
		}
		password := rec.Password.Clone()
		_, err := r.store.Update(rec.Name, func(e store.Entry) store.Entry {
			if rec.Username != "" {
				e.Username = rec.Username
			}
			e.Secret = password
			e.UpdatedAt = latest(now, e.UpdatedAt)
			return e
		})
		if err != nil {
			password.Close()
			return ImportOutcome{}, err
		}
		out.Updated = append(out.Updated, rec.Name)
	}

	if len(out.Added)+len(out.Updated) == 0 {
		return out, nil
	}
	if err := r.persist(ctx); err != nil {
		r.deps.Recorder.Record(audit.OpEntryImport, "", err)
		return ImportOutcome{}, err
	}
	for _, name := range slices.Concat(out.Added, out.Updated) {
		r.deps.Recorder.Record(audit.OpEntryImport, name, nil)
	}
	return out, nil
}

// checkImport rejects a batch that would fail partway through, so a failed
// Import leaves the store untouched.
func (r *Runner) checkImport(records []importer.Record, conflict Conflict) error {
	seen := make(map[string]bool, len(records))
	for _, rec := range records {
		if rec.Password == nil || rec.Password.Len() == 0 {
			continue
		}
		switch {
		case rec.Name == "":
			return fmt.Errorf("%w: empty name", store.ErrInvalidEntry)
		case seen[rec.Name]:
			return fmt.Errorf("%w: %q appears twice in the import", store.ErrDuplicateName, rec.Name)
		case conflict == ConflictError && r.store.Has(rec.Name):
			return fmt.Errorf("%w: %q", store.ErrDuplicateName, rec.Name)
		}
		seen[rec.Name] = true
	}
	return nil
}
