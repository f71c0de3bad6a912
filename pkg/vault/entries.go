package vault

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/forest6511/passctl/pkg/crypto"
	"github.com/forest6511/passctl/pkg/secret"
	"github.com/forest6511/passctl/pkg/store"
)

// Load decrypts every entry into a new store, in saved order. The caller
// owns the store and must Close it.
func (v *Vault) Load(ctx context.Context, opts ...store.Option) (*store.Store, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.dek == nil {
		return nil, ErrVaultLocked
	}

	rows, err := v.db.QueryContext(ctx,
		"SELECT position, name, username, secret, created_at, updated_at FROM entries ORDER BY position")
	if err != nil {
		return nil, fmt.Errorf("vault: failed to query entries: %w", err)
	}
	defer rows.Close()

	s := store.New(opts...)
	for rows.Next() {
		var (
			position               int
			name, username, sealed []byte
			createdAt, updatedAt   int64
		)
		if err := rows.Scan(&position, &name, &username, &sealed, &createdAt, &updatedAt); err != nil {
			s.Close()
			return nil, fmt.Errorf("vault: failed to scan entry: %w", err)
		}

		entry, err := v.openEntry(name, username, sealed)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("vault: entry at position %d: %w", position, err)
		}
		entry.CreatedAt = time.Unix(0, createdAt).UTC()
		entry.UpdatedAt = time.Unix(0, updatedAt).UTC()

		if err := s.Add(entry); err != nil {
			entry.Secret.Close()
			s.Close()
			return nil, fmt.Errorf("%w: %w", ErrVaultCorrupted, err)
		}
	}
	if err := rows.Err(); err != nil {
		s.Close()
		return nil, fmt.Errorf("vault: failed to read entries: %w", err)
	}
	return s, nil
}

func (v *Vault) openEntry(sealedName, sealedUsername, sealedSecret []byte) (store.Entry, error) {
	key := v.dek.Expose()

	name, err := crypto.Open(key, sealedName, aadName)
	if err != nil {
		return store.Entry{}, fmt.Errorf("%w: name: %w", ErrVaultCorrupted, err)
	}
	username, err := crypto.Open(key, sealedUsername, aadUsername)
	if err != nil {
		return store.Entry{}, fmt.Errorf("%w: username: %w", ErrVaultCorrupted, err)
	}
	password, err := crypto.Open(key, sealedSecret, aadSecret)
	if err != nil {
		return store.Entry{}, fmt.Errorf("%w: secret: %w", ErrVaultCorrupted, err)
	}

	return store.Entry{
		Name:     string(name),
		Username: string(username),
		Secret:   secret.FromBytes(password),
	}, nil
}

// Save replaces the persisted entries with the contents of s in one
// transaction. On error the previous contents remain.
func (v *Vault) Save(ctx context.Context, s *store.Store) (err error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.dek == nil {
		return ErrVaultLocked
	}
	if err := v.checkDiskSpace(); err != nil {
		return err
	}

	tx, err := v.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("vault: failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err := tx.ExecContext(ctx, "DELETE FROM entries"); err != nil {
		return fmt.Errorf("vault: failed to clear entries: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO entries(position, name, username, secret, created_at, updated_at) VALUES(?, ?, ?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("vault: failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	key := v.dek.Expose()
	for i, e := range s.All() {
		name, username, sealed, err := sealEntry(key, e)
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx, i, name, username, sealed,
			e.CreatedAt.UnixNano(), e.UpdatedAt.UnixNano()); err != nil {
			return fmt.Errorf("vault: failed to save entry %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("vault: failed to commit transaction: %w", err)
	}
	return nil
}

func sealEntry(key []byte, e store.Entry) (name, username, password []byte, err error) {
	if e.Secret == nil {
		return nil, nil, nil, errors.New("vault: entry without secret")
	}
	if name, err = crypto.Seal(key, []byte(e.Name), aadName); err != nil {
		return nil, nil, nil, fmt.Errorf("vault: failed to encrypt name: %w", err)
	}
	if username, err = crypto.Seal(key, []byte(e.Username), aadUsername); err != nil {
		return nil, nil, nil, fmt.Errorf("vault: failed to encrypt username: %w", err)
	}
	if password, err = crypto.Seal(key, e.Secret.Expose(), aadSecret); err != nil {
		return nil, nil, nil, fmt.Errorf("vault: failed to encrypt secret: %w", err)
	}
	return name, username, password, nil
}
