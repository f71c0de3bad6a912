// Package vault persists password entries encrypted at rest.
//
// A vault is a directory holding a random salt (vault.salt) and a SQLite
// database (vault.db). A random 256-bit data encryption key (DEK) encrypts
// every entry field with AES-256-GCM; the DEK itself is stored sealed by a
// key derived from the master password with Argon2id. Unlocking derives
// that key, opens the DEK and keeps it in locked memory until Lock.
package vault

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite"

	"github.com/forest6511/passctl/internal/clock"
	"github.com/forest6511/passctl/pkg/audit"
	"github.com/forest6511/passctl/pkg/crypto"
	"github.com/forest6511/passctl/pkg/secret"
)

const (
	SaltFileName = "vault.salt"
	DBFileName   = "vault.db"
	LockFileName = "vault.lock"
	AuditDirName = "audit"

	FileMode = 0600
	DirMode  = 0700

	// MinDiskSpaceBytes is the free space required before writing.
	MinDiskSpaceBytes = 1024 * 1024
)

// Errors
var (
	ErrVaultAlreadyExists   = errors.New("vault: vault already exists at this path")
	ErrVaultNotFound        = errors.New("vault: vault not found at this path, run `passctl init` first")
	ErrVaultLocked          = errors.New("vault: vault is locked")
	ErrVaultAlreadyUnlocked = errors.New("vault: vault is already unlocked")
	ErrInvalidPassword      = errors.New("vault: invalid master password")
	ErrVaultCorrupted       = errors.New("vault: vault is corrupted")
	ErrDEKNotFound          = errors.New("vault: encrypted DEK not found in database")
	ErrInsufficientDisk     = errors.New("vault: insufficient disk space")
)

// additional data binding each sealed blob to its column
var (
	aadDEK      = []byte("passctl/dek")
	aadName     = []byte("passctl/entry/name")
	aadUsername = []byte("passctl/entry/username")
	aadSecret   = []byte("passctl/entry/secret")
)

// Vault manages one vault directory.
type Vault struct {
	path   string
	params crypto.KDFParams
	clock  clock.Clock
	logger *slog.Logger
	audit  *audit.Logger

	mu  sync.Mutex
	dek *secret.Secret
	db  *sql.DB
}

// Option configures a Vault.
type Option func(*Vault)

// WithKDFParams overrides the Argon2id cost. The same parameters must be
// used for every Unlock of a vault.
func WithKDFParams(p crypto.KDFParams) Option {
	return func(v *Vault) { v.params = p }
}

// WithClock sets the clock used for key timestamps and unlock cooldowns.
func WithClock(c clock.Clock) Option {
	return func(v *Vault) { v.clock = c }
}

// WithLogger sets the logger for warnings about the vault's files.
func WithLogger(logger *slog.Logger) Option {
	return func(v *Vault) { v.logger = logger }
}

// WithAudit replaces the audit logger. By default the vault logs to
// <path>/audit.
func WithAudit(a *audit.Logger) Option {
	return func(v *Vault) { v.audit = a }
}

// New creates a Vault for the directory at path. Nothing is read or
// written until Init or Unlock.
func New(path string, opts ...Option) *Vault {
	v := &Vault{
		path:   path,
		params: crypto.DefaultKDFParams(),
		clock:  clock.Real(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(v)
	}
	if v.audit == nil {
		v.audit = audit.NewLogger(filepath.Join(path, AuditDirName),
			audit.WithClock(v.clock), audit.WithLogger(v.logger))
	}
	return v
}

// Path returns the vault directory.
func (v *Vault) Path() string { return v.path }

// Audit returns the vault's audit logger. It can write only while the
// vault is unlocked.
func (v *Vault) Audit() *audit.Logger { return v.audit }

// Exists reports whether a vault has been initialized at the path.
func (v *Vault) Exists() bool {
	_, err := os.Stat(filepath.Join(v.path, SaltFileName))
	return err == nil
}

// IsLocked reports whether the DEK is absent from memory.
func (v *Vault) IsLocked() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.dek == nil
}

// Init creates a new vault protected by master. The vault stays locked.
func (v *Vault) Init(master *secret.Secret) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.Exists() {
		return ErrVaultAlreadyExists
	}
	if err := ValidateMasterPassword(master.Expose()).Err(); err != nil {
		return err
	}

	if err := os.MkdirAll(v.path, DirMode); err != nil {
		return fmt.Errorf("vault: failed to create vault directory: %w", err)
	}
	// MkdirAll leaves an existing directory's mode alone.
	if err := os.Chmod(v.path, DirMode); err != nil {
		return fmt.Errorf("vault: failed to set vault directory permissions: %w", err)
	}
	if err := v.checkDiskSpace(); err != nil {
		return err
	}

	salt, err := crypto.RandomBytes(crypto.SaltLength)
	if err != nil {
		return fmt.Errorf("vault: failed to generate salt: %w", err)
	}

	kek, err := crypto.DeriveKey(master.Expose(), salt, v.params)
	if err != nil {
		return fmt.Errorf("vault: failed to derive key: %w", err)
	}
	defer secret.Wipe(kek)

	rawDEK, err := crypto.RandomBytes(crypto.KeyLength)
	if err != nil {
		return fmt.Errorf("vault: failed to generate DEK: %w", err)
	}
	dek := secret.FromBytes(rawDEK)
	defer dek.Close()

	sealedDEK, err := crypto.Seal(kek, dek.Expose(), aadDEK)
	if err != nil {
		return fmt.Errorf("vault: failed to encrypt DEK: %w", err)
	}

	dbPath := filepath.Join(v.path, DBFileName)
	db, err := openDB(dbPath)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := runMigrations(db); err != nil {
		return err
	}
	if _, err := db.Exec("INSERT OR REPLACE INTO vault_keys(id, encrypted_dek, created_at) VALUES(1, ?, ?)",
		sealedDEK, v.clock.Now().UnixNano()); err != nil {
		return fmt.Errorf("vault: failed to save encrypted DEK: %w", err)
	}
	if err := os.Chmod(dbPath, FileMode); err != nil {
		return fmt.Errorf("vault: failed to set database permissions: %w", err)
	}

	// The salt is written last: its presence is what marks a vault as
	// initialized.
	if err := os.WriteFile(filepath.Join(v.path, SaltFileName), salt, FileMode); err != nil {
		return fmt.Errorf("vault: failed to write salt file: %w", err)
	}

	if err := v.audit.SetKey(dek); err != nil {
		v.logger.Warn("failed to initialize audit log", "error", err)
	} else {
		v.audit.Record(audit.OpVaultInit, "", nil)
		v.audit.ClearKey()
	}
	return nil
}

// Unlock derives the key from master and opens the DEK. Repeated failures
// trigger a cooldown during which Unlock refuses to try.
func (v *Vault) Unlock(master *secret.Secret) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if !v.Exists() {
		return ErrVaultNotFound
	}
	if v.dek != nil {
		return ErrVaultAlreadyUnlocked
	}
	if err := v.checkCooldown(); err != nil {
		return err
	}

	salt, err := os.ReadFile(filepath.Join(v.path, SaltFileName))
	if err != nil {
		return fmt.Errorf("vault: failed to read salt file: %w", err)
	}
	if len(salt) != crypto.SaltLength {
		return fmt.Errorf("%w: salt has %d bytes", ErrVaultCorrupted, len(salt))
	}

	kek, err := crypto.DeriveKey(master.Expose(), salt, v.params)
	if err != nil {
		return fmt.Errorf("vault: failed to derive key: %w", err)
	}
	defer secret.Wipe(kek)

	db, err := openDB(filepath.Join(v.path, DBFileName))
	if err != nil {
		return err
	}

	var sealedDEK []byte
	err = db.QueryRow("SELECT encrypted_dek FROM vault_keys WHERE id = 1").Scan(&sealedDEK)
	if err != nil {
		db.Close()
		if errors.Is(err, sql.ErrNoRows) {
			return ErrDEKNotFound
		}
		return fmt.Errorf("vault: failed to read encrypted DEK: %w", err)
	}

	rawDEK, err := crypto.Open(kek, sealedDEK, aadDEK)
	if err != nil {
		db.Close()
		if errors.Is(err, crypto.ErrDecryptionFailed) {
			return v.recordFailedAttempt()
		}
		return fmt.Errorf("vault: failed to decrypt DEK: %w", err)
	}

	if err := runMigrations(db); err != nil {
		secret.Wipe(rawDEK)
		db.Close()
		return err
	}

	v.dek = secret.FromBytes(rawDEK)
	v.db = db

	failed, err := v.clearLockState()
	if err != nil {
		v.logger.Warn("failed to clear unlock attempts", "error", err)
	}

	if err := v.audit.SetKey(v.dek); err != nil {
		v.logger.Warn("failed to initialize audit log", "error", err)
	} else {
		if failed > 0 {
			if err := v.audit.Log(audit.OpVaultUnlockFailed, "", ErrInvalidPassword,
				map[string]any{"attempts": failed}); err != nil {
				v.logger.Warn("audit record not written", "op", audit.OpVaultUnlockFailed, "error", err)
			}
		}
		v.audit.Record(audit.OpVaultUnlock, "", nil)
	}

	v.checkAndWarnPermissions()
	return nil
}

// Lock wipes the DEK and closes the database.
func (v *Vault) Lock() {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.audit.ClearKey()
	if v.dek != nil {
		v.dek.Close()
		v.dek = nil
	}
	if v.db != nil {
		v.db.Close()
		v.db = nil
	}
}

func openDB(path string) (*sql.DB, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=synchronous(FULL)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("vault: failed to open database: %w", err)
	}
	// A CLI run has one writer; a single connection avoids "database is locked".
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("vault: failed to open database: %w", err)
	}
	return db, nil
}

// checkAndWarnPermissions logs a warning for every vault file readable or
// writable by group or others. It never blocks.
func (v *Vault) checkAndWarnPermissions() {
	if info, err := os.Stat(v.path); err == nil {
		if perm := info.Mode().Perm(); perm&0077 != 0 {
			v.logger.Warn("vault directory has insecure permissions",
				"path", v.path, "mode", fmt.Sprintf("%04o", perm), "expected", "0700")
		}
	}

	for _, name := range []string{SaltFileName, DBFileName} {
		path := filepath.Join(v.path, name)
		if info, err := os.Stat(path); err == nil {
			if perm := info.Mode().Perm(); perm&0077 != 0 {
				v.logger.Warn("vault file has insecure permissions",
					"path", path, "mode", fmt.Sprintf("%04o", perm), "expected", "0600")
			}
		}
	}
}

func (v *Vault) checkDiskSpace() error {
	available, err := availableBytes(v.path)
	if err != nil {
		v.logger.Debug("disk space check skipped", "error", err)
		return nil
	}
	if available < MinDiskSpaceBytes {
		return fmt.Errorf("%w: %d bytes available, need at least %d",
			ErrInsufficientDisk, available, MinDiskSpaceBytes)
	}
	return nil
}
