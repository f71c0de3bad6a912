// Package audit keeps a tamper-evident log of vault and entry operations.
//
// Events are appended to a single JSON Lines file. Every record carries an
// HMAC over its own fields and the previous record's HMAC, so editing,
// dropping or reordering lines breaks the chain and Verify reports it.
// Entry names are never written in clear: the log holds an HMAC of the
// name under the same key.
package audit

import (
	"bufio"
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/hkdf"

	"github.com/forest6511/passctl/internal/clock"
	"github.com/forest6511/passctl/pkg/secret"
)

const (
	LogFileName   = "audit.jsonl"
	StateFileName = "audit.meta"

	genesis  = "genesis"
	hkdfInfo = "passctl-audit-v1"
)

// Operation types
const (
	OpVaultInit         = "vault.init"
	OpVaultUnlock       = "vault.unlock"
	OpVaultUnlockFailed = "vault.unlock_failed"

	OpEntryAdd        = "entry.add"
	OpEntryRegenerate = "entry.regenerate"
	OpEntryGet        = "entry.get"
	OpEntryImport     = "entry.import"
)

// Results
const (
	ResultSuccess = "success"
	ResultError   = "error"
)

var ErrKeyNotSet = errors.New("audit: HMAC key not set")

// Event is one audit record.
type Event struct {
	Version   int            `json:"v"`
	ID        string         `json:"id"`
	Timestamp string         `json:"ts"`
	Operation string         `json:"op"`
	NameHMAC  string         `json:"name_hmac,omitempty"`
	SessionID string         `json:"session"`
	Result    string         `json:"result"`
	Error     *ErrorInfo     `json:"error,omitempty"`
	Context   map[string]any `json:"ctx,omitempty"`
	Chain     Chain          `json:"chain"`
}

// ErrorInfo describes a failed operation by code only. Error messages may
// quote entry names, so they are not logged.
type ErrorInfo struct {
	Code string `json:"code"`
}

// Chain links a record to its predecessor.
type Chain struct {
	Sequence int64  `json:"seq"`
	PrevHash string `json:"prev"`
	HMAC     string `json:"hmac"`
}

// Logger appends events to <dir>/audit.jsonl.
type Logger struct {
	dir       string
	mu        sync.Mutex
	key       []byte
	sequence  int64
	prevHash  string
	sessionID string
	clock     clock.Clock
	logger    *slog.Logger
	coder     func(error) string
}

// Option configures a Logger.
type Option func(*Logger)

// WithClock sets the clock used for event timestamps.
func WithClock(c clock.Clock) Option {
	return func(l *Logger) { l.clock = c }
}

// WithLogger sets where Record reports write failures.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Logger) { l.logger = logger }
}

// WithErrorCoder sets the function mapping an operation error to the code
// stored in the record. The default code is "error".
func WithErrorCoder(coder func(error) string) Option {
	return func(l *Logger) { l.coder = coder }
}

// NewLogger creates a logger writing under dir. It cannot write until
// SetKey is called.
func NewLogger(dir string, opts ...Option) *Logger {
	l := &Logger{
		dir:       dir,
		prevHash:  genesis,
		sessionID: uuid.NewString(),
		clock:     clock.Real(),
		logger:    slog.Default(),
		coder:     func(error) string { return "error" },
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Dir returns the audit directory.
func (l *Logger) Dir() string { return l.dir }

// SetKey derives the HMAC key from the vault's data key with HKDF-SHA256
// and resumes the chain from the saved state.
func (l *Logger) SetKey(dek *secret.Secret) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	key := make([]byte, 32)
	if _, err := hkdf.New(sha256.New, dek.Expose(), nil, []byte(hkdfInfo)).Read(key); err != nil {
		return fmt.Errorf("audit: failed to derive HMAC key: %w", err)
	}
	secret.Wipe(l.key)
	l.key = key

	if err := l.loadState(); err != nil {
		l.sequence = 0
		l.prevHash = genesis
	}
	return nil
}

// ClearKey wipes the HMAC key.
func (l *Logger) ClearKey() {
	l.mu.Lock()
	defer l.mu.Unlock()
	secret.Wipe(l.key)
	l.key = nil
}

// Record logs the outcome of op on the entry called name and reports any
// write failure as a warning. A nil err records success.
func (l *Logger) Record(op, name string, err error) {
	if logErr := l.Log(op, name, err, nil); logErr != nil {
		l.logger.Warn("audit record not written", "op", op, "error", logErr)
	}
}

// Log appends one event. name may be empty for vault-level operations.
func (l *Logger) Log(op, name string, opErr error, ctx map[string]any) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.key == nil {
		return ErrKeyNotSet
	}
	if err := os.MkdirAll(l.dir, 0700); err != nil {
		return fmt.Errorf("audit: failed to create directory: %w", err)
	}

	event := Event{
		Version:   1,
		ID:        uuid.NewString(),
		Timestamp: l.clock.Now().UTC().Format(time.RFC3339Nano),
		Operation: op,
		SessionID: l.sessionID,
		Result:    ResultSuccess,
		Context:   ctx,
	}
	if name != "" {
		event.NameHMAC = l.mac([]byte(name))
	}
	if opErr != nil {
		event.Result = ResultError
		event.Error = &ErrorInfo{Code: l.coder(opErr)}
	}

	event.Chain.Sequence = l.sequence + 1
	event.Chain.PrevHash = l.prevHash
	event.Chain.HMAC = l.mac(recordData(&event))

	if err := l.append(&event); err != nil {
		return err
	}
	l.sequence = event.Chain.Sequence
	l.prevHash = event.Chain.HMAC
	return l.saveState()
}

// NameHMAC returns the value a record would carry for name, so callers
// can find the events of one entry.
func (l *Logger) NameHMAC(name string) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.key == nil {
		return "", ErrKeyNotSet
	}
	return l.mac([]byte(name)), nil
}

func (l *Logger) mac(data []byte) string {
	m := hmac.New(sha256.New, l.key)
	m.Write(data)
	return hex.EncodeToString(m.Sum(nil))
}

// recordData serializes every field except the record's own HMAC.
// Context keys are sorted so the result is deterministic.
func recordData(e *Event) []byte {
	var b bytes.Buffer
	fmt.Fprintf(&b, "%d|%s|%s|%s|%s|%s|%s|", e.Version, e.ID, e.Timestamp, e.Operation, e.NameHMAC, e.SessionID, e.Result)
	if e.Error != nil {
		b.WriteString(e.Error.Code)
	}
	b.WriteByte('|')
	for _, k := range slices.Sorted(maps.Keys(e.Context)) {
		fmt.Fprintf(&b, "%s=%v;", k, e.Context[k])
	}
	fmt.Fprintf(&b, "|%d|%s", e.Chain.Sequence, e.Chain.PrevHash)
	return b.Bytes()
}

func (l *Logger) append(e *Event) error {
	f, err := os.OpenFile(filepath.Join(l.dir, LogFileName), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("audit: failed to open log file: %w", err)
	}
	defer f.Close()

	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("audit: failed to marshal event: %w", err)
	}
	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("audit: failed to write event: %w", err)
	}
	return nil
}

type chainState struct {
	Sequence int64  `json:"seq"`
	PrevHash string `json:"prev"`
}

func (l *Logger) loadState() error {
	data, err := os.ReadFile(filepath.Join(l.dir, StateFileName))
	if err != nil {
		return err
	}
	var state chainState
	if err := json.Unmarshal(data, &state); err != nil {
		return err
	}
	l.sequence = state.Sequence
	l.prevHash = state.PrevHash
	return nil
}

func (l *Logger) saveState() error {
	data, err := json.Marshal(chainState{Sequence: l.sequence, PrevHash: l.prevHash})
	if err != nil {
		return fmt.Errorf("audit: failed to marshal chain state: %w", err)
	}
	if err := os.WriteFile(filepath.Join(l.dir, StateFileName), data, 0600); err != nil {
		return fmt.Errorf("audit: failed to save chain state: %w", err)
	}
	return nil
}

// VerifyResult reports the state of the chain.
type VerifyResult struct {
	Valid   bool
	Records int
	Errors  []string
}

// Verify walks the log and checks sequence numbers, links and HMACs.
func (l *Logger) Verify() (*VerifyResult, error) {
	events, err := l.Events(0)
	if err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.key == nil {
		return nil, ErrKeyNotSet
	}

	result := &VerifyResult{Valid: true, Records: len(events)}
	fail := func(format string, args ...any) {
		result.Valid = false
		result.Errors = append(result.Errors, fmt.Sprintf(format, args...))
	}

	prev := genesis
	for i, event := range events {
		want := int64(i + 1)
		if event.Chain.Sequence != want {
			fail("sequence gap at record %s: expected %d, got %d", event.ID, want, event.Chain.Sequence)
		}
		if event.Chain.PrevHash != prev {
			fail("chain broken at record %s", event.ID)
		}
		if !hmac.Equal([]byte(event.Chain.HMAC), []byte(l.mac(recordData(&event)))) {
			fail("HMAC mismatch at record %s: possible tampering", event.ID)
		}
		prev = event.Chain.HMAC
	}
	return result, nil
}

// Events returns the last limit events, oldest first. A limit of 0
// returns all of them.
func (l *Logger) Events(limit int) ([]Event, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.Open(filepath.Join(l.dir, LogFileName))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("audit: failed to open log file: %w", err)
	}
	defer f.Close()

	var events []Event
	scanner := bufio.NewScanner(f)
	line := 0
	for scanner.Scan() {
		line++
		if len(bytes.TrimSpace(scanner.Bytes())) == 0 {
			continue
		}
		var event Event
		if err := json.Unmarshal(scanner.Bytes(), &event); err != nil {
			return nil, fmt.Errorf("audit: failed to parse line %d: %w", line, err)
		}
		events = append(events, event)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("audit: failed to read log file: %w", err)
	}

	if limit > 0 && len(events) > limit {
		events = events[len(events)-limit:]
	}
	return events, nil
}
