// Package secret provides a byte container for passwords that never
// prints its contents and wipes its memory when closed.
//
// A Secret is redacted by every default formatting path: fmt verbs,
// String, GoString, JSON and text marshalling, and log/slog. Reading the
// raw bytes requires one of the explicit accessors Expose, Reveal or
// WriteTo, so every disclosure is a call site that can be found with grep.
//
// On Linux and the BSDs the bytes live in an anonymous mmap region outside
// the Go heap, locked into RAM when RLIMIT_MEMLOCK allows it. Elsewhere a
// heap slice is used. Either way Close zeroes the memory before releasing
// it, and a Secret that is garbage collected without Close is wiped by a
// runtime cleanup as a last resort.
package secret

import (
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"sync"
)

// Redacted is what every formatting path prints instead of the secret.
const Redacted = "[REDACTED]"

// Secret holds sensitive bytes. A Secret must not be copied after
// creation; use Clone for an independent copy.
type Secret struct {
	mu      sync.Mutex
	data    []byte
	length  int
	release func([]byte) error
	cleanup runtime.Cleanup
	closed  bool
}

// New allocates a zero-filled secret of the given size. Generators write
// into the slice returned by Expose.
func New(size int) *Secret {
	if size < 0 {
		panic(fmt.Sprintf("secret: negative size %d", size))
	}
	data, release := allocate(size)
	s := &Secret{
		data:    data,
		length:  size,
		release: release,
	}
	s.cleanup = runtime.AddCleanup(s, wipeAndRelease, region{data: data, release: release})
	return s
}

// FromBytes copies source into a new secret and zeroes source, so the
// caller's slice no longer holds the secret.
func FromBytes(source []byte) *Secret {
	s := New(len(source))
	copy(s.data, source)
	Wipe(source)
	return s
}

// FromString copies a string into a new secret. The string itself cannot
// be wiped; prefer FromBytes when the caller owns a byte slice.
func FromString(value string) *Secret {
	s := New(len(value))
	copy(s.data, value)
	return s
}

// Expose returns the secret bytes. The slice aliases the protected region
// and must not be retained after Close. Panics if the secret is closed.
func (s *Secret) Expose() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mustBeOpen()
	return s.data[:s.length]
}

// Reveal returns the secret as a heap string. Use it only at API
// boundaries that require a string; the copy cannot be wiped.
func (s *Secret) Reveal() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mustBeOpen()
	return string(s.data[:s.length])
}

// WriteTo writes the secret bytes to w without an intermediate heap copy.
func (s *Secret) WriteTo(w io.Writer) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mustBeOpen()
	n, err := w.Write(s.data[:s.length])
	return int64(n), err
}

// Clone returns an independent copy that must be closed separately.
func (s *Secret) Clone() *Secret {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mustBeOpen()
	c := New(s.length)
	copy(c.data, s.data[:s.length])
	return c
}

// Equal reports whether both secrets hold the same bytes, in constant
// time with respect to the contents.
func (s *Secret) Equal(other *Secret) bool {
	if s == nil || other == nil {
		return s == other
	}
	if s == other {
		return true
	}
	a := s.Clone()
	defer a.Close()
	b := other.Clone()
	defer b.Close()
	return subtle.ConstantTimeCompare(a.data[:a.length], b.data[:b.length]) == 1
}

// Len returns the number of secret bytes.
func (s *Secret) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.length
}

// Close zeroes and releases the memory. Close is idempotent.
func (s *Secret) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.cleanup.Stop()
	err := wipeAndReleaseErr(region{data: s.data, release: s.release})
	s.data = nil
	s.length = 0
	return err
}

// Closed reports whether Close has been called.
func (s *Secret) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *Secret) String() string   { return Redacted }
func (s *Secret) GoString() string { return "secret.Secret(" + Redacted + ")" }

// Format redacts every fmt verb, including %x and %q.
func (s *Secret) Format(f fmt.State, _ rune) {
	_, _ = io.WriteString(f, Redacted)
}

func (s *Secret) MarshalJSON() ([]byte, error) { return json.Marshal(Redacted) }
func (s *Secret) MarshalText() ([]byte, error) { return []byte(Redacted), nil }

// LogValue keeps secrets out of slog output.
func (s *Secret) LogValue() slog.Value { return slog.StringValue(Redacted) }

func (s *Secret) mustBeOpen() {
	if s.closed {
		panic("secret: access to closed secret")
	}
}

// Wipe overwrites b with zeros.
func Wipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
	runtime.KeepAlive(b)
}

type region struct {
	data    []byte
	release func([]byte) error
}

func wipeAndRelease(r region) { _ = wipeAndReleaseErr(r) }

func wipeAndReleaseErr(r region) error {
	Wipe(r.data)
	if r.release == nil {
		return nil
	}
	return r.release(r.data)
}
