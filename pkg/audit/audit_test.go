package audit

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/forest6511/passctl/internal/clock"
	"github.com/forest6511/passctl/pkg/secret"
)

var epoch = time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)

func testKey() *secret.Secret {
	key := secret.New(32)
	buf := key.Expose()
	for i := range buf {
		buf[i] = byte(i)
	}
	return key
}

func newTestLogger(t *testing.T, opts ...Option) *Logger {
	t.Helper()
	opts = append([]Option{WithClock(clock.Fake(epoch))}, opts...)
	l := NewLogger(t.TempDir(), opts...)
	key := testKey()
	defer key.Close()
	if err := l.SetKey(key); err != nil {
		t.Fatalf("SetKey failed: %v", err)
	}
	return l
}

func readEvents(t *testing.T, l *Logger) []Event {
	t.Helper()
	events, err := l.Events(0)
	if err != nil {
		t.Fatalf("Events failed: %v", err)
	}
	return events
}

func TestLogWithoutKey(t *testing.T) {
	l := NewLogger(t.TempDir())
	if err := l.Log(OpEntryGet, "YouTube", nil, nil); !errors.Is(err, ErrKeyNotSet) {
		t.Errorf("expected ErrKeyNotSet, got %v", err)
	}
}

func TestLogSuccess(t *testing.T) {
	l := newTestLogger(t)

	if err := l.Log(OpEntryAdd, "YouTube", nil, nil); err != nil {
		t.Fatalf("Log failed: %v", err)
	}

	events := readEvents(t, l)
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	event := events[0]

	if event.Version != 1 {
		t.Errorf("expected version 1, got %d", event.Version)
	}
	if event.Operation != OpEntryAdd {
		t.Errorf("expected operation %s, got %s", OpEntryAdd, event.Operation)
	}
	if event.Result != ResultSuccess || event.Error != nil {
		t.Errorf("expected success without error, got %s %+v", event.Result, event.Error)
	}
	if event.Timestamp != epoch.Format(time.RFC3339Nano) {
		t.Errorf("expected timestamp from clock, got %s", event.Timestamp)
	}
	if event.Chain.Sequence != 1 || event.Chain.PrevHash != "genesis" || event.Chain.HMAC == "" {
		t.Errorf("unexpected chain %+v", event.Chain)
	}
	if event.ID == "" || event.SessionID == "" {
		t.Error("expected event and session IDs")
	}
}

func TestLogNeverStoresNameInClear(t *testing.T) {
	l := newTestLogger(t)
	if err := l.Log(OpEntryAdd, "YouTube", nil, nil); err != nil {
		t.Fatalf("Log failed: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(l.Dir(), LogFileName))
	if err != nil {
		t.Fatalf("failed to read log: %v", err)
	}
	if bytes.Contains(data, []byte("YouTube")) {
		t.Error("entry name written in clear")
	}

	want, err := l.NameHMAC("YouTube")
	if err != nil {
		t.Fatalf("NameHMAC failed: %v", err)
	}
	if got := readEvents(t, l)[0].NameHMAC; got != want {
		t.Errorf("NameHMAC = %s, want %s", got, want)
	}
}

func TestRecordError(t *testing.T) {
	l := newTestLogger(t, WithErrorCoder(func(err error) string { return "no_match" }))

	l.Record(OpEntryGet, "ytb", errors.New(`no entry matches "ytb"`))

	event := readEvents(t, l)[0]
	if event.Result != ResultError {
		t.Errorf("expected result error, got %s", event.Result)
	}
	if event.Error == nil || event.Error.Code != "no_match" {
		t.Errorf("expected code no_match, got %+v", event.Error)
	}
}

func TestRecordReportsWriteFailure(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	l := NewLogger(t.TempDir(), WithLogger(logger))
	l.Record(OpEntryAdd, "YouTube", nil)

	if !strings.Contains(buf.String(), "audit record not written") {
		t.Errorf("expected warning, got %q", buf.String())
	}
}

func TestChainIntegrity(t *testing.T) {
	l := newTestLogger(t)

	for _, op := range []string{OpVaultUnlock, OpEntryAdd, OpEntryRegenerate, OpEntryGet} {
		if err := l.Log(op, "YouTube", nil, nil); err != nil {
			t.Fatalf("Log(%s) failed: %v", op, err)
		}
	}

	events := readEvents(t, l)
	for i := 1; i < len(events); i++ {
		if events[i].Chain.PrevHash != events[i-1].Chain.HMAC {
			t.Errorf("record %d does not link to record %d", i, i-1)
		}
	}

	result, err := l.Verify()
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if !result.Valid || result.Records != 4 {
		t.Errorf("expected valid chain of 4, got %+v", result)
	}
}

func TestChainResumesAcrossLoggers(t *testing.T) {
	dir := t.TempDir()
	key := testKey()
	defer key.Close()

	first := NewLogger(dir)
	if err := first.SetKey(key); err != nil {
		t.Fatalf("SetKey failed: %v", err)
	}
	_ = first.Log(OpVaultInit, "", nil, nil)
	_ = first.Log(OpEntryAdd, "YouTube", nil, nil)

	second := NewLogger(dir)
	if err := second.SetKey(key); err != nil {
		t.Fatalf("SetKey failed: %v", err)
	}
	_ = second.Log(OpVaultUnlock, "", nil, map[string]any{"attempts": 2})

	events := readEvents(t, second)
	if len(events) != 3 || events[2].Chain.Sequence != 3 {
		t.Fatalf("expected third record with sequence 3, got %d records", len(events))
	}
	if events[0].SessionID == events[2].SessionID {
		t.Error("expected a new session per logger")
	}

	result, err := second.Verify()
	if err != nil || !result.Valid {
		t.Errorf("expected valid chain, got %+v, %v", result, err)
	}
}

func TestVerifyDetectsTampering(t *testing.T) {
	tests := []struct {
		name   string
		tamper func(lines [][]byte) [][]byte
	}{
		{"edited record", func(lines [][]byte) [][]byte {
			var e Event
			_ = json.Unmarshal(lines[1], &e)
			e.Operation = OpEntryGet
			lines[1], _ = json.Marshal(e)
			return lines
		}},
		{"dropped record", func(lines [][]byte) [][]byte {
			return append(lines[:1], lines[2:]...)
		}},
		{"swapped records", func(lines [][]byte) [][]byte {
			lines[0], lines[1] = lines[1], lines[0]
			return lines
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := newTestLogger(t)
			for _, op := range []string{OpEntryAdd, OpEntryRegenerate, OpEntryGet} {
				_ = l.Log(op, "YouTube", nil, nil)
			}

			path := filepath.Join(l.Dir(), LogFileName)
			data, err := os.ReadFile(path)
			if err != nil {
				t.Fatalf("failed to read log: %v", err)
			}
			lines := bytes.Split(bytes.TrimSpace(data), []byte("\n"))
			lines = tt.tamper(lines)
			if err := os.WriteFile(path, append(bytes.Join(lines, []byte("\n")), '\n'), 0600); err != nil {
				t.Fatalf("failed to rewrite log: %v", err)
			}

			result, err := l.Verify()
			if err != nil {
				t.Fatalf("Verify failed: %v", err)
			}
			if result.Valid {
				t.Error("expected tampering to be detected")
			}
		})
	}
}

func TestVerifyEmptyLog(t *testing.T) {
	l := newTestLogger(t)
	result, err := l.Verify()
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if !result.Valid || result.Records != 0 {
		t.Errorf("expected valid empty log, got %+v", result)
	}
}

func TestEventsLimit(t *testing.T) {
	l := newTestLogger(t)
	for i := 0; i < 5; i++ {
		_ = l.Log(OpEntryGet, "YouTube", nil, nil)
	}

	events, err := l.Events(2)
	if err != nil {
		t.Fatalf("Events failed: %v", err)
	}
	if len(events) != 2 || events[0].Chain.Sequence != 4 || events[1].Chain.Sequence != 5 {
		t.Errorf("expected the last two records, got %+v", events)
	}
}

func TestClearKey(t *testing.T) {
	l := newTestLogger(t)
	l.ClearKey()
	if err := l.Log(OpEntryGet, "", nil, nil); !errors.Is(err, ErrKeyNotSet) {
		t.Errorf("expected ErrKeyNotSet after ClearKey, got %v", err)
	}
}
