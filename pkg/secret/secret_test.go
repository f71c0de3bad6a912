package secret

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"testing"
)

func TestNew_ZeroFilled(t *testing.T) {
	s := New(32)
	defer s.Close()

	if s.Len() != 32 {
		t.Fatalf("expected length 32, got %d", s.Len())
	}
	for i, b := range s.Expose() {
		if b != 0 {
			t.Fatalf("expected zero at index %d, got %d", i, b)
		}
	}
}

func TestNew_Empty(t *testing.T) {
	s := New(0)
	defer s.Close()

	if s.Len() != 0 {
		t.Errorf("expected empty secret, got length %d", s.Len())
	}
	if s.Reveal() != "" {
		t.Errorf("expected empty reveal")
	}
}

func TestFromBytes_ZeroesSource(t *testing.T) {
	source := []byte("hunter2-but-longer")
	want := string(source)

	s := FromBytes(source)
	defer s.Close()

	if got := s.Reveal(); got != want {
		t.Errorf("Reveal() = %q, want %q", got, want)
	}
	for i, b := range source {
		if b != 0 {
			t.Fatalf("source byte %d was not zeroed", i)
		}
	}
}

func TestFormattingIsRedacted(t *testing.T) {
	s := FromString("correct horse battery staple")
	defer s.Close()

	formats := []string{"%v", "%+v", "%#v", "%s", "%q", "%x", "%X", "%d"}
	for _, format := range formats {
		t.Run(format, func(t *testing.T) {
			out := fmt.Sprintf(format, s)
			if strings.Contains(out, "horse") {
				t.Errorf("format %s leaked secret: %q", format, out)
			}
			if !strings.Contains(out, Redacted) {
				t.Errorf("format %s did not redact: %q", format, out)
			}
		})
	}

	if s.String() != Redacted {
		t.Errorf("String() = %q", s.String())
	}
	if strings.Contains(s.GoString(), "horse") {
		t.Errorf("GoString() leaked secret")
	}
}

func TestFormattingInsideStruct(t *testing.T) {
	s := FromString("p4ssw0rd")
	defer s.Close()

	holder := struct {
		Name   string
		Secret *Secret
	}{Name: "YouTube", Secret: s}

	for _, format := range []string{"%v", "%+v"} {
		if out := fmt.Sprintf(format, holder); strings.Contains(out, "p4ssw0rd") {
			t.Errorf("format %s leaked secret through struct: %q", format, out)
		}
	}
}

func TestMarshalIsRedacted(t *testing.T) {
	s := FromString("p4ssw0rd")
	defer s.Close()

	data, err := json.Marshal(map[string]*Secret{"password": s})
	if err != nil {
		t.Fatalf("json.Marshal failed: %v", err)
	}
	if strings.Contains(string(data), "p4ssw0rd") {
		t.Errorf("JSON leaked secret: %s", data)
	}

	text, err := s.MarshalText()
	if err != nil {
		t.Fatalf("MarshalText failed: %v", err)
	}
	if string(text) != Redacted {
		t.Errorf("MarshalText() = %q", text)
	}
}

func TestLogValueIsRedacted(t *testing.T) {
	s := FromString("p4ssw0rd")
	defer s.Close()

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	logger.Info("saved", "secret", s)

	if strings.Contains(buf.String(), "p4ssw0rd") {
		t.Errorf("slog leaked secret: %s", buf.String())
	}
	if !strings.Contains(buf.String(), Redacted) {
		t.Errorf("slog output not redacted: %s", buf.String())
	}
}

func TestCloneIsIndependent(t *testing.T) {
	original := FromString("abc123")
	clone := original.Clone()
	defer clone.Close()

	if !original.Equal(clone) {
		t.Fatal("clone should equal original")
	}

	original.Close()
	if got := clone.Reveal(); got != "abc123" {
		t.Errorf("clone changed after original closed: %q", got)
	}
}

func TestEqual(t *testing.T) {
	a := FromString("same")
	defer a.Close()
	b := FromString("same")
	defer b.Close()
	c := FromString("diff")
	defer c.Close()

	if !a.Equal(b) {
		t.Error("expected equal secrets")
	}
	if a.Equal(c) {
		t.Error("expected different secrets")
	}
	if a.Equal(nil) {
		t.Error("expected secret not equal to nil")
	}
	var nilSecret *Secret
	if !nilSecret.Equal(nil) {
		t.Error("expected nil equal to nil")
	}
}

func TestWriteTo(t *testing.T) {
	s := FromString("piped")
	defer s.Close()

	var buf bytes.Buffer
	n, err := s.WriteTo(&buf)
	if err != nil {
		t.Fatalf("WriteTo failed: %v", err)
	}
	if n != 5 || buf.String() != "piped" {
		t.Errorf("WriteTo wrote %d bytes %q", n, buf.String())
	}
}

func TestClose_Idempotent(t *testing.T) {
	s := FromString("x")
	if err := s.Close(); err != nil {
		t.Fatalf("first Close failed: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("second Close failed: %v", err)
	}
	if !s.Closed() {
		t.Error("expected Closed() after Close")
	}
	if s.Len() != 0 {
		t.Errorf("expected zero length after Close, got %d", s.Len())
	}
}

func TestAccessAfterClosePanics(t *testing.T) {
	accessors := map[string]func(*Secret){
		"Expose": func(s *Secret) { s.Expose() },
		"Reveal": func(s *Secret) { _ = s.Reveal() },
		"Clone":  func(s *Secret) { s.Clone() },
		"WriteTo": func(s *Secret) {
			var buf bytes.Buffer
			_, _ = s.WriteTo(&buf)
		},
	}

	for name, access := range accessors {
		t.Run(name, func(t *testing.T) {
			s := FromString("gone")
			s.Close()

			defer func() {
				if recover() == nil {
					t.Fatalf("expected panic from %s after Close", name)
				}
			}()
			access(s)
		})
	}
}

func TestFormattingAfterCloseDoesNotPanic(t *testing.T) {
	s := FromString("gone")
	s.Close()

	if out := fmt.Sprint(s); out != Redacted {
		t.Errorf("fmt.Sprint after Close = %q", out)
	}
}

func TestWipe(t *testing.T) {
	b := []byte("wipe me")
	Wipe(b)
	for i, v := range b {
		if v != 0 {
			t.Fatalf("byte %d not zeroed", i)
		}
	}
}
