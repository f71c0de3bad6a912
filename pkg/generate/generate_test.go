package generate

import (
	"errors"
	"strings"
	"testing"
)

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("entropy source unavailable") }

type zeroReader struct{}

func (zeroReader) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = 0
	}
	return len(p), nil
}

func TestGenerate_AlnumOnly(t *testing.T) {
	g := New()
	alnum := CharsetLowercase + CharsetUppercase + CharsetDigits

	for i := 0; i < 50; i++ {
		s, err := g.Generate(Spec{AlnumOnly: true, Length: 40})
		if err != nil {
			t.Fatalf("Generate failed: %v", err)
		}
		for _, c := range s.Reveal() {
			if !strings.ContainsRune(alnum, c) {
				t.Fatalf("character %q outside [A-Za-z0-9]", c)
			}
		}
		s.Close()
	}
}

func TestGenerate_LengthInRangeIsExact(t *testing.T) {
	g := New()
	for _, length := range []int{MinLength, 16, DefaultLength, 100, MaxLength} {
		for _, alnum := range []bool{true, false} {
			s, err := g.Generate(Spec{AlnumOnly: alnum, Length: length})
			if err != nil {
				t.Fatalf("Generate(%d, alnum=%v) failed: %v", length, alnum, err)
			}
			if s.Len() != length {
				t.Errorf("Generate(%d, alnum=%v) produced length %d", length, alnum, s.Len())
			}
			s.Close()
		}
	}
}

func TestGenerate_OutOfRangeUsesDefault(t *testing.T) {
	g := New()
	for _, length := range []int{-1, 0, MinLength - 1, MaxLength + 1} {
		s, err := g.Generate(Spec{Length: length})
		if err != nil {
			t.Fatalf("Generate(%d) failed: %v", length, err)
		}
		if s.Len() != DefaultLength {
			t.Errorf("Generate(%d) produced length %d, want %d", length, s.Len(), DefaultLength)
		}
		s.Close()
	}
}

func TestGenerate_ContainsEveryClass(t *testing.T) {
	g := New()
	for i := 0; i < 50; i++ {
		s, err := g.Generate(Spec{Length: MinLength})
		if err != nil {
			t.Fatalf("Generate failed: %v", err)
		}
		value := s.Reveal()
		if !strings.ContainsAny(value, CharsetLowercase) ||
			!strings.ContainsAny(value, CharsetUppercase) ||
			!strings.ContainsAny(value, CharsetDigits) ||
			!strings.ContainsAny(value, CharsetSymbols) {
			t.Errorf("password %q is missing a character class", value)
		}
		s.Close()
	}
}

func TestGenerate_EntropyFailure(t *testing.T) {
	g := New(WithRand(failingReader{}))

	s, err := g.Generate(DefaultSpec())
	if !errors.Is(err, ErrGeneration) {
		t.Fatalf("expected ErrGeneration, got %v", err)
	}
	if s != nil {
		t.Error("expected nil secret on failure")
	}
}

func TestGenerate_GivesUpWhenClassesNeverAppear(t *testing.T) {
	// An all-zero source always draws the first character of the alphabet.
	g := New(WithRand(zeroReader{}))

	_, err := g.Generate(DefaultSpec())
	if !errors.Is(err, ErrGeneration) {
		t.Fatalf("expected ErrGeneration, got %v", err)
	}
}

func TestGenerate_CustomSymbols(t *testing.T) {
	symbols := "!@#$%^&*"
	g := New(WithSymbols(symbols))
	allowed := CharsetLowercase + CharsetUppercase + CharsetDigits + symbols

	s, err := g.Generate(Spec{Length: 64})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	defer s.Close()

	for _, c := range s.Reveal() {
		if !strings.ContainsRune(allowed, c) {
			t.Errorf("character %q outside configured alphabet", c)
		}
	}
}

func TestCharset_SymbolValidation(t *testing.T) {
	tests := []struct {
		name        string
		symbols     string
		expectError bool
	}{
		{"default", CharsetSymbols, false},
		{"exactly minimum", "!@#$%^&*", false},
		{"duplicates collapse below minimum", "!!!!!!!!@@", true},
		{"too few", "!@#", true},
		{"empty", "", true},
		{"contains letter", "!@#$%^&*a", true},
		{"contains space", "!@#$%^&* ", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := New(WithSymbols(tt.symbols))
			_, err := g.Charset(Spec{})
			if tt.expectError && !errors.Is(err, ErrCharsetTooSmall) {
				t.Errorf("expected ErrCharsetTooSmall, got %v", err)
			}
			if !tt.expectError && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestCharset_AlnumIgnoresSymbols(t *testing.T) {
	g := New(WithSymbols(""))
	charset, err := g.Charset(Spec{AlnumOnly: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(charset) != 62 {
		t.Errorf("expected 62 alphanumeric characters, got %d", len(charset))
	}
}

func TestGenerate_TooFewSymbolsIsGenerationError(t *testing.T) {
	g := New(WithSymbols("!"))
	_, err := g.Generate(DefaultSpec())
	if !errors.Is(err, ErrGeneration) || !errors.Is(err, ErrCharsetTooSmall) {
		t.Errorf("expected ErrGeneration wrapping ErrCharsetTooSmall, got %v", err)
	}
}

func TestNormalizeLength(t *testing.T) {
	tests := []struct {
		raw            string
		wantLength     int
		wantNormalized bool
	}{
		{"", DefaultLength, false},
		{"16", 16, false},
		{" 24 ", 24, false},
		{"8", MinLength, false},
		{"256", MaxLength, false},
		{"7", DefaultLength, true},
		{"257", DefaultLength, true},
		{"0", DefaultLength, true},
		{"-5", DefaultLength, true},
		{"twelve", DefaultLength, true},
		{"12.5", DefaultLength, true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			length, normalized := NormalizeLength(tt.raw)
			if length != tt.wantLength || normalized != tt.wantNormalized {
				t.Errorf("NormalizeLength(%q) = (%d, %v), want (%d, %v)",
					tt.raw, length, normalized, tt.wantLength, tt.wantNormalized)
			}
		})
	}
}

func TestSpecNormalize(t *testing.T) {
	spec, normalized := Spec{AlnumOnly: true, Length: 1000}.Normalize()
	if !normalized || spec.Length != DefaultLength || !spec.AlnumOnly {
		t.Errorf("unexpected normalization result: %+v normalized=%v", spec, normalized)
	}

	spec, normalized = Spec{Length: 20}.Normalize()
	if normalized || spec.Length != 20 {
		t.Errorf("in-range spec should be unchanged: %+v normalized=%v", spec, normalized)
	}
}
