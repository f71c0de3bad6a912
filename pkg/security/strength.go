// Package security grades the passwords of a store: weak ones, ones
// reused across entries and ones left unchanged for a long time.
package security

import (
	"unicode/utf8"
)

// Strength is the grade of a single password.
type Strength int

const (
	// Weak passwords are shorter than 8 characters or a single repeated
	// character.
	Weak Strength = iota
	Fair
	Good
	Strong
)

// String returns a human-readable representation of the strength.
func (s Strength) String() string {
	switch s {
	case Weak:
		return "Weak"
	case Fair:
		return "Fair"
	case Good:
		return "Good"
	case Strong:
		return "Strong"
	default:
		return "Unknown"
	}
}

// Points returns the strength's share of the strength component:
// Weak=0, Fair=15, Good=30, Strong=40.
func (s Strength) Points() int {
	switch s {
	case Fair:
		return 15
	case Good:
		return 30
	case Strong:
		return 40
	default:
		return 0
	}
}

// PasswordStrength grades a password, length first as NIST SP 800-63B
// recommends. A password under 14 characters drawn from a single
// character class (only digits, say) is graded one step lower.
func PasswordStrength(password []byte) Strength {
	length := utf8.RuneCount(password)

	var s Strength
	switch {
	case length >= 20:
		s = Strong
	case length >= 14:
		s = Good
	case length >= 8:
		s = Fair
	default:
		return Weak
	}

	if repeated(password) {
		return Weak
	}
	if length < 14 && classes(password) == 1 {
		s--
	}
	return s
}

// repeated reports whether password is one character over and over.
func repeated(password []byte) bool {
	first, size := utf8.DecodeRune(password)
	for i := size; i < len(password); {
		r, n := utf8.DecodeRune(password[i:])
		if r != first {
			return false
		}
		i += n
	}
	return true
}

// classes counts the character classes present: lowercase, uppercase,
// digits and everything else.
func classes(password []byte) int {
	var lower, upper, digit, other int
	for _, c := range password {
		switch {
		case c >= 'a' && c <= 'z':
			lower = 1
		case c >= 'A' && c <= 'Z':
			upper = 1
		case c >= '0' && c <= '9':
			digit = 1
		default:
			other = 1
		}
	}
	return lower + upper + digit + other
}
