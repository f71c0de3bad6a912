package vault

import (
	"errors"
	"fmt"
	"unicode/utf8"
)

const (
	MinPasswordLength = 8
	MaxPasswordLength = 128
)

var (
	ErrPasswordTooShort = errors.New("vault: master password must be at least 8 characters")
	ErrPasswordTooLong  = errors.New("vault: master password must be at most 128 characters")
)

// PasswordStrength is a rough estimate of a master password's strength.
type PasswordStrength int

const (
	PasswordWeak PasswordStrength = iota
	PasswordFair
	PasswordGood
	PasswordStrong
)

func (s PasswordStrength) String() string {
	switch s {
	case PasswordWeak:
		return "weak"
	case PasswordFair:
		return "fair"
	case PasswordGood:
		return "good"
	case PasswordStrong:
		return "strong"
	default:
		return "unknown"
	}
}

// PasswordValidationResult holds the outcome of ValidateMasterPassword.
// Only length is a hard requirement; complexity produces warnings.
type PasswordValidationResult struct {
	Strength PasswordStrength
	Warnings []string
	err      error
}

// Err returns the hard-requirement failure, if any.
func (r *PasswordValidationResult) Err() error { return r.err }

// ValidateMasterPassword checks length (in characters) and estimates
// strength from length and the number of character classes used.
func ValidateMasterPassword(password []byte) *PasswordValidationResult {
	n := utf8.RuneCount(password)
	switch {
	case n < MinPasswordLength:
		return &PasswordValidationResult{Strength: PasswordWeak, err: ErrPasswordTooShort}
	case n > MaxPasswordLength:
		return &PasswordValidationResult{Strength: PasswordWeak, err: ErrPasswordTooLong}
	}

	var upper, lower, digit, other bool
	for _, c := range password {
		switch {
		case c >= 'A' && c <= 'Z':
			upper = true
		case c >= 'a' && c <= 'z':
			lower = true
		case c >= '0' && c <= '9':
			digit = true
		default:
			other = true
		}
	}
	complexity := 0
	for _, has := range []bool{upper, lower, digit, other} {
		if has {
			complexity++
		}
	}

	result := &PasswordValidationResult{}
	if complexity < 2 {
		result.Warnings = append(result.Warnings,
			"consider mixing uppercase, lowercase, digits and symbols")
	}
	if n < 12 {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("longer passwords (12+ characters) are more secure, this one has %d", n))
	}

	switch {
	case complexity >= 3 && n >= 16:
		result.Strength = PasswordStrong
	case complexity >= 2 && n >= 12:
		result.Strength = PasswordGood
	case complexity >= 2 || n >= 12:
		result.Strength = PasswordFair
	default:
		result.Strength = PasswordWeak
	}
	return result
}
