package password

import (
	"strings"
	"unicode"
)

// Strength scores a candidate secret on five criteria, one point each:
// at least six bytes long, an upper-case letter, a lower-case letter,
// a digit, and one of the symbols !@#$%^&*(),.?":{}|<>.
type Strength int

// MinStrength is the score the dashboard requires of new passwords.
const MinStrength Strength = 3

const symbols = `!@#$%^&*(),.?":{}|<>`

// Score computes the Strength of secret.
func Score(secret string) Strength {
	var upper, lower, digit, symbol bool
	for _, r := range secret {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		case strings.ContainsRune(symbols, r):
			symbol = true
		}
	}

	var s Strength
	for _, ok := range []bool{len(secret) >= 6, upper, lower, digit, symbol} {
		if ok {
			s++
		}
	}
	return s
}

// Label maps a score to the class name used by the strength meter.
func (s Strength) Label() string {
	switch {
	case s <= 1:
		return "very-weak"
	case s == 2:
		return "weak"
	case s == 3:
		return "medium"
	case s == 4:
		return "strong"
	default:
		return "very-strong"
	}
}
