package internal

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"math/big"
	"strconv"
)

const (
	resetCodeMin = 100000
	resetCodeMax = 999999
)

var resetCodeSpan = big.NewInt(resetCodeMax - resetCodeMin + 1)

// NewResetCode returns a six-digit code drawn uniformly from
// [100000, 999999].
func NewResetCode() (string, error) {
	n, err := rand.Int(rand.Reader, resetCodeSpan)
	if err != nil {
		return "", err
	}
	return strconv.FormatInt(resetCodeMin+n.Int64(), 10), nil
}

// HashResetCode returns the digest stored in place of a reset code.
func HashResetCode(code string) [32]byte {
	return sha256.Sum256([]byte(code))
}

// ResetCodeMatches compares code against a stored digest in constant time.
func ResetCodeMatches(code string, digest [32]byte) bool {
	got := HashResetCode(code)
	return subtle.ConstantTimeCompare(got[:], digest[:]) == 1
}
