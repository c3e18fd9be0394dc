package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"strings"
	"unicode"
)

// ErrInvalidPIN is returned for codes that are not exactly four digits.
var ErrInvalidPIN = errors.New("PIN must be exactly 4 digits")

// HashPIN hashes the 4-digit lock code with a single sha256 pass. This is a
// convenience lock for a shared device, not a security boundary.
func HashPIN(pin string) (string, error) {
	pin = strings.TrimSpace(pin)
	if len(pin) != 4 {
		return "", ErrInvalidPIN
	}
	for _, r := range pin {
		if !unicode.IsDigit(r) {
			return "", ErrInvalidPIN
		}
	}
	sum := sha256.Sum256([]byte(pin))
	return hex.EncodeToString(sum[:]), nil
}

// VerifyPIN compares a candidate code against a stored hash.
func VerifyPIN(pin, storedHash string) bool {
	h, err := HashPIN(pin)
	if err != nil {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(h), []byte(storedHash)) == 1
}
