package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// CalculateHash returns the uppercase hex sha256 digest of the input.
// The digest is used as a cheap change-detection fingerprint, not for security.
func CalculateHash(input string) string {
	sum := sha256.Sum256([]byte(input))
	return strings.ToUpper(hex.EncodeToString(sum[:]))
}
