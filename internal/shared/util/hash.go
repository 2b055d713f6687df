package util

import (
	"crypto/sha256"
	"encoding/hex"
)

// HashQuoteKey returns a filesystem-safe identifier for a quote ID.
func HashQuoteKey(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}
