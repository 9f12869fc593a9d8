package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// HashKey returns the hex sha256 digest of the parts joined by a NUL byte,
// suitable for cache keys.
func HashKey(parts ...string) string {
	sum := sha256.Sum256([]byte(strings.Join(parts, "\x00")))
	return hex.EncodeToString(sum[:])
}
