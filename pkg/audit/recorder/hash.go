package recorder

import (
	"crypto/sha256"
	"encoding/hex"
)

// HashSource returns the hex-encoded SHA-256 of a rule-set source.
// Returns an empty string if source is empty.
func HashSource(source string) string {
	if source == "" {
		return ""
	}
	hash := sha256.Sum256([]byte(source))
	return hex.EncodeToString(hash[:])
}
