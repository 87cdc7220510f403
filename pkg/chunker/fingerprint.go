package chunker

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Normalize collapses every run of Unicode whitespace to a single space and
// trims the ends. Two texts that differ only in whitespace normalize equal.
func Normalize(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

// Fingerprint returns the lowercase hex SHA-256 of the normalized text.
// It is the identity of a chunk everywhere in the system: the vector stores
// key records by it, and re-indexing unchanged content produces the same
// fingerprints and therefore no new records.
func Fingerprint(text string) string {
	sum := sha256.Sum256([]byte(Normalize(text)))
	return hex.EncodeToString(sum[:])
}
