package textutil

import (
	"crypto/sha256"
	"encoding/hex"
)

// Fingerprint returns the identity hash of a (title, author) pair: the
// lowercase hex SHA-256 of Normalize(title) + "|" + Normalize(author). Two pairs
// share a fingerprint exactly when their normalized forms are byte-identical.
func Fingerprint(title, author string) string {
	sum := sha256.Sum256([]byte(Normalize(title) + "|" + Normalize(author)))
	return hex.EncodeToString(sum[:])
}

// FingerprintNormalized hashes values that are already normalized, avoiding a
// second normalization pass for callers that store both.
func FingerprintNormalized(normalizedTitle, normalizedAuthor string) string {
	sum := sha256.Sum256([]byte(normalizedTitle + "|" + normalizedAuthor))
	return hex.EncodeToString(sum[:])
}
