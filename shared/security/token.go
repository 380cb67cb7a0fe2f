package security

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
)

// GenerateVerificationToken returns a fresh single-use token as the raw
// hex string handed to the user (via an email link) and the SHA-256 hash
// that is persisted. The raw token is never stored.
func GenerateVerificationToken() (raw string, hash string, err error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", "", err
	}

	raw = hex.EncodeToString(buf)
	return raw, HashVerificationToken(raw), nil
}

// HashVerificationToken hashes a presented raw token for lookup against the
// stored hash.
func HashVerificationToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
