package security

import (
	"github.com/matthewhartstonge/argon2"
)

// Hasher hashes and verifies passwords using argon2id. Verification is
// constant time. Plaintext passwords are never logged or stored.
type Hasher struct {
	config argon2.Config
}

// NewHasher creates a Hasher with the library's hardened defaults.
func NewHasher() *Hasher {
	return &Hasher{config: argon2.DefaultConfig()}
}

// NewHasherWithConfig creates a Hasher with an explicit cost configuration.
func NewHasherWithConfig(config argon2.Config) *Hasher {
	return &Hasher{config: config}
}

// HashPassword returns the encoded argon2id digest of the given password.
func (h *Hasher) HashPassword(password string) (string, error) {
	encoded, err := h.config.HashEncoded([]byte(password))
	if err != nil {
		return "", err
	}

	return string(encoded), nil
}

// VerifyPassword reports whether the password matches the encoded digest.
func (h *Hasher) VerifyPassword(password, encodedHash string) (bool, error) {
	return argon2.VerifyEncoded([]byte(password), []byte(encodedHash))
}
