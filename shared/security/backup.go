package security

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"math/big"
	"strings"
)

// BackupCodeCount is the number of codes issued when two-factor is enabled.
const BackupCodeCount = 8

const backupCodeCharset = "abcdefghijklmnopqrstuvwxyz0123456789"

// GenerateBackupCodes returns BackupCodeCount fresh backup codes in the form
// "a1b-2cd-3ef-456" (four groups of three alphanumeric characters). The
// plaintext codes are shown to the user exactly once; only hashes persist.
func GenerateBackupCodes() ([]string, error) {
	codes := make([]string, 0, BackupCodeCount)
	for i := 0; i < BackupCodeCount; i++ {
		code, err := generateBackupCode()
		if err != nil {
			return nil, err
		}
		codes = append(codes, code)
	}

	return codes, nil
}

// HashBackupCode hashes a backup code for storage and lookup. Codes are
// normalized first so user input with stray spacing or casing still matches.
func HashBackupCode(code string) string {
	normalized := strings.ToLower(strings.TrimSpace(code))
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])
}

// LooksLikeBackupCode reports whether the input has the backup code shape,
// used to route a two-factor code to the right verifier.
func LooksLikeBackupCode(code string) bool {
	trimmed := strings.TrimSpace(code)
	if len(trimmed) != 15 {
		return false
	}
	for i, r := range trimmed {
		if i == 3 || i == 7 || i == 11 {
			if r != '-' {
				return false
			}
			continue
		}
		if !strings.ContainsRune(backupCodeCharset, r) && !('A' <= r && r <= 'Z') {
			return false
		}
	}
	return true
}

func generateBackupCode() (string, error) {
	groups := make([]string, 0, 4)
	max := big.NewInt(int64(len(backupCodeCharset)))

	for g := 0; g < 4; g++ {
		var group strings.Builder
		for c := 0; c < 3; c++ {
			n, err := rand.Int(rand.Reader, max)
			if err != nil {
				return "", err
			}
			group.WriteByte(backupCodeCharset[n.Int64()])
		}
		groups = append(groups, group.String())
	}

	return strings.Join(groups, "-"), nil
}
