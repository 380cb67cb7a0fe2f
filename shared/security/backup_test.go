package security

import "testing"

func TestGenerateBackupCodes(t *testing.T) {
	codes, err := GenerateBackupCodes()
	if err != nil {
		t.Fatalf("GenerateBackupCodes: %v", err)
	}

	if len(codes) != BackupCodeCount {
		t.Fatalf("generated %d codes, want %d", len(codes), BackupCodeCount)
	}

	seen := make(map[string]bool, len(codes))
	for _, code := range codes {
		if !LooksLikeBackupCode(code) {
			t.Errorf("code %q does not match the backup code shape", code)
		}
		if seen[code] {
			t.Errorf("duplicate code %q in one batch", code)
		}
		seen[code] = true
	}
}

func TestHashBackupCodeNormalizes(t *testing.T) {
	if HashBackupCode("a1b-2cd-3ef-456") != HashBackupCode("  A1B-2CD-3EF-456  ") {
		t.Error("hash is sensitive to case or surrounding whitespace")
	}
	if HashBackupCode("a1b-2cd-3ef-456") == HashBackupCode("a1b-2cd-3ef-457") {
		t.Error("different codes hash identically")
	}
}

func TestLooksLikeBackupCode(t *testing.T) {
	tests := []struct {
		name string
		code string
		want bool
	}{
		{"well formed", "a1b-2cd-3ef-456", true},
		{"totp code", "123456", false},
		{"too short", "a1b-2cd-3ef", false},
		{"dashes misplaced", "a1b2-cd-3ef-456", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := LooksLikeBackupCode(tt.code); got != tt.want {
				t.Errorf("LooksLikeBackupCode(%q) = %v, want %v", tt.code, got, tt.want)
			}
		})
	}
}
