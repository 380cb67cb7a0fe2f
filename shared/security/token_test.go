package security

import "testing"

func TestGenerateVerificationToken(t *testing.T) {
	raw, hash, err := GenerateVerificationToken()
	if err != nil {
		t.Fatalf("GenerateVerificationToken: %v", err)
	}

	if len(raw) != 64 {
		t.Errorf("raw token length = %d, want 64 hex chars", len(raw))
	}
	if raw == hash {
		t.Error("raw token equals its hash")
	}
	if HashVerificationToken(raw) != hash {
		t.Error("HashVerificationToken(raw) does not reproduce the stored hash")
	}
}

func TestGenerateVerificationTokenUnique(t *testing.T) {
	first, _, err := GenerateVerificationToken()
	if err != nil {
		t.Fatalf("GenerateVerificationToken: %v", err)
	}
	second, _, err := GenerateVerificationToken()
	if err != nil {
		t.Fatalf("GenerateVerificationToken: %v", err)
	}

	if first == second {
		t.Error("two generated tokens are identical")
	}
}
