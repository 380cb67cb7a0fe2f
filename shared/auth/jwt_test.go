package auth

import (
	"errors"
	"testing"
	"time"
)

func newTestService() *TokenService {
	return NewTokenService(Config{
		AccessSecret:       "access-secret-for-tests",
		RefreshSecret:      "refresh-secret-for-tests",
		AccessExpiresIn:    15 * time.Minute,
		RefreshExpiresIn:   7 * 24 * time.Hour,
		TwoFactorExpiresIn: 5 * time.Minute,
		Issuer:             "plateful-test",
	})
}

func TestIssueAndVerifyTokenPair(t *testing.T) {
	service := newTestService()

	pair, err := service.IssueTokenPair("user-1", "a@b.com", "CUSTOMER", true, "session-1")
	if err != nil {
		t.Fatalf("IssueTokenPair: %v", err)
	}

	accessClaims, err := service.VerifyAccess(pair.AccessToken)
	if err != nil {
		t.Fatalf("VerifyAccess: %v", err)
	}
	if accessClaims.UserID != "user-1" {
		t.Errorf("access UserID = %q, want user-1", accessClaims.UserID)
	}
	if accessClaims.SessionID != "session-1" {
		t.Errorf("access SessionID = %q, want session-1", accessClaims.SessionID)
	}
	if accessClaims.Role != "CUSTOMER" {
		t.Errorf("access Role = %q, want CUSTOMER", accessClaims.Role)
	}
	if !accessClaims.EmailVerified {
		t.Error("access EmailVerified = false, want true")
	}

	refreshClaims, err := service.VerifyRefresh(pair.RefreshToken)
	if err != nil {
		t.Fatalf("VerifyRefresh: %v", err)
	}
	if refreshClaims.SessionID != "session-1" {
		t.Errorf("refresh SessionID = %q, want session-1", refreshClaims.SessionID)
	}
}

func TestTokenKindsAreNotInterchangeable(t *testing.T) {
	service := newTestService()

	pair, err := service.IssueTokenPair("user-1", "a@b.com", "CUSTOMER", true, "session-1")
	if err != nil {
		t.Fatalf("IssueTokenPair: %v", err)
	}
	challenge, err := service.IssueTwoFactorToken("user-1")
	if err != nil {
		t.Fatalf("IssueTwoFactorToken: %v", err)
	}

	tests := []struct {
		name  string
		check func() error
	}{
		{"refresh token as access", func() error { _, err := service.VerifyAccess(pair.RefreshToken); return err }},
		{"access token as refresh", func() error { _, err := service.VerifyRefresh(pair.AccessToken); return err }},
		{"access token as two-factor", func() error { _, err := service.VerifyTwoFactor(pair.AccessToken); return err }},
		{"two-factor token as access", func() error { _, err := service.VerifyAccess(challenge); return err }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.check(); !errors.Is(err, ErrTokenInvalid) {
				t.Errorf("got %v, want ErrTokenInvalid", err)
			}
		})
	}
}

func TestVerifyAccessExpired(t *testing.T) {
	service := NewTokenService(Config{
		AccessSecret:       "access-secret-for-tests",
		RefreshSecret:      "refresh-secret-for-tests",
		AccessExpiresIn:    -time.Minute,
		RefreshExpiresIn:   7 * 24 * time.Hour,
		TwoFactorExpiresIn: 5 * time.Minute,
		Issuer:             "plateful-test",
	})

	pair, err := service.IssueTokenPair("user-1", "a@b.com", "CUSTOMER", true, "session-1")
	if err != nil {
		t.Fatalf("IssueTokenPair: %v", err)
	}

	if _, err := service.VerifyAccess(pair.AccessToken); !errors.Is(err, ErrTokenExpired) {
		t.Errorf("got %v, want ErrTokenExpired", err)
	}
}

func TestVerifyAccessWrongSecret(t *testing.T) {
	service := newTestService()
	other := NewTokenService(Config{
		AccessSecret:       "a-different-secret",
		RefreshSecret:      "another-different-secret",
		AccessExpiresIn:    15 * time.Minute,
		RefreshExpiresIn:   7 * 24 * time.Hour,
		TwoFactorExpiresIn: 5 * time.Minute,
		Issuer:             "plateful-test",
	})

	pair, err := other.IssueTokenPair("user-1", "a@b.com", "CUSTOMER", true, "session-1")
	if err != nil {
		t.Fatalf("IssueTokenPair: %v", err)
	}

	if _, err := service.VerifyAccess(pair.AccessToken); !errors.Is(err, ErrTokenInvalid) {
		t.Errorf("got %v, want ErrTokenInvalid", err)
	}
}

func TestVerifyGarbageToken(t *testing.T) {
	service := newTestService()

	if _, err := service.VerifyAccess("not-a-jwt"); !errors.Is(err, ErrTokenInvalid) {
		t.Errorf("got %v, want ErrTokenInvalid", err)
	}
}
