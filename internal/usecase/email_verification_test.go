package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/plateful/plateful-api/internal/model"
)

func TestVerifyEmailTokenIsSingleUse(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	user, err := env.auth.Register(ctx, RegisterParams{
		Email:    "once@example.com",
		Password: testPassword,
		Name:     "Once",
		Role:     model.RoleCustomer,
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	raw := env.notifier.verificationTokens[0]

	if err := env.verifyUC.VerifyEmail(ctx, raw, RequestMeta{}); err != nil {
		t.Fatalf("VerifyEmail: %v", err)
	}
	if !user.EmailVerified {
		t.Error("user not marked verified")
	}
	if !env.logs.hasEvent(model.EventEmailVerified) {
		t.Error("no EMAIL_VERIFIED event recorded")
	}

	if err := env.verifyUC.VerifyEmail(ctx, raw, RequestMeta{}); !errors.Is(err, ErrInvalidOrExpiredToken) {
		t.Errorf("token replay: got %v, want ErrInvalidOrExpiredToken", err)
	}
}

func TestVerifyEmailExpiredToken(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.auth.Register(ctx, RegisterParams{
		Email:    "late@example.com",
		Password: testPassword,
		Name:     "Late",
		Role:     model.RoleCustomer,
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	env.tokens.tokens[0].ExpiresAt = time.Now().Add(-time.Minute)

	raw := env.notifier.verificationTokens[0]
	if err := env.verifyUC.VerifyEmail(ctx, raw, RequestMeta{}); !errors.Is(err, ErrInvalidOrExpiredToken) {
		t.Errorf("got %v, want ErrInvalidOrExpiredToken", err)
	}
}

func TestResendVerification(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.auth.Register(ctx, RegisterParams{
		Email:    "again@example.com",
		Password: testPassword,
		Name:     "Again",
		Role:     model.RoleCustomer,
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	// Inside the cooldown the resend is refused.
	err = env.verifyUC.ResendVerification(ctx, "again@example.com", RequestMeta{})
	if !errors.Is(err, ErrTooManyRequests) {
		t.Fatalf("resend inside cooldown: got %v, want ErrTooManyRequests", err)
	}

	// Age the outstanding token past the cooldown.
	env.tokens.tokens[0].CreatedAt = time.Now().Add(-2 * resendCooldown)

	if err := env.verifyUC.ResendVerification(ctx, "again@example.com", RequestMeta{}); err != nil {
		t.Fatalf("resend after cooldown: %v", err)
	}
	if len(env.notifier.verificationTokens) != 2 {
		t.Fatalf("sent %d verification emails, want 2", len(env.notifier.verificationTokens))
	}

	// The resend invalidated the first token.
	first := env.notifier.verificationTokens[0]
	if err := env.verifyUC.VerifyEmail(ctx, first, RequestMeta{}); !errors.Is(err, ErrInvalidOrExpiredToken) {
		t.Errorf("superseded token: got %v, want ErrInvalidOrExpiredToken", err)
	}
	second := env.notifier.verificationTokens[1]
	if err := env.verifyUC.VerifyEmail(ctx, second, RequestMeta{}); err != nil {
		t.Errorf("fresh token: %v", err)
	}
}

func TestResendVerificationUnknownEmailIsSilent(t *testing.T) {
	env := newTestEnv(t)

	if err := env.verifyUC.ResendVerification(context.Background(), "nobody@example.com", RequestMeta{}); err != nil {
		t.Fatalf("ResendVerification: %v", err)
	}
	if len(env.notifier.verificationTokens) != 0 {
		t.Error("verification email sent for an unknown address")
	}
}

func TestResendVerificationAlreadyVerified(t *testing.T) {
	env := newTestEnv(t)

	env.registerVerifiedUser(t, "done@example.com")

	err := env.verifyUC.ResendVerification(context.Background(), "done@example.com", RequestMeta{})
	if !errors.Is(err, ErrEmailAlreadyVerified) {
		t.Errorf("got %v, want ErrEmailAlreadyVerified", err)
	}
}
