package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/plateful/plateful-api/internal/model"
)

func TestRevokeSessionOwnership(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	alice := env.registerVerifiedUser(t, "alice@example.com")
	bob := env.registerVerifiedUser(t, "bob@example.com")

	if _, err := env.auth.Login(ctx, LoginParams{
		Email: "alice@example.com", Password: testPassword, Meta: RequestMeta{IP: "192.0.2.1"},
	}); err != nil {
		t.Fatalf("alice login: %v", err)
	}
	if _, err := env.auth.Login(ctx, LoginParams{
		Email: "bob@example.com", Password: testPassword, Meta: RequestMeta{IP: "192.0.2.2"},
	}); err != nil {
		t.Fatalf("bob login: %v", err)
	}

	aliceSessions, err := env.sessionUC.ListSessions(ctx, alice.ID.Hex())
	if err != nil {
		t.Fatalf("ListSessions: %v", err)
	}
	if len(aliceSessions) != 1 {
		t.Fatalf("alice has %d sessions, want 1", len(aliceSessions))
	}

	// Bob cannot revoke Alice's session, and the refusal looks identical to
	// a missing session.
	err = env.sessionUC.RevokeSession(ctx, bob.ID.Hex(), aliceSessions[0].ID.Hex(), RequestMeta{})
	if !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("cross-user revoke: got %v, want ErrSessionNotFound", err)
	}

	if err := env.sessionUC.RevokeSession(ctx, alice.ID.Hex(), aliceSessions[0].ID.Hex(), RequestMeta{}); err != nil {
		t.Fatalf("own revoke: %v", err)
	}

	remaining, err := env.sessionUC.ListSessions(ctx, alice.ID.Hex())
	if err != nil {
		t.Fatalf("ListSessions: %v", err)
	}
	if len(remaining) != 0 {
		t.Errorf("alice still has %d sessions", len(remaining))
	}
}

func TestRevokeAllSessions(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	user := env.registerVerifiedUser(t, "multi@example.com")

	for i := 0; i < 3; i++ {
		if _, err := env.auth.Login(ctx, LoginParams{
			Email:    "multi@example.com",
			Password: testPassword,
			Meta:     RequestMeta{IP: "192.0.2.1"},
		}); err != nil {
			t.Fatalf("login %d: %v", i+1, err)
		}
	}

	revoked, err := env.sessionUC.RevokeAllSessions(ctx, user.ID.Hex(), RequestMeta{})
	if err != nil {
		t.Fatalf("RevokeAllSessions: %v", err)
	}
	if revoked != 3 {
		t.Errorf("revoked = %d, want 3", revoked)
	}
}

func TestListSecurityEvents(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	user := env.registerVerifiedUser(t, "history@example.com")

	if _, err := env.auth.Login(ctx, LoginParams{
		Email:    "history@example.com",
		Password: testPassword,
		Meta:     RequestMeta{IP: "192.0.2.1"},
	}); err != nil {
		t.Fatalf("Login: %v", err)
	}

	events, err := env.sessionUC.ListSecurityEvents(ctx, user.ID.Hex(), 0)
	if err != nil {
		t.Fatalf("ListSecurityEvents: %v", err)
	}

	var sawSignup, sawLogin bool
	for _, event := range events {
		switch event.EventType {
		case model.EventSignup:
			sawSignup = true
		case model.EventLoginSuccess:
			sawLogin = true
		}
	}
	if !sawSignup || !sawLogin {
		t.Errorf("events missing signup or login: signup=%v login=%v", sawSignup, sawLogin)
	}
}
