package handler

import (
	"errors"
	"net/http"
	"testing"

	"github.com/plateful/plateful-api/internal/usecase"
)

func TestErrorStatusMapping(t *testing.T) {
	tests := []struct {
		err        error
		wantStatus int
		wantCode   string
	}{
		{usecase.ErrEmailAlreadyRegistered, http.StatusConflict, "EMAIL_ALREADY_REGISTERED"},
		{usecase.ErrInvalidCredentials, http.StatusUnauthorized, "INVALID_CREDENTIALS"},
		{usecase.ErrAccountLocked, http.StatusLocked, "ACCOUNT_LOCKED"},
		{usecase.ErrTwoFactorLocked, http.StatusLocked, "TWO_FACTOR_LOCKED"},
		{usecase.ErrEmailNotVerified, http.StatusForbidden, "EMAIL_NOT_VERIFIED"},
		{usecase.ErrTooManyRequests, http.StatusTooManyRequests, "TOO_MANY_REQUESTS"},
		{usecase.ErrSessionNotFound, http.StatusNotFound, "SESSION_NOT_FOUND"},
		{usecase.ErrInvalidOrExpiredToken, http.StatusUnauthorized, "INVALID_TOKEN"},
		{errors.New("database exploded"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.wantCode, func(t *testing.T) {
			status, code, message := errorStatus(tt.err)
			if status != tt.wantStatus {
				t.Errorf("status = %d, want %d", status, tt.wantStatus)
			}
			if code != tt.wantCode {
				t.Errorf("code = %q, want %q", code, tt.wantCode)
			}
			if message == "" {
				t.Error("empty message")
			}
			// Internal details never leak through the message.
			if status == http.StatusInternalServerError && message != "something went wrong" {
				t.Errorf("internal error message leaked: %q", message)
			}
		})
	}
}

func TestValidatorStrongPassword(t *testing.T) {
	v, err := newRequestValidator()
	if err != nil {
		t.Fatalf("newRequestValidator: %v", err)
	}

	fields := v.check(registerRequest{
		Email:    "a@b.com",
		Password: "weak",
		Name:     "A",
		Role:     "CUSTOMER",
	})
	if fields == nil {
		t.Fatal("weak password passed validation")
	}
	if _, ok := fields["Password"]; !ok {
		t.Errorf("no Password field error, got %v", fields)
	}

	fields = v.check(registerRequest{
		Email:    "a@b.com",
		Password: "Sup3r$ecret",
		Name:     "A",
		Role:     "CUSTOMER",
	})
	if fields != nil {
		t.Errorf("valid payload rejected: %v", fields)
	}
}

func TestValidatorOwnerRequiresBusinessFields(t *testing.T) {
	v, err := newRequestValidator()
	if err != nil {
		t.Fatalf("newRequestValidator: %v", err)
	}

	fields := v.check(registerRequest{
		Email:    "owner@b.com",
		Password: "Sup3r$ecret",
		Name:     "Owner",
		Role:     "RESTAURANT_OWNER",
	})
	if fields == nil {
		t.Fatal("owner signup without business fields passed validation")
	}

	fields = v.check(registerRequest{
		Email:        "owner@b.com",
		Password:     "Sup3r$ecret",
		Name:         "Owner",
		Role:         "RESTAURANT_OWNER",
		BusinessName: "Pasta Palace",
		Phone:        "+1 555 0100",
		Address:      "1 Noodle Way",
	})
	if fields != nil {
		t.Errorf("complete owner payload rejected: %v", fields)
	}
}
