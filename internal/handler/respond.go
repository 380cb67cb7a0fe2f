package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/plateful/plateful-api/internal/usecase"
	"github.com/plateful/plateful-api/shared/ratelimit"
)

type successEnvelope struct {
	Success bool `json:"success"`
	Data    any  `json:"data,omitempty"`
}

type errorEnvelope struct {
	Success bool              `json:"success"`
	Error   string            `json:"error"`
	Code    string            `json:"code"`
	Fields  map[string]string `json:"fields,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(successEnvelope{Success: true, Data: data})
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorEnvelope{Error: message, Code: code})
}

func respondValidationError(w http.ResponseWriter, fields map[string]string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnprocessableEntity)
	_ = json.NewEncoder(w).Encode(errorEnvelope{
		Error:  "validation failed",
		Code:   "VALIDATION_FAILED",
		Fields: fields,
	})
}

// errorStatus maps a domain error to its HTTP status, response code and
// message. Unrecognized errors come back as an opaque internal error.
func errorStatus(err error) (int, string, string) {
	switch {
	case errors.Is(err, usecase.ErrEmailAlreadyRegistered):
		return http.StatusConflict, "EMAIL_ALREADY_REGISTERED", "email already registered"
	case errors.Is(err, usecase.ErrInvalidCredentials):
		return http.StatusUnauthorized, "INVALID_CREDENTIALS", "invalid email or password"
	case errors.Is(err, usecase.ErrAccountLocked):
		return http.StatusLocked, "ACCOUNT_LOCKED", "account temporarily locked, try again later"
	case errors.Is(err, usecase.ErrEmailNotVerified):
		return http.StatusForbidden, "EMAIL_NOT_VERIFIED", "verify your email before logging in"
	case errors.Is(err, usecase.ErrWeakPassword):
		return http.StatusBadRequest, "WEAK_PASSWORD",
			"password must be at least 8 characters with upper and lower case letters, a digit and a special character"
	case errors.Is(err, usecase.ErrTwoFactorLocked):
		return http.StatusLocked, "TWO_FACTOR_LOCKED", "too many failed codes, try again later"
	case errors.Is(err, usecase.ErrInvalidTwoFactorCode):
		return http.StatusUnauthorized, "INVALID_TWO_FACTOR_CODE", "invalid verification code"
	case errors.Is(err, usecase.ErrTwoFactorAlreadyEnabled):
		return http.StatusConflict, "TWO_FACTOR_ALREADY_ENABLED", "two-factor authentication is already enabled"
	case errors.Is(err, usecase.ErrTwoFactorNotEnabled):
		return http.StatusBadRequest, "TWO_FACTOR_NOT_ENABLED", "two-factor authentication is not enabled"
	case errors.Is(err, usecase.ErrNoPendingSetup):
		return http.StatusBadRequest, "NO_PENDING_SETUP", "no two-factor setup in progress"
	case errors.Is(err, usecase.ErrInvalidOrExpiredToken):
		return http.StatusUnauthorized, "INVALID_TOKEN", "invalid or expired token"
	case errors.Is(err, usecase.ErrInvalidRefreshToken):
		return http.StatusUnauthorized, "INVALID_REFRESH_TOKEN", "invalid refresh token"
	case errors.Is(err, usecase.ErrEmailAlreadyVerified):
		return http.StatusConflict, "EMAIL_ALREADY_VERIFIED", "email is already verified"
	case errors.Is(err, usecase.ErrGoogleAuthFailed):
		return http.StatusUnauthorized, "GOOGLE_AUTH_FAILED", "google authentication failed"
	case errors.Is(err, usecase.ErrSessionNotFound):
		return http.StatusNotFound, "SESSION_NOT_FOUND", "session not found"
	case errors.Is(err, usecase.ErrTooManyRequests), errors.Is(err, ratelimit.ErrRateLimited):
		return http.StatusTooManyRequests, "TOO_MANY_REQUESTS", "too many requests, slow down"
	default:
		return http.StatusInternalServerError, "INTERNAL_ERROR", "something went wrong"
	}
}

// respondDomainError renders a domain error; unexpected errors are logged
// before the opaque 500 goes out.
func respondDomainError(w http.ResponseWriter, logger *zerolog.Logger, err error) {
	status, code, message := errorStatus(err)
	if status == http.StatusInternalServerError {
		logger.Error().Err(err).Msg("request failed")
	}
	respondError(w, status, code, message)
}

// decodeJSON decodes a request body into dst, rejecting unknown fields.
func decodeJSON(r *http.Request, dst any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(dst)
}
