package handler

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/plateful/plateful-api/internal/usecase"
)

type passwordResetHandler struct {
	resetUsecase usecase.PasswordResetUsecase
	validator    *requestValidator
	logger       *zerolog.Logger
}

func newPasswordResetHandler(
	resetUsecase usecase.PasswordResetUsecase,
	validator *requestValidator,
	logger *zerolog.Logger,
) *passwordResetHandler {
	return &passwordResetHandler{resetUsecase: resetUsecase, validator: validator, logger: logger}
}

func (h *passwordResetHandler) forgotPassword(w http.ResponseWriter, r *http.Request) {
	var req forgotPasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "BAD_REQUEST", "malformed request body")
		return
	}
	if fields := h.validator.check(req); fields != nil {
		respondValidationError(w, fields)
		return
	}

	if err := h.resetUsecase.RequestPasswordReset(r.Context(), req.Email, requestMeta(r)); err != nil {
		respondDomainError(w, h.logger, err)
		return
	}

	// Identical answer whether or not the address exists.
	respondJSON(w, http.StatusOK, map[string]string{
		"message": "if an account exists for that address, a reset link has been sent",
	})
}

func (h *passwordResetHandler) resetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "BAD_REQUEST", "malformed request body")
		return
	}
	if fields := h.validator.check(req); fields != nil {
		respondValidationError(w, fields)
		return
	}

	if err := h.resetUsecase.ResetPassword(r.Context(), req.Token, req.NewPassword, requestMeta(r)); err != nil {
		respondDomainError(w, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"message": "password updated, please log in again",
	})
}
