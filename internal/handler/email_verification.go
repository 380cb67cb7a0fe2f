package handler

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/plateful/plateful-api/internal/usecase"
)

type emailVerificationHandler struct {
	verificationUsecase usecase.EmailVerificationUsecase
	validator           *requestValidator
	logger              *zerolog.Logger
}

func newEmailVerificationHandler(
	verificationUsecase usecase.EmailVerificationUsecase,
	validator *requestValidator,
	logger *zerolog.Logger,
) *emailVerificationHandler {
	return &emailVerificationHandler{
		verificationUsecase: verificationUsecase,
		validator:           validator,
		logger:              logger,
	}
}

func (h *emailVerificationHandler) verifyEmail(w http.ResponseWriter, r *http.Request) {
	var req verifyEmailRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "BAD_REQUEST", "malformed request body")
		return
	}
	if fields := h.validator.check(req); fields != nil {
		respondValidationError(w, fields)
		return
	}

	if err := h.verificationUsecase.VerifyEmail(r.Context(), req.Token, requestMeta(r)); err != nil {
		respondDomainError(w, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"message": "email verified, you can now log in",
	})
}

func (h *emailVerificationHandler) resendVerification(w http.ResponseWriter, r *http.Request) {
	var req resendVerificationRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "BAD_REQUEST", "malformed request body")
		return
	}
	if fields := h.validator.check(req); fields != nil {
		respondValidationError(w, fields)
		return
	}

	if err := h.verificationUsecase.ResendVerification(r.Context(), req.Email, requestMeta(r)); err != nil {
		respondDomainError(w, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"message": "if the address needs verification, a new link has been sent",
	})
}
