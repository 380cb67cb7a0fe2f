package handler

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/plateful/plateful-api/internal/usecase"
)

type twoFactorHandler struct {
	twoFactorUsecase usecase.TwoFactorUsecase
	validator        *requestValidator
	logger           *zerolog.Logger
}

func newTwoFactorHandler(
	twoFactorUsecase usecase.TwoFactorUsecase,
	validator *requestValidator,
	logger *zerolog.Logger,
) *twoFactorHandler {
	return &twoFactorHandler{twoFactorUsecase: twoFactorUsecase, validator: validator, logger: logger}
}

func (h *twoFactorHandler) setup(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing credentials")
		return
	}

	provisioning, err := h.twoFactorUsecase.InitiateSetup(r.Context(), claims.UserID)
	if err != nil {
		respondDomainError(w, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, twoFactorSetupResponse{
		Secret:     provisioning.Secret,
		OtpauthURL: provisioning.OtpauthURL,
		QRCode:     provisioning.QRCode,
	})
}

func (h *twoFactorHandler) activate(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing credentials")
		return
	}

	var req twoFactorCodeRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "BAD_REQUEST", "malformed request body")
		return
	}
	if fields := h.validator.check(req); fields != nil {
		respondValidationError(w, fields)
		return
	}

	codes, err := h.twoFactorUsecase.CompleteSetup(r.Context(), claims.UserID, req.Code, requestMeta(r))
	if err != nil {
		respondDomainError(w, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, backupCodesResponse{BackupCodes: codes})
}

func (h *twoFactorHandler) disable(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing credentials")
		return
	}

	var req twoFactorCodeRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "BAD_REQUEST", "malformed request body")
		return
	}
	if fields := h.validator.check(req); fields != nil {
		respondValidationError(w, fields)
		return
	}

	if err := h.twoFactorUsecase.Disable(r.Context(), claims.UserID, req.Code, requestMeta(r)); err != nil {
		respondDomainError(w, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"message": "two-factor authentication disabled"})
}

func (h *twoFactorHandler) regenerateBackupCodes(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing credentials")
		return
	}

	var req twoFactorCodeRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "BAD_REQUEST", "malformed request body")
		return
	}
	if fields := h.validator.check(req); fields != nil {
		respondValidationError(w, fields)
		return
	}

	codes, err := h.twoFactorUsecase.RegenerateBackupCodes(r.Context(), claims.UserID, req.Code, requestMeta(r))
	if err != nil {
		respondDomainError(w, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, backupCodesResponse{BackupCodes: codes})
}
