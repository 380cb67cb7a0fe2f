package handler

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/plateful/plateful-api/internal/model"
	"github.com/plateful/plateful-api/internal/usecase"
)

type authHandler struct {
	authUsecase usecase.AuthUsecase
	validator   *requestValidator
	refreshTTL  time.Duration
	logger      *zerolog.Logger
}

func newAuthHandler(
	authUsecase usecase.AuthUsecase,
	validator *requestValidator,
	refreshTTL time.Duration,
	logger *zerolog.Logger,
) *authHandler {
	return &authHandler{
		authUsecase: authUsecase,
		validator:   validator,
		refreshTTL:  refreshTTL,
		logger:      logger,
	}
}

func (h *authHandler) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "BAD_REQUEST", "malformed request body")
		return
	}
	if fields := h.validator.check(req); fields != nil {
		respondValidationError(w, fields)
		return
	}

	user, err := h.authUsecase.Register(r.Context(), usecase.RegisterParams{
		Email:        req.Email,
		Password:     req.Password,
		Name:         req.Name,
		Role:         model.Role(req.Role),
		BusinessName: req.BusinessName,
		Phone:        req.Phone,
		Address:      req.Address,
		Meta:         requestMeta(r),
	})
	if err != nil {
		respondDomainError(w, h.logger, err)
		return
	}

	// No tokens yet: the account cannot log in until the email is verified.
	respondJSON(w, http.StatusCreated, map[string]any{
		"user":    newUserResponse(user),
		"message": "check your inbox to verify your email address",
	})
}

func (h *authHandler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "BAD_REQUEST", "malformed request body")
		return
	}
	if fields := h.validator.check(req); fields != nil {
		respondValidationError(w, fields)
		return
	}

	result, err := h.authUsecase.Login(r.Context(), usecase.LoginParams{
		Email:    req.Email,
		Password: req.Password,
		Meta:     requestMeta(r),
	})
	if err != nil {
		respondDomainError(w, h.logger, err)
		return
	}

	if result.RequiresTwoFactor {
		respondJSON(w, http.StatusOK, twoFactorChallengeResponse{
			TwoFactorRequired: true,
			ChallengeToken:    result.ChallengeToken,
		})
		return
	}

	setRefreshCookie(w, r, result.Tokens.RefreshToken, h.refreshTTL)
	respondJSON(w, http.StatusOK, loginResponse{
		User: newUserResponse(result.User),
		Tokens: tokenResponse{
			AccessToken:  result.Tokens.AccessToken,
			RefreshToken: result.Tokens.RefreshToken,
		},
	})
}

func (h *authHandler) verifyTwoFactor(w http.ResponseWriter, r *http.Request) {
	var req verifyTwoFactorRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "BAD_REQUEST", "malformed request body")
		return
	}
	if fields := h.validator.check(req); fields != nil {
		respondValidationError(w, fields)
		return
	}

	result, err := h.authUsecase.VerifyTwoFactorLogin(r.Context(), usecase.VerifyTwoFactorParams{
		ChallengeToken: req.ChallengeToken,
		Code:           req.Code,
		RememberDevice: req.RememberDevice,
		Meta:           requestMeta(r),
	})
	if err != nil {
		respondDomainError(w, h.logger, err)
		return
	}

	setRefreshCookie(w, r, result.Tokens.RefreshToken, h.refreshTTL)
	if result.TrustedDeviceID != "" {
		setDeviceCookie(w, r, result.TrustedDeviceID)
	}
	respondJSON(w, http.StatusOK, loginResponse{
		User: newUserResponse(result.User),
		Tokens: tokenResponse{
			AccessToken:  result.Tokens.AccessToken,
			RefreshToken: result.Tokens.RefreshToken,
		},
		TrustedDeviceID: result.TrustedDeviceID,
	})
}

func (h *authHandler) refresh(w http.ResponseWriter, r *http.Request) {
	// Cookie-based clients send an empty body.
	var req refreshRequest
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, io.EOF) {
		respondError(w, http.StatusBadRequest, "BAD_REQUEST", "malformed request body")
		return
	}

	token := refreshTokenFromRequest(r, req.RefreshToken)
	if token == "" {
		respondDomainError(w, h.logger, usecase.ErrInvalidRefreshToken)
		return
	}

	pair, err := h.authUsecase.RefreshTokens(r.Context(), token, requestMeta(r))
	if err != nil {
		respondDomainError(w, h.logger, err)
		return
	}

	setRefreshCookie(w, r, pair.RefreshToken, h.refreshTTL)
	respondJSON(w, http.StatusOK, tokenResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	})
}

func (h *authHandler) logout(w http.ResponseWriter, r *http.Request) {
	var req logoutRequest
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, io.EOF) {
		respondError(w, http.StatusBadRequest, "BAD_REQUEST", "malformed request body")
		return
	}

	token := refreshTokenFromRequest(r, req.RefreshToken)
	if token != "" {
		if err := h.authUsecase.Logout(r.Context(), token, requestMeta(r)); err != nil {
			respondDomainError(w, h.logger, err)
			return
		}
	}

	clearRefreshCookie(w, r)
	respondJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}

func (h *authHandler) me(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing credentials")
		return
	}

	user, err := h.authUsecase.GetUser(r.Context(), claims.UserID)
	if err != nil {
		respondDomainError(w, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, newUserResponse(user))
}

func (h *authHandler) googleLogin(w http.ResponseWriter, r *http.Request) {
	var req googleLoginRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "BAD_REQUEST", "malformed request body")
		return
	}
	if fields := h.validator.check(req); fields != nil {
		respondValidationError(w, fields)
		return
	}

	result, err := h.authUsecase.LoginWithGoogle(r.Context(), req.IDToken, requestMeta(r))
	if err != nil {
		respondDomainError(w, h.logger, err)
		return
	}

	setRefreshCookie(w, r, result.Tokens.RefreshToken, h.refreshTTL)
	respondJSON(w, http.StatusOK, loginResponse{
		User: newUserResponse(result.User),
		Tokens: tokenResponse{
			AccessToken:  result.Tokens.AccessToken,
			RefreshToken: result.Tokens.RefreshToken,
		},
	})
}
