package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/plateful/plateful-api/internal/usecase"
)

type sessionHandler struct {
	sessionUsecase usecase.SessionUsecase
	logger         *zerolog.Logger
}

func newSessionHandler(sessionUsecase usecase.SessionUsecase, logger *zerolog.Logger) *sessionHandler {
	return &sessionHandler{sessionUsecase: sessionUsecase, logger: logger}
}

func (h *sessionHandler) listSessions(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing credentials")
		return
	}

	sessions, err := h.sessionUsecase.ListSessions(r.Context(), claims.UserID)
	if err != nil {
		respondDomainError(w, h.logger, err)
		return
	}

	responses := make([]sessionResponse, 0, len(sessions))
	for _, session := range sessions {
		responses = append(responses, newSessionResponse(session, claims.SessionID))
	}

	respondJSON(w, http.StatusOK, responses)
}

func (h *sessionHandler) revokeSession(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing credentials")
		return
	}

	sessionID := chi.URLParam(r, "sessionID")

	err := h.sessionUsecase.RevokeSession(r.Context(), claims.UserID, sessionID, requestMeta(r))
	if err != nil {
		respondDomainError(w, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"message": "session revoked"})
}

func (h *sessionHandler) revokeAllSessions(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing credentials")
		return
	}

	revoked, err := h.sessionUsecase.RevokeAllSessions(r.Context(), claims.UserID, requestMeta(r))
	if err != nil {
		respondDomainError(w, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"revoked": revoked})
}

func (h *sessionHandler) listSecurityEvents(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing credentials")
		return
	}

	var limit int64
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || parsed < 1 || parsed > 200 {
			respondError(w, http.StatusBadRequest, "BAD_REQUEST", "limit must be between 1 and 200")
			return
		}
		limit = parsed
	}

	events, err := h.sessionUsecase.ListSecurityEvents(r.Context(), claims.UserID, limit)
	if err != nil {
		respondDomainError(w, h.logger, err)
		return
	}

	responses := make([]securityEventResponse, 0, len(events))
	for _, event := range events {
		responses = append(responses, newSecurityEventResponse(event))
	}

	respondJSON(w, http.StatusOK, responses)
}
