// Package handler exposes the auth core over HTTP.
package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/plateful/plateful-api/internal/usecase"
	"github.com/plateful/plateful-api/shared/auth"
)

// RouterParams lists everything the HTTP layer needs.
type RouterParams struct {
	Auth          usecase.AuthUsecase
	TwoFactor     usecase.TwoFactorUsecase
	PasswordReset usecase.PasswordResetUsecase
	Verification  usecase.EmailVerificationUsecase
	Sessions      usecase.SessionUsecase
	Tokens        *auth.TokenService
	Logger        *zerolog.Logger
}

// NewRouter builds the HTTP router for the auth service.
func NewRouter(params RouterParams) (http.Handler, error) {
	validator, err := newRequestValidator()
	if err != nil {
		return nil, err
	}

	authH := newAuthHandler(params.Auth, validator, params.Tokens.RefreshTTL(), params.Logger)
	twoFactorH := newTwoFactorHandler(params.TwoFactor, validator, params.Logger)
	resetH := newPasswordResetHandler(params.PasswordReset, validator, params.Logger)
	verifyH := newEmailVerificationHandler(params.Verification, validator, params.Logger)
	sessionH := newSessionHandler(params.Sessions, params.Logger)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(params.Logger))
	r.Use(middleware.Recoverer)
	r.Use(csrfProtect)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.Get("/csrf", issueCSRFToken)

		r.Post("/register", authH.register)
		r.Post("/login", authH.login)
		r.Post("/login/2fa", authH.verifyTwoFactor)
		r.Post("/login/google", authH.googleLogin)
		r.Post("/refresh", authH.refresh)
		r.Post("/logout", authH.logout)

		r.Post("/verify-email", verifyH.verifyEmail)
		r.Post("/resend-verification", verifyH.resendVerification)

		r.Post("/forgot-password", resetH.forgotPassword)
		r.Post("/reset-password", resetH.resetPassword)

		r.Group(func(r chi.Router) {
			r.Use(requireAuth(params.Tokens))

			r.Get("/me", authH.me)

			r.Post("/2fa/setup", twoFactorH.setup)
			r.Post("/2fa/activate", twoFactorH.activate)
			r.Post("/2fa/disable", twoFactorH.disable)
			r.Post("/2fa/backup-codes", twoFactorH.regenerateBackupCodes)

			r.Get("/sessions", sessionH.listSessions)
			r.Delete("/sessions", sessionH.revokeAllSessions)
			r.Delete("/sessions/{sessionID}", sessionH.revokeSession)

			r.Get("/security-events", sessionH.listSecurityEvents)
		})
	})

	return r, nil
}
