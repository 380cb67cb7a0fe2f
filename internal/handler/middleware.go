package handler

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/plateful/plateful-api/internal/usecase"
	"github.com/plateful/plateful-api/shared/auth"
)

type contextKey string

const claimsContextKey contextKey = "access_claims"

// deviceIDHeader carries the client's trusted-device identifier, set by the
// client after a remembered two-factor login.
const deviceIDHeader = "X-Device-Id"

// requireAuth admits only requests with a valid bearer access token and
// stores its claims on the context. An expired token gets a distinct code so
// clients know to attempt a silent refresh.
func requireAuth(tokens *auth.TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || token == "" {
				respondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing bearer token")
				return
			}

			claims, err := tokens.VerifyAccess(token)
			if err != nil {
				if errors.Is(err, auth.ErrTokenExpired) {
					respondError(w, http.StatusUnauthorized, "TOKEN_EXPIRED", "access token expired")
					return
				}
				respondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "invalid access token")
				return
			}

			ctx := context.WithValue(r.Context(), claimsContextKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// claimsFromContext returns the access claims stored by requireAuth.
func claimsFromContext(ctx context.Context) (*auth.AccessClaims, bool) {
	claims, ok := ctx.Value(claimsContextKey).(*auth.AccessClaims)
	return claims, ok
}

// requestMeta extracts the client attributes the core needs from a request.
// The device identifier comes from the header if present, otherwise from the
// httpOnly cookie set on a remembered two-factor login.
func requestMeta(r *http.Request) usecase.RequestMeta {
	ip := r.RemoteAddr
	if host, _, err := net.SplitHostPort(ip); err == nil {
		ip = host
	}

	deviceID := r.Header.Get(deviceIDHeader)
	if deviceID == "" {
		if cookie, err := r.Cookie(deviceCookieName); err == nil {
			deviceID = cookie.Value
		}
	}

	return usecase.RequestMeta{
		IP:        ip,
		UserAgent: r.UserAgent(),
		DeviceID:  deviceID,
	}
}

// requestLogger logs one structured line per request.
func requestLogger(logger *zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			logger.Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Dur("duration", time.Since(start)).
				Str("request_id", middleware.GetReqID(r.Context())).
				Msg("request")
		})
	}
}
