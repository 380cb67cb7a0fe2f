package handler

import (
	"crypto/hmac"
	"crypto/rand"
	"encoding/hex"
	"net/http"
)

const (
	csrfCookieName = "XSRF-TOKEN"
	csrfHeaderName = "X-Csrf-Token"
)

// csrfProtect implements the stateless double-submit pattern: a random token
// lives in a cookie the client can read, and every mutating request must
// echo it back in a header. A cross-site form can send the cookie but cannot
// read it, so it can never produce the matching header.
func csrfProtect(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			next.ServeHTTP(w, r)
			return
		}

		cookie, err := r.Cookie(csrfCookieName)
		if err != nil || cookie.Value == "" {
			respondError(w, http.StatusForbidden, "CSRF_TOKEN_MISSING", "missing csrf token")
			return
		}

		header := r.Header.Get(csrfHeaderName)
		if header == "" || !hmac.Equal([]byte(cookie.Value), []byte(header)) {
			respondError(w, http.StatusForbidden, "CSRF_TOKEN_MISMATCH", "csrf token mismatch")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// issueCSRFToken hands the client a fresh token cookie. The cookie is
// deliberately not HttpOnly; the client must read it to build the header.
func issueCSRFToken(w http.ResponseWriter, r *http.Request) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "something went wrong")
		return
	}
	token := hex.EncodeToString(buf)

	http.SetCookie(w, &http.Cookie{
		Name:     csrfCookieName,
		Value:    token,
		Path:     "/",
		Secure:   r.TLS != nil,
		HttpOnly: false,
		SameSite: http.SameSiteStrictMode,
	})

	respondJSON(w, http.StatusOK, map[string]string{"csrf_token": token})
}
