package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	// ErrTokenExpired reports a token that was valid but is past its expiry.
	// Callers may attempt a silent refresh only on this error.
	ErrTokenExpired = errors.New("token expired")
	// ErrTokenInvalid reports a token that fails signature, audience, issuer
	// or token-use checks.
	ErrTokenInvalid = errors.New("token invalid")
)

// Token-use markers keep the three token kinds from being swapped for one
// another even though access and two-factor tokens share a signing secret.
const (
	useAccess    = "access"
	useRefresh   = "refresh"
	useTwoFactor = "2fa"
)

// Config holds signing material and validity windows for the token service.
// Access and refresh tokens are signed with distinct secrets so a leaked
// access token can never mint refresh tokens and vice versa.
type Config struct {
	AccessSecret       string
	RefreshSecret      string
	AccessExpiresIn    time.Duration
	RefreshExpiresIn   time.Duration
	TwoFactorExpiresIn time.Duration
	Issuer             string
}

// AccessClaims is the payload of a short-lived access token. SessionID names
// the session the token was minted under so a caller can recognize its own
// session in a session listing.
type AccessClaims struct {
	UserID        string `json:"uid"`
	SessionID     string `json:"sid"`
	Email         string `json:"email"`
	Role          string `json:"role"`
	EmailVerified bool   `json:"email_verified"`
	TokenUse      string `json:"token_use"`
	jwt.RegisteredClaims
}

// RefreshClaims is the payload of a long-lived refresh token. SessionID ties
// the token to exactly one stored session.
type RefreshClaims struct {
	UserID    string `json:"uid"`
	SessionID string `json:"sid"`
	TokenUse  string `json:"token_use"`
	jwt.RegisteredClaims
}

// TwoFactorClaims is the payload of the short-lived token handed out between
// the password step and the two-factor step of a login.
type TwoFactorClaims struct {
	UserID   string `json:"uid"`
	TokenUse string `json:"token_use"`
	jwt.RegisteredClaims
}

// TokenPair bundles the two credentials issued on a successful login.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// TokenService issues and verifies the three JWT kinds used by the auth core.
type TokenService struct {
	config Config
}

// NewTokenService creates a TokenService from the given config.
func NewTokenService(config Config) *TokenService {
	return &TokenService{config: config}
}

// IssueTokenPair issues an access/refresh pair for the given user and session.
func (s *TokenService) IssueTokenPair(
	userID, email, role string,
	emailVerified bool,
	sessionID string,
) (*TokenPair, error) {
	now := time.Now()

	accessClaims := AccessClaims{
		UserID:           userID,
		SessionID:        sessionID,
		Email:            email,
		Role:             role,
		EmailVerified:    emailVerified,
		TokenUse:         useAccess,
		RegisteredClaims: s.registeredClaims(userID, now, s.config.AccessExpiresIn),
	}
	accessToken, err := s.sign(accessClaims, s.config.AccessSecret)
	if err != nil {
		return nil, err
	}

	refreshClaims := RefreshClaims{
		UserID:           userID,
		SessionID:        sessionID,
		TokenUse:         useRefresh,
		RegisteredClaims: s.registeredClaims(userID, now, s.config.RefreshExpiresIn),
	}
	refreshToken, err := s.sign(refreshClaims, s.config.RefreshSecret)
	if err != nil {
		return nil, err
	}

	return &TokenPair{AccessToken: accessToken, RefreshToken: refreshToken}, nil
}

// IssueTwoFactorToken issues the temporary token that carries a half-finished
// login across the two-factor challenge. It is not a session credential.
func (s *TokenService) IssueTwoFactorToken(userID string) (string, error) {
	claims := TwoFactorClaims{
		UserID:           userID,
		TokenUse:         useTwoFactor,
		RegisteredClaims: s.registeredClaims(userID, time.Now(), s.config.TwoFactorExpiresIn),
	}
	return s.sign(claims, s.config.AccessSecret)
}

// RefreshTTL returns the configured refresh-token lifetime. Session rows
// share this expiry so the TTL sweep and the token expire together.
func (s *TokenService) RefreshTTL() time.Duration {
	return s.config.RefreshExpiresIn
}

// VerifyAccess validates an access token and returns its claims.
func (s *TokenService) VerifyAccess(token string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	if err := s.parse(token, s.config.AccessSecret, claims); err != nil {
		return nil, err
	}
	if claims.TokenUse != useAccess {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}

// VerifyRefresh validates a refresh token and returns its claims.
func (s *TokenService) VerifyRefresh(token string) (*RefreshClaims, error) {
	claims := &RefreshClaims{}
	if err := s.parse(token, s.config.RefreshSecret, claims); err != nil {
		return nil, err
	}
	if claims.TokenUse != useRefresh {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}

// VerifyTwoFactor validates a two-factor challenge token.
func (s *TokenService) VerifyTwoFactor(token string) (*TwoFactorClaims, error) {
	claims := &TwoFactorClaims{}
	if err := s.parse(token, s.config.AccessSecret, claims); err != nil {
		return nil, err
	}
	if claims.TokenUse != useTwoFactor {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}

func (s *TokenService) registeredClaims(
	subject string,
	now time.Time,
	expiresIn time.Duration,
) jwt.RegisteredClaims {
	return jwt.RegisteredClaims{
		ID:        uuid.New().String(),
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(expiresIn)),
		Issuer:    s.config.Issuer,
		Audience:  jwt.ClaimStrings{s.config.Issuer},
	}
}

func (s *TokenService) sign(claims jwt.Claims, secret string) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

func (s *TokenService) parse(tokenStr, secret string, claims jwt.Claims) error {
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}

		return []byte(secret), nil
	},
		jwt.WithExpirationRequired(),
		jwt.WithAudience(s.config.Issuer),
		jwt.WithIssuer(s.config.Issuer),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return ErrTokenExpired
		}
		return ErrTokenInvalid
	}

	if !token.Valid {
		return ErrTokenInvalid
	}

	return nil
}
