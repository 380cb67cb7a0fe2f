package provider

import (
	"context"
	"errors"
	"net/http"
	"time"

	"google.golang.org/api/oauth2/v2"
	"google.golang.org/api/option"
)

var (
	ErrInvalidGoogleAudience = errors.New("invalid google audience")
	ErrGoogleEmailUnverified = errors.New("google account email not verified")
)

const verifyTimeout = 10 * time.Second

// GoogleIdentity is the subset of the Google token info the auth core needs.
type GoogleIdentity struct {
	Subject string
	Email   string
}

// GoogleVerifier validates Google ID tokens against the tokeninfo endpoint
// and enforces the configured OAuth client ID as audience.
type GoogleVerifier struct {
	clientID string
}

// NewGoogleVerifier creates a verifier for the given OAuth client ID.
func NewGoogleVerifier(clientID string) *GoogleVerifier {
	return &GoogleVerifier{clientID: clientID}
}

// VerifyIDToken validates the ID token and returns the Google identity it
// asserts. The call is bounded by its own timeout so a slow upstream cannot
// hang a login request.
func (v *GoogleVerifier) VerifyIDToken(ctx context.Context, idToken string) (*GoogleIdentity, error) {
	ctx, cancel := context.WithTimeout(ctx, verifyTimeout)
	defer cancel()

	oauth2Service, err := oauth2.NewService(ctx, option.WithHTTPClient(&http.Client{Timeout: verifyTimeout}))
	if err != nil {
		return nil, err
	}

	tokenInfoCall := oauth2Service.Tokeninfo()
	tokenInfoCall.IdToken(idToken)
	tokenInfo, err := tokenInfoCall.Context(ctx).Do()
	if err != nil {
		return nil, err
	}

	if tokenInfo.Audience != v.clientID {
		return nil, ErrInvalidGoogleAudience
	}

	if !tokenInfo.VerifiedEmail {
		return nil, ErrGoogleEmailUnverified
	}

	return &GoogleIdentity{
		Subject: tokenInfo.UserId,
		Email:   tokenInfo.Email,
	}, nil
}
