package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/plateful/plateful-api/internal/model"
	"github.com/plateful/plateful-api/internal/repository"
)

// LoginWithGoogle signs a user in with a verified Google ID token. Unknown
// identities get a fresh verified customer account; a known email gets the
// Google identity linked onto the existing account.
func (u *authUsecase) LoginWithGoogle(
	ctx context.Context,
	idToken string,
	meta RequestMeta,
) (*LoginResult, error) {
	identity, err := u.google.VerifyIDToken(ctx, idToken)
	if err != nil {
		u.logger.Warn().Err(err).Msg("google id token verification failed")
		return nil, ErrGoogleAuthFailed
	}

	user, err := u.users.GetUserByGoogleID(ctx, identity.Subject)
	if err != nil {
		if !errors.Is(err, mongo.ErrNoDocuments) {
			return nil, err
		}
		user, err = u.findOrProvisionGoogleUser(ctx, identity.Subject, identity.Email, meta)
		if err != nil {
			return nil, err
		}
	}

	if user.LockedUntil != nil && time.Now().Before(*user.LockedUntil) {
		return nil, ErrAccountLocked
	}

	pair, err := u.createSession(ctx, user, model.ProviderGoogle, meta)
	if err != nil {
		return nil, err
	}

	u.audit.record(ctx, &user.ID, model.EventGoogleLogin, meta, nil)

	return &LoginResult{User: user, Tokens: pair}, nil
}

func (u *authUsecase) findOrProvisionGoogleUser(
	ctx context.Context,
	subject, email string,
	meta RequestMeta,
) (*model.User, error) {
	email = normalizeEmail(email)

	existing, err := u.users.GetUserByEmail(ctx, email)
	if err == nil {
		// Same email, first Google login: link the identity. Google has
		// verified the address, so the account counts as verified too.
		verified := true
		return u.users.UpdateUser(ctx, existing.ID.Hex(), repository.UpdateUserParams{
			GoogleID:      &subject,
			EmailVerified: &verified,
		})
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, err
	}

	user := &model.User{
		Email:         email,
		Name:          displayNameFromEmail(email),
		Role:          model.RoleCustomer,
		Provider:      model.ProviderGoogle,
		GoogleID:      subject,
		EmailVerified: true,
	}

	created, err := u.users.CreateUser(ctx, user)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			// Lost a race with a concurrent first login for the same identity.
			return u.users.GetUserByGoogleID(ctx, subject)
		}
		return nil, err
	}

	u.audit.record(ctx, &created.ID, model.EventSignup, meta, map[string]any{
		"provider": string(model.ProviderGoogle),
	})

	return created, nil
}

func displayNameFromEmail(email string) string {
	if at := strings.IndexByte(email, '@'); at > 0 {
		return email[:at]
	}
	return email
}
