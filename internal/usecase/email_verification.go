package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/plateful/plateful-api/internal/model"
	"github.com/plateful/plateful-api/internal/repository"
	"github.com/plateful/plateful-api/shared/security"
)

// EmailVerificationUsecase issues and redeems email verification tokens.
type EmailVerificationUsecase interface {
	// RequestVerification issues a fresh token for the user and emails it.
	// Any earlier unused tokens are invalidated first.
	RequestVerification(ctx context.Context, user *model.User) error

	// ResendVerification re-issues a token by email address. It answers
	// identically for unknown addresses so it cannot be used to probe for
	// accounts, and enforces a one-minute cooldown between sends.
	ResendVerification(ctx context.Context, email string, meta RequestMeta) error

	// VerifyEmail redeems a raw token and marks the account verified. The
	// token is single use.
	VerifyEmail(ctx context.Context, rawToken string, meta RequestMeta) error
}

type emailVerificationUsecase struct {
	users      repository.UserRepository
	tokens     repository.VerificationTokenRepository
	transactor repository.Transactor
	audit      *securityAuditor
	notifier   Notifier
	logger     *zerolog.Logger
}

// NewEmailVerificationUsecase creates the email verification usecase.
func NewEmailVerificationUsecase(
	users repository.UserRepository,
	tokens repository.VerificationTokenRepository,
	securityLogs repository.SecurityLogRepository,
	transactor repository.Transactor,
	notifier Notifier,
	logger *zerolog.Logger,
) EmailVerificationUsecase {
	return &emailVerificationUsecase{
		users:      users,
		tokens:     tokens,
		transactor: transactor,
		audit:      newSecurityAuditor(securityLogs, logger),
		notifier:   notifier,
		logger:     logger,
	}
}

func (u *emailVerificationUsecase) RequestVerification(ctx context.Context, user *model.User) error {
	if err := u.tokens.InvalidateUserTokens(ctx, user.ID, model.PurposeEmailVerify); err != nil {
		return err
	}

	raw, hash, err := security.GenerateVerificationToken()
	if err != nil {
		return err
	}

	token := &model.VerificationToken{
		UserID:    user.ID,
		Purpose:   model.PurposeEmailVerify,
		TokenHash: hash,
		ExpiresAt: time.Now().Add(emailVerifyTokenTTL),
	}
	if _, err := u.tokens.CreateToken(ctx, token); err != nil {
		return err
	}

	return u.notifier.SendVerificationEmail(user, raw)
}

func (u *emailVerificationUsecase) ResendVerification(
	ctx context.Context,
	email string,
	meta RequestMeta,
) error {
	user, err := u.users.GetUserByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			// Same answer as the happy path; unknown addresses get no signal.
			return nil
		}
		return err
	}

	if user.EmailVerified {
		return ErrEmailAlreadyVerified
	}

	recent, err := u.tokens.HasRecentToken(
		ctx, user.ID, model.PurposeEmailVerify, time.Now().Add(-resendCooldown),
	)
	if err != nil {
		return err
	}
	if recent {
		return ErrTooManyRequests
	}

	return u.RequestVerification(ctx, user)
}

func (u *emailVerificationUsecase) VerifyEmail(
	ctx context.Context,
	rawToken string,
	meta RequestMeta,
) error {
	hash := security.HashVerificationToken(rawToken)

	token, err := u.tokens.GetUnusedTokenByHash(ctx, hash, model.PurposeEmailVerify)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return ErrInvalidOrExpiredToken
		}
		return err
	}

	if time.Now().After(token.ExpiresAt) {
		return ErrInvalidOrExpiredToken
	}

	verified := true
	err = u.transactor.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := u.tokens.MarkTokenAsUsed(ctx, token.ID); err != nil {
			return err
		}
		_, err := u.users.UpdateUser(ctx, token.UserID.Hex(), repository.UpdateUserParams{
			EmailVerified: &verified,
		})
		return err
	})
	if err != nil {
		// Two concurrent redemptions: only the one that flipped the used
		// flag wins, the other sees no matching document.
		if errors.Is(err, mongo.ErrNoDocuments) {
			return ErrInvalidOrExpiredToken
		}
		return err
	}

	u.audit.record(ctx, &token.UserID, model.EventEmailVerified, meta, nil)

	return nil
}
