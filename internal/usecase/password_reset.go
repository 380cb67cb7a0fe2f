package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/plateful/plateful-api/internal/model"
	"github.com/plateful/plateful-api/internal/repository"
	"github.com/plateful/plateful-api/shared/ratelimit"
	"github.com/plateful/plateful-api/shared/security"
)

// PasswordResetUsecase issues reset tokens and applies resets. Both
// operations answer identically whether or not the email maps to an
// account.
type PasswordResetUsecase interface {
	RequestPasswordReset(ctx context.Context, email string, meta RequestMeta) error
	ResetPassword(ctx context.Context, rawToken, newPassword string, meta RequestMeta) error
}

type passwordResetUsecase struct {
	users      repository.UserRepository
	tokens     repository.VerificationTokenRepository
	sessions   repository.SessionRepository
	transactor repository.Transactor
	hasher     *security.Hasher
	limiter    *ratelimit.Limiter
	audit      *securityAuditor
	notifier   Notifier
	logger     *zerolog.Logger
}

// PasswordResetUsecaseParams lists the collaborators of the reset usecase.
type PasswordResetUsecaseParams struct {
	Users        repository.UserRepository
	Tokens       repository.VerificationTokenRepository
	Sessions     repository.SessionRepository
	SecurityLogs repository.SecurityLogRepository
	Transactor   repository.Transactor
	Hasher       *security.Hasher
	Limiter      *ratelimit.Limiter
	Notifier     Notifier
	Logger       *zerolog.Logger
}

// NewPasswordResetUsecase creates the password reset usecase.
func NewPasswordResetUsecase(params PasswordResetUsecaseParams) PasswordResetUsecase {
	return &passwordResetUsecase{
		users:      params.Users,
		tokens:     params.Tokens,
		sessions:   params.Sessions,
		transactor: params.Transactor,
		hasher:     params.Hasher,
		limiter:    params.Limiter,
		audit:      newSecurityAuditor(params.SecurityLogs, params.Logger),
		notifier:   params.Notifier,
		logger:     params.Logger,
	}
}

func (u *passwordResetUsecase) RequestPasswordReset(
	ctx context.Context,
	email string,
	meta RequestMeta,
) error {
	if err := u.limiter.Allow(ctx, ratelimit.ResetIPKey(meta.IP), resetIPLimit, resetIPWindow); err != nil {
		if errors.Is(err, ratelimit.ErrRateLimited) {
			return ErrTooManyRequests
		}
		return err
	}

	user, err := u.users.GetUserByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			// Unknown address: answer exactly like the happy path.
			u.audit.record(ctx, nil, model.EventPasswordResetRequested, meta, map[string]any{
				"known_account": false,
			})
			return nil
		}
		return err
	}

	// Per-user cooldown so a burst of requests from rotating IPs still
	// produces at most one email per window.
	acquired, err := u.limiter.Cooldown(ctx, ratelimit.ResetUserKey(user.ID.Hex()), resetUserCooldown)
	if err != nil {
		return err
	}
	if !acquired {
		return nil
	}

	if err := u.tokens.InvalidateUserTokens(ctx, user.ID, model.PurposePasswordReset); err != nil {
		return err
	}

	raw, hash, err := security.GenerateVerificationToken()
	if err != nil {
		return err
	}

	token := &model.VerificationToken{
		UserID:    user.ID,
		Purpose:   model.PurposePasswordReset,
		TokenHash: hash,
		ExpiresAt: time.Now().Add(passwordResetTokenTTL),
	}
	if _, err := u.tokens.CreateToken(ctx, token); err != nil {
		return err
	}

	u.audit.record(ctx, &user.ID, model.EventPasswordResetRequested, meta, nil)

	if err := u.notifier.SendPasswordResetEmail(user, raw); err != nil {
		// The caller still gets the generic answer; losing the email must
		// not reveal that the account exists.
		u.logger.Error().Err(err).Str("user_id", user.ID.Hex()).
			Msg("failed to send password reset email")
	}

	return nil
}

func (u *passwordResetUsecase) ResetPassword(
	ctx context.Context,
	rawToken, newPassword string,
	meta RequestMeta,
) error {
	if !security.PasswordMeetsPolicy(newPassword) {
		return ErrWeakPassword
	}

	hash := security.HashVerificationToken(rawToken)

	token, err := u.tokens.GetUnusedTokenByHash(ctx, hash, model.PurposePasswordReset)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return ErrInvalidOrExpiredToken
		}
		return err
	}

	if time.Now().After(token.ExpiresAt) {
		return ErrInvalidOrExpiredToken
	}

	user, err := u.users.GetUser(ctx, token.UserID.Hex())
	if err != nil {
		return err
	}

	passwordHash, err := u.hasher.HashPassword(newPassword)
	if err != nil {
		return err
	}

	now := time.Now()
	err = u.transactor.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := u.tokens.MarkTokenAsUsed(ctx, token.ID); err != nil {
			return err
		}
		if _, err := u.users.UpdateUser(ctx, user.ID.Hex(), repository.UpdateUserParams{
			PasswordHash:      &passwordHash,
			PasswordChangedAt: &now,
		}); err != nil {
			return err
		}
		if err := u.users.ResetLoginAttempts(ctx, user.ID.Hex()); err != nil {
			return err
		}
		// A reset proves control of the inbox, not of existing sessions;
		// every outstanding session is revoked.
		_, err := u.sessions.DeleteSessionsByUser(ctx, user.ID.Hex())
		return err
	})
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return ErrInvalidOrExpiredToken
		}
		return err
	}

	u.audit.record(ctx, &user.ID, model.EventPasswordResetCompleted, meta, nil)

	if err := u.notifier.SendSecurityAlert(user, "password_reset", nil); err != nil {
		u.logger.Error().Err(err).Str("user_id", user.ID.Hex()).
			Msg("failed to send password reset alert")
	}

	return nil
}
