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
	"github.com/plateful/plateful-api/shared/totp"
)

// TwoFactorUsecase manages TOTP enrollment, backup codes and code
// verification, including the rolling two-factor lockout.
type TwoFactorUsecase interface {
	// InitiateSetup provisions a fresh secret for the user. The secret stays
	// pending until CompleteSetup confirms the authenticator works.
	InitiateSetup(ctx context.Context, userID string) (*totp.Provisioning, error)

	// CompleteSetup confirms the pending secret with a live code, enables
	// two-factor on the account and returns the plaintext backup codes. This
	// is the only time the codes are visible.
	CompleteSetup(ctx context.Context, userID, code string, meta RequestMeta) ([]string, error)

	Disable(ctx context.Context, userID, code string, meta RequestMeta) error

	// RegenerateBackupCodes replaces all backup codes. It requires a live
	// TOTP code; a backup code cannot mint its own successors.
	RegenerateBackupCodes(ctx context.Context, userID, code string, meta RequestMeta) ([]string, error)

	ValidateLoginCode(ctx context.Context, user *model.User, code string, meta RequestMeta) error
}

type twoFactorUsecase struct {
	users      repository.UserRepository
	twoFactor  repository.TwoFactorRepository
	attempts   repository.TwoFactorAttemptRepository
	transactor repository.Transactor
	totp       *totp.Generator
	audit      *securityAuditor
	notifier   Notifier
	logger     *zerolog.Logger
}

// NewTwoFactorUsecase creates the two-factor usecase.
func NewTwoFactorUsecase(
	users repository.UserRepository,
	twoFactor repository.TwoFactorRepository,
	attempts repository.TwoFactorAttemptRepository,
	securityLogs repository.SecurityLogRepository,
	transactor repository.Transactor,
	generator *totp.Generator,
	notifier Notifier,
	logger *zerolog.Logger,
) TwoFactorUsecase {
	return &twoFactorUsecase{
		users:      users,
		twoFactor:  twoFactor,
		attempts:   attempts,
		transactor: transactor,
		totp:       generator,
		audit:      newSecurityAuditor(securityLogs, logger),
		notifier:   notifier,
		logger:     logger,
	}
}

func (u *twoFactorUsecase) InitiateSetup(ctx context.Context, userID string) (*totp.Provisioning, error) {
	user, err := u.users.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.TwoFactorEnabled {
		return nil, ErrTwoFactorAlreadyEnabled
	}

	provisioning, err := u.totp.Provision(user.Email)
	if err != nil {
		return nil, err
	}

	pending := &model.PendingTwoFactorSecret{
		UserID:    user.ID,
		Secret:    provisioning.Secret,
		ExpiresAt: time.Now().Add(pendingSetupTTL),
	}
	if err := u.twoFactor.UpsertPendingSecret(ctx, pending); err != nil {
		return nil, err
	}

	return provisioning, nil
}

func (u *twoFactorUsecase) CompleteSetup(
	ctx context.Context,
	userID, code string,
	meta RequestMeta,
) ([]string, error) {
	user, err := u.users.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.TwoFactorEnabled {
		return nil, ErrTwoFactorAlreadyEnabled
	}

	pending, err := u.twoFactor.GetPendingSecret(ctx, user.ID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNoPendingSetup
		}
		return nil, err
	}

	now := time.Now()
	if !u.totp.Verify(code, pending.Secret, now) {
		return nil, ErrInvalidTwoFactorCode
	}

	codes, err := security.GenerateBackupCodes()
	if err != nil {
		return nil, err
	}

	backupCodes := make([]*model.BackupCode, 0, len(codes))
	for _, c := range codes {
		backupCodes = append(backupCodes, &model.BackupCode{
			UserID:   user.ID,
			CodeHash: security.HashBackupCode(c),
		})
	}

	enabled := true
	err = u.transactor.WithinTransaction(ctx, func(ctx context.Context) error {
		if _, err := u.users.UpdateUser(ctx, userID, repository.UpdateUserParams{
			TwoFactorEnabled: &enabled,
			TwoFactorSecret:  &pending.Secret,
			LastTwoFactorAt:  &now,
		}); err != nil {
			return err
		}
		if err := u.twoFactor.DeletePendingSecret(ctx, user.ID); err != nil {
			return err
		}
		return u.twoFactor.ReplaceBackupCodes(ctx, user.ID, backupCodes)
	})
	if err != nil {
		return nil, err
	}

	u.audit.record(ctx, &user.ID, model.EventTwoFactorEnabled, meta, nil)

	if err := u.notifier.SendTwoFactorEnabled(user, codes); err != nil {
		u.logger.Error().Err(err).Str("user_id", userID).
			Msg("failed to send two-factor enabled notification")
	}

	return codes, nil
}

func (u *twoFactorUsecase) Disable(ctx context.Context, userID, code string, meta RequestMeta) error {
	user, err := u.users.GetUser(ctx, userID)
	if err != nil {
		return err
	}
	if !user.TwoFactorEnabled {
		return ErrTwoFactorNotEnabled
	}

	// Disabling demands a fresh proof; failures here count toward the same
	// lockout as login attempts.
	if err := u.ValidateLoginCode(ctx, user, code, meta); err != nil {
		return err
	}

	disabled := false
	emptySecret := ""
	err = u.transactor.WithinTransaction(ctx, func(ctx context.Context) error {
		if _, err := u.users.UpdateUser(ctx, userID, repository.UpdateUserParams{
			TwoFactorEnabled: &disabled,
			TwoFactorSecret:  &emptySecret,
		}); err != nil {
			return err
		}
		return u.twoFactor.DeleteBackupCodes(ctx, user.ID)
	})
	if err != nil {
		return err
	}

	u.audit.record(ctx, &user.ID, model.EventTwoFactorDisabled, meta, nil)

	if err := u.notifier.SendSecurityAlert(user, "two_factor_disabled", nil); err != nil {
		u.logger.Error().Err(err).Str("user_id", userID).
			Msg("failed to send two-factor disabled alert")
	}

	return nil
}

func (u *twoFactorUsecase) RegenerateBackupCodes(
	ctx context.Context,
	userID, code string,
	meta RequestMeta,
) ([]string, error) {
	user, err := u.users.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !user.TwoFactorEnabled {
		return nil, ErrTwoFactorNotEnabled
	}

	if user.TwoFactorLockedUntil != nil && time.Now().Before(*user.TwoFactorLockedUntil) {
		return nil, ErrTwoFactorLocked
	}

	if !u.totp.Verify(code, user.TwoFactorSecret, time.Now()) {
		return nil, ErrInvalidTwoFactorCode
	}

	codes, err := security.GenerateBackupCodes()
	if err != nil {
		return nil, err
	}

	backupCodes := make([]*model.BackupCode, 0, len(codes))
	for _, c := range codes {
		backupCodes = append(backupCodes, &model.BackupCode{
			UserID:   user.ID,
			CodeHash: security.HashBackupCode(c),
		})
	}

	if err := u.twoFactor.ReplaceBackupCodes(ctx, user.ID, backupCodes); err != nil {
		return nil, err
	}

	return codes, nil
}

// ValidateLoginCode checks a TOTP or backup code for the user. Every attempt
// is recorded; five failures within an hour lock two-factor verification for
// thirty minutes.
func (u *twoFactorUsecase) ValidateLoginCode(
	ctx context.Context,
	user *model.User,
	code string,
	meta RequestMeta,
) error {
	now := time.Now()

	if user.TwoFactorLockedUntil != nil && now.Before(*user.TwoFactorLockedUntil) {
		return ErrTwoFactorLocked
	}

	var valid bool
	var usedBackupCode bool

	// TOTP codes are six digits and backup codes fifteen characters, so the
	// shape of the input decides which check runs.
	if security.LooksLikeBackupCode(code) {
		consumed, err := u.twoFactor.ConsumeBackupCode(ctx, user.ID, security.HashBackupCode(code))
		if err != nil {
			return err
		}
		valid = consumed
		usedBackupCode = consumed
	} else {
		valid = u.totp.Verify(code, user.TwoFactorSecret, now)
	}

	if err := u.attempts.RecordAttempt(ctx, &model.TwoFactorAttempt{
		UserID:     user.ID,
		IPAddress:  meta.IP,
		UserAgent:  meta.UserAgent,
		Successful: valid,
	}); err != nil {
		u.logger.Error().Err(err).Msg("failed to record two-factor attempt")
	}

	if valid {
		if usedBackupCode {
			u.audit.record(ctx, &user.ID, model.EventLoginSuccess, meta, map[string]any{
				"method": "backup_code",
			})
		}
		return nil
	}

	failures, err := u.attempts.CountRecentFailures(ctx, user.ID, now.Add(-twoFactorFailureWindow))
	if err != nil {
		return err
	}

	if failures >= twoFactorMaxFailures {
		until := now.Add(twoFactorLockDuration)
		if _, err := u.users.UpdateUser(ctx, user.ID.Hex(), repository.UpdateUserParams{
			TwoFactorLockedUntil: &until,
		}); err != nil {
			return err
		}

		u.audit.record(ctx, &user.ID, model.EventTwoFactorLocked, meta, map[string]any{
			"failures": failures,
		})
		return ErrTwoFactorLocked
	}

	u.audit.record(ctx, &user.ID, model.EventTwoFactorFailed, meta, nil)
	return ErrInvalidTwoFactorCode
}
