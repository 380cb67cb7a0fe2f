package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/plateful/plateful-api/internal/model"
	"github.com/plateful/plateful-api/internal/repository"
	"github.com/plateful/plateful-api/shared/auth"
	"github.com/plateful/plateful-api/shared/provider"
	"github.com/plateful/plateful-api/shared/ratelimit"
	"github.com/plateful/plateful-api/shared/security"
)

// AuthUsecase orchestrates signup, login, the two-factor challenge step,
// token refresh and logout.
type AuthUsecase interface {
	Register(ctx context.Context, params RegisterParams) (*model.User, error)
	Login(ctx context.Context, params LoginParams) (*LoginResult, error)
	VerifyTwoFactorLogin(ctx context.Context, params VerifyTwoFactorParams) (*LoginResult, error)
	RefreshTokens(ctx context.Context, refreshToken string, meta RequestMeta) (*auth.TokenPair, error)
	Logout(ctx context.Context, refreshToken string, meta RequestMeta) error
	GetUser(ctx context.Context, userID string) (*model.User, error)
	LoginWithGoogle(ctx context.Context, idToken string, meta RequestMeta) (*LoginResult, error)
}

// RegisterParams carries a signup request. The restaurant fields are only
// consulted when Role is RESTAURANT_OWNER.
type RegisterParams struct {
	Email        string
	Password     string
	Name         string
	Role         model.Role
	BusinessName string
	Phone        string
	Address      string
	Meta         RequestMeta
}

// LoginParams carries a password login request.
type LoginParams struct {
	Email    string
	Password string
	Meta     RequestMeta
}

// VerifyTwoFactorParams completes a login that was answered with a
// two-factor challenge.
type VerifyTwoFactorParams struct {
	ChallengeToken string
	Code           string
	RememberDevice bool
	Meta           RequestMeta
}

// LoginResult is the outcome of a login attempt. Either Tokens is set, or
// RequiresTwoFactor is true and ChallengeToken carries the half-finished
// login to the two-factor step.
type LoginResult struct {
	User              *model.User
	Tokens            *auth.TokenPair
	RequiresTwoFactor bool
	ChallengeToken    string
	TrustedDeviceID   string
}

// twoFactorValidator is the slice of the two-factor usecase the login flow
// needs: check one code, counting failures toward the two-factor lockout.
type twoFactorValidator interface {
	ValidateLoginCode(ctx context.Context, user *model.User, code string, meta RequestMeta) error
}

// emailVerificationSender is the slice of the verification usecase the
// signup flow needs.
type emailVerificationSender interface {
	RequestVerification(ctx context.Context, user *model.User) error
}

// googleIdentityVerifier validates a Google ID token and returns the
// asserted identity.
type googleIdentityVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*provider.GoogleIdentity, error)
}

// AuthUsecaseParams lists the collaborators of the auth orchestrator.
type AuthUsecaseParams struct {
	Users         repository.UserRepository
	Sessions      repository.SessionRepository
	Profiles      repository.RestaurantProfileRepository
	Devices       repository.TrustedDeviceRepository
	SecurityLogs  repository.SecurityLogRepository
	Transactor    repository.Transactor
	Tokens        *auth.TokenService
	Hasher        *security.Hasher
	Limiter       *ratelimit.Limiter
	Google        googleIdentityVerifier
	TwoFactor     twoFactorValidator
	Verifications emailVerificationSender
	Logger        *zerolog.Logger
}

type authUsecase struct {
	users         repository.UserRepository
	sessions      repository.SessionRepository
	profiles      repository.RestaurantProfileRepository
	devices       repository.TrustedDeviceRepository
	transactor    repository.Transactor
	tokens        *auth.TokenService
	hasher        *security.Hasher
	limiter       *ratelimit.Limiter
	google        googleIdentityVerifier
	twoFactor     twoFactorValidator
	verifications emailVerificationSender
	audit         *securityAuditor
	logger        *zerolog.Logger
}

// NewAuthUsecase creates the auth orchestrator.
func NewAuthUsecase(params AuthUsecaseParams) AuthUsecase {
	return &authUsecase{
		users:         params.Users,
		sessions:      params.Sessions,
		profiles:      params.Profiles,
		devices:       params.Devices,
		transactor:    params.Transactor,
		tokens:        params.Tokens,
		hasher:        params.Hasher,
		limiter:       params.Limiter,
		google:        params.Google,
		twoFactor:     params.TwoFactor,
		verifications: params.Verifications,
		audit:         newSecurityAuditor(params.SecurityLogs, params.Logger),
		logger:        params.Logger,
	}
}

func (u *authUsecase) Register(ctx context.Context, params RegisterParams) (*model.User, error) {
	if !security.PasswordMeetsPolicy(params.Password) {
		return nil, ErrWeakPassword
	}

	email := normalizeEmail(params.Email)

	if _, err := u.users.GetUserByEmail(ctx, email); err == nil {
		return nil, ErrEmailAlreadyRegistered
	} else if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, err
	}

	passwordHash, err := u.hasher.HashPassword(params.Password)
	if err != nil {
		return nil, err
	}

	user := &model.User{
		Email:        email,
		Name:         params.Name,
		PasswordHash: passwordHash,
		Role:         params.Role,
		Provider:     model.ProviderLocal,
	}

	err = u.transactor.WithinTransaction(ctx, func(ctx context.Context) error {
		created, err := u.users.CreateUser(ctx, user)
		if err != nil {
			return err
		}
		user = created

		if user.Role == model.RoleRestaurantOwner {
			_, err = u.profiles.CreateProfile(ctx, &model.RestaurantProfile{
				OwnerID:      user.ID,
				BusinessName: params.BusinessName,
				Phone:        params.Phone,
				Address:      params.Address,
			})
			if err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		// The existence check above races with concurrent signups; the
		// unique index is the authority.
		if mongo.IsDuplicateKeyError(err) {
			return nil, ErrEmailAlreadyRegistered
		}
		return nil, err
	}

	u.audit.record(ctx, &user.ID, model.EventSignup, params.Meta, map[string]any{
		"role": string(user.Role),
	})

	// Signup succeeds even when the verification email cannot be sent; the
	// user can request a resend.
	if err := u.verifications.RequestVerification(ctx, user); err != nil {
		u.logger.Error().Err(err).Str("user_id", user.ID.Hex()).
			Msg("failed to send verification email after signup")
	}

	return user, nil
}

func (u *authUsecase) Login(ctx context.Context, params LoginParams) (*LoginResult, error) {
	if err := u.allowLoginAttempt(ctx, params.Meta.IP); err != nil {
		return nil, err
	}

	email := normalizeEmail(params.Email)

	user, err := u.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			u.audit.record(ctx, nil, model.EventLoginFailed, params.Meta, map[string]any{
				"email":  email,
				"reason": "unknown_email",
			})
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if user.LockedUntil != nil && time.Now().Before(*user.LockedUntil) {
		u.audit.record(ctx, &user.ID, model.EventLoginFailed, params.Meta, map[string]any{
			"reason": "account_locked",
		})
		return nil, ErrAccountLocked
	}

	// Google-only accounts have no password hash and can never pass here.
	if user.PasswordHash == "" {
		return nil, u.handleFailedPassword(ctx, user, params.Meta)
	}

	match, err := u.hasher.VerifyPassword(params.Password, user.PasswordHash)
	if err != nil {
		return nil, err
	}
	if !match {
		return nil, u.handleFailedPassword(ctx, user, params.Meta)
	}

	if !user.EmailVerified {
		return nil, ErrEmailNotVerified
	}

	if user.TwoFactorEnabled && !u.twoFactorBypassed(ctx, user, params.Meta.DeviceID) {
		challenge, err := u.tokens.IssueTwoFactorToken(user.ID.Hex())
		if err != nil {
			return nil, err
		}
		return &LoginResult{User: user, RequiresTwoFactor: true, ChallengeToken: challenge}, nil
	}

	if err := u.users.ResetLoginAttempts(ctx, user.ID.Hex()); err != nil {
		return nil, err
	}

	pair, err := u.createSession(ctx, user, model.ProviderLocal, params.Meta)
	if err != nil {
		return nil, err
	}

	u.audit.record(ctx, &user.ID, model.EventLoginSuccess, params.Meta, nil)

	return &LoginResult{User: user, Tokens: pair}, nil
}

func (u *authUsecase) VerifyTwoFactorLogin(
	ctx context.Context,
	params VerifyTwoFactorParams,
) (*LoginResult, error) {
	claims, err := u.tokens.VerifyTwoFactor(params.ChallengeToken)
	if err != nil {
		return nil, ErrInvalidOrExpiredToken
	}

	user, err := u.users.GetUser(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrInvalidOrExpiredToken
		}
		return nil, err
	}

	if !user.TwoFactorEnabled {
		return nil, ErrTwoFactorNotEnabled
	}

	if err := u.twoFactor.ValidateLoginCode(ctx, user, params.Code, params.Meta); err != nil {
		return nil, err
	}

	now := time.Now()
	if _, err := u.users.UpdateUser(ctx, user.ID.Hex(), repository.UpdateUserParams{
		LastTwoFactorAt: &now,
	}); err != nil {
		return nil, err
	}

	if err := u.users.ResetLoginAttempts(ctx, user.ID.Hex()); err != nil {
		return nil, err
	}

	result := &LoginResult{User: user}

	if params.RememberDevice {
		deviceID := params.Meta.DeviceID
		if deviceID == "" {
			deviceID = uuid.New().String()
		}

		device := &model.TrustedDevice{
			UserID:    user.ID,
			DeviceID:  deviceID,
			UserAgent: params.Meta.UserAgent,
			IPAddress: params.Meta.IP,
			Trusted:   true,
			ExpiresAt: now.Add(trustedDeviceTTL),
		}
		if err := u.devices.UpsertDevice(ctx, device); err != nil {
			return nil, err
		}

		result.TrustedDeviceID = deviceID
		u.audit.record(ctx, &user.ID, model.EventTrustedDeviceAdded, params.Meta, map[string]any{
			"device_id": deviceID,
		})
	}

	pair, err := u.createSession(ctx, user, user.Provider, params.Meta)
	if err != nil {
		return nil, err
	}
	result.Tokens = pair

	u.audit.record(ctx, &user.ID, model.EventLoginSuccess, params.Meta, map[string]any{
		"method": "two_factor",
	})

	return result, nil
}

func (u *authUsecase) RefreshTokens(
	ctx context.Context,
	refreshToken string,
	meta RequestMeta,
) (*auth.TokenPair, error) {
	claims, err := u.tokens.VerifyRefresh(refreshToken)
	if err != nil {
		return nil, ErrInvalidRefreshToken
	}

	// Lookup by the presented token, not the session ID from the claims:
	// after a rotation the old token still decodes but no longer matches a
	// stored session, which is exactly the replay we want to reject.
	session, err := u.sessions.GetSessionByRefreshToken(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			if userID, idErr := bson.ObjectIDFromHex(claims.UserID); idErr == nil {
				u.audit.record(ctx, &userID, model.EventLoginFailed, meta, map[string]any{
					"reason": "refresh_token_reuse",
				})
			}
			return nil, ErrInvalidRefreshToken
		}
		return nil, err
	}

	user, err := u.users.GetUser(ctx, session.UserID)
	if err != nil {
		return nil, err
	}

	pair, err := u.tokens.IssueTokenPair(
		user.ID.Hex(), user.Email, string(user.Role), user.EmailVerified, session.ID.Hex(),
	)
	if err != nil {
		return nil, err
	}

	// Rotate in place: the session row keeps its creation time so the
	// oldest-session eviction order is unaffected by refreshes.
	expiresAt := time.Now().Add(u.tokens.RefreshTTL())
	if err := u.sessions.SetRefreshToken(ctx, session.ID.Hex(), pair.RefreshToken, expiresAt); err != nil {
		return nil, err
	}

	u.audit.record(ctx, &user.ID, model.EventTokenRefreshed, meta, nil)

	return pair, nil
}

func (u *authUsecase) Logout(ctx context.Context, refreshToken string, meta RequestMeta) error {
	deleted, err := u.sessions.DeleteSessionByRefreshToken(ctx, refreshToken)
	if err != nil {
		return err
	}
	if deleted == 0 {
		// Logging out an already-dead session is not an error.
		return nil
	}

	if claims, err := u.tokens.VerifyRefresh(refreshToken); err == nil {
		if userID, idErr := bson.ObjectIDFromHex(claims.UserID); idErr == nil {
			u.audit.record(ctx, &userID, model.EventLogout, meta, nil)
		}
	}

	return nil
}

func (u *authUsecase) GetUser(ctx context.Context, userID string) (*model.User, error) {
	user, err := u.users.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	return user, nil
}

// allowLoginAttempt enforces the per-IP fixed window in front of any
// credential checking.
func (u *authUsecase) allowLoginAttempt(ctx context.Context, ip string) error {
	err := u.limiter.Allow(ctx, ratelimit.LoginIPKey(ip), loginIPLimit, loginIPWindow)
	if err == nil {
		return nil
	}
	if errors.Is(err, ratelimit.ErrRateLimited) {
		return ErrTooManyRequests
	}
	return err
}

// handleFailedPassword counts the failure, locks the account on the fifth
// within the window and always answers with the generic credentials error.
func (u *authUsecase) handleFailedPassword(
	ctx context.Context,
	user *model.User,
	meta RequestMeta,
) error {
	attempts, err := u.users.IncrementLoginAttempts(ctx, user.ID.Hex())
	if err != nil {
		return err
	}

	if attempts >= maxLoginAttempts {
		until := time.Now().Add(loginLockDuration)
		if _, err := u.users.UpdateUser(ctx, user.ID.Hex(), repository.UpdateUserParams{
			LockedUntil: &until,
		}); err != nil {
			return err
		}

		u.audit.record(ctx, &user.ID, model.EventAccountLocked, meta, map[string]any{
			"attempts": attempts,
		})
		return ErrInvalidCredentials
	}

	u.audit.record(ctx, &user.ID, model.EventLoginFailed, meta, map[string]any{
		"attempts": attempts,
	})
	return ErrInvalidCredentials
}

// twoFactorBypassed reports whether the login may skip the two-factor
// challenge: a successful challenge in the last 12 hours, or a presented
// trusted-device ID that is still valid.
func (u *authUsecase) twoFactorBypassed(ctx context.Context, user *model.User, deviceID string) bool {
	now := time.Now()

	if user.LastTwoFactorAt != nil && now.Sub(*user.LastTwoFactorAt) < twoFactorRechallengeWindow {
		return true
	}

	if deviceID == "" {
		return false
	}

	device, err := u.devices.GetDevice(ctx, user.ID, deviceID)
	if err != nil {
		if !errors.Is(err, mongo.ErrNoDocuments) {
			u.logger.Error().Err(err).Msg("trusted device lookup failed")
		}
		return false
	}

	return device.Trusted && now.Before(device.ExpiresAt)
}

// createSession enforces the session cap, then mints the token pair and the
// session row with a pre-allocated ID so the refresh claims and the stored
// row agree from the start.
func (u *authUsecase) createSession(
	ctx context.Context,
	user *model.User,
	provider model.Provider,
	meta RequestMeta,
) (*auth.TokenPair, error) {
	count, err := u.sessions.CountSessionsByUser(ctx, user.ID.Hex())
	if err != nil {
		return nil, err
	}
	for ; count >= model.MaxSessionsPerUser; count-- {
		if err := u.sessions.DeleteOldestSession(ctx, user.ID.Hex()); err != nil {
			return nil, err
		}
	}

	sessionID := bson.NewObjectID()

	pair, err := u.tokens.IssueTokenPair(
		user.ID.Hex(), user.Email, string(user.Role), user.EmailVerified, sessionID.Hex(),
	)
	if err != nil {
		return nil, err
	}

	session := &model.Session{
		ID:           sessionID,
		UserID:       user.ID.Hex(),
		RefreshToken: pair.RefreshToken,
		Provider:     provider,
		IPAddress:    optionalString(meta.IP),
		UserAgent:    optionalString(meta.UserAgent),
		ExpiresAt:    time.Now().Add(u.tokens.RefreshTTL()),
	}
	if _, err := u.sessions.CreateSession(ctx, session); err != nil {
		return nil, err
	}

	return pair, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
