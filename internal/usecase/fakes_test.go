package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/plateful/plateful-api/internal/model"
	"github.com/plateful/plateful-api/internal/repository"
	"github.com/plateful/plateful-api/shared/auth"
	"github.com/plateful/plateful-api/shared/provider"
	"github.com/plateful/plateful-api/shared/ratelimit"
	"github.com/plateful/plateful-api/shared/security"
	"github.com/plateful/plateful-api/shared/totp"
)

// duplicateKeyError mimics the error the driver returns when a unique index
// rejects an insert.
func duplicateKeyError() error {
	return mongo.WriteException{WriteErrors: mongo.WriteErrors{{Code: 11000}}}
}

type fakeUserRepo struct {
	users map[string]*model.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]*model.User)}
}

func (r *fakeUserRepo) CreateUser(_ context.Context, user *model.User) (*model.User, error) {
	for _, existing := range r.users {
		if existing.Email == user.Email {
			return nil, duplicateKeyError()
		}
		if user.GoogleID != "" && existing.GoogleID == user.GoogleID {
			return nil, duplicateKeyError()
		}
	}
	user.ID = bson.NewObjectID()
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	r.users[user.ID.Hex()] = user
	return user, nil
}

func (r *fakeUserRepo) GetUser(_ context.Context, id string) (*model.User, error) {
	user, ok := r.users[id]
	if !ok {
		return nil, mongo.ErrNoDocuments
	}
	return user, nil
}

func (r *fakeUserRepo) GetUserByEmail(_ context.Context, email string) (*model.User, error) {
	for _, user := range r.users {
		if user.Email == email {
			return user, nil
		}
	}
	return nil, mongo.ErrNoDocuments
}

func (r *fakeUserRepo) GetUserByGoogleID(_ context.Context, googleID string) (*model.User, error) {
	for _, user := range r.users {
		if user.GoogleID != "" && user.GoogleID == googleID {
			return user, nil
		}
	}
	return nil, mongo.ErrNoDocuments
}

func (r *fakeUserRepo) UpdateUser(
	_ context.Context,
	id string,
	params repository.UpdateUserParams,
) (*model.User, error) {
	user, ok := r.users[id]
	if !ok {
		return nil, mongo.ErrNoDocuments
	}

	if params.Name != nil {
		user.Name = *params.Name
	}
	if params.PasswordHash != nil {
		user.PasswordHash = *params.PasswordHash
	}
	if params.EmailVerified != nil {
		user.EmailVerified = *params.EmailVerified
	}
	if params.TwoFactorEnabled != nil {
		user.TwoFactorEnabled = *params.TwoFactorEnabled
	}
	if params.TwoFactorSecret != nil {
		user.TwoFactorSecret = *params.TwoFactorSecret
	}
	if params.GoogleID != nil {
		user.GoogleID = *params.GoogleID
	}
	if params.Provider != nil {
		user.Provider = *params.Provider
	}
	if params.LastTwoFactorAt != nil {
		user.LastTwoFactorAt = params.LastTwoFactorAt
	}
	if params.LockedUntil != nil {
		user.LockedUntil = params.LockedUntil
	}
	if params.TwoFactorLockedUntil != nil {
		user.TwoFactorLockedUntil = params.TwoFactorLockedUntil
	}
	if params.PasswordChangedAt != nil {
		user.PasswordChangedAt = params.PasswordChangedAt
	}
	user.UpdatedAt = time.Now()

	return user, nil
}

func (r *fakeUserRepo) IncrementLoginAttempts(_ context.Context, id string) (int, error) {
	user, ok := r.users[id]
	if !ok {
		return 0, mongo.ErrNoDocuments
	}
	user.LoginAttempts++
	return user.LoginAttempts, nil
}

func (r *fakeUserRepo) ResetLoginAttempts(_ context.Context, id string) error {
	user, ok := r.users[id]
	if !ok {
		return mongo.ErrNoDocuments
	}
	user.LoginAttempts = 0
	user.LockedUntil = nil
	return nil
}

type fakeSessionRepo struct {
	sessions map[string]*model.Session
	seq      int
}

func newFakeSessionRepo() *fakeSessionRepo {
	return &fakeSessionRepo{sessions: make(map[string]*model.Session)}
}

func (r *fakeSessionRepo) CreateSession(_ context.Context, session *model.Session) (*model.Session, error) {
	if session.ID.IsZero() {
		session.ID = bson.NewObjectID()
	}
	r.seq++
	// Monotonic creation times so eviction ordering is deterministic.
	session.CreatedAt = time.Unix(int64(r.seq), 0)
	session.LastActiveAt = session.CreatedAt
	session.UpdatedAt = session.CreatedAt
	r.sessions[session.ID.Hex()] = session
	return session, nil
}

func (r *fakeSessionRepo) GetSession(_ context.Context, id string) (*model.Session, error) {
	session, ok := r.sessions[id]
	if !ok {
		return nil, mongo.ErrNoDocuments
	}
	return session, nil
}

func (r *fakeSessionRepo) GetSessionByRefreshToken(_ context.Context, refreshToken string) (*model.Session, error) {
	for _, session := range r.sessions {
		if session.RefreshToken == refreshToken {
			return session, nil
		}
	}
	return nil, mongo.ErrNoDocuments
}

func (r *fakeSessionRepo) ListSessionsByUser(_ context.Context, userID string) ([]*model.Session, error) {
	var result []*model.Session
	for _, session := range r.sessions {
		if session.UserID == userID {
			result = append(result, session)
		}
	}
	return result, nil
}

func (r *fakeSessionRepo) CountSessionsByUser(_ context.Context, userID string) (int64, error) {
	var count int64
	for _, session := range r.sessions {
		if session.UserID == userID {
			count++
		}
	}
	return count, nil
}

func (r *fakeSessionRepo) DeleteOldestSession(_ context.Context, userID string) error {
	var oldest *model.Session
	for _, session := range r.sessions {
		if session.UserID != userID {
			continue
		}
		if oldest == nil || session.CreatedAt.Before(oldest.CreatedAt) {
			oldest = session
		}
	}
	if oldest == nil {
		return mongo.ErrNoDocuments
	}
	delete(r.sessions, oldest.ID.Hex())
	return nil
}

func (r *fakeSessionRepo) SetRefreshToken(
	_ context.Context,
	id string,
	refreshToken string,
	expiresAt time.Time,
) error {
	session, ok := r.sessions[id]
	if !ok {
		return mongo.ErrNoDocuments
	}
	session.RefreshToken = refreshToken
	session.ExpiresAt = expiresAt
	session.LastActiveAt = time.Now()
	return nil
}

func (r *fakeSessionRepo) TouchSession(_ context.Context, id string) error {
	session, ok := r.sessions[id]
	if !ok {
		return mongo.ErrNoDocuments
	}
	session.LastActiveAt = time.Now()
	return nil
}

func (r *fakeSessionRepo) DeleteSession(_ context.Context, id string) error {
	if _, ok := r.sessions[id]; !ok {
		return mongo.ErrNoDocuments
	}
	delete(r.sessions, id)
	return nil
}

func (r *fakeSessionRepo) DeleteSessionByRefreshToken(_ context.Context, refreshToken string) (int64, error) {
	for id, session := range r.sessions {
		if session.RefreshToken == refreshToken {
			delete(r.sessions, id)
			return 1, nil
		}
	}
	return 0, nil
}

func (r *fakeSessionRepo) DeleteSessionsByUser(_ context.Context, userID string) (int64, error) {
	var deleted int64
	for id, session := range r.sessions {
		if session.UserID == userID {
			delete(r.sessions, id)
			deleted++
		}
	}
	return deleted, nil
}

type fakeTokenRepo struct {
	tokens []*model.VerificationToken
}

func newFakeTokenRepo() *fakeTokenRepo {
	return &fakeTokenRepo{}
}

func (r *fakeTokenRepo) CreateToken(_ context.Context, token *model.VerificationToken) (*model.VerificationToken, error) {
	token.ID = bson.NewObjectID()
	token.CreatedAt = time.Now()
	r.tokens = append(r.tokens, token)
	return token, nil
}

func (r *fakeTokenRepo) GetUnusedTokenByHash(
	_ context.Context,
	hash string,
	purpose model.TokenPurpose,
) (*model.VerificationToken, error) {
	for _, token := range r.tokens {
		if token.TokenHash == hash && token.Purpose == purpose && !token.Used {
			return token, nil
		}
	}
	return nil, mongo.ErrNoDocuments
}

func (r *fakeTokenRepo) MarkTokenAsUsed(_ context.Context, id bson.ObjectID) error {
	for _, token := range r.tokens {
		if token.ID == id && !token.Used {
			token.Used = true
			return nil
		}
	}
	return mongo.ErrNoDocuments
}

func (r *fakeTokenRepo) InvalidateUserTokens(
	_ context.Context,
	userID bson.ObjectID,
	purpose model.TokenPurpose,
) error {
	for _, token := range r.tokens {
		if token.UserID == userID && token.Purpose == purpose {
			token.Used = true
		}
	}
	return nil
}

func (r *fakeTokenRepo) HasRecentToken(
	_ context.Context,
	userID bson.ObjectID,
	purpose model.TokenPurpose,
	after time.Time,
) (bool, error) {
	for _, token := range r.tokens {
		if token.UserID == userID && token.Purpose == purpose && !token.Used && token.CreatedAt.After(after) {
			return true, nil
		}
	}
	return false, nil
}

type fakeTwoFactorRepo struct {
	pending map[string]*model.PendingTwoFactorSecret
	codes   []*model.BackupCode
}

func newFakeTwoFactorRepo() *fakeTwoFactorRepo {
	return &fakeTwoFactorRepo{pending: make(map[string]*model.PendingTwoFactorSecret)}
}

func (r *fakeTwoFactorRepo) UpsertPendingSecret(_ context.Context, pending *model.PendingTwoFactorSecret) error {
	pending.CreatedAt = time.Now()
	r.pending[pending.UserID.Hex()] = pending
	return nil
}

func (r *fakeTwoFactorRepo) GetPendingSecret(_ context.Context, userID bson.ObjectID) (*model.PendingTwoFactorSecret, error) {
	pending, ok := r.pending[userID.Hex()]
	if !ok || time.Now().After(pending.ExpiresAt) {
		return nil, mongo.ErrNoDocuments
	}
	return pending, nil
}

func (r *fakeTwoFactorRepo) DeletePendingSecret(_ context.Context, userID bson.ObjectID) error {
	delete(r.pending, userID.Hex())
	return nil
}

func (r *fakeTwoFactorRepo) ReplaceBackupCodes(
	_ context.Context,
	userID bson.ObjectID,
	codes []*model.BackupCode,
) error {
	kept := r.codes[:0]
	for _, code := range r.codes {
		if code.UserID != userID {
			kept = append(kept, code)
		}
	}
	r.codes = kept
	for _, code := range codes {
		code.ID = bson.NewObjectID()
		code.CreatedAt = time.Now()
		r.codes = append(r.codes, code)
	}
	return nil
}

func (r *fakeTwoFactorRepo) ConsumeBackupCode(
	_ context.Context,
	userID bson.ObjectID,
	codeHash string,
) (bool, error) {
	for _, code := range r.codes {
		if code.UserID == userID && code.CodeHash == codeHash && !code.Used {
			now := time.Now()
			code.Used = true
			code.UsedAt = &now
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeTwoFactorRepo) DeleteBackupCodes(_ context.Context, userID bson.ObjectID) error {
	kept := r.codes[:0]
	for _, code := range r.codes {
		if code.UserID != userID {
			kept = append(kept, code)
		}
	}
	r.codes = kept
	return nil
}

func (r *fakeTwoFactorRepo) unusedCodeCount(userID bson.ObjectID) int {
	count := 0
	for _, code := range r.codes {
		if code.UserID == userID && !code.Used {
			count++
		}
	}
	return count
}

type fakeAttemptRepo struct {
	attempts []*model.TwoFactorAttempt
}

func newFakeAttemptRepo() *fakeAttemptRepo {
	return &fakeAttemptRepo{}
}

func (r *fakeAttemptRepo) RecordAttempt(_ context.Context, attempt *model.TwoFactorAttempt) error {
	attempt.ID = bson.NewObjectID()
	attempt.CreatedAt = time.Now()
	r.attempts = append(r.attempts, attempt)
	return nil
}

func (r *fakeAttemptRepo) CountRecentFailures(
	_ context.Context,
	userID bson.ObjectID,
	after time.Time,
) (int64, error) {
	var count int64
	for _, attempt := range r.attempts {
		if attempt.UserID == userID && !attempt.Successful && attempt.CreatedAt.After(after) {
			count++
		}
	}
	return count, nil
}

type fakeDeviceRepo struct {
	devices map[string]*model.TrustedDevice
}

func newFakeDeviceRepo() *fakeDeviceRepo {
	return &fakeDeviceRepo{devices: make(map[string]*model.TrustedDevice)}
}

func deviceKey(userID bson.ObjectID, deviceID string) string {
	return userID.Hex() + "/" + deviceID
}

func (r *fakeDeviceRepo) UpsertDevice(_ context.Context, device *model.TrustedDevice) error {
	device.CreatedAt = time.Now()
	r.devices[deviceKey(device.UserID, device.DeviceID)] = device
	return nil
}

func (r *fakeDeviceRepo) GetDevice(
	_ context.Context,
	userID bson.ObjectID,
	deviceID string,
) (*model.TrustedDevice, error) {
	device, ok := r.devices[deviceKey(userID, deviceID)]
	if !ok {
		return nil, mongo.ErrNoDocuments
	}
	return device, nil
}

func (r *fakeDeviceRepo) DeleteDevicesByUser(_ context.Context, userID bson.ObjectID) error {
	for key, device := range r.devices {
		if device.UserID == userID {
			delete(r.devices, key)
		}
	}
	return nil
}

type fakeSecurityLogRepo struct {
	entries []*model.SecurityLog
}

func newFakeSecurityLogRepo() *fakeSecurityLogRepo {
	return &fakeSecurityLogRepo{}
}

func (r *fakeSecurityLogRepo) Append(_ context.Context, entry *model.SecurityLog) error {
	entry.ID = bson.NewObjectID()
	entry.CreatedAt = time.Now()
	r.entries = append(r.entries, entry)
	return nil
}

func (r *fakeSecurityLogRepo) ListByUser(
	_ context.Context,
	userID bson.ObjectID,
	limit int64,
) ([]*model.SecurityLog, error) {
	var result []*model.SecurityLog
	for i := len(r.entries) - 1; i >= 0; i-- {
		entry := r.entries[i]
		if entry.UserID != nil && *entry.UserID == userID {
			result = append(result, entry)
		}
		if limit > 0 && int64(len(result)) == limit {
			break
		}
	}
	return result, nil
}

func (r *fakeSecurityLogRepo) hasEvent(event model.SecurityEvent) bool {
	for _, entry := range r.entries {
		if entry.EventType == event {
			return true
		}
	}
	return false
}

type fakeProfileRepo struct {
	profiles map[string]*model.RestaurantProfile
}

func newFakeProfileRepo() *fakeProfileRepo {
	return &fakeProfileRepo{profiles: make(map[string]*model.RestaurantProfile)}
}

func (r *fakeProfileRepo) CreateProfile(
	_ context.Context,
	profile *model.RestaurantProfile,
) (*model.RestaurantProfile, error) {
	if _, ok := r.profiles[profile.OwnerID.Hex()]; ok {
		return nil, duplicateKeyError()
	}
	profile.ID = bson.NewObjectID()
	profile.CreatedAt = time.Now()
	r.profiles[profile.OwnerID.Hex()] = profile
	return profile, nil
}

func (r *fakeProfileRepo) GetProfileByOwner(
	_ context.Context,
	ownerID bson.ObjectID,
) (*model.RestaurantProfile, error) {
	profile, ok := r.profiles[ownerID.Hex()]
	if !ok {
		return nil, mongo.ErrNoDocuments
	}
	return profile, nil
}

type fakeTransactor struct{}

func (fakeTransactor) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type fakeNotifier struct {
	verificationTokens []string
	resetTokens        []string
	alerts             []string
	backupCodeBatches  [][]string
	err                error
}

func (n *fakeNotifier) SendVerificationEmail(_ *model.User, rawToken string) error {
	if n.err != nil {
		return n.err
	}
	n.verificationTokens = append(n.verificationTokens, rawToken)
	return nil
}

func (n *fakeNotifier) SendPasswordResetEmail(_ *model.User, rawToken string) error {
	if n.err != nil {
		return n.err
	}
	n.resetTokens = append(n.resetTokens, rawToken)
	return nil
}

func (n *fakeNotifier) SendSecurityAlert(_ *model.User, alertType string, _ map[string]string) error {
	if n.err != nil {
		return n.err
	}
	n.alerts = append(n.alerts, alertType)
	return nil
}

func (n *fakeNotifier) SendTwoFactorEnabled(_ *model.User, backupCodes []string) error {
	if n.err != nil {
		return n.err
	}
	n.backupCodeBatches = append(n.backupCodeBatches, backupCodes)
	return nil
}

type fakeGoogleVerifier struct {
	identity *provider.GoogleIdentity
	err      error
}

func (v *fakeGoogleVerifier) VerifyIDToken(context.Context, string) (*provider.GoogleIdentity, error) {
	if v.err != nil {
		return nil, v.err
	}
	return v.identity, nil
}

var errGoogleRejected = errors.New("token rejected")

// testEnv wires every usecase over in-memory fakes, with a real limiter on
// miniredis and a real TOTP generator.
type testEnv struct {
	users     *fakeUserRepo
	sessions  *fakeSessionRepo
	tokens    *fakeTokenRepo
	twoFactor *fakeTwoFactorRepo
	attempts  *fakeAttemptRepo
	devices   *fakeDeviceRepo
	logs      *fakeSecurityLogRepo
	profiles  *fakeProfileRepo
	notifier  *fakeNotifier
	google    *fakeGoogleVerifier
	redis     *miniredis.Miniredis

	tokenService *auth.TokenService
	totpGen      *totp.Generator

	auth        AuthUsecase
	twoFactorUC TwoFactorUsecase
	resetUC     PasswordResetUsecase
	verifyUC    EmailVerificationUsecase
	sessionUC   SessionUsecase
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = redisClient.Close() })

	logger := zerolog.Nop()

	env := &testEnv{
		users:     newFakeUserRepo(),
		sessions:  newFakeSessionRepo(),
		tokens:    newFakeTokenRepo(),
		twoFactor: newFakeTwoFactorRepo(),
		attempts:  newFakeAttemptRepo(),
		devices:   newFakeDeviceRepo(),
		logs:      newFakeSecurityLogRepo(),
		profiles:  newFakeProfileRepo(),
		notifier:  &fakeNotifier{},
		google:    &fakeGoogleVerifier{},
		redis:     mr,
		tokenService: auth.NewTokenService(auth.Config{
			AccessSecret:       "access-secret-for-tests",
			RefreshSecret:      "refresh-secret-for-tests",
			AccessExpiresIn:    15 * time.Minute,
			RefreshExpiresIn:   7 * 24 * time.Hour,
			TwoFactorExpiresIn: 5 * time.Minute,
			Issuer:             "plateful-test",
		}),
		totpGen: totp.NewGenerator("Plateful"),
	}

	limiter := ratelimit.New(redisClient)
	transactor := fakeTransactor{}

	env.verifyUC = NewEmailVerificationUsecase(
		env.users, env.tokens, env.logs, transactor, env.notifier, &logger,
	)
	env.twoFactorUC = NewTwoFactorUsecase(
		env.users, env.twoFactor, env.attempts, env.logs, transactor,
		env.totpGen, env.notifier, &logger,
	)
	env.auth = NewAuthUsecase(AuthUsecaseParams{
		Users:         env.users,
		Sessions:      env.sessions,
		Profiles:      env.profiles,
		Devices:       env.devices,
		SecurityLogs:  env.logs,
		Transactor:    transactor,
		Tokens:        env.tokenService,
		Hasher:        security.NewHasher(),
		Limiter:       limiter,
		Google:        env.google,
		TwoFactor:     env.twoFactorUC,
		Verifications: env.verifyUC,
		Logger:        &logger,
	})
	env.resetUC = NewPasswordResetUsecase(PasswordResetUsecaseParams{
		Users:        env.users,
		Tokens:       env.tokens,
		Sessions:     env.sessions,
		SecurityLogs: env.logs,
		Transactor:   transactor,
		Hasher:       security.NewHasher(),
		Limiter:      limiter,
		Notifier:     env.notifier,
		Logger:       &logger,
	})
	env.sessionUC = NewSessionUsecase(env.sessions, env.logs, &logger)

	return env
}

const testPassword = "Sup3r$ecret"

// registerVerifiedUser creates a local account and marks it verified, the
// state most flows start from.
func (env *testEnv) registerVerifiedUser(t *testing.T, email string) *model.User {
	t.Helper()

	user, err := env.auth.Register(context.Background(), RegisterParams{
		Email:    email,
		Password: testPassword,
		Name:     "Test User",
		Role:     model.RoleCustomer,
		Meta:     RequestMeta{IP: "192.0.2.1", UserAgent: "test"},
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	verified := true
	if _, err := env.users.UpdateUser(context.Background(), user.ID.Hex(), repository.UpdateUserParams{
		EmailVerified: &verified,
	}); err != nil {
		t.Fatalf("mark verified: %v", err)
	}

	return user
}

// enableTwoFactor walks the real setup flow and returns the secret and the
// issued backup codes.
func (env *testEnv) enableTwoFactor(t *testing.T, user *model.User) (string, []string) {
	t.Helper()
	ctx := context.Background()

	provisioning, err := env.twoFactorUC.InitiateSetup(ctx, user.ID.Hex())
	if err != nil {
		t.Fatalf("InitiateSetup: %v", err)
	}

	code, err := totp.CodeAt(provisioning.Secret, time.Now())
	if err != nil {
		t.Fatalf("CodeAt: %v", err)
	}

	backupCodes, err := env.twoFactorUC.CompleteSetup(ctx, user.ID.Hex(), code, RequestMeta{IP: "192.0.2.1"})
	if err != nil {
		t.Fatalf("CompleteSetup: %v", err)
	}

	return provisioning.Secret, backupCodes
}
