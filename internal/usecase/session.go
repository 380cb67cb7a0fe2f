package usecase

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/plateful/plateful-api/internal/model"
	"github.com/plateful/plateful-api/internal/repository"
)

// SessionUsecase exposes a user's own sessions and security history.
type SessionUsecase interface {
	ListSessions(ctx context.Context, userID string) ([]*model.Session, error)

	// RevokeSession deletes one of the user's sessions. A session that does
	// not exist or belongs to someone else answers identically.
	RevokeSession(ctx context.Context, userID, sessionID string, meta RequestMeta) error

	// RevokeAllSessions deletes every session of the user and returns how
	// many were revoked.
	RevokeAllSessions(ctx context.Context, userID string, meta RequestMeta) (int64, error)

	ListSecurityEvents(ctx context.Context, userID string, limit int64) ([]*model.SecurityLog, error)
}

type sessionUsecase struct {
	sessions     repository.SessionRepository
	securityLogs repository.SecurityLogRepository
	audit        *securityAuditor
	logger       *zerolog.Logger
}

// NewSessionUsecase creates the session usecase.
func NewSessionUsecase(
	sessions repository.SessionRepository,
	securityLogs repository.SecurityLogRepository,
	logger *zerolog.Logger,
) SessionUsecase {
	return &sessionUsecase{
		sessions:     sessions,
		securityLogs: securityLogs,
		audit:        newSecurityAuditor(securityLogs, logger),
		logger:       logger,
	}
}

func (u *sessionUsecase) ListSessions(ctx context.Context, userID string) ([]*model.Session, error) {
	return u.sessions.ListSessionsByUser(ctx, userID)
}

func (u *sessionUsecase) RevokeSession(
	ctx context.Context,
	userID, sessionID string,
	meta RequestMeta,
) error {
	session, err := u.sessions.GetSession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return ErrSessionNotFound
		}
		return err
	}

	// Ownership check; a foreign session looks exactly like a missing one.
	if session.UserID != userID {
		return ErrSessionNotFound
	}

	if err := u.sessions.DeleteSession(ctx, sessionID); err != nil {
		return err
	}

	if uid, err := bson.ObjectIDFromHex(userID); err == nil {
		u.audit.record(ctx, &uid, model.EventLogout, meta, map[string]any{
			"session_id": sessionID,
		})
	}

	return nil
}

func (u *sessionUsecase) RevokeAllSessions(
	ctx context.Context,
	userID string,
	meta RequestMeta,
) (int64, error) {
	deleted, err := u.sessions.DeleteSessionsByUser(ctx, userID)
	if err != nil {
		return 0, err
	}

	if uid, err := bson.ObjectIDFromHex(userID); err == nil {
		u.audit.record(ctx, &uid, model.EventLogout, meta, map[string]any{
			"revoked": deleted,
		})
	}

	return deleted, nil
}

func (u *sessionUsecase) ListSecurityEvents(
	ctx context.Context,
	userID string,
	limit int64,
) ([]*model.SecurityLog, error) {
	uid, err := bson.ObjectIDFromHex(userID)
	if err != nil {
		return nil, err
	}
	return u.securityLogs.ListByUser(ctx, uid, limit)
}
