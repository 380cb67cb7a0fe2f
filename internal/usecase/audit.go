package usecase

import (
	"context"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/plateful/plateful-api/internal/model"
	"github.com/plateful/plateful-api/internal/repository"
)

// securityAuditor writes the append-only security event trail. A failed
// write is logged and swallowed: audit must never fail the flow it records.
type securityAuditor struct {
	securityLogs repository.SecurityLogRepository
	logger       *zerolog.Logger
}

func newSecurityAuditor(securityLogs repository.SecurityLogRepository, logger *zerolog.Logger) *securityAuditor {
	return &securityAuditor{securityLogs: securityLogs, logger: logger}
}

func (a *securityAuditor) record(
	ctx context.Context,
	userID *bson.ObjectID,
	event model.SecurityEvent,
	meta RequestMeta,
	details map[string]any,
) {
	entry := &model.SecurityLog{
		UserID:    userID,
		EventType: event,
		IPAddress: meta.IP,
		UserAgent: meta.UserAgent,
		Details:   details,
	}

	if err := a.securityLogs.Append(ctx, entry); err != nil {
		a.logger.Error().Err(err).Str("event", string(event)).Msg("failed to append security log")
	}
}
