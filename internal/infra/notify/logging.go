package notify

import (
	"context"

	"go.uber.org/zap"

	"github.com/MiguelGP111/micampofresco/internal/core/domain"
	"github.com/MiguelGP111/micampofresco/internal/core/port"
	"github.com/MiguelGP111/micampofresco/internal/infra/logger"
)

// LogSender writes notifications to the log instead of delivering them.
// The code itself is logged only when revealCode is set (development).
type LogSender struct {
	logger     *zap.Logger
	revealCode bool
}

// NewLogSender returns a sender backed by structured logging.
func NewLogSender(log *zap.Logger, revealCode bool) *LogSender {
	if log == nil {
		log = zap.NewNop()
	}
	return &LogSender{logger: log, revealCode: revealCode}
}

// Send implements port.NotificationSender.
func (s *LogSender) Send(_ context.Context, n domain.Notification) error {
	fields := []zap.Field{
		zap.String("channel", n.Channel),
		zap.String("destination", logger.MaskIdentifier(n.Destination)),
		zap.Time("expires_at", n.ExpiresAt),
	}
	if s.revealCode {
		fields = append(fields, zap.String("code", n.Code))
	}
	s.logger.Info("recovery code issued", fields...)
	return nil
}

var _ port.NotificationSender = (*LogSender)(nil)
