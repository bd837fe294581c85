package kafka

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/MiguelGP111/micampofresco/internal/core/domain"
	"github.com/MiguelGP111/micampofresco/internal/core/port"
	"github.com/MiguelGP111/micampofresco/internal/infra/logger"
)

// StubPublisher logs events instead of sending them. Used when no brokers are configured.
type StubPublisher struct {
	logger *zap.Logger
}

// NewStubPublisher constructs a logging event publisher.
func NewStubPublisher(logger *zap.Logger) *StubPublisher {
	return &StubPublisher{logger: logger}
}

func (p *StubPublisher) logEvent(eventType string, accountID int64, at time.Time, fields ...zap.Field) {
	if at.IsZero() {
		at = time.Now().UTC()
	}

	p.logger.Info("event published",
		append([]zap.Field{
			zap.String("event_type", eventType),
			zap.Int64("account_id", accountID),
			zap.Time("timestamp", at.UTC()),
		}, fields...)...,
	)
}

func (p *StubPublisher) PublishAccountRegistered(_ context.Context, event domain.AccountRegisteredEvent) error {
	p.logEvent(EventAccountRegistered, event.AccountID, event.RegisteredAt,
		zap.String("identifier", logger.MaskIdentifier(event.Identifier)),
		zap.String("role", string(event.Role)),
	)
	return nil
}

func (p *StubPublisher) PublishPasswordChanged(_ context.Context, event domain.PasswordChangedEvent) error {
	p.logEvent(EventPasswordChanged, event.AccountID, event.ChangedAt,
		zap.String("method", event.Method),
	)
	return nil
}

func (p *StubPublisher) PublishRecoveryRequested(_ context.Context, event domain.RecoveryRequestedEvent) error {
	p.logEvent(EventRecoveryRequested, event.AccountID, event.RequestedAt,
		zap.String("channel", event.Channel),
		zap.String("destination", event.MaskedDestination),
		zap.Time("expires_at", event.ExpiresAt),
	)
	return nil
}

var _ port.EventPublisher = (*StubPublisher)(nil)
