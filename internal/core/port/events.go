package port

import (
	"context"

	"github.com/MiguelGP111/micampofresco/internal/core/domain"
)

// EventPublisher publishes domain events to the message bus.
type EventPublisher interface {
	PublishAccountRegistered(ctx context.Context, event domain.AccountRegisteredEvent) error
	PublishPasswordChanged(ctx context.Context, event domain.PasswordChangedEvent) error
	PublishRecoveryRequested(ctx context.Context, event domain.RecoveryRequestedEvent) error
}
