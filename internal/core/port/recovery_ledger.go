package port

import (
	"context"

	"github.com/MiguelGP111/micampofresco/internal/core/domain"
)

// RecoveryLedger stores recovery codes keyed by normalized account identifier.
// Put supersedes any earlier entry for the same identifier; Get returns repository.ErrNotFound on a miss.
// MarkUsed flags the entry only while it still holds code and is unused, and returns
// repository.ErrNotFound otherwise.
type RecoveryLedger interface {
	Put(ctx context.Context, entry domain.RecoveryEntry) error
	Get(ctx context.Context, identifier string) (*domain.RecoveryEntry, error)
	MarkUsed(ctx context.Context, identifier, code string) error
	Delete(ctx context.Context, identifier string) error
}

// NotificationSender delivers recovery codes out of band.
type NotificationSender interface {
	Send(ctx context.Context, notification domain.Notification) error
}
