package port

import (
	"context"
	"time"

	"github.com/MiguelGP111/micampofresco/internal/core/domain"
)

// AccountRepository exposes persistence behavior for accounts.
// Lookups take normalized identifiers and match either the identifier or the phone column.
type AccountRepository interface {
	FindByIdentifier(ctx context.Context, identifier string) (*domain.Account, error)
	FindByID(ctx context.Context, id int64) (*domain.Account, error)
	Insert(ctx context.Context, account domain.NewAccount) (*domain.Account, error)
	UpdatePasswordHash(ctx context.Context, id int64, hash, algo string, changedAt time.Time) error
	ExistsByIdentifier(ctx context.Context, identifier string) (bool, error)
}
