// Package memory provides in-process store implementations for tests and single-node development.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/MiguelGP111/micampofresco/internal/core/domain"
	"github.com/MiguelGP111/micampofresco/internal/core/port"
	"github.com/MiguelGP111/micampofresco/internal/repository"
)

// AccountRepository keeps accounts in a map guarded by a RWMutex.
// Identifiers and phones share one index so uniqueness holds across both columns.
type AccountRepository struct {
	mu       sync.RWMutex
	nextID   int64
	accounts map[int64]domain.Account
	index    map[string]int64
	now      func() time.Time
}

// NewAccountRepository returns an empty repository.
func NewAccountRepository() *AccountRepository {
	return &AccountRepository{
		accounts: make(map[int64]domain.Account),
		index:    make(map[string]int64),
		now:      time.Now,
	}
}

// WithClock overrides the internal clock, used in tests.
func (r *AccountRepository) WithClock(clock func() time.Time) {
	if clock != nil {
		r.now = clock
	}
}

func (r *AccountRepository) FindByIdentifier(_ context.Context, identifier string) (*domain.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.index[identifier]
	if !ok {
		return nil, repository.ErrNotFound
	}
	account := r.accounts[id]
	return &account, nil
}

func (r *AccountRepository) FindByID(_ context.Context, id int64) (*domain.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	account, ok := r.accounts[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &account, nil
}

func (r *AccountRepository) Insert(_ context.Context, in domain.NewAccount) (*domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, taken := r.index[in.Identifier]; taken {
		return nil, repository.ErrDuplicate
	}
	var phone *string
	if in.Phone != nil && *in.Phone != "" {
		if _, taken := r.index[*in.Phone]; taken || *in.Phone == in.Identifier {
			return nil, repository.ErrDuplicate
		}
		p := *in.Phone
		phone = &p
	}

	r.nextID++
	now := r.now().UTC()
	account := domain.Account{
		ID:           r.nextID,
		Name:         in.Name,
		Surname:      in.Surname,
		Identifier:   in.Identifier,
		Phone:        phone,
		Address:      in.Address,
		PasswordHash: in.PasswordHash,
		PasswordAlgo: in.PasswordAlgo,
		Role:         in.Role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	r.accounts[account.ID] = account
	r.index[account.Identifier] = account.ID
	if phone != nil {
		r.index[*phone] = account.ID
	}

	created := account
	return &created, nil
}

func (r *AccountRepository) UpdatePasswordHash(_ context.Context, id int64, hash, algo string, changedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	account, ok := r.accounts[id]
	if !ok {
		return repository.ErrNotFound
	}
	account.PasswordHash = hash
	account.PasswordAlgo = algo
	account.UpdatedAt = changedAt.UTC()
	r.accounts[id] = account
	return nil
}

func (r *AccountRepository) ExistsByIdentifier(_ context.Context, identifier string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.index[identifier]
	return ok, nil
}

var _ port.AccountRepository = (*AccountRepository)(nil)
