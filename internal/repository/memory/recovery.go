package memory

import (
	"context"
	"sync"
	"time"

	"github.com/MiguelGP111/micampofresco/internal/core/domain"
	"github.com/MiguelGP111/micampofresco/internal/core/port"
	"github.com/MiguelGP111/micampofresco/internal/repository"
)

// RecoveryLedger keeps one entry per identifier.
type RecoveryLedger struct {
	mu      sync.RWMutex
	entries map[string]domain.RecoveryEntry
	now     func() time.Time
}

// NewRecoveryLedger returns an empty ledger.
func NewRecoveryLedger() *RecoveryLedger {
	return &RecoveryLedger{
		entries: make(map[string]domain.RecoveryEntry),
		now:     time.Now,
	}
}

// WithClock overrides the internal clock, used in tests.
func (l *RecoveryLedger) WithClock(clock func() time.Time) {
	if clock != nil {
		l.now = clock
	}
}

func (l *RecoveryLedger) Put(_ context.Context, entry domain.RecoveryEntry) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry.Used = false
	entry.UsedAt = nil
	l.entries[entry.Identifier] = entry
	return nil
}

func (l *RecoveryLedger) Get(_ context.Context, identifier string) (*domain.RecoveryEntry, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	entry, ok := l.entries[identifier]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if entry.UsedAt != nil {
		usedAt := *entry.UsedAt
		entry.UsedAt = &usedAt
	}
	return &entry, nil
}

func (l *RecoveryLedger) MarkUsed(_ context.Context, identifier, code string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.entries[identifier]
	if !ok || entry.Used || entry.Code != code {
		return repository.ErrNotFound
	}
	usedAt := l.now().UTC()
	entry.Used = true
	entry.UsedAt = &usedAt
	l.entries[identifier] = entry
	return nil
}

func (l *RecoveryLedger) Delete(_ context.Context, identifier string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	delete(l.entries, identifier)
	return nil
}

var _ port.RecoveryLedger = (*RecoveryLedger)(nil)
