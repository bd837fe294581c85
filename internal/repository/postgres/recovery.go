package postgres

import (
	"context"
	"fmt"
	"time"

	squirrel "github.com/Masterminds/squirrel"

	"github.com/MiguelGP111/micampofresco/internal/core/domain"
	"github.com/MiguelGP111/micampofresco/internal/core/port"
	"github.com/MiguelGP111/micampofresco/internal/repository"
)

const recoveryTable = "recovery_codes"

// RecoveryRepository implements port.RecoveryLedger on the recovery_codes table.
// One row per identifier; Put overwrites it.
type RecoveryRepository struct {
	exec    pgExecutor
	builder squirrel.StatementBuilderType
	now     func() time.Time
}

// NewRecoveryRepository wires a PostgreSQL-backed recovery ledger.
func NewRecoveryRepository(exec pgExecutor) *RecoveryRepository {
	return &RecoveryRepository{
		exec:    exec,
		builder: newBuilder(),
		now:     time.Now,
	}
}

// WithClock overrides the internal clock, used in tests.
func (r *RecoveryRepository) WithClock(clock func() time.Time) {
	if clock != nil {
		r.now = clock
	}
}

// Put stores entry, superseding any earlier code for the same identifier.
func (r *RecoveryRepository) Put(ctx context.Context, entry domain.RecoveryEntry) error {
	stmt, args, err := r.builder.Insert(recoveryTable).
		Columns("identifier", "account_id", "code", "channel", "created_at", "expires_at", "used", "used_at").
		Values(entry.Identifier, entry.AccountID, entry.Code, entry.Channel, entry.CreatedAt.UTC(), entry.ExpiresAt.UTC(), false, nil).
		Suffix(`ON CONFLICT (identifier) DO UPDATE SET
            account_id = EXCLUDED.account_id,
            code = EXCLUDED.code,
            channel = EXCLUDED.channel,
            created_at = EXCLUDED.created_at,
            expires_at = EXCLUDED.expires_at,
            used = FALSE,
            used_at = NULL`).
		ToSql()
	if err != nil {
		return fmt.Errorf("build upsert recovery sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("upsert recovery code: %w", err)
	}
	return nil
}

// Get returns the current entry for identifier.
func (r *RecoveryRepository) Get(ctx context.Context, identifier string) (*domain.RecoveryEntry, error) {
	stmt, args, err := r.builder.
		Select("identifier", "account_id", "code", "channel", "created_at", "expires_at", "used", "used_at").
		From(recoveryTable).
		Where(squirrel.Eq{"identifier": identifier}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select recovery sql: %w", err)
	}

	var entry domain.RecoveryEntry
	err = r.exec.QueryRow(ctx, stmt, args...).Scan(
		&entry.Identifier,
		&entry.AccountID,
		&entry.Code,
		&entry.Channel,
		&entry.CreatedAt,
		&entry.ExpiresAt,
		&entry.Used,
		&entry.UsedAt,
	)
	if err != nil {
		if isNoRows(err) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan recovery code: %w", err)
	}

	entry.CreatedAt = entry.CreatedAt.UTC()
	entry.ExpiresAt = entry.ExpiresAt.UTC()
	if entry.UsedAt != nil {
		usedAt := entry.UsedAt.UTC()
		entry.UsedAt = &usedAt
	}
	return &entry, nil
}

// MarkUsed flags the entry as redeemed if it still holds code and is unused.
// The row is kept so replays can be detected.
func (r *RecoveryRepository) MarkUsed(ctx context.Context, identifier, code string) error {
	stmt, args, err := r.builder.Update(recoveryTable).
		Set("used", true).
		Set("used_at", r.now().UTC()).
		Where(squirrel.Eq{"identifier": identifier}).
		Where(squirrel.Eq{"code": code}).
		Where(squirrel.Eq{"used": false}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build mark used sql: %w", err)
	}

	tag, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("mark recovery code used: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// Delete removes the entry. Deleting a missing entry is not an error.
func (r *RecoveryRepository) Delete(ctx context.Context, identifier string) error {
	stmt, args, err := r.builder.Delete(recoveryTable).
		Where(squirrel.Eq{"identifier": identifier}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete recovery sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("delete recovery code: %w", err)
	}
	return nil
}

var _ port.RecoveryLedger = (*RecoveryRepository)(nil)
