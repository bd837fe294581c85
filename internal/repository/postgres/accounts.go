package postgres

import (
	"context"
	"fmt"
	"time"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/MiguelGP111/micampofresco/internal/core/domain"
	"github.com/MiguelGP111/micampofresco/internal/core/port"
	"github.com/MiguelGP111/micampofresco/internal/repository"
)

const accountsTable = "accounts"

var accountColumns = []string{
	"id",
	"name",
	"surname",
	"identifier",
	"phone",
	"address",
	"password_hash",
	"password_algo",
	"role",
	"created_at",
	"updated_at",
}

// AccountRepository implements port.AccountRepository using PostgreSQL.
type AccountRepository struct {
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewAccountRepository wires a PostgreSQL-backed account repository.
func NewAccountRepository(exec pgExecutor) *AccountRepository {
	return &AccountRepository{
		exec:    exec,
		builder: newBuilder(),
	}
}

// WithTx returns a repository instance operating within the supplied transaction.
func (r *AccountRepository) WithTx(tx pgx.Tx) *AccountRepository {
	if tx == nil {
		return r
	}
	return &AccountRepository{
		exec:    tx,
		builder: r.builder,
	}
}

// FindByIdentifier matches identifier against both the identifier and phone columns.
func (r *AccountRepository) FindByIdentifier(ctx context.Context, identifier string) (*domain.Account, error) {
	stmt, args, err := r.builder.
		Select(accountColumns...).
		From(accountsTable).
		Where(squirrel.Or{
			squirrel.Eq{"identifier": identifier},
			squirrel.Eq{"phone": identifier},
		}).
		OrderBy("id").
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select account by identifier sql: %w", err)
	}

	return r.scanOne(ctx, stmt, args)
}

// FindByID retrieves an account by primary key.
func (r *AccountRepository) FindByID(ctx context.Context, id int64) (*domain.Account, error) {
	stmt, args, err := r.builder.
		Select(accountColumns...).
		From(accountsTable).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select account sql: %w", err)
	}

	return r.scanOne(ctx, stmt, args)
}

// Insert creates the account and returns it with store-assigned fields populated.
// Unique violations surface as repository.ErrDuplicate.
func (r *AccountRepository) Insert(ctx context.Context, account domain.NewAccount) (*domain.Account, error) {
	stmt, args, err := r.builder.Insert(accountsTable).
		Columns(
			"name",
			"surname",
			"identifier",
			"phone",
			"address",
			"password_hash",
			"password_algo",
			"role",
		).
		Values(
			account.Name,
			account.Surname,
			account.Identifier,
			optionalString(account.Phone),
			account.Address,
			account.PasswordHash,
			account.PasswordAlgo,
			string(account.Role),
		).
		Suffix("RETURNING id, created_at, updated_at").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build insert account sql: %w", err)
	}

	created := domain.Account{
		Name:         account.Name,
		Surname:      account.Surname,
		Identifier:   account.Identifier,
		Phone:        account.Phone,
		Address:      account.Address,
		PasswordHash: account.PasswordHash,
		PasswordAlgo: account.PasswordAlgo,
		Role:         account.Role,
	}

	if err := r.exec.QueryRow(ctx, stmt, args...).Scan(&created.ID, &created.CreatedAt, &created.UpdatedAt); err != nil {
		if isUniqueViolation(err) {
			return nil, repository.ErrDuplicate
		}
		return nil, fmt.Errorf("insert account: %w", err)
	}

	created.CreatedAt = created.CreatedAt.UTC()
	created.UpdatedAt = created.UpdatedAt.UTC()
	return &created, nil
}

// UpdatePasswordHash replaces the stored hash and algorithm.
func (r *AccountRepository) UpdatePasswordHash(ctx context.Context, id int64, hash, algo string, changedAt time.Time) error {
	stmt, args, err := r.builder.Update(accountsTable).
		Set("password_hash", hash).
		Set("password_algo", algo).
		Set("password_changed_at", changedAt.UTC()).
		Set("updated_at", changedAt.UTC()).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update password sql: %w", err)
	}

	tag, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("update password hash: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// ExistsByIdentifier reports whether identifier is taken as either an identifier or a phone.
func (r *AccountRepository) ExistsByIdentifier(ctx context.Context, identifier string) (bool, error) {
	stmt, args, err := r.builder.
		Select("1").
		Prefix("SELECT EXISTS (").
		From(accountsTable).
		Where(squirrel.Or{
			squirrel.Eq{"identifier": identifier},
			squirrel.Eq{"phone": identifier},
		}).
		Suffix(")").
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build exists account sql: %w", err)
	}

	var exists bool
	if err := r.exec.QueryRow(ctx, stmt, args...).Scan(&exists); err != nil {
		return false, fmt.Errorf("check account exists: %w", err)
	}
	return exists, nil
}

func (r *AccountRepository) scanOne(ctx context.Context, stmt string, args []any) (*domain.Account, error) {
	var (
		account domain.Account
		phone   *string
		role    string
	)

	err := r.exec.QueryRow(ctx, stmt, args...).Scan(
		&account.ID,
		&account.Name,
		&account.Surname,
		&account.Identifier,
		&phone,
		&account.Address,
		&account.PasswordHash,
		&account.PasswordAlgo,
		&role,
		&account.CreatedAt,
		&account.UpdatedAt,
	)
	if err != nil {
		if isNoRows(err) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan account: %w", err)
	}

	account.Phone = phone
	account.Role = domain.NormalizeRole(role)
	account.CreatedAt = account.CreatedAt.UTC()
	account.UpdatedAt = account.UpdatedAt.UTC()
	return &account, nil
}

var _ port.AccountRepository = (*AccountRepository)(nil)
