package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v4"

	"github.com/MiguelGP111/micampofresco/internal/core/domain"
	"github.com/MiguelGP111/micampofresco/internal/repository"
)

func newMockPool(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	t.Cleanup(mock.Close)
	return mock
}

func accountRows(now time.Time) *pgxmock.Rows {
	phone := "59171234567"
	return pgxmock.NewRows(accountColumns).AddRow(
		int64(7), "Ana", "Quispe", "ana@example.com", &phone, "Av. Siempre Viva",
		"$2a$10$hash", "bcrypt", "vendor", now, now,
	)
}

func TestAccountRepository_FindByIdentifier(t *testing.T) {
	mock := newMockPool(t)
	repo := NewAccountRepository(mock)
	now := time.Now().UTC()

	mock.ExpectQuery(`SELECT .* FROM accounts WHERE \(identifier = \$1 OR phone = \$2\)`).
		WithArgs("ana@example.com", "ana@example.com").
		WillReturnRows(accountRows(now))

	account, err := repo.FindByIdentifier(context.Background(), "ana@example.com")
	if err != nil {
		t.Fatalf("FindByIdentifier returned error: %v", err)
	}
	if account.ID != 7 || account.Role != domain.RoleVendor {
		t.Fatalf("unexpected account: %+v", account)
	}
	if account.Phone == nil || *account.Phone != "59171234567" {
		t.Fatalf("expected phone to be populated")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestAccountRepository_FindByIDNotFound(t *testing.T) {
	mock := newMockPool(t)
	repo := NewAccountRepository(mock)

	mock.ExpectQuery(`SELECT .* FROM accounts WHERE id = \$1`).
		WithArgs(int64(99)).
		WillReturnError(pgx.ErrNoRows)

	_, err := repo.FindByID(context.Background(), 99)
	if !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestAccountRepository_Insert(t *testing.T) {
	mock := newMockPool(t)
	repo := NewAccountRepository(mock)
	now := time.Now().UTC()

	mock.ExpectQuery(`INSERT INTO accounts .* RETURNING id, created_at, updated_at`).
		WithArgs("Ana", "", "ana@example.com", nil, "", "$2a$10$hash", "bcrypt", "user").
		WillReturnRows(pgxmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(int64(1), now, now))

	account, err := repo.Insert(context.Background(), domain.NewAccount{
		Name:         "Ana",
		Identifier:   "ana@example.com",
		PasswordHash: "$2a$10$hash",
		PasswordAlgo: "bcrypt",
		Role:         domain.RoleUser,
	})
	if err != nil {
		t.Fatalf("Insert returned error: %v", err)
	}
	if account.ID != 1 || !account.CreatedAt.Equal(now) {
		t.Fatalf("unexpected account: %+v", account)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestAccountRepository_InsertDuplicate(t *testing.T) {
	mock := newMockPool(t)
	repo := NewAccountRepository(mock)

	mock.ExpectQuery(`INSERT INTO accounts`).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(&pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: "accounts_identifier_key"})

	_, err := repo.Insert(context.Background(), domain.NewAccount{Name: "Ana", Identifier: "ana@example.com", Role: domain.RoleUser})
	if !errors.Is(err, repository.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestAccountRepository_UpdatePasswordHash(t *testing.T) {
	mock := newMockPool(t)
	repo := NewAccountRepository(mock)
	changedAt := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectExec(`UPDATE accounts SET password_hash = \$1, password_algo = \$2, password_changed_at = \$3, updated_at = \$4 WHERE id = \$5`).
		WithArgs("newhash", "bcrypt", changedAt, changedAt, int64(7)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	if err := repo.UpdatePasswordHash(context.Background(), 7, "newhash", "bcrypt", changedAt); err != nil {
		t.Fatalf("UpdatePasswordHash returned error: %v", err)
	}

	mock.ExpectExec(`UPDATE accounts`).
		WithArgs("newhash", "bcrypt", changedAt, changedAt, int64(8)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	if err := repo.UpdatePasswordHash(context.Background(), 8, "newhash", "bcrypt", changedAt); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing account, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestAccountRepository_ExistsByIdentifier(t *testing.T) {
	mock := newMockPool(t)
	repo := NewAccountRepository(mock)

	mock.ExpectQuery(`SELECT EXISTS \( SELECT 1 FROM accounts WHERE \(identifier = \$1 OR phone = \$2\) \)`).
		WithArgs("59171234567", "59171234567").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))

	exists, err := repo.ExistsByIdentifier(context.Background(), "59171234567")
	if err != nil {
		t.Fatalf("ExistsByIdentifier returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected identifier to exist")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
