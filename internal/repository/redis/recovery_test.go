package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	red "github.com/redis/go-redis/v9"

	"github.com/MiguelGP111/micampofresco/internal/core/domain"
	"github.com/MiguelGP111/micampofresco/internal/repository"
)

func newTestClient(t *testing.T) (*miniredis.Miniredis, *red.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := red.NewClient(&red.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRecoveryLedgerPutGet(t *testing.T) {
	mr, client := newTestClient(t)
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	ledger := NewRecoveryLedger(client, "mcf", 24*time.Hour)
	ledger.WithClock(func() time.Time { return now })

	entry := domain.RecoveryEntry{
		Identifier: "ana@example.com",
		AccountID:  7,
		Code:       "012345",
		Channel:    domain.ChannelEmail,
		CreatedAt:  now,
		ExpiresAt:  now.Add(time.Hour),
	}
	if err := ledger.Put(context.Background(), entry); err != nil {
		t.Fatalf("Put returned error: %v", err)
	}

	if ttl := mr.TTL("mcf:recovery:ana@example.com"); ttl != 25*time.Hour {
		t.Fatalf("expected ttl of code lifetime plus retention, got %s", ttl)
	}

	got, err := ledger.Get(context.Background(), "ana@example.com")
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if got.Code != "012345" || got.AccountID != 7 || got.Used {
		t.Fatalf("unexpected entry: %+v", got)
	}
	if !got.ExpiresAt.Equal(entry.ExpiresAt) {
		t.Fatalf("expected expiry %s, got %s", entry.ExpiresAt, got.ExpiresAt)
	}
}

func TestRecoveryLedgerSupersedesAndMarksUsed(t *testing.T) {
	_, client := newTestClient(t)
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	ledger := NewRecoveryLedger(client, "", time.Hour)
	ledger.WithClock(func() time.Time { return now })
	ctx := context.Background()

	first := domain.RecoveryEntry{Identifier: "ana@example.com", AccountID: 7, Code: "111111", CreatedAt: now, ExpiresAt: now.Add(time.Hour)}
	if err := ledger.Put(ctx, first); err != nil {
		t.Fatalf("Put returned error: %v", err)
	}
	if err := ledger.MarkUsed(ctx, "ana@example.com", "999999"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for a different code, got %v", err)
	}
	if err := ledger.MarkUsed(ctx, "ana@example.com", "111111"); err != nil {
		t.Fatalf("MarkUsed returned error: %v", err)
	}
	if err := ledger.MarkUsed(ctx, "ana@example.com", "111111"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for an already used code, got %v", err)
	}

	used, err := ledger.Get(ctx, "ana@example.com")
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if !used.Used || used.UsedAt == nil || !used.UsedAt.Equal(now) {
		t.Fatalf("expected entry marked used at %s, got %+v", now, used)
	}

	second := first
	second.Code = "222222"
	if err := ledger.Put(ctx, second); err != nil {
		t.Fatalf("Put returned error: %v", err)
	}
	got, err := ledger.Get(ctx, "ana@example.com")
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if got.Code != "222222" || got.Used || got.UsedAt != nil {
		t.Fatalf("expected fresh superseding entry, got %+v", got)
	}
}

func TestRecoveryLedgerMissingEntries(t *testing.T) {
	_, client := newTestClient(t)
	ledger := NewRecoveryLedger(client, "mcf", time.Hour)
	ctx := context.Background()

	if _, err := ledger.Get(ctx, "nobody@example.com"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := ledger.MarkUsed(ctx, "nobody@example.com", "123456"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound from MarkUsed, got %v", err)
	}
	if err := ledger.Delete(ctx, "nobody@example.com"); err != nil {
		t.Fatalf("Delete of missing entry returned error: %v", err)
	}
}

func TestRecoveryLedgerRedisFailure(t *testing.T) {
	mr, client := newTestClient(t)
	ledger := NewRecoveryLedger(client, "mcf", time.Hour)
	mr.Close()

	if _, err := ledger.Get(context.Background(), "ana@example.com"); err == nil || errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected infrastructure error, got %v", err)
	}
}
