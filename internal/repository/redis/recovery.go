package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	red "github.com/redis/go-redis/v9"

	"github.com/MiguelGP111/micampofresco/internal/core/domain"
	"github.com/MiguelGP111/micampofresco/internal/core/port"
	"github.com/MiguelGP111/micampofresco/internal/repository"
)

const (
	defaultRecoveryPrefix = "recovery"

	fieldAccountID = "account_id"
	fieldCode      = "code"
	fieldChannel   = "channel"
	fieldCreatedAt = "created_at"
	fieldExpiresAt = "expires_at"
	fieldUsed      = "used"
	fieldUsedAt    = "used_at"
)

// RecoveryLedger stores one recovery entry per identifier in a hash.
// Keys outlive the code by the retention window so used and expired entries stay visible.
type RecoveryLedger struct {
	client    *red.Client
	prefix    string
	retention time.Duration
	now       func() time.Time
}

// NewRecoveryLedger constructs a ledger with the provided client, key prefix and audit retention.
func NewRecoveryLedger(client *red.Client, keyPrefix string, retention time.Duration) *RecoveryLedger {
	prefix := strings.TrimSpace(keyPrefix)
	if prefix == "" {
		prefix = defaultRecoveryPrefix
	} else {
		prefix += ":" + defaultRecoveryPrefix
	}
	if retention < 0 {
		retention = 0
	}

	return &RecoveryLedger{
		client:    client,
		prefix:    prefix,
		retention: retention,
		now:       time.Now,
	}
}

// WithClock overrides the internal clock, used in tests.
func (r *RecoveryLedger) WithClock(clock func() time.Time) {
	if clock != nil {
		r.now = clock
	}
}

// Put replaces the entry for entry.Identifier and resets its expiry.
func (r *RecoveryLedger) Put(ctx context.Context, entry domain.RecoveryEntry) error {
	key := r.key(entry.Identifier)
	if key == "" {
		return errors.New("identifier is required")
	}

	ttl := entry.ExpiresAt.Sub(r.now()) + r.retention
	if ttl <= 0 {
		ttl = time.Second
	}

	pipe := r.client.TxPipeline()
	pipe.Del(ctx, key)
	pipe.HSet(ctx, key, map[string]any{
		fieldAccountID: strconv.FormatInt(entry.AccountID, 10),
		fieldCode:      entry.Code,
		fieldChannel:   entry.Channel,
		fieldCreatedAt: strconv.FormatInt(entry.CreatedAt.UnixNano(), 10),
		fieldExpiresAt: strconv.FormatInt(entry.ExpiresAt.UnixNano(), 10),
		fieldUsed:      "0",
	})
	pipe.Expire(ctx, key, ttl)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis store recovery code: %w", err)
	}
	return nil
}

// Get returns the entry for identifier.
func (r *RecoveryLedger) Get(ctx context.Context, identifier string) (*domain.RecoveryEntry, error) {
	key := r.key(identifier)
	if key == "" {
		return nil, repository.ErrNotFound
	}

	values, err := r.client.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("redis hgetall recovery code: %w", err)
	}
	if len(values) == 0 || strings.TrimSpace(values[fieldCode]) == "" {
		return nil, repository.ErrNotFound
	}

	accountID, err := strconv.ParseInt(values[fieldAccountID], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parse account_id: %w", err)
	}
	createdAt, err := parseUnixNano(values[fieldCreatedAt])
	if err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	expiresAt, err := parseUnixNano(values[fieldExpiresAt])
	if err != nil {
		return nil, fmt.Errorf("parse expires_at: %w", err)
	}

	entry := &domain.RecoveryEntry{
		Identifier: strings.TrimSpace(identifier),
		AccountID:  accountID,
		Code:       values[fieldCode],
		Channel:    values[fieldChannel],
		CreatedAt:  createdAt,
		ExpiresAt:  expiresAt,
		Used:       values[fieldUsed] == "1",
	}
	if raw := values[fieldUsedAt]; raw != "" {
		if usedAt, err := parseUnixNano(raw); err == nil {
			entry.UsedAt = &usedAt
		}
	}

	return entry, nil
}

// markUsedScript sets used only while the hash still holds the expected unused code.
var markUsedScript = red.NewScript(`
local code = redis.call('HGET', KEYS[1], 'code')
if not code or code ~= ARGV[1] then
  return 0
end
if redis.call('HGET', KEYS[1], 'used') == '1' then
  return 0
end
redis.call('HSET', KEYS[1], 'used', '1', 'used_at', ARGV[2])
return 1
`)

// MarkUsed flags the entry as redeemed without shortening its TTL.
func (r *RecoveryLedger) MarkUsed(ctx context.Context, identifier, code string) error {
	key := r.key(identifier)
	if key == "" {
		return repository.ErrNotFound
	}

	marked, err := markUsedScript.Run(ctx, r.client, []string{key}, code, strconv.FormatInt(r.now().UTC().UnixNano(), 10)).Int()
	if err != nil {
		return fmt.Errorf("redis mark recovery code used: %w", err)
	}
	if marked == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// Delete removes the entry. Deleting a missing entry is not an error.
func (r *RecoveryLedger) Delete(ctx context.Context, identifier string) error {
	key := r.key(identifier)
	if key == "" {
		return nil
	}
	if err := r.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis delete recovery code: %w", err)
	}
	return nil
}

func (r *RecoveryLedger) key(identifier string) string {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return ""
	}
	return fmt.Sprintf("%s:%s", r.prefix, identifier)
}

func parseUnixNano(raw string) (time.Time, error) {
	if strings.TrimSpace(raw) == "" {
		return time.Time{}, errors.New("timestamp is empty")
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}, err
	}
	return time.Unix(0, v).UTC(), nil
}

var _ port.RecoveryLedger = (*RecoveryLedger)(nil)
