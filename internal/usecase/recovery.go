package usecase

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	uuid "github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/MiguelGP111/micampofresco/internal/core/domain"
	"github.com/MiguelGP111/micampofresco/internal/infra/logger"
	"github.com/MiguelGP111/micampofresco/internal/repository"
)

const (
	recoveryRateLimitScope = "recovery"
	redeemRateLimitScope   = "recovery_redeem"
	resetRateLimitScope    = "password_reset"

	// Values of PasswordChangedEvent.Method.
	PasswordChangeMethodCode   = "code"
	PasswordChangeMethodDirect = "direct"
)

// RecoveryRequestInput identifies the account asking for a recovery code.
// Via optionally selects the channel; it defaults to the one matching the identifier.
type RecoveryRequestInput struct {
	Identifier string
	Via        string
	IP         string
}

// RecoveryRequestResult is identical for known and unknown identifiers except for Code,
// which is only set when a code was issued. Callers must not expose Code outside development.
type RecoveryRequestResult struct {
	Channel           string
	MaskedDestination string
	ExpiresAt         time.Time
	Code              string
}

// DirectResetInput sets a new password without a code.
type DirectResetInput struct {
	Identifier string
	Password   string
}

// RedeemInput exchanges a recovery code for a new password.
type RedeemInput struct {
	Identifier  string
	Code        string
	NewPassword string
}

// RequestRecoveryCode issues a 6-digit code and delivers it on the requested channel.
// An unknown identifier, or an account with no destination on that channel, yields the same
// result without a code.
func (s *AuthService) RequestRecoveryCode(ctx context.Context, in RecoveryRequestInput) (result *RecoveryRequestResult, err error) {
	ctx, span, started := s.begin(ctx, "recovery_request")
	defer func() { s.finish(span, "recovery_request", started, err) }()

	identifier, kind, err := validateIdentifier(in.Identifier)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	if err := s.enforceRateLimit(ctx, recoveryRateLimitScope, identifier, s.cfg.RateLimit.RecoveryMaxAttempts, now); err != nil {
		return nil, err
	}

	channel, err := resolveChannel(in.Via, kind)
	if err != nil {
		return nil, err
	}
	expiresAt := now.Add(s.codeTTL())
	result = &RecoveryRequestResult{
		Channel:           channel,
		MaskedDestination: logger.MaskIdentifier(identifier),
		ExpiresAt:         expiresAt,
	}
	span.SetAttributes(attribute.String("recovery.channel", channel))

	log := s.log(ctx).With(zap.String("identifier", result.MaskedDestination))

	account, err := s.accounts.FindByIdentifier(ctx, identifier)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			log.Info("recovery requested for unknown identifier")
			return result, nil
		}
		return nil, storeError("find account", err)
	}

	destination, ok := destinationFor(account, identifier, kind, channel)
	if !ok {
		log.Info("recovery requested for channel without destination", zap.String("channel", channel))
		return result, nil
	}

	code, err := s.generateCode(domain.RecoveryCodeLength)
	if err != nil {
		return nil, fmt.Errorf("generate recovery code: %w", err)
	}

	entry := domain.RecoveryEntry{
		Identifier: account.Identifier,
		AccountID:  account.ID,
		Code:       code,
		Channel:    channel,
		CreatedAt:  now,
		ExpiresAt:  expiresAt,
	}
	if err := s.ledger.Put(ctx, entry); err != nil {
		return nil, storeError("store recovery code", err)
	}

	if err := s.notifier.Send(ctx, domain.Notification{
		Channel:     channel,
		Destination: destination,
		Name:        account.Name,
		Code:        code,
		ExpiresAt:   expiresAt,
	}); err != nil {
		log.Error("recovery code delivery failed", zap.String("channel", channel), zap.Error(err))
		if delErr := s.ledger.Delete(ctx, entry.Identifier); delErr != nil {
			log.Warn("undelivered recovery code not deleted", zap.Error(delErr))
		}
		return nil, fmt.Errorf("%w: %s: %w", domain.ErrDelivery, channel, err)
	}

	s.publishRecoveryRequested(ctx, account.ID, result, now, in.IP)

	log.Info("recovery code issued",
		zap.Int64("account_id", account.ID),
		zap.String("channel", channel),
		zap.Time("expires_at", expiresAt),
	)

	result.Code = code
	return result, nil
}

// ResetPasswordDirect replaces the password for identifier without a code. It is refused
// unless recovery.allow_direct_reset is set. An unknown identifier still succeeds.
func (s *AuthService) ResetPasswordDirect(ctx context.Context, in DirectResetInput) (err error) {
	ctx, span, started := s.begin(ctx, "direct_reset")
	defer func() { s.finish(span, "direct_reset", started, err) }()

	if !s.cfg.Recovery.AllowDirectReset {
		return domain.ErrDirectResetDisabled
	}

	identifier, _, err := validateIdentifier(in.Identifier)
	if err != nil {
		return err
	}
	if err := s.policy.Validate(in.Password, identifier); err != nil {
		return err
	}

	now := s.now().UTC()
	if err := s.enforceRateLimit(ctx, resetRateLimitScope, identifier, s.cfg.RateLimit.RedeemMaxAttempts, now); err != nil {
		return err
	}

	account, err := s.accounts.FindByIdentifier(ctx, identifier)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.log(ctx).Info("direct reset for unknown identifier", zap.String("identifier", logger.MaskIdentifier(identifier)))
			return nil
		}
		return storeError("find account", err)
	}

	if err := s.replacePassword(ctx, account.ID, in.Password, now); err != nil {
		return err
	}

	s.publishPasswordChanged(ctx, account.ID, PasswordChangeMethodDirect, now)
	s.log(ctx).Info("password reset directly", zap.Int64("account_id", account.ID))
	return nil
}

// RedeemRecovery checks the code for identifier and, when it is current and unused, claims it
// and stores the new password. The claim is conditional on the code so concurrent redemptions
// of one code succeed at most once. The two writes are sequenced, not transactional.
func (s *AuthService) RedeemRecovery(ctx context.Context, in RedeemInput) (err error) {
	ctx, span, started := s.begin(ctx, "recovery_redeem")
	defer func() { s.finish(span, "recovery_redeem", started, err) }()

	identifier, _, err := validateIdentifier(in.Identifier)
	if err != nil {
		return err
	}
	code, err := validateCode(in.Code)
	if err != nil {
		return err
	}
	if err := s.policy.Validate(in.NewPassword, identifier); err != nil {
		return err
	}

	now := s.now().UTC()
	if err := s.enforceRateLimit(ctx, redeemRateLimitScope, identifier, s.cfg.RateLimit.RedeemMaxAttempts, now); err != nil {
		return err
	}

	account, err := s.accounts.FindByIdentifier(ctx, identifier)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.ErrInvalidCode
		}
		return storeError("find account", err)
	}

	entry, err := s.ledger.Get(ctx, account.Identifier)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.ErrInvalidCode
		}
		return storeError("load recovery code", err)
	}

	if subtle.ConstantTimeCompare([]byte(entry.Code), []byte(code)) != 1 {
		return domain.ErrInvalidCode
	}
	if entry.Used {
		return domain.ErrCodeAlreadyUsed
	}
	if entry.Expired(now) {
		if err := s.ledger.Delete(ctx, account.Identifier); err != nil {
			s.log(ctx).Warn("expired recovery code not deleted", zap.Int64("account_id", account.ID), zap.Error(err))
		}
		return domain.ErrCodeExpired
	}

	hash, err := s.hasher.Hash(in.NewPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.ledger.MarkUsed(ctx, account.Identifier, code); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.ErrCodeAlreadyUsed
		}
		return storeError("mark recovery code used", err)
	}
	if err := s.storePasswordHash(ctx, entry.AccountID, hash, now); err != nil {
		return err
	}

	s.publishPasswordChanged(ctx, entry.AccountID, PasswordChangeMethodCode, now)
	s.log(ctx).Info("recovery code redeemed", zap.Int64("account_id", entry.AccountID))
	return nil
}

func (s *AuthService) replacePassword(ctx context.Context, accountID int64, password string, now time.Time) error {
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	return s.storePasswordHash(ctx, accountID, hash, now)
}

func (s *AuthService) storePasswordHash(ctx context.Context, accountID int64, hash string, now time.Time) error {
	if err := s.accounts.UpdatePasswordHash(ctx, accountID, hash, s.hasher.Algorithm(), now); err != nil {
		return storeError("update password", err)
	}
	return nil
}

func (s *AuthService) publishRecoveryRequested(ctx context.Context, accountID int64, result *RecoveryRequestResult, at time.Time, ip string) {
	if s.events == nil {
		return
	}
	event := domain.RecoveryRequestedEvent{
		EventID:           uuid.NewString(),
		AccountID:         accountID,
		Channel:           result.Channel,
		MaskedDestination: result.MaskedDestination,
		RequestedAt:       at,
		ExpiresAt:         result.ExpiresAt,
	}
	if ip != "" {
		masked := logger.MaskIP(ip)
		event.IPAddress = &masked
	}
	if err := s.events.PublishRecoveryRequested(ctx, event); err != nil {
		s.log(ctx).Warn("publish recovery requested failed", zap.Int64("account_id", accountID), zap.Error(err))
	}
}
