package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	uuid "github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/MiguelGP111/micampofresco/internal/core/domain"
	"github.com/MiguelGP111/micampofresco/internal/core/port"
	"github.com/MiguelGP111/micampofresco/internal/infra/config"
	"github.com/MiguelGP111/micampofresco/internal/infra/logger"
	"github.com/MiguelGP111/micampofresco/internal/infra/security"
	"github.com/MiguelGP111/micampofresco/internal/infra/telemetry"
	"github.com/MiguelGP111/micampofresco/internal/repository"
)

const (
	defaultCodeTTL         = time.Hour
	defaultRateLimitWindow = time.Hour

	timingGuardSecret = "micampofresco-timing-guard"
)

var tracer = telemetry.Tracer("github.com/MiguelGP111/micampofresco/internal/usecase")

// RegisterInput carries the registration form.
type RegisterInput struct {
	Name       string
	Surname    string
	Identifier string
	Phone      string
	Address    string
	Password   string
	Role       string
}

// LoginInput carries credentials for Login and AdminService.Login.
type LoginInput struct {
	Identifier string
	Password   string
}

// AuthResult is returned after a successful registration or login.
type AuthResult struct {
	Account   domain.AccountView
	Token     string
	ExpiresAt time.Time
}

// AuthService coordinates registration, login and password recovery.
type AuthService struct {
	cfg        *config.AppConfig
	accounts   port.AccountRepository
	ledger     port.RecoveryLedger
	hasher     port.PasswordHasher
	policy     port.PasswordPolicyValidator
	tokens     port.TokenIssuer
	notifier   port.NotificationSender
	events     port.EventPublisher
	rateLimits port.RateLimitStore
	metrics    port.OperationRecorder
	logger     *zap.Logger

	now          func() time.Time
	generateCode func(length int) (string, error)

	dummyOnce sync.Once
	dummyHash string
}

// NewAuthService constructs an AuthService. Rate limits and metrics are optional and set with the With helpers.
func NewAuthService(
	cfg *config.AppConfig,
	accounts port.AccountRepository,
	ledger port.RecoveryLedger,
	hasher port.PasswordHasher,
	policy port.PasswordPolicyValidator,
	tokens port.TokenIssuer,
	notifier port.NotificationSender,
	events port.EventPublisher,
	log *zap.Logger,
) *AuthService {
	if cfg == nil {
		cfg = &config.AppConfig{}
	}
	if policy == nil {
		policy = security.DefaultPasswordPolicy()
	}
	if log == nil {
		log = zap.NewNop()
	}

	return &AuthService{
		cfg:          cfg,
		accounts:     accounts,
		ledger:       ledger,
		hasher:       hasher,
		policy:       policy,
		tokens:       tokens,
		notifier:     notifier,
		events:       events,
		logger:       log,
		now:          time.Now,
		generateCode: security.GenerateNumericCode,
	}
}

// WithClock overrides the clock used for code expiry and timestamps.
func (s *AuthService) WithClock(now func() time.Time) *AuthService {
	if now != nil {
		s.now = now
	}
	return s
}

// WithRateLimitStore enables the per-identifier limits on recovery operations.
func (s *AuthService) WithRateLimitStore(store port.RateLimitStore) *AuthService {
	s.rateLimits = store
	return s
}

// WithMetrics records operation outcomes and latency.
func (s *AuthService) WithMetrics(recorder port.OperationRecorder) *AuthService {
	s.metrics = recorder
	return s
}

// WithCodeGenerator replaces the recovery code generator.
func (s *AuthService) WithCodeGenerator(gen func(length int) (string, error)) *AuthService {
	if gen != nil {
		s.generateCode = gen
	}
	return s
}

// Register validates the form, stores the account and issues an auth token.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (result *AuthResult, err error) {
	ctx, span, started := s.begin(ctx, "register")
	defer func() { s.finish(span, "register", started, err) }()

	if err := requireName(in.Name); err != nil {
		return nil, err
	}
	identifier, kind, err := validateIdentifier(in.Identifier)
	if err != nil {
		return nil, err
	}
	phone, err := validateOptionalPhone(in.Phone)
	if err != nil {
		return nil, err
	}
	if err := s.policy.Validate(in.Password, identifier); err != nil {
		return nil, err
	}
	role := domain.NormalizeRole(in.Role)

	span.SetAttributes(attribute.String("identifier.kind", string(kind)), attribute.String("account.role", string(role)))

	if err := s.ensureAvailable(ctx, identifier); err != nil {
		return nil, err
	}
	if phone != nil && *phone != identifier {
		if err := s.ensureAvailable(ctx, *phone); err != nil {
			return nil, err
		}
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	account, err := s.accounts.Insert(ctx, domain.NewAccount{
		Name:         strings.TrimSpace(in.Name),
		Surname:      strings.TrimSpace(in.Surname),
		Identifier:   identifier,
		Phone:        phone,
		Address:      strings.TrimSpace(in.Address),
		PasswordHash: hash,
		PasswordAlgo: s.hasher.Algorithm(),
		Role:         role,
	})
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, domain.ErrConflict
		}
		return nil, storeError("insert account", err)
	}

	token, claims, err := s.tokens.Issue(*account)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}

	s.publishRegistered(ctx, *account, kind)

	s.log(ctx).Info("account registered",
		zap.Int64("account_id", account.ID),
		zap.String("identifier", logger.MaskIdentifier(identifier)),
		zap.String("role", string(role)),
	)

	return &AuthResult{Account: account.View(), Token: token, ExpiresAt: claims.ExpiresAt}, nil
}

// Login checks credentials and issues an auth token. An unknown identifier and a wrong
// password produce the same error.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (result *AuthResult, err error) {
	ctx, span, started := s.begin(ctx, "login")
	defer func() { s.finish(span, "login", started, err) }()

	account, err := s.authenticate(ctx, in)
	if err != nil {
		return nil, err
	}

	token, claims, err := s.tokens.Issue(*account)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}

	return &AuthResult{Account: account.View(), Token: token, ExpiresAt: claims.ExpiresAt}, nil
}

// VerifyToken decodes an auth-context bearer token.
func (s *AuthService) VerifyToken(ctx context.Context, token string) (claims domain.TokenClaims, err error) {
	_, span, started := s.begin(ctx, "verify")
	defer func() { s.finish(span, "verify", started, err) }()

	return s.tokens.Verify(strings.TrimSpace(token))
}

// Profile returns the account a verified token refers to.
func (s *AuthService) Profile(ctx context.Context, accountID int64) (domain.AccountView, error) {
	account, err := s.accounts.FindByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.AccountView{}, domain.ErrTokenInvalid
		}
		return domain.AccountView{}, storeError("find account", err)
	}
	return account.View(), nil
}

func (s *AuthService) authenticate(ctx context.Context, in LoginInput) (*domain.Account, error) {
	identifier := domain.NormalizeIdentifier(in.Identifier)
	if identifier == "" {
		return nil, domain.NewValidationError("identifier", "email or phone is required")
	}
	if in.Password == "" {
		return nil, domain.NewValidationError("password", "password is required")
	}

	account, err := s.accounts.FindByIdentifier(ctx, identifier)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.equalizeTiming(in.Password)
			return nil, domain.ErrInvalidCredentials
		}
		return nil, storeError("find account", err)
	}

	ok, err := s.hasher.Verify(in.Password, account.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		return nil, domain.ErrInvalidCredentials
	}

	s.rehashIfNeeded(ctx, account, in.Password)
	return account, nil
}

// equalizeTiming runs a throwaway hash comparison when the login timing guard is on.
func (s *AuthService) equalizeTiming(password string) {
	if !s.cfg.Security.LoginTimingGuard {
		return
	}
	s.dummyOnce.Do(func() {
		hash, err := s.hasher.Hash(timingGuardSecret)
		if err != nil {
			s.logger.Warn("timing guard hash unavailable", zap.Error(err))
			return
		}
		s.dummyHash = hash
	})
	if s.dummyHash != "" {
		_, _ = s.hasher.Verify(password, s.dummyHash)
	}
}

func (s *AuthService) rehashIfNeeded(ctx context.Context, account *domain.Account, password string) {
	if !s.hasher.NeedsRehash(account.PasswordHash) {
		return
	}
	log := s.log(ctx).With(zap.Int64("account_id", account.ID))

	hash, err := s.hasher.Hash(password)
	if err != nil {
		log.Warn("password rehash failed", zap.Error(err))
		return
	}
	if err := s.accounts.UpdatePasswordHash(ctx, account.ID, hash, s.hasher.Algorithm(), s.now().UTC()); err != nil {
		log.Warn("password rehash not stored", zap.Error(err))
		return
	}
	account.PasswordHash = hash
	account.PasswordAlgo = s.hasher.Algorithm()
	log.Info("password rehashed", zap.String("algorithm", s.hasher.Algorithm()))
}

func (s *AuthService) ensureAvailable(ctx context.Context, identifier string) error {
	exists, err := s.accounts.ExistsByIdentifier(ctx, identifier)
	if err != nil {
		return storeError("check identifier", err)
	}
	if exists {
		return domain.ErrConflict
	}
	return nil
}

func (s *AuthService) publishRegistered(ctx context.Context, account domain.Account, kind domain.IdentifierKind) {
	if s.events == nil {
		return
	}
	event := domain.AccountRegisteredEvent{
		EventID:      uuid.NewString(),
		AccountID:    account.ID,
		Identifier:   account.Identifier,
		Kind:         kind,
		Role:         account.Role,
		RegisteredAt: account.CreatedAt,
	}
	if err := s.events.PublishAccountRegistered(ctx, event); err != nil {
		s.log(ctx).Warn("publish account registered failed", zap.Int64("account_id", account.ID), zap.Error(err))
	}
}

func (s *AuthService) publishPasswordChanged(ctx context.Context, accountID int64, method string, at time.Time) {
	if s.events == nil {
		return
	}
	event := domain.PasswordChangedEvent{
		EventID:   uuid.NewString(),
		AccountID: accountID,
		Method:    method,
		ChangedAt: at,
	}
	if err := s.events.PublishPasswordChanged(ctx, event); err != nil {
		s.log(ctx).Warn("publish password changed failed", zap.Int64("account_id", accountID), zap.Error(err))
	}
}

// enforceRateLimit applies a sliding window per scope and key. Store failures are logged and let the call through.
func (s *AuthService) enforceRateLimit(ctx context.Context, scope, key string, limit int, now time.Time) error {
	if s.rateLimits == nil || limit <= 0 || key == "" {
		return nil
	}

	window := s.cfg.RateLimit.WindowDuration
	if window <= 0 {
		window = defaultRateLimitWindow
	}

	storageKey := scope + ":" + key

	if err := s.rateLimits.TrimWindow(ctx, storageKey, window, now); err != nil {
		s.logger.Warn("rate limit trim failed", zap.String("scope", scope), zap.Error(err))
		return nil
	}

	count, err := s.rateLimits.CountAttempts(ctx, storageKey, window, now)
	if err != nil {
		s.logger.Warn("rate limit count failed", zap.String("scope", scope), zap.Error(err))
		return nil
	}

	if count >= limit {
		retryAfter := time.Duration(0)
		if oldest, ok, err := s.rateLimits.OldestAttempt(ctx, storageKey, window, now); err == nil && ok {
			if reset := oldest.Add(window); reset.After(now) {
				retryAfter = reset.Sub(now)
			}
		} else if err != nil {
			s.logger.Warn("rate limit oldest lookup failed", zap.String("scope", scope), zap.Error(err))
		}
		return &RateLimitExceededError{Scope: scope, RetryAfter: retryAfter}
	}

	if err := s.rateLimits.RecordAttempt(ctx, storageKey, now); err != nil {
		s.logger.Warn("rate limit record failed", zap.String("scope", scope), zap.Error(err))
	}
	return nil
}

func (s *AuthService) codeTTL() time.Duration {
	if ttl := s.cfg.Recovery.CodeTTL; ttl > 0 {
		return ttl
	}
	return defaultCodeTTL
}

func (s *AuthService) log(ctx context.Context) *zap.Logger {
	return s.logger.With(logger.ContextFields(ctx)...)
}

func (s *AuthService) begin(ctx context.Context, operation string) (context.Context, trace.Span, time.Time) {
	ctx, span := tracer.Start(ctx, "AuthService."+operation)
	return ctx, span, time.Now()
}

func (s *AuthService) finish(span trace.Span, operation string, started time.Time, err error) {
	outcome := "success"
	if err != nil {
		outcome = domain.Kind(err)
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome)
	}
	span.SetAttributes(attribute.String("outcome", outcome))
	span.End()

	if s.metrics != nil {
		s.metrics.Observe(operation, outcome, time.Since(started))
	}
}
