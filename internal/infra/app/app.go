package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/MiguelGP111/micampofresco/internal/core/domain"
	"github.com/MiguelGP111/micampofresco/internal/core/port"
	"github.com/MiguelGP111/micampofresco/internal/infra/config"
	"github.com/MiguelGP111/micampofresco/internal/infra/database"
	kafkainfra "github.com/MiguelGP111/micampofresco/internal/infra/kafka"
	"github.com/MiguelGP111/micampofresco/internal/infra/logger"
	"github.com/MiguelGP111/micampofresco/internal/infra/notify"
	redisinfra "github.com/MiguelGP111/micampofresco/internal/infra/redis"
	"github.com/MiguelGP111/micampofresco/internal/infra/security"
	"github.com/MiguelGP111/micampofresco/internal/infra/telemetry"
	"github.com/MiguelGP111/micampofresco/internal/repository/memory"
	postgresrepo "github.com/MiguelGP111/micampofresco/internal/repository/postgres"
	redisrepo "github.com/MiguelGP111/micampofresco/internal/repository/redis"
	"github.com/MiguelGP111/micampofresco/internal/transport/http/middleware"
	"github.com/MiguelGP111/micampofresco/internal/transport/http/routes"
	"github.com/MiguelGP111/micampofresco/internal/usecase"
)

const shutdownTimeout = 10 * time.Second

type Application struct {
	cfg      *config.AppConfig
	engine   *gin.Engine
	logger   *zap.Logger
	pool     *pgxpool.Pool
	redis    *redisinfra.Client
	producer *kafkainfra.Producer
	tracer   *telemetry.TracerProvider
}

func New(ctx context.Context, cfg *config.AppConfig) (*Application, error) {
	log, err := logger.New(cfg.App.Env)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	a := &Application{cfg: cfg, logger: log}
	if err := a.build(ctx); err != nil {
		a.close()
		return nil, err
	}
	return a, nil
}

func (a *Application) build(ctx context.Context) error {
	cfg, log := a.cfg, a.logger

	tp, err := telemetry.NewTracerProvider(ctx, cfg.Telemetry, log)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	a.tracer = tp

	if cfg.Redis.Enabled {
		client, err := redisinfra.NewClient(ctx, cfg.Redis, log)
		if err != nil {
			return fmt.Errorf("init redis: %w", err)
		}
		a.redis = client
	}

	var accounts port.AccountRepository
	var pgRepos *postgresrepo.Repositories
	switch cfg.Store.Backend {
	case config.BackendPostgres:
		pool, err := database.NewPostgresPool(ctx, cfg.Postgres, log)
		if err != nil {
			return fmt.Errorf("init postgres: %w", err)
		}
		a.pool = pool
		if cfg.Postgres.AutoMigrate {
			if err := migrateUp(ctx, pool, log); err != nil {
				return err
			}
		}
		pgRepos = postgresrepo.NewRepositories(pool)
		accounts = pgRepos.Accounts
	default:
		log.Warn("using in-memory account store; data is lost on restart")
		accounts = memory.NewAccountRepository()
	}

	ledger, err := a.recoveryLedger(pgRepos)
	if err != nil {
		return err
	}

	var rateLimits port.RateLimitStore = memory.NewRateLimitStore()
	if a.redis != nil {
		window := cfg.RateLimit.WindowDuration
		if window <= 0 {
			window = time.Minute
		}
		rateLimits = redisrepo.NewRateLimitRepository(a.redis.Client(), redisrepo.SlidingWindowConfig{
			KeyPrefix: a.redis.KeyPrefix() + ":rate-limit",
			TTL:       window * 2,
		})
	}

	hasher, err := security.NewPasswordHasher(cfg.Password.Algorithm, cfg.Password.BcryptCost, argon2Config(cfg.Argon2))
	if err != nil {
		return fmt.Errorf("init password hasher: %w", err)
	}

	authIssuer, adminIssuer, err := a.tokenIssuers()
	if err != nil {
		return err
	}

	notifier, err := a.notifier()
	if err != nil {
		return err
	}

	metrics, err := telemetry.NewAuthMetrics(telemetry.AuthMetricsOptions{})
	if err != nil {
		return fmt.Errorf("init auth metrics: %w", err)
	}
	httpMetrics, err := middleware.NewHTTPMetrics(middleware.HTTPMetricsOptions{})
	if err != nil {
		return fmt.Errorf("init http metrics: %w", err)
	}

	authService := usecase.NewAuthService(cfg,
		accounts,
		ledger,
		hasher,
		security.NewPasswordPolicy(cfg.Password.MinLength, cfg.Password.MinStrength),
		authIssuer,
		notifier,
		a.eventPublisher(),
		log,
	).
		WithRateLimitStore(rateLimits).
		WithMetrics(metrics)
	adminService := usecase.NewAdminService(authService, adminIssuer)

	deps := routes.Dependencies{
		Config:      cfg,
		Logger:      log,
		RateLimiter: middleware.NewRateLimiter(rateLimits, log),
		Auth:        authService,
		Admin:       adminService,
		Metrics:     httpMetrics,
	}
	if a.pool != nil {
		deps.Database = a.pool
	}
	if a.redis != nil {
		deps.Cache = a.redis
	}
	a.engine = routes.Register(deps)

	return nil
}

// argon2Config falls back to library defaults when the section is absent.
func argon2Config(s config.Argon2Settings) security.Argon2Config {
	if s.Memory == 0 {
		return security.DefaultArgon2Config()
	}
	return security.Argon2Config{
		Memory:      s.Memory,
		Iterations:  s.Iterations,
		Parallelism: s.Parallelism,
		SaltLength:  s.SaltLength,
		KeyLength:   s.KeyLength,
	}
}

func (a *Application) recoveryLedger(pgRepos *postgresrepo.Repositories) (port.RecoveryLedger, error) {
	switch a.cfg.Recovery.Backend {
	case config.BackendRedis:
		if a.redis == nil {
			return nil, errors.New("recovery.backend redis requires redis.enabled")
		}
		return redisrepo.NewRecoveryLedger(a.redis.Client(), a.redis.KeyPrefix(), a.cfg.Recovery.AuditRetention), nil
	case config.BackendPostgres:
		if pgRepos == nil {
			return nil, errors.New("recovery.backend postgres requires store.backend postgres")
		}
		return pgRepos.Recovery, nil
	default:
		a.logger.Warn("using in-memory recovery ledger; codes are lost on restart")
		return memory.NewRecoveryLedger(), nil
	}
}

func (a *Application) tokenIssuers() (*security.TokenIssuer, *security.TokenIssuer, error) {
	secret := strings.TrimSpace(a.cfg.JWT.Secret)
	if secret == "" {
		// Validate only lets this through in development.
		secret = uuid.NewString() + uuid.NewString()
		a.logger.Warn("jwt.secret not set; using an ephemeral development secret")
	}
	adminSecret := strings.TrimSpace(a.cfg.JWT.AdminSecret)
	if adminSecret == "" {
		adminSecret = secret
	}

	authIssuer, err := security.NewTokenIssuer(security.TokenIssuerConfig{
		Context: domain.TokenContextAuth,
		Secret:  secret,
		TTL:     a.cfg.JWT.AuthTTL,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("init auth token issuer: %w", err)
	}
	adminIssuer, err := security.NewTokenIssuer(security.TokenIssuerConfig{
		Context: domain.TokenContextAdmin,
		Secret:  adminSecret,
		TTL:     a.cfg.JWT.AdminTTL,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("init admin token issuer: %w", err)
	}
	return authIssuer, adminIssuer, nil
}

func (a *Application) notifier() (port.NotificationSender, error) {
	var fallback port.NotificationSender
	if a.cfg.App.IsDevelopment() {
		fallback = notify.NewLogSender(a.logger, true)
	}
	router := notify.NewRouter(fallback)

	if a.cfg.Notify.Email.Enabled {
		sender, err := notify.NewEmailSender(a.cfg.Notify.Email)
		if err != nil {
			return nil, fmt.Errorf("init email sender: %w", err)
		}
		router.Register(domain.ChannelEmail, sender)
	}
	if a.cfg.Notify.WhatsApp.Enabled {
		sender, err := notify.NewWhatsAppSender(a.cfg.Notify.WhatsApp)
		if err != nil {
			return nil, fmt.Errorf("init whatsapp sender: %w", err)
		}
		router.Register(domain.ChannelWhatsApp, sender)
	}
	return router, nil
}

func (a *Application) eventPublisher() port.EventPublisher {
	if len(a.cfg.Kafka.Brokers) == 0 {
		a.logger.Info("kafka brokers not configured, using stub publisher")
		return kafkainfra.NewStubPublisher(a.logger)
	}

	producer, err := kafkainfra.NewProducer(a.cfg.Kafka, a.logger)
	if err != nil {
		a.logger.Warn("failed to init kafka producer, using stub publisher", zap.Error(err))
		return kafkainfra.NewStubPublisher(a.logger)
	}
	a.producer = producer
	a.logger.Info("kafka event publisher initialized", zap.Strings("brokers", a.cfg.Kafka.Brokers))
	return kafkainfra.NewEventPublisher(producer, a.cfg.App, a.logger)
}

// Handler exposes the configured engine.
func (a *Application) Handler() http.Handler {
	return a.engine
}

func (a *Application) Run(ctx context.Context) error {
	defer a.close()

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", a.cfg.App.Host, a.cfg.App.Port),
		Handler:           a.engine,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	a.logger.Info("starting auth API",
		zap.String("env", a.cfg.App.Env),
		zap.String("address", srv.Addr),
		zap.String("store", a.cfg.Store.Backend),
		zap.String("recovery_backend", a.cfg.Recovery.Backend),
	)

	serverErrCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrCh <- fmt.Errorf("run server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutting down auth API")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown server: %w", err)
		}
		return nil
	case err := <-serverErrCh:
		return err
	}
}

// close releases resources in reverse order of acquisition.
func (a *Application) close() {
	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.Warn("close kafka producer", zap.Error(err))
		}
	}
	if a.redis != nil {
		_ = a.redis.Close()
	}
	if a.pool != nil {
		a.pool.Close()
	}
	if err := a.tracer.Shutdown(context.Background()); err != nil {
		a.logger.Warn("shutdown tracer", zap.Error(err))
	}
	_ = a.logger.Sync()
}

func migrateUp(ctx context.Context, pool *pgxpool.Pool, log *zap.Logger) error {
	migrator, err := database.NewMigrator(pool, log)
	if err != nil {
		return fmt.Errorf("init migrator: %w", err)
	}
	defer func() { _ = migrator.Close() }()

	if err := migrator.Up(ctx); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

// Migrate runs a migration command ("up", "down" or "status") against the configured database.
func Migrate(ctx context.Context, cfg *config.AppConfig, command string) error {
	log, err := logger.New(cfg.App.Env)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	pool, err := database.NewPostgresPool(ctx, cfg.Postgres, log)
	if err != nil {
		return fmt.Errorf("init postgres: %w", err)
	}
	defer pool.Close()

	migrator, err := database.NewMigrator(pool, log)
	if err != nil {
		return fmt.Errorf("init migrator: %w", err)
	}
	defer func() { _ = migrator.Close() }()

	switch command {
	case "up":
		return migrator.Up(ctx)
	case "down":
		return migrator.Down(ctx)
	case "status":
		return migrator.Status(ctx)
	default:
		return fmt.Errorf("unknown migrate command %q", command)
	}
}
