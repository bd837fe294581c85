package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const envPrefix = "MCF"

// Backend names accepted by store.backend and recovery.backend.
const (
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
	BackendMemory   = "memory"
)

type AppConfig struct {
	App       AppSettings       `mapstructure:"app"`
	Postgres  PostgresSettings  `mapstructure:"postgres"`
	Redis     RedisSettings     `mapstructure:"redis"`
	Kafka     KafkaSettings     `mapstructure:"kafka"`
	JWT       JWTSettings       `mapstructure:"jwt"`
	Password  PasswordSettings  `mapstructure:"password"`
	Argon2    Argon2Settings    `mapstructure:"argon2"`
	Recovery  RecoverySettings  `mapstructure:"recovery"`
	Store     StoreSettings     `mapstructure:"store"`
	Security  SecuritySettings  `mapstructure:"security"`
	Telemetry TelemetrySettings `mapstructure:"telemetry"`
	RateLimit RateLimitSettings `mapstructure:"rate_limit"`
	Notify    NotifySettings    `mapstructure:"notify"`
}

type AppSettings struct {
	Name string `mapstructure:"name"`
	Env  string `mapstructure:"env"`
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	// ExposeErrorDetails includes raw infrastructure error text in responses.
	ExposeErrorDetails bool `mapstructure:"expose_error_details"`
	// CORSOrigins lists allowed browser origins; "*" allows any.
	CORSOrigins []string `mapstructure:"cors_origins"`
}

// IsDevelopment reports whether the service runs in the development environment.
func (a AppSettings) IsDevelopment() bool {
	return a.Env == "development"
}

type PostgresSettings struct {
	Host              string        `mapstructure:"host"`
	Port              int           `mapstructure:"port"`
	User              string        `mapstructure:"user"`
	Password          string        `mapstructure:"password"`
	Database          string        `mapstructure:"database"`
	SSLMode           string        `mapstructure:"ssl_mode"`
	MaxConns          int32         `mapstructure:"max_conns"`
	MinConns          int32         `mapstructure:"min_conns"`
	MaxConnLifetime   time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime   time.Duration `mapstructure:"max_conn_idle_time"`
	HealthCheckPeriod time.Duration `mapstructure:"health_check_period"`
	AutoMigrate       bool          `mapstructure:"auto_migrate"`
	ConnectRetries    uint64        `mapstructure:"connect_retries"`
}

// DSN renders the settings as a postgres connection URL.
func (p PostgresSettings) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		p.User,
		p.Password,
		p.Host,
		p.Port,
		p.Database,
		p.SSLMode,
	)
}

// RedisSettings configures Redis connection and TLS
type RedisSettings struct {
	Enabled    bool   `mapstructure:"enabled"`
	Host       string `mapstructure:"host"`
	Port       int    `mapstructure:"port"`
	DB         int    `mapstructure:"db"`
	Password   string `mapstructure:"password"`
	TLSEnabled bool   `mapstructure:"tls_enabled"`
	KeyPrefix  string `mapstructure:"key_prefix"`
}

// KafkaSettings configures Kafka producer
type KafkaSettings struct {
	Brokers     []string `mapstructure:"brokers"`
	TopicPrefix string   `mapstructure:"topic_prefix"`
	Async       bool     `mapstructure:"async"`
}

// JWTSettings configures the shared-secret token issuers.
type JWTSettings struct {
	Secret      string        `mapstructure:"secret"`
	AdminSecret string        `mapstructure:"admin_secret"`
	AuthTTL     time.Duration `mapstructure:"auth_ttl"`
	AdminTTL    time.Duration `mapstructure:"admin_ttl"`
}

// PasswordSettings selects the hashing algorithm and the password policy.
type PasswordSettings struct {
	Algorithm   string `mapstructure:"algorithm"`
	BcryptCost  int    `mapstructure:"bcrypt_cost"`
	MinLength   int    `mapstructure:"min_length"`
	MinStrength int    `mapstructure:"min_strength"`
}

// Argon2Settings configures Argon2id password hashing parameters
type Argon2Settings struct {
	Memory      uint32 `mapstructure:"memory"`
	Iterations  uint32 `mapstructure:"iterations"`
	Parallelism uint8  `mapstructure:"parallelism"`
	SaltLength  uint32 `mapstructure:"salt_length"`
	KeyLength   uint32 `mapstructure:"key_length"`
}

// RecoverySettings configures recovery code issuance.
type RecoverySettings struct {
	Backend          string        `mapstructure:"backend"`
	CodeTTL          time.Duration `mapstructure:"code_ttl"`
	AuditRetention   time.Duration `mapstructure:"audit_retention"`
	AllowDirectReset bool          `mapstructure:"allow_direct_reset"`
	// ExposeCode echoes issued codes in responses; honored only in development.
	ExposeCode bool `mapstructure:"expose_code"`
}

type StoreSettings struct {
	Backend string `mapstructure:"backend"`
}

type SecuritySettings struct {
	LoginTimingGuard bool `mapstructure:"login_timing_guard"`
}

type TelemetrySettings struct {
	TracingEnabled bool    `mapstructure:"tracing_enabled"`
	OTLPEndpoint   string  `mapstructure:"otlp_endpoint"`
	ServiceName    string  `mapstructure:"service_name"`
	SamplingRate   float64 `mapstructure:"sampling_rate"`
}

// RateLimitSettings configures rate limiting windows and max attempts per endpoint
type RateLimitSettings struct {
	WindowDuration      time.Duration `mapstructure:"window_duration"`
	LoginMaxAttempts    int           `mapstructure:"login_max_attempts"`
	RegisterMaxAttempts int           `mapstructure:"register_max_attempts"`
	RecoveryMaxAttempts int           `mapstructure:"recovery_max_attempts"`
	RedeemMaxAttempts   int           `mapstructure:"redeem_max_attempts"`
}

// NotifySettings configures recovery code delivery channels.
type NotifySettings struct {
	Email    EmailSettings    `mapstructure:"email"`
	WhatsApp WhatsAppSettings `mapstructure:"whatsapp"`
}

type EmailSettings struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
}

type WhatsAppSettings struct {
	Enabled    bool          `mapstructure:"enabled"`
	AccountSID string        `mapstructure:"account_sid"`
	AuthToken  string        `mapstructure:"auth_token"`
	From       string        `mapstructure:"from"`
	APIBaseURL string        `mapstructure:"api_base_url"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

// Load reads configuration from defaults, an optional config file and the environment.
func Load(configFile ...string) (*AppConfig, error) {
	v := viper.New()

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetEnvPrefix(envPrefix)

	setDefaults(v)

	if len(configFile) > 0 && strings.TrimSpace(configFile[0]) != "" {
		v.SetConfigFile(configFile[0])
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	if err := bindEnvs(v, []string{
		"app.name",
		"app.env",
		"app.host",
		"app.port",
		"app.expose_error_details",
		"app.cors_origins",
		"postgres.host",
		"postgres.port",
		"postgres.user",
		"postgres.password",
		"postgres.database",
		"postgres.ssl_mode",
		"postgres.max_conns",
		"postgres.min_conns",
		"postgres.max_conn_lifetime",
		"postgres.max_conn_idle_time",
		"postgres.health_check_period",
		"postgres.auto_migrate",
		"postgres.connect_retries",
		"redis.enabled",
		"redis.host",
		"redis.port",
		"redis.db",
		"redis.password",
		"redis.tls_enabled",
		"redis.key_prefix",
		"kafka.brokers",
		"kafka.topic_prefix",
		"kafka.async",
		"jwt.secret",
		"jwt.admin_secret",
		"jwt.auth_ttl",
		"jwt.admin_ttl",
		"password.algorithm",
		"password.bcrypt_cost",
		"password.min_length",
		"password.min_strength",
		"argon2.memory",
		"argon2.iterations",
		"argon2.parallelism",
		"argon2.salt_length",
		"argon2.key_length",
		"recovery.backend",
		"recovery.code_ttl",
		"recovery.audit_retention",
		"recovery.allow_direct_reset",
		"recovery.expose_code",
		"store.backend",
		"security.login_timing_guard",
		"telemetry.tracing_enabled",
		"telemetry.otlp_endpoint",
		"telemetry.service_name",
		"telemetry.sampling_rate",
		"rate_limit.window_duration",
		"rate_limit.login_max_attempts",
		"rate_limit.register_max_attempts",
		"rate_limit.recovery_max_attempts",
		"rate_limit.redeem_max_attempts",
		"notify.email.enabled",
		"notify.email.host",
		"notify.email.port",
		"notify.email.username",
		"notify.email.password",
		"notify.email.from",
		"notify.whatsapp.enabled",
		"notify.whatsapp.account_sid",
		"notify.whatsapp.auth_token",
		"notify.whatsapp.from",
		"notify.whatsapp.api_base_url",
		"notify.whatsapp.timeout",
	}); err != nil {
		return nil, err
	}

	v.AutomaticEnv()

	var cfg AppConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate rejects configurations the service cannot run with.
func (c *AppConfig) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}

	var errs []error

	if strings.TrimSpace(c.JWT.Secret) == "" && !c.App.IsDevelopment() {
		errs = append(errs, errors.New("jwt.secret is required outside development"))
	}

	switch c.Store.Backend {
	case BackendPostgres, BackendMemory:
	default:
		errs = append(errs, fmt.Errorf("store.backend %q is not supported", c.Store.Backend))
	}

	switch c.Recovery.Backend {
	case BackendPostgres, BackendRedis, BackendMemory:
	default:
		errs = append(errs, fmt.Errorf("recovery.backend %q is not supported", c.Recovery.Backend))
	}

	if c.Recovery.Backend == BackendRedis && !c.Redis.Enabled {
		errs = append(errs, errors.New("recovery.backend redis requires redis.enabled"))
	}
	if c.Recovery.Backend == BackendPostgres && c.Store.Backend != BackendPostgres {
		errs = append(errs, errors.New("recovery.backend postgres requires store.backend postgres"))
	}

	switch strings.ToLower(c.Password.Algorithm) {
	case "bcrypt", "argon2id":
	default:
		errs = append(errs, fmt.Errorf("password.algorithm %q is not supported", c.Password.Algorithm))
	}

	if c.Recovery.CodeTTL <= 0 {
		errs = append(errs, errors.New("recovery.code_ttl must be positive"))
	}

	if !c.App.IsDevelopment() && !c.Notify.Email.Enabled && !c.Notify.WhatsApp.Enabled {
		errs = append(errs, errors.New("notify.email or notify.whatsapp must be enabled outside development"))
	}

	return errors.Join(errs...)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "micampofresco-auth")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.host", "0.0.0.0")
	v.SetDefault("app.port", 8080)
	v.SetDefault("app.expose_error_details", false)
	v.SetDefault("app.cors_origins", []string{"*"})

	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", 5432)
	v.SetDefault("postgres.user", "micampofresco")
	v.SetDefault("postgres.password", "micampofresco")
	v.SetDefault("postgres.database", "micampofresco")
	v.SetDefault("postgres.ssl_mode", "disable")
	v.SetDefault("postgres.max_conns", 10)
	v.SetDefault("postgres.min_conns", 2)
	v.SetDefault("postgres.max_conn_lifetime", "60m")
	v.SetDefault("postgres.max_conn_idle_time", "15m")
	v.SetDefault("postgres.health_check_period", "30s")
	v.SetDefault("postgres.auto_migrate", true)
	v.SetDefault("postgres.connect_retries", 5)

	v.SetDefault("redis.enabled", true)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.tls_enabled", false)
	v.SetDefault("redis.key_prefix", "mcf")

	v.SetDefault("kafka.brokers", []string{})
	v.SetDefault("kafka.topic_prefix", "micampofresco")
	v.SetDefault("kafka.async", true)

	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.admin_secret", "")
	v.SetDefault("jwt.auth_ttl", "1h")
	v.SetDefault("jwt.admin_ttl", "24h")

	v.SetDefault("password.algorithm", "bcrypt")
	v.SetDefault("password.bcrypt_cost", 10)
	v.SetDefault("password.min_length", 6)
	v.SetDefault("password.min_strength", 0)

	v.SetDefault("argon2.memory", 65536) // 64 MB
	v.SetDefault("argon2.iterations", 3)
	v.SetDefault("argon2.parallelism", 4)
	v.SetDefault("argon2.salt_length", 16)
	v.SetDefault("argon2.key_length", 32)

	v.SetDefault("recovery.backend", BackendRedis)
	v.SetDefault("recovery.code_ttl", "1h")
	v.SetDefault("recovery.audit_retention", "24h")
	v.SetDefault("recovery.allow_direct_reset", false)
	v.SetDefault("recovery.expose_code", false)

	v.SetDefault("store.backend", BackendPostgres)

	v.SetDefault("security.login_timing_guard", false)

	v.SetDefault("telemetry.tracing_enabled", false)
	v.SetDefault("telemetry.otlp_endpoint", "localhost:4318")
	v.SetDefault("telemetry.service_name", "micampofresco-auth")
	v.SetDefault("telemetry.sampling_rate", 1.0)

	v.SetDefault("rate_limit.window_duration", "1m")
	v.SetDefault("rate_limit.login_max_attempts", 5)
	v.SetDefault("rate_limit.register_max_attempts", 3)
	v.SetDefault("rate_limit.recovery_max_attempts", 3)
	v.SetDefault("rate_limit.redeem_max_attempts", 5)

	v.SetDefault("notify.email.enabled", false)
	v.SetDefault("notify.email.port", 587)
	v.SetDefault("notify.whatsapp.enabled", false)
	v.SetDefault("notify.whatsapp.api_base_url", "https://api.twilio.com/2010-04-01")
	v.SetDefault("notify.whatsapp.timeout", "10s")
}

func bindEnvs(v *viper.Viper, keys []string) error {
	for _, key := range keys {
		envKey := strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, envPrefix+"_"+envKey, envKey); err != nil {
			return fmt.Errorf("bind env for %s: %w", key, err)
		}
	}
	return nil
}
