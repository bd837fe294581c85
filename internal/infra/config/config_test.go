package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.App.Env)
	assert.Equal(t, time.Hour, cfg.JWT.AuthTTL)
	assert.Equal(t, 24*time.Hour, cfg.JWT.AdminTTL)
	assert.Equal(t, time.Hour, cfg.Recovery.CodeTTL)
	assert.Equal(t, "bcrypt", cfg.Password.Algorithm)
	assert.Equal(t, 10, cfg.Password.BcryptCost)
	assert.Equal(t, 6, cfg.Password.MinLength)
	assert.False(t, cfg.Recovery.AllowDirectReset)
	assert.False(t, cfg.Recovery.ExposeCode)
	assert.False(t, cfg.Security.LoginTimingGuard)
	assert.Equal(t, BackendPostgres, cfg.Store.Backend)
	assert.Equal(t, BackendRedis, cfg.Recovery.Backend)
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	t.Setenv("MCF_JWT_SECRET", "s3cret")
	t.Setenv("MCF_RECOVERY_CODE_TTL", "30m")
	t.Setenv("MCF_STORE_BACKEND", "memory")
	t.Setenv("MCF_RECOVERY_BACKEND", "memory")
	t.Setenv("MCF_RECOVERY_ALLOW_DIRECT_RESET", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "s3cret", cfg.JWT.Secret)
	assert.Equal(t, 30*time.Minute, cfg.Recovery.CodeTTL)
	assert.Equal(t, BackendMemory, cfg.Store.Backend)
	assert.True(t, cfg.Recovery.AllowDirectReset)
}

func TestLoadUnprefixedSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "legacy-secret")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "legacy-secret", cfg.JWT.Secret)
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := []byte("app:\n  port: 9091\nrecovery:\n  code_ttl: 45m\n")
	require.NoError(t, os.WriteFile(path, content, 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9091, cfg.App.Port)
	assert.Equal(t, 45*time.Minute, cfg.Recovery.CodeTTL)
}

func TestValidateRejectsMissingSecretInProduction(t *testing.T) {
	t.Setenv("MCF_APP_ENV", "production")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "jwt.secret")
}

func TestValidateRequiresDeliveryChannelOutsideDevelopment(t *testing.T) {
	cfg := &AppConfig{
		App:      AppSettings{Env: "production"},
		JWT:      JWTSettings{Secret: "prod-secret"},
		Store:    StoreSettings{Backend: BackendMemory},
		Recovery: RecoverySettings{Backend: BackendMemory, CodeTTL: time.Hour},
		Password: PasswordSettings{Algorithm: "bcrypt"},
	}

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "notify.email or notify.whatsapp")

	cfg.Notify.WhatsApp.Enabled = true
	assert.NoError(t, cfg.Validate())

	cfg.Notify.WhatsApp.Enabled = false
	cfg.App.Env = "development"
	assert.NoError(t, cfg.Validate())
}

func TestValidateRejectsUnknownBackends(t *testing.T) {
	cfg := &AppConfig{
		App:      AppSettings{Env: "development"},
		Store:    StoreSettings{Backend: "mongo"},
		Recovery: RecoverySettings{Backend: "redis", CodeTTL: time.Hour},
		Password: PasswordSettings{Algorithm: "md5"},
	}

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store.backend")
	assert.Contains(t, err.Error(), "password.algorithm")
	assert.Contains(t, err.Error(), "redis.enabled")
}
