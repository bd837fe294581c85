package app

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/MiguelGP111/micampofresco/internal/core/domain"
	"github.com/MiguelGP111/micampofresco/internal/infra/config"
	"github.com/MiguelGP111/micampofresco/internal/infra/notify"
)

func memoryConfig() *config.AppConfig {
	cfg := &config.AppConfig{}
	cfg.App.Env = "development"
	cfg.App.CORSOrigins = []string{"*"}
	cfg.Store.Backend = config.BackendMemory
	cfg.Recovery.Backend = config.BackendMemory
	cfg.Recovery.CodeTTL = time.Hour
	cfg.Recovery.ExposeCode = true
	cfg.Password.Algorithm = "bcrypt"
	cfg.Password.BcryptCost = 4
	cfg.JWT.AuthTTL = time.Hour
	cfg.JWT.AdminTTL = 24 * time.Hour
	return cfg
}

func post(t *testing.T, h http.Handler, path string, body map[string]string) (int, map[string]any) {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var env map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return rec.Code, env
}

func TestNewWiresMemoryBackends(t *testing.T) {
	application, err := New(context.Background(), memoryConfig())
	require.NoError(t, err)
	t.Cleanup(application.close)

	h := application.Handler()

	status, _ := post(t, h, "/api/v1/auth/register", map[string]string{
		"name":       "Ana",
		"identifier": "ana@example.com",
		"password":   "secreto1",
	})
	require.Equal(t, http.StatusCreated, status)

	status, env := post(t, h, "/api/v1/auth/recover", map[string]string{"identifier": "ana@example.com"})
	require.Equal(t, http.StatusOK, status)
	data := env["data"].(map[string]any)
	code, ok := data["code"].(string)
	require.True(t, ok, "development config should echo the code")
	assert.Len(t, code, 6)

	status, _ = post(t, h, "/api/v1/auth/reset", map[string]string{
		"identifier":   "ana@example.com",
		"code":         code,
		"new_password": "nueva-clave",
	})
	require.Equal(t, http.StatusOK, status)

	status, env = post(t, h, "/api/v1/auth/login", map[string]string{"identifier": "ana@example.com", "password": "nueva-clave"})
	require.Equal(t, http.StatusOK, status)
	assert.NotEmpty(t, env["token"])
}

func TestNewRejectsRedisLedgerWithoutRedis(t *testing.T) {
	cfg := memoryConfig()
	cfg.Recovery.Backend = config.BackendRedis

	_, err := New(context.Background(), cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis")
}

func TestNotifierFallsBackToLogOnlyInDevelopment(t *testing.T) {
	n := domain.Notification{
		Channel:     domain.ChannelEmail,
		Destination: "ana@example.com",
		Code:        "048213",
		ExpiresAt:   time.Now().Add(time.Hour),
	}

	cfg := memoryConfig()
	dev := &Application{cfg: cfg, logger: zap.NewNop()}
	sender, err := dev.notifier()
	require.NoError(t, err)
	assert.NoError(t, sender.Send(context.Background(), n))

	prod := memoryConfig()
	prod.App.Env = "production"
	prod.Notify.WhatsApp = config.WhatsAppSettings{Enabled: true, AccountSID: "AC1", AuthToken: "t", From: "+1"}
	app := &Application{cfg: prod, logger: zap.NewNop()}
	sender, err = app.notifier()
	require.NoError(t, err)
	assert.ErrorIs(t, sender.Send(context.Background(), n), notify.ErrChannelUnavailable)
}
