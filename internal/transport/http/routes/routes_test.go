package routes_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"golang.org/x/crypto/bcrypt"

	"github.com/MiguelGP111/micampofresco/internal/core/domain"
	"github.com/MiguelGP111/micampofresco/internal/infra/config"
	"github.com/MiguelGP111/micampofresco/internal/infra/security"
	"github.com/MiguelGP111/micampofresco/internal/repository/memory"
	"github.com/MiguelGP111/micampofresco/internal/transport/http/middleware"
	httproutes "github.com/MiguelGP111/micampofresco/internal/transport/http/routes"
	"github.com/MiguelGP111/micampofresco/internal/usecase"
)

type staticChecker struct{ err error }

func (s staticChecker) Ping(context.Context) error        { return s.err }
func (s staticChecker) HealthCheck(context.Context) error { return s.err }

type discardNotifier struct{}

func (discardNotifier) Send(context.Context, domain.Notification) error { return nil }

type discardEvents struct{}

func (discardEvents) PublishAccountRegistered(context.Context, domain.AccountRegisteredEvent) error {
	return nil
}

func (discardEvents) PublishPasswordChanged(context.Context, domain.PasswordChangedEvent) error {
	return nil
}

func (discardEvents) PublishRecoveryRequested(context.Context, domain.RecoveryRequestedEvent) error {
	return nil
}

func newEngine(t *testing.T, cfg *config.AppConfig) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log := zaptest.NewLogger(t)

	authIssuer, err := security.NewTokenIssuer(security.TokenIssuerConfig{Context: domain.TokenContextAuth, Secret: "routes-secret", TTL: time.Hour})
	if err != nil {
		t.Fatalf("auth issuer: %v", err)
	}
	adminIssuer, err := security.NewTokenIssuer(security.TokenIssuerConfig{Context: domain.TokenContextAdmin, Secret: "routes-admin", TTL: time.Hour})
	if err != nil {
		t.Fatalf("admin issuer: %v", err)
	}

	auth := usecase.NewAuthService(cfg, memory.NewAccountRepository(), memory.NewRecoveryLedger(),
		security.NewBcryptHasher(bcrypt.MinCost), security.DefaultPasswordPolicy(), authIssuer,
		discardNotifier{}, discardEvents{}, log)

	metrics, err := middleware.NewHTTPMetrics(middleware.HTTPMetricsOptions{Registerer: prometheus.NewRegistry()})
	if err != nil {
		t.Fatalf("metrics: %v", err)
	}

	return httproutes.Register(httproutes.Dependencies{
		Config:      cfg,
		Logger:      log,
		RateLimiter: middleware.NewRateLimiter(memory.NewRateLimitStore(), log),
		Auth:        auth,
		Admin:       usecase.NewAdminService(auth, adminIssuer),
		Metrics:     metrics,
		Database:    staticChecker{},
		Cache:       staticChecker{},
	})
}

func postJSON(t *testing.T, r http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHealthEndpoint(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := &config.AppConfig{App: config.AppSettings{Env: "test"}}

	r := httproutes.Register(httproutes.Dependencies{
		Config: cfg,
		Logger: zap.NewNop(),
	})
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/healthz", nil)

	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
}

func TestReadinessReportsFailingDependency(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := &config.AppConfig{App: config.AppSettings{Env: "test"}}

	r := httproutes.Register(httproutes.Dependencies{
		Config:   cfg,
		Logger:   zap.NewNop(),
		Database: staticChecker{},
		Cache:    staticChecker{err: errors.New("redis down")},
	})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected status 503, got %d", w.Code)
	}
}

func TestRoutesRegistered(t *testing.T) {
	cfg := &config.AppConfig{App: config.AppSettings{Env: "test"}}
	r := newEngine(t, cfg)

	expected := map[string]bool{
		"POST /api/v1/auth/register": false,
		"POST /api/v1/auth/login":    false,
		"POST /api/v1/auth/recover":  false,
		"POST /api/v1/auth/reset":    false,
		"GET /api/v1/auth/me":        false,
		"POST /api/v1/auth/logout":   false,
		"POST /api/v1/admin/login":   false,
		"GET /api/v1/admin/me":       false,
		"POST /auth/registro":        false,
		"POST /auth/login":           false,
		"POST /auth/recuperar":       false,
		"POST /auth/restablecer":     false,
		"POST /auth/logout":          false,
		"GET /metrics":               false,
		"GET /readyz":                false,
	}
	for _, route := range r.Routes() {
		key := route.Method + " " + route.Path
		if _, ok := expected[key]; ok {
			expected[key] = true
		}
	}
	for key, found := range expected {
		if !found {
			t.Errorf("route %s not registered", key)
		}
	}
}

func TestLoginRateLimitedPerIP(t *testing.T) {
	cfg := &config.AppConfig{App: config.AppSettings{Env: "test"}}
	cfg.RateLimit.LoginMaxAttempts = 2
	cfg.RateLimit.WindowDuration = time.Minute
	r := newEngine(t, cfg)

	body := map[string]string{"identifier": "ana@example.com", "password": "secreto1"}
	for i := 0; i < 2; i++ {
		if w := postJSON(t, r, "/api/v1/auth/login", body); w.Code != http.StatusUnauthorized {
			t.Fatalf("attempt %d: expected 401, got %d", i+1, w.Code)
		}
	}

	w := postJSON(t, r, "/api/v1/auth/login", body)
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", w.Code)
	}
	if w.Header().Get("Retry-After") == "" {
		t.Fatal("expected Retry-After header")
	}
}

func TestAdminMeRequiresAdminToken(t *testing.T) {
	cfg := &config.AppConfig{App: config.AppSettings{Env: "test"}}
	r := newEngine(t, cfg)

	w := postJSON(t, r, "/api/v1/auth/register", map[string]string{
		"name": "Ana", "identifier": "ana@example.com", "password": "secreto1",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("register: expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var env struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/me", nil)
	req.Header.Set("Authorization", "Bearer "+env.Token)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected user token to be rejected on admin route, got %d", rec.Code)
	}
}
