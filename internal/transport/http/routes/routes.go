package routes

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/MiguelGP111/micampofresco/internal/core/domain"
	"github.com/MiguelGP111/micampofresco/internal/infra/config"
	"github.com/MiguelGP111/micampofresco/internal/transport/http/handlers"
	"github.com/MiguelGP111/micampofresco/internal/transport/http/middleware"
	"github.com/MiguelGP111/micampofresco/internal/usecase"
)

// Dependencies encapsulates the objects required to register routes.
type Dependencies struct {
	Config      *config.AppConfig
	Logger      *zap.Logger
	RateLimiter *middleware.RateLimiter
	Auth        *usecase.AuthService
	Admin       *usecase.AdminService
	Metrics     *middleware.HTTPMetrics
	Database    DatabaseChecker
	Cache       CacheChecker
}

// DatabaseChecker exposes readiness behaviour for database connections.
type DatabaseChecker interface {
	Ping(ctx context.Context) error
}

// CacheChecker exposes readiness behaviour for cache backends.
type CacheChecker interface {
	HealthCheck(ctx context.Context) error
}

// Register configures the Gin engine with routes and middleware.
func Register(deps Dependencies) *gin.Engine {
	if deps.Config.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.Tracing(deps.Config.Telemetry.ServiceName))
	r.Use(middleware.EnrichContext())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(log))
	if deps.Metrics != nil {
		r.Use(deps.Metrics.Handler())
	}
	r.Use(middleware.CORS(deps.Config.App.CORSOrigins))

	healthOptions := make([]handlers.HealthOption, 0, 2)
	if deps.Database != nil {
		healthOptions = append(healthOptions, handlers.WithReadinessCheck("database", deps.Database.Ping))
	}
	if deps.Cache != nil {
		healthOptions = append(healthOptions, handlers.WithReadinessCheck("redis", deps.Cache.HealthCheck))
	}
	healthHandler := handlers.NewHealthHandler(healthOptions...)

	r.GET("/healthz", healthHandler.Status)
	r.GET("/readyz", healthHandler.Readiness)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	if deps.Auth == nil {
		return r
	}

	responder := handlers.NewErrorResponder(log, deps.Config.App.ExposeErrorDetails)
	exposeCode := deps.Config.Recovery.ExposeCode && deps.Config.App.IsDevelopment()
	if deps.Config.Recovery.ExposeCode && !exposeCode {
		log.Warn("recovery.expose_code ignored outside development", zap.String("env", deps.Config.App.Env))
	}
	authHandler := handlers.NewAuthHandler(deps.Auth, responder, handlers.WithCodeExposure(exposeCode))

	limits := newLimitChains(deps)

	api := r.Group("/api/v1")
	{
		authGroup := api.Group("/auth")
		authGroup.POST("/register", limits.chain(limits.register, authHandler.Register)...)
		authGroup.POST("/login", limits.chain(limits.login, authHandler.Login)...)
		authGroup.POST("/recover", limits.chain(limits.recover, authHandler.Recover)...)
		authGroup.POST("/reset", limits.chain(limits.reset, authHandler.Reset)...)
		authGroup.GET("/me", middleware.RequireAuth(deps.Auth), authHandler.Me)
		authGroup.POST("/logout", middleware.RequireAuth(deps.Auth), authHandler.Logout)

		if deps.Admin != nil {
			adminHandler := handlers.NewAdminHandler(deps.Admin, responder)
			adminGroup := api.Group("/admin")
			adminGroup.POST("/login", limits.chain(limits.login, adminHandler.Login)...)
			adminGroup.GET("/me",
				middleware.RequireAuth(deps.Admin),
				middleware.RequireRole(domain.RoleAdministrator),
				adminHandler.Me,
			)
		}
	}

	// Spanish aliases used by the first mobile client.
	legacy := r.Group("/auth")
	{
		legacy.POST("/registro", limits.chain(limits.register, authHandler.LegacyRegister)...)
		legacy.POST("/login", limits.chain(limits.login, authHandler.LegacyLogin)...)
		legacy.POST("/recuperar", limits.chain(limits.recover, authHandler.LegacyRecover)...)
		legacy.POST("/restablecer", limits.chain(limits.reset, authHandler.LegacyReset)...)
		legacy.POST("/logout", middleware.RequireAuth(deps.Auth), authHandler.Logout)
	}

	return r
}

type limitChains struct {
	login    gin.HandlerFunc
	register gin.HandlerFunc
	recover  gin.HandlerFunc
	reset    gin.HandlerFunc
}

func newLimitChains(deps Dependencies) limitChains {
	if deps.RateLimiter == nil {
		return limitChains{}
	}

	settings := deps.Config.RateLimit
	window := settings.WindowDuration
	if window <= 0 {
		window = time.Minute
	}

	build := func(name string, limit int) gin.HandlerFunc {
		if limit <= 0 {
			return nil
		}
		return deps.RateLimiter.RateLimit(middleware.RateLimitRule{
			Name:       name,
			Limit:      limit,
			Window:     window,
			Identifier: middleware.ClientIPIdentifier(),
		})
	}

	return limitChains{
		login:    build("auth_login_ip", settings.LoginMaxAttempts),
		register: build("auth_register_ip", settings.RegisterMaxAttempts),
		recover:  build("auth_recover_ip", settings.RecoveryMaxAttempts),
		reset:    build("auth_reset_ip", settings.RedeemMaxAttempts),
	}
}

func (limitChains) chain(limit gin.HandlerFunc, handler gin.HandlerFunc) []gin.HandlerFunc {
	if limit == nil {
		return []gin.HandlerFunc{handler}
	}
	return []gin.HandlerFunc{limit, handler}
}
