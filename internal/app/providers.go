package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/hangarhq/flightgate/internal/config"
	"github.com/hangarhq/flightgate/internal/domain"
	"github.com/hangarhq/flightgate/internal/http/handler"
	"github.com/hangarhq/flightgate/internal/http/router"
	"github.com/hangarhq/flightgate/internal/observability"
	"github.com/hangarhq/flightgate/internal/repository"
	"github.com/hangarhq/flightgate/internal/security"
	"github.com/hangarhq/flightgate/internal/service"
)

func provideObservability(ctx context.Context, cfg *config.Config) (*slog.Logger, *observability.Runtime, error) {
	logger, lp, err := observability.InitLogging(ctx, observability.LoggingConfig{
		Enabled:     cfg.OTELLogsEnabled,
		Endpoint:    cfg.OTELExporterOTLPEndpoint,
		Insecure:    cfg.OTELExporterOTLPInsecure,
		ServiceName: cfg.OTELServiceName,
		Environment: cfg.OTELEnvironment,
		Level:       cfg.LogLevel,
	})
	if err != nil {
		return nil, nil, err
	}
	mp, err := observability.InitMetrics(ctx, observability.MetricsConfig{
		Enabled:     cfg.OTELMetricsEnabled,
		Endpoint:    cfg.OTELExporterOTLPEndpoint,
		Insecure:    cfg.OTELExporterOTLPInsecure,
		ServiceName: cfg.OTELServiceName,
		Environment: cfg.OTELEnvironment,
	}, logger)
	if err != nil {
		return nil, nil, err
	}
	tp, err := observability.InitTracing(ctx, observability.TracingConfig{
		Enabled:     cfg.OTELTracesEnabled,
		Endpoint:    cfg.OTELExporterOTLPEndpoint,
		Insecure:    cfg.OTELExporterOTLPInsecure,
		ServiceName: cfg.OTELServiceName,
		Environment: cfg.OTELEnvironment,
	}, logger)
	if err != nil {
		return nil, nil, err
	}
	return logger, &observability.Runtime{MeterProvider: mp, TracerProvider: tp, LoggerProvider: lp}, nil
}

func openDatabase(cfg *config.Config, logger *slog.Logger) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DatabaseDSN), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.AutoMigrate(
		&domain.User{},
		&domain.School{},
		&domain.Student{},
		&domain.APIKey{},
	); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	logger.Info("database ready")
	return db, nil
}

// newRedisClient returns nil when no address is configured; the pending-auth
// store and abuse guard then fall back to their in-process implementations.
func newRedisClient(cfg *config.Config, logger *slog.Logger) redis.UniversalClient {
	if cfg.RedisAddr == "" {
		logger.Info("redis not configured, using in-process auth state")
		return nil
	}
	return redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
}

func providePendingAuthStore(client redis.UniversalClient) service.PendingAuthStore {
	if client == nil {
		return service.NewMemoryPendingAuthStore()
	}
	return service.NewRedisPendingAuthStore(client, "")
}

func provideAbuseGuard(cfg *config.Config, client redis.UniversalClient) service.AuthAbuseGuard {
	policy := service.AuthAbusePolicy{
		FreeAttempts: cfg.AbuseFreeAttempts,
		BaseDelay:    cfg.AbuseBaseDelay,
		Multiplier:   cfg.AbuseMultiplier,
		MaxDelay:     cfg.AbuseMaxDelay,
		ResetWindow:  cfg.AbuseResetWindow,
	}
	if client == nil {
		return service.NewMemoryAuthAbuseGuard(policy)
	}
	return service.NewRedisAuthAbuseGuard(client, "", policy)
}

func provideJWTManager(cfg *config.Config) *security.JWTManager {
	return security.NewJWTManager(cfg.JWTIssuer, cfg.JWTAudience, cfg.SessionSecret)
}

func provideTokenService(cfg *config.Config, jwtMgr *security.JWTManager) *service.TokenService {
	return service.NewTokenService(jwtMgr, cfg.SessionTTL, cfg.Production())
}

func provideAuthService(
	cfg *config.Config,
	users repository.UserRepository,
	tokens *service.TokenService,
	pending service.PendingAuthStore,
	guard service.AuthAbuseGuard,
	logger *slog.Logger,
) *service.AuthService {
	return service.NewAuthService(users, tokens, pending, guard, logger, cfg.PendingAuthTTL)
}

func provideRouter(
	cfg *config.Config,
	authHandler *handler.AuthHandler,
	apiKeyHandler *handler.APIKeyHandler,
	schoolHandler *handler.SchoolHandler,
	keys *service.APIKeyService,
	tokens *service.TokenService,
) http.Handler {
	return router.NewRouter(router.Dependencies{
		AuthHandler:              authHandler,
		APIKeyHandler:            apiKeyHandler,
		SchoolHandler:            schoolHandler,
		APIKeyAdmitter:           keys,
		SessionVerifier:          tokens,
		CSRFValidate:             tokens.ValidateCSRF,
		CSRFProtectedGETPrefixes: cfg.CSRFProtectedGETPrefixes,
		CSRFBypassPrefixes:       cfg.CSRFBypassPrefixes,
		EnableOTelHTTP:           cfg.OTELInstrumentHTTPHandler,
	})
}

func provideServer(cfg *config.Config, h http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}
}

func provideAuthorizer(schools repository.SchoolRepository) service.Authorizer {
	return service.NewAuthzService(schools)
}
