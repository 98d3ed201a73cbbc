//go:build wireinject
// +build wireinject

package app

import (
	"context"

	"github.com/google/wire"

	"github.com/hangarhq/flightgate/internal/config"
	"github.com/hangarhq/flightgate/internal/http/handler"
	"github.com/hangarhq/flightgate/internal/repository"
	"github.com/hangarhq/flightgate/internal/service"
)

func InitializeApp(ctx context.Context) (*App, func(), error) {
	wire.Build(
		config.Load,
		provideObservability,
		openDatabase,
		newRedisClient,
		repository.NewUserRepository,
		repository.NewAPIKeyRepository,
		repository.NewSchoolRepository,
		providePendingAuthStore,
		provideAbuseGuard,
		provideJWTManager,
		provideTokenService,
		provideAuthService,
		service.NewAPIKeyService,
		provideAuthorizer,
		handler.NewAuthHandler,
		handler.NewAPIKeyHandler,
		handler.NewSchoolHandler,
		provideRouter,
		provideServer,
		New,
	)
	return nil, nil, nil
}
