package main

import (
	"context"

	"go.uber.org/zap"

	"github.com/t7170868-beep/cyberprobes-sub000/internal/api"
	"github.com/t7170868-beep/cyberprobes-sub000/internal/controller"
	"github.com/t7170868-beep/cyberprobes-sub000/internal/migrations"
	"github.com/t7170868-beep/cyberprobes-sub000/internal/service"
	"github.com/t7170868-beep/cyberprobes-sub000/internal/storage/postgres"
	redisstorage "github.com/t7170868-beep/cyberprobes-sub000/internal/storage/redis"
	"github.com/t7170868-beep/cyberprobes-sub000/internal/util"

	_ "github.com/lib/pq"
)

func main() {
	ctx := context.Background()
	logger := util.NewZapLogger()

	db, dbCleanup, err := util.NewDBConnection(logger)
	if err != nil {
		logger.Fatal(zap.Error(err))
	}
	if err := migrations.RunMigrations(db, logger, "./internal/migrations"); err != nil {
		logger.Fatal(zap.Error(err))
	}

	redisClient, redisCleanup, err := util.NewRedisClient(logger, util.NewRedisConfig())
	if err != nil {
		logger.Fatal(zap.Error(err))
	}
	cleanupFuncs := []func(){dbCleanup, redisCleanup}

	apiKeyService := service.NewAPIKeyService(redisstorage.NewGatewayKeyStore(redisClient), logger)
	if err := apiKeyService.SyncAPIKey(ctx); err != nil {
		logger.Fatal(zap.Error(err))
	}

	signingCfg := util.NewSigningConfig()
	signedURLService, err := service.NewSignedURLService(signingCfg)
	if err != nil {
		logger.Fatal(zap.Error(err))
	}
	capabilityService, err := service.NewCapabilityService(signingCfg)
	if err != nil {
		logger.Fatal(zap.Error(err))
	}

	storage := postgres.NewStorage(db)
	blacklist := redisstorage.NewTokenBlacklist(redisClient)

	tokenService := service.NewSessionTokenService(util.NewTokenConfig(), blacklist)
	limiter := service.NewAttemptLimiter(util.NewRateLimiterConfig())
	webhookService := service.NewWebhookService(logger, util.GetSecurityWebhookURL())

	authService := service.NewAuthService(tokenService, limiter, storage, webhookService, logger)
	contentService := service.NewContentService(signedURLService, capabilityService, storage, webhookService, logger)

	controller := controller.NewController(logger, authService, contentService)

	apiServer := api.NewAPI(controller, tokenService, apiKeyService, util.NewThrottleConfig(), util.NewServerConfig(), logger, cleanupFuncs)
	apiServer.Run(ctx)
}
