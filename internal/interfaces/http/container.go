package http

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/nimbus-inc/nimbus/internal/application/entitlement/usecases"
	"github.com/nimbus-inc/nimbus/internal/domain/entitlement"
	"github.com/nimbus-inc/nimbus/internal/domain/user"
	"github.com/nimbus-inc/nimbus/internal/infrastructure/auth"
	"github.com/nimbus-inc/nimbus/internal/infrastructure/cache"
	"github.com/nimbus-inc/nimbus/internal/infrastructure/config"
	"github.com/nimbus-inc/nimbus/internal/infrastructure/ratelimit"
	"github.com/nimbus-inc/nimbus/internal/infrastructure/repository"
	"github.com/nimbus-inc/nimbus/internal/infrastructure/scheduler"
	"github.com/nimbus-inc/nimbus/internal/interfaces/http/handlers"
	adminHandlers "github.com/nimbus-inc/nimbus/internal/interfaces/http/handlers/admin"
	"github.com/nimbus-inc/nimbus/internal/interfaces/http/middleware"
	"github.com/nimbus-inc/nimbus/internal/shared/db"
	"github.com/nimbus-inc/nimbus/internal/shared/logger"
)

// Container wires repositories, use cases, handlers and background services
// together and owns their shutdown.
type Container struct {
	db    *gorm.DB
	cfg   *config.Config
	log   logger.Interface
	redis *redis.Client

	codeRepo       entitlement.CodeRepository
	codeDeviceRepo entitlement.CodeDeviceRepository
	tokenRepo      entitlement.TokenRepository
	directory      entitlement.Directory
	userRepo       user.Repository
	userDeviceRepo user.DeviceRepository
	redemptionRepo user.RedemptionRepository

	entitlementHandler *handlers.EntitlementHandler
	deviceHandler      *handlers.DeviceHandler
	adminHandler       *adminHandlers.AdminHandler

	adminAuthMiddleware *middleware.AdminAuthMiddleware
	rateLimiter         ratelimit.RateLimiter

	sweepScheduler *scheduler.DowngradeSweepScheduler
}

// NewContainer builds the full dependency graph. Redis is optional; with a
// nil client the summary cache and rate limiter are disabled.
func NewContainer(database *gorm.DB, cfg *config.Config, log logger.Interface, redisClient *redis.Client) *Container {
	c := &Container{
		db:    database,
		cfg:   cfg,
		log:   log,
		redis: redisClient,
	}

	txManager := db.NewTransactionManager(database)

	c.codeRepo = repository.NewCodeRepository(database, log)
	c.codeDeviceRepo = repository.NewCodeDeviceRepository(database, log)
	c.tokenRepo = repository.NewTokenRepository(database, log)
	c.directory = repository.NewDirectory(database, log)
	c.userRepo = repository.NewUserRepository(database, log)
	c.userDeviceRepo = repository.NewUserDeviceRepository(database, log)
	c.redemptionRepo = repository.NewRedemptionRepository(database, log)

	var summaryCache cache.SlotSummaryCache
	if redisClient != nil {
		summaryCache = cache.NewRedisSlotSummaryCache(redisClient, log)
		c.rateLimiter = ratelimit.NewRedisRateLimiter(redisClient)
	}
	var invalidator usecases.SummaryInvalidator
	if summaryCache != nil {
		invalidator = summaryCache
	}

	reconciler := usecases.NewDowngradeReconciler(c.userRepo, c.userDeviceRepo, log)

	maxRetries := cfg.Entitlement.TxMaxRetries
	applyTokenUC := usecases.NewApplyTokenUseCase(
		c.directory, c.tokenRepo, c.userRepo, c.userDeviceRepo, txManager, maxRetries, log)
	claimDeviceUC := usecases.NewClaimDeviceUseCase(
		c.directory, c.codeRepo, c.codeDeviceRepo, c.userRepo, c.userDeviceRepo,
		c.redemptionRepo, txManager, invalidator, maxRetries, log)
	releaseDeviceUC := usecases.NewReleaseDeviceUseCase(
		c.directory, c.codeRepo, c.codeDeviceRepo, c.userDeviceRepo, reconciler,
		txManager, invalidator, maxRetries, log)
	resetUserUC := usecases.NewResetUserUseCase(
		c.directory, c.codeRepo, c.codeDeviceRepo, c.userRepo, c.userDeviceRepo,
		c.redemptionRepo, txManager, invalidator, maxRetries, log)
	clearCodeUC := usecases.NewClearCodeUseCase(
		c.directory, c.codeRepo, c.codeDeviceRepo, c.userDeviceRepo, reconciler,
		txManager, invalidator, cfg.Entitlement.ClearBatchSize, maxRetries, log)
	summaryUC := usecases.NewGetCodeSummaryUseCase(
		c.directory, summaryCache,
		time.Duration(cfg.Entitlement.SummaryCacheTTLSeconds)*time.Second, log)
	registerDeviceUC := usecases.NewRegisterDeviceUseCase(c.userDeviceRepo, log)

	tokenService := auth.NewAdminTokenService(cfg.Auth.JWT.Secret, cfg.Auth.JWT.AccessExpMinutes)
	hasher := auth.NewCredentialHasher()

	c.entitlementHandler = handlers.NewEntitlementHandler(
		applyTokenUC, claimDeviceUC, releaseDeviceUC, summaryUC, log)
	c.deviceHandler = handlers.NewDeviceHandler(registerDeviceUC, log)
	c.adminHandler = adminHandlers.NewAdminHandler(
		resetUserUC, clearCodeUC, tokenService, hasher, cfg.Auth.Admin, log)

	c.adminAuthMiddleware = middleware.NewAdminAuthMiddleware(tokenService, log)

	sweepUC := usecases.NewSweepEntitlementsUseCase(c.userRepo, reconciler, log)
	c.sweepScheduler = scheduler.NewDowngradeSweepScheduler(
		sweepUC, log, time.Duration(cfg.Entitlement.SweepIntervalMinutes)*time.Minute)

	return c
}

// StartBackground launches the periodic sweep.
func (c *Container) StartBackground(ctx context.Context) {
	c.sweepScheduler.Start(ctx)
}

// Shutdown stops background services and closes shared clients.
func (c *Container) Shutdown() {
	c.sweepScheduler.Stop()

	if c.redis != nil {
		if err := c.redis.Close(); err != nil {
			c.log.Warnw("failed to close redis client", "error", err)
		}
	}
}
