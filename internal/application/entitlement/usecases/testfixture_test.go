package usecases

import (
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/nimbus-inc/nimbus/internal/domain/entitlement"
	"github.com/nimbus-inc/nimbus/internal/domain/user"
	"github.com/nimbus-inc/nimbus/internal/infrastructure/persistence/models"
	"github.com/nimbus-inc/nimbus/internal/infrastructure/repository"
	shareddb "github.com/nimbus-inc/nimbus/internal/shared/db"
	"github.com/nimbus-inc/nimbus/internal/shared/logger"
)

// ledgerFixture wires the use cases against an in-memory database with the
// real repositories, so tests exercise the same SQL paths as production.
type ledgerFixture struct {
	db             *gorm.DB
	txManager      *shareddb.TransactionManager
	directory      entitlement.Directory
	codeRepo       entitlement.CodeRepository
	codeDeviceRepo entitlement.CodeDeviceRepository
	tokenRepo      entitlement.TokenRepository
	userRepo       user.Repository
	userDeviceRepo user.DeviceRepository
	redemptionRepo user.RedemptionRepository
	reconciler     *DowngradeReconciler
	log            logger.Interface
}

func newLedgerFixture(t *testing.T) *ledgerFixture {
	t.Helper()

	database, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	err = database.AutoMigrate(
		&models.CodeModel{},
		&models.CodeDeviceModel{},
		&models.TokenModel{},
		&models.UserModel{},
		&models.UserDeviceModel{},
		&models.RedemptionModel{},
	)
	require.NoError(t, err)

	log := logger.NewLogger()
	userRepo := repository.NewUserRepository(database, log)
	userDeviceRepo := repository.NewUserDeviceRepository(database, log)

	return &ledgerFixture{
		db:             database,
		txManager:      shareddb.NewTransactionManager(database),
		directory:      repository.NewDirectory(database, log),
		codeRepo:       repository.NewCodeRepository(database, log),
		codeDeviceRepo: repository.NewCodeDeviceRepository(database, log),
		tokenRepo:      repository.NewTokenRepository(database, log),
		userRepo:       userRepo,
		userDeviceRepo: userDeviceRepo,
		redemptionRepo: repository.NewRedemptionRepository(database, log),
		reconciler:     NewDowngradeReconciler(userRepo, userDeviceRepo, log),
		log:            log,
	}
}

func (f *ledgerFixture) applyTokenUseCase() *ApplyTokenUseCase {
	return NewApplyTokenUseCase(f.directory, f.tokenRepo, f.userRepo, f.userDeviceRepo, f.txManager, 3, f.log)
}

func (f *ledgerFixture) claimDeviceUseCase() *ClaimDeviceUseCase {
	return NewClaimDeviceUseCase(f.directory, f.codeRepo, f.codeDeviceRepo, f.userRepo, f.userDeviceRepo, f.redemptionRepo, f.txManager, nil, 3, f.log)
}

func (f *ledgerFixture) releaseDeviceUseCase() *ReleaseDeviceUseCase {
	return NewReleaseDeviceUseCase(f.directory, f.codeRepo, f.codeDeviceRepo, f.userDeviceRepo, f.reconciler, f.txManager, nil, 3, f.log)
}

func (f *ledgerFixture) resetUserUseCase() *ResetUserUseCase {
	return NewResetUserUseCase(f.directory, f.codeRepo, f.codeDeviceRepo, f.userRepo, f.userDeviceRepo, f.redemptionRepo, f.txManager, nil, 3, f.log)
}

func (f *ledgerFixture) clearCodeUseCase(batchSize int) *ClearCodeUseCase {
	return NewClearCodeUseCase(f.directory, f.codeRepo, f.codeDeviceRepo, f.userDeviceRepo, f.reconciler, f.txManager, nil, batchSize, 3, f.log)
}

func (f *ledgerFixture) summaryUseCase() *GetCodeSummaryUseCase {
	return NewGetCodeSummaryUseCase(f.directory, nil, time.Second, f.log)
}

func (f *ledgerFixture) seedCode(t *testing.T, code string, maxDevices, validForDays int) *models.CodeModel {
	t.Helper()
	model := &models.CodeModel{
		Code:         code,
		PlanType:     "pro",
		MaxDevices:   maxDevices,
		ValidForDays: validForDays,
		Version:      1,
	}
	require.NoError(t, f.db.Create(model).Error)
	return model
}

func (f *ledgerFixture) seedToken(t *testing.T, token string, durationDays, maxDevices int) *models.TokenModel {
	t.Helper()
	model := &models.TokenModel{
		Token:        token,
		TokenType:    "plus",
		DurationDays: durationDays,
		MaxDevices:   maxDevices,
		IsActive:     true,
		Version:      1,
	}
	require.NoError(t, f.db.Create(model).Error)
	return model
}

func (f *ledgerFixture) codeRow(t *testing.T, code string) *models.CodeModel {
	t.Helper()
	var model models.CodeModel
	require.NoError(t, f.db.Where("code = ?", code).First(&model).Error)
	return &model
}

func (f *ledgerFixture) userRow(t *testing.T, uid string) *models.UserModel {
	t.Helper()
	var model models.UserModel
	require.NoError(t, f.db.Where("uid = ?", uid).First(&model).Error)
	return &model
}

func (f *ledgerFixture) userDeviceRow(t *testing.T, uid, deviceID string) *models.UserDeviceModel {
	t.Helper()
	var model models.UserDeviceModel
	require.NoError(t, f.db.Where("uid = ? AND device_id = ?", uid, deviceID).First(&model).Error)
	return &model
}
