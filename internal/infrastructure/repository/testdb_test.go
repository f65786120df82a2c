package repository

import (
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/nimbus-inc/nimbus/internal/infrastructure/persistence/models"
	"github.com/nimbus-inc/nimbus/internal/shared/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
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

	return database
}

func testLogger() logger.Interface {
	return logger.NewLogger()
}
