package migration

import (
	"github.com/nimbus-inc/nimbus/internal/infrastructure/persistence/models"
)

func AutoMigrateModels() []interface{} {
	return []interface{}{
		&models.CodeModel{},
		&models.CodeDeviceModel{},
		&models.TokenModel{},
		&models.UserModel{},
		&models.UserDeviceModel{},
		&models.RedemptionModel{},
	}
}
