package models

import (
	"time"

	"github.com/nimbus-inc/nimbus/internal/shared/constants"
)

// CodeModel represents the database persistence model for entitlement codes.
// This is the anti-corruption layer between domain and database.
// Version backs the optimistic-concurrency check on the active-device counter.
type CodeModel struct {
	ID            uint   `gorm:"primarykey"`
	Code          string `gorm:"not null;size:64;uniqueIndex:idx_code"`
	LegacyCode    string `gorm:"size:64;index:idx_legacy_code"`
	PlanType      string `gorm:"not null;size:32"`
	MaxDevices    int    `gorm:"not null;default:0"`
	ValidForDays  int    `gorm:"not null;default:0"`
	ActiveDevices int    `gorm:"not null;default:0"`
	IsUsed        bool   `gorm:"not null;default:false"`
	ActivatedAt   *time.Time
	ExpiresAt     *time.Time `gorm:"index:idx_code_expires"`
	Version       int        `gorm:"not null;default:1"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// TableName specifies the table name for GORM
func (CodeModel) TableName() string {
	return constants.TableCodes
}
