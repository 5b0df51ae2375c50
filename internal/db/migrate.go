package db

import (
	"exasignal/internal/models"
)

func AutoMigrate(db *DB) error {
	if db == nil || db.Gorm == nil || db.SQL == nil {
		return nil
	}

	return db.Gorm.AutoMigrate(
		&models.Market{},
		&models.WalletRecord{},
		&models.ResearchCacheEntry{},
		&models.ProviderQuota{},
		&models.TriggerRequestCount{},
		&models.SignalRecord{},
		&models.AlertRecord{},
	)
}
