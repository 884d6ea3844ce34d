package db

import (
	"stroomweg/internal/models"
)

func AutoMigrate(db *DB) error {
	if db == nil || db.Gorm == nil {
		return nil
	}
	return db.Gorm.AutoMigrate(
		&models.Site{},
		&models.SpeedReading{},
		&models.JourneyTimeReading{},
	)
}
