package database

import (
	"fmt"

	"gorm.io/gorm"

	"collab-service/internal/domain"
)

// AutoMigrate creates or updates tables for all domain models.
func AutoMigrate(db *gorm.DB) error {
	models := []interface{}{
		&domain.ScheduledPost{},
		&domain.UserPresence{},
		&domain.Notification{},
	}

	if err := db.AutoMigrate(models...); err != nil {
		return fmt.Errorf("failed to run auto-migration: %w", err)
	}

	return nil
}
