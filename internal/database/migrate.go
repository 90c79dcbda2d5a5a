package database

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/Pragadees15/sport-backend/pkg/models"
)

// AutoMigrate creates or updates the schema for all domain entities
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.User{},
		&models.Follow{},
		&models.UserBlock{},
		&models.UserReport{},
		&models.Post{},
		&models.PostLike{},
		&models.SavedPost{},
		&models.Comment{},
		&models.CommentLike{},
		&models.Conversation{},
		&models.Message{},
		&models.Notification{},
		&models.TokenAccount{},
		&models.TokenTransaction{},
	); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}
