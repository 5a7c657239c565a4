package repository

import (
	"gorm.io/gorm"

	"github.com/salavathhari/devcollab/apps/hub/service/models"
)

// Migrate creates or updates the schema for every model the hub persists.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Project{},
		&models.ProjectMember{},
		&models.ChatMessage{},
		&models.Task{},
		&models.PullRequest{},
		&models.ReviewComment{},
		&models.Notification{},
		&models.ActivityLog{},
	)
}
