package repository

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/salavathhari/devcollab/apps/hub/service/models"
)

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a user repository instance.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (ur *userRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	user := &models.User{}
	err := ur.db.WithContext(ctx).First(user, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return user, nil
}

// GetByEmails resolves the given addresses to known users. Addresses are
// matched case-insensitively; unknown addresses are silently dropped.
func (ur *userRepository) GetByEmails(ctx context.Context, emails []string) ([]*models.User, error) {
	if len(emails) == 0 {
		return nil, nil
	}

	lowered := make([]string, 0, len(emails))
	for _, e := range emails {
		lowered = append(lowered, strings.ToLower(e))
	}

	var users []*models.User
	err := ur.db.WithContext(ctx).
		Where("LOWER(email) IN ?", lowered).
		Find(&users).Error
	return users, err
}

func (ur *userRepository) Create(ctx context.Context, user *models.User) error {
	return ur.db.WithContext(ctx).Create(user).Error
}
