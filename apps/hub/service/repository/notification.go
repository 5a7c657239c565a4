package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/salavathhari/devcollab/apps/hub/service/models"
)

type notificationRepository struct {
	db *gorm.DB
}

// NewNotificationRepository creates a notification repository instance.
func NewNotificationRepository(db *gorm.DB) NotificationRepository {
	return &notificationRepository{db: db}
}

func (nr *notificationRepository) Create(ctx context.Context, notification *models.Notification) error {
	return nr.db.WithContext(ctx).Create(notification).Error
}

func (nr *notificationRepository) ListUnread(
	ctx context.Context,
	recipientID string,
	limit int,
) ([]*models.Notification, error) {
	var notifications []*models.Notification
	query := nr.db.WithContext(ctx).
		Where("recipient_id = ? AND read = ?", recipientID, false).
		Order("id DESC")

	if limit > 0 {
		query = query.Limit(limit)
	}

	err := query.Find(&notifications).Error
	return notifications, err
}

type activityRepository struct {
	db *gorm.DB
}

// NewActivityRepository creates an activity log repository instance.
func NewActivityRepository(db *gorm.DB) ActivityRepository {
	return &activityRepository{db: db}
}

func (ar *activityRepository) Record(ctx context.Context, entry *models.ActivityLog) error {
	return ar.db.WithContext(ctx).Create(entry).Error
}
