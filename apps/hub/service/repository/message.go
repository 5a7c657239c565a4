package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/salavathhari/devcollab/apps/hub/service"
	"github.com/salavathhari/devcollab/apps/hub/service/models"
)

type messageRepository struct {
	db *gorm.DB
}

// NewMessageRepository creates a chat message repository instance.
func NewMessageRepository(db *gorm.DB) MessageRepository {
	return &messageRepository{db: db}
}

func (mr *messageRepository) Create(ctx context.Context, msg *models.ChatMessage) error {
	return mr.db.WithContext(ctx).Create(msg).Error
}

func (mr *messageRepository) GetByID(ctx context.Context, id string) (*models.ChatMessage, error) {
	msg := &models.ChatMessage{}
	err := mr.db.WithContext(ctx).First(msg, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, service.ErrMessageNotFound
	}
	if err != nil {
		return nil, err
	}
	return msg, nil
}

func (mr *messageRepository) Save(ctx context.Context, msg *models.ChatMessage) error {
	return mr.db.WithContext(ctx).Save(msg).Error
}

// History retrieves the most recent messages for a room, newest first.
// RoomType and roomID are empty for the project-wide room.
func (mr *messageRepository) History(
	ctx context.Context,
	projectID, roomType, roomID string,
	limit int,
) ([]*models.ChatMessage, error) {
	var messages []*models.ChatMessage
	query := mr.db.WithContext(ctx).
		Where("project_id = ? AND room_type = ? AND room_id = ?", projectID, roomType, roomID).
		Order("id DESC")

	if limit > 0 {
		query = query.Limit(limit)
	}

	err := query.Find(&messages).Error
	return messages, err
}
