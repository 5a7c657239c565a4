package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/salavathhari/devcollab/apps/hub/service"
	"github.com/salavathhari/devcollab/apps/hub/service/models"
)

type reviewCommentRepository struct {
	db *gorm.DB
}

// NewReviewCommentRepository creates a review comment repository instance.
func NewReviewCommentRepository(db *gorm.DB) ReviewCommentRepository {
	return &reviewCommentRepository{db: db}
}

func (rr *reviewCommentRepository) Create(ctx context.Context, comment *models.ReviewComment) error {
	return rr.db.WithContext(ctx).Create(comment).Error
}

func (rr *reviewCommentRepository) GetByID(ctx context.Context, id string) (*models.ReviewComment, error) {
	comment := &models.ReviewComment{}
	err := rr.db.WithContext(ctx).First(comment, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, service.ErrCommentNotFound
	}
	if err != nil {
		return nil, err
	}
	return comment, nil
}

func (rr *reviewCommentRepository) Save(ctx context.Context, comment *models.ReviewComment) error {
	return rr.db.WithContext(ctx).Save(comment).Error
}

// ListByPullRequest retrieves all comments on a PR, thread roots and replies,
// oldest first.
func (rr *reviewCommentRepository) ListByPullRequest(ctx context.Context, prID string) ([]*models.ReviewComment, error) {
	var comments []*models.ReviewComment
	err := rr.db.WithContext(ctx).
		Where("pull_request_id = ?", prID).
		Order("id ASC").
		Find(&comments).Error
	return comments, err
}
