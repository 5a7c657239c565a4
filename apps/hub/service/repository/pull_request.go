package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/salavathhari/devcollab/apps/hub/service"
	"github.com/salavathhari/devcollab/apps/hub/service/models"
)

type pullRequestRepository struct {
	db *gorm.DB
}

// NewPullRequestRepository creates a pull request repository instance.
func NewPullRequestRepository(db *gorm.DB) PullRequestRepository {
	return &pullRequestRepository{db: db}
}

func (pr *pullRequestRepository) GetByID(ctx context.Context, id string) (*models.PullRequest, error) {
	record := &models.PullRequest{}
	err := pr.db.WithContext(ctx).First(record, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, service.ErrPullRequestNotFound
	}
	if err != nil {
		return nil, err
	}
	return record, nil
}

func (pr *pullRequestRepository) Create(ctx context.Context, record *models.PullRequest) error {
	return pr.db.WithContext(ctx).Create(record).Error
}

func (pr *pullRequestRepository) Save(ctx context.Context, record *models.PullRequest) error {
	return pr.db.WithContext(ctx).Save(record).Error
}
