package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/salavathhari/devcollab/apps/hub/service"
	"github.com/salavathhari/devcollab/apps/hub/service/models"
)

type projectRepository struct {
	db *gorm.DB
}

// NewProjectRepository creates a project repository instance.
func NewProjectRepository(db *gorm.DB) ProjectRepository {
	return &projectRepository{db: db}
}

func (pr *projectRepository) GetByID(ctx context.Context, id string) (*models.Project, error) {
	project := &models.Project{}
	err := pr.db.WithContext(ctx).First(project, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, service.ErrProjectNotFound
	}
	if err != nil {
		return nil, err
	}
	return project, nil
}

func (pr *projectRepository) Create(ctx context.Context, project *models.Project) error {
	return pr.db.WithContext(ctx).Create(project).Error
}

// IsMember checks the durable membership record; the owner counts as a member.
func (pr *projectRepository) IsMember(ctx context.Context, projectID, userID string) (bool, error) {
	var count int64
	err := pr.db.WithContext(ctx).
		Model(&models.ProjectMember{}).
		Where("project_id = ? AND user_id = ?", projectID, userID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	if count > 0 {
		return true, nil
	}

	err = pr.db.WithContext(ctx).
		Model(&models.Project{}).
		Where("id = ? AND owner_id = ?", projectID, userID).
		Count(&count).Error
	return count > 0, err
}

func (pr *projectRepository) MemberIDs(ctx context.Context, projectID string) ([]string, error) {
	var ids []string
	err := pr.db.WithContext(ctx).
		Model(&models.ProjectMember{}).
		Where("project_id = ?", projectID).
		Pluck("user_id", &ids).Error
	if err != nil {
		return nil, err
	}

	var ownerID string
	err = pr.db.WithContext(ctx).
		Model(&models.Project{}).
		Where("id = ?", projectID).
		Limit(1).
		Pluck("owner_id", &ownerID).Error
	if err != nil {
		return nil, err
	}

	if ownerID != "" {
		found := false
		for _, id := range ids {
			if id == ownerID {
				found = true
				break
			}
		}
		if !found {
			ids = append(ids, ownerID)
		}
	}
	return ids, nil
}

func (pr *projectRepository) AddMember(ctx context.Context, member *models.ProjectMember) error {
	return pr.db.WithContext(ctx).Create(member).Error
}
