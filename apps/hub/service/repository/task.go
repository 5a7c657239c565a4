package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/salavathhari/devcollab/apps/hub/service"
	"github.com/salavathhari/devcollab/apps/hub/service/models"
)

type taskRepository struct {
	db *gorm.DB
}

// NewTaskRepository creates a task repository instance.
func NewTaskRepository(db *gorm.DB) TaskRepository {
	return &taskRepository{db: db}
}

func (tr *taskRepository) GetByID(ctx context.Context, id string) (*models.Task, error) {
	task := &models.Task{}
	err := tr.db.WithContext(ctx).First(task, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, service.ErrTaskNotFound
	}
	if err != nil {
		return nil, err
	}
	return task, nil
}

func (tr *taskRepository) Create(ctx context.Context, task *models.Task) error {
	return tr.db.WithContext(ctx).Create(task).Error
}

func (tr *taskRepository) Save(ctx context.Context, task *models.Task) error {
	return tr.db.WithContext(ctx).Save(task).Error
}

func (tr *taskRepository) ListColumn(ctx context.Context, projectID, status string) ([]*models.Task, error) {
	var tasks []*models.Task
	err := tr.db.WithContext(ctx).
		Where("project_id = ? AND status = ?", projectID, status).
		Order("order_key ASC").
		Find(&tasks).Error
	return tasks, err
}

// Move transitions a task to a column position. The whole destination column
// is re-keyed inside one transaction so the resulting order is a
// server-computed total order: concurrent moves converge and no two tasks in
// a column ever share an order key.
func (tr *taskRepository) Move(
	ctx context.Context,
	taskID, toStatus string,
	toIndex int,
	policy MovePolicy,
) (*models.Task, error) {
	var moved *models.Task

	err := tr.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		task := &models.Task{}
		if err := tx.First(task, "id = ?", taskID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return service.ErrTaskNotFound
			}
			return err
		}

		if err := tr.checkMovePolicy(tx, task, toStatus, policy); err != nil {
			return err
		}

		// Destination column without the moving task, in current order.
		var column []*models.Task
		if err := tx.
			Where("project_id = ? AND status = ? AND id <> ?", task.ProjectID, toStatus, task.ID).
			Order("order_key ASC").
			Find(&column).Error; err != nil {
			return err
		}

		if toIndex < 0 {
			toIndex = 0
		}
		if toIndex > len(column) {
			toIndex = len(column)
		}

		task.Status = toStatus
		column = append(column[:toIndex], append([]*models.Task{task}, column[toIndex:]...)...)

		// Re-key the whole column sequentially.
		for i, t := range column {
			key := i + 1
			if t.OrderKey == key && t.ID != task.ID {
				continue
			}
			t.OrderKey = key
			if err := tx.Save(t).Error; err != nil {
				return fmt.Errorf("failed to re-key column: %w", err)
			}
		}

		moved = task
		return nil
	})
	if err != nil {
		return nil, err
	}

	return moved, nil
}

// checkMovePolicy enforces the per-call workflow toggles for entering the
// review and done columns.
func (tr *taskRepository) checkMovePolicy(
	tx *gorm.DB,
	task *models.Task,
	toStatus string,
	policy MovePolicy,
) error {
	switch toStatus {
	case models.TaskStatusReview:
		if policy.RequirePRForReview && task.PullRequestID == "" {
			return service.ErrTaskNeedsPR
		}
	case models.TaskStatusDone:
		if !policy.RequireMergedPRForDone {
			return nil
		}
		if task.PullRequestID == "" {
			return service.ErrTaskNeedsMerge
		}
		pr := &models.PullRequest{}
		if err := tx.First(pr, "id = ?", task.PullRequestID).Error; err != nil {
			return service.ErrTaskNeedsMerge
		}
		if pr.Status != models.PRStatusMerged {
			return service.ErrTaskNeedsMerge
		}
	}
	return nil
}
