package repository_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/salavathhari/devcollab/apps/hub/service"
	"github.com/salavathhari/devcollab/apps/hub/service/models"
	"github.com/salavathhari/devcollab/apps/hub/service/repository"
)

type TaskRepositorySuite struct {
	BaseSuite
	repo repository.TaskRepository
	prs  repository.PullRequestRepository
}

func TestTaskRepositorySuite(t *testing.T) {
	suite.Run(t, new(TaskRepositorySuite))
}

func (s *TaskRepositorySuite) SetupTest() {
	s.BaseSuite.SetupTest()
	s.repo = repository.NewTaskRepository(s.db)
	s.prs = repository.NewPullRequestRepository(s.db)
}

func (s *TaskRepositorySuite) seedColumn(projectID, status string, n int) []*models.Task {
	tasks := make([]*models.Task, 0, n)
	for i := range n {
		task := &models.Task{
			ProjectID: projectID,
			Title:     fmt.Sprintf("%s %d", status, i),
			Status:    status,
			OrderKey:  i + 1,
		}
		s.Require().NoError(s.repo.Create(s.ctx, task))
		tasks = append(tasks, task)
	}
	return tasks
}

func (s *TaskRepositorySuite) assertSequentialKeys(projectID, status string, wantLen int) []*models.Task {
	column, err := s.repo.ListColumn(s.ctx, projectID, status)
	s.Require().NoError(err)
	s.Require().Len(column, wantLen)
	for i, task := range column {
		s.Equal(i+1, task.OrderKey, "column position %d", i)
	}
	return column
}

func (s *TaskRepositorySuite) TestMoveIntoColumnReKeysSequentially() {
	s.seedColumn("p1", models.TaskStatusTodo, 3)
	backlog := s.seedColumn("p1", models.TaskStatusBacklog, 1)

	moved, err := s.repo.Move(s.ctx, backlog[0].GetID(), models.TaskStatusTodo, 1, repository.MovePolicy{})
	s.Require().NoError(err)
	s.Equal(models.TaskStatusTodo, moved.Status)
	s.Equal(2, moved.OrderKey)

	column := s.assertSequentialKeys("p1", models.TaskStatusTodo, 4)
	s.Equal(backlog[0].GetID(), column[1].GetID())
	s.assertSequentialKeys("p1", models.TaskStatusBacklog, 0)
}

func (s *TaskRepositorySuite) TestMoveClampsIndex() {
	s.seedColumn("p1", models.TaskStatusTodo, 2)
	backlog := s.seedColumn("p1", models.TaskStatusBacklog, 2)

	// Far past the end lands last.
	moved, err := s.repo.Move(s.ctx, backlog[0].GetID(), models.TaskStatusTodo, 50, repository.MovePolicy{})
	s.Require().NoError(err)
	s.Equal(3, moved.OrderKey)

	// Negative lands first.
	moved, err = s.repo.Move(s.ctx, backlog[1].GetID(), models.TaskStatusTodo, -3, repository.MovePolicy{})
	s.Require().NoError(err)
	s.Equal(1, moved.OrderKey)

	s.assertSequentialKeys("p1", models.TaskStatusTodo, 4)
}

func (s *TaskRepositorySuite) TestMoveWithinColumn() {
	tasks := s.seedColumn("p1", models.TaskStatusTodo, 4)

	// The last task moves to the top of its own column.
	moved, err := s.repo.Move(s.ctx, tasks[3].GetID(), models.TaskStatusTodo, 0, repository.MovePolicy{})
	s.Require().NoError(err)
	s.Equal(1, moved.OrderKey)

	column := s.assertSequentialKeys("p1", models.TaskStatusTodo, 4)
	s.Equal(tasks[3].GetID(), column[0].GetID())
	s.Equal(tasks[0].GetID(), column[1].GetID())
}

func (s *TaskRepositorySuite) TestReviewPolicyNeedsPR() {
	task := s.seedColumn("p1", models.TaskStatusInProgress, 1)[0]

	_, err := s.repo.Move(s.ctx, task.GetID(), models.TaskStatusReview, 0, repository.MovePolicy{RequirePRForReview: true})
	s.Require().ErrorIs(err, service.ErrTaskNeedsPR)

	// Without the toggle the move goes through.
	moved, err := s.repo.Move(s.ctx, task.GetID(), models.TaskStatusReview, 0, repository.MovePolicy{})
	s.Require().NoError(err)
	s.Equal(models.TaskStatusReview, moved.Status)
}

func (s *TaskRepositorySuite) TestDonePolicyNeedsMergedPR() {
	task := s.seedColumn("p1", models.TaskStatusReview, 1)[0]
	policy := repository.MovePolicy{RequireMergedPRForDone: true}

	_, err := s.repo.Move(s.ctx, task.GetID(), models.TaskStatusDone, 0, policy)
	s.Require().ErrorIs(err, service.ErrTaskNeedsMerge)

	pr := &models.PullRequest{ProjectID: "p1", Title: "fix", Status: models.PRStatusOpen}
	s.Require().NoError(s.prs.Create(s.ctx, pr))
	task.PullRequestID = pr.GetID()
	s.Require().NoError(s.repo.Save(s.ctx, task))

	_, err = s.repo.Move(s.ctx, task.GetID(), models.TaskStatusDone, 0, policy)
	s.Require().ErrorIs(err, service.ErrTaskNeedsMerge)

	pr.Status = models.PRStatusMerged
	s.Require().NoError(s.prs.Save(s.ctx, pr))

	moved, err := s.repo.Move(s.ctx, task.GetID(), models.TaskStatusDone, 0, policy)
	s.Require().NoError(err)
	s.Equal(models.TaskStatusDone, moved.Status)
}

func (s *TaskRepositorySuite) TestGetByIDUnknownReturnsNotFound() {
	_, err := s.repo.GetByID(s.ctx, "ghost")
	s.Require().ErrorIs(err, service.ErrTaskNotFound)

	_, err = s.repo.Move(s.ctx, "ghost", models.TaskStatusTodo, 0, repository.MovePolicy{})
	s.Require().ErrorIs(err, service.ErrTaskNotFound)
}
