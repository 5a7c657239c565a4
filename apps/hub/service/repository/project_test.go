package repository_test

import (
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/salavathhari/devcollab/apps/hub/service"
	"github.com/salavathhari/devcollab/apps/hub/service/models"
	"github.com/salavathhari/devcollab/apps/hub/service/repository"
)

type ProjectRepositorySuite struct {
	BaseSuite
	repo  repository.ProjectRepository
	users repository.UserRepository
}

func TestProjectRepositorySuite(t *testing.T) {
	suite.Run(t, new(ProjectRepositorySuite))
}

func (s *ProjectRepositorySuite) SetupTest() {
	s.BaseSuite.SetupTest()
	s.repo = repository.NewProjectRepository(s.db)
	s.users = repository.NewUserRepository(s.db)
}

func (s *ProjectRepositorySuite) TestOwnerCountsAsMember() {
	project := &models.Project{Name: "proj", OwnerID: "alice"}
	s.Require().NoError(s.repo.Create(s.ctx, project))

	ok, err := s.repo.IsMember(s.ctx, project.GetID(), "alice")
	s.Require().NoError(err)
	s.True(ok)

	ok, err = s.repo.IsMember(s.ctx, project.GetID(), "mallory")
	s.Require().NoError(err)
	s.False(ok)
}

func (s *ProjectRepositorySuite) TestMemberIDsIncludeOwnerOnce() {
	project := &models.Project{Name: "proj", OwnerID: "alice"}
	s.Require().NoError(s.repo.Create(s.ctx, project))
	s.Require().NoError(s.repo.AddMember(s.ctx, &models.ProjectMember{ProjectID: project.GetID(), UserID: "bob"}))
	// Owner also has an explicit membership row; must not appear twice.
	s.Require().NoError(s.repo.AddMember(s.ctx, &models.ProjectMember{ProjectID: project.GetID(), UserID: "alice"}))

	ids, err := s.repo.MemberIDs(s.ctx, project.GetID())
	s.Require().NoError(err)
	s.ElementsMatch([]string{"alice", "bob"}, ids)
}

func (s *ProjectRepositorySuite) TestUsersByEmailIsCaseInsensitive() {
	s.Require().NoError(s.users.Create(s.ctx, &models.User{Email: "Bob@Example.com", Name: "Bob"}))

	found, err := s.users.GetByEmails(s.ctx, []string{"bob@example.com"})
	s.Require().NoError(err)
	s.Require().Len(found, 1)
	s.Equal("Bob", found[0].Name)
}

func (s *ProjectRepositorySuite) TestGetByIDUnknownReturnsNotFound() {
	_, err := s.repo.GetByID(s.ctx, "ghost")
	s.Require().ErrorIs(err, service.ErrProjectNotFound)
}
