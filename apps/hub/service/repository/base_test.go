package repository_test

import (
	"context"
	"fmt"

	"github.com/stretchr/testify/suite"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/salavathhari/devcollab/apps/hub/service/repository"
)

// BaseSuite gives every repository suite a fresh in-memory database with the
// full schema migrated.
type BaseSuite struct {
	suite.Suite
	db  *gorm.DB
	ctx context.Context
}

func (s *BaseSuite) SetupTest() {
	s.ctx = context.Background()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", s.T().Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	s.Require().NoError(err)
	s.Require().NoError(repository.Migrate(db))
	s.db = db
}
