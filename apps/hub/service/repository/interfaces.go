// Package repository implements the durable collaborators the hub mutates
// canonical records through. The hub re-fetches records through these
// interfaces after every mutation; it never broadcasts in-memory state.
package repository

import (
	"context"

	"github.com/salavathhari/devcollab/apps/hub/service/models"
)

// ProjectRepository resolves projects and their membership. Membership is
// looked up against the durable record on every authorization check, never
// cached on the connection.
type ProjectRepository interface {
	GetByID(ctx context.Context, id string) (*models.Project, error)
	IsMember(ctx context.Context, projectID, userID string) (bool, error)
	MemberIDs(ctx context.Context, projectID string) ([]string, error)
	AddMember(ctx context.Context, member *models.ProjectMember) error
	Create(ctx context.Context, project *models.Project) error
}

// UserRepository resolves users for display relations and mention matching.
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmails(ctx context.Context, emails []string) ([]*models.User, error)
	Create(ctx context.Context, user *models.User) error
}

// MessageRepository persists chat messages for both the project room and
// scoped chat rooms.
type MessageRepository interface {
	Create(ctx context.Context, msg *models.ChatMessage) error
	GetByID(ctx context.Context, id string) (*models.ChatMessage, error)
	Save(ctx context.Context, msg *models.ChatMessage) error
	History(ctx context.Context, projectID, roomType, roomID string, limit int) ([]*models.ChatMessage, error)
}

// MovePolicy carries the per-call workflow toggles for task moves.
type MovePolicy struct {
	RequirePRForReview     bool
	RequireMergedPRForDone bool
}

// TaskRepository persists kanban tasks. Move performs the whole column
// transition transactionally: policy checks, removal from the source column
// and a full recompute of order keys in the destination insert window, so
// concurrent moves never leave duplicate order keys.
type TaskRepository interface {
	GetByID(ctx context.Context, id string) (*models.Task, error)
	Create(ctx context.Context, task *models.Task) error
	Save(ctx context.Context, task *models.Task) error
	Move(ctx context.Context, taskID, toStatus string, toIndex int, policy MovePolicy) (*models.Task, error)
	ListColumn(ctx context.Context, projectID, status string) ([]*models.Task, error)
}

// PullRequestRepository persists pull requests.
type PullRequestRepository interface {
	GetByID(ctx context.Context, id string) (*models.PullRequest, error)
	Create(ctx context.Context, pr *models.PullRequest) error
	Save(ctx context.Context, pr *models.PullRequest) error
}

// ReviewCommentRepository persists threaded inline review comments.
type ReviewCommentRepository interface {
	Create(ctx context.Context, comment *models.ReviewComment) error
	GetByID(ctx context.Context, id string) (*models.ReviewComment, error)
	Save(ctx context.Context, comment *models.ReviewComment) error
	ListByPullRequest(ctx context.Context, prID string) ([]*models.ReviewComment, error)
}

// NotificationRepository persists per-user notifications.
type NotificationRepository interface {
	Create(ctx context.Context, notification *models.Notification) error
	ListUnread(ctx context.Context, recipientID string, limit int) ([]*models.Notification, error)
}

// ActivityRepository appends audit entries for durable mutations.
type ActivityRepository interface {
	Record(ctx context.Context, entry *models.ActivityLog) error
}
