// Package models defines the canonical records the hub reads and writes
// through its repositories. Broadcast payloads are always built from freshly
// persisted instances of these types, never from in-memory copies.
package models

import (
	"slices"
	"time"

	"github.com/pitabwire/util"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// BaseModel carries the identity and lifecycle columns shared by all records.
// IDs are time-sortable strings.
type BaseModel struct {
	ID        string         `gorm:"type:varchar(50);primaryKey" json:"id"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// GetID returns the record's ID.
func (m *BaseModel) GetID() string { return m.ID }

// BeforeCreate assigns an ID when the caller did not supply one.
func (m *BaseModel) BeforeCreate(_ *gorm.DB) error {
	if m.ID == "" {
		m.ID = util.IDString()
	}
	return nil
}

// User is a platform account. The hub only reads users, to resolve mentions
// and display relations.
type User struct {
	BaseModel
	Email     string `gorm:"type:varchar(250);uniqueIndex" json:"email"`
	Name      string `gorm:"type:varchar(250)" json:"name"`
	AvatarURL string `gorm:"type:varchar(500)" json:"avatarUrl"`
}

// Project is the top-level collaboration scope.
type Project struct {
	BaseModel
	Name        string `gorm:"type:varchar(250)" json:"name"`
	Description string `json:"description"`
	OwnerID     string `gorm:"type:varchar(50);index" json:"ownerId"`
}

// ProjectMember records membership of a user in a project. Authorization for
// every inbound event resolves through this table.
type ProjectMember struct {
	BaseModel
	ProjectID string `gorm:"type:varchar(50);index:idx_member_project_user" json:"projectId"`
	UserID    string `gorm:"type:varchar(50);index:idx_member_project_user" json:"userId"`
	Role      string `gorm:"type:varchar(50)" json:"role"`
}

// ChatMessage is a message in the project room (RoomType/RoomID empty) or in
// a scoped chat room.
type ChatMessage struct {
	BaseModel
	ProjectID   string   `gorm:"type:varchar(50);index:idx_message_room" json:"projectId"`
	RoomType    string   `gorm:"type:varchar(50);index:idx_message_room" json:"roomType"`
	RoomID      string   `gorm:"type:varchar(50);index:idx_message_room" json:"roomId"`
	SenderID    string   `gorm:"type:varchar(50);index" json:"senderId"`
	Content     string   `json:"content"`
	ReplyToID   string   `gorm:"type:varchar(50)" json:"replyToId,omitempty"`
	Attachments []string `gorm:"serializer:json" json:"attachments,omitempty"`
	// Reactions maps emoji to the user ids that reacted with it.
	Reactions datatypes.JSONMap `json:"reactions,omitempty"`
	ReadBy    []string          `gorm:"serializer:json" json:"readBy,omitempty"`
}

// MarkReadBy appends userID to the read-by set. Returns false when the user
// had already acknowledged the message.
func (cm *ChatMessage) MarkReadBy(userID string) bool {
	if slices.Contains(cm.ReadBy, userID) {
		return false
	}
	cm.ReadBy = append(cm.ReadBy, userID)
	return true
}

// Task status columns on the kanban board.
const (
	TaskStatusBacklog    = "backlog"
	TaskStatusTodo       = "todo"
	TaskStatusInProgress = "in_progress"
	TaskStatusReview     = "review"
	TaskStatusDone       = "done"
)

// Task is a kanban card. OrderKey is a server-computed total order within the
// (ProjectID, Status) column; moves recompute the whole insert window so
// concurrent reorders converge.
type Task struct {
	BaseModel
	ProjectID     string   `gorm:"type:varchar(50);index:idx_task_column" json:"projectId"`
	Title         string   `gorm:"type:varchar(250)" json:"title"`
	Description   string   `json:"description"`
	Status        string   `gorm:"type:varchar(50);index:idx_task_column" json:"status"`
	OrderKey      int      `json:"orderKey"`
	Assignees     []string `gorm:"serializer:json" json:"assignees,omitempty"`
	PullRequestID string   `gorm:"type:varchar(50)" json:"pullRequestId,omitempty"`
}

// AddAssignee appends userID to the assignee set. Returns false when the user
// was already assigned.
func (t *Task) AddAssignee(userID string) bool {
	if slices.Contains(t.Assignees, userID) {
		return false
	}
	t.Assignees = append(t.Assignees, userID)
	return true
}

// PullRequest statuses reported through workflow events.
const (
	PRStatusOpen     = "open"
	PRStatusApproved = "approved"
	PRStatusMerged   = "merged"
	PRStatusBlocked  = "blocked"
	PRStatusClosed   = "closed"
)

// PullRequest is the review unit. The hub never re-derives PR business rules;
// lifecycle transitions arrive via trusted workflow reports.
type PullRequest struct {
	BaseModel
	ProjectID    string   `gorm:"type:varchar(50);index" json:"projectId"`
	Title        string   `gorm:"type:varchar(250)" json:"title"`
	AuthorID     string   `gorm:"type:varchar(50)" json:"authorId"`
	Status       string   `gorm:"type:varchar(50)" json:"status"`
	SourceBranch string   `gorm:"type:varchar(250)" json:"sourceBranch"`
	TargetBranch string   `gorm:"type:varchar(250)" json:"targetBranch"`
	Reviewers    []string `gorm:"serializer:json" json:"reviewers,omitempty"`
}

// ReviewComment is a threaded inline comment anchored at (FilePath,
// LineNumber). Resolution state lives on the thread root.
type ReviewComment struct {
	BaseModel
	PullRequestID string     `gorm:"type:varchar(50);index" json:"prId"`
	AuthorID      string     `gorm:"type:varchar(50)" json:"authorId"`
	FilePath      string     `gorm:"type:varchar(500)" json:"filePath"`
	LineNumber    int        `json:"lineNumber"`
	Content       string     `json:"content"`
	ParentID      string     `gorm:"type:varchar(50);index" json:"parentCommentId,omitempty"`
	Resolved      bool       `json:"resolved"`
	ResolvedBy    string     `gorm:"type:varchar(50)" json:"resolvedBy,omitempty"`
	ResolvedAt    *time.Time `json:"resolvedAt,omitempty"`
}

// Notification is a per-user durable event record, pushed to the recipient's
// private room on creation. The read flag is mutated by the recipient's own
// later action, not by the hub.
type Notification struct {
	BaseModel
	RecipientID string            `gorm:"type:varchar(50);index" json:"recipientId"`
	Type        string            `gorm:"type:varchar(50)" json:"type"`
	ProjectID   string            `gorm:"type:varchar(50)" json:"projectId"`
	Payload     datatypes.JSONMap `json:"payload,omitempty"`
	Read        bool              `json:"read"`
}

// ActivityLog is an append-only audit entry for durable mutations.
type ActivityLog struct {
	BaseModel
	ProjectID  string            `gorm:"type:varchar(50);index" json:"projectId"`
	ActorID    string            `gorm:"type:varchar(50)" json:"actorId"`
	Action     string            `gorm:"type:varchar(100)" json:"action"`
	TargetType string            `gorm:"type:varchar(50)" json:"targetType"`
	TargetID   string            `gorm:"type:varchar(50)" json:"targetId"`
	Detail     datatypes.JSONMap `json:"detail,omitempty"`
}

// MessageView is a ChatMessage with its display relations resolved for
// broadcast.
type MessageView struct {
	ChatMessage
	SenderName  string `json:"senderName"`
	SenderEmail string `json:"senderEmail"`
}

// NewMessageView resolves the broadcast shape of a persisted message.
func NewMessageView(msg *ChatMessage, sender *User) *MessageView {
	view := &MessageView{ChatMessage: *msg}
	if sender != nil {
		view.SenderName = sender.Name
		view.SenderEmail = sender.Email
	}
	return view
}

// CommentView is a ReviewComment with its author resolved for broadcast.
type CommentView struct {
	ReviewComment
	AuthorName string `json:"authorName"`
}

// NewCommentView resolves the broadcast shape of a persisted review comment.
func NewCommentView(comment *ReviewComment, author *User) *CommentView {
	view := &CommentView{ReviewComment: *comment}
	if author != nil {
		view.AuthorName = author.Name
	}
	return view
}
