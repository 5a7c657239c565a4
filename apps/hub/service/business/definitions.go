package business

import "encoding/json"

// Inbound event names (client -> hub).
const (
	EvtJoinRoom          = "join_room"
	EvtLeaveRoom         = "leave_room"
	EvtTyping            = "typing"
	EvtStopTyping        = "stop_typing"
	EvtSendMessage       = "send_message"
	EvtMessageReaction   = "message_reaction"
	EvtMessageRead       = "message_read"
	EvtChatJoinRoom      = "chat:join_room"
	EvtChatLeaveRoom     = "chat:leave_room"
	EvtChatSendMessage   = "chat:send_message"
	EvtChatTyping        = "chat:typing"
	EvtChatStopTyping    = "chat:stop_typing"
	EvtChatMarkRead      = "chat:mark_read"
	EvtPRJoin            = "pr:join"
	EvtPRLeave           = "pr:leave"
	EvtPRAddComment      = "pr:add_comment"
	EvtPRResolveComment  = "pr:resolve_comment"
	EvtReviewStart       = "review:start_session"
	EvtReviewEnd         = "review:end_session"
	EvtReviewCursorMove  = "review:cursor_move"
	EvtPresenceHeartbeat = "presence:heartbeat"
	EvtPresenceStatus    = "presence:status"
	EvtTaskJoin          = "task:join"
	EvtTaskLeave         = "task:leave"
	EvtTaskMove          = "task:move"
	EvtTaskQuickAssign   = "task:quick_assign"
	EvtTaskTyping        = "task:typing"
	EvtTaskStopTyping    = "task:stop_typing"
	EvtWorkflowPR        = "workflow:pr"
	EvtWorkflowTask      = "workflow:task"
	EvtJoinVideoRoom     = "join_video_room"
	EvtLeaveVideoRoom    = "leave_video_room"
	EvtWebRTCSignal      = "webrtc_signal"
)

// Outbound event names (hub -> client).
const (
	OutPresenceUpdate       = "presence_update"
	OutPresenceStatus       = "presence:status_changed"
	OutReceiveMessage       = "receive_message"
	OutTyping               = "typing"
	OutStopTyping           = "stop_typing"
	OutMessageUpdated       = "message_updated"
	OutMessageRead          = "message_read"
	OutChatNewMessage       = "chat:new_message"
	OutChatUserTyping       = "chat:user_typing"
	OutChatUserStopTyping   = "chat:user_stopped_typing"
	OutChatMessagesRead     = "chat:messages_read"
	OutPRCommentAdded       = "pr:comment_added"
	OutPRCommentResolved    = "pr:comment_resolved"
	OutPRReviewers          = "pr:reviewers"
	OutReviewCursorUpdate   = "review:cursor_update"
	OutReviewSessionStarted = "review:session_started"
	OutReviewSessionEnded   = "review:session_ended"
	OutTaskMoved            = "task:moved"
	OutTaskUpdated          = "task:updated"
	OutTaskCreated          = "task:created"
	OutTaskDeleted          = "task:deleted"
	OutTaskUserTyping       = "task:user_typing"
	OutTaskUserStopTyping   = "task:user_stopped_typing"
	OutWorkflowPRPrefix     = "workflow:pr_"
	OutWorkflowTaskPrefix   = "workflow:task_"
	OutNotification         = "notification"
	OutRateLimited          = "rate_limited"
	OutError                = "error"
	OutUserJoinedVideo      = "user_joined_video"
	OutUserLeftVideo        = "user_left_video"
	OutVideoRoomMembers     = "video_room_members"
	OutWebRTCSignal         = "webrtc_signal"
	OutConnected            = "connected"
)

// InboundEvent is the envelope every client frame decodes into.
type InboundEvent struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// OutboundEvent is the envelope every hub frame encodes from.
type OutboundEvent struct {
	Event   string `json:"event"`
	Payload any    `json:"payload,omitempty"`
}

// Inbound payloads. Every event implicitly carries the authenticated user id
// of the connection; it is never read from the payload.

type ProjectScoped struct {
	ProjectID string `json:"projectId"`
}

type SendMessagePayload struct {
	ProjectID   string   `json:"projectId"`
	Content     string   `json:"content"`
	Attachments []string `json:"attachments,omitempty"`
}

type MessageReactionPayload struct {
	MessageID string `json:"messageId"`
	Emoji     string `json:"emoji"`
}

type MessageReadPayload struct {
	MessageID string `json:"messageId"`
}

type ChatRoomScoped struct {
	ProjectID string `json:"projectId"`
	RoomType  string `json:"roomType"`
	RoomID    string `json:"roomId"`
}

type ChatSendMessagePayload struct {
	ChatRoomScoped
	Text    string `json:"text"`
	ReplyTo string `json:"replyTo,omitempty"`
}

type ChatMarkReadPayload struct {
	ChatRoomScoped
	MessageIDs []string `json:"messageIds"`
}

type PRScoped struct {
	PRID      string `json:"prId"`
	ProjectID string `json:"projectId,omitempty"`
}

type PRAddCommentPayload struct {
	PRID            string `json:"prId"`
	FilePath        string `json:"filePath"`
	LineNumber      int    `json:"lineNumber"`
	Content         string `json:"content"`
	ParentCommentID string `json:"parentCommentId,omitempty"`
}

type PRResolveCommentPayload struct {
	PRID      string `json:"prId"`
	CommentID string `json:"commentId"`
	Resolved  bool   `json:"resolved"`
}

type ReviewCursorPayload struct {
	PRID       string `json:"prId"`
	FilePath   string `json:"filePath"`
	LineNumber int    `json:"lineNumber"`
}

type PresenceStatusPayload struct {
	ProjectID string `json:"projectId"`
	Status    string `json:"status"`
}

type TaskMovePayload struct {
	TaskID                 string `json:"taskId"`
	ToStatus               string `json:"toStatus"`
	ToOrderKey             int    `json:"toOrderKey"`
	RequirePRForReview     bool   `json:"requirePRForReview,omitempty"`
	RequireMergedPRForDone bool   `json:"requireMergedPRForDone,omitempty"`
}

type TaskScoped struct {
	TaskID   string `json:"taskId"`
	UserName string `json:"userName,omitempty"`
}

// WorkflowPRPayload is a trusted lifecycle report from an already-authorized
// REST action; the hub re-broadcasts it without re-deriving business rules.
type WorkflowPRPayload struct {
	Action    string `json:"action"` // created, updated, approved, merged, blocked
	PRID      string `json:"prId"`
	ProjectID string `json:"projectId"`
}

type WorkflowTaskPayload struct {
	Action    string `json:"action"` // created, updated, deleted
	TaskID    string `json:"taskId"`
	ProjectID string `json:"projectId"`
}

type WebRTCSignalPayload struct {
	ProjectID string          `json:"projectId"`
	TargetID  string          `json:"targetId"`
	Signal    json.RawMessage `json:"signal"`
}

// Outbound payloads that are not simply a canonical record.

type PresenceUpdatePayload struct {
	ProjectID     string   `json:"projectId"`
	OnlineUserIDs []string `json:"onlineUserIds"`
}

type TypingPayload struct {
	ProjectID string `json:"projectId"`
	RoomType  string `json:"roomType,omitempty"`
	RoomID    string `json:"roomId,omitempty"`
	TaskID    string `json:"taskId,omitempty"`
	UserID    string `json:"userId"`
	UserName  string `json:"userName,omitempty"`
}

type CursorUpdatePayload struct {
	PRID       string `json:"prId"`
	UserID     string `json:"userId"`
	FilePath   string `json:"filePath"`
	LineNumber int    `json:"lineNumber"`
}

type MessagesReadPayload struct {
	ChatRoomScoped
	UserID     string   `json:"userId"`
	MessageIDs []string `json:"messageIds"`
}

type VideoPeerPayload struct {
	ProjectID string `json:"projectId"`
	UserID    string `json:"userId"`
	ConnID    string `json:"connId"`
}

type VideoMembersPayload struct {
	ProjectID string   `json:"projectId"`
	UserIDs   []string `json:"userIds"`
}

type SignalRelayPayload struct {
	ProjectID string          `json:"projectId"`
	FromID    string          `json:"fromId"`
	Signal    json.RawMessage `json:"signal"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}

type RateLimitedPayload struct {
	RetryAfterSeconds int `json:"retryAfterSeconds"`
}
