package business

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/pitabwire/util"

	"github.com/salavathhari/devcollab/apps/hub/config"
	"github.com/salavathhari/devcollab/apps/hub/service"
	"github.com/salavathhari/devcollab/apps/hub/service/repository"
	"github.com/salavathhari/devcollab/internal/sanitize"
)

// Repositories bundles the persistence interfaces the hub depends on.
type Repositories struct {
	Projects      repository.ProjectRepository
	Users         repository.UserRepository
	Messages      repository.MessageRepository
	Tasks         repository.TaskRepository
	PullRequests  repository.PullRequestRepository
	Comments      repository.ReviewCommentRepository
	Notifications repository.NotificationRepository
	Activity      repository.ActivityRepository
}

// BroadcastPublisher forwards room broadcasts to other hub instances.
type BroadcastPublisher interface {
	Publish(ctx context.Context, room RoomKey, evt OutboundEvent) error
}

type eventHandler func(ctx context.Context, c *Client, data json.RawMessage) error

// Hub owns the connection pool, the room directory and the event router.
// All inbound frames flow through Dispatch; all outbound delivery flows
// through the room directory so per-room ordering holds.
type Hub struct {
	cfg       *config.HubConfig
	repos     Repositories
	pool      *clientPool
	directory *Directory
	presence  *PresenceTracker
	limiter   *RateLimiter
	publisher BroadcastPublisher

	instanceID string
	handlers   map[string]eventHandler
	rateGated  map[string]bool

	// Serializes board reorders per project.
	taskLocks sync.Map

	shutdownCh   chan struct{}
	shutdownOnce sync.Once
	wg           sync.WaitGroup
}

func NewHub(cfg *config.HubConfig, repos Repositories, presence *PresenceTracker, limiter *RateLimiter, publisher BroadcastPublisher) *Hub {
	h := &Hub{
		cfg:        cfg,
		repos:      repos,
		pool:       newClientPool(),
		directory:  NewDirectory(),
		presence:   presence,
		limiter:    limiter,
		publisher:  publisher,
		instanceID: util.IDString(),
		shutdownCh: make(chan struct{}),
	}
	h.handlers = map[string]eventHandler{
		EvtJoinRoom:          h.handleJoinProject,
		EvtLeaveRoom:         h.handleLeaveProject,
		EvtTyping:            h.handleTyping,
		EvtStopTyping:        h.handleStopTyping,
		EvtSendMessage:       h.handleSendMessage,
		EvtMessageReaction:   h.handleMessageReaction,
		EvtMessageRead:       h.handleMessageRead,
		EvtChatJoinRoom:      h.handleChatJoin,
		EvtChatLeaveRoom:     h.handleChatLeave,
		EvtChatSendMessage:   h.handleChatSendMessage,
		EvtChatTyping:        h.handleChatTyping,
		EvtChatStopTyping:    h.handleChatStopTyping,
		EvtChatMarkRead:      h.handleChatMarkRead,
		EvtPRJoin:            h.handlePRJoin,
		EvtPRLeave:           h.handlePRLeave,
		EvtPRAddComment:      h.handlePRAddComment,
		EvtPRResolveComment:  h.handlePRResolveComment,
		EvtReviewStart:       h.handleReviewStart,
		EvtReviewEnd:         h.handleReviewEnd,
		EvtReviewCursorMove:  h.handleReviewCursorMove,
		EvtPresenceHeartbeat: h.handlePresenceHeartbeat,
		EvtPresenceStatus:    h.handlePresenceStatus,
		EvtTaskJoin:          h.handleTaskJoin,
		EvtTaskLeave:         h.handleTaskLeave,
		EvtTaskMove:          h.handleTaskMove,
		EvtTaskQuickAssign:   h.handleTaskQuickAssign,
		EvtTaskTyping:        h.handleTaskTyping,
		EvtTaskStopTyping:    h.handleTaskStopTyping,
		EvtWorkflowPR:        h.handleWorkflowPR,
		EvtWorkflowTask:      h.handleWorkflowTask,
		EvtJoinVideoRoom:     h.handleJoinVideoRoom,
		EvtLeaveVideoRoom:    h.handleLeaveVideoRoom,
		EvtWebRTCSignal:      h.handleWebRTCSignal,
	}
	// Only chat message sends consume the window, so reacting or commenting
	// never eats into a user's exact send budget.
	h.rateGated = map[string]bool{
		EvtSendMessage:     true,
		EvtChatSendMessage: true,
	}
	return h
}

// InstanceID identifies this hub process on the broadcast backbone.
func (h *Hub) InstanceID() string {
	return h.instanceID
}

// ConnectionCount returns the number of live connections.
func (h *Hub) ConnectionCount() int32 {
	return h.pool.size()
}

// Register admits an authenticated connection: it joins the user's personal
// room and receives a connected acknowledgement.
func (h *Hub) Register(ctx context.Context, c *Client) error {
	select {
	case <-h.shutdownCh:
		return service.ErrShuttingDown
	default:
	}

	h.pool.add(c)
	h.wg.Add(1)

	userRoom := UserRoom(c.UserID)
	h.directory.Join(userRoom, c.ID, c.UserID)
	c.TrackJoin(userRoom)

	c.Enqueue(OutboundEvent{Event: OutConnected, Payload: map[string]string{
		"connId": c.ID,
		"userId": c.UserID,
	}})

	util.Log(ctx).WithFields(map[string]any{
		"conn_id": c.ID,
		"user_id": c.UserID,
		"total":   h.pool.size(),
	}).Debug("connection registered")
	return nil
}

// Unregister runs full disconnect cleanup for a connection, synchronously:
// by the time it returns, the connection is out of every room, its presence
// is away in every project it had joined, and its outbound channel is closed.
func (h *Hub) Unregister(ctx context.Context, c *Client) {
	if _, ok := h.pool.get(c.ID); !ok {
		return
	}
	h.pool.remove(c.ID)
	c.Close()

	for _, room := range c.Rooms() {
		h.directory.Leave(room, c.ID)
		c.TrackLeave(room)

		switch room.Kind {
		case RoomKindProject:
			if !h.directory.ContainsUser(room, c.UserID) {
				if err := h.presence.MarkAway(ctx, room.ID, c.UserID); err != nil {
					util.Log(ctx).WithError(err).Warn("presence cleanup failed")
				}
				h.broadcastPresence(ctx, room.ID)
			}
		case RoomKindVideo:
			h.EmitToRoom(ctx, room, OutboundEvent{Event: OutUserLeftVideo, Payload: VideoPeerPayload{
				ProjectID: room.ID,
				UserID:    c.UserID,
				ConnID:    c.ID,
			}})
		}
	}

	h.wg.Done()
	util.Log(ctx).WithFields(map[string]any{
		"conn_id": c.ID,
		"user_id": c.UserID,
		"total":   h.pool.size(),
	}).Debug("connection unregistered")
}

// Stop refuses new registrations, closes every live connection and waits for
// their cleanup to finish or the context to expire.
func (h *Hub) Stop(ctx context.Context) error {
	h.shutdownOnce.Do(func() {
		close(h.shutdownCh)
	})

	h.pool.forEach(func(c *Client) {
		h.Unregister(ctx, c)
	})

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Dispatch decodes one inbound frame and routes it. Handler failures never
// reach other room members: they are classified and reported to the sender
// only.
func (h *Hub) Dispatch(ctx context.Context, c *Client, raw []byte) {
	var evt InboundEvent
	if err := json.Unmarshal(raw, &evt); err != nil {
		h.sendError(c, fmt.Errorf("%w: malformed frame", service.ErrValidation))
		return
	}

	handler, ok := h.handlers[evt.Event]
	if !ok {
		h.sendError(c, fmt.Errorf("%w: %s", service.ErrUnknownEvent, evt.Event))
		return
	}

	if h.rateGated[evt.Event] {
		allowed, retryAfter, err := h.limiter.Allow(ctx, c.UserID)
		if err != nil {
			util.Log(ctx).WithError(err).Error("rate limiter store failed")
			h.sendError(c, err)
			return
		}
		if !allowed {
			c.Enqueue(OutboundEvent{Event: OutRateLimited, Payload: RateLimitedPayload{
				RetryAfterSeconds: retryAfter,
			}})
			return
		}
	}

	if err := handler(ctx, c, evt.Data); err != nil {
		util.Log(ctx).WithFields(map[string]any{
			"event":   evt.Event,
			"conn_id": c.ID,
			"user_id": c.UserID,
		}).WithError(err).Debug("event handler failed")
		h.sendError(c, err)
	}
}

func (h *Hub) sendError(c *Client, err error) {
	msg := "internal error"
	switch {
	case errors.Is(err, service.ErrRateLimited):
		c.Enqueue(OutboundEvent{Event: OutRateLimited, Payload: RateLimitedPayload{RetryAfterSeconds: 1}})
		return
	case service.IsValidation(err), service.IsAuthorization(err), errors.Is(err, service.ErrAuthentication):
		msg = err.Error()
	}
	c.Enqueue(OutboundEvent{Event: OutError, Payload: ErrorPayload{Message: msg}})
}

// EmitToRoom delivers an event to every connection in a room on this
// instance and, when a backbone publisher is configured, forwards it to
// peers. except lists connection ids to skip.
func (h *Hub) EmitToRoom(ctx context.Context, room RoomKey, evt OutboundEvent, except ...string) {
	h.deliverLocal(room, evt, except...)

	if h.publisher != nil {
		if err := h.publisher.Publish(ctx, room, evt); err != nil {
			util.Log(ctx).WithField("room", room.String()).WithError(err).Warn("backbone publish failed")
		}
	}
}

// DeliverLocal hands an event to local members of a room only. The backbone
// bridge uses it for frames that arrived from other instances.
func (h *Hub) DeliverLocal(room RoomKey, evt OutboundEvent) {
	h.deliverLocal(room, evt)
}

func (h *Hub) deliverLocal(room RoomKey, evt OutboundEvent, except ...string) {
	skip := make(map[string]bool, len(except))
	for _, id := range except {
		skip[id] = true
	}
	h.directory.Broadcast(room, func(connID, _ string) {
		if skip[connID] {
			return
		}
		if c, ok := h.pool.get(connID); ok {
			c.Enqueue(evt)
		}
	})
}

// EmitToUser delivers an event to every connection the user has open.
func (h *Hub) EmitToUser(ctx context.Context, userID string, evt OutboundEvent) {
	h.EmitToRoom(ctx, UserRoom(userID), evt)
}

// requireMember checks durable project membership for the connection's user.
func (h *Hub) requireMember(ctx context.Context, projectID, userID string) error {
	ok, err := h.repos.Projects.IsMember(ctx, projectID, userID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: project %s", service.ErrProjectAccess, projectID)
	}
	return nil
}

// joinRoom verifies access where the room kind demands it, registers the
// membership in the directory and on the connection.
func (h *Hub) joinRoom(ctx context.Context, c *Client, room RoomKey) error {
	projectID := room.ProjectID()
	if projectID != "" {
		if err := h.requireMember(ctx, projectID, c.UserID); err != nil {
			return err
		}
	}
	h.directory.Join(room, c.ID, c.UserID)
	c.TrackJoin(room)
	return nil
}

func (h *Hub) leaveRoom(c *Client, room RoomKey) {
	h.directory.Leave(room, c.ID)
	c.TrackLeave(room)
}

// broadcastPresence pushes the project's effective online roster to its room.
func (h *Hub) broadcastPresence(ctx context.Context, projectID string) {
	room := ProjectRoom(projectID)
	online := h.directory.UserIDs(room)
	h.EmitToRoom(ctx, room, OutboundEvent{Event: OutPresenceUpdate, Payload: PresenceUpdatePayload{
		ProjectID:     projectID,
		OnlineUserIDs: online,
	}})
}

func (h *Hub) projectLock(projectID string) *sync.Mutex {
	v, _ := h.taskLocks.LoadOrStore(projectID, &sync.Mutex{})
	return v.(*sync.Mutex)
}

// handleJoinProject admits the connection to a project room after a fresh
// membership check and announces presence.
func (h *Hub) handleJoinProject(ctx context.Context, c *Client, data json.RawMessage) error {
	var p ProjectScoped
	if err := json.Unmarshal(data, &p); err != nil || p.ProjectID == "" {
		return fmt.Errorf("%w: projectId required", service.ErrValidation)
	}
	room := ProjectRoom(p.ProjectID)
	if err := h.joinRoom(ctx, c, room); err != nil {
		return err
	}
	if err := h.presence.Touch(ctx, p.ProjectID, c.UserID); err != nil {
		return err
	}
	h.broadcastPresence(ctx, p.ProjectID)
	return nil
}

func (h *Hub) handleLeaveProject(ctx context.Context, c *Client, data json.RawMessage) error {
	var p ProjectScoped
	if err := json.Unmarshal(data, &p); err != nil || p.ProjectID == "" {
		return fmt.Errorf("%w: projectId required", service.ErrValidation)
	}
	room := ProjectRoom(p.ProjectID)
	h.leaveRoom(c, room)
	if !h.directory.ContainsUser(room, c.UserID) {
		if err := h.presence.MarkAway(ctx, p.ProjectID, c.UserID); err != nil {
			return err
		}
	}
	h.broadcastPresence(ctx, p.ProjectID)
	return nil
}

func (h *Hub) handlePresenceHeartbeat(ctx context.Context, c *Client, data json.RawMessage) error {
	var p ProjectScoped
	if err := json.Unmarshal(data, &p); err != nil || p.ProjectID == "" {
		return fmt.Errorf("%w: projectId required", service.ErrValidation)
	}
	// Heartbeats refresh liveness only, no broadcast.
	return h.presence.Touch(ctx, p.ProjectID, c.UserID)
}

func (h *Hub) handlePresenceStatus(ctx context.Context, c *Client, data json.RawMessage) error {
	var p PresenceStatusPayload
	if err := json.Unmarshal(data, &p); err != nil || p.ProjectID == "" {
		return fmt.Errorf("%w: projectId required", service.ErrValidation)
	}
	if !c.InRoom(ProjectRoom(p.ProjectID)) {
		return fmt.Errorf("%w: join the project first", service.ErrProjectAccess)
	}
	if err := h.presence.SetStatus(ctx, p.ProjectID, c.UserID, p.Status); err != nil {
		return err
	}
	h.EmitToRoom(ctx, ProjectRoom(p.ProjectID), OutboundEvent{Event: OutPresenceStatus, Payload: map[string]string{
		"projectId": p.ProjectID,
		"userId":    c.UserID,
		"status":    p.Status,
	}})
	return nil
}

// sanitizePlain trims, strips markup and enforces the configured length cap.
func (h *Hub) sanitizePlain(text string) (string, error) {
	clean := sanitize.Plain(text)
	if clean == "" {
		return "", fmt.Errorf("%w: empty content", service.ErrValidation)
	}
	if max := h.cfg.MaxMessageLength; max > 0 && len(clean) > max {
		return "", fmt.Errorf("%w: content exceeds %d characters", service.ErrValidation, max)
	}
	return clean, nil
}

var timeNow = time.Now
