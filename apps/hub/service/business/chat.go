package business

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/salavathhari/devcollab/apps/hub/service"
	"github.com/salavathhari/devcollab/apps/hub/service/models"
	"github.com/salavathhari/devcollab/internal/sanitize"
)

// roomForMessage resolves the room a persisted message belongs to.
func roomForMessage(msg *models.ChatMessage) RoomKey {
	if msg.RoomType == "" {
		return ProjectRoom(msg.ProjectID)
	}
	return ChatRoom(msg.ProjectID, msg.RoomType, msg.RoomID)
}

func (h *Hub) handleTyping(ctx context.Context, c *Client, data json.RawMessage) error {
	return h.relayTyping(ctx, c, data, OutTyping)
}

func (h *Hub) handleStopTyping(ctx context.Context, c *Client, data json.RawMessage) error {
	return h.relayTyping(ctx, c, data, OutStopTyping)
}

// relayTyping rebroadcasts a typing indicator to the project room, excluding
// the sender's own connection. Indicators are ephemeral and never persisted.
func (h *Hub) relayTyping(ctx context.Context, c *Client, data json.RawMessage, out string) error {
	var p ProjectScoped
	if err := json.Unmarshal(data, &p); err != nil || p.ProjectID == "" {
		return fmt.Errorf("%w: projectId required", service.ErrValidation)
	}
	room := ProjectRoom(p.ProjectID)
	if !c.InRoom(room) {
		return fmt.Errorf("%w: join the project first", service.ErrProjectAccess)
	}
	h.EmitToRoom(ctx, room, OutboundEvent{Event: out, Payload: TypingPayload{
		ProjectID: p.ProjectID,
		UserID:    c.UserID,
		UserName:  c.Name,
	}}, c.ID)
	return nil
}

// handleSendMessage persists a project room message and fans the stored
// record out. Every other member is notified; mentioned members get a mention
// notification instead of the general one.
func (h *Hub) handleSendMessage(ctx context.Context, c *Client, data json.RawMessage) error {
	var p SendMessagePayload
	if err := json.Unmarshal(data, &p); err != nil || p.ProjectID == "" {
		return fmt.Errorf("%w: projectId required", service.ErrValidation)
	}
	if err := h.requireMember(ctx, p.ProjectID, c.UserID); err != nil {
		return err
	}
	content, err := h.sanitizePlain(p.Content)
	if err != nil {
		return err
	}

	msg := &models.ChatMessage{
		ProjectID:   p.ProjectID,
		SenderID:    c.UserID,
		Content:     content,
		Attachments: p.Attachments,
	}
	if err = h.repos.Messages.Create(ctx, msg); err != nil {
		return err
	}

	sender, err := h.repos.Users.GetByID(ctx, c.UserID)
	if err != nil {
		return err
	}
	h.EmitToRoom(ctx, ProjectRoom(p.ProjectID), OutboundEvent{
		Event:   OutReceiveMessage,
		Payload: models.NewMessageView(msg, sender),
	})

	return h.notifyMessage(ctx, c, p.ProjectID, content, msg.GetID())
}

// handleMessageReaction toggles the sender's reaction on a message and
// rebroadcasts the updated record to the message's room.
func (h *Hub) handleMessageReaction(ctx context.Context, c *Client, data json.RawMessage) error {
	var p MessageReactionPayload
	if err := json.Unmarshal(data, &p); err != nil || p.MessageID == "" || p.Emoji == "" {
		return fmt.Errorf("%w: messageId and emoji required", service.ErrValidation)
	}
	msg, err := h.repos.Messages.GetByID(ctx, p.MessageID)
	if err != nil {
		return err
	}
	if err = h.requireMember(ctx, msg.ProjectID, c.UserID); err != nil {
		return err
	}

	toggleReaction(msg, p.Emoji, c.UserID)
	if err = h.repos.Messages.Save(ctx, msg); err != nil {
		return err
	}

	sender, err := h.repos.Users.GetByID(ctx, msg.SenderID)
	if err != nil {
		return err
	}
	h.EmitToRoom(ctx, roomForMessage(msg), OutboundEvent{
		Event:   OutMessageUpdated,
		Payload: models.NewMessageView(msg, sender),
	})
	return nil
}

// toggleReaction adds the user under the emoji, or removes them if already
// present. Empty emoji buckets are dropped.
func toggleReaction(msg *models.ChatMessage, emoji, userID string) {
	if msg.Reactions == nil {
		msg.Reactions = map[string]any{}
	}
	var users []string
	if raw, ok := msg.Reactions[emoji]; ok {
		if list, ok := raw.([]any); ok {
			for _, v := range list {
				if s, ok := v.(string); ok {
					users = append(users, s)
				}
			}
		}
	}

	found := false
	kept := users[:0]
	for _, u := range users {
		if u == userID {
			found = true
			continue
		}
		kept = append(kept, u)
	}
	if !found {
		kept = append(kept, userID)
	}

	if len(kept) == 0 {
		delete(msg.Reactions, emoji)
		return
	}
	next := make([]any, 0, len(kept))
	for _, u := range kept {
		next = append(next, u)
	}
	msg.Reactions[emoji] = next
}

// handleMessageRead records a read acknowledgement. Re-acknowledging is a
// silent no-op, so two tabs produce one broadcast.
func (h *Hub) handleMessageRead(ctx context.Context, c *Client, data json.RawMessage) error {
	var p MessageReadPayload
	if err := json.Unmarshal(data, &p); err != nil || p.MessageID == "" {
		return fmt.Errorf("%w: messageId required", service.ErrValidation)
	}
	msg, err := h.repos.Messages.GetByID(ctx, p.MessageID)
	if err != nil {
		return err
	}
	if err = h.requireMember(ctx, msg.ProjectID, c.UserID); err != nil {
		return err
	}
	if !msg.MarkReadBy(c.UserID) {
		return nil
	}
	if err = h.repos.Messages.Save(ctx, msg); err != nil {
		return err
	}
	h.EmitToRoom(ctx, roomForMessage(msg), OutboundEvent{Event: OutMessageRead, Payload: map[string]string{
		"messageId": msg.GetID(),
		"userId":    c.UserID,
	}})
	return nil
}

func decodeChatRoom(data json.RawMessage) (ChatRoomScoped, error) {
	var p ChatRoomScoped
	if err := json.Unmarshal(data, &p); err != nil || p.ProjectID == "" || p.RoomType == "" || p.RoomID == "" {
		return p, fmt.Errorf("%w: projectId, roomType and roomId required", service.ErrValidation)
	}
	return p, nil
}

func (h *Hub) handleChatJoin(ctx context.Context, c *Client, data json.RawMessage) error {
	p, err := decodeChatRoom(data)
	if err != nil {
		return err
	}
	return h.joinRoom(ctx, c, ChatRoom(p.ProjectID, p.RoomType, p.RoomID))
}

func (h *Hub) handleChatLeave(_ context.Context, c *Client, data json.RawMessage) error {
	p, err := decodeChatRoom(data)
	if err != nil {
		return err
	}
	h.leaveRoom(c, ChatRoom(p.ProjectID, p.RoomType, p.RoomID))
	return nil
}

// handleChatSendMessage persists a scoped room message. Scoped rooms keep
// limited markup, so the rich sanitizer applies.
func (h *Hub) handleChatSendMessage(ctx context.Context, c *Client, data json.RawMessage) error {
	var p ChatSendMessagePayload
	if err := json.Unmarshal(data, &p); err != nil || p.ProjectID == "" || p.RoomType == "" || p.RoomID == "" {
		return fmt.Errorf("%w: projectId, roomType and roomId required", service.ErrValidation)
	}
	room := ChatRoom(p.ProjectID, p.RoomType, p.RoomID)
	if !c.InRoom(room) {
		return fmt.Errorf("%w: join the chat room first", service.ErrProjectAccess)
	}
	if err := h.requireMember(ctx, p.ProjectID, c.UserID); err != nil {
		return err
	}
	text, err := h.sanitizeRich(p.Text)
	if err != nil {
		return err
	}

	msg := &models.ChatMessage{
		ProjectID: p.ProjectID,
		RoomType:  p.RoomType,
		RoomID:    p.RoomID,
		SenderID:  c.UserID,
		Content:   text,
		ReplyToID: p.ReplyTo,
	}
	if err = h.repos.Messages.Create(ctx, msg); err != nil {
		return err
	}

	sender, err := h.repos.Users.GetByID(ctx, c.UserID)
	if err != nil {
		return err
	}
	h.EmitToRoom(ctx, room, OutboundEvent{
		Event:   OutChatNewMessage,
		Payload: models.NewMessageView(msg, sender),
	})

	return h.notifyMessage(ctx, c, p.ProjectID, text, msg.GetID())
}

func (h *Hub) handleChatTyping(ctx context.Context, c *Client, data json.RawMessage) error {
	return h.relayChatTyping(ctx, c, data, OutChatUserTyping)
}

func (h *Hub) handleChatStopTyping(ctx context.Context, c *Client, data json.RawMessage) error {
	return h.relayChatTyping(ctx, c, data, OutChatUserStopTyping)
}

func (h *Hub) relayChatTyping(ctx context.Context, c *Client, data json.RawMessage, out string) error {
	p, err := decodeChatRoom(data)
	if err != nil {
		return err
	}
	room := ChatRoom(p.ProjectID, p.RoomType, p.RoomID)
	if !c.InRoom(room) {
		return fmt.Errorf("%w: join the chat room first", service.ErrProjectAccess)
	}
	h.EmitToRoom(ctx, room, OutboundEvent{Event: out, Payload: TypingPayload{
		ProjectID: p.ProjectID,
		RoomType:  p.RoomType,
		RoomID:    p.RoomID,
		UserID:    c.UserID,
		UserName:  c.Name,
	}}, c.ID)
	return nil
}

// handleChatMarkRead acknowledges a batch of messages and broadcasts only the
// ids whose read state actually changed.
func (h *Hub) handleChatMarkRead(ctx context.Context, c *Client, data json.RawMessage) error {
	var p ChatMarkReadPayload
	if err := json.Unmarshal(data, &p); err != nil || p.ProjectID == "" || p.RoomType == "" || p.RoomID == "" || len(p.MessageIDs) == 0 {
		return fmt.Errorf("%w: projectId, roomType, roomId and messageIds required", service.ErrValidation)
	}
	if err := h.requireMember(ctx, p.ProjectID, c.UserID); err != nil {
		return err
	}

	var changed []string
	for _, id := range p.MessageIDs {
		msg, err := h.repos.Messages.GetByID(ctx, id)
		if err != nil {
			continue
		}
		if msg.ProjectID != p.ProjectID || msg.RoomType != p.RoomType || msg.RoomID != p.RoomID {
			continue
		}
		if !msg.MarkReadBy(c.UserID) {
			continue
		}
		if err = h.repos.Messages.Save(ctx, msg); err != nil {
			return err
		}
		changed = append(changed, id)
	}
	if len(changed) == 0 {
		return nil
	}

	h.EmitToRoom(ctx, ChatRoom(p.ProjectID, p.RoomType, p.RoomID), OutboundEvent{
		Event: OutChatMessagesRead,
		Payload: MessagesReadPayload{
			ChatRoomScoped: p.ChatRoomScoped,
			UserID:         c.UserID,
			MessageIDs:     changed,
		},
	})
	return nil
}

// sanitizeRich keeps limited markup and enforces the configured length cap.
func (h *Hub) sanitizeRich(text string) (string, error) {
	clean := sanitize.Rich(text)
	if clean == "" {
		return "", fmt.Errorf("%w: empty content", service.ErrValidation)
	}
	if max := h.cfg.MaxMessageLength; max > 0 && len(clean) > max {
		return "", fmt.Errorf("%w: content exceeds %d characters", service.ErrValidation, max)
	}
	return clean, nil
}
