package business

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/salavathhari/devcollab/apps/hub/service"
)

// handleJoinVideoRoom admits the connection to the project's video room,
// announces the new peer and hands the joiner the current roster so it can
// start offering.
func (h *Hub) handleJoinVideoRoom(ctx context.Context, c *Client, data json.RawMessage) error {
	var p ProjectScoped
	if err := json.Unmarshal(data, &p); err != nil || p.ProjectID == "" {
		return fmt.Errorf("%w: projectId required", service.ErrValidation)
	}
	room := VideoRoom(p.ProjectID)
	if err := h.joinRoom(ctx, c, room); err != nil {
		return err
	}

	h.EmitToRoom(ctx, room, OutboundEvent{Event: OutUserJoinedVideo, Payload: VideoPeerPayload{
		ProjectID: p.ProjectID,
		UserID:    c.UserID,
		ConnID:    c.ID,
	}}, c.ID)

	c.Enqueue(OutboundEvent{Event: OutVideoRoomMembers, Payload: VideoMembersPayload{
		ProjectID: p.ProjectID,
		UserIDs:   h.directory.UserIDs(room),
	}})
	return nil
}

func (h *Hub) handleLeaveVideoRoom(ctx context.Context, c *Client, data json.RawMessage) error {
	var p ProjectScoped
	if err := json.Unmarshal(data, &p); err != nil || p.ProjectID == "" {
		return fmt.Errorf("%w: projectId required", service.ErrValidation)
	}
	room := VideoRoom(p.ProjectID)
	h.leaveRoom(c, room)
	h.EmitToRoom(ctx, room, OutboundEvent{Event: OutUserLeftVideo, Payload: VideoPeerPayload{
		ProjectID: p.ProjectID,
		UserID:    c.UserID,
		ConnID:    c.ID,
	}})
	return nil
}

// handleWebRTCSignal relays an opaque signaling blob to one target user. Both
// ends must currently be in the same video room; the payload is never
// inspected beyond addressing.
func (h *Hub) handleWebRTCSignal(_ context.Context, c *Client, data json.RawMessage) error {
	var p WebRTCSignalPayload
	if err := json.Unmarshal(data, &p); err != nil || p.ProjectID == "" {
		return fmt.Errorf("%w: projectId required", service.ErrValidation)
	}
	if p.TargetID == "" {
		return service.ErrTargetRequired
	}
	room := VideoRoom(p.ProjectID)
	if !c.InRoom(room) {
		return fmt.Errorf("%w: join the video room first", service.ErrProjectAccess)
	}
	if !h.directory.ContainsUser(room, p.TargetID) {
		return fmt.Errorf("%w: target is not in the video room", service.ErrValidation)
	}

	evt := OutboundEvent{Event: OutWebRTCSignal, Payload: SignalRelayPayload{
		ProjectID: p.ProjectID,
		FromID:    c.UserID,
		Signal:    p.Signal,
	}}
	h.directory.Broadcast(room, func(connID, userID string) {
		if userID != p.TargetID {
			return
		}
		if peer, ok := h.pool.get(connID); ok {
			peer.Enqueue(evt)
		}
	})
	return nil
}
