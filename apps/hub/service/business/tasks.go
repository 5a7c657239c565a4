package business

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/pitabwire/util"

	"github.com/salavathhari/devcollab/apps/hub/service"
	"github.com/salavathhari/devcollab/apps/hub/service/models"
	"github.com/salavathhari/devcollab/apps/hub/service/repository"
)

// handleTaskMove performs a transactional column move and broadcasts the
// resulting destination column so every board converges on the same order.
// Moves within one project are serialized; failures go to the sender only,
// which is what Dispatch already guarantees for handler errors.
func (h *Hub) handleTaskMove(ctx context.Context, c *Client, data json.RawMessage) error {
	var p TaskMovePayload
	if err := json.Unmarshal(data, &p); err != nil || p.TaskID == "" || p.ToStatus == "" {
		return fmt.Errorf("%w: taskId and toStatus required", service.ErrValidation)
	}

	task, err := h.repos.Tasks.GetByID(ctx, p.TaskID)
	if err != nil {
		return err
	}
	if err = h.requireMember(ctx, task.ProjectID, c.UserID); err != nil {
		return err
	}

	lock := h.projectLock(task.ProjectID)
	lock.Lock()
	moved, err := h.repos.Tasks.Move(ctx, p.TaskID, p.ToStatus, p.ToOrderKey, repository.MovePolicy{
		RequirePRForReview:     p.RequirePRForReview,
		RequireMergedPRForDone: p.RequireMergedPRForDone,
	})
	var column []*models.Task
	if err == nil {
		column, err = h.repos.Tasks.ListColumn(ctx, moved.ProjectID, moved.Status)
	}
	lock.Unlock()
	if err != nil {
		return err
	}

	// The move is already durable; a failed audit append must not leave the
	// boards diverged from stored state.
	if aerr := h.repos.Activity.Record(ctx, &models.ActivityLog{
		ProjectID:  moved.ProjectID,
		ActorID:    c.UserID,
		Action:     "task.moved",
		TargetType: "task",
		TargetID:   moved.GetID(),
		Detail:     map[string]any{"toStatus": moved.Status, "orderKey": moved.OrderKey},
	}); aerr != nil {
		util.Log(ctx).WithField("task_id", moved.GetID()).WithError(aerr).Error("activity append failed")
	}

	evt := OutboundEvent{Event: OutTaskMoved, Payload: map[string]any{
		"task":    moved,
		"column":  column,
		"movedBy": c.UserID,
	}}
	h.EmitToRoom(ctx, ProjectRoom(moved.ProjectID), evt, c.ID)
	// The mover is acknowledged directly, so they see the committed order even
	// when they never joined the project room.
	c.Enqueue(evt)
	return nil
}

// handleTaskQuickAssign assigns the sender to the task. Assigning twice is a
// no-op with no broadcast.
func (h *Hub) handleTaskQuickAssign(ctx context.Context, c *Client, data json.RawMessage) error {
	var p TaskScoped
	if err := json.Unmarshal(data, &p); err != nil || p.TaskID == "" {
		return fmt.Errorf("%w: taskId required", service.ErrValidation)
	}

	task, err := h.repos.Tasks.GetByID(ctx, p.TaskID)
	if err != nil {
		return err
	}
	if err = h.requireMember(ctx, task.ProjectID, c.UserID); err != nil {
		return err
	}
	if !task.AddAssignee(c.UserID) {
		return nil
	}
	if err = h.repos.Tasks.Save(ctx, task); err != nil {
		return err
	}

	h.EmitToRoom(ctx, ProjectRoom(task.ProjectID), OutboundEvent{Event: OutTaskUpdated, Payload: map[string]any{
		"task":       task,
		"assignedBy": c.UserID,
	}})
	return nil
}

// handleTaskJoin subscribes the connection to a task's own room, used by the
// task detail view for card-level indicators.
func (h *Hub) handleTaskJoin(ctx context.Context, c *Client, data json.RawMessage) error {
	var p TaskScoped
	if err := json.Unmarshal(data, &p); err != nil || p.TaskID == "" {
		return fmt.Errorf("%w: taskId required", service.ErrValidation)
	}
	task, err := h.repos.Tasks.GetByID(ctx, p.TaskID)
	if err != nil {
		return err
	}
	if err = h.requireMember(ctx, task.ProjectID, c.UserID); err != nil {
		return err
	}
	h.directory.Join(TaskRoom(task.GetID()), c.ID, c.UserID)
	c.TrackJoin(TaskRoom(task.GetID()))
	return nil
}

func (h *Hub) handleTaskLeave(_ context.Context, c *Client, data json.RawMessage) error {
	var p TaskScoped
	if err := json.Unmarshal(data, &p); err != nil || p.TaskID == "" {
		return fmt.Errorf("%w: taskId required", service.ErrValidation)
	}
	h.leaveRoom(c, TaskRoom(p.TaskID))
	return nil
}

func (h *Hub) handleTaskTyping(ctx context.Context, c *Client, data json.RawMessage) error {
	return h.relayTaskTyping(ctx, c, data, OutTaskUserTyping)
}

func (h *Hub) handleTaskStopTyping(ctx context.Context, c *Client, data json.RawMessage) error {
	return h.relayTaskTyping(ctx, c, data, OutTaskUserStopTyping)
}

// relayTaskTyping surfaces a typing indicator to the other watchers of the
// task's room, excluding the sender's own connection.
func (h *Hub) relayTaskTyping(ctx context.Context, c *Client, data json.RawMessage, out string) error {
	var p TaskScoped
	if err := json.Unmarshal(data, &p); err != nil || p.TaskID == "" {
		return fmt.Errorf("%w: taskId required", service.ErrValidation)
	}
	room := TaskRoom(p.TaskID)
	if !c.InRoom(room) {
		return fmt.Errorf("%w: join the task first", service.ErrProjectAccess)
	}
	task, err := h.repos.Tasks.GetByID(ctx, p.TaskID)
	if err != nil {
		return err
	}
	h.EmitToRoom(ctx, room, OutboundEvent{Event: out, Payload: TypingPayload{
		ProjectID: task.ProjectID,
		TaskID:    task.GetID(),
		UserID:    c.UserID,
		UserName:  c.Name,
	}}, c.ID)
	return nil
}
