package business

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/salavathhari/devcollab/apps/hub/service"
	"github.com/salavathhari/devcollab/apps/hub/service/models"
)

// Workflow reports arrive after an already-authorized durable action; the hub
// validates the shape and the sender's membership, then re-broadcasts without
// re-deriving the business rules behind the transition.

var workflowPRActions = map[string]bool{
	"created":  true,
	"updated":  true,
	"approved": true,
	"merged":   true,
	"blocked":  true,
}

var workflowTaskActions = map[string]bool{
	"created": true,
	"updated": true,
	"deleted": true,
}

func (h *Hub) handleWorkflowPR(ctx context.Context, c *Client, data json.RawMessage) error {
	var p WorkflowPRPayload
	if err := json.Unmarshal(data, &p); err != nil || p.PRID == "" || p.ProjectID == "" {
		return fmt.Errorf("%w: prId and projectId required", service.ErrValidation)
	}
	if !workflowPRActions[p.Action] {
		return fmt.Errorf("%w: unknown pr action %q", service.ErrValidation, p.Action)
	}
	if err := h.requireMember(ctx, p.ProjectID, c.UserID); err != nil {
		return err
	}

	pr, err := h.repos.PullRequests.GetByID(ctx, p.PRID)
	if err != nil {
		return err
	}
	if pr.ProjectID != p.ProjectID {
		return fmt.Errorf("%w: pull request is not in this project", service.ErrValidation)
	}

	h.EmitToRoom(ctx, ProjectRoom(p.ProjectID), OutboundEvent{
		Event:   OutWorkflowPRPrefix + p.Action,
		Payload: map[string]any{"pr": pr, "actorId": c.UserID},
	})

	return h.notifyProject(ctx, c, p.ProjectID, "pr_"+p.Action, map[string]any{
		"prId":  pr.GetID(),
		"title": pr.Title,
	}, nil, nil)
}

func (h *Hub) handleWorkflowTask(ctx context.Context, c *Client, data json.RawMessage) error {
	var p WorkflowTaskPayload
	if err := json.Unmarshal(data, &p); err != nil || p.TaskID == "" || p.ProjectID == "" {
		return fmt.Errorf("%w: taskId and projectId required", service.ErrValidation)
	}
	if !workflowTaskActions[p.Action] {
		return fmt.Errorf("%w: unknown task action %q", service.ErrValidation, p.Action)
	}
	if err := h.requireMember(ctx, p.ProjectID, c.UserID); err != nil {
		return err
	}

	// A deleted task has no record left to enrich the broadcast with.
	var task *models.Task
	if p.Action != "deleted" {
		var err error
		task, err = h.repos.Tasks.GetByID(ctx, p.TaskID)
		if err != nil {
			return err
		}
		if task.ProjectID != p.ProjectID {
			return fmt.Errorf("%w: task is not in this project", service.ErrValidation)
		}
	}

	payload := map[string]any{"taskId": p.TaskID, "actorId": c.UserID}
	if task != nil {
		payload["task"] = task
	}
	room := ProjectRoom(p.ProjectID)
	h.EmitToRoom(ctx, room, OutboundEvent{Event: OutWorkflowTaskPrefix + p.Action, Payload: payload})

	// Boards listen on the plain task events as well.
	switch p.Action {
	case "created":
		h.EmitToRoom(ctx, room, OutboundEvent{Event: OutTaskCreated, Payload: payload})
	case "updated":
		h.EmitToRoom(ctx, room, OutboundEvent{Event: OutTaskUpdated, Payload: payload})
	case "deleted":
		h.EmitToRoom(ctx, room, OutboundEvent{Event: OutTaskDeleted, Payload: payload})
	}

	detail := map[string]any{"taskId": p.TaskID}
	if task != nil {
		detail["title"] = task.Title
	}
	return h.notifyProject(ctx, c, p.ProjectID, "task_"+p.Action, detail, nil, nil)
}
