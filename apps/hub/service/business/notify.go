package business

import (
	"context"

	"github.com/pitabwire/util"

	"github.com/salavathhari/devcollab/apps/hub/service/models"
	"github.com/salavathhari/devcollab/internal/sanitize"
)

// notifyUsers persists one notification per recipient and pushes it to every
// connection in the recipient's private room. A recipient who is offline
// still gets the durable record.
func (h *Hub) notifyUsers(ctx context.Context, recipientIDs []string, typ, projectID string, payload map[string]any) {
	for _, recipientID := range recipientIDs {
		n := &models.Notification{
			RecipientID: recipientID,
			Type:        typ,
			ProjectID:   projectID,
			Payload:     payload,
		}
		if err := h.repos.Notifications.Create(ctx, n); err != nil {
			util.Log(ctx).WithFields(map[string]any{
				"recipient_id": recipientID,
				"type":         typ,
			}).WithError(err).Error("notification persist failed")
			continue
		}
		h.EmitToUser(ctx, recipientID, OutboundEvent{Event: OutNotification, Payload: n})
	}
}

// notifyProject notifies every project member except the actor, plus extra
// recipients, minus exclusions, deduplicated. A user matched more than once
// gets a single notification.
func (h *Hub) notifyProject(ctx context.Context, c *Client, projectID, typ string, payload map[string]any, extra, exclude []string) error {
	memberIDs, err := h.repos.Projects.MemberIDs(ctx, projectID)
	if err != nil {
		return err
	}
	seen := map[string]bool{c.UserID: true}
	for _, id := range exclude {
		seen[id] = true
	}
	var recipients []string
	for _, id := range append(memberIDs, extra...) {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		recipients = append(recipients, id)
	}
	h.notifyUsers(ctx, recipients, typ, projectID, payload)
	return nil
}

// notifyMessage fans out the full audience for a stored chat message:
// mentioned members get a mention notification, every other member except the
// sender gets a message notification. A mentioned member never receives both.
func (h *Hub) notifyMessage(ctx context.Context, c *Client, projectID, content, messageID string) error {
	mentioned, err := h.notifyMentions(ctx, c, projectID, content, messageID)
	if err != nil {
		return err
	}
	return h.notifyProject(ctx, c, projectID, "message", map[string]any{
		"messageId": messageID,
		"senderId":  c.UserID,
	}, nil, mentioned)
}

// notifyMentions resolves email-shaped mentions in message content to project
// members and notifies each once, never the sender. It returns the ids it
// notified so the general message fan-out can skip them.
func (h *Hub) notifyMentions(ctx context.Context, c *Client, projectID, content, messageID string) ([]string, error) {
	emails := sanitize.Mentions(content)
	if len(emails) == 0 {
		return nil, nil
	}
	users, err := h.repos.Users.GetByEmails(ctx, emails)
	if err != nil {
		return nil, err
	}

	seen := map[string]bool{c.UserID: true}
	var recipients []string
	for _, u := range users {
		id := u.GetID()
		if seen[id] {
			continue
		}
		member, merr := h.repos.Projects.IsMember(ctx, projectID, id)
		if merr != nil {
			return nil, merr
		}
		if !member {
			continue
		}
		seen[id] = true
		recipients = append(recipients, id)
	}

	h.notifyUsers(ctx, recipients, "mention", projectID, map[string]any{
		"messageId": messageID,
		"senderId":  c.UserID,
	})
	return recipients, nil
}

// notifyCommentThread notifies the pull request author and, for replies, the
// thread root's author. The commenter is never notified about their own
// comment.
func (h *Hub) notifyCommentThread(ctx context.Context, c *Client, pr *models.PullRequest, comment *models.ReviewComment) {
	seen := map[string]bool{c.UserID: true}
	var recipients []string
	if pr.AuthorID != "" && !seen[pr.AuthorID] {
		seen[pr.AuthorID] = true
		recipients = append(recipients, pr.AuthorID)
	}
	if comment.ParentID != "" {
		if parent, err := h.repos.Comments.GetByID(ctx, comment.ParentID); err == nil {
			if parent.AuthorID != "" && !seen[parent.AuthorID] {
				seen[parent.AuthorID] = true
				recipients = append(recipients, parent.AuthorID)
			}
		}
	}

	h.notifyUsers(ctx, recipients, "review_comment", pr.ProjectID, map[string]any{
		"prId":      pr.GetID(),
		"commentId": comment.GetID(),
		"filePath":  comment.FilePath,
	})
}
