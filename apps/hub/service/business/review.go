package business

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/salavathhari/devcollab/apps/hub/service"
	"github.com/salavathhari/devcollab/apps/hub/service/models"
)

func decodePRScoped(data json.RawMessage) (PRScoped, error) {
	var p PRScoped
	if err := json.Unmarshal(data, &p); err != nil || p.PRID == "" {
		return p, fmt.Errorf("%w: prId required", service.ErrValidation)
	}
	return p, nil
}

// loadAuthorizedPR resolves the pull request and checks the user belongs to
// its project.
func (h *Hub) loadAuthorizedPR(ctx context.Context, prID, userID string) (*models.PullRequest, error) {
	pr, err := h.repos.PullRequests.GetByID(ctx, prID)
	if err != nil {
		return nil, err
	}
	if err = h.requireMember(ctx, pr.ProjectID, userID); err != nil {
		return nil, err
	}
	return pr, nil
}

func (h *Hub) handlePRJoin(ctx context.Context, c *Client, data json.RawMessage) error {
	p, err := decodePRScoped(data)
	if err != nil {
		return err
	}
	pr, err := h.loadAuthorizedPR(ctx, p.PRID, c.UserID)
	if err != nil {
		return err
	}

	room := PRRoom(pr.GetID())
	h.directory.Join(room, c.ID, c.UserID)
	c.TrackJoin(room)

	h.EmitToRoom(ctx, room, OutboundEvent{Event: OutPRReviewers, Payload: map[string]any{
		"prId":    pr.GetID(),
		"userIds": h.directory.UserIDs(room),
	}})
	return nil
}

func (h *Hub) handlePRLeave(ctx context.Context, c *Client, data json.RawMessage) error {
	p, err := decodePRScoped(data)
	if err != nil {
		return err
	}
	room := PRRoom(p.PRID)
	h.leaveRoom(c, room)
	h.EmitToRoom(ctx, room, OutboundEvent{Event: OutPRReviewers, Payload: map[string]any{
		"prId":    p.PRID,
		"userIds": h.directory.UserIDs(room),
	}})
	return nil
}

// handlePRAddComment persists an inline comment and fans it out to the PR
// room. Replies must reference a thread root on the same pull request.
func (h *Hub) handlePRAddComment(ctx context.Context, c *Client, data json.RawMessage) error {
	var p PRAddCommentPayload
	if err := json.Unmarshal(data, &p); err != nil || p.PRID == "" {
		return fmt.Errorf("%w: prId required", service.ErrValidation)
	}
	if p.FilePath == "" || p.LineNumber <= 0 {
		return fmt.Errorf("%w: filePath and positive lineNumber required", service.ErrValidation)
	}
	pr, err := h.loadAuthorizedPR(ctx, p.PRID, c.UserID)
	if err != nil {
		return err
	}
	content, err := h.sanitizePlain(p.Content)
	if err != nil {
		return err
	}

	if p.ParentCommentID != "" {
		parent, perr := h.repos.Comments.GetByID(ctx, p.ParentCommentID)
		if perr != nil {
			return perr
		}
		if parent.PullRequestID != pr.GetID() || parent.ParentID != "" {
			return fmt.Errorf("%w: parent must be a thread root on the same pull request", service.ErrValidation)
		}
	}

	comment := &models.ReviewComment{
		PullRequestID: pr.GetID(),
		AuthorID:      c.UserID,
		FilePath:      p.FilePath,
		LineNumber:    p.LineNumber,
		Content:       content,
		ParentID:      p.ParentCommentID,
	}
	if err = h.repos.Comments.Create(ctx, comment); err != nil {
		return err
	}

	author, err := h.repos.Users.GetByID(ctx, c.UserID)
	if err != nil {
		return err
	}
	h.EmitToRoom(ctx, PRRoom(pr.GetID()), OutboundEvent{
		Event:   OutPRCommentAdded,
		Payload: models.NewCommentView(comment, author),
	})

	h.notifyCommentThread(ctx, c, pr, comment)
	return nil
}

// handlePRResolveComment flips resolution state on a thread root. Resolving
// stamps who and when; unresolving clears both so a later resolve carries
// fresh attribution.
func (h *Hub) handlePRResolveComment(ctx context.Context, c *Client, data json.RawMessage) error {
	var p PRResolveCommentPayload
	if err := json.Unmarshal(data, &p); err != nil || p.PRID == "" || p.CommentID == "" {
		return fmt.Errorf("%w: prId and commentId required", service.ErrValidation)
	}
	pr, err := h.loadAuthorizedPR(ctx, p.PRID, c.UserID)
	if err != nil {
		return err
	}
	comment, err := h.repos.Comments.GetByID(ctx, p.CommentID)
	if err != nil {
		return err
	}
	if comment.PullRequestID != pr.GetID() {
		return fmt.Errorf("%w: comment does not belong to this pull request", service.ErrValidation)
	}
	if comment.ParentID != "" {
		return fmt.Errorf("%w: only thread roots carry resolution state", service.ErrValidation)
	}

	if p.Resolved {
		now := timeNow()
		comment.Resolved = true
		comment.ResolvedBy = c.UserID
		comment.ResolvedAt = &now
	} else {
		comment.Resolved = false
		comment.ResolvedBy = ""
		comment.ResolvedAt = nil
	}
	if err = h.repos.Comments.Save(ctx, comment); err != nil {
		return err
	}

	h.EmitToRoom(ctx, PRRoom(pr.GetID()), OutboundEvent{Event: OutPRCommentResolved, Payload: comment})
	return nil
}

func (h *Hub) handleReviewStart(ctx context.Context, c *Client, data json.RawMessage) error {
	p, err := decodePRScoped(data)
	if err != nil {
		return err
	}
	pr, err := h.loadAuthorizedPR(ctx, p.PRID, c.UserID)
	if err != nil {
		return err
	}

	room := ReviewRoom(pr.GetID())
	h.directory.Join(room, c.ID, c.UserID)
	c.TrackJoin(room)

	h.EmitToRoom(ctx, room, OutboundEvent{Event: OutReviewSessionStarted, Payload: map[string]string{
		"prId":   pr.GetID(),
		"userId": c.UserID,
	}})
	return nil
}

func (h *Hub) handleReviewEnd(ctx context.Context, c *Client, data json.RawMessage) error {
	p, err := decodePRScoped(data)
	if err != nil {
		return err
	}
	room := ReviewRoom(p.PRID)
	h.leaveRoom(c, room)
	h.EmitToRoom(ctx, room, OutboundEvent{Event: OutReviewSessionEnded, Payload: map[string]string{
		"prId":   p.PRID,
		"userId": c.UserID,
	}})
	return nil
}

// handleReviewCursorMove relays the sender's cursor to the pull request room
// and refreshes the cursor held on their presence record. The relay targets
// the pr room, not the review session room, so every joined reviewer sees
// cursors whether or not a session is running.
func (h *Hub) handleReviewCursorMove(ctx context.Context, c *Client, data json.RawMessage) error {
	var p ReviewCursorPayload
	if err := json.Unmarshal(data, &p); err != nil || p.PRID == "" || p.FilePath == "" {
		return fmt.Errorf("%w: prId and filePath required", service.ErrValidation)
	}
	room := PRRoom(p.PRID)
	if !c.InRoom(room) {
		return fmt.Errorf("%w: join the pull request first", service.ErrProjectAccess)
	}

	pr, err := h.repos.PullRequests.GetByID(ctx, p.PRID)
	if err != nil {
		return err
	}
	if err = h.presence.RecordCursor(ctx, pr.ProjectID, c.UserID, p.FilePath, p.LineNumber); err != nil {
		return err
	}

	h.EmitToRoom(ctx, room, OutboundEvent{Event: OutReviewCursorUpdate, Payload: CursorUpdatePayload{
		PRID:       p.PRID,
		UserID:     c.UserID,
		FilePath:   p.FilePath,
		LineNumber: p.LineNumber,
	}}, c.ID)
	return nil
}
