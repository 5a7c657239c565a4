// Package service holds the error taxonomy shared by the hub's business and
// handler layers.
package service

import "errors"

// The four classes of request failure. Handlers reply to the sender only and
// never broadcast on any of them; collaborator failures are additionally
// logged. Authentication failures refuse the connection before any event is
// processed.
var (
	ErrAuthentication = errors.New("authentication required")
	ErrAuthorization  = errors.New("not authorized for this resource")
	ErrValidation     = errors.New("invalid request")
	ErrRateLimited    = errors.New("rate limit exceeded")
)

var (
	ErrProjectIDRequired = errors.New("project ID is required")
	ErrProjectNotFound   = errors.New("project not found")
	ErrProjectAccess     = errors.New("you are not a member of this project")

	ErrMessageContentRequired = errors.New("message content is required")
	ErrMessageNotFound        = errors.New("message not found")

	ErrTaskIDRequired = errors.New("task ID is required")
	ErrTaskNotFound   = errors.New("task not found")
	ErrTaskNeedsPR    = errors.New("task must have an associated pull request to enter review")
	ErrTaskNeedsMerge = errors.New("task must have a merged pull request to be done")

	ErrPullRequestNotFound = errors.New("pull request not found")
	ErrCommentNotFound     = errors.New("comment not found")
	ErrCommentContent      = errors.New("comment content is required")

	ErrInvalidStatus  = errors.New("status must be one of active, away, busy")
	ErrInvalidRoomKey = errors.New("malformed room key")
	ErrTargetRequired = errors.New("signal target is required")
	ErrUnknownEvent   = errors.New("unknown event")
	ErrConnectionGone = errors.New("connection closed")
	ErrShuttingDown   = errors.New("hub is shutting down")
)

// IsAuthorization reports whether err belongs to the authorization class.
func IsAuthorization(err error) bool {
	return errors.Is(err, ErrAuthorization) ||
		errors.Is(err, ErrProjectAccess)
}

// IsValidation reports whether err belongs to the validation class. A request
// naming a record that does not exist is a bad request, not a collaborator
// failure, so the not-found sentinels classify here and reach the sender.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrProjectIDRequired) ||
		errors.Is(err, ErrProjectNotFound) ||
		errors.Is(err, ErrMessageContentRequired) ||
		errors.Is(err, ErrMessageNotFound) ||
		errors.Is(err, ErrTaskIDRequired) ||
		errors.Is(err, ErrTaskNotFound) ||
		errors.Is(err, ErrPullRequestNotFound) ||
		errors.Is(err, ErrCommentNotFound) ||
		errors.Is(err, ErrCommentContent) ||
		errors.Is(err, ErrInvalidStatus) ||
		errors.Is(err, ErrInvalidRoomKey) ||
		errors.Is(err, ErrTargetRequired)
}
