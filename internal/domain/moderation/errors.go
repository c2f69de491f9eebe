package moderation

import "github.com/birdwatch/birdwatch-api/internal/pkg/apperr"

var (
	ErrPostNotFound     = apperr.New(apperr.KindNotFound, "post not found")
	ErrFlagNotFound     = apperr.New(apperr.KindNotFound, "flag not found")
	ErrAlreadyFlagged   = apperr.New(apperr.KindConflict, "you have already flagged this post")
	ErrFlagNotPending   = apperr.New(apperr.KindInvalidState, "flag has already been reviewed")
	ErrInvalidReason    = apperr.Invalid("invalid reason", map[string]string{"reason": "must be 1 to 500 characters"})
	ErrInvalidDecision  = apperr.New(apperr.KindInvalidArgument, "unknown decision")
	ErrNoModeratorArea  = apperr.New(apperr.KindInvalidState, "moderator has no registered location")
	ErrNotEligible      = apperr.New(apperr.KindForbidden, "moderator requests require at least 10 posts and 5 friends")
	ErrAlreadyModerator = apperr.New(apperr.KindInvalidState, "you already have moderation rights")
	ErrRequestExists    = apperr.New(apperr.KindConflict, "you have already submitted a moderator request")
	ErrRequestNotFound  = apperr.New(apperr.KindNotFound, "moderator request not found")
	ErrRequestReviewed  = apperr.New(apperr.KindInvalidState, "moderator request has already been reviewed")
	ErrInvalidStatus    = apperr.Invalid("invalid status", map[string]string{"status": "must be PENDING, APPROVED or REJECTED"})
)
