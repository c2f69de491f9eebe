package friendship

import "github.com/birdwatch/birdwatch-api/internal/pkg/apperr"

var (
	ErrSelfRequest        = apperr.New(apperr.KindInvalidArgument, "cannot send a friend request to yourself")
	ErrInvalidDecision    = apperr.New(apperr.KindInvalidArgument, "decision must be ACCEPT or DECLINE")
	ErrRecipientNotFound  = apperr.New(apperr.KindNotFound, "recipient not found")
	ErrFriendshipNotFound = apperr.New(apperr.KindNotFound, "friendship not found")
	ErrAlreadyExists      = apperr.New(apperr.KindConflict, "a friendship already exists between these users")
	ErrNotRecipient       = apperr.New(apperr.KindForbidden, "only the recipient can respond to this request")
	ErrNotParticipant     = apperr.New(apperr.KindForbidden, "you are not part of this friendship")
	ErrNotPending         = apperr.New(apperr.KindInvalidState, "friend request is no longer pending")
)
