package post

import "github.com/birdwatch/birdwatch-api/internal/pkg/apperr"

var (
	ErrPostNotFound       = apperr.New(apperr.KindNotFound, "post not found")
	ErrTooManyPhotos      = apperr.Invalid("too many photos", map[string]string{"photos": "at most 5 photos per post"})
	ErrInvalidReaction    = apperr.Invalid("invalid reaction", map[string]string{"kind": "must be LIKE or DISLIKE"})
	ErrAlreadyReacted     = apperr.New(apperr.KindConflict, "you already reacted to this post with this kind")
	ErrReactionNotFound   = apperr.New(apperr.KindNotFound, "reaction not found")
	ErrInvalidSpecies     = apperr.Invalid("invalid species", map[string]string{"species": "1 to 5 non-empty names of at most 100 characters"})
	ErrInvalidDescription = apperr.Invalid("invalid description", map[string]string{"description": "must be 1 to 1000 characters"})
	ErrNothingToUpdate    = apperr.New(apperr.KindInvalidArgument, "no fields to update")
)
