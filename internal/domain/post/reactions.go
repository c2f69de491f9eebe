package post

import (
	"context"

	"github.com/google/uuid"

	"github.com/birdwatch/birdwatch-api/internal/domain/access"
	"github.com/birdwatch/birdwatch-api/internal/pkg/apperr"
)

// ReactionSummary is the reaction state of a post for one viewer.
type ReactionSummary struct {
	ReactionCounts
	Mine ReactionKind `json:"mine,omitempty"`
}

// React sets the actor's reaction to kind, switching an existing reaction
// of the other kind.
func (s *Service) React(ctx context.Context, actor *access.Actor, postID uuid.UUID, kind ReactionKind) (*ReactionSummary, error) {
	if err := access.Require(actor, access.ActionReactToPost); err != nil {
		return nil, err
	}
	if !kind.Valid() {
		return nil, ErrInvalidReaction
	}
	if _, err := s.load(ctx, postID); err != nil {
		return nil, err
	}

	existing, err := s.repo.GetReaction(ctx, postID, actor.ID)
	if err != nil {
		return nil, apperr.Internal("load reaction", err)
	}
	if existing != nil && existing.Kind == kind {
		return nil, ErrAlreadyReacted
	}

	err = s.repo.UpsertReaction(ctx, &Reaction{
		PostID:    postID,
		UserID:    actor.ID,
		Kind:      kind,
		CreatedAt: s.now().UTC(),
	})
	if err != nil {
		if apperr.KindOf(err) == apperr.KindNotFound {
			return nil, err
		}
		return nil, apperr.Internal("save reaction", err)
	}
	return s.Reactions(ctx, actor, postID)
}

// Unreact removes the actor's reaction of kind.
func (s *Service) Unreact(ctx context.Context, actor *access.Actor, postID uuid.UUID, kind ReactionKind) (*ReactionSummary, error) {
	if err := access.Require(actor, access.ActionReactToPost); err != nil {
		return nil, err
	}
	if !kind.Valid() {
		return nil, ErrInvalidReaction
	}

	deleted, err := s.repo.DeleteReaction(ctx, postID, actor.ID, kind)
	if err != nil {
		return nil, apperr.Internal("delete reaction", err)
	}
	if !deleted {
		return nil, ErrReactionNotFound
	}
	return s.Reactions(ctx, actor, postID)
}

// Reactions returns counts for a post and the viewer's own reaction.
func (s *Service) Reactions(ctx context.Context, viewer *access.Actor, postID uuid.UUID) (*ReactionSummary, error) {
	if _, err := s.load(ctx, postID); err != nil {
		return nil, err
	}
	ids := []uuid.UUID{postID}
	counts, err := s.repo.CountReactions(ctx, ids)
	if err != nil {
		return nil, apperr.Internal("count reactions", err)
	}

	summary := &ReactionSummary{ReactionCounts: counts[postID]}
	if viewer != nil {
		mine, err := s.repo.UserReactions(ctx, viewer.ID, ids)
		if err != nil {
			return nil, apperr.Internal("load reactions", err)
		}
		summary.Mine = mine[postID]
	}
	return summary, nil
}
