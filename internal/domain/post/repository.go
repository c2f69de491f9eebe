package post

import (
	"context"

	"github.com/google/uuid"

	"github.com/birdwatch/birdwatch-api/internal/pkg/geo"
)

// Repository defines post data access interface
type Repository interface {
	Create(ctx context.Context, post *Post) error
	GetByID(ctx context.Context, id uuid.UUID) (*Post, error)
	Update(ctx context.Context, post *Post) error
	Delete(ctx context.Context, id uuid.UUID) (bool, error)

	// List methods return newest first with the total matching count.
	List(ctx context.Context, limit, offset int) ([]*Post, int, error)
	ListByAuthor(ctx context.Context, authorID uuid.UUID, limit, offset int) ([]*Post, int, error)
	ListByAuthors(ctx context.Context, authorIDs []uuid.UUID, limit, offset int) ([]*Post, int, error)
	Search(ctx context.Context, query string, limit, offset int) ([]*Post, int, error)

	// WithinBox returns at most limit posts inside box, newest first,
	// optionally restricted to posts
	// sharing a species (lower-cased) with species.
	WithinBox(ctx context.Context, box geo.Box, species []string, limit int) ([]*Post, error)

	GetReaction(ctx context.Context, postID, userID uuid.UUID) (*Reaction, error)
	UpsertReaction(ctx context.Context, reaction *Reaction) error
	DeleteReaction(ctx context.Context, postID, userID uuid.UUID, kind ReactionKind) (bool, error)
	CountReactions(ctx context.Context, postIDs []uuid.UUID) (map[uuid.UUID]ReactionCounts, error)
	UserReactions(ctx context.Context, userID uuid.UUID, postIDs []uuid.UUID) (map[uuid.UUID]ReactionKind, error)
}
