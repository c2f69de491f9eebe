package moderation

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/birdwatch/birdwatch-api/internal/pkg/geo"
)

// Repository defines moderation data access interface
type Repository interface {
	// CreateFlag fails with ErrAlreadyFlagged when the reporter already
	// flagged the post.
	CreateFlag(ctx context.Context, flag *Flag) error
	GetFlag(ctx context.Context, id uuid.UUID) (*Flag, error)
	SetFlagStatus(ctx context.Context, id uuid.UUID, status FlagStatus, reviewer uuid.UUID, at time.Time) (bool, error)
	ResolveSiblings(ctx context.Context, postID uuid.UUID, reviewer uuid.UUID, at time.Time) (int64, error)

	// PendingFlags pages through every pending flag, newest first.
	PendingFlags(ctx context.Context, limit, offset int) ([]*QueueEntry, int, error)
	// PendingFlagsInBox returns pending flags on existing posts inside box.
	PendingFlagsInBox(ctx context.Context, box geo.Box) ([]*QueueEntry, error)

	// CreateRequest fails with ErrRequestExists when the user already has
	// a request in any state.
	CreateRequest(ctx context.Context, req *ModeratorRequest) error
	GetRequest(ctx context.Context, id uuid.UUID) (*ModeratorRequest, error)
	GetRequestByUser(ctx context.Context, userID uuid.UUID) (*ModeratorRequest, error)
	SetRequestStatus(ctx context.Context, id uuid.UUID, status RequestStatus, reviewer uuid.UUID, at time.Time) (bool, error)
	ListRequests(ctx context.Context, status RequestStatus, limit, offset int) ([]*ModeratorRequest, int, error)
}
