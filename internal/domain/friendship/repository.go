package friendship

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines friendship data access interface
type Repository interface {
	// Create fails with ErrAlreadyExists when any row exists for the
	// unordered pair.
	Create(ctx context.Context, f *Friendship) error
	GetByID(ctx context.Context, id uuid.UUID) (*Friendship, error)
	ExistsBetween(ctx context.Context, a, b uuid.UUID) (bool, error)

	// UpdateStatusIfPending reports false when the row is gone or no
	// longer PENDING.
	UpdateStatusIfPending(ctx context.Context, id uuid.UUID, status Status) (bool, error)
	Delete(ctx context.Context, id uuid.UUID) (bool, error)

	ListByUser(ctx context.Context, userID uuid.UUID) ([]*Friendship, error)
	FriendIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error)
	CountAccepted(ctx context.Context, userID uuid.UUID) (int, error)
}
