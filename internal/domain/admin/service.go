package admin

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/birdwatch/birdwatch-api/internal/domain/access"
	"github.com/birdwatch/birdwatch-api/internal/domain/user"
	"github.com/birdwatch/birdwatch-api/internal/pkg/apperr"
	"github.com/birdwatch/birdwatch-api/internal/pkg/database"
	"github.com/birdwatch/birdwatch-api/internal/pkg/logger"
	"github.com/birdwatch/birdwatch-api/internal/pkg/pagination"
)

const analyticsWindow = 7 * 24 * time.Hour

// UserStore is the subset of user.Repository the admin area needs.
type UserStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*user.User, error)
	Delete(ctx context.Context, id uuid.UUID) error
	ListInactive(ctx context.Context, before time.Time, limit, offset int) ([]*user.User, int, error)
}

// PhotoKeys lists the storage keys of a user's post photos.
type PhotoKeys interface {
	KeysByAuthor(ctx context.Context, authorID uuid.UUID) ([]string, error)
}

// BlobDeleter schedules storage objects for removal.
type BlobDeleter interface {
	Enqueue(ctx context.Context, keys ...string) error
}

// Deps groups the collaborators of Service.
type Deps struct {
	Repo   Repository
	Users  UserStore
	Photos PhotoKeys
	Blobs  BlobDeleter
	Tx     database.Transactor

	// InactiveAfter is how long without activity marks a user inactive.
	InactiveAfter time.Duration
}

// Service implements the admin area
type Service struct {
	repo          Repository
	users         UserStore
	photos        PhotoKeys
	blobs         BlobDeleter
	tx            database.Transactor
	inactiveAfter time.Duration
	now           func() time.Time
}

// NewService creates admin service
func NewService(d Deps) *Service {
	if d.InactiveAfter <= 0 {
		d.InactiveAfter = 30 * 24 * time.Hour
	}
	return &Service{
		repo:          d.Repo,
		users:         d.Users,
		photos:        d.Photos,
		blobs:         d.Blobs,
		tx:            d.Tx,
		inactiveAfter: d.InactiveAfter,
		now:           time.Now,
	}
}

// Analytics returns site-wide counts for the last 7 days and all time.
func (s *Service) Analytics(ctx context.Context, actor *access.Actor) (*Analytics, error) {
	if err := access.Require(actor, access.ActionViewAnalytics); err != nil {
		return nil, err
	}
	a, err := s.repo.Analytics(ctx, s.now().UTC().Add(-analyticsWindow))
	if err != nil {
		return nil, apperr.Internal("load analytics", err)
	}
	return a, nil
}

// InactiveUsers lists users with no activity within the configured window,
// least recently active first.
func (s *Service) InactiveUsers(ctx context.Context, actor *access.Actor, page pagination.Params) ([]*user.User, int, error) {
	if err := access.Require(actor, access.ActionListInactiveUsers); err != nil {
		return nil, 0, err
	}
	if err := page.Validate(); err != nil {
		return nil, 0, err
	}

	cutoff := s.now().UTC().Add(-s.inactiveAfter)
	users, total, err := s.users.ListInactive(ctx, cutoff, page.Limit, page.Offset())
	if err != nil {
		return nil, 0, apperr.Internal("list inactive users", err)
	}
	return users, total, nil
}

// DeleteUser removes an account and everything it owns. Its stored
// objects are queued for removal in the same transaction.
func (s *Service) DeleteUser(ctx context.Context, actor *access.Actor, id uuid.UUID) error {
	if err := access.Require(actor, access.ActionDeleteUser); err != nil {
		return err
	}
	if actor.ID == id {
		return ErrSelfDelete
	}

	target, err := s.users.GetByID(ctx, id)
	if err != nil {
		return apperr.Internal("load user", err)
	}
	if target == nil {
		return user.ErrUserNotFound
	}

	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		keys, err := s.photos.KeysByAuthor(ctx, id)
		if err != nil {
			return err
		}
		if target.AvatarKey.Valid {
			keys = append(keys, target.AvatarKey.String)
		}
		if len(keys) > 0 {
			if err := s.blobs.Enqueue(ctx, keys...); err != nil {
				return err
			}
		}
		return s.users.Delete(ctx, id)
	})
	if err != nil {
		if apperr.KindOf(err) == apperr.KindNotFound {
			return err
		}
		return apperr.Internal("delete user", err)
	}

	logger.LogInfo(ctx, "User deleted", "user_id", id.String(), "admin_id", actor.ID.String())
	return nil
}
