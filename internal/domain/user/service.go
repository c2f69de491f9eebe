package user

import (
	"bytes"
	"context"
	"database/sql"
	"io"
	"strings"

	"github.com/google/uuid"

	"github.com/birdwatch/birdwatch-api/internal/domain/access"
	"github.com/birdwatch/birdwatch-api/internal/pkg/apperr"
	"github.com/birdwatch/birdwatch-api/internal/pkg/database"
	"github.com/birdwatch/birdwatch-api/internal/pkg/geo"
	"github.com/birdwatch/birdwatch-api/internal/pkg/imaging"
	"github.com/birdwatch/birdwatch-api/internal/pkg/logger"
	"github.com/birdwatch/birdwatch-api/internal/pkg/storage"
)

// FriendCounter counts accepted friendships.
type FriendCounter interface {
	CountAccepted(ctx context.Context, userID uuid.UUID) (int, error)
}

// BlobDeleter schedules storage objects for removal.
type BlobDeleter interface {
	Enqueue(ctx context.Context, keys ...string) error
}

// Service handles profile business logic
type Service struct {
	repo    Repository
	friends FriendCounter
	storage storage.Storage
	images  *imaging.Processor
	blobs   BlobDeleter
	tx      database.Transactor
}

// NewService creates user service
func NewService(repo Repository, friends FriendCounter, st storage.Storage, images *imaging.Processor, blobs BlobDeleter, tx database.Transactor) *Service {
	return &Service{
		repo:    repo,
		friends: friends,
		storage: st,
		images:  images,
		blobs:   blobs,
		tx:      tx,
	}
}

func (s *Service) load(ctx context.Context, id uuid.UUID) (*User, error) {
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, apperr.Internal("load user", err)
	}
	if u == nil {
		return nil, ErrUserNotFound
	}
	return u, nil
}

// Get returns the account of id.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*User, error) {
	return s.load(ctx, id)
}

// GetProfile returns the public profile of id with its counters.
func (s *Service) GetProfile(ctx context.Context, id uuid.UUID) (*Profile, error) {
	u, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	posts, err := s.repo.CountPosts(ctx, id)
	if err != nil {
		return nil, apperr.Internal("count posts", err)
	}
	friends, err := s.friends.CountAccepted(ctx, id)
	if err != nil {
		return nil, apperr.Internal("count friends", err)
	}

	return &Profile{User: u, PostCount: posts, FriendCount: friends}, nil
}

// UpdateProfile changes username and picture URL. Owner only.
func (s *Service) UpdateProfile(ctx context.Context, actor *access.Actor, id uuid.UUID, req *UpdateProfileRequest) (*User, error) {
	if err := access.RequireOwner(actor, id); err != nil {
		return nil, err
	}

	u, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Username != nil {
		u.Username = strings.TrimSpace(*req.Username)
	}
	if req.ProfilePicture != nil {
		u.ProfilePicture = sql.NullString{String: *req.ProfilePicture, Valid: true}
	}

	if err := s.repo.UpdateProfile(ctx, id, u.Username, u.ProfilePicture); err != nil {
		if apperr.KindOf(err) != apperr.KindInternal {
			return nil, err
		}
		return nil, apperr.Internal("update profile", err)
	}
	return u, nil
}

// UploadAvatar stores a square crop of the uploaded image as the profile
// picture. The previous avatar object is scheduled for deletion.
func (s *Service) UploadAvatar(ctx context.Context, actor *access.Actor, id uuid.UUID, file io.Reader) (*User, error) {
	if err := access.RequireOwner(actor, id); err != nil {
		return nil, err
	}
	if _, err := s.load(ctx, id); err != nil {
		return nil, err
	}

	buf, _, err := storage.ValidateAndBuffer(file, storage.CategoryAvatar)
	if err != nil {
		return nil, err
	}
	avatar, err := s.images.Avatar(buf)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInvalidArgument, "image could not be decoded", err)
	}

	key := storage.NewKey("avatars/"+id.String(), imaging.Extension(avatar.ContentType))
	if err := s.storage.Put(ctx, key, bytes.NewReader(avatar.Data), avatar.ContentType); err != nil {
		return nil, apperr.Internal("store avatar", err)
	}

	var updated *User
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		u, err := s.load(ctx, id)
		if err != nil {
			return err
		}
		if err := s.repo.UpdateAvatar(ctx, id, s.storage.URL(key), key); err != nil {
			return err
		}
		if u.AvatarKey.Valid && u.AvatarKey.String != "" {
			if err := s.blobs.Enqueue(ctx, u.AvatarKey.String); err != nil {
				return err
			}
		}
		u.AvatarKey = sql.NullString{String: key, Valid: true}
		u.ProfilePicture = sql.NullString{String: s.storage.URL(key), Valid: true}
		updated = u
		return nil
	})
	if err != nil {
		if delErr := s.storage.Delete(context.WithoutCancel(ctx), key); delErr != nil {
			logger.LogError(ctx, delErr, "Failed to remove orphaned avatar", "key", key)
		}
		if apperr.KindOf(err) != apperr.KindInternal {
			return nil, err
		}
		return nil, apperr.Internal("save avatar", err)
	}
	return updated, nil
}

// UpdateLocation sets the caller's registered location.
func (s *Service) UpdateLocation(ctx context.Context, actor *access.Actor, loc geo.Coordinates) (*User, error) {
	if err := access.Require(actor, access.ActionEditProfile); err != nil {
		return nil, err
	}
	if err := loc.Validate(); err != nil {
		return nil, err
	}

	if err := s.repo.UpdateLocation(ctx, actor.ID, loc); err != nil {
		if apperr.KindOf(err) == apperr.KindNotFound {
			return nil, err
		}
		return nil, apperr.Internal("update location", err)
	}
	return s.load(ctx, actor.ID)
}
