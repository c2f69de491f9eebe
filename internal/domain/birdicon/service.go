package birdicon

import (
	"context"
	"database/sql"
	"io"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/birdwatch/birdwatch-api/internal/domain/access"
	"github.com/birdwatch/birdwatch-api/internal/pkg/apperr"
	"github.com/birdwatch/birdwatch-api/internal/pkg/database"
	"github.com/birdwatch/birdwatch-api/internal/pkg/logger"
	"github.com/birdwatch/birdwatch-api/internal/pkg/pagination"
	"github.com/birdwatch/birdwatch-api/internal/pkg/realtime"
	"github.com/birdwatch/birdwatch-api/internal/pkg/storage"
)

// IconSetter updates the catalog icon of a bird.
type IconSetter interface {
	SetIcon(ctx context.Context, name, iconURL string) error
}

// BlobDeleter schedules storage objects for removal.
type BlobDeleter interface {
	Enqueue(ctx context.Context, keys ...string) error
}

// Deps groups the collaborators of Service.
type Deps struct {
	Repo     Repository
	Birds    IconSetter
	Blobs    BlobDeleter
	Storage  storage.Storage
	Tx       database.Transactor
	Notifier realtime.Notifier
}

// Service handles bird icon submissions
type Service struct {
	repo     Repository
	birds    IconSetter
	blobs    BlobDeleter
	storage  storage.Storage
	tx       database.Transactor
	notifier realtime.Notifier
	now      func() time.Time
}

// NewService creates bird icon service
func NewService(d Deps) *Service {
	if d.Notifier == nil {
		d.Notifier = realtime.Nop{}
	}
	return &Service{
		repo:     d.Repo,
		birds:    d.Birds,
		blobs:    d.Blobs,
		storage:  d.Storage,
		tx:       d.Tx,
		notifier: d.Notifier,
		now:      time.Now,
	}
}

// Submit stores the icon file and files a PENDING submission.
func (s *Service) Submit(ctx context.Context, actor *access.Actor, species string, file io.Reader) (*Submission, error) {
	if err := access.Require(actor, access.ActionSubmitBirdIcon); err != nil {
		return nil, err
	}
	species = strings.TrimSpace(species)
	if n := utf8.RuneCountInString(species); n < 1 || n > MaxSpeciesLength {
		return nil, ErrInvalidSpecies
	}
	if file == nil {
		return nil, ErrMissingFile
	}

	body, contentType, err := storage.ValidateAndBuffer(file, storage.CategoryBirdIcon)
	if err != nil {
		return nil, err
	}

	key := storage.NewKey("bird-icons", storage.ExtensionForMime(contentType))
	if err := s.storage.Put(ctx, key, body, contentType); err != nil {
		return nil, apperr.Internal("store icon", err)
	}

	sub := &Submission{
		ID:          uuid.New(),
		UserID:      actor.ID,
		BirdSpecies: species,
		StorageKey:  key,
		URL:         s.storage.URL(key),
		ContentType: contentType,
		Status:      StatusPending,
		CreatedAt:   s.now().UTC(),
	}
	if err := s.repo.Create(ctx, sub); err != nil {
		if derr := s.storage.Delete(context.WithoutCancel(ctx), key); derr != nil {
			logger.LogError(ctx, derr, "Failed to remove orphaned icon", "key", key)
		}
		return nil, apperr.Internal("create icon submission", err)
	}
	return sub, nil
}

// List pages through submissions. An empty status lists all.
func (s *Service) List(ctx context.Context, actor *access.Actor, status Status, page pagination.Params) ([]*Submission, int, error) {
	if err := access.Require(actor, access.ActionListBirdIcons); err != nil {
		return nil, 0, err
	}
	if status != "" && !status.Valid() {
		return nil, 0, ErrInvalidStatus
	}
	if err := page.Validate(); err != nil {
		return nil, 0, err
	}

	subs, total, err := s.repo.List(ctx, status, page.Limit, page.Offset())
	if err != nil {
		return nil, 0, apperr.Internal("list icon submissions", err)
	}
	return subs, total, nil
}

// Review approves or rejects a pending submission. Approval sets the
// icon of the matching bird, creating it when absent, in the same
// transaction as the status change. A rejected icon is scheduled for
// removal from storage.
func (s *Service) Review(ctx context.Context, actor *access.Actor, id uuid.UUID, decision Decision) (*Submission, error) {
	if err := access.Require(actor, access.ActionReviewBirdIcon); err != nil {
		return nil, err
	}
	var status Status
	switch decision {
	case DecisionApprove:
		status = StatusApproved
	case DecisionReject:
		status = StatusRejected
	default:
		return nil, ErrInvalidDecision
	}

	sub, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, apperr.Internal("load icon submission", err)
	}
	if sub == nil {
		return nil, ErrSubmissionNotFound
	}
	if sub.Status != StatusPending {
		return nil, ErrNotPending
	}

	now := s.now().UTC()
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		updated, err := s.repo.SetStatusIfPending(ctx, id, status, actor.ID, now)
		if err != nil {
			return err
		}
		if !updated {
			return ErrNotPending
		}
		if status == StatusApproved {
			return s.birds.SetIcon(ctx, sub.BirdSpecies, sub.URL)
		}
		return s.blobs.Enqueue(ctx, sub.StorageKey)
	})
	if err != nil {
		if apperr.KindOf(err) == apperr.KindInvalidState {
			return nil, err
		}
		return nil, apperr.Internal("review icon submission", err)
	}

	sub.Status = status
	sub.ReviewedBy = uuid.NullUUID{UUID: actor.ID, Valid: true}
	sub.ReviewedAt = sql.NullTime{Time: now, Valid: true}

	s.notifier.Notify(ctx, sub.UserID, realtime.Event{
		Type: realtime.EventBirdIconReviewed,
		At:   now,
		Data: map[string]interface{}{"submission_id": sub.ID, "bird_species": sub.BirdSpecies, "status": sub.Status},
	})
	return sub, nil
}
