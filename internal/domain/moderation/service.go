package moderation

import (
	"context"
	"database/sql"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/birdwatch/birdwatch-api/internal/domain/access"
	"github.com/birdwatch/birdwatch-api/internal/domain/post"
	"github.com/birdwatch/birdwatch-api/internal/domain/user"
	"github.com/birdwatch/birdwatch-api/internal/pkg/apperr"
	"github.com/birdwatch/birdwatch-api/internal/pkg/database"
	"github.com/birdwatch/birdwatch-api/internal/pkg/geo"
	"github.com/birdwatch/birdwatch-api/internal/pkg/logger"
	"github.com/birdwatch/birdwatch-api/internal/pkg/pagination"
	"github.com/birdwatch/birdwatch-api/internal/pkg/realtime"
)

// PostStore looks up and removes flagged posts.
type PostStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*post.Post, error)
}

// PostPurger deletes a post and its stored objects inside the caller's
// transaction.
type PostPurger interface {
	Purge(ctx context.Context, id uuid.UUID) (bool, error)
}

// UserStore is the subset of user.Repository moderation needs.
type UserStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*user.User, error)
	CountPosts(ctx context.Context, id uuid.UUID) (int, error)
	UpdateRole(ctx context.Context, id uuid.UUID, role access.Role) error
	UpdateLocation(ctx context.Context, id uuid.UUID, loc geo.Coordinates) error
}

// FriendCounter counts accepted friendships.
type FriendCounter interface {
	CountAccepted(ctx context.Context, userID uuid.UUID) (int, error)
}

// Deps groups the collaborators of Service.
type Deps struct {
	Repo     Repository
	Posts    PostStore
	Purger   PostPurger
	Users    UserStore
	Friends  FriendCounter
	Tx       database.Transactor
	Notifier realtime.Notifier

	// RadiusKm bounds a moderator's queue around their location.
	RadiusKm float64
}

// Service handles flag review and moderator applications
type Service struct {
	repo     Repository
	posts    PostStore
	purger   PostPurger
	users    UserStore
	friends  FriendCounter
	tx       database.Transactor
	notifier realtime.Notifier
	radiusKm float64
	now      func() time.Time
}

// NewService creates moderation service
func NewService(d Deps) *Service {
	if d.Notifier == nil {
		d.Notifier = realtime.Nop{}
	}
	if d.RadiusKm <= 0 {
		d.RadiusKm = 1000
	}
	return &Service{
		repo:     d.Repo,
		posts:    d.Posts,
		purger:   d.Purger,
		users:    d.Users,
		friends:  d.Friends,
		tx:       d.Tx,
		notifier: d.Notifier,
		radiusKm: d.RadiusKm,
		now:      time.Now,
	}
}

// Flag reports a post. A reporter may flag a post only once, whatever
// became of the earlier flag.
func (s *Service) Flag(ctx context.Context, actor *access.Actor, postID uuid.UUID, reason string) (*Flag, error) {
	if err := access.Require(actor, access.ActionFlagPost); err != nil {
		return nil, err
	}
	reason = strings.TrimSpace(reason)
	if n := utf8.RuneCountInString(reason); n < 1 || n > MaxReasonLength {
		return nil, ErrInvalidReason
	}

	p, err := s.posts.GetByID(ctx, postID)
	if err != nil {
		return nil, apperr.Internal("load post", err)
	}
	if p == nil {
		return nil, ErrPostNotFound
	}

	f := &Flag{
		ID:         uuid.New(),
		PostID:     postID,
		ReporterID: actor.ID,
		Reason:     reason,
		Status:     FlagPending,
		CreatedAt:  s.now().UTC(),
	}
	if err := s.repo.CreateFlag(ctx, f); err != nil {
		if apperr.KindOf(err) == apperr.KindConflict {
			return nil, err
		}
		return nil, apperr.Internal("create flag", err)
	}
	return f, nil
}

func (s *Service) pendingFlag(ctx context.Context, actor *access.Actor, id uuid.UUID) (*Flag, error) {
	if err := access.Require(actor, access.ActionReviewFlag); err != nil {
		return nil, err
	}
	f, err := s.repo.GetFlag(ctx, id)
	if err != nil {
		return nil, apperr.Internal("load flag", err)
	}
	if f == nil {
		return nil, ErrFlagNotFound
	}
	if f.Status != FlagPending {
		return nil, ErrFlagNotPending
	}
	return f, nil
}

// Review applies a reviewer's decision to a pending flag.
func (s *Service) Review(ctx context.Context, actor *access.Actor, id uuid.UUID, decision FlagDecision) (*Flag, error) {
	switch decision {
	case DecisionResolve:
		return s.Resolve(ctx, actor, id)
	case DecisionDismiss:
		return s.Dismiss(ctx, actor, id)
	}
	return nil, ErrInvalidDecision
}

// Resolve marks the flag RESOLVED and deletes the post in one
// transaction. Other pending flags on the same post are resolved with it.
// If any step fails nothing is changed.
func (s *Service) Resolve(ctx context.Context, actor *access.Actor, id uuid.UUID) (*Flag, error) {
	f, err := s.pendingFlag(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	p, err := s.posts.GetByID(ctx, f.PostID)
	if err != nil {
		return nil, apperr.Internal("load post", err)
	}

	now := s.now().UTC()
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		updated, err := s.repo.SetFlagStatus(ctx, id, FlagResolved, actor.ID, now)
		if err != nil {
			return err
		}
		if !updated {
			return ErrFlagNotPending
		}
		if _, err := s.repo.ResolveSiblings(ctx, f.PostID, actor.ID, now); err != nil {
			return err
		}
		deleted, err := s.purger.Purge(ctx, f.PostID)
		if err != nil {
			return err
		}
		if !deleted {
			logger.FromContext(ctx).Info().Str("post_id", f.PostID.String()).Msg("Flagged post already deleted")
		}
		return nil
	})
	if err != nil {
		if apperr.KindOf(err) == apperr.KindInvalidState {
			return nil, err
		}
		return nil, apperr.Internal("resolve flag", err)
	}

	f.Status = FlagResolved
	f.ReviewedBy = uuid.NullUUID{UUID: actor.ID, Valid: true}
	f.ReviewedAt = sql.NullTime{Time: now, Valid: true}

	s.notifyFlagReviewed(ctx, f, f.ReporterID)
	if p != nil && p.AuthorID != f.ReporterID {
		s.notifyFlagReviewed(ctx, f, p.AuthorID)
	}
	return f, nil
}

// Dismiss marks the flag DISMISSED and keeps the post.
func (s *Service) Dismiss(ctx context.Context, actor *access.Actor, id uuid.UUID) (*Flag, error) {
	f, err := s.pendingFlag(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	updated, err := s.repo.SetFlagStatus(ctx, id, FlagDismissed, actor.ID, now)
	if err != nil {
		return nil, apperr.Internal("dismiss flag", err)
	}
	if !updated {
		return nil, ErrFlagNotPending
	}

	f.Status = FlagDismissed
	f.ReviewedBy = uuid.NullUUID{UUID: actor.ID, Valid: true}
	f.ReviewedAt = sql.NullTime{Time: now, Valid: true}
	s.notifyFlagReviewed(ctx, f, f.ReporterID)
	return f, nil
}

func (s *Service) notifyFlagReviewed(ctx context.Context, f *Flag, to uuid.UUID) {
	s.notifier.Notify(ctx, to, realtime.Event{
		Type: realtime.EventFlagReviewed,
		At:   f.ReviewedAt.Time,
		Data: map[string]interface{}{"flag_id": f.ID, "post_id": f.PostID, "status": f.Status},
	})
}

// Queue lists pending flags. Admins see every pending flag; moderators
// see flags on posts within the configured radius of their registered
// location, newest first.
func (s *Service) Queue(ctx context.Context, actor *access.Actor, page pagination.Params) ([]*QueueEntry, int, error) {
	if err := access.Require(actor, access.ActionReviewFlag); err != nil {
		return nil, 0, err
	}
	if err := page.Validate(); err != nil {
		return nil, 0, err
	}

	if actor.Role == access.RoleAdmin {
		entries, total, err := s.repo.PendingFlags(ctx, page.Limit, page.Offset())
		if err != nil {
			return nil, 0, apperr.Internal("load flag queue", err)
		}
		return entries, total, nil
	}

	mod, err := s.users.GetByID(ctx, actor.ID)
	if err != nil {
		return nil, 0, apperr.Internal("load moderator", err)
	}
	if mod == nil {
		return nil, 0, user.ErrUserNotFound
	}
	center := mod.Location()
	if center == nil {
		return nil, 0, ErrNoModeratorArea
	}

	entries, err := s.repo.PendingFlagsInBox(ctx, geo.BoundingBox(*center, s.radiusKm))
	if err != nil {
		return nil, 0, apperr.Internal("load flag queue", err)
	}
	candidates := make([]geo.Candidate[*QueueEntry], 0, len(entries))
	for _, e := range entries {
		loc := e.PostLocation()
		if loc == nil {
			continue
		}
		candidates = append(candidates, geo.Candidate[*QueueEntry]{
			ID:        e.ID,
			Coords:    *loc,
			CreatedAt: e.CreatedAt,
			Item:      e,
		})
	}

	result, err := geo.Nearby(geo.Query{
		Center:   *center,
		RadiusKm: s.radiusKm,
		Page:     page.Page,
		PageSize: page.Limit,
	}, candidates)
	if err != nil {
		return nil, 0, err
	}

	out := make([]*QueueEntry, 0, len(result.Hits))
	for _, h := range result.Hits {
		d := h.DistanceKm
		h.Item.DistanceKm = &d
		out = append(out, h.Item)
	}
	return out, result.Total, nil
}
