package friendship

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/birdwatch/birdwatch-api/internal/domain/access"
	"github.com/birdwatch/birdwatch-api/internal/domain/user"
	"github.com/birdwatch/birdwatch-api/internal/pkg/apperr"
	"github.com/birdwatch/birdwatch-api/internal/pkg/realtime"
)

// UserDirectory is the subset of the user repository friendship needs.
type UserDirectory interface {
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
	ListByIDs(ctx context.Context, ids []uuid.UUID) ([]*user.User, error)
}

// Service handles friendship business logic
type Service struct {
	repo     Repository
	users    UserDirectory
	notifier realtime.Notifier
	now      func() time.Time
}

// NewService creates new friendship service
func NewService(repo Repository, users UserDirectory, notifier realtime.Notifier) *Service {
	if notifier == nil {
		notifier = realtime.Nop{}
	}
	return &Service{repo: repo, users: users, notifier: notifier, now: time.Now}
}

// SendRequest creates a PENDING request from the actor to recipientID.
func (s *Service) SendRequest(ctx context.Context, actor *access.Actor, recipientID uuid.UUID) (*Friendship, error) {
	if err := access.Require(actor, access.ActionManageFriends); err != nil {
		return nil, err
	}
	if actor.ID == recipientID {
		return nil, ErrSelfRequest
	}

	exists, err := s.users.Exists(ctx, recipientID)
	if err != nil {
		return nil, apperr.Internal("failed to look up recipient", err)
	}
	if !exists {
		return nil, ErrRecipientNotFound
	}

	taken, err := s.repo.ExistsBetween(ctx, actor.ID, recipientID)
	if err != nil {
		return nil, apperr.Internal("failed to check friendship", err)
	}
	if taken {
		return nil, ErrAlreadyExists
	}

	now := s.now().UTC()
	f := &Friendship{
		ID:          uuid.New(),
		RequesterID: actor.ID,
		RecipientID: recipientID,
		Status:      StatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.Create(ctx, f); err != nil {
		if apperr.KindOf(err) == apperr.KindConflict {
			return nil, err
		}
		return nil, apperr.Internal("failed to create friend request", err)
	}

	s.notifier.Notify(ctx, recipientID, realtime.Event{
		Type: realtime.EventFriendRequest,
		At:   now,
		Data: map[string]interface{}{"friendship_id": f.ID, "requester_id": actor.ID},
	})
	return f, nil
}

// Respond accepts or declines a pending request. Only the recipient may
// respond, and only once.
func (s *Service) Respond(ctx context.Context, actor *access.Actor, id uuid.UUID, decision Decision) (*Friendship, error) {
	if err := access.Require(actor, access.ActionManageFriends); err != nil {
		return nil, err
	}
	status, ok := decision.Status()
	if !ok {
		return nil, ErrInvalidDecision
	}

	f, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if f.RecipientID != actor.ID {
		return nil, ErrNotRecipient
	}
	if f.Status != StatusPending {
		return nil, ErrNotPending
	}

	updated, err := s.repo.UpdateStatusIfPending(ctx, id, status)
	if err != nil {
		return nil, apperr.Internal("failed to update friend request", err)
	}
	if !updated {
		return nil, ErrNotPending
	}

	f.Status = status
	f.UpdatedAt = s.now().UTC()
	if status == StatusAccepted {
		s.notifier.Notify(ctx, f.RequesterID, realtime.Event{
			Type: realtime.EventFriendRequestAccepted,
			At:   f.UpdatedAt,
			Data: map[string]interface{}{"friendship_id": f.ID, "recipient_id": actor.ID},
		})
	}
	return f, nil
}

// Remove deletes a friendship in any state. Either party may remove it,
// which also lets a requester cancel a pending request.
func (s *Service) Remove(ctx context.Context, actor *access.Actor, id uuid.UUID) error {
	if err := access.Require(actor, access.ActionManageFriends); err != nil {
		return err
	}
	f, err := s.get(ctx, id)
	if err != nil {
		return err
	}
	if !f.Involves(actor.ID) {
		return ErrNotParticipant
	}

	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		return apperr.Internal("failed to remove friendship", err)
	}
	if !deleted {
		return ErrFriendshipNotFound
	}
	return nil
}

// FriendIDsOf returns the users with an ACCEPTED friendship to userID.
func (s *Service) FriendIDsOf(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	ids, err := s.repo.FriendIDs(ctx, userID)
	if err != nil {
		return nil, apperr.Internal("failed to list friends", err)
	}
	return ids, nil
}

// CountAccepted returns the number of accepted friendships of userID.
func (s *Service) CountAccepted(ctx context.Context, userID uuid.UUID) (int, error) {
	return s.repo.CountAccepted(ctx, userID)
}

// Overview groups the actor's friendships by state.
type Overview struct {
	Friends  []*Friendship
	Incoming []*Friendship
	Outgoing []*Friendship
	Users    map[uuid.UUID]*user.User
}

// List returns the actor's friends and pending requests in both directions.
// Declined rows are omitted.
func (s *Service) List(ctx context.Context, actor *access.Actor) (*Overview, error) {
	if err := access.Require(actor, access.ActionManageFriends); err != nil {
		return nil, err
	}
	rows, err := s.repo.ListByUser(ctx, actor.ID)
	if err != nil {
		return nil, apperr.Internal("failed to list friendships", err)
	}

	out := &Overview{
		Friends:  []*Friendship{},
		Incoming: []*Friendship{},
		Outgoing: []*Friendship{},
		Users:    map[uuid.UUID]*user.User{},
	}
	others := make([]uuid.UUID, 0, len(rows))
	for _, f := range rows {
		switch {
		case f.Status == StatusAccepted:
			out.Friends = append(out.Friends, f)
		case f.Status == StatusPending && f.RecipientID == actor.ID:
			out.Incoming = append(out.Incoming, f)
		case f.Status == StatusPending:
			out.Outgoing = append(out.Outgoing, f)
		default:
			continue
		}
		others = append(others, f.OtherParty(actor.ID))
	}

	if len(others) > 0 {
		users, err := s.users.ListByIDs(ctx, others)
		if err != nil {
			return nil, apperr.Internal("failed to load users", err)
		}
		for _, u := range users {
			out.Users[u.ID] = u
		}
	}
	return out, nil
}

func (s *Service) get(ctx context.Context, id uuid.UUID) (*Friendship, error) {
	f, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, apperr.Internal("failed to load friendship", err)
	}
	if f == nil {
		return nil, ErrFriendshipNotFound
	}
	return f, nil
}
